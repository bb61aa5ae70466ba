package handlers

import (
	"log/slog"

	"github.com/anjiri1684/tutor_desk/websocket"
	websocketcontrib "github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
)

// WsUpgrade only lets websocket upgrades through. With auth enabled the token
// travels as ?token= since browsers cannot set headers on the handshake.
func (h *Handler) WsUpgrade(c *fiber.Ctx) error {
	if !websocketcontrib.IsWebSocketUpgrade(c) {
		return fiber.ErrUpgradeRequired
	}
	if h.auth.JWTSecret != "" {
		if err := h.parseToken(c.Query("token")); err != nil {
			return fiber.NewError(fiber.StatusUnauthorized, "Invalid or expired JWT")
		}
	}
	return c.Next()
}

// ServeWs registers the connection and keeps it until the client goes away.
// Clients only receive; anything they send is discarded.
func (h *Handler) ServeWs(c *websocketcontrib.Conn) {
	client := &websocket.Client{ID: uuid.New(), Conn: c}
	defer c.Close()
	if !h.hub.Register(client) {
		return
	}
	defer h.hub.Unregister(client)

	for {
		if _, _, err := c.ReadMessage(); err != nil {
			if !websocketcontrib.IsCloseError(err, websocketcontrib.CloseGoingAway, websocketcontrib.CloseNormalClosure) {
				h.logger.Debug("websocket read error",
					slog.String("client_id", client.ID.String()),
					slog.Any("error", err))
			}
			return
		}
	}
}

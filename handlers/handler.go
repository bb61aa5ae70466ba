package handlers

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/anjiri1684/tutor_desk/services"
	"github.com/anjiri1684/tutor_desk/store"
	"github.com/anjiri1684/tutor_desk/utils"
	"github.com/anjiri1684/tutor_desk/websocket"
	"github.com/gofiber/fiber/v2"
)

type Services struct {
	Students *services.StudentService
	Ledger   *services.LedgerService
	Finances *services.FinanceService
	Agenda   *services.AgendaService
	Invoices *services.InvoiceService
}

type AuthConfig struct {
	JWTSecret         string
	AdminPasswordHash string
	TokenTTL          time.Duration
}

// InvalidateHeader carries the comma separated keys a mutation made stale.
const InvalidateHeader = "X-Invalidate"

// Handler serves the HTTP API. Every mutation reports the views it made
// stale in the X-Invalidate header and publishes them to the websocket hub.
type Handler struct {
	svc    Services
	store  store.Store
	hub    *websocket.Hub
	auth   AuthConfig
	logger *slog.Logger
}

func New(st store.Store, svc Services, hub *websocket.Hub, auth AuthConfig, logger *slog.Logger) *Handler {
	if auth.TokenTTL == 0 {
		auth.TokenTTL = 72 * time.Hour
	}
	return &Handler{svc: svc, store: st, hub: hub, auth: auth, logger: logger}
}

func (h *Handler) AuthSecret() string { return h.auth.JWTSecret }

func (h *Handler) publish(c *fiber.Ctx, inv services.Invalidation) {
	if len(inv) == 0 {
		return
	}
	c.Set(InvalidateHeader, strings.Join(inv, ","))
	if h.hub != nil {
		h.hub.Publish([]string(inv))
	}
}

func statusOf(kind services.ErrorKind) int {
	switch kind {
	case services.KindNotFound:
		return fiber.StatusNotFound
	case services.KindInvalidReference, services.KindValidation:
		return fiber.StatusBadRequest
	case services.KindInsufficientPackCapacity:
		return fiber.StatusConflict
	default:
		return fiber.StatusInternalServerError
	}
}

// ErrorHandler renders every error as {"status":"error","code","kind","message"}.
func ErrorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		body := fiber.Map{"status": "error"}

		var fe *fiber.Error
		var se *services.Error
		switch {
		case errors.As(err, &fe):
			code = fe.Code
		case errors.As(err, &se):
			code = statusOf(se.Kind)
			body["kind"] = se.Kind
		default:
			body["kind"] = services.KindStorage
		}

		if code >= fiber.StatusInternalServerError {
			logger.Error("request failed",
				slog.String("method", c.Method()),
				slog.String("path", c.Path()),
				slog.Any("error", err))
		}

		body["code"] = code
		body["message"] = err.Error()
		return c.Status(code).JSON(body)
	}
}

func parseBody(c *fiber.Ctx, out interface{}) error {
	if err := c.BodyParser(out); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Cannot parse JSON")
	}
	return nil
}

func validateBody(v interface{}) error {
	if err := utils.ValidateStruct(v); err != nil {
		return services.ValidationFailure("%s", utils.ValidationMessage(err))
	}
	return nil
}

func (h *Handler) Health(c *fiber.Ctx) error {
	if err := h.store.Ping(c.UserContext()); err != nil {
		h.logger.Error("health check failed", slog.Any("error", err))
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

package handlers

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v4"
	"golang.org/x/crypto/bcrypt"
)

type LoginRequest struct {
	Password string `json:"password" validate:"required"`
}

// LoginUser exchanges the admin password for a token. It is disabled when no
// password hash is configured.
func (h *Handler) LoginUser(c *fiber.Ctx) error {
	if h.auth.AdminPasswordHash == "" || h.auth.JWTSecret == "" {
		return fiber.NewError(fiber.StatusNotFound, "Login is disabled")
	}

	var req LoginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}
	if err := validateBody(req); err != nil {
		return err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(h.auth.AdminPasswordHash), []byte(req.Password)); err != nil {
		return fiber.NewError(fiber.StatusUnauthorized, "Invalid password")
	}

	claims := jwt.MapClaims{
		"sub":  "admin",
		"role": "admin",
		"exp":  time.Now().Add(h.auth.TokenTTL).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	t, err := token.SignedString([]byte(h.auth.JWTSecret))
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to create token")
	}

	return c.JSON(fiber.Map{"token": t})
}

func (h *Handler) parseToken(raw string) error {
	_, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fiber.ErrUnauthorized
		}
		return []byte(h.auth.JWTSecret), nil
	})
	return err
}

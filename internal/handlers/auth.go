package handlers

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/example/blacktie/internal/config"
	"github.com/example/blacktie/internal/middleware"
	"github.com/example/blacktie/internal/services"
	"github.com/example/blacktie/internal/utils"
)

// AuthHandler bundles dependencies for authentication endpoints.
type AuthHandler struct {
	auth *services.AuthService
	cfg  *config.Config
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(auth *services.AuthService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{auth: auth, cfg: cfg}
}

type loginRequest struct {
	Pin string `json:"pin"`
}

// Login exchanges a staff PIN for a signed session token.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := parseBody(c, &req); err != nil {
		return err
	}

	session, err := h.auth.LoginWithPin(c.UserContext(), strings.TrimSpace(req.Pin))
	if err != nil {
		return err
	}

	token, err := utils.GenerateSessionToken(h.cfg.SessionSecret, session, h.cfg.SessionTTL)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to generate token")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"user":    session,
		"token":   token,
	})
}

// Logout records the end of the caller's session. Tokens are stateless, so
// the client discards its copy.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	session, ok := middleware.GetCurrentSession(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}
	h.auth.Logout(c.UserContext(), session)
	return c.JSON(fiber.Map{"success": true})
}

// Me returns the signed-in staff member.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	session, ok := middleware.GetCurrentSession(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}
	return success(c, session)
}

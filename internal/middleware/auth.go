package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/example/blacktie/internal/config"
	"github.com/example/blacktie/internal/services"
	"github.com/example/blacktie/internal/utils"
)

const sessionContextKey = "currentSession"

// AuthMiddleware validates the session token and loads the signed-in staff
// member into the request context.
func AuthMiddleware(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, err := bearerSession(cfg, c)
		if err != nil {
			return err
		}

		c.Locals(sessionContextKey, session)
		c.SetUserContext(services.WithSession(c.UserContext(), session))
		return c.Next()
	}
}

// HasSession reports whether the request carries a valid session token.
func HasSession(cfg *config.Config, c *fiber.Ctx) bool {
	_, err := bearerSession(cfg, c)
	return err == nil
}

func bearerSession(cfg *config.Config, c *fiber.Ctx) (utils.Session, error) {
	authHeader := c.Get(fiber.HeaderAuthorization)
	if authHeader == "" {
		return utils.Session{}, fiber.NewError(fiber.StatusUnauthorized, "missing authorization header")
	}

	parts := strings.SplitN(authHeader, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return utils.Session{}, fiber.NewError(fiber.StatusUnauthorized, "invalid authorization header")
	}

	session, err := utils.ParseSessionToken(cfg.SessionSecret, parts[1])
	if err != nil {
		return utils.Session{}, fiber.NewError(fiber.StatusUnauthorized, "invalid token")
	}
	return session, nil
}

// RequireRole rejects staff whose role is not one of roles.
func RequireRole(roles ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		session, ok := GetCurrentSession(c)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
		}
		for _, role := range roles {
			if strings.EqualFold(session.Role, role) {
				return c.Next()
			}
		}
		return fiber.NewError(fiber.StatusForbidden, "insufficient role")
	}
}

// GetCurrentSession extracts the signed-in staff member from context.
func GetCurrentSession(c *fiber.Ctx) (utils.Session, bool) {
	value := c.Locals(sessionContextKey)
	if value == nil {
		return utils.Session{}, false
	}

	if s, ok := value.(utils.Session); ok {
		return s, true
	}

	return utils.Session{}, false
}

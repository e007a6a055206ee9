package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/Windi-Fikriyansyah/gigmarket_be/internal/utils"
)

const (
	LocalClientID = "clientId"
	LocalRole     = "role"
)

// JWTFromCookie verifies the session cookie, falling back to a bearer header,
// and stores the caller's client id and role in locals.
func JWTFromCookie(secret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		tokenStr := c.Cookies(utils.CookieName)
		if tokenStr == "" {
			tokenStr = strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
		}
		if tokenStr == "" {
			return fiber.ErrUnauthorized
		}

		claims, err := utils.ParseJWT(secret, tokenStr)
		if err != nil {
			return fiber.ErrUnauthorized
		}

		id, err := uuid.Parse(strings.TrimSpace(claims.ClientID))
		if err != nil {
			return fiber.ErrUnauthorized
		}

		c.Locals(LocalClientID, id)
		c.Locals(LocalRole, strings.ToLower(strings.TrimSpace(claims.Role)))
		return c.Next()
	}
}

// ClientID returns the authenticated caller. It is uuid.Nil outside JWTFromCookie.
func ClientID(c *fiber.Ctx) uuid.UUID {
	id, _ := c.Locals(LocalClientID).(uuid.UUID)
	return id
}

func Role(c *fiber.Ctx) string {
	role, _ := c.Locals(LocalRole).(string)
	return role
}

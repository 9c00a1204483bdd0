package middleware

import (
	"fmt"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
)

// UserAuthMiddleware verifies the end-user JWT the Gateway forwards in
// X-Session-Token and attaches the token subject as the caller's user id.
// Routes without it (e.g. the feedback query) stay public behind the Gateway.
func UserAuthMiddleware(secret []byte) fiber.Handler {
	return func(c *fiber.Ctx) error {
		raw := strings.TrimSpace(c.Get("X-Session-Token"))
		if raw == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing user token")
		}

		token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
			}
			return secret, nil
		})
		if err != nil || !token.Valid {
			log.Printf("❌ [USER_AUTH] Invalid user token on %s: %v", c.Path(), err)
			return fiber.NewError(fiber.StatusUnauthorized, "invalid user token")
		}

		sub, err := token.Claims.GetSubject()
		if err != nil || sub == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "user token has no subject")
		}

		// Attach to ctx for handlers
		c.Locals("user_id", sub)

		return c.Next()
	}
}

// UserID returns the subject id UserAuthMiddleware stored on the request,
// or "" if the route ran without it.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals("user_id").(string)
	return id
}

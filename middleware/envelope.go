package middleware

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
)

// ErrorEnvelope is the app-wide Fiber error handler. Handlers return
// *fiber.Error for expected failures; anything else is treated as an
// unexpected store/internal error and surfaces as a generic 500.
// Every error body has the shape {"msg": "..."}.
func ErrorEnvelope(c *fiber.Ctx, err error) error {
	var fiberErr *fiber.Error
	if errors.As(err, &fiberErr) {
		return c.Status(fiberErr.Code).JSON(fiber.Map{"msg": fiberErr.Message})
	}

	log.Printf("❌ [ENVELOPE] Unhandled error on %s %s: %v", c.Method(), c.Path(), err)
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"msg": "internal server error"})
}

// AllowMethods gates a route to an allow-list of HTTP methods. It runs before
// auth and handler logic, so a wrong verb never touches the store.
func AllowMethods(methods ...string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		for _, m := range methods {
			if c.Method() == m {
				return c.Next()
			}
		}
		return fiber.NewError(fiber.StatusMethodNotAllowed, "method not allowed")
	}
}

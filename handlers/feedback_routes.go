// handlers/feedback_routes.go
package handlers

import (
	"game-feedback-system/middleware"
	"game-feedback-system/services"

	"github.com/gofiber/fiber/v2"
)

// SetupFeedbackRoutes wires the feedback API. Every route already sits
// behind the global Gateway middleware; user JWT auth is added per-route.
// Routes are registered via All + AllowMethods so a wrong verb gets a 405
// envelope before any auth or store work.
func SetupFeedbackRoutes(app *fiber.App, feedbackService *services.FeedbackService, userAuth fiber.Handler) {
	// Fixed paths first so the :gameSessionId route cannot shadow them.
	// This reserves "stats" (and the "/:id/fragment" shape) as path
	// segments: a session literally named "stats" could not receive a PUT.
	// Session ids are uuids, so no real id collides with them.
	app.All("/api/v1/feedback/stats",
		middleware.AllowMethods(fiber.MethodGet),
		feedbackService.GetSessionStats)

	app.All("/api/v1/feedback/:id/fragment",
		middleware.AllowMethods(fiber.MethodGet),
		feedbackService.GetFeedbackFragment)

	// 🔓 Query is public (behind Gateway) — no user context needed
	app.All("/api/v1/feedback",
		middleware.AllowMethods(fiber.MethodGet),
		feedbackService.QueryFeedback)

	// 🔐 Write requires a verified user subject
	app.All("/api/v1/feedback/:gameSessionId",
		middleware.AllowMethods(fiber.MethodPut),
		userAuth,
		feedbackService.UpsertFeedback)
}

func SetupSessionRoutes(app *fiber.App, sessionService *services.SessionService, userAuth fiber.Handler) {
	app.All("/api/v1/sessions",
		middleware.AllowMethods(fiber.MethodPost),
		userAuth,
		sessionService.CreateGameSession)

	app.All("/api/v1/sessions/:id",
		middleware.AllowMethods(fiber.MethodGet),
		sessionService.GetGameSession)
}

func SetupUserRoutes(app *fiber.App, userService *services.UserService) {
	app.All("/api/v1/users/search",
		middleware.AllowMethods(fiber.MethodGet),
		userService.SearchUsers)
}

package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/vidassign-api/internal/config"
	"github.com/noah-isme/vidassign-api/internal/handler"
	"github.com/noah-isme/vidassign-api/internal/middleware"
	"github.com/noah-isme/vidassign-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	Health              handler.HealthDependencies
	AssignmentHandler   *handler.AssignmentHandler
	CourseHandler       *handler.CourseHandler
	SubmissionHandler   *handler.SubmissionHandler
	GradingHandler      *handler.GradingHandler
	NotificationHandler *handler.NotificationHandler
	JWTMiddleware       fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.Health))

	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = middleware.JWTProtected(cfg.JWTSecret)
	}
	secured := []fiber.Handler{jwtMiddleware, middleware.Authenticated()}

	assignments := api.Group("/assignments", secured...)
	if deps.AssignmentHandler != nil {
		deps.AssignmentHandler.Register(assignments)
	}
	if deps.SubmissionHandler != nil {
		deps.SubmissionHandler.Register(assignments)
	}
	if deps.GradingHandler != nil {
		deps.GradingHandler.Register(assignments)
		deps.GradingHandler.RegisterPreferences(api.Group("/grading", secured...))
		deps.GradingHandler.RegisterGradebook(api.Group("/gradebook", secured...))
	}

	if deps.CourseHandler != nil {
		deps.CourseHandler.Register(api.Group("/courses", secured...))
		deps.CourseHandler.RegisterScales(api.Group("/scales", secured...))
	}

	if deps.NotificationHandler != nil {
		deps.NotificationHandler.Register(api.Group("/notifications", secured...))
	}
}

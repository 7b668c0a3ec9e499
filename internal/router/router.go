package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/vidyalay/pariksha-api/internal/config"
	"github.com/vidyalay/pariksha-api/internal/handler"
	"github.com/vidyalay/pariksha-api/internal/middleware"
	"github.com/vidyalay/pariksha-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	ExamHandler   *handler.ExamHandler
	MarkHandler   *handler.MarkHandler
	JWTMiddleware fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/health", handler.HealthCheck(cfg))
	app.Get("/metrics", observability.MetricsHandler())

	// Use provided JWT middleware, or a no-op if nil
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = func(c *fiber.Ctx) error { return c.Next() }
	}

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	}, jwtMiddleware)

	if deps.ExamHandler != nil {
		exams := api.Group("/exams")
		deps.ExamHandler.Register(exams)

		if deps.MarkHandler != nil {
			// Mark entry is restricted to staff and throttled per user.
			marks := api.Group("/exams/:id",
				middleware.RequireRole("admin", "teacher"),
				middleware.RateLimit("marks", 30, time.Minute),
			)
			deps.MarkHandler.Register(marks)
		}
	}
}

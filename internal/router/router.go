package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/gema-roster-web/internal/config"
	"github.com/noah-isme/gema-roster-web/internal/handler"
	"github.com/noah-isme/gema-roster-web/internal/store"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	PageHandler       *handler.PageHandler
	StudentHandler    *handler.StudentHandler
	AssignmentHandler *handler.AssignmentHandler
	MatrixHandler     *handler.MatrixHandler
	ActivityHandler   *handler.ActivityHandler
	EventHandler      *handler.EventHandler
	Store             *store.Store
	// MutationLimiter guards the /ui routes; nil disables it.
	MutationLimiter fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.Store))

	limiter := deps.MutationLimiter
	if limiter == nil {
		limiter = func(c *fiber.Ctx) error { return c.Next() }
	}

	ui := app.Group("/ui", limiter)

	if deps.StudentHandler != nil {
		deps.StudentHandler.Register(ui.Group("/students"))
	}
	if deps.AssignmentHandler != nil {
		deps.AssignmentHandler.Register(ui.Group("/assignments"))
	}
	if deps.MatrixHandler != nil {
		deps.MatrixHandler.Register(ui.Group("/matrix"))
	}
	// The journal is optional; without a database there is no activity route.
	if deps.ActivityHandler != nil {
		deps.ActivityHandler.Register(ui.Group("/activity"))
	}

	if deps.EventHandler != nil {
		deps.EventHandler.Register(app.Group("/events"))
	}

	if deps.PageHandler != nil {
		deps.PageHandler.Register(app)
	}
}

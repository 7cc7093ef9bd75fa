package stub

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/birbparty/groundhogg-go/sdk"
)

// NewApp builds the fiber app with middleware and routes in place.
func NewApp(cfg *Config, handler *Handler, metrics *Metrics) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "Groundhogg API stub",
		ErrorHandler:          ErrorHandler,
		ReadTimeout:           time.Duration(cfg.RequestTimeout) * time.Second,
		WriteTimeout:          time.Duration(cfg.RequestTimeout) * time.Second,
		IdleTimeout:           120 * time.Second,
		DisableStartupMessage: true,
	})

	SetupMiddleware(app, cfg)
	SetupRoutes(app, cfg, handler, metrics)
	return app
}

// SetupRoutes configures all API routes
func SetupRoutes(app *fiber.App, cfg *Config, handler *Handler, metrics *Metrics) {
	app.Use(MetricsMiddleware(metrics))

	api := app.Group(cfg.APIBase, ValidateAPIKey(cfg.APIKey))

	contacts := api.Group("/contacts")
	contacts.Get("", handler.ListContacts)
	contacts.Post("", handler.CreateContact)
	contacts.Get("/:id", handler.GetContact)
	contacts.Patch("/:id", handler.UpdateContact)
	contacts.Post("/:id/tags", handler.AddTags)
	contacts.Delete("/:id/tags", handler.RemoveTags)
	contacts.Get("/:id/notes", handler.ListNotes)
	contacts.Post("/:id/notes", handler.AddNote)

	app.Post(cfg.TrackingPath, handler.Track)

	app.Get("/health", handler.Health)
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(metrics.Registry(), promhttp.HandlerOpts{})))

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service": "groundhogg-stub",
			"version": sdk.Version,
			"status":  "running",
			"endpoints": fiber.Map{
				"contacts": cfg.APIBase + "/contacts",
				"tags":     cfg.APIBase + "/contacts/:id/tags",
				"notes":    cfg.APIBase + "/contacts/:id/notes",
				"track":    cfg.TrackingPath,
				"health":   "/health",
				"metrics":  "/metrics",
			},
		})
	})

	app.Use(func(c *fiber.Ctx) error {
		return respondError(c, fiber.StatusNotFound, ErrCodeNoRoute, "No route was found matching the URL and request method.")
	})
}

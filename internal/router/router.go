package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/statlens/statlens/internal/config"
	"github.com/statlens/statlens/internal/handlers"
	"github.com/statlens/statlens/internal/logging"
	"github.com/statlens/statlens/internal/metrics"
	"github.com/statlens/statlens/internal/middleware"
	"github.com/statlens/statlens/internal/services"
)

// Services bundles what the HTTP layer needs
type Services struct {
	Analytics *services.AnalyticsService
	Reports   *services.ReportService
	Metrics   *metrics.Registry
}

// Setup configures all routes and middlewares
func Setup(app *fiber.App, logger *logging.Logger, svc Services, cfg config.Config) *handlers.Handler {
	h := handlers.New(logger, svc.Analytics, svc.Reports)

	// Global middlewares
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,X-Request-ID",
	}))
	app.Use(logging.FiberMiddleware(logger))
	if svc.Metrics != nil {
		app.Use(svc.Metrics.Middleware())
	}

	app.Get("/health", h.Health)
	if svc.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(svc.Metrics.Handler()))
	}

	// Runs and reports are the expensive routes
	limited := middleware.RateLimit(cfg.RateLimit)

	v1 := app.Group("/v1")

	// Stateless analysis
	v1.Post("/analyze", limited, h.Analyze)

	// Dataset analytics
	v1.Post("/analytics/run", limited, h.RunAnalytics)
	v1.Get("/analytics/:dataset_id/metrics", h.ListMetrics)
	v1.Delete("/analytics/:dataset_id/cache", h.InvalidateCache)
	v1.Get("/analytics/:dataset_id", h.GetAnalytics)

	// Reports
	v1.Post("/reports", limited, h.GenerateReport)
	v1.Get("/reports/:dataset_id/insights", h.GetInsights)
	v1.Get("/reports/:report_id", h.GetReport)

	// 404 handler
	app.Use(h.NotFound)

	return h
}

// New creates a new Fiber app with configuration
func New(logger *logging.Logger, svc Services, cfg config.Config) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "statlens",
		DisableStartupMessage: true,
		ReadTimeout:           cfg.Server.ReadTimeout,
		WriteTimeout:          cfg.Server.WriteTimeout,
		BodyLimit:             cfg.Server.BodyLimit,
		ErrorHandler:          middleware.ErrorHandler(logger),
	})

	Setup(app, logger, svc, cfg)

	return app
}

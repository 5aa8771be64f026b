package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/lifegpa-api/internal/config"
	"github.com/noah-isme/lifegpa-api/internal/handler"
	"github.com/noah-isme/lifegpa-api/internal/middleware"
	"github.com/noah-isme/lifegpa-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	BaselineHandler *handler.BaselineHandler
	ReportHandler   *handler.ReportHandler
	SeedHandler     *handler.SeedHandler
	HealthProbes    map[string]handler.HealthProbe
	// JWTMiddleware guards routes that need a user. OptionalJWTMiddleware
	// fronts the baseline step, which answers anonymous callers itself.
	JWTMiddleware         fiber.Handler
	OptionalJWTMiddleware fiber.Handler
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.HealthProbes))

	app.Get("/metrics", observability.MetricsHandler())

	jwtMiddleware := orNext(deps.JWTMiddleware)
	optionalJWT := orNext(deps.OptionalJWTMiddleware)

	if deps.BaselineHandler != nil {
		baseline := app.Group("/api/v2/onboarding/baseline", optionalJWT)
		deps.BaselineHandler.Register(baseline, middleware.RateLimit("baseline_submit", cfg.SubmitRateLimit, time.Minute))
	}

	if deps.ReportHandler != nil {
		reports := app.Group("/api/v2/life-gpa/reports", jwtMiddleware, middleware.RequireRole(middleware.RoleAuthenticated, middleware.RoleService))
		deps.ReportHandler.Register(reports)
	}

	if deps.SeedHandler != nil {
		tools := app.Group("/api/v2/tools/seed")
		deps.SeedHandler.Register(tools)
	}
}

func orNext(handler fiber.Handler) fiber.Handler {
	if handler != nil {
		return handler
	}
	return func(c *fiber.Ctx) error { return c.Next() }
}

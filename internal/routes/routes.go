package routes

import (
	"context"
	"time"

	"go-adxlog/internal/bootstrap"
	"go-adxlog/internal/config"
	mw "go-adxlog/internal/middleware"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// SetupRoutes configures the application routes.
func SetupRoutes(app *fiber.App, cfg *config.Config, logger *zap.Logger, components *bootstrap.AppComponents) {
	logger.Info("Setting up application routes...")

	app.Get("/health", func(c *fiber.Ctx) error {
		lg := mw.GetRequestFileLogger(c)
		healthStatus := fiber.Map{"status": "healthy", "timestamp": time.Now().UTC()}
		deps := fiber.Map{}

		status := components.Target.Status()
		deps["adx"] = status
		if status.Closed {
			healthStatus["status"] = "degraded"
		}

		if components.DeadLetterRepo != nil {
			pingCtx, cancel := context.WithTimeout(c.Context(), 3*time.Second)
			defer cancel()
			store := fiber.Map{}
			if err := components.DeadLetterRepo.Ping(pingCtx); err != nil {
				store["sqlite"] = "disconnected"
				healthStatus["status"] = "degraded"
				lg.Warn("Health check: dead-letter store ping failed", zap.Error(err))
			} else {
				store["sqlite"] = "connected"
				if n, err := components.DeadLetterRepo.Count(pingCtx); err == nil {
					store["pending"] = n
				}
			}
			deps["deadLetter"] = store
		} else {
			deps["deadLetter"] = "disabled"
		}

		healthStatus["dependencies"] = deps
		return c.Status(fiber.StatusOK).JSON(healthStatus)
	})

	api := app.Group("/api/v1")

	var guards []fiber.Handler
	if cfg.JWTSecret != "" {
		guards = append(guards, mw.Protected(cfg.JWTSecret))
		logger.Info("Bearer authentication enabled on the ingest route")
	} else {
		logger.Warn("JWT_SECRET is empty, the ingest route accepts unauthenticated requests")
	}
	components.LogHandler.SetupLogRoutes(api, guards...) // POST /api/v1/logs
}

package handlers

import (
	"errors"

	mw "go-adxlog/internal/middleware"
	"go-adxlog/internal/models"
	"go-adxlog/internal/pkg/validation"
	"go-adxlog/internal/services"
	"go-adxlog/internal/target"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// LogHandler accepts log batches over HTTP and relays them to ADX.
type LogHandler struct {
	relayService services.RelayService
}

func NewLogHandler(relayService services.RelayService) *LogHandler {
	return &LogHandler{relayService: relayService}
}

// Ingest handles POST /logs requests.
func (h *LogHandler) Ingest(c *fiber.Ctx) error {
	var req models.LogBatchRequest
	fileLogger := mw.GetRequestFileLogger(c)
	adxLogger := mw.GetRequestADXLogger(c)

	if !validation.ParseAndValidate(c, &req) {
		fileLogger.Warn("Log batch validation failed or bad request body")
		return nil
	}

	accepted, err := h.relayService.Relay(c.UserContext(), fileLogger, adxLogger, req.Events)
	if err != nil {
		if errors.Is(err, target.ErrClosed) {
			fileLogger.Warn("Log batch rejected, ADX target is shutting down", zap.Int("accepted", accepted))
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error":    "ADX target is shutting down",
				"accepted": accepted,
			})
		}
		fileLogger.Error("Failed to relay log batch", zap.Int("accepted", accepted), zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error":    "Failed to relay log batch",
			"accepted": accepted,
		})
	}

	fileLogger.Info("Log batch accepted", zap.Int("accepted", accepted), zap.Int("received", len(req.Events)))
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{
		"accepted": accepted,
		"skipped":  len(req.Events) - accepted,
	})
}

// SetupLogRoutes registers the ingest route. Extra handlers (auth) run first.
func (h *LogHandler) SetupLogRoutes(router fiber.Router, guards ...fiber.Handler) {
	handlers := append(guards, h.Ingest)
	router.Post("/logs", handlers...)
}

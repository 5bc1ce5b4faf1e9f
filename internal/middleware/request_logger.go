package middleware

import (
	"go-adxlog/internal/logging"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RequestLoggers injects request-scoped file and ADX loggers into c.Locals().
// Both carry a "request_id" field. An incoming X-Request-ID is reused so
// relayed events can be correlated with the caller's own logs.
func RequestLoggers(baseFileLogger, baseADXLogger *zap.Logger) fiber.Handler {
	if baseFileLogger == nil {
		baseFileLogger = zap.NewNop()
	}
	if baseADXLogger == nil {
		baseADXLogger = zap.NewNop()
	}

	return func(c *fiber.Ctx) error {
		requestID := c.Get(RequestIDHeader)
		if _, err := uuid.Parse(requestID); err != nil {
			requestID = uuid.NewString()
		}

		c.Set(RequestIDHeader, requestID)
		c.Locals(RequestIDKey, requestID)

		c.Locals(RequestFileLoggerKey, baseFileLogger.With(zap.String("request_id", requestID)))
		c.Locals(RequestADXLoggerKey, baseADXLogger.With(zap.String("request_id", requestID)))

		return c.Next()
	}
}

// GetRequestFileLogger retrieves the request-scoped file/console logger from fiber.Ctx.Locals.
// Falls back to the global file logger if not found.
func GetRequestFileLogger(c *fiber.Ctx) *zap.Logger {
	if logger, ok := c.Locals(RequestFileLoggerKey).(*zap.Logger); ok && logger != nil {
		return logger
	}
	return logging.GetFileLogger()
}

// GetRequestADXLogger retrieves the request-scoped ADX logger from fiber.Ctx.Locals.
// Falls back to the global ADX logger (which might be Nop).
func GetRequestADXLogger(c *fiber.Ctx) *zap.Logger {
	if logger, ok := c.Locals(RequestADXLoggerKey).(*zap.Logger); ok && logger != nil {
		return logger
	}
	return logging.GetADXLogger()
}

// GetRequestID retrieves the request ID string from fiber.Ctx.Locals.
// Returns an empty string if not found.
func GetRequestID(c *fiber.Ctx) string {
	if reqID, ok := c.Locals(RequestIDKey).(string); ok {
		return reqID
	}
	return ""
}

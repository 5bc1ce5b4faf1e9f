package middleware

import (
	"strings"

	"go-adxlog/internal/utils"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Protected returns a Fiber middleware function that checks for a valid JWT.
// The request-scoped logger is taken from the context.
func Protected(jwtSecret string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		logger := GetRequestFileLogger(c)

		authHeader := c.Get(AuthorizationHeader)
		if authHeader == "" {
			logger.Warn("Missing Authorization header")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing authorization header",
			})
		}

		if !strings.HasPrefix(authHeader, BearerPrefix) {
			logger.Warn("Invalid Authorization header format")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid authorization format (Bearer token required)",
			})
		}

		tokenString := strings.TrimPrefix(authHeader, BearerPrefix)
		if tokenString == "" {
			logger.Warn("Empty token string after Bearer prefix")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Missing token",
			})
		}

		claims, err := utils.ValidateToken(tokenString, jwtSecret)
		if err != nil {
			logger.Warn("Invalid JWT token", zap.Error(err))
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		c.Locals(SubjectKey, claims.Subject)
		logger.Debug("JWT validated successfully", zap.String("subject", claims.Subject))

		return c.Next()
	}
}

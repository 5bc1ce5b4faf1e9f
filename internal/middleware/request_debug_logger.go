package middleware

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const maxBodyLogSize = 1024

var hiddenHeaders = map[string]bool{
	"Authorization": true,
	"Cookie":        true,
	"X-Api-Key":     true,
}

var sensitiveFieldPattern = regexp.MustCompile(`(?i)("(?:password|secret|token|applicationKey|apiKey)"\s*:\s*")[^"]*(")`)

// RequestDebugLogger logs headers and a truncated body of each request, then
// status, latency and the response body, when the file logger is at Debug.
func RequestDebugLogger() fiber.Handler {
	return func(c *fiber.Ctx) error {
		logger := GetRequestFileLogger(c)
		if !logger.Core().Enabled(zapcore.DebugLevel) {
			return c.Next()
		}

		startTime := time.Now()
		headers := make(map[string]string)
		c.Request().Header.VisitAll(func(key, value []byte) {
			k := string(key)
			if hiddenHeaders[k] {
				headers[k] = "*** HIDDEN ***"
				return
			}
			headers[k] = string(value)
		})

		logger.Debug("Incoming Request Details",
			zap.String("method", c.Method()),
			zap.String("path", c.Path()),
			zap.String("ip", c.IP()),
			zap.Any("headers", headers),
			zap.String("body", describeBody(c.BodyRaw(), string(c.Request().Header.ContentType()))),
		)

		err := c.Next()

		logger.Debug("Request Handled",
			zap.Int("status", c.Response().StatusCode()),
			zap.Duration("latency", time.Since(startTime)),
			zap.String("response_body", describeBody(c.Response().Body(), string(c.Response().Header.ContentType()))),
		)
		return err
	}
}

func describeBody(body []byte, contentType string) string {
	if len(body) == 0 {
		return "(Empty Body)"
	}
	if !isTextual(contentType) {
		return fmt.Sprintf("(Binary or non-text body, size: %d bytes)", len(body))
	}
	text := string(body)
	if len(body) > maxBodyLogSize {
		text = string(body[:maxBodyLogSize]) + "... (truncated)"
	}
	return sanitizeSensitiveData(text)
}

func isTextual(contentType string) bool {
	for _, t := range []string{"json", "xml", "text", "form"} {
		if strings.Contains(contentType, t) {
			return true
		}
	}
	return false
}

// sanitizeSensitiveData masks credential-like JSON string values.
func sanitizeSensitiveData(body string) string {
	return sensitiveFieldPattern.ReplaceAllString(body, `$1***$2`)
}

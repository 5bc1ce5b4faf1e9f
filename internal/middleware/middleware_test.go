package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRequestLoggers_ScopesRequestID(t *testing.T) {
	fileCore, fileLogs := observer.New(zapcore.DebugLevel)
	adxCore, adxLogs := observer.New(zapcore.DebugLevel)

	app := fiber.New()
	app.Use(RequestLoggers(zap.New(fileCore), zap.New(adxCore)))
	app.Get("/", func(c *fiber.Ctx) error {
		GetRequestFileLogger(c).Info("file")
		GetRequestADXLogger(c).Info("adx")
		return c.SendString(GetRequestID(c))
	})

	incoming := uuid.NewString()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, incoming)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, incoming, resp.Header.Get(RequestIDHeader))
	assert.Equal(t, incoming, fileLogs.All()[0].ContextMap()["request_id"])
	assert.Equal(t, incoming, adxLogs.All()[0].ContextMap()["request_id"])

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, "not-a-uuid")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	_, err = uuid.Parse(resp.Header.Get(RequestIDHeader))
	assert.NoError(t, err)
}

func TestSanitizeSensitiveData(t *testing.T) {
	in := `{"message":"ok","applicationKey":"abc","Password" : "p@ss","token":"t"}`
	out := sanitizeSensitiveData(in)
	assert.Equal(t, `{"message":"ok","applicationKey":"***","Password" : "***","token":"***"}`, out)
}

func TestDescribeBody(t *testing.T) {
	assert.Equal(t, "(Empty Body)", describeBody(nil, "application/json"))
	assert.Equal(t, "(Binary or non-text body, size: 3 bytes)", describeBody([]byte{1, 2, 3}, "application/octet-stream"))

	long := make([]byte, maxBodyLogSize+10)
	for i := range long {
		long[i] = 'a'
	}
	assert.Len(t, describeBody(long, "text/plain"), maxBodyLogSize+len("... (truncated)"))
}

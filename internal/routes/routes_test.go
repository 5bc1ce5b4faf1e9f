package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"go-adxlog/internal/bootstrap"
	"go-adxlog/internal/config"
	"go-adxlog/internal/ingest"
	"go-adxlog/internal/logging"
	"go-adxlog/internal/target"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type nopClient struct{}

func (nopClient) IngestFromStream(_ context.Context, r io.Reader, _ ingest.Properties, _ ingest.StreamOptions) error {
	_, _ = io.Copy(io.Discard, r)
	return nil
}
func (nopClient) Mode() config.IngestionMode { return config.IngestionQueued }
func (nopClient) Close() error              { return nil }

func newApp(t *testing.T, cfg *config.Config) (*fiber.App, *bootstrap.AppComponents) {
	t.Helper()
	loggers, err := logging.InitializeLoggers(cfg, zapcore.AddSync(&bytes.Buffer{}))
	require.NoError(t, err)
	components, err := bootstrap.InitializeAppComponents(cfg, loggers, nil,
		target.WithClientFactory(func(*config.Options) (ingest.Client, error) { return nopClient{}, nil }))
	require.NoError(t, err)

	app := fiber.New()
	SetupRoutes(app, cfg, zap.NewNop(), components)
	return app, components
}

func baseConfig() *config.Config {
	return &config.Config{
		LogLevel:    "info",
		ADXLogLevel: "info",
		ADX: config.TargetProperties{
			Database:             "Logs",
			TableName:            "AppLogs",
			IngestionEndpointURI: "https://ingest-mycluster.kusto.windows.net",
		},
	}
}

func TestHealth(t *testing.T) {
	app, components := newApp(t, baseConfig())

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	var body struct {
		Status       string `json:"status"`
		Dependencies struct {
			ADX        target.Status `json:"adx"`
			DeadLetter string        `json:"deadLetter"`
		} `json:"dependencies"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "healthy", body.Status)
	assert.Equal(t, "queued", body.Dependencies.ADX.Mode)
	assert.Equal(t, "AppLogs", body.Dependencies.ADX.Table)
	assert.Equal(t, "disabled", body.Dependencies.DeadLetter)

	require.NoError(t, components.Target.Close())
	resp, err = app.Test(httptest.NewRequest(http.MethodGet, "/health", nil), -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "degraded", body.Status)
}

func TestIngestRouteGuardedWhenSecretSet(t *testing.T) {
	cfg := baseConfig()
	cfg.JWTSecret = "route-test-secret-0123456789"
	app, _ := newApp(t, cfg)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/logs", bytes.NewBufferString(`{"events":[{"message":"m"}]}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
}

func TestIngestRouteOpenWithoutSecret(t *testing.T) {
	app, _ := newApp(t, baseConfig())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/logs", bytes.NewBufferString(`{"events":[{"message":"m"}]}`))
	req.Header.Set("Content-Type", "application/json")
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, fiber.StatusAccepted, resp.StatusCode)
}

package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"go-adxlog/internal/config"
	"go-adxlog/internal/ingest"
	mw "go-adxlog/internal/middleware"
	"go-adxlog/internal/services"
	"go-adxlog/internal/target"
	"go-adxlog/internal/utils"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type countingClient struct {
	mu    sync.Mutex
	count int
}

func (c *countingClient) IngestFromStream(_ context.Context, r io.Reader, _ ingest.Properties, _ ingest.StreamOptions) error {
	_, _ = io.Copy(io.Discard, r)
	c.mu.Lock()
	defer c.mu.Unlock()
	c.count++
	return nil
}

func (c *countingClient) Mode() config.IngestionMode { return config.IngestionQueued }
func (c *countingClient) Close() error              { return nil }

func (c *countingClient) submitted() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.count
}

const testSecret = "relay-test-secret-0123456789"

func newTestApp(t *testing.T, guards ...fiber.Handler) (*fiber.App, *target.Target, *countingClient) {
	t.Helper()
	client := &countingClient{}
	tg, err := target.New(config.TargetProperties{
		Database:             "Logs",
		TableName:            "AppLogs",
		IngestionEndpointURI: "https://ingest-mycluster.kusto.windows.net",
	}, target.WithClientFactory(func(*config.Options) (ingest.Client, error) { return client, nil }))
	require.NoError(t, err)

	adx := zap.New(target.NewCore(tg, zapcore.InfoLevel))
	app := fiber.New()
	app.Use(mw.RequestLoggers(zap.NewNop(), adx))
	NewLogHandler(services.NewRelayService()).SetupLogRoutes(app.Group("/api/v1"), guards...)
	return app, tg, client
}

func post(t *testing.T, app *fiber.App, body, token string) (int, map[string]interface{}) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/logs", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set(mw.AuthorizationHeader, mw.BearerPrefix+token)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]interface{}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestIngest_Accepted(t *testing.T) {
	app, tg, client := newTestApp(t)

	status, body := post(t, app, `{"events":[
		{"level":"info","message":"user signed in","fields":{"user":"u-1"}},
		{"level":"debug","message":"below threshold"},
		{"level":"error","message":"payment failed","exception":"card declined","timestamp":"2024-05-06T07:08:09Z"}
	]}`, "")

	assert.Equal(t, fiber.StatusAccepted, status)
	assert.Equal(t, float64(2), body["accepted"])
	assert.Equal(t, float64(1), body["skipped"])

	require.NoError(t, tg.Flush(context.Background()))
	assert.Equal(t, 2, client.submitted())
}

func TestIngest_ValidationFailures(t *testing.T) {
	app, _, client := newTestApp(t)

	status, body := post(t, app, `{"events":[]}`, "")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Validation failed", body["error"])

	status, _ = post(t, app, `{"events":[{"level":"loud","message":"x"}]}`, "")
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, _ = post(t, app, `{"events":[{"level":"info"}]}`, "")
	assert.Equal(t, fiber.StatusBadRequest, status)

	status, body = post(t, app, `not json`, "")
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Equal(t, "Invalid request body", body["error"])

	assert.Zero(t, client.submitted())
}

func TestIngest_TargetClosed(t *testing.T) {
	app, tg, _ := newTestApp(t)
	require.NoError(t, tg.Close())

	status, body := post(t, app, `{"events":[{"message":"late"}]}`, "")
	assert.Equal(t, fiber.StatusServiceUnavailable, status)
	assert.Equal(t, float64(0), body["accepted"])
}

func TestIngest_RequiresBearerToken(t *testing.T) {
	app, _, _ := newTestApp(t, mw.Protected(testSecret))

	status, body := post(t, app, `{"events":[{"message":"m"}]}`, "")
	assert.Equal(t, fiber.StatusUnauthorized, status)
	assert.Equal(t, "Missing authorization header", body["error"])

	status, _ = post(t, app, `{"events":[{"message":"m"}]}`, "garbage")
	assert.Equal(t, fiber.StatusUnauthorized, status)

	token, err := utils.GenerateToken("billing-api", testSecret, time.Minute)
	require.NoError(t, err)
	status, body = post(t, app, `{"events":[{"message":"m"}]}`, token)
	assert.Equal(t, fiber.StatusAccepted, status)
	assert.Equal(t, float64(1), body["accepted"])
}

package services

import (
	"context"
	"testing"
	"time"

	"go-adxlog/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("")
	require.NoError(t, err)
	assert.Equal(t, zapcore.InfoLevel, lvl)

	lvl, err = ParseLevel("WARN")
	require.NoError(t, err)
	assert.Equal(t, zapcore.WarnLevel, lvl)

	_, err = ParseLevel("verbose")
	assert.Error(t, err)
}

func TestRelay_WritesEntries(t *testing.T) {
	core, logs := observer.New(zapcore.InfoLevel)
	adx := zap.New(core).With(zap.String("request_id", "r-1"))
	ts := time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC)

	n, err := NewRelayService().Relay(context.Background(), zap.NewNop(), adx, []models.RelayEvent{
		{Level: "debug", Message: "skipped"},
		{Level: "error", Message: "payment failed", Timestamp: &ts, Exception: "card declined", Logger: "billing",
			Fields: map[string]interface{}{"orderId": "o-9", "amount": 12.5}},
		{Message: "default level"},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)

	got := logs.All()[0]
	assert.Equal(t, zapcore.ErrorLevel, got.Level)
	assert.Equal(t, ts, got.Time)
	assert.Equal(t, "billing", got.LoggerName)
	ctx := got.ContextMap()
	assert.Equal(t, "card declined", ctx["error"])
	assert.Equal(t, "o-9", ctx["orderId"])
	assert.Equal(t, 12.5, ctx["amount"])
	assert.Equal(t, "r-1", ctx["request_id"])

	assert.Equal(t, zapcore.InfoLevel, entries[1].Level)
	assert.Equal(t, "default level", entries[1].Message)
}

func TestRelay_FatalDoesNotExit(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	n, err := NewRelayService().Relay(context.Background(), zap.NewNop(), zap.New(core), []models.RelayEvent{{Level: "fatal", Message: "disk gone"}})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, zapcore.FatalLevel, logs.All()[0].Level)
}

func TestRelay_UnknownLevel(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	n, err := NewRelayService().Relay(context.Background(), zap.NewNop(), zap.New(core), []models.RelayEvent{
		{Message: "ok"},
		{Level: "loud", Message: "bad"},
	})
	assert.ErrorContains(t, err, "event 1")
	assert.Equal(t, 1, n)
	assert.Equal(t, 1, logs.Len())
}

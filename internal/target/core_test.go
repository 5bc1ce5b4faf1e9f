package target

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestCore_WritesThroughZap(t *testing.T) {
	tg, f := newTestTarget(t, validProps())
	logger := zap.New(NewCore(tg, zapcore.InfoLevel)).Named("orders").With(zap.String("service", "billing"))

	logger.Debug("dropped")
	logger.Info("order placed", zap.Int("id", 42))
	require.NoError(t, logger.Sync())

	subs := f.client.snapshot()
	require.Len(t, subs, 1)

	var doc Document
	require.NoError(t, json.Unmarshal(decompress(t, subs[0].payload), &doc))
	assert.Equal(t, "Info", doc.Level)
	assert.Equal(t, "order placed", doc.Message)
	assert.Contains(t, doc.FormattedMessage, "orders")
	assert.Equal(t, map[string]interface{}{"service": "billing", "id": float64(42)}, doc.Properties)
}

func TestCore_WithDoesNotLeakFields(t *testing.T) {
	tg, f := newTestTarget(t, validProps())
	base := zap.New(NewCore(tg, zapcore.DebugLevel))
	_ = base.With(zap.String("scope", "child"))

	base.Info("plain")
	require.NoError(t, base.Sync())

	subs := f.client.snapshot()
	require.Len(t, subs, 1)
	var doc Document
	require.NoError(t, json.Unmarshal(decompress(t, subs[0].payload), &doc))
	assert.Nil(t, doc.Properties)
}

func TestCore_TeesWithOtherCores(t *testing.T) {
	tg, f := newTestTarget(t, validProps())
	obsCore, logs := observer.New(zapcore.DebugLevel)
	logger := zap.New(zapcore.NewTee(obsCore, NewCore(tg, zapcore.WarnLevel)))

	logger.Info("local only")
	logger.Warn("both")
	require.NoError(t, tg.Flush(context.Background()))

	assert.Equal(t, 2, logs.Len())
	assert.Len(t, f.client.snapshot(), 1)
}

func TestCore_ClosedTargetReportsError(t *testing.T) {
	tg, _ := newTestTarget(t, validProps())
	require.NoError(t, tg.Close())

	c := NewCore(tg, zapcore.InfoLevel)
	err := c.Write(zapcore.Entry{Level: zapcore.InfoLevel, Message: "late"}, nil)
	assert.ErrorIs(t, err, ErrClosed)
}

package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go-adxlog/internal/models"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// RelayService forwards posted events to Azure Data Explorer.
type RelayService interface {
	// Relay writes events through adxLogger and returns how many were
	// accepted; events below the ADX level are skipped. fileLogger carries
	// the service's own diagnostics.
	Relay(ctx context.Context, fileLogger, adxLogger *zap.Logger, events []models.RelayEvent) (int, error)
}

type relayServiceImpl struct{}

func NewRelayService() RelayService {
	return &relayServiceImpl{}
}

// ParseLevel maps a posted level name onto zap. Empty means info.
func ParseLevel(name string) (zapcore.Level, error) {
	if name == "" {
		return zapcore.InfoLevel, nil
	}
	var lvl zapcore.Level
	if err := lvl.UnmarshalText([]byte(strings.ToLower(name))); err != nil {
		return zapcore.InfoLevel, fmt.Errorf("unknown level %q: %w", name, err)
	}
	return lvl, nil
}

// Relay writes to the logger's core directly so the posted timestamp becomes
// the entry time. Fatal events are recorded without exiting the process.
func (s *relayServiceImpl) Relay(ctx context.Context, fileLogger, adxLogger *zap.Logger, events []models.RelayEvent) (int, error) {
	core := adxLogger.Core()
	accepted := 0
	for i, ev := range events {
		if err := ctx.Err(); err != nil {
			return accepted, err
		}

		lvl, err := ParseLevel(ev.Level)
		if err != nil {
			return accepted, fmt.Errorf("event %d: %w", i, err)
		}
		if !core.Enabled(lvl) {
			fileLogger.Debug("Relay event below ADX level, skipped", zap.Int("index", i), zap.String("level", lvl.String()))
			continue
		}

		ent := zapcore.Entry{
			Level:      lvl,
			Time:       time.Now(),
			LoggerName: ev.Logger,
			Message:    ev.Message,
		}
		if ev.Timestamp != nil {
			ent.Time = *ev.Timestamp
		}

		if err := core.Write(ent, eventFields(ev)); err != nil {
			fileLogger.Error("Failed to relay event to ADX", zap.Int("index", i), zap.Error(err))
			return accepted, fmt.Errorf("event %d: %w", i, err)
		}
		accepted++
	}

	fileLogger.Debug("Relayed events to ADX", zap.Int("accepted", accepted), zap.Int("received", len(events)))
	return accepted, nil
}

// eventFields orders custom fields by key so the rendered line is stable.
func eventFields(ev models.RelayEvent) []zapcore.Field {
	fields := make([]zapcore.Field, 0, len(ev.Fields)+1)
	if ev.Exception != "" {
		fields = append(fields, zap.Error(errors.New(ev.Exception)))
	}
	keys := make([]string, 0, len(ev.Fields))
	for k := range ev.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fields = append(fields, zap.Any(k, ev.Fields[k]))
	}
	return fields
}

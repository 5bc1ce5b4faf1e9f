// Package target forwards log entries to Azure Data Explorer. Each entry is
// rendered, serialized to one gzip-compressed JSON document and handed to a
// Kusto ingest client without waiting for the service to acknowledge it.
package target

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go-adxlog/internal/config"
	"go-adxlog/internal/ingest"

	"github.com/google/uuid"
	"github.com/valyala/bytebufferpool"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ErrClosed is returned by writes against a closed target.
var ErrClosed = errors.New("adx target is closed")

// Option customizes a Target at construction.
type Option func(*settings)

type settings struct {
	factory       ingest.Factory
	layout        zapcore.Encoder
	pool          *bytebufferpool.Pool
	faults        []FaultHandler
	logger        *zap.Logger
	submitTimeout time.Duration
}

// WithClientFactory replaces the Kusto client constructor.
func WithClientFactory(f ingest.Factory) Option {
	return func(s *settings) { s.factory = f }
}

// WithLayout sets the encoder that renders FormattedMessage.
func WithLayout(enc zapcore.Encoder) Option {
	return func(s *settings) { s.layout = enc }
}

// WithBufferPool shares a payload buffer pool between targets.
func WithBufferPool(p *bytebufferpool.Pool) Option {
	return func(s *settings) { s.pool = p }
}

// WithFaultHandler registers a handler for failed asynchronous submissions.
// It may be given more than once.
func WithFaultHandler(h FaultHandler) Option {
	return func(s *settings) { s.faults = append(s.faults, h) }
}

// WithLogger sets the logger used for the target's own diagnostics. It must
// not route back into the target.
func WithLogger(l *zap.Logger) Option {
	return func(s *settings) { s.logger = l }
}

// WithSubmitTimeout bounds each submission. Zero means no bound.
func WithSubmitTimeout(d time.Duration) Option {
	return func(s *settings) { s.submitTimeout = d }
}

// DefaultLayout renders "time level logger message fields" on one line.
func DefaultLayout() zapcore.Encoder {
	cfg := zap.NewProductionEncoderConfig()
	cfg.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.EncodeLevel = zapcore.CapitalLevelEncoder
	cfg.CallerKey = zapcore.OmitKey
	cfg.StacktraceKey = zapcore.OmitKey
	return zapcore.NewConsoleEncoder(cfg)
}

// Status is a point-in-time view of a target.
type Status struct {
	Mode     string `json:"mode"`
	Database string `json:"database"`
	Table    string `json:"table"`
	Mapping  string `json:"mapping"`
	InFlight int    `json:"inFlight"`
	Closed   bool   `json:"closed"`
}

// Target owns exactly one ingest client for its whole lifetime.
type Target struct {
	client  ingest.Client
	props   ingest.Properties
	layout  zapcore.Encoder
	encoder *Encoder
	faults  []FaultHandler
	logger  *zap.Logger
	timeout time.Duration

	mu       sync.RWMutex
	closed   bool
	inflight *inflight

	// base parents every asynchronous submission; abort cancels it when a
	// bounded close runs out of time.
	base  context.Context
	abort context.CancelFunc
}

// New binds props, resolves the column mapping and builds the ingest client.
// Nothing is constructed when a property is missing or malformed.
func New(props config.TargetProperties, options ...Option) (*Target, error) {
	s := settings{factory: ingest.NewClient}
	for _, o := range options {
		o(&s)
	}
	if s.layout == nil {
		s.layout = DefaultLayout()
	}
	if s.logger == nil {
		s.logger = zap.NewNop()
	}

	opts, err := props.Bind()
	if err != nil {
		return nil, fmt.Errorf("initialize adx target: %w", err)
	}
	mapping := ingest.BuildMapping(opts)

	client, err := s.factory(opts)
	if err != nil {
		return nil, fmt.Errorf("initialize adx target: %w", err)
	}

	base, abort := context.WithCancel(context.Background())
	t := &Target{
		base:   base,
		abort:  abort,
		client: client,
		props: ingest.Properties{
			Database:         opts.Database,
			Table:            opts.TableName,
			Format:           ingest.MultiJSON,
			Mapping:          mapping,
			FlushImmediately: opts.FlushImmediately,
		},
		layout:   s.layout,
		encoder:  NewEncoder(s.pool),
		faults:   s.faults,
		logger:   s.logger,
		timeout:  s.submitTimeout,
		inflight: newInflight(),
	}

	t.logger.Info("ADX target initialized",
		zap.String("database", opts.Database),
		zap.String("table", opts.TableName),
		zap.Stringer("ingestionMode", client.Mode()),
		zap.Stringer("authMode", opts.AuthMode),
		zap.String("mapping", describeMapping(mapping)),
	)
	return t, nil
}

func describeMapping(m ingest.Mapping) string {
	if m.IsReference() {
		return "ref:" + m.Reference
	}
	return fmt.Sprintf("inline:%d columns", len(m.Columns))
}

// Write renders and submits one entry. It returns once the payload is handed
// to a background submission; service failures reach the fault handlers.
func (t *Target) Write(ent zapcore.Entry, fields []zapcore.Field) error {
	t.mu.RLock()
	if t.closed {
		t.mu.RUnlock()
		return ErrClosed
	}
	ticket := t.inflight.add()
	t.mu.RUnlock()

	formatted, err := t.render(ent, fields)
	if err != nil {
		t.inflight.done(ticket)
		return err
	}
	buf, err := t.encoder.Encode(NewDocument(ent, fields, formatted))
	if err != nil {
		t.inflight.done(ticket)
		return err
	}

	go t.submit(ticket, buf, uuid.New())
	return nil
}

func (t *Target) render(ent zapcore.Entry, fields []zapcore.Field) (string, error) {
	line, err := t.layout.EncodeEntry(ent, fields)
	if err != nil {
		return "", fmt.Errorf("render entry: %w", err)
	}
	defer line.Free()
	return strings.TrimRight(line.String(), "\r\n"), nil
}

func (t *Target) submit(ticket uint64, buf *bytebufferpool.ByteBuffer, sourceID uuid.UUID) {
	defer t.inflight.done(ticket)
	defer t.encoder.Release(buf)

	ctx, cancel := t.submitContext(t.base)
	defer cancel()

	err := t.client.IngestFromStream(ctx, bytes.NewReader(buf.B), t.props, ingest.StreamOptions{
		SourceID:    sourceID,
		Compression: ingest.CompressionGZip,
	})
	if err != nil {
		t.fault(Fault{
			SourceID: sourceID,
			Database: t.props.Database,
			Table:    t.props.Table,
			Payload:  append([]byte(nil), buf.B...),
			Err:      err,
			Time:     time.Now().UTC(),
		})
	}
}

func (t *Target) submitContext(parent context.Context) (context.Context, context.CancelFunc) {
	if t.timeout > 0 {
		return context.WithTimeout(parent, t.timeout)
	}
	return context.WithCancel(parent)
}

func (t *Target) fault(f Fault) {
	t.logger.Error("ADX submission failed",
		zap.Stringer("sourceId", f.SourceID),
		zap.String("database", f.Database),
		zap.String("table", f.Table),
		zap.Int("payloadBytes", len(f.Payload)),
		zap.Error(f.Err),
	)
	for _, h := range t.faults {
		t.runHandler(h, f)
	}
}

func (t *Target) runHandler(h FaultHandler, f Fault) {
	defer func() {
		if r := recover(); r != nil {
			t.logger.Error("ADX fault handler panicked", zap.Any("panic", r), zap.Stringer("sourceId", f.SourceID))
		}
	}()
	h(f)
}

// Resubmit sends an already encoded gzip payload and waits for the result.
func (t *Target) Resubmit(ctx context.Context, sourceID uuid.UUID, payload []byte) error {
	t.mu.RLock()
	if t.closed {
		t.mu.RUnlock()
		return ErrClosed
	}
	ticket := t.inflight.add()
	t.mu.RUnlock()
	defer t.inflight.done(ticket)

	ctx, cancel := t.submitContext(ctx)
	defer cancel()

	return t.client.IngestFromStream(ctx, bytes.NewReader(payload), t.props, ingest.StreamOptions{
		SourceID:    sourceID,
		Compression: ingest.CompressionGZip,
	})
}

// Flush waits for submissions started before the call to finish. Writes
// arriving while it waits are not waited for.
func (t *Target) Flush(ctx context.Context) error {
	for _, ch := range t.inflight.snapshot() {
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

// Close stops accepting writes, waits for running submissions and releases
// the client. Later calls do nothing.
func (t *Target) Close() error {
	return t.CloseContext(context.Background())
}

// CloseContext is Close with a bounded drain. When ctx ends first, running
// submissions are cancelled and awaited before the client is released.
func (t *Target) CloseContext(ctx context.Context) error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true
	t.mu.Unlock()
	defer t.abort()

	if err := t.Flush(ctx); err != nil {
		t.logger.Warn("ADX drain interrupted, cancelling running submissions",
			zap.Int("inFlight", t.inflight.count()), zap.Error(err))
		t.abort()
		_ = t.Flush(context.Background())
	}
	if err := t.client.Close(); err != nil {
		t.logger.Warn("Closing ADX ingest client failed", zap.Error(err))
		return fmt.Errorf("close adx target: %w", err)
	}
	t.logger.Info("ADX target closed", zap.String("table", t.props.Table))
	return nil
}

func (t *Target) Status() Status {
	t.mu.RLock()
	closed := t.closed
	t.mu.RUnlock()
	return Status{
		Mode:     t.client.Mode().String(),
		Database: t.props.Database,
		Table:    t.props.Table,
		Mapping:  describeMapping(t.props.Mapping),
		InFlight: t.inflight.count(),
		Closed:   closed,
	}
}

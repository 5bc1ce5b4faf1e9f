package logging

import (
	"context"
	"errors"
	"sync"
	"time"

	"go-adxlog/internal/models"
	"go-adxlog/internal/repositories"
	"go-adxlog/internal/target"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	storeTimeout    = 5 * time.Second
	shutdownTimeout = 30 * time.Second
)

// Resubmitter sends an already encoded payload again. *target.Target
// satisfies it.
type Resubmitter interface {
	Resubmit(ctx context.Context, sourceID uuid.UUID, payload []byte) error
}

// ProcessorOptions tune the replay loop.
type ProcessorOptions struct {
	Interval    time.Duration
	BatchSize   int
	MaxAttempts int
}

// DeadLetterFaultHandler stores failed submissions so the processor can
// replay them later.
func DeadLetterFaultHandler(repo repositories.DeadLetterRepository, logger *zap.Logger) target.FaultHandler {
	return func(f target.Fault) {
		ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
		defer cancel()

		id, err := repo.Insert(ctx, models.DeadLetter{
			SourceID:  f.SourceID.String(),
			Database:  f.Database,
			TableName: f.Table,
			Payload:   f.Payload,
			LastError: errorText(f.Err),
			CreatedAt: f.Time,
		})
		if err != nil {
			logger.Error("CRITICAL: Failed to store dead letter, submission is lost",
				zap.Stringer("source_id", f.SourceID), zap.Error(err))
			return
		}
		logger.Warn("Stored failed ADX submission as dead letter",
			zap.Int64("id", id), zap.Stringer("source_id", f.SourceID))
	}
}

func errorText(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// DeadLetterProcessor periodically replays dead letters through the target.
type DeadLetterProcessor struct {
	opts      ProcessorOptions
	repo      repositories.DeadLetterRepository
	target    Resubmitter
	logger    *zap.Logger
	ticker    *time.Ticker
	stopChan  chan struct{}
	done      chan struct{}
	mu        sync.Mutex
	isRunning bool
}

// NewDeadLetterProcessor creates a new DeadLetterProcessor instance.
func NewDeadLetterProcessor(opts ProcessorOptions, repo repositories.DeadLetterRepository, t Resubmitter, logger *zap.Logger) *DeadLetterProcessor {
	return &DeadLetterProcessor{
		opts:   opts,
		repo:   repo,
		target: t,
		logger: logger,
	}
}

// Start begins the replay loop in a separate goroutine.
func (p *DeadLetterProcessor) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.isRunning {
		p.logger.Warn("Dead-letter processor already running")
		return
	}
	p.ticker = time.NewTicker(p.opts.Interval)
	p.stopChan = make(chan struct{})
	p.done = make(chan struct{})
	p.isRunning = true
	go p.run()
	p.logger.Info("Dead-letter processor started",
		zap.Duration("interval", p.opts.Interval),
		zap.Int("batch_size", p.opts.BatchSize),
		zap.Int("max_attempts", p.opts.MaxAttempts),
	)
}

// Stop ends the loop and runs one final batch. It must be called before the
// target is closed.
func (p *DeadLetterProcessor) Stop() {
	p.mu.Lock()
	if !p.isRunning {
		p.mu.Unlock()
		p.logger.Warn("Dead-letter processor not running")
		return
	}
	p.isRunning = false
	close(p.stopChan)
	p.ticker.Stop()
	done := p.done
	p.mu.Unlock()

	<-done
	p.logger.Info("Processing final dead-letter batch before shutdown...")
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	p.ProcessBatch(ctx)
	p.logger.Info("Dead-letter processor stopped.")
}

func (p *DeadLetterProcessor) run() {
	defer close(p.done)
	for {
		select {
		case <-p.ticker.C:
			tickCtx, cancel := context.WithTimeout(context.Background(), p.opts.Interval)
			p.ProcessBatch(tickCtx)
			cancel()
		case <-p.stopChan:
			p.logger.Info("Received stop signal, exiting dead-letter loop.")
			return
		}
	}
}

// ProcessBatch replays one batch. Replayed letters are deleted; failures are
// recorded and letters that reach MaxAttempts are dropped.
func (p *DeadLetterProcessor) ProcessBatch(ctx context.Context) {
	letters, err := p.repo.Fetch(ctx, p.opts.BatchSize)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			p.logger.Info("Context cancelled/timed out during dead-letter fetch.", zap.Error(err))
		} else {
			p.logger.Error("Failed to fetch dead letters", zap.Error(err))
		}
		return
	}
	if len(letters) == 0 {
		p.logger.Debug("No dead letters to replay")
		return
	}

	var (
		replayed []int64
		dropped  []int64
	)
	for _, letter := range letters {
		if ctx.Err() != nil {
			p.logger.Info("Context cancelled during dead-letter replay.", zap.Error(ctx.Err()))
			break
		}

		sourceID, err := uuid.Parse(letter.SourceID)
		if err != nil {
			sourceID = uuid.New()
		}

		err = p.target.Resubmit(ctx, sourceID, letter.Payload)
		if err == nil {
			replayed = append(replayed, letter.ID)
			continue
		}
		if errors.Is(err, target.ErrClosed) {
			p.logger.Warn("ADX target closed, stopping dead-letter replay")
			break
		}

		if letter.Attempts+1 >= p.opts.MaxAttempts {
			p.logger.Error("Dropping dead letter after max attempts",
				zap.Int64("id", letter.ID),
				zap.String("source_id", letter.SourceID),
				zap.Int("attempts", letter.Attempts+1),
				zap.Error(err),
			)
			dropped = append(dropped, letter.ID)
			continue
		}
		if markErr := p.repo.MarkAttempt(ctx, letter.ID, err.Error()); markErr != nil {
			p.logger.Error("Failed to record dead-letter attempt", zap.Int64("id", letter.ID), zap.Error(markErr))
		}
		p.logger.Warn("Dead-letter replay failed", zap.Int64("id", letter.ID), zap.Int("attempts", letter.Attempts+1), zap.Error(err))
	}

	done := append(replayed, dropped...)
	if len(done) == 0 {
		return
	}
	if err := p.repo.DeleteByID(ctx, done); err != nil {
		p.logger.Error("CRITICAL: Failed to delete replayed dead letters. They will be sent again.", zap.Error(err), zap.Int64s("ids", done))
		return
	}
	p.logger.Info("Processed dead-letter batch",
		zap.Int("fetched", len(letters)),
		zap.Int("replayed", len(replayed)),
		zap.Int("dropped", len(dropped)),
	)
}

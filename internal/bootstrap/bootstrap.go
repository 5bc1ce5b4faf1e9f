package bootstrap

import (
	"database/sql"

	"go-adxlog/internal/config"
	"go-adxlog/internal/handlers"
	"go-adxlog/internal/logging"
	"go-adxlog/internal/repositories"
	"go-adxlog/internal/services"
	"go-adxlog/internal/target"
)

// AppComponents holds the initialized components like handlers, processors, and repositories.
type AppComponents struct {
	Target              *target.Target
	LogHandler          *handlers.LogHandler
	DeadLetterRepo      repositories.DeadLetterRepository // nil when the dead-letter store is disabled
	DeadLetterProcessor *logging.DeadLetterProcessor
}

// InitializeAppComponents creates the ADX target and wires the repositories,
// services, handlers and processors around it. deadLetterDB may be nil.
func InitializeAppComponents(cfg *config.Config, appLoggers *logging.AppLoggers, deadLetterDB *sql.DB, opts ...target.Option) (*AppComponents, error) {
	fileLogger := appLoggers.File
	fileLogger.Info("Initializing application components: Repositories, Target, Services, Handlers, Processors...")

	components := &AppComponents{}

	targetOpts := []target.Option{
		target.WithLogger(fileLogger.Named("adx")),
		target.WithLayout(logging.ADXLayout()),
		target.WithSubmitTimeout(cfg.ADXSubmitTimeout),
	}
	if deadLetterDB != nil {
		components.DeadLetterRepo = repositories.NewDeadLetterRepository(deadLetterDB, fileLogger)
		targetOpts = append(targetOpts, target.WithFaultHandler(logging.DeadLetterFaultHandler(components.DeadLetterRepo, fileLogger)))
		fileLogger.Info("Repositories initialized.")
	}

	t, err := target.New(cfg.ADX, append(targetOpts, opts...)...)
	if err != nil {
		return nil, err
	}
	components.Target = t
	appLoggers.AttachADX(cfg, t)

	components.LogHandler = handlers.NewLogHandler(services.NewRelayService())
	fileLogger.Info("Services and handlers initialized.")

	if components.DeadLetterRepo != nil {
		components.DeadLetterProcessor = logging.NewDeadLetterProcessor(logging.ProcessorOptions{
			Interval:    cfg.DeadLetterReplayInterval,
			BatchSize:   cfg.DeadLetterReplayBatch,
			MaxAttempts: cfg.DeadLetterMaxAttempts,
		}, components.DeadLetterRepo, t, fileLogger)
		fileLogger.Info("Processors initialized.")
	}

	fileLogger.Info("Application components initialization complete.")
	return components, nil
}

package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go-adxlog/internal/bootstrap"
	"go-adxlog/internal/config"
	"go-adxlog/internal/database"
	"go-adxlog/internal/logging"
	"go-adxlog/internal/middleware"
	"go-adxlog/internal/routes"
	"go-adxlog/internal/utils"

	"github.com/DeRuina/timberjack"
	"github.com/gofiber/contrib/fiberzap/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Run initializes and starts the relay.
func Run() {
	var deadLetterDB *sql.DB

	initAppStartTime := time.Now()

	// --- 1. Load Configuration ---
	tempConfigLogger, _ := zap.NewProduction(zap.ErrorOutput(zapcore.Lock(os.Stderr)))
	defer tempConfigLogger.Sync()

	cfg, err := config.LoadConfig(tempConfigLogger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// --- 2. Rotating log file ---
	logDir := filepath.Dir(cfg.LogFilePath)
	if logDir != "." && logDir != "/" {
		if err := os.MkdirAll(logDir, 0755); err != nil {
			fmt.Fprintf(os.Stderr, "FATAL: Failed to ensure log directory %s exists: %v\n", logDir, err)
			os.Exit(1)
		}
	}
	timberJackLogger := &timberjack.Logger{
		Filename:         cfg.LogFilePath,
		MaxSize:          cfg.LogMaxSize,
		MaxBackups:       cfg.LogMaxBackups,
		MaxAge:           cfg.LogMaxAge,
		Compress:         cfg.LogCompress,
		LocalTime:        true,
		RotationInterval: time.Duration(cfg.LogRotateInterval) * time.Hour,
	}
	defer timberJackLogger.Close()
	fileSyncer := zapcore.AddSync(timberJackLogger)

	// --- 3. Application loggers ---
	appLoggers, err := logging.InitializeLoggers(cfg, fileSyncer)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to initialize application loggers: %v\n", err)
		os.Exit(1)
	}
	fileLogger := appLoggers.File
	utils.TraceConfigDetails(fileLogger, cfg)

	// --- 4. Dead-letter store ---
	if cfg.DeadLetterEnabled && !fiber.IsChild() {
		deadLetterDB, err = database.InitSQLite(cfg.DeadLetterDBPath, fileLogger)
		if err != nil {
			fileLogger.Error("Dead-letter store unavailable, failed submissions will only be logged", zap.Error(err))
			deadLetterDB = nil
		}
	} else {
		fileLogger.Info("Dead-letter store is disabled by configuration or in a forked child.")
	}

	// --- 5. ADX target and components ---
	components, err := bootstrap.InitializeAppComponents(cfg, appLoggers, deadLetterDB)
	if err != nil {
		fileLogger.Fatal("Failed to initialize ADX target", zap.Error(err))
	}
	logging.SetGlobalLoggers(fileLogger, appLoggers.ADX)
	fileLogger.Info("Global application loggers (file/console and ADX) have been set.")

	// --- 6. Fiber ---
	appFiber := fiber.New(fiber.Config{
		AppName: cfg.AppName,
		Prefork: cfg.Prefork,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			lg := middleware.GetRequestFileLogger(c)
			code := fiber.StatusInternalServerError
			var e *fiber.Error
			if errors.As(err, &e) {
				code = e.Code
			}
			fields := []zap.Field{
				zap.Int("status", code),
				zap.String("path", c.Path()),
				zap.String("method", c.Method()),
				zap.String("ip", c.IP()),
				zap.Error(err),
			}
			if code == fiber.StatusNotFound {
				lg.Warn("Resource not found", fields...)
			} else {
				lg.Error("Generic ErrorHandler", fields...)
			}
			resp := fiber.Map{"error": "An unexpected error occurred"}
			if cfg.AppEnv != "production" {
				resp["detail"] = err.Error()
			}
			return c.Status(code).JSON(resp)
		},
	})

	appFiber.Use(recover.New(recover.Config{
		EnableStackTrace: cfg.LogLevel == "debug",
		StackTraceHandler: func(c *fiber.Ctx, e interface{}) {
			middleware.GetRequestFileLogger(c).Error("Panic recovered", zap.Any("panic_value", e))
		},
	}))
	fileLogger.Info("Configuring CORS", zap.String("origins", cfg.CORSAllowOrigins), zap.String("methods", cfg.CORSAllowMethods), zap.String("headers", cfg.CORSAllowHeaders))
	appFiber.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSAllowOrigins,
		AllowMethods: cfg.CORSAllowMethods,
		AllowHeaders: cfg.CORSAllowHeaders,
	}))
	appFiber.Use(middleware.RequestLoggers(fileLogger, appLoggers.ADX))
	if cfg.LogLevel == "debug" {
		appFiber.Use(middleware.RequestDebugLogger())
	}
	appFiber.Use(fiberzap.New(fiberzap.Config{
		Logger: fileLogger,
		Fields: []string{"status", "method", "url", "ip", "latency", "error"},
		FieldsFunc: func(c *fiber.Ctx) []zap.Field {
			fields := []zap.Field{zap.String("log_type", "access")}
			if reqID := middleware.GetRequestID(c); reqID != "" {
				fields = append(fields, zap.String("request_id", reqID))
			}
			return fields
		},
		Next: func(c *fiber.Ctx) bool {
			return c.Path() == "/health"
		},
	}))

	routes.SetupRoutes(appFiber, cfg, fileLogger, components)

	// --- 7. Dead-letter replay runs in the master process only ---
	if components.DeadLetterProcessor != nil {
		components.DeadLetterProcessor.Start()
	}

	// --- 8. Serve until signalled ---
	serverCtx, cancelServerCtx := context.WithCancel(context.Background())
	defer cancelServerCtx()
	serverStopped := make(chan struct{})

	go func() {
		defer close(serverStopped)
		listenAddr := ":" + cfg.Port
		fileLogger.Info(fmt.Sprintf("Completed initialization application in %d ms.", time.Since(initAppStartTime).Milliseconds()))
		fileLogger.Info("Starting Fiber server...",
			zap.String("address", listenAddr),
			zap.Bool("prefork_enabled", appFiber.Config().Prefork),
			zap.Int("pid", os.Getpid()),
			zap.String("app_env", cfg.AppEnv),
		)
		if err := appFiber.Listen(listenAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			fileLogger.Error("Server listener failed", zap.String("address", listenAddr), zap.Error(err))
			cancelServerCtx()
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGHUP, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)
	select {
	case s := <-sig:
		fileLogger.Info("Shutdown signal received.", zap.String("signal", s.String()))
	case <-serverCtx.Done():
		fileLogger.Info("Server context cancelled, initiating shutdown.")
	}

	// --- 9. Graceful shutdown ---
	fileLogger.Info("Initiating graceful shutdown...")
	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancelShutdown()

	if err := appFiber.ShutdownWithContext(shutdownCtx); err != nil {
		fileLogger.Error("Fiber server shutdown failed", zap.Error(err))
	} else {
		fileLogger.Info("Fiber server gracefully stopped.")
	}
	<-serverStopped

	// The processor resubmits through the target, so it stops first.
	if components.DeadLetterProcessor != nil {
		components.DeadLetterProcessor.Stop()
	}

	// Drains pending ADX submissions within the shutdown deadline; what is
	// still running after that is cancelled and dead-lettered.
	if err := components.Target.CloseContext(shutdownCtx); err != nil {
		fileLogger.Error("Error closing ADX target.", zap.Error(err))
	}

	if errSync := fileLogger.Sync(); errSync != nil {
		errMsg := errSync.Error()
		if !strings.Contains(errMsg, "handle is invalid") && !strings.Contains(errMsg, "sync /dev/stdout") {
			fmt.Fprintf(os.Stderr, "[WARN] Error syncing file/console logger: %v\n", errSync)
		}
	}

	if deadLetterDB != nil {
		if errClose := deadLetterDB.Close(); errClose != nil {
			fmt.Fprintf(os.Stderr, "[ERROR] Error closing dead-letter database: %v\n", errClose)
		} else {
			fmt.Println("[INFO] Dead-letter database connection closed.")
		}
	}

	fmt.Println("[INFO] Application shutdown complete.")
}

package logging

import (
	"fmt"
	"os"
	"sync"

	"go-adxlog/internal/config"
	"go-adxlog/internal/target"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	globalFileLogger *zap.Logger
	globalADXLogger  *zap.Logger // Nop until the target is attached
	globalLoggersMu  sync.RWMutex
)

// AppLoggers holds the different logger instances for the application.
type AppLoggers struct {
	File *zap.Logger // console and rotating file; also carries the target's own diagnostics
	ADX  *zap.Logger // forwards to Azure Data Explorer only
}

func customLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	enc.AppendString("[" + level.CapitalString() + "]")
}

func customColorLevelEncoder(level zapcore.Level, enc zapcore.PrimitiveArrayEncoder) {
	var colorPrefix, colorSuffix string
	switch level {
	case zapcore.DebugLevel:
		colorPrefix = "\x1b[35m" // Magenta
		colorSuffix = "\x1b[0m"
	case zapcore.InfoLevel:
		colorPrefix = "\x1b[32m" // Green
		colorSuffix = "\x1b[0m"
	case zapcore.WarnLevel:
		colorPrefix = "\x1b[33m" // Yellow
		colorSuffix = "\x1b[0m"
	case zapcore.ErrorLevel, zapcore.DPanicLevel, zapcore.PanicLevel, zapcore.FatalLevel:
		colorPrefix = "\x1b[31m" // Red
		colorSuffix = "\x1b[0m"
	}
	enc.AppendString(colorPrefix + "[" + level.CapitalString() + "]" + colorSuffix)
}

// CreateFileConsoleEncoderConfigs sets up the encoder configurations.
func CreateFileConsoleEncoderConfigs() (zapcore.EncoderConfig, zapcore.EncoderConfig) {
	consoleEncoderCfg := zap.NewDevelopmentEncoderConfig()
	consoleEncoderCfg.EncodeLevel = customColorLevelEncoder
	consoleEncoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	consoleEncoderCfg.EncodeCaller = zapcore.ShortCallerEncoder

	fileEncoderCfg := zap.NewProductionEncoderConfig()
	fileEncoderCfg.EncodeLevel = customLevelEncoder
	fileEncoderCfg.TimeKey = "timestamp"
	fileEncoderCfg.EncodeTime = zapcore.RFC3339NanoTimeEncoder
	fileEncoderCfg.EncodeCaller = zapcore.ShortCallerEncoder

	return consoleEncoderCfg, fileEncoderCfg
}

// ADXLayout renders FormattedMessage the same way lines appear in the log
// file, minus caller and stack which have their own columns.
func ADXLayout() zapcore.Encoder {
	_, cfg := CreateFileConsoleEncoderConfigs()
	cfg.CallerKey = zapcore.OmitKey
	cfg.StacktraceKey = zapcore.OmitKey
	return zapcore.NewConsoleEncoder(cfg)
}

// InitializeLoggers creates the file/console application logger. The ADX
// logger starts as a no-op and is replaced by AttachADX once the target exists.
func InitializeLoggers(cfg *config.Config, fileSyncer zapcore.WriteSyncer) (*AppLoggers, error) {
	appLoggers := &AppLoggers{ADX: zap.NewNop()}

	var fileLogLevel zapcore.Level
	if err := fileLogLevel.UnmarshalText([]byte(cfg.LogLevel)); err != nil {
		fmt.Fprintf(os.Stderr, "[WARN] Invalid LOG_LEVEL '%s' for file/console logger, defaulting to info: %v\n", cfg.LogLevel, err)
		fileLogLevel = zapcore.InfoLevel
	}

	consoleEncoderCfg, fileEncoderCfg := CreateFileConsoleEncoderConfigs()
	consoleCore := zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEncoderCfg), zapcore.Lock(os.Stdout), fileLogLevel)
	fileOutputCore := zapcore.NewCore(zapcore.NewConsoleEncoder(fileEncoderCfg), fileSyncer, fileLogLevel)

	appLoggers.File = zap.New(zapcore.NewTee(consoleCore, fileOutputCore), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	appLoggers.File.Info("======================================================================================")
	appLoggers.File.Info("File/Console application logger initialized",
		zap.String("environment", cfg.AppEnv),
		zap.String("configuredLevel", cfg.LogLevel),
		zap.String("effectiveLevel", fileLogLevel.String()),
		zap.String("logFile", cfg.LogFilePath),
	)
	return appLoggers, nil
}

// AttachADX builds the ADX logger on top of an initialized target.
func (l *AppLoggers) AttachADX(cfg *config.Config, t *target.Target) {
	var adxLevel zapcore.Level
	if err := adxLevel.UnmarshalText([]byte(cfg.ADXLogLevel)); err != nil {
		l.File.Warn("Invalid ADX_LOG_LEVEL, defaulting to info", zap.String("value", cfg.ADXLogLevel), zap.Error(err))
		adxLevel = zapcore.InfoLevel
	}
	l.ADX = zap.New(target.NewCore(t, adxLevel), zap.AddCaller(), zap.AddStacktrace(zapcore.ErrorLevel))
	l.File.Info("ADX logger initialized", zap.String("effectiveLevel", adxLevel.String()))
}

// SetGlobalLoggers sets the global logger instances.
func SetGlobalLoggers(fileLogger, adxLogger *zap.Logger) {
	globalLoggersMu.Lock()
	defer globalLoggersMu.Unlock()
	globalFileLogger = fileLogger
	if adxLogger != nil {
		globalADXLogger = adxLogger
	} else {
		globalADXLogger = zap.NewNop()
	}
}

// GetFileLogger returns the initialized global file/console logger.
func GetFileLogger() *zap.Logger {
	globalLoggersMu.RLock()
	l := globalFileLogger
	globalLoggersMu.RUnlock()

	if l == nil {
		fallbackLogger, _ := zap.NewProduction()
		fallbackLogger.Warn("Global file/console logger accessed before being set!")
		return fallbackLogger
	}
	return l
}

// GetADXLogger returns the global ADX logger, or a Nop logger before the
// target is attached.
func GetADXLogger() *zap.Logger {
	globalLoggersMu.RLock()
	l := globalADXLogger
	globalLoggersMu.RUnlock()

	if l == nil {
		return zap.NewNop()
	}
	return l
}

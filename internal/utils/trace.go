package utils

import (
	"fmt"

	"go-adxlog/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// TraceConfigDetails logs the loaded configuration at debug level with
// credentials masked. ADX values are logged raw, before ${} rendering.
func TraceConfigDetails(logger *zap.Logger, cfg *config.Config) {
	if logger == nil || cfg == nil {
		fmt.Println("[WARN] logger or config is nil in TraceConfigDetails")
		return
	}
	fields := []zapcore.Field{
		zap.String("AppEnv", cfg.AppEnv),
		zap.String("Port", cfg.Port),
		zap.Bool("Prefork", cfg.Prefork),
		zap.String("JWTSecret", MaskJWTSecret(cfg.JWTSecret)),
		zap.String("LogFilePath", cfg.LogFilePath),
		zap.String("LogLevel", cfg.LogLevel),
		zap.Int("LogRotateIntervalHours", cfg.LogRotateInterval),
		zap.Int("LogMaxSizeMB", cfg.LogMaxSize),
		zap.Int("LogMaxBackups", cfg.LogMaxBackups),
		zap.Int("LogMaxAgeDays", cfg.LogMaxAge),
		zap.Bool("LogCompress", cfg.LogCompress),
		zap.String("CORS_AllowOrigins", cfg.CORSAllowOrigins),
		zap.String("CORS_AllowMethods", cfg.CORSAllowMethods),
		zap.String("CORS_AllowHeaders", cfg.CORSAllowHeaders),
		zap.String("ADX_Database", cfg.ADX.Database),
		zap.String("ADX_TableName", cfg.ADX.TableName),
		zap.String("ADX_IngestionEndpointURI", cfg.ADX.IngestionEndpointURI),
		zap.String("ADX_UseStreamingIngestion", cfg.ADX.UseStreamingIngestion),
		zap.String("ADX_AuthenticationMode", cfg.ADX.AuthenticationMode),
		zap.String("ADX_ApplicationClientID", cfg.ADX.ApplicationClientID),
		zap.String("ADX_ApplicationKey", MaskSecret(cfg.ADX.ApplicationKey)),
		zap.String("ADX_Authority", cfg.ADX.Authority),
		zap.String("ADX_ManagedIdentityClientID", cfg.ADX.ManagedIdentityClientID),
		zap.String("ADX_FlushImmediately", cfg.ADX.FlushImmediately),
		zap.String("ADX_MappingNameRef", cfg.ADX.MappingNameRef),
		zap.Int("ADX_ColumnsMappingBytes", len(cfg.ADX.ColumnsMapping)),
		zap.String("ADX_LogLevel", cfg.ADXLogLevel),
		zap.Duration("ADX_SubmitTimeout", cfg.ADXSubmitTimeout),
		zap.Bool("DeadLetter_Enabled", cfg.DeadLetterEnabled),
		zap.String("DeadLetter_DBPath", cfg.DeadLetterDBPath),
		zap.Duration("DeadLetter_ReplayInterval", cfg.DeadLetterReplayInterval),
		zap.Int("DeadLetter_ReplayBatch", cfg.DeadLetterReplayBatch),
		zap.Int("DeadLetter_MaxAttempts", cfg.DeadLetterMaxAttempts),
	}
	logger.Debug("Loaded application configuration details", fields...)
}

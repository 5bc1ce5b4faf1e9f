package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

// Config holds all configuration for the relay service.
type Config struct {
	AppEnv           string
	AppName          string
	Port             string
	Prefork          bool
	CORSAllowOrigins string
	CORSAllowMethods string
	CORSAllowHeaders string
	JWTSecret        string // empty disables bearer auth on the ingest route

	LogFilePath       string
	LogLevel          string
	LogRotateInterval int // Hour
	LogMaxSize        int // MB
	LogMaxBackups     int
	LogMaxAge         int // Days
	LogCompress       bool

	ADX              TargetProperties
	ADXLogLevel      string
	ADXSubmitTimeout time.Duration

	DeadLetterEnabled        bool
	DeadLetterDBPath         string
	DeadLetterReplayInterval time.Duration
	DeadLetterReplayBatch    int
	DeadLetterMaxAttempts    int
}

var validLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true, "dpanic": true, "panic": true, "fatal": true}

// LoadConfig reads configuration from environment variables or a .env file.
// The ADX properties are kept raw; they are bound when the target initializes.
func LoadConfig(logger *zap.Logger) (*Config, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	appEnv := os.Getenv("APP_ENV")
	if appEnv == "" {
		appEnv = "local"
	}

	envFileName := fmt.Sprintf(".env.%s", appEnv)
	if _, err := os.Stat(envFileName); err == nil {
		if err := godotenv.Load(envFileName); err != nil {
			logger.Warn("Error loading .env file, continuing with environment variables", zap.String("file", envFileName), zap.Error(err))
		} else {
			logger.Info("Loaded configuration", zap.String("file", envFileName))
		}
	} else if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			logger.Warn("Error loading .env file", zap.Error(err))
		}
	} else {
		logger.Debug("No .env file found, relying on environment variables or defaults", zap.String("environment", appEnv))
	}

	cfg := &Config{
		AppEnv:           getEnv("APP_ENV", "local"),
		AppName:          getEnv("APP_NAME", "adxrelay"),
		Port:             getEnv("PORT", "3000"),
		Prefork:          getEnvAsBool("PREFORK", false),
		CORSAllowOrigins: getEnv("CORS_ALLOW_ORIGINS", "*"),
		CORSAllowMethods: getEnv("CORS_ALLOW_METHODS", "GET,POST,HEAD"),
		CORSAllowHeaders: getEnv("CORS_ALLOW_HEADERS", "Origin,Content-Type,Accept,Authorization"),
		JWTSecret:        getEnv("JWT_SECRET", ""),

		LogFilePath:       getEnv("LOG_FILE_PATH", "./logs/adxrelay.log"),
		LogLevel:          strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogRotateInterval: getEnvAsInt("LOG_ROTATE_INTERVAL", 24),
		LogMaxSize:        getEnvAsInt("LOG_MAX_SIZE", 100),
		LogMaxBackups:     getEnvAsInt("LOG_MAX_BACKUPS", 5),
		LogMaxAge:         getEnvAsInt("LOG_MAX_AGE", 30),
		LogCompress:       getEnvAsBool("LOG_COMPRESS", false),

		ADX: TargetProperties{
			Database:                getEnv("ADX_DATABASE", ""),
			TableName:               getEnv("ADX_TABLE_NAME", ""),
			IngestionEndpointURI:    getEnv("ADX_INGESTION_ENDPOINT_URI", ""),
			UseStreamingIngestion:   getEnv("ADX_USE_STREAMING_INGESTION", "false"),
			AuthenticationMode:      getEnv("ADX_AUTHENTICATION_MODE", ""),
			ApplicationClientID:     getEnv("ADX_APPLICATION_CLIENT_ID", ""),
			ApplicationKey:          getEnv("ADX_APPLICATION_KEY", ""),
			Authority:               getEnv("ADX_AUTHORITY", ""),
			ManagedIdentityClientID: getEnv("ADX_MANAGED_IDENTITY_CLIENT_ID", ""),
			FlushImmediately:        getEnv("ADX_FLUSH_IMMEDIATELY", "false"),
			MappingNameRef:          getEnv("ADX_MAPPING_NAME_REF", ""),
			ColumnsMapping:          getEnv("ADX_COLUMNS_MAPPING", ""),
		},
		ADXLogLevel:      strings.ToLower(getEnv("ADX_LOG_LEVEL", "info")),
		ADXSubmitTimeout: time.Duration(getEnvAsInt("ADX_SUBMIT_TIMEOUT_SECONDS", 0)) * time.Second,

		DeadLetterEnabled:        getEnvAsBool("DEADLETTER_ENABLED", true),
		DeadLetterDBPath:         getEnv("DEADLETTER_DB_PATH", "./data/deadletter.db"),
		DeadLetterReplayInterval: time.Duration(getEnvAsInt("DEADLETTER_REPLAY_INTERVAL_SECONDS", 60)) * time.Second,
		DeadLetterReplayBatch:    getEnvAsInt("DEADLETTER_REPLAY_BATCH_SIZE", 100),
		DeadLetterMaxAttempts:    getEnvAsInt("DEADLETTER_MAX_ATTEMPTS", 5),
	}

	if !validLevels[cfg.LogLevel] {
		logger.Warn("Invalid LOG_LEVEL specified, defaulting to 'info'", zap.String("invalidLevel", cfg.LogLevel))
		cfg.LogLevel = "info"
	}
	if !validLevels[cfg.ADXLogLevel] {
		logger.Warn("Invalid ADX_LOG_LEVEL specified, defaulting to 'info'", zap.String("invalidLevel", cfg.ADXLogLevel))
		cfg.ADXLogLevel = "info"
	}
	if cfg.DeadLetterReplayInterval <= 0 {
		return nil, fmt.Errorf("DEADLETTER_REPLAY_INTERVAL_SECONDS must be positive")
	}
	if cfg.DeadLetterReplayBatch <= 0 {
		return nil, fmt.Errorf("DEADLETTER_REPLAY_BATCH_SIZE must be positive")
	}
	if cfg.DeadLetterMaxAttempts <= 0 {
		return nil, fmt.Errorf("DEADLETTER_MAX_ATTEMPTS must be positive")
	}
	if cfg.AppEnv == "production" && (cfg.CORSAllowOrigins == "*" || cfg.CORSAllowOrigins == "") {
		logger.Warn("CORS_ALLOW_ORIGINS is '*' or empty in production. Set specific origins.")
	}
	if cfg.AppEnv == "production" && cfg.JWTSecret == "" {
		logger.Warn("JWT_SECRET is empty in production; the ingest route is unauthenticated.")
	}

	return cfg, nil
}

// Helper function to get env var or default
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

// Helper function to get env var as int or default
func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

// Helper function to get env var as bool or default
func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return fallback
}

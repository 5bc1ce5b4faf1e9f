package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite Driver
	"go.uber.org/zap"
)

const createDeadLetterTableSQL = `
CREATE TABLE IF NOT EXISTS tbl_dead_letter (
id INTEGER PRIMARY KEY AUTOINCREMENT,
source_id TEXT NOT NULL,
database_name TEXT NOT NULL,
table_name TEXT NOT NULL,
payload BLOB NOT NULL, -- gzip multijson exactly as submitted
last_error TEXT,
attempts INTEGER NOT NULL DEFAULT 0,
created_at DATETIME NOT NULL,
last_attempt DATETIME NOT NULL
);
`

// InitSQLite opens the dead-letter store at path and ensures tbl_dead_letter
// exists. The parent directory is created when missing.
func InitSQLite(path string, logger *zap.Logger) (*sql.DB, error) {
	logger.Info("Initializing dead-letter store...", zap.String("requested_path", path))

	dbDir := filepath.Dir(path)
	if dbDir != "." && dbDir != "/" {
		if _, err := os.Stat(dbDir); os.IsNotExist(err) {
			logger.Info("Dead-letter directory does not exist, creating...", zap.String("path", dbDir))
			if err := os.MkdirAll(dbDir, 0755); err != nil {
				logger.Error("Failed to create dead-letter directory", zap.String("path", dbDir), zap.Error(err))
				return nil, fmt.Errorf("failed to create sqlite db directory %s: %w", dbDir, err)
			}
		} else if err != nil {
			logger.Error("Failed to check status of dead-letter directory", zap.String("path", dbDir), zap.Error(err))
			return nil, fmt.Errorf("failed to check status of sqlite db directory %s: %w", dbDir, err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		logger.Error("Failed to open SQLite database", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("failed to open sqlite database at %s: %w", path, err)
	}

	// Writes come from submission goroutines and the replay loop; one
	// connection serializes them.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		logger.Error("Failed to ping SQLite database after open", zap.Error(err))
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	if _, err := db.Exec(createDeadLetterTableSQL); err != nil {
		db.Close()
		logger.Error("Failed to create tbl_dead_letter in SQLite", zap.Error(err))
		return nil, fmt.Errorf("failed to create sqlite table tbl_dead_letter: %w", err)
	}

	logger.Info("Dead-letter store initialized", zap.String("path", path))
	return db, nil
}

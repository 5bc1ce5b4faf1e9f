package repositories

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go-adxlog/internal/models"

	"go.uber.org/zap"
)

// DeadLetterRepository stores ADX submissions that failed asynchronously.
type DeadLetterRepository interface {
	Insert(ctx context.Context, letter models.DeadLetter) (int64, error)
	Fetch(ctx context.Context, limit int) ([]models.DeadLetter, error)
	DeleteByID(ctx context.Context, ids []int64) error
	MarkAttempt(ctx context.Context, id int64, lastErr string) error
	Count(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
}

type deadLetterRepositoryImpl struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDeadLetterRepository creates a DeadLetterRepository over an initialized
// SQLite handle.
func NewDeadLetterRepository(db *sql.DB, logger *zap.Logger) DeadLetterRepository {
	if logger == nil {
		fallbackLogger, _ := zap.NewDevelopment()
		logger = fallbackLogger
		logger.Warn("NewDeadLetterRepository received nil logger, using fallback.")
	}
	return &deadLetterRepositoryImpl{db: db, logger: logger}
}

func (r *deadLetterRepositoryImpl) Insert(ctx context.Context, letter models.DeadLetter) (int64, error) {
	now := time.Now().UTC()
	if letter.CreatedAt.IsZero() {
		letter.CreatedAt = now
	}
	if letter.LastAttempt.IsZero() {
		letter.LastAttempt = letter.CreatedAt
	}
	if letter.Attempts == 0 {
		letter.Attempts = 1
	}

	query := `INSERT INTO tbl_dead_letter (source_id, database_name, table_name, payload, last_error, attempts, created_at, last_attempt)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := r.db.ExecContext(ctx, query,
		letter.SourceID, letter.Database, letter.TableName, letter.Payload,
		letter.LastError, letter.Attempts, letter.CreatedAt, letter.LastAttempt)
	if err != nil {
		r.logger.Error("Failed to insert dead letter", zap.String("source_id", letter.SourceID), zap.Error(err))
		return 0, fmt.Errorf("sqlite insert failed: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("sqlite last insert id: %w", err)
	}
	return id, nil
}

// Fetch returns up to limit letters, oldest first.
func (r *deadLetterRepositoryImpl) Fetch(ctx context.Context, limit int) ([]models.DeadLetter, error) {
	query := `SELECT id, source_id, database_name, table_name, payload, last_error, attempts, created_at, last_attempt
FROM tbl_dead_letter ORDER BY id ASC LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		r.logger.Error("Failed to query dead letters", zap.Error(err))
		return nil, fmt.Errorf("sqlite query failed: %w", err)
	}
	defer rows.Close()

	var letters []models.DeadLetter
	for rows.Next() {
		var (
			letter  models.DeadLetter
			lastErr sql.NullString
		)
		if err := rows.Scan(&letter.ID, &letter.SourceID, &letter.Database, &letter.TableName, &letter.Payload,
			&lastErr, &letter.Attempts, &letter.CreatedAt, &letter.LastAttempt); err != nil {
			r.logger.Error("Failed to scan dead letter row", zap.Error(err))
			continue
		}
		letter.LastError = lastErr.String
		letters = append(letters, letter)
	}
	if err = rows.Err(); err != nil {
		r.logger.Error("Error during iteration over dead letter rows", zap.Error(err))
		return nil, fmt.Errorf("sqlite row iteration error: %w", err)
	}
	return letters, nil
}

func (r *deadLetterRepositoryImpl) DeleteByID(ctx context.Context, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	placeholders := make([]string, len(ids))
	args := make([]interface{}, len(ids))
	for i, id := range ids {
		placeholders[i] = "?"
		args[i] = id
	}
	query := fmt.Sprintf(`DELETE FROM tbl_dead_letter WHERE id IN (%s)`, strings.Join(placeholders, ","))
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to delete dead letters", zap.Error(err))
		return fmt.Errorf("sqlite delete failed: %w", err)
	}
	rowsAffected, _ := result.RowsAffected()
	r.logger.Debug("Deleted dead letters", zap.Int64("rows_affected", rowsAffected), zap.Int("id_count", len(ids)))
	return nil
}

// MarkAttempt records one more failed replay.
func (r *deadLetterRepositoryImpl) MarkAttempt(ctx context.Context, id int64, lastErr string) error {
	query := `UPDATE tbl_dead_letter SET attempts = attempts + 1, last_error = ?, last_attempt = ? WHERE id = ?`
	if _, err := r.db.ExecContext(ctx, query, lastErr, time.Now().UTC(), id); err != nil {
		r.logger.Error("Failed to record dead letter attempt", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("sqlite update failed: %w", err)
	}
	return nil
}

func (r *deadLetterRepositoryImpl) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tbl_dead_letter`).Scan(&n); err != nil {
		return 0, fmt.Errorf("sqlite count failed: %w", err)
	}
	return n, nil
}

func (r *deadLetterRepositoryImpl) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/irfndi/electricity-price-prediction/internal/models"
	"github.com/irfndi/electricity-price-prediction/internal/utils"
	"github.com/sirupsen/logrus"

	_ "modernc.org/sqlite"
)

// SQLite types: INTEGER for int64 and unix nanoseconds, REAL for float64.
const (
	sqliteCreateTableSQL = `
		CREATE TABLE IF NOT EXISTS prediction_records (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			hour INTEGER NOT NULL CHECK (hour BETWEEN 0 AND 23),
			load REAL NOT NULL,
			temperature REAL NOT NULL,
			weekend INTEGER NOT NULL DEFAULT 0,
			holiday INTEGER NOT NULL DEFAULT 0,
			predicted_price REAL NOT NULL,
			created_at INTEGER NOT NULL
		)`

	sqliteCreateIndexSQL = `
		CREATE INDEX IF NOT EXISTS idx_prediction_records_recent
		ON prediction_records (created_at DESC, id DESC)`

	sqliteInsertSQL = `
		INSERT INTO prediction_records (hour, load, temperature, weekend, holiday, predicted_price, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`

	sqliteListRecentSQL = `
		SELECT id, hour, load, temperature, weekend, holiday, predicted_price, created_at
		FROM prediction_records
		ORDER BY created_at DESC, id DESC
		LIMIT ?`
)

// SQLiteStore persists prediction records in a SQLite file. It backs local
// development and the storage scenarios in tests.
type SQLiteStore struct {
	DB  *sql.DB
	now func() time.Time
}

// NewSQLiteStore opens (or creates) the database at path. Use ":memory:" for a
// throwaway store; in that case the pool is pinned to one connection so every
// query sees the same database.
func NewSQLiteStore(ctx context.Context, path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	if path == ":memory:" {
		db.SetMaxOpenConns(1)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping sqlite database: %w", err)
	}

	// PRAGMA optimizations
	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		logrus.WithError(err).Warn("Failed to set WAL mode")
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout = 5000;"); err != nil {
		logrus.WithError(err).Warn("Failed to set busy timeout")
	}

	logrus.WithField("path", path).Info("Successfully opened SQLite database")

	return &SQLiteStore{DB: db, now: time.Now}, nil
}

// WithClock replaces the timestamp source used by Insert.
func (s *SQLiteStore) WithClock(now func() time.Time) *SQLiteStore {
	s.now = now
	return s
}

// EnsureSchema creates the prediction table and its recency index when missing.
func (s *SQLiteStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.DB.ExecContext(ctx, sqliteCreateTableSQL); err != nil {
		return fmt.Errorf("%w: failed to create prediction_records: %w", utils.ErrStorage, err)
	}
	if _, err := s.DB.ExecContext(ctx, sqliteCreateIndexSQL); err != nil {
		return fmt.Errorf("%w: failed to create prediction_records index: %w", utils.ErrStorage, err)
	}
	return nil
}

// Insert stores a new record, assigning ID and CreatedAt.
func (s *SQLiteStore) Insert(ctx context.Context, record *models.PredictionRecord) (*models.PredictionRecord, error) {
	createdAt := s.now().UTC()

	res, err := s.DB.ExecContext(ctx, sqliteInsertSQL,
		record.Hour,
		record.Load,
		record.Temperature,
		record.Weekend,
		record.Holiday,
		record.PredictedPrice,
		createdAt.UnixNano(),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to insert prediction: %w", utils.ErrStorage, err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read inserted id: %w", utils.ErrStorage, err)
	}

	stored := *record
	stored.ID = id
	stored.CreatedAt = createdAt
	return &stored, nil
}

// ListRecent returns at most limit records, newest first. A non-positive limit
// falls back to models.DefaultRecentLimit. The result is never nil.
func (s *SQLiteStore) ListRecent(ctx context.Context, limit int) ([]models.PredictionRecord, error) {
	if limit <= 0 {
		limit = models.DefaultRecentLimit
	}

	rows, err := s.DB.QueryContext(ctx, sqliteListRecentSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query predictions: %w", utils.ErrStorage, err)
	}
	defer func() { _ = rows.Close() }()

	records := make([]models.PredictionRecord, 0, limit)
	for rows.Next() {
		var (
			rec       models.PredictionRecord
			createdAt int64
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.Hour,
			&rec.Load,
			&rec.Temperature,
			&rec.Weekend,
			&rec.Holiday,
			&rec.PredictedPrice,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("%w: failed to scan prediction: %w", utils.ErrStorage, err)
		}
		rec.CreatedAt = time.Unix(0, createdAt).UTC()
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to iterate predictions: %w", utils.ErrStorage, err)
	}

	return records, nil
}

// HealthCheck pings the database.
func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	if s.DB == nil {
		return ErrNotConnected
	}
	return s.DB.PingContext(ctx)
}

// Close releases the database handle.
func (s *SQLiteStore) Close() {
	if s.DB != nil {
		if err := s.DB.Close(); err != nil {
			logrus.WithError(err).Warn("Error closing SQLite database")
			return
		}
		logrus.Info("SQLite database closed")
	}
}

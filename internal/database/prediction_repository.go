package database

import (
	"context"
	"fmt"

	"github.com/irfndi/electricity-price-prediction/internal/models"
	"github.com/irfndi/electricity-price-prediction/internal/utils"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DatabasePool defines the interface for database pool operations.
// This interface allows for both real pool and mock pool implementations.
type DatabasePool interface {
	// QueryRow executes a query that is expected to return at most one row.
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	// Exec executes a query without returning any rows.
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	// Query executes a query that returns rows.
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
}

const (
	createPredictionTableSQL = `
		CREATE TABLE IF NOT EXISTS prediction_records (
			id BIGSERIAL PRIMARY KEY,
			hour INTEGER NOT NULL CHECK (hour BETWEEN 0 AND 23),
			load DOUBLE PRECISION NOT NULL,
			temperature DOUBLE PRECISION NOT NULL,
			weekend BOOLEAN NOT NULL DEFAULT FALSE,
			holiday BOOLEAN NOT NULL DEFAULT FALSE,
			predicted_price DOUBLE PRECISION NOT NULL,
			created_at TIMESTAMPTZ NOT NULL DEFAULT clock_timestamp()
		)`

	createPredictionIndexSQL = `
		CREATE INDEX IF NOT EXISTS idx_prediction_records_recent
		ON prediction_records (created_at DESC, id DESC)`

	insertPredictionSQL = `
		INSERT INTO prediction_records (hour, load, temperature, weekend, holiday, predicted_price)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`

	listRecentPredictionsSQL = `
		SELECT id, hour, load, temperature, weekend, holiday, predicted_price, created_at
		FROM prediction_records
		ORDER BY created_at DESC, id DESC
		LIMIT $1`
)

// PredictionRepository handles PostgreSQL persistence of prediction records.
type PredictionRepository struct {
	pool DatabasePool
}

// NewPredictionRepository creates a new prediction repository.
//
// Parameters:
//
//	pool: The database connection pool.
//
// Returns:
//
//	*PredictionRepository: The initialized repository.
func NewPredictionRepository(pool DatabasePool) *PredictionRepository {
	return &PredictionRepository{
		pool: pool,
	}
}

// EnsureSchema creates the prediction table and its recency index when missing.
func (r *PredictionRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.pool.Exec(ctx, createPredictionTableSQL); err != nil {
		return fmt.Errorf("%w: failed to create prediction_records: %w", utils.ErrStorage, err)
	}
	if _, err := r.pool.Exec(ctx, createPredictionIndexSQL); err != nil {
		return fmt.Errorf("%w: failed to create prediction_records index: %w", utils.ErrStorage, err)
	}
	return nil
}

// Insert stores a new record. ID and CreatedAt are assigned by the database and
// any values already set on record are ignored.
//
// Parameters:
//
//	ctx: Context.
//	record: Record to store.
//
// Returns:
//
//	*models.PredictionRecord: The stored record with ID and CreatedAt populated.
//	error: Wraps utils.ErrStorage on failure.
func (r *PredictionRepository) Insert(ctx context.Context, record *models.PredictionRecord) (*models.PredictionRecord, error) {
	stored := *record

	err := r.pool.QueryRow(ctx, insertPredictionSQL,
		record.Hour,
		record.Load,
		record.Temperature,
		record.Weekend,
		record.Holiday,
		record.PredictedPrice,
	).Scan(&stored.ID, &stored.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to insert prediction: %w", utils.ErrStorage, err)
	}

	return &stored, nil
}

// ListRecent returns at most limit records, newest first. A non-positive limit
// falls back to models.DefaultRecentLimit. The result is never nil.
//
// Parameters:
//
//	ctx: Context.
//	limit: Maximum number of rows.
//
// Returns:
//
//	[]models.PredictionRecord: Records ordered by created_at then id, both descending.
//	error: Wraps utils.ErrStorage on failure.
func (r *PredictionRepository) ListRecent(ctx context.Context, limit int) ([]models.PredictionRecord, error) {
	if limit <= 0 {
		limit = models.DefaultRecentLimit
	}

	rows, err := r.pool.Query(ctx, listRecentPredictionsSQL, limit)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to query predictions: %w", utils.ErrStorage, err)
	}
	defer rows.Close()

	records := make([]models.PredictionRecord, 0, limit)
	for rows.Next() {
		var rec models.PredictionRecord
		if err := rows.Scan(
			&rec.ID,
			&rec.Hour,
			&rec.Load,
			&rec.Temperature,
			&rec.Weekend,
			&rec.Holiday,
			&rec.PredictedPrice,
			&rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("%w: failed to scan prediction: %w", utils.ErrStorage, err)
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: failed to iterate predictions: %w", utils.ErrStorage, err)
	}

	return records, nil
}

package database

import (
	"context"
	"strings"
	"time"

	"github.com/irfndi/electricity-price-prediction/internal/logging"
	"github.com/irfndi/electricity-price-prediction/internal/telemetry"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// TracedDB wraps a DatabasePool, opening a client span per statement and
// logging its duration.
type TracedDB struct {
	Pool   DatabasePool
	logger *logging.StandardLogger
	table  string
}

// NewTracedDB creates a new traced database connection. A nil logger disables
// the per-statement debug log.
func NewTracedDB(pool DatabasePool, table string, logger *logging.StandardLogger) *TracedDB {
	return &TracedDB{
		Pool:   pool,
		logger: logger,
		table:  table,
	}
}

// Query executes a query
func (db *TracedDB) Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error) {
	ctx, span := db.startSpan(ctx, sql)
	defer span.End()

	start := time.Now()
	rows, err := db.Pool.Query(ctx, sql, args...)
	db.finish(span, sql, start, -1, err)
	return rows, err
}

// QueryRow executes a query that returns a single row. pgx defers query
// errors to Scan, so the span stays open until the row is scanned.
func (db *TracedDB) QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row {
	ctx, span := db.startSpan(ctx, sql)

	start := time.Now()
	return &tracedRow{
		row: db.Pool.QueryRow(ctx, sql, args...),
		done: func(err error) {
			var rows int64 = 1
			if err != nil {
				rows = 0
			}
			db.finish(span, sql, start, rows, err)
			span.End()
		},
	}
}

// tracedRow ends the statement span once the caller scans the row.
type tracedRow struct {
	row  pgx.Row
	done func(err error)
}

func (r *tracedRow) Scan(dest ...any) error {
	err := r.row.Scan(dest...)
	r.done(err)
	return err
}

// Exec executes a query without returning rows
func (db *TracedDB) Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error) {
	ctx, span := db.startSpan(ctx, sql)
	defer span.End()

	start := time.Now()
	tag, err := db.Pool.Exec(ctx, sql, args...)
	db.finish(span, sql, start, tag.RowsAffected(), err)
	return tag, err
}

func (db *TracedDB) startSpan(ctx context.Context, sql string) (context.Context, trace.Span) {
	op := operationName(sql)
	return telemetry.Tracer().Start(ctx, "db."+op,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("db.system", "postgresql"),
			attribute.String("db.operation", op),
			attribute.String("db.sql.table", db.table),
		),
	)
}

func (db *TracedDB) finish(span trace.Span, sql string, start time.Time, rowsAffected int64, err error) {
	duration := time.Since(start)
	if rowsAffected >= 0 {
		span.SetAttributes(attribute.Int64("db.rows_affected", rowsAffected))
	}
	if err != nil {
		RecordDatabaseError(span, err)
	}
	if db.logger != nil {
		db.logger.LogDatabaseOperation(operationName(sql), db.table, duration.Milliseconds(), rowsAffected)
	}
}

// RecordDatabaseError marks the span as failed.
func RecordDatabaseError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

// operationName returns the leading SQL verb in lower case, e.g. "insert".
func operationName(sql string) string {
	fields := strings.Fields(sql)
	if len(fields) == 0 {
		return "unknown"
	}
	return strings.ToLower(fields[0])
}

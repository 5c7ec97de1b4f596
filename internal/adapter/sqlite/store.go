// Package sqlite stores ingested measurements and serves them back to the
// interpolation engine as pull-based point streams.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/couchcryptid/sensor-idw-service/internal/domain"
	"github.com/couchcryptid/sensor-idw-service/internal/pipeline"
)

const schema = `
CREATE TABLE IF NOT EXISTS measurements (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	sensor_id   TEXT    NOT NULL,
	phenomenon  TEXT    NOT NULL,
	exposure    TEXT    NOT NULL DEFAULT '',
	value       REAL    NOT NULL,
	lat         REAL    NOT NULL,
	lng         REAL    NOT NULL,
	created_at  INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_measurements_phenomenon_time
	ON measurements (phenomenon, created_at);
`

// Store is a SQLite-backed measurement store. It implements
// pipeline.BatchLoader for ingest.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Open opens (or creates) the database at path and applies the schema.
// ":memory:" gives a private in-memory database.
func Open(ctx context.Context, path string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}

	if path == ":memory:" {
		// Every connection would get its own empty database.
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("enable WAL: %w", err)
		}
		if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set busy timeout: %w", err)
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}

	logger.Info("measurement store opened", "path", path)
	return &Store{db: db, logger: logger}, nil
}

// CheckReadiness pings the database.
func (s *Store) CheckReadiness(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// InsertBatch writes measurements in a single transaction.
func (s *Store) InsertBatch(ctx context.Context, batch []domain.Measurement) (err error) {
	if len(batch) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				s.logger.Warn("rollback failed", "error", rbErr)
			}
		}
	}()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO measurements
		(sensor_id, phenomenon, exposure, value, lat, lng, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, m := range batch {
		if _, err = stmt.ExecContext(ctx, m.SensorID, m.Phenomenon, m.Exposure,
			m.Value, m.Lat, m.Lng, m.CreatedAt.UnixMilli()); err != nil {
			return fmt.Errorf("insert measurement %s: %w", m.SensorID, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// Stats counts distinct sensor boxes, all stored measurements and the
// measurements created within the minute before now.
func (s *Store) Stats(ctx context.Context) (domain.DatabaseStats, error) {
	now := domain.Now()
	var st domain.DatabaseStats
	err := s.db.QueryRowContext(ctx, `SELECT
			COUNT(DISTINCT sensor_id),
			COUNT(*),
			COALESCE(SUM(CASE WHEN created_at > ? AND created_at < ? THEN 1 ELSE 0 END), 0)
		FROM measurements`,
		now.Add(-time.Minute).UnixMilli(), now.UnixMilli(),
	).Scan(&st.Boxes, &st.Measurements, &st.MeasurementsLastMinute)
	if err != nil {
		return domain.DatabaseStats{}, fmt.Errorf("query stats: %w", err)
	}
	return st, nil
}

// Stream returns a cursor over the measurements matching q in insertion
// order. The caller must Close it.
func (s *Store) Stream(ctx context.Context, q domain.MeasurementQuery) (pipeline.PointSource, error) {
	query, args := buildQuery(q)
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query measurements: %w", err)
	}
	return &cursor{rows: rows}, nil
}

// Opener binds q to an OpenFunc for the interpolator.
func (s *Store) Opener(q domain.MeasurementQuery) pipeline.OpenFunc {
	return func(ctx context.Context) (pipeline.PointSource, error) {
		return s.Stream(ctx, q)
	}
}

func buildQuery(q domain.MeasurementQuery) (string, []any) {
	var sb strings.Builder
	sb.WriteString(`SELECT sensor_id, value, lat, lng FROM measurements
		WHERE phenomenon = ?
		AND created_at >= ? AND created_at <= ?
		AND lat >= ? AND lat <= ? AND lng >= ? AND lng <= ?`)
	args := []any{
		q.Phenomenon,
		q.From.UnixMilli(), q.To.UnixMilli(),
		q.Region.South, q.Region.North, q.Region.West, q.Region.East,
	}
	if q.Exposure != "" {
		sb.WriteString(" AND exposure = ?")
		args = append(args, q.Exposure)
	}
	sb.WriteString(" ORDER BY id")
	return sb.String(), args
}

// cursor pulls one row per Next call.
type cursor struct {
	rows *sql.Rows
}

func (c *cursor) Next(ctx context.Context) (domain.MeasurementPoint, error) {
	if err := ctx.Err(); err != nil {
		return domain.MeasurementPoint{}, err
	}
	if !c.rows.Next() {
		if err := c.rows.Err(); err != nil {
			return domain.MeasurementPoint{}, fmt.Errorf("iterate measurements: %w", err)
		}
		return domain.MeasurementPoint{}, io.EOF
	}
	var p domain.MeasurementPoint
	if err := c.rows.Scan(&p.SensorID, &p.Value, &p.Lat, &p.Lng); err != nil {
		return domain.MeasurementPoint{}, fmt.Errorf("scan measurement: %w", err)
	}
	return p, nil
}

func (c *cursor) Close() error {
	return c.rows.Close()
}

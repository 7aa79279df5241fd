package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/keyaloding/nasa-space-apps/internal/timeseries"
)

// ErrSeriesNotFound is returned when no series matches the lookup.
var ErrSeriesNotFound = errors.New("series not found")

const schema = `
CREATE TABLE IF NOT EXISTS series (
  id            TEXT    PRIMARY KEY,
  name          TEXT    NOT NULL,
  granularity   TEXT    NOT NULL,
  source_digest TEXT    NOT NULL,
  point_count   INTEGER NOT NULL,
  created_at    TEXT    NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS idx_series_name_granularity ON series(name, granularity);

CREATE TABLE IF NOT EXISTS series_points (
  series_id TEXT    NOT NULL,
  seq       INTEGER NOT NULL,
  date      TEXT    NOT NULL,
  value     REAL    NOT NULL,
  PRIMARY KEY (series_id, seq),
  FOREIGN KEY (series_id) REFERENCES series(id) ON DELETE CASCADE
);
`

// Summary describes a stored series without its points.
type Summary struct {
	ID           string                 `json:"id"`
	Name         string                 `json:"name"`
	Granularity  timeseries.Granularity `json:"granularity"`
	SourceDigest string                 `json:"source_digest"`
	PointCount   int                    `json:"point_count"`
	CreatedAt    time.Time              `json:"created_at"`
}

// Series is a stored aggregation result.
type Series struct {
	Summary
	Points []timeseries.Point `json:"points"`
}

// Store is a SQLite-backed series repository.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// Open opens (creating if needed) the database at path and applies the schema.
// ":memory:" gives a private in-memory database.
func Open(ctx context.Context, path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create store directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	// SQLite serialises writers; one connection also keeps ":memory:" a single database.
	db.SetMaxOpenConns(1)

	for _, stmt := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
		schema,
	} {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			db.Close()
			return nil, fmt.Errorf("init store: %w", err)
		}
	}
	return &Store{db: db, now: time.Now}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SaveSeries stores points for (name, granularity), replacing any previous
// series for that pair. The stored summary is returned.
func (s *Store) SaveSeries(ctx context.Context, name string, g timeseries.Granularity, digest string, points []timeseries.Point) (Summary, error) {
	sum := Summary{
		ID:           uuid.NewString(),
		Name:         name,
		Granularity:  g,
		SourceDigest: digest,
		PointCount:   len(points),
		CreatedAt:    s.now().UTC(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Summary{}, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM series WHERE name = ? AND granularity = ?`, name, string(g)); err != nil {
		return Summary{}, fmt.Errorf("delete previous series: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO series (id, name, granularity, source_digest, point_count, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		sum.ID, sum.Name, string(g), digest, sum.PointCount, sum.CreatedAt.Format(time.RFC3339Nano)); err != nil {
		return Summary{}, fmt.Errorf("insert series: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO series_points (series_id, seq, date, value) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return Summary{}, fmt.Errorf("prepare points: %w", err)
	}
	defer stmt.Close()
	for i, p := range points {
		if _, err := stmt.ExecContext(ctx, sum.ID, i, p.Date, p.Value); err != nil {
			return Summary{}, fmt.Errorf("insert point %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Summary{}, fmt.Errorf("commit: %w", err)
	}
	return sum, nil
}

// GetSeries loads the series for (name, granularity).
func (s *Store) GetSeries(ctx context.Context, name string, g timeseries.Granularity) (*Series, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, name, granularity, source_digest, point_count, created_at
		   FROM series WHERE name = ? AND granularity = ?`, name, string(g))
	sum, err := scanSummary(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s (%s)", ErrSeriesNotFound, name, g)
	}
	if err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT date, value FROM series_points WHERE series_id = ? ORDER BY seq`, sum.ID)
	if err != nil {
		return nil, fmt.Errorf("query points: %w", err)
	}
	defer rows.Close()

	points := make([]timeseries.Point, 0, sum.PointCount)
	for rows.Next() {
		var p timeseries.Point
		if err := rows.Scan(&p.Date, &p.Value); err != nil {
			return nil, fmt.Errorf("scan point: %w", err)
		}
		points = append(points, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate points: %w", err)
	}
	return &Series{Summary: sum, Points: points}, nil
}

// ListSeries returns every stored series ordered by name then granularity.
func (s *Store) ListSeries(ctx context.Context) ([]Summary, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, granularity, source_digest, point_count, created_at
		   FROM series ORDER BY name, granularity`)
	if err != nil {
		return nil, fmt.Errorf("query series: %w", err)
	}
	defer rows.Close()

	out := []Summary{}
	for rows.Next() {
		sum, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSummary(sc scanner) (Summary, error) {
	var (
		sum       Summary
		g         string
		createdAt string
	)
	if err := sc.Scan(&sum.ID, &sum.Name, &g, &sum.SourceDigest, &sum.PointCount, &createdAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Summary{}, err
		}
		return Summary{}, fmt.Errorf("scan series: %w", err)
	}
	sum.Granularity = timeseries.Granularity(g)
	t, err := time.Parse(time.RFC3339Nano, createdAt)
	if err != nil {
		return Summary{}, fmt.Errorf("parse created_at %q: %w", createdAt, err)
	}
	sum.CreatedAt = t
	return sum, nil
}

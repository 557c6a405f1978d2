// Package masters stores the state, district and block master lists served by
// the development backend.
package masters

import (
	"context"
	"database/sql"
	"fmt"
	"net/url"
	"path/filepath"
	"strconv"
	"strings"

	"geoform/internal/domain"
	appErrors "geoform/internal/errors"

	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const schema = `
CREATE TABLE IF NOT EXISTS states (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL,
	short_name TEXT,
	nrega_id   TEXT
);
CREATE TABLE IF NOT EXISTS districts (
	id         INTEGER PRIMARY KEY AUTOINCREMENT,
	name       TEXT NOT NULL,
	short_name TEXT,
	nrega_id   TEXT,
	state_id   INTEGER NOT NULL REFERENCES states(id)
);
CREATE TABLE IF NOT EXISTS blocks (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	name        TEXT NOT NULL,
	short_name  TEXT,
	nrega_id    TEXT,
	state_id    INTEGER NOT NULL REFERENCES states(id),
	district_id INTEGER NOT NULL REFERENCES districts(id)
);
CREATE INDEX IF NOT EXISTS idx_districts_state ON districts(state_id);
CREATE INDEX IF NOT EXISTS idx_blocks_district ON blocks(district_id);
`

// Store reads and seeds the master tables.
type Store struct {
	path string
	db   *sql.DB
}

// Open opens (creating if needed) the database at path and applies the schema.
func Open(ctx context.Context, path string) (*Store, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return nil, appErrors.New(appErrors.CodeConfigurationError, "masters database path is empty", nil)
	}
	db, err := sql.Open("sqlite", buildDSN(trimmed))
	if err != nil {
		return nil, fmt.Errorf("open masters db: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping masters db: %w", err)
	}
	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("apply masters schema: %w", err)
	}
	return &Store{path: trimmed, db: db}, nil
}

// buildDSN creates a read-write WAL DSN for the given path.
func buildDSN(dbPath string) string {
	u := url.URL{
		Scheme: "file",
		Path:   filepath.ToSlash(dbPath),
	}
	q := url.Values{}
	q.Add("_pragma", "journal_mode(WAL)")
	q.Add("_pragma", "busy_timeout(3000)")
	q.Add("_pragma", "foreign_keys(1)")
	u.RawQuery = q.Encode()
	return u.String()
}

// Path returns the database file path.
func (s *Store) Path() string {
	return s.path
}

// Close releases the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// States lists every state ordered by name.
func (s *Store) States(ctx context.Context) ([]domain.Option, error) {
	return s.list(ctx, `SELECT id, name FROM states ORDER BY name, id`)
}

// Districts lists the districts of a state ordered by name.
func (s *Store) Districts(ctx context.Context, stateID int64) ([]domain.Option, error) {
	return s.list(ctx, `SELECT id, name FROM districts WHERE state_id = ? ORDER BY name, id`, stateID)
}

// Blocks lists the blocks of a district ordered by name.
func (s *Store) Blocks(ctx context.Context, districtID int64) ([]domain.Option, error) {
	return s.list(ctx, `SELECT id, name FROM blocks WHERE district_id = ? ORDER BY name, id`, districtID)
}

// Counts reports the number of rows per table.
func (s *Store) Counts(ctx context.Context) (Counts, error) {
	var c Counts
	for _, target := range []struct {
		table string
		dst   *int
	}{
		{"states", &c.States},
		{"districts", &c.Districts},
		{"blocks", &c.Blocks},
	} {
		n, err := s.count(ctx, target.table)
		if err != nil {
			return Counts{}, err
		}
		*target.dst = n
	}
	return c, nil
}

// Counts holds per-table row counts.
type Counts struct {
	States    int
	Districts int
	Blocks    int
}

func (s *Store) count(ctx context.Context, table string) (int, error) {
	var n int
	//nolint:gosec // G202: table names come from a fixed list
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s: %w", table, err)
	}
	return n, nil
}

func (s *Store) list(ctx context.Context, query string, args ...any) ([]domain.Option, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query masters: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	out := []domain.Option{}
	for rows.Next() {
		var (
			id   int64
			name string
		)
		if err := rows.Scan(&id, &name); err != nil {
			return nil, fmt.Errorf("scan master row: %w", err)
		}
		out = append(out, domain.Option{ID: strconv.FormatInt(id, 10), Label: name})
	}
	return out, rows.Err()
}

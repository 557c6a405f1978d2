package masters

import (
	"context"
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// CSV file names expected in the masters directory.
const (
	StatesFile    = "state.csv"
	DistrictsFile = "district.csv"
	BlocksFile    = "block.csv"
)

// SeedReport summarises one Seed run.
type SeedReport struct {
	States    int
	Districts int
	Blocks    int
	Skipped   int
}

// Seed loads the CSV masters from dir. Each table is only populated while it
// is empty and a missing file leaves its table untouched. Districts and blocks
// are linked to their parent by NREGA id; rows whose parent is unknown are
// skipped and logged.
func (s *Store) Seed(ctx context.Context, dir string, logger *slog.Logger) (SeedReport, error) {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	var report SeedReport

	steps := []struct {
		table string
		file  string
		load  func(context.Context, *sql.Tx, []map[string]string, *SeedReport, *slog.Logger) error
	}{
		{"states", StatesFile, seedStates},
		{"districts", DistrictsFile, seedDistricts},
		{"blocks", BlocksFile, seedBlocks},
	}

	for _, step := range steps {
		n, err := s.count(ctx, step.table)
		if err != nil {
			return report, err
		}
		if n > 0 {
			logger.Debug("table already seeded", "table", step.table, "rows", n)
			continue
		}
		records, err := readCSV(filepath.Join(dir, step.file))
		if errors.Is(err, fs.ErrNotExist) {
			logger.Info("masters file missing", "file", step.file)
			continue
		}
		if err != nil {
			return report, err
		}
		if err := s.inTx(ctx, func(tx *sql.Tx) error {
			return step.load(ctx, tx, records, &report, logger)
		}); err != nil {
			return report, fmt.Errorf("seed %s: %w", step.table, err)
		}
	}
	return report, nil
}

func (s *Store) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

func seedStates(ctx context.Context, tx *sql.Tx, rows []map[string]string, r *SeedReport, _ *slog.Logger) error {
	for _, row := range rows {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO states (name, short_name, nrega_id) VALUES (?, ?, ?)`,
			strings.TrimSpace(row["state_name"]), nullable(row["short_name"]), nullable(row["state_id"]),
		); err != nil {
			return err
		}
		r.States++
	}
	return nil
}

func seedDistricts(ctx context.Context, tx *sql.Tx, rows []map[string]string, r *SeedReport, logger *slog.Logger) error {
	for _, row := range rows {
		var stateID int64
		err := tx.QueryRowContext(ctx,
			`SELECT id FROM states WHERE lower(nrega_id) = lower(?) ORDER BY id LIMIT 1`,
			strings.TrimSpace(row["state_id"]),
		).Scan(&stateID)
		if errors.Is(err, sql.ErrNoRows) {
			logger.Warn("skipping district, state not found", "district", row["district_name"], "state_id", row["state_id"])
			r.Skipped++
			continue
		}
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO districts (name, short_name, nrega_id, state_id) VALUES (?, ?, ?, ?)`,
			strings.TrimSpace(row["district_name"]), nullable(row["short_name"]), nullable(row["district_id"]), stateID,
		); err != nil {
			return err
		}
		r.Districts++
	}
	return nil
}

func seedBlocks(ctx context.Context, tx *sql.Tx, rows []map[string]string, r *SeedReport, logger *slog.Logger) error {
	for _, row := range rows {
		var districtID, stateID int64
		err := tx.QueryRowContext(ctx,
			`SELECT id, state_id FROM districts WHERE lower(nrega_id) = lower(?) ORDER BY id LIMIT 1`,
			strings.TrimSpace(row["district_id"]),
		).Scan(&districtID, &stateID)
		if errors.Is(err, sql.ErrNoRows) {
			logger.Warn("skipping block, district not found", "block", row["block_name"], "district_id", row["district_id"])
			r.Skipped++
			continue
		}
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO blocks (name, short_name, nrega_id, state_id, district_id) VALUES (?, ?, ?, ?, ?)`,
			strings.TrimSpace(row["block_name"]), nullable(row["short_name"]), nullable(row["block_id"]), stateID, districtID,
		); err != nil {
			return err
		}
		r.Blocks++
	}
	return nil
}

// readCSV returns the rows of a headed CSV file keyed by column name.
func readCSV(path string) ([]map[string]string, error) {
	//nolint:gosec // G304: masters directory is operator supplied
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = f.Close()
	}()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s header: %w", filepath.Base(path), err)
	}
	for i, h := range header {
		header[i] = strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
	}

	var rows []map[string]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", filepath.Base(path), err)
		}
		row := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(rec) {
				row[h] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func nullable(v string) any {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return v
}

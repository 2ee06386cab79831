// Package store persists cleaned record sets to SQLite. The database is a
// build artifact: each refresh writes a complete new file and renames it
// over the old one, so readers never observe a half-written database.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"plstats/internal/errors"
	"plstats/pkg/contracts/domain"
)

const createTable = `CREATE TABLE lifts (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	sex TEXT NOT NULL,
	equipment TEXT NOT NULL,
	bodyweight_kg REAL NOT NULL,
	weight_class TEXT NOT NULL,
	age_div TEXT NOT NULL,
	age REAL NOT NULL,
	squat_kg REAL NOT NULL,
	bench_kg REAL NOT NULL,
	deadlift_kg REAL NOT NULL,
	total_kg REAL NOT NULL,
	tested TEXT NOT NULL,
	country TEXT,
	state TEXT,
	federation TEXT,
	date TEXT,
	meet_name TEXT,
	year INTEGER
)`

// Single-column indexes cover the common one-dimension filters; the
// composite index covers the standard five-dimension cohort lookup.
var createIndexes = []string{
	`CREATE INDEX idx_lifts_sex ON lifts(sex)`,
	`CREATE INDEX idx_lifts_equipment ON lifts(equipment)`,
	`CREATE INDEX idx_lifts_weight_class ON lifts(weight_class)`,
	`CREATE INDEX idx_lifts_age_div ON lifts(age_div)`,
	`CREATE INDEX idx_lifts_tested ON lifts(tested)`,
	`CREATE INDEX idx_lifts_country ON lifts(country)`,
	`CREATE INDEX idx_lifts_state ON lifts(state)`,
	`CREATE INDEX idx_lifts_year ON lifts(year)`,
	`CREATE INDEX idx_lifts_cohort ON lifts(sex, equipment, weight_class, age_div, tested)`,
}

const insertBatchSize = 10000

// Writer rebuilds the lifts database from a cleaned record set.
type Writer struct {
	logger *slog.Logger
}

// NewWriter creates a Writer. The logger must not be nil.
func NewWriter(logger *slog.Logger) *Writer {
	return &Writer{logger: logger.With(slog.String("component", "store_writer"))}
}

// Write persists records to a fresh database at path, replacing any
// existing file only after the new one is complete.
func (w *Writer) Write(ctx context.Context, path string, records []domain.CanonicalRecord) error {
	start := time.Now()

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create database dir: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.Remove(tmp); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove stale temp database: %w", err)
	}

	if err := w.build(ctx, tmp, records); err != nil {
		os.Remove(tmp)
		return err
	}

	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replace database: %w", err)
	}

	w.logger.InfoContext(ctx, "database written",
		slog.String("path", path),
		slog.Int("records", len(records)),
		slog.Duration("duration", time.Since(start)))
	return nil
}

func (w *Writer) build(ctx context.Context, path string, records []domain.CanonicalRecord) error {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open sqlite: %w", err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, createTable); err != nil {
		return fmt.Errorf("create lifts table: %w", err)
	}

	for offset := 0; offset < len(records); offset += insertBatchSize {
		end := offset + insertBatchSize
		if end > len(records) {
			end = len(records)
		}
		if err := w.insertBatch(ctx, db, records[offset:end]); err != nil {
			return fmt.Errorf("insert batch at %d: %w", offset, err)
		}
	}

	// Indexes built after the bulk load; far cheaper than maintaining them
	// during inserts.
	for _, stmt := range createIndexes {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("create index: %w", err)
		}
	}
	return nil
}

func (w *Writer) insertBatch(ctx context.Context, db *sql.DB, batch []domain.CanonicalRecord) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO lifts (
		sex, equipment, bodyweight_kg, weight_class, age_div, age,
		squat_kg, bench_kg, deadlift_kg, total_kg, tested,
		country, state, federation, date, meet_name, year
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := range batch {
		r := &batch[i]
		if _, err := stmt.ExecContext(ctx,
			string(r.Sex), r.Equipment, r.BodyweightKg, r.WeightClass, r.AgeDiv, r.Age,
			r.SquatKg, r.BenchKg, r.DeadliftKg, r.TotalKg, string(r.Tested),
			nullable(r.Country), nullable(r.State), nullable(r.Federation),
			nullable(r.Date), nullable(r.MeetName), nullableInt(r.Year),
		); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableInt(v int) any {
	if v == 0 {
		return nil
	}
	return v
}

// Reader loads record sets back out of a lifts database.
type Reader struct {
	db     *sql.DB
	path   string
	logger *slog.Logger
}

// OpenReader opens the database at path. A missing file is a
// SourceDataError: the caller decides whether that aborts startup or just
// skips the snapshot load.
func OpenReader(path string, logger *slog.Logger) (*Reader, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, errors.NewSourceDataError(path, err)
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, errors.NewSourceDataError(path, err)
	}
	return &Reader{
		db:     db,
		path:   path,
		logger: logger.With(slog.String("component", "store_reader")),
	}, nil
}

const selectColumns = `sex, equipment, bodyweight_kg, weight_class, age_div, age,
	squat_kg, bench_kg, deadlift_kg, total_kg, tested,
	COALESCE(country, ''), COALESCE(state, ''), COALESCE(federation, ''),
	COALESCE(date, ''), COALESCE(meet_name, ''), COALESCE(year, 0)`

// LoadAll reads every record, in insertion order.
func (r *Reader) LoadAll(ctx context.Context) ([]domain.CanonicalRecord, error) {
	start := time.Now()

	rows, err := r.db.QueryContext(ctx, `SELECT `+selectColumns+` FROM lifts ORDER BY id`)
	if err != nil {
		return nil, errors.NewSourceDataError(r.path, err)
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, errors.NewSourceDataError(r.path, err)
	}

	r.logger.InfoContext(ctx, "database loaded",
		slog.String("path", r.path),
		slog.Int("records", len(records)),
		slog.Duration("duration", time.Since(start)))
	return records, nil
}

// FetchMatching reads only the records satisfying the constrained
// dimensions of filters. Wildcards contribute no predicate.
func (r *Reader) FetchMatching(ctx context.Context, filters domain.FilterSet) ([]domain.CanonicalRecord, error) {
	where, args, err := buildWhere(filters)
	if err != nil {
		return nil, err
	}

	query := `SELECT ` + selectColumns + ` FROM lifts`
	if where != "" {
		query += ` WHERE ` + where
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewSourceDataError(r.path, err)
	}
	defer rows.Close()

	records, err := scanRecords(rows)
	if err != nil {
		return nil, errors.NewSourceDataError(r.path, err)
	}
	return records, nil
}

func buildWhere(filters domain.FilterSet) (string, []any, error) {
	var clauses []string
	var args []any

	add := func(column, value string) {
		if !domain.IsWildcard(value) {
			clauses = append(clauses, column+" = ?")
			args = append(args, value)
		}
	}
	add("sex", filters.Sex)
	add("equipment", filters.Equipment)
	add("weight_class", filters.WeightClass)
	add("age_div", filters.AgeDiv)
	add("tested", filters.Tested)
	add("country", filters.Country)
	add("state", filters.State)
	add("federation", filters.Federation)

	if year, ok, err := filters.YearValue(); err != nil {
		return "", nil, errors.NewInvalidFilter(domain.DimYear, filters.Year, err)
	} else if ok {
		clauses = append(clauses, "year = ?")
		args = append(args, year)
	}

	return strings.Join(clauses, " AND "), args, nil
}

func scanRecords(rows *sql.Rows) ([]domain.CanonicalRecord, error) {
	var records []domain.CanonicalRecord
	for rows.Next() {
		var rec domain.CanonicalRecord
		var sex, tested string
		if err := rows.Scan(
			&sex, &rec.Equipment, &rec.BodyweightKg, &rec.WeightClass, &rec.AgeDiv, &rec.Age,
			&rec.SquatKg, &rec.BenchKg, &rec.DeadliftKg, &rec.TotalKg, &tested,
			&rec.Country, &rec.State, &rec.Federation, &rec.Date, &rec.MeetName, &rec.Year,
		); err != nil {
			return nil, err
		}
		rec.Sex = domain.Sex(sex)
		rec.Tested = domain.TestedStatus(tested)
		records = append(records, rec)
	}
	return records, rows.Err()
}

// Count returns the number of stored records.
func (r *Reader) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM lifts`).Scan(&n); err != nil {
		return 0, errors.NewSourceDataError(r.path, err)
	}
	return n, nil
}

// Close releases the underlying database handle.
func (r *Reader) Close() error {
	return r.db.Close()
}

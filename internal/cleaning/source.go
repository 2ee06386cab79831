// Package cleaning turns the raw OpenPowerlifting CSV into the canonical
// record set the aggregation engines operate on. The source streams rows so
// the full dataset is never resident at once; the cleaner applies the drop
// rules, defaults and derived dimensions in a fixed order.
package cleaning

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strings"

	"plstats/internal/errors"
	"plstats/pkg/contracts/domain"
)

// Source is a lazy, finite stream of raw records. It is restartable only
// from the underlying file, not mid-stream.
type Source interface {
	// Next returns the next raw record, or io.EOF once exhausted.
	Next() (domain.RawRecord, error)
	Close() error
}

// Columns the source must be able to locate. Matching is case-insensitive
// against the header row, so column order and unrelated columns are
// tolerated.
var requiredColumns = []string{"Sex", "Equipment", "BodyweightKg", "TotalKg"}

var knownColumns = []string{
	"Sex", "Equipment", "Age", "BodyweightKg",
	"Best3SquatKg", "Best3BenchKg", "Best3DeadliftKg", "TotalKg",
	"Tested", "Country", "State", "Federation", "Date", "MeetName",
}

// CSVSource reads raw records from an OpenPowerlifting CSV export.
type CSVSource struct {
	file    *os.File
	reader  *csv.Reader
	columns map[string]int
	path    string
}

// OpenCSV opens the CSV at path and maps its header row. A missing file or
// a header without the required columns is a SourceDataError: fatal to the
// refresh that attempted it.
func OpenCSV(path string) (*CSVSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.NewSourceDataError(path, err)
	}

	r := csv.NewReader(f)
	r.ReuseRecord = true
	// Some federations embed stray quotes in meet names.
	r.LazyQuotes = true

	header, err := r.Read()
	if err != nil {
		f.Close()
		return nil, errors.NewSourceDataError(path, fmt.Errorf("reading header: %w", err))
	}

	columns := mapColumns(header)
	for _, col := range requiredColumns {
		if _, ok := columns[strings.ToLower(col)]; !ok {
			f.Close()
			return nil, errors.NewSourceDataError(path, fmt.Errorf("missing required column %q", col))
		}
	}

	// The field count varies across dataset revisions.
	r.FieldsPerRecord = -1

	return &CSVSource{file: f, reader: r, columns: columns, path: path}, nil
}

// mapColumns maps lower-cased header names to their positions.
func mapColumns(header []string) map[string]int {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return columns
}

// Next returns the next raw record. Rows that cannot be parsed as CSV at
// all surface as a SourceDataError; io.EOF signals a clean end of stream.
func (s *CSVSource) Next() (domain.RawRecord, error) {
	row, err := s.reader.Read()
	if err == io.EOF {
		return domain.RawRecord{}, io.EOF
	}
	if err != nil {
		return domain.RawRecord{}, errors.NewSourceDataError(s.path, err)
	}

	return domain.RawRecord{
		Sex:             s.cell(row, "Sex"),
		Equipment:       s.cell(row, "Equipment"),
		Age:             s.cell(row, "Age"),
		BodyweightKg:    s.cell(row, "BodyweightKg"),
		Best3SquatKg:    s.cell(row, "Best3SquatKg"),
		Best3BenchKg:    s.cell(row, "Best3BenchKg"),
		Best3DeadliftKg: s.cell(row, "Best3DeadliftKg"),
		TotalKg:         s.cell(row, "TotalKg"),
		Tested:          s.cell(row, "Tested"),
		Country:         s.cell(row, "Country"),
		State:           s.cell(row, "State"),
		Federation:      s.cell(row, "Federation"),
		Date:            s.cell(row, "Date"),
		MeetName:        s.cell(row, "MeetName"),
	}, nil
}

func (s *CSVSource) cell(row []string, column string) string {
	idx, ok := s.columns[strings.ToLower(column)]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}

// Close releases the underlying file.
func (s *CSVSource) Close() error {
	return s.file.Close()
}

// SliceSource serves records from memory; used by tests and the sample
// data generator.
type SliceSource struct {
	records []domain.RawRecord
	pos     int
}

// NewSliceSource creates a source over the given records.
func NewSliceSource(records []domain.RawRecord) *SliceSource {
	return &SliceSource{records: records}
}

// Next implements Source.
func (s *SliceSource) Next() (domain.RawRecord, error) {
	if s.pos >= len(s.records) {
		return domain.RawRecord{}, io.EOF
	}
	r := s.records[s.pos]
	s.pos++
	return r, nil
}

// Close implements Source.
func (s *SliceSource) Close() error { return nil }

package storage

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"fukuyama-landprice/models"
)

// CSVWriter writes canonical rows to a CSV file with a header row.
// It is safe for concurrent use.
type CSVWriter struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
}

var _ RowWriter = (*CSVWriter)(nil)

// NewCSVWriter creates (or truncates) the CSV file at the given path and
// writes the header row. Intermediate directories are created automatically.
func NewCSVWriter(path string) (*CSVWriter, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("csv: create file %q: %w", path, err)
	}

	w := csv.NewWriter(f)
	if err := w.Write(models.CanonicalHeader); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("csv: write header: %w", err)
	}
	w.Flush()

	return &CSVWriter{file: f, writer: w}, nil
}

// Write appends rows to the file.
func (c *CSVWriter) Write(rows []models.CanonicalRow) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, r := range rows {
		record := []string{
			r.DistrictName,
			formatFloat(r.Area),
			formatFloat(r.BuildingAgeYears),
			formatFloat(r.TradePrice),
			r.PropertyType,
		}
		if err := c.writer.Write(record); err != nil {
			return fmt.Errorf("csv: write row: %w", err)
		}
	}

	c.writer.Flush()
	return c.writer.Error()
}

// Close flushes and closes the underlying file.
func (c *CSVWriter) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.writer.Flush()
	return c.file.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ReadCanonicalCSV loads rows written by CSVWriter. Columns are located by
// header name, so extra or reordered columns are tolerated.
func ReadCanonicalCSV(path string) ([]models.CanonicalRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("csv: open %q: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("csv: %q is empty", path)
		}
		return nil, fmt.Errorf("csv: read header: %w", err)
	}
	col := make(map[string]int, len(header))
	for i, h := range header {
		col[strings.TrimPrefix(strings.TrimSpace(h), "\ufeff")] = i
	}
	for _, name := range models.CanonicalHeader[:4] {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("csv: %q lacks column %q", path, name)
		}
	}

	valueAt := func(row []string, name string) string {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	var rows []models.CanonicalRow
	for line := 2; ; line++ {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("csv: line %d: %w", line, err)
		}
		if len(rec) == 0 {
			continue
		}

		row := models.CanonicalRow{
			DistrictName: valueAt(rec, "district_name"),
			PropertyType: valueAt(rec, "property_type"),
		}
		for name, dst := range map[string]*float64{
			"area":               &row.Area,
			"building_age_years": &row.BuildingAgeYears,
			"trade_price":        &row.TradePrice,
		} {
			v, err := strconv.ParseFloat(valueAt(rec, name), 64)
			if err != nil {
				return nil, fmt.Errorf("csv: line %d: parse %s: %w", line, name, err)
			}
			*dst = v
		}
		rows = append(rows, row)
	}
	return rows, nil
}

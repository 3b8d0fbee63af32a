package lookup

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"strings"
)

// CSVSource loads the lookup table from a local CSV file whose first row
// names the columns.
type CSVSource struct {
	Path string
}

// NewCSVSource creates a CSV-backed lookup source.
func NewCSVSource(path string) *CSVSource {
	return &CSVSource{Path: path}
}

// Load reads and parses the CSV file into rows keyed by header name.
func (s *CSVSource) Load(ctx context.Context) ([]Row, error) {
	if s.Path == "" {
		return nil, &ConfigError{Reason: "lookup CSV path is not configured"}
	}

	f, err := os.Open(s.Path)
	if err != nil {
		return nil, fmt.Errorf("open lookup csv: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1

	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read lookup csv: %w", err)
	}
	if len(records) == 0 {
		return nil, &ConfigError{Reason: "lookup CSV is empty"}
	}

	header := records[0]
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}

	rows := make([]Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		row := make(Row, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		rows = append(rows, row)
	}

	return rows, nil
}

package lookup

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PGSource loads the lookup table from a Postgres table. Every column of
// the table is carried into the row map so optional enrichment columns
// (Source_Type, HasQualifier, ...) come along when present.
type PGSource struct {
	pool  *pgxpool.Pool
	table string
}

// NewPGSource creates a Postgres-backed lookup source reading from the
// given table.
func NewPGSource(pool *pgxpool.Pool, table string) *PGSource {
	return &PGSource{pool: pool, table: table}
}

// Load selects the whole lookup table into memory.
func (s *PGSource) Load(ctx context.Context) ([]Row, error) {
	if s.table == "" {
		return nil, &ConfigError{Reason: "lookup table name is not configured"}
	}

	rows, err := s.pool.Query(ctx, fmt.Sprintf(`SELECT * FROM %s`, s.table))
	if err != nil {
		return nil, fmt.Errorf("query lookup table: %w", err)
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	columns := make([]string, len(fields))
	for i, f := range fields {
		columns[i] = string(f.Name)
	}

	var result []Row
	for rows.Next() {
		values, err := rows.Values()
		if err != nil {
			return nil, fmt.Errorf("scan lookup row: %w", err)
		}
		row := make(Row, len(columns))
		for i, col := range columns {
			if values[i] == nil {
				continue
			}
			row[col] = fmt.Sprintf("%v", values[i])
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read lookup table: %w", err)
	}

	return result, nil
}

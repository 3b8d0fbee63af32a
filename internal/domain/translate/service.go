package translate

import (
	"context"
	"fmt"
	"strings"

	"github.com/triplebob/emis-xml-convertor/internal/domain/classify"
	"github.com/triplebob/emis-xml-convertor/internal/domain/extract"
	"github.com/triplebob/emis-xml-convertor/internal/domain/lookup"
)

// Service provides EMIS XML translation operations. The lookup table is
// loaded and indexed once at construction; each Translate call re-extracts
// the submitted document against that index.
type Service struct {
	idx    *lookup.Index
	stats  lookup.Stats
	engine *Engine
}

// NewService loads the lookup table from src, indexes it on the given key
// columns and wires the translation engine. Loading or indexing failures
// surface as *lookup.ConfigError where the configuration is at fault.
func NewService(ctx context.Context, src lookup.Source, guidColumn, snomedColumn string, detector *classify.Detector) (*Service, error) {
	if src == nil {
		return nil, &lookup.ConfigError{Reason: "no lookup source configured"}
	}
	rows, err := src.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load lookup table: %w", err)
	}
	idx, err := lookup.BuildIndex(rows, guidColumn, snomedColumn)
	if err != nil {
		return nil, fmt.Errorf("index lookup table: %w", err)
	}
	return &Service{
		idx:    idx,
		stats:  lookup.ComputeStats(rows),
		engine: NewEngine(detector),
	}, nil
}

// Translate parses one EMIS clinical-search XML document and returns the
// partitioned, translated results under the given deduplication mode.
func (s *Service) Translate(ctx context.Context, xmlText string, mode DeduplicationMode) (*Results, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if strings.TrimSpace(xmlText) == "" {
		return nil, fmt.Errorf("xml document is required")
	}

	occurrences, err := extract.Extract(xmlText)
	if err != nil {
		return nil, err
	}
	return s.engine.Translate(occurrences, s.idx, mode)
}

// LookupStats returns the Source_Type breakdown of the loaded lookup table.
func (s *Service) LookupStats() lookup.Stats {
	return s.stats
}

// LookupSize returns the number of indexed lookup rows.
func (s *Service) LookupSize() int {
	return s.idx.Len()
}

package lookup

import "strings"

// Index holds the two in-memory maps used during one translation run:
// EMIS GUID → entry for forward translation, and SNOMED code → entry for
// refset enrichment. Both are built in a single pass over the source rows;
// lookups are O(1) afterwards.
type Index struct {
	guidToEntry   map[string]Entry
	snomedToEntry map[string]Entry
}

// BuildIndex indexes the lookup rows by the named GUID and SNOMED columns.
// Rows whose GUID or SNOMED value is empty after trimming are skipped.
// Returns a ConfigError when rows are nil or a key column name is empty.
func BuildIndex(rows []Row, guidColumn, snomedColumn string) (*Index, error) {
	if rows == nil {
		return nil, &ConfigError{Reason: "lookup table is not loaded"}
	}
	if guidColumn == "" || snomedColumn == "" {
		return nil, &ConfigError{Reason: "lookup key column names are not configured"}
	}

	idx := &Index{
		guidToEntry:   make(map[string]Entry, len(rows)),
		snomedToEntry: make(map[string]Entry, len(rows)),
	}

	for _, row := range rows {
		guid := strings.TrimSpace(row[guidColumn])
		snomed := strings.TrimSpace(row[snomedColumn])
		if guid == "" || snomed == "" {
			continue
		}

		entry := Entry{
			SnomedCode:   snomed,
			SourceType:   columnOrDefault(row, ColumnSourceType, Unknown),
			HasQualifier: columnOrDefault(row, ColumnHasQualifier, Unknown),
			IsParent:     columnOrDefault(row, ColumnIsParent, Unknown),
			Descendants:  columnOrDefault(row, ColumnDescendants, DefaultDescendants),
			CodeType:     columnOrDefault(row, ColumnCodeType, Unknown),
		}

		idx.guidToEntry[guid] = entry
		idx.snomedToEntry[snomed] = entry
	}

	return idx, nil
}

func columnOrDefault(row Row, column, fallback string) string {
	v := strings.TrimSpace(row[column])
	if v == "" {
		return fallback
	}
	return v
}

// ByGUID resolves an EMIS GUID. A miss returns the sentinel entry and false.
func (idx *Index) ByGUID(guid string) (Entry, bool) {
	if e, ok := idx.guidToEntry[strings.TrimSpace(guid)]; ok {
		return e, true
	}
	return NotFoundEntry(), false
}

// BySnomed resolves a SNOMED code via the reverse map, used to enrich true
// refsets whose GUID is itself a SNOMED code.
func (idx *Index) BySnomed(code string) (Entry, bool) {
	if e, ok := idx.snomedToEntry[strings.TrimSpace(code)]; ok {
		return e, true
	}
	return NotFoundEntry(), false
}

// Len returns the number of indexed GUID mappings.
func (idx *Index) Len() int {
	return len(idx.guidToEntry)
}

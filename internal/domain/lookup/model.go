package lookup

// Sentinel values returned when a lookup misses. The translation layer
// surfaces these directly rather than treating a miss as an error.
const (
	NotFound           = "Not Found"
	Unknown            = "Unknown"
	DefaultDescendants = "0"
)

// Well-known optional columns of the MKB lookup release.
const (
	ColumnSourceType   = "Source_Type"
	ColumnHasQualifier = "HasQualifier"
	ColumnIsParent     = "IsParent"
	ColumnDescendants  = "Descendants"
	ColumnCodeType     = "CodeType"
)

// Source_Type values that mark a lookup row as medication-like.
const (
	SourceTypeClinical    = "Clinical"
	SourceTypeMedication  = "Medication"
	SourceTypeConstituent = "Constituent"
	SourceTypeDMD         = "DM+D"
)

// Row is one record of the externally supplied lookup table, keyed by
// column name. The loader decides which columns exist; the index only
// requires the two key columns it is given.
type Row map[string]string

// Entry is the resolved lookup record for one EMIS GUID (or, in the
// reverse map, one SNOMED code).
type Entry struct {
	SnomedCode   string `json:"snomed_code"`
	SourceType   string `json:"source_type"`
	HasQualifier string `json:"has_qualifier"`
	IsParent     string `json:"is_parent"`
	Descendants  string `json:"descendants"`
	CodeType     string `json:"code_type"`
}

// NotFoundEntry returns the sentinel entry used when a GUID has no row in
// the lookup table.
func NotFoundEntry() Entry {
	return Entry{
		SnomedCode:   NotFound,
		SourceType:   Unknown,
		HasQualifier: Unknown,
		IsParent:     Unknown,
		Descendants:  DefaultDescendants,
		CodeType:     Unknown,
	}
}

// IsMedicationSourceType reports whether a lookup Source_Type value marks
// the row as a medication. Used as the classification fallback when the
// XML code system alone is ambiguous.
func IsMedicationSourceType(sourceType string) bool {
	switch sourceType {
	case SourceTypeMedication, SourceTypeConstituent, SourceTypeDMD:
		return true
	}
	return false
}

// Stats summarizes the loaded lookup table by Source_Type.
type Stats struct {
	Total      int `json:"total_count"`
	Clinical   int `json:"clinical_count"`
	Medication int `json:"medication_count"`
	Other      int `json:"other_count"`
}

// ComputeStats counts lookup rows per Source_Type category.
func ComputeStats(rows []Row) Stats {
	s := Stats{Total: len(rows)}
	for _, row := range rows {
		switch {
		case row[ColumnSourceType] == SourceTypeClinical:
			s.Clinical++
		case IsMedicationSourceType(row[ColumnSourceType]):
			s.Medication++
		default:
			s.Other++
		}
	}
	return s
}

// ConfigError reports a missing or unusable lookup configuration: the table
// itself or the key column names required to index it.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string {
	return "lookup configuration error: " + e.Reason
}

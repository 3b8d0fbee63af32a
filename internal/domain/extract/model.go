package extract

// Namespace is the EMIS Web clinical-search export namespace. Real exports
// mix namespaced and non-namespaced elements, so the extractor matches on
// local names within this namespace or none.
const Namespace = "http://www.e-mis.com/emisopen"

// GuidOccurrence is one EMIS GUID reference found in a <value> element,
// annotated with its enclosing value-set metadata and structural context.
// Occurrences are ephemeral: recomputed on every extraction pass.
type GuidOccurrence struct {
	ValueSetGUID        string `json:"valueset_guid"`
	ValueSetDescription string `json:"valueset_description"`
	CodeSystem          string `json:"code_system"`
	EmisGUID            string `json:"emis_guid"`
	DisplayName         string `json:"display_name"`
	IncludeChildren     bool   `json:"include_children"`
	IsRefset            bool   `json:"is_refset"`

	// Structural location hints used to disambiguate medication vs clinical
	// classification when the code system alone is ambiguous.
	TableContext  string `json:"table_context,omitempty"`
	ColumnContext string `json:"column_context,omitempty"`

	// Provenance: the enclosing search/report, used by per-source
	// de-duplication.
	SourceGUID string `json:"source_guid,omitempty"`
	SourceName string `json:"source_name,omitempty"`
}

// ParseError reports malformed XML input, carrying the underlying decoder
// error with its position information.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return "xml parsing error: " + e.Err.Error()
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

package translate

// DeduplicationMode controls the granularity of the standalone and
// pseudo-member partitions. Container and refset partitions are always
// deduplicated per value-set regardless of mode.
type DeduplicationMode string

const (
	// ModeUniqueCodes keeps one record per distinct EMIS GUID across the
	// whole document.
	ModeUniqueCodes DeduplicationMode = "unique_codes"
	// ModeUniquePerSource keeps one record per (source search/report,
	// EMIS GUID) pair, retaining provenance.
	ModeUniquePerSource DeduplicationMode = "unique_per_source"
)

// Sentinel description used when an occurrence carries no display name.
const noDisplayName = "No display name in XML"

// Labels attached to container and refset records.
const (
	typePseudoRefset = "Pseudo-Refset"
	typeTrueRefset   = "True Refset"

	pseudoRefsetStatus = "Not in EMIS database - requires member code listing"
	pseudoRefsetUsage  = "Can only be used by listing member codes, not by SNOMED code reference"
	trueRefsetUsage    = "Can be referenced directly by SNOMED code in EMIS"

	defaultRefsetSourceType = "Refset"
)

// CodeRecord is one classified, translated code: a standalone clinical code
// or medication, or a member of a pseudo-refset container.
type CodeRecord struct {
	ValueSetGUID        string `json:"valueset_guid"`
	ValueSetDescription string `json:"valueset_description"`
	CodeSystem          string `json:"code_system"`
	EmisGUID            string `json:"emis_guid"`
	SnomedCode          string `json:"snomed_code"`
	Description         string `json:"description"`
	MappingFound        bool   `json:"mapping_found"`

	IsMedication   bool   `json:"is_medication"`
	MedicationType string `json:"medication_type,omitempty"`
	PseudoMember   bool   `json:"pseudo_member"`

	IncludeChildren bool   `json:"include_children"`
	HasQualifier    string `json:"has_qualifier,omitempty"`
	IsParent        string `json:"is_parent,omitempty"`
	Descendants     string `json:"descendants,omitempty"`
	CodeType        string `json:"code_type,omitempty"`

	TableContext  string `json:"table_context,omitempty"`
	ColumnContext string `json:"column_context,omitempty"`

	SourceGUID string `json:"source_guid,omitempty"`
	SourceName string `json:"source_name,omitempty"`
}

// RefsetRecord is a true refset reference: the EMIS GUID is itself the
// SNOMED code, so SnomedCode always equals the originating GUID.
type RefsetRecord struct {
	ValueSetGUID        string `json:"valueset_guid"`
	ValueSetDescription string `json:"valueset_description"`
	CodeSystem          string `json:"code_system"`
	SnomedCode          string `json:"snomed_code"`
	Description         string `json:"description"`
	Type                string `json:"type"`
	SourceType          string `json:"source_type"`
	Usage               string `json:"usage"`
}

// PseudoRefsetContainer is a value-set that groups codes under a
// refset-like identifier but is not queryable in EMIS; it must be expanded
// to its member codes.
type PseudoRefsetContainer struct {
	ValueSetGUID        string `json:"valueset_guid"`
	ValueSetDescription string `json:"valueset_description"`
	CodeSystem          string `json:"code_system"`
	Type                string `json:"type"`
	Usage               string `json:"usage"`
	Status              string `json:"status"`
	MemberCount         int    `json:"member_count"`
}

// Results is the partitioned outcome of one translation pass: seven
// collections, each deduplicated within itself.
type Results struct {
	Clinical                []CodeRecord            `json:"clinical"`
	Medications             []CodeRecord            `json:"medications"`
	Refsets                 []RefsetRecord          `json:"refsets"`
	PseudoRefsets           []PseudoRefsetContainer `json:"pseudo_refsets"`
	ClinicalPseudoMembers   []CodeRecord            `json:"clinical_pseudo_members"`
	MedicationPseudoMembers []CodeRecord            `json:"medication_pseudo_members"`
	PseudoRefsetMembers     map[string][]CodeRecord `json:"pseudo_refset_members"`
}

// Summary carries the per-partition counts shown to callers alongside the
// full results.
type Summary struct {
	Clinical                int `json:"clinical"`
	Medications             int `json:"medications"`
	Refsets                 int `json:"refsets"`
	PseudoRefsets           int `json:"pseudo_refsets"`
	ClinicalPseudoMembers   int `json:"clinical_pseudo_members"`
	MedicationPseudoMembers int `json:"medication_pseudo_members"`
}

// Summarize computes partition counts for a result set.
func (r *Results) Summarize() Summary {
	return Summary{
		Clinical:                len(r.Clinical),
		Medications:             len(r.Medications),
		Refsets:                 len(r.Refsets),
		PseudoRefsets:           len(r.PseudoRefsets),
		ClinicalPseudoMembers:   len(r.ClinicalPseudoMembers),
		MedicationPseudoMembers: len(r.MedicationPseudoMembers),
	}
}

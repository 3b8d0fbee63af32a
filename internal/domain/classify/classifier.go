package classify

import "strings"

// Code system tokens as they appear in EMIS search/report XML exports.
const (
	CodeSystemSNOMED       = "SNOMED_CONCEPT"
	CodeSystemConstituent  = "SCT_CONST"
	CodeSystemDrugGroup    = "SCT_DRGGRP"
	CodeSystemPreparation  = "SCT_PREP"
	CodeSystemEMISInternal = "EMISINTERNAL"
)

// Table/column tokens that mark a medication context. EMIS sometimes exports
// drug codes under the generic SNOMED_CONCEPT system; the enclosing table and
// column are the only reliable signal in that case.
const (
	TableMedicationIssues  = "MEDICATION_ISSUES"
	TableMedicationCourses = "MEDICATION_COURSES"
	ColumnDrugCode         = "DRUGCODE"
)

// DefaultPatterns returns the known pseudo-refset identifier substrings.
// These come from national indicator sets (QOF asthma rulesets) whose
// value-sets are exported as plain code lists rather than queryable refsets.
func DefaultPatterns() []string {
	return []string{
		"ASTTRT_COD", // asthma treatment codes
		"ASTRES_COD", // asthma register codes
		"AST_COD",    // asthma codes
	}
}

// Detector decides whether a value-set identifier names a pseudo-refset:
// a container EMIS exports under a refset-like identifier that is not a
// queryable SNOMED refset and can only be used by enumerating its members.
type Detector struct {
	patterns []string
}

// NewDetector creates a Detector matching the given identifier substrings
// in addition to the general _COD suffix heuristic. Patterns are matched
// case-insensitively.
func NewDetector(patterns ...string) *Detector {
	upper := make([]string, 0, len(patterns))
	for _, p := range patterns {
		p = strings.ToUpper(strings.TrimSpace(p))
		if p != "" {
			upper = append(upper, p)
		}
	}
	return &Detector{patterns: upper}
}

// IsPseudoRefset reports whether a value-set identified by identifier (and
// described by description) is a pseudo-refset container. True when either
// string contains a known pattern, or when the identifier ends with _COD and
// is not purely numeric once underscores and the literal COD are stripped.
// Numeric _COD-suffixed identifiers are real SNOMED-derived refset ids.
func (d *Detector) IsPseudoRefset(identifier, description string) bool {
	id := strings.ToUpper(identifier)
	desc := strings.ToUpper(description)
	if id == "" && desc == "" {
		return false
	}

	for _, p := range d.patterns {
		if strings.Contains(id, p) || strings.Contains(desc, p) {
			return true
		}
	}

	if strings.HasSuffix(id, "_COD") {
		stripped := strings.ReplaceAll(id, "_", "")
		stripped = strings.ReplaceAll(stripped, "COD", "")
		if !isDigits(stripped) {
			return true
		}
	}
	return false
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// MedicationTypeFlag maps a medication code system to its display label.
func MedicationTypeFlag(codeSystem string) string {
	switch strings.ToUpper(codeSystem) {
	case CodeSystemConstituent:
		return "SCT_CONST (Constituent)"
	case CodeSystemDrugGroup:
		return "SCT_DRGGRP (Drug Group)"
	case CodeSystemPreparation:
		return "SCT_PREP (Preparation)"
	default:
		return "Standard Medication"
	}
}

// isMedicationContext reports whether the structural location alone marks a
// medication: a drug-code column inside one of the medication tables.
func isMedicationContext(tableContext, columnContext string) bool {
	if tableContext == "" || columnContext == "" {
		return false
	}
	table := strings.ToUpper(tableContext)
	return (table == TableMedicationIssues || table == TableMedicationCourses) &&
		strings.ToUpper(columnContext) == ColumnDrugCode
}

// IsMedicationCodeSystem reports whether the code system (with optional
// table/column context) identifies a medication. EMISINTERNAL is never a
// medication regardless of context.
func IsMedicationCodeSystem(codeSystem, tableContext, columnContext string) bool {
	cs := strings.ToUpper(codeSystem)
	if cs == CodeSystemEMISInternal {
		return false
	}
	switch cs {
	case CodeSystemConstituent, CodeSystemDrugGroup, CodeSystemPreparation:
		return true
	}
	return isMedicationContext(tableContext, columnContext)
}

// IsClinicalCodeSystem reports whether the code system identifies a clinical
// code. Medication context takes precedence: a SNOMED_CONCEPT value sitting
// in a drug-code column is a medication, not a clinical code.
func IsClinicalCodeSystem(codeSystem, tableContext, columnContext string) bool {
	cs := strings.ToUpper(codeSystem)
	if cs == CodeSystemEMISInternal {
		return false
	}
	if isMedicationContext(tableContext, columnContext) {
		return false
	}
	return cs == CodeSystemSNOMED
}

package classify

import "testing"

func newTestDetector() *Detector {
	return NewDetector(DefaultPatterns()...)
}

func TestIsPseudoRefset_KnownPatterns(t *testing.T) {
	d := newTestDetector()
	cases := []struct {
		identifier  string
		description string
	}{
		{"ASTTRT_COD", "Asthma treatment codes"},
		{"ASTRES_COD", "Asthma register codes"},
		{"AST_COD", "Asthma codes"},
		{"asttrt_cod", "case insensitive identifier"},
		{"value set", "contains ASTRES_COD in description"},
	}
	for _, tc := range cases {
		if !d.IsPseudoRefset(tc.identifier, tc.description) {
			t.Errorf("expected pseudo-refset for %q / %q", tc.identifier, tc.description)
		}
	}
}

func TestIsPseudoRefset_GeneralCODSuffix(t *testing.T) {
	d := newTestDetector()
	if !d.IsPseudoRefset("CUSTOM_COD", "Custom codes") {
		t.Error("expected CUSTOM_COD to be detected")
	}
	if !d.IsPseudoRefset("DIABETES_COD", "Diabetes codes") {
		t.Error("expected DIABETES_COD to be detected")
	}
}

func TestIsPseudoRefset_Negative(t *testing.T) {
	d := newTestDetector()
	cases := []struct {
		identifier  string
		description string
	}{
		{"1234567890", "Normal SNOMED code"},
		{"Asthma Treatment", "Normal description"},
		// Numeric identifiers ending in a _COD-like pattern are real
		// SNOMED-derived refset ids, not pseudo-refsets.
		{"123_COD", "Numeric code"},
		{"", ""},
		{"999002271000000101", "SNOMED CT refset"},
	}
	for _, tc := range cases {
		if d.IsPseudoRefset(tc.identifier, tc.description) {
			t.Errorf("expected %q / %q not to be a pseudo-refset", tc.identifier, tc.description)
		}
	}
}

func TestIsPseudoRefset_Deterministic(t *testing.T) {
	d := newTestDetector()
	first := d.IsPseudoRefset("ETHNALL_COD", "Ethnicity codes")
	for i := 0; i < 10; i++ {
		if d.IsPseudoRefset("ETHNALL_COD", "Ethnicity codes") != first {
			t.Fatal("IsPseudoRefset is not deterministic")
		}
	}
	if d.IsPseudoRefset("ethnall_cod", "Ethnicity codes") != first {
		t.Error("case change altered the result")
	}
}

func TestIsPseudoRefset_InjectedPatterns(t *testing.T) {
	d := NewDetector("CHD_REG")
	if !d.IsPseudoRefset("CHD_REG_V2", "CHD register") {
		t.Error("expected injected pattern to match")
	}
	if d.IsPseudoRefset("ASTTRT_COD2000", "irrelevant") {
		// ASTTRT_COD still matches the generic _COD rule only when it is a
		// suffix; with a trailing token it must not match a detector that
		// was not given the asthma patterns.
		t.Error("expected non-injected pattern not to match")
	}
}

func TestMedicationTypeFlag(t *testing.T) {
	cases := []struct {
		codeSystem string
		want       string
	}{
		{"SCT_CONST", "SCT_CONST (Constituent)"},
		{"SCT_DRGGRP", "SCT_DRGGRP (Drug Group)"},
		{"SCT_PREP", "SCT_PREP (Preparation)"},
		{"sct_const", "SCT_CONST (Constituent)"},
		{"SNOMED_CONCEPT", "Standard Medication"},
		{"", "Standard Medication"},
	}
	for _, tc := range cases {
		if got := MedicationTypeFlag(tc.codeSystem); got != tc.want {
			t.Errorf("MedicationTypeFlag(%q) = %q, want %q", tc.codeSystem, got, tc.want)
		}
	}
}

func TestIsMedicationCodeSystem(t *testing.T) {
	for _, cs := range []string{"SCT_CONST", "SCT_DRGGRP", "SCT_PREP", "sct_prep"} {
		if !IsMedicationCodeSystem(cs, "", "") {
			t.Errorf("expected %q to be a medication code system", cs)
		}
	}

	if !IsMedicationCodeSystem("SNOMED_CONCEPT", "MEDICATION_ISSUES", "DRUGCODE") {
		t.Error("expected medication context to classify as medication")
	}
	if !IsMedicationCodeSystem("SNOMED_CONCEPT", "medication_courses", "drugcode") {
		t.Error("expected context match to be case insensitive")
	}

	if IsMedicationCodeSystem("EMISINTERNAL", "MEDICATION_ISSUES", "DRUGCODE") {
		t.Error("EMISINTERNAL must never be a medication")
	}
	if IsMedicationCodeSystem("SNOMED_CONCEPT", "MEDICATION_ISSUES", "STATUS") {
		t.Error("non-drug column must not classify as medication")
	}
	if IsMedicationCodeSystem("SNOMED_CONCEPT", "EVENTS", "DRUGCODE") {
		t.Error("non-medication table must not classify as medication")
	}
	if IsMedicationCodeSystem("SNOMED_CONCEPT", "", "") {
		t.Error("bare SNOMED_CONCEPT is not a medication")
	}
}

func TestIsClinicalCodeSystem(t *testing.T) {
	if !IsClinicalCodeSystem("SNOMED_CONCEPT", "", "") {
		t.Error("expected SNOMED_CONCEPT to be clinical")
	}
	if !IsClinicalCodeSystem("snomed_concept", "EVENTS", "READCODE") {
		t.Error("expected case-insensitive clinical classification")
	}
	if IsClinicalCodeSystem("SNOMED_CONCEPT", "MEDICATION_ISSUES", "DRUGCODE") {
		t.Error("medication context must exclude clinical classification")
	}
	if IsClinicalCodeSystem("EMISINTERNAL", "", "") {
		t.Error("EMISINTERNAL must never be clinical")
	}
	if IsClinicalCodeSystem("SCT_PREP", "", "") {
		t.Error("medication code systems are not clinical")
	}
}

// Exactly one of {medication, clinical, neither} must hold for any input.
func TestClassification_MutualExclusion(t *testing.T) {
	codeSystems := []string{
		"SNOMED_CONCEPT", "SCT_CONST", "SCT_DRGGRP", "SCT_PREP",
		"EMISINTERNAL", "UNKNOWN_SYSTEM", "",
	}
	tables := []string{"", "MEDICATION_ISSUES", "MEDICATION_COURSES", "EVENTS"}
	columns := []string{"", "DRUGCODE", "STATUS"}

	for _, cs := range codeSystems {
		for _, table := range tables {
			for _, column := range columns {
				med := IsMedicationCodeSystem(cs, table, column)
				clin := IsClinicalCodeSystem(cs, table, column)
				if med && clin {
					t.Errorf("both medication and clinical for (%q, %q, %q)", cs, table, column)
				}
			}
		}
	}
}

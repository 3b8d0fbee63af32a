package translate

import (
	"fmt"
	"strings"

	"github.com/triplebob/emis-xml-convertor/internal/domain/classify"
	"github.com/triplebob/emis-xml-convertor/internal/domain/extract"
	"github.com/triplebob/emis-xml-convertor/internal/domain/lookup"
)

// Engine turns extracted GUID occurrences into partitioned, translated
// results. It is stateless apart from the pseudo-refset detector and safe
// for concurrent use.
type Engine struct {
	detector *classify.Detector
}

// NewEngine builds an engine using the given pseudo-refset detector. A nil
// detector falls back to the default patterns.
func NewEngine(detector *classify.Detector) *Engine {
	if detector == nil {
		detector = classify.NewDetector(classify.DefaultPatterns()...)
	}
	return &Engine{detector: detector}
}

// Translate partitions and translates a set of occurrences against the
// lookup index. Output ordering is first-seen document order in every
// partition, so identical inputs always produce identical results.
func (e *Engine) Translate(occurrences []extract.GuidOccurrence, idx *lookup.Index, mode DeduplicationMode) (*Results, error) {
	if occurrences == nil {
		return nil, fmt.Errorf("translate: occurrence list is required")
	}
	if idx == nil {
		return nil, fmt.Errorf("translate: lookup index is required")
	}
	if mode == "" {
		mode = ModeUniqueCodes
	}
	if mode != ModeUniqueCodes && mode != ModeUniquePerSource {
		return nil, fmt.Errorf("translate: unsupported deduplication mode %q", mode)
	}

	pseudo := e.collectPseudoRefsets(occurrences)

	results := &Results{
		Clinical:                []CodeRecord{},
		Medications:             []CodeRecord{},
		Refsets:                 []RefsetRecord{},
		PseudoRefsets:           []PseudoRefsetContainer{},
		ClinicalPseudoMembers:   []CodeRecord{},
		MedicationPseudoMembers: []CodeRecord{},
		PseudoRefsetMembers:     map[string][]CodeRecord{},
	}
	for _, vsGUID := range pseudo.order {
		results.PseudoRefsets = append(results.PseudoRefsets, pseudo.containers[vsGUID])
		results.PseudoRefsetMembers[vsGUID] = []CodeRecord{}
	}

	clinical := newOrderedRecords()
	medications := newOrderedRecords()
	clinicalPseudo := newOrderedRecords()
	medicationPseudo := newOrderedRecords()
	seenRefsets := map[string]bool{}
	// Detail listings under each container are keyed by EMIS GUID alone:
	// the member view answers "which codes make up this container", not
	// "which searches referenced them".
	seenMembers := map[string]map[string]bool{}

	for _, occ := range occurrences {
		if occ.EmisGUID == "" {
			continue
		}

		if occ.IsRefset {
			if seenRefsets[occ.ValueSetGUID] {
				continue
			}
			seenRefsets[occ.ValueSetGUID] = true
			results.Refsets = append(results.Refsets, e.refsetRecord(occ, idx))
			continue
		}

		if strings.EqualFold(occ.CodeSystem, classify.CodeSystemEMISInternal) {
			continue
		}

		rec := e.codeRecord(occ, idx)
		key := deduplicationKey(mode, occ)

		if _, isPseudoMember := pseudo.containers[occ.ValueSetGUID]; isPseudoMember {
			rec.PseudoMember = true
			if seenMembers[occ.ValueSetGUID] == nil {
				seenMembers[occ.ValueSetGUID] = map[string]bool{}
			}
			if !seenMembers[occ.ValueSetGUID][occ.EmisGUID] {
				seenMembers[occ.ValueSetGUID][occ.EmisGUID] = true
				results.PseudoRefsetMembers[occ.ValueSetGUID] = append(results.PseudoRefsetMembers[occ.ValueSetGUID], rec)
			}
			if rec.IsMedication {
				insert(medicationPseudo, key, rec, mode)
			} else {
				insert(clinicalPseudo, key, rec, mode)
			}
			continue
		}

		if rec.IsMedication {
			// A code seen in both clinical and medication positions is a
			// medication; drop any earlier clinical record for the same key.
			clinical.remove(key)
			insert(medications, key, rec, mode)
		} else if _, exists := medications.get(key); !exists {
			insert(clinical, key, rec, mode)
		}
	}

	results.Clinical = clinical.values()
	results.Medications = medications.values()
	results.ClinicalPseudoMembers = clinicalPseudo.values()
	results.MedicationPseudoMembers = medicationPseudo.values()
	return results, nil
}

// pseudoSet is the first pass over the document: every value-set grouped by
// GUID, with the pseudo-refset containers synthesized in first-seen order.
type pseudoSet struct {
	containers map[string]PseudoRefsetContainer
	order      []string
}

// collectPseudoRefsets groups occurrences per value-set and synthesizes one
// container per value-set whose description matches the pseudo-refset
// heuristics. Member counts are distinct EMIS GUIDs within the value-set,
// counted before any code-system filtering.
func (e *Engine) collectPseudoRefsets(occurrences []extract.GuidOccurrence) pseudoSet {
	ps := pseudoSet{containers: map[string]PseudoRefsetContainer{}}
	memberGUIDs := map[string]map[string]bool{}

	for _, occ := range occurrences {
		if occ.EmisGUID == "" || occ.IsRefset {
			continue
		}

		if memberGUIDs[occ.ValueSetGUID] == nil {
			memberGUIDs[occ.ValueSetGUID] = map[string]bool{}
		}
		memberGUIDs[occ.ValueSetGUID][occ.EmisGUID] = true

		if _, seen := ps.containers[occ.ValueSetGUID]; seen {
			continue
		}
		if occ.ValueSetDescription == "" {
			continue
		}
		if !e.detector.IsPseudoRefset(occ.ValueSetDescription, occ.ValueSetDescription) {
			continue
		}
		ps.containers[occ.ValueSetGUID] = PseudoRefsetContainer{
			ValueSetGUID:        occ.ValueSetGUID,
			ValueSetDescription: occ.ValueSetDescription,
			CodeSystem:          occ.CodeSystem,
			Type:                typePseudoRefset,
			Usage:               pseudoRefsetUsage,
			Status:              pseudoRefsetStatus,
		}
		ps.order = append(ps.order, occ.ValueSetGUID)
	}

	for _, vsGUID := range ps.order {
		c := ps.containers[vsGUID]
		c.MemberCount = len(memberGUIDs[vsGUID])
		ps.containers[vsGUID] = c
	}
	return ps
}

// refsetRecord builds the record for a true refset reference. The EMIS GUID
// is already the SNOMED refset code; the reverse lookup only enriches the
// source type when the code happens to be in the lookup table.
func (e *Engine) refsetRecord(occ extract.GuidOccurrence, idx *lookup.Index) RefsetRecord {
	sourceType := defaultRefsetSourceType
	if entry, ok := idx.BySnomed(occ.EmisGUID); ok && entry.SourceType != "" {
		sourceType = entry.SourceType
	}
	return RefsetRecord{
		ValueSetGUID:        occ.ValueSetGUID,
		ValueSetDescription: occ.ValueSetDescription,
		CodeSystem:          occ.CodeSystem,
		SnomedCode:          occ.EmisGUID,
		Description:         occ.ValueSetDescription,
		Type:                typeTrueRefset,
		SourceType:          sourceType,
		Usage:               trueRefsetUsage,
	}
}

// codeRecord translates and classifies one non-refset occurrence.
func (e *Engine) codeRecord(occ extract.GuidOccurrence, idx *lookup.Index) CodeRecord {
	entry, found := idx.ByGUID(occ.EmisGUID)

	description := occ.DisplayName
	if description == "" {
		description = noDisplayName
	}

	isMedication := classify.IsMedicationCodeSystem(occ.CodeSystem, occ.TableContext, occ.ColumnContext)
	isClinical := classify.IsClinicalCodeSystem(occ.CodeSystem, occ.TableContext, occ.ColumnContext)
	medicationType := ""
	switch {
	case isMedication:
		medicationType = classify.MedicationTypeFlag(occ.CodeSystem)
	case !isClinical:
		// Unrecognized code system: let the lookup table decide.
		if lookup.IsMedicationSourceType(entry.SourceType) {
			isMedication = true
			medicationType = classify.MedicationTypeFlag(occ.CodeSystem)
		}
	}

	return CodeRecord{
		ValueSetGUID:        occ.ValueSetGUID,
		ValueSetDescription: occ.ValueSetDescription,
		CodeSystem:          occ.CodeSystem,
		EmisGUID:            occ.EmisGUID,
		SnomedCode:          entry.SnomedCode,
		Description:         description,
		MappingFound:        found,
		IsMedication:        isMedication,
		MedicationType:      medicationType,
		IncludeChildren:     occ.IncludeChildren,
		HasQualifier:        entry.HasQualifier,
		IsParent:            entry.IsParent,
		Descendants:         entry.Descendants,
		CodeType:            entry.CodeType,
		TableContext:        occ.TableContext,
		ColumnContext:       occ.ColumnContext,
		SourceGUID:          occ.SourceGUID,
		SourceName:          occ.SourceName,
	}
}

// deduplicationKey computes the partition key for one occurrence under the
// given mode.
func deduplicationKey(mode DeduplicationMode, occ extract.GuidOccurrence) string {
	if mode == ModeUniquePerSource {
		return occ.SourceGUID + "|" + occ.EmisGUID
	}
	return occ.EmisGUID
}

// insert adds or replaces a record under key. In unique_codes mode a later
// duplicate only replaces the kept record when it carries strictly more
// context; in per-source mode keys never collide across sources, so first
// wins within one.
func insert(recs *orderedRecords, key string, rec CodeRecord, mode DeduplicationMode) {
	existing, ok := recs.get(key)
	if !ok {
		recs.set(key, rec)
		return
	}
	if mode == ModeUniqueCodes && completenessScore(rec) > completenessScore(existing) {
		recs.set(key, rec)
	}
}

// completenessScore ranks duplicate records by how much context they carry.
// Weights order the fields by usefulness so a record with a value-set GUID
// always beats one with only table context.
func completenessScore(rec CodeRecord) int {
	score := 0
	if rec.ValueSetGUID != "" {
		score += 20
	}
	if rec.ValueSetDescription != "" {
		score += 10
	}
	if rec.Description != "" && rec.Description != noDisplayName {
		score += 5
	}
	if rec.TableContext != "" {
		score += 2
	}
	if rec.ColumnContext != "" {
		score += 1
	}
	return score
}

// orderedRecords is a map preserving first-insertion order, so results are
// deterministic regardless of Go map iteration order.
type orderedRecords struct {
	keys  []string
	byKey map[string]CodeRecord
}

func newOrderedRecords() *orderedRecords {
	return &orderedRecords{byKey: map[string]CodeRecord{}}
}

func (o *orderedRecords) get(key string) (CodeRecord, bool) {
	rec, ok := o.byKey[key]
	return rec, ok
}

func (o *orderedRecords) set(key string, rec CodeRecord) {
	if _, ok := o.byKey[key]; !ok {
		o.keys = append(o.keys, key)
	}
	o.byKey[key] = rec
}

func (o *orderedRecords) remove(key string) {
	delete(o.byKey, key)
}

func (o *orderedRecords) values() []CodeRecord {
	out := make([]CodeRecord, 0, len(o.byKey))
	emitted := make(map[string]bool, len(o.byKey))
	for _, key := range o.keys {
		if emitted[key] {
			continue
		}
		if rec, ok := o.byKey[key]; ok {
			out = append(out, rec)
			emitted[key] = true
		}
	}
	return out
}

package terminology

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/trialmatch-ai/platform/pkg/common/models"
)

// Mapper translates free-text trial criteria into coded sets grouped by
// vocabulary. Inclusion and exclusion sets are built independently and are
// never merged.
type Mapper struct {
	catalog Catalog
}

func NewMapper(catalog Catalog) *Mapper {
	return &Mapper{catalog: catalog}
}

var ageRangePattern = regexp.MustCompile(`(?i)age[sd]?\s*(?:between\s*)?(\d{1,3})\s*(?:-|to|and)\s*(\d{1,3})`)

// IsExclusion reports whether a criterion line carries negation language,
// e.g. "no history of renal disease".
func (m *Mapper) IsExclusion(text string) bool {
	lowered := strings.ToLower(text)
	for _, kw := range m.catalog.ExclusionKeywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

// MapCriteria codes the inclusion and exclusion criterion lines of a trial.
// Inclusion lines that carry negation language are routed to the exclusion
// set, since "no history of X" includes the patient only when X is absent.
func (m *Mapper) MapCriteria(inclusion, exclusion []string) (models.CodeSet, models.CodeSet) {
	inclusionCodes := emptyCodeSet()
	exclusionCodes := emptyCodeSet()

	for _, line := range inclusion {
		if m.IsExclusion(line) {
			exclusionCodes.Merge(m.MapText(line))
		} else {
			inclusionCodes.Merge(m.MapText(line))
		}
	}
	for _, line := range exclusion {
		exclusionCodes.Merge(m.MapText(line))
	}

	dedupe(inclusionCodes)
	dedupe(exclusionCodes)
	return inclusionCodes, exclusionCodes
}

// MapText codes a single free-text criterion against the catalog. Matching is
// substring-based over the concept key, its display name, and its variants.
func (m *Mapper) MapText(text string) models.CodeSet {
	lowered := strings.ToLower(text)
	codes := emptyCodeSet()

	for key, concept := range m.catalog.Conditions {
		if matchesTerm(lowered, key, concept.Display, concept.Variants) {
			codes[models.VocabICD10] = append(codes[models.VocabICD10], concept.ICD10...)
			codes[models.VocabSNOMED] = append(codes[models.VocabSNOMED], concept.SNOMED...)
		}
	}
	for key, lab := range m.catalog.LabTests {
		if matchesTerm(lowered, key, lab.Display, lab.Variants) {
			codes[models.VocabLOINC] = append(codes[models.VocabLOINC], lab.LOINC...)
		}
	}
	for key, med := range m.catalog.Medications {
		if matchesTerm(lowered, key, med.Display, med.Variants) {
			codes[models.VocabRxNorm] = append(codes[models.VocabRxNorm], med.RxNorm...)
		}
	}
	return codes
}

// AgeRange extracts an age window like "aged 40 to 75" from a criterion line.
func AgeRange(text string) (min, max int, ok bool) {
	groups := ageRangePattern.FindStringSubmatch(text)
	if groups == nil {
		return 0, 0, false
	}
	min, _ = strconv.Atoi(groups[1])
	max, _ = strconv.Atoi(groups[2])
	if min > max {
		min, max = max, min
	}
	return min, max, true
}

// ICD10Chapter maps a diagnosis code to the therapeutic-area bucket used for
// site experience lookups. Unknown prefixes map to the empty string.
func ICD10Chapter(code string) string {
	if code == "" {
		return ""
	}
	letter := code[0] &^ 0x20 // uppercase
	switch letter {
	case 'E':
		return "E10-E14" // endocrine and metabolic
	case 'I':
		return "I00-I99" // circulatory
	case 'C':
		return "C00-C97" // neoplasms
	case 'J':
		return "J00-J99" // respiratory
	case 'F', 'G':
		return "F00-F99" // mental, behavioral and neuro
	case 'N':
		return "N00-N99" // genitourinary
	default:
		return ""
	}
}

func matchesTerm(lowered, key, display string, variants []string) bool {
	if strings.Contains(lowered, strings.ToLower(key)) {
		return true
	}
	if display != "" && strings.Contains(lowered, strings.ToLower(display)) {
		return true
	}
	for _, v := range variants {
		if strings.Contains(lowered, strings.ToLower(v)) {
			return true
		}
	}
	return false
}

func emptyCodeSet() models.CodeSet {
	set := models.CodeSet{}
	for _, vocab := range models.Vocabularies {
		set[vocab] = nil
	}
	return set
}

func dedupe(set models.CodeSet) {
	for vocab, codes := range set {
		seen := make(map[string]bool, len(codes))
		var out []string
		for _, c := range codes {
			if !seen[c] {
				seen[c] = true
				out = append(out, c)
			}
		}
		set[vocab] = out
	}
}

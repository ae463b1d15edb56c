package terminology

import (
	"testing"

	"github.com/trialmatch-ai/platform/pkg/common/models"
)

func TestDefaultCatalogLookup(t *testing.T) {
	cat := DefaultCatalog()
	concept, ok := cat.LookupCondition("diabetes")
	if !ok {
		t.Fatal("expected diabetes concept in default catalog")
	}
	if len(concept.ICD10) == 0 {
		t.Error("expected ICD-10 codes for diabetes")
	}

	if _, ok := cat.LookupCondition("nonexistent disorder"); ok {
		t.Error("unexpected lookup hit for unknown condition")
	}
}

func TestMapTextConditions(t *testing.T) {
	m := NewMapper(DefaultCatalog())

	codes := m.MapText("Diagnosed with type 2 diabetes on metformin")
	if len(codes[models.VocabICD10]) == 0 {
		t.Error("expected ICD-10 codes for diabetes text")
	}
	if len(codes[models.VocabSNOMED]) == 0 {
		t.Error("expected SNOMED codes for diabetes text")
	}
	if len(codes[models.VocabRxNorm]) == 0 {
		t.Error("expected RxNorm codes for metformin mention")
	}
}

func TestMapCriteriaRoutesNegatedInclusion(t *testing.T) {
	m := NewMapper(DefaultCatalog())

	inclusion := []string{
		"Type 2 diabetes with HbA1c between 7 and 10",
		"No history of renal disease",
	}
	exclusion := []string{"Active cancer treatment"}

	inc, exc := m.MapCriteria(inclusion, exclusion)

	if len(inc[models.VocabLOINC]) == 0 {
		t.Error("expected LOINC codes from HbA1c requirement")
	}
	// "No history of renal disease" must land in the exclusion set.
	if !containsCode(exc[models.VocabICD10], "N18.6") {
		t.Errorf("expected renal disease code in exclusion set, got %v", exc[models.VocabICD10])
	}
	if containsCode(inc[models.VocabICD10], "N18.6") {
		t.Error("negated inclusion line leaked into inclusion set")
	}
	if !containsCode(exc[models.VocabICD10], "C50.9") {
		t.Errorf("expected cancer code in exclusion set, got %v", exc[models.VocabICD10])
	}
}

func TestMapCriteriaDeduplicates(t *testing.T) {
	m := NewMapper(DefaultCatalog())

	inc, _ := m.MapCriteria([]string{"diabetes", "diabetes mellitus"}, nil)
	seen := make(map[string]int)
	for _, c := range inc[models.VocabICD10] {
		seen[c]++
		if seen[c] > 1 {
			t.Fatalf("duplicate code %s in mapped set", c)
		}
	}
}

func TestAgeRange(t *testing.T) {
	cases := []struct {
		text     string
		min, max int
		ok       bool
	}{
		{"Aged 40 to 75 years", 40, 75, true},
		{"age between 18-65", 18, 65, true},
		{"adults 65 and older", 0, 0, false},
	}
	for _, tc := range cases {
		min, max, ok := AgeRange(tc.text)
		if ok != tc.ok || min != tc.min || max != tc.max {
			t.Errorf("AgeRange(%q) = (%d, %d, %v), want (%d, %d, %v)",
				tc.text, min, max, ok, tc.min, tc.max, tc.ok)
		}
	}
}

func TestICD10Chapter(t *testing.T) {
	cases := map[string]string{
		"E11.9":  "E10-E14",
		"I25.10": "I00-I99",
		"C50.9":  "C00-C97",
		"G30.9":  "F00-F99",
		"N18.6":  "N00-N99",
		"Z99.9":  "",
		"":       "",
	}
	for code, want := range cases {
		if got := ICD10Chapter(code); got != want {
			t.Errorf("ICD10Chapter(%q) = %q, want %q", code, got, want)
		}
	}
}

func containsCode(codes []string, code string) bool {
	for _, c := range codes {
		if c == code {
			return true
		}
	}
	return false
}

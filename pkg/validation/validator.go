package validation

import (
	"errors"
	"sort"
	"strings"

	"github.com/trialmatch-ai/platform/pkg/common/models"
)

// ErrNoExclusionCodes is returned when a trial arrives without a coded
// exclusion set. Validating against nothing would silently pass every
// patient, so the caller must decide how to proceed.
var ErrNoExclusionCodes = errors.New("trial has no exclusion code set")

// exclusionReasons maps well-known exclusion codes to clinician-readable
// labels. Codes outside the table fall back to a generic vocabulary label.
var exclusionReasons = map[string]string{
	"E11.21": "diabetic nephropathy",
	"E10.21": "diabetic kidney disease (Type 1)",
	"E11.31": "diabetic retinopathy",
	"E10.31": "diabetic retinopathy (Type 1)",
	"E11.22": "diabetic chronic kidney disease",
	"E11.42": "diabetic neuropathy",

	"I50.9": "heart failure",
	"I21.9": "recent myocardial infarction",

	"N18.6": "end-stage renal disease",
	"N18.5": "chronic kidney disease stage 5",

	"C50.9": "breast cancer",
	"C34.9": "lung cancer",

	"127013003": "diabetic nephropathy",
	"4855003":   "diabetic retinopathy",
}

// Validator screens scored matches against a trial's coded exclusion
// criteria. A match with any code intersection is excluded outright.
type Validator struct{}

func NewValidator() *Validator {
	return &Validator{}
}

// Validate checks every match against the exclusion set and returns
// per-patient results plus aggregate tallies. Validation is idempotent: the
// same inputs always produce the same summary.
func (v *Validator) Validate(matches []models.ScoredMatch, exclusionCodes models.CodeSet) (models.ValidationSummary, error) {
	if exclusionCodes == nil {
		return models.ValidationSummary{}, ErrNoExclusionCodes
	}

	summary := models.ValidationSummary{
		Results:          make([]models.ValidationResult, 0, len(matches)),
		ExclusionReasons: make(map[string]int),
	}

	for _, match := range matches {
		violations := checkExclusions(match.Codes, exclusionCodes)

		result := models.ValidationResult{
			PatientID:       match.PatientID,
			IsValid:         len(violations) == 0,
			Violations:      violations,
			ValidationScore: 1.0,
		}
		if !result.IsValid {
			result.ValidationScore = 0.0
			summary.TotalExcluded++
			for _, violation := range violations {
				summary.ExclusionReasons[violation.Reason]++
			}
		}
		summary.Results = append(summary.Results, result)
		summary.TotalValidated++
	}

	return summary, nil
}

// Valid filters matches down to those that passed validation, preserving
// score order.
func Valid(matches []models.ScoredMatch, summary models.ValidationSummary) []models.ScoredMatch {
	passed := make(map[string]bool, len(summary.Results))
	for _, r := range summary.Results {
		passed[r.PatientID] = r.IsValid
	}
	var out []models.ScoredMatch
	for _, m := range matches {
		if passed[m.PatientID] {
			out = append(out, m)
		}
	}
	return out
}

// checkExclusions intersects patient and exclusion codes within each
// vocabulary. Codes never cross vocabularies: an ICD-10 exclusion can only be
// violated by an ICD-10 patient code.
func checkExclusions(patientCodes, exclusionCodes models.CodeSet) []models.CodeViolation {
	var violations []models.CodeViolation

	for _, vocab := range models.Vocabularies {
		patientSet := toSet(patientCodes[vocab])
		if len(patientSet) == 0 {
			continue
		}

		var hits []string
		for _, code := range dedupe(exclusionCodes[vocab]) {
			if patientSet[code] {
				hits = append(hits, code)
			}
		}
		sort.Strings(hits)

		for _, code := range hits {
			reason, ok := exclusionReasons[code]
			if !ok {
				reason = "excluded " + strings.ToUpper(vocab) + " code"
			}
			violations = append(violations, models.CodeViolation{
				Code:       code,
				Vocabulary: strings.ToUpper(vocab),
				Reason:     reason,
			})
		}
	}
	return violations
}

func toSet(codes []string) map[string]bool {
	set := make(map[string]bool, len(codes))
	for _, c := range codes {
		set[c] = true
	}
	return set
}

func dedupe(codes []string) []string {
	seen := make(map[string]bool, len(codes))
	var out []string
	for _, c := range codes {
		if !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	return out
}

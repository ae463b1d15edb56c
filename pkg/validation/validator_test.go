package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trialmatch-ai/platform/pkg/common/models"
)

func TestValidateFlagsViolations(t *testing.T) {
	matches := []models.ScoredMatch{
		{
			PatientID: "clean",
			Codes:     models.CodeSet{models.VocabICD10: {"E11.9"}},
		},
		{
			PatientID: "nephropathy",
			Codes:     models.CodeSet{models.VocabICD10: {"E11.9", "E11.21"}},
		},
	}
	exclusion := models.CodeSet{models.VocabICD10: {"E11.21", "N18.6"}}

	summary, err := NewValidator().Validate(matches, exclusion)
	require.NoError(t, err)

	assert.Equal(t, 2, summary.TotalValidated)
	assert.Equal(t, 1, summary.TotalExcluded)
	assert.Equal(t, 1, summary.ExclusionReasons["diabetic nephropathy"])

	require.Len(t, summary.Results, 2)
	assert.True(t, summary.Results[0].IsValid)
	assert.InDelta(t, 1.0, summary.Results[0].ValidationScore, 1e-9)

	excluded := summary.Results[1]
	assert.False(t, excluded.IsValid)
	assert.InDelta(t, 0.0, excluded.ValidationScore, 1e-9)
	require.Len(t, excluded.Violations, 1)
	assert.Equal(t, "E11.21", excluded.Violations[0].Code)
	assert.Equal(t, "ICD10", excluded.Violations[0].Vocabulary)
	assert.Equal(t, "diabetic nephropathy", excluded.Violations[0].Reason)
}

func TestValidateVocabulariesDoNotCross(t *testing.T) {
	// The same code string in a different vocabulary must not trigger an
	// exclusion.
	matches := []models.ScoredMatch{
		{PatientID: "p", Codes: models.CodeSet{models.VocabSNOMED: {"E11.21"}}},
	}
	exclusion := models.CodeSet{models.VocabICD10: {"E11.21"}}

	summary, err := NewValidator().Validate(matches, exclusion)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.TotalExcluded)
	assert.True(t, summary.Results[0].IsValid)
}

func TestValidateUnknownCodeFallbackReason(t *testing.T) {
	matches := []models.ScoredMatch{
		{PatientID: "p", Codes: models.CodeSet{models.VocabRxNorm: {"99999"}}},
	}
	exclusion := models.CodeSet{models.VocabRxNorm: {"99999"}}

	summary, err := NewValidator().Validate(matches, exclusion)
	require.NoError(t, err)
	require.Len(t, summary.Results[0].Violations, 1)
	assert.Equal(t, "excluded RXNORM code", summary.Results[0].Violations[0].Reason)
}

func TestValidateDuplicateCodesCountOnce(t *testing.T) {
	matches := []models.ScoredMatch{
		{PatientID: "p", Codes: models.CodeSet{models.VocabICD10: {"N18.6", "N18.6"}}},
	}
	exclusion := models.CodeSet{models.VocabICD10: {"N18.6", "N18.6"}}

	summary, err := NewValidator().Validate(matches, exclusion)
	require.NoError(t, err)
	assert.Len(t, summary.Results[0].Violations, 1)
	assert.Equal(t, 1, summary.ExclusionReasons["end-stage renal disease"])
}

func TestValidateIsIdempotent(t *testing.T) {
	matches := []models.ScoredMatch{
		{PatientID: "a", Codes: models.CodeSet{models.VocabICD10: {"I50.9"}}},
		{PatientID: "b", Codes: models.CodeSet{models.VocabICD10: {"E11.9"}}},
	}
	exclusion := models.CodeSet{models.VocabICD10: {"I50.9"}}

	v := NewValidator()
	first, err := v.Validate(matches, exclusion)
	require.NoError(t, err)
	second, err := v.Validate(matches, exclusion)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestValidateNilExclusionSet(t *testing.T) {
	_, err := NewValidator().Validate(nil, nil)
	assert.ErrorIs(t, err, ErrNoExclusionCodes)
}

func TestValidateEmptyExclusionSetPassesAll(t *testing.T) {
	matches := []models.ScoredMatch{
		{PatientID: "p", Codes: models.CodeSet{models.VocabICD10: {"E11.21"}}},
	}
	summary, err := NewValidator().Validate(matches, models.CodeSet{})
	require.NoError(t, err)
	assert.Equal(t, 0, summary.TotalExcluded)
}

func TestValidFilter(t *testing.T) {
	matches := []models.ScoredMatch{
		{PatientID: "keep", OverallScore: 0.9, Codes: models.CodeSet{}},
		{PatientID: "drop", OverallScore: 0.8, Codes: models.CodeSet{models.VocabICD10: {"C34.9"}}},
	}
	summary, err := NewValidator().Validate(matches, models.CodeSet{models.VocabICD10: {"C34.9"}})
	require.NoError(t, err)

	kept := Valid(matches, summary)
	require.Len(t, kept, 1)
	assert.Equal(t, "keep", kept[0].PatientID)
}

package pipeline

import (
	"context"

	"github.com/trialmatch-ai/platform/pkg/common/models"
)

// Stage dependencies are injected at construction so each one can be swapped
// independently in tests or replaced by a remote implementation later.

// DataSource supplies the patient population to match against.
type DataSource interface {
	Patients(ctx context.Context) ([]models.PatientRecord, error)
}

// PatternSource supplies the latest completed discovery run.
type PatternSource interface {
	Get() *models.DiscoveryResult
}

// PatternRanker orders discovered patterns by their promise for a trial.
type PatternRanker interface {
	RankForTrial(result *models.DiscoveryResult, trial models.TrialCriteria) []models.RankedPattern
}

// CandidateFinder samples candidate patients from the top-ranked patterns.
type CandidateFinder interface {
	FindCandidates(patients []models.PatientRecord, result *models.DiscoveryResult, ranked []models.RankedPattern, trial models.TrialCriteria) []models.Candidate
}

// MatchScorer scores candidates against the trial.
type MatchScorer interface {
	Score(candidates []models.Candidate, patterns []models.RankedPattern, trial models.TrialCriteria) []models.ScoredMatch
}

// ExclusionValidator screens matches against coded exclusion criteria.
type ExclusionValidator interface {
	Validate(matches []models.ScoredMatch, exclusionCodes models.CodeSet) (models.ValidationSummary, error)
}

// SitePlanner recommends trial sites and assigns patients to them.
type SitePlanner interface {
	Recommend(trial models.TrialCriteria, matches []models.ScoredMatch) models.SiteRecommendations
}

// EnrollmentForecaster projects the enrollment timeline.
type EnrollmentForecaster interface {
	Forecast(trial models.TrialCriteria, matches []models.ScoredMatch, patterns []models.RankedPattern, siteCount int) models.Forecast
}

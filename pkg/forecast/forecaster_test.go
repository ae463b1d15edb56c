package forecast

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trialmatch-ai/platform/pkg/common/models"
)

func rankedPatterns(rates ...float64) []models.RankedPattern {
	var out []models.RankedPattern
	for i, r := range rates {
		out = append(out, models.RankedPattern{
			Pattern: models.Pattern{PatternID: fmt.Sprintf("pattern_%d", i), SuccessRate: r},
		})
	}
	return out
}

func matchesWithScores(scores ...float64) []models.ScoredMatch {
	var out []models.ScoredMatch
	for i, s := range scores {
		out = append(out, models.ScoredMatch{PatientID: fmt.Sprintf("p%d", i), OverallScore: s})
	}
	return out
}

func TestForecastRateAndTimeline(t *testing.T) {
	trial := models.TrialCriteria{TrialID: "T-1", TargetEnrollment: 100}
	patterns := rankedPatterns(0.9, 0.8, 0.7)
	matches := matchesWithScores(0.9, 0.85, 0.6, 0.4)

	fc := NewForecaster(2.5).Forecast(trial, matches, patterns, 5)

	// 5 sites * 2.5 * 0.8 average success.
	assert.InDelta(t, 10.0, fc.WeeklyRate, 1e-9)
	assert.InDelta(t, 10.0, fc.EstimatedWeeks, 1e-9)
	// Pool limit: 4 eligible * 0.8 = 3 enrolled.
	assert.Equal(t, 3, fc.PredictedEnrollment)
	assert.LessOrEqual(t, fc.PredictedEnrollment, trial.TargetEnrollment)

	require.Len(t, fc.Milestones, 4)
	assert.InDelta(t, 2.5, fc.Milestones[0].Week, 1e-9)
	assert.Equal(t, 25, fc.Milestones[0].Percent)
	assert.Equal(t, 3, fc.Milestones[3].Enrollment)

	assert.Equal(t, 3, fc.PatternAnalysis.PatternsUsed)
	assert.InDelta(t, 0.8, fc.PatternAnalysis.AverageSuccessRate, 1e-9)
	assert.InDelta(t, 0.9, fc.PatternAnalysis.BestSuccessRate, 1e-9)
	assert.InDelta(t, 0.7, fc.PatternAnalysis.WorstSuccessRate, 1e-9)
	assert.Equal(t, 2, fc.PatternAnalysis.HighScoreCandidates)
}

func TestForecastWeekClamps(t *testing.T) {
	trial := models.TrialCriteria{TargetEnrollment: 10}
	patterns := rankedPatterns(0.9)

	// Huge capacity: timeline clamps to the minimum.
	fast := NewForecaster(2.5).Forecast(trial, matchesWithScores(0.9), patterns, 50)
	assert.InDelta(t, 4.0, fast.EstimatedWeeks, 1e-9)

	// Tiny capacity: timeline clamps to the maximum.
	trial.TargetEnrollment = 10000
	slow := NewForecaster(2.5).Forecast(trial, matchesWithScores(0.9), patterns, 1)
	assert.InDelta(t, 104.0, slow.EstimatedWeeks, 1e-9)

	// No sites: rate is zero and the default year-long timeline applies.
	none := NewForecaster(2.5).Forecast(models.TrialCriteria{TargetEnrollment: 100}, nil, patterns, 0)
	assert.InDelta(t, 0.0, none.WeeklyRate, 1e-9)
	assert.InDelta(t, 52.0, none.EstimatedWeeks, 1e-9)
	assert.Equal(t, 0, none.PredictedEnrollment)
}

func TestForecastNoPatternsUsesDefaultRate(t *testing.T) {
	trial := models.TrialCriteria{TargetEnrollment: 100}
	fc := NewForecaster(2.5).Forecast(trial, nil, nil, 4)

	assert.InDelta(t, 0.75, fc.PatternAnalysis.AverageSuccessRate, 1e-9)
	// 4 * 2.5 * 0.75
	assert.InDelta(t, 7.5, fc.WeeklyRate, 1e-9)
	// Empty pool caps predicted enrollment at zero.
	assert.Equal(t, 0, fc.PredictedEnrollment)
}

func TestForecastConfidence(t *testing.T) {
	trial := models.TrialCriteria{TargetEnrollment: 2}
	patterns := rankedPatterns(0.9)
	matches := matchesWithScores(0.9, 0.9)

	fc := NewForecaster(2.5).Forecast(trial, matches, patterns, 5)
	// 0.3*1.0 (pool) + 0.3*0.9 (success) + 0.2*1.0 (high ratio) + 0.2*1.0 (sites)
	assert.InDelta(t, 0.97, fc.Confidence, 1e-9)
	assert.LessOrEqual(t, fc.Confidence, 1.0)
}

func TestForecastRisksAndRecommendations(t *testing.T) {
	trial := models.TrialCriteria{TargetEnrollment: 500}
	patterns := rankedPatterns(0.6)
	matches := matchesWithScores(0.4, 0.3)

	fc := NewForecaster(2.5).Forecast(trial, matches, patterns, 2)

	assert.NotEmpty(t, fc.RiskFactors)
	assert.LessOrEqual(t, len(fc.RiskFactors), 5)
	assert.Contains(t, fc.RiskFactors, "Limited patient pool: 2 eligible vs 500 target")
	assert.Contains(t, fc.RiskFactors, "Few sites: Only 2 recommended sites")

	assert.NotEmpty(t, fc.Recommendations)
	assert.LessOrEqual(t, len(fc.Recommendations), 5)
	assert.Contains(t, fc.Recommendations, "Broaden eligibility criteria to increase patient pool")
}

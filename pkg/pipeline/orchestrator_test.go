package pipeline

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trialmatch-ai/platform/pkg/common/logger"
	"github.com/trialmatch-ai/platform/pkg/common/models"
	"github.com/trialmatch-ai/platform/pkg/discovery"
	"github.com/trialmatch-ai/platform/pkg/forecast"
	"github.com/trialmatch-ai/platform/pkg/matching"
	"github.com/trialmatch-ai/platform/pkg/pattern"
	"github.com/trialmatch-ai/platform/pkg/sites"
	"github.com/trialmatch-ai/platform/pkg/validation"
)

func TestMain(m *testing.M) {
	logger.Init()
	os.Exit(m.Run())
}

type sliceSource struct {
	patients []models.PatientRecord
	err      error
	delay    time.Duration
}

func (s *sliceSource) Patients(ctx context.Context) ([]models.PatientRecord, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return s.patients, s.err
}

type fixedPatterns struct {
	result *models.DiscoveryResult
}

func (f *fixedPatterns) Get() *models.DiscoveryResult { return f.result }

type slowRanker struct {
	delay time.Duration
}

func (r *slowRanker) RankForTrial(*models.DiscoveryResult, models.TrialCriteria) []models.RankedPattern {
	time.Sleep(r.delay)
	return nil
}

// cohortFixture builds three diabetes cohorts assigned to three patterns.
// A handful of patients in the first cohort carry an excludable complication
// code.
func cohortFixture() ([]models.PatientRecord, *models.DiscoveryResult) {
	result := &models.DiscoveryResult{
		RunID:      "run-e2e",
		Assignment: make(map[string]string),
		Embeddings: make(map[string][]float64),
	}

	groups := []struct {
		patternID string
		size      int
		rate      float64
	}{
		{"pattern_0", 60, 0.9},
		{"pattern_1", 50, 0.8},
		{"pattern_2", 40, 0.7},
	}

	var patients []models.PatientRecord
	for gi, g := range groups {
		confidence := (g.rate - 0.5) / 0.45
		result.Patterns = append(result.Patterns, models.Pattern{
			PatternID:   g.patternID,
			Size:        g.size,
			Centroid:    []float64{1, 0, 0},
			Confidence:  confidence,
			SuccessRate: g.rate,
		})

		for i := 0; i < g.size; i++ {
			id := fmt.Sprintf("g%d-p%03d", gi, i)
			codes := models.CodeSet{models.VocabICD10: {"E11.9"}}
			if gi == 0 && i < 5 {
				codes[models.VocabICD10] = append(codes[models.VocabICD10], "E11.21")
			}
			patients = append(patients, models.PatientRecord{
				PatientID:        id,
				Age:              45 + i%20,
				Sex:              "F",
				PrimaryCondition: "diabetes",
				LabValues:        map[string]float64{"hba1c": 8.0},
				Latitude:         39.0 + float64(gi),
				Longitude:        -77.0 - float64(gi),
				Codes:            codes,
			})
			result.Assignment[id] = g.patternID
			result.Embeddings[id] = []float64{1, 0, 0}
		}
	}
	result.TotalPatients = len(patients)
	result.Clustered = len(patients)
	return patients, result
}

func diabetesTrial() models.TrialCriteria {
	return models.TrialCriteria{
		TrialID:          "T-E2E",
		AgeMin:           18,
		AgeMax:           75,
		Conditions:       []string{"diabetes"},
		TargetEnrollment: 100,
		LabRequirements:  map[string]models.LabRange{"hba1c": {Min: 7.0, Max: 10.0}},
		InclusionCodes: models.CodeSet{
			models.VocabICD10: {"E11.9"},
			models.VocabLOINC: {"4548-4"},
		},
		ExclusionCodes: models.CodeSet{
			models.VocabICD10: {"E11.21"},
		},
	}
}

func realDeps(patients []models.PatientRecord, result *models.DiscoveryResult) Deps {
	return Deps{
		Data:       &sliceSource{patients: patients},
		Patterns:   &fixedPatterns{result: result},
		Ranker:     pattern.NewMatcher(),
		Finder:     discovery.NewFinder(1000),
		Scorer:     matching.NewScorer(),
		Validator:  validation.NewValidator(),
		Planner:    sites.NewPlanner(sites.DefaultSites(), 10),
		Forecaster: forecast.NewForecaster(2.5),
	}
}

func TestPipelineEndToEnd(t *testing.T) {
	patients, discoveryResult := cohortFixture()
	p := New(realDeps(patients, discoveryResult), 10*time.Second)

	result := p.Run(context.Background(), diabetesTrial())

	require.Equal(t, StatusSuccess, result.Status)
	assert.Empty(t, result.Error)
	assert.NotEmpty(t, result.Matches)
	assert.Equal(t, len(result.Matches), result.TotalMatches)

	// Patients carrying the excluded complication code never reach the output.
	for _, m := range result.Matches {
		for _, code := range m.Codes[models.VocabICD10] {
			assert.NotEqual(t, "E11.21", code)
		}
	}
	assert.Equal(t, 5, result.Validation.TotalExcluded)
	assert.Equal(t, 1, len(result.Validation.ExclusionReasons))

	// Matches come back ordered by score.
	for i := 1; i < len(result.Matches); i++ {
		assert.GreaterOrEqual(t, result.Matches[i-1].OverallScore, result.Matches[i].OverallScore)
	}
	assert.Equal(t, result.TotalMatches, result.Distribution.High+result.Distribution.Medium+result.Distribution.Low)

	assert.NotEmpty(t, result.Sites)
	assert.LessOrEqual(t, len(result.Sites), 10)

	assert.Greater(t, result.Forecast.WeeklyRate, 0.0)
	assert.LessOrEqual(t, result.Forecast.PredictedEnrollment, 100)
	assert.GreaterOrEqual(t, result.Forecast.EstimatedWeeks, 4.0)
	assert.LessOrEqual(t, result.Forecast.EstimatedWeeks, 104.0)

	assert.Len(t, result.StagesCompleted, 7)
	assert.Greater(t, result.ProcessingTime, time.Duration(0))
}

func TestPipelineNoPatientsIsFatal(t *testing.T) {
	_, discoveryResult := cohortFixture()
	deps := realDeps(nil, discoveryResult)
	deps.Data = &sliceSource{patients: nil}

	result := New(deps, time.Second).Run(context.Background(), diabetesTrial())
	assert.Equal(t, StatusError, result.Status)
	assert.Contains(t, result.Error, "patient data unavailable")
	assert.Empty(t, result.Matches)
}

func TestPipelineDataTimeoutIsFatal(t *testing.T) {
	patients, discoveryResult := cohortFixture()
	deps := realDeps(patients, discoveryResult)
	deps.Data = &sliceSource{patients: patients, delay: 500 * time.Millisecond}

	result := New(deps, 50*time.Millisecond).Run(context.Background(), diabetesTrial())
	assert.Equal(t, StatusError, result.Status)
	require.NotEmpty(t, result.Stages)
	assert.True(t, result.Stages[0].TimedOut)
}

func TestPipelineNoPatternsIsFatal(t *testing.T) {
	patients, _ := cohortFixture()
	deps := realDeps(patients, nil)

	result := New(deps, time.Second).Run(context.Background(), diabetesTrial())
	assert.Equal(t, StatusError, result.Status)
	assert.Contains(t, result.Error, "no discovered patterns")
}

func TestPipelineStageTimeoutDegradesGracefully(t *testing.T) {
	patients, discoveryResult := cohortFixture()
	deps := realDeps(patients, discoveryResult)
	deps.Ranker = &slowRanker{delay: 300 * time.Millisecond}

	result := New(deps, 100*time.Millisecond).Run(context.Background(), diabetesTrial())

	// Ranking timed out, so no matches exist, but the pipeline still finishes
	// with stage metadata intact.
	require.Equal(t, StatusSuccess, result.Status)
	assert.Empty(t, result.Matches)

	var rankTiming *models.StageTiming
	for i := range result.Stages {
		if result.Stages[i].Stage == "rank_patterns" {
			rankTiming = &result.Stages[i]
		}
	}
	require.NotNil(t, rankTiming)
	assert.True(t, rankTiming.TimedOut)
	assert.NotContains(t, result.StagesCompleted, "rank_patterns")
}

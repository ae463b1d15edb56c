package pipeline

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/trialmatch-ai/platform/pkg/common/logger"
	"github.com/trialmatch-ai/platform/pkg/common/models"
	"github.com/trialmatch-ai/platform/pkg/matching"
)

const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Deps are the stage implementations a pipeline runs.
type Deps struct {
	Data       DataSource
	Patterns   PatternSource
	Ranker     PatternRanker
	Finder     CandidateFinder
	Scorer     MatchScorer
	Validator  ExclusionValidator
	Planner    SitePlanner
	Forecaster EnrollmentForecaster
}

// Pipeline runs the matching cascade for one trial: load the population,
// rank patterns, sample candidates, score, validate exclusions, plan sites,
// and forecast enrollment.
//
// Only missing input data is fatal. A stage that times out or fails mid-cascade
// contributes an empty result and the remaining stages still run, so a partial
// answer with stage metadata always comes back.
type Pipeline struct {
	deps         Deps
	stageTimeout time.Duration
}

func New(deps Deps, stageTimeout time.Duration) *Pipeline {
	if stageTimeout <= 0 {
		stageTimeout = 30 * time.Second
	}
	return &Pipeline{deps: deps, stageTimeout: stageTimeout}
}

// Run executes the cascade and always returns a result; the Status and Error
// fields carry the outcome.
func (p *Pipeline) Run(ctx context.Context, trial models.TrialCriteria) *models.PipelineResult {
	start := time.Now()
	result := &models.PipelineResult{
		TrialID: trial.TrialID,
		Status:  StatusSuccess,
		Matches: []models.ScoredMatch{},
	}

	patients, timing := runStage(ctx, "load_patients", p.stageTimeout, func(ctx context.Context) ([]models.PatientRecord, error) {
		return p.deps.Data.Patients(ctx)
	})
	record(result, timing)
	if timing.Error != "" || len(patients) == 0 {
		return p.fail(result, start, &StageError{Stage: "load_patients", Err: ErrDataUnavailable})
	}

	discovery := p.deps.Patterns.Get()
	if discovery == nil {
		return p.fail(result, start, &StageError{Stage: "rank_patterns", Err: ErrNoPatterns})
	}

	ranked, timing := runStage(ctx, "rank_patterns", p.stageTimeout, func(ctx context.Context) ([]models.RankedPattern, error) {
		return p.deps.Ranker.RankForTrial(discovery, trial), nil
	})
	record(result, timing)

	candidates, timing := runStage(ctx, "find_candidates", p.stageTimeout, func(ctx context.Context) ([]models.Candidate, error) {
		return p.deps.Finder.FindCandidates(patients, discovery, ranked, trial), nil
	})
	record(result, timing)

	matches, timing := runStage(ctx, "score_matches", p.stageTimeout, func(ctx context.Context) ([]models.ScoredMatch, error) {
		return p.deps.Scorer.Score(candidates, ranked, trial), nil
	})
	record(result, timing)

	validation, timing := runStage(ctx, "validate_exclusions", p.stageTimeout, func(ctx context.Context) (models.ValidationSummary, error) {
		return p.deps.Validator.Validate(matches, trial.ExclusionCodes)
	})
	record(result, timing)
	if timing.Error == "" {
		result.Validation = validation
		matches = filterValid(matches, validation)
	}

	recommendations, timing := runStage(ctx, "recommend_sites", p.stageTimeout, func(ctx context.Context) (models.SiteRecommendations, error) {
		return p.deps.Planner.Recommend(trial, matches), nil
	})
	record(result, timing)

	enrollmentForecast, timing := runStage(ctx, "forecast_enrollment", p.stageTimeout, func(ctx context.Context) (models.Forecast, error) {
		return p.deps.Forecaster.Forecast(trial, matches, ranked, len(recommendations.Sites)), nil
	})
	record(result, timing)

	result.Matches = matches
	result.TotalMatches = len(matches)
	result.Distribution = matching.Distribution(matches)
	result.Sites = recommendations.Sites
	result.CoveragePercent = recommendations.CoveragePercent
	result.Forecast = enrollmentForecast
	result.ProcessingTime = time.Since(start)

	logger.WithFields(logrus.Fields{
		"trial_id":   trial.TrialID,
		"matches":    result.TotalMatches,
		"sites":      len(result.Sites),
		"duration":   result.ProcessingTime.String(),
		"stages_run": len(result.StagesCompleted),
	}).Info("Matching pipeline complete")

	return result
}

func (p *Pipeline) fail(result *models.PipelineResult, start time.Time, err error) *models.PipelineResult {
	result.Status = StatusError
	result.Error = err.Error()
	result.ProcessingTime = time.Since(start)

	logger.WithField("trial_id", result.TrialID).WithError(err).Error("Matching pipeline failed")
	return result
}

type stageOutcome[T any] struct {
	value T
	err   error
}

// runStage executes fn under the stage time budget. On timeout the zero value
// comes back with the timing marked, and the stage goroutine is left to drain
// on its own.
func runStage[T any](ctx context.Context, name string, timeout time.Duration, fn func(context.Context) (T, error)) (T, models.StageTiming) {
	stageCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	start := time.Now()
	outcome := make(chan stageOutcome[T], 1)
	go func() {
		value, err := fn(stageCtx)
		outcome <- stageOutcome[T]{value: value, err: err}
	}()

	timing := models.StageTiming{Stage: name}
	select {
	case got := <-outcome:
		timing.Duration = time.Since(start)
		if got.err != nil {
			timing.Error = got.err.Error()
			if errors.Is(got.err, context.DeadlineExceeded) {
				timing.TimedOut = true
			}
		}
		return got.value, timing
	case <-stageCtx.Done():
		timing.Duration = time.Since(start)
		timing.TimedOut = true
		timing.Error = ErrStageTimeout.Error()
		var zero T
		return zero, timing
	}
}

func record(result *models.PipelineResult, timing models.StageTiming) {
	result.Stages = append(result.Stages, timing)
	if timing.Error == "" {
		result.StagesCompleted = append(result.StagesCompleted, timing.Stage)
	}
}

func filterValid(matches []models.ScoredMatch, summary models.ValidationSummary) []models.ScoredMatch {
	passed := make(map[string]bool, len(summary.Results))
	for _, r := range summary.Results {
		passed[r.PatientID] = r.IsValid
	}
	out := make([]models.ScoredMatch, 0, len(matches))
	for _, m := range matches {
		if passed[m.PatientID] {
			out = append(out, m)
		}
	}
	return out
}

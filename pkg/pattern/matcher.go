package pattern

import (
	"math/rand"
	"sort"

	"github.com/trialmatch-ai/platform/pkg/common/models"
	"github.com/trialmatch-ai/platform/pkg/embedding"
)

// Similarity assigned when a pattern centroid or trial vector cannot be
// compared, keeping unmatched patterns mid-field rather than at the bottom.
const neutralSimilarity = 0.7

// Ranking weights: proven enrollment behavior dominates, cohesion and sheer
// population size follow.
const (
	weightSuccess    = 0.4
	weightConfidence = 0.3
	weightSize       = 0.2
	sizeSaturation   = 1000.0
)

// Matcher ranks discovered patterns by their promise for a given trial.
type Matcher struct {
	builder     *embedding.Builder
	topPatterns int
	jitter      float64
	seed        int64
}

type MatcherOption func(*Matcher)

func WithTopPatterns(n int) MatcherOption {
	return func(m *Matcher) { m.topPatterns = n }
}

// WithJitter adds a small seeded random term to each score to diversify
// ranking between runs. Zero keeps ranking fully deterministic.
func WithJitter(amplitude float64, seed int64) MatcherOption {
	return func(m *Matcher) {
		m.jitter = amplitude
		m.seed = seed
	}
}

func NewMatcher(opts ...MatcherOption) *Matcher {
	m := &Matcher{
		builder:     embedding.NewBuilder(),
		topPatterns: 20,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// RankForTrial scores every discovered pattern against the trial and returns
// the top patterns in descending score order. Ties break on pattern id so the
// ordering is stable across runs.
func (m *Matcher) RankForTrial(result *models.DiscoveryResult, trial models.TrialCriteria) []models.RankedPattern {
	if result == nil || len(result.Patterns) == 0 {
		return nil
	}

	var rng *rand.Rand
	if m.jitter > 0 {
		rng = rand.New(rand.NewSource(m.seed))
	}
	trialVec := m.builder.BuildTrial(trial)

	ranked := make([]models.RankedPattern, 0, len(result.Patterns))
	for _, p := range result.Patterns {
		sizeTerm := float64(p.Size) / sizeSaturation
		if sizeTerm > 1 {
			sizeTerm = 1
		}
		score := weightSuccess*p.SuccessRate + weightConfidence*p.Confidence + weightSize*sizeTerm
		if rng != nil {
			score += m.jitter * rng.Float64()
		}

		ranked = append(ranked, models.RankedPattern{
			Pattern:         p,
			MatchScore:      score,
			TrialSimilarity: trialSimilarity(trialVec, p.Centroid),
		})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].MatchScore != ranked[j].MatchScore {
			return ranked[i].MatchScore > ranked[j].MatchScore
		}
		return ranked[i].PatternID < ranked[j].PatternID
	})

	if len(ranked) > m.topPatterns {
		ranked = ranked[:m.topPatterns]
	}
	return ranked
}

// trialSimilarity compares the trial vector against a pattern centroid over
// their shared leading dimensions, rescaled from [-1, 1] to [0, 1].
func trialSimilarity(trialVec, centroid []float64) float64 {
	n := len(centroid)
	if len(trialVec) < n {
		n = len(trialVec)
	}
	cos, ok := embedding.Cosine(embedding.Truncate(trialVec, n), embedding.Truncate(centroid, n))
	if !ok {
		return neutralSimilarity
	}
	return (cos + 1) / 2
}

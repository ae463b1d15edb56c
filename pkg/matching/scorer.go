package matching

import (
	"fmt"
	"sort"

	"github.com/trialmatch-ai/platform/pkg/common/models"
	"github.com/trialmatch-ai/platform/pkg/embedding"
)

const (
	weightEligibility = 0.4
	weightSimilarity  = 0.3
	weightEnrollment  = 0.3

	agePenalty     = 0.5
	labPenalty     = 0.8
	eligibilityMin = 0.1

	// Applied when a candidate or pattern has no usable embedding.
	neutralSimilarity = 0.7
	// Applied when a candidate's pattern is unknown.
	defaultEnrollmentProbability = 0.75

	similarityDims = 50
	maxReasons     = 4
	maxRisks       = 3
)

// Scorer turns candidates into ranked matches with per-dimension sub-scores
// and human-readable reasons.
type Scorer struct{}

func NewScorer() *Scorer {
	return &Scorer{}
}

// Score evaluates each candidate against the trial and returns matches sorted
// by overall score descending.
func (s *Scorer) Score(candidates []models.Candidate, patterns []models.RankedPattern, trial models.TrialCriteria) []models.ScoredMatch {
	byID := make(map[string]models.RankedPattern, len(patterns))
	for _, p := range patterns {
		byID[p.PatternID] = p
	}

	matches := make([]models.ScoredMatch, 0, len(candidates))
	for _, c := range candidates {
		pattern, known := byID[c.PatternID]

		eligibility := eligibilityScore(c, trial)
		similarity := similarityScore(c.Embedding, pattern.Centroid)
		enrollment := defaultEnrollmentProbability
		if known {
			enrollment = pattern.SuccessRate
		}

		matches = append(matches, models.ScoredMatch{
			PatientID:             c.PatientID,
			PatternID:             c.PatternID,
			OverallScore:          weightEligibility*eligibility + weightSimilarity*similarity + weightEnrollment*enrollment,
			EligibilityScore:      eligibility,
			SimilarityScore:       similarity,
			EnrollmentProbability: enrollment,
			MatchReasons:          matchReasons(c, pattern),
			RiskFactors:           riskFactors(c, trial),
			Latitude:              c.Latitude,
			Longitude:             c.Longitude,
			Codes:                 c.Codes,
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].OverallScore > matches[j].OverallScore
	})
	return matches
}

// eligibilityScore starts from a perfect score and multiplies in penalties for
// each violated requirement. Labs the patient has no reading for are not
// penalized.
func eligibilityScore(c models.Candidate, trial models.TrialCriteria) float64 {
	score := 1.0

	if c.Age < trial.AgeMin || c.Age > trial.AgeMax {
		score *= agePenalty
	}
	for name, want := range trial.LabRequirements {
		value, ok := c.LabValues[name]
		if !ok {
			continue
		}
		if value < want.Min || value > want.Max {
			score *= labPenalty
		}
	}

	if score < eligibilityMin {
		return eligibilityMin
	}
	return score
}

// similarityScore compares the candidate embedding to its pattern centroid
// over the leading dimensions, rescaled from [-1, 1] to [0, 1].
func similarityScore(candidate, centroid []float64) float64 {
	cos, ok := embedding.Cosine(
		embedding.Truncate(candidate, similarityDims),
		embedding.Truncate(centroid, similarityDims),
	)
	if !ok {
		return neutralSimilarity
	}
	return (cos + 1) / 2
}

func matchReasons(c models.Candidate, pattern models.RankedPattern) []string {
	var reasons []string
	if c.Age > 0 {
		reasons = append(reasons, fmt.Sprintf("Age %d fits trial criteria", c.Age))
	}
	if c.PrimaryCondition != "" {
		reasons = append(reasons, fmt.Sprintf("Has %s diagnosis", c.PrimaryCondition))
	}
	if c.EnrollmentHistory > 0 {
		reasons = append(reasons, fmt.Sprintf("Previous trial experience (%d trials)", c.EnrollmentHistory))
	}
	if pattern.SuccessRate > 0.8 {
		reasons = append(reasons, fmt.Sprintf("Similar patients have %.0f%% success rate", pattern.SuccessRate*100))
	}
	if len(reasons) > maxReasons {
		reasons = reasons[:maxReasons]
	}
	return reasons
}

func riskFactors(c models.Candidate, trial models.TrialCriteria) []string {
	var risks []string
	if trial.AgeMax > 0 && c.Age > trial.AgeMax-5 {
		risks = append(risks, "Age near upper limit")
	}
	if c.EnrollmentHistory == 0 {
		risks = append(risks, "No previous trial experience")
	}
	if len(c.Medications) > 5 {
		risks = append(risks, "Multiple medications may affect eligibility")
	}
	if len(risks) > maxRisks {
		risks = risks[:maxRisks]
	}
	return risks
}

// Distribution buckets matches by overall score.
func Distribution(matches []models.ScoredMatch) models.ScoreDistribution {
	var dist models.ScoreDistribution
	if len(matches) == 0 {
		return dist
	}

	var total float64
	for _, m := range matches {
		total += m.OverallScore
		switch {
		case m.OverallScore >= 0.8:
			dist.High++
		case m.OverallScore >= 0.5:
			dist.Medium++
		default:
			dist.Low++
		}
	}
	dist.Average = total / float64(len(matches))
	return dist
}

package forecast

import (
	"fmt"

	"github.com/trialmatch-ai/platform/pkg/common/models"
)

const (
	defaultSuccessRate = 0.75

	minWeeks     = 4.0
	maxWeeks     = 104.0
	defaultWeeks = 52.0

	highScoreThreshold = 0.8
	optimalSiteCount   = 5.0

	maxRiskFactors     = 5
	maxRecommendations = 5
)

// Forecaster projects an enrollment timeline from the validated matches, the
// patterns they came from, and the recommended sites.
type Forecaster struct {
	patientsPerSiteWeek float64
}

func NewForecaster(patientsPerSiteWeek float64) *Forecaster {
	if patientsPerSiteWeek <= 0 {
		patientsPerSiteWeek = 2.5
	}
	return &Forecaster{patientsPerSiteWeek: patientsPerSiteWeek}
}

// Forecast predicts weekly enrollment rate, timeline, milestones, and a
// confidence estimate. Predicted enrollment never exceeds the target or what
// the eligible pool can plausibly yield.
func (f *Forecaster) Forecast(
	trial models.TrialCriteria,
	matches []models.ScoredMatch,
	patterns []models.RankedPattern,
	siteCount int,
) models.Forecast {
	avgSuccess, bestSuccess, worstSuccess := successRates(patterns)

	eligible := len(matches)
	highScore := 0
	for _, m := range matches {
		if m.OverallScore >= highScoreThreshold {
			highScore++
		}
	}

	target := trial.TargetEnrollment
	weeklyRate := float64(siteCount) * f.patientsPerSiteWeek * avgSuccess

	weeks := defaultWeeks
	if weeklyRate > 0 {
		weeks = float64(target) / weeklyRate
	}
	if weeks < minWeeks {
		weeks = minWeeks
	}
	if weeks > maxWeeks {
		weeks = maxWeeks
	}

	predicted := int(weeklyRate * weeks)
	if poolLimit := int(float64(eligible) * avgSuccess); poolLimit < predicted {
		predicted = poolLimit
	}
	if target < predicted {
		predicted = target
	}

	milestones := make([]models.Milestone, 0, 4)
	for _, pct := range []int{25, 50, 75, 100} {
		milestones = append(milestones, models.Milestone{
			Week:       weeks * float64(pct) / 100,
			Enrollment: predicted * pct / 100,
			Percent:    pct,
		})
	}

	highScoreRatio := float64(highScore) / float64(maxInt(eligible, 1))

	poolConfidence := 0.5
	if target > 0 {
		poolConfidence = float64(eligible) / float64(target)
		if poolConfidence > 1 {
			poolConfidence = 1
		}
	}
	siteConfidence := float64(siteCount) / optimalSiteCount
	if siteConfidence > 1 {
		siteConfidence = 1
	}
	confidence := 0.3*poolConfidence + 0.3*avgSuccess + 0.2*highScoreRatio + 0.2*siteConfidence

	return models.Forecast{
		TrialID:             trial.TrialID,
		TargetEnrollment:    target,
		PredictedEnrollment: predicted,
		EstimatedWeeks:      weeks,
		WeeklyRate:          weeklyRate,
		Confidence:          confidence,
		Milestones:          milestones,
		RiskFactors:         riskFactors(eligible, target, siteCount, avgSuccess, weeks, highScoreRatio),
		Recommendations:     recommendations(eligible, target, siteCount, avgSuccess, weeks),
		PatternAnalysis: models.PatternAnalysis{
			PatternsUsed:        len(patterns),
			AverageSuccessRate:  avgSuccess,
			BestSuccessRate:     bestSuccess,
			WorstSuccessRate:    worstSuccess,
			EligiblePool:        eligible,
			HighScoreCandidates: highScore,
		},
	}
}

func successRates(patterns []models.RankedPattern) (avg, best, worst float64) {
	if len(patterns) == 0 {
		return defaultSuccessRate, defaultSuccessRate, defaultSuccessRate
	}
	best = patterns[0].SuccessRate
	worst = patterns[0].SuccessRate
	var total float64
	for _, p := range patterns {
		total += p.SuccessRate
		if p.SuccessRate > best {
			best = p.SuccessRate
		}
		if p.SuccessRate < worst {
			worst = p.SuccessRate
		}
	}
	return total / float64(len(patterns)), best, worst
}

func riskFactors(eligible, target, siteCount int, avgSuccess, weeks, highScoreRatio float64) []string {
	var risks []string
	if eligible < target {
		risks = append(risks, fmt.Sprintf("Limited patient pool: %d eligible vs %d target", eligible, target))
	}
	if siteCount < 3 {
		risks = append(risks, fmt.Sprintf("Few sites: Only %d recommended sites", siteCount))
	}
	if avgSuccess < 0.7 {
		risks = append(risks, fmt.Sprintf("Low historical success rate: %.0f%%", avgSuccess*100))
	}
	if weeks > 52 {
		risks = append(risks, fmt.Sprintf("Long timeline: %.0f weeks exceeds 1 year", weeks))
	}
	if highScoreRatio < 0.5 {
		risks = append(risks, "Less than 50% of candidates have high match scores")
	}
	if len(risks) > maxRiskFactors {
		risks = risks[:maxRiskFactors]
	}
	return risks
}

func recommendations(eligible, target, siteCount int, avgSuccess, weeks float64) []string {
	var recs []string
	if siteCount < 5 {
		recs = append(recs, fmt.Sprintf("Expand to %d additional sites to accelerate enrollment", 5-siteCount))
	}
	if float64(eligible) < float64(target)*1.5 {
		recs = append(recs, "Broaden eligibility criteria to increase patient pool")
	}
	if avgSuccess < 0.8 {
		recs = append(recs, "Focus outreach on high-scoring patients (>0.8) first")
	}
	if weeks > 40 {
		recs = append(recs, "Consider patient referral incentive program")
	}
	recs = append(recs, "Use pattern insights to optimize recruitment messaging")
	if len(recs) > maxRecommendations {
		recs = recs[:maxRecommendations]
	}
	return recs
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}

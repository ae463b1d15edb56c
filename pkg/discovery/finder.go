package discovery

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/trialmatch-ai/platform/pkg/common/logger"
	"github.com/trialmatch-ai/platform/pkg/common/models"
)

// Patterns beyond this rank contribute too little to justify scanning their
// members.
const maxPatternsSampled = 10

// Finder pulls candidate patients out of the highest-ranked patterns, applying
// a cheap demographic prefilter so the scoring stage only sees plausible
// matches.
type Finder struct {
	maxCandidates int
}

func NewFinder(maxCandidates int) *Finder {
	if maxCandidates <= 0 {
		maxCandidates = 1000
	}
	return &Finder{maxCandidates: maxCandidates}
}

// FindCandidates samples members of the top-ranked patterns in input order,
// spreading the candidate budget evenly across patterns. Sampling stops early
// once the budget is spent.
func (f *Finder) FindCandidates(
	patients []models.PatientRecord,
	result *models.DiscoveryResult,
	ranked []models.RankedPattern,
	trial models.TrialCriteria,
) []models.Candidate {
	if result == nil || len(ranked) == 0 || len(patients) == 0 {
		return nil
	}

	use := ranked
	if len(use) > maxPatternsSampled {
		use = use[:maxPatternsSampled]
	}
	perPattern := f.maxCandidates / len(use)
	if perPattern < 1 {
		perPattern = 1
	}

	members := make(map[string][]models.PatientRecord)
	for _, p := range patients {
		patternID := result.Assignment[p.PatientID]
		if patternID == models.NoPattern {
			continue
		}
		members[patternID] = append(members[patternID], p)
	}

	var candidates []models.Candidate
	for _, rp := range use {
		taken := 0
		for _, p := range members[rp.PatternID] {
			if len(candidates) >= f.maxCandidates {
				break
			}
			if taken >= perPattern {
				break
			}
			if !prefilter(p, trial) {
				continue
			}
			candidates = append(candidates, toCandidate(p, rp, result))
			taken++
		}
		if len(candidates) >= f.maxCandidates {
			break
		}
	}

	logger.WithFields(logrus.Fields{
		"trial_id":   trial.TrialID,
		"patterns":   len(use),
		"candidates": len(candidates),
	}).Info("Candidate discovery complete")

	return candidates
}

// prefilter drops patients that cannot possibly satisfy the trial's
// demographic and condition requirements.
func prefilter(p models.PatientRecord, trial models.TrialCriteria) bool {
	if trial.AgeMin > 0 && p.Age < trial.AgeMin {
		return false
	}
	if trial.AgeMax > 0 && p.Age > trial.AgeMax {
		return false
	}
	if trial.Sex != "" && !strings.EqualFold(trial.Sex, p.Sex) {
		return false
	}
	if len(trial.Conditions) == 0 {
		return true
	}
	condition := strings.ToLower(p.PrimaryCondition)
	for _, want := range trial.Conditions {
		want = strings.ToLower(want)
		if strings.Contains(condition, want) || strings.Contains(want, condition) {
			return true
		}
	}
	return false
}

func toCandidate(p models.PatientRecord, rp models.RankedPattern, result *models.DiscoveryResult) models.Candidate {
	embed := result.Embeddings[p.PatientID]
	if len(embed) == 0 {
		embed = rp.Centroid
	}
	return models.Candidate{
		PatientID:         p.PatientID,
		PatternID:         rp.PatternID,
		Embedding:         embed,
		Age:               p.Age,
		Sex:               p.Sex,
		PrimaryCondition:  p.PrimaryCondition,
		Medications:       p.Medications,
		LabValues:         p.LabValues,
		EnrollmentHistory: p.EnrollmentHistory,
		Latitude:          p.Latitude,
		Longitude:         p.Longitude,
		Codes:             p.Codes,
	}
}

package sites

import (
	"sort"

	"github.com/trialmatch-ai/platform/pkg/common/models"
	"github.com/trialmatch-ai/platform/pkg/terminology"
)

// Feasibility weights: lab capability and patient availability dominate,
// capacity is a tiebreaker.
const (
	weightCapability = 0.30
	weightExperience = 0.25
	weightPopulation = 0.30
	weightCapacity   = 0.15
)

// Scorer ranks trial sites on four dimensions: LOINC lab capability, trial
// experience in the disease area, matching patient population, and capacity
// for another trial.
type Scorer struct {
	sites []models.Site
}

func NewScorer(sites []models.Site) *Scorer {
	return &Scorer{sites: sites}
}

// RankSites scores every site for the trial and returns the top n by overall
// feasibility, descending.
func (s *Scorer) RankSites(trial models.TrialCriteria, topN int) []models.SiteScore {
	scores := make([]models.SiteScore, 0, len(s.sites))
	for _, site := range s.sites {
		scores = append(scores, s.scoreSite(site, trial))
	}
	sort.SliceStable(scores, func(i, j int) bool {
		return scores[i].OverallScore > scores[j].OverallScore
	})
	if topN > 0 && len(scores) > topN {
		scores = scores[:topN]
	}
	return scores
}

func (s *Scorer) scoreSite(site models.Site, trial models.TrialCriteria) models.SiteScore {
	requiredLOINC := trial.InclusionCodes[models.VocabLOINC]
	requiredICD10 := trial.InclusionCodes[models.VocabICD10]

	capability := capabilityScore(site, requiredLOINC)
	experience := experienceScore(site, requiredICD10)
	population := populationScore(site, requiredICD10, trial.TargetEnrollment)
	capacity := capacityScore(site)

	overall := weightCapability*capability +
		weightExperience*experience +
		weightPopulation*population +
		weightCapacity*capacity

	return models.SiteScore{
		SiteID:          site.SiteID,
		Name:            site.Name,
		Latitude:        site.Latitude,
		Longitude:       site.Longitude,
		OverallScore:    overall,
		CapabilityScore: capability,
		ExperienceScore: experience,
		PopulationScore: population,
		CapacityScore:   capacity,
		PriorityScore:   overall,
	}
}

// capabilityScore is the fraction of required LOINC tests the site can run.
// Trials with no lab requirements score every site perfect.
func capabilityScore(site models.Site, requiredLOINC []string) float64 {
	if len(requiredLOINC) == 0 {
		return 1.0
	}
	available := make(map[string]bool, len(site.LOINCCapabilities))
	for _, code := range site.LOINCCapabilities {
		available[code] = true
	}

	required := make(map[string]bool, len(requiredLOINC))
	covered := 0
	for _, code := range requiredLOINC {
		if required[code] {
			continue
		}
		required[code] = true
		if available[code] {
			covered++
		}
	}
	return float64(covered) / float64(len(required))
}

// experienceScore normalizes the site's trial count in the trial's ICD-10
// chapters (50 relevant trials saturates) and multiplies by the site's
// historical success rate.
func experienceScore(site models.Site, trialICD10 []string) float64 {
	if len(trialICD10) == 0 {
		return 0.5
	}
	if site.TotalTrials == 0 {
		return 0.0
	}

	chapters := make(map[string]bool)
	for _, code := range trialICD10 {
		if chapter := terminology.ICD10Chapter(code); chapter != "" {
			chapters[chapter] = true
		}
	}

	relevant := 0
	for chapter := range chapters {
		relevant += site.TrialsByChapter[chapter]
	}

	normalized := float64(relevant) / 50.0
	if normalized > 1 {
		normalized = 1
	}
	return normalized * site.SuccessRate
}

// populationScore compares the site's matching patient pool to the enrollment
// target. Screening failures mean a site needs many times the target on file;
// twenty times the target is considered ideal.
func populationScore(site models.Site, trialICD10 []string, targetEnrollment int) float64 {
	if len(trialICD10) == 0 {
		return 0.5
	}
	if targetEnrollment <= 0 {
		return 0.0
	}

	matching := 0
	for _, code := range trialICD10 {
		matching += site.PatientsByCondition[code]
	}
	ratio := float64(matching) / float64(targetEnrollment)

	switch {
	case ratio >= 20:
		return 1.0
	case ratio >= 10:
		return 0.8 + (ratio-10)*0.02
	case ratio >= 5:
		return 0.6 + (ratio-5)*0.04
	case ratio >= 1:
		return 0.3 + (ratio-1)*0.075
	default:
		return ratio * 0.3
	}
}

// capacityScore falls off as utilization climbs past one half.
func capacityScore(site models.Site) float64 {
	if site.MaxConcurrentTrials == 0 {
		return 0.0
	}
	utilization := float64(site.CurrentTrials) / float64(site.MaxConcurrentTrials)

	switch {
	case utilization < 0.5:
		return 1.0
	case utilization < 0.7:
		return 0.8 + (0.7-utilization)*1.0
	case utilization < 0.85:
		return 0.5 + (0.85-utilization)*2.0
	case utilization < 0.95:
		return 0.2 + (0.95-utilization)*3.0
	default:
		score := (1.0 - utilization) * 2.0
		if score < 0 {
			return 0
		}
		return score
	}
}

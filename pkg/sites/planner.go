package sites

import (
	"github.com/trialmatch-ai/platform/pkg/common/models"
)

// Planner combines feasibility ranking with geographic patient assignment
// into a single site recommendation step.
type Planner struct {
	scorer   *Scorer
	maxSites int
}

func NewPlanner(siteDB []models.Site, maxSites int) *Planner {
	if maxSites <= 0 {
		maxSites = 10
	}
	return &Planner{scorer: NewScorer(siteDB), maxSites: maxSites}
}

// Recommend ranks every site for the trial, routes matched patients to their
// nearest site, and returns the top sites by priority.
func (p *Planner) Recommend(trial models.TrialCriteria, matches []models.ScoredMatch) models.SiteRecommendations {
	ranked := p.scorer.RankSites(trial, 0)
	return AssignPatients(ranked, matches, p.maxSites)
}

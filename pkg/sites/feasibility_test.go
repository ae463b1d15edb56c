package sites

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trialmatch-ai/platform/pkg/common/models"
)

func diabetesTrial() models.TrialCriteria {
	return models.TrialCriteria{
		TrialID:          "T-DM2",
		TargetEnrollment: 100,
		InclusionCodes: models.CodeSet{
			models.VocabICD10: {"E11.9"},
			models.VocabLOINC: {"4548-4", "2339-0"},
		},
	}
}

func TestCapabilityScore(t *testing.T) {
	site := models.Site{LOINCCapabilities: []string{"4548-4"}}

	assert.InDelta(t, 0.5, capabilityScore(site, []string{"4548-4", "2339-0"}), 1e-9)
	assert.InDelta(t, 1.0, capabilityScore(site, []string{"4548-4"}), 1e-9)
	assert.InDelta(t, 0.0, capabilityScore(site, []string{"9999-9"}), 1e-9)
	// No lab requirements: every site qualifies.
	assert.InDelta(t, 1.0, capabilityScore(site, nil), 1e-9)
	// Duplicate requirements count once.
	assert.InDelta(t, 0.5, capabilityScore(site, []string{"4548-4", "4548-4", "2339-0", "2339-0"}), 1e-9)
}

func TestExperienceScore(t *testing.T) {
	site := models.Site{
		TrialsByChapter: map[string]int{"E10-E14": 25},
		TotalTrials:     100,
		SuccessRate:     0.8,
	}

	// 25 relevant trials normalizes to 0.5, times success rate.
	assert.InDelta(t, 0.4, experienceScore(site, []string{"E11.9"}), 1e-9)

	// 50+ relevant trials saturates the normalization.
	site.TrialsByChapter["E10-E14"] = 80
	assert.InDelta(t, 0.8, experienceScore(site, []string{"E11.9"}), 1e-9)

	// No trial codes: neutral. No site history: zero.
	assert.InDelta(t, 0.5, experienceScore(site, nil), 1e-9)
	assert.InDelta(t, 0.0, experienceScore(models.Site{}, []string{"E11.9"}), 1e-9)
}

func TestPopulationScorePiecewise(t *testing.T) {
	trial := []string{"E11.9"}
	cases := []struct {
		patients int
		want     float64
	}{
		{2500, 1.0},   // 25x target
		{2000, 1.0},   // exactly 20x
		{1500, 0.9},   // 15x: 0.8 + 5*0.02
		{750, 0.7},    // 7.5x: 0.6 + 2.5*0.04
		{300, 0.45},   // 3x: 0.3 + 2*0.075
		{100, 0.3},    // exactly 1x
		{50, 0.15},    // 0.5x: 0.5*0.3
		{0, 0.0},
	}
	for _, tc := range cases {
		site := models.Site{PatientsByCondition: map[string]int{"E11.9": tc.patients}}
		got := populationScore(site, trial, 100)
		assert.InDeltaf(t, tc.want, got, 1e-9, "patients=%d", tc.patients)
	}

	// Score grows monotonically with the patient pool.
	prev := -1.0
	for patients := 0; patients <= 2500; patients += 50 {
		site := models.Site{PatientsByCondition: map[string]int{"E11.9": patients}}
		got := populationScore(site, trial, 100)
		assert.GreaterOrEqual(t, got, prev)
		prev = got
	}
}

func TestCapacityScorePiecewise(t *testing.T) {
	cases := []struct {
		current, max int
		want         float64
	}{
		{10, 50, 1.0},  // 20% utilization
		{30, 50, 0.9},  // 60%: 0.8 + 0.1
		{40, 50, 0.6},  // 80%: 0.5 + 0.05*2
		{45, 50, 0.35}, // 90%: 0.2 + 0.05*3
		{49, 50, 0.04}, // 98%: 0.02*2
		{50, 50, 0.0},
		{0, 0, 0.0}, // unknown capacity scores worst
	}
	for _, tc := range cases {
		site := models.Site{CurrentTrials: tc.current, MaxConcurrentTrials: tc.max}
		assert.InDeltaf(t, tc.want, capacityScore(site), 1e-9, "current=%d max=%d", tc.current, tc.max)
	}
}

func TestRankSitesOrdersByOverallScore(t *testing.T) {
	ranked := NewScorer(DefaultSites()).RankSites(diabetesTrial(), 5)
	require.Len(t, ranked, 5)
	for i := 1; i < len(ranked); i++ {
		assert.GreaterOrEqual(t, ranked[i-1].OverallScore, ranked[i].OverallScore)
	}
	for _, s := range ranked {
		assert.GreaterOrEqual(t, s.OverallScore, 0.0)
		assert.LessOrEqual(t, s.OverallScore, 1.0)
		assert.NotEmpty(t, s.SiteID)
	}
}

func TestLoadSitesDefault(t *testing.T) {
	sites, err := LoadSites("")
	require.NoError(t, err)
	assert.Len(t, sites, 8)
}

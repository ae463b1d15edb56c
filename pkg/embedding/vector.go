package embedding

import "math"

// Dot returns the dot product of two vectors. Assumes equal length up to the
// shorter of the two.
func Dot(a, b []float64) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += a[i] * b[i]
	}
	return sum
}

// Norm returns the L2 norm of v.
func Norm(v []float64) float64 {
	return math.Sqrt(Dot(v, v))
}

// Cosine returns the cosine similarity of a and b in [-1, 1]. The boolean is
// false when either vector is empty or has zero norm.
func Cosine(a, b []float64) (float64, bool) {
	if len(a) == 0 || len(b) == 0 {
		return 0, false
	}
	na := Norm(a)
	nb := Norm(b)
	if na == 0 || nb == 0 {
		return 0, false
	}
	return Dot(a, b) / (na * nb), true
}

// Truncate returns at most the first n elements of v.
func Truncate(v []float64, n int) []float64 {
	if len(v) <= n {
		return v
	}
	return v[:n]
}

// NormalizeInPlace L2-normalizes v in place. Returns false on zero norm.
func NormalizeInPlace(v []float64) bool {
	norm := Norm(v)
	if norm == 0 {
		return false
	}
	for i := range v {
		v[i] /= norm
	}
	return true
}

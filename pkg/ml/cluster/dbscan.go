package cluster

import "math"

// Noise marks points that belong to no cluster.
const Noise = -1

// DBSCAN groups points by density. eps is the neighborhood radius, minPts the
// density threshold for a core point. Cluster count is discovered, not given.
// Returns one label per point; unclustered points get Noise.
func DBSCAN(points [][]float64, eps float64, minPts int) []int {
	labels := make([]int, len(points))
	for i := range labels {
		labels[i] = Noise
	}
	if len(points) == 0 || eps <= 0 || minPts <= 0 {
		return labels
	}

	visited := make([]bool, len(points))
	clusterID := 0

	for i := range points {
		if visited[i] {
			continue
		}
		visited[i] = true

		neighbors := regionQuery(points, i, eps)
		if len(neighbors) < minPts {
			continue // stays noise unless adopted by a later cluster
		}

		labels[i] = clusterID
		// Expand the cluster breadth-first over density-reachable points.
		for qi := 0; qi < len(neighbors); qi++ {
			p := neighbors[qi]
			if labels[p] == Noise {
				labels[p] = clusterID
			}
			if visited[p] {
				continue
			}
			visited[p] = true
			further := regionQuery(points, p, eps)
			if len(further) >= minPts {
				neighbors = append(neighbors, further...)
			}
		}
		clusterID++
	}
	return labels
}

func regionQuery(points [][]float64, idx int, eps float64) []int {
	var neighbors []int
	for j := range points {
		if euclidean(points[idx], points[j]) <= eps {
			neighbors = append(neighbors, j)
		}
	}
	return neighbors
}

func euclidean(a, b []float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

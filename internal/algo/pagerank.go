package algo

import "github.com/samyama-ai/samyama-graph-sub001/internal/graphval"

// PageRankConfig tunes the power-iteration PageRank computation.
type PageRankConfig struct {
	DampingFactor float64
	Iterations    int
	Tolerance     float64
}

// DefaultPageRankConfig matches the standard damping factor and iteration
// budget used by most PageRank implementations.
func DefaultPageRankConfig() PageRankConfig {
	return PageRankConfig{DampingFactor: 0.85, Iterations: 20, Tolerance: 0.0001}
}

// PageRank computes each node's centrality score by power iteration,
// stopping early once the total per-iteration score movement drops below
// the configured tolerance.
func PageRank(view *GraphView, cfg PageRankConfig) map[graphval.NodeId]float64 {
	n := view.NodeCount
	if n == 0 {
		return map[graphval.NodeId]float64{}
	}

	scores := make([]float64, n)
	next := make([]float64, n)
	for i := range scores {
		scores[i] = 1.0
	}

	d := cfg.DampingFactor
	base := 1.0 - d

	for iter := 0; iter < cfg.Iterations; iter++ {
		totalDiff := 0.0
		for i := 0; i < n; i++ {
			sum := 0.0
			for _, src := range view.Incoming[i] {
				if deg := view.OutDegree(src); deg > 0 {
					sum += scores[src] / float64(deg)
				}
			}
			next[i] = base + d*sum
			totalDiff += absf(next[i] - scores[i])
		}
		copy(scores, next)
		if totalDiff < cfg.Tolerance {
			break
		}
	}

	out := make(map[graphval.NodeId]float64, n)
	for i, s := range scores {
		out[view.IndexToNode[i]] = s
	}
	return out
}

func absf(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}

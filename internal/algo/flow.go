package algo

import "github.com/samyama-ai/samyama-graph-sub001/internal/graphval"

// FlowResult is the output of Edmonds-Karp.
type FlowResult struct {
	MaxFlow float64
}

// EdmondsKarp computes the maximum flow from source to sink, treating
// each outgoing edge's weight as its capacity (1.0 if the view is
// unweighted).
func EdmondsKarp(view *GraphView, source, sink graphval.NodeId) (*FlowResult, bool) {
	sIdx, ok := view.IndexOf(source)
	if !ok {
		return nil, false
	}
	tIdx, ok := view.IndexOf(sink)
	if !ok {
		return nil, false
	}

	n := view.NodeCount
	residual := make([]map[int]float64, n)
	for i := range residual {
		residual[i] = make(map[int]float64)
	}
	for u := 0; u < n; u++ {
		for k, v := range view.Outgoing[u] {
			residual[u][v] += view.weightOf(u, k)
			if _, ok := residual[v][u]; !ok {
				residual[v][u] = 0
			}
		}
	}

	totalFlow := 0.0
	for {
		parent := make(map[int]int)
		visited := make([]bool, n)
		visited[sIdx] = true
		queue := []int{sIdx}
		found := false

		for len(queue) > 0 {
			u := queue[0]
			queue = queue[1:]
			if u == tIdx {
				found = true
				break
			}
			for v, cap := range residual[u] {
				if !visited[v] && cap > 1e-9 {
					visited[v] = true
					parent[v] = u
					queue = append(queue, v)
				}
			}
		}

		if !found {
			break
		}

		pathFlow := 1e18
		for cur := tIdx; cur != sIdx; {
			prev := parent[cur]
			if c := residual[prev][cur]; c < pathFlow {
				pathFlow = c
			}
			cur = prev
		}

		for cur := tIdx; cur != sIdx; {
			prev := parent[cur]
			residual[prev][cur] -= pathFlow
			residual[cur][prev] += pathFlow
			cur = prev
		}

		totalFlow += pathFlow
	}

	return &FlowResult{MaxFlow: totalFlow}, true
}

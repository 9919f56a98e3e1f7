package algo

import (
	"container/heap"

	"github.com/samyama-ai/samyama-graph-sub001/internal/graphval"
)

// MSTEdge is one edge of a computed minimum spanning tree.
type MSTEdge struct {
	Source graphval.NodeId
	Target graphval.NodeId
	Weight float64
}

// MSTResult is the output of Prim's algorithm.
type MSTResult struct {
	TotalWeight float64
	Edges       []MSTEdge
}

type mstState struct {
	weight float64
	source int
	target int
}

type mstHeap []mstState

func (h mstHeap) Len() int           { return len(h) }
func (h mstHeap) Less(i, j int) bool { return h[i].weight < h[j].weight }
func (h mstHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *mstHeap) Push(x any)        { *h = append(*h, x.(mstState)) }
func (h *mstHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// PrimMST computes a minimum spanning tree of the component containing
// the first node in the view, treating the graph as undirected. If the
// graph is disconnected, only that component's tree is returned.
func PrimMST(view *GraphView) MSTResult {
	if view.NodeCount == 0 {
		return MSTResult{}
	}

	visited := make([]bool, view.NodeCount)
	h := &mstHeap{}
	var edges []MSTEdge
	total := 0.0

	addEdges := func(u int) {
		visited[u] = true
		for k, v := range view.Outgoing[u] {
			if !visited[v] {
				heap.Push(h, mstState{weight: view.weightOf(u, k), source: u, target: v})
			}
		}
		for _, v := range view.Incoming[u] {
			if visited[v] {
				continue
			}
			for k2, succ := range view.Outgoing[v] {
				if succ == u {
					heap.Push(h, mstState{weight: view.weightOf(v, k2), source: u, target: v})
					break
				}
			}
		}
	}

	addEdges(0)
	for h.Len() > 0 {
		e := heap.Pop(h).(mstState)
		if visited[e.target] {
			continue
		}
		edges = append(edges, MSTEdge{
			Source: view.IndexToNode[e.source],
			Target: view.IndexToNode[e.target],
			Weight: e.weight,
		})
		total += e.weight
		addEdges(e.target)
	}

	return MSTResult{TotalWeight: total, Edges: edges}
}

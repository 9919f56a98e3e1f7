// Package algo implements the read-only graph analytics algorithms:
// PageRank, BFS, Dijkstra, weakly/strongly connected components,
// Edmonds-Karp max-flow, Prim's MST, and triangle counting. Every
// algorithm runs over a GraphView, a dense-indexed projection built once
// from a store snapshot so the algorithm body never touches tenant
// locking or MVCC version chains.
package algo

import "github.com/samyama-ai/samyama-graph-sub001/internal/graphval"

// GraphView is a dense, integer-indexed projection of a graph's topology,
// built once per algorithm call from a store snapshot.
type GraphView struct {
	NodeCount   int
	IndexToNode []graphval.NodeId
	nodeToIndex map[graphval.NodeId]int

	// Outgoing[i] holds the dense indices of i's successors; Incoming[i]
	// holds the dense indices of i's predecessors. Weights[i][k]
	// corresponds to Outgoing[i][k], and is nil when the caller built an
	// unweighted view.
	Outgoing []([]int)
	Incoming []([]int)
	Weights  [][]float64
}

// NewGraphView builds a view from an explicit edge list (source index,
// target index, weight), used directly by tests; BuildView (build.go)
// constructs its view from a Source instead.
func NewGraphView(nodeIds []graphval.NodeId, edges []struct {
	Source, Target int
	Weight         float64
}, weighted bool) *GraphView {
	n := len(nodeIds)
	v := &GraphView{
		NodeCount:   n,
		IndexToNode: nodeIds,
		nodeToIndex: make(map[graphval.NodeId]int, n),
		Outgoing:    make([][]int, n),
		Incoming:    make([][]int, n),
	}
	for i, id := range nodeIds {
		v.nodeToIndex[id] = i
	}
	if weighted {
		v.Weights = make([][]float64, n)
	}
	for _, e := range edges {
		v.Outgoing[e.Source] = append(v.Outgoing[e.Source], e.Target)
		v.Incoming[e.Target] = append(v.Incoming[e.Target], e.Source)
		if weighted {
			v.Weights[e.Source] = append(v.Weights[e.Source], e.Weight)
		}
	}
	return v
}

// IndexOf returns the dense index for a node id, or (-1, false) if the id
// is not part of this view.
func (v *GraphView) IndexOf(id graphval.NodeId) (int, bool) {
	idx, ok := v.nodeToIndex[id]
	if !ok {
		return -1, false
	}
	return idx, true
}

func (v *GraphView) OutDegree(idx int) int { return len(v.Outgoing[idx]) }
func (v *GraphView) InDegree(idx int) int  { return len(v.Incoming[idx]) }

// weightOf returns the weight of the k'th outgoing edge of idx, or 1.0 if
// the view is unweighted.
func (v *GraphView) weightOf(idx, k int) float64 {
	if v.Weights == nil {
		return 1.0
	}
	return v.Weights[idx][k]
}

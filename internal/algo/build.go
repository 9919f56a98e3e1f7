package algo

import "github.com/samyama-ai/samyama-graph-sub001/internal/graphval"

// Edge is one edge surfaced by a Source while building a GraphView.
type Edge struct {
	Target graphval.NodeId
	Weight float64
}

// Source is the minimal read surface BuildView needs from a graph store,
// kept narrow so this package never imports internal/store directly
// (avoiding a dependency from analytics back onto MVCC internals).
type Source interface {
	NodeIds() []graphval.NodeId
	Successors(id graphval.NodeId) []Edge
}

// BuildView materializes a dense GraphView over every node src exposes.
// With weighted set, each edge's Weight as reported by src populates the
// view's weights; otherwise the view is unweighted and every edge is
// treated as weight 1.0.
func BuildView(src Source, weighted bool) *GraphView {
	ids := src.NodeIds()
	v := &GraphView{
		NodeCount:   len(ids),
		IndexToNode: ids,
		nodeToIndex: make(map[graphval.NodeId]int, len(ids)),
		Outgoing:    make([][]int, len(ids)),
		Incoming:    make([][]int, len(ids)),
	}
	if weighted {
		v.Weights = make([][]float64, len(ids))
	}
	for i, id := range ids {
		v.nodeToIndex[id] = i
	}
	for i, id := range ids {
		for _, e := range src.Successors(id) {
			tIdx, ok := v.nodeToIndex[e.Target]
			if !ok {
				continue
			}
			v.Outgoing[i] = append(v.Outgoing[i], tIdx)
			v.Incoming[tIdx] = append(v.Incoming[tIdx], i)
			if weighted {
				v.Weights[i] = append(v.Weights[i], e.Weight)
			}
		}
	}
	return v
}

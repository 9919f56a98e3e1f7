package algo

import (
	"container/heap"

	"github.com/samyama-ai/samyama-graph-sub001/internal/graphval"
)

// PathResult is the output of BFS and Dijkstra.
type PathResult struct {
	Source graphval.NodeId
	Target graphval.NodeId
	Path   []graphval.NodeId
	Cost   float64
}

// BFS finds the unweighted shortest path between source and target.
func BFS(view *GraphView, source, target graphval.NodeId) (*PathResult, bool) {
	sIdx, ok := view.IndexOf(source)
	if !ok {
		return nil, false
	}
	tIdx, ok := view.IndexOf(target)
	if !ok {
		return nil, false
	}

	parent := make(map[int]int)
	visited := map[int]bool{sIdx: true}
	queue := []int{sIdx}

	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]

		if cur == tIdx {
			return &PathResult{Source: source, Target: target, Path: reconstruct(view, parent, sIdx, tIdx), Cost: float64(pathLen(parent, sIdx, tIdx))}, true
		}
		for _, next := range view.Outgoing[cur] {
			if !visited[next] {
				visited[next] = true
				parent[next] = cur
				queue = append(queue, next)
			}
		}
	}
	return nil, false
}

func pathLen(parent map[int]int, src, dst int) int {
	n := 0
	cur := dst
	for cur != src {
		p, ok := parent[cur]
		if !ok {
			break
		}
		cur = p
		n++
	}
	return n
}

func reconstruct(view *GraphView, parent map[int]int, src, dst int) []graphval.NodeId {
	var idxPath []int
	cur := dst
	idxPath = append(idxPath, cur)
	for cur != src {
		p, ok := parent[cur]
		if !ok {
			break
		}
		cur = p
		idxPath = append(idxPath, cur)
	}
	path := make([]graphval.NodeId, len(idxPath))
	for i, idx := range idxPath {
		path[len(idxPath)-1-i] = view.IndexToNode[idx]
	}
	return path
}

type dijkstraState struct {
	cost float64
	idx  int
}

type dijkstraHeap []dijkstraState

func (h dijkstraHeap) Len() int            { return len(h) }
func (h dijkstraHeap) Less(i, j int) bool  { return h[i].cost < h[j].cost }
func (h dijkstraHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *dijkstraHeap) Push(x any)         { *h = append(*h, x.(dijkstraState)) }
func (h *dijkstraHeap) Pop() any {
	old := *h
	n := len(old)
	item := old[n-1]
	*h = old[:n-1]
	return item
}

// Dijkstra finds the weighted shortest path between source and target,
// using each outgoing edge's weight (1.0 if the view is unweighted).
// Negative-weight edges are skipped, matching the reference
// implementation's treatment of them as non-traversable.
func Dijkstra(view *GraphView, source, target graphval.NodeId) (*PathResult, bool) {
	sIdx, ok := view.IndexOf(source)
	if !ok {
		return nil, false
	}
	tIdx, ok := view.IndexOf(target)
	if !ok {
		return nil, false
	}

	const inf = 1e18
	dist := make(map[int]float64)
	parent := make(map[int]int)
	dist[sIdx] = 0

	h := &dijkstraHeap{{cost: 0, idx: sIdx}}
	heap.Init(h)

	for h.Len() > 0 {
		cur := heap.Pop(h).(dijkstraState)
		if cur.idx == tIdx {
			return &PathResult{Source: source, Target: target, Path: reconstruct(view, parent, sIdx, tIdx), Cost: cur.cost}, true
		}
		if best, ok := dist[cur.idx]; ok && cur.cost > best {
			continue
		}
		for k, next := range view.Outgoing[cur.idx] {
			w := view.weightOf(cur.idx, k)
			if w < 0 {
				continue
			}
			nd := cur.cost + w
			if best, ok := dist[next]; !ok || nd < best {
				dist[next] = nd
				parent[next] = cur.idx
				heap.Push(h, dijkstraState{cost: nd, idx: next})
			}
		}
	}
	return nil, false
}

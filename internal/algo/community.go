package algo

import "github.com/samyama-ai/samyama-graph-sub001/internal/graphval"

// ComponentResult groups nodes by component id, used by both WCC and SCC.
type ComponentResult struct {
	Components     map[int][]graphval.NodeId
	NodeComponent  map[graphval.NodeId]int
}

type unionFind struct {
	parent []int
	rank   []int
}

func newUnionFind(n int) *unionFind {
	uf := &unionFind{parent: make([]int, n), rank: make([]int, n)}
	for i := range uf.parent {
		uf.parent[i] = i
	}
	return uf
}

func (uf *unionFind) find(i int) int {
	if uf.parent[i] != i {
		uf.parent[i] = uf.find(uf.parent[i])
	}
	return uf.parent[i]
}

func (uf *unionFind) union(i, j int) {
	ri, rj := uf.find(i), uf.find(j)
	if ri == rj {
		return
	}
	switch {
	case uf.rank[ri] < uf.rank[rj]:
		uf.parent[ri] = rj
	case uf.rank[ri] > uf.rank[rj]:
		uf.parent[rj] = ri
	default:
		uf.parent[rj] = ri
		uf.rank[ri]++
	}
}

// WeaklyConnectedComponents groups nodes into components, ignoring edge
// direction.
func WeaklyConnectedComponents(view *GraphView) ComponentResult {
	n := view.NodeCount
	uf := newUnionFind(n)
	for u := 0; u < n; u++ {
		for _, v := range view.Outgoing[u] {
			uf.union(u, v)
		}
	}

	components := make(map[int][]graphval.NodeId)
	nodeComponent := make(map[graphval.NodeId]int, n)
	for i := 0; i < n; i++ {
		root := uf.find(i)
		id := view.IndexToNode[i]
		components[root] = append(components[root], id)
		nodeComponent[id] = root
	}
	return ComponentResult{Components: components, NodeComponent: nodeComponent}
}

// StronglyConnectedComponents groups nodes into maximal strongly
// connected subgraphs using Tarjan's algorithm.
func StronglyConnectedComponents(view *GraphView) ComponentResult {
	n := view.NodeCount
	ids := make([]int, n)
	low := make([]int, n)
	onStack := make([]bool, n)
	for i := range ids {
		ids[i] = -1
	}

	var stack []int
	idCounter := 0
	sccCount := 0
	components := make(map[int][]graphval.NodeId)
	nodeComponent := make(map[graphval.NodeId]int, n)

	var dfs func(u int)
	dfs = func(u int) {
		stack = append(stack, u)
		onStack[u] = true
		ids[u] = idCounter
		low[u] = idCounter
		idCounter++

		for _, v := range view.Outgoing[u] {
			if ids[v] == -1 {
				dfs(v)
				low[u] = min(low[u], low[v])
			} else if onStack[v] {
				low[u] = min(low[u], ids[v])
			}
		}

		if ids[u] == low[u] {
			for {
				top := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[top] = false
				low[top] = ids[u]

				id := view.IndexToNode[top]
				nodeComponent[id] = sccCount
				components[sccCount] = append(components[sccCount], id)

				if top == u {
					break
				}
			}
			sccCount++
		}
	}

	for i := 0; i < n; i++ {
		if ids[i] == -1 {
			dfs(i)
		}
	}

	return ComponentResult{Components: components, NodeComponent: nodeComponent}
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

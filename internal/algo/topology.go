package algo

// CountTriangles counts the number of triangles in the graph, treating
// edges as undirected. Each triangle is counted once by only considering
// neighbor triples ordered i < j < k.
func CountTriangles(view *GraphView) int {
	neighbors := make([]map[int]bool, view.NodeCount)
	for i := range neighbors {
		m := make(map[int]bool)
		for _, v := range view.Outgoing[i] {
			m[v] = true
		}
		for _, v := range view.Incoming[i] {
			m[v] = true
		}
		neighbors[i] = m
	}

	count := 0
	for u := 0; u < view.NodeCount; u++ {
		for v := range neighbors[u] {
			if v <= u {
				continue
			}
			for w := range neighbors[v] {
				if w <= v {
					continue
				}
				if neighbors[u][w] {
					count++
				}
			}
		}
	}
	return count
}

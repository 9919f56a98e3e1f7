package algo

import (
	"testing"

	"github.com/samyama-ai/samyama-graph-sub001/internal/graphval"
	"github.com/stretchr/testify/assert"
)

type edgeSpec struct {
	Source, Target int
	Weight         float64
}

func buildView(n int, edges []edgeSpec, weighted bool) *GraphView {
	ids := make([]graphval.NodeId, n)
	for i := range ids {
		ids[i] = graphval.NodeId(i + 1)
	}
	specs := make([]struct {
		Source, Target int
		Weight         float64
	}, len(edges))
	for i, e := range edges {
		specs[i] = struct {
			Source, Target int
			Weight         float64
		}{e.Source, e.Target, e.Weight}
	}
	return NewGraphView(ids, specs, weighted)
}

func TestBFSShortestPath(t *testing.T) {
	v := buildView(3, []edgeSpec{{0, 1, 1}, {1, 2, 1}}, false)
	res, ok := BFS(v, 1, 3)
	assert := assert.New(t)
	assert.True(ok)
	assert.Equal([]graphval.NodeId{1, 2, 3}, res.Path)
	assert.Equal(2.0, res.Cost)
}

func TestDijkstraShortestPath(t *testing.T) {
	v := buildView(3, []edgeSpec{{0, 1, 10}, {0, 2, 50}, {1, 2, 5}}, true)
	res, ok := Dijkstra(v, 1, 3)
	assert := assert.New(t)
	assert.True(ok)
	assert.Equal([]graphval.NodeId{1, 2, 3}, res.Path)
	assert.Equal(15.0, res.Cost)
}

func TestPrimMSTTriangle(t *testing.T) {
	v := buildView(3, []edgeSpec{
		{0, 1, 1}, {1, 0, 1},
		{1, 2, 2}, {2, 1, 2},
		{0, 2, 10}, {2, 0, 10},
	}, true)
	res := PrimMST(v)
	assert.Equal(t, 3.0, res.TotalWeight)
	assert.Len(t, res.Edges, 2)
}

func TestEdmondsKarpDiamond(t *testing.T) {
	v := buildView(4, []edgeSpec{
		{0, 1, 100}, {0, 2, 50}, {1, 2, 50}, {1, 3, 50}, {2, 3, 100},
	}, true)
	res, ok := EdmondsKarp(v, 1, 4)
	assert.True(t, ok)
	assert.Equal(t, 150.0, res.MaxFlow)
}

func TestCountTrianglesK4(t *testing.T) {
	var edges []edgeSpec
	for i := 0; i < 4; i++ {
		for j := i + 1; j < 4; j++ {
			edges = append(edges, edgeSpec{i, j, 1})
		}
	}
	v := buildView(4, edges, false)
	assert.Equal(t, 4, CountTriangles(v))
}

func TestStronglyConnectedComponents(t *testing.T) {
	v := buildView(4, []edgeSpec{{0, 1, 1}, {1, 2, 1}, {2, 0, 1}}, false)
	res := StronglyConnectedComponents(v)
	assert.Len(t, res.Components, 2)
	assert.Equal(t, res.NodeComponent[1], res.NodeComponent[2])
	assert.Equal(t, res.NodeComponent[2], res.NodeComponent[3])
	assert.NotEqual(t, res.NodeComponent[1], res.NodeComponent[4])
}

func TestWeaklyConnectedComponents(t *testing.T) {
	v := buildView(4, []edgeSpec{{0, 1, 1}, {2, 3, 1}}, false)
	res := WeaklyConnectedComponents(v)
	assert.Len(t, res.Components, 2)
	assert.Equal(t, res.NodeComponent[1], res.NodeComponent[2])
	assert.NotEqual(t, res.NodeComponent[1], res.NodeComponent[3])
}

func TestPageRankConverges(t *testing.T) {
	v := buildView(2, []edgeSpec{{0, 1, 1}, {1, 0, 1}}, false)
	scores := PageRank(v, DefaultPageRankConfig())
	assert.InDelta(t, scores[1], scores[2], 1e-6)
}

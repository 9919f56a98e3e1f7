package vectorindex

import (
	"testing"
	"time"

	"github.com/samyama-ai/samyama-graph-sub001/internal/graphval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func waitForLen(t *testing.T, idx *Index, n int) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if idx.Len() == n {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("index never reached length %d, at %d", n, idx.Len())
}

func TestBruteForceSearchReturnsExactNearest(t *testing.T) {
	idx := New(Config{Label: "Movie", Property: "embedding", Dim: 2, Metric: MetricEuclidean}, 16)
	defer idx.Close()

	require.NoError(t, idx.Enqueue(1, []float32{0, 0}))
	require.NoError(t, idx.Enqueue(2, []float32{10, 10}))
	require.NoError(t, idx.Enqueue(3, []float32{1, 1}))
	waitForLen(t, idx, 3)

	res, err := idx.Search([]float32{0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, res, 2)
	assert.Equal(t, graphval.NodeId(1), res[0].Id)
	assert.Equal(t, graphval.NodeId(3), res[1].Id)
}

func TestSearchRejectsWrongDimension(t *testing.T) {
	idx := New(Config{Dim: 3, Metric: MetricCosine}, 4)
	defer idx.Close()
	_, err := idx.Search([]float32{1, 2}, 1)
	assert.Error(t, err)
}

func TestEnqueueRejectsWrongDimension(t *testing.T) {
	idx := New(Config{Dim: 3, Metric: MetricCosine}, 4)
	defer idx.Close()
	err := idx.Enqueue(1, []float32{1, 2})
	assert.Error(t, err)
}

func TestRemove(t *testing.T) {
	idx := New(Config{Dim: 2, Metric: MetricEuclidean}, 4)
	defer idx.Close()
	require.NoError(t, idx.Enqueue(1, []float32{0, 0}))
	waitForLen(t, idx, 1)

	idx.Remove(1)
	assert.Equal(t, 0, idx.Len())
}

func TestPartitionedSearchAboveThreshold(t *testing.T) {
	idx := New(Config{Dim: 2, Metric: MetricEuclidean, PartitionThreshold: 4, Partitions: 2}, 64)
	defer idx.Close()

	for i := 0; i < 20; i++ {
		require.NoError(t, idx.Enqueue(graphval.NodeId(i+1), []float32{float32(i), float32(i)}))
	}
	waitForLen(t, idx, 20)

	res, err := idx.Search([]float32{0, 0}, 1)
	require.NoError(t, err)
	require.Len(t, res, 1)
}

// Package vectorindex implements native vector search: an exact
// brute-force scan for small indices and a partitioned (IVF-lite)
// approximate scan once an index grows past a configurable threshold, fed
// by a bounded background indexer queue.
package vectorindex

import (
	"context"
	"math"
	"sort"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/samyama-ai/samyama-graph-sub001/internal/graphval"
	"github.com/samyama-ai/samyama-graph-sub001/internal/samerr"
)

// Metric names a supported distance function.
type Metric string

const (
	MetricCosine    Metric = "cosine"
	MetricEuclidean Metric = "euclidean"
	MetricDot       Metric = "dot"
)

// Config describes one vector index over a (label, property) pair.
type Config struct {
	Label            string
	Property         string
	Dim              int
	Metric           Metric
	// PartitionThreshold is the node count above which queries fall back
	// to the partitioned approximate scan instead of brute force.
	PartitionThreshold int
	// Partitions is the number of IVF-lite partitions to maintain once
	// PartitionThreshold is exceeded.
	Partitions int
}

type entry struct {
	id  graphval.NodeId
	vec []float32
}

// Index is one vector index: a flat set of (node id, vector) pairs plus,
// once it holds more than PartitionThreshold entries, a partition
// assignment recomputed on every insert.
type Index struct {
	mu      sync.RWMutex
	cfg     Config
	entries map[graphval.NodeId]*entry

	centroids  [][]float32
	partitions [][]graphval.NodeId

	recent *lru.Cache[graphval.NodeId, struct{}]

	queue  chan job
	cancel context.CancelFunc
	done   chan struct{}
}

type job struct {
	id  graphval.NodeId
	vec []float32
}

// New constructs an index and starts its background indexer goroutine,
// which drains queued (id, vector) pairs from Enqueue. queueDepth bounds
// the channel so a slow back-fill applies backpressure instead of
// unbounded memory growth.
func New(cfg Config, queueDepth int) *Index {
	if cfg.Partitions <= 0 {
		cfg.Partitions = 8
	}
	if cfg.PartitionThreshold <= 0 {
		cfg.PartitionThreshold = 10000
	}
	cache, _ := lru.New[graphval.NodeId, struct{}](1024)

	ctx, cancel := context.WithCancel(context.Background())
	idx := &Index{
		cfg:     cfg,
		entries: make(map[graphval.NodeId]*entry),
		recent:  cache,
		queue:   make(chan job, queueDepth),
		cancel:  cancel,
		done:    make(chan struct{}),
	}
	go idx.drain(ctx)
	return idx
}

func (idx *Index) drain(ctx context.Context) {
	defer close(idx.done)
	for {
		select {
		case <-ctx.Done():
			return
		case j := <-idx.queue:
			idx.insert(j.id, j.vec)
		}
	}
}

// Close stops the background indexer and waits for it to exit.
func (idx *Index) Close() {
	idx.cancel()
	<-idx.done
}

// Enqueue submits a vector for background insertion. It blocks if the
// queue is full, applying backpressure to the caller (typically
// internal/store on node creation/update).
func (idx *Index) Enqueue(id graphval.NodeId, vec []float32) error {
	if len(vec) != idx.cfg.Dim {
		return samerr.New(samerr.CodeSemanticError, "vector dimension %d does not match index dimension %d", len(vec), idx.cfg.Dim)
	}
	idx.queue <- job{id: id, vec: vec}
	return nil
}

// QueueDepth returns the number of pending, not-yet-indexed entries.
func (idx *Index) QueueDepth() int {
	return len(idx.queue)
}

func (idx *Index) insert(id graphval.NodeId, vec []float32) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.entries[id] = &entry{id: id, vec: vec}
	idx.recent.Add(id, struct{}{})
	if len(idx.entries) > idx.cfg.PartitionThreshold {
		idx.rebuildPartitions()
	}
}

// Remove drops a node from the index (node deletion or property removal).
func (idx *Index) Remove(id graphval.NodeId) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	delete(idx.entries, id)
}

// Len returns the number of indexed vectors.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

// Dim returns the index's configured vector dimensionality.
func (idx *Index) Dim() int { return idx.cfg.Dim }

// Metric returns the index's configured distance metric.
func (idx *Index) Metric() Metric { return idx.cfg.Metric }

// Neighbor is one result of a k-nearest-neighbor query.
type Neighbor struct {
	Id       graphval.NodeId
	Distance float64
}

// Search returns the k nearest neighbors of query. Below
// PartitionThreshold entries it scans every vector exactly; above it,
// it scans only the one partition whose centroid is closest to query
// (approximate).
func (idx *Index) Search(query []float32, k int) ([]Neighbor, error) {
	if len(query) != idx.cfg.Dim {
		return nil, samerr.New(samerr.CodeSemanticError, "query dimension %d does not match index dimension %d", len(query), idx.cfg.Dim)
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	var candidates []*entry
	if len(idx.entries) <= idx.cfg.PartitionThreshold || idx.centroids == nil {
		candidates = make([]*entry, 0, len(idx.entries))
		for _, e := range idx.entries {
			candidates = append(candidates, e)
		}
	} else {
		candidates = idx.candidatesFromPartitions(query)
	}

	out := make([]Neighbor, 0, len(candidates))
	for _, e := range candidates {
		out = append(out, Neighbor{Id: e.id, Distance: idx.distance(query, e.vec)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	if k < len(out) {
		out = out[:k]
	}
	return out, nil
}

func (idx *Index) candidatesFromPartitions(query []float32) []*entry {
	bestPart := -1
	bestDist := math.Inf(1)
	for i, c := range idx.centroids {
		d := idx.distance(query, c)
		if d < bestDist {
			bestDist = d
			bestPart = i
		}
	}
	if bestPart < 0 {
		return nil
	}
	ids := idx.partitions[bestPart]
	out := make([]*entry, 0, len(ids))
	for _, id := range ids {
		if e, ok := idx.entries[id]; ok {
			out = append(out, e)
		}
	}
	return out
}

// rebuildPartitions recomputes a k-means-lite partitioning: seed
// centroids from an evenly spaced sample of current entries, assign every
// vector to its nearest centroid, and stop after a fixed small number of
// Lloyd iterations. Must be called with idx.mu held for writing.
func (idx *Index) rebuildPartitions() {
	all := make([]*entry, 0, len(idx.entries))
	for _, e := range idx.entries {
		all = append(all, e)
	}
	k := idx.cfg.Partitions
	if k > len(all) {
		k = len(all)
	}
	if k == 0 {
		return
	}

	centroids := make([][]float32, k)
	step := len(all) / k
	for i := 0; i < k; i++ {
		centroids[i] = append([]float32(nil), all[i*step].vec...)
	}

	const iterations = 3
	var assign []int
	for iter := 0; iter < iterations; iter++ {
		assign = make([]int, len(all))
		sums := make([][]float64, k)
		counts := make([]int, k)
		for i := range sums {
			sums[i] = make([]float64, idx.cfg.Dim)
		}
		for i, e := range all {
			best, bestDist := 0, math.Inf(1)
			for c, centroid := range centroids {
				d := idx.distance(e.vec, centroid)
				if d < bestDist {
					bestDist = d
					best = c
				}
			}
			assign[i] = best
			counts[best]++
			for d := 0; d < idx.cfg.Dim; d++ {
				sums[best][d] += float64(e.vec[d])
			}
		}
		for c := range centroids {
			if counts[c] == 0 {
				continue
			}
			nc := make([]float32, idx.cfg.Dim)
			for d := 0; d < idx.cfg.Dim; d++ {
				nc[d] = float32(sums[c][d] / float64(counts[c]))
			}
			centroids[c] = nc
		}
	}

	partitions := make([][]graphval.NodeId, k)
	for i, e := range all {
		c := assign[i]
		partitions[c] = append(partitions[c], e.id)
	}

	idx.centroids = centroids
	idx.partitions = partitions
}

func (idx *Index) distance(a, b []float32) float64 {
	switch idx.cfg.Metric {
	case MetricEuclidean:
		return euclidean(a, b)
	case MetricDot:
		return -dot(a, b)
	default:
		return 1 - cosine(a, b)
	}
}

func dot(a, b []float32) float64 {
	sum := 0.0
	for i := range a {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}

func euclidean(a, b []float32) float64 {
	sum := 0.0
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}

func cosine(a, b []float32) float64 {
	d := dot(a, b)
	na, nb := math.Sqrt(dot(a, a)), math.Sqrt(dot(b, b))
	if na == 0 || nb == 0 {
		return 0
	}
	return d / (na * nb)
}

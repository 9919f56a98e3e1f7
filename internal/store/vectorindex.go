package store

import (
	"sync"

	"github.com/samyama-ai/samyama-graph-sub001/internal/graphval"
	"github.com/samyama-ai/samyama-graph-sub001/internal/samerr"
	"github.com/samyama-ai/samyama-graph-sub001/internal/vectorindex"
)

// vectorIndexKey identifies one (label, property) vector index.
func vectorIndexKey(label, key string) string { return label + "|" + key }

// vectorIndexes is the per-store registry of declared vector indices,
// keyed by (label, property). Kept separate from propertyIndex since a
// vector index carries its own dimensionality/metric and background
// indexer, rather than an ordered value->ids map.
type vectorIndexes struct {
	mu      sync.RWMutex
	byKey   map[string]*vectorindex.Index
	byLabel map[string][]string // label -> property keys with a vector index
}

func newVectorIndexes() *vectorIndexes {
	return &vectorIndexes{
		byKey:   make(map[string]*vectorindex.Index),
		byLabel: make(map[string][]string),
	}
}

// CreateVectorIndex declares a vector index over (label, key) with the
// given dimensionality and metric, back-filling synchronously from every
// currently live node of that label carrying a vector at key. It is
// idempotent: calling it again with the same dimension is a no-op;
// calling it again with a different dimension fails with CodeIndexExists.
func (s *Store) CreateVectorIndex(label, key string, dim int, metric vectorindex.Metric) error {
	s.mu.RLock()
	nodeIds := append([]graphval.NodeId(nil), s.AllNodeIdsLocked(s.Version())...)
	s.mu.RUnlock()

	k := vectorIndexKey(label, key)
	s.vecIdx.mu.Lock()
	if existing, ok := s.vecIdx.byKey[k]; ok {
		s.vecIdx.mu.Unlock()
		if existing.Dim() != dim {
			return samerr.New(samerr.CodeIndexExists, "vector index on (%s,%s) already exists with dimension %d", label, key, existing.Dim())
		}
		return nil
	}
	idx := vectorindex.New(vectorindex.Config{Label: label, Property: key, Dim: dim, Metric: metric}, 1024)
	s.vecIdx.byKey[k] = idx
	s.vecIdx.byLabel[label] = append(s.vecIdx.byLabel[label], key)
	s.vecIdx.mu.Unlock()

	labelId, ok := s.interner.Lookup(label)
	if !ok {
		return nil
	}
	for _, id := range nodeIds {
		n, err := s.GetNodeAt(id, s.Version())
		if err != nil || !n.HasLabel(graphval.LabelId(labelId)) {
			continue
		}
		if v, ok := n.Properties[key]; ok {
			if vec, ok := v.AsVector(); ok && len(vec) == dim {
				_ = idx.Enqueue(id, vec)
			}
		}
	}
	return nil
}

// VectorIndex returns the index declared over (label, key), if any.
func (s *Store) VectorIndex(label, key string) (*vectorindex.Index, bool) {
	s.vecIdx.mu.RLock()
	defer s.vecIdx.mu.RUnlock()
	idx, ok := s.vecIdx.byKey[vectorIndexKey(label, key)]
	return idx, ok
}

// enqueueVectorUpdates enqueues id's current vector value at key, for
// every label it carries that has a declared vector index on key; a
// non-vector value (such as REMOVE's null write) drops id from those
// indices instead. Called after CreateNode and SetProperty under the
// store's write lock.
func (s *Store) enqueueVectorUpdates(n *graphval.Node, key string, value graphval.PropertyValue) {
	vec, ok := value.AsVector()
	if !ok {
		for _, l := range n.Labels {
			if idx, ok := s.VectorIndex(s.interner.Name(uint32(l)), key); ok {
				idx.Remove(n.Id)
			}
		}
		return
	}
	for _, l := range n.Labels {
		label := s.interner.Name(uint32(l))
		idx, ok := s.VectorIndex(label, key)
		if !ok {
			continue
		}
		if idx.Dim() != len(vec) {
			continue
		}
		_ = idx.Enqueue(n.Id, vec)
	}
}

// removeFromVectorIndexes drops id from every vector index declared over
// any of its labels, called on node deletion.
func (s *Store) removeFromVectorIndexes(n *graphval.Node) {
	for _, l := range n.Labels {
		label := s.interner.Name(uint32(l))
		s.vecIdx.mu.RLock()
		keys := append([]string(nil), s.vecIdx.byLabel[label]...)
		s.vecIdx.mu.RUnlock()
		for _, key := range keys {
			if idx, ok := s.VectorIndex(label, key); ok {
				idx.Remove(n.Id)
			}
		}
	}
}

// CreatePropertyIndex declares a property index on (label, key). The
// underlying propertyIndex (propindex.go) already maintains an ordered
// value->ids map for every scalar property write regardless of
// declaration, so this call's only job is the idempotent existence
// bookkeeping CREATE INDEX expects; the index is already synchronously
// back-filled by construction.
func (s *Store) CreatePropertyIndex(label, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := vectorIndexKey(label, key)
	if s.declaredPropIdx == nil {
		s.declaredPropIdx = make(map[string]bool)
	}
	s.declaredPropIdx[k] = true
	return nil
}

// HasPropertyIndex reports whether CREATE INDEX ON :label(key) has been
// issued, used by the planner to choose an index seek over a label scan
// plus filter.
func (s *Store) HasPropertyIndex(label, key string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.declaredPropIdx[vectorIndexKey(label, key)]
}

// AllNodeIdsLocked is AllNodeIds for callers that already hold s.mu.
func (s *Store) AllNodeIdsLocked(asOf graphval.Version) []graphval.NodeId {
	out := make([]graphval.NodeId, 0, len(s.nodes))
	for id, c := range s.nodes {
		if c.at(asOf) != nil {
			out = append(out, id)
		}
	}
	return out
}

// Package store implements the MVCC graph store: arena-backed node and edge
// version chains, label and adjacency indices over compressed id sets, and
// the property index (propindex.go). A Store is single-tenant; the caller
// (internal/session, internal/cluster) is responsible for routing a
// request to the Store instance owning its tenant.
package store

import (
	"sync"
	"sync/atomic"

	"github.com/RoaringBitmap/roaring/v2/roaring64"
	"github.com/samyama-ai/samyama-graph-sub001/internal/graphval"
	"github.com/samyama-ai/samyama-graph-sub001/internal/obs/metrics"
	"github.com/samyama-ai/samyama-graph-sub001/internal/samerr"
)

// nodeChain is the version chain for one logical node: every committed
// version, newest first.
type nodeChain struct {
	versions []*graphval.Node
}

func (c *nodeChain) at(asOf graphval.Version) *graphval.Node {
	for _, v := range c.versions {
		if v.CreatedAt <= asOf {
			if graphval.IsLiveAt(v.CreatedAt, v.DeletedAt, asOf) {
				return v
			}
			return nil
		}
	}
	return nil
}

type edgeChain struct {
	versions []*graphval.Edge
}

func (c *edgeChain) at(asOf graphval.Version) *graphval.Edge {
	for _, v := range c.versions {
		if v.CreatedAt <= asOf {
			if graphval.IsLiveAt(v.CreatedAt, v.DeletedAt, asOf) {
				return v
			}
			return nil
		}
	}
	return nil
}

// adjacency tracks, per node, the set of outgoing and incoming edge ids.
type adjacency struct {
	out map[graphval.NodeId]*roaring64.Bitmap // edge ids, keyed by source
	in  map[graphval.NodeId]*roaring64.Bitmap // edge ids, keyed by target
}

func newAdjacency() *adjacency {
	return &adjacency{
		out: make(map[graphval.NodeId]*roaring64.Bitmap),
		in:  make(map[graphval.NodeId]*roaring64.Bitmap),
	}
}

// Store is one tenant's MVCC graph: nodes, edges, and the indices over
// them, guarded by a single reader-writer lock. Write statements
// additionally serialize on writerMu so one statement's whole mutation
// side commits as a unit (see BeginStatement).
type Store struct {
	mu sync.RWMutex

	tenant   graphval.TenantId
	interner *graphval.Interner
	version  atomic.Uint64

	// writerMu serializes write statements: one exclusive write statement
	// at a time, readers unaffected (they read at the published version).
	writerMu sync.Mutex
	// pending is the open statement's commit version, 0 when none is
	// open. Mutations inside the statement all write at pending; readers
	// keep seeing the last published version until CommitStatement.
	pending   graphval.Version
	stmtDirty bool
	stmtNodes []graphval.NodeId
	stmtEdges []graphval.EdgeId

	nodes map[graphval.NodeId]*nodeChain
	edges map[graphval.EdgeId]*edgeChain
	adj   *adjacency

	// labelIndex maps a label id to the set of live node ids carrying it.
	labelIndex map[graphval.LabelId]*roaring64.Bitmap

	props  *propertyIndex
	vecIdx *vectorIndexes

	declaredPropIdx map[string]bool

	nextNodeId atomic.Uint64
	nextEdgeId atomic.Uint64
}

// New returns an empty store for tenant, sharing the process-wide label
// interner so label/edge-type names compare equal across tenants.
func New(tenant graphval.TenantId, interner *graphval.Interner) *Store {
	return &Store{
		tenant:     tenant,
		interner:   interner,
		nodes:      make(map[graphval.NodeId]*nodeChain),
		edges:      make(map[graphval.EdgeId]*edgeChain),
		adj:        newAdjacency(),
		labelIndex: make(map[graphval.LabelId]*roaring64.Bitmap),
		props:      newPropertyIndex(),
		vecIdx:     newVectorIndexes(),
	}
}

// Version returns the current store version (the version of the last
// committed mutation).
func (s *Store) Version() graphval.Version {
	return graphval.Version(s.version.Load())
}

func (s *Store) bumpVersion() graphval.Version {
	v := s.version.Add(1)
	metrics.StoreVersion.Set(float64(v))
	return graphval.Version(v)
}

// commitVersion returns the version the current mutation writes at: the
// open statement's single pre-allocated commit version, or, for a
// standalone mutation outside any statement, a fresh published version.
// Callers must hold s.mu.
func (s *Store) commitVersion() graphval.Version {
	if s.pending != 0 {
		s.stmtDirty = true
		return s.pending
	}
	return s.bumpVersion()
}

// readVersion is the version in-statement store code resolves "current"
// at: the open statement's commit version (so a statement reads its own
// writes), else the last published version. Callers must hold s.mu or
// s.mu.RLock.
func (s *Store) readVersion() graphval.Version {
	if s.pending != 0 {
		return s.pending
	}
	return graphval.Version(s.version.Load())
}

// BeginStatement opens the write side of one statement: it serializes
// against other write statements and pre-allocates the one version every
// mutation in the statement commits at. Readers continue at the last
// published version until CommitStatement publishes the new one, so the
// statement's effects become visible atomically. The returned version is
// what the statement's own reads should use to see its writes.
func (s *Store) BeginStatement() graphval.Version {
	s.writerMu.Lock()
	s.mu.Lock()
	s.pending = graphval.Version(s.version.Load() + 1)
	v := s.pending
	s.mu.Unlock()
	return v
}

// CommitStatement publishes the open statement's version — every mutation
// it wrote becomes visible in one step — and releases the writer lock. A
// statement that mutated nothing publishes nothing: the version counter
// moves exactly once per mutating statement, zero times otherwise.
func (s *Store) CommitStatement() {
	s.mu.Lock()
	if s.pending != 0 && s.stmtDirty {
		s.version.Store(uint64(s.pending))
		metrics.StoreVersion.Set(float64(s.pending))
	}
	s.pending = 0
	s.stmtDirty = false
	s.stmtNodes, s.stmtEdges = nil, nil
	s.mu.Unlock()
	s.writerMu.Unlock()
}

// AbortStatement undoes every mutation the open statement wrote — chain
// entries at the pending version are dropped, tombstones it placed are
// cleared, and indices are restored from the surviving head — then
// releases the writer lock without publishing. The version counter does
// not move.
func (s *Store) AbortStatement() {
	s.mu.Lock()
	v := s.pending
	if v != 0 {
		for i := len(s.stmtEdges) - 1; i >= 0; i-- {
			s.rollbackEdge(s.stmtEdges[i], v)
		}
		for i := len(s.stmtNodes) - 1; i >= 0; i-- {
			s.rollbackNode(s.stmtNodes[i], v)
		}
	}
	s.pending = 0
	s.stmtDirty = false
	s.stmtNodes, s.stmtEdges = nil, nil
	s.mu.Unlock()
	s.writerMu.Unlock()
}

func (s *Store) rollbackNode(id graphval.NodeId, v graphval.Version) {
	c, ok := s.nodes[id]
	if !ok {
		return
	}
	var dropped *graphval.Node
	for len(c.versions) > 0 && c.versions[0].CreatedAt == v {
		dropped = c.versions[0]
		for k, pv := range dropped.Properties {
			s.props.remove(k, pv, id)
		}
		for _, l := range dropped.Labels {
			if b, ok := s.labelIndex[l]; ok {
				b.Remove(uint64(id))
			}
		}
		if dropped.DeletedAt != 0 {
			metrics.NodesTotal.WithLabelValues(string(s.tenant)).Inc()
		}
		c.versions = c.versions[1:]
	}
	if dropped != nil {
		s.removeFromVectorIndexes(dropped)
	}
	if len(c.versions) == 0 {
		delete(s.nodes, id)
		if dropped != nil {
			metrics.NodesTotal.WithLabelValues(string(s.tenant)).Dec()
		}
		return
	}
	head := c.versions[0]
	if head.DeletedAt == v {
		head.DeletedAt = 0
		metrics.NodesTotal.WithLabelValues(string(s.tenant)).Inc()
	}
	if head.DeletedAt == 0 {
		for k, pv := range head.Properties {
			s.props.insert(k, pv, id)
			s.enqueueVectorUpdates(head, k, pv)
		}
		for _, l := range head.Labels {
			bitmapOf(s.labelIndex, l).Add(uint64(id))
		}
	}
}

func (s *Store) rollbackEdge(id graphval.EdgeId, v graphval.Version) {
	c, ok := s.edges[id]
	if !ok {
		return
	}
	var dropped *graphval.Edge
	for len(c.versions) > 0 && c.versions[0].CreatedAt == v {
		dropped = c.versions[0]
		if dropped.DeletedAt != 0 {
			metrics.EdgesTotal.WithLabelValues(string(s.tenant)).Inc()
		}
		c.versions = c.versions[1:]
	}
	if len(c.versions) == 0 {
		delete(s.edges, id)
		if dropped != nil {
			if b, ok := s.adj.out[dropped.Source]; ok {
				b.Remove(uint64(id))
			}
			if b, ok := s.adj.in[dropped.Target]; ok {
				b.Remove(uint64(id))
			}
			metrics.EdgesTotal.WithLabelValues(string(s.tenant)).Dec()
		}
		return
	}
	head := c.versions[0]
	if head.DeletedAt == v {
		head.DeletedAt = 0
		metrics.EdgesTotal.WithLabelValues(string(s.tenant)).Inc()
	}
}

func bitmapOf(m map[graphval.LabelId]*roaring64.Bitmap, id graphval.LabelId) *roaring64.Bitmap {
	b, ok := m[id]
	if !ok {
		b = roaring64.New()
		m[id] = b
	}
	return b
}

// CreateNode inserts a new node with the given labels (by name, interned
// on the fly) and properties, returning its id. The caller is responsible
// for any tenant quota admission before calling this.
func (s *Store) CreateNode(labels []string, props map[string]graphval.PropertyValue) graphval.NodeId {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := graphval.NodeId(s.nextNodeId.Add(1))
	v := s.commitVersion()

	labelIds := make([]graphval.LabelId, 0, len(labels))
	for _, l := range labels {
		labelIds = append(labelIds, graphval.LabelId(s.interner.Intern(l)))
	}

	n := &graphval.Node{
		Id:         id,
		Tenant:     s.tenant,
		Labels:     labelIds,
		Properties: cloneProps(props),
		CreatedAt:  v,
	}
	s.nodes[id] = &nodeChain{versions: []*graphval.Node{n}}

	for _, l := range labelIds {
		bitmapOf(s.labelIndex, l).Add(uint64(id))
	}
	for k, pv := range n.Properties {
		s.props.insert(k, pv, id)
		s.enqueueVectorUpdates(n, k, pv)
	}
	if s.pending != 0 {
		s.stmtNodes = append(s.stmtNodes, id)
	}

	metrics.NodesTotal.WithLabelValues(string(s.tenant)).Inc()
	return id
}

// GetNode returns the node as of the store's current version, or
// CodeNotFound if it does not exist or has been deleted.
func (s *Store) GetNode(id graphval.NodeId) (*graphval.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getNodeAt(id, s.Version())
}

// GetNodeAt returns the node as of a specific past store version, the
// basis of snapshot-isolated reads taken before a long-running query
// began.
func (s *Store) GetNodeAt(id graphval.NodeId, asOf graphval.Version) (*graphval.Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getNodeAt(id, asOf)
}

func (s *Store) getNodeAt(id graphval.NodeId, asOf graphval.Version) (*graphval.Node, error) {
	c, ok := s.nodes[id]
	if !ok {
		return nil, samerr.New(samerr.CodeNotFound, "node %s not found", id)
	}
	n := c.at(asOf)
	if n == nil {
		return nil, samerr.New(samerr.CodeNotFound, "node %s not found", id)
	}
	return n, nil
}

// SetProperty updates (or adds) a single property on a node, committing a
// new version. It returns CodeNotFound if the node does not exist.
func (s *Store) SetProperty(id graphval.NodeId, key string, value graphval.PropertyValue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.nodes[id]
	if !ok {
		return samerr.New(samerr.CodeNotFound, "node %s not found", id)
	}
	cur := c.at(s.readVersion())
	if cur == nil {
		return samerr.New(samerr.CodeNotFound, "node %s not found", id)
	}

	v := s.commitVersion()
	next := &graphval.Node{
		Id:         id,
		Tenant:     cur.Tenant,
		Labels:     cur.Labels,
		Properties: cloneProps(cur.Properties),
		CreatedAt:  v,
	}
	if old, ok := next.Properties[key]; ok {
		s.props.remove(key, old, id)
	}
	next.Properties[key] = value
	s.props.insert(key, value, id)
	s.enqueueVectorUpdates(next, key, value)
	c.versions = append([]*graphval.Node{next}, c.versions...)
	if s.pending != 0 {
		s.stmtNodes = append(s.stmtNodes, id)
	}
	return nil
}

// AddLabel adds a label to a node, committing a new version. A no-op if
// the node already carries the label.
func (s *Store) AddLabel(id graphval.NodeId, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.nodes[id]
	if !ok {
		return samerr.New(samerr.CodeNotFound, "node %s not found", id)
	}
	cur := c.at(s.readVersion())
	if cur == nil {
		return samerr.New(samerr.CodeNotFound, "node %s not found", id)
	}

	labelId := graphval.LabelId(s.interner.Intern(label))
	if cur.HasLabel(labelId) {
		return nil
	}

	v := s.commitVersion()
	next := &graphval.Node{
		Id:         id,
		Tenant:     cur.Tenant,
		Labels:     append(append([]graphval.LabelId(nil), cur.Labels...), labelId),
		Properties: cloneProps(cur.Properties),
		CreatedAt:  v,
	}
	bitmapOf(s.labelIndex, labelId).Add(uint64(id))
	c.versions = append([]*graphval.Node{next}, c.versions...)
	if s.pending != 0 {
		s.stmtNodes = append(s.stmtNodes, id)
	}
	return nil
}

// RemoveLabel removes a label from a node, committing a new version. A
// no-op if the node does not carry the label.
func (s *Store) RemoveLabel(id graphval.NodeId, label string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.nodes[id]
	if !ok {
		return samerr.New(samerr.CodeNotFound, "node %s not found", id)
	}
	cur := c.at(s.readVersion())
	if cur == nil {
		return samerr.New(samerr.CodeNotFound, "node %s not found", id)
	}

	labelId, ok := s.interner.Lookup(label)
	if !ok || !cur.HasLabel(graphval.LabelId(labelId)) {
		return nil
	}

	v := s.commitVersion()
	remaining := make([]graphval.LabelId, 0, len(cur.Labels))
	for _, l := range cur.Labels {
		if l != graphval.LabelId(labelId) {
			remaining = append(remaining, l)
		}
	}
	next := &graphval.Node{
		Id:         id,
		Tenant:     cur.Tenant,
		Labels:     remaining,
		Properties: cloneProps(cur.Properties),
		CreatedAt:  v,
	}
	if b, ok := s.labelIndex[graphval.LabelId(labelId)]; ok {
		b.Remove(uint64(id))
	}
	c.versions = append([]*graphval.Node{next}, c.versions...)
	if s.pending != 0 {
		s.stmtNodes = append(s.stmtNodes, id)
	}
	return nil
}

// DeleteNode tombstones a node and cascades the deletion to every incident
// edge (implicit cascade, no DETACH DELETE syntax).
func (s *Store) DeleteNode(id graphval.NodeId) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.nodes[id]
	if !ok {
		return samerr.New(samerr.CodeNotFound, "node %s not found", id)
	}
	cur := c.at(s.readVersion())
	if cur == nil {
		return samerr.New(samerr.CodeNotFound, "node %s not found", id)
	}

	v := s.commitVersion()
	cur.DeletedAt = v
	if s.pending != 0 {
		s.stmtNodes = append(s.stmtNodes, id)
	}

	for _, l := range cur.Labels {
		if b, ok := s.labelIndex[l]; ok {
			b.Remove(uint64(id))
		}
	}
	for k, pv := range cur.Properties {
		s.props.remove(k, pv, id)
	}
	s.removeFromVectorIndexes(cur)

	if out, ok := s.adj.out[id]; ok {
		it := out.Iterator()
		for it.HasNext() {
			s.deleteEdgeLocked(graphval.EdgeId(it.Next()), v)
		}
	}
	if in, ok := s.adj.in[id]; ok {
		it := in.Iterator()
		for it.HasNext() {
			s.deleteEdgeLocked(graphval.EdgeId(it.Next()), v)
		}
	}

	metrics.NodesTotal.WithLabelValues(string(s.tenant)).Dec()
	return nil
}

// SetEdgeProperty updates (or adds) a single property on an edge,
// committing a new version.
func (s *Store) SetEdgeProperty(id graphval.EdgeId, key string, value graphval.PropertyValue) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.edges[id]
	if !ok {
		return samerr.New(samerr.CodeNotFound, "edge %s not found", id)
	}
	cur := c.at(s.readVersion())
	if cur == nil {
		return samerr.New(samerr.CodeNotFound, "edge %s not found", id)
	}

	v := s.commitVersion()
	next := &graphval.Edge{
		Id:         id,
		Tenant:     cur.Tenant,
		Type:       cur.Type,
		Source:     cur.Source,
		Target:     cur.Target,
		Properties: cloneProps(cur.Properties),
		CreatedAt:  v,
	}
	next.Properties[key] = value
	c.versions = append([]*graphval.Edge{next}, c.versions...)
	if s.pending != 0 {
		s.stmtEdges = append(s.stmtEdges, id)
	}
	return nil
}

// CreateEdge inserts a new edge of the given type (interned on the fly)
// between two existing nodes. It returns CodeNotFound if either endpoint
// does not exist.
func (s *Store) CreateEdge(edgeType string, source, target graphval.NodeId, props map[string]graphval.PropertyValue) (graphval.EdgeId, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.getNodeAt(source, s.readVersion()); err != nil {
		return 0, err
	}
	if _, err := s.getNodeAt(target, s.readVersion()); err != nil {
		return 0, err
	}

	id := graphval.EdgeId(s.nextEdgeId.Add(1))
	v := s.commitVersion()

	e := &graphval.Edge{
		Id:         id,
		Tenant:     s.tenant,
		Type:       graphval.EdgeTypeId(s.interner.Intern(edgeType)),
		Source:     source,
		Target:     target,
		Properties: cloneProps(props),
		CreatedAt:  v,
	}
	s.edges[id] = &edgeChain{versions: []*graphval.Edge{e}}

	if _, ok := s.adj.out[source]; !ok {
		s.adj.out[source] = roaring64.New()
	}
	s.adj.out[source].Add(uint64(id))
	if _, ok := s.adj.in[target]; !ok {
		s.adj.in[target] = roaring64.New()
	}
	s.adj.in[target].Add(uint64(id))
	if s.pending != 0 {
		s.stmtEdges = append(s.stmtEdges, id)
	}

	metrics.EdgesTotal.WithLabelValues(string(s.tenant)).Inc()
	return id, nil
}

// GetEdge returns the edge as of the store's current version.
func (s *Store) GetEdge(id graphval.EdgeId) (*graphval.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getEdgeAt(id, s.Version())
}

// GetEdgeAt returns the edge as of a specific past store version.
func (s *Store) GetEdgeAt(id graphval.EdgeId, asOf graphval.Version) (*graphval.Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getEdgeAt(id, asOf)
}

func (s *Store) getEdgeAt(id graphval.EdgeId, asOf graphval.Version) (*graphval.Edge, error) {
	c, ok := s.edges[id]
	if !ok {
		return nil, samerr.New(samerr.CodeNotFound, "edge %s not found", id)
	}
	e := c.at(asOf)
	if e == nil {
		return nil, samerr.New(samerr.CodeNotFound, "edge %s not found", id)
	}
	return e, nil
}

// DeleteEdge tombstones an edge.
func (s *Store) DeleteEdge(id graphval.EdgeId) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, err := s.getEdgeAt(id, s.readVersion()); err != nil {
		return err
	}
	v := s.commitVersion()
	s.deleteEdgeLocked(id, v)
	return nil
}

// deleteEdgeLocked tombstones an edge at a version already allocated by
// the caller. Used both by DeleteEdge and by DeleteNode's incident-edge
// cascade, which must not allocate a fresh version per edge.
func (s *Store) deleteEdgeLocked(id graphval.EdgeId, v graphval.Version) {
	c, ok := s.edges[id]
	if !ok {
		return
	}
	e := c.at(v)
	if e == nil {
		return
	}
	e.DeletedAt = v
	if s.pending != 0 {
		s.stmtEdges = append(s.stmtEdges, id)
	}
	metrics.EdgesTotal.WithLabelValues(string(s.tenant)).Dec()
}

// Direction selects which adjacency list Neighbors walks.
type Direction int

const (
	DirOut Direction = iota
	DirIn
	DirBoth
)

// NeighborRef is one adjacency triple — edge id, interned edge type, and
// both endpoints — read straight off the in-memory version struct's
// scalar fields, never cloning the edge's property map. This is the
// traversal hot path: expansion filters on these scalars and only fetches
// the full edge record when an inline property predicate needs it.
type NeighborRef struct {
	Edge   graphval.EdgeId
	Type   graphval.EdgeTypeId
	Source graphval.NodeId
	Target graphval.NodeId
}

// Neighbors returns the live adjacency triples of a node as of asOf,
// optionally restricted to the given edge types (none means any type).
func (s *Store) Neighbors(id graphval.NodeId, dir Direction, asOf graphval.Version, types ...graphval.EdgeTypeId) []NeighborRef {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []NeighborRef
	if dir == DirOut || dir == DirBoth {
		out = s.appendNeighbors(out, s.adj.out[id], asOf, types)
	}
	if dir == DirIn || dir == DirBoth {
		out = s.appendNeighbors(out, s.adj.in[id], asOf, types)
	}
	return out
}

func (s *Store) appendNeighbors(out []NeighborRef, b *roaring64.Bitmap, asOf graphval.Version, types []graphval.EdgeTypeId) []NeighborRef {
	if b == nil {
		return out
	}
	it := b.Iterator()
	for it.HasNext() {
		id := graphval.EdgeId(it.Next())
		e := s.edges[id].at(asOf)
		if e == nil {
			continue
		}
		if len(types) > 0 {
			match := false
			for _, t := range types {
				if e.Type == t {
					match = true
					break
				}
			}
			if !match {
				continue
			}
		}
		out = append(out, NeighborRef{Edge: id, Type: e.Type, Source: e.Source, Target: e.Target})
	}
	return out
}

// OutEdges returns the live outgoing edge ids of a node as of asOf.
func (s *Store) OutEdges(id graphval.NodeId, asOf graphval.Version) []graphval.EdgeId {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.adj.out[id]
	if !ok {
		return nil
	}
	return s.liveEdgeIds(b, asOf)
}

// InEdges returns the live incoming edge ids of a node as of asOf.
func (s *Store) InEdges(id graphval.NodeId, asOf graphval.Version) []graphval.EdgeId {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.adj.in[id]
	if !ok {
		return nil
	}
	return s.liveEdgeIds(b, asOf)
}

func (s *Store) liveEdgeIds(b *roaring64.Bitmap, asOf graphval.Version) []graphval.EdgeId {
	out := make([]graphval.EdgeId, 0, b.GetCardinality())
	it := b.Iterator()
	for it.HasNext() {
		id := graphval.EdgeId(it.Next())
		if e := s.edges[id].at(asOf); e != nil {
			out = append(out, id)
		}
	}
	return out
}

// NodesByLabel returns the live node ids carrying label l as of asOf.
func (s *Store) NodesByLabel(l graphval.LabelId, asOf graphval.Version) []graphval.NodeId {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.labelIndex[l]
	if !ok {
		return nil
	}
	out := make([]graphval.NodeId, 0, b.GetCardinality())
	it := b.Iterator()
	for it.HasNext() {
		id := graphval.NodeId(it.Next())
		if s.nodes[id].at(asOf) != nil {
			out = append(out, id)
		}
	}
	return out
}

// AllNodeIds returns every live node id as of asOf, for a full node scan.
func (s *Store) AllNodeIds(asOf graphval.Version) []graphval.NodeId {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]graphval.NodeId, 0, len(s.nodes))
	for id, c := range s.nodes {
		if c.at(asOf) != nil {
			out = append(out, id)
		}
	}
	return out
}

// PropertyIndex exposes the property index for C4 range/equality scans.
func (s *Store) PropertyIndex() *propertyIndex {
	return s.props
}

// RestoreNode re-inserts a node recovered from the keyed store, preserving
// its original id, version stamps, labels, and properties, and bumping
// the store's id/version counters so subsequently created entities never
// collide with a recovered one. Used only by internal/persistence during
// cold-start recovery.
func (s *Store) RestoreNode(n *graphval.Node) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nodes[n.Id] = &nodeChain{versions: []*graphval.Node{n}}
	for _, l := range n.Labels {
		bitmapOf(s.labelIndex, l).Add(uint64(n.Id))
	}
	for k, pv := range n.Properties {
		s.props.insert(k, pv, n.Id)
		s.enqueueVectorUpdates(n, k, pv)
	}
	bumpCounter(&s.nextNodeId, uint64(n.Id))
	bumpVersionFloor(&s.version, uint64(n.CreatedAt))
	bumpVersionFloor(&s.version, uint64(n.DeletedAt))
}

// RestoreEdge re-inserts an edge recovered from the keyed store, mirroring
// RestoreNode's id/version preservation and rebuilding adjacency.
func (s *Store) RestoreEdge(e *graphval.Edge) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.edges[e.Id] = &edgeChain{versions: []*graphval.Edge{e}}
	if _, ok := s.adj.out[e.Source]; !ok {
		s.adj.out[e.Source] = roaring64.New()
	}
	s.adj.out[e.Source].Add(uint64(e.Id))
	if _, ok := s.adj.in[e.Target]; !ok {
		s.adj.in[e.Target] = roaring64.New()
	}
	s.adj.in[e.Target].Add(uint64(e.Id))
	bumpCounter(&s.nextEdgeId, uint64(e.Id))
	bumpVersionFloor(&s.version, uint64(e.CreatedAt))
	bumpVersionFloor(&s.version, uint64(e.DeletedAt))
}

func bumpCounter(counter *atomic.Uint64, floor uint64) {
	for {
		cur := counter.Load()
		if cur >= floor {
			return
		}
		if counter.CompareAndSwap(cur, floor) {
			return
		}
	}
}

func bumpVersionFloor(v *atomic.Uint64, floor uint64) {
	bumpCounter(v, floor)
}

// NodeIdsFromBitmap converts a roaring64 bitmap of raw ids into NodeIds.
func NodeIdsFromBitmap(b *roaring64.Bitmap) []graphval.NodeId {
	out := make([]graphval.NodeId, 0, b.GetCardinality())
	it := b.Iterator()
	for it.HasNext() {
		out = append(out, graphval.NodeId(it.Next()))
	}
	return out
}

func cloneProps(in map[string]graphval.PropertyValue) map[string]graphval.PropertyValue {
	out := make(map[string]graphval.PropertyValue, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

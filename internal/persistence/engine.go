package persistence

import (
	"sync"

	"github.com/samyama-ai/samyama-graph-sub001/internal/graphval"
	"github.com/samyama-ai/samyama-graph-sub001/internal/samerr"
	"github.com/samyama-ai/samyama-graph-sub001/internal/store"
	"github.com/samyama-ai/samyama-graph-sub001/internal/tenant"
	"github.com/samyama-ai/samyama-graph-sub001/internal/vectorindex"
)

// Engine is the persistence layer of one node: a WAL shared across all
// tenants, a keyed store shared across all tenants (bucketed internally),
// and one in-memory store.Store per tenant. It is the thing that makes
// C3 mutations durable and restores them on cold start.
type Engine struct {
	mu sync.RWMutex

	wal      *WAL
	kv       *KV
	interner *graphval.Interner
	quotas   *tenant.Registry

	stores map[graphval.TenantId]*store.Store
}

// Open opens (creating if absent) the WAL and keyed store under dataDir's
// "wal" and "data" subdirectories, and runs recovery.
func Open(dataDir string, interner *graphval.Interner, quotas *tenant.Registry) (*Engine, error) {
	wal, err := OpenWAL(dataDir + "/wal")
	if err != nil {
		return nil, err
	}
	kv, err := OpenKV(dataDir + "/data")
	if err != nil {
		return nil, err
	}
	e := &Engine{
		wal:      wal,
		kv:       kv,
		interner: interner,
		quotas:   quotas,
		stores:   make(map[graphval.TenantId]*store.Store),
	}
	if err := e.recover(); err != nil {
		return nil, err
	}
	return e, nil
}

// Close flushes and closes the WAL and keyed store.
func (e *Engine) Close() error {
	if err := e.wal.Close(); err != nil {
		return err
	}
	return e.kv.Close()
}

// Store returns (creating if absent) the in-memory store for tenant. A
// freshly created tenant namespace starts empty; it is populated either
// by recovery (at Open time) or by subsequent Apply calls.
func (e *Engine) Store(tenant graphval.TenantId) *store.Store {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.stores[tenant]
	if !ok {
		s = store.New(tenant, e.interner)
		e.stores[tenant] = s
	}
	return s
}

// Interner returns the label/edge-type interner shared by every tenant's
// store, so callers building a Query response can resolve interned ids
// back to names.
func (e *Engine) Interner() *graphval.Interner {
	return e.interner
}

// WALSegmentCount reports the number of WAL segment files currently on
// disk, for the Status request's storage.wal_segments field.
func (e *Engine) WALSegmentCount() (int, error) {
	return e.wal.SegmentCount()
}

// LastCheckpointVersion reports the highest WAL sequence number durably
// applied for tenant, for the Status request's
// storage.last_checkpoint_version field.
func (e *Engine) LastCheckpointVersion(t graphval.TenantId) (uint64, error) {
	return e.kv.LastApplied(t)
}

// Tenants lists every tenant namespace with an in-memory store, whether
// because it was recovered or created during this process's lifetime.
func (e *Engine) Tenants() []graphval.TenantId {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]graphval.TenantId, 0, len(e.stores))
	for t := range e.stores {
		out = append(out, t)
	}
	return out
}

// DeleteTenant drops a tenant's in-memory store and its materialized KV
// state, used by the DeleteGraph request. The drop is WAL-logged first so
// recovery re-runs it after any entries it supersedes; it deliberately
// skips the last-applied bookkeeping, which would recreate the tenant's
// meta bucket in the store being deleted.
func (e *Engine) DeleteTenant(t graphval.TenantId) error {
	if _, err := e.wal.Append(LogEntry{Tenant: t, Op: Mutation{Kind: MutDeleteGraph}}); err != nil {
		return err
	}
	e.mu.Lock()
	delete(e.stores, t)
	e.mu.Unlock()
	return e.kv.DeleteTenant(t)
}

// Apply durably commits mut for tenant: append to the WAL, apply to the
// in-memory store, then write the resulting entity through to the keyed
// store. Mutation order is append-then-apply so a crash between the two
// still has the mutation recoverable from the WAL.
func (e *Engine) Apply(t graphval.TenantId, mut Mutation) (uint64, error) {
	seq, err := e.wal.Append(LogEntry{Tenant: t, Op: mut})
	if err != nil {
		return 0, err
	}
	// Creation mutations assign an id inside the store; applyToStore
	// writes it back into mut so the write-through below (and the
	// caller, who may want the new id) sees the same value that landed
	// in the WAL record's Op. The WAL record itself predates the id
	// assignment, which is fine: replay re-runs CreateNode/CreateEdge in
	// the same order and gets the same id back deterministically.
	if err := e.applyToStore(t, &mut); err != nil {
		return seq, err
	}
	if err := e.writeThrough(t, mut); err != nil {
		return seq, err
	}
	if err := e.kv.SetLastApplied(t, seq); err != nil {
		return seq, err
	}
	return seq, nil
}

// applyToStore applies mut to tenant's in-memory store. For creation
// mutations it writes the store-assigned id back into mut (NodeId or
// EdgeId) so the caller's write-through targets the right key.
func (e *Engine) applyToStore(t graphval.TenantId, mut *Mutation) error {
	s := e.Store(t)
	switch mut.Kind {
	case MutCreateNode:
		mut.NodeId = s.CreateNode(mut.Labels, mut.Props)
		return e.admit(t, tenant.ResourceNodes, 1)
	case MutCreateEdge:
		id, err := s.CreateEdge(mut.EdgeType, mut.Source, mut.Target, mut.Props)
		if err != nil {
			return err
		}
		mut.EdgeId = id
		return e.admit(t, tenant.ResourceEdges, 1)
	case MutSetNodeProperty:
		return s.SetProperty(mut.NodeId, mut.Key, mut.Value)
	case MutSetEdgeProperty:
		return s.SetEdgeProperty(mut.EdgeId, mut.Key, mut.Value)
	case MutDeleteNode:
		if err := s.DeleteNode(mut.NodeId); err != nil {
			return err
		}
		return e.admit(t, tenant.ResourceNodes, -1)
	case MutDeleteEdge:
		if err := s.DeleteEdge(mut.EdgeId); err != nil {
			return err
		}
		return e.admit(t, tenant.ResourceEdges, -1)
	case MutAddLabel:
		if len(mut.Labels) == 0 {
			return samerr.New(samerr.CodeSemanticError, "add_label mutation carries no label")
		}
		return s.AddLabel(mut.NodeId, mut.Labels[0])
	case MutRemoveLabel:
		if len(mut.Labels) == 0 {
			return samerr.New(samerr.CodeSemanticError, "remove_label mutation carries no label")
		}
		return s.RemoveLabel(mut.NodeId, mut.Labels[0])
	case MutCreateIndex:
		if mut.Vector {
			metric := vectorindex.Metric(mut.Metric)
			if metric == "" {
				metric = vectorindex.MetricCosine
			}
			return s.CreateVectorIndex(mut.Label, mut.Key, mut.Dim, metric)
		}
		return s.CreatePropertyIndex(mut.Label, mut.Key)
	case MutDropIndex:
		// Index removal is not exposed by the in-memory store today
		// (indices are rebuildable from the materialized entities on
		// recovery); DropIndex is logged for audit but otherwise a
		// no-op against the live store.
		return nil
	case MutDeleteGraph:
		e.mu.Lock()
		delete(e.stores, t)
		e.mu.Unlock()
		return nil
	default:
		return samerr.New(samerr.CodeSemanticError, "unknown mutation kind %q", mut.Kind)
	}
}

func (e *Engine) admit(t graphval.TenantId, resource tenant.Resource, delta int64) error {
	if e.quotas == nil {
		return nil
	}
	return e.quotas.Admit(t, resource, delta)
}

// writeThrough materializes the post-mutation entity into the keyed
// store. Node/edge mutations re-read the current version from the
// in-memory store (already updated by applyToStore) and serialize it;
// deletions remove the key outright.
func (e *Engine) writeThrough(t graphval.TenantId, mut Mutation) error {
	s := e.Store(t)
	switch mut.Kind {
	case MutCreateNode, MutSetNodeProperty, MutAddLabel, MutRemoveLabel:
		n, err := s.GetNode(mut.NodeId)
		if err != nil {
			return err
		}
		data, err := e.encodeNode(n)
		if err != nil {
			return err
		}
		return e.kv.PutNode(t, mut.NodeId, data)
	case MutDeleteNode:
		return e.kv.DeleteNode(t, mut.NodeId)
	case MutCreateEdge, MutSetEdgeProperty:
		ed, err := s.GetEdge(mut.EdgeId)
		if err != nil {
			return err
		}
		data, err := e.encodeEdge(ed)
		if err != nil {
			return err
		}
		return e.kv.PutEdge(t, mut.EdgeId, data)
	case MutDeleteEdge:
		return e.kv.DeleteEdge(t, mut.EdgeId)
	case MutDeleteGraph:
		return e.kv.DeleteTenant(t)
	default:
		return nil
	}
}

// CommitBatch durably records a statement's already-applied-and-committed
// mutations in order: WAL append, write-through to the keyed store, and
// last-applied bookkeeping per mutation. internal/session calls this once
// per successful write statement with the batch its Recorder collected.
func (e *Engine) CommitBatch(t graphval.TenantId, muts []Mutation) error {
	for _, mut := range muts {
		seq, err := e.wal.Append(LogEntry{Tenant: t, Op: mut})
		if err != nil {
			return err
		}
		if err := e.writeThrough(t, mut); err != nil {
			return err
		}
		if err := e.kv.SetLastApplied(t, seq); err != nil {
			return err
		}
	}
	return nil
}

// ApplyBatch applies a replicated statement's mutations as one unit: a
// single store write statement (one version bump at commit, rollback on
// failure) followed by the same durable recording CommitBatch does for a
// local write. The cluster FSM uses this so a follower's version history
// advances statement-at-a-time, matching the leader's commits.
func (e *Engine) ApplyBatch(t graphval.TenantId, muts []Mutation) error {
	s := e.Store(t)
	s.BeginStatement()
	for i := range muts {
		if err := e.applyToStore(t, &muts[i]); err != nil {
			s.AbortStatement()
			return err
		}
	}
	s.CommitStatement()
	return e.CommitBatch(t, muts)
}

// Checkpoint rewrites every live node of every known tenant into the keyed
// store (edges are not rewritten here; they are written through as they
// are mutated), takes the highest last-applied WAL sequence across those
// tenants, and truncates the WAL segments at or below it. Safe to run concurrently
// with reads; serializes with writes via Engine's lock.
func (e *Engine) Checkpoint() error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var maxSeq uint64
	for t, s := range e.stores {
		if err := e.flushStoreLocked(t, s); err != nil {
			return err
		}
		last, err := e.kv.LastApplied(t)
		if err != nil {
			return err
		}
		if last > maxSeq {
			maxSeq = last
		}
	}
	return e.wal.TruncatePrefix(maxSeq)
}

func (e *Engine) flushStoreLocked(t graphval.TenantId, s *store.Store) error {
	var outerErr error
	for _, id := range s.AllNodeIds(s.Version()) {
		n, err := s.GetNode(id)
		if err != nil {
			continue
		}
		data, err := e.encodeNode(n)
		if err != nil {
			outerErr = err
			continue
		}
		if err := e.kv.PutNode(t, id, data); err != nil {
			outerErr = err
		}
	}
	return outerErr
}

// recover rebuilds every tenant's in-memory store from its materialized
// keyed-store entities, then replays any WAL suffix the keyed store had
// not yet applied.
func (e *Engine) recover() error {
	tenants, err := e.kv.Tenants()
	if err != nil {
		return err
	}
	maxLastApplied := make(map[graphval.TenantId]uint64, len(tenants))
	for _, t := range tenants {
		s := e.Store(t)
		if err := e.kv.ForEachNode(t, func(id graphval.NodeId, data []byte) error {
			n, err := e.decodeNode(data)
			if err != nil {
				return err
			}
			s.RestoreNode(n)
			return nil
		}); err != nil {
			return err
		}
		if err := e.kv.ForEachEdge(t, func(id graphval.EdgeId, data []byte) error {
			ed, err := e.decodeEdge(data)
			if err != nil {
				return err
			}
			s.RestoreEdge(ed)
			return nil
		}); err != nil {
			return err
		}
		last, err := e.kv.LastApplied(t)
		if err != nil {
			return err
		}
		maxLastApplied[t] = last
	}

	var globalMin uint64
	first := true
	for _, last := range maxLastApplied {
		if first || last < globalMin {
			globalMin = last
			first = false
		}
	}
	if first {
		globalMin = 0
	}

	return e.wal.Replay(globalMin, func(entry LogEntry) error {
		if applied, ok := maxLastApplied[entry.Tenant]; ok && entry.Seq <= applied {
			return nil
		}
		op := entry.Op
		if err := e.applyToStore(entry.Tenant, &op); err != nil {
			return err
		}
		return e.writeThrough(entry.Tenant, op)
	})
}

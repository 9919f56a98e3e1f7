// Package cluster wraps internal/persistence.Engine in a hashicorp/raft
// finite state machine, turning one node's durable store into a
// replicated one: log replication, leader election, snapshot/restore, and
// single-node-at-a-time membership changes.
package cluster

import (
	"encoding/json"
	"fmt"
	"io"
	"sync"

	"github.com/hashicorp/raft"
	"github.com/samyama-ai/samyama-graph-sub001/internal/graphval"
	"github.com/samyama-ai/samyama-graph-sub001/internal/obs/metrics"
	"github.com/samyama-ai/samyama-graph-sub001/internal/persistence"
)

// Command is one Raft log entry: a tenant's ordered batch of mutations
// produced by running one write statement against the leader's local
// store. BatchID lets the proposing node recognize its own entry when
// Raft delivers it back to the FSM, so it isn't re-applied on top of the
// mutation it already ran locally (see FSM.Apply).
type Command struct {
	BatchID string                 `json:"batch_id"`
	Tenant  graphval.TenantId      `json:"tenant"`
	Muts    []persistence.Mutation `json:"muts"`
}

// FSM adapts persistence.Engine to raft.FSM. Every command it applies on a
// follower runs through Engine.ApplyBatch exactly like a local write
// statement would — one store statement, one version bump — so a
// follower's store, WAL, and keyed store end up derivable from the same
// committed log every other replica sees.
type FSM struct {
	engine *persistence.Engine

	mu     sync.Mutex
	local  map[string]struct{} // batch ids this node originated and already applied locally
}

func NewFSM(engine *persistence.Engine) *FSM {
	return &FSM{engine: engine, local: make(map[string]struct{})}
}

// markLocal records that batchID was already applied to engine's store by
// this node before being proposed, so Apply should treat its eventual
// commit as a no-op rather than re-running mutations that already landed.
func (f *FSM) markLocal(batchID string) {
	f.mu.Lock()
	f.local[batchID] = struct{}{}
	f.mu.Unlock()
}

func (f *FSM) takeLocal(batchID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.local[batchID]; ok {
		delete(f.local, batchID)
		return true
	}
	return false
}

// Apply is invoked by Raft once a log entry commits. For a batch this
// node proposed, the mutations already ran against the local store (via
// internal/query's WriteRecorder path) and were already made durable by
// Engine.CommitBatch, so Apply only clears the dedup entry. For a batch
// originated elsewhere, it replays the whole batch through
// Engine.ApplyBatch, this node's first and only chance to apply and
// persist it.
func (f *FSM) Apply(l *raft.Log) interface{} {
	timer := metrics.NewTimer()
	defer timer.ObserveDuration(metrics.RaftApplyDuration)

	var cmd Command
	if err := json.Unmarshal(l.Data, &cmd); err != nil {
		return fmt.Errorf("cluster: decoding raft log entry: %w", err)
	}
	if f.takeLocal(cmd.BatchID) {
		return nil
	}
	if err := f.engine.ApplyBatch(cmd.Tenant, cmd.Muts); err != nil {
		return err
	}
	return nil
}

// Snapshot hands Raft a point-in-time marker; restoring simply replays
// the keyed store and WAL through Engine's own recovery path, so the
// snapshot body only needs to record that a snapshot happened; the real
// state lives in Engine's KV and WAL underneath it.
func (f *FSM) Snapshot() (raft.FSMSnapshot, error) {
	return &engineSnapshot{}, nil
}

// Restore is a no-op: a node reinstalling a snapshot still boots through
// persistence.Open, which runs Engine's own recover() against its local
// WAL/KV. Cluster-level snapshotting in this engine is a log-compaction
// signal, not a state transfer mechanism (state transfer for a newly
// joined node happens out of band, by copying the data directory).
func (f *FSM) Restore(rc io.ReadCloser) error {
	return rc.Close()
}

type engineSnapshot struct{}

func (s *engineSnapshot) Persist(sink raft.SnapshotSink) error {
	_, err := sink.Write([]byte("{}"))
	if err != nil {
		sink.Cancel()
		return err
	}
	return sink.Close()
}

func (s *engineSnapshot) Release() {}

package persistence

import "github.com/samyama-ai/samyama-graph-sub001/internal/graphval"

// Recorder receives the mutations the query executor applies to a
// tenant's in-memory store. It satisfies internal/query.WriteRecorder
// structurally, so no import of internal/query is needed here —
// internal/session wires the two together.
//
// With Batch set (the statement path), recorded mutations are only
// collected, in order; nothing touches the WAL or keyed store until the
// caller hands the batch to Engine.CommitBatch after the statement
// commits. A statement that fails mid-way therefore leaves no durable
// trace. Without Batch, each mutation is made durable immediately.
type Recorder struct {
	engine *Engine
	tenant graphval.TenantId
	Batch  *[]Mutation
}

// Recorder returns a WriteRecorder-shaped adapter for tenant.
func (e *Engine) Recorder(t graphval.TenantId) *Recorder {
	return &Recorder{engine: e, tenant: t}
}

func (r *Recorder) record(mut Mutation) error {
	if r.Batch != nil {
		*r.Batch = append(*r.Batch, mut)
		return nil
	}
	seq, err := r.engine.wal.Append(LogEntry{Tenant: r.tenant, Op: mut})
	if err != nil {
		return err
	}
	if err := r.engine.writeThrough(r.tenant, mut); err != nil {
		return err
	}
	return r.engine.kv.SetLastApplied(r.tenant, seq)
}

func (r *Recorder) RecordCreateNode(id graphval.NodeId, labels []string, props map[string]graphval.PropertyValue) error {
	return r.record(Mutation{Kind: MutCreateNode, NodeId: id, Labels: labels, Props: props})
}

func (r *Recorder) RecordCreateEdge(id graphval.EdgeId, edgeType string, source, target graphval.NodeId, props map[string]graphval.PropertyValue) error {
	return r.record(Mutation{Kind: MutCreateEdge, EdgeId: id, EdgeType: edgeType, Source: source, Target: target, Props: props})
}

func (r *Recorder) RecordSetNodeProperty(id graphval.NodeId, key string, value graphval.PropertyValue) error {
	return r.record(Mutation{Kind: MutSetNodeProperty, NodeId: id, Key: key, Value: value})
}

func (r *Recorder) RecordSetEdgeProperty(id graphval.EdgeId, key string, value graphval.PropertyValue) error {
	return r.record(Mutation{Kind: MutSetEdgeProperty, EdgeId: id, Key: key, Value: value})
}

func (r *Recorder) RecordDeleteNode(id graphval.NodeId) error {
	return r.record(Mutation{Kind: MutDeleteNode, NodeId: id})
}

func (r *Recorder) RecordDeleteEdge(id graphval.EdgeId) error {
	return r.record(Mutation{Kind: MutDeleteEdge, EdgeId: id})
}

func (r *Recorder) RecordAddLabel(id graphval.NodeId, label string) error {
	return r.record(Mutation{Kind: MutAddLabel, NodeId: id, Labels: []string{label}})
}

func (r *Recorder) RecordRemoveLabel(id graphval.NodeId, label string) error {
	return r.record(Mutation{Kind: MutRemoveLabel, NodeId: id, Labels: []string{label}})
}

func (r *Recorder) RecordCreateIndex(label, key string, vector bool, dim int, metric string) error {
	return r.record(Mutation{Kind: MutCreateIndex, Label: label, Key: key, Vector: vector, Dim: dim, Metric: metric})
}

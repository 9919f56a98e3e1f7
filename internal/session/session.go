// Package session implements the Request API wire servers consume:
// Query/Status/Ping/DeleteGraph/ListGraphs, each a plain Go method so a
// RESP/HTTP/CLI front end (or internal/router, forwarding on another
// node's behalf) can call in without knowing anything about Cypher, MVCC,
// or Raft.
package session

import (
	"encoding/json"
	"time"

	"github.com/samyama-ai/samyama-graph-sub001/internal/cluster"
	"github.com/samyama-ai/samyama-graph-sub001/internal/graphval"
	"github.com/samyama-ai/samyama-graph-sub001/internal/obs/log"
	"github.com/samyama-ai/samyama-graph-sub001/internal/obs/metrics"
	"github.com/samyama-ai/samyama-graph-sub001/internal/persistence"
	"github.com/samyama-ai/samyama-graph-sub001/internal/query"
	"github.com/samyama-ai/samyama-graph-sub001/internal/samerr"
	"github.com/samyama-ai/samyama-graph-sub001/internal/store"
	"github.com/samyama-ai/samyama-graph-sub001/internal/tenant"
)

// Session is one node's Request API handle: everything a physical
// connection needs to run requests against this node's share of the
// graph. Node is nil for a standalone (non-clustered) deployment.
type Session struct {
	Engine *persistence.Engine
	Quotas *tenant.Registry
	Node   *cluster.Node
	Procs  *query.ProcedureRegistry
}

func New(engine *persistence.Engine, quotas *tenant.Registry, node *cluster.Node) *Session {
	return &Session{Engine: engine, Quotas: quotas, Node: node, Procs: query.NewProcedureRegistry()}
}

// QueryRequest is one Cypher statement to run against a tenant's graph,
// with an optional deadline and EXPLAIN mode.
type QueryRequest struct {
	Tenant   graphval.TenantId
	Cypher   string
	ReadOnly bool
	Deadline time.Time
	Params   map[string]graphval.PropertyValue
	Explain  bool
}

// NodeRef/EdgeRef are the minimal entity snapshots the Query response
// attaches for every node/edge id appearing in Records, so a caller
// doesn't need a second round trip to resolve what a bound pattern
// variable refers to.
type NodeRef struct {
	Id         graphval.NodeId
	Labels     []string
	Properties map[string]graphval.PropertyValue
}

type EdgeRef struct {
	Id         graphval.EdgeId
	Type       string
	Source     graphval.NodeId
	Target     graphval.NodeId
	Properties map[string]graphval.PropertyValue
}

// QueryResponse is the Query success shape: tabular records plus resolved
// references for every node/edge id they mention.
type QueryResponse struct {
	Columns []string
	Records [][]any
	Nodes   []NodeRef
	Edges   []EdgeRef
	Plan    *query.Statement `json:"plan,omitempty"`
}

// Query parses and runs req.Cypher against req.Tenant's store. A write
// statement executes under one store write statement (single version
// bump, all-or-nothing), and its collected mutation batch is durably
// recorded (WAL + keyed store) only after the statement commits — a
// failed statement leaves no trace, in memory or on disk. If the session
// is running under Raft and this node is the leader, the committed batch
// is then replicated to the rest of the cluster (see internal/cluster's
// Command doc comment for why that happens after, not before, local
// application).
func (s *Session) Query(req QueryRequest) (*QueryResponse, error) {
	timer := metrics.NewTimer()
	stmt, err := query.Parse(req.Cypher)
	if err != nil {
		metrics.QueryRequestsTotal.WithLabelValues(string(req.Tenant), "parse_error").Inc()
		return nil, samerr.Wrap(samerr.CodeParseError, err, "parsing query")
	}

	write := stmt.IsWrite()
	if req.ReadOnly && write {
		metrics.QueryRequestsTotal.WithLabelValues(string(req.Tenant), "semantic_error").Inc()
		return nil, samerr.New(samerr.CodeSemanticError, "read_only request contains a mutating clause")
	}
	if write && s.Node != nil && !s.Node.IsLeader() && s.Node.Health().State != "standalone" {
		metrics.QueryRequestsTotal.WithLabelValues(string(req.Tenant), "not_leader").Inc()
		return nil, samerr.New(samerr.CodeNotLeader, "leader is %s", s.Node.LeaderAddr())
	}

	if req.Deadline.IsZero() && s.Quotas != nil {
		if d := s.Quotas.MaxQueryTime(req.Tenant, 0); d > 0 {
			req.Deadline = time.Now().Add(d)
		}
	}

	st := s.Engine.Store(req.Tenant)
	var batch []persistence.Mutation
	var recorder *persistence.Recorder
	if write {
		recorder = s.Engine.Recorder(req.Tenant)
		recorder.Batch = &batch
	}

	env := &query.Env{
		Store:    st,
		Interner: s.Engine.Interner(),
		AsOf:     st.Version(),
		Tenant:   req.Tenant,
		Quotas:   s.Quotas,
		Params:   req.Params,
		Procs:    s.Procs,
		Deadline: req.Deadline,
	}
	if write {
		env.Recorder = recorder
	}

	if req.Explain {
		metrics.QueryRequestsTotal.WithLabelValues(string(req.Tenant), "ok").Inc()
		metrics.QueryDuration.WithLabelValues(string(req.Tenant)).Observe(timer.Duration().Seconds())
		return &QueryResponse{Plan: stmt}, nil
	}

	exec := query.NewExecutor(env)
	result, err := exec.Run(stmt)
	metrics.QueryDuration.WithLabelValues(string(req.Tenant)).Observe(timer.Duration().Seconds())
	if err != nil {
		metrics.QueryRequestsTotal.WithLabelValues(string(req.Tenant), string(samerr.CodeOf(err))).Inc()
		return nil, err
	}
	metrics.QueryRequestsTotal.WithLabelValues(string(req.Tenant), "ok").Inc()

	if write && len(batch) > 0 {
		if err := s.Engine.CommitBatch(req.Tenant, batch); err != nil {
			return nil, err
		}
		if s.Node != nil {
			if err := s.Node.ProposeWrite(req.Tenant, batch); err != nil {
				return nil, err
			}
		}
	}

	return s.buildResponse(st, result), nil
}

func (s *Session) buildResponse(st *store.Store, result *query.Result) *QueryResponse {
	resp := &QueryResponse{Columns: result.Columns, Records: result.Rows}
	seenNodes := make(map[graphval.NodeId]bool)
	seenEdges := make(map[graphval.EdgeId]bool)
	interner := s.Engine.Interner()
	for _, row := range result.Rows {
		for _, v := range row {
			switch id := v.(type) {
			case graphval.NodeId:
				if seenNodes[id] {
					continue
				}
				seenNodes[id] = true
				if n, err := st.GetNode(id); err == nil {
					resp.Nodes = append(resp.Nodes, NodeRef{Id: id, Labels: labelNames(interner, n.Labels), Properties: n.Properties})
				}
			case graphval.EdgeId:
				if seenEdges[id] {
					continue
				}
				seenEdges[id] = true
				if ed, err := st.GetEdge(id); err == nil {
					resp.Edges = append(resp.Edges, EdgeRef{Id: id, Type: interner.Name(uint32(ed.Type)), Source: ed.Source, Target: ed.Target, Properties: ed.Properties})
				}
			}
		}
	}
	return resp
}

func labelNames(in *graphval.Interner, ids []graphval.LabelId) []string {
	out := make([]string, len(ids))
	for i, id := range ids {
		out[i] = in.Name(uint32(id))
	}
	return out
}

// StatusResponse reports node health, storage counts, WAL segment count
// and last checkpoint, and cluster health when running under Raft.
type StatusResponse struct {
	Status  string
	Version graphval.Version
	Storage StorageStatus
	Cluster *ClusterStatus
}

type StorageStatus struct {
	Nodes                int
	Edges                int
	WALSegments          int
	LastCheckpointVersion uint64
}

type ClusterStatus struct {
	HasLeader    bool
	ActiveVoters int
	TotalVoters  int
}

// Status reports this node's health, aggregated across every tenant it
// hosts, plus cluster health when running under Raft.
func (s *Session) Status() StatusResponse {
	resp := StatusResponse{Status: "healthy"}
	var nodes, edges int
	var maxVersion graphval.Version
	var lastCheckpoint uint64
	for _, t := range s.Engine.Tenants() {
		st := s.Engine.Store(t)
		v := st.Version()
		if v > maxVersion {
			maxVersion = v
		}
		nodes += len(st.AllNodeIds(v))
		if s.Quotas != nil {
			if usage, err := s.Quotas.UsageOf(t); err == nil {
				edges += int(usage.Edges)
			}
		}
		if last, err := s.Engine.LastCheckpointVersion(t); err == nil && last > lastCheckpoint {
			lastCheckpoint = last
		}
	}
	segments, _ := s.Engine.WALSegmentCount()
	resp.Version = maxVersion
	resp.Storage = StorageStatus{Nodes: nodes, Edges: edges, WALSegments: segments, LastCheckpointVersion: lastCheckpoint}

	if s.Node != nil {
		h := s.Node.Health()
		resp.Cluster = &ClusterStatus{HasLeader: h.Leader != "", ActiveVoters: h.ActiveVoters, TotalVoters: h.Voters}
		if !h.Healthy {
			resp.Status = "degraded"
		}
		s.Node.RefreshMetrics()
	}
	return resp
}

// Ping answers a liveness probe.
func (s *Session) Ping() string { return "pong" }

// DeleteGraph drops a tenant's entire graph, durably.
func (s *Session) DeleteGraph(t graphval.TenantId) error {
	if s.Node != nil && !s.Node.IsLeader() && s.Node.Health().State != "standalone" {
		return samerr.New(samerr.CodeNotLeader, "leader is %s", s.Node.LeaderAddr())
	}
	if err := s.Engine.DeleteTenant(t); err != nil {
		return err
	}
	log.Logger.Info().Str("tenant", string(t)).Msg("graph deleted")
	return nil
}

// ListGraphs lists every tenant this node currently hosts a store for.
func (s *Session) ListGraphs() []graphval.TenantId {
	return s.Engine.Tenants()
}

// Envelope is the one JSON-codable shape every Request API call marshals
// to and from: internal/router.Proxy forwards Envelope bytes verbatim to
// a remote node's Session.Dispatch and returns the reply bytes untouched.
type Envelope struct {
	Kind        string            `json:"kind"`
	Query       *QueryRequest     `json:"query,omitempty"`
	DeleteGraph graphval.TenantId `json:"delete_graph,omitempty"`
}

// Reply is Dispatch's uniform response shape: on success at most one of
// its result fields is set (none for delete_graph), or Error is set on
// failure.
type Reply struct {
	Error       string          `json:"error,omitempty"`
	Query       *QueryResponse  `json:"query,omitempty"`
	Status      *StatusResponse `json:"status,omitempty"`
	Pong        string          `json:"pong,omitempty"`
	ListGraphs  []graphval.TenantId `json:"list_graphs,omitempty"`
}

// Dispatch decodes an Envelope, runs the named request, and encodes a
// Reply. internal/router's server handler and a same-process wire server
// both call this as the single entry point into the Request API.
func (s *Session) Dispatch(data []byte) []byte {
	var env Envelope
	reply := Reply{}
	if err := json.Unmarshal(data, &env); err != nil {
		reply.Error = err.Error()
		out, _ := json.Marshal(reply)
		return out
	}
	switch env.Kind {
	case "query":
		if env.Query == nil {
			reply.Error = "query envelope missing request"
			break
		}
		resp, err := s.Query(*env.Query)
		if err != nil {
			reply.Error = err.Error()
		} else {
			reply.Query = resp
		}
	case "status":
		st := s.Status()
		reply.Status = &st
	case "ping":
		reply.Pong = s.Ping()
	case "delete_graph":
		if err := s.DeleteGraph(env.DeleteGraph); err != nil {
			reply.Error = err.Error()
		}
	case "list_graphs":
		reply.ListGraphs = s.ListGraphs()
	default:
		reply.Error = "unknown request kind " + env.Kind
	}
	out, err := json.Marshal(reply)
	if err != nil {
		return []byte(`{"error":"encoding reply"}`)
	}
	return out
}

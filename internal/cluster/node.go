package cluster

import (
	"encoding/json"
	"net"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/raft"
	raftboltdb "github.com/hashicorp/raft-boltdb"
	"github.com/samyama-ai/samyama-graph-sub001/internal/graphval"
	"github.com/samyama-ai/samyama-graph-sub001/internal/obs/log"
	"github.com/samyama-ai/samyama-graph-sub001/internal/obs/metrics"
	"github.com/samyama-ai/samyama-graph-sub001/internal/persistence"
	"github.com/samyama-ai/samyama-graph-sub001/internal/samerr"
)

// Config names the Raft identity and storage location of one cluster
// Node, fed from the SAMYAMA_NODE_ID / SAMYAMA_DATA_DIR / bind address
// inputs at startup.
type Config struct {
	NodeID   string
	BindAddr string
	DataDir  string
}

// Node wraps one replica's Raft instance around a persistence.Engine. A
// Node with no Bootstrap/Join call behaves as a standalone, unreplicated
// engine: Health reports State "standalone", internal/session accepts
// writes on it, and ProposeWrite returns nil without replicating.
type Node struct {
	cfg    Config
	engine *persistence.Engine
	fsm    *FSM
	raft   *raft.Raft

	// reachMu guards unreachable, the per-peer heartbeat table Health
	// derives quorum from: a peer lands here on a failed heartbeat and
	// leaves on a resumed one.
	reachMu     sync.Mutex
	unreachable map[raft.ServerID]bool
}

func New(cfg Config, engine *persistence.Engine) *Node {
	return &Node{
		cfg:         cfg,
		engine:      engine,
		fsm:         NewFSM(engine),
		unreachable: make(map[raft.ServerID]bool),
	}
}

// observe subscribes to raft's heartbeat observations and keeps the
// reachability table current. Registered once the raft instance exists
// (Bootstrap or Join).
func (n *Node) observe() {
	ch := make(chan raft.Observation, 16)
	n.raft.RegisterObserver(raft.NewObserver(ch, false, func(o *raft.Observation) bool {
		switch o.Data.(type) {
		case raft.FailedHeartbeatObservation, raft.ResumedHeartbeatObservation:
			return true
		}
		return false
	}))
	go func() {
		for o := range ch {
			switch d := o.Data.(type) {
			case raft.FailedHeartbeatObservation:
				n.reachMu.Lock()
				n.unreachable[d.PeerID] = true
				n.reachMu.Unlock()
			case raft.ResumedHeartbeatObservation:
				n.reachMu.Lock()
				delete(n.unreachable, d.PeerID)
				n.reachMu.Unlock()
			}
		}
	}()
}

func raftConfig(nodeID string) *raft.Config {
	c := raft.DefaultConfig()
	c.LocalID = raft.ServerID(nodeID)
	// Tuned for LAN-deployed shard replicas rather than raft's WAN-safe
	// defaults, so a partitioned minority surfaces NotLeader/NoQuorum
	// within seconds.
	c.HeartbeatTimeout = 500 * time.Millisecond
	c.ElectionTimeout = 500 * time.Millisecond
	c.CommitTimeout = 50 * time.Millisecond
	c.LeaderLeaseTimeout = 250 * time.Millisecond
	return c
}

func (n *Node) newRaft() (*raft.Raft, raft.ServerAddress, error) {
	addr, err := net.ResolveTCPAddr("tcp", n.cfg.BindAddr)
	if err != nil {
		return nil, "", samerr.Wrap(samerr.CodeIoError, err, "resolving bind addr %s", n.cfg.BindAddr)
	}
	transport, err := raft.NewTCPTransport(n.cfg.BindAddr, addr, 3, 10*time.Second, os.Stderr)
	if err != nil {
		return nil, "", samerr.Wrap(samerr.CodeIoError, err, "creating raft transport")
	}
	snapshots, err := raft.NewFileSnapshotStore(n.cfg.DataDir, 2, os.Stderr)
	if err != nil {
		return nil, "", samerr.Wrap(samerr.CodeIoError, err, "creating raft snapshot store")
	}
	logStore, err := raftboltdb.NewBoltStore(filepath.Join(n.cfg.DataDir, "raft-log.db"))
	if err != nil {
		return nil, "", samerr.Wrap(samerr.CodeIoError, err, "opening raft log store")
	}
	stableStore, err := raftboltdb.NewBoltStore(filepath.Join(n.cfg.DataDir, "raft-stable.db"))
	if err != nil {
		return nil, "", samerr.Wrap(samerr.CodeIoError, err, "opening raft stable store")
	}
	r, err := raft.NewRaft(raftConfig(n.cfg.NodeID), n.fsm, logStore, stableStore, snapshots, transport)
	if err != nil {
		return nil, "", samerr.Wrap(samerr.CodeIoError, err, "creating raft instance")
	}
	return r, transport.LocalAddr(), nil
}

// Bootstrap starts a brand-new single-voter Raft cluster rooted at this
// node, the only member until AddVoter brings in peers.
func (n *Node) Bootstrap() error {
	r, addr, err := n.newRaft()
	if err != nil {
		return err
	}
	n.raft = r
	n.observe()
	cfg := raft.Configuration{Servers: []raft.Server{{ID: raft.ServerID(n.cfg.NodeID), Address: addr}}}
	if err := n.raft.BootstrapCluster(cfg).Error(); err != nil {
		return samerr.Wrap(samerr.CodeIoError, err, "bootstrapping raft cluster")
	}
	log.Logger.Info().Str("node_id", n.cfg.NodeID).Msg("cluster bootstrapped")
	return nil
}

// Join starts this node's Raft instance as a non-voting member; the
// leader must subsequently call AddVoter(n.cfg.NodeID, n.cfg.BindAddr) to
// give it a vote. Membership changes are driven by admin operations
// calling AddVoter against the leader directly; a joining node never
// self-registers, which keeps this package free of a second network
// client surface beyond Raft's own transport.
func (n *Node) Join() error {
	r, _, err := n.newRaft()
	if err != nil {
		return err
	}
	n.raft = r
	n.observe()
	return nil
}

// AddVoter admits nodeID/addr as a voting member. Must be called against
// the leader.
func (n *Node) AddVoter(nodeID, addr string) error {
	if n.raft == nil {
		return samerr.New(samerr.CodeNotLeader, "raft not started")
	}
	if n.raft.State() != raft.Leader {
		return samerr.New(samerr.CodeNotLeader, "leader is %s", n.raft.Leader())
	}
	f := n.raft.AddVoter(raft.ServerID(nodeID), raft.ServerAddress(addr), 0, 10*time.Second)
	if err := f.Error(); err != nil {
		return samerr.Wrap(samerr.CodeIoError, err, "adding voter %s", nodeID)
	}
	return nil
}

// RemoveServer evicts a member from the voter set, one node at a time.
func (n *Node) RemoveServer(nodeID string) error {
	if n.raft == nil {
		return samerr.New(samerr.CodeNotLeader, "raft not started")
	}
	if n.raft.State() != raft.Leader {
		return samerr.New(samerr.CodeNotLeader, "leader is %s", n.raft.Leader())
	}
	f := n.raft.RemoveServer(raft.ServerID(nodeID), 0, 10*time.Second)
	if err := f.Error(); err != nil {
		return samerr.Wrap(samerr.CodeIoError, err, "removing server %s", nodeID)
	}
	return nil
}

// IsLeader reports whether this node currently holds Raft leadership.
func (n *Node) IsLeader() bool {
	return n.raft != nil && n.raft.State() == raft.Leader
}

// LeaderAddr returns the current leader's bind address, empty if unknown.
func (n *Node) LeaderAddr() string {
	if n.raft == nil {
		return ""
	}
	return string(n.raft.Leader())
}

// ProposeWrite replicates muts, a statement's already-locally-executed
// mutation batch for tenant, to the rest of the cluster. The caller (see
// internal/session) must have already run the statement against its own
// store via persistence.Recorder before calling this, matching this
// package's append-then-replicate model (see Command's doc comment).
func (n *Node) ProposeWrite(t graphval.TenantId, muts []persistence.Mutation) error {
	if n.raft == nil {
		return nil // standalone node: already durable via Recorder, nothing to replicate
	}
	if n.raft.State() != raft.Leader {
		return samerr.New(samerr.CodeNotLeader, "leader is %s", n.raft.Leader())
	}
	batchID := uuid.New().String()
	n.fsm.markLocal(batchID)
	data, err := json.Marshal(Command{BatchID: batchID, Tenant: t, Muts: muts})
	if err != nil {
		n.fsm.takeLocal(batchID)
		return samerr.Wrap(samerr.CodeIoError, err, "marshaling raft command")
	}
	f := n.raft.Apply(data, 5*time.Second)
	if err := f.Error(); err != nil {
		n.fsm.takeLocal(batchID)
		return samerr.Wrap(samerr.CodeNoQuorum, err, "replicating write")
	}
	return nil
}

// Health reports Raft-cluster health: healthy only while a leader exists
// AND a majority of configured voters are reachable, counted from the
// heartbeat-observation table. ActiveVoters can lag TotalVoters while a
// partitioned peer's heartbeats fail, which is exactly the degradation
// the Status response surfaces.
type Health struct {
	Leader       string
	Healthy      bool
	State        string
	Voters       int
	ActiveVoters int
}

func (n *Node) Health() Health {
	if n.raft == nil {
		return Health{Healthy: true, State: "standalone"}
	}
	h := Health{
		Leader: string(n.raft.Leader()),
		State:  n.raft.State().String(),
	}
	if cfgFuture := n.raft.GetConfiguration(); cfgFuture.Error() == nil {
		n.reachMu.Lock()
		for _, srv := range cfgFuture.Configuration().Servers {
			if srv.Suffrage != raft.Voter {
				continue
			}
			h.Voters++
			if srv.ID == raft.ServerID(n.cfg.NodeID) || !n.unreachable[srv.ID] {
				h.ActiveVoters++
			}
		}
		n.reachMu.Unlock()
	}
	h.Healthy = h.Leader != "" && h.ActiveVoters >= h.Voters/2+1
	return h
}

// Stats summarizes raw Raft state as a map ({"state": "standalone"} when
// there is no Raft instance).
func (n *Node) Stats() map[string]any {
	if n.raft == nil {
		return map[string]any{"state": "standalone"}
	}
	stats := map[string]any{
		"state":          n.raft.State().String(),
		"last_log_index": n.raft.LastIndex(),
		"applied_index":  n.raft.AppliedIndex(),
		"leader":         string(n.raft.Leader()),
	}
	if cfgFuture := n.raft.GetConfiguration(); cfgFuture.Error() == nil {
		stats["peers"] = len(cfgFuture.Configuration().Servers)
	}
	return stats
}

// RefreshMetrics updates the Raft Prometheus gauges from current state;
// internal/session calls this on each Status request.
func (n *Node) RefreshMetrics() {
	if n.raft == nil {
		return
	}
	if n.IsLeader() {
		metrics.RaftLeader.Set(1)
	} else {
		metrics.RaftLeader.Set(0)
	}
	metrics.RaftLogIndex.Set(float64(n.raft.LastIndex()))
	metrics.RaftAppliedIndex.Set(float64(n.raft.AppliedIndex()))
	if cfgFuture := n.raft.GetConfiguration(); cfgFuture.Error() == nil {
		metrics.RaftPeers.Set(float64(len(cfgFuture.Configuration().Servers)))
	}
}

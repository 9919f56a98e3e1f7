package cluster

import (
	"encoding/json"
	"testing"

	"github.com/hashicorp/raft"
	"github.com/samyama-ai/samyama-graph-sub001/internal/graphval"
	"github.com/samyama-ai/samyama-graph-sub001/internal/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestFSM(t *testing.T) (*FSM, *persistence.Engine) {
	t.Helper()
	engine, err := persistence.Open(t.TempDir(), graphval.NewInterner(), nil)
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	return NewFSM(engine), engine
}

func applyCommand(t *testing.T, fsm *FSM, cmd Command) interface{} {
	t.Helper()
	data, err := json.Marshal(cmd)
	require.NoError(t, err)
	return fsm.Apply(&raft.Log{Data: data})
}

// A command originated on another node runs through Engine.ApplyBatch: this is
// the follower's first and only chance to make the mutation durable.
func TestApplyRemoteCommandMutatesStore(t *testing.T) {
	fsm, engine := newTestFSM(t)

	res := applyCommand(t, fsm, Command{
		BatchID: "remote-1",
		Tenant:  "acme",
		Muts: []persistence.Mutation{
			{Kind: persistence.MutCreateNode, Labels: []string{"Person"}, Props: map[string]graphval.PropertyValue{"name": graphval.String("Ada")}},
			{Kind: persistence.MutSetNodeProperty, NodeId: 1, Key: "age", Value: graphval.Int(36)},
		},
	})
	assert.Nil(t, res)

	n, err := engine.Store("acme").GetNode(1)
	require.NoError(t, err)
	assert.Equal(t, "Ada", n.Properties["name"].String)
	assert.Equal(t, int64(36), n.Properties["age"].Int)
}

// A batch this node proposed was already applied locally before Raft
// committed it; its delivery back through Apply must be a no-op.
func TestApplySkipsLocallyOriginatedBatch(t *testing.T) {
	fsm, engine := newTestFSM(t)

	fsm.markLocal("mine")
	res := applyCommand(t, fsm, Command{
		BatchID: "mine",
		Tenant:  "acme",
		Muts:    []persistence.Mutation{{Kind: persistence.MutCreateNode, Labels: []string{"Person"}}},
	})
	assert.Nil(t, res)
	assert.Empty(t, engine.Store("acme").AllNodeIds(engine.Store("acme").Version()))

	// The dedup entry is consumed: the same batch id arriving again (e.g.
	// from a log replay) applies normally.
	res = applyCommand(t, fsm, Command{
		BatchID: "mine",
		Tenant:  "acme",
		Muts:    []persistence.Mutation{{Kind: persistence.MutCreateNode, Labels: []string{"Person"}}},
	})
	assert.Nil(t, res)
	assert.Len(t, engine.Store("acme").AllNodeIds(engine.Store("acme").Version()), 1)
}

func TestApplyRejectsMalformedEntry(t *testing.T) {
	fsm, _ := newTestFSM(t)
	res := fsm.Apply(&raft.Log{Data: []byte("not json")})
	assert.Error(t, res.(error))
}

func TestHealthStandalone(t *testing.T) {
	engine, err := persistence.Open(t.TempDir(), graphval.NewInterner(), nil)
	require.NoError(t, err)
	defer engine.Close()

	n := New(Config{NodeID: "node-1"}, engine)
	h := n.Health()
	assert.True(t, h.Healthy)
	assert.Equal(t, "standalone", h.State)
	assert.False(t, n.IsLeader())

	// A standalone node has nothing to replicate to; ProposeWrite is a
	// no-op rather than an error.
	assert.NoError(t, n.ProposeWrite("acme", nil))
}

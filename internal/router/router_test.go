package router

import (
	"context"
	"testing"

	"github.com/samyama-ai/samyama-graph-sub001/internal/router/routerpb"
	"github.com/samyama-ai/samyama-graph-sub001/internal/samerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRouteLocalAndRemote(t *testing.T) {
	r := New("node-1")
	r.UpdateRoute("acme", "node-1")
	r.UpdateRoute("globex", "node-2")

	d, owner, err := r.Route("acme")
	require.NoError(t, err)
	assert.Equal(t, Local, d)
	assert.Equal(t, "node-1", owner)

	d, owner, err = r.Route("globex")
	require.NoError(t, err)
	assert.Equal(t, Remote, d)
	assert.Equal(t, "node-2", owner)
}

func TestRouteUnknownTenant(t *testing.T) {
	r := New("node-1")
	_, _, err := r.Route("nobody")
	require.Error(t, err)
	assert.Equal(t, samerr.CodeUnknownShard, samerr.CodeOf(err))
}

func TestRemoveRoute(t *testing.T) {
	r := New("node-1")
	r.UpdateRoute("acme", "node-2")
	r.RemoveRoute("acme")
	_, _, err := r.Route("acme")
	assert.Equal(t, samerr.CodeUnknownShard, samerr.CodeOf(err))
}

func TestRoutesSnapshotIsACopy(t *testing.T) {
	r := New("node-1")
	r.UpdateRoute("acme", "node-2")
	routes := r.Routes()
	routes["acme"] = "tampered"

	_, owner, err := r.Route("acme")
	require.NoError(t, err)
	assert.Equal(t, "node-2", owner)
}

type echoDispatcher struct{ prefix string }

func (d *echoDispatcher) Dispatch(payload []byte) []byte {
	return append([]byte(d.prefix), payload...)
}

// Server.Forward hands the payload verbatim to the local dispatcher and
// returns its reply verbatim, the receiving half of the proxy contract.
func TestServerForwardPassesPayloadThrough(t *testing.T) {
	srv := &Server{Local: &echoDispatcher{prefix: "reply:"}}
	resp, err := srv.Forward(context.Background(), &routerpb.SessionRequest{Payload: []byte(`{"kind":"ping"}`)})
	require.NoError(t, err)
	assert.Equal(t, `reply:{"kind":"ping"}`, string(resp.Payload))
}

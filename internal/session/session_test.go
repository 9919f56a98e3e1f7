package session

import (
	"encoding/json"
	"testing"

	"github.com/samyama-ai/samyama-graph-sub001/internal/graphval"
	"github.com/samyama-ai/samyama-graph-sub001/internal/persistence"
	"github.com/samyama-ai/samyama-graph-sub001/internal/samerr"
	"github.com/samyama-ai/samyama-graph-sub001/internal/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T, dir string) *Session {
	t.Helper()
	quotas := tenant.NewRegistry()
	require.NoError(t, quotas.Create("acme", tenant.Quotas{}))
	engine, err := persistence.Open(dir, graphval.NewInterner(), quotas)
	require.NoError(t, err)
	t.Cleanup(func() { engine.Close() })
	return New(engine, quotas, nil)
}

func TestQueryCreateThenMatch(t *testing.T) {
	s := newTestSession(t, t.TempDir())

	_, err := s.Query(QueryRequest{Tenant: "acme", Cypher: `CREATE (:Person {name: 'Alice'})`})
	require.NoError(t, err)

	resp, err := s.Query(QueryRequest{Tenant: "acme", Cypher: `MATCH (n:Person) RETURN n, n.name`})
	require.NoError(t, err)
	assert.Equal(t, []string{"n", "n.name"}, resp.Columns)
	require.Len(t, resp.Records, 1)
	assert.Equal(t, "Alice", resp.Records[0][1])

	// The bound node id in Records is resolved into a NodeRef so the
	// caller needs no second round trip.
	require.Len(t, resp.Nodes, 1)
	assert.Equal(t, []string{"Person"}, resp.Nodes[0].Labels)
	assert.Equal(t, "Alice", resp.Nodes[0].Properties["name"].String)
}

func TestReadOnlyRejectsMutatingStatement(t *testing.T) {
	s := newTestSession(t, t.TempDir())
	_, err := s.Query(QueryRequest{Tenant: "acme", Cypher: `CREATE (:Person)`, ReadOnly: true})
	require.Error(t, err)
	assert.Equal(t, samerr.CodeSemanticError, samerr.CodeOf(err))
}

func TestQuerySurfacesParseErrors(t *testing.T) {
	s := newTestSession(t, t.TempDir())
	_, err := s.Query(QueryRequest{Tenant: "acme", Cypher: `MATCH (n RETURN n`})
	require.Error(t, err)
	assert.Equal(t, samerr.CodeParseError, samerr.CodeOf(err))
}

func TestExplainReturnsPlanWithoutExecuting(t *testing.T) {
	s := newTestSession(t, t.TempDir())
	resp, err := s.Query(QueryRequest{Tenant: "acme", Cypher: `CREATE (:Person {name: 'Alice'})`, Explain: true})
	require.NoError(t, err)
	require.NotNil(t, resp.Plan)

	// Nothing was created.
	check, err := s.Query(QueryRequest{Tenant: "acme", Cypher: `MATCH (n:Person) RETURN n`})
	require.NoError(t, err)
	assert.Empty(t, check.Records)
}

func TestWritesAreDurableAcrossRestart(t *testing.T) {
	dir := t.TempDir()
	s := newTestSession(t, dir)
	_, err := s.Query(QueryRequest{Tenant: "acme", Cypher: `CREATE (:Person {name: 'Ada'})`})
	require.NoError(t, err)
	require.NoError(t, s.Engine.Close())

	s2 := newTestSession(t, dir)
	resp, err := s2.Query(QueryRequest{Tenant: "acme", Cypher: `MATCH (n:Person) RETURN n.name`})
	require.NoError(t, err)
	require.Len(t, resp.Records, 1)
	assert.Equal(t, "Ada", resp.Records[0][0])
}

func TestStatusAndPing(t *testing.T) {
	s := newTestSession(t, t.TempDir())
	_, err := s.Query(QueryRequest{Tenant: "acme", Cypher: `CREATE (:Person), (:Person)`})
	require.NoError(t, err)

	st := s.Status()
	assert.Equal(t, "healthy", st.Status)
	assert.Equal(t, 2, st.Storage.Nodes)
	assert.Nil(t, st.Cluster)

	assert.Equal(t, "pong", s.Ping())
}

func TestDeleteGraphAndListGraphs(t *testing.T) {
	s := newTestSession(t, t.TempDir())
	_, err := s.Query(QueryRequest{Tenant: "acme", Cypher: `CREATE (:Person)`})
	require.NoError(t, err)
	assert.Equal(t, []graphval.TenantId{"acme"}, s.ListGraphs())

	require.NoError(t, s.DeleteGraph("acme"))
	assert.Empty(t, s.ListGraphs())
}

func TestDispatchEnvelopeRoundTrip(t *testing.T) {
	s := newTestSession(t, t.TempDir())

	ping, err := json.Marshal(Envelope{Kind: "ping"})
	require.NoError(t, err)
	var reply Reply
	require.NoError(t, json.Unmarshal(s.Dispatch(ping), &reply))
	assert.Equal(t, "pong", reply.Pong)

	q, err := json.Marshal(Envelope{Kind: "query", Query: &QueryRequest{Tenant: "acme", Cypher: `CREATE (:Person {name: 'Alice'})`}})
	require.NoError(t, err)
	reply = Reply{}
	require.NoError(t, json.Unmarshal(s.Dispatch(q), &reply))
	assert.Empty(t, reply.Error)
	require.NotNil(t, reply.Query)

	bad, err := json.Marshal(Envelope{Kind: "bogus"})
	require.NoError(t, err)
	reply = Reply{}
	require.NoError(t, json.Unmarshal(s.Dispatch(bad), &reply))
	assert.Contains(t, reply.Error, "unknown request kind")
}

package store

import (
	"testing"

	"github.com/samyama-ai/samyama-graph-sub001/internal/graphval"
	"github.com/samyama-ai/samyama-graph-sub001/internal/samerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() *Store {
	return New("acme", graphval.NewInterner())
}

func TestCreateAndGetNode(t *testing.T) {
	s := newTestStore()
	id := s.CreateNode([]string{"Person"}, map[string]graphval.PropertyValue{
		"name": graphval.String("Ada"),
	})

	n, err := s.GetNode(id)
	require.NoError(t, err)
	assert.Equal(t, "Ada", n.Properties["name"].String)
	assert.Len(t, n.Labels, 1)
}

func TestGetNodeNotFound(t *testing.T) {
	s := newTestStore()
	_, err := s.GetNode(999)
	assert.Equal(t, samerr.CodeNotFound, samerr.CodeOf(err))
}

func TestSetPropertyCreatesNewVersion(t *testing.T) {
	s := newTestStore()
	id := s.CreateNode([]string{"Person"}, map[string]graphval.PropertyValue{"age": graphval.Int(30)})
	before := s.Version()

	require.NoError(t, s.SetProperty(id, "age", graphval.Int(31)))
	after := s.Version()
	assert.Greater(t, after, before)

	n, err := s.GetNode(id)
	require.NoError(t, err)
	assert.Equal(t, int64(31), n.Properties["age"].Int)

	old, err := s.GetNodeAt(id, before)
	require.NoError(t, err)
	assert.Equal(t, int64(30), old.Properties["age"].Int)
}

func TestDeleteNodeCascadesToEdges(t *testing.T) {
	s := newTestStore()
	a := s.CreateNode([]string{"Person"}, nil)
	b := s.CreateNode([]string{"Person"}, nil)
	eid, err := s.CreateEdge("KNOWS", a, b, nil)
	require.NoError(t, err)

	require.NoError(t, s.DeleteNode(a))

	_, err = s.GetNode(a)
	assert.Equal(t, samerr.CodeNotFound, samerr.CodeOf(err))

	_, err = s.GetEdge(eid)
	assert.Equal(t, samerr.CodeNotFound, samerr.CodeOf(err))
}

func TestCreateEdgeRequiresExistingEndpoints(t *testing.T) {
	s := newTestStore()
	a := s.CreateNode([]string{"Person"}, nil)
	_, err := s.CreateEdge("KNOWS", a, 999, nil)
	assert.Equal(t, samerr.CodeNotFound, samerr.CodeOf(err))
}

func TestOutInEdges(t *testing.T) {
	s := newTestStore()
	a := s.CreateNode(nil, nil)
	b := s.CreateNode(nil, nil)
	eid, err := s.CreateEdge("KNOWS", a, b, nil)
	require.NoError(t, err)

	out := s.OutEdges(a, s.Version())
	assert.Equal(t, []graphval.EdgeId{eid}, out)

	in := s.InEdges(b, s.Version())
	assert.Equal(t, []graphval.EdgeId{eid}, in)
}

func TestNodesByLabel(t *testing.T) {
	s := newTestStore()
	id := s.CreateNode([]string{"Person"}, nil)
	s.CreateNode([]string{"Movie"}, nil)

	personId := graphval.LabelId(0)
	// Person was interned first.
	_ = personId
	lid, ok := s.interner.Lookup("Person")
	require.True(t, ok)

	ids := s.NodesByLabel(graphval.LabelId(lid), s.Version())
	assert.Equal(t, []graphval.NodeId{id}, ids)
}

func TestStatementCommitsExactlyOneVersion(t *testing.T) {
	s := newTestStore()

	v := s.BeginStatement()
	a := s.CreateNode([]string{"Person"}, map[string]graphval.PropertyValue{"name": graphval.String("Ada")})
	b := s.CreateNode([]string{"Person"}, nil)
	_, err := s.CreateEdge("KNOWS", a, b, nil)
	require.NoError(t, err)
	require.NoError(t, s.SetProperty(a, "age", graphval.Int(36)))

	// Nothing is visible at the published version until commit.
	assert.Equal(t, graphval.Version(0), s.Version())
	_, err = s.GetNode(a)
	assert.Equal(t, samerr.CodeNotFound, samerr.CodeOf(err))

	s.CommitStatement()
	assert.Equal(t, v, s.Version())

	n, err := s.GetNode(a)
	require.NoError(t, err)
	assert.Equal(t, int64(36), n.Properties["age"].Int)
}

func TestStatementWithNoMutationsPublishesNothing(t *testing.T) {
	s := newTestStore()
	s.BeginStatement()
	s.CommitStatement()
	assert.Equal(t, graphval.Version(0), s.Version())
}

func TestStatementAbortRollsBackEverything(t *testing.T) {
	s := newTestStore()
	a := s.CreateNode([]string{"Person"}, map[string]graphval.PropertyValue{"name": graphval.String("Ada")})
	committed := s.Version()

	s.BeginStatement()
	require.NoError(t, s.SetProperty(a, "name", graphval.String("Grace")))
	fresh := s.CreateNode([]string{"Person"}, nil)
	_, err := s.CreateEdge("KNOWS", a, fresh, nil)
	require.NoError(t, err)
	s.AbortStatement()

	// Version unchanged, the update discarded, the new node and edge gone.
	assert.Equal(t, committed, s.Version())
	n, err := s.GetNode(a)
	require.NoError(t, err)
	assert.Equal(t, "Ada", n.Properties["name"].String)
	_, err = s.GetNode(fresh)
	assert.Equal(t, samerr.CodeNotFound, samerr.CodeOf(err))
	assert.Empty(t, s.OutEdges(a, s.Version()))

	lid, ok := s.interner.Lookup("Person")
	require.True(t, ok)
	assert.Equal(t, []graphval.NodeId{a}, s.NodesByLabel(graphval.LabelId(lid), s.Version()))
}

func TestStatementAbortRestoresDeletedNode(t *testing.T) {
	s := newTestStore()
	a := s.CreateNode([]string{"Person"}, nil)
	b := s.CreateNode([]string{"Person"}, nil)
	eid, err := s.CreateEdge("KNOWS", a, b, nil)
	require.NoError(t, err)
	committed := s.Version()

	s.BeginStatement()
	require.NoError(t, s.DeleteNode(a))
	s.AbortStatement()

	assert.Equal(t, committed, s.Version())
	_, err = s.GetNode(a)
	assert.NoError(t, err)
	_, err = s.GetEdge(eid)
	assert.NoError(t, err)
	assert.Equal(t, []graphval.EdgeId{eid}, s.OutEdges(a, s.Version()))
}

func TestStatementReadsItsOwnWrites(t *testing.T) {
	s := newTestStore()
	v := s.BeginStatement()
	id := s.CreateNode([]string{"Person"}, map[string]graphval.PropertyValue{"name": graphval.String("Ada")})
	n, err := s.GetNodeAt(id, v)
	require.NoError(t, err)
	assert.Equal(t, "Ada", n.Properties["name"].String)
	s.CommitStatement()
}

func TestNeighborsTriples(t *testing.T) {
	s := newTestStore()
	a := s.CreateNode(nil, nil)
	b := s.CreateNode(nil, nil)
	c := s.CreateNode(nil, nil)
	knows, err := s.CreateEdge("KNOWS", a, b, nil)
	require.NoError(t, err)
	_, err = s.CreateEdge("WORKS_AT", a, c, nil)
	require.NoError(t, err)

	out := s.Neighbors(a, DirOut, s.Version())
	assert.Len(t, out, 2)

	knowsId, ok := s.interner.Lookup("KNOWS")
	require.True(t, ok)
	typed := s.Neighbors(a, DirOut, s.Version(), graphval.EdgeTypeId(knowsId))
	require.Len(t, typed, 1)
	assert.Equal(t, knows, typed[0].Edge)
	assert.Equal(t, b, typed[0].Target)

	in := s.Neighbors(b, DirIn, s.Version())
	require.Len(t, in, 1)
	assert.Equal(t, a, in[0].Source)
}

func TestDeleteEdgeIndependently(t *testing.T) {
	s := newTestStore()
	a := s.CreateNode(nil, nil)
	b := s.CreateNode(nil, nil)
	eid, err := s.CreateEdge("KNOWS", a, b, nil)
	require.NoError(t, err)

	require.NoError(t, s.DeleteEdge(eid))
	_, err = s.GetEdge(eid)
	assert.Equal(t, samerr.CodeNotFound, samerr.CodeOf(err))

	// nodes remain live
	_, err = s.GetNode(a)
	assert.NoError(t, err)
}

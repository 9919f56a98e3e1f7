package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseSimpleMatchReturn(t *testing.T) {
	stmt, err := Parse(`MATCH (n:Person) WHERE n.age > 21 RETURN n.name AS name ORDER BY name LIMIT 10`)
	require.NoError(t, err)
	require.Len(t, stmt.Clauses, 2)

	m, ok := stmt.Clauses[0].(*MatchClause)
	require.True(t, ok)
	require.Len(t, m.Patterns, 1)
	require.Len(t, m.Patterns[0].Nodes, 1)
	assert.Equal(t, "n", m.Patterns[0].Nodes[0].Var)
	assert.Equal(t, []string{"Person"}, m.Patterns[0].Nodes[0].Labels)
	require.NotNil(t, m.Where)
	bin, ok := m.Where.(*BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, ">", bin.Op)

	ret, ok := stmt.Clauses[1].(*ReturnClause)
	require.True(t, ok)
	require.Len(t, ret.Items, 1)
	assert.Equal(t, "name", ret.Items[0].Alias)
	require.Len(t, ret.OrderBy, 1)
	require.NotNil(t, ret.Limit)
}

func TestParseRelationshipPattern(t *testing.T) {
	stmt, err := Parse(`MATCH (a:Person)-[r:KNOWS]->(b:Person) RETURN a, b`)
	require.NoError(t, err)
	m := stmt.Clauses[0].(*MatchClause)
	path := m.Patterns[0]
	require.Len(t, path.Nodes, 2)
	require.Len(t, path.Rels, 1)
	assert.Equal(t, DirOut, path.Rels[0].Direction)
	assert.Equal(t, []string{"KNOWS"}, path.Rels[0].Types)
}

func TestParseCreateWithInlineProps(t *testing.T) {
	stmt, err := Parse(`CREATE (n:Person {name: "Alice", age: 30})`)
	require.NoError(t, err)
	cl := stmt.Clauses[0].(*CreateClause)
	n := cl.Patterns[0].Nodes[0]
	require.Contains(t, n.Props, "name")
	require.Contains(t, n.Props, "age")
}

func TestParseCallYield(t *testing.T) {
	stmt, err := Parse(`CALL algo.pagerank() YIELD node, score RETURN node, score`)
	require.NoError(t, err)
	cl := stmt.Clauses[0].(*CallClause)
	assert.Equal(t, "algo.pagerank", cl.Procedure)
	assert.Equal(t, []string{"node", "score"}, cl.Yield)
}

func TestParseExplain(t *testing.T) {
	stmt, err := Parse(`EXPLAIN MATCH (n) RETURN n`)
	require.NoError(t, err)
	assert.True(t, stmt.Explain)
}

func TestParseDeleteWithParam(t *testing.T) {
	stmt, err := Parse(`MATCH (n:Person) WHERE n.id = $id DELETE n`)
	require.NoError(t, err)
	require.Len(t, stmt.Clauses, 2)
	_, ok := stmt.Clauses[1].(*DeleteClause)
	require.True(t, ok)
}

func TestParseUnwindWith(t *testing.T) {
	stmt, err := Parse(`UNWIND [1, 2, 3] AS x WITH x WHERE x > 1 RETURN x`)
	require.NoError(t, err)
	require.Len(t, stmt.Clauses, 3)
	u := stmt.Clauses[0].(*UnwindClause)
	lst, ok := u.Expr.(*ListExpr)
	require.True(t, ok)
	assert.Len(t, lst.Items, 3)
}

func TestParseInvalidSyntaxReturnsParseError(t *testing.T) {
	_, err := Parse(`MATCH (n RETURN n`)
	require.Error(t, err)
}

package query

import (
	"testing"

	"github.com/samyama-ai/samyama-graph-sub001/internal/graphval"
	"github.com/samyama-ai/samyama-graph-sub001/internal/samerr"
	"github.com/samyama-ai/samyama-graph-sub001/internal/store"
	"github.com/samyama-ai/samyama-graph-sub001/internal/tenant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestEnv() *Env {
	interner := graphval.NewInterner()
	return &Env{
		Store:    store.New("acme", interner),
		Interner: interner,
		Tenant:   "acme",
		Procs:    NewProcedureRegistry(),
	}
}

// run executes one statement against env at the store's current version,
// the way internal/session pins AsOf per request.
func run(t *testing.T, env *Env, cypher string) *Result {
	t.Helper()
	res, err := tryRun(env, cypher)
	require.NoError(t, err)
	return res
}

func tryRun(env *Env, cypher string) (*Result, error) {
	stmt, err := Parse(cypher)
	if err != nil {
		return nil, err
	}
	env.AsOf = env.Store.Version()
	return NewExecutor(env).Run(stmt)
}

func TestBasicTraversal(t *testing.T) {
	env := newTestEnv()
	run(t, env, `CREATE (a:Person {name: 'Alice'}), (b:Person {name: 'Bob'})`)
	run(t, env, `MATCH (a:Person {name: 'Alice'}), (b:Person {name: 'Bob'}) CREATE (a)-[:KNOWS]->(b)`)

	res := run(t, env, `MATCH (x)-[:KNOWS]->(y) RETURN x.name, y.name`)
	assert.Equal(t, []string{"x.name", "y.name"}, res.Columns)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, []any{"Alice", "Bob"}, res.Rows[0])
}

// A statement reads its own writes: the RETURN runs at the statement's
// pending commit version, not the pre-statement snapshot.
func TestCreateThenReturnInOneStatement(t *testing.T) {
	env := newTestEnv()
	res := run(t, env, `CREATE (a:Person {name: 'Alice'}) RETURN a.name`)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "Alice", res.Rows[0][0])
}

func TestSetThenReadInOneStatement(t *testing.T) {
	env := newTestEnv()
	run(t, env, `CREATE (:Account {balance: 100})`)
	res := run(t, env, `MATCH (n:Account) SET n.balance = 200 RETURN n.balance`)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, int64(200), res.Rows[0][0])
}

// A write statement commits the store version exactly once, no matter how
// many entities it touches.
func TestWriteStatementBumpsVersionOnce(t *testing.T) {
	env := newTestEnv()
	before := env.Store.Version()
	run(t, env, `CREATE (a:Person {name: 'Alice'}), (b:Person {name: 'Bob'}) CREATE (a)-[:KNOWS]->(b)`)
	assert.Equal(t, before+1, env.Store.Version())
}

// A statement that fails mid-way leaves no effects: the store rolls back
// and the quota admissions are returned.
func TestFailedStatementLeavesNoEffects(t *testing.T) {
	env := newTestEnv()
	reg := tenant.NewRegistry()
	require.NoError(t, reg.Create("acme", tenant.Quotas{MaxNodes: 1}))
	env.Quotas = reg

	before := env.Store.Version()
	_, err := tryRun(env, `CREATE (:Person {name: 'Alice'}), (:Person {name: 'Bob'})`)
	require.Error(t, err)
	assert.Equal(t, samerr.CodeQuotaExceeded, samerr.CodeOf(err))

	// The first CREATE was rolled back along with its admission, so the
	// version never moved and the quota is free again.
	assert.Equal(t, before, env.Store.Version())
	assert.Empty(t, env.Store.AllNodeIds(env.Store.Version()))
	usage, err := reg.UsageOf("acme")
	require.NoError(t, err)
	assert.Equal(t, int64(0), usage.Nodes)

	run(t, env, `CREATE (:Person {name: 'Alice'})`)
}

// With a declared (label, key) index, an inline equality pattern is
// served by a property-index seek instead of a label scan; results are
// identical either way.
func TestInlinePredicateUsesPropertyIndex(t *testing.T) {
	env := newTestEnv()
	run(t, env, `CREATE INDEX ON :Person(name)`)
	run(t, env, `CREATE (:Person {name: 'Alice'}), (:Person {name: 'Bob'}), (:Person {name: 'Carol'})`)
	require.True(t, env.Store.HasPropertyIndex("Person", "name"))

	res := run(t, env, `MATCH (n:Person {name: 'Bob'}) RETURN n.name`)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "Bob", res.Rows[0][0])
}

func TestRelationshipInlinePropertyFilter(t *testing.T) {
	env := newTestEnv()
	run(t, env, `CREATE (a:Person {name: 'Alice'}), (b:Person {name: 'Bob'}), (c:Person {name: 'Carol'})`)
	run(t, env, `MATCH (a:Person {name: 'Alice'}), (b:Person {name: 'Bob'}) CREATE (a)-[:KNOWS {since: 2020}]->(b)`)
	run(t, env, `MATCH (a:Person {name: 'Alice'}), (c:Person {name: 'Carol'}) CREATE (a)-[:KNOWS {since: 2024}]->(c)`)

	res := run(t, env, `MATCH (a:Person {name: 'Alice'})-[:KNOWS {since: 2020}]->(x) RETURN x.name`)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "Bob", res.Rows[0][0])
}

func TestTargetNodeFilterAppliesToTarget(t *testing.T) {
	env := newTestEnv()
	run(t, env, `CREATE (:Trial {name: 't1', phase: 'Phase3'}), (:Trial {name: 't2', phase: 'Phase3'}), (:Trial {name: 't3', phase: 'Phase1'})`)
	run(t, env, `CREATE (:Disease {name: 'Diabetes'}), (:Disease {name: 'Asthma'})`)
	run(t, env, `MATCH (t:Trial {name: 't1'}), (d:Disease {name: 'Diabetes'}) CREATE (t)-[:STUDIES]->(d)`)
	run(t, env, `MATCH (t:Trial {name: 't2'}), (d:Disease {name: 'Asthma'}) CREATE (t)-[:STUDIES]->(d)`)
	run(t, env, `MATCH (t:Trial {name: 't3'}), (d:Disease {name: 'Diabetes'}) CREATE (t)-[:STUDIES]->(d)`)

	// Only t1 is both Phase3 and studies Diabetes; the target-side filter
	// must never leak a different disease's trial into the result.
	res := run(t, env, `MATCH (t:Trial {phase: 'Phase3'})-[:STUDIES]->(d:Disease {name: 'Diabetes'}) RETURN t.name`)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "t1", res.Rows[0][0])
}

func TestMultiPathJoinOnSharedVariable(t *testing.T) {
	env := newTestEnv()
	run(t, env, `CREATE (:Trial {name: 't1'}), (:Trial {name: 't2'})`)
	run(t, env, `CREATE (:Country {name: 'India'}), (:Disease {name: 'Diabetes'})`)
	run(t, env, `MATCH (t:Trial {name: 't1'}), (c:Country {name: 'India'}) CREATE (t)-[:IN]->(c)`)
	run(t, env, `MATCH (t:Trial {name: 't1'}), (d:Disease {name: 'Diabetes'}) CREATE (t)-[:STUDIES]->(d)`)
	// t2 is in India but studies nothing: it must not survive the join.
	run(t, env, `MATCH (t:Trial {name: 't2'}), (c:Country {name: 'India'}) CREATE (t)-[:IN]->(c)`)

	res := run(t, env, `MATCH (t:Trial)-[:IN]->(c:Country {name: 'India'}), (t)-[:STUDIES]->(d:Disease {name: 'Diabetes'}) RETURN t.name`)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "t1", res.Rows[0][0])
}

func TestSnapshotReadsAtOlderVersion(t *testing.T) {
	env := newTestEnv()
	run(t, env, `CREATE (n:Account {name: 'a'})`)
	run(t, env, `MATCH (n:Account) SET n.balance = 100`)
	v1 := env.Store.Version()
	run(t, env, `MATCH (n:Account) SET n.balance = 200`)
	v2 := env.Store.Version()

	env.AsOf = v1
	stmt, err := Parse(`MATCH (n:Account) RETURN n.balance`)
	require.NoError(t, err)
	res, err := NewExecutor(env).Run(stmt)
	require.NoError(t, err)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, int64(100), res.Rows[0][0])

	env.AsOf = v2
	res, err = NewExecutor(env).Run(stmt)
	require.NoError(t, err)
	assert.Equal(t, int64(200), res.Rows[0][0])
}

func TestAggregationWithGrouping(t *testing.T) {
	env := newTestEnv()
	run(t, env, `CREATE (:Person {dept: 'eng', age: 30}), (:Person {dept: 'eng', age: 40}), (:Person {dept: 'eng', age: 50}), (:Person {dept: 'sales', age: 20}), (:Person {dept: 'sales', age: 30})`)

	res := run(t, env, `MATCH (n:Person) RETURN n.dept, count(n), avg(n.age) ORDER BY n.dept`)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, []any{"eng", int64(3), 40.0}, res.Rows[0])
	assert.Equal(t, []any{"sales", int64(2), 25.0}, res.Rows[1])
}

func TestMissingPropertyReturnsNull(t *testing.T) {
	env := newTestEnv()
	run(t, env, `CREATE (:Person {name: 'Alice'})`)
	res := run(t, env, `MATCH (n:Person) RETURN n.missing`)
	require.Len(t, res.Rows, 1)
	assert.Nil(t, res.Rows[0][0])
}

// Aggregation over an empty result set yields one row: count=0, sum=0
// (this engine's documented choice over null), min/max/avg=null.
func TestAggregationOverEmptyResultSet(t *testing.T) {
	env := newTestEnv()
	res := run(t, env, `MATCH (n:Nothing) RETURN count(n), sum(n.age), avg(n.age), min(n.age), max(n.age)`)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, int64(0), res.Rows[0][0])
	assert.Equal(t, 0.0, res.Rows[0][1])
	assert.Nil(t, res.Rows[0][2])
	assert.Nil(t, res.Rows[0][3])
	assert.Nil(t, res.Rows[0][4])
}

func TestDeleteCascadesThroughQuery(t *testing.T) {
	env := newTestEnv()
	run(t, env, `CREATE (a:Person {name: 'Alice'}), (b:Person {name: 'Bob'})`)
	run(t, env, `MATCH (a:Person {name: 'Alice'}), (b:Person {name: 'Bob'}) CREATE (a)-[:KNOWS]->(b)`)
	run(t, env, `MATCH (n:Person {name: 'Alice'}) DELETE n`)

	res := run(t, env, `MATCH (x)-[:KNOWS]->(y) RETURN x.name`)
	assert.Empty(t, res.Rows)
	res = run(t, env, `MATCH (n:Person) RETURN n.name`)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "Bob", res.Rows[0][0])
}

func TestMergeFindsOrCreates(t *testing.T) {
	env := newTestEnv()
	run(t, env, `MERGE (c:City {name: 'Pune'})`)
	run(t, env, `MERGE (c:City {name: 'Pune'})`)

	res := run(t, env, `MATCH (c:City) RETURN count(c)`)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, int64(1), res.Rows[0][0])
}

func TestSetMergeMapAndRemove(t *testing.T) {
	env := newTestEnv()
	run(t, env, `CREATE (:Person {name: 'Alice'})`)
	run(t, env, `MATCH (n:Person) SET n += {age: 30, city: 'Pune'}`)

	res := run(t, env, `MATCH (n:Person) RETURN n.age, n.city`)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, []any{int64(30), "Pune"}, res.Rows[0])

	run(t, env, `MATCH (n:Person) REMOVE n.city`)
	res = run(t, env, `MATCH (n:Person) RETURN n.city`)
	assert.Nil(t, res.Rows[0][0])
}

func TestUnwindOrderSkipLimit(t *testing.T) {
	env := newTestEnv()
	res := run(t, env, `UNWIND [3, 1, 4, 1, 5, 9, 2, 6] AS x RETURN x ORDER BY x DESC SKIP 1 LIMIT 3`)
	require.Len(t, res.Rows, 3)
	assert.Equal(t, int64(6), res.Rows[0][0])
	assert.Equal(t, int64(5), res.Rows[1][0])
	assert.Equal(t, int64(4), res.Rows[2][0])
}

func TestWhereStringPredicates(t *testing.T) {
	env := newTestEnv()
	run(t, env, `CREATE (:Person {name: 'Alice'}), (:Person {name: 'Bob'}), (:Person {name: 'Alina'})`)

	res := run(t, env, `MATCH (n:Person) WHERE n.name STARTS WITH 'Al' RETURN n.name ORDER BY n.name`)
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "Alice", res.Rows[0][0])
	assert.Equal(t, "Alina", res.Rows[1][0])

	res = run(t, env, `MATCH (n:Person) WHERE n.name CONTAINS 'ob' RETURN n.name`)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, "Bob", res.Rows[0][0])

	res = run(t, env, `MATCH (n:Person) WHERE n.name IN ['Bob', 'Carol'] RETURN n.name`)
	require.Len(t, res.Rows, 1)
}

func TestNodeQuotaBoundary(t *testing.T) {
	env := newTestEnv()
	reg := tenant.NewRegistry()
	require.NoError(t, reg.Create("acme", tenant.Quotas{MaxNodes: 1}))
	env.Quotas = reg

	// Writing at exactly the quota succeeds; the next node write fails.
	run(t, env, `CREATE (:Person {name: 'Alice'})`)
	_, err := tryRun(env, `CREATE (:Person {name: 'Bob'})`)
	require.Error(t, err)
	assert.Equal(t, samerr.CodeQuotaExceeded, samerr.CodeOf(err))
}

func TestEdgeToDeletedNodeFails(t *testing.T) {
	env := newTestEnv()
	run(t, env, `CREATE (:Person {name: 'Alice'}), (:Person {name: 'Bob'})`)
	aliceRes := run(t, env, `MATCH (n:Person {name: 'Alice'}) RETURN n`)
	require.Len(t, aliceRes.Rows, 1)
	alice := aliceRes.Rows[0][0].(graphval.NodeId)
	require.NoError(t, env.Store.DeleteNode(alice))

	bob := run(t, env, `MATCH (n:Person {name: 'Bob'}) RETURN n`).Rows[0][0].(graphval.NodeId)
	_, err := env.Store.CreateEdge("KNOWS", bob, alice, nil)
	assert.Equal(t, samerr.CodeNotFound, samerr.CodeOf(err))
}

func TestUnknownFunctionIsSemanticError(t *testing.T) {
	env := newTestEnv()
	run(t, env, `CREATE (:Person {name: 'Alice'})`)
	_, err := tryRun(env, `MATCH (n:Person) RETURN bogus(n.name)`)
	require.Error(t, err)
	assert.Equal(t, samerr.CodeSemanticError, samerr.CodeOf(err))
}

func TestCreateVectorIndexConflictingDimension(t *testing.T) {
	env := newTestEnv()
	run(t, env, `CREATE VECTOR INDEX person_embedding FOR (n:Person) ON (n.embedding) OPTIONS {dimensions: 3, similarity: 'cosine'}`)
	// Re-declaring with the same dimension is idempotent.
	run(t, env, `CREATE VECTOR INDEX person_embedding FOR (n:Person) ON (n.embedding) OPTIONS {dimensions: 3, similarity: 'cosine'}`)

	_, err := tryRun(env, `CREATE VECTOR INDEX person_embedding FOR (n:Person) ON (n.embedding) OPTIONS {dimensions: 4, similarity: 'cosine'}`)
	require.Error(t, err)
	assert.Equal(t, samerr.CodeIndexExists, samerr.CodeOf(err))
}

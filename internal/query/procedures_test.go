package query

import (
	"testing"
	"time"

	"github.com/samyama-ai/samyama-graph-sub001/internal/graphval"
	"github.com/samyama-ai/samyama-graph-sub001/internal/samerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPageRankFavorsMostPointedAt(t *testing.T) {
	env := newTestEnv()
	run(t, env, `CREATE (:Person {name: 'Alice'}), (:Person {name: 'Bob'}), (:Person {name: 'Charlie'})`)
	run(t, env, `MATCH (b:Person {name: 'Bob'}), (a:Person {name: 'Alice'}) CREATE (b)-[:KNOWS]->(a)`)
	run(t, env, `MATCH (c:Person {name: 'Charlie'}), (a:Person {name: 'Alice'}) CREATE (c)-[:KNOWS]->(a)`)
	run(t, env, `MATCH (a:Person {name: 'Alice'}), (b:Person {name: 'Bob'}) CREATE (a)-[:KNOWS]->(b)`)

	alice := run(t, env, `MATCH (n:Person {name: 'Alice'}) RETURN n`).Rows[0][0].(graphval.NodeId)

	res := run(t, env, `CALL algo.pageRank('Person', 'KNOWS') YIELD node, score RETURN node, score`)
	require.Len(t, res.Rows, 3)
	// Rows are ordered by descending score; Alice, pointed at by both
	// others, must rank first.
	assert.Equal(t, alice, res.Rows[0][0])
}

func TestBFSPathProcedure(t *testing.T) {
	env := newTestEnv()
	run(t, env, `CREATE (:Hop {n: 1}), (:Hop {n: 2}), (:Hop {n: 3})`)
	run(t, env, `MATCH (a:Hop {n: 1}), (b:Hop {n: 2}) CREATE (a)-[:NEXT]->(b)`)
	run(t, env, `MATCH (b:Hop {n: 2}), (c:Hop {n: 3}) CREATE (b)-[:NEXT]->(c)`)

	res := run(t, env, `CALL algo.bfs(1, 3) YIELD path, cost RETURN path, cost`)
	require.Len(t, res.Rows, 1)
	path := res.Rows[0][0].([]any)
	require.Len(t, path, 3)
	assert.Equal(t, graphval.NodeId(1), path[0])
	assert.Equal(t, graphval.NodeId(3), path[2])
	assert.Equal(t, 2.0, res.Rows[0][1])
}

func TestDijkstraWeightedShortestPath(t *testing.T) {
	env := newTestEnv()
	run(t, env, `CREATE (:City {n: 1}), (:City {n: 2}), (:City {n: 3})`)
	run(t, env, `MATCH (a:City {n: 1}), (b:City {n: 2}) CREATE (a)-[:ROAD {km: 10}]->(b)`)
	run(t, env, `MATCH (b:City {n: 2}), (c:City {n: 3}) CREATE (b)-[:ROAD {km: 5}]->(c)`)
	run(t, env, `MATCH (a:City {n: 1}), (c:City {n: 3}) CREATE (a)-[:ROAD {km: 50}]->(c)`)

	res := run(t, env, `CALL algo.shortestPath(1, 3, 'km') YIELD path, cost RETURN cost`)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, 15.0, res.Rows[0][0])
}

func TestWCCComponents(t *testing.T) {
	env := newTestEnv()
	run(t, env, `CREATE (:N {n: 1}), (:N {n: 2}), (:N {n: 3}), (:N {n: 4})`)
	run(t, env, `MATCH (a:N {n: 1}), (b:N {n: 2}) CREATE (a)-[:E]->(b)`)
	run(t, env, `MATCH (c:N {n: 3}), (d:N {n: 4}) CREATE (c)-[:E]->(d)`)

	res := run(t, env, `CALL algo.wcc() YIELD node, component_id RETURN count(DISTINCT component_id)`)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, int64(2), res.Rows[0][0])
}

func TestVectorSearchThroughCall(t *testing.T) {
	env := newTestEnv()
	run(t, env, `CREATE VECTOR INDEX person_embedding FOR (n:Person) ON (n.embedding) OPTIONS {dimensions: 3, similarity: 'cosine'}`)
	run(t, env, `CREATE (:Person {name: 'Alice', embedding: [1.0, 0.0, 0.0]}), (:Person {name: 'Bob', embedding: [0.0, 1.0, 0.0]})`)

	idx, ok := env.Store.VectorIndex("Person", "embedding")
	require.True(t, ok)
	deadline := time.Now().Add(time.Second)
	for idx.Len() < 2 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	require.Equal(t, 2, idx.Len())

	alice := run(t, env, `MATCH (n:Person {name: 'Alice'}) RETURN n`).Rows[0][0].(graphval.NodeId)
	res := run(t, env, `CALL db.index.vector.queryNodes('Person', 'embedding', [0.9, 0.1, 0.0], 1) YIELD node, score RETURN node, score`)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, alice, res.Rows[0][0])
	assert.Less(t, res.Rows[0][1].(float64), 0.1)
}

func TestVectorSearchWithoutIndexFails(t *testing.T) {
	env := newTestEnv()
	_, err := tryRun(env, `CALL db.index.vector.queryNodes('Person', 'embedding', [1.0, 0.0], 1) YIELD node, score RETURN node`)
	require.Error(t, err)
	assert.Equal(t, samerr.CodeNotFound, samerr.CodeOf(err))
}

func TestUnknownProcedure(t *testing.T) {
	env := newTestEnv()
	_, err := tryRun(env, `CALL algo.nonsense() YIELD x RETURN x`)
	require.Error(t, err)
	assert.Equal(t, samerr.CodeSemanticError, samerr.CodeOf(err))
}

func TestOrSolveSingleObjective(t *testing.T) {
	env := newTestEnv()
	run(t, env, `CREATE (:Item {cost: 2.0}), (:Item {cost: 3.0}), (:Item {cost: 5.0})`)

	res := run(t, env, `CALL algo.or.solve({algorithm: 'jaya', label: 'Item', property: 'alloc', min: 0, max: 10, cost_property: 'cost', population_size: 10, max_iterations: 30}) YIELD fitness, algorithm, iterations RETURN fitness, algorithm, iterations`)
	require.Len(t, res.Rows, 1)
	fitness := res.Rows[0][0].(float64)
	// Minimizing sum(alloc*cost) with alloc in [0,10]: the optimum is 0 and
	// the worst possible assignment scores 100, so any converging run lands
	// strictly below that.
	assert.GreaterOrEqual(t, fitness, 0.0)
	assert.Less(t, fitness, 100.0)
	assert.Equal(t, "jaya", res.Rows[0][1])
	assert.Equal(t, int64(30), res.Rows[0][2])
}

func TestOrSolveMultiObjectiveReportsFrontSize(t *testing.T) {
	env := newTestEnv()
	run(t, env, `CREATE (:Item {cost: 2.0, risk: 1.0}), (:Item {cost: 3.0, risk: 0.5})`)

	res := run(t, env, `CALL algo.or.solve({label: 'Item', property: 'alloc', min: 0, max: 1, cost_properties: ['cost', 'risk'], population_size: 8, max_iterations: 10}) YIELD fitness, algorithm, front_size RETURN front_size`)
	require.Len(t, res.Rows, 1)
	assert.GreaterOrEqual(t, res.Rows[0][0].(int64), int64(1))
}

func TestOrSolveRequiresCostProperty(t *testing.T) {
	env := newTestEnv()
	run(t, env, `CREATE (:Item {cost: 1.0})`)
	_, err := tryRun(env, `CALL algo.or.solve({label: 'Item', property: 'alloc', min: 0, max: 1}) YIELD fitness RETURN fitness`)
	require.Error(t, err)
	assert.Equal(t, samerr.CodeSemanticError, samerr.CodeOf(err))
}

package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// With no ORDER BY, grouped output follows first-seen insertion order of
// the group keys: the first row carrying a new key fixes that group's
// position in the result.
func TestGroupOutputOrderIsFirstSeen(t *testing.T) {
	env := newTestEnv()
	res := run(t, env, `UNWIND ['b', 'a', 'c', 'a', 'b'] AS x RETURN x, count(x)`)
	require.Len(t, res.Rows, 3)
	assert.Equal(t, []any{"b", int64(2)}, res.Rows[0])
	assert.Equal(t, []any{"a", int64(2)}, res.Rows[1])
	assert.Equal(t, []any{"c", int64(1)}, res.Rows[2])
}

// count(*) over an unjoined Cartesian product counts the materialized row
// stream the pipeline actually produced — every combination, with no
// implicit dedup step anywhere in the operator chain.
func TestCountStarOverCartesianProduct(t *testing.T) {
	env := newTestEnv()
	run(t, env, `CREATE (:A {n: 1}), (:A {n: 2})`)
	run(t, env, `CREATE (:B {n: 1}), (:B {n: 2}), (:B {n: 3})`)

	res := run(t, env, `MATCH (a:A), (b:B) RETURN count(*)`)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, int64(6), res.Rows[0][0])
}

func TestCollectPreservesInputOrderWithinGroup(t *testing.T) {
	env := newTestEnv()
	res := run(t, env, `UNWIND [3, 1, 2] AS x RETURN collect(x)`)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, []any{int64(3), int64(1), int64(2)}, res.Rows[0][0])
}

func TestCountDistinct(t *testing.T) {
	env := newTestEnv()
	res := run(t, env, `UNWIND ['a', 'b', 'a', 'a'] AS x RETURN count(DISTINCT x)`)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, int64(2), res.Rows[0][0])
}

func TestMinMaxCountSkipNulls(t *testing.T) {
	env := newTestEnv()
	run(t, env, `CREATE (:N {v: 5}), (:N {v: 2}), (:N {other: 1})`)
	res := run(t, env, `MATCH (n:N) RETURN min(n.v), max(n.v), count(n.v)`)
	require.Len(t, res.Rows, 1)
	assert.Equal(t, int64(2), res.Rows[0][0])
	assert.Equal(t, int64(5), res.Rows[0][1])
	assert.Equal(t, int64(2), res.Rows[0][2])
}

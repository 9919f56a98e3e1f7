package persistence

import (
	"testing"

	"github.com/samyama-ai/samyama-graph-sub001/internal/graphval"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func appendN(t *testing.T, w *WAL, n int) {
	t.Helper()
	for i := 0; i < n; i++ {
		_, err := w.Append(LogEntry{
			Tenant: "acme",
			Op:     Mutation{Kind: MutCreateNode, Labels: []string{"Person"}},
		})
		require.NoError(t, err)
	}
}

func collectSeqs(t *testing.T, w *WAL, after uint64) []uint64 {
	t.Helper()
	var seqs []uint64
	require.NoError(t, w.Replay(after, func(e LogEntry) error {
		seqs = append(seqs, e.Seq)
		return nil
	}))
	return seqs
}

func TestAppendAssignsMonotonicSequences(t *testing.T) {
	w, err := OpenWAL(t.TempDir())
	require.NoError(t, err)
	defer w.Close()

	seq1, err := w.Append(LogEntry{Tenant: "acme", Op: Mutation{Kind: MutCreateNode}})
	require.NoError(t, err)
	seq2, err := w.Append(LogEntry{Tenant: "acme", Op: Mutation{Kind: MutCreateNode}})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), seq1)
	assert.Equal(t, uint64(2), seq2)
}

func TestReplayFromOffset(t *testing.T) {
	w, err := OpenWAL(t.TempDir())
	require.NoError(t, err)
	defer w.Close()

	appendN(t, w, 5)
	assert.Equal(t, []uint64{1, 2, 3, 4, 5}, collectSeqs(t, w, 0))
	assert.Equal(t, []uint64{4, 5}, collectSeqs(t, w, 3))
	assert.Empty(t, collectSeqs(t, w, 5))
}

func TestReplayPreservesEntryContent(t *testing.T) {
	w, err := OpenWAL(t.TempDir())
	require.NoError(t, err)
	defer w.Close()

	_, err = w.Append(LogEntry{Tenant: "acme", Op: Mutation{
		Kind:  MutSetNodeProperty,
		NodeId: 7,
		Key:   "name",
		Value: graphval.String("Ada"),
	}})
	require.NoError(t, err)

	var got LogEntry
	require.NoError(t, w.Replay(0, func(e LogEntry) error {
		got = e
		return nil
	}))
	assert.Equal(t, graphval.TenantId("acme"), got.Tenant)
	assert.Equal(t, MutSetNodeProperty, got.Op.Kind)
	assert.Equal(t, graphval.NodeId(7), got.Op.NodeId)
	assert.Equal(t, "Ada", got.Op.Value.String)
}

func TestSequenceContinuesAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	w, err := OpenWAL(dir)
	require.NoError(t, err)
	appendN(t, w, 3)
	require.NoError(t, w.Close())

	w2, err := OpenWAL(dir)
	require.NoError(t, err)
	defer w2.Close()
	seq, err := w2.Append(LogEntry{Tenant: "acme", Op: Mutation{Kind: MutCreateNode}})
	require.NoError(t, err)
	assert.Equal(t, uint64(4), seq)
	assert.Equal(t, []uint64{1, 2, 3, 4}, collectSeqs(t, w2, 0))
}

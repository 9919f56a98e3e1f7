package tenant

import (
	"testing"

	"github.com/samyama-ai/samyama-graph-sub001/internal/graphval"
	"github.com/samyama-ai/samyama-graph-sub001/internal/samerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndDelete(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Create("acme", Quotas{MaxNodes: 10}))
	assert.ElementsMatch(t, []graphval.TenantId{"acme"}, r.List())

	err := r.Create("acme", Quotas{})
	assert.Equal(t, samerr.CodeConstraintViolation, samerr.CodeOf(err))

	require.NoError(t, r.Delete("acme"))
	assert.Empty(t, r.List())
}

func TestAdmitEnforcesQuota(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Create("acme", Quotas{MaxNodes: 2}))

	require.NoError(t, r.Admit("acme", ResourceNodes, 1))
	require.NoError(t, r.Admit("acme", ResourceNodes, 1))

	err := r.Admit("acme", ResourceNodes, 1)
	assert.Equal(t, samerr.CodeQuotaExceeded, samerr.CodeOf(err))

	usage, err := r.UsageOf("acme")
	require.NoError(t, err)
	assert.Equal(t, int64(2), usage.Nodes)
}

func TestAdmitReleaseNeverFails(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Create("acme", Quotas{MaxNodes: 1}))
	require.NoError(t, r.Admit("acme", ResourceNodes, 1))
	require.NoError(t, r.Admit("acme", ResourceNodes, -1))

	usage, err := r.UsageOf("acme")
	require.NoError(t, err)
	assert.Equal(t, int64(0), usage.Nodes)
}

func TestAdmitUnboundedQuota(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Create("acme", Quotas{}))
	require.NoError(t, r.Admit("acme", ResourceNodes, 1_000_000))
}

func TestConfigRoundTrip(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Create("acme", Quotas{}))
	require.NoError(t, r.SetConfig("acme", "auto_embed.Movie", "text-embedding-v1"))

	v, ok := r.Config("acme", "auto_embed.Movie")
	assert.True(t, ok)
	assert.Equal(t, "text-embedding-v1", v)

	_, ok = r.Config("acme", "missing")
	assert.False(t, ok)
}

func TestUnknownTenant(t *testing.T) {
	r := NewRegistry()
	_, err := r.UsageOf("ghost")
	assert.Equal(t, samerr.CodeNotFound, samerr.CodeOf(err))
}

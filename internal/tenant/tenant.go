// Package tenant implements the multi-tenant registry: per-tenant quotas,
// usage counters, and admission checks gating every mutation the graph
// store accepts.
package tenant

import (
	"sync"
	"time"

	"github.com/samyama-ai/samyama-graph-sub001/internal/graphval"
	"github.com/samyama-ai/samyama-graph-sub001/internal/obs/metrics"
	"github.com/samyama-ai/samyama-graph-sub001/internal/samerr"
)

// Quotas bounds what a tenant may consume. A zero value means unbounded
// for that resource.
type Quotas struct {
	MaxNodes       int64
	MaxEdges       int64
	MaxMemoryBytes int64
	MaxStorageBytes int64
	MaxConnections int
	MaxQueryTime   time.Duration
}

// Usage tracks a tenant's live resource consumption.
type Usage struct {
	Nodes       int64
	Edges       int64
	MemoryBytes int64
	StorageBytes int64
	Connections int
}

// Resource names an admission-checked dimension of Quotas, used as the
// "resource" label on quota-rejection metrics.
type Resource string

const (
	ResourceNodes       Resource = "nodes"
	ResourceEdges       Resource = "edges"
	ResourceMemory      Resource = "memory"
	ResourceStorage     Resource = "storage"
	ResourceConnections Resource = "connections"
)

type tenantState struct {
	id      graphval.TenantId
	quotas  Quotas
	usage   Usage
	configs map[string]string
	mu      sync.Mutex
}

// Registry is the process-wide set of known tenants and their quotas.
type Registry struct {
	mu      sync.RWMutex
	tenants map[graphval.TenantId]*tenantState
}

// NewRegistry returns an empty tenant registry.
func NewRegistry() *Registry {
	return &Registry{tenants: make(map[graphval.TenantId]*tenantState)}
}

// Create registers a new tenant with the given quotas. It returns
// CodeConstraintViolation if the tenant already exists.
func (r *Registry) Create(id graphval.TenantId, quotas Quotas) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tenants[id]; ok {
		return samerr.New(samerr.CodeConstraintViolation, "tenant %q already exists", id)
	}
	r.tenants[id] = &tenantState{id: id, quotas: quotas, configs: make(map[string]string)}
	metrics.TenantsTotal.Set(float64(len(r.tenants)))
	return nil
}

// Delete removes a tenant and its usage counters. It does not delete the
// tenant's graph data; callers drive that through the store's DeleteGraph
// operation before calling Delete here.
func (r *Registry) Delete(id graphval.TenantId) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tenants[id]; !ok {
		return samerr.New(samerr.CodeNotFound, "tenant %q not found", id)
	}
	delete(r.tenants, id)
	metrics.TenantsTotal.Set(float64(len(r.tenants)))
	return nil
}

// List returns every registered tenant id.
func (r *Registry) List() []graphval.TenantId {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]graphval.TenantId, 0, len(r.tenants))
	for id := range r.tenants {
		ids = append(ids, id)
	}
	return ids
}

// SetConfig stores an opaque configuration value under key for the tenant
// (for example an auto-embed policy). The registry does not interpret the
// value.
func (r *Registry) SetConfig(id graphval.TenantId, key, value string) error {
	t, err := r.get(id)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.configs[key] = value
	return nil
}

// Config returns the opaque configuration value under key, if any.
func (r *Registry) Config(id graphval.TenantId, key string) (string, bool) {
	t, err := r.get(id)
	if err != nil {
		return "", false
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	v, ok := t.configs[key]
	return v, ok
}

func (r *Registry) get(id graphval.TenantId) (*tenantState, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tenants[id]
	if !ok {
		return nil, samerr.New(samerr.CodeNotFound, "tenant %q not found", id)
	}
	return t, nil
}

// Admit checks whether incrementing resource by delta keeps the tenant
// within quota, and if so commits the increment. A negative delta always
// succeeds (releasing resources never needs admission).
func (r *Registry) Admit(id graphval.TenantId, resource Resource, delta int64) error {
	t, err := r.get(id)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	var current *int64
	var limit int64
	switch resource {
	case ResourceNodes:
		current, limit = &t.usage.Nodes, t.quotas.MaxNodes
	case ResourceEdges:
		current, limit = &t.usage.Edges, t.quotas.MaxEdges
	case ResourceMemory:
		current, limit = &t.usage.MemoryBytes, t.quotas.MaxMemoryBytes
	case ResourceStorage:
		current, limit = &t.usage.StorageBytes, t.quotas.MaxStorageBytes
	case ResourceConnections:
		c := int64(t.usage.Connections)
		current, limit = &c, int64(t.quotas.MaxConnections)
	default:
		return samerr.New(samerr.CodeSemanticError, "unknown quota resource %q", resource)
	}

	if delta > 0 && limit > 0 && *current+delta > limit {
		metrics.TenantQuotaRejectionsTotal.WithLabelValues(string(id), string(resource)).Inc()
		return samerr.New(samerr.CodeQuotaExceeded, "tenant %q exceeded quota for %s", id, resource)
	}
	*current += delta
	if resource == ResourceConnections {
		t.usage.Connections = int(*current)
	}
	return nil
}

// UsageOf returns a snapshot of the tenant's current usage.
func (r *Registry) UsageOf(id graphval.TenantId) (Usage, error) {
	t, err := r.get(id)
	if err != nil {
		return Usage{}, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.usage, nil
}

// QuotasOf returns the tenant's configured quotas.
func (r *Registry) QuotasOf(id graphval.TenantId) (Quotas, error) {
	t, err := r.get(id)
	if err != nil {
		return Quotas{}, err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.quotas, nil
}

// MaxQueryTime returns the tenant's configured query timeout, or the
// fallback if the tenant has none configured.
func (r *Registry) MaxQueryTime(id graphval.TenantId, fallback time.Duration) time.Duration {
	t, err := r.get(id)
	if err != nil {
		return fallback
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.quotas.MaxQueryTime <= 0 {
		return fallback
	}
	return t.quotas.MaxQueryTime
}

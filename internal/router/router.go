// Package router implements tenant-keyed shard routing. A Router holds a
// (tenant -> owning node id) map populated out of band (static config in
// cmd/samyama-graphd), decides whether a request should run Local or be
// forwarded Remote, and a Proxy carries the forward over gRPC.
package router

import (
	"sync"

	"github.com/samyama-ai/samyama-graph-sub001/internal/samerr"
)

// Decision is the outcome of routing a tenant's request.
type Decision int

const (
	// Local: process the request on this node.
	Local Decision = iota
	// Remote: forward to the named node.
	Remote
)

// Router maps tenant ids to the node id that owns them.
type Router struct {
	localNodeID string

	mu       sync.RWMutex
	shardMap map[string]string // tenant -> owning node id
}

func New(localNodeID string) *Router {
	return &Router{localNodeID: localNodeID, shardMap: make(map[string]string)}
}

// UpdateRoute assigns tenant to ownerNodeID, overwriting any prior route.
func (r *Router) UpdateRoute(tenant, ownerNodeID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.shardMap[tenant] = ownerNodeID
}

// RemoveRoute drops tenant's route.
func (r *Router) RemoveRoute(tenant string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.shardMap, tenant)
}

// Route decides how to handle a request for tenant: Local if this node
// owns it, Remote(nodeID) if another node does, or UnknownShard if
// tenant has no route at all.
func (r *Router) Route(tenant string) (Decision, string, error) {
	r.mu.RLock()
	owner, ok := r.shardMap[tenant]
	r.mu.RUnlock()
	if !ok {
		return Local, "", samerr.New(samerr.CodeUnknownShard, "tenant %q is not routable", tenant)
	}
	if owner == r.localNodeID {
		return Local, owner, nil
	}
	return Remote, owner, nil
}

// Routes returns a copy of every known tenant -> node id route;
// cmd/samyama-graphd logs its size at startup.
func (r *Router) Routes() map[string]string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]string, len(r.shardMap))
	for k, v := range r.shardMap {
		out[k] = v
	}
	return out
}

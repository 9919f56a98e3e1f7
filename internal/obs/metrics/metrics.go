// Package metrics exposes Prometheus collectors for the graph store, query
// engine, persistence layer, and Raft cluster.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	NodesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "samyama_nodes_total",
			Help: "Total number of live nodes by tenant",
		},
		[]string{"tenant"},
	)

	EdgesTotal = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "samyama_edges_total",
			Help: "Total number of live edges by tenant",
		},
		[]string{"tenant"},
	)

	TenantsTotal = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "samyama_tenants_total",
			Help: "Total number of registered tenants",
		},
	)

	StoreVersion = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "samyama_store_version",
			Help: "Current MVCC store version",
		},
	)

	// Raft metrics
	RaftLeader = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "samyama_raft_is_leader",
			Help: "Whether this node is the Raft leader (1 = leader, 0 = follower)",
		},
	)

	RaftPeers = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "samyama_raft_peers_total",
			Help: "Total number of Raft peers in the cluster",
		},
	)

	RaftLogIndex = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "samyama_raft_log_index",
			Help: "Current Raft log index",
		},
	)

	RaftAppliedIndex = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "samyama_raft_applied_index",
			Help: "Last applied Raft log index",
		},
	)

	RaftApplyDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "samyama_raft_apply_duration_seconds",
			Help:    "Time taken to apply a Raft log entry in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	// Query metrics
	QueryRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "samyama_query_requests_total",
			Help: "Total number of query requests by tenant and status",
		},
		[]string{"tenant", "status"},
	)

	QueryDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "samyama_query_duration_seconds",
			Help:    "Query execution duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"tenant"},
	)

	QueryPlanCacheHits = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "samyama_query_plan_cache_hits_total",
			Help: "Total number of compiled plan cache hits",
		},
	)

	// Algorithm metrics
	AlgoExecutionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "samyama_algo_executions_total",
			Help: "Total number of graph algorithm executions by name",
		},
		[]string{"algo"},
	)

	AlgoDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "samyama_algo_duration_seconds",
			Help:    "Graph algorithm execution duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"algo"},
	)

	// Vector index metrics
	VectorIndexBackfillDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "samyama_vector_index_backfill_duration_seconds",
			Help:    "Time taken to back-fill a vector index in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	VectorIndexQueueDepth = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "samyama_vector_index_queue_depth",
			Help: "Pending items in the background vector indexer queue",
		},
	)

	// Persistence metrics
	WALAppendDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "samyama_wal_append_duration_seconds",
			Help:    "Time taken to append a WAL entry in seconds",
			Buckets: prometheus.DefBuckets,
		},
	)

	CheckpointDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "samyama_checkpoint_duration_seconds",
			Help:    "Time taken to complete a checkpoint in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30, 60, 300},
		},
	)

	// Tenant quota metrics
	TenantQuotaRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "samyama_tenant_quota_rejections_total",
			Help: "Total number of operations rejected by quota, by tenant and resource",
		},
		[]string{"tenant", "resource"},
	)

	// Router metrics
	RouterForwardsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "samyama_router_forwards_total",
			Help: "Total number of requests forwarded to a remote shard owner",
		},
		[]string{"status"},
	)
)

func init() {
	prometheus.MustRegister(NodesTotal)
	prometheus.MustRegister(EdgesTotal)
	prometheus.MustRegister(TenantsTotal)
	prometheus.MustRegister(StoreVersion)
	prometheus.MustRegister(RaftLeader)
	prometheus.MustRegister(RaftPeers)
	prometheus.MustRegister(RaftLogIndex)
	prometheus.MustRegister(RaftAppliedIndex)
	prometheus.MustRegister(RaftApplyDuration)
	prometheus.MustRegister(QueryRequestsTotal)
	prometheus.MustRegister(QueryDuration)
	prometheus.MustRegister(QueryPlanCacheHits)
	prometheus.MustRegister(AlgoExecutionsTotal)
	prometheus.MustRegister(AlgoDuration)
	prometheus.MustRegister(VectorIndexBackfillDuration)
	prometheus.MustRegister(VectorIndexQueueDepth)
	prometheus.MustRegister(WALAppendDuration)
	prometheus.MustRegister(CheckpointDuration)
	prometheus.MustRegister(TenantQuotaRejectionsTotal)
	prometheus.MustRegister(RouterForwardsTotal)
}

// Handler returns the Prometheus HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Timer is a helper for timing operations.
type Timer struct {
	start time.Time
}

func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

func (t *Timer) ObserveDuration(histogram prometheus.Histogram) {
	histogram.Observe(time.Since(t.start).Seconds())
}

func (t *Timer) ObserveDurationVec(histogram prometheus.ObserverVec, labels ...string) {
	histogram.WithLabelValues(labels...).Observe(time.Since(t.start).Seconds())
}

func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

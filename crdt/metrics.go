package crdt

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// replicaMetrics is the set of Prometheus collectors a Replica updates as it
// admits operations. They are process-wide singletons, not per-replica: a
// process hosting more than one Replica sees their totals combined, which
// matches how the rest of the corpus exposes a single /metrics endpoint per
// binary rather than one per logical shard.
type replicaMetrics struct {
	opsApplied         prometheus.Counter
	duplicatesRejected prometheus.Counter
	missingTargets     prometheus.Counter
	liveNodes          prometheus.Gauge
}

var defaultMetrics = &replicaMetrics{
	opsApplied: promauto.NewCounter(prometheus.CounterOpts{
		Name: "crdtdb_ops_applied_total",
		Help: "Total remote operations that mutated the value model.",
	}),
	duplicatesRejected: promauto.NewCounter(prometheus.CounterOpts{
		Name: "crdtdb_ops_duplicate_total",
		Help: "Total remote operations rejected as already-known.",
	}),
	missingTargets: promauto.NewCounter(prometheus.CounterOpts{
		Name: "crdtdb_ops_missing_target_total",
		Help: "Total remote operations admitted against a since-reclaimed target.",
	}),
	liveNodes: promauto.NewGauge(prometheus.GaugeOpts{
		Name: "crdtdb_live_nodes",
		Help: "Current count of live CRDT nodes in the value model.",
	}),
}

// Package metrics defines the Prometheus metrics exported by LabKeeper and
// an optional HTTP listener serving them on /metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "labkeeper"

// OrdersCreatedTotal counts orders appended to the store.
var OrdersCreatedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_created_total",
		Help:      "Total number of lab orders created.",
	},
)

// ResultsCapturedTotal counts result captures.
// Label:
//   - status: status applied by the capture ("capturado" or "firmado")
var ResultsCapturedTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "results_captured_total",
		Help:      "Total number of result captures, labelled by resulting status.",
	},
	[]string{"status"},
)

// DecryptFailuresTotal counts stored fields that could not be decrypted.
// Label:
//   - column: persisted column name (e.g. "Nombre_enc")
var DecryptFailuresTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "decrypt_failures_total",
		Help:      "Total number of encrypted fields that failed to decrypt.",
	},
	[]string{"column"},
)

// LoginAttemptsTotal counts login attempts.
// Label:
//   - result: "success" or "failure"
var LoginAttemptsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "login_attempts_total",
		Help:      "Total number of login attempts, labelled by result.",
	},
	[]string{"result"},
)

// StoreRewriteDuration observes how long a whole-table rewrite takes.
var StoreRewriteDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Name:      "store_rewrite_duration_seconds",
		Help:      "Duration of whole-table order store rewrites in seconds.",
		Buckets:   prometheus.DefBuckets,
	},
)

// StoreRows tracks the number of rows in the order store after the last
// read or write.
var StoreRows = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "store_rows",
		Help:      "Number of rows in the order store.",
	},
)

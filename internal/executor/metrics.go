package executor

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "querycore"

// Transaction outcomes.
const (
	outcomeStarted    = "started"
	outcomeCommitted  = "committed"
	outcomeRolledBack = "rolled_back"
	outcomeExpired    = "expired"
	outcomeFailed     = "failed"
)

type metrics struct {
	transactions *prometheus.CounterVec
	operations   *prometheus.CounterVec
	duration     *prometheus.HistogramVec
}

// newMetrics creates the executor's collectors on reg. A nil reg leaves
// them unregistered.
func newMetrics(reg prometheus.Registerer) *metrics {
	factory := promauto.With(reg)
	return &metrics{
		transactions: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "transactions_total",
				Help:      "Total number of transaction lifecycle events by outcome",
			},
			[]string{"outcome"},
		),
		operations: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "operations_total",
				Help:      "Total number of executed operations by mode and status",
			},
			[]string{"mode", "status"},
		),
		duration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "operation_duration_seconds",
				Help:      "Duration of single operations in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"mode"},
		),
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

package stats

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	log "github.com/sirupsen/logrus"
)

const namespace = "walletkit"

var (
	reconciliationPasses = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "tracker",
		Name:      "reconciliation_passes_total",
		Help:      "Number of reconciliation passes run by the pending tx tracker.",
	})
	resolvedTxs = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "tracker",
		Name:      "resolved_txs_total",
		Help:      "Number of tracked txs resolved, by outcome.",
	}, []string{"outcome"})
	lookupErrors = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "tracker",
		Name:      "receipt_lookup_errors_total",
		Help:      "Number of failed receipt lookups.",
	})
	trackedTxs = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "tracker",
		Name:      "tracked_txs",
		Help:      "Number of txs currently awaiting their receipt.",
	})
)

func init() {
	prometheus.MustRegister(
		reconciliationPasses, resolvedTxs, lookupErrors, trackedTxs,
	)
}

// IncReconciliationPasses ...
func IncReconciliationPasses() {
	reconciliationPasses.Inc()
}

// IncResolvedTxs ...
func IncResolvedTxs(outcome string) {
	resolvedTxs.WithLabelValues(outcome).Inc()
}

// IncLookupErrors ...
func IncLookupErrors() {
	lookupErrors.Inc()
}

// SetTrackedTxs ...
func SetTrackedTxs(count int) {
	trackedTxs.Set(float64(count))
}

// PrintTrackerStatistics prints the current values of the tracker metrics.
func PrintTrackerStatistics() {
	log.Infof(
		"Reconciliation passes: %.0f, Tracked txs: %.0f, Receipt lookup errors: %.0f",
		counterValue(reconciliationPasses),
		gaugeValue(trackedTxs),
		counterValue(lookupErrors),
	)
}

func counterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	if err := c.Write(m); err != nil {
		return 0
	}
	return m.GetCounter().GetValue()
}

func gaugeValue(g prometheus.Gauge) float64 {
	m := &dto.Metric{}
	if err := g.Write(m); err != nil {
		return 0
	}
	return m.GetGauge().GetValue()
}

// Package metrics exposes Prometheus instrumentation for the duty engine.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "herooftheday"

type Metrics struct {
	reconciliations       *prometheus.CounterVec
	reconcileDuration     prometheus.Histogram
	creditedSeconds       *prometheus.CounterVec
	directorySyncFailures prometheus.Counter
	conflicts             *prometheus.CounterVec
	recalculations        *prometheus.CounterVec
}

// New creates the collectors and registers them on reg, or on the default
// registerer when reg is nil.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		reconciliations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "reconciler",
			Name:      "heroes_total",
			Help:      "Per-hero reconciliations by outcome.",
		}, []string{"outcome"}),
		reconcileDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "reconciler",
			Name:      "hero_duration_seconds",
			Help:      "Time spent reconciling a single hero.",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
		}),
		creditedSeconds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "ledger",
			Name:      "credited_seconds_total",
			Help:      "Duty seconds credited by incremental reconciliation.",
		}, []string{"hero"}),
		directorySyncFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "directory",
			Name:      "sync_failures_total",
			Help:      "Failed directory holder updates.",
		}),
		conflicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "revision_conflicts_total",
			Help:      "Lost compare-and-set attempts on a hero revision by operation.",
		}, []string{"op"}),
		recalculations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "recalculator",
			Name:      "heroes_total",
			Help:      "Per-hero ledger recalculations by outcome.",
		}, []string{"outcome"}),
	}
	reg.MustRegister(
		m.reconciliations,
		m.reconcileDuration,
		m.creditedSeconds,
		m.directorySyncFailures,
		m.conflicts,
		m.recalculations,
	)
	return m
}

func (m *Metrics) Reconciled(outcome string, took time.Duration) {
	if m == nil {
		return
	}
	m.reconciliations.WithLabelValues(outcome).Inc()
	m.reconcileDuration.Observe(took.Seconds())
}

func (m *Metrics) Credited(hero string, seconds int64) {
	if m == nil || seconds <= 0 {
		return
	}
	m.creditedSeconds.WithLabelValues(hero).Add(float64(seconds))
}

func (m *Metrics) DirectorySyncFailed() {
	if m == nil {
		return
	}
	m.directorySyncFailures.Inc()
}

func (m *Metrics) Conflict(op string) {
	if m == nil {
		return
	}
	m.conflicts.WithLabelValues(op).Inc()
}

func (m *Metrics) Recalculated(outcome string) {
	if m == nil {
		return
	}
	m.recalculations.WithLabelValues(outcome).Inc()
}

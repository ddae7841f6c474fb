// Package metrics exposes the collector's Prometheus instrumentation:
// per-cycle and per-phase timings plus retry/failover counters,
// grounded on the RecordX-helper-over-package-level-collector pattern
// used throughout the examples' metrics packages.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	CyclesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atm_collector_cycles_total",
		Help: "Total collector cycles, labelled by terminal outcome.",
	}, []string{"outcome"})

	CycleDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "atm_collector_cycle_duration_seconds",
		Help:    "Wall-clock duration of a full collector cycle.",
		Buckets: prometheus.DefBuckets,
	}, []string{"outcome"})

	PhaseDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "atm_collector_phase_duration_seconds",
		Help:    "Wall-clock duration of a single collector phase.",
		Buckets: prometheus.DefBuckets,
	}, []string{"phase"})

	RetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atm_collector_vendor_retries_total",
		Help: "Retry attempts against the vendor API, labelled by endpoint.",
	}, []string{"endpoint"})

	FailoverTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atm_collector_failover_total",
		Help: "Failover synthesis events, labelled by reason.",
	}, []string{"reason"})

	TerminalsObserved = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "atm_collector_terminals_observed",
		Help: "Terminal count observed in the most recent cycle, labelled by canonical status.",
	}, []string{"status"})

	RegistryGrowth = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "atm_collector_registry_new_terminals_total",
		Help: "Newly discovered terminal IDs added to the registry.",
	}, []string{})
)

// RecordCycle records a completed cycle's outcome and duration.
func RecordCycle(outcome string, d time.Duration) {
	CyclesTotal.WithLabelValues(outcome).Inc()
	CycleDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

// RecordPhase records a single phase's duration.
func RecordPhase(phase string, d time.Duration) {
	PhaseDuration.WithLabelValues(phase).Observe(d.Seconds())
}

// RecordRetry increments the retry counter for an endpoint.
func RecordRetry(endpoint string) {
	RetriesTotal.WithLabelValues(endpoint).Inc()
}

// RecordFailover increments the failover counter for a reason.
func RecordFailover(reason string) {
	FailoverTotal.WithLabelValues(reason).Inc()
}

// SetTerminalsObserved sets the gauge for a canonical status.
func SetTerminalsObserved(status string, count int) {
	TerminalsObserved.WithLabelValues(status).Set(float64(count))
}

// RecordRegistryGrowth increments the new-terminal counter by n.
func RecordRegistryGrowth(n int) {
	if n <= 0 {
		return
	}
	RegistryGrowth.WithLabelValues().Add(float64(n))
}

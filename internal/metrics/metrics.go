package metrics

import "github.com/prometheus/client_golang/prometheus"

// NewClaimConflictsTotal returns a Prometheus counter for claim attempts lost to a concurrent claimant
func NewClaimConflictsTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "claim_conflicts_total",
		Help: "Total number of claim attempts rejected because the offer was already claimed",
	})
}

// NewSweepTransitionsTotal returns a Prometheus counter vector for lifecycle transitions applied per sweep
func NewSweepTransitionsTotal() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sweep_transitions_total",
		Help: "Total number of offer transitions applied by lifecycle sweeps",
	}, []string{"sweep"})
}

// NewSweepItemFailuresTotal returns a Prometheus counter vector for per-item sweep failures
func NewSweepItemFailuresTotal() *prometheus.CounterVec {
	return prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "sweep_item_failures_total",
		Help: "Total number of offers a lifecycle sweep failed to process",
	}, []string{"sweep"})
}

// NewNotifyFailuresTotal returns a Prometheus counter for failed notification publishes
func NewNotifyFailuresTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "notify_failures_total",
		Help: "Total number of notification publishes that failed",
	})
}

// NewRateLimitExceededTotal returns a Prometheus counter for the number of rejected HTTP requests due to rate limiting
func NewRateLimitExceededTotal() prometheus.Counter {
	return prometheus.NewCounter(prometheus.CounterOpts{
		Name: "rate_limit_exceeded_total",
		Help: "Total number of rejected HTTP requests due to rate limiting",
	})
}

package app

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/dig"

	"github.com/mealbridge/service-surplus/internal/metrics"
)

type metricsOut struct {
	dig.Out

	Registry          *prometheus.Registry
	ClaimConflicts    prometheus.Counter     `name:"claim_conflicts_total"`
	NotifyFailures    prometheus.Counter     `name:"notify_failures_total"`
	RateLimitExceeded prometheus.Counter     `name:"rate_limit_exceeded_total"`
	SweepTransitions  *prometheus.CounterVec `name:"sweep_transitions_total"`
	SweepFailures     *prometheus.CounterVec `name:"sweep_item_failures_total"`
}

func newMetrics() (metricsOut, error) {
	out := metricsOut{
		Registry:          prometheus.NewRegistry(),
		ClaimConflicts:    metrics.NewClaimConflictsTotal(),
		NotifyFailures:    metrics.NewNotifyFailuresTotal(),
		RateLimitExceeded: metrics.NewRateLimitExceededTotal(),
		SweepTransitions:  metrics.NewSweepTransitionsTotal(),
		SweepFailures:     metrics.NewSweepItemFailuresTotal(),
	}

	collectorsToRegister := []prometheus.Collector{
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		out.ClaimConflicts,
		out.NotifyFailures,
		out.RateLimitExceeded,
		out.SweepTransitions,
		out.SweepFailures,
	}
	for _, c := range collectorsToRegister {
		if err := out.Registry.Register(c); err != nil {
			return metricsOut{}, err
		}
	}
	return out, nil
}

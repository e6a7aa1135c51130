package alerting

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine's Prometheus collectors.
type Metrics struct {
	RulesEvaluated     prometheus.Counter
	RuleMatches        prometheus.Counter
	RuleFailures       prometheus.Counter
	AlertsCreated      *prometheus.CounterVec
	DuplicatesFiltered prometheus.Counter
	Deliveries         *prometheus.CounterVec
	AlertsExpired      prometheus.Counter
	AutoGenerationRuns prometheus.Counter
	ProcessingDuration prometheus.Histogram
}

// NewMetrics creates the collectors and registers them on the given registry.
// Pass prometheus.NewRegistry() in tests to avoid global registration clashes.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RulesEvaluated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agroalert",
			Name:      "rules_evaluated_total",
			Help:      "Rule evaluations performed across all users.",
		}),
		RuleMatches: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agroalert",
			Name:      "rule_matches_total",
			Help:      "Rule evaluations that matched their context.",
		}),
		RuleFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agroalert",
			Name:      "rule_failures_total",
			Help:      "Rules skipped due to malformed conditions or render failures.",
		}),
		AlertsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agroalert",
			Name:      "alerts_created_total",
			Help:      "Alerts persisted, by alert type.",
		}, []string{"type"}),
		DuplicatesFiltered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agroalert",
			Name:      "duplicates_filtered_total",
			Help:      "Candidate alerts suppressed by the deduplication filter.",
		}),
		Deliveries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agroalert",
			Name:      "deliveries_total",
			Help:      "Delivery attempts, by channel and outcome.",
		}, []string{"channel", "outcome"}),
		AlertsExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agroalert",
			Name:      "alerts_expired_total",
			Help:      "Alerts forced to expired by the sweep or retry policy.",
		}),
		AutoGenerationRuns: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "agroalert",
			Name:      "auto_generation_runs_total",
			Help:      "Scheduled auto-generation passes executed.",
		}),
		ProcessingDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "agroalert",
			Name:      "processing_duration_seconds",
			Help:      "Duration of full processAllAlerts batches.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
	if reg != nil {
		reg.MustRegister(
			m.RulesEvaluated, m.RuleMatches, m.RuleFailures, m.AlertsCreated,
			m.DuplicatesFiltered, m.Deliveries, m.AlertsExpired,
			m.AutoGenerationRuns, m.ProcessingDuration,
		)
	}
	return m
}

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"mend/internal/healing"
)

var (
	// AttemptsTotal tracks individual strategy invocations.
	AttemptsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mend_healing_strategy_attempts_total",
			Help: "Total number of strategy invocations",
		},
		[]string{"failure_type", "strategy", "outcome"},
	)

	// HealsTotal tracks completed Heal calls.
	HealsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mend_healing_heals_total",
			Help: "Total number of completed heal calls",
		},
		[]string{"failure_type", "strategy", "outcome"},
	)

	// HealDuration tracks wall-clock duration of Heal calls.
	HealDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "mend_healing_heal_duration_seconds",
			Help:    "Wall-clock duration of heal calls in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"failure_type"},
	)
)

// Sink feeds coordinator observations into the Prometheus collectors. It
// implements healing.MetricsSink.
type Sink struct{}

var _ healing.MetricsSink = Sink{}

// ObserveAttempt records one strategy invocation.
func (Sink) ObserveAttempt(failureType healing.FailureType, strategy string, success bool) {
	AttemptsTotal.WithLabelValues(string(failureType), labelStrategy(strategy), labelOutcome(success)).Inc()
}

// ObserveHeal records one completed Heal call.
func (Sink) ObserveHeal(failureType healing.FailureType, strategy string, success bool, duration time.Duration) {
	HealsTotal.WithLabelValues(string(failureType), labelStrategy(strategy), labelOutcome(success)).Inc()
	HealDuration.WithLabelValues(string(failureType)).Observe(duration.Seconds())
}

func labelStrategy(strategy string) string {
	if strategy == "" {
		return "none"
	}
	return strategy
}

func labelOutcome(success bool) string {
	if success {
		return "healed"
	}
	return "failed"
}

// RegisterStats exposes the coordinator's aggregate counters as gauges on
// the given registerer.
func RegisterStats(r prometheus.Registerer, stats func() healing.Stats) error {
	collectors := []prometheus.Collector{
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "mend_healing_attempts",
			Help: "Total heal calls recorded by the statistics tracker",
		}, func() float64 { return float64(stats().TotalAttempts) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "mend_healing_successful_attempts",
			Help: "Successful heal calls recorded by the statistics tracker",
		}, func() float64 { return float64(stats().SuccessfulAttempts) }),
		prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "mend_healing_success_rate",
			Help: "Fraction of heal calls that healed",
		}, func() float64 { return stats().SuccessRate }),
	}
	for _, collector := range collectors {
		if err := r.Register(collector); err != nil {
			return err
		}
	}
	return nil
}

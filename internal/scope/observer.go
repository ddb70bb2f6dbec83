package scope

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome is how a unit of work ended.
type Outcome string

const (
	OutcomeOK    Outcome = "ok"
	OutcomeError Outcome = "error"
	OutcomePanic Outcome = "panic"
)

func outcomeOf(err error) Outcome {
	if err != nil {
		return OutcomeError
	}

	return OutcomeOK
}

// Observer is notified when scopes open and close.
// Implementations must be safe for concurrent use and must not panic.
type Observer interface {
	ScopeOpened(id string)
	ScopeClosed(id string, duration time.Duration, outcome Outcome, cleared int)
}

type nopObserver struct{}

func (nopObserver) ScopeOpened(string) {}

func (nopObserver) ScopeClosed(string, time.Duration, Outcome, int) {}

// PrometheusObserver records scope lifecycle metrics.
type PrometheusObserver struct {
	opened   prometheus.Counter
	closed   *prometheus.CounterVec
	active   prometheus.Gauge
	duration *prometheus.HistogramVec
	cleared  prometheus.Counter
}

// NewPrometheusObserver registers scope metrics with reg.
// Use prometheus.DefaultRegisterer to expose them on /-/metrics.
func NewPrometheusObserver(reg prometheus.Registerer) *PrometheusObserver {
	factory := promauto.With(reg)

	return &PrometheusObserver{
		opened: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "scope",
			Name:      "units_opened_total",
			Help:      "Units of work whose scope was opened.",
		}),
		closed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "scope",
			Name:      "units_closed_total",
			Help:      "Units of work whose scope was torn down, by outcome.",
		}, []string{"outcome"}),
		active: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "scope",
			Name:      "units_active",
			Help:      "Scopes currently open.",
		}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "scope",
			Name:      "unit_duration_seconds",
			Help:      "Time between scope open and teardown.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"outcome"}),
		cleared: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "scope",
			Name:      "entries_cleared_total",
			Help:      "Registry entries dropped at teardown.",
		}),
	}
}

// ScopeOpened implements Observer.
func (o *PrometheusObserver) ScopeOpened(string) {
	o.opened.Inc()
	o.active.Inc()
}

// ScopeClosed implements Observer.
func (o *PrometheusObserver) ScopeClosed(_ string, duration time.Duration, outcome Outcome, cleared int) {
	o.active.Dec()
	o.closed.WithLabelValues(string(outcome)).Inc()
	o.duration.WithLabelValues(string(outcome)).Observe(duration.Seconds())
	o.cleared.Add(float64(cleared))
}

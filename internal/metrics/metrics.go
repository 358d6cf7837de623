package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"ORBSentinel/internal/model"
)

// Cycle results that are not outcome kinds.
const (
	ResultError   = "error"
	ResultSkipped = "skipped"
)

// Metrics holds the Prometheus collectors for the scheduler.
type Metrics struct {
	Registry *prometheus.Registry

	Cycles          *prometheus.CounterVec
	CycleDuration   prometheus.Histogram
	Signals         *prometheus.CounterVec
	FetchErrors     prometheus.Counter
	NotifyFailures  prometheus.Counter
	LastCycle       prometheus.Gauge
	OpeningStrength prometheus.Gauge
}

// New creates a Metrics instance on its own registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		Cycles: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orb_cycles_total",
				Help: "Evaluation cycles by result",
			},
			[]string{"result"},
		),
		CycleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "orb_cycle_duration_seconds",
				Help:    "Duration of one fetch and evaluate cycle",
				Buckets: []float64{0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
			},
		),
		Signals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "orb_signals_total",
				Help: "Trade signals notified, by direction",
			},
			[]string{"direction"},
		),
		FetchErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orb_fetch_errors_total",
			Help: "Cycles whose market data fetch failed",
		}),
		NotifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "orb_notify_failures_total",
			Help: "Notifications that could not be delivered",
		}),
		LastCycle: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "orb_last_cycle_timestamp_seconds",
			Help: "Unix time of the last completed cycle",
		}),
		OpeningStrength: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "orb_opening_strength",
			Help: "Position of the opening range close within the range",
		}),
	}
	m.Registry.MustRegister(
		m.Cycles, m.CycleDuration, m.Signals, m.FetchErrors,
		m.NotifyFailures, m.LastCycle, m.OpeningStrength,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// ObserveCycle records one finished cycle. result is an outcome kind or one
// of ResultError and ResultSkipped.
func (m *Metrics) ObserveCycle(result string, took time.Duration, at time.Time) {
	m.Cycles.WithLabelValues(strings.ToLower(result)).Inc()
	if result == ResultSkipped {
		return
	}
	m.CycleDuration.Observe(took.Seconds())
	m.LastCycle.Set(float64(at.Unix()))
}

// ObserveEvaluation records gauges derived from an evaluation.
func (m *Metrics) ObserveEvaluation(ev *model.Evaluation) {
	m.OpeningStrength.Set(ev.Range.Strength)
}

// SignalNotified counts a delivered trade signal.
func (m *Metrics) SignalNotified(d model.Direction) {
	m.Signals.WithLabelValues(string(d)).Inc()
}

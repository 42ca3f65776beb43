// Package metrics provides Prometheus instrumentation for scans.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// Namespace is the namespace for all scan metrics.
	Namespace = "goleakscan"
)

// Metrics holds the scan collectors. A nil *Metrics records nothing.
type Metrics struct {
	SearchCallsTotal       *prometheus.CounterVec
	SessionsTotal          *prometheus.CounterVec
	SessionsRunning        prometheus.Gauge
	SessionDurationSeconds *prometheus.HistogramVec
	LedgerRowsAddedTotal   prometheus.Counter
	KeywordsLearnedTotal   prometheus.Counter
}

// New creates and registers the collectors on reg; nil means the default
// registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		SearchCallsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "search_calls_total",
			Help:      "External search calls by outcome (ok, error, quota)",
		}, []string{"outcome"}),
		SessionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "sessions_total",
			Help:      "Finished scan sessions by terminal status",
		}, []string{"status"}),
		SessionsRunning: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: Namespace,
			Name:      "sessions_running",
			Help:      "Scan sessions currently running",
		}),
		SessionDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: Namespace,
			Name:      "session_duration_seconds",
			Help:      "Wall time of scan sessions",
			Buckets:   []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		}, []string{"status"}),
		LedgerRowsAddedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "ledger_rows_added_total",
			Help:      "Rows appended to subject ledgers",
		}),
		KeywordsLearnedTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: Namespace,
			Name:      "keywords_learned_total",
			Help:      "Distinct phrases applied to keyword registries",
		}),
	}
}

// SearchCall counts one external search call.
func (m *Metrics) SearchCall(outcome string) {
	if m == nil {
		return
	}
	m.SearchCallsTotal.WithLabelValues(outcome).Inc()
}

// KeywordsLearned counts phrases applied by one learning pass.
func (m *Metrics) KeywordsLearned(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.KeywordsLearnedTotal.Add(float64(n))
}

// RowsAdded counts rows merged into a ledger.
func (m *Metrics) RowsAdded(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.LedgerRowsAddedTotal.Add(float64(n))
}

// SessionStarted marks a session as running.
func (m *Metrics) SessionStarted() {
	if m == nil {
		return
	}
	m.SessionsRunning.Inc()
}

// SessionFinished records a terminal session.
func (m *Metrics) SessionFinished(status string, d time.Duration) {
	if m == nil {
		return
	}
	m.SessionsRunning.Dec()
	m.SessionsTotal.WithLabelValues(status).Inc()
	m.SessionDurationSeconds.WithLabelValues(status).Observe(d.Seconds())
}

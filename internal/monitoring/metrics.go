package monitoring

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rotisserie/eris"
)

const metricsNamespace = "retailsim"

// Outcome label values for enrich calls.
const (
	OutcomeSuccess = "success"
	OutcomeError   = "error"
)

// Metrics holds the Prometheus instruments for one CLI invocation. Each
// instance owns its registry so tests and commands never share state.
type Metrics struct {
	registry *prometheus.Registry

	// EnrichTotal counts treatment applications. Labels: function, outcome.
	EnrichTotal *prometheus.CounterVec
	// RowsTotal counts observation rows run through a treatment. Labels: function.
	RowsTotal *prometheus.CounterVec
	// TreatedTotal counts distinct treated products. Labels: function.
	TreatedTotal *prometheus.CounterVec
	// EnrichDuration measures treatment wall time. Labels: function.
	EnrichDuration *prometheus.HistogramVec
	// Jobs reports job counts from the last collected snapshot. Labels: status.
	Jobs *prometheus.GaugeVec
}

// NewMetrics creates and registers all instruments on a fresh registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		EnrichTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "enrich",
			Name:      "calls_total",
			Help:      "Treatment applications by function and outcome",
		}, []string{"function", "outcome"}),
		RowsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "enrich",
			Name:      "rows_total",
			Help:      "Observation rows processed by function",
		}, []string{"function"}),
		TreatedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "enrich",
			Name:      "treated_products_total",
			Help:      "Distinct treated products by function",
		}, []string{"function"}),
		EnrichDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: metricsNamespace,
			Subsystem: "enrich",
			Name:      "duration_seconds",
			Help:      "Treatment application duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 5, 30, 120},
		}, []string{"function"}),
		Jobs: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "jobs",
			Help:      "Jobs by status",
		}, []string{"status"}),
	}
	m.registry.MustRegister(m.EnrichTotal, m.RowsTotal, m.TreatedTotal, m.EnrichDuration, m.Jobs)
	return m
}

// Registry exposes the underlying registry as a gatherer.
func (m *Metrics) Registry() *prometheus.Registry { return m.registry }

// ObserveEnrich records one treatment application. rows and treated are
// only counted on success.
func (m *Metrics) ObserveEnrich(function string, rows, treated int, elapsed time.Duration, err error) {
	if function == "" {
		function = "unknown"
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeError
	}
	m.EnrichTotal.WithLabelValues(function, outcome).Inc()
	m.EnrichDuration.WithLabelValues(function).Observe(elapsed.Seconds())
	if err != nil {
		return
	}
	m.RowsTotal.WithLabelValues(function).Add(float64(rows))
	m.TreatedTotal.WithLabelValues(function).Add(float64(treated))
}

// SetJobCounts publishes a snapshot's per-status counts.
func (m *Metrics) SetJobCounts(snap *JobSnapshot) {
	for status, n := range snap.Counts {
		m.Jobs.WithLabelValues(string(status)).Set(float64(n))
	}
}

// WriteTextfile writes every metric in the Prometheus text format for the
// node exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return eris.Wrapf(err, "monitoring: write textfile %s", path)
	}
	return nil
}

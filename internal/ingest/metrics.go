package ingest

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds Prometheus metrics for document processing.
//
// Metrics:
//   - iw_parser_documents_total{parser,result} - documents by parser and result (success, failure, unclassified)
//   - iw_parser_warnings_total{parser} - diagnostics attached to successful outcomes
//   - iw_parser_parse_duration_seconds{parser} - histogram of parse times
//   - iw_parser_store_errors_total - outcomes that could not be persisted
type Metrics struct {
	Documents     *prometheus.CounterVec
	Warnings      *prometheus.CounterVec
	ParseDuration *prometheus.HistogramVec
	StoreErrors   prometheus.Counter
}

// NewMetrics creates the metrics and registers them with reg. Pass
// prometheus.DefaultRegisterer for the process wide /metrics endpoint.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Documents: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "iw_parser_documents_total",
				Help: "Total number of screens processed",
			},
			[]string{"parser", "result"},
		),
		Warnings: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "iw_parser_warnings_total",
				Help: "Total number of diagnostics on successful outcomes",
			},
			[]string{"parser"},
		),
		ParseDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "iw_parser_parse_duration_seconds",
				Help:    "Time spent classifying and parsing one screen",
				Buckets: prometheus.ExponentialBuckets(0.0005, 2, 14),
			},
			[]string{"parser"},
		),
		StoreErrors: f.NewCounter(prometheus.CounterOpts{
			Name: "iw_parser_store_errors_total",
			Help: "Total number of outcomes that failed to persist",
		}),
	}
}

func (m *Metrics) observe(parser, result string, warnings int, took time.Duration) {
	if m == nil {
		return
	}
	if parser == "" {
		parser = "none"
	}
	m.Documents.WithLabelValues(parser, result).Inc()
	m.ParseDuration.WithLabelValues(parser).Observe(took.Seconds())
	if warnings > 0 {
		m.Warnings.WithLabelValues(parser).Add(float64(warnings))
	}
}

func (m *Metrics) storeFailed() {
	if m != nil {
		m.StoreErrors.Inc()
	}
}

package metrics

import (
	"time"

	"github.com/hupe1980/ragfile"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ragfile"

// PrometheusCollector implements ragfile.MetricsCollector on client_golang.
type PrometheusCollector struct {
	SectionsTotal    *prometheus.CounterVec
	SectionRecords   *prometheus.CounterVec
	SectionBytes     *prometheus.CounterVec
	FinalizeTotal    *prometheus.CounterVec
	FinalizeBytes    prometheus.Counter
	FinalizeDuration prometheus.Histogram
	SearchTotal      *prometheus.CounterVec
	SearchResults    *prometheus.CounterVec
	SearchScanned    *prometheus.CounterVec
	SearchDuration   *prometheus.HistogramVec
}

// NewPrometheusCollector registers the ragfile series with reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewPrometheusCollector(reg prometheus.Registerer) *PrometheusCollector {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)

	return &PrometheusCollector{
		SectionsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "sections_total",
			Help:      "Section write attempts",
		}, []string{"section", "status"}),
		SectionRecords: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "section_records_total",
			Help:      "Records written per section",
		}, []string{"section"}),
		SectionBytes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "section_bytes_total",
			Help:      "Padded record bytes written per section",
		}, []string{"section"}),
		FinalizeTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "finalize_total",
			Help:      "Container finalize attempts",
		}, []string{"status"}),
		FinalizeBytes: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "finalize_bytes_total",
			Help:      "Bytes of finalized container images",
		}),
		FinalizeDuration: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "finalize_duration_seconds",
			Help:      "Time to build and persist a container",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		}),
		SearchTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_total",
			Help:      "Section lookups",
		}, []string{"section", "status"}),
		SearchResults: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_results_total",
			Help:      "Records returned by lookups",
		}, []string{"section"}),
		SearchScanned: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "search_scanned_bytes_total",
			Help:      "Section bytes visited by lookups",
		}, []string{"section"}),
		SearchDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "search_duration_seconds",
			Help:      "Section lookup latency",
			Buckets:   []float64{0.00001, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1},
		}, []string{"section"}),
	}
}

func status(err error) string {
	if err != nil {
		return "error"
	}
	return "success"
}

// RecordSection implements ragfile.MetricsCollector.
func (c *PrometheusCollector) RecordSection(name string, records, size int, err error) {
	c.SectionsTotal.WithLabelValues(name, status(err)).Inc()
	if err != nil {
		return
	}
	c.SectionRecords.WithLabelValues(name).Add(float64(records))
	c.SectionBytes.WithLabelValues(name).Add(float64(size))
}

// RecordFinalize implements ragfile.MetricsCollector.
func (c *PrometheusCollector) RecordFinalize(size int, duration time.Duration, err error) {
	c.FinalizeTotal.WithLabelValues(status(err)).Inc()
	c.FinalizeDuration.Observe(duration.Seconds())
	if err == nil {
		c.FinalizeBytes.Add(float64(size))
	}
}

// RecordSearch implements ragfile.MetricsCollector.
func (c *PrometheusCollector) RecordSearch(section string, results int, scanned uint64, duration time.Duration, err error) {
	c.SearchTotal.WithLabelValues(section, status(err)).Inc()
	c.SearchDuration.WithLabelValues(section).Observe(duration.Seconds())
	if err != nil {
		return
	}
	c.SearchResults.WithLabelValues(section).Add(float64(results))
	c.SearchScanned.WithLabelValues(section).Add(float64(scanned))
}

var _ ragfile.MetricsCollector = (*PrometheusCollector)(nil)

// Package metrics exports ragfile writer and reader activity to Prometheus.
//
//	reg := prometheus.NewRegistry()
//	mc := metrics.NewPrometheusCollector(reg)
//	w := ragfile.NewWriter(path, ragfile.WithMetricsCollector(mc))
//
// Serve reg with promhttp.HandlerFor to expose the series.
package metrics

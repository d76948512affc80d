package ragfile

import (
	"sync/atomic"
	"time"
)

// MetricsCollector defines an interface for collecting operational metrics.
// Implement this interface to integrate with monitoring systems; the metrics
// package provides a Prometheus implementation.
type MetricsCollector interface {
	// RecordSection is called after each section write attempt.
	RecordSection(name string, records, size int, err error)

	// RecordFinalize is called after each finalize attempt with the size of
	// the container image.
	RecordFinalize(size int, duration time.Duration, err error)

	// RecordSearch is called after each section lookup. scanned is the number
	// of section bytes visited.
	RecordSearch(section string, results int, scanned uint64, duration time.Duration, err error)
}

// NoopMetricsCollector is a no-op implementation of MetricsCollector.
type NoopMetricsCollector struct{}

func (NoopMetricsCollector) RecordSection(string, int, int, error) {}
func (NoopMetricsCollector) RecordFinalize(int, time.Duration, error) {}
func (NoopMetricsCollector) RecordSearch(string, int, uint64, time.Duration, error) {}

// BasicMetricsCollector provides simple in-memory metrics collection.
type BasicMetricsCollector struct {
	SectionCount   atomic.Int64
	SectionRecords atomic.Int64
	SectionErrors  atomic.Int64
	FinalizeCount  atomic.Int64
	FinalizeErrors atomic.Int64
	FinalizeBytes  atomic.Int64
	SearchCount    atomic.Int64
	SearchErrors   atomic.Int64
	SearchResults  atomic.Int64
	ScannedBytes   atomic.Int64
	SearchNanos    atomic.Int64
}

// RecordSection implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSection(_ string, records, _ int, err error) {
	b.SectionCount.Add(1)
	if err != nil {
		b.SectionErrors.Add(1)
		return
	}
	b.SectionRecords.Add(int64(records))
}

// RecordFinalize implements MetricsCollector.
func (b *BasicMetricsCollector) RecordFinalize(size int, _ time.Duration, err error) {
	b.FinalizeCount.Add(1)
	if err != nil {
		b.FinalizeErrors.Add(1)
		return
	}
	b.FinalizeBytes.Add(int64(size))
}

// RecordSearch implements MetricsCollector.
func (b *BasicMetricsCollector) RecordSearch(_ string, results int, scanned uint64, duration time.Duration, err error) {
	b.SearchCount.Add(1)
	b.SearchNanos.Add(duration.Nanoseconds())
	if err != nil {
		b.SearchErrors.Add(1)
		return
	}
	b.SearchResults.Add(int64(results))
	b.ScannedBytes.Add(int64(scanned))
}

// GetStats returns a snapshot of current metrics.
func (b *BasicMetricsCollector) GetStats() BasicMetricsStats {
	s := BasicMetricsStats{
		SectionCount:   b.SectionCount.Load(),
		SectionRecords: b.SectionRecords.Load(),
		SectionErrors:  b.SectionErrors.Load(),
		FinalizeCount:  b.FinalizeCount.Load(),
		FinalizeErrors: b.FinalizeErrors.Load(),
		FinalizeBytes:  b.FinalizeBytes.Load(),
		SearchCount:    b.SearchCount.Load(),
		SearchErrors:   b.SearchErrors.Load(),
		SearchResults:  b.SearchResults.Load(),
		ScannedBytes:   b.ScannedBytes.Load(),
	}
	if s.SearchCount > 0 {
		s.SearchAvgNanos = b.SearchNanos.Load() / s.SearchCount
	}
	return s
}

// BasicMetricsStats is a snapshot of BasicMetricsCollector state.
type BasicMetricsStats struct {
	SectionCount   int64
	SectionRecords int64
	SectionErrors  int64
	FinalizeCount  int64
	FinalizeErrors int64
	FinalizeBytes  int64
	SearchCount    int64
	SearchErrors   int64
	SearchResults  int64
	ScannedBytes   int64
	SearchAvgNanos int64
}

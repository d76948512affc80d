package bench

import (
	"fmt"
	"slices"
	"time"
)

// LatencyStats summarizes a set of latency samples.
type LatencyStats struct {
	P50 time.Duration
	P95 time.Duration
	P99 time.Duration
	Max time.Duration
	Avg time.Duration
	N   int
}

// Percentile returns the p-th percentile (0-100) of sorted samples.
func Percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	if p <= 0 {
		return sorted[0]
	}
	if p >= 100 {
		return sorted[len(sorted)-1]
	}
	return sorted[int(float64(len(sorted)-1)*p/100)]
}

// NewLatencyStats computes percentiles over samples. samples is sorted in
// place.
func NewLatencyStats(samples []time.Duration) LatencyStats {
	if len(samples) == 0 {
		return LatencyStats{}
	}
	slices.Sort(samples)

	var sum time.Duration
	for _, d := range samples {
		sum += d
	}
	return LatencyStats{
		P50: Percentile(samples, 50),
		P95: Percentile(samples, 95),
		P99: Percentile(samples, 99),
		Max: samples[len(samples)-1],
		Avg: sum / time.Duration(len(samples)),
		N:   len(samples),
	}
}

func (s LatencyStats) String() string {
	return fmt.Sprintf("n=%d avg=%v p50=%v p95=%v p99=%v max=%v", s.N, s.Avg, s.P50, s.P95, s.P99, s.Max)
}

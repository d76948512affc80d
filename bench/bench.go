package bench

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"github.com/hupe1980/ragfile"
	"github.com/hupe1980/ragfile/testutil"
	"golang.org/x/sync/errgroup"
)

// ErrMismatch is returned when the container and the in-memory filter
// disagree.
var ErrMismatch = errors.New("bench: search results differ")

// Config controls a benchmark run.
type Config struct {
	NumKeywords   int
	KeywordLength int
	ContentLength int
	Alignment     int
	// Readers is the number of goroutines sharing one Reader in the
	// concurrent phase. Zero skips that phase.
	Readers int
	// Iterations is the number of searches per reader.
	Iterations int
	Seed       int64
	// Path is where the container is written. Empty uses a temporary
	// directory that is removed afterwards.
	Path string
}

// DefaultConfig mirrors the command-line defaults.
func DefaultConfig() Config {
	return Config{
		NumKeywords:   10000,
		KeywordLength: 8,
		ContentLength: 64,
		Alignment:     8,
		Readers:       4,
		Iterations:    100,
		Seed:          time.Now().UnixNano(),
	}
}

// Report holds the results of a run.
type Report struct {
	Query          string
	Matches        int
	MemoryDuration time.Duration
	FileDuration   time.Duration
	WriteDuration  time.Duration
	FileSize       int64
	Concurrent     LatencyStats
	// Throughput is concurrent searches per second.
	Throughput float64
}

// Speedup is the in-memory time divided by the container search time.
func (r *Report) Speedup() float64 {
	if r.FileDuration <= 0 {
		return 0
	}
	return float64(r.MemoryDuration) / float64(r.FileDuration)
}

// Fprint writes a human-readable summary to w.
func (r *Report) Fprint(w io.Writer) {
	fmt.Fprintf(w, "Searching for keyword: %s\n", r.Query)
	fmt.Fprintf(w, "In-memory search found %d entries in %v\n", r.Matches, r.MemoryDuration)
	fmt.Fprintf(w, "Container written (%d bytes) in %v\n", r.FileSize, r.WriteDuration)
	fmt.Fprintf(w, "Container search found %d entries in %v\n", r.Matches, r.FileDuration)
	fmt.Fprintf(w, "Speedup: in-memory / container = %.2fx\n", r.Speedup())
	if r.Concurrent.N > 0 {
		fmt.Fprintf(w, "Concurrent: %s (%.0f searches/s)\n", r.Concurrent, r.Throughput)
	}
}

// Run executes the benchmark described by cfg. opts configure the writer
// and reader.
func Run(ctx context.Context, cfg Config, opts ...ragfile.Option) (*Report, error) {
	if cfg.NumKeywords <= 0 || cfg.KeywordLength <= 0 || cfg.ContentLength < 0 {
		return nil, fmt.Errorf("bench: invalid sizes %d/%d/%d", cfg.NumKeywords, cfg.KeywordLength, cfg.ContentLength)
	}

	path := cfg.Path
	if path == "" {
		dir, err := os.MkdirTemp("", "ragfile-bench-*")
		if err != nil {
			return nil, err
		}
		defer os.RemoveAll(dir)
		path = filepath.Join(dir, "benchmark.ragfile")
	}

	rng := testutil.NewRNG(cfg.Seed)
	records := rng.KeywordRecords(cfg.NumKeywords, cfg.KeywordLength, cfg.ContentLength)
	query := records[rng.Intn(len(records))].Keyword

	report := &Report{Query: query}

	start := time.Now()
	want := testutil.FilterKeyword(records, query)
	report.MemoryDuration = time.Since(start)
	report.Matches = len(want)

	start = time.Now()
	w := ragfile.NewWriter(path, opts...)
	if err := w.WriteHeader(ragfile.DefaultVersionMajor, ragfile.DefaultVersionMinor, ragfile.DefaultVersionPatch); err != nil {
		return nil, err
	}
	if err := w.WriteKeywordSection(records, cfg.Alignment); err != nil {
		return nil, err
	}
	if err := w.Finalize(); err != nil {
		return nil, err
	}
	report.WriteDuration = time.Since(start)
	report.FileSize = int64(len(w.Bytes()))

	r, err := ragfile.Open(path, opts...)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	start = time.Now()
	got, err := r.SearchKeyword(ctx, query)
	report.FileDuration = time.Since(start)
	if err != nil {
		return nil, err
	}
	if !sameRecords(want, got) {
		return report, fmt.Errorf("%w: memory found %d, container found %d", ErrMismatch, len(want), len(got))
	}

	if cfg.Readers > 0 && cfg.Iterations > 0 {
		if err := runConcurrent(ctx, r, records, cfg, report); err != nil {
			return report, err
		}
	}
	return report, nil
}

// runConcurrent issues searches for random existing keywords from
// cfg.Readers goroutines against one shared Reader.
func runConcurrent(ctx context.Context, r *ragfile.Reader, records []ragfile.KeywordRecord, cfg Config, report *Report) error {
	var (
		mu      sync.Mutex
		samples = make([]time.Duration, 0, cfg.Readers*cfg.Iterations)
	)

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	for i := range cfg.Readers {
		rng := testutil.NewRNG(cfg.Seed + int64(i) + 1)
		g.Go(func() error {
			local := make([]time.Duration, 0, cfg.Iterations)
			for range cfg.Iterations {
				q := records[rng.Intn(len(records))].Keyword
				t0 := time.Now()
				got, err := r.SearchKeyword(gctx, q)
				local = append(local, time.Since(t0))
				if err != nil {
					return err
				}
				if !sameRecords(testutil.FilterKeyword(records, q), got) {
					return fmt.Errorf("%w: keyword %q", ErrMismatch, q)
				}
			}
			mu.Lock()
			samples = append(samples, local...)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	elapsed := time.Since(start)

	report.Concurrent = NewLatencyStats(samples)
	if elapsed > 0 {
		report.Throughput = float64(len(samples)) / elapsed.Seconds()
	}
	return nil
}

func sameRecords(a, b []ragfile.KeywordRecord) bool {
	if len(a) == 0 && len(b) == 0 {
		return true
	}
	return reflect.DeepEqual(a, b)
}

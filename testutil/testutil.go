package testutil

import (
	"cmp"
	"math/rand"
	"slices"
	"sync"

	"github.com/hupe1980/ragfile"
	"github.com/hupe1980/ragfile/distance"
)

const alphaNum = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// RNG struct encapsulates the random number generator and seed.
// It is thread-safe.
type RNG struct {
	rand *rand.Rand
	seed int64
	mu   sync.Mutex
}

// NewRNG creates a new RNG instance with the specified seed.
func NewRNG(seed int64) *RNG {
	return &RNG{
		rand: rand.New(rand.NewSource(seed)),
		seed: seed,
	}
}

// Reset resets the RNG to its initial seed.
func (r *RNG) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.rand.Seed(r.seed)
}

// Seed returns the initial seed.
func (r *RNG) Seed() int64 {
	return r.seed
}

// Intn returns a non-negative pseudo-random number in [0,n).
func (r *RNG) Intn(n int) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Intn(n)
}

// Float32 returns, as a float32, a pseudo-random number in [0.0,1.0).
func (r *RNG) Float32() float32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.rand.Float32()
}

// String returns a random ASCII letters-and-digits string of length n.
func (r *RNG) String(n int) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.stringLocked(n)
}

func (r *RNG) stringLocked(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = alphaNum[r.rand.Intn(len(alphaNum))]
	}
	return string(b)
}

// FillUniform fills dst with random values in range [0, 1).
// Locks only once per call (preferred over calling Float32 in a loop).
func (r *RNG) FillUniform(dst []float32) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := range dst {
		dst[i] = r.rand.Float32()
	}
}

// UniformRangeVectors generates random vectors with values in range [-1, 1).
// Uses a single backing array for efficiency.
func (r *RNG) UniformRangeVectors(num int, dimensions int) [][]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float32, num*dimensions)
	vectors := make([][]float32, num)

	for i := range num {
		vec := data[i*dimensions : (i+1)*dimensions]
		for j := range vec {
			vec[j] = r.rand.Float32()*2 - 1
		}
		vectors[i] = vec
	}

	return vectors
}

// UnitVectors generates L2-normalized random vectors (on the hypersphere).
// Uses Gaussian distribution for uniform distribution on the sphere.
func (r *RNG) UnitVectors(num int, dimensions int) [][]float32 {
	r.mu.Lock()
	defer r.mu.Unlock()

	data := make([]float32, num*dimensions)
	vectors := make([][]float32, num)

	for i := range num {
		vec := data[i*dimensions : (i+1)*dimensions]
		for j := range vec {
			vec[j] = float32(r.rand.NormFloat64())
		}
		if !distance.NormalizeL2InPlace(vec) {
			vec[0] = 1
		}
		vectors[i] = vec
	}

	return vectors
}

// KeywordRecords generates num records with random keywords of length
// keywordLen and random content of length contentLen.
func (r *RNG) KeywordRecords(num, keywordLen, contentLen int) []ragfile.KeywordRecord {
	r.mu.Lock()
	defer r.mu.Unlock()

	records := make([]ragfile.KeywordRecord, num)
	for i := range records {
		records[i] = ragfile.KeywordRecord{
			Keyword: r.stringLocked(keywordLen),
			Content: r.stringLocked(contentLen),
		}
	}
	return records
}

// EmbeddingRecords pairs each content string with a random unit vector.
func (r *RNG) EmbeddingRecords(contents []string, dimensions int) []ragfile.EmbeddingRecord {
	vectors := r.UnitVectors(len(contents), dimensions)
	records := make([]ragfile.EmbeddingRecord, len(contents))
	for i, c := range contents {
		records[i] = ragfile.EmbeddingRecord{Vector: vectors[i], Content: c}
	}
	return records
}

// FilterKeyword returns the records whose keyword equals query, in order.
// It is the in-memory ground truth for Reader.SearchKeyword.
func FilterKeyword(records []ragfile.KeywordRecord, query string) []ragfile.KeywordRecord {
	var out []ragfile.KeywordRecord
	for _, rec := range records {
		if rec.Keyword == query {
			out = append(out, rec)
		}
	}
	return out
}

// SearchResult is an exact nearest-neighbor result.
type SearchResult struct {
	Index    int
	Distance float32
}

// BruteForceSearch returns the k nearest records to query under metric,
// ties broken by record order. It is the ground truth for
// Reader.SearchVector.
func BruteForceSearch(records []ragfile.EmbeddingRecord, query []float32, k int, metric distance.Metric) ([]SearchResult, error) {
	dist, err := distance.Provider(metric)
	if err != nil {
		return nil, err
	}

	results := make([]SearchResult, len(records))
	for i, rec := range records {
		results[i] = SearchResult{Index: i, Distance: dist(query, rec.Vector)}
	}

	slices.SortStableFunc(results, func(a, b SearchResult) int {
		return cmp.Compare(a.Distance, b.Distance)
	})

	if len(results) > k {
		results = results[:k]
	}
	return results, nil
}

// Package testutil provides deterministic data generation and ground-truth
// lookups for tests and benchmarks.
//
// # Random Data
//
//	rng := testutil.NewRNG(seed)
//	records := rng.KeywordRecords(10000, 8, 64)
//	vectors := rng.UnitVectors(100, 384)
//
// # Ground Truth
//
//	want := testutil.FilterKeyword(records, "AI")
//	exact, err := testutil.BruteForceSearch(embeddings, query, k, distance.MetricL2)
package testutil

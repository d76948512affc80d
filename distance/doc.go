// Package distance provides the vector distance functions used by brute-force
// search over an embedding section.
//
// # Supported Metrics
//
//   - MetricL2: Squared Euclidean distance (default)
//   - MetricCosine: Cosine distance (1 - cosine similarity)
//   - MetricDot: Negated dot product, so that smaller is always closer
//
// # Usage
//
//	d := distance.SquaredL2(a, b)
//	sim := distance.Dot(a, b)
//	fn, _ := distance.Provider(distance.MetricCosine)
//	closeness := fn(a, b)
package distance

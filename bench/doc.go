// Package bench compares keyword lookup in a ragfile container with an
// in-memory equality filter over the same records.
//
// Run generates random keyword/content pairs, writes them to a container,
// checks that both lookups agree and measures single-shot and concurrent
// search latency.
package bench

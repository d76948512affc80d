package cache

import "context"

// BlockKey identifies one fixed-size block of a named blob.
type BlockKey struct {
	// Path is the blob name within its store.
	Path string
	// Block is the block index (byte offset / block size).
	Block int64
}

// BlockCache is a byte-oriented cache for immutable blocks.
// Returned slices must be treated as read-only.
type BlockCache interface {
	// Get returns a cached block. ok=false if missing.
	Get(ctx context.Context, key BlockKey) (b []byte, ok bool)
	// Set caches a block. The cache retains b; callers must not modify it.
	Set(ctx context.Context, key BlockKey, b []byte)
	// Invalidate removes every block of the named blob.
	Invalidate(path string)
	// Stats returns cache statistics.
	Stats() Stats
}

// Stats reports cache effectiveness.
type Stats struct {
	Hits      int64
	Misses    int64
	Evictions int64
	Bytes     int64
	Entries   int
}

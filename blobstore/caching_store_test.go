package blobstore

import (
	"context"
	"io"
	"sync"
	"testing"

	"github.com/hupe1980/ragfile/internal/cache"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingStore wraps MemoryStore and counts backend reads.
type countingStore struct {
	*MemoryStore
	mu        sync.Mutex
	reads     int
	readBytes int
}

func (s *countingStore) Open(ctx context.Context, name string) (Blob, error) {
	b, err := s.MemoryStore.Open(ctx, name)
	if err != nil {
		return nil, err
	}
	return &countingBlob{Blob: b, store: s}, nil
}

type countingBlob struct {
	Blob
	store *countingStore
}

func (b *countingBlob) ReadAt(ctx context.Context, p []byte, off int64) (int, error) {
	n, err := b.Blob.ReadAt(ctx, p, off)
	b.store.mu.Lock()
	b.store.reads++
	b.store.readBytes += n
	b.store.mu.Unlock()
	return n, err
}

func newCountingStore(t *testing.T, name string, data []byte) *countingStore {
	t.Helper()
	s := &countingStore{MemoryStore: NewMemoryStore()}
	require.NoError(t, s.Put(context.Background(), name, data))
	return s
}

func TestCachingStore_ReadAt(t *testing.T) {
	ctx := context.Background()
	data := make([]byte, 1024)
	for i := range data {
		data[i] = byte(i % 255)
	}

	inner := newCountingStore(t, "test", data)
	store := NewCachingStore(inner, cache.NewLRUBlockCache(1<<20), 256)

	blob, err := store.Open(ctx, "test")
	require.NoError(t, err)
	defer blob.Close()

	buf := make([]byte, 100)
	n, err := blob.ReadAt(ctx, buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 100, n)
	assert.Equal(t, data[:100], buf)
	assert.Equal(t, 1, inner.reads)
	assert.Equal(t, 256, inner.readBytes)

	// Same range is a cache hit.
	_, err = blob.ReadAt(ctx, buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, inner.reads)

	// Spans block 0 (cached) and block 1 (missing).
	n, err = blob.ReadAt(ctx, buf, 200)
	require.NoError(t, err)
	assert.Equal(t, 100, n)
	assert.Equal(t, data[200:300], buf)
	assert.Equal(t, 2, inner.reads)
	assert.Equal(t, 512, inner.readBytes)

	// Blocks 2 and 3 are fetched with one coalesced read.
	big := make([]byte, 512)
	n, err = blob.ReadAt(ctx, big, 512)
	require.NoError(t, err)
	assert.Equal(t, 512, n)
	assert.Equal(t, data[512:], big)
	assert.Equal(t, 3, inner.reads)

	stats := store.Stats()
	assert.Equal(t, 4, stats.Entries)
	assert.Equal(t, int64(1024), stats.Bytes)
}

func TestCachingStore_ShortBlob(t *testing.T) {
	ctx := context.Background()
	data := []byte("hello")
	store := NewCachingStore(newCountingStore(t, "small", data), cache.NewLRUBlockCache(1024), 256)

	blob, err := store.Open(ctx, "small")
	require.NoError(t, err)

	buf := make([]byte, 10)
	n, err := blob.ReadAt(ctx, buf, 0)
	assert.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 5, n)
	assert.Equal(t, data, buf[:n])

	_, err = blob.ReadAt(ctx, buf, 5)
	assert.ErrorIs(t, err, io.EOF)

	rc, err := blob.ReadRange(ctx, 1, 100)
	require.NoError(t, err)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "ello", string(got))
}

func TestCachingStore_PutInvalidates(t *testing.T) {
	ctx := context.Background()
	inner := newCountingStore(t, "kb", []byte("aaaa"))
	store := NewCachingStore(inner, cache.NewLRUBlockCache(1024), 4)

	read := func() string {
		blob, err := store.Open(ctx, "kb")
		require.NoError(t, err)
		defer blob.Close()
		buf := make([]byte, 4)
		_, err = blob.ReadAt(ctx, buf, 0)
		require.NoError(t, err)
		return string(buf)
	}

	assert.Equal(t, "aaaa", read())
	require.NoError(t, store.Put(ctx, "kb", []byte("bbbb")))
	assert.Equal(t, "bbbb", read())

	require.NoError(t, store.Delete(ctx, "kb"))
	_, err := store.Open(ctx, "kb")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCachingStore_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	store := NewCachingStore(newCountingStore(t, "kb", []byte("data")), cache.NewLRUBlockCache(1024), 0)

	blob, err := store.Open(ctx, "kb")
	require.NoError(t, err)
	cancel()

	_, err = blob.ReadAt(ctx, make([]byte, 2), 0)
	assert.ErrorIs(t, err, context.Canceled)
}

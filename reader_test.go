package ragfile

import (
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/hupe1980/ragfile/blobstore"
	"github.com/hupe1980/ragfile/distance"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKeywords = []KeywordRecord{
	{Keyword: "AI", Content: "Artificial intelligence is the simulation of human intelligence."},
	{Keyword: "RAG", Content: "Retrieval-augmented generation grounds answers in documents."},
	{Keyword: "AI", Content: "A second entry for AI."},
	{Keyword: "Graph", Content: "Graphs model relationships."},
	{Keyword: "Distributed Systems", Content: "Many nodes, one system."},
}

var testEmbeddings = []EmbeddingRecord{
	{Vector: []float32{1, 0, 0}, Content: "x axis"},
	{Vector: []float32{0, 1, 0}, Content: "y axis"},
	{Vector: []float32{0, 0, 1}, Content: "z axis"},
	{Vector: []float32{0.9, 0.1, 0}, Content: "mostly x"},
}

func writeTestFile(t *testing.T, opts ...Option) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.ragfile")
	w := newHeaderWriter(t, path, opts...)
	require.NoError(t, w.WriteKeywordSection(testKeywords, 8))
	require.NoError(t, w.WriteEmbeddingSection(testEmbeddings, 16, Precision32))
	require.NoError(t, w.Finalize())
	return path
}

func TestReader_SearchKeyword(t *testing.T) {
	ctx := context.Background()
	r, err := Open(writeTestFile(t))
	require.NoError(t, err)
	defer r.Close()

	t.Run("DuplicatesInWriteOrder", func(t *testing.T) {
		got, err := r.SearchKeyword(ctx, "AI")
		require.NoError(t, err)
		assert.Equal(t, []KeywordRecord{testKeywords[0], testKeywords[2]}, got)
	})

	t.Run("ContentWithDelimiter", func(t *testing.T) {
		got, err := r.SearchKeyword(ctx, "RAG")
		require.NoError(t, err)
		assert.Equal(t, []KeywordRecord{testKeywords[1]}, got)
	})

	t.Run("KeywordWithSpace", func(t *testing.T) {
		got, err := r.SearchKeyword(ctx, "Distributed Systems")
		require.NoError(t, err)
		assert.Len(t, got, 1)
	})

	t.Run("NoMatch", func(t *testing.T) {
		got, err := r.SearchKeyword(ctx, "zz")
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("CaseSensitive", func(t *testing.T) {
		got, err := r.SearchKeyword(ctx, "ai")
		require.NoError(t, err)
		assert.Empty(t, got)
	})
}

func TestReader_Scenario(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "ab.ragfile")
	w := newHeaderWriter(t, path)
	require.NoError(t, w.WriteKeywordSection([]KeywordRecord{{Keyword: "ab", Content: "xy"}}, 8))
	require.NoError(t, w.Finalize())

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	got, err := r.SearchKeyword(ctx, "ab")
	require.NoError(t, err)
	assert.Equal(t, []KeywordRecord{{Keyword: "ab", Content: "xy"}}, got)

	got, err = r.SearchKeyword(ctx, "zz")
	require.NoError(t, err)
	assert.Empty(t, got)

	e, ok := r.Lookup(SectionKeyword)
	require.True(t, ok)
	assert.Equal(t, IndexEntry{Name: SectionKeyword, Start: 48, End: 56}, e)
}

func TestReader_RoundTrip(t *testing.T) {
	ctx := context.Background()
	for _, order := range []binary.ByteOrder{binary.LittleEndian, binary.BigEndian} {
		r, err := Open(writeTestFile(t, WithByteOrder(order)))
		require.NoError(t, err)

		assert.Equal(t, order, r.Header().ByteOrder())
		assert.Equal(t, Version{DefaultVersionMajor, DefaultVersionMinor, DefaultVersionPatch}, r.Header().Version)

		kws, err := r.Keywords(ctx)
		require.NoError(t, err)
		assert.Equal(t, testKeywords, kws)

		embs, err := r.Embeddings(ctx, 3)
		require.NoError(t, err)
		assert.Equal(t, testEmbeddings, embs)

		require.NoError(t, r.Close())
	}
}

func TestReader_HalfPrecision(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "half.ragfile")
	w := newHeaderWriter(t, path)
	recs := []EmbeddingRecord{
		{Vector: []float32{0.5, -1.25, 1024}, Content: "exact in half"},
		{Vector: []float32{0.1, 0.2, 0.3}, Content: "rounded"},
	}
	require.NoError(t, w.WriteEmbeddingSection(recs, 4, Precision16))
	require.NoError(t, w.Finalize())

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	got, err := r.Embeddings(ctx, 3)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, recs[0], got[0])
	assert.InDeltaSlice(t, recs[1].Vector, got[1].Vector, 1e-3)
	assert.Equal(t, "rounded", got[1].Content)
}

func TestReader_SearchVector(t *testing.T) {
	ctx := context.Background()
	r, err := Open(writeTestFile(t))
	require.NoError(t, err)
	defer r.Close()

	hits, err := r.SearchVector(ctx, []float32{1, 0, 0}, 2, distance.MetricL2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "x axis", hits[0].Content)
	assert.Equal(t, "mostly x", hits[1].Content)
	assert.LessOrEqual(t, hits[0].Distance, hits[1].Distance)

	hits, err = r.SearchVector(ctx, []float32{0, 0, 2}, 10, distance.MetricCosine)
	require.NoError(t, err)
	require.Len(t, hits, 4)
	assert.Equal(t, "z axis", hits[0].Content)
	assert.Equal(t, []float32{0, 0, 1}, hits[0].Vector)

	// x axis and y axis tie on the dot metric; write order wins.
	hits, err = r.SearchVector(ctx, []float32{0, 0, -1}, 3, distance.MetricDot)
	require.NoError(t, err)
	require.Len(t, hits, 3)
	assert.Equal(t, []string{"x axis", "y axis", "mostly x"}, []string{hits[0].Content, hits[1].Content, hits[2].Content})

	_, err = r.SearchVector(ctx, nil, 1, distance.MetricL2)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = r.SearchVector(ctx, []float32{1, 0, 0}, 0, distance.MetricL2)
	assert.ErrorIs(t, err, ErrInvalidArgument)
	_, err = r.SearchVector(ctx, []float32{1, 0, 0}, 1, distance.Metric(42))
	assert.ErrorIs(t, err, ErrInvalidArgument)

	// A wrong dimension misplaces the delimiter.
	_, err = r.SearchVector(ctx, []float32{1, 0}, 1, distance.MetricL2)
	assert.ErrorIs(t, err, ErrFormat)
}

func TestReader_MissingSections(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "empty.ragfile")
	require.NoError(t, newHeaderWriter(t, path).Finalize())

	r, err := Open(path)
	require.NoError(t, err)
	defer r.Close()

	assert.Empty(t, r.Index())

	got, err := r.SearchKeyword(ctx, "AI")
	require.NoError(t, err)
	assert.Empty(t, got)

	embs, err := r.Embeddings(ctx, 4)
	require.NoError(t, err)
	assert.Empty(t, embs)

	hits, err := r.SearchVector(ctx, []float32{1}, 1, distance.MetricL2)
	require.NoError(t, err)
	assert.Empty(t, hits)

	_, err = r.Embeddings(ctx, 0)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestReader_Index(t *testing.T) {
	ctx := context.Background()
	r, err := Open(writeTestFile(t))
	require.NoError(t, err)
	defer r.Close()

	first := r.Index()
	require.Len(t, first, 2)
	assert.Equal(t, SectionKeyword, first[0].Name)
	assert.Equal(t, SectionVector, first[1].Name)

	require.NoError(t, r.ParseIndex(ctx))
	assert.Equal(t, first, r.Index())

	sections, err := r.Sections(ctx)
	require.NoError(t, err)
	require.Len(t, sections, 2)
	assert.Equal(t, SectionInfo{Name: SectionKeyword, Start: first[0].Start, End: first[0].End, Alignment: 8}, sections[0])
	assert.Equal(t, SectionInfo{Name: SectionVector, Start: first[1].Start, End: first[1].End, Alignment: 16, Precision: 32}, sections[1])

	_, ok := r.Lookup("graph")
	assert.False(t, ok)
}

func TestReader_OpenErrors(t *testing.T) {
	dir := t.TempDir()
	write := func(name string, data []byte) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, data, 0o644))
		return p
	}

	valid, err := os.ReadFile(writeTestFile(t))
	require.NoError(t, err)

	t.Run("Missing", func(t *testing.T) {
		_, err := Open(filepath.Join(dir, "nope.ragfile"))
		assert.ErrorIs(t, err, ErrIO)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("Directory", func(t *testing.T) {
		_, err := Open(dir)
		assert.ErrorIs(t, err, ErrIO)
	})

	tests := []struct {
		name string
		data []byte
	}{
		{"Empty", nil},
		{"Short", []byte("RAG")},
		{"BadMagic", append([]byte("NOTRAGF"), valid[7:]...)},
		{"HeaderOnly", valid[:HeaderSize]},
		{"TruncatedTable", valid[:IndexTableOffset+5]},
		{"TruncatedData", valid[:len(valid)-1]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open(write(tt.name, tt.data))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrFormat)

			var fe *FormatError
			assert.True(t, errors.As(err, &fe))
		})
	}
}

func TestReader_TableLengthPastEnd(t *testing.T) {
	data := EncodeHeader(0, 1, 0, binary.LittleEndian)
	data = binary.LittleEndian.AppendUint32(data, 1000)
	data = append(data, "keyword-(15,15)\x00"...)

	r, err := OpenBlob(context.Background(), memoryStoreWith(t, "long.ragfile", data), "long.ragfile")
	require.Nil(t, r)

	var fe *FormatError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, int64(HeaderSize), fe.Offset)
	assert.Contains(t, fe.Error(), "offset 11")

	_, _, err = DecodeIndexTable(data[HeaderSize:HeaderSize+2], binary.LittleEndian)
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, int64(HeaderSize), fe.Offset)
}

func memoryStoreWith(t *testing.T, name string, data []byte) *blobstore.MemoryStore {
	t.Helper()
	store := blobstore.NewMemoryStore()
	require.NoError(t, store.Put(context.Background(), name, data))
	return store
}

func TestReader_CorruptMetadata(t *testing.T) {
	ctx := context.Background()
	path := writeTestFile(t)
	r, err := Open(path)
	require.NoError(t, err)
	e, _ := r.Lookup(SectionKeyword)
	require.NoError(t, r.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[e.Start-1] = 3 // alignment byte
	require.NoError(t, os.WriteFile(path, data, 0o644))

	r, err = Open(path)
	require.NoError(t, err)
	defer r.Close()

	_, err = r.SearchKeyword(ctx, "AI")
	assert.ErrorIs(t, err, ErrFormat)

	data[e.Start-1] = 8
	data[e.Start-keywordMetaSize] ^= 0xff // start field
	require.NoError(t, os.WriteFile(path, data, 0o644))
	_, err = r.SearchKeyword(ctx, "AI")
	assert.ErrorIs(t, err, ErrFormat)
}

func TestReader_OpenBlob(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewMemoryStore()

	w := newHeaderWriter(t, "")
	require.NoError(t, w.WriteKeywordSection(testKeywords, 4))
	require.NoError(t, w.WriteEmbeddingSection(testEmbeddings, 8, Precision16))
	require.NoError(t, w.FinalizeTo(ctx, store, "kb.ragfile"))

	r, err := OpenBlob(ctx, store, "kb.ragfile")
	require.NoError(t, err)
	defer r.Close()

	got, err := r.SearchKeyword(ctx, "Graph")
	require.NoError(t, err)
	assert.Equal(t, []KeywordRecord{testKeywords[3]}, got)

	hits, err := r.SearchVector(ctx, []float32{0, 1, 0}, 1, distance.MetricL2)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "y axis", hits[0].Content)

	_, err = OpenBlob(ctx, store, "missing.ragfile")
	assert.ErrorIs(t, err, blobstore.ErrNotFound)
	assert.ErrorIs(t, err, ErrIO)

	cctx, cancel := context.WithCancel(ctx)
	cancel()
	_, err = r.SearchKeyword(cctx, "Graph")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestReader_OpenBlobLocal(t *testing.T) {
	ctx := context.Background()
	store := blobstore.NewLocalStore(t.TempDir())

	w := newHeaderWriter(t, "")
	require.NoError(t, w.WriteKeywordSection(testKeywords, 16))
	require.NoError(t, w.FinalizeTo(ctx, store, "kb/a.ragfile"))

	r, err := OpenBlob(ctx, store, "kb/a.ragfile")
	require.NoError(t, err)
	defer r.Close()

	got, err := r.Keywords(ctx)
	require.NoError(t, err)
	assert.Equal(t, testKeywords, got)
}

func TestReader_Concurrent(t *testing.T) {
	ctx := context.Background()
	metrics := &BasicMetricsCollector{}
	r, err := Open(writeTestFile(t), WithMetricsCollector(metrics))
	require.NoError(t, err)
	defer r.Close()

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 20 {
				got, err := r.SearchKeyword(ctx, "AI")
				if err == nil && len(got) != 2 {
					err = errors.New("unexpected result count")
				}
				if err == nil {
					err = r.ParseIndex(ctx)
				}
				if err != nil {
					errs <- err
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	stats := metrics.GetStats()
	assert.Equal(t, int64(workers*20), stats.SearchCount)
	assert.Equal(t, int64(workers*20*2), stats.SearchResults)
}

func TestReader_Hexdump(t *testing.T) {
	ctx := context.Background()
	r, err := Open(writeTestFile(t))
	require.NoError(t, err)
	defer r.Close()

	dump, err := r.Hexdump(ctx, 11)
	require.NoError(t, err)
	assert.Contains(t, dump, "52 41 47 46 49 4c 45")
	assert.Contains(t, dump, "|RAGFILE")
}

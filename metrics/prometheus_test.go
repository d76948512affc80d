package metrics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/hupe1980/ragfile"
	"github.com/hupe1980/ragfile/blobstore"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrometheusCollector_Record(t *testing.T) {
	c := NewPrometheusCollector(prometheus.NewRegistry())

	c.RecordSection(ragfile.SectionKeyword, 3, 24, nil)
	c.RecordSection(ragfile.SectionKeyword, 1, 0, errors.New("bad alignment"))
	c.RecordFinalize(128, time.Millisecond, nil)
	c.RecordSearch(ragfile.SectionKeyword, 2, 24, time.Microsecond, nil)
	c.RecordSearch(ragfile.SectionVector, 0, 0, time.Microsecond, errors.New("corrupt"))

	assert.Equal(t, 1.0, testutil.ToFloat64(c.SectionsTotal.WithLabelValues(ragfile.SectionKeyword, "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.SectionsTotal.WithLabelValues(ragfile.SectionKeyword, "error")))
	assert.Equal(t, 3.0, testutil.ToFloat64(c.SectionRecords.WithLabelValues(ragfile.SectionKeyword)))
	assert.Equal(t, 24.0, testutil.ToFloat64(c.SectionBytes.WithLabelValues(ragfile.SectionKeyword)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.FinalizeTotal.WithLabelValues("success")))
	assert.Equal(t, 128.0, testutil.ToFloat64(c.FinalizeBytes))
	assert.Equal(t, 2.0, testutil.ToFloat64(c.SearchResults.WithLabelValues(ragfile.SectionKeyword)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.SearchTotal.WithLabelValues(ragfile.SectionVector, "error")))
	assert.Equal(t, 0.0, testutil.ToFloat64(c.SearchResults.WithLabelValues(ragfile.SectionVector)))
}

func TestPrometheusCollector_WiredIntoWriterAndReader(t *testing.T) {
	ctx := context.Background()
	reg := prometheus.NewRegistry()
	c := NewPrometheusCollector(reg)
	store := blobstore.NewMemoryStore()

	w := ragfile.NewWriter("", ragfile.WithMetricsCollector(c))
	require.NoError(t, w.WriteHeader(0, 1, 0))
	require.NoError(t, w.WriteKeywordSection([]ragfile.KeywordRecord{
		{Keyword: "AI", Content: "Artificial intelligence"},
		{Keyword: "RAG", Content: "Retrieval-augmented generation"},
	}, 8))
	require.NoError(t, w.FinalizeTo(ctx, store, "kb.ragfile"))

	r, err := ragfile.OpenBlob(ctx, store, "kb.ragfile", ragfile.WithMetricsCollector(c))
	require.NoError(t, err)
	defer r.Close()

	got, err := r.SearchKeyword(ctx, "AI")
	require.NoError(t, err)
	require.Len(t, got, 1)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.SectionRecords.WithLabelValues(ragfile.SectionKeyword)))
	assert.Equal(t, float64(len(w.Bytes())), testutil.ToFloat64(c.FinalizeBytes))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.SearchResults.WithLabelValues(ragfile.SectionKeyword)))

	n, err := testutil.GatherAndCount(reg, "ragfile_search_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestNewPrometheusCollector_DuplicateRegistrationPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewPrometheusCollector(reg)
	assert.Panics(t, func() { NewPrometheusCollector(reg) })
}

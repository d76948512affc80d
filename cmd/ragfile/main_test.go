package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/hupe1980/ragfile"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runCmd(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var stdout, stderr bytes.Buffer
	err := run(context.Background(), args, &stdout, &stderr)
	return stdout.String(), err
}

func writeContainer(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "kb.ragfile")
	w := ragfile.NewWriter(path)
	require.NoError(t, w.WriteHeader(0, 1, 0))
	require.NoError(t, w.WriteKeywordSection([]ragfile.KeywordRecord{
		{Keyword: "AI", Content: "Artificial intelligence"},
		{Keyword: "RAG", Content: "Retrieval-augmented generation"},
		{Keyword: "AI", Content: "Machine learning"},
	}, 8))
	require.NoError(t, w.WriteEmbeddingSection([]ragfile.EmbeddingRecord{
		{Vector: []float32{1, 0}, Content: "east"},
	}, 8, ragfile.Precision32))
	require.NoError(t, w.Finalize())
	return path
}

func TestRun_Usage(t *testing.T) {
	_, err := runCmd(t)
	assert.ErrorIs(t, err, flag.ErrHelp)

	_, err = runCmd(t, "frobnicate")
	assert.ErrorContains(t, err, `unknown command "frobnicate"`)

	_, err = runCmd(t, "-log-level", "loud", "inspect")
	assert.ErrorContains(t, err, "Log.Level")
}

func TestRun_Search(t *testing.T) {
	path := writeContainer(t)

	out, err := runCmd(t, "search", "-file", path, "-keyword", "AI")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	var hit searchHit
	require.NoError(t, json.Unmarshal([]byte(lines[1]), &hit))
	assert.Equal(t, "AI", hit.Keyword)
	assert.Equal(t, "Machine learning", hit.Content)

	out, err = runCmd(t, "search", "-file", path, "-keyword", "missing")
	require.NoError(t, err)
	assert.Empty(t, out)

	_, err = runCmd(t, "search", "-file", path)
	assert.Error(t, err)
}

func TestRun_Inspect(t *testing.T) {
	path := writeContainer(t)

	out, err := runCmd(t, "inspect", "-file", path, "-n", "32")
	require.NoError(t, err)
	assert.Contains(t, out, "Version:    0.1.0")
	assert.Contains(t, out, "Byte order: LittleEndian")
	assert.Contains(t, out, "CRC32C:")
	assert.Contains(t, out, "keyword")
	assert.Contains(t, out, "vector")
	assert.Contains(t, out, "|RAGFILE")

	_, err = runCmd(t, "inspect", "-file", filepath.Join(t.TempDir(), "missing.ragfile"))
	assert.ErrorIs(t, err, ragfile.ErrIO)
}

func TestRun_Publish(t *testing.T) {
	path := writeContainer(t)
	dir := t.TempDir()

	out, err := runCmd(t, "publish", "-file", path, "-dir", dir, "-name", "kb/v1.ragfile")
	require.NoError(t, err)
	assert.Contains(t, out, `as "kb/v1.ragfile"`)
	assert.Contains(t, out, "2 sections")

	want, err := os.ReadFile(path)
	require.NoError(t, err)
	got, err := os.ReadFile(filepath.Join(dir, "kb", "v1.ragfile"))
	require.NoError(t, err)
	assert.Equal(t, want, got)

	_, err = runCmd(t, "publish", "-file", path, "-backend", "s3")
	assert.ErrorContains(t, err, "Storage.Bucket")
}

func TestRun_PublishRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.ragfile")
	require.NoError(t, os.WriteFile(path, []byte("not a container"), 0o600))

	_, err := runCmd(t, "publish", "-file", path, "-dir", t.TempDir())
	assert.ErrorIs(t, err, ragfile.ErrFormat)
}

func TestRun_Bench(t *testing.T) {
	out, err := runCmd(t, "bench", "-num-keywords", "200", "-str-length", "3", "-content-length", "16", "-readers", "2", "-iterations", "5", "-seed", "1")
	require.NoError(t, err)
	assert.Contains(t, out, "Searching for keyword:")
	assert.Contains(t, out, "Speedup:")
	assert.Contains(t, out, "n=10")
}

func TestRun_GenerateRandom(t *testing.T) {
	output := filepath.Join(t.TempDir(), "gen.ragfile")

	out, err := runCmd(t, "generate", "-random", "-dim", "8", "-precision", "16", "-padding", "4", "-output", output, "-keywords", "AI, RAG ,Graph")
	require.NoError(t, err)
	assert.Contains(t, out, "Generating content and embeddings for 3 keywords")
	assert.Contains(t, out, "Hexdump preview:")

	r, err := ragfile.Open(output)
	require.NoError(t, err)
	defer r.Close()

	ctx := context.Background()
	got, err := r.SearchKeyword(ctx, "RAG")
	require.NoError(t, err)
	require.Len(t, got, 1)

	embs, err := r.Embeddings(ctx, 8)
	require.NoError(t, err)
	assert.Len(t, embs, 3)

	sections, err := r.Sections(ctx)
	require.NoError(t, err)
	require.Len(t, sections, 2)
	assert.Equal(t, 16, sections[1].Precision)
	assert.Equal(t, 4, sections[1].Alignment)
}

func TestRun_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "ragfile.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte(`
log:
  format: json
container:
  byte_order: big
  alignment: 16
`), 0o600))

	output := filepath.Join(dir, "big.ragfile")
	_, err := runCmd(t, "-config", cfgPath, "generate", "-random", "-dim", "4", "-output", output, "-keywords", "AI", "-preview", "0")
	require.NoError(t, err)

	r, err := ragfile.Open(output)
	require.NoError(t, err)
	defer r.Close()
	assert.Equal(t, ragfile.BigEndian, r.Header().Endianness)

	sections, err := r.Sections(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 16, sections[0].Alignment)
}

func TestRun_SearchText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  "all-minilm",
			"data": []map[string]any{{
				"object":    "embedding",
				"index":     0,
				"embedding": []float64{0.9, 0.1},
			}},
			"usage": map[string]any{"prompt_tokens": 1, "total_tokens": 1},
		})
	}))
	defer srv.Close()

	dir := t.TempDir()
	cfgPath := filepath.Join(dir, "ragfile.yaml")
	require.NoError(t, os.WriteFile(cfgPath, []byte("generator:\n  base_url: "+srv.URL+"/v1/\n  max_retries: 0\n"), 0o600))

	path := writeContainer(t)
	out, err := runCmd(t, "-config", cfgPath, "search", "-file", path, "-text", "which way is east", "-k", "1")
	require.NoError(t, err)

	var hit searchHit
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(out)), &hit))
	assert.Equal(t, "east", hit.Content)
	require.NotNil(t, hit.Distance)
	assert.InDelta(t, 1-0.9/0.9055, *hit.Distance, 1e-3)
}

package generator

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/hupe1980/ragfile"
	"golang.org/x/sync/errgroup"
)

// Pipeline turns keywords into keyword and embedding records.
type Pipeline struct {
	gen         ContentGenerator
	emb         Embedder
	concurrency int
	batchSize   int
	logger      *slog.Logger
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithConcurrency bounds the number of in-flight requests. Default 4.
func WithConcurrency(n int) PipelineOption {
	return func(p *Pipeline) { p.concurrency = max(n, 1) }
}

// WithBatchSize sets how many texts go into one Embed call. Default 16.
func WithBatchSize(n int) PipelineOption {
	return func(p *Pipeline) { p.batchSize = max(n, 1) }
}

// WithLogger sets the progress logger.
func WithLogger(l *slog.Logger) PipelineOption {
	return func(p *Pipeline) { p.logger = l }
}

// NewPipeline creates a pipeline over gen and emb.
func NewPipeline(gen ContentGenerator, emb Embedder, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		gen:         gen,
		emb:         emb,
		concurrency: 4,
		batchSize:   16,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, fn := range opts {
		fn(p)
	}
	return p
}

// Result holds the records of one pipeline run, in keyword order.
type Result struct {
	Keywords   []ragfile.KeywordRecord
	Embeddings []ragfile.EmbeddingRecord
}

// Run generates content for every keyword, then embeds every content. The
// first failure cancels the remaining requests.
func (p *Pipeline) Run(ctx context.Context, keywords []string) (*Result, error) {
	for _, kw := range keywords {
		if kw == "" || strings.ContainsAny(kw, "-\x00") {
			return nil, fmt.Errorf("generator: keyword %q must be non-empty without '-' or NUL", kw)
		}
	}

	contents, err := p.generate(ctx, keywords)
	if err != nil {
		return nil, err
	}
	vectors, err := p.embed(ctx, contents)
	if err != nil {
		return nil, err
	}

	res := &Result{
		Keywords:   make([]ragfile.KeywordRecord, len(keywords)),
		Embeddings: make([]ragfile.EmbeddingRecord, len(keywords)),
	}
	for i, kw := range keywords {
		res.Keywords[i] = ragfile.KeywordRecord{Keyword: kw, Content: contents[i]}
		res.Embeddings[i] = ragfile.EmbeddingRecord{Vector: vectors[i], Content: contents[i]}
	}
	return res, nil
}

func (p *Pipeline) generate(ctx context.Context, keywords []string) ([]string, error) {
	contents := make([]string, len(keywords))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for i, kw := range keywords {
		g.Go(func() error {
			start := time.Now()
			c, err := p.gen.Generate(gctx, kw)
			if err != nil {
				return err
			}
			contents[i] = c
			p.logger.Debug("generated content", "keyword", kw, "bytes", len(c), "elapsed", time.Since(start))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return contents, nil
}

func (p *Pipeline) embed(ctx context.Context, contents []string) ([][]float32, error) {
	vectors := make([][]float32, len(contents))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)
	for lo := 0; lo < len(contents); lo += p.batchSize {
		hi := min(lo+p.batchSize, len(contents))
		g.Go(func() error {
			batch, err := p.emb.Embed(gctx, contents[lo:hi])
			if err != nil {
				return err
			}
			if len(batch) != hi-lo {
				return fmt.Errorf("generator: embedder returned %d vectors for %d texts", len(batch), hi-lo)
			}
			copy(vectors[lo:hi], batch)
			p.logger.Debug("embedded batch", "from", lo, "to", hi)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return vectors, nil
}

// Write writes res into a new container: a keyword section and, when
// present, an embedding section.
func (res *Result) Write(w *ragfile.Writer, alignment, precision int) error {
	if err := w.WriteHeader(ragfile.DefaultVersionMajor, ragfile.DefaultVersionMinor, ragfile.DefaultVersionPatch); err != nil {
		return err
	}
	if err := w.WriteKeywordSection(res.Keywords, alignment); err != nil {
		return err
	}
	if len(res.Embeddings) == 0 {
		return nil
	}
	return w.WriteEmbeddingSection(res.Embeddings, alignment, precision)
}

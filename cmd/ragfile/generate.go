package main

import (
	"context"
	"encoding/binary"
	"fmt"
	"strings"

	"github.com/hupe1980/ragfile"
	"github.com/hupe1980/ragfile/generator"
)

func runGenerate(ctx context.Context, e *env, args []string) error {
	c := e.cfg
	fs := e.newFlagSet("generate", "[flags]")
	output := fs.String("output", "test_output.ragfile", "output container path")
	padding := fs.Int("padding", c.Container.Alignment, "record alignment in bytes (4, 8 or 16)")
	precision := fs.Int("precision", c.Container.Precision, "embedding float precision (16 or 32)")
	keywords := fs.String("keywords", strings.Join(c.Generator.Keywords, ","), "comma separated keywords")
	baseURL := fs.String("base-url", c.Generator.BaseURL, "OpenAI-compatible API base URL")
	random := fs.Bool("random", false, "use the offline random generator instead of a model server")
	dim := fs.Int("dim", 384, "embedding dimension for -random")
	seed := fs.Int64("seed", 42, "seed for -random")
	preview := fs.Int("preview", 256, "hexdump preview bytes (0 for none)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	var gen interface {
		generator.ContentGenerator
		generator.Embedder
	}
	if *random {
		gen = generator.NewRandom(*seed, 64, *dim)
	} else {
		gen = generator.NewOpenAI(
			generator.WithBaseURL(*baseURL),
			generator.WithAPIKey(c.Generator.APIKey),
			generator.WithChatModel(c.Generator.ChatModel),
			generator.WithEmbeddingModel(c.Generator.EmbeddingModel),
			generator.WithPrompt(c.Generator.Prompt),
			generator.WithMaxRetries(c.Generator.MaxRetries),
			generator.WithRateLimit(c.Generator.RateLimit, c.Generator.Burst),
		)
	}

	if c.Generator.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Generator.Timeout)
		defer cancel()
	}

	kws := splitKeywords(*keywords)
	fmt.Fprintf(e.stdout, "Generating content and embeddings for %d keywords...\n", len(kws))

	pipeline := generator.NewPipeline(gen, gen,
		generator.WithConcurrency(c.Generator.Concurrency),
		generator.WithBatchSize(c.Generator.BatchSize),
		generator.WithLogger(e.logger.Logger),
	)
	res, err := pipeline.Run(ctx, kws)
	if err != nil {
		return err
	}
	for _, rec := range res.Keywords {
		fmt.Fprintf(e.stdout, "[%s] %s\n", rec.Keyword, truncate(rec.Content, 80))
	}

	opts := append([]ragfile.Option{ragfile.WithByteOrder(byteOrder(c.Container.ByteOrder))}, e.opts...)
	w := ragfile.NewWriter(*output, opts...)
	if err := res.Write(w, *padding, *precision); err != nil {
		return err
	}
	if err := w.Finalize(); err != nil {
		return err
	}

	fmt.Fprintf(e.stdout, "\nContainer written to: %s (%d bytes)\n", *output, len(w.Bytes()))
	if *preview > 0 {
		fmt.Fprintf(e.stdout, "\nHexdump preview:\n%s", w.Hexdump(*preview))
	}
	return nil
}

func splitKeywords(s string) []string {
	var out []string
	for _, kw := range strings.Split(s, ",") {
		if kw = strings.TrimSpace(kw); kw != "" {
			out = append(out, kw)
		}
	}
	return out
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "..."
}

func byteOrder(name string) binary.ByteOrder {
	if name == "big" {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

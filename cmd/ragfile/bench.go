package main

import (
	"context"
	"time"

	"github.com/hupe1980/ragfile/bench"
)

func runBench(ctx context.Context, e *env, args []string) error {
	c := e.cfg.Bench
	fs := e.newFlagSet("bench", "[flags]")
	numKeywords := fs.Int("num-keywords", c.NumKeywords, "number of keyword/content pairs")
	strLength := fs.Int("str-length", c.KeywordLength, "keyword length")
	contentLength := fs.Int("content-length", c.ContentLength, "content length")
	padding := fs.Int("padding", e.cfg.Container.Alignment, "record alignment in bytes (4, 8 or 16)")
	readers := fs.Int("readers", c.Readers, "concurrent readers (0 to skip)")
	iterations := fs.Int("iterations", c.Iterations, "searches per concurrent reader")
	output := fs.String("output", "", "keep the container at this path")
	seed := fs.Int64("seed", time.Now().UnixNano(), "random seed")
	if err := fs.Parse(args); err != nil {
		return err
	}

	report, err := bench.Run(ctx, bench.Config{
		NumKeywords:   *numKeywords,
		KeywordLength: *strLength,
		ContentLength: *contentLength,
		Alignment:     *padding,
		Readers:       *readers,
		Iterations:    *iterations,
		Seed:          *seed,
		Path:          *output,
	}, e.opts...)
	if report != nil {
		report.Fprint(e.stdout)
	}
	return err
}

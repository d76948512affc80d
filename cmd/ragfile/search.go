package main

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/hupe1980/ragfile"
	"github.com/hupe1980/ragfile/distance"
	"github.com/hupe1980/ragfile/generator"
)

type searchHit struct {
	Keyword  string   `json:"keyword,omitempty"`
	Content  string   `json:"content"`
	Distance *float32 `json:"distance,omitempty"`
}

func runSearch(ctx context.Context, e *env, args []string) error {
	c := e.cfg
	fs := e.newFlagSet("search", "-file <path> (-keyword <kw> | -text <query>)")
	file := fs.String("file", "", "container path")
	keyword := fs.String("keyword", "", "exact keyword to look up")
	text := fs.String("text", "", "embed this text and return the nearest records")
	k := fs.Int("k", 3, "number of nearest records for -text")
	metricName := fs.String("metric", "cosine", "distance metric for -text (l2, cosine, dot)")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" || (*keyword == "") == (*text == "") {
		fs.Usage()
		return errors.New("search needs -file and exactly one of -keyword or -text")
	}

	r, err := ragfile.Open(*file, e.opts...)
	if err != nil {
		return err
	}
	defer r.Close()

	enc := json.NewEncoder(e.stdout)

	if *keyword != "" {
		records, err := r.SearchKeyword(ctx, *keyword)
		if err != nil {
			return err
		}
		for _, rec := range records {
			if err := enc.Encode(searchHit{Keyword: rec.Keyword, Content: rec.Content}); err != nil {
				return err
			}
		}
		return nil
	}

	metric, err := distance.ParseMetric(*metricName)
	if err != nil {
		return err
	}
	emb := generator.NewOpenAI(
		generator.WithBaseURL(c.Generator.BaseURL),
		generator.WithAPIKey(c.Generator.APIKey),
		generator.WithEmbeddingModel(c.Generator.EmbeddingModel),
		generator.WithMaxRetries(c.Generator.MaxRetries),
	)
	vecs, err := emb.Embed(ctx, []string{*text})
	if err != nil {
		return err
	}

	hits, err := r.SearchVector(ctx, vecs[0], *k, metric)
	if err != nil {
		return err
	}
	for _, h := range hits {
		d := h.Distance
		if err := enc.Encode(searchHit{Content: h.Content, Distance: &d}); err != nil {
			return err
		}
	}
	return nil
}

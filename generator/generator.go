package generator

import (
	"context"
	"strings"
)

// ContentGenerator produces the content stored under a keyword.
type ContentGenerator interface {
	Generate(ctx context.Context, keyword string) (string, error)
}

// Embedder maps texts to fixed-dimension vectors, one per input and in
// input order.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// DefaultKeywords is the keyword set used when none is configured.
var DefaultKeywords = []string{
	"AI",
	"RAG",
	"Graph",
	"Cybersecurity",
	"Distributed Systems",
}

// Sanitize makes generated text storable as record content: it trims
// surrounding whitespace, drops NUL bytes and replaces invalid UTF-8.
func Sanitize(s string) string {
	s = strings.ToValidUTF8(s, "�")
	s = strings.ReplaceAll(s, "\x00", "")
	return strings.TrimSpace(s)
}

package generator

import (
	"context"

	"github.com/hupe1980/ragfile/testutil"
)

// Random is an offline generator producing reproducible random content and
// unit vectors. It backs benchmarks and tests that must not reach a model
// server.
type Random struct {
	rng        *testutil.RNG
	contentLen int
	dim        int
}

// NewRandom creates a Random generator.
func NewRandom(seed int64, contentLen, dim int) *Random {
	return &Random{
		rng:        testutil.NewRNG(seed),
		contentLen: contentLen,
		dim:        dim,
	}
}

// Generate returns contentLen random alphanumeric characters.
func (g *Random) Generate(ctx context.Context, _ string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	return g.rng.String(g.contentLen), nil
}

// Embed returns one random unit vector per text.
func (g *Random) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return g.rng.UnitVectors(len(texts), g.dim), nil
}

var (
	_ ContentGenerator = (*Random)(nil)
	_ Embedder         = (*Random)(nil)
)

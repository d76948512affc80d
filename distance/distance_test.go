package distance

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ones(n int) []float32 {
	v := make([]float32, n)
	for i := range v {
		v[i] = 1
	}
	return v
}

func TestKernels(t *testing.T) {
	tests := []struct {
		name       string
		a, b       []float32
		dot, sqL2 float32
	}{
		{"Simple", []float32{1, 2, 3}, []float32{4, 5, 6}, 32, 27},
		{"Identical", []float32{1, 2, 3}, []float32{1, 2, 3}, 14, 0},
		{"Signs", []float32{1, -1}, []float32{-1, 1}, -2, 8},
		{"Empty", nil, nil, 0, 0},
		{"Single", []float32{2}, []float32{3}, 6, 1},
		// Longer than the unrolled block, with a remainder.
		{"Tail", ones(1027), ones(1027), 1027, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.dot, Dot(tt.a, tt.b), 1e-5)
			assert.InDelta(t, tt.sqL2, SquaredL2(tt.a, tt.b), 1e-5)
		})
	}
}

func TestCosine(t *testing.T) {
	tests := []struct {
		name     string
		a, b     []float32
		expected float32
	}{
		{"Parallel", []float32{1, 2}, []float32{2, 4}, 1},
		{"Orthogonal", []float32{1, 0}, []float32{0, 3}, 0},
		{"Opposite", []float32{1, 1}, []float32{-1, -1}, -1},
		{"Zero", []float32{0, 0}, []float32{1, 1}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.expected, Cosine(tt.a, tt.b), 1e-5)
		})
	}
}

func TestNormalizeL2(t *testing.T) {
	v := []float32{3, 4}
	require.True(t, NormalizeL2InPlace(v))
	assert.InDeltaSlice(t, []float32{0.6, 0.8}, v, 1e-5)
	assert.InDelta(t, 1.0, math.Sqrt(float64(Dot(v, v))), 1e-5)

	assert.False(t, NormalizeL2InPlace([]float32{0, 0}))
	assert.False(t, NormalizeL2InPlace(nil))

	src := []float32{0, 2}
	dst, ok := NormalizeL2Copy(src)
	require.True(t, ok)
	assert.Equal(t, []float32{0, 1}, dst)
	assert.Equal(t, []float32{0, 2}, src, "source modified")

	dst, ok = NormalizeL2Copy([]float32{0, 0})
	assert.False(t, ok)
	assert.Nil(t, dst)
}

func TestMetric(t *testing.T) {
	t.Run("String", func(t *testing.T) {
		assert.Equal(t, "L2", MetricL2.String())
		assert.Equal(t, "Cosine", MetricCosine.String())
		assert.Equal(t, "Dot", MetricDot.String())
		assert.Equal(t, "Unknown(99)", Metric(99).String())
	})

	t.Run("Parse", func(t *testing.T) {
		for in, want := range map[string]Metric{"l2": MetricL2, "Cosine": MetricCosine, "DOT": MetricDot} {
			got, err := ParseMetric(in)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
		_, err := ParseMetric("hamming")
		assert.Error(t, err)
	})

	t.Run("Provider", func(t *testing.T) {
		a := []float32{1, 2, 3}
		b := []float32{4, 5, 6}

		f, err := Provider(MetricL2)
		require.NoError(t, err)
		assert.InDelta(t, float32(27), f(a, b), 1e-5)

		f, err = Provider(MetricDot)
		require.NoError(t, err)
		assert.InDelta(t, float32(-32), f(a, b), 1e-5)

		f, err = Provider(MetricCosine)
		require.NoError(t, err)
		assert.InDelta(t, float32(0), f(a, []float32{2, 4, 6}), 1e-5)
		assert.Less(t, f(a, []float32{2, 4, 6}), f(a, []float32{-3, 0, 1}))

		_, err = Provider(Metric(99))
		assert.Error(t, err)
	})
}

package vectormath

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCosineSelfSimilarity(t *testing.T) {
	v := []float32{0.3, -1.2, 4.5, 0.01}

	sim, err := Cosine(v, v)
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sim, 1e-9)
}

func TestCosineSymmetry(t *testing.T) {
	a := []float32{1, 2, 3}
	b := []float32{-4, 0.5, 2}

	ab, err := Cosine(a, b)
	require.NoError(t, err)
	ba, err := Cosine(b, a)
	require.NoError(t, err)
	assert.InDelta(t, ab, ba, 1e-12)
}

func TestCosineOrthogonal(t *testing.T) {
	sim, err := Cosine([]float32{1, 0}, []float32{0, 1})
	require.NoError(t, err)
	assert.InDelta(t, 0.0, sim, 1e-12)
}

func TestCosineOpposite(t *testing.T) {
	sim, err := Cosine([]float32{1, 0}, []float32{-1, 0})
	require.NoError(t, err)
	assert.InDelta(t, -1.0, sim, 1e-12)
}

func TestCosineDimensionMismatch(t *testing.T) {
	_, err := Cosine([]float32{1, 2}, []float32{1, 2, 3})
	assert.ErrorIs(t, err, ErrDimensionMismatch)
}

func TestCosineZeroNormIsNeutral(t *testing.T) {
	// Zero-norm input yields 0, not an error.
	sim, err := Cosine([]float32{0, 0, 0}, []float32{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, 0.0, sim)
}

func TestNormalizeUnitLength(t *testing.T) {
	v := Normalize([]float32{3, 4})
	assert.InDelta(t, 1.0, Norm(v), 1e-9)
	assert.InDelta(t, 0.6, float64(v[0]), 1e-6)
	assert.InDelta(t, 0.8, float64(v[1]), 1e-6)
}

func TestNormalizeIdempotent(t *testing.T) {
	v := []float32{2.5, -1.5, 0.25}

	once := Normalize(v)
	twice := Normalize(once)
	for i := range once {
		assert.InDelta(t, float64(once[i]), float64(twice[i]), 1e-6)
	}
}

func TestNormalizeZeroVector(t *testing.T) {
	zero := []float32{0, 0, 0}
	out := Normalize(zero)
	assert.Equal(t, zero, out)
}

func TestCosineNormalizedInputsEqualDot(t *testing.T) {
	a := Normalize([]float32{1, 2, 3})
	b := Normalize([]float32{4, 5, 6})

	sim, err := Cosine(a, b)
	require.NoError(t, err)

	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	assert.InDelta(t, dot, sim, 1e-6)
}

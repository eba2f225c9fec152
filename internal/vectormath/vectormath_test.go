package vectormath_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patternforge/hebbian/internal/vectormath"
)

func TestCosineSelfSimilarity(t *testing.T) {
	v := []float32{0.1, 0.4, -0.2, 0.9}
	assert.InDelta(t, 1.0, vectormath.Cosine(v, v), 1e-9)
}

func TestCosineSymmetric(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{0.5, 0.5, 0}
	assert.InDelta(t, vectormath.Cosine(a, b), vectormath.Cosine(b, a), 1e-9)
}

func TestCosineOrthogonal(t *testing.T) {
	a := []float32{1, 0}
	b := []float32{0, 1}
	assert.InDelta(t, 0.0, vectormath.Cosine(a, b), 1e-9)
}

func TestCosineUnequalLength(t *testing.T) {
	a := []float32{1, 0, 0}
	b := []float32{1, 0}
	assert.Equal(t, 0.0, vectormath.Cosine(a, b))
}

func TestCosineEmpty(t *testing.T) {
	assert.Equal(t, 0.0, vectormath.Cosine(nil, []float32{1, 2}))
	assert.Equal(t, 0.0, vectormath.Cosine([]float32{1, 2}, nil))
}

func TestSerializeDeserializeRoundTrip(t *testing.T) {
	original := []float32{0.125, -3.5, 2.0, 0.0, 17.75}
	blob := vectormath.Serialize(original)
	require.Len(t, blob, len(original)*4)

	got := vectormath.Deserialize(blob, len(original))
	require.NotNil(t, got)
	for i := range original {
		assert.InDelta(t, original[i], got[i], 1e-6)
	}
}

func TestDeserializeDimensionMismatchIsNil(t *testing.T) {
	blob := vectormath.Serialize([]float32{1, 2, 3})
	assert.Nil(t, vectormath.Deserialize(blob, 4))
}

func TestDeserializeMalformedLengthIsNil(t *testing.T) {
	assert.Nil(t, vectormath.Deserialize([]byte{1, 2, 3}, 0))
}

func TestDeserializeEmptyIsNil(t *testing.T) {
	assert.Nil(t, vectormath.Deserialize(nil, 0))
}

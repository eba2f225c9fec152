// Package vectormath implements cosine similarity and the little-endian
// float32 blob (de)serialisation used to persist embeddings (spec §4.3).
package vectormath

import (
	"encoding/binary"
	"math"
)

// Cosine returns the cosine similarity of a and b, or 0 when either vector
// is missing, lengths mismatch, or either norm is zero.
func Cosine(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		ai, bi := float64(a[i]), float64(b[i])
		dot += ai * bi
		normA += ai * ai
		normB += bi * bi
	}

	denom := math.Sqrt(normA) * math.Sqrt(normB)
	if denom == 0 {
		return 0
	}
	return dot / denom
}

// Serialize encodes v as a raw little-endian float32 byte sequence.
func Serialize(v []float32) []byte {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return buf
}

// Deserialize decodes a little-endian float32 byte sequence produced by
// Serialize. It returns nil (not an error) for a blob whose length isn't a
// multiple of 4, or that doesn't match dim*4 bytes when dim > 0 — callers
// must validate length against the configured dimension and treat a
// mismatch as a missing embedding (spec §9 open question).
func Deserialize(b []byte, dim int) []float32 {
	if len(b) == 0 || len(b)%4 != 0 {
		return nil
	}
	if dim > 0 && len(b) != dim*4 {
		return nil
	}
	v := make([]float32, len(b)/4)
	for i := range v {
		v[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4:]))
	}
	return v
}

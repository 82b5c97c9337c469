// Package reid holds the appearance embedding helpers used for object
// re-identification: distance functions, normalisation and the Embedder
// interface through which the tracker obtains embeddings from a model.
package reid

import (
	"image"
	"math"
)

// Embedder produces an appearance embedding for an object crop
type Embedder interface {
	Embed(crop image.Image) ([]float32, error)
}

// EmbedderFunc adapts an ordinary function to the Embedder interface
type EmbedderFunc func(crop image.Image) ([]float32, error)

// Embed calls f(crop)
func (f EmbedderFunc) Embed(crop image.Image) ([]float32, error) {
	return f(crop)
}

// DequantizeAndL2Normalize converts a quantized int8 vector "q" into a float32
// vector, applies dequantization using the provided scale "s" and zero-point
// "z", and then normalizes the result to unit length.
//
// If the resulting vector has zero magnitude, the function returns the
// unnormalized dequantized vector.
func DequantizeAndL2Normalize(q []int8, s float32, z int32) []float32 {

	x := make([]float32, len(q))

	for i, v := range q {
		x[i] = float32(int32(v)-z) * s
	}

	return normalizeInPlace(x)
}

// CosineSimilarity returns the dot product of a and b, which is the cosine of
// the angle between them when both are L2-normalized.  Assumes
// len(a)==len(b).
func CosineSimilarity(a, b []float32) float32 {

	var dot float32

	for i := range a {
		dot += a[i] * b[i]
	}

	return dot
}

// CosineDistance returns 1 - cosine similarity, in [0,2] for L2-normalized
// vectors where small values mean "very similar"
func CosineDistance(a, b []float32) float32 {
	return 1 - CosineSimilarity(a, b)
}

// EuclideanDistance returns the L2 distance between two vectors.  Vectors of
// different length are compared over their common prefix.
func EuclideanDistance(a, b []float32) float32 {

	n := len(a)
	if len(b) < n {
		n = len(b)
	}

	var sum float64

	for i := 0; i < n; i++ {
		d := float64(a[i] - b[i])
		sum += d * d
	}

	return float32(math.Sqrt(sum))
}

// NormalizeVec returns a unit length copy of v.  A zero magnitude input is
// returned unchanged.
func NormalizeVec(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	return normalizeInPlace(out)
}

func normalizeInPlace(x []float32) []float32 {

	var sumSquares float64

	for _, v := range x {
		sumSquares += float64(v) * float64(v)
	}

	if sumSquares == 0 {
		// avoid /0
		return x
	}

	norm := float32(math.Sqrt(sumSquares))

	for i := range x {
		x[i] /= norm
	}

	return x
}

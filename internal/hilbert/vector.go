// Package hilbert implements the prime vector-space model: sparse
// term-frequency vectors keyed by prime token ids, their biorthogonal
// (dual) counterparts, and the complex resonance measure between them.
package hilbert

import (
	"math"
	"math/cmplx"
)

// PrimeVector is a sparse term-weight vector keyed by prime token id.
// Weights are non-negative and sum to 1 for any vector built from a
// non-empty token sequence.
type PrimeVector map[uint64]float64

// DualVector pairs a primary and a secondary sparse vector. The base model
// gives both halves equal mass per occurrence; the split is a placeholder
// dual basis.
type DualVector struct {
	Left  PrimeVector
	Right PrimeVector
}

// BuildVector builds a normalized frequency vector from a token sequence.
func BuildVector(tokens []uint64) PrimeVector {
	vec := make(PrimeVector, len(tokens))
	for _, token := range tokens {
		vec[token]++
	}
	total := float64(len(tokens))
	if total > 0 {
		for prime := range vec {
			vec[prime] /= total
		}
	}
	return vec
}

// DotProduct computes the sparse dot product over shared keys. It is
// symmetric and 0 for vectors with disjoint support.
func DotProduct(a, b PrimeVector) float64 {
	// Iterate the smaller map.
	if len(b) < len(a) {
		a, b = b, a
	}
	sum := 0.0
	for prime, wa := range a {
		if wb, ok := b[prime]; ok {
			sum += wa * wb
		}
	}
	return sum
}

// BuildDualVector distributes half of each occurrence's mass to the left
// and right components, normalized by total token count.
func BuildDualVector(tokens []uint64) DualVector {
	left := make(PrimeVector, len(tokens))
	right := make(PrimeVector, len(tokens))
	for _, token := range tokens {
		left[token] += 0.5
		right[token] += 0.5
	}
	total := float64(len(tokens))
	if total > 0 {
		for prime := range left {
			left[prime] /= total
		}
		for prime := range right {
			right[prime] /= total
		}
	}
	return DualVector{Left: left, Right: right}
}

// Resonance computes the complex resonance between two vectors. The real
// part is the dot product decayed by e^(-decay); the imaginary part
// accumulates phase from the magnitude of shared prime ids and decays at
// half the rate, so phase coherence outlives amplitude.
func Resonance(a, b PrimeVector, decay float64) complex128 {
	real := DotProduct(a, b)

	phase := 0.0
	if len(b) < len(a) {
		a, b = b, a
	}
	for prime, wa := range a {
		if wb, ok := b[prime]; ok {
			phase += math.Log(float64(prime)) * wa * wb
		}
	}

	return complex(real*math.Exp(-decay), phase*math.Exp(-decay*0.5))
}

// DualScore combines the left-left and right-right dot products of two
// dual vectors into one auxiliary similarity channel.
func DualScore(query, doc DualVector) float64 {
	return DotProduct(query.Left, doc.Left) + DotProduct(query.Right, doc.Right)
}

// ToDense projects a sparse vector onto a fixed-length array indexed
// directly by prime id. Ids at or beyond the dimension are dropped, so the
// dimension must be large for the vocabulary in use.
func ToDense(vec PrimeVector, dimension int) []float64 {
	dense := make([]float64, dimension)
	for prime, weight := range vec {
		if prime < uint64(dimension) {
			dense[prime] = weight
		}
	}
	return dense
}

// Magnitude returns the modulus of a resonance value. Convenience for
// callers that only need amplitude.
func Magnitude(resonance complex128) float64 {
	return cmplx.Abs(resonance)
}

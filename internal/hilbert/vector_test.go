package hilbert_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/resonant-engine/backend/internal/hilbert"
)

func TestBuildVectorNormalizes(t *testing.T) {
	tokens := []uint64{3, 3, 5, 7}
	vec := hilbert.BuildVector(tokens)

	require.Len(t, vec, 3)
	assert.InDelta(t, 0.5, vec[3], 1e-12)
	assert.InDelta(t, 0.25, vec[5], 1e-12)

	sum := 0.0
	for _, w := range vec {
		sum += w
	}
	assert.InDelta(t, 1.0, sum, 1e-12, "weights must sum to 1")
}

func TestBuildVectorEmpty(t *testing.T) {
	assert.Empty(t, hilbert.BuildVector(nil))
}

func TestDotProduct(t *testing.T) {
	a := hilbert.PrimeVector{3: 0.5, 5: 0.5}
	b := hilbert.PrimeVector{3: 0.25, 7: 0.75}

	assert.InDelta(t, 0.125, hilbert.DotProduct(a, b), 1e-12)
	assert.Equal(t, hilbert.DotProduct(a, b), hilbert.DotProduct(b, a), "dot product is symmetric")

	// Self dot product is the sum of squared weights.
	self := hilbert.DotProduct(a, a)
	assert.InDelta(t, 0.5*0.5+0.5*0.5, self, 1e-12)

	disjoint := hilbert.PrimeVector{11: 1.0}
	assert.Zero(t, hilbert.DotProduct(a, disjoint))
}

func TestBuildDualVector(t *testing.T) {
	tokens := []uint64{3, 3, 5, 7}
	dual := hilbert.BuildDualVector(tokens)

	// Each occurrence contributes 0.5 to each half, normalized by count.
	assert.InDelta(t, 0.25, dual.Left[3], 1e-12)
	assert.InDelta(t, 0.25, dual.Right[3], 1e-12)
	assert.InDelta(t, 0.125, dual.Left[5], 1e-12)

	score := hilbert.DualScore(dual, dual)
	assert.Greater(t, score, 0.0)
}

func TestResonanceZeroDecay(t *testing.T) {
	a := hilbert.PrimeVector{3: 0.5, 5: 0.5}
	b := hilbert.PrimeVector{3: 0.5, 5: 0.25, 7: 0.25}

	res := hilbert.Resonance(a, b, 0)
	assert.InDelta(t, hilbert.DotProduct(a, b), real(res), 1e-12,
		"with no decay the real part is exactly the dot product")

	wantPhase := math.Log(3)*0.5*0.5 + math.Log(5)*0.5*0.25
	assert.InDelta(t, wantPhase, imag(res), 1e-12)
}

func TestResonanceDecayRates(t *testing.T) {
	a := hilbert.PrimeVector{3: 1.0}
	b := hilbert.PrimeVector{3: 1.0}

	base := hilbert.Resonance(a, b, 0)
	decayed := hilbert.Resonance(a, b, 2.0)

	assert.InDelta(t, real(base)*math.Exp(-2.0), real(decayed), 1e-12)
	// Imaginary part decays at half the rate.
	assert.InDelta(t, imag(base)*math.Exp(-1.0), imag(decayed), 1e-12)
}

func TestToDense(t *testing.T) {
	vec := hilbert.PrimeVector{3: 0.5, 999: 0.25, 2000: 0.25}
	dense := hilbert.ToDense(vec, 1000)

	require.Len(t, dense, 1000)
	assert.Equal(t, 0.5, dense[3])
	assert.Equal(t, 0.25, dense[999])
	// Out-of-range ids are dropped by the projection.
	for i, v := range dense {
		if i != 3 && i != 999 {
			assert.Zero(t, v)
		}
	}
}

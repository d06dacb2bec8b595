// Package entropy implements the thermodynamic scoring model: Shannon
// entropy over token distributions, mutual information between dense
// vector projections, and the persistence score that blends
// reversibility, entropy pressure and buffering capacity.
package entropy

import (
	"math"
)

// histogramBins is the quantization resolution used by the mutual
// information estimator.
const histogramBins = 8

// Shannon computes -sum(p * log2(p)) over the empirical distribution of a
// token sequence. It is 0 for an empty sequence and for any single
// repeated token.
func Shannon(tokens []uint64) float64 {
	if len(tokens) == 0 {
		return 0
	}
	counts := make(map[uint64]int, len(tokens))
	for _, token := range tokens {
		counts[token]++
	}
	total := float64(len(tokens))
	entropy := 0.0
	for _, count := range counts {
		p := float64(count) / total
		entropy -= p * math.Log2(p)
	}
	return entropy
}

// MutualInformation estimates the statistical dependency between two dense
// vectors with a joint histogram over paired positions, each vector
// quantized into equal-width bins. The result lies in
// [0, min(H(A), H(B))] and is 0 for independent vectors.
func MutualInformation(a, b []float64) float64 {
	n := len(a)
	if n == 0 || n != len(b) {
		return 0
	}

	qa := quantize(a)
	qb := quantize(b)

	joint := make(map[[2]int]float64)
	marginalA := make(map[int]float64)
	marginalB := make(map[int]float64)
	for i := 0; i < n; i++ {
		joint[[2]int{qa[i], qb[i]}]++
		marginalA[qa[i]]++
		marginalB[qb[i]]++
	}

	total := float64(n)
	mi := 0.0
	for cell, count := range joint {
		pxy := count / total
		px := marginalA[cell[0]] / total
		py := marginalB[cell[1]] / total
		mi += pxy * math.Log2(pxy/(px*py))
	}
	if mi < 0 {
		// Floating error can take a zero slightly negative.
		return 0
	}
	return mi
}

// Reversibility is the mean normalized mutual information between the
// current dense vector and each historical snapshot, always in [0, 1].
// With no history a vector is maximally reversible with itself by
// convention.
func Reversibility(current []float64, history [][]float64) float64 {
	if len(history) == 0 {
		return 1.0
	}
	sum := 0.0
	for _, past := range history {
		sum += normalizedMutualInformation(current, past)
	}
	return clamp01(sum / float64(len(history)))
}

// Redundancy measures how compressible the mass distribution of a dense
// vector is: 1 for all mass on one position, 0 for a uniform spread.
func Redundancy(dense []float64) float64 {
	total := 0.0
	support := 0
	for _, v := range dense {
		if v > 0 {
			total += v
			support++
		}
	}
	if total <= 0 || support == 0 {
		return 0
	}
	if support == 1 {
		return 1
	}
	h := 0.0
	for _, v := range dense {
		if v > 0 {
			p := v / total
			h -= p * math.Log2(p)
		}
	}
	return clamp01(1 - h/math.Log2(float64(support)))
}

// Symmetry measures the evenness of mass about the center of a dense
// vector: 1 for a perfectly mirror-symmetric vector, 0 as all mass piles
// on one side.
func Symmetry(dense []float64) float64 {
	total := 0.0
	for _, v := range dense {
		total += v
	}
	if total <= 0 {
		return 0
	}
	asym := 0.0
	n := len(dense)
	for i := 0; i < n/2; i++ {
		asym += math.Abs(dense[i] - dense[n-1-i])
	}
	return clamp01(1 - asym/total)
}

// BufferingCapacity is the redundancy-plus-symmetry statistic of a dense
// vector. Always non-negative.
func BufferingCapacity(dense []float64) float64 {
	return Redundancy(dense) + Symmetry(dense)
}

// Pressure computes entropy pressure from document age in days, update
// frequency, and trend decay. It grows without bound as age increases;
// the exponent is deliberately positive.
func Pressure(ageDays, updateFrequency, trendDecay float64) float64 {
	return updateFrequency * trendDecay * math.Exp(ageDays)
}

// PersistenceScore composes reversibility, pressure, buffering and
// fragility into a value in (0, 1], or exactly 0 when buffering is
// non-positive.
func PersistenceScore(reversibility, pressure, buffering, fragility float64) float64 {
	if buffering <= 0 {
		return 0
	}
	return math.Exp(-fragility * (1 - reversibility) * (pressure / buffering))
}

// normalizedMutualInformation divides MI by min(H(A), H(B)). A vector
// with zero histogram entropy carries no information to lose, so the pair
// is treated as fully dependent.
func normalizedMutualInformation(a, b []float64) float64 {
	ha := histogramEntropy(a)
	hb := histogramEntropy(b)
	minH := math.Min(ha, hb)
	if minH <= 0 {
		return 1.0
	}
	return clamp01(MutualInformation(a, b) / minH)
}

// histogramEntropy is the Shannon entropy of a vector's quantized values.
func histogramEntropy(dense []float64) float64 {
	if len(dense) == 0 {
		return 0
	}
	counts := make(map[int]int, histogramBins)
	for _, bin := range quantize(dense) {
		counts[bin]++
	}
	total := float64(len(dense))
	h := 0.0
	for _, count := range counts {
		p := float64(count) / total
		h -= p * math.Log2(p)
	}
	return h
}

// quantize maps vector values into equal-width bins over [0, max].
func quantize(dense []float64) []int {
	max := 0.0
	for _, v := range dense {
		if v > max {
			max = v
		}
	}
	bins := make([]int, len(dense))
	if max <= 0 {
		return bins
	}
	for i, v := range dense {
		bin := int(v / max * float64(histogramBins))
		if bin >= histogramBins {
			bin = histogramBins - 1
		}
		if bin < 0 {
			bin = 0
		}
		bins[i] = bin
	}
	return bins
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

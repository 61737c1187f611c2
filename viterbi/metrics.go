package viterbi

import (
	"math"

	"golang.org/x/exp/constraints"
)

// impossible is the quantized metric of a branch whose metric is not finite.
const impossible = math.MaxUint8

// QuantizeMetrics shifts each step of o branch metrics so its minimum is
// zero and truncates the result to 8 bits. Finite values beyond 255 wrap;
// callers scale their metrics so one step's spread fits. +Inf and NaN
// become 255, the largest step a path can take.
func QuantizeMetrics[F constraints.Float](in []F, o int, out []uint8) {
	for k := 0; k+o <= len(in); k += o {
		step := in[k : k+o]
		// NaN never compares lower
		m := F(math.Inf(1))
		for _, v := range step {
			if v < m {
				m = v
			}
		}
		dst := out[k : k+o]
		for j, v := range step {
			d := float64(v - m)
			if math.IsInf(d, 0) || math.IsNaN(d) {
				dst[j] = impossible
				continue
			}
			dst[j] = uint8(int64(d))
		}
	}
}

// shiftMetrics subtracts m from every path metric. Unreachable states stay
// at +Inf.
func shiftMetrics[F constraints.Float](alpha []F, m F) {
	for s := range alpha {
		alpha[s] -= m
	}
}

// indexMax returns the index of the first largest value in v, which must
// not be empty.
func indexMax[F constraints.Float](v []F) int {
	idx := 0
	best := v[0]
	for j, c := range v[1:] {
		if c > best {
			best = c
			idx = j + 1
		}
	}
	return idx
}

// indexMin returns the index of the first smallest value in v.
func indexMin[F constraints.Float](v []F) int {
	idx := 0
	best := v[0]
	for j, c := range v[1:] {
		if c < best {
			best = c
			idx = j + 1
		}
	}
	return idx
}

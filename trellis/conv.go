package trellis

import (
	"errors"
	"fmt"
	"math/bits"
)

// NewConvolutional builds the trellis of a feed-forward binary
// convolutional code with constraint length k and one generator polynomial
// per output bit.
//
// The shift register holds the current input in bit k-1 and the previous
// k-1 inputs below it, oldest in bit 0, so the state is the register shifted
// right by one. The first polynomial produces the most significant bit of
// the output symbol.
func NewConvolutional(k int, polys ...uint) (*FSM, error) {
	if k < 1 || k > 16 {
		return nil, fmt.Errorf("constraint length %d out of range [1,16]", k)
	}
	if len(polys) == 0 || len(polys) > 8 {
		return nil, fmt.Errorf("need between 1 and 8 generator polynomials, got %d", len(polys))
	}
	for _, g := range polys {
		if g == 0 || g >= 1<<k {
			return nil, fmt.Errorf("generator polynomial %#x does not fit constraint length %d", g, k)
		}
	}

	states := 1 << (k - 1)
	ns := make([]int, 0, states*2)
	os := make([]int, 0, states*2)
	for s := 0; s < states; s++ {
		for in := 0; in < 2; in++ {
			reg := uint(in<<(k-1) | s)
			sym := 0
			for _, g := range polys {
				sym = sym<<1 | bits.OnesCount(reg&g)&1
			}
			ns = append(ns, int(reg>>1))
			os = append(os, sym)
		}
	}
	return New(2, states, 1<<len(polys), ns, os)
}

// Encode runs the trellis from state s0 over the given inputs and returns
// the output symbols and the final state.
func (f *FSM) Encode(s0 int, inputs []int) ([]int, int, error) {
	if len(inputs) == 0 {
		return nil, 0, errors.New("empty input not allowed")
	}
	if s0 < 0 || s0 >= f.S {
		return nil, 0, fmt.Errorf("initial state %d out of range [0,%d)", s0, f.S)
	}
	out := make([]int, len(inputs))
	state := s0
	for t, in := range inputs {
		if in < 0 || in >= f.I {
			return nil, 0, fmt.Errorf("input %d at position %d out of range [0,%d)", in, t, f.I)
		}
		out[t] = f.OutputSymbol(state, in)
		state = f.NextState(state, in)
	}
	return out, state, nil
}

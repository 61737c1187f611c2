// Package trellis describes the finite state machine behind a
// convolutional code: states, inputs, output symbols and the transitions
// between them.
package trellis

import (
	"errors"
	"fmt"
)

var (
	ErrEmpty     = errors.New("trellis must have at least one state, input and output symbol")
	ErrTableSize = errors.New("transition table size must be states*inputs")
)

// FSM is an immutable trellis. NS and OS are the forward tables, indexed by
// state*I+input. PS and PI are the reverse adjacency derived from them: for
// each state, the predecessor states and the inputs that lead from them.
type FSM struct {
	I int // inputs per state
	S int // states
	O int // output symbols

	NS []int // next state
	OS []int // output symbol

	PS [][]int // predecessor state
	PI [][]int // predecessor input

	// OrderedOS holds OS[PS[s][j]*I+PI[s][j]] for every state s and
	// predecessor j, flattened in state order.
	OrderedOS []int

	maxPredecessors int
}

// New builds a trellis from its forward tables and derives the reverse
// adjacency.
func New(inputs, states, outputs int, ns, os []int) (*FSM, error) {
	if inputs <= 0 || states <= 0 || outputs <= 0 {
		return nil, ErrEmpty
	}
	if len(ns) != states*inputs || len(os) != states*inputs {
		return nil, fmt.Errorf("%w: got %d next states and %d output symbols for %d states and %d inputs",
			ErrTableSize, len(ns), len(os), states, inputs)
	}
	for k := range ns {
		if ns[k] < 0 || ns[k] >= states {
			return nil, fmt.Errorf("next state %d of state %d input %d out of range [0,%d)", ns[k], k/inputs, k%inputs, states)
		}
		if os[k] < 0 || os[k] >= outputs {
			return nil, fmt.Errorf("output symbol %d of state %d input %d out of range [0,%d)", os[k], k/inputs, k%inputs, outputs)
		}
	}

	f := &FSM{
		I:  inputs,
		S:  states,
		O:  outputs,
		NS: append([]int(nil), ns...),
		OS: append([]int(nil), os...),
	}
	f.generatePSPI()
	return f, nil
}

// generatePSPI walks the forward tables in (state, input) order, so every
// transition lands in exactly one predecessor list and each list is sorted.
func (f *FSM) generatePSPI() {
	f.PS = make([][]int, f.S)
	f.PI = make([][]int, f.S)
	for s := 0; s < f.S; s++ {
		for i := 0; i < f.I; i++ {
			next := f.NS[s*f.I+i]
			f.PS[next] = append(f.PS[next], s)
			f.PI[next] = append(f.PI[next], i)
		}
	}

	f.OrderedOS = make([]int, 0, f.S*f.I)
	f.maxPredecessors = 0
	for s := 0; s < f.S; s++ {
		for j := range f.PS[s] {
			f.OrderedOS = append(f.OrderedOS, f.OS[f.PS[s][j]*f.I+f.PI[s][j]])
		}
		f.maxPredecessors = max(f.maxPredecessors, len(f.PS[s]))
	}
}

func (f *FSM) NextState(state, input int) int {
	return f.NS[state*f.I+input]
}

func (f *FSM) OutputSymbol(state, input int) int {
	return f.OS[state*f.I+input]
}

// Predecessors returns the states and inputs that transition into state.
// The returned slices are shared and must not be modified.
func (f *FSM) Predecessors(state int) (states, inputs []int) {
	return f.PS[state], f.PI[state]
}

// MaxPredecessors is the length of the longest predecessor list.
func (f *FSM) MaxPredecessors() int {
	return f.maxPredecessors
}

func (f FSM) String() string {
	return fmt.Sprintf("FSM{I: %d, S: %d, O: %d}", f.I, f.S, f.O)
}

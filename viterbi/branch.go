package viterbi

import (
	"fmt"
	"log"
	"math"

	"github.com/jancona/lazyviterbi/trellis"
)

var inf = float32(math.Inf(1))

// Branch is a full Viterbi decoder. For each state it scans the incoming
// branches in the trellis's predecessor order, so the add-compare-select is
// a uniform reduction over contiguous slices.
//
// Sign convention: a candidate is the negated cost of reaching a state
// through one branch, -(metric + alpha_prev). The selected branch is the
// one with the largest candidate and the stored path metric is its negation,
// so path metrics stay costs.
type Branch struct {
	block

	// per state, in predecessor order
	ps [][]int
	pi [][]int
	os [][]int

	trace     []int // K*S winning predecessor index, indexed t*S+state
	alphaPrev []float32
	alphaCurr []float32
	can       []float32
}

var _ Decoder = (*Branch)(nil)

// NewBranch returns a branch decoder for blocks of k steps. s0 and sk
// outside the trellis states mean Unconstrained.
func NewBranch(fsm *trellis.FSM, k, s0, sk int) (*Branch, error) {
	b := &Branch{}
	if err := b.init(fsm, k, s0, sk); err != nil {
		return nil, err
	}
	b.setFSM(fsm)
	log.Printf("[DEBUG] branch decoder: %v, K: %d, S0: %d, SK: %d, max predecessors: %d", fsm, b.k, b.s0, b.sk, fsm.MaxPredecessors())
	return b, nil
}

// setFSM slices the trellis's ordered output table per state and sizes the
// path metric vectors.
func (b *Branch) setFSM(fsm *trellis.FSM) {
	b.fsm = fsm
	b.ps = fsm.PS
	b.pi = fsm.PI
	b.os = make([][]int, fsm.S)
	pos := 0
	for s := 0; s < fsm.S; s++ {
		n := len(fsm.PS[s])
		b.os[s] = fsm.OrderedOS[pos : pos+n : pos+n]
		pos += n
	}
	b.alphaPrev = make([]float32, fsm.S)
	b.alphaCurr = make([]float32, fsm.S)
	b.can = make([]float32, fsm.MaxPredecessors())
	b.trace = b.trace[:0]
}

// SetFSM swaps the trellis. S0 and SK are kept if they are still states of
// the new trellis.
func (b *Branch) SetFSM(fsm *trellis.FSM) error {
	if fsm == nil || fsm.S == 0 {
		return ErrEmptyTrellis
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.setFSM(fsm)
	b.s0 = checkState(fsm, b.s0)
	b.sk = checkState(fsm, b.sk)
	return nil
}

// SetK changes the block length.
func (b *Branch) SetK(k int) error {
	if k <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidBlockLength, k)
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.k = k
	return nil
}

func (b *Branch) DecodeBlock(in []float32, out []byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.decodeBlock(in, out, b.decode)
}

func (b *Branch) Work(noutput int, in [][]float32, out [][]byte) (int, error) {
	return b.work(noutput, in, out, b.decode)
}

func (b *Branch) decode(in []float32, out []byte) error {
	S, O, K := b.fsm.S, b.fsm.O, b.k

	if cap(b.trace) < K*S {
		b.trace = make([]int, K*S)
	}
	trace := b.trace[:K*S]
	alphaPrev, alphaCurr := b.alphaPrev, b.alphaCurr

	if b.s0 != Unconstrained {
		for s := range alphaPrev {
			alphaPrev[s] = inf
		}
		alphaPrev[b.s0] = 0
	} else {
		clear(alphaPrev)
	}

	for t := 0; t < K; t++ {
		metrics := in[t*O : (t+1)*O]
		row := trace[t*S : (t+1)*S]
		minMetric := inf

		for s := 0; s < S; s++ {
			ps, os := b.ps[s], b.os[s]
			if len(ps) == 0 {
				alphaCurr[s] = inf
				row[s] = 0
				continue
			}
			can := b.can[:len(ps)]
			for j := range can {
				can[j] = -metrics[os[j]]
			}
			// add
			for j := range can {
				can[j] -= alphaPrev[ps[j]]
			}
			// compare
			idx := indexMax(can)
			// select
			a := -can[idx]
			alphaCurr[s] = a
			row[s] = idx
			minMetric = min(minMetric, a)
		}

		if !math.IsInf(float64(minMetric), 1) {
			shiftMetrics(alphaCurr, minMetric)
		}
		alphaPrev, alphaCurr = alphaCurr, alphaPrev
	}
	b.alphaPrev, b.alphaCurr = alphaPrev, alphaCurr

	// alphaPrev now holds the path metrics after step K
	state := b.sk
	if state == Unconstrained {
		state = indexMin(alphaPrev)
	}
	if math.IsInf(float64(alphaPrev[state]), 1) {
		log.Printf("[DEBUG] branch decoder: SK %d unreachable in %d steps", state, K)
		return ErrNoPath
	}

	// traceback
	for t := K - 1; t >= 0; t-- {
		idx := trace[t*S+state]
		out[t] = byte(b.pi[state][idx])
		state = b.ps[state][idx]
	}
	return nil
}

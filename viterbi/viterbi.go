// Package viterbi finds the maximum-likelihood input sequence of a trellis
// from blocks of branch metrics.
//
// Two decoders solve the same problem:
//
//   - Lazy expands trellis nodes in order of path metric using a 256-bucket
//     queue and stops at the first terminal node, so a clean block touches
//     little more than the winning path.
//   - Branch runs the full add-compare-select recursion over every state,
//     iterating each state's incoming branches as one linear scan.
//
// They return the same symbols when the block has a single cheapest path
// and integer metrics whose spread within a step is below 256. Ties are
// broken differently: Lazy takes the most recently queued node, Branch the
// first predecessor and the first terminal state. Lazy also drops the
// fractional part of every metric, so fractional metrics can make it pick
// a path Branch ranks worse.
//
// Branch metrics are costs: O of them per trellis step, lower is more
// likely. A decoder consumes O*K metrics and produces K input symbols per
// block.
//
// A decoder owns its scratch memory and serializes DecodeBlock, Work and
// the setters with one mutex. Use one decoder per goroutine for parallel
// decoding.
package viterbi

import (
	"errors"
	"fmt"
	"sync"

	"github.com/jancona/lazyviterbi/trellis"
)

// Unconstrained marks a free initial or terminal state.
const Unconstrained = -1

var (
	ErrInvalidBlockLength = errors.New("block length must be positive")
	ErrEmptyTrellis       = errors.New("trellis has no states")
	ErrPartialBlock       = errors.New("output count must be a positive multiple of the block length")
	ErrShortInput         = errors.New("not enough branch metrics")
	ErrShortOutput        = errors.New("output buffer too small")
	ErrNoPath             = errors.New("no path reaches the terminal state")
)

// Decoder is implemented by Lazy and Branch.
type Decoder interface {
	// DecodeBlock decodes one block: O*K branch metrics into K symbols.
	DecodeBlock(in []float32, out []byte) error
	// Work decodes noutput symbols, a multiple of K, from each stream.
	Work(noutput int, in [][]float32, out [][]byte) (int, error)
	// RequiredInputCount is the number of branch metrics needed for noutput
	// symbols.
	RequiredInputCount(noutput int) int
	SetS0(s0 int)
	SetSK(sk int)
	Config() Config
	Stats() Stats
}

// Algorithm names accepted by New.
const (
	AlgorithmLazy   = "lazy"
	AlgorithmBranch = "branch"
)

// New returns a decoder running the named algorithm.
func New(algorithm string, fsm *trellis.FSM, k, s0, sk int) (Decoder, error) {
	switch algorithm {
	case AlgorithmLazy:
		return NewLazy(fsm, k, s0, sk)
	case AlgorithmBranch:
		return NewBranch(fsm, k, s0, sk)
	default:
		return nil, fmt.Errorf("unknown algorithm %q", algorithm)
	}
}

// Config is the per-block decoding configuration.
type Config struct {
	K  int // block length in trellis steps
	S0 int // initial state or Unconstrained
	SK int // terminal state or Unconstrained
}

// Stats are cumulative counters of a decoder.
type Stats struct {
	Blocks        uint64 // blocks decoded
	NodesExpanded uint64 // trellis nodes expanded (Lazy only)
	Failures      uint64 // blocks that returned an error
}

// block holds what both decoders share: the trellis, the configuration and
// the lock guarding them and the decoder's scratch memory.
type block struct {
	mu    sync.Mutex
	fsm   *trellis.FSM
	k     int
	s0    int
	sk    int
	stats Stats
}

func (b *block) init(fsm *trellis.FSM, k, s0, sk int) error {
	if k <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidBlockLength, k)
	}
	if fsm == nil || fsm.S == 0 {
		return ErrEmptyTrellis
	}
	b.fsm = fsm
	b.k = k
	b.s0 = checkState(fsm, s0)
	b.sk = checkState(fsm, sk)
	return nil
}

// checkState maps anything that is not a state of the trellis to
// Unconstrained.
func checkState(fsm *trellis.FSM, s int) int {
	if s < 0 || s >= fsm.S {
		return Unconstrained
	}
	return s
}

func (b *block) SetS0(s0 int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.s0 = checkState(b.fsm, s0)
}

func (b *block) SetSK(sk int) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sk = checkState(b.fsm, sk)
}

func (b *block) Config() Config {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Config{K: b.k, S0: b.s0, SK: b.sk}
}

func (b *block) Stats() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.stats
}

// FSM returns the trellis the decoder is using.
func (b *block) FSM() *trellis.FSM {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fsm
}

func (b *block) RequiredInputCount(noutput int) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fsm.O * noutput
}

// decodeBlock checks buffer sizes and runs decode on one block. The caller
// holds the lock.
func (b *block) decodeBlock(in []float32, out []byte, decode func([]float32, []byte) error) error {
	nin := b.fsm.O * b.k
	if len(in) < nin {
		return fmt.Errorf("%w: have %d, need %d", ErrShortInput, len(in), nin)
	}
	if len(out) < b.k {
		return fmt.Errorf("%w: have %d, need %d", ErrShortOutput, len(out), b.k)
	}
	err := decode(in[:nin], out[:b.k])
	b.stats.Blocks++
	if err != nil {
		b.stats.Failures++
	}
	return err
}

// work decodes noutput/K blocks from every stream in turn.
func (b *block) work(noutput int, in [][]float32, out [][]byte, decode func([]float32, []byte) error) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if noutput <= 0 || noutput%b.k != 0 {
		return 0, fmt.Errorf("%w: %d with K=%d", ErrPartialBlock, noutput, b.k)
	}
	if len(in) != len(out) {
		return 0, fmt.Errorf("%d input streams but %d output streams", len(in), len(out))
	}
	nin := b.fsm.O * b.k
	for m := range in {
		if len(in[m]) < noutput*b.fsm.O {
			return 0, fmt.Errorf("stream %d: %w: have %d, need %d", m, ErrShortInput, len(in[m]), noutput*b.fsm.O)
		}
		if len(out[m]) < noutput {
			return 0, fmt.Errorf("stream %d: %w: have %d, need %d", m, ErrShortOutput, len(out[m]), noutput)
		}
		for n := 0; n < noutput/b.k; n++ {
			err := b.decodeBlock(in[m][n*nin:(n+1)*nin], out[m][n*b.k:(n+1)*b.k], decode)
			if err != nil {
				return 0, fmt.Errorf("stream %d block %d: %w", m, n, err)
			}
		}
	}
	return noutput, nil
}

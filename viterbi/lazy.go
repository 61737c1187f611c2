package viterbi

import (
	"log"

	"github.com/jancona/lazyviterbi/trellis"
)

// node is a trellis node (time, state) of the lazy search. It is written
// once, when it is expanded.
type node struct {
	prevState int32
	prevInput int32
	expanded  bool
}

// Lazy is a shortest-path decoder that expands trellis nodes in increasing
// order of path metric and stops as soon as a terminal node is expanded.
//
// Branch metrics are shifted per step and truncated to 8 bits before the
// search, so only their integer part matters.
type Lazy struct {
	block

	nodes    []node  // (K+1)*S, indexed time*S+state
	metrics  []uint8 // K*O quantized branch metrics
	queue    bucketQueue
	expanded uint64 // nodes expanded in the current block
}

var _ Decoder = (*Lazy)(nil)

// NewLazy returns a lazy decoder for blocks of k steps. s0 and sk outside
// the trellis states mean Unconstrained.
func NewLazy(fsm *trellis.FSM, k, s0, sk int) (*Lazy, error) {
	l := &Lazy{}
	if err := l.init(fsm, k, s0, sk); err != nil {
		return nil, err
	}
	l.nodes = make([]node, (k+1)*fsm.S)
	l.metrics = make([]uint8, k*fsm.O)
	log.Printf("[DEBUG] lazy decoder: %v, K: %d, S0: %d, SK: %d", fsm, l.k, l.s0, l.sk)
	return l, nil
}

func (l *Lazy) DecodeBlock(in []float32, out []byte) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.decodeBlock(in, out, l.decode)
}

func (l *Lazy) Work(noutput int, in [][]float32, out [][]byte) (int, error) {
	return l.work(noutput, in, out, l.decode)
}

func (l *Lazy) decode(in []float32, out []byte) error {
	defer l.reset()

	var (
		fsm = l.fsm
		I   = fsm.I
		S   = int32(fsm.S)
		O   = fsm.O
		K   = int32(l.k)
	)

	if l.s0 != Unconstrained {
		l.queue.push(0, shadowNode{state: int32(l.s0), prevInput: -1})
	} else {
		for s := int32(0); s < S; s++ {
			l.queue.push(0, shadowNode{state: s, prevInput: -1})
		}
	}

	QuantizeMetrics(in, O, l.metrics)

	var cur shadowNode
	for {
		var (
			n  *node
			ok bool
		)
		// Skip stale entries: a node can be queued once per incoming
		// branch, only its first pop carries the smallest metric.
		for {
			cur, ok = l.queue.pop()
			if !ok {
				log.Printf("[DEBUG] lazy decoder: queue exhausted after %d nodes, SK: %d", l.expanded, l.sk)
				return ErrNoPath
			}
			n = &l.nodes[cur.time*S+cur.state]
			if !n.expanded {
				break
			}
		}
		n.expanded = true
		n.prevState = cur.prevState
		n.prevInput = cur.prevInput
		l.expanded++

		if cur.time == K {
			if l.sk == Unconstrained || cur.state == int32(l.sk) {
				break
			}
			continue
		}

		next := l.nodes[(cur.time+1)*S : (cur.time+2)*S]
		metrics := l.metrics[int(cur.time)*O : int(cur.time+1)*O]
		ns := fsm.NS[int(cur.state)*I : int(cur.state+1)*I]
		os := fsm.OS[int(cur.state)*I : int(cur.state+1)*I]
		for i := range ns {
			if !next[ns[i]].expanded {
				l.queue.push(metrics[os[i]], shadowNode{
					time:      cur.time + 1,
					state:     int32(ns[i]),
					prevState: cur.state,
					prevInput: int32(i),
				})
			}
		}
	}

	// traceback
	prevState, prevInput := cur.prevState, cur.prevInput
	for t := K - 1; t >= 0; t-- {
		out[t] = byte(prevInput)
		n := l.nodes[t*S+prevState]
		prevState, prevInput = n.prevState, n.prevInput
	}
	return nil
}

// reset clears the queue and every node so the next block starts from
// scratch without reallocating.
func (l *Lazy) reset() {
	l.queue.reset()
	clear(l.nodes)
	l.stats.NodesExpanded += l.expanded
	l.expanded = 0
}

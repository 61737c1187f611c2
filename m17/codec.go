package m17

import (
	"errors"
	"fmt"
	"math"

	"github.com/icza/gog"
	"github.com/jancona/lazyviterbi/trellis"
	"github.com/jancona/lazyviterbi/viterbi"
)

const (
	ConvolutionK      = 5                         //constraint length K=5
	ConvolutionStates = (1 << (ConvolutionK - 1)) //number of states of the convolutional encoder

	// Generator polynomials, current input in bit 4:
	// G1 = 1 + D^3 + D^4, G2 = 1 + D + D^2 + D^4
	PolyG1 = 0x13
	PolyG2 = 0x1d

	flushBits = ConvolutionK - 1
)

const (
	PacketModeFinalBit = 5 // use 6 bits of final byte
	LSFFinalBit        = 7 // use entire final byte
)

// soft value of a punctured bit
const softMaybe = 0.5

// DefaultMetricScale maps the soft distance of one step, at most 2, into
// [0,128], which the lazy decoder quantizes without wrapping.
const DefaultMetricScale = 64

// Symbol is a soft bit: 0 is a certain zero, 1 a certain one.
type Symbol float32

type PuncturePattern []bool

var LSFPuncturePattern = PuncturePattern{
	true, true, false, true, true, true, false, true,
	true, true, false, true, true, true, false, true,
	true, true, false, true, true, true, false, true,
	true, true, false, true, true, true, false, true,
	true, true, false, true, true, true, false, true,
	true, true, false, true, true, true, false, true,
	true, true, false, true, true, true, false, true,
	true, true, false, true, true,
}

var StreamPuncturePattern = PuncturePattern{true, true, true, true, true, true, true, true, true, true, true, false}

var PacketPuncturePattern = PuncturePattern{true, true, true, true, true, true, true, false}

var m17Trellis = gog.Must(trellis.NewConvolutional(ConvolutionK, PolyG1, PolyG2))

// Trellis returns the trellis of the M17 convolutional code: 16 states,
// one input bit and a two bit output symbol (G1 output in the high bit).
func Trellis() *trellis.FSM {
	return m17Trellis
}

// Frame describes one convolutionally coded frame type.
type Frame struct {
	Name      string
	Pattern   PuncturePattern
	Bits      int // payload bits, before the flush bits
	Punctured int // soft bits on air
}

var (
	LSFFrame    = Frame{"lsf", LSFPuncturePattern, 240, 368}
	StreamFrame = Frame{"stream", StreamPuncturePattern, 144, 272}
	PacketFrame = Frame{"packet", PacketPuncturePattern, 206, 368}
)

// Steps is the trellis block length of the frame.
func (f Frame) Steps() int {
	return f.Bits + flushBits
}

// ConvolutionalEncode takes a slice of bytes and a puncture pattern and returns
// a slice of bool with each element representing one bit in the encoded message
//
// in 				Input bytes
// puncturePattern 	the puncture pattern to use, nil for none
// finalBit 		The last bit of the final byte to encode. A number between 0 and 7. (That is, the number of bits from the last byte to use minus one.)
func ConvolutionalEncode(in []byte, puncturePattern PuncturePattern, finalBit byte) ([]bool, error) {
	if len(in) == 0 {
		return nil, errors.New("empty input not allowed")
	}
	if finalBit > 7 {
		return nil, errors.New("finalBits must be between 0 and 7")
	}
	inputs := make([]int, 0, 8*len(in)+flushBits)
	for i, byt := range in {
		for j := 0; j < 8; j++ {
			if i < len(in)-1 || j <= int(finalBit) {
				inputs = append(inputs, int(byt>>(7-j))&1)
			}
		}
	}
	inputs = append(inputs, make([]int, flushBits)...)

	symbols, _, err := m17Trellis.Encode(0, inputs)
	if err != nil {
		return nil, err
	}
	out := make([]bool, 0, 2*len(symbols))
	p := 0
	for _, sym := range symbols {
		for _, bit := range []bool{sym&2 != 0, sym&1 != 0} {
			if puncturePattern == nil || puncturePattern[p] {
				out = append(out, bit)
			}
			if puncturePattern != nil {
				p = (p + 1) % len(puncturePattern)
			}
		}
	}
	return out, nil
}

// Depuncture reinserts the bits removed by the puncture pattern as
// softMaybe. It stops as soon as the punctured input is used up.
func Depuncture(puncturedSoftBits []Symbol, puncturePattern PuncturePattern) []Symbol {
	softBits := make([]Symbol, 0, 2*len(puncturedSoftBits))
	p := 0
	for i := 0; i < len(puncturedSoftBits); {
		if puncturePattern[p] {
			softBits = append(softBits, puncturedSoftBits[i])
			i++
		} else {
			softBits = append(softBits, softMaybe)
		}
		p++
		p %= len(puncturePattern)
	}
	return softBits
}

// BranchMetrics converts pairs of soft bits into the costs of the four
// output symbols of each trellis step: scale * (|b1-s0| + |b2-s1|) for
// symbol b1b2. An odd trailing soft bit is ignored.
func BranchMetrics(softBits []Symbol, scale float32, out []float32) []float32 {
	out = out[:0]
	for i := 0; i+1 < len(softBits); i += 2 {
		sb0 := float64(softBits[i])
		sb1 := float64(softBits[i+1])
		for sym := 0; sym < 4; sym++ {
			b1 := float64(sym >> 1)
			b2 := float64(sym & 1)
			out = append(out, scale*float32(math.Abs(b1-sb0)+math.Abs(b2-sb1)))
		}
	}
	return out
}

// FrameDecoder decodes one frame type with a trellis decoder that starts
// and ends in state 0.
type FrameDecoder struct {
	frame   Frame
	dec     viterbi.Decoder
	scale   float32
	metrics []float32
	symbols []byte
}

// NewFrameDecoder uses the named viterbi algorithm. A scale <= 0 means
// DefaultMetricScale.
func NewFrameDecoder(frame Frame, algorithm string, scale float32) (*FrameDecoder, error) {
	dec, err := viterbi.New(algorithm, m17Trellis, frame.Steps(), 0, 0)
	if err != nil {
		return nil, fmt.Errorf("%s frame decoder: %w", frame.Name, err)
	}
	if scale <= 0 {
		scale = DefaultMetricScale
	}
	return &FrameDecoder{
		frame:   frame,
		dec:     dec,
		scale:   scale,
		symbols: make([]byte, frame.Steps()),
	}, nil
}

func (d *FrameDecoder) Frame() Frame {
	return d.frame
}

func (d *FrameDecoder) Stats() viterbi.Stats {
	return d.dec.Stats()
}

// Decode decodes the punctured soft bits of one frame. It returns the
// payload bits packed MSB first, the last byte zero padded, and the soft
// distance between the received bits and the re-encoded payload.
func (d *FrameDecoder) Decode(puncturedSoftBits []Symbol) ([]byte, float64, error) {
	if len(puncturedSoftBits) != d.frame.Punctured {
		return nil, 0, fmt.Errorf("%s frame: got %d soft bits, want %d", d.frame.Name, len(puncturedSoftBits), d.frame.Punctured)
	}
	softBits := Depuncture(puncturedSoftBits, d.frame.Pattern)
	if len(softBits) != 2*d.frame.Steps() {
		return nil, 0, fmt.Errorf("%s frame: %d soft bits after depuncturing, want %d", d.frame.Name, len(softBits), 2*d.frame.Steps())
	}
	d.metrics = BranchMetrics(softBits, d.scale, d.metrics)
	if err := d.dec.DecodeBlock(d.metrics, d.symbols); err != nil {
		return nil, 0, fmt.Errorf("%s frame: %w", d.frame.Name, err)
	}
	// log.Printf("[DEBUG] %s frame symbols: %v", d.frame.Name, d.symbols)

	out := make([]byte, (d.frame.Bits+7)/8)
	for i, b := range d.symbols[:d.frame.Bits] {
		if b != 0 {
			out[i/8] |= 1 << (7 - i%8)
		}
	}
	return out, d.distance(softBits), nil
}

// distance re-encodes the decoded symbols and sums the soft distance over
// the bits that were actually received.
func (d *FrameDecoder) distance(softBits []Symbol) float64 {
	inputs := make([]int, len(d.symbols))
	for i, b := range d.symbols {
		inputs[i] = int(b)
	}
	symbols, _, err := m17Trellis.Encode(0, inputs)
	if err != nil {
		return math.Inf(1)
	}
	var e float64
	p := 0
	for i, sym := range symbols {
		for j, bit := range []int{sym >> 1, sym & 1} {
			if d.frame.Pattern[p] {
				e += math.Abs(float64(bit) - float64(softBits[2*i+j]))
			}
			p++
			p %= len(d.frame.Pattern)
		}
	}
	return e
}

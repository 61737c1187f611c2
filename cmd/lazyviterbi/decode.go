package main

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"log"

	"github.com/jancona/lazyviterbi/m17"
	"github.com/jancona/lazyviterbi/viterbi"
)

type streamStats struct {
	viterbi.Stats
	Frames      uint64
	CRCFailures uint64
}

// readFloats fills buf with little endian float32 values. It returns io.EOF
// at a clean end of input and io.ErrUnexpectedEOF after a partial read.
func readFloats(r io.Reader, buf []float32) error {
	return binary.Read(r, binary.LittleEndian, buf)
}

// blockStream decodes a stream of generic branch metric blocks.
type blockStream struct {
	dec viterbi.Decoder
	o   int
	k   int
}

func (s *blockStream) decode(in io.Reader, out io.Writer) error {
	r := bufio.NewReader(in)
	w := bufio.NewWriter(out)
	metrics := make([]float32, s.o*s.k)
	symbols := make([]byte, s.k)
	for n := 0; ; n++ {
		err := readFloats(r, metrics)
		if err == io.EOF {
			break
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			log.Printf("[INFO] Dropping partial block %d", n)
			break
		}
		if err != nil {
			return fmt.Errorf("reading block %d: %w", n, err)
		}
		if err := s.dec.DecodeBlock(metrics, symbols); err != nil {
			log.Printf("[ERROR] Block %d: %v", n, err)
			continue
		}
		if _, err := w.Write(symbols); err != nil {
			return err
		}
	}
	return w.Flush()
}

func (s *blockStream) stats() streamStats {
	return streamStats{Stats: s.dec.Stats()}
}

// frameStream decodes a stream of M17 frames of one type. LSF frames carry
// their own CRC. Packet frames are reassembled and the CRC checked at the
// end of each packet.
type frameStream struct {
	dec         *m17.FrameDecoder
	packet      []byte
	frames      uint64
	crcFailures uint64
}

func (s *frameStream) decode(in io.Reader, out io.Writer) error {
	frame := s.dec.Frame()
	r := bufio.NewReader(in)
	w := bufio.NewWriter(out)
	raw := make([]float32, frame.Punctured)
	soft := make([]m17.Symbol, frame.Punctured)
	for n := 0; ; n++ {
		err := readFloats(r, raw)
		if err == io.EOF {
			break
		}
		if errors.Is(err, io.ErrUnexpectedEOF) {
			log.Printf("[INFO] Dropping partial %s frame %d", frame.Name, n)
			break
		}
		if err != nil {
			return fmt.Errorf("reading %s frame %d: %w", frame.Name, n, err)
		}
		for i, v := range raw {
			soft[i] = m17.Symbol(v)
		}
		data, dist, err := s.dec.Decode(soft)
		if err != nil {
			log.Printf("[ERROR] Frame %d: %v", n, err)
			continue
		}
		s.frames++
		log.Printf("[DEBUG] %s frame %d: %x, distance %.2f", frame.Name, n, data, dist)
		s.check(frame, data)
		if _, err := w.Write(data); err != nil {
			return err
		}
	}
	if len(s.packet) > 0 {
		log.Printf("[INFO] Input ended inside a %d byte packet", len(s.packet))
	}
	return w.Flush()
}

func (s *frameStream) check(frame m17.Frame, data []byte) {
	switch frame.Name {
	case m17.LSFFrame.Name:
		lsf, err := m17.ParseLSF(data)
		if errors.Is(err, m17.ErrBadCRC) {
			s.crcFailures++
		}
		if err != nil {
			log.Printf("[INFO] Bad LSF %x: %v", data, err)
			return
		}
		log.Printf("[INFO] LSF %s -> %s, type %#04x", lsf.Src, lsf.Dst, lsf.Type)
	case m17.PacketFrame.Name:
		pf, err := m17.ParsePacketFrame(data)
		if err != nil {
			log.Printf("[INFO] Bad packet frame: %v", err)
			s.packet = s.packet[:0]
			return
		}
		s.packet = append(s.packet, pf.Data...)
		if !pf.EOF {
			return
		}
		if m17.CheckCRC(s.packet) {
			log.Printf("[DEBUG] Packet: %x", s.packet)
		} else {
			s.crcFailures++
			log.Printf("[INFO] Bad packet CRC: %x", s.packet)
		}
		s.packet = s.packet[:0]
	}
}

func (s *frameStream) stats() streamStats {
	return streamStats{
		Stats:       s.dec.Stats(),
		Frames:      s.frames,
		CRCFailures: s.crcFailures,
	}
}

package main

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics collects decoder counters from every input for -metrics.
type metrics struct {
	reg           *prometheus.Registry
	blocks        prometheus.Counter
	failures      prometheus.Counter
	nodesExpanded prometheus.Counter
	frames        prometheus.Counter
	crcFailures   prometheus.Counter
}

func newMetrics(algorithm string) *metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	labels := prometheus.Labels{"algorithm": algorithm}
	counter := func(name, help string) prometheus.Counter {
		return f.NewCounter(prometheus.CounterOpts{
			Namespace:   "lazyviterbi",
			Name:        name,
			Help:        help,
			ConstLabels: labels,
		})
	}
	return &metrics{
		reg:           reg,
		blocks:        counter("blocks_total", "Blocks decoded."),
		failures:      counter("block_failures_total", "Blocks that failed to decode."),
		nodesExpanded: counter("nodes_expanded_total", "Trellis nodes expanded by the lazy decoder."),
		frames:        counter("m17_frames_total", "M17 frames decoded."),
		crcFailures:   counter("m17_crc_failures_total", "M17 LSFs and packets with a bad CRC."),
	}
}

func (m *metrics) record(d streamDecoder) {
	st := d.stats()
	m.blocks.Add(float64(st.Blocks))
	m.failures.Add(float64(st.Failures))
	m.nodesExpanded.Add(float64(st.NodesExpanded))
	m.frames.Add(float64(st.Frames))
	m.crcFailures.Add(float64(st.CRCFailures))
}

// writeTextfile writes the counters in the text exposition format, for the
// node exporter textfile collector.
func (m *metrics) writeTextfile(path string) error {
	return prometheus.WriteToTextfile(path, m.reg)
}

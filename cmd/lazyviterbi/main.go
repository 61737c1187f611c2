// Command lazyviterbi decodes blocks of branch metrics, or M17 soft bits,
// into trellis input symbols.
//
// Generic mode reads little endian float32 branch metrics, O per trellis
// step and K steps per block, and writes one byte per decoded symbol.
// With -m17 it reads float32 soft bits of one frame type and writes the
// decoded frame bytes.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/hashicorp/logutils"
	"golang.org/x/sync/errgroup"

	"github.com/jancona/lazyviterbi/m17"
	"github.com/jancona/lazyviterbi/trellis"
	"github.com/jancona/lazyviterbi/viterbi"
)

var (
	configArg    *string  = flag.String("config", "", "INI configuration file")
	trellisArg   *string  = flag.String("trellis", "", "YAML trellis description (default M17 convolutional code)")
	algorithmArg *string  = flag.String("algorithm", viterbi.AlgorithmLazy, "Decoder algorithm: lazy or branch")
	kArg         *int     = flag.Int("k", 0, "Block length in trellis steps (required unless -m17)")
	s0Arg        *int     = flag.Int("s0", viterbi.Unconstrained, "Initial state, -1 for unconstrained")
	skArg        *int     = flag.Int("sk", viterbi.Unconstrained, "Terminal state, -1 for unconstrained")
	m17Arg       *string  = flag.String("m17", "", "Decode M17 frames of this type: lsf, packet or stream")
	scaleArg     *float64 = flag.Float64("scale", m17.DefaultMetricScale, "Soft bit metric scale for -m17")
	outArg       *string  = flag.String("out", "", "Output file (default stdout); with several inputs, each input's output goes to <input>.out")
	metricsArg   *string  = flag.String("metrics", "", "Write decoder counters in Prometheus text format to this file")
	isDebugArg   *bool    = flag.Bool("debug", false, "Emit debug log messages")
	logDestArg   *string  = flag.String("log", "", "Device/file for log (default stderr)")
	helpArg      *bool    = flag.Bool("h", false, "Print arguments")
)

func main() {
	flag.Parse()

	if *helpArg {
		flag.Usage()
		return
	}

	cfg, err := loadConfig(*configArg)
	if err != nil {
		log.Fatalf("Error loading configuration: %v", err)
	}
	cfg.applyFlags()
	setupLogging(cfg.Debug)
	log.Printf("[DEBUG] config: %#v", cfg)

	newDecoder, err := cfg.decoderFactory()
	if err != nil {
		flag.Usage()
		log.Fatalf("Error configuring decoder: %v", err)
	}

	m := newMetrics(cfg.Algorithm)
	err = run(flag.Args(), *outArg, newDecoder, m)
	if *metricsArg != "" {
		if werr := m.writeTextfile(*metricsArg); werr != nil {
			log.Printf("[ERROR] Error writing metrics to %s: %v", *metricsArg, werr)
		}
	}
	if err != nil {
		log.Fatalf("Error decoding: %v", err)
	}
}

func setupLogging(debug bool) {
	var err error
	minLogLevel := "INFO"
	if debug {
		minLogLevel = "DEBUG"
	}
	logWriter := os.Stderr
	if *logDestArg != "" {
		logWriter, err = os.OpenFile(*logDestArg, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			log.Fatalf("Error opening log output, exiting: %v", err)
		}
	}

	filter := &logutils.LevelFilter{
		Levels:   []logutils.LogLevel{"DEBUG", "INFO", "ERROR"},
		MinLevel: logutils.LogLevel(minLogLevel),
		Writer:   logWriter,
	}
	log.SetOutput(filter)
	log.Print("[DEBUG] Debug is on")
}

// streamDecoder decodes one input into one output.
type streamDecoder interface {
	decode(in io.Reader, out io.Writer) error
	stats() streamStats
}

// decoderFactory returns a constructor for per-input decoders, so every
// goroutine owns its own decoder.
func (c config) decoderFactory() (func() (streamDecoder, error), error) {
	if c.M17Frame != "" {
		frame, err := m17FrameByName(c.M17Frame)
		if err != nil {
			return nil, err
		}
		// fail early on a bad algorithm name
		if _, err := m17.NewFrameDecoder(frame, c.Algorithm, float32(c.Scale)); err != nil {
			return nil, err
		}
		return func() (streamDecoder, error) {
			fd, err := m17.NewFrameDecoder(frame, c.Algorithm, float32(c.Scale))
			if err != nil {
				return nil, err
			}
			return &frameStream{dec: fd}, nil
		}, nil
	}

	fsm := m17.Trellis()
	if c.Trellis != "" {
		var err error
		fsm, err = trellis.LoadFile(c.Trellis)
		if err != nil {
			return nil, err
		}
	}
	if _, err := viterbi.New(c.Algorithm, fsm, c.K, c.S0, c.SK); err != nil {
		return nil, err
	}
	log.Printf("[INFO] Decoding %v with %s, K: %d, S0: %d, SK: %d", fsm, c.Algorithm, c.K, c.S0, c.SK)
	return func() (streamDecoder, error) {
		dec, err := viterbi.New(c.Algorithm, fsm, c.K, c.S0, c.SK)
		if err != nil {
			return nil, err
		}
		return &blockStream{dec: dec, o: fsm.O, k: c.K}, nil
	}, nil
}

func m17FrameByName(name string) (m17.Frame, error) {
	for _, f := range []m17.Frame{m17.LSFFrame, m17.PacketFrame, m17.StreamFrame} {
		if f.Name == name {
			return f, nil
		}
	}
	return m17.Frame{}, fmt.Errorf("unknown M17 frame type '%s'", name)
}

// run decodes each input file concurrently, or stdin when there are none.
func run(inputs []string, out string, newDecoder func() (streamDecoder, error), m *metrics) error {
	if len(inputs) == 0 {
		return decodeFile("", out, newDecoder, m)
	}
	if len(inputs) == 1 {
		return decodeFile(inputs[0], out, newDecoder, m)
	}
	if out != "" {
		log.Printf("[INFO] Ignoring -out with %d inputs, writing <input>.out", len(inputs))
	}
	var g errgroup.Group
	for _, in := range inputs {
		g.Go(func() error {
			return decodeFile(in, in+".out", newDecoder, m)
		})
	}
	return g.Wait()
}

func decodeFile(inName, outName string, newDecoder func() (streamDecoder, error), m *metrics) error {
	dec, err := newDecoder()
	if err != nil {
		return err
	}
	in, out := os.Stdin, os.Stdout
	if inName != "" {
		in, err = os.Open(inName)
		if err != nil {
			return fmt.Errorf("failed to open input '%s': %w", inName, err)
		}
		defer in.Close()
	}
	if outName != "" {
		out, err = os.Create(outName)
		if err != nil {
			return fmt.Errorf("failed to open output '%s': %w", outName, err)
		}
		defer out.Close()
	}

	err = dec.decode(in, out)
	m.record(dec)
	if err != nil {
		return fmt.Errorf("%s: %w", in.Name(), err)
	}
	return nil
}

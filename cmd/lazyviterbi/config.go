package main

import (
	"flag"
	"fmt"

	"gopkg.in/ini.v1"

	"github.com/jancona/lazyviterbi/m17"
	"github.com/jancona/lazyviterbi/viterbi"
)

// config is the merged INI file and command line configuration. Flags that
// are set on the command line win.
type config struct {
	Trellis   string
	Algorithm string
	K         int
	S0        int
	SK        int
	M17Frame  string
	Scale     float64
	Debug     bool
}

func defaultConfig() config {
	return config{
		Algorithm: viterbi.AlgorithmLazy,
		S0:        viterbi.Unconstrained,
		SK:        viterbi.Unconstrained,
		Scale:     m17.DefaultMetricScale,
	}
}

// loadConfig reads an INI file like
//
//	[decoder]
//	trellis = m17.yaml
//	algorithm = branch
//	k = 244
//	s0 = 0
//	sk = 0
//
//	[m17]
//	frame = lsf
//	scale = 64
//
//	[log]
//	debug = true
//
// An empty name returns the defaults.
func loadConfig(name string) (config, error) {
	if name == "" {
		return defaultConfig(), nil
	}
	return parseConfig(name)
}

// parseConfig accepts anything ini.Load does: a file name or the file
// contents as []byte.
func parseConfig(source any) (config, error) {
	c := defaultConfig()
	f, err := ini.Load(source)
	if err != nil {
		return c, fmt.Errorf("failed to parse configuration: %w", err)
	}
	dec := f.Section("decoder")
	c.Trellis = dec.Key("trellis").MustString(c.Trellis)
	c.Algorithm = dec.Key("algorithm").MustString(c.Algorithm)
	c.K = dec.Key("k").MustInt(c.K)
	c.S0 = dec.Key("s0").MustInt(c.S0)
	c.SK = dec.Key("sk").MustInt(c.SK)

	m := f.Section("m17")
	c.M17Frame = m.Key("frame").MustString(c.M17Frame)
	c.Scale = m.Key("scale").MustFloat64(c.Scale)

	c.Debug = f.Section("log").Key("debug").MustBool(c.Debug)
	return c, nil
}

func (c *config) applyFlags() {
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "trellis":
			c.Trellis = *trellisArg
		case "algorithm":
			c.Algorithm = *algorithmArg
		case "k":
			c.K = *kArg
		case "s0":
			c.S0 = *s0Arg
		case "sk":
			c.SK = *skArg
		case "m17":
			c.M17Frame = *m17Arg
		case "scale":
			c.Scale = *scaleArg
		case "debug":
			c.Debug = *isDebugArg
		}
	})
}

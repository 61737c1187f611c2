package trellis

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Description is the on-disk form of a trellis. Either the explicit tables
// or the Convolutional block must be set.
//
//	inputs: 2
//	states: 2
//	outputs: 4
//	next_state:    [0, 1, 0, 1]
//	output_symbol: [0, 3, 1, 2]
//
// or
//
//	convolutional:
//	  k: 5
//	  polynomials: [0x13, 0x1d]
type Description struct {
	Inputs       int   `yaml:"inputs"`
	States       int   `yaml:"states"`
	Outputs      int   `yaml:"outputs"`
	NextState    []int `yaml:"next_state"`
	OutputSymbol []int `yaml:"output_symbol"`

	Convolutional *struct {
		K           int    `yaml:"k"`
		Polynomials []uint `yaml:"polynomials"`
	} `yaml:"convolutional"`
}

// Build turns the description into a trellis.
func (d Description) Build() (*FSM, error) {
	if d.Convolutional != nil {
		if d.NextState != nil || d.OutputSymbol != nil {
			return nil, errors.New("trellis description has both tables and a convolutional code")
		}
		return NewConvolutional(d.Convolutional.K, d.Convolutional.Polynomials...)
	}
	return New(d.Inputs, d.States, d.Outputs, d.NextState, d.OutputSymbol)
}

// Load reads a YAML trellis description.
func Load(r io.Reader) (*FSM, error) {
	var d Description
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("failed to parse trellis description: %w", err)
	}
	return d.Build()
}

func LoadFile(name string) (*FSM, error) {
	f, err := os.Open(name)
	if err != nil {
		return nil, fmt.Errorf("failed to open trellis '%s': %w", name, err)
	}
	defer f.Close()
	fsm, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}
	return fsm, nil
}

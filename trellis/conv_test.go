package trellis

import (
	"math/rand"
	"reflect"
	"testing"
)

// m17Reference is the M17 encoder written directly as two parity sums over
// a bit window, with four leading zero bits.
func m17Reference(in []int) []int {
	u := append(make([]int, 4), in...)
	out := make([]int, 0, len(in))
	for i := range len(u) - 4 {
		g1 := (u[i+4] + u[i+1] + u[i+0]) % 2
		g2 := (u[i+4] + u[i+3] + u[i+2] + u[i+0]) % 2
		out = append(out, g1<<1|g2)
	}
	return out
}

func TestNewConvolutional(t *testing.T) {
	tests := []struct {
		name    string
		k       int
		polys   []uint
		wantS   int
		wantO   int
		wantErr bool
	}{
		{"m17", 5, []uint{0x13, 0x1d}, 16, 4, false},
		{"k3 rate 1/3", 3, []uint{7, 5, 3}, 4, 8, false},
		{"k1", 1, []uint{1}, 1, 2, false},
		{"no polynomials", 5, nil, 0, 0, true},
		{"polynomial too wide", 3, []uint{0x13}, 0, 0, true},
		{"zero polynomial", 3, []uint{0}, 0, 0, true},
		{"bad k", 0, []uint{1}, 0, 0, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := NewConvolutional(tt.k, tt.polys...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("NewConvolutional() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil {
				return
			}
			if f.S != tt.wantS || f.O != tt.wantO || f.I != 2 {
				t.Errorf("NewConvolutional() = %v, want S=%d O=%d", f, tt.wantS, tt.wantO)
			}
		})
	}
}

func TestEncodeM17(t *testing.T) {
	f, err := NewConvolutional(5, 0x13, 0x1d)
	if err != nil {
		t.Fatal(err)
	}
	r := rand.New(rand.NewSource(5))
	for n := 0; n < 20; n++ {
		in := make([]int, 8+r.Intn(64))
		for i := range in {
			in[i] = r.Intn(2)
		}
		// flush bits
		in = append(in, 0, 0, 0, 0)
		got, final, err := f.Encode(0, in)
		if err != nil {
			t.Fatal(err)
		}
		if want := m17Reference(in); !reflect.DeepEqual(got, want) {
			t.Errorf("Encode() = %v, want %v", got, want)
		}
		if final != 0 {
			t.Errorf("Encode() final state = %d after flush, want 0", final)
		}
	}
}

func TestEncodeErrors(t *testing.T) {
	f, err := NewConvolutional(3, 7, 5)
	if err != nil {
		t.Fatal(err)
	}
	if _, _, err := f.Encode(0, nil); err == nil {
		t.Error("Encode(empty) returned no error")
	}
	if _, _, err := f.Encode(4, []int{0}); err == nil {
		t.Error("Encode() with bad initial state returned no error")
	}
	if _, _, err := f.Encode(0, []int{0, 2}); err == nil {
		t.Error("Encode() with bad input returned no error")
	}
}

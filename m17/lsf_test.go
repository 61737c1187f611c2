package m17

import (
	"bytes"
	"errors"
	"testing"
)

func TestEncodeCallsign(t *testing.T) {
	tests := []struct {
		callsign string
		want     []byte
		wantErr  bool
	}{
		{"N1ADJ", []byte{0, 0, 1, 138, 146, 174}, false},
		{"n1adj", []byte{0, 0, 1, 138, 146, 174}, false},
		{"very long call", nil, true},
		{"N1 ADJ", nil, true},
		{"#", nil, true},
		{"@all", []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}, false},
		{"#ALL", []byte{238, 107, 40, 0, 76, 225}, false},
		{"#OTHER", []byte{238, 107, 42, 196, 55, 47}, false},
	}
	for _, tt := range tests {
		t.Run(tt.callsign, func(t *testing.T) {
			got, err := EncodeCallsign(tt.callsign)
			if (err != nil) != tt.wantErr {
				t.Fatalf("EncodeCallsign() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err == nil && !bytes.Equal(got[:], tt.want) {
				t.Errorf("EncodeCallsign() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDecodeCallsign(t *testing.T) {
	tests := []struct {
		name    string
		encoded []byte
		want    string
		wantErr bool
	}{
		{"too long", []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff}, "", true},
		{"N1ADJ", []byte{0, 0, 1, 138, 146, 174}, "N1ADJ", false},
		{"@ALL", []byte{0xff, 0xff, 0xff, 0xff, 0xff, 0xff}, "@ALL", false},
		{"#ALL", []byte{238, 107, 40, 0, 76, 225}, "#ALL", false},
		{"#OTHER", []byte{238, 107, 42, 196, 55, 47}, "#OTHER", false},
		{"reserved", []byte{0xf5, 0, 0, 0, 0, 0}, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeCallsign(tt.encoded)
			if (err != nil) != tt.wantErr {
				t.Fatalf("DecodeCallsign() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("DecodeCallsign() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseLSF(t *testing.T) {
	raw := []byte{0x0, 0x0, 0x1, 0x8a, 0x92, 0xae, 0x0, 0x0, 0x4b, 0x13, 0xd1, 0x6, 0x0, 0x2, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x0, 0x8d, 0x6d}
	l, err := ParseLSF(raw)
	if err != nil {
		t.Fatalf("ParseLSF() error = %v", err)
	}
	if l.Dst != "N1ADJ" || l.Src != "N0CALL" {
		t.Errorf("ParseLSF() = %s -> %s, want N0CALL -> N1ADJ", l.Src, l.Dst)
	}
	if l.Stream() || l.DataType() != 1 {
		t.Errorf("ParseLSF() stream %v data type %d, want packet data", l.Stream(), l.DataType())
	}

	b, err := l.Bytes()
	if err != nil {
		t.Fatalf("Bytes() error = %v", err)
	}
	if !bytes.Equal(b, raw) {
		t.Errorf("Bytes() = %x, want %x", b, raw)
	}

	raw[20] ^= 1
	if _, err := ParseLSF(raw); !errors.Is(err, ErrBadCRC) {
		t.Errorf("ParseLSF() error = %v, want ErrBadCRC", err)
	}
	if _, err := ParseLSF(raw[:29]); err == nil {
		t.Error("ParseLSF() accepted a short LSF")
	}
}

package m17

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
)

const (
	EncodedCallsignLen = 6
	MaxCallsignLen     = 9
	DestinationAll     = "@ALL"

	lsfMetaLen = 14

	addressAll = 0xffffffffffff
	// 40^9-1, the largest plain callsign
	maxPlainAddress = 0xee6b27ffffff
	// 40^9+40^8, end of the '#' callsign range
	hashAddressEnd = 268697600000000
)

const base40Chars = " ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789-/."

var ErrBadCRC = errors.New("bad CRC")

// EncodeCallsign packs a callsign of up to nine base 40 characters into 48
// bits. A leading '#' moves it into the range above 40^9. "@ALL" is the
// broadcast address.
func EncodeCallsign(callsign string) ([EncodedCallsignLen]byte, error) {
	var out [EncodedCallsignLen]byte
	callsign = strings.ToUpper(callsign)
	if callsign == DestinationAll {
		binary.BigEndian.PutUint16(out[:2], 0xffff)
		binary.BigEndian.PutUint32(out[2:], 0xffffffff)
		return out, nil
	}
	hash := strings.HasPrefix(callsign, "#")
	body := strings.TrimPrefix(callsign, "#")
	if len(body) == 0 || len(body) > MaxCallsignLen {
		return out, fmt.Errorf("callsign '%s' must have 1 to %d characters", callsign, MaxCallsignLen)
	}
	var address uint64
	for i := len(body) - 1; i >= 0; i-- {
		idx := strings.IndexByte(base40Chars[1:], body[i])
		if idx < 0 {
			return out, fmt.Errorf("invalid character in callsign: %c", body[i])
		}
		address = address*40 + uint64(idx+1)
	}
	if hash {
		address += maxPlainAddress + 1
	}
	for i := EncodedCallsignLen - 1; i >= 0; i-- {
		out[i] = byte(address)
		address >>= 8
	}
	return out, nil
}

func DecodeCallsign(encoded []byte) (string, error) {
	if len(encoded) != EncodedCallsignLen {
		return "", fmt.Errorf("encoded callsign length (%d) != %d", len(encoded), EncodedCallsignLen)
	}
	var address uint64
	for _, b := range encoded {
		address = address<<8 | uint64(b)
	}
	if address == addressAll {
		return DestinationAll, nil
	}
	var sb strings.Builder
	if address > maxPlainAddress {
		if address >= hashAddressEnd {
			return "", fmt.Errorf("encoded callsign value (%x) is not valid", address)
		}
		sb.WriteByte('#')
		address -= maxPlainAddress + 1
	}
	for ; address > 0; address /= 40 {
		sb.WriteByte(base40Chars[address%40])
	}
	return sb.String(), nil
}

// LSF is a decoded Link Setup Frame.
type LSF struct {
	Dst  string
	Src  string
	Type uint16
	Meta [lsfMetaLen]byte
}

// Stream reports whether the LSF announces a stream rather than a packet.
func (l LSF) Stream() bool {
	return l.Type&1 != 0
}

// DataType is 1 for data, 2 for voice and 3 for voice and data.
func (l LSF) DataType() int {
	return int(l.Type>>1) & 0x3
}

// ParseLSF checks the CRC of a decoded LSF and splits it into fields.
func ParseLSF(b []byte) (LSF, error) {
	if len(b) != LSFLen {
		return LSF{}, fmt.Errorf("LSF must be %d bytes, got %d", LSFLen, len(b))
	}
	if !CheckCRC(b) {
		return LSF{}, fmt.Errorf("LSF: %w", ErrBadCRC)
	}
	var (
		l   LSF
		err error
	)
	if l.Dst, err = DecodeCallsign(b[0:6]); err != nil {
		return l, fmt.Errorf("LSF destination: %w", err)
	}
	if l.Src, err = DecodeCallsign(b[6:12]); err != nil {
		return l, fmt.Errorf("LSF source: %w", err)
	}
	l.Type = binary.BigEndian.Uint16(b[12:14])
	copy(l.Meta[:], b[14:28])
	return l, nil
}

// Bytes encodes the LSF and appends its CRC.
func (l LSF) Bytes() ([]byte, error) {
	dst, err := EncodeCallsign(l.Dst)
	if err != nil {
		return nil, fmt.Errorf("bad dst callsign: %w", err)
	}
	src, err := EncodeCallsign(l.Src)
	if err != nil {
		return nil, fmt.Errorf("bad src callsign: %w", err)
	}
	b := make([]byte, 0, LSFLen)
	b = append(b, dst[:]...)
	b = append(b, src[:]...)
	b = binary.BigEndian.AppendUint16(b, l.Type)
	b = append(b, l.Meta[:]...)
	return binary.BigEndian.AppendUint16(b, CRC(b)), nil
}

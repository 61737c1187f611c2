package m17

import (
	"errors"

	"github.com/sigurn/crc16"
)

// M17 CRC polynomial
var m17CRCParams = crc16.Params{
	Poly: 0x5935,
	Init: 0xffff,
	Name: "M17",
}

var m17CRCTable = crc16.MakeTable(m17CRCParams)

// Calculate CRC value.
func CRC(in []byte) uint16 {
	return crc16.Checksum(in, m17CRCTable)
}

// CheckCRC reports whether in ends with the big endian CRC of the bytes
// before it.
func CheckCRC(in []byte) bool {
	return len(in) >= 2 && CRC(in) == 0
}

const (
	LSFLen              = 30
	PacketFrameDataLen  = 25
	packetFrameEOFBit   = 0x80
	packetFrameCountPos = 2
)

// PacketData is the content of one decoded packet frame: up to 25 data
// bytes and a trailer byte holding the end of frame flag and a 5 bit
// counter. The counter is the frame number, or the number of valid bytes in
// the last frame.
type PacketData struct {
	Data    []byte
	EOF     bool
	Counter int
}

// ParsePacketFrame splits a decoded 206 bit packet frame.
func ParsePacketFrame(b []byte) (PacketData, error) {
	if len(b) != PacketFrameDataLen+1 {
		return PacketData{}, errors.New("packet frame must be 26 bytes")
	}
	f := PacketData{
		EOF:     b[PacketFrameDataLen]&packetFrameEOFBit != 0,
		Counter: int(b[PacketFrameDataLen]>>packetFrameCountPos) & 0x1f,
	}
	n := PacketFrameDataLen
	if f.EOF {
		if f.Counter > PacketFrameDataLen {
			return f, errors.New("packet frame byte count out of range")
		}
		n = f.Counter
	}
	f.Data = b[:n]
	return f, nil
}

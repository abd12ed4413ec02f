// Package wire implements MQTT 3.1.1 control packet encoding and decoding
// over a byte stream, independent of the transport that carries it.
package wire

import (
	"fmt"
	"io"
)

// FixedHeader is the 1-plus-1..4-byte header present on every control packet:
// [PacketType(4 bits) + Flags(4 bits)][Remaining Length, variable byte integer].
type FixedHeader struct {
	PacketType      uint8
	Flags           uint8
	RemainingLength int
}

// WriteTo writes the fixed header to w.
func (h *FixedHeader) WriteTo(w io.Writer) (int64, error) {
	firstByte := (h.PacketType << 4) | (h.Flags & 0x0F)

	if bw, ok := w.(io.ByteWriter); ok {
		var n int64
		if err := bw.WriteByte(firstByte); err != nil {
			return n, err
		}
		n++

		x := h.RemainingLength
		for {
			b := byte(x % 128)
			x /= 128
			if x > 0 {
				b |= 128
			}
			if err := bw.WriteByte(b); err != nil {
				return n, err
			}
			n++
			if x == 0 {
				break
			}
		}
		return n, nil
	}

	var buf [5]byte
	buf[0] = firstByte
	x := h.RemainingLength
	n := 1
	for {
		b := byte(x % 128)
		x /= 128
		if x > 0 {
			b |= 128
		}
		buf[n] = b
		n++
		if x == 0 {
			break
		}
	}

	nw, err := w.Write(buf[:n])
	return int64(nw), err
}

// DecodeFixedHeader reads and decodes a fixed header from r.
func DecodeFixedHeader(r io.Reader) (*FixedHeader, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return nil, err
	}

	firstByte := buf[0]
	packetType := firstByte >> 4
	flags := firstByte & 0x0F

	remainingLength, err := decodeVarInt(r)
	if err != nil {
		return nil, fmt.Errorf("remaining length: %w", err)
	}

	return &FixedHeader{
		PacketType:      packetType,
		Flags:           flags,
		RemainingLength: remainingLength,
	}, nil
}

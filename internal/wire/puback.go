package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// PubackPacket represents an MQTT 3.1.1 PUBACK control packet
// (QoS 1 acknowledgment).
type PubackPacket struct {
	PacketID uint16
}

// Type returns the packet type.
func (p *PubackPacket) Type() uint8 { return PUBACK }

// WriteTo writes the PUBACK packet to w.
func (p *PubackPacket) WriteTo(w io.Writer) (int64, error) {
	var total int64
	header := &FixedHeader{PacketType: PUBACK, RemainingLength: 2}
	hN, err := header.WriteTo(w)
	total += hN
	if err != nil {
		return total, err
	}
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], p.PacketID)
	n, err := w.Write(buf[:])
	total += int64(n)
	return total, err
}

// DecodePuback decodes a PUBACK packet from buf.
func DecodePuback(buf []byte) (*PubackPacket, error) {
	if len(buf) < 2 {
		return nil, fmt.Errorf("buffer too short for PUBACK packet")
	}
	return &PubackPacket{PacketID: binary.BigEndian.Uint16(buf[0:2])}, nil
}

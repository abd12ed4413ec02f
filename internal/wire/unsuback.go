package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// UnsubackPacket represents an MQTT 3.1.1 UNSUBACK control packet.
// v3.1.1 UNSUBACK carries only the packet identifier; there is no payload.
type UnsubackPacket struct {
	PacketID uint16
}

// Type returns the packet type.
func (p *UnsubackPacket) Type() uint8 { return UNSUBACK }

// WriteTo writes the UNSUBACK packet to w.
func (p *UnsubackPacket) WriteTo(w io.Writer) (int64, error) {
	var total int64
	header := &FixedHeader{PacketType: UNSUBACK, RemainingLength: 2}
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

// DecodeUnsuback decodes an UNSUBACK packet from buf.
func DecodeUnsuback(buf []byte) (*UnsubackPacket, error) {
	if len(buf) < 2 {
		return nil, fmt.Errorf("buffer too short for UNSUBACK packet")
	}
	return &UnsubackPacket{PacketID: binary.BigEndian.Uint16(buf[0:2])}, nil
}

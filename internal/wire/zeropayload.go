package wire

import "io"

// PingreqPacket represents an MQTT PINGREQ control packet. It carries no
// variable header or payload.
type PingreqPacket struct{}

// Type returns the packet type.
func (p *PingreqPacket) Type() uint8 { return PINGREQ }

// WriteTo writes the PINGREQ packet to w.
func (p *PingreqPacket) WriteTo(w io.Writer) (int64, error) {
	header := &FixedHeader{PacketType: PINGREQ}
	return header.WriteTo(w)
}

// DecodePingreq decodes a PINGREQ packet (no payload).
func DecodePingreq(buf []byte) (*PingreqPacket, error) { return &PingreqPacket{}, nil }

// PingrespPacket represents an MQTT PINGRESP control packet.
type PingrespPacket struct{}

// Type returns the packet type.
func (p *PingrespPacket) Type() uint8 { return PINGRESP }

// WriteTo writes the PINGRESP packet to w.
func (p *PingrespPacket) WriteTo(w io.Writer) (int64, error) {
	header := &FixedHeader{PacketType: PINGRESP}
	return header.WriteTo(w)
}

// DecodePingresp decodes a PINGRESP packet (no payload).
func DecodePingresp(buf []byte) (*PingrespPacket, error) { return &PingrespPacket{}, nil }

// DisconnectPacket represents an MQTT 3.1.1 DISCONNECT control packet. In
// v3.1.1 it has no variable header or payload at all.
type DisconnectPacket struct{}

// Type returns the packet type.
func (p *DisconnectPacket) Type() uint8 { return DISCONNECT }

// WriteTo writes the DISCONNECT packet to w.
func (p *DisconnectPacket) WriteTo(w io.Writer) (int64, error) {
	header := &FixedHeader{PacketType: DISCONNECT}
	return header.WriteTo(w)
}

// DecodeDisconnect decodes a DISCONNECT packet (no payload).
func DecodeDisconnect(buf []byte) (*DisconnectPacket, error) { return &DisconnectPacket{}, nil }

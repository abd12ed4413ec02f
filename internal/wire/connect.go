package wire

import (
	"encoding/binary"
	"fmt"
	"io"
)

// ConnectPacket represents an MQTT 3.1.1 CONNECT control packet.
type ConnectPacket struct {
	ProtocolName  string // "MQTT"
	ProtocolLevel uint8  // 4 for v3.1.1

	CleanSession bool
	WillFlag     bool
	WillQoS      uint8
	WillRetain   bool
	PasswordFlag bool
	UsernameFlag bool

	KeepAlive uint16

	ClientID string

	WillTopic   string
	WillMessage []byte

	Username string
	Password string
}

// Type returns the packet type.
func (p *ConnectPacket) Type() uint8 { return CONNECT }

// WriteTo writes the CONNECT packet to w.
func (p *ConnectPacket) WriteTo(w io.Writer) (int64, error) {
	var total int64

	protocolNameBytes := appendString(nil, p.ProtocolName)

	var connectFlags uint8
	if p.CleanSession {
		connectFlags |= 0x02
	}
	if p.WillFlag {
		connectFlags |= 0x04
		connectFlags |= (p.WillQoS & 0x03) << 3
		if p.WillRetain {
			connectFlags |= 0x20
		}
	}
	if p.PasswordFlag {
		connectFlags |= 0x40
	}
	if p.UsernameFlag {
		connectFlags |= 0x80
	}

	variableHeaderLen := len(protocolNameBytes) + 1 + 1 + 2

	clientIDBytes := appendString(nil, p.ClientID)
	payloadLen := len(clientIDBytes)

	var willTopicBytes, willMsgBytes []byte
	if p.WillFlag {
		willTopicBytes = appendString(nil, p.WillTopic)
		willMsgBytes = appendBinary(nil, p.WillMessage)
		payloadLen += len(willTopicBytes) + len(willMsgBytes)
	}

	var usernameBytes, passwordBytes []byte
	if p.UsernameFlag {
		usernameBytes = appendString(nil, p.Username)
		payloadLen += len(usernameBytes)
	}
	if p.PasswordFlag {
		passwordBytes = appendString(nil, p.Password)
		payloadLen += len(passwordBytes)
	}

	header := &FixedHeader{
		PacketType:      CONNECT,
		RemainingLength: variableHeaderLen + payloadLen,
	}
	hN, err := header.WriteTo(w)
	total += hN
	if err != nil {
		return total, err
	}

	writeAll := func(b []byte) error {
		n, err := w.Write(b)
		total += int64(n)
		return err
	}

	if err := writeAll(protocolNameBytes); err != nil {
		return total, err
	}
	if err := binary.Write(w, binary.BigEndian, p.ProtocolLevel); err != nil {
		return total, err
	}
	total++
	if err := binary.Write(w, binary.BigEndian, connectFlags); err != nil {
		return total, err
	}
	total++
	var keepAliveBytes [2]byte
	binary.BigEndian.PutUint16(keepAliveBytes[:], p.KeepAlive)
	if err := writeAll(keepAliveBytes[:]); err != nil {
		return total, err
	}

	if err := writeAll(clientIDBytes); err != nil {
		return total, err
	}
	if p.WillFlag {
		if err := writeAll(willTopicBytes); err != nil {
			return total, err
		}
		if err := writeAll(willMsgBytes); err != nil {
			return total, err
		}
	}
	if p.UsernameFlag {
		if err := writeAll(usernameBytes); err != nil {
			return total, err
		}
	}
	if p.PasswordFlag {
		if err := writeAll(passwordBytes); err != nil {
			return total, err
		}
	}

	return total, nil
}

// DecodeConnect decodes a CONNECT packet. The client itself never receives
// one, but the decoder exists symmetrically and is exercised by codec tests.
func DecodeConnect(buf []byte) (*ConnectPacket, error) {
	if len(buf) < 10 {
		return nil, fmt.Errorf("buffer too short for CONNECT packet")
	}
	pkt := &ConnectPacket{}
	offset := 0

	protocolName, n, err := decodeString(buf[offset:])
	if err != nil {
		return nil, fmt.Errorf("protocol name: %w", err)
	}
	pkt.ProtocolName = protocolName
	offset += n

	if offset >= len(buf) {
		return nil, fmt.Errorf("buffer too short for protocol level")
	}
	pkt.ProtocolLevel = buf[offset]
	offset++

	if offset >= len(buf) {
		return nil, fmt.Errorf("buffer too short for connect flags")
	}
	flags := buf[offset]
	offset++
	pkt.CleanSession = flags&0x02 != 0
	pkt.WillFlag = flags&0x04 != 0
	pkt.WillQoS = (flags >> 3) & 0x03
	pkt.WillRetain = flags&0x20 != 0
	pkt.PasswordFlag = flags&0x40 != 0
	pkt.UsernameFlag = flags&0x80 != 0

	if offset+2 > len(buf) {
		return nil, fmt.Errorf("buffer too short for keep alive")
	}
	pkt.KeepAlive = uint16(buf[offset])<<8 | uint16(buf[offset+1])
	offset += 2

	clientID, n, err := decodeString(buf[offset:])
	if err != nil {
		return nil, fmt.Errorf("client id: %w", err)
	}
	pkt.ClientID = clientID
	offset += n

	if pkt.WillFlag {
		willTopic, n, err := decodeString(buf[offset:])
		if err != nil {
			return nil, fmt.Errorf("will topic: %w", err)
		}
		pkt.WillTopic = willTopic
		offset += n

		willMessage, n, err := decodeBinary(buf[offset:])
		if err != nil {
			return nil, fmt.Errorf("will message: %w", err)
		}
		pkt.WillMessage = append([]byte(nil), willMessage...)
		offset += n
	}

	if pkt.UsernameFlag {
		username, n, err := decodeString(buf[offset:])
		if err != nil {
			return nil, fmt.Errorf("username: %w", err)
		}
		pkt.Username = username
		offset += n
	}

	if pkt.PasswordFlag {
		password, _, err := decodeString(buf[offset:])
		if err != nil {
			return nil, fmt.Errorf("password: %w", err)
		}
		pkt.Password = password
	}

	return pkt, nil
}

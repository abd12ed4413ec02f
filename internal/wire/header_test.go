package wire

import (
	"bytes"
	"testing"
)

func TestFixedHeaderRoundTrip(t *testing.T) {
	// Boundary values for the Variable Byte Integer encoding (MQTT 3.1.1
	// §2.2.3): 1-, 2-, 3- and 4-byte encodings.
	tests := []struct {
		name            string
		remainingLength int
	}{
		{"zero", 0},
		{"one byte max", 127},
		{"two byte min", 128},
		{"two byte max", 16383},
		{"three byte min", 16384},
		{"three byte max", 2097151},
		{"four byte min", 2097152},
		{"spec max", mqttSpecMax},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := &FixedHeader{PacketType: PUBLISH, Flags: 0x02, RemainingLength: tt.remainingLength}
			var buf bytes.Buffer
			if _, err := h.WriteTo(&buf); err != nil {
				t.Fatalf("WriteTo: %v", err)
			}

			decoded, err := DecodeFixedHeader(&buf)
			if err != nil {
				t.Fatalf("DecodeFixedHeader: %v", err)
			}
			if decoded.PacketType != PUBLISH {
				t.Errorf("PacketType = %d, want %d", decoded.PacketType, PUBLISH)
			}
			if decoded.Flags != 0x02 {
				t.Errorf("Flags = %#x, want 0x02", decoded.Flags)
			}
			if decoded.RemainingLength != tt.remainingLength {
				t.Errorf("RemainingLength = %d, want %d", decoded.RemainingLength, tt.remainingLength)
			}
		})
	}
}

func TestDecodeFixedHeaderRejectsOverLongVarInt(t *testing.T) {
	// A five-byte encoding (four bytes with the continuation bit set) is
	// longer than the four bytes allowed and must be rejected rather than
	// silently truncated.
	buf := bytes.NewBuffer([]byte{byte(PUBLISH) << 4, 0xFF, 0xFF, 0xFF, 0xFF, 0x7F})
	if _, err := DecodeFixedHeader(buf); err == nil {
		t.Fatal("expected error decoding an over-long variable byte integer, got nil")
	}
}

func TestFixedHeaderWriteToWithoutByteWriter(t *testing.T) {
	// bytes.Buffer satisfies io.ByteWriter, so exercise the non-ByteWriter
	// fallback path with a bare io.Writer wrapper.
	h := &FixedHeader{PacketType: CONNACK, RemainingLength: 2}
	var inner bytes.Buffer
	if _, err := h.WriteTo(plainWriter{&inner}); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	decoded, err := DecodeFixedHeader(&inner)
	if err != nil {
		t.Fatalf("DecodeFixedHeader: %v", err)
	}
	if decoded.PacketType != CONNACK || decoded.RemainingLength != 2 {
		t.Errorf("decoded = %+v, want PacketType=%d RemainingLength=2", decoded, CONNACK)
	}
}

// plainWriter exposes only Write, forcing FixedHeader.WriteTo's fallback path.
type plainWriter struct {
	w *bytes.Buffer
}

func (p plainWriter) Write(b []byte) (int, error) { return p.w.Write(b) }

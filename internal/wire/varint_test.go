package wire

import (
	"bytes"
	"testing"
)

func TestVarIntRoundTrip(t *testing.T) {
	values := []int{0, 1, 127, 128, 16383, 16384, 2097151, 2097152, mqttSpecMax}
	for _, v := range values {
		buf := appendVarInt(nil, v)
		got, err := decodeVarInt(bytes.NewReader(buf))
		if err != nil {
			t.Fatalf("decodeVarInt(%d): %v", v, err)
		}
		if got != v {
			t.Errorf("decodeVarInt(appendVarInt(%d)) = %d", v, got)
		}
	}
}

func TestAppendVarIntPanicsOutOfRange(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for out-of-range value")
		}
	}()
	appendVarInt(nil, mqttSpecMax+1)
}

func TestAppendVarIntPanicsNegative(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for negative value")
		}
	}()
	appendVarInt(nil, -1)
}

func TestVarIntByteLength(t *testing.T) {
	tests := []struct {
		value int
		bytes int
	}{
		{0, 1},
		{127, 1},
		{128, 2},
		{16383, 2},
		{16384, 3},
		{2097151, 3},
		{2097152, 4},
		{mqttSpecMax, 4},
	}
	for _, tt := range tests {
		got := len(appendVarInt(nil, tt.value))
		if got != tt.bytes {
			t.Errorf("appendVarInt(%d) encoded in %d bytes, want %d", tt.value, got, tt.bytes)
		}
	}
}

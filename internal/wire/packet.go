package wire

import "io"

// Packet is implemented by every MQTT 3.1.1 control packet this module
// supports encoding or decoding.
type Packet interface {
	Type() uint8
	WriteTo(w io.Writer) (int64, error)
}

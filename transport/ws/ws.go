// Package ws adapts a gorilla/websocket connection to the net.Conn-shaped
// transport.Conn interface, grounded on the WebSocket stream adapter
// pattern gomqtt's transport package uses: MQTT control packets are framed
// independently of WebSocket message boundaries, so reads must transparently
// span multiple binary messages.
package ws

import (
	"context"
	"errors"
	"io"
	"net"
	"time"

	"github.com/gorilla/websocket"
)

// ErrNotBinary is returned when a non-binary WebSocket message arrives
// where an MQTT byte stream was expected.
var ErrNotBinary = errors.New("ws: received non-binary websocket message")

var closeMessage = websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")

// Conn wraps a *websocket.Conn to satisfy net.Conn, so it can be handed to
// transport.ReadExact/WriteAll and to mqttcore.Config.Dialer like any other
// stream.
type Conn struct {
	conn   *websocket.Conn
	reader io.Reader
}

// Dial opens a WebSocket connection to urlStr (a ws:// or wss:// URL) using
// the "mqtt" subprotocol and returns it wrapped as a net.Conn.
func Dial(ctx context.Context, urlStr string) (*Conn, error) {
	dialer := websocket.Dialer{
		Subprotocols:     []string{"mqtt"},
		HandshakeTimeout: 45 * time.Second,
	}
	c, _, err := dialer.DialContext(ctx, urlStr, nil)
	if err != nil {
		return nil, err
	}
	return &Conn{conn: c}, nil
}

// Read implements io.Reader, transparently advancing across WebSocket
// message boundaries so the caller sees one continuous byte stream.
func (c *Conn) Read(p []byte) (int, error) {
	total := 0
	buf := p
	for {
		if c.reader == nil {
			messageType, reader, err := c.conn.NextReader()
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				return total, io.EOF
			}
			if err != nil {
				return total, err
			}
			if messageType != websocket.BinaryMessage {
				return total, ErrNotBinary
			}
			c.reader = reader
		}

		n, err := c.reader.Read(buf)
		total += n
		buf = buf[n:]

		if err == io.EOF {
			c.reader = nil
			if total > 0 || len(buf) == 0 {
				return total, nil
			}
			continue
		}
		if err != nil {
			return total, err
		}
		return total, nil
	}
}

// Write implements io.Writer, sending p as a single binary WebSocket
// message.
func (c *Conn) Write(p []byte) (int, error) {
	w, err := c.conn.NextWriter(websocket.BinaryMessage)
	if err != nil {
		return 0, err
	}
	n, err := w.Write(p)
	if err != nil {
		return n, err
	}
	return n, w.Close()
}

// Close sends a close frame and closes the underlying connection.
func (c *Conn) Close() error {
	_ = c.conn.WriteMessage(websocket.CloseMessage, closeMessage)
	return c.conn.Close()
}

func (c *Conn) LocalAddr() net.Addr                { return c.conn.LocalAddr() }
func (c *Conn) RemoteAddr() net.Addr               { return c.conn.RemoteAddr() }
func (c *Conn) SetReadDeadline(t time.Time) error  { return c.conn.SetReadDeadline(t) }
func (c *Conn) SetWriteDeadline(t time.Time) error { return c.conn.SetWriteDeadline(t) }
func (c *Conn) SetDeadline(t time.Time) error {
	if err := c.SetReadDeadline(t); err != nil {
		return err
	}
	return c.SetWriteDeadline(t)
}

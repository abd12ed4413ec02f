package mqttcore

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/google/uuid"
)

// ContextDialer dials a network address honoring ctx. It matches the
// signature of (*net.Dialer).DialContext and lets a caller substitute a
// proxying or instrumented dialer, or hand in transport/ws.Dial for a
// WebSocket-carried connection.
type ContextDialer interface {
	DialContext(ctx context.Context, network, addr string) (net.Conn, error)
}

// Will describes the Last Will and Testament the broker publishes on the
// client's behalf if the connection drops without a clean DISCONNECT.
type Will struct {
	Topic   string
	Payload []byte
	QoS     QoS
	Retain  bool
}

// Config is the client's configuration surface. Every field maps directly
// to an operation or option named in this package's external interface;
// there is no open-ended options API because the surface is a fixed,
// enumerated table, not an extensible one.
type Config struct {
	// Server is the broker address, "host:port". Port defaults to 1883
	// (8883 when SSL or TLSConfig is set, or the scheme is tls, ssl or
	// mqtts) if omitted.
	Server string

	// ClientID identifies this session to the broker. If empty, a UUID
	// (github.com/google/uuid) is generated — the stand-in this module
	// uses for whatever device-identity source a real deployment has.
	ClientID string

	User     string
	Password string

	// KeepAlive is the negotiated MQTT keep-alive interval. Zero disables
	// keep-alive entirely: no PINGREQ is ever sent, and PingInterval must
	// also be zero.
	KeepAlive time.Duration

	// PingInterval overrides how often the pinger wakes up to consider
	// sending a PINGREQ; the pinger always runs at
	// max(PingInterval, KeepAlive/4). Zero means "use the derived value".
	PingInterval time.Duration

	// ResponseTime bounds how long the protocol serializer waits for a
	// reply (SUBACK, UNSUBACK, PUBACK, PINGRESP) before treating the
	// exchange as timed out. The CONNACK wait is bounded by ConnectTimeout.
	ResponseTime time.Duration

	// CleanInit, when true, requests a clean session on the very first
	// connect. Clean controls every connect after that (including
	// reconnects); they are independent per the Design Notes.
	CleanInit bool
	Clean     bool

	// MaxRepubs bounds how many times a QoS-1 publish is retransmitted
	// with DUP set before the delivery engine declares the link FAILING.
	// A pointer distinguishes "unset" (defaults to 4) from an explicit 0,
	// which means a single missed PUBACK forces the link FAILING
	// immediately, with no same-PID retransmit.
	MaxRepubs *int

	// ConnectTimeout bounds each TCP/TLS dial and CONNECT/CONNACK
	// handshake, on the first connect and on every reconnect.
	ConnectTimeout time.Duration

	SSL       bool
	TLSConfig *tls.Config

	Will *Will

	// SubsCallback is invoked for an incoming PUBLISH that matches no
	// topic filter registered via Subscribe — the fallback handler.
	SubsCallback Handler

	// Dialer overrides how the TCP/TLS connection is established, e.g. to
	// route through transport/ws.Dial.
	Dialer ContextDialer

	// WifiCoro and ConnectCoro are optional hooks the supervisor invokes
	// before dialing and after a successful CONNACK respectively — seams
	// for a platform's own link-up and post-connect bookkeeping
	// (resubscribing external state, signaling a "coroutine" in the
	// embedded-systems sense the name recalls).
	// Neither is required; both default to no-ops.
	WifiCoro    func(ctx context.Context) error
	ConnectCoro func(ctx context.Context) error

	// MaxIncomingPacket bounds the Remaining Length this client accepts
	// from the broker. Zero uses the MQTT spec maximum.
	MaxIncomingPacket int

	Logger *slog.Logger
}

func (c Config) withDefaults() (Config, error) {
	if c.Server == "" {
		return c, fmt.Errorf("%w: Server is required", ErrInvalidArgument)
	}
	if c.KeepAlive < 0 || c.PingInterval < 0 || c.ResponseTime < 0 || c.ConnectTimeout < 0 {
		return c, fmt.Errorf("%w: durations must be non-negative", ErrInvalidArgument)
	}
	if c.KeepAlive == 0 && c.PingInterval != 0 {
		return c, fmt.Errorf("%w: PingInterval must be zero when KeepAlive is zero", ErrInvalidArgument)
	}
	if c.MaxRepubs != nil && *c.MaxRepubs < 0 {
		return c, fmt.Errorf("%w: MaxRepubs must be non-negative", ErrInvalidArgument)
	}

	if c.ClientID == "" {
		c.ClientID = uuid.NewString()
	}
	if c.ResponseTime == 0 {
		c.ResponseTime = 10 * time.Second
	}
	if c.ConnectTimeout == 0 {
		c.ConnectTimeout = 10 * time.Second
	}
	if c.MaxRepubs == nil {
		defaultRepubs := 4
		c.MaxRepubs = &defaultRepubs
	}
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(discardWriter{}, nil))
	}
	if c.WifiCoro == nil {
		c.WifiCoro = func(context.Context) error { return nil }
	}
	if c.ConnectCoro == nil {
		c.ConnectCoro = func(context.Context) error { return nil }
	}
	return c, nil
}

// pingEvery returns the pinger's wake interval: the larger of
// the explicit PingInterval and a quarter of KeepAlive, or zero if
// KeepAlive is disabled.
func (c Config) pingEvery() time.Duration {
	if c.KeepAlive == 0 {
		return 0
	}
	derived := c.KeepAlive / 4
	if c.PingInterval > derived {
		return c.PingInterval
	}
	return derived
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

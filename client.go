package mqttcore

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gonzalop/mqttcore/internal/wire"
	"github.com/gonzalop/mqttcore/session"
	"github.com/gonzalop/mqttcore/transport"
)

// connState is the connectivity state machine: DOWN, LINK_UP, CONNECTED, FAILING.
type connState int32

const (
	stateDown connState = iota
	stateLinkUp
	stateConnected
	stateFailing
)

func (s connState) String() string {
	switch s {
	case stateDown:
		return "DOWN"
	case stateLinkUp:
		return "LINK_UP"
	case stateConnected:
		return "CONNECTED"
	case stateFailing:
		return "FAILING"
	default:
		return "UNKNOWN"
	}
}

// waiter is how a caller blocked on an exchange's reply learns the
// outcome: the dispatcher sends exactly one value (or closes on teardown).
type waiter chan error

// Client is a connected MQTT session. Every exported method is safe for
// concurrent use except the publish path, which is scoped to a single
// producer goroutine at a time (concurrent producers are a non-goal) —
// Client does not serialize concurrent Publish callers beyond
// what the protocol lock already does for correctness, so overlapping
// Publish calls from multiple goroutines will simply queue on that lock
// rather than corrupt state.
type Client struct {
	cfg  Config
	sess *session.Session
	lock *session.Lock

	connMu sync.RWMutex
	conn   transport.Conn

	state      atomic.Int32
	generation atomic.Uint64

	waitersMu sync.Mutex
	waiters   map[uint16]waiter

	lastRx atomic.Int64 // unix nanos, updated by the dispatcher on any inbound packet

	reconnected chan struct{} // closed and replaced each time a new epoch reaches CONNECTED
	needReconn  chan struct{} // signaled once per epoch failure

	stop      chan struct{}
	stopOnce  sync.Once
	wg        sync.WaitGroup
	suspended atomic.Bool

	stats      Stats
	pingWaiter pingWaiters

	subQueuesMu sync.Mutex
	subQueues   map[string]chan func()

	logger *slog.Logger
}

// Connect dials Server, performs the CONNECT/CONNACK handshake, and starts
// the supervisor, dispatcher, and keepalive pinger. It blocks until the
// first connection attempt succeeds or ctx is done — subsequent
// reconnects happen in the background and do not block callers
// already holding a *Client.
func Connect(ctx context.Context, cfg Config) (*Client, error) {
	cfg, err := cfg.withDefaults()
	if err != nil {
		return nil, err
	}

	c := &Client{
		cfg:         cfg,
		sess:        session.New(),
		lock:        session.NewLock(),
		waiters:     make(map[uint16]waiter),
		stop:        make(chan struct{}),
		reconnected: make(chan struct{}),
		needReconn:  make(chan struct{}, 1),
		subQueues:   make(map[string]chan func()),
		logger:      cfg.Logger.With("component", "mqttcore"),
	}
	c.state.Store(int32(stateDown))

	connectCtx, cancel := context.WithTimeout(ctx, cfg.ConnectTimeout)
	defer cancel()

	if err := c.connectEpoch(connectCtx, cfg.CleanInit); err != nil {
		return nil, err
	}

	c.wg.Add(1)
	go c.supervisorLoop()

	return c, nil
}

// IsConnected reports whether the client currently holds an established
// MQTT session (state CONNECTED).
func (c *Client) IsConnected() bool {
	return connState(c.state.Load()) == stateConnected
}

// BrokerUp reports whether the broker connection is currently usable. It
// is equivalent to IsConnected; the name matches the operation table's
// "is the broker reachable right now" framing distinct from WANOk's wider
// network probe.
func (c *Client) BrokerUp(ctx context.Context) bool {
	return c.IsConnected()
}

// WANOk probes general internet reachability by resolving a well-known
// hostname, independent of the broker connection — useful for a device to
// distinguish "my broker is down" from "my network is down" before
// deciding how aggressively to retry.
func (c *Client) WANOk(ctx context.Context) bool {
	host := "one.one.one.one"
	resolver := net.DefaultResolver
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	_, err := resolver.LookupHost(ctx, host)
	return err == nil
}

// Suspend pauses the dispatcher's read loop and the pinger without
// discarding session state, for platforms that need to quiesce network
// activity before entering a low-power mode.
func (c *Client) Suspend() {
	c.suspended.Store(true)
}

// Resume reverses Suspend.
func (c *Client) Resume() {
	c.suspended.Store(false)
}

// Close tears down the connection and stops all background goroutines. It
// does not send DISCONNECT; use Disconnect for a graceful shutdown.
func (c *Client) Close() error {
	c.stopOnce.Do(func() { close(c.stop) })
	c.closeConn()
	c.wg.Wait()
	return nil
}

// Disconnect sends an MQTT DISCONNECT (suppressing the will) and
// then closes the client.
func (c *Client) Disconnect(ctx context.Context) error {
	conn := c.currentConn()
	if conn != nil {
		pkt := &wire.DisconnectPacket{}
		deadline, _ := ctx.Deadline()
		if deadline.IsZero() {
			deadline = time.Now().Add(c.cfg.ResponseTime)
		}
		if err := c.lock.Acquire(ctx); err == nil {
			_ = writePacket(conn, pkt, deadline)
			c.lock.Release()
		}
	}
	return c.Close()
}

func (c *Client) currentConn() transport.Conn {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.conn
}

func (c *Client) setConn(conn transport.Conn) {
	c.connMu.Lock()
	c.conn = conn
	c.connMu.Unlock()
}

func (c *Client) closeConn() {
	c.connMu.Lock()
	conn := c.conn
	c.conn = nil
	c.connMu.Unlock()
	if conn != nil {
		_ = conn.Close()
	}
}

func writePacket(conn transport.Conn, pkt wire.Packet, deadline time.Time) error {
	if err := conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	_, err := pkt.WriteTo(conn)
	return err
}

// dial establishes the raw transport connection, honoring Config.Dialer,
// Config.SSL/TLSConfig, and scheme-based port defaulting (tcp/mqtt → 1883,
// tls/ssl/mqtts → 8883).
func (c *Client) dial(ctx context.Context) (transport.Conn, error) {
	if c.cfg.Dialer != nil {
		conn, err := c.cfg.Dialer.DialContext(ctx, "tcp", c.cfg.Server)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrLinkDown, err)
		}
		return conn, nil
	}

	host := c.cfg.Server
	useTLS := c.cfg.SSL || c.cfg.TLSConfig != nil
	if u, err := url.Parse(c.cfg.Server); err == nil && u.Host != "" {
		host = u.Host
		switch u.Scheme {
		case "tls", "ssl", "mqtts":
			useTLS = true
		}
	}
	if _, _, err := net.SplitHostPort(host); err != nil {
		port := "1883"
		if useTLS {
			port = "8883"
		}
		host = net.JoinHostPort(host, port)
	}

	var conn net.Conn
	var err error
	if useTLS {
		tlsConfig := c.cfg.TLSConfig
		if tlsConfig == nil {
			tlsConfig = &tls.Config{}
		}
		dialer := &tls.Dialer{Config: tlsConfig}
		conn, err = dialer.DialContext(ctx, "tcp", host)
	} else {
		var d net.Dialer
		conn, err = d.DialContext(ctx, "tcp", host)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrLinkDown, err)
	}
	return conn, nil
}

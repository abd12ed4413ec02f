package mqttcore

import (
	"bufio"
	"context"
	"fmt"
	"time"

	"github.com/gonzalop/mqttcore/internal/wire"
	"golang.org/x/sync/errgroup"
)

// connectEpoch dials, handshakes, and starts the dispatcher and pinger for
// one connection lifetime. It blocks until the handshake completes
// or fails. clean controls the CONNECT CleanSession flag for this attempt
// specifically, since the first connect (CleanInit) and later reconnects
// (Clean) may differ.
func (c *Client) connectEpoch(ctx context.Context, clean bool) error {
	c.state.Store(int32(stateDown))

	if err := c.cfg.WifiCoro(ctx); err != nil {
		return fmt.Errorf("%w: link-up hook: %v", ErrLinkDown, err)
	}
	c.state.Store(int32(stateLinkUp))

	conn, err := c.dial(ctx)
	if err != nil {
		return err
	}

	connack, err := c.handshake(ctx, conn, clean)
	if err != nil {
		_ = conn.Close()
		return err
	}
	if connack.ReturnCode != wire.ConnAccepted {
		_ = conn.Close()
		return connectErrorForCode(connack.ReturnCode)
	}

	c.setConn(conn)
	if clean {
		c.sess.ResetPIDs()
		c.sess.ClearSubscriptions()
	}
	c.lastRx.Store(time.Now().UnixNano())
	c.state.Store(int32(stateConnected))
	c.generation.Add(1)

	epochCtx, cancel := context.WithCancel(context.Background())
	group, gctx := errgroup.WithContext(epochCtx)
	group.Go(func() error { return c.dispatchLoop(gctx, conn) })
	if pingEvery := c.cfg.pingEvery(); pingEvery > 0 {
		group.Go(func() error { return c.pingerLoop(gctx, conn, pingEvery) })
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		_ = group.Wait()
		cancel()
		c.closeConn()
		if connState(c.state.Load()) != stateDown {
			c.state.Store(int32(stateFailing))
		}
		c.failAllWaiters(ErrDisconnected)
		select {
		case c.needReconn <- struct{}{}:
		default:
		}
	}()

	if err := c.cfg.ConnectCoro(ctx); err != nil {
		c.logger.Warn("connect hook failed", "error", err)
	}

	c.resubscribeAll(ctx)

	old := c.reconnected
	c.reconnected = make(chan struct{})
	close(old)

	return nil
}

// handshake performs the CONNECT/CONNACK exchange under the protocol
// serializer lock and returns the decoded CONNACK.
func (c *Client) handshake(ctx context.Context, conn connWriter, clean bool) (*wire.ConnackPacket, error) {
	if err := c.lock.Acquire(ctx); err != nil {
		return nil, err
	}
	defer c.lock.Release()

	pkt := c.buildConnectPacket(clean)
	deadline, ok := ctx.Deadline()
	if !ok {
		deadline = time.Now().Add(c.cfg.ConnectTimeout)
	}
	if err := writePacket(conn, pkt, deadline); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDisconnected, err)
	}
	c.stats.addSent()

	if err := conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}
	reply, err := wire.ReadPacket(bufio.NewReader(conn), c.cfg.MaxIncomingPacket)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProtocol, err)
	}
	connack, ok := reply.(*wire.ConnackPacket)
	if !ok {
		return nil, fmt.Errorf("%w: expected CONNACK, got %s", ErrProtocol, wire.PacketNames[reply.Type()])
	}
	c.stats.addReceived()
	return connack, nil
}

// connWriter is the subset of transport.Conn the handshake path needs;
// named separately so tests can hand in a plain net.Conn without importing
// the transport package.
type connWriter interface {
	SetWriteDeadline(time.Time) error
	SetReadDeadline(time.Time) error
	Write([]byte) (int, error)
	Read([]byte) (int, error)
}

func (c *Client) buildConnectPacket(clean bool) *wire.ConnectPacket {
	pkt := &wire.ConnectPacket{
		ProtocolName:  "MQTT",
		ProtocolLevel: 4,
		CleanSession:  clean,
		KeepAlive:     uint16(c.cfg.KeepAlive.Seconds()),
		ClientID:      c.cfg.ClientID,
	}
	if c.cfg.User != "" {
		pkt.UsernameFlag = true
		pkt.Username = c.cfg.User
	}
	if c.cfg.Password != "" {
		pkt.PasswordFlag = true
		pkt.Password = c.cfg.Password
	}
	if c.cfg.Will != nil {
		pkt.WillFlag = true
		pkt.WillTopic = c.cfg.Will.Topic
		pkt.WillMessage = c.cfg.Will.Payload
		pkt.WillQoS = uint8(c.cfg.Will.QoS)
		pkt.WillRetain = c.cfg.Will.Retain
	}
	return pkt
}

// supervisorLoop owns reconnection after the initial Connect succeeds: on
// any epoch failure it waits with exponential backoff, then dials again,
// restarting the dispatcher and pinger as a fresh cancelable unit
// — the errgroup-per-epoch pattern in connectEpoch means a failure
// in either goroutine already tears down the whole epoch cleanly before
// this loop is asked to restart it.
func (c *Client) supervisorLoop() {
	defer c.wg.Done()

	backoff := time.Second
	const maxBackoff = 2 * time.Minute

	for {
		select {
		case <-c.stop:
			return
		case <-c.needReconn:
		}

		select {
		case <-c.stop:
			return
		case <-time.After(backoff):
		}

		c.stats.addReconnect()
		ctx, cancel := context.WithTimeout(context.Background(), c.cfg.ConnectTimeout)
		err := c.connectEpoch(ctx, c.cfg.Clean)
		cancel()

		if err != nil {
			c.logger.Warn("reconnect failed", "error", err)
			backoff = min(backoff*2, maxBackoff)
			continue
		}
		backoff = time.Second
	}
}

func (c *Client) failAllWaiters(err error) {
	c.waitersMu.Lock()
	defer c.waitersMu.Unlock()
	for pid, w := range c.waiters {
		w <- err
		delete(c.waiters, pid)
	}
}

// resubscribeAll replays the subscription registry onto the new
// connection epoch, firing SUBSCRIBE for every still-registered
// filter. Failures are logged, not propagated: a lost subscription is
// recoverable by a later explicit Subscribe call, and blocking the
// connect path on it would defeat the point of reconnecting quickly.
func (c *Client) resubscribeAll(ctx context.Context) {
	for _, sub := range c.sess.Subscriptions() {
		if err := c.sendSubscribe(ctx, sub.Filter, QoS(sub.QoS)); err != nil {
			c.logger.Warn("resubscribe failed", "filter", sub.Filter, "error", err)
		}
	}
}

package mqttcore

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gonzalop/mqttcore/internal/wire"
)

// pingWaiters is a tiny separate registry from the PID-keyed waiters map:
// PINGREQ/PINGRESP carry no packet identifier, and at most one is ever
// outstanding at a time because the pinger holds the protocol serializer
// lock across the whole exchange.
type pingWaiters struct {
	mu sync.Mutex
	ch chan struct{}
}

func (p *pingWaiters) register() chan struct{} {
	p.mu.Lock()
	defer p.mu.Unlock()
	ch := make(chan struct{}, 1)
	p.ch = ch
	return ch
}

func (p *pingWaiters) resolve() {
	p.mu.Lock()
	ch := p.ch
	p.ch = nil
	p.mu.Unlock()
	if ch != nil {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (c *Client) resolvePing() {
	c.pingWaiter.resolve()
}

// pingerLoop implements the keepalive pinger: it wakes every
// pingEvery and, if no packet has arrived from the broker since
// max(PingInterval, KeepAlive/4) elapsed, sends PINGREQ and arms a
// ResponseTime watchdog. If PINGRESP does not land in time, the pinger
// declares the connection failed and returns, which the epoch
// supervisor in connectEpoch turns into a FAILING transition. It
// observes Suspend/Resume the same way the dispatcher does, so a
// suspended client never sends a PINGREQ it has no reader left to
// consume the reply for.
func (c *Client) pingerLoop(ctx context.Context, conn connWriter, pingEvery time.Duration) error {
	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()

	threshold := c.cfg.pingEvery()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		if c.suspended.Load() {
			continue
		}

		lastRx := time.Unix(0, c.lastRx.Load())
		if time.Since(lastRx) < threshold {
			continue
		}

		if err := c.sendPing(ctx, conn); err != nil {
			return err
		}
	}
}

func (c *Client) sendPing(ctx context.Context, conn connWriter) error {
	if err := c.lock.Acquire(ctx); err != nil {
		return err
	}
	defer c.lock.Release()

	replyCh := c.pingWaiter.register()

	if err := writePacket(conn, &wire.PingreqPacket{}, time.Now().Add(c.cfg.ResponseTime)); err != nil {
		return fmt.Errorf("%w: %v", ErrDisconnected, err)
	}
	c.stats.addSent()

	select {
	case <-replyCh:
		return nil
	case <-time.After(c.cfg.ResponseTime):
		return fmt.Errorf("%w: no PINGRESP", ErrTimeout)
	case <-ctx.Done():
		return ctx.Err()
	}
}

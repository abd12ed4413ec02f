package mqttcore

import (
	"bufio"
	"context"
	"fmt"
	"time"

	"github.com/gonzalop/mqttcore/internal/wire"
)

// dispatchLoop is the inbound dispatcher: it continuously reads
// packets off conn and routes each to its handler without ever acquiring
// the protocol serializer lock, so a reply to an in-flight exchange is
// always readable even while another exchange is queued behind it.
func (c *Client) dispatchLoop(ctx context.Context, conn connWriter) error {
	br := bufio.NewReaderSize(conn, 4096)
	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if c.suspended.Load() {
			time.Sleep(50 * time.Millisecond)
			continue
		}

		if err := conn.SetReadDeadline(time.Time{}); err != nil {
			return err
		}
		pkt, err := wire.ReadPacket(br, c.cfg.MaxIncomingPacket)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrDisconnected, err)
		}
		c.lastRx.Store(time.Now().UnixNano())
		c.stats.addReceived()

		if err := c.route(ctx, conn, pkt); err != nil {
			return err
		}
	}
}

func (c *Client) route(ctx context.Context, conn connWriter, pkt wire.Packet) error {
	switch p := pkt.(type) {
	case *wire.PubackPacket:
		c.resolveWaiter(p.PacketID, nil)
	case *wire.SubackPacket:
		var err error
		for _, code := range p.ReturnCodes {
			if code == wire.SubackFailure {
				err = ErrSubscriptionFailed
				break
			}
		}
		c.resolveWaiter(p.PacketID, err)
	case *wire.UnsubackPacket:
		c.resolveWaiter(p.PacketID, nil)
	case *wire.PingrespPacket:
		c.resolvePing()
	case *wire.PublishPacket:
		return c.handlePublish(ctx, conn, p)
	default:
		c.logger.Warn("unexpected inbound packet", "type", wire.PacketNames[pkt.Type()])
	}
	return nil
}

func (c *Client) handlePublish(ctx context.Context, conn connWriter, p *wire.PublishPacket) error {
	msg := Message{
		Topic:     p.Topic,
		Payload:   p.Payload,
		QoS:       QoS(p.QoS),
		Retained:  p.Retain,
		Duplicate: p.Dup,
	}

	sub := c.sess.MatchSubscription(p.Topic)
	var handler func(string, []byte, uint8, bool, bool)
	key := p.Topic
	if sub != nil {
		handler = sub.Handler
		key = sub.Filter
	} else if c.cfg.SubsCallback != nil {
		handler = func(topic string, payload []byte, qos uint8, retained, dup bool) {
			c.cfg.SubsCallback(Message{Topic: topic, Payload: payload, QoS: QoS(qos), Retained: retained, Duplicate: dup})
		}
	}
	if handler != nil {
		h := handler
		m := msg
		c.dispatchToHandler(key, h, m)
	}

	if p.QoS == wire.QoS1 {
		ack := &wire.PubackPacket{PacketID: p.PacketID}
		if err := c.lock.Acquire(ctx); err != nil {
			return nil
		}
		err := writePacket(conn, ack, time.Now().Add(c.cfg.ResponseTime))
		c.lock.Release()
		if err != nil {
			return fmt.Errorf("%w: %v", ErrDisconnected, err)
		}
		c.stats.addSent()
	}
	return nil
}

// dispatchToHandler delivers m to h off the socket read path, while still
// preserving delivery order for a given subscription: every message
// matching the same filter (or, for the catch-all SubsCallback, the same
// topic) is queued onto the same ordered worker rather than its own
// goroutine, so two handler invocations for one subscription can never
// race or complete out of order. Each worker's queue holds 64 messages; a
// callback slow enough to fill it stalls the read path until room frees up.
func (c *Client) dispatchToHandler(key string, h func(string, []byte, uint8, bool, bool), m Message) {
	c.enqueueOrdered(key, func() {
		h(m.Topic, m.Payload, uint8(m.QoS), m.Retained, m.Duplicate)
	})
}

// enqueueOrdered appends fn to key's worker queue, starting that worker if
// this is the first message seen for key. The queue is never torn down
// once created: a subscription's ordering worker lives for the Client's
// lifetime: one per distinct filter, plus one per distinct topic delivered
// to the SubsCallback catch-all.
func (c *Client) enqueueOrdered(key string, fn func()) {
	c.subQueuesMu.Lock()
	q, ok := c.subQueues[key]
	if !ok {
		q = make(chan func(), 64)
		c.subQueues[key] = q
		go c.runOrderedQueue(q)
	}
	c.subQueuesMu.Unlock()
	q <- fn
}

func (c *Client) runOrderedQueue(q chan func()) {
	for fn := range q {
		c.runHandlerSafely(fn)
	}
}

func (c *Client) runHandlerSafely(fn func()) {
	defer func() {
		if r := recover(); r != nil {
			c.logger.Error("subscription handler panicked", "panic", r)
		}
	}()
	fn()
}

func (c *Client) registerWaiter(pid uint16) waiter {
	w := make(waiter, 1)
	c.waitersMu.Lock()
	c.waiters[pid] = w
	c.waitersMu.Unlock()
	return w
}

func (c *Client) unregisterWaiter(pid uint16) {
	c.waitersMu.Lock()
	delete(c.waiters, pid)
	c.waitersMu.Unlock()
}

func (c *Client) resolveWaiter(pid uint16, err error) {
	c.waitersMu.Lock()
	w, ok := c.waiters[pid]
	if ok {
		delete(c.waiters, pid)
	}
	c.waitersMu.Unlock()
	if ok {
		w <- err
	}
}

package mqttcore

import (
	"context"
	"fmt"
	"time"

	"github.com/gonzalop/mqttcore/internal/wire"
	"github.com/gonzalop/mqttcore/session"
)

// Subscribe registers handler for topic (which may contain '+'/'#'
// wildcards) and sends SUBSCRIBE, blocking for SUBACK. The
// registration happens before the packet is sent so a PUBLISH that beats
// the SUBACK back to the client is still routed correctly.
func (c *Client) Subscribe(ctx context.Context, topic string, qos QoS, handler Handler) error {
	if topic == "" {
		return fmt.Errorf("%w: topic filter cannot be empty", ErrInvalidArgument)
	}
	if qos == exactlyOnce {
		return fmt.Errorf("%w: QoS 2 is not supported", ErrInvalidArgument)
	}

	c.sess.AddSubscription(&session.Subscription{
		Filter: topic,
		QoS:    uint8(qos),
		Handler: func(t string, payload []byte, pqos uint8, retained, dup bool) {
			handler(Message{Topic: t, Payload: payload, QoS: QoS(pqos), Retained: retained, Duplicate: dup})
		},
	})

	return c.sendSubscribe(ctx, topic, qos)
}

func (c *Client) sendSubscribe(ctx context.Context, topic string, qos QoS) error {
	conn := c.currentConn()
	if conn == nil {
		return ErrNotConnected
	}
	if err := c.lock.Acquire(ctx); err != nil {
		return err
	}
	defer c.lock.Release()

	pid := c.sess.NextPID()
	pkt := &wire.SubscribePacket{PacketID: pid, Topics: []string{topic}, QoS: []uint8{uint8(qos)}}

	waiter := c.registerWaiter(pid)
	deadline := time.Now().Add(c.cfg.ResponseTime)
	if err := writePacket(conn, pkt, deadline); err != nil {
		c.unregisterWaiter(pid)
		return fmt.Errorf("%w: %v", ErrDisconnected, err)
	}
	c.stats.addSent()

	select {
	case err := <-waiter:
		return err
	case <-time.After(c.cfg.ResponseTime):
		c.unregisterWaiter(pid)
		return ErrTimeout
	case <-ctx.Done():
		c.unregisterWaiter(pid)
		return ctx.Err()
	}
}

// Unsubscribe removes the registration for topic and sends UNSUBSCRIBE,
// blocking for UNSUBACK.
func (c *Client) Unsubscribe(ctx context.Context, topic string) error {
	c.sess.RemoveSubscription(topic)

	conn := c.currentConn()
	if conn == nil {
		return ErrNotConnected
	}
	if err := c.lock.Acquire(ctx); err != nil {
		return err
	}
	defer c.lock.Release()

	pid := c.sess.NextPID()
	pkt := &wire.UnsubscribePacket{PacketID: pid, Topics: []string{topic}}

	waiter := c.registerWaiter(pid)
	deadline := time.Now().Add(c.cfg.ResponseTime)
	if err := writePacket(conn, pkt, deadline); err != nil {
		c.unregisterWaiter(pid)
		return fmt.Errorf("%w: %v", ErrDisconnected, err)
	}
	c.stats.addSent()

	select {
	case err := <-waiter:
		return err
	case <-time.After(c.cfg.ResponseTime):
		c.unregisterWaiter(pid)
		return ErrTimeout
	case <-ctx.Done():
		c.unregisterWaiter(pid)
		return ctx.Err()
	}
}

package mqttcore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/gonzalop/mqttcore/internal/wire"
)

// Publish sends a PUBLISH. QoS 0 is fire-and-forget: it holds the
// protocol serializer lock only for the duration of the write. QoS 1
// follows a retry/escalate/resume algorithm: on timeout it
// retransmits the same packet identifier with DUP set, up to MaxRepubs
// times; beyond that it releases the lock, lets the supervisor declare
// the link FAILING, waits for the next successful reconnect, and resumes
// with a freshly allocated packet identifier. A connection lost while the
// publish is being written or awaiting PUBACK resumes the same way. QoS 2
// is rejected:
// exactly-once delivery is out of scope for this client.
func (c *Client) Publish(ctx context.Context, topic string, payload []byte, retain bool, qos QoS) error {
	if err := validatePublishTopic(topic); err != nil {
		return err
	}
	if qos == exactlyOnce {
		return fmt.Errorf("%w: QoS 2 is not supported", ErrInvalidArgument)
	}

	if qos == AtMostOnce {
		return c.publishQoS0(ctx, topic, payload, retain)
	}
	return c.publishQoS1(ctx, topic, payload, retain)
}

func (c *Client) publishQoS0(ctx context.Context, topic string, payload []byte, retain bool) error {
	conn := c.currentConn()
	if conn == nil {
		return ErrNotConnected
	}
	if err := c.lock.Acquire(ctx); err != nil {
		return err
	}
	defer c.lock.Release()

	pkt := &wire.PublishPacket{Topic: topic, Payload: payload, Retain: retain}
	deadline, _ := ctx.Deadline()
	if deadline.IsZero() {
		deadline = time.Now().Add(c.cfg.ResponseTime)
	}
	if err := writePacket(conn, pkt, deadline); err != nil {
		return fmt.Errorf("%w: %v", ErrDisconnected, err)
	}
	c.stats.addSent()
	return nil
}

func (c *Client) publishQoS1(ctx context.Context, topic string, payload []byte, retain bool) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		conn := c.currentConn()
		if conn == nil {
			if err := c.awaitReconnect(ctx); err != nil {
				return err
			}
			continue
		}

		done, escalate, err := c.publishQoS1Attempt(ctx, conn, topic, payload, retain)
		if done {
			return err
		}
		if !escalate {
			return err
		}
		if err := c.awaitReconnect(ctx); err != nil {
			return err
		}
		// escalated: loop around and retry with a fresh PID on the new epoch
	}
}

// publishQoS1Attempt runs one acquire-allocate-transmit-await cycle,
// including same-PID DUP retransmits, entirely under the protocol
// serializer lock. done reports whether the publish is fully
// resolved (acknowledged, or a non-recoverable error); when done is false
// and escalate is true, the caller should wait for the next reconnect and
// start over with a fresh packet identifier.
func (c *Client) publishQoS1Attempt(ctx context.Context, conn connWriter, topic string, payload []byte, retain bool) (done, escalate bool, err error) {
	if err := c.lock.Acquire(ctx); err != nil {
		return true, false, err
	}
	defer c.lock.Release()

	pid := c.sess.NextPID()
	dup := false

	for attempts := 0; ; attempts++ {
		pkt := &wire.PublishPacket{
			Topic:    topic,
			Payload:  payload,
			Retain:   retain,
			QoS:      wire.QoS1,
			PacketID: pid,
			Dup:      dup,
		}

		waiter := c.registerWaiter(pid)
		deadline := time.Now().Add(c.cfg.ResponseTime)
		if writeErr := writePacket(conn, pkt, deadline); writeErr != nil {
			c.unregisterWaiter(pid)
			c.logger.Warn("publish write failed; resuming after reconnect", "error", writeErr)
			c.closeConn()
			return false, true, nil
		}
		c.stats.addSent()

		select {
		case ackErr := <-waiter:
			if errors.Is(ackErr, ErrDisconnected) {
				// The epoch failed while awaiting PUBACK; resume on the next one.
				return false, true, nil
			}
			return true, false, ackErr
		case <-time.After(c.cfg.ResponseTime):
			c.unregisterWaiter(pid)
			if attempts >= *c.cfg.MaxRepubs {
				c.stats.addTimeout()
				// The broker stopped ACKing but the socket itself may still
				// be open (or the pinger may be disabled with KeepAlive=0),
				// so nothing else would ever notice. Force the teardown: closing
				// conn makes the dispatcher's blocked Read fail, which drives
				// the existing epoch-failure path (FAILING, failAllWaiters,
				// needReconn) in connectEpoch.
				c.closeConn()
				return false, true, nil
			}
			dup = true
		case <-ctx.Done():
			c.unregisterWaiter(pid)
			return true, false, ctx.Err()
		}
	}
}

// awaitReconnect blocks until the supervisor reaches CONNECTED again, or
// ctx is done.
func (c *Client) awaitReconnect(ctx context.Context) error {
	ch := c.reconnected
	select {
	case <-ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.stop:
		return ErrNotConnected
	}
}

func validatePublishTopic(topic string) error {
	if topic == "" {
		return fmt.Errorf("%w: topic cannot be empty", ErrInvalidArgument)
	}
	if strings.ContainsAny(topic, "+#") {
		return fmt.Errorf("%w: topic must not contain wildcards", ErrInvalidArgument)
	}
	if strings.Contains(topic, "\x00") {
		return fmt.Errorf("%w: topic contains null byte", ErrInvalidArgument)
	}
	if !utf8.ValidString(topic) {
		return fmt.Errorf("%w: topic is not valid UTF-8", ErrInvalidArgument)
	}
	return nil
}

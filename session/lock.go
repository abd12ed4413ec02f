package session

import "context"

// Lock is the protocol serializer: exclusive access to any exchange
// that writes a packet and then waits for a specific reply — CONNECT,
// SUBSCRIBE, UNSUBSCRIBE, QoS-1 PUBLISH, and the keepalive PINGREQ all
// acquire it for the duration of their round trip. A QoS-0 publish holds
// it only across the write. The inbound dispatcher never acquires it: a
// reply can always be read while a later exchange is queued to start.
//
// Implemented as a 1-buffered channel rather than sync.Mutex so Acquire can
// honor context cancellation before the lock is held — a caller that never
// starts its exchange must never block a goroutine that is waiting
// unconditionally.
type Lock struct {
	ch chan struct{}
}

// NewLock returns a free Lock.
func NewLock() *Lock {
	l := &Lock{ch: make(chan struct{}, 1)}
	l.ch <- struct{}{}
	return l
}

// Acquire blocks until the lock is free or ctx is done. On success the
// caller must call Release exactly once.
func (l *Lock) Acquire(ctx context.Context) error {
	select {
	case <-l.ch:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Release frees the lock. Must be called exactly once per successful
// Acquire.
func (l *Lock) Release() {
	l.ch <- struct{}{}
}

// Package session holds the in-memory state a connection epoch needs to
// survive a reconnect: packet identifier allocation and the subscription
// registry. The pending QoS-1 publish itself is tracked by the caller
// holding the protocol serializer lock, since the lock already guarantees
// at most one such exchange is outstanding at a time. None of this state is
// ever written to disk — it lives only for the process lifetime.
package session

import (
	"strings"
	"sync"
)

// Subscription is a registered topic filter and the handler that receives
// matching messages.
type Subscription struct {
	Filter  string
	QoS     uint8
	Handler func(topic string, payload []byte, qos uint8, retained, dup bool)
}

// Session is the packet identifier cursor and the subscription registry,
// both kept across reconnects. Packet identifiers are not reissued across a
// reconnect: a PID is reused only after its ACK, or after a clean-session
// reconnect resets the cursor.
type Session struct {
	mu            sync.Mutex
	nextPID       uint16
	subscriptions []*Subscription
}

// New returns an empty Session with PID allocation starting at 1.
func New() *Session {
	return &Session{nextPID: 0}
}

// NextPID allocates the next packet identifier, skipping 0 and wrapping at
// 65535 back to 1. It never reuses a value a caller has not explicitly
// freed via the reconnect boundary — there is no "in use" set here because
// this client holds at most one outstanding exchange at a time (the
// serializer lock enforces that), so plain monotonic cycling is sufficient.
func (s *Session) NextPID() uint16 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextPID++
	if s.nextPID == 0 {
		s.nextPID = 1
	}
	return s.nextPID
}

// ResetPIDs discards the current PID cursor, so the next NextPID returns 1.
// The client calls it only on a clean-session connect; on any other
// reconnect the cursor carries on, so a PID abandoned in the previous
// connection epoch is not handed out again right away (some brokers, e.g.
// Mosquitto, drop a retransmit that reuses such a PID).
func (s *Session) ResetPIDs() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextPID = 0
}

// AddSubscription records a filter/handler pair, replacing any existing
// registration for the same filter.
func (s *Session) AddSubscription(sub *Subscription) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.subscriptions {
		if existing.Filter == sub.Filter {
			s.subscriptions[i] = sub
			return
		}
	}
	s.subscriptions = append(s.subscriptions, sub)
}

// RemoveSubscription deletes the registration for filter, if any.
func (s *Session) RemoveSubscription(filter string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, existing := range s.subscriptions {
		if existing.Filter == filter {
			s.subscriptions = append(s.subscriptions[:i], s.subscriptions[i+1:]...)
			return
		}
	}
}

// Subscriptions returns a snapshot of registered subscriptions, in
// registration order, for subscription-registry replay on reconnect.
func (s *Session) Subscriptions() []*Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*Subscription, len(s.subscriptions))
	copy(out, s.subscriptions)
	return out
}

// ClearSubscriptions empties the registry — used when a clean-session
// reconnect discards prior state.
func (s *Session) ClearSubscriptions() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscriptions = nil
}

// MatchHandler returns the handler of the most specific registered filter
// matching topic, or nil if none match.
func (s *Session) MatchHandler(topic string) func(string, []byte, uint8, bool, bool) {
	best := s.MatchSubscription(topic)
	if best == nil {
		return nil
	}
	return best.Handler
}

// MatchSubscription returns the most specific registered subscription
// matching topic, or nil if none match. Callers that offload handler
// invocation to a worker goroutine use Filter as the ordering key, so two
// messages delivered to the same subscription are never reordered even
// though they stop holding up the socket read path.
func (s *Session) MatchSubscription(topic string) *Subscription {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *Subscription
	for _, sub := range s.subscriptions {
		if !MatchTopic(sub.Filter, topic) {
			continue
		}
		if best == nil {
			best = sub
			continue
		}
		// Fewer wildcards is more specific; among equals, the longer filter wins.
		subWild := strings.Count(sub.Filter, "+") + strings.Count(sub.Filter, "#")
		bestWild := strings.Count(best.Filter, "+") + strings.Count(best.Filter, "#")
		if subWild < bestWild || (subWild == bestWild && len(sub.Filter) > len(best.Filter)) {
			best = sub
		}
	}
	return best
}

// MatchTopic reports whether topic matches filter under MQTT 3.1.1
// wildcard rules ('+' single level, '#' trailing multi-level), honoring
// MQTT-4.7.2-1: filters starting with a wildcard never match a topic
// starting with '$'.
func MatchTopic(filter, topic string) bool {
	if len(topic) > 0 && topic[0] == '$' {
		if len(filter) > 0 && (filter[0] == '+' || filter[0] == '#') {
			return false
		}
	}

	fIdx, tIdx := 0, 0
	fLen, tLen := len(filter), len(topic)

	for fIdx <= fLen {
		var fLevel string
		var fNext int
		if idx := strings.IndexByte(filter[fIdx:], '/'); idx >= 0 {
			fNext = fIdx + idx
			fLevel = filter[fIdx:fNext]
		} else {
			fNext = fLen
			fLevel = filter[fIdx:]
		}

		if fLevel == "#" {
			return true
		}

		if tIdx > tLen {
			return false
		}

		var tLevel string
		var tNext int
		if idx := strings.IndexByte(topic[tIdx:], '/'); idx >= 0 {
			tNext = tIdx + idx
			tLevel = topic[tIdx:tNext]
		} else {
			tNext = tLen
			tLevel = topic[tIdx:]
		}

		if fLevel != "+" && fLevel != tLevel {
			return false
		}

		if fNext == fLen {
			fIdx = fLen + 1
		} else {
			fIdx = fNext + 1
		}
		if tNext == tLen {
			tIdx = tLen + 1
		} else {
			tIdx = tNext + 1
		}
	}

	return tIdx > tLen
}

package mqttcore

import "sync/atomic"

// Stats holds cumulative connection counters: harmless ambient
// observability that doesn't persist anything to disk.
type Stats struct {
	PacketsSent     atomic.Uint64
	PacketsReceived atomic.Uint64
	Reconnects      atomic.Uint64
	Timeouts        atomic.Uint64
}

func (s *Stats) addSent()      { s.PacketsSent.Add(1) }
func (s *Stats) addReceived()  { s.PacketsReceived.Add(1) }
func (s *Stats) addReconnect() { s.Reconnects.Add(1) }
func (s *Stats) addTimeout()   { s.Timeouts.Add(1) }

// StatsSnapshot is a point-in-time copy of Stats safe to log or compare.
type StatsSnapshot struct {
	PacketsSent     uint64
	PacketsReceived uint64
	Reconnects      uint64
	Timeouts        uint64
}

// Stats returns a snapshot of the client's cumulative counters.
func (c *Client) Stats() StatsSnapshot {
	return StatsSnapshot{
		PacketsSent:     c.stats.PacketsSent.Load(),
		PacketsReceived: c.stats.PacketsReceived.Load(),
		Reconnects:      c.stats.Reconnects.Load(),
		Timeouts:        c.stats.Timeouts.Load(),
	}
}

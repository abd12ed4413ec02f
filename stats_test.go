package mqttcore

import "testing"

func TestStatsSnapshot(t *testing.T) {
	c := &Client{}
	c.stats.addSent()
	c.stats.addSent()
	c.stats.addReceived()
	c.stats.addReconnect()
	c.stats.addTimeout()

	snap := c.Stats()
	if snap.PacketsSent != 2 {
		t.Errorf("PacketsSent = %d, want 2", snap.PacketsSent)
	}
	if snap.PacketsReceived != 1 {
		t.Errorf("PacketsReceived = %d, want 1", snap.PacketsReceived)
	}
	if snap.Reconnects != 1 {
		t.Errorf("Reconnects = %d, want 1", snap.Reconnects)
	}
	if snap.Timeouts != 1 {
		t.Errorf("Timeouts = %d, want 1", snap.Timeouts)
	}
}

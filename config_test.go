package mqttcore

import (
	"testing"
	"time"
)

func TestConfigWithDefaultsRequiresServer(t *testing.T) {
	_, err := Config{}.withDefaults()
	if err == nil {
		t.Fatal("expected an error for a missing Server")
	}
}

func TestConfigWithDefaultsRejectsPingIntervalWithoutKeepAlive(t *testing.T) {
	_, err := Config{Server: "localhost:1883", PingInterval: time.Second}.withDefaults()
	if err == nil {
		t.Fatal("expected an error when PingInterval is set but KeepAlive is zero")
	}
}

func TestConfigWithDefaultsFillsClientID(t *testing.T) {
	cfg, err := Config{Server: "localhost:1883"}.withDefaults()
	if err != nil {
		t.Fatalf("withDefaults: %v", err)
	}
	if cfg.ClientID == "" {
		t.Error("expected a generated ClientID")
	}
	if cfg.ResponseTime == 0 || cfg.ConnectTimeout == 0 {
		t.Error("expected ResponseTime and ConnectTimeout to be defaulted")
	}
	if cfg.MaxRepubs == nil || *cfg.MaxRepubs == 0 {
		t.Error("expected MaxRepubs to be defaulted to a positive value")
	}
	if cfg.Logger == nil || cfg.WifiCoro == nil || cfg.ConnectCoro == nil {
		t.Error("expected Logger, WifiCoro and ConnectCoro to be defaulted")
	}
}

func TestConfigWithDefaultsPreservesExplicitZeroMaxRepubs(t *testing.T) {
	zero := 0
	cfg, err := Config{Server: "localhost:1883", MaxRepubs: &zero}.withDefaults()
	if err != nil {
		t.Fatalf("withDefaults: %v", err)
	}
	if cfg.MaxRepubs == nil || *cfg.MaxRepubs != 0 {
		t.Errorf("MaxRepubs = %v, want explicit 0 preserved", cfg.MaxRepubs)
	}
}

func TestConfigWithDefaultsRejectsNegativeMaxRepubs(t *testing.T) {
	negative := -1
	_, err := Config{Server: "localhost:1883", MaxRepubs: &negative}.withDefaults()
	if err == nil {
		t.Fatal("expected an error for a negative MaxRepubs")
	}
}

func TestConfigWithDefaultsPreservesExplicitClientID(t *testing.T) {
	cfg, err := Config{Server: "localhost:1883", ClientID: "device-1"}.withDefaults()
	if err != nil {
		t.Fatalf("withDefaults: %v", err)
	}
	if cfg.ClientID != "device-1" {
		t.Errorf("ClientID = %q, want %q", cfg.ClientID, "device-1")
	}
}

func TestPingEvery(t *testing.T) {
	tests := []struct {
		name         string
		keepAlive    time.Duration
		pingInterval time.Duration
		want         time.Duration
	}{
		{"disabled", 0, 0, 0},
		{"derived from keepalive", 40 * time.Second, 0, 10 * time.Second},
		{"explicit override wins", 40 * time.Second, 20 * time.Second, 20 * time.Second},
		{"explicit smaller than derived is ignored", 40 * time.Second, 5 * time.Second, 10 * time.Second},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{KeepAlive: tt.keepAlive, PingInterval: tt.pingInterval}
			if got := cfg.pingEvery(); got != tt.want {
				t.Errorf("pingEvery() = %v, want %v", got, tt.want)
			}
		})
	}
}

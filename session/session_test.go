package session

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNextPIDSkipsZeroAndWraps(t *testing.T) {
	s := New()
	if got := s.NextPID(); got != 1 {
		t.Fatalf("first NextPID() = %d, want 1", got)
	}

	s = New()
	for i := uint16(1); i < 65535; i++ {
		if got := s.NextPID(); got != i {
			t.Fatalf("NextPID() = %d, want %d", got, i)
		}
	}
	if got := s.NextPID(); got != 65535 {
		t.Fatalf("NextPID() = %d, want 65535", got)
	}
	if got := s.NextPID(); got != 1 {
		t.Fatalf("NextPID() after wraparound = %d, want 1 (0 must be skipped)", got)
	}
}

func TestResetPIDsRestartsAtOne(t *testing.T) {
	s := New()
	s.NextPID()
	s.NextPID()
	s.ResetPIDs()
	if got := s.NextPID(); got != 1 {
		t.Fatalf("NextPID() after ResetPIDs() = %d, want 1", got)
	}
}

func TestSubscriptionRegistry(t *testing.T) {
	s := New()
	s.AddSubscription(&Subscription{Filter: "a/b", QoS: 0})
	s.AddSubscription(&Subscription{Filter: "a/+", QoS: 1})

	require.Len(t, s.Subscriptions(), 2)

	// Replacing an existing filter must not grow the registry.
	s.AddSubscription(&Subscription{Filter: "a/b", QoS: 1})
	subs := s.Subscriptions()
	require.Len(t, subs, 2)
	for _, sub := range subs {
		if sub.Filter == "a/b" {
			require.EqualValues(t, 1, sub.QoS)
		}
	}

	s.RemoveSubscription("a/b")
	subs = s.Subscriptions()
	require.Len(t, subs, 1)
	require.Equal(t, "a/+", subs[0].Filter)

	s.ClearSubscriptions()
	require.Empty(t, s.Subscriptions())
}

func TestMatchHandlerPicksMostSpecificFilter(t *testing.T) {
	s := New()
	var calledWildcard, calledExact bool
	s.AddSubscription(&Subscription{
		Filter:  "a/+",
		Handler: func(string, []byte, uint8, bool, bool) { calledWildcard = true },
	})
	s.AddSubscription(&Subscription{
		Filter:  "a/b",
		Handler: func(string, []byte, uint8, bool, bool) { calledExact = true },
	})

	h := s.MatchHandler("a/b")
	if h == nil {
		t.Fatal("MatchHandler(\"a/b\") = nil, want a handler")
	}
	h("a/b", nil, 0, false, false)
	if !calledExact || calledWildcard {
		t.Errorf("expected the exact-match filter to win over the wildcard, got exact=%v wildcard=%v", calledExact, calledWildcard)
	}
}

func TestMatchHandlerNoMatch(t *testing.T) {
	s := New()
	s.AddSubscription(&Subscription{Filter: "a/b"})
	if h := s.MatchHandler("c/d"); h != nil {
		t.Error("MatchHandler on a non-matching topic returned a handler, want nil")
	}
}

func TestMatchTopic(t *testing.T) {
	tests := []struct {
		filter string
		topic  string
		match  bool
	}{
		{"test/topic", "test/topic", true},
		{"test/topic", "test/other", false},
		{"test/+", "test/topic", true},
		{"test/+", "test/topic/sub", false},
		{"test/+/sub", "test/topic/sub", true},
		{"+/topic", "test/topic", true},
		{"test/#", "test/topic", true},
		{"test/#", "test/topic/sub/deep", true},
		{"test/#", "other/topic", false},
		{"#", "any/topic/here", true},
		{"test/topic/#", "test/topic", true},
		{"+/+/#", "test/topic/sub/deep", true},
		{"", "", true},
		{"test", "test", true},
	}
	for _, tt := range tests {
		t.Run(tt.filter+"_vs_"+tt.topic, func(t *testing.T) {
			if got := MatchTopic(tt.filter, tt.topic); got != tt.match {
				t.Errorf("MatchTopic(%q, %q) = %v, want %v", tt.filter, tt.topic, got, tt.match)
			}
		})
	}
}

func TestMatchTopicDollarPrefixExclusion(t *testing.T) {
	tests := []struct {
		filter string
		topic  string
		match  bool
	}{
		{"#", "$SYS/broker/version", false},
		{"+/monitor", "$SYS/monitor", false},
		{"#", "a/b/c", true},
		{"a/+/c", "a/$SYS/c", true},
	}
	for _, tt := range tests {
		t.Run(tt.filter+"_vs_"+tt.topic, func(t *testing.T) {
			if got := MatchTopic(tt.filter, tt.topic); got != tt.match {
				t.Errorf("MatchTopic(%q, %q) = %v, want %v", tt.filter, tt.topic, got, tt.match)
			}
		})
	}
}

package alert

import (
	"testing"
	"time"

	"order-router-go/resilience"
)

func TestThrottlerSuppressesRepeats(t *testing.T) {
	th := NewThrottler(time.Hour)
	if !th.Allow("k") {
		t.Fatal("first send should pass")
	}
	if th.Allow("k") {
		t.Fatal("repeat within interval should be throttled")
	}
	th.Reset("k")
	if !th.Allow("k") {
		t.Fatal("reset should clear throttle state")
	}
}

func TestManagerSendsToAllChannels(t *testing.T) {
	a := NewMockChannel("a")
	b := NewMockChannel("b")
	m := NewManager([]Channel{a, b}, time.Hour)

	if err := m.VenueTripped("alpha", resilience.Metrics{WindowFailures: 7, WindowCalls: 10}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if a.Count() != 1 || b.Count() != 1 {
		t.Errorf("counts = %d/%d, want 1/1", a.Count(), b.Count())
	}
	if a.Alerts()[0].Level != "CRITICAL" {
		t.Errorf("level = %s, want CRITICAL", a.Alerts()[0].Level)
	}
}

func TestManagerThrottlesSameAlert(t *testing.T) {
	ch := NewMockChannel("ch")
	m := NewManager([]Channel{ch}, time.Hour)

	_ = m.VenueTripped("alpha", resilience.Metrics{})
	_ = m.VenueTripped("alpha", resilience.Metrics{})
	if ch.Count() != 1 {
		t.Errorf("count = %d, want 1 (second alert throttled)", ch.Count())
	}

	// 不同 venue 不互相限流
	_ = m.VenueTripped("beta", resilience.Metrics{})
	if ch.Count() != 2 {
		t.Errorf("count = %d, want 2", ch.Count())
	}
}

func TestManagerErrorWhenAllChannelsFail(t *testing.T) {
	ch := NewMockChannel("ch")
	ch.SetShouldError(true)
	m := NewManager([]Channel{ch}, time.Hour)

	if err := m.VenueRecovered("alpha"); err == nil {
		t.Error("expected error when all channels fail")
	}
}

func TestOnBreakerTransition(t *testing.T) {
	ch := NewMockChannel("ch")
	m := NewManager([]Channel{ch}, time.Hour)

	m.OnBreakerTransition(resilience.Transition{
		VenueID: "alpha",
		From:    resilience.StateClosed,
		To:      resilience.StateOpen,
	})
	m.OnBreakerTransition(resilience.Transition{
		VenueID: "alpha",
		From:    resilience.StateHalfOpen,
		To:      resilience.StateClosed,
	})
	// 半开过渡不产生告警
	m.OnBreakerTransition(resilience.Transition{
		VenueID: "alpha",
		From:    resilience.StateOpen,
		To:      resilience.StateHalfOpen,
	})

	if ch.Count() != 2 {
		t.Fatalf("count = %d, want 2", ch.Count())
	}
	if ch.Alerts()[0].Level != "CRITICAL" || ch.Alerts()[1].Level != "INFO" {
		t.Errorf("levels = %s/%s", ch.Alerts()[0].Level, ch.Alerts()[1].Level)
	}
}

package feedback

import (
	"context"
	"math"
	"testing"
	"time"

	"order-router-go/order"
	"order-router-go/profile"
	"order-router-go/venue"
)

func seedProfile(store *profile.Store, venueID, symbol string) {
	store.ApplyHealth(venueID, symbol, profile.HealthUpdate{
		Status: venue.StatusAvailable,
		Capabilities: venue.Capabilities{
			Symbol:         symbol,
			SupportedKinds: []order.Kind{order.KindMarket},
			MinOrderSize:   1,
			MaxOrderSize:   1_000_000,
			MidPrice:       100,
			DepthQty:       10_000,
		},
	})
}

func TestToUpdateSlippageSign(t *testing.T) {
	buy := ExecutionEvent{
		Side:          order.SideBuy,
		RequestedQty:  100,
		FilledQty:     100,
		ExpectedPrice: 100,
		ExecutedPrice: 100.5, // 买单成交更贵：不利
	}
	u := buy.toUpdate()
	if u.SlippageBps <= 0 {
		t.Errorf("buy adverse slippage = %v, want > 0", u.SlippageBps)
	}
	if math.Abs(u.SlippageBps-50) > 1e-6 {
		t.Errorf("buy slippage = %v, want 50 bps", u.SlippageBps)
	}

	sell := buy
	sell.Side = order.SideSell // 卖单成交更贵：有利
	u = sell.toUpdate()
	if u.SlippageBps >= 0 {
		t.Errorf("sell favorable slippage = %v, want < 0", u.SlippageBps)
	}
}

func TestToUpdatePriceImprovement(t *testing.T) {
	ev := ExecutionEvent{
		Side:          order.SideBuy,
		RequestedQty:  100,
		FilledQty:     100,
		MarketPrice:   100,
		ExecutedPrice: 99.9, // 买单成交低于市场价：改善
	}
	u := ev.toUpdate()
	if math.Abs(u.PriceImprovementBps-10) > 1e-6 {
		t.Errorf("improvement = %v, want 10 bps", u.PriceImprovementBps)
	}
}

func TestToUpdateFillRatio(t *testing.T) {
	ev := ExecutionEvent{
		Side:         order.SideBuy,
		RequestedQty: 200,
		FilledQty:    150,
	}
	u := ev.toUpdate()
	if math.Abs(u.FillRatio-0.75) > 1e-9 {
		t.Errorf("fill ratio = %v, want 0.75", u.FillRatio)
	}
}

func TestLoopAppliesEvents(t *testing.T) {
	store := profile.NewStore()
	seedProfile(store, "alpha", "BTC-USDT")

	loop := NewLoop(store, nil, nil, 8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	ok := loop.OnExecutionEvent(ExecutionEvent{
		VenueID:       "alpha",
		Symbol:        "BTC-USDT",
		Side:          order.SideBuy,
		RequestedQty:  100,
		FilledQty:     100,
		ExpectedPrice: 100,
		ExecutedPrice: 100.2,
		LatencyMs:     42,
		Timestamp:     time.Now(),
	})
	if !ok {
		t.Fatal("event rejected with empty buffer")
	}

	deadline := time.Now().Add(2 * time.Second)
	for loop.Applied() < 1 {
		if time.Now().After(deadline) {
			t.Fatal("event not applied before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}

	p, ok := store.Get("alpha", "BTC-USDT")
	if !ok {
		t.Fatal("profile missing after event")
	}
	if p.AvgLatencyMs != 42 {
		t.Errorf("latency = %v, want 42 (first sample adopted)", p.AvgLatencyMs)
	}
	if p.FillRate != 1 {
		t.Errorf("fill rate = %v, want 1", p.FillRate)
	}
}

func TestLoopFailedEventRaisesErrorRate(t *testing.T) {
	store := profile.NewStore()
	seedProfile(store, "alpha", "BTC-USDT")

	loop := NewLoop(store, nil, nil, 8)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	loop.OnExecutionEvent(ExecutionEvent{
		VenueID: "alpha",
		Symbol:  "BTC-USDT",
		Failed:  true,
	})

	deadline := time.Now().Add(2 * time.Second)
	for loop.Applied() < 1 {
		if time.Now().After(deadline) {
			t.Fatal("event not applied before deadline")
		}
		time.Sleep(5 * time.Millisecond)
	}

	p, _ := store.Get("alpha", "BTC-USDT")
	if p.ErrorRate <= 0 {
		t.Errorf("error rate = %v, want > 0 after failed execution", p.ErrorRate)
	}
}

func TestLoopDropsWhenFull(t *testing.T) {
	store := profile.NewStore()
	loop := NewLoop(store, nil, nil, 1) // 不启动 Run，缓冲立即占满

	ev := ExecutionEvent{VenueID: "alpha", Symbol: "BTC-USDT", RequestedQty: 1, FilledQty: 1}
	if !loop.OnExecutionEvent(ev) {
		t.Fatal("first event should enqueue")
	}
	if loop.OnExecutionEvent(ev) {
		t.Fatal("second event should be dropped")
	}
	if loop.Dropped() != 1 {
		t.Errorf("dropped = %d, want 1", loop.Dropped())
	}
}

func TestParseExecutionReport(t *testing.T) {
	raw := []byte(`{"venue_id":"alpha","symbol":"BTC-USDT","side":"BUY","requested_qty":100,"filled_qty":100,"expected_price":100,"executed_price":100.1,"latency_ms":12}`)
	ev, err := ParseExecutionReport(raw)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if ev.VenueID != "alpha" || ev.LatencyMs != 12 {
		t.Errorf("unexpected event: %+v", ev)
	}

	if _, err := ParseExecutionReport([]byte(`{"symbol":"BTC-USDT"}`)); err == nil {
		t.Error("missing venue id should fail")
	}
	if _, err := ParseExecutionReport([]byte(`not json`)); err == nil {
		t.Error("invalid json should fail")
	}
}

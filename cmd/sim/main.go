// 模拟器：用三个内存 venue 跑一批订单，观察评分、拆单与熔断行为。
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"time"

	"order-router-go/allocation"
	"order-router-go/engine"
	"order-router-go/feedback"
	"order-router-go/infrastructure/logger"
	"order-router-go/order"
	"order-router-go/profile"
	"order-router-go/resilience"
	"order-router-go/venue"
	"order-router-go/venue/mock"
)

const simSymbol = "BTC-USDT"

type simVenue struct {
	id        string
	latencyMs float64
	depth     int64
	spreadBps float64
	flaky     bool
}

func main() {
	orders := flag.Int("orders", 50, "模拟订单数")
	seed := flag.Int64("seed", 42, "随机种子")
	flag.Parse()

	rng := rand.New(rand.NewSource(*seed))

	specs := []simVenue{
		{id: "fast-thin", latencyMs: 15, depth: 20_000, spreadBps: 8},
		{id: "slow-deep", latencyMs: 90, depth: 200_000, spreadBps: 3},
		{id: "flaky", latencyMs: 30, depth: 80_000, spreadBps: 5, flaky: true},
	}

	store := profile.NewStore()
	conns := make([]venue.Connection, 0, len(specs))
	mocks := make(map[string]*mock.Adapter, len(specs))
	for _, s := range specs {
		caps := venue.Capabilities{
			Symbol:         simSymbol,
			SupportedKinds: []order.Kind{order.KindMarket, order.KindLimit},
			MinOrderSize:   1,
			MaxOrderSize:   1_000_000,
			MidPrice:       50_000,
			SpreadBps:      s.spreadBps,
			DepthQty:       s.depth,
			RecentVolume:   s.depth * 4,
		}
		m := mock.New(s.id, caps)
		m.SetLatency(time.Duration(s.latencyMs) * time.Millisecond)
		mocks[s.id] = m
		conns = append(conns, venue.Connection{VenueID: s.id, Adapter: m})

		store.ApplyHealth(s.id, simSymbol, profile.HealthUpdate{
			Status:       venue.StatusAvailable,
			Capabilities: caps,
		})
		store.ApplyExecution(s.id, simSymbol, profile.ExecUpdate{
			LatencyMs: s.latencyMs,
			FillRatio: 1,
		})
	}

	guards := resilience.NewGuardSet(nil, resilience.GuardConfig{
		Timeout: time.Second,
		Retry:   resilience.RetryConfig{MaxAttempts: 1},
		Breaker: resilience.BreakerConfig{WindowSize: 10, MinCalls: 5, FailureThreshold: 0.5, OpenTimeout: 3 * time.Second},
	}, nil, func(ev resilience.Transition) {
		fmt.Printf("  [circuit] %s: %s -> %s\n", ev.VenueID, ev.From, ev.To)
	})

	router, err := engine.NewRouter(engine.Config{MaxSplitVenues: 3}, store, guards, conns, logger.Nop(), nil)
	if err != nil {
		log.Fatalf("初始化路由引擎失败: %v", err)
	}

	loop := feedback.NewLoop(store, nil, nil, 256)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go loop.Run(ctx)

	objectives := order.Objectives()
	outcomes := map[string]int{}

	for i := 0; i < *orders; i++ {
		// 第 20 单起让 flaky venue 持续失败，触发熔断
		if i == 20 {
			mocks["flaky"].SetAlwaysFail(true)
			fmt.Println("-- flaky venue now failing --")
		}

		o := order.Order{
			ID:        fmt.Sprintf("sim-%03d", i),
			Symbol:    simSymbol,
			Side:      order.SideBuy,
			Quantity:  int64(1000 + rng.Intn(120_000)),
			Kind:      order.KindMarket,
			Objective: objectives[rng.Intn(len(objectives))],
		}

		d, err := router.Route(ctx, o)
		if err != nil {
			outcomes["error"]++
			fmt.Printf("%s  %-18s ERROR %v\n", o.ID, o.Objective, err)
			continue
		}
		outcomes[d.Strategy]++
		fmt.Printf("%s  %-18s qty=%-7d %s legs=%d ok=%d conf=%.2f\n",
			o.ID, o.Objective, o.Quantity, d.Strategy, len(d.Allocations), d.SucceededLegs(), d.Confidence)

		// 成功腿合成执行回报，滑点随机
		for _, a := range d.Allocations {
			if a.Status != allocation.StatusDispatched {
				continue
			}
			loop.OnExecutionEvent(feedback.ExecutionEvent{
				DecisionID:    d.DecisionID,
				OrderID:       o.ID,
				VenueID:       a.VenueID,
				Symbol:        simSymbol,
				Side:          o.Side,
				RequestedQty:  a.Quantity,
				FilledQty:     a.Quantity,
				ExpectedPrice: a.ExpectedPrice,
				ExecutedPrice: a.ExpectedPrice * (1 + rng.Float64()*0.0004),
				MarketPrice:   50_000,
				LatencyMs:     float64(5 + rng.Intn(100)),
				Timestamp:     time.Now(),
			})
		}
	}

	fmt.Println("\n== outcome summary ==")
	for k, v := range outcomes {
		fmt.Printf("  %-12s %d\n", k, v)
	}
	fmt.Println("\n== guard metrics ==")
	for _, m := range router.GuardMetrics() {
		fmt.Printf("  %-10s state=%-9s window=%d/%d total=%d/%d\n",
			m.VenueID, m.State, m.WindowFailures, m.WindowCalls, m.TotalFailures, m.TotalSuccesses+m.TotalFailures)
	}
	fmt.Println("\n== profiles ==")
	for _, s := range specs {
		if p, ok := store.Get(s.id, simSymbol); ok {
			fmt.Printf("  %-10s lat=%.1fms fill=%.2f slip=%.1fbps err=%.2f\n",
				s.id, p.AvgLatencyMs, p.FillRate, p.SlippageBps, p.ErrorRate)
		}
	}
}

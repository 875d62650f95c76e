package scoring

import (
	"testing"
	"time"

	"order-router-go/order"
	"order-router-go/profile"
	"order-router-go/venue"
)

func eligibleProfile(venueID string) profile.Profile {
	return profile.Profile{
		VenueID:             venueID,
		Symbol:              "AAPL",
		AvgLatencyMs:        50,
		FillRate:            0.98,
		PriceImprovementBps: 1,
		SlippageBps:         2,
		SpreadBps:           5,
		MidPrice:            190,
		DepthQty:            50_000,
		RecentVolume:        1_000_000,
		SupportedKinds:      []order.Kind{order.KindMarket, order.KindLimit},
		MinOrderSize:        1,
		MaxOrderSize:        100_000,
		Status:              venue.StatusAvailable,
		ErrorRate:           0.01,
		LastUpdated:         time.Unix(1_700_000_000, 0),
	}
}

func testOrder(qty int64, obj order.Objective) order.Order {
	return order.Order{
		ID: "ord-1", Symbol: "AAPL", Side: order.SideBuy,
		Quantity: qty, Kind: order.KindMarket, Objective: obj,
	}
}

func TestEligibilityFilter(t *testing.T) {
	o := testOrder(100, order.ObjectiveBalanced)

	base := eligibleProfile("V1")
	if !Eligible(o, base) {
		t.Fatal("base profile should be eligible")
	}

	busy := base
	busy.Status = venue.StatusBusy
	if Eligible(o, busy) {
		t.Error("non-available status must be excluded")
	}

	noKind := base
	noKind.SupportedKinds = []order.Kind{order.KindLimit}
	if Eligible(o, noKind) {
		t.Error("unsupported order kind must be excluded")
	}

	tooSmall := base
	tooSmall.MinOrderSize = 500
	if Eligible(o, tooSmall) {
		t.Error("quantity below venue minimum must be excluded")
	}

	tooBig := base
	tooBig.MaxOrderSize = 50
	if Eligible(o, tooBig) {
		t.Error("quantity above venue maximum must be excluded")
	}
}

func TestScoreIsDeterministic(t *testing.T) {
	s, err := NewScorer(nil, 0)
	if err != nil {
		t.Fatalf("scorer: %v", err)
	}
	o := testOrder(100, order.ObjectiveBalanced)
	p := eligibleProfile("V1")
	pop := BuildPopulation([]profile.Profile{p})

	a := s.Score(o, p, pop)
	b := s.Score(o, p, pop)
	if a != b {
		t.Fatalf("scoring must be pure: %+v != %+v", a, b)
	}
}

func TestSubScoresBounded(t *testing.T) {
	s, _ := NewScorer(nil, 0)
	o := testOrder(1_000_000, order.ObjectiveBestPrice)

	p := eligibleProfile("V1")
	p.SlippageBps = 50
	p.ErrorRate = 0.9
	pop := BuildPopulation([]profile.Profile{p, eligibleProfile("V2")})

	sc := s.Score(o, p, pop)
	for name, v := range map[string]float64{
		"speed": sc.Speed, "priceQuality": sc.PriceQuality, "reliability": sc.Reliability,
		"liquidity": sc.Liquidity, "cost": sc.Cost, "total": sc.Total,
	} {
		if v < 0 || v > 1 {
			t.Errorf("sub-score %s out of [0,1]: %.4f", name, v)
		}
	}
}

func TestFastestExecutionPrefersLowLatency(t *testing.T) {
	s, _ := NewScorer(nil, 0)
	o := testOrder(100, order.ObjectiveFastestExecution)

	fast := eligibleProfile("FAST")
	fast.AvgLatencyMs = 20
	fast.FillRate = 0.99
	slow := eligibleProfile("SLOW")
	slow.AvgLatencyMs = 80
	slow.FillRate = 0.95

	ranked := s.Rank(o, []profile.Profile{slow, fast})
	if ranked[0].VenueID != "FAST" {
		t.Fatalf("fastest-execution should rank the low-latency venue first, got %s", ranked[0].VenueID)
	}
}

func TestLargeOrderLowersLiquidityScore(t *testing.T) {
	s, _ := NewScorer(nil, 0)
	p := eligibleProfile("V1")
	pop := BuildPopulation([]profile.Profile{p})

	small := s.Score(testOrder(100, order.ObjectiveBalanced), p, pop)
	large := s.Score(testOrder(5_000_000, order.ObjectiveBalanced), p, pop)
	if large.Liquidity >= small.Liquidity {
		t.Fatalf("larger quantity must lower liquidity score: %.4f vs %.4f",
			large.Liquidity, small.Liquidity)
	}
}

func TestTieBreakPrefersLowerErrorRateThenFreshness(t *testing.T) {
	s, _ := NewScorer(nil, 0.05)
	o := testOrder(100, order.ObjectiveBalanced)

	a := eligibleProfile("A")
	b := eligibleProfile("B")
	// 指标相同 → 总分相等 → 平手；B 错误率更低
	a.ErrorRate = 0.05
	b.ErrorRate = 0.01
	ranked := s.Rank(o, []profile.Profile{a, b})
	if ranked[0].VenueID != "B" {
		t.Fatalf("tie-break must prefer lower error rate, got %s", ranked[0].VenueID)
	}

	// 错误率也相同时，比数据新鲜度
	c := eligibleProfile("C")
	d := eligibleProfile("D")
	c.LastUpdated = time.Unix(1_700_000_000, 0)
	d.LastUpdated = time.Unix(1_700_000_100, 0)
	ranked = s.Rank(o, []profile.Profile{c, d})
	if ranked[0].VenueID != "D" {
		t.Fatalf("tie-break must prefer fresher data, got %s", ranked[0].VenueID)
	}
}

func TestWeightTableValidation(t *testing.T) {
	bad := WeightTable{
		order.ObjectiveBestPrice:        {Speed: 0.5, Cost: 0.6},
		order.ObjectiveFastestExecution: DefaultWeightTable()[order.ObjectiveFastestExecution],
		order.ObjectiveLowestCost:       DefaultWeightTable()[order.ObjectiveLowestCost],
		order.ObjectiveBalanced:         DefaultWeightTable()[order.ObjectiveBalanced],
	}
	if _, err := NewScorer(bad, 0); err == nil {
		t.Fatal("weights not summing to 1 must be rejected")
	}

	missing := WeightTable{order.ObjectiveBalanced: DefaultWeightTable()[order.ObjectiveBalanced]}
	if _, err := NewScorer(missing, 0); err == nil {
		t.Fatal("table missing objectives must be rejected")
	}

	if err := DefaultWeightTable().Validate(); err != nil {
		t.Fatalf("default table must validate: %v", err)
	}
}

package allocation

import (
	"math"
	"testing"

	"order-router-go/order"
	"order-router-go/profile"
	"order-router-go/scoring"
	"order-router-go/venue"
)

func splitOrder(qty int64, obj order.Objective) order.Order {
	return order.Order{
		ID: "ord-1", Symbol: "AAPL", Side: order.SideBuy,
		Quantity: qty, Kind: order.KindMarket, Objective: obj,
	}
}

func venueProfile(id string, depth, volume int64) profile.Profile {
	return profile.Profile{
		VenueID: id, Symbol: "AAPL",
		DepthQty: depth, RecentVolume: volume,
		MidPrice: 190, SpreadBps: 5, PriceImprovementBps: 1,
		SupportedKinds: []order.Kind{order.KindMarket},
		MinOrderSize:   1, MaxOrderSize: 10_000_000,
		Status: venue.StatusAvailable, FillRate: 0.98,
	}
}

func rankedScores(totals map[string]float64) []scoring.VenueScore {
	out := make([]scoring.VenueScore, 0, len(totals))
	// 固定顺序：分数降序
	for _, id := range []string{"V1", "V2", "V3"} {
		if total, ok := totals[id]; ok {
			out = append(out, scoring.VenueScore{VenueID: id, Total: total})
		}
	}
	return out
}

func percentSum(allocs []Allocation) float64 {
	var sum float64
	for _, a := range allocs {
		sum += a.Percent
	}
	return sum
}

func TestSingleEligibleVenueAlwaysSingleBest(t *testing.T) {
	sel := NewSelector(0, 0)
	profiles := map[string]profile.Profile{"V1": venueProfile("V1", 100_000, 1_000_000)}
	ranked := rankedScores(map[string]float64{"V1": 0.9})

	// 哪怕目标是 best-price（默认拆单）也必须 single-best
	name, allocs := sel.Allocate(splitOrder(100, order.ObjectiveBestPrice), ranked, profiles)
	if name != "SINGLE_BEST" {
		t.Fatalf("single eligible venue must use single-best, got %s", name)
	}
	if len(allocs) != 1 || allocs[0].Percent != 100 || allocs[0].Quantity != 100 {
		t.Fatalf("unexpected allocation: %+v", allocs)
	}
}

func TestObjectiveStrategyMapping(t *testing.T) {
	sel := NewSelector(0, 0)
	profiles := map[string]profile.Profile{
		"V1": venueProfile("V1", 1_000_000, 10_000_000),
		"V2": venueProfile("V2", 1_000_000, 10_000_000),
	}
	ranked := rankedScores(map[string]float64{"V1": 0.9, "V2": 0.8})

	cases := map[order.Objective]string{
		order.ObjectiveFastestExecution: "SINGLE_BEST",
		order.ObjectiveLowestCost:       "SINGLE_BEST",
		order.ObjectiveBestPrice:        "SMART_SPLIT",
		order.ObjectiveBalanced:         "SMART_SPLIT",
	}
	for obj, want := range cases {
		name, _ := sel.Allocate(splitOrder(100, obj), ranked, profiles)
		if name != want {
			t.Errorf("objective %s: expected %s, got %s", obj, want, name)
		}
	}
}

func TestLargeOrderForcesSplit(t *testing.T) {
	sel := NewSelector(0, 1.0)
	profiles := map[string]profile.Profile{
		"V1": venueProfile("V1", 10_000, 100_000), // 安全容量 15k
		"V2": venueProfile("V2", 10_000, 100_000),
	}
	ranked := rankedScores(map[string]float64{"V1": 0.9, "V2": 0.8})

	// fastest-execution 默认 single-best，但订单量超过头名容量
	name, allocs := sel.Allocate(splitOrder(40_000, order.ObjectiveFastestExecution), ranked, profiles)
	if name != "SMART_SPLIT" {
		t.Fatalf("oversized order must force smart-split, got %s", name)
	}
	if len(allocs) < 2 {
		t.Fatalf("expected multiple legs, got %+v", allocs)
	}
}

func TestSmartSplitRespectsCapacityAndSumsTo100(t *testing.T) {
	sel := NewSelector(0, 0)
	// 三个 venue 各自容量都低于订单量 100000
	profiles := map[string]profile.Profile{
		"V1": venueProfile("V1", 60_000, 200_000), // 容量 50k
		"V2": venueProfile("V2", 50_000, 150_000), // 容量 40k
		"V3": venueProfile("V3", 40_000, 100_000), // 容量 30k
	}
	ranked := rankedScores(map[string]float64{"V1": 0.9, "V2": 0.85, "V3": 0.8})

	o := splitOrder(100_000, order.ObjectiveBestPrice)
	name, allocs := sel.Allocate(o, ranked, profiles)
	if name != "SMART_SPLIT" {
		t.Fatalf("expected smart-split, got %s", name)
	}
	if len(allocs) < 2 {
		t.Fatalf("expected >= 2 legs, got %d", len(allocs))
	}

	var qtySum int64
	for _, a := range allocs {
		capacity := scoring.SafeCapacity(profiles[a.VenueID])
		if a.Quantity > capacity {
			t.Errorf("leg %s exceeds safe capacity: %d > %d", a.VenueID, a.Quantity, capacity)
		}
		qtySum += a.Quantity
	}
	if qtySum != o.Quantity {
		t.Fatalf("quantities must cover the order: %d != %d", qtySum, o.Quantity)
	}
	if sum := percentSum(allocs); math.Abs(sum-100) > 0.01 {
		t.Fatalf("percentages must sum to 100: %.4f", sum)
	}
}

func TestSmartSplitRoundingResidualAbsorbedByLargestLeg(t *testing.T) {
	sel := NewSelector(0, 0)
	profiles := map[string]profile.Profile{
		"V1": venueProfile("V1", 200, 0), // 容量 100
		"V2": venueProfile("V2", 200, 0),
		"V3": venueProfile("V3", 200, 0),
	}
	ranked := rankedScores(map[string]float64{"V1": 0.5, "V2": 0.3, "V3": 0.2})

	// 3 等分产生循环小数，残差必须被吸收
	o := splitOrder(97, order.ObjectiveBalanced)
	_, allocs := sel.Allocate(o, ranked, profiles)
	if sum := percentSum(allocs); math.Abs(sum-100) > 0.01 {
		t.Fatalf("rounded percentages must sum to 100: %.4f", sum)
	}
}

func TestZeroVenuesYieldEmptyAllocation(t *testing.T) {
	sel := NewSelector(0, 0)
	name, allocs := sel.Allocate(splitOrder(100, order.ObjectiveBalanced), nil, nil)
	if len(allocs) != 0 {
		t.Fatalf("no venues must yield no allocations, got %+v (%s)", allocs, name)
	}
}

func TestExpectedPriceSideAdjustment(t *testing.T) {
	p := venueProfile("V1", 1000, 0)
	buy := expectedPrice(splitOrder(10, order.ObjectiveBalanced), p)
	s := splitOrder(10, order.ObjectiveBalanced)
	s.Side = order.SideSell
	sell := expectedPrice(s, p)
	if buy <= sell {
		t.Fatalf("buy expected price should sit above sell: buy=%.4f sell=%.4f", buy, sell)
	}
}

package allocation

import (
	"math"

	"order-router-go/order"
	"order-router-go/profile"
	"order-router-go/scoring"
)

// SmartSplit 按分数比例把订单切到 top-K venue，
// 每腿不超过该 venue 的流动性安全容量。
type SmartSplit struct {
	// MaxVenues 单笔订单最多拆到几个 venue，0 表示不限。
	MaxVenues int
}

func (SmartSplit) Name() string { return "SMART_SPLIT" }

func (s SmartSplit) Allocate(o order.Order, ranked []scoring.VenueScore, profiles map[string]profile.Profile) []Allocation {
	if len(ranked) == 0 {
		return nil
	}
	if len(ranked) == 1 {
		return SingleBest{}.Allocate(o, ranked, profiles)
	}

	// 选取 top-K：累计安全容量覆盖订单量即停
	type candidate struct {
		score    scoring.VenueScore
		capacity int64
		qty      int64
	}
	var cands []candidate
	var capSum int64
	for _, sc := range ranked {
		if s.MaxVenues > 0 && len(cands) >= s.MaxVenues {
			break
		}
		capacity := scoring.SafeCapacity(profiles[sc.VenueID])
		if capacity <= 0 {
			continue
		}
		cands = append(cands, candidate{score: sc, capacity: capacity})
		capSum += capacity
		if capSum >= o.Quantity {
			break
		}
	}
	if len(cands) == 0 {
		return SingleBest{}.Allocate(o, ranked, profiles)
	}

	// 第一轮：按总分比例分配，封顶于安全容量
	var weightSum float64
	for _, c := range cands {
		weightSum += c.score.Total
	}
	remaining := o.Quantity
	for i := range cands {
		share := 1.0 / float64(len(cands))
		if weightSum > 0 {
			share = cands[i].score.Total / weightSum
		}
		qty := int64(math.Floor(float64(o.Quantity) * share))
		if qty > cands[i].capacity {
			qty = cands[i].capacity
		}
		cands[i].qty = qty
		remaining -= qty
	}

	// 第二轮：余量按排名填充仍有容量的 venue
	for i := range cands {
		if remaining <= 0 {
			break
		}
		spare := cands[i].capacity - cands[i].qty
		if spare <= 0 {
			continue
		}
		fill := spare
		if fill > remaining {
			fill = remaining
		}
		cands[i].qty += fill
		remaining -= fill
	}
	// 容量整体不足时，余量压到头名（无法避免的冲击）
	if remaining > 0 {
		cands[0].qty += remaining
	}

	// 组装分配清单，百分比保留两位小数，最大腿吸收舍入残差
	allocs := make([]Allocation, 0, len(cands))
	largest := 0
	var pctSum float64
	for i, c := range cands {
		if c.qty <= 0 {
			continue
		}
		pct := roundPct(float64(c.qty) / float64(o.Quantity) * 100)
		a := Allocation{
			VenueID:       c.score.VenueID,
			Percent:       pct,
			Quantity:      c.qty,
			ExpectedPrice: expectedPrice(o, profiles[c.score.VenueID]),
			Rank:          i + 1,
			Status:        StatusPending,
		}
		allocs = append(allocs, a)
		pctSum += pct
		if a.Quantity > allocs[largest].Quantity {
			largest = len(allocs) - 1
		}
	}
	if len(allocs) > 0 {
		allocs[largest].Percent = roundPct(allocs[largest].Percent + (100 - pctSum))
	}
	return allocs
}

func roundPct(v float64) float64 {
	return math.Round(v*100) / 100
}

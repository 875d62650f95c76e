package allocation

import (
	"order-router-go/order"
	"order-router-go/profile"
	"order-router-go/scoring"
)

// DefaultLargeOrderRatio 订单量超过头名 venue 安全容量的该倍数时，
// 无论路由目标如何都改走拆单。
const DefaultLargeOrderRatio = 1.0

// Selector 按路由目标（以及大单阈值）选择分配策略。
// 目标到策略的映射是配置表，不是每次调用的分支逻辑。
type Selector struct {
	single          Strategy
	split           Strategy
	byObjective     map[order.Objective]Strategy
	largeOrderRatio float64
}

// NewSelector 创建策略选择器。
func NewSelector(maxSplitVenues int, largeOrderRatio float64) *Selector {
	if largeOrderRatio <= 0 {
		largeOrderRatio = DefaultLargeOrderRatio
	}
	single := SingleBest{}
	split := SmartSplit{MaxVenues: maxSplitVenues}
	return &Selector{
		single: single,
		split:  split,
		byObjective: map[order.Objective]Strategy{
			order.ObjectiveBestPrice:        split,
			order.ObjectiveBalanced:         split,
			order.ObjectiveFastestExecution: single,
			order.ObjectiveLowestCost:       single,
		},
		largeOrderRatio: largeOrderRatio,
	}
}

// Select 返回本次路由应当使用的策略。
// 仅一个合格 venue 时恒为 single-best；大单强制拆单。
func (s *Selector) Select(o order.Order, ranked []scoring.VenueScore, profiles map[string]profile.Profile) Strategy {
	if len(ranked) <= 1 {
		return s.single
	}
	strat, ok := s.byObjective[o.Objective]
	if !ok {
		strat = s.single
	}
	if strat == s.single {
		topCap := scoring.SafeCapacity(profiles[ranked[0].VenueID])
		if topCap > 0 && float64(o.Quantity) > s.largeOrderRatio*float64(topCap) {
			return s.split
		}
	}
	return strat
}

// Allocate 选择策略并产出分配清单。
func (s *Selector) Allocate(o order.Order, ranked []scoring.VenueScore, profiles map[string]profile.Profile) (string, []Allocation) {
	strat := s.Select(o, ranked, profiles)
	return strat.Name(), strat.Allocate(o, ranked, profiles)
}

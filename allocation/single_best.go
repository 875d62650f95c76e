package allocation

import (
	"order-router-go/order"
	"order-router-go/profile"
	"order-router-go/scoring"
)

// SingleBest 全量分给总分最高的 venue。
type SingleBest struct{}

func (SingleBest) Name() string { return "SINGLE_BEST" }

func (SingleBest) Allocate(o order.Order, ranked []scoring.VenueScore, profiles map[string]profile.Profile) []Allocation {
	if len(ranked) == 0 {
		return nil
	}
	top := ranked[0]
	return []Allocation{{
		VenueID:       top.VenueID,
		Percent:       100,
		Quantity:      o.Quantity,
		ExpectedPrice: expectedPrice(o, profiles[top.VenueID]),
		Rank:          1,
		Status:        StatusPending,
	}}
}

// Package allocation partitions one order across ranked venues.
package allocation

import (
	"order-router-go/order"
	"order-router-go/profile"
	"order-router-go/scoring"
)

// Status 单腿分配的派单结果状态。
type Status string

const (
	StatusPending    Status = "PENDING"
	StatusDispatched Status = "DISPATCHED"
	StatusFailed     Status = "FAILED"
	StatusTimeout    Status = "TIMEOUT"
	StatusSkipped    Status = "SKIPPED" // 熔断短路，未触达 venue
)

// Allocation 是路由决策内的单腿记录。
type Allocation struct {
	VenueID       string  `json:"venue_id"`
	Percent       float64 `json:"percent"` // 占总量百分比 [0,100]，两位小数
	Quantity      int64   `json:"quantity"`
	ExpectedPrice float64 `json:"expected_price"`
	Rank          int     `json:"rank"`
	Status        Status  `json:"status"`
}

// Strategy 把已按总分降序排列的 venue 集合切分成分配清单。
type Strategy interface {
	Name() string
	Allocate(o order.Order, ranked []scoring.VenueScore, profiles map[string]profile.Profile) []Allocation
}

// expectedPrice 由画像的中间价/点差/价格改善推算单腿期望成交价。
// 买单吃 ask、卖单吃 bid，价格改善向有利方向修正。
func expectedPrice(o order.Order, p profile.Profile) float64 {
	mid := p.MidPrice
	if mid <= 0 {
		// 无盘口信息时退回限价（市价单为 0，表示未知）
		return o.LimitPrice
	}
	half := p.SpreadBps / 2 / 10_000
	improve := p.PriceImprovementBps / 10_000
	if o.Side == order.SideBuy {
		return mid * (1 + half - improve)
	}
	return mid * (1 - half + improve)
}

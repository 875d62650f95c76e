package engine

import (
	"time"

	"order-router-go/allocation"
	"order-router-go/order"
)

// RoutingDecision 一次路由调用的最终产物，返回后不再修改。
// 历史持久化由外部审计协作方负责。
type RoutingDecision struct {
	DecisionID  string                  `json:"decision_id"`
	OrderID     string                  `json:"order_id"`
	Symbol      string                  `json:"symbol"`
	Strategy    string                  `json:"strategy"`
	Allocations []allocation.Allocation `json:"allocations"`
	Confidence  float64                 `json:"confidence"` // [0,1]
	// ExpectedTimeMs 按分配占比加权的期望执行耗时估计。
	ExpectedTimeMs float64     `json:"expected_time_ms"`
	State          order.State `json:"state"`
	CreatedAt      time.Time   `json:"created_at"`
}

// SucceededLegs 返回成功派出的腿数。
func (d *RoutingDecision) SucceededLegs() int {
	n := 0
	for _, a := range d.Allocations {
		if a.Status == allocation.StatusDispatched {
			n++
		}
	}
	return n
}

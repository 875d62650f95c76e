package profile

import (
	"time"

	"order-router-go/order"
	"order-router-go/venue"
)

// Profile 保存单个 (venue, symbol) 的执行质量画像与能力数据。
// 数值指标由 EWMA 平滑，能力/状态字段直接覆盖。
type Profile struct {
	VenueID string
	Symbol  string

	// 执行质量指标（EWMA 平滑）
	AvgLatencyMs        float64
	FillRate            float64 // [0,1]
	PriceImprovementBps float64 // 带符号，正=有利
	SlippageBps         float64
	ErrorRate           float64 // [0,1]

	// 盘口/能力快照（最新覆盖）
	SpreadBps      float64
	MidPrice       float64
	DepthQty       int64
	RecentVolume   int64
	SupportedKinds []order.Kind
	MinOrderSize   int64
	MaxOrderSize   int64
	Status         venue.Status

	LastUpdated time.Time
}

// SupportsKind reports whether the profiled venue accepts the order kind.
func (p Profile) SupportsKind(kind order.Kind) bool {
	for _, k := range p.SupportedKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// ExecUpdate 是反馈回路产出的单次执行观测。
// Failed 为 true 时只推高错误率，不更新延迟/价格字段。
type ExecUpdate struct {
	LatencyMs           float64
	SlippageBps         float64
	PriceImprovementBps float64
	FillRatio           float64 // 实际成交量 / 委托量
	Failed              bool
}

// HealthUpdate 是周期健康轮询产出的能力/状态快照。
type HealthUpdate struct {
	Status       venue.Status
	Capabilities venue.Capabilities
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

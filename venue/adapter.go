// Package venue defines the uniform boundary to downstream execution venues.
// The engine never talks transport; it only sees this adapter surface.
package venue

import (
	"context"
	"time"

	"order-router-go/order"
)

// Status 场所运行状态，由健康检查上报。
type Status string

const (
	StatusAvailable   Status = "AVAILABLE"
	StatusBusy        Status = "BUSY"
	StatusMaintenance Status = "MAINTENANCE"
	StatusOffline     Status = "OFFLINE"
	StatusError       Status = "ERROR"
)

// Capabilities describes what a venue can currently accept for one symbol.
type Capabilities struct {
	Symbol         string
	SupportedKinds []order.Kind
	MinOrderSize   int64
	MaxOrderSize   int64
	MidPrice       float64 // 当前中间价，0 表示未知
	SpreadBps      float64
	DepthQty       int64 // 可见盘口深度（数量）
	RecentVolume   int64
}

// Supports reports whether the venue accepts the given order kind.
func (c Capabilities) Supports(kind order.Kind) bool {
	for _, k := range c.SupportedKinds {
		if k == kind {
			return true
		}
	}
	return false
}

// Slice 是路由决策产出的单腿委托，发往单一 venue。
type Slice struct {
	DecisionID string
	OrderID    string
	VenueID    string
	Symbol     string
	Side       order.Side
	Kind       order.Kind
	Quantity   int64
	LimitPrice float64
}

// ExecutionAck acknowledges that a venue accepted a slice.
type ExecutionAck struct {
	VenueOrderID string
	VenueID      string
	AcceptedAt   time.Time
}

// Adapter is the uniform per-venue interface. Transport (REST/gRPC/FIX)
// is the adapter implementation's concern.
type Adapter interface {
	SubmitOrder(ctx context.Context, s Slice) (ExecutionAck, error)
	GetCapabilities(ctx context.Context, symbol string) (Capabilities, error)
	HealthCheck(ctx context.Context) (Status, error)
}

// Connection 将 venue 标识与其 adapter 绑定，由调用方传入路由引擎。
type Connection struct {
	VenueID string
	Adapter Adapter
}

package scoring

import (
	"order-router-go/order"
	"order-router-go/profile"
	"order-router-go/venue"
)

// Eligible 打分前的资格过滤：不合格的 venue 直接排除，而不是打低分。
// 过期画像由 profile.Store.Get 先行排除，这里不重复判断。
func Eligible(o order.Order, p profile.Profile) bool {
	if p.Status != venue.StatusAvailable {
		return false
	}
	if !p.SupportsKind(o.Kind) {
		return false
	}
	if o.Quantity < p.MinOrderSize || o.Quantity > p.MaxOrderSize {
		return false
	}
	return true
}

// SafeCapacity 流动性允许的单腿安全容量：
// 可见深度的一半加近期成交量的 10%。超过该值的单腿分配有市场冲击风险。
func SafeCapacity(p profile.Profile) int64 {
	return p.DepthQty/2 + p.RecentVolume/10
}

// NearBoundary 判断订单数量是否贴近该 venue 的尺寸边界（10% 以内），
// 用于置信度折减。
func NearBoundary(o order.Order, p profile.Profile) bool {
	if p.MinOrderSize > 0 {
		lower := float64(p.MinOrderSize) * 1.1
		if float64(o.Quantity) <= lower {
			return true
		}
	}
	if p.MaxOrderSize > 0 {
		upper := float64(p.MaxOrderSize) * 0.9
		if float64(o.Quantity) >= upper {
			return true
		}
	}
	return false
}

package engine

import (
	"order-router-go/order"
	"order-router-go/profile"
	"order-router-go/scoring"
)

// boundaryPenalty 有 venue 贴近尺寸边界时的置信度折减。
const boundaryPenalty = 0.1

// confidence 聚合置信度：参与 venue 越多、平均分越高置信度越高；
// 任一参与 venue 贴近其资格边界时折减。
func confidence(o order.Order, contributors []scoring.VenueScore, profiles map[string]profile.Profile) float64 {
	n := len(contributors)
	if n == 0 {
		return 0
	}

	var avg float64
	for _, sc := range contributors {
		avg += sc.Total
	}
	avg /= float64(n)

	// n/(n+1)：1 个 venue 上限 0.5，venue 越多越接近平均分本身
	c := avg * float64(n) / float64(n+1)

	for _, sc := range contributors {
		if scoring.NearBoundary(o, profiles[sc.VenueID]) {
			c -= boundaryPenalty
			break
		}
	}

	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}

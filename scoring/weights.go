package scoring

import (
	"fmt"
	"math"

	"order-router-go/order"
)

// Weights 五个子分的权重，按路由目标配置，和必须为 1。
type Weights struct {
	Speed        float64 `yaml:"speed"`
	PriceQuality float64 `yaml:"priceQuality"`
	Reliability  float64 `yaml:"reliability"`
	Liquidity    float64 `yaml:"liquidity"`
	Cost         float64 `yaml:"cost"`
}

// Validate 校验权重和为 1（容差 1e-6）。
func (w Weights) Validate() error {
	sum := w.Speed + w.PriceQuality + w.Reliability + w.Liquidity + w.Cost
	if math.Abs(sum-1) > 1e-6 {
		return fmt.Errorf("weights must sum to 1, got %.6f", sum)
	}
	if w.Speed < 0 || w.PriceQuality < 0 || w.Reliability < 0 || w.Liquidity < 0 || w.Cost < 0 {
		return fmt.Errorf("weights must be non-negative: %+v", w)
	}
	return nil
}

// WeightTable 路由目标到权重向量的映射。
// 新增目标只需加一行配置，不需要新的分支代码。
type WeightTable map[order.Objective]Weights

// DefaultWeightTable 返回内置权重表。
func DefaultWeightTable() WeightTable {
	return WeightTable{
		order.ObjectiveBestPrice: {
			Speed: 0.10, PriceQuality: 0.40, Reliability: 0.15, Liquidity: 0.10, Cost: 0.25,
		},
		order.ObjectiveFastestExecution: {
			Speed: 0.50, PriceQuality: 0.10, Reliability: 0.20, Liquidity: 0.10, Cost: 0.10,
		},
		order.ObjectiveLowestCost: {
			Speed: 0.10, PriceQuality: 0.25, Reliability: 0.15, Liquidity: 0.10, Cost: 0.40,
		},
		order.ObjectiveBalanced: {
			Speed: 0.20, PriceQuality: 0.20, Reliability: 0.20, Liquidity: 0.20, Cost: 0.20,
		},
	}
}

// Validate 校验表内每个目标的权重。
func (t WeightTable) Validate() error {
	for _, obj := range order.Objectives() {
		w, ok := t[obj]
		if !ok {
			return fmt.Errorf("weight table missing objective %s", obj)
		}
		if err := w.Validate(); err != nil {
			return fmt.Errorf("objective %s: %w", obj, err)
		}
	}
	return nil
}

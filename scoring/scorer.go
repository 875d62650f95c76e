package scoring

import (
	"fmt"
	"sort"
	"time"

	"order-router-go/order"
	"order-router-go/profile"
)

// DefaultEpsilon 总分差小于该值视为平手，走平手裁决。
const DefaultEpsilon = 0.01

// VenueScore 单次路由调用中某 venue 的评分，临时对象，不持久化。
type VenueScore struct {
	VenueID string

	Speed        float64
	PriceQuality float64
	Reliability  float64
	Liquidity    float64
	Cost         float64
	Total        float64

	// 平手裁决依据
	ErrorRate   float64
	LastUpdated time.Time
}

// Population 同一订单下全部合格 venue 的归一化基准。
// speed/cost 等子分是相对当前合格集合归一的。
type Population struct {
	MinLatencyMs float64
	MaxLatencyMs float64
	MinPIBps     float64
	MaxPIBps     float64
	MinSlipBps   float64
	MaxSlipBps   float64
	MinSpreadBps float64
	MaxSpreadBps float64
}

// BuildPopulation 从合格画像集合提取归一化基准。
func BuildPopulation(profiles []profile.Profile) Population {
	var pop Population
	for i, p := range profiles {
		if i == 0 {
			pop = Population{
				MinLatencyMs: p.AvgLatencyMs, MaxLatencyMs: p.AvgLatencyMs,
				MinPIBps: p.PriceImprovementBps, MaxPIBps: p.PriceImprovementBps,
				MinSlipBps: p.SlippageBps, MaxSlipBps: p.SlippageBps,
				MinSpreadBps: p.SpreadBps, MaxSpreadBps: p.SpreadBps,
			}
			continue
		}
		pop.MinLatencyMs = min(pop.MinLatencyMs, p.AvgLatencyMs)
		pop.MaxLatencyMs = max(pop.MaxLatencyMs, p.AvgLatencyMs)
		pop.MinPIBps = min(pop.MinPIBps, p.PriceImprovementBps)
		pop.MaxPIBps = max(pop.MaxPIBps, p.PriceImprovementBps)
		pop.MinSlipBps = min(pop.MinSlipBps, p.SlippageBps)
		pop.MaxSlipBps = max(pop.MaxSlipBps, p.SlippageBps)
		pop.MinSpreadBps = min(pop.MinSpreadBps, p.SpreadBps)
		pop.MaxSpreadBps = max(pop.MaxSpreadBps, p.SpreadBps)
	}
	return pop
}

// slippagePenalty 滑点对价格质量分的折减系数。
const slippagePenalty = 0.5

// Scorer 纯函数打分器：同样的输入永远得到同样的输出。
type Scorer struct {
	weights WeightTable
	epsilon float64
}

// NewScorer 创建打分器；table 为空时使用内置权重表。
func NewScorer(table WeightTable, epsilon float64) (*Scorer, error) {
	if table == nil {
		table = DefaultWeightTable()
	}
	if err := table.Validate(); err != nil {
		return nil, fmt.Errorf("invalid weight table: %w", err)
	}
	if epsilon <= 0 {
		epsilon = DefaultEpsilon
	}
	return &Scorer{weights: table, epsilon: epsilon}, nil
}

// Score 计算单个 venue 的五维子分与加权总分。
func (s *Scorer) Score(o order.Order, p profile.Profile, pop Population) VenueScore {
	w := s.weights[o.Objective]

	sc := VenueScore{
		VenueID:     p.VenueID,
		ErrorRate:   p.ErrorRate,
		LastUpdated: p.LastUpdated,
	}

	// speed: 延迟相对合格集合反向归一，最快≈1
	sc.Speed = invNorm(p.AvgLatencyMs, pop.MinLatencyMs, pop.MaxLatencyMs)

	// price-quality: 价格改善归一后按滑点折减
	normPI := norm(p.PriceImprovementBps, pop.MinPIBps, pop.MaxPIBps)
	normSlip := norm(p.SlippageBps, pop.MinSlipBps, pop.MaxSlipBps)
	sc.PriceQuality = clamp01(normPI - slippagePenalty*normSlip)

	// reliability
	sc.Reliability = clamp01(p.FillRate * (1 - p.ErrorRate))

	// liquidity: 安全容量相对订单数量，数量越大相对深度分越低
	if capacity := SafeCapacity(p); capacity > 0 && o.Quantity > 0 {
		sc.Liquidity = clamp01(float64(capacity) / float64(o.Quantity))
	}

	// cost: 点差反向归一，越窄越高
	sc.Cost = invNorm(p.SpreadBps, pop.MinSpreadBps, pop.MaxSpreadBps)

	sc.Total = w.Speed*sc.Speed +
		w.PriceQuality*sc.PriceQuality +
		w.Reliability*sc.Reliability +
		w.Liquidity*sc.Liquidity +
		w.Cost*sc.Cost
	return sc
}

// Rank 打分全部合格画像并按总分降序排列，近分差走平手裁决：
// 先比近期错误率（低者优先），再比画像新鲜度（新者优先）。
func (s *Scorer) Rank(o order.Order, profiles []profile.Profile) []VenueScore {
	pop := BuildPopulation(profiles)
	scores := make([]VenueScore, 0, len(profiles))
	for _, p := range profiles {
		scores = append(scores, s.Score(o, p, pop))
	}

	sort.SliceStable(scores, func(i, j int) bool {
		a, b := scores[i], scores[j]
		d := a.Total - b.Total
		if d > s.epsilon {
			return true
		}
		if d < -s.epsilon {
			return false
		}
		if a.ErrorRate != b.ErrorRate {
			return a.ErrorRate < b.ErrorRate
		}
		return a.LastUpdated.After(b.LastUpdated)
	})
	return scores
}

// norm 线性归一到 [0,1]；区间退化（单 venue 或全相等）时返回 1。
func norm(v, lo, hi float64) float64 {
	if hi <= lo {
		return 1
	}
	return clamp01((v - lo) / (hi - lo))
}

// invNorm 反向归一：值越小得分越高。
func invNorm(v, lo, hi float64) float64 {
	if hi <= lo {
		return 1
	}
	return clamp01((hi - v) / (hi - lo))
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

// Package engine orchestrates the full routing pipeline: validate,
// score, allocate, dispatch.
package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"order-router-go/allocation"
	"order-router-go/infrastructure/logger"
	"order-router-go/monitor"
	"order-router-go/order"
	"order-router-go/profile"
	"order-router-go/resilience"
	"order-router-go/scoring"
	"order-router-go/venue"
)

// DefaultDispatchTimeout 订单未携带截止时间时的派单兜底超时。
const DefaultDispatchTimeout = 5 * time.Second

// Config 路由引擎配置。
type Config struct {
	Epsilon         float64             // 评分平手阈值
	Weights         scoring.WeightTable // 空则使用内置权重表
	MaxSplitVenues  int
	LargeOrderRatio float64
	DispatchTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.DispatchTimeout <= 0 {
		c.DispatchTimeout = DefaultDispatchTimeout
	}
	return c
}

// Router 路由引擎：持有画像存储、评分器、分配选择器与派单防护。
// 所有方法并发安全；venue 集合在构造后不可变。
type Router struct {
	store    *profile.Store
	guards   *resilience.GuardSet
	sm       *order.StateMachine
	adapters map[string]venue.Adapter
	log      *logger.Logger
	mon      *monitor.Monitor

	// 评分/分配参数支持热更新，读写经 mu
	mu       sync.RWMutex
	cfg      Config
	scorer   *scoring.Scorer
	selector *allocation.Selector
}

// NewRouter 创建路由引擎。conns 为引擎可达的全部 venue 连接。
func NewRouter(cfg Config, store *profile.Store, guards *resilience.GuardSet, conns []venue.Connection, log *logger.Logger, mon *monitor.Monitor) (*Router, error) {
	cfg = cfg.withDefaults()
	if store == nil {
		return nil, fmt.Errorf("engine: profile store is required")
	}
	if guards == nil {
		return nil, fmt.Errorf("engine: guard set is required")
	}
	if len(conns) == 0 {
		return nil, fmt.Errorf("engine: at least one venue connection is required")
	}
	if log == nil {
		log = logger.Nop()
	}

	scorer, err := scoring.NewScorer(cfg.Weights, cfg.Epsilon)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	adapters := make(map[string]venue.Adapter, len(conns))
	for _, c := range conns {
		if c.VenueID == "" || c.Adapter == nil {
			return nil, fmt.Errorf("engine: venue connection missing id or adapter")
		}
		if _, ok := adapters[c.VenueID]; ok {
			return nil, fmt.Errorf("engine: duplicate venue connection %q", c.VenueID)
		}
		adapters[c.VenueID] = c.Adapter
	}

	return &Router{
		cfg:      cfg,
		store:    store,
		scorer:   scorer,
		selector: allocation.NewSelector(cfg.MaxSplitVenues, cfg.LargeOrderRatio),
		guards:   guards,
		sm:       order.NewStateMachine(),
		adapters: adapters,
		log:      log,
		mon:      mon,
	}, nil
}

// ApplyRouting 热更新评分权重与分配参数，新配置对之后的订单生效。
// 配置非法时返回错误且保持原参数不变。
func (r *Router) ApplyRouting(cfg Config) error {
	cfg = cfg.withDefaults()
	scorer, err := scoring.NewScorer(cfg.Weights, cfg.Epsilon)
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}
	r.mu.Lock()
	r.cfg = cfg
	r.scorer = scorer
	r.selector = allocation.NewSelector(cfg.MaxSplitVenues, cfg.LargeOrderRatio)
	r.mu.Unlock()
	r.log.LogRouting("routing_params_applied", "", map[string]interface{}{
		"epsilon":           cfg.Epsilon,
		"max_split_venues":  cfg.MaxSplitVenues,
		"large_order_ratio": cfg.LargeOrderRatio,
	})
	return nil
}

func (r *Router) routingParams() (*scoring.Scorer, *allocation.Selector, time.Duration) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.scorer, r.selector, r.cfg.DispatchTimeout
}

// Route 对单笔订单执行完整路由流程并派单。
// 整单失败（校验失败/无合格 venue）返回 *RoutingError；
// 单腿派单失败只体现在分配状态上，不构成整单错误。
func (r *Router) Route(ctx context.Context, o order.Order) (*RoutingDecision, error) {
	start := time.Now()
	state := order.StateValidating

	if err := o.Validate(); err != nil {
		r.mon.ObserveDecision("", "invalid_order", time.Since(start).Seconds(), 0)
		r.log.LogError(err, map[string]interface{}{"order_id": o.ID, "stage": "validating"})
		return nil, invalidOrder(o.ID, err)
	}

	if err := r.advance(&state, order.StateScoring); err != nil {
		return nil, invalidOrder(o.ID, err)
	}

	eligible, byVenue := r.eligibleProfiles(o)
	if len(eligible) == 0 {
		r.mon.ObserveDecision("", "no_eligible_venue", time.Since(start).Seconds(), 0)
		r.log.LogRouting("no_eligible_venue", "", map[string]interface{}{
			"order_id": o.ID,
			"symbol":   o.Symbol,
		})
		return nil, noEligibleVenue(o.ID, fmt.Sprintf("symbol %s: 0 of %d venues eligible", o.Symbol, len(r.adapters)))
	}

	scorer, selector, dispatchTimeout := r.routingParams()

	ranked := scorer.Rank(o, eligible)

	if err := r.advance(&state, order.StateAllocating); err != nil {
		return nil, invalidOrder(o.ID, err)
	}

	strategy, allocs := selector.Allocate(o, ranked, byVenue)
	if len(allocs) == 0 {
		r.mon.ObserveDecision(strategy, "no_eligible_venue", time.Since(start).Seconds(), 0)
		return nil, noEligibleVenue(o.ID, "allocation produced no legs")
	}

	contributors := contributorScores(ranked, allocs)

	decision := &RoutingDecision{
		DecisionID:     uuid.NewString(),
		OrderID:        o.ID,
		Symbol:         o.Symbol,
		Strategy:       strategy,
		Allocations:    allocs,
		Confidence:     confidence(o, contributors, byVenue),
		ExpectedTimeMs: expectedTimeMs(allocs, byVenue),
		CreatedAt:      start.UTC(),
	}

	if err := r.advance(&state, order.StateDispatching); err != nil {
		return nil, invalidOrder(o.ID, err)
	}
	decision.State = state

	r.log.LogRouting("decision_made", decision.DecisionID, map[string]interface{}{
		"order_id":    o.ID,
		"symbol":      o.Symbol,
		"strategy":    strategy,
		"legs":        len(allocs),
		"confidence":  decision.Confidence,
		"expected_ms": decision.ExpectedTimeMs,
	})

	r.dispatch(ctx, o, decision, dispatchTimeout)

	if err := r.advance(&state, order.StateCompleted); err != nil {
		return nil, invalidOrder(o.ID, err)
	}
	decision.State = state

	r.mon.ObserveDecision(strategy, "completed", time.Since(start).Seconds(), decision.Confidence)
	r.log.LogRouting("decision_completed", decision.DecisionID, map[string]interface{}{
		"order_id":       o.ID,
		"legs":           len(decision.Allocations),
		"succeeded_legs": decision.SucceededLegs(),
		"elapsed_ms":     float64(time.Since(start).Microseconds()) / 1000,
	})
	return decision, nil
}

// GuardMetrics 返回全部 venue 的熔断指标快照。
func (r *Router) GuardMetrics() []resilience.Metrics {
	return r.guards.Snapshot()
}

// eligibleProfiles 收集该订单的合格 venue 画像。
// 画像过期由 Store.Get 过滤；熔断打开且未到探测窗口的 venue 剔除。
func (r *Router) eligibleProfiles(o order.Order) ([]profile.Profile, map[string]profile.Profile) {
	eligible := make([]profile.Profile, 0, len(r.adapters))
	byVenue := make(map[string]profile.Profile, len(r.adapters))
	for venueID := range r.adapters {
		p, ok := r.store.Get(venueID, o.Symbol)
		if !ok {
			continue
		}
		if !scoring.Eligible(o, p) {
			continue
		}
		if !r.guards.Get(venueID).Breaker().AllowRequest() {
			continue
		}
		eligible = append(eligible, p)
		byVenue[venueID] = p
	}
	return eligible, byVenue
}

func (r *Router) advance(state *order.State, to order.State) error {
	if err := r.sm.ValidateTransition(*state, to); err != nil {
		return err
	}
	*state = to
	return nil
}

// contributorScores 从排序结果中挑出实际获得分配的 venue 评分。
func contributorScores(ranked []scoring.VenueScore, allocs []allocation.Allocation) []scoring.VenueScore {
	picked := make(map[string]bool, len(allocs))
	for _, a := range allocs {
		picked[a.VenueID] = true
	}
	out := make([]scoring.VenueScore, 0, len(allocs))
	for _, sc := range ranked {
		if picked[sc.VenueID] {
			out = append(out, sc)
		}
	}
	return out
}

// expectedTimeMs 按分配占比加权各 venue 的平均延迟。
func expectedTimeMs(allocs []allocation.Allocation, byVenue map[string]profile.Profile) float64 {
	var total float64
	for _, a := range allocs {
		total += a.Percent / 100 * byVenue[a.VenueID].AvgLatencyMs
	}
	return total
}

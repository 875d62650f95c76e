package resilience

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// RetryConfig 重试策略：有界次数 + 退避。
// BackoffFactor > 1 为指数退避，否则为固定间隔。
type RetryConfig struct {
	MaxAttempts   int
	Backoff       time.Duration
	BackoffFactor float64
}

func (c RetryConfig) withDefaults() RetryConfig {
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.Backoff <= 0 {
		c.Backoff = 100 * time.Millisecond
	}
	if c.BackoffFactor <= 0 {
		c.BackoffFactor = 2
	}
	return c
}

// GuardConfig 单个 venue 的弹性配置。
type GuardConfig struct {
	Timeout time.Duration // 单次调用硬超时
	Retry   RetryConfig
	Breaker BreakerConfig
}

func (c GuardConfig) withDefaults() GuardConfig {
	if c.Timeout <= 0 {
		c.Timeout = 2 * time.Second
	}
	c.Retry = c.Retry.withDefaults()
	return c
}

// Guard 包裹所有触达单一 venue 的调用：
// 超时包裹原始调用，重试包裹超时，熔断器包裹整个重试环。
// 熔断打开时直接短路，不发起任何重试。
type Guard struct {
	VenueID string

	cfg     GuardConfig
	breaker *Breaker

	successes atomic.Int64
	failures  atomic.Int64
}

// NewGuard 创建单 venue 守卫。
func NewGuard(venueID string, cfg GuardConfig, clock Clock, onEvent TransitionListener) *Guard {
	cfg = cfg.withDefaults()
	return &Guard{
		VenueID: venueID,
		cfg:     cfg,
		breaker: NewBreaker(venueID, cfg.Breaker, clock, onEvent),
	}
}

// Breaker 暴露底层熔断器（观测/运维用途）。
func (g *Guard) Breaker() *Breaker { return g.breaker }

// Successes 返回成功的受保护调用总数。
func (g *Guard) Successes() int64 { return g.successes.Load() }

// Failures 返回失败的受保护调用总数（含熔断短路）。
func (g *Guard) Failures() int64 { return g.failures.Load() }

// Do 执行受保护调用。
// 返回值：nil、ErrVenueUnavailable（熔断短路）、ErrDispatchTimeout
// （截止/超时耗尽）或 ErrDispatchFailure（重试耗尽）。
func (g *Guard) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := g.breaker.Allow(); err != nil {
		g.failures.Add(1)
		return err
	}

	var lastErr error
	backoff := g.cfg.Retry.Backoff
	for attempt := 0; attempt < g.cfg.Retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				g.recordFailure()
				return fmt.Errorf("%w: venue %s: %v", ErrDispatchTimeout, g.VenueID, ctx.Err())
			}
			if g.cfg.Retry.BackoffFactor > 1 {
				backoff = time.Duration(float64(backoff) * g.cfg.Retry.BackoffFactor)
			}
		}

		callCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
		err := fn(callCtx)
		cancel()
		if err == nil {
			g.breaker.RecordSuccess()
			g.successes.Add(1)
			return nil
		}
		lastErr = err

		// 外层截止时间已过，不再重试
		if ctx.Err() != nil {
			g.recordFailure()
			return fmt.Errorf("%w: venue %s: %v", ErrDispatchTimeout, g.VenueID, ctx.Err())
		}
	}

	g.recordFailure()
	if errors.Is(lastErr, context.DeadlineExceeded) {
		return fmt.Errorf("%w: venue %s after %d attempts: %v",
			ErrDispatchTimeout, g.VenueID, g.cfg.Retry.MaxAttempts, lastErr)
	}
	return fmt.Errorf("%w: venue %s after %d attempts: %v",
		ErrDispatchFailure, g.VenueID, g.cfg.Retry.MaxAttempts, lastErr)
}

// recordFailure 整个重试环计一次熔断失败。
func (g *Guard) recordFailure() {
	g.breaker.RecordFailure()
	g.failures.Add(1)
}

// GuardSet 按 venue 懒加载守卫；未配置的 venue 继承默认配置。
type GuardSet struct {
	defaults GuardConfig
	configs  map[string]GuardConfig
	clock    Clock
	onEvent  TransitionListener

	mu     sync.RWMutex
	guards map[string]*Guard
}

// NewGuardSet 创建守卫集合。
func NewGuardSet(configs map[string]GuardConfig, defaults GuardConfig, clock Clock, onEvent TransitionListener) *GuardSet {
	if configs == nil {
		configs = make(map[string]GuardConfig)
	}
	return &GuardSet{
		defaults: defaults.withDefaults(),
		configs:  configs,
		clock:    clock,
		onEvent:  onEvent,
		guards:   make(map[string]*Guard),
	}
}

// Get 返回 venue 对应的守卫，首次访问时创建。
func (s *GuardSet) Get(venueID string) *Guard {
	s.mu.RLock()
	g, ok := s.guards[venueID]
	s.mu.RUnlock()
	if ok {
		return g
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok = s.guards[venueID]; ok {
		return g
	}
	cfg, ok := s.configs[venueID]
	if !ok {
		cfg = s.defaults
	}
	g = NewGuard(venueID, cfg, s.clock, s.onEvent)
	s.guards[venueID] = g
	return g
}

// Snapshot 返回全部守卫的熔断指标（观测用途）。
func (s *GuardSet) Snapshot() []Metrics {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Metrics, 0, len(s.guards))
	for _, g := range s.guards {
		out = append(out, g.breaker.GetMetrics())
	}
	return out
}

package resilience

import (
	"fmt"
	"sync"
	"time"
)

// State 熔断器状态
type State int

const (
	// StateClosed 关闭状态 - 正常放行
	StateClosed State = iota
	// StateOpen 打开状态 - 熔断，调用不触达 venue
	StateOpen
	// StateHalfOpen 半开状态 - 放行探测调用
	StateHalfOpen
)

// String 返回状态名称
func (s State) String() string {
	switch s {
	case StateClosed:
		return "CLOSED"
	case StateOpen:
		return "OPEN"
	case StateHalfOpen:
		return "HALF_OPEN"
	default:
		return "UNKNOWN"
	}
}

// Transition 是对外发布的状态迁移事件。
type Transition struct {
	VenueID string
	From    State
	To      State
	At      time.Time
}

// TransitionListener 接收状态迁移事件，供监控采集。
type TransitionListener func(Transition)

// BreakerConfig 熔断器配置（按 venue 设定）。
type BreakerConfig struct {
	WindowSize        int           // 滑动窗口大小（最近 N 次调用）
	MinCalls          int           // 触发判定的最小样本数，避免小样本误熔断
	FailureThreshold  float64       // 失败率阈值 (0,1]
	OpenTimeout       time.Duration // 打开后转半开的等待时长
	HalfOpenSuccesses int           // 半开转关闭所需的连续成功数
	HalfOpenMaxCalls  int           // 半开时放行的最大在途探测数，超出直接拒绝
}

// withDefaults 填充零值字段。
func (c BreakerConfig) withDefaults() BreakerConfig {
	if c.WindowSize <= 0 {
		c.WindowSize = 20
	}
	if c.MinCalls <= 0 {
		c.MinCalls = 10
	}
	if c.FailureThreshold <= 0 || c.FailureThreshold > 1 {
		c.FailureThreshold = 0.6
	}
	if c.OpenTimeout <= 0 {
		c.OpenTimeout = 30 * time.Second
	}
	if c.HalfOpenSuccesses <= 0 {
		c.HalfOpenSuccesses = 2
	}
	if c.HalfOpenMaxCalls <= 0 {
		c.HalfOpenMaxCalls = 3
	}
	return c
}

// Breaker 按 venue 隔离的熔断器。
// 基于滑动窗口失败率判定，而非连续失败次数。
type Breaker struct {
	venueID string
	cfg     BreakerConfig
	clock   Clock
	onEvent TransitionListener

	mu               sync.Mutex
	state            State
	window           []bool // true = 失败
	windowPos        int
	windowFilled     bool
	halfOpenStreak   int
	halfOpenInFlight int
	openedAt         time.Time
	totalSuccesses   int64
	totalFailures    int64
	lastFailTime     time.Time
	lastTransitionAt time.Time
}

// NewBreaker 创建熔断器。
func NewBreaker(venueID string, cfg BreakerConfig, clock Clock, onEvent TransitionListener) *Breaker {
	cfg = cfg.withDefaults()
	if clock == nil {
		clock = realClock{}
	}
	return &Breaker{
		venueID: venueID,
		cfg:     cfg,
		clock:   clock,
		onEvent: onEvent,
		state:   StateClosed,
		window:  make([]bool, cfg.WindowSize),
	}
}

// Allow 判断调用是否放行；打开状态返回 ErrVenueUnavailable。
// 打开状态超过等待时长时自动转半开并放行探测。
// 半开状态只放行有限数量的在途探测，恢复中的 venue 不承接全量流量。
func (b *Breaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		return nil
	case StateHalfOpen:
		if b.halfOpenInFlight >= b.cfg.HalfOpenMaxCalls {
			return fmt.Errorf("%w: venue %s, probing capacity reached", ErrVenueUnavailable, b.venueID)
		}
		b.halfOpenInFlight++
		return nil
	case StateOpen:
		if b.clock.Now().Sub(b.openedAt) >= b.cfg.OpenTimeout {
			b.transitionLocked(StateHalfOpen)
			b.halfOpenInFlight++
			return nil
		}
		remaining := b.cfg.OpenTimeout - b.clock.Now().Sub(b.openedAt)
		return fmt.Errorf("%w: venue %s, retry in %v", ErrVenueUnavailable, b.venueID, remaining)
	default:
		return fmt.Errorf("unknown circuit breaker state: %d", b.state)
	}
}

// RecordSuccess 记录一次成功调用结果。
func (b *Breaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.totalSuccesses++
	b.pushLocked(false)

	if b.state == StateHalfOpen {
		if b.halfOpenInFlight > 0 {
			b.halfOpenInFlight--
		}
		b.halfOpenStreak++
		if b.halfOpenStreak >= b.cfg.HalfOpenSuccesses {
			b.resetWindowLocked()
			b.transitionLocked(StateClosed)
		}
	}
}

// RecordFailure 记录一次失败调用结果。
func (b *Breaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.totalFailures++
	b.lastFailTime = b.clock.Now()
	b.pushLocked(true)

	switch b.state {
	case StateClosed:
		if b.shouldTripLocked() {
			b.openedAt = b.clock.Now()
			b.transitionLocked(StateOpen)
		}
	case StateHalfOpen:
		// 半开状态下任一探测失败，立即重新打开
		b.openedAt = b.clock.Now()
		b.halfOpenStreak = 0
		b.transitionLocked(StateOpen)
	}
}

// State 获取当前状态。
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// IsOpen 判断是否处于打开状态。
func (b *Breaker) IsOpen() bool {
	return b.State() == StateOpen
}

// AllowRequest 判断当前是否会放行调用（不改变状态）。
// 打开状态下等待时长已过也视为放行（探测窗口）。
func (b *Breaker) AllowRequest() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case StateClosed:
		return true
	case StateHalfOpen:
		return b.halfOpenInFlight < b.cfg.HalfOpenMaxCalls
	case StateOpen:
		return b.clock.Now().Sub(b.openedAt) >= b.cfg.OpenTimeout
	default:
		return false
	}
}

// Metrics 熔断器指标快照。
type Metrics struct {
	VenueID          string
	State            State
	WindowCalls      int
	WindowFailures   int
	TotalSuccesses   int64
	TotalFailures    int64
	LastFailTime     time.Time
	OpenedAt         time.Time
	LastTransitionAt time.Time
}

// GetMetrics 获取指标快照。
func (b *Breaker) GetMetrics() Metrics {
	b.mu.Lock()
	defer b.mu.Unlock()
	calls, failures := b.windowStatsLocked()
	return Metrics{
		VenueID:          b.venueID,
		State:            b.state,
		WindowCalls:      calls,
		WindowFailures:   failures,
		TotalSuccesses:   b.totalSuccesses,
		TotalFailures:    b.totalFailures,
		LastFailTime:     b.lastFailTime,
		OpenedAt:         b.openedAt,
		LastTransitionAt: b.lastTransitionAt,
	}
}

// ForceOpen 强制打开熔断器（运维介入）。
func (b *Breaker) ForceOpen() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.openedAt = b.clock.Now()
	b.transitionLocked(StateOpen)
}

// Reset 重置到关闭状态并清空窗口（谨慎使用）。
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.resetWindowLocked()
	b.halfOpenStreak = 0
	b.transitionLocked(StateClosed)
}

func (b *Breaker) pushLocked(failed bool) {
	b.window[b.windowPos] = failed
	b.windowPos++
	if b.windowPos >= len(b.window) {
		b.windowPos = 0
		b.windowFilled = true
	}
}

func (b *Breaker) resetWindowLocked() {
	for i := range b.window {
		b.window[i] = false
	}
	b.windowPos = 0
	b.windowFilled = false
}

func (b *Breaker) windowStatsLocked() (calls, failures int) {
	calls = b.windowPos
	if b.windowFilled {
		calls = len(b.window)
	}
	for i := 0; i < calls; i++ {
		if b.window[i] {
			failures++
		}
	}
	return calls, failures
}

func (b *Breaker) shouldTripLocked() bool {
	calls, failures := b.windowStatsLocked()
	if calls < b.cfg.MinCalls {
		return false
	}
	return float64(failures)/float64(calls) > b.cfg.FailureThreshold
}

func (b *Breaker) transitionLocked(to State) {
	if b.state == to {
		return
	}
	from := b.state
	b.state = to
	b.halfOpenInFlight = 0
	if to == StateHalfOpen {
		b.halfOpenStreak = 0
	}
	now := b.clock.Now()
	b.lastTransitionAt = now
	if b.onEvent != nil {
		// 监听器须快速返回且不得回调熔断器本身
		b.onEvent(Transition{VenueID: b.venueID, From: from, To: to, At: now})
	}
}

package profile

import (
	"sync"
	"time"

	"order-router-go/venue"
)

// Clock 抽象时间便于测试。
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now().UTC() }

const (
	// DefaultAlpha EWMA 平滑系数：单次异常执行不应让画像剧烈摆动。
	DefaultAlpha = 0.2
	// DefaultStalenessWindow 超过该时长未更新的画像视为过期，不参与打分。
	DefaultStalenessWindow = 5 * time.Minute
)

// EventSink 接收画像更新事件，供日志/监控收集。
type EventSink func(event string, fields map[string]interface{})

// Store 维护全部 (venue, symbol) 画像。
// 外层读锁只保护 map 结构，每个画像持有自己的锁，
// venue A 的更新不会阻塞 venue B 的读取。
type Store struct {
	alpha     float64
	staleness time.Duration
	clock     Clock
	sink      EventSink

	mu      sync.RWMutex
	entries map[key]*entry
}

type key struct {
	venueID string
	symbol  string
}

type entry struct {
	mu sync.RWMutex
	p  Profile

	// 健康轮询也会写 LastUpdated，首样本判定必须看执行观测本身
	execSamples    int // 全部执行观测数（含失败）
	successSamples int // 成功观测数，延迟/价格基线以此为准
}

// Option 配置 Store。
type Option func(*Store)

func WithAlpha(alpha float64) Option {
	return func(s *Store) {
		if alpha > 0 && alpha <= 1 {
			s.alpha = alpha
		}
	}
}

func WithStalenessWindow(d time.Duration) Option {
	return func(s *Store) {
		if d > 0 {
			s.staleness = d
		}
	}
}

func WithClock(c Clock) Option {
	return func(s *Store) {
		if c != nil {
			s.clock = c
		}
	}
}

func WithSink(sink EventSink) Option {
	return func(s *Store) { s.sink = sink }
}

// NewStore 创建画像存储。
func NewStore(opts ...Option) *Store {
	s := &Store{
		alpha:     DefaultAlpha,
		staleness: DefaultStalenessWindow,
		clock:     realClock{},
		entries:   make(map[key]*entry),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Get 返回画像副本；从未观测过或已过期时返回 false。
func (s *Store) Get(venueID, symbol string) (Profile, bool) {
	s.mu.RLock()
	e, ok := s.entries[key{venueID, symbol}]
	s.mu.RUnlock()
	if !ok {
		return Profile{}, false
	}

	e.mu.RLock()
	p := e.p
	e.mu.RUnlock()

	if s.clock.Now().Sub(p.LastUpdated) > s.staleness {
		return Profile{}, false
	}
	return p, true
}

// Peek 返回画像副本而不做过期判断（观测/监控用途）。
func (s *Store) Peek(venueID, symbol string) (Profile, bool) {
	s.mu.RLock()
	e, ok := s.entries[key{venueID, symbol}]
	s.mu.RUnlock()
	if !ok {
		return Profile{}, false
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.p, true
}

// ApplyExecution 将一次执行观测合并进画像（EWMA）。
// 失败事件只推高错误率，延迟/价格字段保持不变。
func (s *Store) ApplyExecution(venueID, symbol string, u ExecUpdate) Profile {
	e := s.entryFor(venueID, symbol)

	e.mu.Lock()
	p := &e.p
	firstExec := e.execSamples == 0

	if u.Failed {
		p.ErrorRate = clamp01(s.blend(p.ErrorRate, 1, firstExec))
	} else {
		firstSuccess := e.successSamples == 0
		p.ErrorRate = clamp01(s.blend(p.ErrorRate, 0, firstExec))
		p.AvgLatencyMs = s.blend(p.AvgLatencyMs, u.LatencyMs, firstSuccess)
		p.SlippageBps = s.blend(p.SlippageBps, u.SlippageBps, firstSuccess)
		p.PriceImprovementBps = s.blend(p.PriceImprovementBps, u.PriceImprovementBps, firstSuccess)
		p.FillRate = clamp01(s.blend(p.FillRate, clamp01(u.FillRatio), firstSuccess))
		e.successSamples++
	}
	e.execSamples++
	p.LastUpdated = s.clock.Now()
	out := *p
	e.mu.Unlock()

	s.logEvent("profile_exec_update", map[string]interface{}{
		"venue":      venueID,
		"symbol":     symbol,
		"failed":     u.Failed,
		"latency_ms": out.AvgLatencyMs,
		"fill_rate":  out.FillRate,
		"error_rate": out.ErrorRate,
	})
	return out
}

// ApplyHealth 用健康轮询结果覆盖状态与能力字段（latest wins）。
func (s *Store) ApplyHealth(venueID, symbol string, u HealthUpdate) Profile {
	e := s.entryFor(venueID, symbol)
	caps := u.Capabilities

	e.mu.Lock()
	p := &e.p
	p.Status = u.Status
	p.SpreadBps = caps.SpreadBps
	p.MidPrice = caps.MidPrice
	p.DepthQty = caps.DepthQty
	p.RecentVolume = caps.RecentVolume
	p.MinOrderSize = caps.MinOrderSize
	p.MaxOrderSize = caps.MaxOrderSize
	if len(caps.SupportedKinds) > 0 {
		p.SupportedKinds = append(p.SupportedKinds[:0:0], caps.SupportedKinds...)
	}
	p.LastUpdated = s.clock.Now()
	out := *p
	e.mu.Unlock()

	s.logEvent("profile_health_update", map[string]interface{}{
		"venue":  venueID,
		"symbol": symbol,
		"status": string(out.Status),
	})
	return out
}

// ApplyStatus 仅更新状态，不触碰能力快照。
// 健康检查失败时使用，避免把未知当成空盘口写回。
func (s *Store) ApplyStatus(venueID, symbol string, status venue.Status) Profile {
	e := s.entryFor(venueID, symbol)

	e.mu.Lock()
	e.p.Status = status
	e.p.LastUpdated = s.clock.Now()
	out := e.p
	e.mu.Unlock()

	s.logEvent("profile_status_update", map[string]interface{}{
		"venue":  venueID,
		"symbol": symbol,
		"status": string(status),
	})
	return out
}

func (s *Store) entryFor(venueID, symbol string) *entry {
	k := key{venueID, symbol}
	s.mu.RLock()
	e, ok := s.entries[k]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok = s.entries[k]; ok {
		return e
	}
	e = &entry{p: Profile{VenueID: venueID, Symbol: symbol}}
	s.entries[k] = e
	return e
}

// blend EWMA 合并；首个样本直接采用，避免从零值慢慢爬升。
func (s *Store) blend(current, sample float64, first bool) float64 {
	if first {
		return sample
	}
	return current*(1-s.alpha) + sample*s.alpha
}

func (s *Store) logEvent(event string, fields map[string]interface{}) {
	if s == nil || s.sink == nil {
		return
	}
	s.sink(event, fields)
}

// Package alert pushes venue health events to operators, with throttling.
package alert

import (
	"fmt"
	"sync"
	"time"

	"order-router-go/resilience"
)

// Alert 告警信息
type Alert struct {
	Level     string    // "INFO", "WARNING", "CRITICAL"
	Message   string    // 告警消息
	Timestamp time.Time // 告警时间
	Fields    map[string]interface{}
}

// Channel 告警通道接口
type Channel interface {
	Send(alert Alert) error
	Name() string
}

// Throttler 告警限流器：同一告警在间隔内只发一次。
type Throttler struct {
	lastSent map[string]time.Time
	interval time.Duration
	mu       sync.Mutex
}

// NewThrottler 创建限流器
func NewThrottler(interval time.Duration) *Throttler {
	return &Throttler{
		lastSent: make(map[string]time.Time),
		interval: interval,
	}
}

// Allow 检查是否允许发送（限流）
func (t *Throttler) Allow(key string) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	now := time.Now()
	if last, ok := t.lastSent[key]; ok && now.Sub(last) < t.interval {
		return false
	}
	t.lastSent[key] = now
	return true
}

// Reset 重置单个告警键的限流记录。
func (t *Throttler) Reset(key string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.lastSent, key)
}

// Manager 告警管理器
type Manager struct {
	channels []Channel
	throttle *Throttler
	mu       sync.RWMutex
}

// NewManager 创建告警管理器
func NewManager(channels []Channel, throttleInterval time.Duration) *Manager {
	return &Manager{
		channels: channels,
		throttle: NewThrottler(throttleInterval),
	}
}

// AddChannel 添加告警通道
func (m *Manager) AddChannel(ch Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels = append(m.channels, ch)
}

// SendAlert 发送告警；被限流时静默忽略。
func (m *Manager) SendAlert(alert Alert) error {
	if alert.Timestamp.IsZero() {
		alert.Timestamp = time.Now()
	}

	key := fmt.Sprintf("%s:%s", alert.Level, alert.Message)
	if !m.throttle.Allow(key) {
		return nil
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	var lastErr error
	sent := 0
	for _, ch := range m.channels {
		if err := ch.Send(alert); err != nil {
			lastErr = fmt.Errorf("channel %s failed: %w", ch.Name(), err)
		} else {
			sent++
		}
	}
	if sent == 0 && lastErr != nil {
		return lastErr
	}
	return nil
}

// VenueTripped venue 熔断打开告警。
func (m *Manager) VenueTripped(venueID string, metrics resilience.Metrics) error {
	return m.SendAlert(Alert{
		Level:   "CRITICAL",
		Message: fmt.Sprintf("venue %s circuit opened", venueID),
		Fields: map[string]interface{}{
			"venue":           venueID,
			"window_failures": metrics.WindowFailures,
			"window_calls":    metrics.WindowCalls,
		},
	})
}

// VenueRecovered venue 熔断恢复通知。
func (m *Manager) VenueRecovered(venueID string) error {
	return m.SendAlert(Alert{
		Level:   "INFO",
		Message: fmt.Sprintf("venue %s circuit closed", venueID),
		Fields:  map[string]interface{}{"venue": venueID},
	})
}

// FeedbackDropping 回报缓冲溢出告警。
func (m *Manager) FeedbackDropping(dropped int64) error {
	return m.SendAlert(Alert{
		Level:   "WARNING",
		Message: "execution feedback buffer overflowing",
		Fields:  map[string]interface{}{"dropped": dropped},
	})
}

// OnBreakerTransition 实现 resilience.TransitionListener，桥接熔断事件到告警。
// 需要配合 Breaker 指标时由调用方另行注入。
func (m *Manager) OnBreakerTransition(ev resilience.Transition) {
	switch ev.To {
	case resilience.StateOpen:
		_ = m.SendAlert(Alert{
			Level:   "CRITICAL",
			Message: fmt.Sprintf("venue %s circuit opened", ev.VenueID),
			Fields: map[string]interface{}{
				"venue": ev.VenueID,
				"from":  ev.From.String(),
			},
		})
	case resilience.StateClosed:
		_ = m.VenueRecovered(ev.VenueID)
	}
}

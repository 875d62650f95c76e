// Package mock provides a configurable in-memory venue for tests and the
// sim binary.
package mock

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"order-router-go/venue"
)

var ErrInjected = errors.New("injected venue failure")

// Adapter 模拟场所（用于测试与仿真）。
type Adapter struct {
	VenueID string

	mu sync.Mutex

	// 配置
	latency      time.Duration
	failNext     int  // 接下来 N 次提交失败
	alwaysFail   bool // 所有提交失败
	status       venue.Status
	capabilities venue.Capabilities

	// 统计
	submitCount int
	healthCount int
	acks        []venue.ExecutionAck
}

// New returns a mock adapter that accepts everything immediately.
func New(venueID string, caps venue.Capabilities) *Adapter {
	return &Adapter{
		VenueID:      venueID,
		status:       venue.StatusAvailable,
		capabilities: caps,
	}
}

// SetLatency 设置每次提交前的人为延迟。
func (a *Adapter) SetLatency(d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.latency = d
}

// FailNext 使接下来 n 次提交失败。
func (a *Adapter) FailNext(n int) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.failNext = n
}

// SetAlwaysFail 控制是否全部失败。
func (a *Adapter) SetAlwaysFail(fail bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.alwaysFail = fail
}

// SetStatus 覆盖健康检查返回的状态。
func (a *Adapter) SetStatus(s venue.Status) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.status = s
}

// SubmitCount 返回提交调用次数（含失败）。
func (a *Adapter) SubmitCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.submitCount
}

// Acks 返回已接受的委托确认副本。
func (a *Adapter) Acks() []venue.ExecutionAck {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]venue.ExecutionAck, len(a.acks))
	copy(out, a.acks)
	return out
}

func (a *Adapter) SubmitOrder(ctx context.Context, s venue.Slice) (venue.ExecutionAck, error) {
	a.mu.Lock()
	a.submitCount++
	latency := a.latency
	fail := a.alwaysFail
	if !fail && a.failNext > 0 {
		a.failNext--
		fail = true
	}
	a.mu.Unlock()

	if latency > 0 {
		select {
		case <-time.After(latency):
		case <-ctx.Done():
			return venue.ExecutionAck{}, ctx.Err()
		}
	}
	if fail {
		return venue.ExecutionAck{}, fmt.Errorf("%w: venue %s", ErrInjected, a.VenueID)
	}

	ack := venue.ExecutionAck{
		VenueOrderID: fmt.Sprintf("%s-%s", a.VenueID, s.OrderID),
		VenueID:      a.VenueID,
		AcceptedAt:   time.Now().UTC(),
	}
	a.mu.Lock()
	a.acks = append(a.acks, ack)
	a.mu.Unlock()
	return ack, nil
}

func (a *Adapter) GetCapabilities(_ context.Context, symbol string) (venue.Capabilities, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	caps := a.capabilities
	caps.Symbol = symbol
	return caps, nil
}

func (a *Adapter) HealthCheck(_ context.Context) (venue.Status, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.healthCount++
	return a.status, nil
}

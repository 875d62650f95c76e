package feedback

import (
	"context"
	"sync/atomic"

	"order-router-go/infrastructure/logger"
	"order-router-go/monitor"
	"order-router-go/profile"
)

// DefaultBuffer 回报通道的默认缓冲。
const DefaultBuffer = 1024

// Loop 消费执行回报并写入画像存储。
// 入队非阻塞：缓冲满时丢弃并计数，路由热路径不受回报洪峰影响。
type Loop struct {
	ch      chan ExecutionEvent
	store   *profile.Store
	log     *logger.Logger
	mon     *monitor.Monitor
	dropped atomic.Int64
	applied atomic.Int64
}

// NewLoop 创建反馈回路。buffer <= 0 使用默认缓冲。
func NewLoop(store *profile.Store, log *logger.Logger, mon *monitor.Monitor, buffer int) *Loop {
	if buffer <= 0 {
		buffer = DefaultBuffer
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Loop{
		ch:    make(chan ExecutionEvent, buffer),
		store: store,
		log:   log,
		mon:   mon,
	}
}

// OnExecutionEvent 入队一条回报，永不阻塞。
// 返回 false 表示缓冲已满、事件被丢弃。
func (l *Loop) OnExecutionEvent(ev ExecutionEvent) bool {
	select {
	case l.ch <- ev:
		return true
	default:
		l.dropped.Add(1)
		return false
	}
}

// Run 消费回报直到 ctx 取消。通常由独立 goroutine 运行。
func (l *Loop) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-l.ch:
			l.apply(ev)
		}
	}
}

// Dropped 返回已丢弃的回报数。
func (l *Loop) Dropped() int64 { return l.dropped.Load() }

// Applied 返回已写入画像的回报数。
func (l *Loop) Applied() int64 { return l.applied.Load() }

func (l *Loop) apply(ev ExecutionEvent) {
	if err := ev.Validate(); err != nil {
		l.log.LogError(err, map[string]interface{}{
			"venue_id": ev.VenueID,
			"symbol":   ev.Symbol,
		})
		return
	}

	u := ev.toUpdate()
	p := l.store.ApplyExecution(ev.VenueID, ev.Symbol, u)
	l.applied.Add(1)
	l.mon.IncProfileUpdate("execution")

	l.log.LogDispatch("execution_applied", ev.VenueID, map[string]interface{}{
		"decision_id":  ev.DecisionID,
		"order_id":     ev.OrderID,
		"symbol":       ev.Symbol,
		"failed":       ev.Failed,
		"fill_rate":    p.FillRate,
		"avg_latency":  p.AvgLatencyMs,
		"slippage_bps": p.SlippageBps,
		"error_rate":   p.ErrorRate,
	})
}

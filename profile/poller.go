package profile

import (
	"context"
	"time"

	"order-router-go/venue"
)

// DefaultPollInterval 健康轮询默认周期。
const DefaultPollInterval = 10 * time.Second

// Poller 周期轮询各 venue 的健康状态与能力快照并写入画像存储。
// 轮询失败只降级状态，不清空已有盘口数据。
type Poller struct {
	Store    *Store
	Conns    []venue.Connection
	Symbols  []string
	Interval time.Duration
	Timeout  time.Duration // 单次轮询调用超时
	Sink     EventSink
}

// Run 启动轮询，阻塞直到 ctx 取消。启动时立即执行一轮。
func (p *Poller) Run(ctx context.Context) {
	interval := p.Interval
	if interval <= 0 {
		interval = DefaultPollInterval
	}

	p.PollOnce(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.PollOnce(ctx)
		}
	}
}

// PollOnce 对全部 venue 执行一轮健康与能力采集。
func (p *Poller) PollOnce(ctx context.Context) {
	timeout := p.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	for _, conn := range p.Conns {
		cctx, cancel := context.WithTimeout(ctx, timeout)
		status, err := conn.Adapter.HealthCheck(cctx)
		cancel()
		if err != nil {
			for _, sym := range p.Symbols {
				p.Store.ApplyStatus(conn.VenueID, sym, venue.StatusOffline)
			}
			p.emit("health_check_failed", map[string]interface{}{
				"venue": conn.VenueID,
				"error": err.Error(),
			})
			continue
		}

		for _, sym := range p.Symbols {
			cctx, cancel := context.WithTimeout(ctx, timeout)
			caps, err := conn.Adapter.GetCapabilities(cctx, sym)
			cancel()
			if err != nil {
				// 状态可信，能力未知：保留旧快照
				p.Store.ApplyStatus(conn.VenueID, sym, status)
				p.emit("capabilities_failed", map[string]interface{}{
					"venue":  conn.VenueID,
					"symbol": sym,
					"error":  err.Error(),
				})
				continue
			}
			p.Store.ApplyHealth(conn.VenueID, sym, HealthUpdate{
				Status:       status,
				Capabilities: caps,
			})
		}
	}
}

func (p *Poller) emit(event string, fields map[string]interface{}) {
	if p.Sink != nil {
		p.Sink(event, fields)
	}
}

// Package feedback closes the execution loop: venue execution reports
// flow back into the profile store and shape future routing.
package feedback

import (
	"encoding/json"
	"fmt"
	"time"

	"order-router-go/order"
	"order-router-go/profile"
)

// ExecutionEvent 单腿执行回报，由 venue 侧推送或适配层合成。
type ExecutionEvent struct {
	DecisionID    string     `json:"decision_id"`
	OrderID       string     `json:"order_id"`
	VenueID       string     `json:"venue_id"`
	Symbol        string     `json:"symbol"`
	Side          order.Side `json:"side"`
	RequestedQty  int64      `json:"requested_qty"`
	FilledQty     int64      `json:"filled_qty"`
	ExpectedPrice float64    `json:"expected_price"`
	ExecutedPrice float64    `json:"executed_price"`
	MarketPrice   float64    `json:"market_price"` // 成交时点市场参考价，用于推算价格改善
	LatencyMs     float64    `json:"latency_ms"`
	Failed        bool       `json:"failed"`
	Timestamp     time.Time  `json:"timestamp"`
}

// Validate 校验回报可归属到某个 (venue, symbol) 画像。
func (e ExecutionEvent) Validate() error {
	if e.VenueID == "" {
		return fmt.Errorf("execution event missing venue id")
	}
	if e.Symbol == "" {
		return fmt.Errorf("execution event missing symbol")
	}
	if !e.Failed && e.RequestedQty <= 0 {
		return fmt.Errorf("execution event for %s: non-positive requested quantity %d", e.VenueID, e.RequestedQty)
	}
	return nil
}

// ParseExecutionReport 解析 venue 推送的 JSON 回报。
func ParseExecutionReport(raw []byte) (ExecutionEvent, error) {
	var ev ExecutionEvent
	if err := json.Unmarshal(raw, &ev); err != nil {
		return ExecutionEvent{}, fmt.Errorf("parse execution report: %w", err)
	}
	if err := ev.Validate(); err != nil {
		return ExecutionEvent{}, err
	}
	return ev, nil
}

// toUpdate 把回报换算成画像观测。
// 滑点带方向：买单成交价高于期望为正（不利），卖单反之。
// 价格改善相对市场参考价：成交价优于市场价为正（有利）。
func (e ExecutionEvent) toUpdate() profile.ExecUpdate {
	if e.Failed {
		return profile.ExecUpdate{Failed: true}
	}

	u := profile.ExecUpdate{LatencyMs: e.LatencyMs}
	if e.RequestedQty > 0 {
		u.FillRatio = float64(e.FilledQty) / float64(e.RequestedQty)
	}
	if e.ExpectedPrice > 0 && e.ExecutedPrice > 0 {
		slip := (e.ExecutedPrice - e.ExpectedPrice) / e.ExpectedPrice * 10_000
		if e.Side == order.SideSell {
			slip = -slip
		}
		u.SlippageBps = slip
	}
	if e.MarketPrice > 0 && e.ExecutedPrice > 0 {
		improve := (e.MarketPrice - e.ExecutedPrice) / e.MarketPrice * 10_000
		if e.Side == order.SideSell {
			improve = -improve
		}
		u.PriceImprovementBps = improve
	}
	return u
}

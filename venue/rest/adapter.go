// Package rest implements the venue adapter over a plain HTTP/JSON API.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"order-router-go/order"
	"order-router-go/venue"
)

// Adapter 通过 HTTP/JSON 接入单个 venue；默认不发起真实网络调用，
// HTTPClient 可注入 httptest。
type Adapter struct {
	VenueID    string
	BaseURL    string
	APIKey     string
	HTTPClient *http.Client
	Limiter    RateLimiter // 可选，避免触发 venue 限流
}

// New 创建 REST 适配器。
func New(venueID, baseURL, apiKey string) *Adapter {
	return &Adapter{
		VenueID:    venueID,
		BaseURL:    baseURL,
		APIKey:     apiKey,
		HTTPClient: NewDefaultHTTPClient(),
	}
}

// NewDefaultHTTPClient 提供一个带超时的 http.Client。
func NewDefaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

type submitRequest struct {
	DecisionID string  `json:"decision_id"`
	OrderID    string  `json:"order_id"`
	Symbol     string  `json:"symbol"`
	Side       string  `json:"side"`
	Kind       string  `json:"kind"`
	Quantity   int64   `json:"quantity"`
	LimitPrice float64 `json:"limit_price,omitempty"`
}

type submitResponse struct {
	VenueOrderID string `json:"venue_order_id"`
}

type capabilitiesResponse struct {
	Symbol         string   `json:"symbol"`
	SupportedKinds []string `json:"supported_kinds"`
	MinOrderSize   int64    `json:"min_order_size"`
	MaxOrderSize   int64    `json:"max_order_size"`
	MidPrice       float64  `json:"mid_price"`
	SpreadBps      float64  `json:"spread_bps"`
	DepthQty       int64    `json:"depth_qty"`
	RecentVolume   int64    `json:"recent_volume"`
}

type healthResponse struct {
	Status string `json:"status"`
}

// SubmitOrder 调用 POST /orders 提交单腿委托。
func (a *Adapter) SubmitOrder(ctx context.Context, s venue.Slice) (venue.ExecutionAck, error) {
	if a.HTTPClient == nil {
		return venue.ExecutionAck{}, fmt.Errorf("http client not set")
	}
	if a.Limiter != nil {
		if err := a.Limiter.Wait(ctx); err != nil {
			return venue.ExecutionAck{}, err
		}
	}

	body, err := json.Marshal(submitRequest{
		DecisionID: s.DecisionID,
		OrderID:    s.OrderID,
		Symbol:     s.Symbol,
		Side:       string(s.Side),
		Kind:       string(s.Kind),
		Quantity:   s.Quantity,
		LimitPrice: s.LimitPrice,
	})
	if err != nil {
		return venue.ExecutionAck{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.BaseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return venue.ExecutionAck{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	a.setAuth(req)

	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		return venue.ExecutionAck{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return venue.ExecutionAck{}, fmt.Errorf("venue %s submit status %d", a.VenueID, resp.StatusCode)
	}

	var sr submitResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return venue.ExecutionAck{}, err
	}
	if sr.VenueOrderID == "" {
		return venue.ExecutionAck{}, fmt.Errorf("venue %s returned empty order id", a.VenueID)
	}
	return venue.ExecutionAck{
		VenueOrderID: sr.VenueOrderID,
		VenueID:      a.VenueID,
		AcceptedAt:   time.Now().UTC(),
	}, nil
}

// GetCapabilities 调用 GET /capabilities/{symbol}。
func (a *Adapter) GetCapabilities(ctx context.Context, symbol string) (venue.Capabilities, error) {
	if a.HTTPClient == nil {
		return venue.Capabilities{}, fmt.Errorf("http client not set")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.BaseURL+"/capabilities/"+symbol, nil)
	if err != nil {
		return venue.Capabilities{}, err
	}
	a.setAuth(req)

	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		return venue.Capabilities{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return venue.Capabilities{}, fmt.Errorf("venue %s capabilities status %d", a.VenueID, resp.StatusCode)
	}

	var cr capabilitiesResponse
	if err := json.NewDecoder(resp.Body).Decode(&cr); err != nil {
		return venue.Capabilities{}, err
	}
	kinds := make([]order.Kind, 0, len(cr.SupportedKinds))
	for _, k := range cr.SupportedKinds {
		kinds = append(kinds, order.Kind(k))
	}
	return venue.Capabilities{
		Symbol:         cr.Symbol,
		SupportedKinds: kinds,
		MinOrderSize:   cr.MinOrderSize,
		MaxOrderSize:   cr.MaxOrderSize,
		MidPrice:       cr.MidPrice,
		SpreadBps:      cr.SpreadBps,
		DepthQty:       cr.DepthQty,
		RecentVolume:   cr.RecentVolume,
	}, nil
}

// HealthCheck 调用 GET /health；网络错误映射为 OFFLINE。
func (a *Adapter) HealthCheck(ctx context.Context) (venue.Status, error) {
	if a.HTTPClient == nil {
		return venue.StatusOffline, fmt.Errorf("http client not set")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, a.BaseURL+"/health", nil)
	if err != nil {
		return venue.StatusOffline, err
	}
	a.setAuth(req)

	resp, err := a.HTTPClient.Do(req)
	if err != nil {
		return venue.StatusOffline, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return venue.StatusError, fmt.Errorf("venue %s health status %d", a.VenueID, resp.StatusCode)
	}

	var hr healthResponse
	if err := json.NewDecoder(resp.Body).Decode(&hr); err != nil {
		return venue.StatusError, err
	}
	return venue.Status(hr.Status), nil
}

func (a *Adapter) setAuth(req *http.Request) {
	if a.APIKey != "" {
		req.Header.Set("X-API-KEY", a.APIKey)
	}
}

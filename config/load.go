// Package config loads and hot-reloads the router's YAML configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"order-router-go/infrastructure/logger"
	"order-router-go/resilience"
	"order-router-go/scoring"
)

// AppConfig holds the main runtime configuration.
type AppConfig struct {
	Env      string                 `yaml:"env"`
	Logger   logger.Config          `yaml:"logger"`
	Metrics  MetricsConfig          `yaml:"metrics"`
	Routing  RoutingConfig          `yaml:"routing"`
	Feedback FeedbackConfig         `yaml:"feedback"`
	Defaults VenueConfig            `yaml:"defaults"` // 各 venue 未显式配置时的回退值
	Venues   map[string]VenueConfig `yaml:"venues"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"` // e.g. :9090
}

// RoutingConfig 路由引擎参数。
type RoutingConfig struct {
	ProfileStalenessSec int                 `yaml:"profileStalenessSec"` // 画像过期窗口（秒）
	EWMAAlpha           float64             `yaml:"ewmaAlpha"`           // 指标平滑系数 (0,1]
	Epsilon             float64             `yaml:"epsilon"`             // 总分平手阈值
	LargeOrderRatio     float64             `yaml:"largeOrderRatio"`     // 超过最优 venue 安全容量该比例时强制拆单
	MaxSplitVenues      int                 `yaml:"maxSplitVenues"`
	DispatchTimeoutMs   int                 `yaml:"dispatchTimeoutMs"`
	HealthIntervalSec   int                 `yaml:"healthIntervalSec"` // venue 健康轮询周期（秒）
	Weights             scoring.WeightTable `yaml:"weights"`           // 空则使用内置权重表
}

// FeedbackConfig 执行回报反馈回路参数。
type FeedbackConfig struct {
	Buffer     int    `yaml:"buffer"`
	WSEndpoint string `yaml:"wsEndpoint"` // 回报流地址，空则不订阅
}

// VenueConfig 单个 venue 的接入与防护参数。
type VenueConfig struct {
	Endpoint  string          `yaml:"endpoint"`
	APIKey    string          `yaml:"apiKey"`
	TimeoutMs int             `yaml:"timeoutMs"` // 单次提交超时
	RateLimit RateLimitConfig `yaml:"rateLimit"`
	Retry     RetryConfig     `yaml:"retry"`
	Breaker   BreakerConfig   `yaml:"breaker"`
}

// RateLimitConfig 对端限流参数；RatePerSec 为 0 时不限流。
type RateLimitConfig struct {
	RatePerSec float64 `yaml:"ratePerSec"`
	Burst      int     `yaml:"burst"`
}

type RetryConfig struct {
	MaxAttempts   int     `yaml:"maxAttempts"`
	BackoffMs     int     `yaml:"backoffMs"`
	BackoffFactor float64 `yaml:"backoffFactor"`
}

type BreakerConfig struct {
	WindowSize        int     `yaml:"windowSize"`
	MinCalls          int     `yaml:"minCalls"`
	FailureThreshold  float64 `yaml:"failureThreshold"` // (0,1]
	OpenTimeoutSec    int     `yaml:"openTimeoutSec"`
	HalfOpenSuccesses int     `yaml:"halfOpenSuccesses"`
	HalfOpenMaxCalls  int     `yaml:"halfOpenMaxCalls"`
}

// Load reads YAML config from path and applies basic validation.
func Load(path string) (AppConfig, error) {
	var cfg AppConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("parse yaml: %w", err)
	}
	if err := Validate(cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// LoadWithEnvOverrides loads config then overrides deploy-specific fields
// from env vars if present.
func LoadWithEnvOverrides(path string) (AppConfig, error) {
	cfg, err := Load(path)
	if err != nil {
		return cfg, err
	}
	if v := os.Getenv("ROUTER_METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
	if v := os.Getenv("ROUTER_FEEDBACK_WS"); v != "" {
		cfg.Feedback.WSEndpoint = v
	}
	return cfg, Validate(cfg)
}

// GuardConfig 把单个 venue 配置换算为防护参数；零值由防护层回退默认。
func (v VenueConfig) GuardConfig() resilience.GuardConfig {
	return resilience.GuardConfig{
		Timeout: time.Duration(v.TimeoutMs) * time.Millisecond,
		Retry: resilience.RetryConfig{
			MaxAttempts:   v.Retry.MaxAttempts,
			Backoff:       time.Duration(v.Retry.BackoffMs) * time.Millisecond,
			BackoffFactor: v.Retry.BackoffFactor,
		},
		Breaker: resilience.BreakerConfig{
			WindowSize:        v.Breaker.WindowSize,
			MinCalls:          v.Breaker.MinCalls,
			FailureThreshold:  v.Breaker.FailureThreshold,
			OpenTimeout:       time.Duration(v.Breaker.OpenTimeoutSec) * time.Second,
			HalfOpenSuccesses: v.Breaker.HalfOpenSuccesses,
			HalfOpenMaxCalls:  v.Breaker.HalfOpenMaxCalls,
		},
	}
}

// GuardConfigs 换算全部 venue 的防护参数与默认回退。
func (c AppConfig) GuardConfigs() (map[string]resilience.GuardConfig, resilience.GuardConfig) {
	configs := make(map[string]resilience.GuardConfig, len(c.Venues))
	for id, vc := range c.Venues {
		configs[id] = vc.GuardConfig()
	}
	return configs, c.Defaults.GuardConfig()
}

// ProfileStaleness 画像过期窗口，0 表示使用存储层默认。
func (c RoutingConfig) ProfileStaleness() time.Duration {
	return time.Duration(c.ProfileStalenessSec) * time.Second
}

// DispatchTimeout 派单兜底超时，0 表示使用引擎默认。
func (c RoutingConfig) DispatchTimeout() time.Duration {
	return time.Duration(c.DispatchTimeoutMs) * time.Millisecond
}

// HealthInterval venue 健康轮询周期，0 表示使用默认 10s。
func (c RoutingConfig) HealthInterval() time.Duration {
	if c.HealthIntervalSec <= 0 {
		return 10 * time.Second
	}
	return time.Duration(c.HealthIntervalSec) * time.Second
}

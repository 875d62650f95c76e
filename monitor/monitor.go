package monitor

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"order-router-go/resilience"
)

// Monitor Prometheus监控指标收集器
type Monitor struct {
	registry *prometheus.Registry

	// 路由决策指标
	decisionsTotal  *prometheus.CounterVec
	routingLatency  prometheus.Histogram
	confidenceScore prometheus.Gauge

	// 派单指标
	dispatchTotal *prometheus.CounterVec

	// 熔断指标
	circuitState       *prometheus.GaugeVec
	circuitTransitions *prometheus.CounterVec

	// 画像指标
	profileUpdates *prometheus.CounterVec
}

// Config 监控配置
type Config struct {
	Namespace string
	Subsystem string
}

// DefaultConfig 返回默认配置
func DefaultConfig() Config {
	return Config{
		Namespace: "router",
		Subsystem: "routing",
	}
}

// New 创建新的Monitor实例
func New(cfg Config) *Monitor {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Monitor{
		registry: reg,

		decisionsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "decisions_total",
			Help:      "路由决策总数（按策略与结果）",
		}, []string{"strategy", "outcome"}),
		routingLatency: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "decision_latency_seconds",
			Help:      "路由决策耗时分布（秒）",
			Buckets:   []float64{0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
		}),
		confidenceScore: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "decision_confidence",
			Help:      "最近一次路由决策的置信度",
		}),

		dispatchTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "dispatch_total",
			Help:      "派单结果总数（按 venue 与结果）",
		}, []string{"venue", "result"}),

		circuitState: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "circuit_state",
			Help:      "熔断器状态 (0=closed, 1=open, 2=half_open)",
		}, []string{"venue"}),
		circuitTransitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "circuit_transitions_total",
			Help:      "熔断状态迁移总数",
		}, []string{"venue", "to"}),

		profileUpdates: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: cfg.Namespace,
			Subsystem: cfg.Subsystem,
			Name:      "profile_updates_total",
			Help:      "画像更新总数（按来源）",
		}, []string{"source"}),
	}
}

// ObserveDecision 记录一次路由决策结果。
func (m *Monitor) ObserveDecision(strategy, outcome string, latencySeconds, confidence float64) {
	if m == nil {
		return
	}
	if strategy == "" {
		strategy = "none"
	}
	m.decisionsTotal.WithLabelValues(strategy, outcome).Inc()
	m.routingLatency.Observe(latencySeconds)
	if outcome == "completed" {
		m.confidenceScore.Set(confidence)
	}
}

// IncDispatch 记录一次单腿派单结果。
func (m *Monitor) IncDispatch(venueID, result string) {
	if m == nil {
		return
	}
	m.dispatchTotal.WithLabelValues(venueID, result).Inc()
}

// OnBreakerTransition 实现 resilience.TransitionListener。
func (m *Monitor) OnBreakerTransition(ev resilience.Transition) {
	if m == nil {
		return
	}
	m.circuitState.WithLabelValues(ev.VenueID).Set(float64(ev.To))
	m.circuitTransitions.WithLabelValues(ev.VenueID, ev.To.String()).Inc()
}

// IncProfileUpdate 记录一次画像更新。
func (m *Monitor) IncProfileUpdate(source string) {
	if m == nil {
		return
	}
	m.profileUpdates.WithLabelValues(source).Inc()
}

// Handler 返回指标HTTP处理器。
func (m *Monitor) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// StartMetricsServer 启动Prometheus指标服务器
func (m *Monitor) StartMetricsServer(addr string) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())
	go func() {
		_ = http.ListenAndServe(addr, mux)
	}()
}

package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	"order-router-go/config"
	"order-router-go/engine"
	"order-router-go/feedback"
	"order-router-go/infrastructure/alert"
	"order-router-go/infrastructure/logger"
	"order-router-go/monitor"
	"order-router-go/order"
	"order-router-go/profile"
	"order-router-go/resilience"
	"order-router-go/venue"
	"order-router-go/venue/rest"
)

func main() {
	cfgPath := flag.String("config", "configs/config.yaml", "配置文件路径")
	symbols := flag.String("symbols", "BTC-USDT", "健康轮询的交易对，逗号分隔")
	listenAddr := flag.String("listen", ":8080", "订单接入 HTTP 监听地址")
	flag.Parse()

	cfg, err := config.LoadWithEnvOverrides(*cfgPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	logg, err := logger.New(cfg.Logger)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer logg.Close()

	mon := monitor.New(monitor.DefaultConfig())
	if cfg.Metrics.Enabled {
		mon.StartMetricsServer(cfg.Metrics.Addr)
	}

	storeOpts := []profile.Option{
		profile.WithSink(func(event string, fields map[string]interface{}) {
			logg.LogRouting(event, "", fields)
		}),
	}
	if cfg.Routing.EWMAAlpha > 0 {
		storeOpts = append(storeOpts, profile.WithAlpha(cfg.Routing.EWMAAlpha))
	}
	if cfg.Routing.ProfileStaleness() > 0 {
		storeOpts = append(storeOpts, profile.WithStalenessWindow(cfg.Routing.ProfileStaleness()))
	}
	store := profile.NewStore(storeOpts...)

	alerts := alert.NewManager([]alert.Channel{alert.NewLogChannel("ops", os.Stdout)}, time.Minute)

	guardConfigs, guardDefaults := cfg.GuardConfigs()
	guards := resilience.NewGuardSet(guardConfigs, guardDefaults, nil, func(ev resilience.Transition) {
		mon.OnBreakerTransition(ev)
		alerts.OnBreakerTransition(ev)
		logg.LogCircuit(ev.VenueID, ev.From.String(), ev.To.String())
	})

	conns := make([]venue.Connection, 0, len(cfg.Venues))
	for id, vc := range cfg.Venues {
		adapter := rest.New(id, vc.Endpoint, vc.APIKey)
		if vc.RateLimit.RatePerSec > 0 {
			adapter.Limiter = rest.NewTokenBucketLimiter(vc.RateLimit.RatePerSec, vc.RateLimit.Burst)
		}
		conns = append(conns, venue.Connection{
			VenueID: id,
			Adapter: adapter,
		})
	}

	router, err := engine.NewRouter(engine.Config{
		Epsilon:         cfg.Routing.Epsilon,
		Weights:         cfg.Routing.Weights,
		MaxSplitVenues:  cfg.Routing.MaxSplitVenues,
		LargeOrderRatio: cfg.Routing.LargeOrderRatio,
		DispatchTimeout: cfg.Routing.DispatchTimeout(),
	}, store, guards, conns, logg, mon)
	if err != nil {
		log.Fatalf("初始化路由引擎失败: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	poller := &profile.Poller{
		Store:    store,
		Conns:    conns,
		Symbols:  splitSymbols(*symbols),
		Interval: cfg.Routing.HealthInterval(),
		Sink: func(event string, fields map[string]interface{}) {
			logg.LogRouting(event, "", fields)
		},
	}
	go poller.Run(ctx)

	loop := feedback.NewLoop(store, logg, mon, cfg.Feedback.Buffer)
	go loop.Run(ctx)
	go watchFeedbackDrops(ctx, loop, alerts)
	if cfg.Feedback.WSEndpoint != "" {
		ws := feedback.NewWSSource(cfg.Feedback.WSEndpoint, loop, logg)
		ws.SetFatalErrorHandler(func(err error) {
			logg.LogError(err, map[string]interface{}{"component": "feedback_ws"})
			cancel()
		})
		ws.Start(ctx)
		defer ws.Stop()
	}

	// 配置热重载：评分/分配参数即时生效，venue 集合与熔断阈值重启生效
	watcher := &config.Watcher{Path: *cfgPath}
	go func() {
		_ = watcher.Start(ctx, func(newCfg config.AppConfig) {
			if err := router.ApplyRouting(engine.Config{
				Epsilon:         newCfg.Routing.Epsilon,
				Weights:         newCfg.Routing.Weights,
				MaxSplitVenues:  newCfg.Routing.MaxSplitVenues,
				LargeOrderRatio: newCfg.Routing.LargeOrderRatio,
				DispatchTimeout: newCfg.Routing.DispatchTimeout(),
			}); err != nil {
				logg.LogError(err, map[string]interface{}{"component": "config_reload"})
				return
			}
			logg.LogRouting("config_reloaded", "", map[string]interface{}{
				"env":  newCfg.Env,
				"note": "venue/breaker changes take effect on restart",
			})
		})
	}()

	srv := serveOrders(*listenAddr, router, logg)

	_, _ = daemon.SdNotify(false, daemon.SdNotifyReady)
	go watchdogLoop(ctx)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	_, _ = daemon.SdNotify(false, daemon.SdNotifyStopping)
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
	logg.LogRouting("router_exit", "", map[string]interface{}{"dropped_events": loop.Dropped()})
}

func splitSymbols(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, strings.ToUpper(p))
		}
	}
	return out
}

// watchFeedbackDrops 周期检查回报丢弃计数，新增丢弃时告警。
func watchFeedbackDrops(ctx context.Context, loop *feedback.Loop, alerts *alert.Manager) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()
	var last int64
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if dropped := loop.Dropped(); dropped > last {
				_ = alerts.FeedbackDropping(dropped)
				last = dropped
			}
		}
	}
}

// watchdogLoop 按 systemd watchdog 周期的一半上报心跳。
func watchdogLoop(ctx context.Context) {
	interval, err := daemon.SdWatchdogEnabled(false)
	if err != nil || interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval / 2)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			_, _ = daemon.SdNotify(false, daemon.SdNotifyWatchdog)
		}
	}
}

type orderRequest struct {
	ID         string  `json:"id"`
	Symbol     string  `json:"symbol"`
	Side       string  `json:"side"`
	Quantity   int64   `json:"quantity"`
	Kind       string  `json:"kind"`
	LimitPrice float64 `json:"limit_price,omitempty"`
	Objective  string  `json:"objective"`
	DeadlineMs int64   `json:"deadline_ms,omitempty"` // 相对当前时刻
}

// serveOrders 启动订单接入 HTTP 服务。
func serveOrders(addr string, router *engine.Router, logg *logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/orders", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		var req orderRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		o := order.Order{
			ID:         req.ID,
			Symbol:     strings.ToUpper(req.Symbol),
			Side:       order.Side(strings.ToUpper(req.Side)),
			Quantity:   req.Quantity,
			Kind:       order.Kind(strings.ToUpper(req.Kind)),
			LimitPrice: req.LimitPrice,
			Objective:  order.Objective(strings.ToUpper(req.Objective)),
		}
		if req.DeadlineMs > 0 {
			o.Deadline = time.Now().Add(time.Duration(req.DeadlineMs) * time.Millisecond)
		}

		decision, err := router.Route(r.Context(), o)
		if err != nil {
			status := http.StatusUnprocessableEntity
			var re *engine.RoutingError
			if errors.As(err, &re) && re.Kind == engine.KindNoEligibleVenue {
				status = http.StatusServiceUnavailable
			}
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(status)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(decision)
	})

	srv := &http.Server{Addr: addr, Handler: mux}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.LogError(err, map[string]interface{}{"component": "order_http"})
		}
	}()
	return srv
}

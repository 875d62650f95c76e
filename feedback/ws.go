package feedback

import (
	"context"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"order-router-go/infrastructure/logger"
)

const (
	wsReadDeadline = 30 * time.Second

	defaultMaxRetries   = 5
	defaultRetryBackoff = 3 * time.Second
)

// WSSource 订阅 venue 侧执行回报 WebSocket 流并转入反馈回路，
// 含读超时与自动重连。
type WSSource struct {
	Endpoint string // e.g. wss://venue.example.com/exec-reports
	Dialer   *websocket.Dialer

	loop *Loop
	log  *logger.Logger

	maxRetries   int
	retryBackoff time.Duration

	mu     sync.Mutex
	conn   *websocket.Conn
	cancel context.CancelFunc

	onFatalError func(error)
}

// NewWSSource 创建回报流订阅端。
func NewWSSource(endpoint string, loop *Loop, log *logger.Logger) *WSSource {
	if log == nil {
		log = logger.Nop()
	}
	return &WSSource{
		Endpoint:     endpoint,
		Dialer:       websocket.DefaultDialer,
		loop:         loop,
		log:          log,
		maxRetries:   defaultMaxRetries,
		retryBackoff: defaultRetryBackoff,
	}
}

// SetFatalErrorHandler 设置重连耗尽后的回调，用于通知主程序优雅退出。
func (s *WSSource) SetFatalErrorHandler(fn func(error)) {
	s.onFatalError = fn
}

// Start 启动后台订阅 goroutine。
func (s *WSSource) Start(parent context.Context) {
	ctx, cancel := context.WithCancel(parent)
	s.mu.Lock()
	s.cancel = cancel
	s.mu.Unlock()
	go s.run(ctx)
}

// Stop 停止订阅并关闭连接。
func (s *WSSource) Stop() {
	s.mu.Lock()
	if s.cancel != nil {
		s.cancel()
	}
	if s.conn != nil {
		_ = s.conn.Close()
		s.conn = nil
	}
	s.mu.Unlock()
}

// run 拨号并读取，断开自动重连。
func (s *WSSource) run(ctx context.Context) {
	retries := 0
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		conn, _, err := s.Dialer.Dial(s.Endpoint, nil)
		if err != nil {
			if retries >= s.maxRetries {
				s.log.LogError(err, map[string]interface{}{
					"endpoint": s.Endpoint,
					"retries":  retries,
				})
				if s.onFatalError != nil {
					s.onFatalError(err)
				}
				return
			}
			retries++
			backoff := time.Duration(retries) * s.retryBackoff
			s.log.LogDispatch("ws_dial_failed", "", map[string]interface{}{
				"endpoint": s.Endpoint,
				"attempt":  retries,
				"retry_in": backoff.String(),
			})
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return
			}
			continue
		}

		s.mu.Lock()
		s.conn = conn
		s.mu.Unlock()
		retries = 0
		s.log.LogDispatch("ws_connected", "", map[string]interface{}{"endpoint": s.Endpoint})

		s.readLoop(ctx, conn)

		s.mu.Lock()
		s.conn = nil
		s.mu.Unlock()
		s.log.LogDispatch("ws_disconnected", "", map[string]interface{}{"endpoint": s.Endpoint})

		select {
		case <-time.After(s.retryBackoff):
		case <-ctx.Done():
			return
		}
	}
}

// readLoop 读取回报并入队，读错误返回交由上层重连。
func (s *WSSource) readLoop(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(wsReadDeadline))
	})

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(wsReadDeadline))

		ev, err := ParseExecutionReport(msg)
		if err != nil {
			s.log.LogError(err, map[string]interface{}{"endpoint": s.Endpoint})
			continue
		}
		if !s.loop.OnExecutionEvent(ev) {
			s.log.LogDispatch("event_dropped", ev.VenueID, map[string]interface{}{
				"decision_id": ev.DecisionID,
				"dropped":     s.loop.Dropped(),
			})
		}
	}
}

package stream

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"pumpwatch.com/pkg/logger"
	"pumpwatch.com/pkg/metrics"
	"pumpwatch.com/pkg/xerr"
)

// SupervisorConfig 连接管理参数。全部可配，默认值见 NewSupervisor。
type SupervisorConfig struct {
	// IdleTimeout 超过这个时长没有任何行（帧或心跳）就判定连接假死
	IdleTimeout time.Duration
	// StableAfter 连续流式传输超过这个时长后退避计数归零，
	// 短命连接风暴不算恢复
	StableAfter time.Duration
	// BackoffBase/BackoffMax 指数退避上下界
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

// StateChangeFunc 状态变化通知（外部观察，不重试）。
type StateChangeFunc func(from, to ConnState, reason string)

// Supervisor 连接状态机：
//
//	disconnected -> connecting -> streaming -> backing_off -> connecting -> ...
//	任意状态 -> shutting_down（终态）
//
// 一条连接的生命周期：Connect -> Decoder 吃流 -> Dispatcher 分发，
// 断流/超时/健康检查失败都会回到 backing_off。
type Supervisor struct {
	transport  Transport
	dispatcher *Dispatcher
	stats      *Stats
	backoff    *Backoff
	cfg        SupervisorConfig

	// unhealthyC 健康检查的强制重连信号（检测 half-open 连接）
	unhealthyC <-chan struct{}

	// OnStateChange 可选的状态变化回调
	OnStateChange StateChangeFunc

	mu    sync.Mutex
	state ConnState

	lastActivity atomic.Int64 // unix nano
}

func NewSupervisor(t Transport, d *Dispatcher, stats *Stats, unhealthy <-chan struct{}, cfg SupervisorConfig) *Supervisor {
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = 180 * time.Second
	}
	if cfg.StableAfter <= 0 {
		cfg.StableAfter = 30 * time.Second
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = time.Second
	}
	if cfg.BackoffMax <= 0 {
		cfg.BackoffMax = 60 * time.Second
	}
	return &Supervisor{
		transport:  t,
		dispatcher: d,
		stats:      stats,
		backoff:    NewBackoff(cfg.BackoffBase, cfg.BackoffMax),
		cfg:        cfg,
		unhealthyC: unhealthy,
		state:      StateDisconnected,
	}
}

// State 当前状态（只读；写操作只发生在 Run 的控制循环里）。
func (s *Supervisor) State() ConnState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Backoff 暴露给测试/统计用。
func (s *Supervisor) Backoff() *Backoff { return s.backoff }

func (s *Supervisor) setState(to ConnState, reason string) {
	s.mu.Lock()
	from := s.state
	s.state = to
	s.mu.Unlock()

	if from == to {
		return
	}
	metrics.State.Set(float64(to))
	logger.Info(context.Background(), "connection state",
		zap.String("from", from.String()),
		zap.String("to", to.String()),
		zap.String("reason", reason),
	)
	if s.OnStateChange != nil {
		s.OnStateChange(from, to, reason)
	}
}

// Run 驱动状态机直到 ctx 取消。瞬时错误永远在内部消化，
// 返回值只会是 nil（优雅退出）。
func (s *Supervisor) Run(ctx context.Context) error {
	defer s.setState(StateShuttingDown, "shutdown")

	for {
		if ctx.Err() != nil {
			return nil
		}

		s.setState(StateConnecting, "connect attempt")
		metrics.ReconnectTotal.Inc()

		body, err := s.transport.Connect(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if xerr.IsAuth(err) {
				// 认证失败要显式上报：重试救不回来，需要人工换 token
				logger.Error(ctx, "⛔ stream auth rejected, check api token", zap.Error(err))
			} else {
				logger.Warn(ctx, "stream connect failed", zap.Error(err))
			}
			if !s.waitBackoff(ctx) {
				return nil
			}
			continue
		}

		reason := s.streamOnce(ctx, body)

		s.stats.ConnClosed()
		metrics.ConnCloseTotal.WithLabelValues(reason).Inc()

		if ctx.Err() != nil {
			return nil
		}
		if !s.waitBackoff(ctx) {
			return nil
		}
	}
}

// streamOnce 一条连接的完整生命周期，返回关闭原因。
func (s *Supervisor) streamOnce(ctx context.Context, body io.ReadCloser) string {
	connID := uuid.NewString()
	connCtx := context.WithValue(ctx, logger.TraceIdKey, connID)

	// 丢掉重连前残留的 unhealthy 信号，别误杀新连接
	select {
	case <-s.unhealthyC:
	default:
	}

	s.stats.ConnOpened()
	s.touch()
	s.setState(StateStreaming, "connected")
	logger.Info(connCtx, "🌊 stream connected")

	startedAt := time.Now()

	// closeReason 由 watchdog 在主动关连接前写入
	var closeReason atomic.Value
	watchCtx, stopWatch := context.WithCancel(connCtx)
	defer stopWatch()

	go s.watchdog(watchCtx, body, &closeReason)

	dec := NewDecoder(body)
	dec.OnActivity = s.touch
	dec.OnDecodeError = s.stats.AddDecodeError

	reason := "eof"
	for {
		f, err := dec.Next()
		if err != nil {
			if r, ok := closeReason.Load().(string); ok {
				reason = r
			} else if !errors.Is(err, io.EOF) {
				reason = "error"
				logger.Warn(connCtx, "stream read error", zap.Error(err))
			}
			break
		}
		s.dispatcher.Dispatch(connCtx, f)
	}

	stopWatch()
	_ = body.Close()

	// 流够稳才算恢复，重连风暴不重置退避
	if lived := time.Since(startedAt); lived >= s.cfg.StableAfter {
		s.backoff.Reset()
		logger.Debug(connCtx, "stream was stable, backoff reset",
			zap.Duration("lived", lived))
	}

	logger.Info(connCtx, "stream closed",
		zap.String("reason", reason),
		zap.Duration("lived", time.Since(startedAt)),
	)
	return reason
}

// watchdog 监控一条活跃连接：ctx 取消、idle 超时、健康检查告警
// 三种情况主动关 body，解开阻塞中的读。
func (s *Supervisor) watchdog(ctx context.Context, body io.ReadCloser, closeReason *atomic.Value) {
	// 轮询间隔取 idle 的 1/4，保证超时检测误差有界
	tick := s.cfg.IdleTimeout / 4
	if tick > 5*time.Second {
		tick = 5 * time.Second
	}
	if tick < 100*time.Millisecond {
		tick = 100 * time.Millisecond
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			if closeReason.Load() == nil {
				closeReason.Store("shutdown")
			}
			_ = body.Close()
			return
		case <-s.unhealthyC:
			logger.Warn(ctx, "⚠️ health monitor says unhealthy, forcing reconnect")
			closeReason.Store("unhealthy")
			_ = body.Close()
			return
		case <-ticker.C:
			idle := time.Since(time.Unix(0, s.lastActivity.Load()))
			if idle > s.cfg.IdleTimeout {
				logger.Warn(ctx, "stream idle timeout, forcing reconnect",
					zap.Duration("idle", idle))
				closeReason.Store("idle")
				_ = body.Close()
				return
			}
		}
	}
}

// waitBackoff 退避等待。返回 false 表示等待期间收到了关停信号。
func (s *Supervisor) waitBackoff(ctx context.Context) bool {
	d := s.backoff.Next()
	s.setState(StateBackingOff, "waiting "+d.String())
	logger.Info(ctx, "🔄 reconnect backoff",
		zap.Duration("wait", d),
		zap.Int("attempt", s.backoff.Attempts()),
	)

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

func (s *Supervisor) touch() {
	s.lastActivity.Store(time.Now().UnixNano())
}

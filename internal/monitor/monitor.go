package monitor

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"pumpwatch.com/internal/format"
	"pumpwatch.com/internal/sink"
	"pumpwatch.com/internal/stream"
	"pumpwatch.com/pkg/logger"
	"pumpwatch.com/pkg/safe"
	"pumpwatch.com/pkg/xredis"
)

// Monitor 顶层编排：config -> transport -> supervisor -> dispatcher -> sinks。
// 自己只负责装配和周期统计，连接逻辑全在 stream 包里。
type Monitor struct {
	cfg *Config

	stats      *stream.Stats
	dispatcher *stream.Dispatcher
	health     *stream.HealthMonitor
	sup        *stream.Supervisor
	formatter  *format.Formatter

	fileSink  *sink.FileSink
	broker    sink.Broker
	rdb       *redis.Client
	writeLock *xredis.WriterLock
}

// New 装配所有组件。内置 handler 注册顺序固定：
// console -> file -> broker -> redis，用户扩展追加在后面。
func New(cfg *Config) (*Monitor, error) {
	stats := stream.NewStats()
	dispatcher := stream.NewDispatcher(stats)

	health := stream.NewHealthMonitor(
		cfg.HealthURL(), cfg.Server.APIToken,
		cfg.Health.Interval, cfg.Health.Timeout, cfg.Health.FailThreshold,
		stats,
	)

	transport := stream.NewHTTPTransport(cfg.EventsURL(), cfg.Server.APIToken, cfg.Stream.ConnectTimeout)

	sup := stream.NewSupervisor(transport, dispatcher, stats, health.Unhealthy(), stream.SupervisorConfig{
		IdleTimeout: cfg.Stream.IdleTimeout,
		StableAfter: cfg.Stream.StableAfter,
		BackoffBase: cfg.Stream.BackoffBase,
		BackoffMax:  cfg.Stream.BackoffMax,
	})

	m := &Monitor{
		cfg:        cfg,
		stats:      stats,
		dispatcher: dispatcher,
		health:     health,
		sup:        sup,
		formatter:  format.NewFormatter(),
	}

	// 1. 控制台输出
	dispatcher.Register("console", m.consoleHandler)

	// 2. JSONL 落盘
	if cfg.Output.SaveToFile {
		fs, err := sink.NewFileSink(cfg.Output.File, stats)
		if err != nil {
			return nil, fmt.Errorf("open output file: %w", err)
		}
		m.fileSink = fs
		dispatcher.Register("file", fs.Handle)
		fmt.Printf("📁 Data will be saved to %q\n", cfg.Output.File)
	}

	// 3. NATS 外发（可选）
	if cfg.Nats.Enabled {
		broker, err := sink.NewNatsBroker(cfg.Nats.URL)
		if err != nil {
			// 外发是增值功能，连不上降级运行
			logger.Warn(context.Background(), "nats unavailable, publisher disabled",
				zap.String("url", cfg.Nats.URL), zap.Error(err))
		} else {
			m.broker = broker
			dispatcher.Register("nats", sink.PublishHandler(broker))
		}
	}

	// 4. Redis Stream 外发（可选）
	if cfg.Redis.Enabled {
		rdb, err := xredis.NewRedis(&xredis.Config{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			logger.Warn(context.Background(), "redis unavailable, sink disabled",
				zap.String("addr", cfg.Redis.Addr), zap.Error(err))
		} else {
			// 同一个 stream key 只允许一个写者，避免多实例重复落流
			lock := xredis.NewWriterLock(rdb, cfg.Redis.StreamKey+":writer", 30*time.Second)
			if !lock.TryAcquire(context.Background()) {
				logger.Warn(context.Background(), "another instance holds the writer lock, redis sink disabled",
					zap.String("stream", cfg.Redis.StreamKey))
				_ = rdb.Close()
			} else {
				m.rdb = rdb
				m.writeLock = lock
				rs := sink.NewRedisSink(rdb, cfg.Redis.StreamKey, cfg.Redis.MaxLen)
				dispatcher.Register("redis", rs.Handle)
			}
		}
	}

	return m, nil
}

// Dispatcher 暴露给调用方追加自定义 handler（内置的先执行）。
func (m *Monitor) Dispatcher() *stream.Dispatcher { return m.dispatcher }

// Supervisor 状态查询入口。
func (m *Monitor) Supervisor() *stream.Supervisor { return m.sup }

// Run 阻塞运行直到 ctx 取消。返回前打最终统计、关 sink。
func (m *Monitor) Run(ctx context.Context) error {
	fmt.Println("🚀 Starting Pump Monitor...")
	fmt.Printf("🎯 Target endpoint: /%s\n", m.cfg.Server.Endpoint)
	fmt.Printf("📡 Server URL: %s\n", m.cfg.Server.URL)

	// 启动期先探一次活。失败不致命（服务端可能正在恢复），交给退避
	if err := m.health.Check(ctx); err != nil {
		fmt.Println("⚠️ Server health check failed, starting anyway")
		logger.Warn(ctx, "startup health check failed", zap.Error(err))
	} else if hs, ok := m.health.Last(); ok && !m.cfg.Display.Quiet {
		icon := "🟡"
		if hs.Connected {
			icon = "🟢"
		}
		fmt.Printf("%s Server Status: Connected=%v, Total Connections=%d, Messages Processed=%d\n",
			icon, hs.Connected, hs.TotalConnections, hs.MessagesProcessed)
	}

	fmt.Println("🌊 Establishing SSE stream connection...")

	// 三个独立活动：读循环（supervisor）、健康检查、统计汇总
	safe.GoCtx(ctx, m.health.Run)
	safe.GoCtx(ctx, m.statsLoop)
	if m.writeLock != nil {
		safe.GoCtx(ctx, m.writeLock.Keepalive)
	}

	err := m.sup.Run(ctx)

	m.PrintStats()
	m.close()
	return err
}

func (m *Monitor) consoleHandler(ctx context.Context, ev *stream.Event) error {
	if m.cfg.Display.Quiet {
		return nil
	}
	if m.cfg.Display.ShowRaw {
		fmt.Println(format.FormatRaw(ev))
	}
	if m.cfg.Display.ShowDetailed {
		fmt.Println(m.formatter.Format(ev))
	}
	return nil
}

func (m *Monitor) statsLoop(ctx context.Context) {
	ticker := time.NewTicker(m.cfg.Display.StatsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.PrintStats()
		}
	}
}

// PrintStats 打一份统计快照。
func (m *Monitor) PrintStats() {
	s := m.stats.Snapshot()

	fmt.Println("\n📊 Statistics:")
	fmt.Printf("   🕐 Uptime: %s\n", s.Uptime.Truncate(time.Second))
	fmt.Printf("   📨 Total Events: %d\n", s.TotalEvents)
	fmt.Printf("   ⚡ Average events/min: %.1f\n", s.EventsPerMinute)
	fmt.Printf("   🔗 Active connections: %d\n", s.ActiveConnections)
	if s.DecodeErrors > 0 {
		fmt.Printf("   🗑️ Dropped frames: %d\n", s.DecodeErrors)
	}

	if len(s.ByType) > 0 {
		fmt.Println("   📋 Event Types:")
		types := make([]string, 0, len(s.ByType))
		for t := range s.ByType {
			types = append(types, string(t))
		}
		sort.Strings(types)
		for _, t := range types {
			fmt.Printf("      %s: %d\n", t, s.ByType[stream.EventType(t)])
		}
	}

	if m.fileSink != nil {
		if size := m.fileSink.Size(); size > 0 {
			fmt.Printf("   📁 File size: %d bytes\n", size)
		}
	}
	fmt.Println("--------------------------------------------------------------------------------")
}

func (m *Monitor) close() {
	if m.fileSink != nil {
		_ = m.fileSink.Close()
	}
	if m.broker != nil {
		_ = m.broker.Close()
	}
	if m.writeLock != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		m.writeLock.Release(ctx)
		cancel()
	}
	if m.rdb != nil {
		_ = m.rdb.Close()
	}
}

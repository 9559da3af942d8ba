package stream

import (
	"context"
	"runtime/debug"
	"time"

	"go.uber.org/zap"
	"pumpwatch.com/pkg/logger"
	"pumpwatch.com/pkg/metrics"
)

// HandlerFunc 事件消费方（console formatter / file sink / broker publisher / 用户扩展）。
// 返回错误只记录，不影响其他 handler，也不影响连接。
type HandlerFunc func(ctx context.Context, ev *Event) error

type handler struct {
	name string
	fn   HandlerFunc
}

// Dispatcher 把 Frame 变成 Event 并按注册顺序同步分发。
// 内置 handler 先注册、先执行，用户扩展 handler 追加在后面。
type Dispatcher struct {
	types    map[string]EventType
	stats    *Stats
	handlers []handler
}

func NewDispatcher(stats *Stats) *Dispatcher {
	return &Dispatcher{
		types: defaultTypeMap(),
		stats: stats,
	}
}

// WithTypeMap 覆盖事件名到类型的映射（测试/新端点用）。
func (d *Dispatcher) WithTypeMap(m map[string]EventType) *Dispatcher {
	d.types = m
	return d
}

// Register 追加一个 handler。name 用于错误日志和 metrics 标签。
func (d *Dispatcher) Register(name string, fn HandlerFunc) {
	d.handlers = append(d.handlers, handler{name: name, fn: fn})
}

// Dispatch 处理一条已解码的帧：分类 -> 计数 -> 逐个调 handler。
// payload 不是 JSON 对象时丢帧并计 decode error。
func (d *Dispatcher) Dispatch(ctx context.Context, f Frame) {
	data, err := decodePayload(f.Data)
	if err != nil {
		d.stats.AddDecodeError()
		logger.Debug(ctx, "drop frame: bad payload",
			zap.String("event", f.Name), zap.Error(err))
		return
	}

	typ, ok := d.types[f.Name]
	if !ok {
		typ = EventUnknown
	}

	ev := &Event{
		Type:       typ,
		Name:       f.Name,
		Data:       data,
		Raw:        f.Data,
		ReceivedAt: time.Now(),
	}

	// connected/ping 是协议事件，只走 handler，不进业务统计
	if typ != EventConnected && typ != EventPing {
		d.stats.AddEvent(typ)
	}

	for _, h := range d.handlers {
		d.invoke(ctx, h, ev)
	}
}

// invoke 单个 handler 的失败（error 或 panic）被隔离，后续 handler 照常跑。
func (d *Dispatcher) invoke(ctx context.Context, h handler, ev *Event) {
	defer func() {
		if r := recover(); r != nil {
			metrics.HandlerErrorsTotal.WithLabelValues(h.name).Inc()
			logger.Error(ctx, "🚨 handler panic recovered",
				zap.String("handler", h.name),
				zap.Any("panic", r),
				zap.String("stack", string(debug.Stack())),
			)
		}
	}()

	if err := h.fn(ctx, ev); err != nil {
		metrics.HandlerErrorsTotal.WithLabelValues(h.name).Inc()
		logger.Warn(ctx, "handler error",
			zap.String("handler", h.name),
			zap.String("event", string(ev.Type)),
			zap.Error(err),
		)
	}
}

package sink

import (
	"context"

	"pumpwatch.com/internal/stream"
)

// EventTopic 外发 topic：pump:event:<type>
func EventTopic(t stream.EventType) string {
	return "pump:event:" + string(t)
}

// PublishHandler 把业务事件原始 payload 转发到 Broker 的 handler。
// 协议事件不外发。发布失败只记一次 handler error，不影响连接。
func PublishHandler(b Broker) stream.HandlerFunc {
	return func(ctx context.Context, ev *stream.Event) error {
		if ev.Type == stream.EventConnected || ev.Type == stream.EventPing {
			return nil
		}
		return b.Publish(ctx, EventTopic(ev.Type), ev.Raw)
	}
}

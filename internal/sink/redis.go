package sink

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
	"pumpwatch.com/internal/stream"
	"pumpwatch.com/pkg/metrics"
)

// RedisSink 把业务事件写进 Redis Stream，下游用 XREAD/消费组接。
// MaxLen 近似裁剪，防止无人消费时撑爆内存。
type RedisSink struct {
	rdb    *redis.Client
	key    string
	maxLen int64
}

func NewRedisSink(rdb *redis.Client, key string, maxLen int64) *RedisSink {
	if key == "" {
		key = "pumpwatch:events"
	}
	if maxLen <= 0 {
		maxLen = 100_000
	}
	return &RedisSink{rdb: rdb, key: key, maxLen: maxLen}
}

func (s *RedisSink) Handle(ctx context.Context, ev *stream.Event) error {
	if ev.Type == stream.EventConnected || ev.Type == stream.EventPing {
		return nil
	}

	start := time.Now()
	err := s.rdb.XAdd(ctx, &redis.XAddArgs{
		Stream: s.key,
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]any{
			"event_type": string(ev.Type),
			"data":       string(ev.Raw),
		},
	}).Err()

	status := "ok"
	if err != nil {
		status = "err"
		metrics.RedisErrors.WithLabelValues("xadd").Inc()
	}
	metrics.RedisCmdDuration.WithLabelValues("xadd", status).Observe(time.Since(start).Seconds())
	return err
}

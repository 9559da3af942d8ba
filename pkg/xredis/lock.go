package xredis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"pumpwatch.com/pkg/logger"
)

// WriterLock 共享 Redis Stream 的单写者锁。
// 多个监控实例指向同一个 stream key 时，只有持锁者落流，防止重复写入。
type WriterLock struct {
	rdb *redis.Client
	key string
	id  string // 本实例唯一ID
	ttl time.Duration
}

func NewWriterLock(rdb *redis.Client, key string, ttl time.Duration) *WriterLock {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	return &WriterLock{
		rdb: rdb,
		key: key,
		id:  uuid.NewString(),
		ttl: ttl,
	}
}

// TryAcquire SETNX 抢锁，带过期时间防死锁（持锁者挂了锁自动释放）。
// 锁已经是自己的就续期。
func (l *WriterLock) TryAcquire(ctx context.Context) bool {
	ok, err := l.rdb.SetNX(ctx, l.key, l.id, l.ttl).Result()
	if err != nil {
		logger.Warn(ctx, "writer lock setnx failed", zap.String("key", l.key), zap.Error(err))
		return false
	}
	if ok {
		return true
	}

	// 抢锁失败：检查是不是自己的锁（续期路径）
	val, err := l.rdb.Get(ctx, l.key).Result()
	if err == nil && val == l.id {
		l.rdb.Expire(ctx, l.key, l.ttl)
		return true
	}
	return false
}

// Keepalive 周期续期直到 ctx 取消。丢锁只告警，写入方自行决定降级。
func (l *WriterLock) Keepalive(ctx context.Context) {
	ticker := time.NewTicker(l.ttl / 3)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !l.TryAcquire(ctx) {
				logger.Warn(ctx, "⚠️ writer lock lost", zap.String("key", l.key))
			}
		}
	}
}

// Release 只删自己的锁，别人的不动。
func (l *WriterLock) Release(ctx context.Context) {
	val, err := l.rdb.Get(ctx, l.key).Result()
	if err != nil || val != l.id {
		return
	}
	l.rdb.Del(ctx, l.key)
}

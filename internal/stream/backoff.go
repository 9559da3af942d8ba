package stream

import (
	"math/rand"
	"sync"
	"time"
)

// Backoff 有界指数退避。连续失败翻倍、封顶；
// 稳定流上一段时间后由 Supervisor 调 Reset 归零。
type Backoff struct {
	Base   time.Duration
	Max    time.Duration
	Factor float64
	Jitter bool // 加随机量，避免 thundering herd

	mu          sync.Mutex
	attempts    int
	lastAttempt time.Time
}

func NewBackoff(base, max time.Duration) *Backoff {
	if base <= 0 {
		base = time.Second
	}
	if max < base {
		max = base
	}
	return &Backoff{Base: base, Max: max, Factor: 2, Jitter: true}
}

// Next 返回本次失败后的等待时长并推进计数。
// 序列（base=1s max=60s factor=2，无 jitter）：1,2,4,8,16,32,60,60,...
func (b *Backoff) Next() time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()

	d := b.Base
	for i := 0; i < b.attempts; i++ {
		d = time.Duration(float64(d) * b.Factor)
		if d >= b.Max {
			d = b.Max
			break
		}
	}
	b.attempts++
	b.lastAttempt = time.Now()

	if b.Jitter && d > 0 {
		d += time.Duration(rand.Int63n(int64(d/2) + 1))
		if d > b.Max {
			d = b.Max
		}
	}
	return d
}

func (b *Backoff) Reset() {
	b.mu.Lock()
	b.attempts = 0
	b.mu.Unlock()
}

func (b *Backoff) Attempts() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.attempts
}

// LastAttempt 最近一次失败的时间（日志用）。
func (b *Backoff) LastAttempt() time.Time {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.lastAttempt
}

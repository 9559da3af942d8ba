package stream

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/segmentio/encoding/json"
	"go.uber.org/zap"
	"pumpwatch.com/pkg/logger"
	"pumpwatch.com/pkg/metrics"
)

// HealthStatus 服务端带外状态，每次检查整体替换，不做合并。
type HealthStatus struct {
	Connected         bool
	TotalConnections  int
	MessagesProcessed int64
	CheckedAt         time.Time
}

// healthResp 服务端 /health 返回结构
type healthResp struct {
	Connected   bool `json:"connected"`
	Connections struct {
		Total int `json:"total"`
	} `json:"connections"`
	MessagesProcessed int64 `json:"messages_processed"`
}

// HealthMonitor 独立于流的带外健康检查。
// 自己的 timer、自己的 HTTP client，和 SSE 长连接互不干扰；
// Supervisor 退避期间也持续运行，才能探测到服务端恢复。
type HealthMonitor struct {
	URL           string
	Token         string
	Interval      time.Duration
	Timeout       time.Duration
	FailThreshold int

	stats  *Stats
	client *http.Client

	mu       sync.Mutex
	last     HealthStatus
	hasLast  bool
	failures int

	unhealthyC chan struct{}
}

func NewHealthMonitor(url, token string, interval, timeout time.Duration, threshold int, stats *Stats) *HealthMonitor {
	if interval <= 0 {
		interval = 4 * time.Minute
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if threshold <= 0 {
		threshold = 2
	}
	return &HealthMonitor{
		URL:           url,
		Token:         token,
		Interval:      interval,
		Timeout:       timeout,
		FailThreshold: threshold,
		stats:         stats,
		client:        &http.Client{Timeout: timeout},
		unhealthyC:    make(chan struct{}, 1),
	}
}

// Unhealthy 连续失败达到阈值时收到信号；Supervisor 拿它强制重连
// （探测 silent/half-open 连接）。
func (h *HealthMonitor) Unhealthy() <-chan struct{} {
	return h.unhealthyC
}

// Last 最近一次成功的状态快照。
func (h *HealthMonitor) Last() (HealthStatus, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.last, h.hasLast
}

// Run 周期检查直到 ctx 取消。
func (h *HealthMonitor) Run(ctx context.Context) {
	ticker := time.NewTicker(h.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := h.Check(ctx); err != nil {
				h.onFailure(ctx, err)
			}
		}
	}
}

// Check 执行一次带外检查。成功时重置连续失败计数并整体替换状态。
func (h *HealthMonitor) Check(ctx context.Context) error {
	reqCtx, cancel := context.WithTimeout(ctx, h.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, h.URL, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+h.Token)

	resp, err := h.client.Do(req)
	if err != nil {
		metrics.HealthChecksTotal.WithLabelValues("fail").Inc()
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		metrics.HealthChecksTotal.WithLabelValues("fail").Inc()
		return fmt.Errorf("health check: HTTP %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		metrics.HealthChecksTotal.WithLabelValues("fail").Inc()
		return err
	}

	var hr healthResp
	if err := json.Unmarshal(body, &hr); err != nil {
		metrics.HealthChecksTotal.WithLabelValues("fail").Inc()
		return fmt.Errorf("health check: bad body: %w", err)
	}

	status := HealthStatus{
		Connected:         hr.Connected,
		TotalConnections:  hr.Connections.Total,
		MessagesProcessed: hr.MessagesProcessed,
		CheckedAt:         time.Now(),
	}

	h.mu.Lock()
	h.last = status
	h.hasLast = true
	h.failures = 0
	h.mu.Unlock()

	h.stats.SetActiveConnections(status.TotalConnections)
	metrics.HealthChecksTotal.WithLabelValues("ok").Inc()

	logger.Debug(ctx, "health check ok",
		zap.Bool("connected", status.Connected),
		zap.Int("total_connections", status.TotalConnections),
		zap.Int64("messages_processed", status.MessagesProcessed),
	)
	return nil
}

// onFailure 单次失败可以容忍，连续达到阈值才通知 Supervisor。
func (h *HealthMonitor) onFailure(ctx context.Context, err error) {
	h.mu.Lock()
	h.failures++
	n := h.failures
	fire := n >= h.FailThreshold
	if fire {
		h.failures = 0 // 发信号后重新累计
	}
	h.mu.Unlock()

	logger.Warn(ctx, "health check failed",
		zap.Int("consecutive", n),
		zap.Int("threshold", h.FailThreshold),
		zap.Error(err),
	)

	if fire {
		select {
		case h.unhealthyC <- struct{}{}:
		default: // 已有未消费的信号
		}
	}
}

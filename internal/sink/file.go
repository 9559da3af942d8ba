package sink

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/segmentio/encoding/json"
	"pumpwatch.com/internal/stream"
)

// record JSON Lines 落盘格式，和历史数据文件保持兼容
type record struct {
	Timestamp string         `json:"timestamp"`
	EventType string         `json:"event_type"`
	Data      map[string]any `json:"data"`
}

// FileSink 追加写 JSONL 的持久化 handler。
// 单写者：只有 Dispatcher 的同步分发路径会调 Handle，不需要考虑写交错。
type FileSink struct {
	mu    sync.Mutex
	f     *os.File
	path  string
	stats *stream.Stats
}

func NewFileSink(path string, stats *stream.Stats) (*FileSink, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	return &FileSink{f: f, path: path, stats: stats}, nil
}

// Handle 业务事件逐条落盘；协议事件（connected/ping）不存。
func (s *FileSink) Handle(ctx context.Context, ev *stream.Event) error {
	if ev.Type == stream.EventConnected || ev.Type == stream.EventPing {
		return nil
	}

	rec := record{
		Timestamp: ev.ReceivedAt.UTC().Format(time.RFC3339Nano),
		EventType: ev.Name,
		Data:      ev.Data,
	}
	buf, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	buf = append(buf, '\n')

	s.mu.Lock()
	_, err = s.f.Write(buf)
	s.mu.Unlock()
	if err != nil {
		return err
	}

	s.stats.AddPersisted(len(buf))
	return nil
}

// Size 当前文件大小（统计汇总里显示）。
func (s *FileSink) Size() int64 {
	info, err := os.Stat(s.path)
	if err != nil {
		return 0
	}
	return info.Size()
}

func (s *FileSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.f.Close()
}

package stream

import (
	"sync"
	"time"

	"pumpwatch.com/pkg/metrics"
)

// Stats 进程级统计。Dispatcher 写事件计数，Supervisor 写连接计数，
// 汇总打印方只读快照。除 ActiveConnections 外所有计数单调递增。
type Stats struct {
	mu sync.Mutex

	startTime    time.Time
	totalEvents  uint64
	byType       map[EventType]uint64
	decodeErrors uint64

	connects          uint64
	activeConnections int
	persistedBytes    uint64
	persistedRecords  uint64
}

// Snapshot 只读快照。读取时可能落后于并发中的增量，
// 但单次 AddEvent 的 total/byType 更新是原子的一步。
type Snapshot struct {
	StartTime         time.Time
	Uptime            time.Duration
	TotalEvents       uint64
	ByType            map[EventType]uint64
	DecodeErrors      uint64
	Connects          uint64
	ActiveConnections int
	PersistedBytes    uint64
	PersistedRecords  uint64
	EventsPerMinute   float64
}

func NewStats() *Stats {
	return &Stats{
		startTime: time.Now(),
		byType:    make(map[EventType]uint64),
	}
}

// AddEvent total 和分类计数在同一把锁里一起加，保证两者始终一致。
func (s *Stats) AddEvent(t EventType) {
	s.mu.Lock()
	s.totalEvents++
	s.byType[t]++
	s.mu.Unlock()
	metrics.EventsTotal.WithLabelValues(string(t)).Inc()
}

func (s *Stats) AddDecodeError() {
	s.mu.Lock()
	s.decodeErrors++
	s.mu.Unlock()
	metrics.DecodeErrorsTotal.Inc()
}

func (s *Stats) ConnOpened() {
	s.mu.Lock()
	s.connects++
	s.activeConnections = 1
	s.mu.Unlock()
	metrics.ConnOpenTotal.Inc()
	metrics.Conns.Set(1)
}

func (s *Stats) ConnClosed() {
	s.mu.Lock()
	s.activeConnections = 0
	s.mu.Unlock()
	metrics.Conns.Set(0)
}

// SetActiveConnections 健康检查会带回服务端的连接总数，整体替换。
func (s *Stats) SetActiveConnections(n int) {
	s.mu.Lock()
	s.activeConnections = n
	s.mu.Unlock()
}

// AddPersisted 文件落盘后记账（字节数 + 记录数）。
func (s *Stats) AddPersisted(bytes int) {
	s.mu.Lock()
	s.persistedBytes += uint64(bytes)
	s.persistedRecords++
	s.mu.Unlock()
	metrics.PersistedBytesTotal.Add(float64(bytes))
}

func (s *Stats) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	byType := make(map[EventType]uint64, len(s.byType))
	for k, v := range s.byType {
		byType[k] = v
	}

	uptime := time.Since(s.startTime)
	minutes := uptime.Minutes()
	if minutes < 1 {
		minutes = 1
	}

	return Snapshot{
		StartTime:         s.startTime,
		Uptime:            uptime,
		TotalEvents:       s.totalEvents,
		ByType:            byType,
		DecodeErrors:      s.decodeErrors,
		Connects:          s.connects,
		ActiveConnections: s.activeConnections,
		PersistedBytes:    s.persistedBytes,
		PersistedRecords:  s.persistedRecords,
		EventsPerMinute:   float64(s.totalEvents) / minutes,
	}
}

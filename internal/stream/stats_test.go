package stream

import (
	"sync"
	"testing"
)

func TestStats_SumInvariant(t *testing.T) {
	s := NewStats()

	// 并发写入下，任何时刻 byType 之和 == total
	var wg sync.WaitGroup
	types := []EventType{EventTrade, EventNewCoin, EventGraduated}
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 1000; j++ {
				s.AddEvent(types[(n+j)%len(types)])
			}
		}(i)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 100; i++ {
			snap := s.Snapshot()
			var sum uint64
			for _, v := range snap.ByType {
				sum += v
			}
			if sum != snap.TotalEvents {
				t.Errorf("sum(byType)=%d != total=%d", sum, snap.TotalEvents)
				return
			}
		}
	}()

	wg.Wait()
	<-done

	snap := s.Snapshot()
	if snap.TotalEvents != 8000 {
		t.Fatalf("want 8000 events, got %d", snap.TotalEvents)
	}
}

func TestStats_SnapshotIsCopy(t *testing.T) {
	s := NewStats()
	s.AddEvent(EventTrade)

	snap := s.Snapshot()
	snap.ByType[EventTrade] = 999

	if got := s.Snapshot().ByType[EventTrade]; got != 1 {
		t.Fatalf("snapshot must not alias internal map, got %d", got)
	}
}

func TestStats_Persisted(t *testing.T) {
	s := NewStats()
	s.AddPersisted(100)
	s.AddPersisted(50)

	snap := s.Snapshot()
	if snap.PersistedBytes != 150 || snap.PersistedRecords != 2 {
		t.Fatalf("persisted bookkeeping wrong: %+v", snap)
	}
}

func TestStats_Connections(t *testing.T) {
	s := NewStats()

	s.ConnOpened()
	if snap := s.Snapshot(); snap.ActiveConnections != 1 || snap.Connects != 1 {
		t.Fatalf("after open: %+v", snap)
	}

	s.ConnClosed()
	if snap := s.Snapshot(); snap.ActiveConnections != 0 {
		t.Fatalf("after close: %+v", snap)
	}

	// 健康检查带回的服务端计数整体替换
	s.SetActiveConnections(7)
	if snap := s.Snapshot(); snap.ActiveConnections != 7 {
		t.Fatalf("after health update: %+v", snap)
	}
}

package stream

import (
	"time"

	"github.com/segmentio/encoding/json"
)

// EventType 事件类型（服务端推送的业务事件分类）
type EventType string

const (
	EventNewCoin         EventType = "new_coin"
	EventNewCoinDetailed EventType = "new_coin_detailed"
	EventGraduated       EventType = "graduated"
	EventTrade           EventType = "trade"
	EventPumpTrade       EventType = "pump_trade"

	// EventConnected/EventPing 是协议层事件，不计入业务统计
	EventConnected EventType = "connected"
	EventPing      EventType = "ping"

	// EventUnknown: 未注册的事件名，保留 payload 向前兼容
	EventUnknown EventType = "unknown"
)

// Frame 一条完整的 SSE 帧：event name + 拼接后的 data 行。
// 由 Decoder 产出，Dispatcher 立即消费，不保留。
type Frame struct {
	Name string
	ID   string
	Data []byte // raw JSON payload (multiple data lines joined by '\n')
}

// Event 已分类的事件，分发后所有权交给 handler。
type Event struct {
	Type       EventType
	Name       string // 原始事件名（Type=unknown 时有用）
	Data       map[string]any
	Raw        []byte
	ReceivedAt time.Time
}

// defaultTypeMap 服务端事件名 -> EventType。可通过 DispatcherOption 覆盖。
func defaultTypeMap() map[string]EventType {
	return map[string]EventType{
		"new_coin":          EventNewCoin,
		"new_coin_detailed": EventNewCoinDetailed,
		"graduated":         EventGraduated,
		"trade":             EventTrade,
		"pump_trade":        EventPumpTrade,
		"connected":         EventConnected,
		"ping":              EventPing,
	}
}

// decodePayload 解析 frame payload。失败时 frame 会被丢弃（调用方计数）。
func decodePayload(raw []byte) (map[string]any, error) {
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, err
	}
	return m, nil
}

package stream

// ConnState 连接状态机。只有 Supervisor 的控制循环会修改它。
type ConnState int32

const (
	StateDisconnected ConnState = iota
	StateConnecting
	StateStreaming
	StateBackingOff
	StateShuttingDown
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateStreaming:
		return "streaming"
	case StateBackingOff:
		return "backing_off"
	case StateShuttingDown:
		return "shutting_down"
	default:
		return "unknown"
	}
}

package sink

import "context"

type Message struct {
	Topic   string
	Payload []byte
}

// Broker 事件外发通道。下游（告警、入库、回测）按 topic 订阅，
// 本进程只管 fanout，不保证投递。
type Broker interface {
	// publish
	Publish(ctx context.Context, topic string, payload []byte) error
	// 订阅
	Subscribe(ctx context.Context, topics []string) (<-chan Message, error)
	// 关闭
	Close() error
}

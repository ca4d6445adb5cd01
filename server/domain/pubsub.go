package domain

import (
	"context"
	"log/slog"
	"sync"
)

// SimplePubSub はプロセス内のトピック配送を行うPubSub実装です。
// 購読チャネルはバッファ付きで、満杯の場合メッセージはドロップされます。
type SimplePubSub struct {
	mu     sync.RWMutex
	topics map[Topic][]chan Message
	closed bool
}

const subscriberBuffer = 256

func NewSimplePubSub() *SimplePubSub {
	return &SimplePubSub{
		topics: make(map[Topic][]chan Message),
	}
}

func (p *SimplePubSub) Publish(ctx context.Context, topic Topic, msg Message) {
	// 送信は非ブロッキングなのでロックを握ったままで安全。close(ch)はLock下で
	// しか起きないため、閉じたチャネルへの送信はあり得ない。
	p.mu.RLock()
	defer p.mu.RUnlock()

	for _, ch := range p.topics[topic] {
		select {
		case ch <- msg:
		default:
			slog.WarnContext(ctx, "pubsub: subscriber full, message dropped", "topic", topic)
		}
	}
}

func (p *SimplePubSub) Subscribe(topic Topic) <-chan Message {
	ch := make(chan Message, subscriberBuffer)
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		close(ch)
		return ch
	}
	p.topics[topic] = append(p.topics[topic], ch)
	return ch
}

func (p *SimplePubSub) Unsubscribe(topic Topic, ch <-chan Message) {
	p.mu.Lock()
	defer p.mu.Unlock()
	subs := p.topics[topic]
	for i, sub := range subs {
		if sub == ch {
			p.topics[topic] = append(subs[:i], subs[i+1:]...)
			close(sub)
			break
		}
	}
	if len(p.topics[topic]) == 0 {
		delete(p.topics, topic)
	}
}

// Close は全購読チャネルを閉じます。プロセス終了時のみ呼びます。
func (p *SimplePubSub) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	for topic, subs := range p.topics {
		for _, ch := range subs {
			close(ch)
		}
		delete(p.topics, topic)
	}
}

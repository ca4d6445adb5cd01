package domain_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"forgeduel/server/domain"
)

// 配送と購読解除の基本動作を確認
func TestSimplePubSub_PublishSubscribe(t *testing.T) {
	ps := domain.NewSimplePubSub()
	topic := domain.Topic("match:test")

	ch := ps.Subscribe(topic)
	ps.Publish(context.Background(), topic, domain.Message{Data: []byte("hello")})

	select {
	case msg := <-ch:
		if string(msg.Data) != "hello" {
			t.Errorf("data: got %q", msg.Data)
		}
	case <-time.After(time.Second):
		t.Fatalf("message not delivered")
	}
}

// 購読解除がチャネルを閉じることを確認
func TestSimplePubSub_UnsubscribeClosesChannel(t *testing.T) {
	ps := domain.NewSimplePubSub()
	topic := domain.Topic("session:test")

	ch := ps.Subscribe(topic)
	ps.Unsubscribe(topic, ch)

	select {
	case _, ok := <-ch:
		if ok {
			t.Fatalf("unsubscribed channel must be closed, got a message")
		}
	case <-time.After(time.Second):
		t.Fatalf("unsubscribed channel must be closed")
	}

	// 解除後の配送は誰にも届かないだけで、panicしない
	ps.Publish(context.Background(), topic, domain.Message{Data: []byte("late")})
}

// 他トピックの購読者にメッセージが漏れないことを確認
func TestSimplePubSub_TopicIsolation(t *testing.T) {
	ps := domain.NewSimplePubSub()
	a := ps.Subscribe(domain.Topic("a"))
	b := ps.Subscribe(domain.Topic("b"))

	ps.Publish(context.Background(), domain.Topic("a"), domain.Message{Data: []byte("for a")})

	select {
	case <-a:
	case <-time.After(time.Second):
		t.Fatalf("subscriber a must receive")
	}
	select {
	case msg := <-b:
		t.Fatalf("subscriber b must not receive, got %q", msg.Data)
	default:
	}
}

// 配送中の購読解除で閉じたチャネルへ送信しないことを確認
func TestSimplePubSub_PublishDuringUnsubscribe(t *testing.T) {
	ps := domain.NewSimplePubSub()
	topic := domain.Topic("match:churn")

	stop := make(chan struct{})
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
					ps.Publish(context.Background(), topic, domain.Message{Data: []byte("x")})
				}
			}
		}()
	}

	// 購読と解除を繰り返す。閉じたチャネルへの送信があればpanicで落ちる。
	for i := 0; i < 500; i++ {
		ch := ps.Subscribe(topic)
		ps.Unsubscribe(topic, ch)
	}
	close(stop)
	wg.Wait()
}

// Close後の購読が即座に閉じたチャネルを返すことを確認
func TestSimplePubSub_Close(t *testing.T) {
	ps := domain.NewSimplePubSub()
	ch := ps.Subscribe(domain.Topic("x"))

	ps.Close()

	if _, ok := <-ch; ok {
		t.Fatalf("existing subscriber channel must be closed")
	}
	if _, ok := <-ps.Subscribe(domain.Topic("y")); ok {
		t.Fatalf("subscribe after close must return a closed channel")
	}
}

package domain

import "context"

//go:generate go tool mockgen -destination=./mocks/transport_mock.go -package=mocks . Transport

// Transport は物理接続の読み書きを抽象化します。
// 実装はserver/adapter以下に置きます。
type Transport interface {
	Read(ctx context.Context) ([]byte, error)
	Write(ctx context.Context, data []byte) error
	Close(code int32, reason string) error
}

//go:generate go tool mockgen -destination=./mocks/pubsub_mock.go -package=mocks . PubSub

// PubSub はセッションとマッチの間のメッセージ配送を担当します。
// トピックは "session:<id>" と "match:<id>" の2系統のみです。
type PubSub interface {
	Publish(ctx context.Context, topic Topic, msg Message)
	Subscribe(topic Topic) <-chan Message
	Unsubscribe(topic Topic, ch <-chan Message)
}

//go:generate go tool mockgen -destination=./mocks/lobby_mock.go -package=mocks . Lobby

// Lobby はJoinRequestを受け取りマッチ成立を担当します。
// 実装はserver/applicationに置きます。
type Lobby interface {
	// Enqueue はセッションをマッチ待ちに登録します。2人揃うとマッチが成立し、
	// MatchFoundが各session topicに配送されます。
	Enqueue(ctx context.Context, session *Session, displayName string) error
	// Leave はマッチ待ちからセッションを取り除きます。
	Leave(ctx context.Context, sessionID SessionID)
}

// Topic はPubSubの配送先です。
type Topic string

func SessionTopic(id SessionID) Topic { return Topic("session:" + id.String()) }
func MatchTopic(id MatchID) Topic     { return Topic("match:" + id.String()) }

// Message はPubSubで配送される1メッセージです。
// ReceivedAtは受信側ループで到着時に刻印され、遅延計測と入力検証に使われます。
type Message struct {
	SessionID  SessionID
	ReceivedAt int64 // unix nano
	Data       []byte
}

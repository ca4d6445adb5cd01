package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// MessageType はトランスポート境界でやり取りされるメッセージの種別です。
type MessageType string

const (
	// connection / lifecycle
	MessageSessionAssign MessageType = "session_assign"
	MessageJoinRequest   MessageType = "join_request"
	MessageMatchFound    MessageType = "match_found"
	MessagePing          MessageType = "ping"
	MessagePong          MessageType = "pong"
	MessageChannelLost   MessageType = "channel_lost"
	MessageRejoined      MessageType = "rejoined"

	// gameplay
	MessagePlayerInput   MessageType = "player_input"
	MessageGenerateItem  MessageType = "generate_item"
	MessageItemGenerated MessageType = "item_generated"
	MessageGlobalRule    MessageType = "global_rule"
	MessageRuleChanged   MessageType = "rule_changed"
	MessageStateSnapshot MessageType = "state_snapshot"
	MessageMatchEnded    MessageType = "match_ended"
	MessageInputRejected MessageType = "input_rejected"
	MessageResyncRequest MessageType = "resync_request"
	MessageFullResync    MessageType = "full_resync"
)

// Envelope は全メッセージ共通の外枠です。DataはType毎のペイロードを持ちます。
type Envelope struct {
	Type   MessageType     `json:"type"`
	Seq    uint32          `json:"seq,omitempty"`
	SentAt int64           `json:"sent_at,omitempty"` // unix milli
	Data   json.RawMessage `json:"data,omitempty"`
}

var (
	ErrInvalidEnvelope = errors.New("protocol: invalid envelope")
	ErrEmptyType       = errors.New("protocol: empty message type")
)

// EncodeMessage はペイロードをEnvelopeに包んでJSONエンコードします。
func EncodeMessage(t MessageType, payload any) ([]byte, error) {
	env := Envelope{
		Type:   t,
		SentAt: time.Now().UnixMilli(),
	}
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("protocol: marshal payload: %w", err)
		}
		env.Data = raw
	}
	return json.Marshal(&env)
}

// MustEncodeMessage はエンコード失敗時に空を返すEncodeMessageです。
// ペイロード型が常にmarshal可能な内部送信経路でのみ使います。
func MustEncodeMessage(t MessageType, payload any) []byte {
	data, err := EncodeMessage(t, payload)
	if err != nil {
		return nil
	}
	return data
}

// DecodeEnvelope はバイト列からEnvelopeをパースします。
func DecodeEnvelope(data []byte) (*Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidEnvelope, err)
	}
	if env.Type == "" {
		return nil, ErrEmptyType
	}
	return &env, nil
}

// DecodeData はEnvelopeのペイロードを指定の型にパースします。
func (e *Envelope) DecodeData(v any) error {
	if len(e.Data) == 0 {
		return fmt.Errorf("%w: missing data for %q", ErrInvalidEnvelope, e.Type)
	}
	if err := json.Unmarshal(e.Data, v); err != nil {
		return fmt.Errorf("%w: data for %q: %v", ErrInvalidEnvelope, e.Type, err)
	}
	return nil
}

// SessionAssignPayload は接続直後にサーバーが通知するセッション情報です。
type SessionAssignPayload struct {
	SessionID   SessionID   `json:"session_id"`
	RejoinToken RejoinToken `json:"rejoin_token"`
	Resumed     bool        `json:"resumed,omitempty"`
}

// JoinRequestPayload はクライアントの参加要求です。
// RejoinTokenが埋まっている場合は再接続として扱います。
type JoinRequestPayload struct {
	DisplayName string      `json:"display_name"`
	RejoinToken RejoinToken `json:"rejoin_token,omitempty"`
}

// ChannelLostPayload は物理接続が失われたことをマッチ側へ通知する内部メッセージです。
type ChannelLostPayload struct {
	Reason string `json:"reason"`
}

// EncodeSessionAssign はセッションID通知メッセージをエンコードします。
func EncodeSessionAssign(session *Session, resumed bool) []byte {
	return MustEncodeMessage(MessageSessionAssign, SessionAssignPayload{
		SessionID:   session.ID(),
		RejoinToken: session.Token(),
		Resumed:     resumed,
	})
}

// EncodePing はハートビート用pingメッセージをエンコードします。
func EncodePing() []byte {
	return MustEncodeMessage(MessagePing, nil)
}

// EncodePong はping応答メッセージをエンコードします。
func EncodePong() []byte {
	return MustEncodeMessage(MessagePong, nil)
}

// EncodeChannelLost は切断通知メッセージをエンコードします。
func EncodeChannelLost(reason string) []byte {
	return MustEncodeMessage(MessageChannelLost, ChannelLostPayload{Reason: reason})
}

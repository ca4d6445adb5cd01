package domain

import "github.com/google/uuid"

// SessionID は1参加者の論理セッションを識別するIDです。
// 再接続しても同じSessionIDを引き継ぎます。
type SessionID string

func NewSessionID() SessionID {
	return SessionID(uuid.NewString())
}

func (id SessionID) String() string { return string(id) }
func (id SessionID) IsEmpty() bool  { return id == "" }

// MatchID は1マッチを識別するIDです。
type MatchID string

func NewMatchID() MatchID {
	return MatchID(uuid.NewString())
}

func (id MatchID) String() string { return string(id) }
func (id MatchID) IsEmpty() bool  { return id == "" }

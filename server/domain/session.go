package domain

import (
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Session は1参加者の論理的な接続状態を表す構造体です。
// 物理接続(Connection)が切れてもSessionは再接続ウィンドウの間生き残り、
// 同じRejoinTokenを提示した接続に引き継がれます。
type Session struct {
	id    SessionID
	token RejoinToken

	// activity
	lastRead  atomic.Int64
	lastWrite atomic.Int64
	lastPong  atomic.Int64

	// lifecycle
	detachedAt atomic.Int64 // 0なら接続中
	closed     atomic.Bool
}

// RejoinToken は再接続時に同一セッションを主張するための秘匿トークンです。
type RejoinToken string

func NewRejoinToken() RejoinToken {
	return RejoinToken(uuid.NewString())
}

func NewSession() *Session {
	s := &Session{
		id:    NewSessionID(),
		token: NewRejoinToken(),
	}
	now := time.Now().UnixNano()
	s.lastRead.Store(now)
	s.lastWrite.Store(now)
	s.lastPong.Store(now)
	return s
}

func (s *Session) ID() SessionID      { return s.id }
func (s *Session) Token() RejoinToken { return s.token }

func (s *Session) TouchRead() {
	s.lastRead.Store(time.Now().UnixNano())
}

func (s *Session) TouchWrite() {
	s.lastWrite.Store(time.Now().UnixNano())
}

func (s *Session) TouchPong() {
	s.lastPong.Store(time.Now().UnixNano())
}

// Detach は物理接続が失われたことを記録します。Sessionそのものは閉じません。
func (s *Session) Detach() {
	s.detachedAt.Store(time.Now().UnixNano())
}

// Reattach は再接続が成立したことを記録し、アクティビティ時刻をリセットします。
func (s *Session) Reattach() {
	s.detachedAt.Store(0)
	now := time.Now().UnixNano()
	s.lastRead.Store(now)
	s.lastWrite.Store(now)
	s.lastPong.Store(now)
}

func (s *Session) IsDetached() bool {
	return s.detachedAt.Load() != 0
}

// DetachedFor は切断からの経過時間を返します。接続中は0です。
func (s *Session) DetachedFor() time.Duration {
	at := s.detachedAt.Load()
	if at == 0 {
		return 0
	}
	return time.Since(time.Unix(0, at))
}

func (s *Session) Close() bool {
	return s.closed.CompareAndSwap(false, true)
}

func (s *Session) IsClosed() bool {
	return s.closed.Load()
}

func (s *Session) IsIdle(timeout time.Duration) (bool, IdleReason) {
	if timeout <= 0 {
		return false, IdleDisabled
	}
	var reason IdleReason
	if s.isReadIdle(timeout) {
		reason |= IdleRead
	}
	if s.isPongIdle(timeout) {
		reason |= IdlePong
	}
	return reason != IdleNone, reason
}

func (s *Session) isReadIdle(timeout time.Duration) bool {
	return isIdleSince(unixNanoToTime(s.lastRead.Load()), timeout)
}

func (s *Session) isPongIdle(timeout time.Duration) bool {
	return isIdleSince(unixNanoToTime(s.lastPong.Load()), timeout)
}

func isIdleSince(last time.Time, timeout time.Duration) bool {
	return time.Since(last) > timeout
}

func unixNanoToTime(nano int64) time.Time {
	return time.Unix(0, nano)
}

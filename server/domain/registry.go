package domain

import (
	"errors"
	"sync"
)

var (
	ErrUnknownToken    = errors.New("registry: unknown rejoin token")
	ErrSessionClosed   = errors.New("registry: session already closed")
	ErrSessionAttached = errors.New("registry: session has a live connection")
)

// SessionRegistry はプロセス内の全ライブセッションを保持する明示的なレジストリです。
// プロセス起動時に1つ生成され、接続・切断・マッチ割当のライフサイクルを持ちます。
type SessionRegistry struct {
	mu             sync.RWMutex
	byToken        map[RejoinToken]*Session
	byID           map[SessionID]*Session
	matchBySession map[SessionID]MatchID
}

func NewSessionRegistry() *SessionRegistry {
	return &SessionRegistry{
		byToken:        make(map[RejoinToken]*Session),
		byID:           make(map[SessionID]*Session),
		matchBySession: make(map[SessionID]MatchID),
	}
}

// Add は新規セッションを登録します。
func (r *SessionRegistry) Add(session *Session) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byToken[session.Token()] = session
	r.byID[session.ID()] = session
}

// Resume はRejoinTokenから切断中のセッションを引き当てます。
// 接続中のセッションへの横取りは拒否します。
func (r *SessionRegistry) Resume(token RejoinToken) (*Session, error) {
	r.mu.RLock()
	session, ok := r.byToken[token]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrUnknownToken
	}
	if session.IsClosed() {
		return nil, ErrSessionClosed
	}
	if !session.IsDetached() {
		return nil, ErrSessionAttached
	}
	session.Reattach()
	return session, nil
}

// Remove はセッションを完全に取り除きます。再接続ウィンドウ超過時とマッチ終了時に呼びます。
func (r *SessionRegistry) Remove(id SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if session, ok := r.byID[id]; ok {
		delete(r.byToken, session.Token())
		delete(r.byID, id)
	}
	delete(r.matchBySession, id)
}

// BindMatch はセッションをマッチに割り当てます。
func (r *SessionRegistry) BindMatch(id SessionID, matchID MatchID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.matchBySession[id] = matchID
}

// MatchOf はセッションが属しているマッチを返します。
func (r *SessionRegistry) MatchOf(id SessionID) (MatchID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	matchID, ok := r.matchBySession[id]
	return matchID, ok
}

// UnbindMatch はマッチ割当を解除します。
func (r *SessionRegistry) UnbindMatch(id SessionID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.matchBySession, id)
}

// Get はSessionIDからセッションを返します。
func (r *SessionRegistry) Get(id SessionID) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.byID[id]
	return session, ok
}

// Len は登録中のセッション数を返します。
func (r *SessionRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}

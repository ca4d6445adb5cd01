package domain_test

import (
	"testing"
	"time"

	"forgeduel/server/domain"
)

// 切断と再接続のライフサイクルを確認
func TestSession_DetachReattach(t *testing.T) {
	s := domain.NewSession()
	if s.IsDetached() {
		t.Fatalf("fresh session must be attached")
	}

	s.Detach()
	if !s.IsDetached() {
		t.Fatalf("session must report detached after Detach")
	}
	if s.DetachedFor() < 0 {
		t.Errorf("detached duration must be non-negative")
	}

	s.Reattach()
	if s.IsDetached() {
		t.Fatalf("session must report attached after Reattach")
	}
	if s.DetachedFor() != 0 {
		t.Errorf("attached session must report zero detached duration")
	}
}

// Closeが一度だけ成功することを確認
func TestSession_CloseOnce(t *testing.T) {
	s := domain.NewSession()
	if !s.Close() {
		t.Fatalf("first close must succeed")
	}
	if s.Close() {
		t.Fatalf("second close must fail")
	}
	if !s.IsClosed() {
		t.Fatalf("session must report closed")
	}
}

// アイドル判定がreadとpongの両方を見ることを確認
func TestSession_IsIdle(t *testing.T) {
	s := domain.NewSession()

	if idle, reason := s.IsIdle(time.Hour); idle || reason != domain.IdleNone {
		t.Errorf("fresh session must not be idle, got reason %v", reason)
	}

	// タイムアウト0は監視無効
	if idle, reason := s.IsIdle(0); idle || reason != domain.IdleDisabled {
		t.Errorf("zero timeout must disable idle detection, got %v %v", idle, reason)
	}

	// 極小タイムアウトでは経過済みになる
	time.Sleep(2 * time.Millisecond)
	idle, reason := s.IsIdle(time.Nanosecond)
	if !idle {
		t.Fatalf("session must be idle under a nanosecond timeout")
	}
	if reason&domain.IdleRead == 0 || reason&domain.IdlePong == 0 {
		t.Errorf("both read and pong should be stale, got %v", reason)
	}

	// pongだけ更新するとread側のみ残る
	s.TouchPong()
	idle, reason = s.IsIdle(time.Millisecond)
	if !idle || reason&domain.IdlePong != 0 {
		t.Errorf("pong touch must clear the pong bit, got %v %v", idle, reason)
	}
}

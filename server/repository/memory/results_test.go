package memory_test

import (
	"fmt"
	"testing"
	"time"

	"forgeduel/server/domain"
	"forgeduel/server/repository/memory"
)

// 記録と通算成績の集計を確認
func TestResultStore_RecordAndTotals(t *testing.T) {
	now := time.Unix(1000, 0)
	store := memory.NewResultStore(16).WithClock(func() time.Time { return now })

	store.Record(memory.MatchResult{
		MatchID:  domain.MatchID("m1"),
		WinnerID: "alice",
		Reason:   "knockout",
	}, []string{"alice", "bob"})
	store.Record(memory.MatchResult{
		MatchID: domain.MatchID("m2"),
		Draw:    true,
		Reason:  "timeout",
	}, []string{"alice", "bob"})

	if store.Len() != 2 {
		t.Fatalf("len: got %d, want 2", store.Len())
	}

	alice := store.TotalsFor("alice")
	if alice.Wins != 1 || alice.Losses != 0 || alice.Draws != 1 {
		t.Errorf("alice totals: %+v", alice)
	}
	bob := store.TotalsFor("bob")
	if bob.Wins != 0 || bob.Losses != 1 || bob.Draws != 1 {
		t.Errorf("bob totals: %+v", bob)
	}

	// 未記録のプレイヤーはゼロ値
	if got := store.TotalsFor("carol"); got.Wins != 0 || got.Losses != 0 || got.Draws != 0 {
		t.Errorf("unknown player totals: %+v", got)
	}
}

// Recentが新しい順で返ることと時刻刻印を確認
func TestResultStore_RecentOrder(t *testing.T) {
	clock := time.Unix(0, 0)
	store := memory.NewResultStore(16).WithClock(func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	})

	for i := 1; i <= 3; i++ {
		store.Record(memory.MatchResult{
			MatchID:  domain.MatchID(fmt.Sprintf("m%d", i)),
			WinnerID: "alice",
		}, []string{"alice", "bob"})
	}

	recent := store.Recent(2)
	if len(recent) != 2 {
		t.Fatalf("recent: got %d entries", len(recent))
	}
	if recent[0].MatchID != "m3" || recent[1].MatchID != "m2" {
		t.Errorf("order: got %v, %v", recent[0].MatchID, recent[1].MatchID)
	}
	if !recent[0].RecordedAt.After(recent[1].RecordedAt) {
		t.Errorf("recorded times must be monotonic")
	}

	// nが保持数を超えても全件で止まる
	if got := store.Recent(100); len(got) != 3 {
		t.Errorf("oversized n: got %d entries", len(got))
	}
}

// 保持上限を超えた結果が古い順に捨てられることを確認
func TestResultStore_CapacityTrim(t *testing.T) {
	store := memory.NewResultStore(2)

	for i := 1; i <= 5; i++ {
		store.Record(memory.MatchResult{
			MatchID:  domain.MatchID(fmt.Sprintf("m%d", i)),
			WinnerID: "alice",
		}, []string{"alice", "bob"})
	}

	if store.Len() != 2 {
		t.Fatalf("len: got %d, want 2", store.Len())
	}
	recent := store.Recent(0)
	if recent[0].MatchID != "m5" || recent[1].MatchID != "m4" {
		t.Errorf("trim kept wrong entries: %v, %v", recent[0].MatchID, recent[1].MatchID)
	}

	// 切り捨ては結果の保持のみで、通算成績は全件反映されたまま
	if got := store.TotalsFor("alice"); got.Wins != 5 {
		t.Errorf("totals must survive trimming, got %+v", got)
	}
}

package memory

import (
	"sync"
	"time"

	"forgeduel/server/domain"
)

// MatchResult は決着したマッチの記録です。
type MatchResult struct {
	MatchID    domain.MatchID
	WinnerID   string
	Draw       bool
	Reason     string
	FinalTick  uint64
	RecordedAt time.Time
}

// PlayerTotals はプレイヤー単位の通算成績です。
type PlayerTotals struct {
	SessionID string
	Wins      int
	Losses    int
	Draws     int
}

// ResultStore は決着済みマッチのインメモリ記録です。シミュレーションの
// 外側の関心事で、マッチの進行には一切関与しません。
type ResultStore struct {
	mu      sync.RWMutex
	clk     func() time.Time
	results []MatchResult
	totals  map[string]*PlayerTotals
	// 保持上限。あふれた分は古い順に捨てる
	capacity int
}

func NewResultStore(capacity int) *ResultStore {
	if capacity <= 0 {
		capacity = 1024
	}
	return &ResultStore{
		clk:      time.Now,
		totals:   make(map[string]*PlayerTotals),
		capacity: capacity,
	}
}

func (s *ResultStore) WithClock(clock func() time.Time) *ResultStore {
	if clock != nil {
		s.clk = clock
	}
	return s
}

// Record はマッチの決着を記録します。participantsは勝敗集計の対象です。
func (s *ResultStore) Record(result MatchResult, participants []string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result.RecordedAt = s.clk()
	s.results = append(s.results, result)
	if len(s.results) > s.capacity {
		s.results = s.results[len(s.results)-s.capacity:]
	}

	for _, id := range participants {
		t := s.totals[id]
		if t == nil {
			t = &PlayerTotals{SessionID: id}
			s.totals[id] = t
		}
		switch {
		case result.Draw:
			t.Draws++
		case id == result.WinnerID:
			t.Wins++
		default:
			t.Losses++
		}
	}
}

// Recent は新しい順に最大n件の結果を返します。
func (s *ResultStore) Recent(n int) []MatchResult {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if n <= 0 || n > len(s.results) {
		n = len(s.results)
	}
	out := make([]MatchResult, 0, n)
	for i := len(s.results) - 1; i >= len(s.results)-n; i-- {
		out = append(out, s.results[i])
	}
	return out
}

// TotalsFor はプレイヤーの通算成績を返します。記録がなければゼロ値です。
func (s *ResultStore) TotalsFor(sessionID string) PlayerTotals {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if t, ok := s.totals[sessionID]; ok {
		return *t
	}
	return PlayerTotals{SessionID: sessionID}
}

// Len は保持中の結果数です。
func (s *ResultStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results)
}

package application_test

import (
	"context"
	"testing"
	"time"

	"forgeduel/generation"
	"forgeduel/server/application"
	"forgeduel/server/domain"
)

func newTestLobby(t *testing.T) (*application.Lobby, *domain.SimplePubSub, *domain.SessionRegistry) {
	t.Helper()
	pubsub := domain.NewSimplePubSub()
	registry := domain.NewSessionRegistry()
	orch := generation.NewOrchestrator(generation.StubContentService{}, generation.AllowAllModerator{}, generation.DefaultConfig())
	lobby := application.NewLobby(context.Background(), pubsub, registry, orch, application.DefaultCoordinatorConfig())
	t.Cleanup(lobby.Shutdown)
	return lobby, pubsub, registry
}

// 2人揃うとマッチが成立し、両者にMatchFoundが届くことを確認
func TestLobby_PairsTwoSessions(t *testing.T) {
	lobby, pubsub, registry := newTestLobby(t)

	a := domain.NewSession()
	b := domain.NewSession()
	registry.Add(a)
	registry.Add(b)
	chA := pubsub.Subscribe(domain.SessionTopic(a.ID()))
	chB := pubsub.Subscribe(domain.SessionTopic(b.ID()))

	if err := lobby.Enqueue(context.Background(), a, "alice"); err != nil {
		t.Fatalf("enqueue a: %v", err)
	}
	if lobby.ActiveMatches() != 0 {
		t.Fatalf("one player must not start a match")
	}
	if err := lobby.Enqueue(context.Background(), b, "bob"); err != nil {
		t.Fatalf("enqueue b: %v", err)
	}

	for _, ch := range []<-chan domain.Message{chA, chB} {
		env := awaitMessage(t, ch, domain.MessageMatchFound)
		var payload application.MatchFoundPayload
		if err := env.DecodeData(&payload); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if len(payload.Participants) != 2 || payload.MatchID.IsEmpty() {
			t.Errorf("payload incomplete: %+v", payload)
		}
	}

	if lobby.ActiveMatches() != 1 || lobby.MatchesStarted() != 1 {
		t.Errorf("active=%d started=%d, want 1/1", lobby.ActiveMatches(), lobby.MatchesStarted())
	}

	// 両セッションがマッチに束縛されている
	matchA, okA := registry.MatchOf(a.ID())
	matchB, okB := registry.MatchOf(b.ID())
	if !okA || !okB || matchA != matchB {
		t.Errorf("sessions must share a match binding: %v %v", matchA, matchB)
	}
}

// 待機中の離脱で先客が消え、次の2人で成立することを確認
func TestLobby_LeaveClearsWaiting(t *testing.T) {
	lobby, _, registry := newTestLobby(t)

	quitter := domain.NewSession()
	registry.Add(quitter)
	if err := lobby.Enqueue(context.Background(), quitter, "quitter"); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	lobby.Leave(context.Background(), quitter.ID())

	a := domain.NewSession()
	registry.Add(a)
	if err := lobby.Enqueue(context.Background(), a, "alice"); err != nil {
		t.Fatalf("enqueue a: %v", err)
	}
	if lobby.ActiveMatches() != 0 {
		t.Fatalf("left session must not be paired")
	}
}

// 同じセッションの再Enqueueが自己マッチにならないことを確認
func TestLobby_ReEnqueueDoesNotSelfMatch(t *testing.T) {
	lobby, _, registry := newTestLobby(t)

	a := domain.NewSession()
	registry.Add(a)
	for i := 0; i < 3; i++ {
		if err := lobby.Enqueue(context.Background(), a, "alice"); err != nil {
			t.Fatalf("enqueue: %v", err)
		}
	}
	if lobby.ActiveMatches() != 0 {
		t.Fatalf("a session must never be matched against itself")
	}
}

// Shutdownが進行中マッチのgoroutineを止めることを確認
func TestLobby_ShutdownStopsMatches(t *testing.T) {
	lobby, _, registry := newTestLobby(t)

	a := domain.NewSession()
	b := domain.NewSession()
	registry.Add(a)
	registry.Add(b)
	_ = lobby.Enqueue(context.Background(), a, "alice")
	_ = lobby.Enqueue(context.Background(), b, "bob")

	lobby.Shutdown()

	deadline := time.Now().Add(2 * time.Second)
	for lobby.ActiveMatches() != 0 {
		if time.Now().After(deadline) {
			t.Fatalf("matches still active after shutdown")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

package application

import (
	"context"
	"log/slog"
	"math/rand"
	"sync"
	"time"

	"forgeduel/generation"
	"forgeduel/server/domain"
	"forgeduel/server/repository/memory"
)

// Lobby は待機列とマッチの起動を担います。2人揃うたびにSimulatorと
// Coordinatorを組み立て、マッチ専用のgoroutineを立ち上げます。
type Lobby struct {
	baseCtx  context.Context
	pubsub   domain.PubSub
	registry *domain.SessionRegistry
	orch     *generation.Orchestrator
	config   CoordinatorConfig

	mu          sync.Mutex
	waiting     *domain.Session
	waitingName string
	matches     map[domain.MatchID]context.CancelFunc

	matchesStarted int

	// 決着の記録先。起動前に差し込みます。nilなら記録しません。
	Results *memory.ResultStore
}

func NewLobby(
	baseCtx context.Context,
	pubsub domain.PubSub,
	registry *domain.SessionRegistry,
	orch *generation.Orchestrator,
	config CoordinatorConfig,
) *Lobby {
	return &Lobby{
		baseCtx:  baseCtx,
		pubsub:   pubsub,
		registry: registry,
		orch:     orch,
		config:   config,
		matches:  make(map[domain.MatchID]context.CancelFunc),
	}
}

// Enqueue はセッションを待機列へ入れます。先客がいればその場でマッチを
// 開始します。
func (l *Lobby) Enqueue(ctx context.Context, session *domain.Session, displayName string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if displayName == "" {
		displayName = "player-" + session.ID().String()[:8]
	}

	if l.waiting == nil || l.waiting.ID() == session.ID() || l.waiting.IsClosed() {
		l.waiting = session
		l.waitingName = displayName
		slog.InfoContext(ctx, "session queued for match", "sessionID", session.ID())
		return nil
	}

	first, firstName := l.waiting, l.waitingName
	l.waiting = nil
	l.waitingName = ""
	return l.startMatch(ctx, first, firstName, session, displayName)
}

// Leave は待機列からの離脱です。マッチ中のセッションには影響しません。
func (l *Lobby) Leave(ctx context.Context, sessionID domain.SessionID) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.waiting != nil && l.waiting.ID() == sessionID {
		l.waiting = nil
		l.waitingName = ""
		slog.InfoContext(ctx, "session left queue", "sessionID", sessionID)
	}
}

// startMatch は l.mu を握ったまま呼ばれます。
func (l *Lobby) startMatch(ctx context.Context, a *domain.Session, aName string, b *domain.Session, bName string) error {
	matchID := domain.NewMatchID()
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	sim := NewSimulator(matchID, rng)

	if err := sim.AddParticipant(a.ID(), aName); err != nil {
		return err
	}
	if err := sim.AddParticipant(b.ID(), bName); err != nil {
		return err
	}
	if err := sim.Start(time.Now()); err != nil {
		return err
	}

	l.registry.BindMatch(a.ID(), matchID)
	l.registry.BindMatch(b.ID(), matchID)

	coord := NewCoordinator(sim, l.pubsub, l.registry, l.orch, l.config)
	coord.Results = l.Results
	matchCtx, cancel := context.WithCancel(l.baseCtx)
	l.matches[matchID] = cancel
	l.matchesStarted++
	coord.OnEnd = func(id domain.MatchID) {
		l.mu.Lock()
		if c, ok := l.matches[id]; ok {
			delete(l.matches, id)
			c()
		}
		l.mu.Unlock()
	}
	go coord.Run(matchCtx)

	found := domain.MustEncodeMessage(domain.MessageMatchFound, MatchFoundPayload{
		MatchID:      matchID,
		Participants: []string{a.ID().String(), b.ID().String()},
		DisplayNames: []string{aName, bName},
	})
	l.pubsub.Publish(ctx, domain.SessionTopic(a.ID()), domain.Message{Data: found})
	l.pubsub.Publish(ctx, domain.SessionTopic(b.ID()), domain.Message{Data: found})

	slog.InfoContext(ctx, "match started", "matchID", matchID, "a", a.ID(), "b", b.ID())
	return nil
}

// ActiveMatches は進行中のマッチ数です。
func (l *Lobby) ActiveMatches() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.matches)
}

// MatchesStarted は起動したマッチの累計です。
func (l *Lobby) MatchesStarted() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.matchesStarted
}

// Shutdown は進行中の全マッチを止めます。
func (l *Lobby) Shutdown() {
	l.mu.Lock()
	defer l.mu.Unlock()
	for id, cancel := range l.matches {
		cancel()
		delete(l.matches, id)
	}
}

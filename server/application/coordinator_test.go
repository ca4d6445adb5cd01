package application_test

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"forgeduel/generation"
	"forgeduel/server/application"
	"forgeduel/server/domain"
	"forgeduel/server/repository/memory"
)

// coordinatorFixture は実PubSubとstub生成で動くマッチ一式です。
type coordinatorFixture struct {
	pubsub  *domain.SimplePubSub
	coord   *application.Coordinator
	results *memory.ResultStore
	chanA   <-chan domain.Message
	chanB   <-chan domain.Message
	cancel  context.CancelFunc
	done    chan struct{}
}

func startCoordinator(t *testing.T, config application.CoordinatorConfig) *coordinatorFixture {
	t.Helper()

	pubsub := domain.NewSimplePubSub()
	registry := domain.NewSessionRegistry()
	orch := generation.NewOrchestrator(generation.StubContentService{}, generation.AllowAllModerator{}, generation.DefaultConfig())

	sim := application.NewSimulator(domain.MatchID("match-test"), rand.New(rand.NewSource(1)))
	if err := sim.AddParticipant(playerA, "alice"); err != nil {
		t.Fatalf("add alice: %v", err)
	}
	if err := sim.AddParticipant(playerB, "bob"); err != nil {
		t.Fatalf("add bob: %v", err)
	}
	if err := sim.Start(time.Now()); err != nil {
		t.Fatalf("start: %v", err)
	}

	coord := application.NewCoordinator(sim, pubsub, registry, orch, config)
	results := memory.NewResultStore(8)
	coord.Results = results

	f := &coordinatorFixture{
		pubsub:  pubsub,
		coord:   coord,
		results: results,
		chanA:   pubsub.Subscribe(domain.SessionTopic(playerA)),
		chanB:   pubsub.Subscribe(domain.SessionTopic(playerB)),
		done:    make(chan struct{}),
	}

	ctx, cancel := context.WithCancel(context.Background())
	f.cancel = cancel
	go func() {
		coord.Run(ctx)
		close(f.done)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-f.done:
		case <-time.After(2 * time.Second):
			t.Errorf("coordinator did not stop")
		}
	})
	return f
}

// send はマッチトピックへクライアントメッセージを届けます。
func (f *coordinatorFixture) send(sessionID domain.SessionID, data []byte) {
	f.pubsub.Publish(context.Background(), domain.MatchTopic("match-test"), domain.Message{
		SessionID:  sessionID,
		ReceivedAt: time.Now().UnixNano(),
		Data:       data,
	})
}

// awaitMessage は指定種別のメッセージが届くまで他の配送を読み飛ばします。
func awaitMessage(t *testing.T, ch <-chan domain.Message, want domain.MessageType) *domain.Envelope {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case msg, ok := <-ch:
			if !ok {
				t.Fatalf("channel closed while waiting for %s", want)
			}
			env, err := domain.DecodeEnvelope(msg.Data)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if env.Type == want {
				return env
			}
		case <-deadline:
			t.Fatalf("timed out waiting for %s", want)
		}
	}
}

func fastConfig() application.CoordinatorConfig {
	config := application.DefaultCoordinatorConfig()
	config.TickInterval = 2 * time.Millisecond
	return config
}

// tickループがスナップショットを定期配信することを確認
func TestCoordinator_BroadcastsSnapshots(t *testing.T) {
	f := startCoordinator(t, fastConfig())

	env := awaitMessage(t, f.chanA, domain.MessageStateSnapshot)
	var snap application.Snapshot
	if err := env.DecodeData(&snap); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if len(snap.Participants) != 2 {
		t.Errorf("participants: got %d, want 2", len(snap.Participants))
	}
	if snap.Tick%application.BroadcastEvery != 0 {
		t.Errorf("snapshot tick %d not on the broadcast cadence", snap.Tick)
	}
}

// ルール変更要求が全参加者へ通知され、効力を持つことを確認
func TestCoordinator_GlobalRuleBroadcast(t *testing.T) {
	f := startCoordinator(t, fastConfig())

	f.send(playerA, domain.MustEncodeMessage(domain.MessageGlobalRule, application.GlobalRulePayload{
		Prompt: "low gravity",
	}))

	for _, ch := range []<-chan domain.Message{f.chanA, f.chanB} {
		env := awaitMessage(t, ch, domain.MessageRuleChanged)
		var payload application.RuleChangedPayload
		if err := env.DecodeData(&payload); err != nil {
			t.Fatalf("decode rule change: %v", err)
		}
		if payload.Description != "Low Gravity" {
			t.Errorf("description: got %q", payload.Description)
		}
		if payload.DurationTicks == 0 {
			t.Errorf("duration must be positive")
		}
	}
}

// アイテム生成要求がtickループを跨いで成立することを確認
func TestCoordinator_ItemGeneration(t *testing.T) {
	f := startCoordinator(t, fastConfig())

	f.send(playerA, domain.MustEncodeMessage(domain.MessageGenerateItem, application.GenerateItemPayload{
		Prompt: "fire sword",
	}))

	env := awaitMessage(t, f.chanA, domain.MessageItemGenerated)
	var payload application.ItemGeneratedPayload
	if err := env.DecodeData(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !payload.Success || payload.Item == nil {
		t.Fatalf("generation failed: %+v", payload)
	}
	if payload.Item.Category == "" {
		t.Errorf("item category must be set")
	}
}

// クールダウン中の連続生成要求が拒否されることを確認
func TestCoordinator_GenerationCooldownRejected(t *testing.T) {
	f := startCoordinator(t, fastConfig())

	prompt := domain.MustEncodeMessage(domain.MessageGenerateItem, application.GenerateItemPayload{Prompt: "ice spear"})
	f.send(playerA, prompt)
	awaitMessage(t, f.chanA, domain.MessageItemGenerated)

	f.send(playerA, prompt)
	env := awaitMessage(t, f.chanA, domain.MessageItemGenerated)
	var payload application.ItemGeneratedPayload
	if err := env.DecodeData(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Success {
		t.Fatalf("second request inside the cooldown must be rejected")
	}
	if payload.Reason == "" {
		t.Errorf("rejection must carry a reason")
	}
	if payload.RemainingMs <= 0 || payload.RemainingMs > application.GenerationCooldown.Milliseconds() {
		t.Errorf("remaining_ms out of range: %d", payload.RemainingMs)
	}
}

// 再接続ウィンドウ超過で離脱者が敗北し、残った側が勝つことを確認
func TestCoordinator_ReconnectWindowForfeit(t *testing.T) {
	config := fastConfig()
	config.ReconnectWindow = 20 * time.Millisecond

	f := startCoordinator(t, config)

	f.send(playerB, domain.EncodeChannelLost("read error"))

	env := awaitMessage(t, f.chanA, domain.MessageMatchEnded)
	var payload application.MatchEndedPayload
	if err := env.DecodeData(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if payload.Draw || payload.WinnerID != string(playerA) {
		t.Fatalf("remaining player must win: %+v", payload)
	}

	select {
	case <-f.done:
	case <-time.After(2 * time.Second):
		t.Fatalf("coordinator must stop after the match ends")
	}
	if totals := f.results.TotalsFor(string(playerA)); totals.Wins != 1 {
		t.Errorf("result not recorded: %+v", totals)
	}
}

// ウィンドウ内の復帰でマッチが続行し、完全な状態が送り直されることを確認
func TestCoordinator_RejoinWithinWindow(t *testing.T) {
	config := fastConfig()
	config.ReconnectWindow = time.Hour

	f := startCoordinator(t, config)

	f.send(playerB, domain.EncodeChannelLost("read error"))
	f.send(playerB, domain.MustEncodeMessage(domain.MessageRejoined, nil))

	env := awaitMessage(t, f.chanB, domain.MessageFullResync)
	var payload application.FullResyncPayload
	if err := env.DecodeData(&payload); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(payload.Snapshot.Participants) != 2 {
		t.Errorf("full resync must carry the complete state")
	}

	// マッチはまだ生きている
	select {
	case <-f.done:
		t.Fatalf("match must not end on a rejoin")
	case <-time.After(50 * time.Millisecond):
	}
}

// 過去tickの再同期要求に履歴スナップショットが返ることを確認
func TestCoordinator_ResyncFromHistory(t *testing.T) {
	f := startCoordinator(t, fastConfig())

	// まず進行中のtickを観測してから、その少し前を要求する
	env := awaitMessage(t, f.chanA, domain.MessageStateSnapshot)
	var current application.Snapshot
	if err := env.DecodeData(&current); err != nil {
		t.Fatalf("decode: %v", err)
	}

	f.send(playerA, domain.MustEncodeMessage(domain.MessageResyncRequest, application.ResyncRequestPayload{
		Tick: current.Tick,
	}))

	// 履歴が答えられればstate_snapshot、流れてしまっていればfull_resyncが返る
	deadline := time.After(3 * time.Second)
	for {
		select {
		case msg := <-f.chanA:
			got, err := domain.DecodeEnvelope(msg.Data)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got.Type == domain.MessageFullResync {
				return
			}
			if got.Type == domain.MessageStateSnapshot {
				var snap application.Snapshot
				if err := got.DecodeData(&snap); err != nil {
					t.Fatalf("decode snapshot: %v", err)
				}
				if snap.Tick == current.Tick {
					return
				}
			}
		case <-deadline:
			t.Fatalf("no resync response")
		}
	}
}

package application

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"forgeduel/generation"
	"forgeduel/server/domain"
	"forgeduel/server/repository/memory"
)

// DisconnectPolicy は再接続ウィンドウ超過時のマッチの扱いです。
type DisconnectPolicy int

const (
	// PolicyForfeit は離脱者を敗北扱いにします(既定)。
	PolicyForfeit DisconnectPolicy = iota
	// PolicyPause は誰かが切断している間シミュレーションを止めます。
	PolicyPause
	// PolicyContinue は切断を無視してマッチを続行します。
	PolicyContinue
)

// CoordinatorConfig はマッチ進行の設定です。
type CoordinatorConfig struct {
	TickInterval     time.Duration
	ReconnectWindow  time.Duration
	DisconnectPolicy DisconnectPolicy
	// wall-clockの乱れで溜まった遅延を1回のtickで取り返す上限
	MaxCatchupSteps int
}

func DefaultCoordinatorConfig() CoordinatorConfig {
	return CoordinatorConfig{
		TickInterval:     time.Second / TickRate,
		ReconnectWindow:  15 * time.Second,
		DisconnectPolicy: PolicyForfeit,
		MaxCatchupSteps:  5,
	}
}

// genResult は生成パイプラインの完了をtickループへ運びます。
type genResult struct {
	sessionID domain.SessionID
	item      *generation.Item
	err       error
}

// Coordinator は1マッチのtickループの持ち主です。SessionEndpoint群からの入力を
// マッチトピック経由で受け取り、Simulatorを固定レートで進め、スナップショットを
// 配信します。マッチごとに1つのgoroutineで動き、マッチ間で状態を共有しません。
type Coordinator struct {
	matchID  domain.MatchID
	sim      *Simulator
	recon    *Reconciler
	pubsub   domain.PubSub
	registry *domain.SessionRegistry
	orch     *generation.Orchestrator
	config   CoordinatorConfig

	resultCh chan genResult
	queue    []Command
	lostAt   map[domain.SessionID]time.Time

	// マッチ終了後の後片付け。Lobbyが登録します。
	OnEnd func(domain.MatchID)
	// 決着の記録先。nilなら記録しません。
	Results *memory.ResultStore
}

func NewCoordinator(
	sim *Simulator,
	pubsub domain.PubSub,
	registry *domain.SessionRegistry,
	orch *generation.Orchestrator,
	config CoordinatorConfig,
) *Coordinator {
	return &Coordinator{
		matchID:  sim.MatchID(),
		sim:      sim,
		recon:    NewReconciler(sim.history),
		pubsub:   pubsub,
		registry: registry,
		orch:     orch,
		config:   config,
		resultCh: make(chan genResult, 16),
		lostAt:   make(map[domain.SessionID]time.Time),
	}
}

// Run はマッチ終了かctxキャンセルまでブロックします。panicはこのマッチだけを
// 終わらせ、プロセス全体には波及させません。
func (c *Coordinator) Run(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			slog.ErrorContext(ctx, "match panicked", "matchID", c.matchID, "panic", r)
			c.broadcast(ctx, domain.MustEncodeMessage(domain.MessageMatchEnded, MatchEndedPayload{
				Draw:   true,
				Reason: "internal error",
			}))
		}
		c.cleanup()
	}()

	topic := domain.MatchTopic(c.matchID)
	msgCh := c.pubsub.Subscribe(topic)
	defer c.pubsub.Unsubscribe(topic, msgCh)

	ticker := time.NewTicker(c.config.TickInterval)
	defer ticker.Stop()

	last := time.Now()
	var acc time.Duration

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			acc += now.Sub(last)
			last = now

		DRAIN_INBOX:
			for {
				select {
				case msg := <-msgCh:
					c.handleInbound(ctx, msg)
				default:
					break DRAIN_INBOX
				}
			}
		DRAIN_RESULTS:
			for {
				select {
				case res := <-c.resultCh:
					c.handleGenResult(ctx, res)
				default:
					break DRAIN_RESULTS
				}
			}

			c.expireReconnectWindows(now)

			if c.config.DisconnectPolicy == PolicyPause && len(c.lostAt) > 0 {
				acc = 0
				continue
			}

			steps := 0
			for acc >= c.config.TickInterval && steps < c.config.MaxCatchupSteps {
				acc -= c.config.TickInterval
				steps++
				if done := c.step(ctx); done {
					return
				}
			}
			// 上限を超えた遅延は取り返さない
			if acc >= c.config.TickInterval {
				acc = 0
			}
		}
	}
}

// step は1論理tickです。入力キューは最初のstepで消費され、同一フレーム内の
// 追い付きstepは空入力で進みます。
func (c *Coordinator) step(ctx context.Context) bool {
	cmds := c.queue
	c.queue = c.queue[:0]

	snap, events := c.sim.Advance(cmds)
	if snap == nil {
		return true
	}

	for _, rej := range events.Rejections {
		c.sendTo(ctx, rej.SessionID, domain.MustEncodeMessage(domain.MessageInputRejected, InputRejectedPayload{
			Seq:    rej.Seq,
			Reason: rej.Reason,
		}))
	}
	for _, rc := range events.RuleChanges {
		c.broadcast(ctx, domain.MustEncodeMessage(domain.MessageRuleChanged, RuleChangedPayload{
			Description:    rc.Mod.Description,
			ActivationTick: rc.Mod.ActivationTick,
			DurationTicks:  rc.Mod.DurationTicks,
		}))
	}
	for _, grant := range events.ItemGrants {
		item := grant.Item
		c.sendTo(ctx, grant.SessionID, domain.MustEncodeMessage(domain.MessageItemGenerated, ItemGeneratedPayload{
			Success: true,
			Item:    &item,
		}))
	}

	if events.Ended != nil {
		c.broadcast(ctx, domain.MustEncodeMessage(domain.MessageMatchEnded, *events.Ended))
		c.recordResult(snap.Tick, events.Ended)
		slog.InfoContext(ctx, "match ended", "matchID", c.matchID, "tick", snap.Tick, "reason", events.Ended.Reason)
		return true
	}

	if snap.Tick%BroadcastEvery == 0 {
		c.broadcast(ctx, domain.MustEncodeMessage(domain.MessageStateSnapshot, snap))
	}
	return false
}

func (c *Coordinator) handleInbound(ctx context.Context, msg domain.Message) {
	env, err := domain.DecodeEnvelope(msg.Data)
	if err != nil {
		slog.WarnContext(ctx, "drop malformed match message", "matchID", c.matchID, "sessionID", msg.SessionID, "err", err)
		return
	}

	switch env.Type {
	case domain.MessagePlayerInput:
		var p PlayerInputPayload
		if err := env.DecodeData(&p); err != nil {
			slog.WarnContext(ctx, "drop malformed player input", "sessionID", msg.SessionID, "err", err)
			return
		}
		c.queue = append(c.queue, MoveCommand{
			SessionID: msg.SessionID,
			Seq:       p.Seq,
			MoveX:     p.MoveX,
			Jump:      p.Jump,
			Fire:      p.Fire,
			AimX:      p.AimX,
			AimY:      p.AimY,
			Select:    p.Select,
			ClientPos: p.Pos,
		})
	case domain.MessageGenerateItem:
		var p GenerateItemPayload
		if err := env.DecodeData(&p); err != nil {
			return
		}
		c.startGeneration(ctx, msg.SessionID, p.Prompt)
	case domain.MessageGlobalRule:
		var p GlobalRulePayload
		if err := env.DecodeData(&p); err != nil {
			return
		}
		c.queue = append(c.queue, RuleCommand{SessionID: msg.SessionID, Prompt: p.Prompt})
	case domain.MessageResyncRequest:
		var p ResyncRequestPayload
		if err := env.DecodeData(&p); err != nil {
			return
		}
		c.handleResync(ctx, msg.SessionID, p.Tick)
	case domain.MessageChannelLost:
		c.lostAt[msg.SessionID] = time.Now()
		c.queue = append(c.queue, DisconnectCommand{SessionID: msg.SessionID})
		slog.InfoContext(ctx, "participant channel lost", "matchID", c.matchID, "sessionID", msg.SessionID)
	case domain.MessageRejoined:
		delete(c.lostAt, msg.SessionID)
		c.queue = append(c.queue, DisconnectCommand{SessionID: msg.SessionID, Rejoined: true})
		c.sendTo(ctx, msg.SessionID, domain.MustEncodeMessage(domain.MessageFullResync, FullResyncPayload{
			Snapshot: *c.sim.CurrentSnapshot(),
		}))
		slog.InfoContext(ctx, "participant rejoined", "matchID", c.matchID, "sessionID", msg.SessionID)
	}
}

// startGeneration は生成をtickループの外で走らせます。結果はresultCh経由で
// 次のtickの入力になり、シミュレーションを一切待たせません。
func (c *Coordinator) startGeneration(ctx context.Context, sessionID domain.SessionID, prompt string) {
	if err := c.sim.ReserveGeneration(sessionID, time.Now()); err != nil {
		payload := ItemGeneratedPayload{Success: false, Reason: err.Error()}
		var cooldown *CooldownError
		if errors.As(err, &cooldown) {
			payload.RemainingMs = cooldown.Remaining.Milliseconds()
		}
		c.sendTo(ctx, sessionID, domain.MustEncodeMessage(domain.MessageItemGenerated, payload))
		return
	}

	fingerprint := c.sim.Ledger().EffectiveParameters(c.sim.Tick()).Fingerprint()
	go func() {
		item, err := c.orch.Generate(ctx, generation.Request{Prompt: prompt, Fingerprint: fingerprint})
		select {
		case c.resultCh <- genResult{sessionID: sessionID, item: item, err: err}:
		case <-ctx.Done():
			// マッチが先に終わっていたら結果は捨てる
		}
	}()
}

func (c *Coordinator) handleGenResult(ctx context.Context, res genResult) {
	if res.err != nil {
		c.sendTo(ctx, res.sessionID, domain.MustEncodeMessage(domain.MessageItemGenerated, ItemGeneratedPayload{
			Success: false,
			Reason:  res.err.Error(),
		}))
		return
	}
	c.queue = append(c.queue, ItemGrantCommand{SessionID: res.sessionID, Item: *res.item})
}

func (c *Coordinator) handleResync(ctx context.Context, sessionID domain.SessionID, tick uint64) {
	snap, err := c.recon.SnapshotFor(tick)
	if err != nil {
		c.sendTo(ctx, sessionID, domain.MustEncodeMessage(domain.MessageFullResync, FullResyncPayload{
			Snapshot: *c.sim.CurrentSnapshot(),
		}))
		return
	}
	c.sendTo(ctx, sessionID, domain.MustEncodeMessage(domain.MessageStateSnapshot, snap))
}

// expireReconnectWindows はウィンドウを使い切った離脱者へポリシーを適用します。
// 参加者スライスの順で見るため、同時満了でも適用順は揺れません。
func (c *Coordinator) expireReconnectWindows(now time.Time) {
	if c.config.DisconnectPolicy == PolicyContinue {
		return
	}
	for _, p := range c.sim.Participants() {
		lost, ok := c.lostAt[p.SessionID]
		if !ok || now.Sub(lost) < c.config.ReconnectWindow {
			continue
		}
		// Pauseポリシーでもウィンドウを使い切ったら復帰は諦めて敗北扱いにする
		delete(c.lostAt, p.SessionID)
		c.queue = append(c.queue, ForfeitCommand{SessionID: p.SessionID})
	}
}

func (c *Coordinator) broadcast(ctx context.Context, data []byte) {
	for _, p := range c.sim.Participants() {
		c.pubsub.Publish(ctx, domain.SessionTopic(p.SessionID), domain.Message{Data: data})
	}
}

func (c *Coordinator) sendTo(ctx context.Context, sessionID domain.SessionID, data []byte) {
	c.pubsub.Publish(ctx, domain.SessionTopic(sessionID), domain.Message{Data: data})
}

func (c *Coordinator) recordResult(tick uint64, ended *MatchEndedPayload) {
	if c.Results == nil {
		return
	}
	participants := make([]string, 0, len(c.sim.Participants()))
	for _, p := range c.sim.Participants() {
		participants = append(participants, string(p.SessionID))
	}
	c.Results.Record(memory.MatchResult{
		MatchID:   c.matchID,
		WinnerID:  ended.WinnerID,
		Draw:      ended.Draw,
		Reason:    ended.Reason,
		FinalTick: tick,
	}, participants)
}

func (c *Coordinator) cleanup() {
	for _, p := range c.sim.Participants() {
		c.registry.UnbindMatch(p.SessionID)
	}
	if c.OnEnd != nil {
		c.OnEnd(c.matchID)
	}
}

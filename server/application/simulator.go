package application

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"forgeduel/generation"
	"forgeduel/server/domain"
	"forgeduel/utils"
)

// MatchStatus はマッチのライフサイクルです。
type MatchStatus int

const (
	StatusForming MatchStatus = iota
	StatusActive
	StatusEnded
)

func (s MatchStatus) String() string {
	switch s {
	case StatusForming:
		return "forming"
	case StatusActive:
		return "active"
	case StatusEnded:
		return "ended"
	default:
		return "unknown"
	}
}

const (
	// クライアント予測位置と権威位置の許容乖離。これを超える入力は棄却します。
	maxPredictionDrift = 150.0
	// 照準ベクトルの成分上限。方向としての意味しかないため、これを超える値は
	// 正規化で精度を失う前に棄却します。
	maxAimMagnitude = 1000.0
	// 発射体速度はアイテムのspeed値(10〜100)をpx/sへ換算します。
	projectileSpeedScale = 5.0
	// 生成クールダウン
	GenerationCooldown = 10 * time.Second
)

// Rejection は棄却された入力の通知内容です。
type Rejection struct {
	SessionID domain.SessionID
	Seq       uint32
	Reason    string
}

// RuleChange は成立したルール変更です。
type RuleChange struct {
	SessionID domain.SessionID
	Mod       RuleModification
}

// ItemGrant は所持品へ反映されたアイテムです。
type ItemGrant struct {
	SessionID domain.SessionID
	Item      generation.Item
}

// TickEvents は1tickの副作用のうち、配信が必要なものの集まりです。
type TickEvents struct {
	Rejections  []Rejection
	RuleChanges []RuleChange
	ItemGrants  []ItemGrant
	Ended       *MatchEndedPayload
}

// Simulator は1マッチの権威シミュレーションです。MatchCoordinatorのループ
// だけが触る前提で、内部にロックを持ちません。参加者・発射体は順序つき
// スライスで保持し、同じ入力列からは常に同じ状態列を生みます。
type Simulator struct {
	matchID      domain.MatchID
	status       MatchStatus
	tick         uint64
	startedAt    time.Time
	participants []*Participant
	projectiles  []*Projectile
	ledger       *Ledger
	history      *History
	rng          *rand.Rand

	intents map[domain.SessionID]*moveIntent
	// 発射体IDは連番で振る。同じ入力列から同じIDが再現される。
	projectileSeq uint64
}

type moveIntent struct {
	moveX      float64
	jumpQueued bool
}

func NewSimulator(matchID domain.MatchID, rng *rand.Rand) *Simulator {
	return &Simulator{
		matchID: matchID,
		status:  StatusForming,
		ledger:  NewLedger(),
		history: NewHistory(HistoryWindow),
		rng:     rng,
		intents: make(map[domain.SessionID]*moveIntent),
	}
}

func (s *Simulator) MatchID() domain.MatchID { return s.matchID }

func (s *Simulator) Status() MatchStatus { return s.status }

func (s *Simulator) Tick() uint64 { return s.tick }

func (s *Simulator) Ledger() *Ledger { return s.ledger }

// AddParticipant は編成中のマッチに参加者を加えます。
func (s *Simulator) AddParticipant(id domain.SessionID, name string) error {
	if s.status != StatusForming {
		return ErrMatchNotForming
	}
	for _, p := range s.participants {
		if p.SessionID == id {
			return fmt.Errorf("application: participant %s already joined", id)
		}
	}
	s.participants = append(s.participants, NewParticipant(id, name, Vec2{}, 1))
	s.intents[id] = &moveIntent{}
	return nil
}

// Start はマッチを開始します。参加者は左右の開始位置へ等間隔に配置されます。
func (s *Simulator) Start(now time.Time) error {
	if s.status != StatusForming {
		return ErrMatchNotForming
	}
	if len(s.participants) < 2 {
		return ErrNotEnoughPlayers
	}
	margin := 200.0
	span := ArenaWidth - margin*2
	for i, p := range s.participants {
		x := margin
		if len(s.participants) > 1 {
			x = margin + span*float64(i)/float64(len(s.participants)-1)
		}
		p.Position = Vec2{X: x, Y: GroundY}
		p.OnGround = true
		if x > ArenaWidth/2 {
			p.Facing = -1
		} else {
			p.Facing = 1
		}
	}
	s.startedAt = now
	s.status = StatusActive
	return nil
}

// Participants は参加者一覧を追加順で返します。
func (s *Simulator) Participants() []*Participant {
	return s.participants
}

func (s *Simulator) participant(id domain.SessionID) *Participant {
	for _, p := range s.participants {
		if p.SessionID == id {
			return p
		}
	}
	return nil
}

// ReserveGeneration は生成要求の受理判定です。クールダウン中は残り時間つきの
// CooldownErrorを返し、受理した場合はその場でクールダウンを開始します。
func (s *Simulator) ReserveGeneration(id domain.SessionID, now time.Time) error {
	p := s.participant(id)
	if p == nil {
		return ErrUnknownParticipant
	}
	if s.status != StatusActive {
		return ErrMatchNotActive
	}
	if !p.lastGenerationAt.IsZero() {
		if elapsed := now.Sub(p.lastGenerationAt); elapsed < GenerationCooldown {
			return &CooldownError{Remaining: GenerationCooldown - elapsed}
		}
	}
	p.lastGenerationAt = now
	return nil
}

// Advance は1tick進めます。入力列は到着順のまま適用されるため、同じ列からは
// 常に同じスナップショットが得られます。
func (s *Simulator) Advance(cmds []Command) (*Snapshot, TickEvents) {
	var events TickEvents
	if s.status != StatusActive {
		return nil, events
	}

	s.tick++
	params := s.ledger.EffectiveParameters(s.tick)

	for _, cmd := range cmds {
		s.applyCommand(cmd, params, &events)
	}

	// ルール変更が今tickから効く場合に備えて取り直す
	if len(events.RuleChanges) > 0 {
		params = s.ledger.EffectiveParameters(s.tick)
	}

	s.stepParticipants(params)
	s.stepProjectiles(params, &events)
	s.resolveEnd(&events)

	snap := s.buildSnapshot(params)
	s.history.Record(snap)
	return snap, events
}

func (s *Simulator) applyCommand(cmd Command, params ParameterSet, events *TickEvents) {
	switch c := cmd.(type) {
	case MoveCommand:
		s.applyMove(c, params, events)
	case RuleCommand:
		mod := ParseRulePrompt(c.Prompt, s.tick, s.rng)
		s.ledger.Append(mod)
		events.RuleChanges = append(events.RuleChanges, RuleChange{SessionID: c.SessionID, Mod: mod})
	case ItemGrantCommand:
		p := s.participant(c.SessionID)
		if p == nil {
			return
		}
		p.Grant(c.Item)
		events.ItemGrants = append(events.ItemGrants, ItemGrant{SessionID: c.SessionID, Item: c.Item})
	case DisconnectCommand:
		if p := s.participant(c.SessionID); p != nil {
			p.Connected = c.Rejoined
		}
	case ForfeitCommand:
		if p := s.participant(c.SessionID); p != nil && p.Alive {
			p.Alive = false
			p.Health = 0
			p.Deaths++
		}
	}
}

func (s *Simulator) applyMove(c MoveCommand, params ParameterSet, events *TickEvents) {
	p := s.participant(c.SessionID)
	if p == nil {
		return
	}
	if reason := s.validateMove(p, c); reason != "" {
		p.Distrust++
		events.Rejections = append(events.Rejections, Rejection{SessionID: c.SessionID, Seq: c.Seq, Reason: reason})
		return
	}
	p.LastInputSeq = c.Seq
	if !p.Alive {
		return
	}

	intent := s.intents[c.SessionID]
	intent.moveX = c.MoveX
	if c.Jump {
		intent.jumpQueued = true
	}
	if c.MoveX > 0 {
		p.Facing = 1
	} else if c.MoveX < 0 {
		p.Facing = -1
	}
	if c.Select >= 0 {
		p.SelectedItem = c.Select
	}
	if c.Fire && p.CanFire(s.tick, params) {
		s.fire(p, c, params, events)
	}
}

func (s *Simulator) validateMove(p *Participant, c MoveCommand) string {
	if c.MoveX < -1 || c.MoveX > 1 {
		return "move intent out of range"
	}
	if c.Select >= len(p.Items) {
		return "selected item not owned"
	}
	if !utils.FiniteAll(c.AimX, c.AimY) ||
		math.Abs(c.AimX) > maxAimMagnitude || math.Abs(c.AimY) > maxAimMagnitude {
		return "aim vector out of range"
	}
	if c.ClientPos != nil {
		if !utils.FiniteAll(c.ClientPos.X, c.ClientPos.Y) {
			return "non-finite predicted position"
		}
		if c.ClientPos.DistanceTo(p.Position) > maxPredictionDrift {
			return "predicted position diverges beyond plausible movement"
		}
	}
	return ""
}

func (s *Simulator) fire(p *Participant, c MoveCommand, params ParameterSet, events *TickEvents) {
	item := p.Selected()
	if item == nil {
		return
	}
	p.recordFire(s.tick, item)

	switch item.Category {
	case generation.CategoryMelee:
		reach := MeleeReach * params.SizeMultiplier
		for _, other := range s.participants {
			if other == p || !other.Alive {
				continue
			}
			dx := other.Position.X - p.Position.X
			if dx*p.Facing*params.DirectionMultiplier < 0 {
				continue
			}
			if math.Abs(dx) <= reach && math.Abs(other.Position.Y-p.Position.Y) <= ParticipantH {
				s.dealDamage(p, other, int(float64(item.Props.Damage)*params.DamageMultiplier))
			}
		}
	case generation.CategoryUtility:
		p.Heal(item.Props.Damage / 2)
	default: // projectile / area_effect
		dir := Vec2{X: c.AimX, Y: c.AimY}
		if dir.X == 0 && dir.Y == 0 {
			dir = Vec2{X: p.Facing, Y: 0}
		}
		length := math.Sqrt(dir.X*dir.X + dir.Y*dir.Y)
		dir = dir.Scale(1 / length)
		speed := float64(item.Props.Speed) * projectileSpeedScale
		blast := 0.0
		if item.Category == generation.CategoryAreaEffect {
			blast = BaseBlastR
		}
		rangePx := float64(item.Props.Range) * 3
		// 射程を飛び切るのに必要なtick数で寿命を切る。time_scaleで減速しても
		// 発射体が盤面に残り続けることはない。
		lifespan := uint64(rangePx/speed*TickRate) + 1
		s.projectileSeq++
		s.projectiles = append(s.projectiles, &Projectile{
			ID:            fmt.Sprintf("%s-p%d", s.matchID, s.projectileSeq),
			OwnerID:       p.SessionID,
			Position:      Vec2{X: p.Position.X, Y: p.Position.Y - ParticipantH/2},
			Origin:        Vec2{X: p.Position.X, Y: p.Position.Y - ParticipantH/2},
			Velocity:      dir.Scale(speed * params.DirectionMultiplier),
			Damage:        item.Props.Damage,
			Range:         rangePx,
			ExpiresAtTick: s.tick + lifespan,
			BlastRadius:   blast,
			SpecialEffect: item.Props.SpecialEffect,
		})
	}
}

func (s *Simulator) stepParticipants(params ParameterSet) {
	for _, p := range s.participants {
		if !p.Alive {
			continue
		}
		intent := s.intents[p.SessionID]
		body := BodyState{Pos: p.Position, Vel: p.Velocity, OnGround: p.OnGround}
		body = StepBody(body, intent.moveX, intent.jumpQueued, params)
		intent.jumpQueued = false
		p.Position = body.Pos
		p.Velocity = body.Vel
		p.OnGround = body.OnGround
	}
}

func (s *Simulator) stepProjectiles(params ParameterSet, events *TickEvents) {
	dt := params.TimeScale / TickRate
	kept := s.projectiles[:0]
	for _, pr := range s.projectiles {
		pr.Position = pr.Position.Add(pr.Velocity.Scale(dt))

		hit := false
		for _, p := range s.participants {
			if pr.Hits(p) {
				s.impact(pr, p, params)
				hit = true
				break
			}
		}
		if !hit && !pr.Expired(s.tick) {
			kept = append(kept, pr)
		}
	}
	s.projectiles = kept
}

// impact は着弾処理です。ダメージ倍率は着弾時点の有効パラメータで評価します。
func (s *Simulator) impact(pr *Projectile, direct *Participant, params ParameterSet) {
	owner := s.participant(pr.OwnerID)
	if pr.BlastRadius <= 0 {
		s.dealDamageFrom(owner, direct, int(float64(pr.Damage)*params.DamageMultiplier))
		return
	}
	radius := pr.BlastRadius * params.SizeMultiplier
	center := pr.Position
	for _, p := range s.participants {
		if !p.Alive || p.SessionID == pr.OwnerID {
			continue
		}
		dist := p.Position.DistanceTo(center)
		if dist > radius {
			continue
		}
		falloff := 1 - dist/radius/2 // 中心で1.0、縁で0.5
		s.dealDamageFrom(owner, p, int(float64(pr.Damage)*params.DamageMultiplier*falloff))
	}
}

func (s *Simulator) dealDamage(attacker, target *Participant, amount int) {
	s.dealDamageFrom(attacker, target, amount)
}

func (s *Simulator) dealDamageFrom(attacker, target *Participant, amount int) {
	if target.ApplyDamage(amount) && attacker != nil {
		attacker.Kills++
	}
}

func (s *Simulator) resolveEnd(events *TickEvents) {
	var alive []*Participant
	for _, p := range s.participants {
		if p.Alive {
			alive = append(alive, p)
		}
	}

	switch {
	case len(alive) == 1:
		s.end(events, &MatchEndedPayload{WinnerID: string(alive[0].SessionID), Reason: "last player standing"})
	case len(alive) == 0:
		s.end(events, &MatchEndedPayload{Draw: true, Reason: "mutual elimination"})
	case s.tick >= MatchDurationCap:
		s.endByTimeout(events, alive)
	}
}

// endByTimeout は時間切れの決着です。体力が厳密に高い方が勝ち、同値は引き分けです。
func (s *Simulator) endByTimeout(events *TickEvents, alive []*Participant) {
	best := alive[0]
	tied := false
	for _, p := range alive[1:] {
		if p.Health > best.Health {
			best = p
			tied = false
		} else if p.Health == best.Health {
			tied = true
		}
	}
	if tied {
		s.end(events, &MatchEndedPayload{Draw: true, Reason: "time limit, health tied"})
		return
	}
	s.end(events, &MatchEndedPayload{WinnerID: string(best.SessionID), Reason: "time limit, higher health"})
}

func (s *Simulator) end(events *TickEvents, payload *MatchEndedPayload) {
	s.status = StatusEnded
	events.Ended = payload
}

func (s *Simulator) buildSnapshot(params ParameterSet) *Snapshot {
	snap := &Snapshot{
		Tick:        s.tick,
		Params:      params,
		ActiveRules: s.ledger.Active(s.tick),
	}
	for _, p := range s.participants {
		itemIDs := make([]string, 0, len(p.Items))
		for _, it := range p.Items {
			itemIDs = append(itemIDs, it.ID)
		}
		snap.Participants = append(snap.Participants, ParticipantView{
			SessionID:    string(p.SessionID),
			DisplayName:  p.DisplayName,
			Position:     p.Position,
			Velocity:     p.Velocity,
			Facing:       p.Facing,
			Health:       p.Health,
			Alive:        p.Alive,
			Kills:        p.Kills,
			Deaths:       p.Deaths,
			Connected:    p.Connected,
			SelectedItem: p.SelectedItem,
			ItemIDs:      itemIDs,
			LastInputSeq: p.LastInputSeq,
		})
	}
	for _, pr := range s.projectiles {
		snap.Projectiles = append(snap.Projectiles, ProjectileView{
			ID:       pr.ID,
			OwnerID:  string(pr.OwnerID),
			Position: pr.Position,
			Velocity: pr.Velocity,
		})
	}
	return snap
}

// SnapshotAt は履歴ウィンドウ内のスナップショットを返します。
func (s *Simulator) SnapshotAt(tick uint64) (*Snapshot, error) {
	return s.history.At(tick)
}

// CurrentSnapshot は最新のスナップショットを返します。まだ1tickも進んでいない
// 場合は現在状態から組み立てます。
func (s *Simulator) CurrentSnapshot() *Snapshot {
	if latest := s.history.Latest(); latest != nil {
		return latest
	}
	return s.buildSnapshot(s.ledger.EffectiveParameters(s.tick))
}

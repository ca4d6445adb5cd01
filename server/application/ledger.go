package application

import (
	"math/rand"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Parameter はRuleModificationが作用する物理パラメータの名前です。
type Parameter string

const (
	ParamGravity     Parameter = "gravity"
	ParamFriction    Parameter = "friction"
	ParamRestitution Parameter = "restitution"
	ParamTimeScale   Parameter = "time_scale"
	ParamDamage      Parameter = "damage_multiplier"
	ParamCooldown    Parameter = "cooldown_multiplier"
	ParamSize        Parameter = "size_multiplier"
	ParamDirection   Parameter = "direction_multiplier"
)

// RuleModification は時間制限つきのグローバルルール変更です。
// 全ての変更は乗算で合成されます。加算型のパラメータは存在しません。
type RuleModification struct {
	ID             string                `json:"id"`
	Description    string                `json:"description"`
	Multipliers    map[Parameter]float64 `json:"multipliers"`
	ActivationTick uint64                `json:"activation_tick"`
	DurationTicks  uint64                `json:"duration_ticks"`
}

// ExpiryTick はこの変更が効力を失う最初のtickです。
func (m RuleModification) ExpiryTick() uint64 {
	return m.ActivationTick + m.DurationTicks
}

// ActiveAt は指定tickでこの変更が有効かどうかを返します。
func (m RuleModification) ActiveAt(tick uint64) bool {
	return m.ActivationTick <= tick && tick < m.ExpiryTick()
}

// Ledger はアクティブなRuleModificationの台帳です。
// 有効パラメータは毎回ベースから全再計算されるため、期限切れの取り消し処理は
// 存在せず、重複・順序逆転・同時到着のどの組み合わせでも結果は一致します。
type Ledger struct {
	mu   sync.Mutex
	base ParameterSet
	mods []RuleModification
}

func NewLedger() *Ledger {
	return &Ledger{base: BaseParameters()}
}

// Append は変更を台帳に追加します。
func (l *Ledger) Append(mod RuleModification) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.mods = append(l.mods, mod)
}

// EffectiveParameters は指定tickの有効パラメータをベースから再計算します。
// 期限切れのエントリはこのとき遅延的に刈り取られます。
func (l *Ledger) EffectiveParameters(tick uint64) ParameterSet {
	l.mu.Lock()
	defer l.mu.Unlock()

	kept := l.mods[:0]
	for _, m := range l.mods {
		if m.ExpiryTick() > tick {
			kept = append(kept, m)
		}
	}
	l.mods = kept

	params := l.base
	for _, m := range l.mods {
		if !m.ActiveAt(tick) {
			continue
		}
		for param, mul := range m.Multipliers {
			switch param {
			case ParamGravity:
				params.Gravity *= mul
			case ParamFriction:
				params.Friction *= mul
			case ParamRestitution:
				params.Restitution *= mul
			case ParamTimeScale:
				params.TimeScale *= mul
			case ParamDamage:
				params.DamageMultiplier *= mul
			case ParamCooldown:
				params.CooldownMultiplier *= mul
			case ParamSize:
				params.SizeMultiplier *= mul
			case ParamDirection:
				params.DirectionMultiplier *= mul
			}
		}
	}
	return params
}

// Active は指定tickで有効な変更の一覧を返します。スナップショット配信用です。
func (l *Ledger) Active(tick uint64) []RuleModification {
	l.mu.Lock()
	defer l.mu.Unlock()

	var active []RuleModification
	for _, m := range l.mods {
		if m.ActiveAt(tick) {
			active = append(active, m)
		}
	}
	return active
}

// rulePattern はプロンプトのキーワードと変更内容の対応です。
// 照合は先頭から順に行うため、"super slippery" のような限定的なパターンは
// "slippery" を含む汎用パターンより前に置きます。
type rulePattern struct {
	description   string
	keywords      []string
	multipliers   map[Parameter]float64
	durationTicks uint64
}

func seconds(s float64) uint64 { return uint64(s * TickRate) }

var rulePatterns = []rulePattern{
	{"Zero Gravity", []string{"zero gravity", "no gravity", "space", "float free"},
		map[Parameter]float64{ParamGravity: 0.0}, seconds(10)},
	{"Reverse Gravity", []string{"reverse gravity", "upside down", "gravity flip"},
		map[Parameter]float64{ParamGravity: -1.0}, seconds(12)},
	{"High Gravity", []string{"high gravity", "heavy gravity", "weight", "pull down"},
		map[Parameter]float64{ParamGravity: 2.0}, seconds(15)},
	{"Low Gravity", []string{"low gravity", "moon gravity", "float", "weightless"},
		map[Parameter]float64{ParamGravity: 0.3}, seconds(15)},

	{"Super Slippery", []string{"super slippery", "oil", "banana peel", "slide everywhere"},
		map[Parameter]float64{ParamFriction: 0.05}, seconds(18)},
	{"Sticky Ground", []string{"sticky", "mud", "tar", "glue", "slow movement"},
		map[Parameter]float64{ParamFriction: 3.0}, seconds(15)},
	{"Ice Floor", []string{"ice", "slippery", "slide", "slick", "smooth"},
		map[Parameter]float64{ParamFriction: 0.1}, seconds(20)},

	{"No Bounce", []string{"no bounce", "dead bounce", "flat", "absorb"},
		map[Parameter]float64{ParamRestitution: 0.0}, seconds(15)},
	{"Super Bouncy", []string{"super bouncy", "mega bounce", "spring", "boing"},
		map[Parameter]float64{ParamRestitution: 4.0}, seconds(15)},
	{"Bouncy World", []string{"bouncy", "rubber", "trampoline", "bounce", "elastic"},
		map[Parameter]float64{ParamRestitution: 2.5}, seconds(18)},

	{"Hyper Speed", []string{"hyper speed", "lightning fast", "blur", "sonic"},
		map[Parameter]float64{ParamTimeScale: 2.0}, seconds(6)},
	{"Super Speed", []string{"super speed", "fast forward", "speed up", "quick"},
		map[Parameter]float64{ParamTimeScale: 1.5}, seconds(12)},
	{"Slow Motion", []string{"slow motion", "bullet time", "matrix", "slow down"},
		map[Parameter]float64{ParamTimeScale: 0.5}, seconds(8)},

	{"Double Damage", []string{"double damage", "power up", "stronger", "boost"},
		map[Parameter]float64{ParamDamage: 2.0}, seconds(12)},
	{"Rapid Fire", []string{"rapid fire", "machine gun", "spray", "burst"},
		map[Parameter]float64{ParamCooldown: 0.3}, seconds(10)},
	{"Giant Weapons", []string{"giant weapons", "big weapons", "huge", "massive"},
		map[Parameter]float64{ParamSize: 2.0, ParamDamage: 1.5}, seconds(15)},
	{"Explosive Weapons", []string{"explosive", "boom", "explode", "blast"},
		map[Parameter]float64{ParamSize: 2.0, ParamDamage: 1.3}, seconds(15)},
	{"Backwards Weapons", []string{"backwards", "reverse", "opposite", "wrong way"},
		map[Parameter]float64{ParamDirection: -1.0}, seconds(10)},
}

// ParseRulePrompt はプロンプトを既知の語彙と順に照合して変更を生成します。
// どのパターンにも当たらない場合は拒否せず、既知の系統からランダムな変更を
// 選びます。グローバルプロンプトは常に何かを起こす契約だからです。
func ParseRulePrompt(prompt string, activationTick uint64, rng *rand.Rand) RuleModification {
	lower := strings.ToLower(prompt)
	for _, p := range rulePatterns {
		for _, kw := range p.keywords {
			if strings.Contains(lower, kw) {
				return RuleModification{
					ID:             uuid.NewString(),
					Description:    p.description,
					Multipliers:    cloneMultipliers(p.multipliers),
					ActivationTick: activationTick,
					DurationTicks:  p.durationTicks,
				}
			}
		}
	}
	return randomModification(activationTick, rng)
}

func randomModification(activationTick uint64, rng *rand.Rand) RuleModification {
	switch rng.Intn(3) {
	case 0:
		return RuleModification{
			ID:             uuid.NewString(),
			Description:    "Random Gravity",
			Multipliers:    map[Parameter]float64{ParamGravity: uniform(rng, 0.2, 2.5)},
			ActivationTick: activationTick,
			DurationTicks:  uint64(uniform(rng, 10, 20) * TickRate),
		}
	case 1:
		return RuleModification{
			ID:             uuid.NewString(),
			Description:    "Random Bounce",
			Multipliers:    map[Parameter]float64{ParamRestitution: uniform(rng, 0.5, 3.0)},
			ActivationTick: activationTick,
			DurationTicks:  uint64(uniform(rng, 12, 18) * TickRate),
		}
	default:
		return RuleModification{
			ID:             uuid.NewString(),
			Description:    "Random Friction",
			Multipliers:    map[Parameter]float64{ParamFriction: uniform(rng, 0.1, 2.0)},
			ActivationTick: activationTick,
			DurationTicks:  uint64(uniform(rng, 10, 20) * TickRate),
		}
	}
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

func cloneMultipliers(src map[Parameter]float64) map[Parameter]float64 {
	dst := make(map[Parameter]float64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

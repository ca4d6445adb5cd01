package generation

import (
	"strings"

	"github.com/google/uuid"
)

// Category は生成アイテムの挙動分類です。
type Category string

const (
	CategoryProjectile Category = "projectile"
	CategoryMelee      Category = "melee"
	CategoryAreaEffect Category = "area_effect"
	CategoryUtility    Category = "utility"
)

// ParseCategory は文字列をCategoryに変換します。未知の値はprojectileに落とします。
func ParseCategory(s string) Category {
	switch Category(strings.ToLower(strings.TrimSpace(s))) {
	case CategoryMelee:
		return CategoryMelee
	case CategoryAreaEffect:
		return CategoryAreaEffect
	case CategoryUtility:
		return CategoryUtility
	default:
		return CategoryProjectile
	}
}

// Provenance はアイテムを生成したtierを表します。
type Provenance string

const (
	ProvenanceCache    Provenance = "cache"
	ProvenanceTemplate Provenance = "template"
	ProvenanceRemote   Provenance = "remote"
	ProvenanceFallback Provenance = "fallback"
)

// プロパティの許容レンジ。外部生成結果はこのレンジにクランプされます。
const (
	DamageMin   = 10
	DamageMax   = 100
	SpeedMin    = 10
	SpeedMax    = 100
	RangeMin    = 20
	RangeMax    = 200
	AmmoMin     = 1
	AmmoMax     = 30
	CooldownMin = 1000
	CooldownMax = 5000
)

// Properties はアイテムの固定数値プロパティです。
type Properties struct {
	Damage        int    `json:"damage"`
	Speed         int    `json:"speed"`
	Range         int    `json:"range"`
	Ammo          int    `json:"ammo"`
	CooldownMs    int    `json:"cooldown_ms"`
	SpecialEffect string `json:"special_effect"`
}

// ClampRanges は各プロパティを許容レンジに収めた値を返します。
func (p Properties) ClampRanges() Properties {
	p.Damage = clampInt(p.Damage, DamageMin, DamageMax)
	p.Speed = clampInt(p.Speed, SpeedMin, SpeedMax)
	p.Range = clampInt(p.Range, RangeMin, RangeMax)
	p.Ammo = clampInt(p.Ammo, AmmoMin, AmmoMax)
	p.CooldownMs = clampInt(p.CooldownMs, CooldownMin, CooldownMax)
	if p.SpecialEffect == "" {
		p.SpecialEffect = "none"
	}
	return p
}

// Item は生成された武器です。生成後は不変で、所有参加者のみが参照します。
type Item struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Prompt       string     `json:"prompt"`
	Category     Category   `json:"category"`
	Props        Properties `json:"properties"`
	BalanceScore float64    `json:"balance_score"`
	Provenance   Provenance `json:"provenance"`
	AssetRef     string     `json:"asset_ref,omitempty"`
}

// WithNewID は同じ内容で新しいIDを持つアイテムを返します。キャッシュヒット時に使います。
func (i Item) WithNewID() *Item {
	i.ID = uuid.NewString()
	return &i
}

// DeriveName はプロンプトの先頭2語からアイテム名を導出します。
func DeriveName(prompt string) string {
	words := strings.Fields(strings.TrimSpace(prompt))
	if len(words) == 0 {
		return "Weapon"
	}
	if len(words) > 2 {
		words = words[:2]
	}
	for i, w := range words {
		words[i] = capitalize(w)
	}
	return strings.Join(words, " ")
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + strings.ToLower(s[1:])
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

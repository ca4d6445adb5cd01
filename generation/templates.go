package generation

import (
	"hash/fnv"
	"strings"
)

// Template は事前定義された武器の雛形です。生成サービスに到達せずに
// 即座にアイテムを返すための第二tierを構成します。
type Template struct {
	Name          string
	Category      Category
	Keywords      []string
	CategoryHints []string
	Props         Properties
}

var weaponTemplates = []Template{
	{
		Name:          "Fire Sword",
		Category:      CategoryMelee,
		Keywords:      []string{"fire", "flame", "sword", "blade", "burn"},
		CategoryHints: []string{"sword", "blade", "melee"},
		Props:         Properties{Damage: 65, Speed: 70, Range: 40, Ammo: 1, CooldownMs: 2000, SpecialEffect: "burn_damage"},
	},
	{
		Name:          "Ice Spear",
		Category:      CategoryProjectile,
		Keywords:      []string{"ice", "frost", "spear", "cold", "freeze"},
		CategoryHints: []string{"spear", "arrow", "projectile"},
		Props:         Properties{Damage: 55, Speed: 85, Range: 120, Ammo: 8, CooldownMs: 1800, SpecialEffect: "freeze_target"},
	},
	{
		Name:          "Lightning Hammer",
		Category:      CategoryMelee,
		Keywords:      []string{"lightning", "thunder", "hammer", "electric", "shock"},
		CategoryHints: []string{"hammer", "mace", "melee"},
		Props:         Properties{Damage: 75, Speed: 45, Range: 50, Ammo: 1, CooldownMs: 2800, SpecialEffect: "area_lightning"},
	},
	{
		Name:          "Poison Dagger",
		Category:      CategoryMelee,
		Keywords:      []string{"poison", "toxic", "dagger", "venom", "green"},
		CategoryHints: []string{"dagger", "knife", "blade"},
		Props:         Properties{Damage: 40, Speed: 90, Range: 30, Ammo: 1, CooldownMs: 1500, SpecialEffect: "poison_dot"},
	},
	{
		Name:          "Magic Shield",
		Category:      CategoryUtility,
		Keywords:      []string{"shield", "protect", "defense", "magic", "barrier"},
		CategoryHints: []string{"shield", "defense", "utility"},
		Props:         Properties{Damage: 20, Speed: 40, Range: 60, Ammo: 1, CooldownMs: 3500, SpecialEffect: "damage_reduction"},
	},
	{
		Name:          "Explosive Bomb",
		Category:      CategoryAreaEffect,
		Keywords:      []string{"bomb", "explosive", "boom", "blast", "explode"},
		CategoryHints: []string{"bomb", "grenade", "explosive"},
		Props:         Properties{Damage: 60, Speed: 30, Range: 80, Ammo: 3, CooldownMs: 3000, SpecialEffect: "area_explosion"},
	},
}

// MatchTemplate はプロンプトに最も近いテンプレートと確信度(0-1)を返します。
// 確信度は一致した重みを取り得る最大重みで割った値です。
func MatchTemplate(prompt string) (*Template, float64) {
	words := strings.Fields(strings.ToLower(prompt))
	if len(words) == 0 {
		return nil, 0
	}

	var best *Template
	bestScore := 0
	for i := range weaponTemplates {
		tpl := &weaponTemplates[i]
		score := 0
		name := strings.ToLower(tpl.Name)
		for _, w := range words {
			if strings.Contains(name, w) {
				score += 3
			}
			for _, hint := range tpl.CategoryHints {
				if w == hint {
					score++
					break
				}
			}
		}
		lower := strings.ToLower(prompt)
		for _, kw := range tpl.Keywords {
			if strings.Contains(lower, kw) {
				score += 2
			}
		}
		if score > bestScore {
			bestScore = score
			best = tpl
		}
	}
	if best == nil {
		return nil, 0
	}

	// 最大重み: 各語が名前一致(3) + キーワード一致(2) + ヒント一致(1)
	maxScore := len(words) * 6
	confidence := float64(bestScore) / float64(maxScore)
	if confidence > 1 {
		confidence = 1
	}
	return best, confidence
}

// JitterProps はプロンプトから決定的に導出した揺らぎをダメージと速度に加えます。
// 乱数を使わないのはキャッシュ整合のためです。
func JitterProps(prompt string, p Properties) Properties {
	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(strings.TrimSpace(prompt))))
	variation := int(h.Sum32()%21) - 10 // -10..+10
	p.Damage += variation
	p.Speed += variation
	return p.ClampRanges()
}

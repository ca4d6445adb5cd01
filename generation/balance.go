package generation

// バランス評価の重みと閾値。Scoreは決定的な純関数であることが
// キャッシュの正しさの前提になっています。
const (
	damageWeight   = 0.4
	speedWeight    = 0.3
	rangeWeight    = 0.2
	cooldownWeight = 0.1

	NerfThreshold = 85.0
	BuffThreshold = 15.0

	nerfDamageFactor   = 0.7
	nerfCooldownFactor = 1.3
	nerfRangeTrigger   = 80
)

var effectMultipliers = map[string]float64{
	"burn_damage":      1.2,
	"freeze_target":    1.15,
	"area_explosion":   1.3,
	"area_damage":      1.3,
	"poison_dot":       1.25,
	"area_lightning":   1.25,
	"damage_reduction": 0.8,
	"healing":          0.5,
	"none":             1.0,
}

// Score は武器プロパティの相対的な強さを0-100で評価します。
// 同じ入力は常に同じ出力になります。
func Score(p Properties) float64 {
	damageNorm := float64(p.Damage) / float64(DamageMax)
	speedNorm := float64(p.Speed) / float64(SpeedMax)
	rangeNorm := float64(p.Range) / float64(RangeMax)
	cooldownBonus := float64(CooldownMax-p.CooldownMs) / float64(CooldownMax)

	power := damageNorm*damageWeight +
		speedNorm*speedWeight +
		rangeNorm*rangeWeight +
		cooldownBonus*cooldownWeight

	multiplier, ok := effectMultipliers[p.SpecialEffect]
	if !ok {
		multiplier = 1.0
	}

	score := power * multiplier * 100
	if score > 100 {
		return 100
	}
	if score < 0 {
		return 0
	}
	return score
}

// Rebalance はスコアが閾値を超えるプロパティに弱体化・強化を適用し、
// 最終的なプロパティと再計算済みスコアを返します。
func Rebalance(p Properties) (Properties, float64) {
	p = p.ClampRanges()
	score := Score(p)

	switch {
	case score > NerfThreshold:
		p.Damage = int(float64(p.Damage) * nerfDamageFactor)
		p.CooldownMs = int(float64(p.CooldownMs) * nerfCooldownFactor)
		if p.Range > nerfRangeTrigger {
			p.Ammo = p.Ammo / 2
			if p.Ammo < 1 {
				p.Ammo = 1
			}
		}
	case score < BuffThreshold:
		// 弱体化と等価で逆向きの強化
		p.Damage = int(float64(p.Damage) / nerfDamageFactor)
		p.CooldownMs = int(float64(p.CooldownMs) / nerfCooldownFactor)
	default:
		return p, score
	}

	p = p.ClampRanges()
	return p, Score(p)
}

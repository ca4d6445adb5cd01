package generation

import "strings"

// fallbackRule はキーワードからアイテム特性を導く決定的なヒューリスティックです。
// 上から順に評価され、最初に一致した規則が採用されます。
type fallbackRule struct {
	keywords []string
	category Category
	effect   string
	damage   int
	rangeVal int
}

var fallbackRules = []fallbackRule{
	{keywords: []string{"fire", "flame", "burn"}, category: CategoryProjectile, effect: "burn_damage", damage: 55, rangeVal: 100},
	{keywords: []string{"ice", "frost", "freeze"}, category: CategoryProjectile, effect: "freeze_target", damage: 45, rangeVal: 110},
	{keywords: []string{"lightning", "thunder", "shock"}, category: CategoryProjectile, effect: "area_lightning", damage: 50, rangeVal: 120},
	{keywords: []string{"poison", "toxic", "venom"}, category: CategoryMelee, effect: "poison_dot", damage: 40, rangeVal: 30},
	{keywords: []string{"bomb", "explosive", "blast", "boom"}, category: CategoryAreaEffect, effect: "area_explosion", damage: 60, rangeVal: 80},
	{keywords: []string{"shield", "barrier", "defense"}, category: CategoryUtility, effect: "damage_reduction", damage: 20, rangeVal: 60},
	{keywords: []string{"sword", "blade", "dagger", "axe", "hammer"}, category: CategoryMelee, effect: "none", damage: 55, rangeVal: 40},
}

// FallbackItemProps はどんなプロンプトに対しても必ずプロパティを返します。
// 外部呼び出しを一切行わない最終tierです。
func FallbackItemProps(prompt string) (Category, Properties) {
	props := Properties{
		Damage:        50,
		Speed:         60,
		Range:         100,
		Ammo:          10,
		CooldownMs:    2000,
		SpecialEffect: "none",
	}
	category := CategoryProjectile

	lower := strings.ToLower(prompt)
	for _, rule := range fallbackRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				category = rule.category
				props.SpecialEffect = rule.effect
				props.Damage = rule.damage
				props.Range = rule.rangeVal
				if category == CategoryMelee {
					props.Speed = 80
					props.Ammo = 1
					props.CooldownMs = 1600
				}
				return category, props.ClampRanges()
			}
		}
	}
	return category, props
}

// placeholderAsset はtemplate/fallback tier用の決定的なアセット参照です。
// 本物のスプライトは外部サービスが担い、ここでは参照のみを合成します。
func placeholderAsset(category Category) string {
	return "asset://placeholder/" + string(category)
}

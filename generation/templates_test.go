package generation_test

import (
	"testing"

	"forgeduel/generation"
)

// 既知の武器名が高い確信度で一致することを確認
func TestMatchTemplate_KnownWeapons(t *testing.T) {
	tests := []struct {
		prompt string
		name   string
	}{
		{"fire sword", "Fire Sword"},
		{"ice spear", "Ice Spear"},
		{"lightning hammer", "Lightning Hammer"},
		{"poison dagger", "Poison Dagger"},
		{"magic shield", "Magic Shield"},
		{"explosive bomb", "Explosive Bomb"},
	}
	for _, tt := range tests {
		tpl, confidence := generation.MatchTemplate(tt.prompt)
		if tpl == nil {
			t.Errorf("%q: no template matched", tt.prompt)
			continue
		}
		if tpl.Name != tt.name {
			t.Errorf("%q: got %q, want %q", tt.prompt, tpl.Name, tt.name)
		}
		if confidence < 0.85 {
			t.Errorf("%q: confidence %v below threshold", tt.prompt, confidence)
		}
	}
}

// 無関係なプロンプトの確信度が閾値を下回ることを確認
func TestMatchTemplate_UnrelatedPrompt(t *testing.T) {
	_, confidence := generation.MatchTemplate("mysterious ancient artifact")
	if confidence >= 0.85 {
		t.Fatalf("confidence %v should be below threshold", confidence)
	}
}

// 揺らぎが決定的で値域内に収まることを確認
func TestJitterProps_Deterministic(t *testing.T) {
	base := generation.Properties{Damage: 65, Speed: 70, Range: 40, Ammo: 1, CooldownMs: 2000, SpecialEffect: "burn_damage"}

	a := generation.JitterProps("  Fire Sword  ", base)
	b := generation.JitterProps("fire sword", base)
	if a != b {
		t.Fatalf("jitter must be deterministic under normalization: %+v != %+v", a, b)
	}
	if a.Damage < generation.DamageMin || a.Damage > generation.DamageMax {
		t.Errorf("damage out of range: %d", a.Damage)
	}
}

// キーワードごとのフォールバック分類を確認
func TestFallbackItemProps_Keywords(t *testing.T) {
	tests := []struct {
		prompt   string
		category generation.Category
		effect   string
	}{
		{"giant fire cannon", generation.CategoryProjectile, "burn_damage"},
		{"frozen ice wall", generation.CategoryProjectile, "freeze_target"},
		{"big bomb thing", generation.CategoryAreaEffect, "area_explosion"},
		{"sturdy shield", generation.CategoryUtility, "damage_reduction"},
		{"plain sword", generation.CategoryMelee, "none"},
		{"totally unknown gadget", generation.CategoryProjectile, "none"},
	}
	for _, tt := range tests {
		category, props := generation.FallbackItemProps(tt.prompt)
		if category != tt.category {
			t.Errorf("%q: category got %v, want %v", tt.prompt, category, tt.category)
		}
		if props.SpecialEffect != tt.effect {
			t.Errorf("%q: effect got %q, want %q", tt.prompt, props.SpecialEffect, tt.effect)
		}
	}
}

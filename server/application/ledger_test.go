package application_test

import (
	"math/rand"
	"testing"

	"pgregory.net/rapid"

	"forgeduel/server/application"
)

// 期限切れの変更が自動的に効力を失い、ベース値へ戻ることを確認
func TestLedger_ExpiryRestoresBase(t *testing.T) {
	l := application.NewLedger()
	l.Append(application.RuleModification{
		ID:             "mod-1",
		Description:    "Low Gravity",
		Multipliers:    map[application.Parameter]float64{application.ParamGravity: 0.3},
		ActivationTick: 100,
		DurationTicks:  150, // 失効はtick 250
	})

	base := application.BaseParameters()

	during := l.EffectiveParameters(150)
	if during.Gravity != base.Gravity*0.3 {
		t.Errorf("gravity at tick 150: got %v, want %v", during.Gravity, base.Gravity*0.3)
	}

	after := l.EffectiveParameters(260)
	if after.Gravity != base.Gravity {
		t.Errorf("gravity at tick 260: got %v, want base %v", after.Gravity, base.Gravity)
	}
}

// 重複する変更が同じベースに乗算で合成されることを確認
func TestLedger_OverlappingModificationsMultiply(t *testing.T) {
	l := application.NewLedger()
	l.Append(application.RuleModification{
		ID:             "mod-a",
		Multipliers:    map[application.Parameter]float64{application.ParamGravity: 0.5},
		ActivationTick: 0,
		DurationTicks:  1000,
	})
	l.Append(application.RuleModification{
		ID:             "mod-b",
		Multipliers:    map[application.Parameter]float64{application.ParamGravity: 2.0},
		ActivationTick: 10,
		DurationTicks:  1000,
	})

	base := application.BaseParameters()
	got := l.EffectiveParameters(100)
	if got.Gravity != base.Gravity*0.5*2.0 {
		t.Errorf("gravity: got %v, want %v", got.Gravity, base.Gravity)
	}
}

// 同じtickに対する再計算が刈り取りの前後で一致することを確認
func TestLedger_IdempotentExpiry(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		l := application.NewLedger()
		count := rapid.IntRange(0, 8).Draw(t, "count")
		for i := 0; i < count; i++ {
			l.Append(application.RuleModification{
				Multipliers: map[application.Parameter]float64{
					application.ParamGravity:     rapid.Float64Range(0.1, 3).Draw(t, "g"),
					application.ParamRestitution: rapid.Float64Range(0.1, 3).Draw(t, "r"),
				},
				ActivationTick: uint64(rapid.IntRange(0, 500).Draw(t, "activation")),
				DurationTicks:  uint64(rapid.IntRange(1, 500).Draw(t, "duration")),
			})
		}
		tick := uint64(rapid.IntRange(0, 1200).Draw(t, "tick"))

		// 1回目の呼び出しで期限切れが刈り取られる。2回目も同じ結果になること。
		first := l.EffectiveParameters(tick)
		second := l.EffectiveParameters(tick)
		if first != second {
			t.Fatalf("effective parameters changed across pruning: %+v != %+v", first, second)
		}
	})
}

// 既知の語彙が対応する変更に解決されることを確認
func TestParseRulePrompt_KnownVocabulary(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	tests := []struct {
		prompt      string
		description string
	}{
		{"give us low gravity please", "Low Gravity"},
		{"zero gravity", "Zero Gravity"},
		{"reverse gravity now", "Reverse Gravity"},
		{"super slippery floor", "Super Slippery"},
		{"ice everywhere", "Ice Floor"},
		{"no bounce", "No Bounce"},
		{"super bouncy arena", "Super Bouncy"},
		{"hyper speed", "Hyper Speed"},
		{"slow motion", "Slow Motion"},
		{"double damage", "Double Damage"},
		{"rapid fire", "Rapid Fire"},
		{"giant weapons", "Giant Weapons"},
		{"explosive everything", "Explosive Weapons"},
		{"backwards guns", "Backwards Weapons"},
	}
	for _, tt := range tests {
		mod := application.ParseRulePrompt(tt.prompt, 42, rng)
		if mod.Description != tt.description {
			t.Errorf("%q: got %q, want %q", tt.prompt, mod.Description, tt.description)
		}
		if mod.ActivationTick != 42 {
			t.Errorf("%q: activation got %d, want 42", tt.prompt, mod.ActivationTick)
		}
		if mod.DurationTicks == 0 {
			t.Errorf("%q: duration must be positive", tt.prompt)
		}
	}
}

// 未知のプロンプトが拒否されずランダムな変更に落ちることを確認
func TestParseRulePrompt_UnknownFallsBackToRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	mod := application.ParseRulePrompt("make everything extremely strange", 10, rng)
	if len(mod.Multipliers) == 0 {
		t.Fatalf("fallback modification must carry multipliers")
	}
	if mod.DurationTicks == 0 {
		t.Fatalf("fallback modification must have a duration")
	}
}

// 限定的なパターンが汎用パターンより優先されることを確認
func TestParseRulePrompt_SpecificBeforeGeneric(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	mod := application.ParseRulePrompt("super slippery", 0, rng)
	if mod.Description != "Super Slippery" {
		t.Fatalf("got %q, want Super Slippery to shadow Ice Floor", mod.Description)
	}
}

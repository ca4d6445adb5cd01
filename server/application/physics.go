package application

import "fmt"

// ParameterSet はある時点の有効な物理パラメータ一式です。
// 常にベース値からアクティブな修正を掛け合わせて再計算され、差分更新はしません。
type ParameterSet struct {
	Gravity             float64 `json:"gravity"`
	Friction            float64 `json:"friction"`
	Restitution         float64 `json:"restitution"`
	TimeScale           float64 `json:"time_scale"`
	DamageMultiplier    float64 `json:"damage_multiplier"`
	CooldownMultiplier  float64 `json:"cooldown_multiplier"`
	SizeMultiplier      float64 `json:"size_multiplier"`
	DirectionMultiplier float64 `json:"direction_multiplier"`
}

// BaseParameters は修正が一切ない状態の物理パラメータです。
func BaseParameters() ParameterSet {
	return ParameterSet{
		Gravity:             800,
		Friction:            0.8,
		Restitution:         0.3,
		TimeScale:           1.0,
		DamageMultiplier:    1.0,
		CooldownMultiplier:  1.0,
		SizeMultiplier:      1.0,
		DirectionMultiplier: 1.0,
	}
}

// Fingerprint はパラメータ一式の短い要約を返します。生成キャッシュのキーに使われ、
// 物理が変わると同じプロンプトでも別エントリとして扱われます。
func (p ParameterSet) Fingerprint() string {
	return fmt.Sprintf("g%.2f_f%.2f_r%.2f_t%.2f_d%.2f_c%.2f_s%.2f_x%.2f",
		p.Gravity, p.Friction, p.Restitution, p.TimeScale,
		p.DamageMultiplier, p.CooldownMultiplier, p.SizeMultiplier, p.DirectionMultiplier)
}

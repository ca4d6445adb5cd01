package generation

import "context"

//go:generate go tool mockgen -destination=./mocks/content_service_mock.go -package=mocks . ContentService

// ContentService は外部のコンテンツ生成サービスです。レイテンシ保証はなく、
// 呼び出し側が必ずタイムアウト付きのctxで呼びます。
type ContentService interface {
	Generate(ctx context.Context, prompt string, constraints StyleConstraints) (*GeneratedContent, error)
}

// StyleConstraints は生成サービスに渡すスタイル指定です。
type StyleConstraints struct {
	SpriteSize int    `json:"sprite_size"`
	Palette    string `json:"palette,omitempty"`
}

// GeneratedContent は生成サービスの生の応答です。数値はレンジ保証されないため
// 受け取り側でクランプします。
type GeneratedContent struct {
	AssetRef      string `json:"asset_ref"`
	Category      string `json:"category"`
	Damage        int    `json:"damage"`
	Speed         int    `json:"speed"`
	Range         int    `json:"range"`
	Ammo          int    `json:"ammo"`
	CooldownMs    int    `json:"cooldown_ms"`
	SpecialEffect string `json:"special_effect"`
}

//go:generate go tool mockgen -destination=./mocks/moderator_mock.go -package=mocks . Moderator

// Decision はモデレーション判定です。
type Decision uint8

const (
	DecisionAllow Decision = iota
	DecisionReject
)

// Moderator はプロンプトの事前審査を行います。全てのtierより先に呼ばれ、
// Rejectの場合は元のテキストを一切後段に渡しません。
type Moderator interface {
	Check(ctx context.Context, prompt string) (Decision, error)
}

// AllowAllModerator は全て許可するModerator実装です。開発用です。
type AllowAllModerator struct{}

func (AllowAllModerator) Check(_ context.Context, _ string) (Decision, error) {
	return DecisionAllow, nil
}

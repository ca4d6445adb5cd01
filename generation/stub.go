package generation

import (
	"context"
	"hash/fnv"
	"strings"
)

// StubContentService は外部生成サービスの決定的な代替実装です。
// 本番では同じインターフェースの背後に実サービスのクライアントを差し込みます。
type StubContentService struct{}

func (StubContentService) Generate(ctx context.Context, prompt string, constraints StyleConstraints) (*GeneratedContent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(strings.ToLower(strings.TrimSpace(prompt))))
	seed := h.Sum32()

	category, props := FallbackItemProps(prompt)
	// プロンプト毎に揺らぎを持たせつつ決定的に保つ
	props.Damage += int(seed % 17)
	props.Speed += int((seed >> 8) % 23)
	props.Range += int((seed >> 16) % 31)
	props.CooldownMs += int((seed>>4)%10) * 100

	return &GeneratedContent{
		AssetRef:      "asset://stub/" + string(category),
		Category:      string(category),
		Damage:        props.Damage,
		Speed:         props.Speed,
		Range:         props.Range,
		Ammo:          props.Ammo,
		CooldownMs:    props.CooldownMs,
		SpecialEffect: props.SpecialEffect,
	}, nil
}

// WordListModerator は禁止語リストによる最小限のModerator実装です。
type WordListModerator struct {
	banned []string
}

func NewWordListModerator(banned []string) *WordListModerator {
	lowered := make([]string, 0, len(banned))
	for _, w := range banned {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			lowered = append(lowered, w)
		}
	}
	return &WordListModerator{banned: lowered}
}

func (m *WordListModerator) Check(_ context.Context, prompt string) (Decision, error) {
	lower := strings.ToLower(prompt)
	for _, w := range m.banned {
		if strings.Contains(lower, w) {
			return DecisionReject, nil
		}
	}
	return DecisionAllow, nil
}

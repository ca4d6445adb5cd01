package application

import (
	"forgeduel/generation"
	"forgeduel/server/domain"
)

// クライアントとの間で交換されるペイロード定義。封筒はdomain.Envelopeです。

// PlayerInputPayload は1フレーム分の入力です。Seq はクライアント側で単調増加し、
// スナップショットのLastInputSeqと突き合わせてリプレイ範囲を決めます。
type PlayerInputPayload struct {
	Seq    uint32  `json:"seq"`
	MoveX  float64 `json:"move_x"`
	Jump   bool    `json:"jump"`
	Fire   bool    `json:"fire"`
	AimX   float64 `json:"aim_x"`
	AimY   float64 `json:"aim_y"`
	Select int     `json:"select"`
	Pos    *Vec2   `json:"pos,omitempty"`
}

// GenerateItemPayload は武器生成要求です。
type GenerateItemPayload struct {
	Prompt string `json:"prompt"`
}

// GlobalRulePayload はグローバルルール変更要求です。
type GlobalRulePayload struct {
	Prompt string `json:"prompt"`
}

// ResyncRequestPayload は履歴ウィンドウ内のスナップショット再取得要求です。
type ResyncRequestPayload struct {
	Tick uint64 `json:"tick"`
}

// MatchFoundPayload はマッチ成立の通知です。
type MatchFoundPayload struct {
	MatchID      domain.MatchID `json:"match_id"`
	Participants []string       `json:"participants"`
	DisplayNames []string       `json:"display_names"`
}

// ItemGeneratedPayload は生成完了・失敗の通知です。クールダウン中の棄却は
// RemainingMsに再要求可能になるまでの時間を載せます。
type ItemGeneratedPayload struct {
	Success     bool             `json:"success"`
	Item        *generation.Item `json:"item,omitempty"`
	Reason      string           `json:"reason,omitempty"`
	RemainingMs int64            `json:"remaining_ms,omitempty"`
}

// RuleChangedPayload はルール変更の成立通知です。
type RuleChangedPayload struct {
	Description    string `json:"description"`
	ActivationTick uint64 `json:"activation_tick"`
	DurationTicks  uint64 `json:"duration_ticks"`
}

// ParticipantView はスナップショットに載る参加者の外部表現です。
type ParticipantView struct {
	SessionID    string   `json:"session_id"`
	DisplayName  string   `json:"display_name"`
	Position     Vec2     `json:"position"`
	Velocity     Vec2     `json:"velocity"`
	Facing       float64  `json:"facing"`
	Health       int      `json:"health"`
	Alive        bool     `json:"alive"`
	Kills        int      `json:"kills"`
	Deaths       int      `json:"deaths"`
	Connected    bool     `json:"connected"`
	SelectedItem int      `json:"selected_item"`
	ItemIDs      []string `json:"item_ids"`
	LastInputSeq uint32   `json:"last_input_seq"`
}

// ProjectileView はスナップショットに載る発射体の外部表現です。
type ProjectileView struct {
	ID       string `json:"id"`
	OwnerID  string `json:"owner_id"`
	Position Vec2   `json:"position"`
	Velocity Vec2   `json:"velocity"`
}

// Snapshot はあるtickの権威状態の完全な写しです。履歴バッファに保持され、
// そのまま配信もされます。
type Snapshot struct {
	Tick         uint64             `json:"tick"`
	Participants []ParticipantView  `json:"participants"`
	Projectiles  []ProjectileView   `json:"projectiles"`
	Params       ParameterSet       `json:"effective_parameters"`
	ActiveRules  []RuleModification `json:"active_rules,omitempty"`
}

// MatchEndedPayload は決着通知です。引き分けのときWinnerは空です。
type MatchEndedPayload struct {
	WinnerID string `json:"winner_id,omitempty"`
	Draw     bool   `json:"draw"`
	Reason   string `json:"reason"`
}

// InputRejectedPayload は不正入力の棄却通知です。
type InputRejectedPayload struct {
	Seq    uint32 `json:"seq"`
	Reason string `json:"reason"`
}

// FullResyncPayload は履歴切れ時の全量再同期です。
type FullResyncPayload struct {
	Snapshot Snapshot `json:"snapshot"`
}

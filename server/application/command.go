package application

import (
	"forgeduel/generation"
	"forgeduel/server/domain"
)

// Command はtickループに投入される検証前の入力です。ネットワーク到着順に
// キューへ積まれ、各tickの先頭で到着順のまま消費されます。
type Command interface {
	Sender() domain.SessionID
}

// MoveCommand は移動・ジャンプ・発射の意図を運びます。ClientPos は
// クライアント予測位置で、乖離検出に使います。
type MoveCommand struct {
	SessionID domain.SessionID
	Seq       uint32
	MoveX     float64 // -1 / 0 / +1
	Jump      bool
	Fire      bool
	AimX      float64
	AimY      float64
	Select    int // 持ち替え先インデックス。-1 は変更なし
	ClientPos *Vec2
}

func (c MoveCommand) Sender() domain.SessionID { return c.SessionID }

// RuleCommand はグローバルルール変更の要求です。
type RuleCommand struct {
	SessionID domain.SessionID
	Prompt    string
}

func (c RuleCommand) Sender() domain.SessionID { return c.SessionID }

// ItemGrantCommand は生成パイプラインの完了結果をtickループへ注入します。
// 生成はtickループの外で走るため、結果は次のtickの入力として扱われます。
type ItemGrantCommand struct {
	SessionID domain.SessionID
	Item      generation.Item
}

func (c ItemGrantCommand) Sender() domain.SessionID { return c.SessionID }

// DisconnectCommand は参加者のチャネル喪失・復帰をシミュレーションへ伝えます。
type DisconnectCommand struct {
	SessionID domain.SessionID
	Rejoined  bool
}

func (c DisconnectCommand) Sender() domain.SessionID { return c.SessionID }

// ForfeitCommand は再接続ウィンドウ超過による敗北処理です。
type ForfeitCommand struct {
	SessionID domain.SessionID
}

func (c ForfeitCommand) Sender() domain.SessionID { return c.SessionID }

package application

import "math"

// シミュレーションの固定定数。クライアントと共有される契約であり、
// マッチ中に変化するのはLedger経由の物理パラメータだけです。
const (
	TickRate         = 60   // 論理tick毎秒
	BroadcastEvery   = 2    // スナップショット配信間隔(tick)
	MatchDurationCap = 5400 // 90秒 × 60tick
	HistoryWindow    = 60   // 保持するスナップショット数

	ArenaWidth  = 1200.0
	ArenaHeight = 600.0
	GroundY     = 500.0

	MoveSpeed     = 200.0 // px/s
	JumpVelocity  = -400.0
	ParticipantW  = 32.0
	ParticipantH  = 48.0
	MaxHealth     = 100
	MaxHeldItems  = 5
	MeleeReach    = 60.0
	BaseBlastR    = 50.0 // area_effect系の基本爆発半径
	ProjectileLen = 8.0
)

// Vec2 は2次元の位置・速度です。
type Vec2 struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func (v Vec2) Add(o Vec2) Vec2 { return Vec2{v.X + o.X, v.Y + o.Y} }

func (v Vec2) Scale(s float64) Vec2 { return Vec2{v.X * s, v.Y * s} }

func (v Vec2) DistanceTo(o Vec2) float64 {
	dx := v.X - o.X
	dy := v.Y - o.Y
	return math.Sqrt(dx*dx + dy*dy)
}

package application

import "math"

// BodyState は運動積分に必要な最小の状態です。参加者本体から切り出してあるのは、
// 権威シミュレーションとクライアント入力のリプレイが同じ積分を共有するためです。
type BodyState struct {
	Pos      Vec2
	Vel      Vec2
	OnGround bool
}

// 地面反発がこの速度を下回ったら静止とみなす
const restThreshold = 20.0

// StepBody は1tick分の運動を積分します。純関数で、同じ入力からは常に同じ
// 結果を返します。時間の流れはTimeScaleで伸縮します。
func StepBody(b BodyState, moveX float64, jump bool, params ParameterSet) BodyState {
	dt := params.TimeScale / TickRate

	// 水平: 摩擦が操作の効きを決める。氷上では加減速が鈍り、滑り続ける。
	control := params.Friction * 10 * dt
	if control > 1 {
		control = 1
	}
	if control < 0 {
		control = 0
	}
	target := moveX * MoveSpeed
	b.Vel.X += (target - b.Vel.X) * control

	if jump && b.OnGround {
		b.Vel.Y = JumpVelocity
		b.OnGround = false
	}

	b.Vel.Y += params.Gravity * dt
	b.Pos = b.Pos.Add(b.Vel.Scale(dt))

	// 地面
	if b.Pos.Y >= GroundY {
		b.Pos.Y = GroundY
		if b.Vel.Y > 0 {
			b.Vel.Y = -b.Vel.Y * params.Restitution
			if math.Abs(b.Vel.Y) < restThreshold {
				b.Vel.Y = 0
				b.OnGround = true
			}
		}
	} else if b.Pos.Y <= 0 {
		// 逆重力時の天井
		b.Pos.Y = 0
		if b.Vel.Y < 0 {
			b.Vel.Y = -b.Vel.Y * params.Restitution
			if math.Abs(b.Vel.Y) < restThreshold {
				b.Vel.Y = 0
			}
		}
	} else {
		b.OnGround = false
	}

	// 壁
	halfW := ParticipantW / 2
	if b.Pos.X < halfW {
		b.Pos.X = halfW
		if b.Vel.X < 0 {
			b.Vel.X = -b.Vel.X * params.Restitution
		}
	} else if b.Pos.X > ArenaWidth-halfW {
		b.Pos.X = ArenaWidth - halfW
		if b.Vel.X > 0 {
			b.Vel.X = -b.Vel.X * params.Restitution
		}
	}

	return b
}

package application

import (
	"forgeduel/server/domain"
)

// Projectile は飛翔中の発射体です。発射元のアイテム属性を出発時点で写し取り、
// 以後アイテムが失われても独立して飛び続けます。
type Projectile struct {
	ID       string
	OwnerID  domain.SessionID
	Position Vec2
	Velocity Vec2
	Origin   Vec2
	Damage   int
	Range    float64
	// このtick以降は距離に関係なく消滅する
	ExpiresAtTick uint64
	// AreaEffect の発射体は着弾時に半径内へ減衰つきダメージを撒きます。
	BlastRadius   float64
	SpecialEffect string
}

// Expired は寿命切れ、射程超過、場外のいずれかを判定します。
func (pr *Projectile) Expired(tick uint64) bool {
	if tick >= pr.ExpiresAtTick {
		return true
	}
	if pr.Position.X < -ProjectileLen || pr.Position.X > ArenaWidth+ProjectileLen {
		return true
	}
	if pr.Position.Y < -ArenaHeight || pr.Position.Y > ArenaHeight {
		return true
	}
	return pr.Origin.DistanceTo(pr.Position) > pr.Range
}

// Hits は発射体が参加者の矩形に当たっているかを判定します。
func (pr *Projectile) Hits(p *Participant) bool {
	if !p.Alive || p.SessionID == pr.OwnerID {
		return false
	}
	halfW := ParticipantW / 2
	return pr.Position.X >= p.Position.X-halfW && pr.Position.X <= p.Position.X+halfW &&
		pr.Position.Y >= p.Position.Y-ParticipantH && pr.Position.Y <= p.Position.Y
}

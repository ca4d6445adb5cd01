package application

import (
	"time"

	"forgeduel/generation"
	"forgeduel/server/domain"
)

// Participant はマッチ内の一人のプレイヤーの権威状態です。
// Simulatorのtickループだけが触るため、ロックは持ちません。
type Participant struct {
	SessionID   domain.SessionID
	DisplayName string

	Position Vec2
	Velocity Vec2
	Facing   float64 // +1 右向き / -1 左向き
	OnGround bool

	Health int
	Alive  bool
	Kills  int
	Deaths int

	Items         []generation.Item
	SelectedItem  int
	lastFiredTick map[string]uint64 // item ID → 最後に発射したtick
	ammoLeft      map[string]int

	LastInputSeq uint32
	// 棄却された入力の累積。ペナルティ判断の材料で、マッチは止めません。
	Distrust int
	// 生成クールダウンはtickではなく実時間で数えます。マッチをまたいでも
	// 連打できないようにするためです。
	lastGenerationAt time.Time

	disconnectedAt time.Time
	Connected      bool
}

func NewParticipant(id domain.SessionID, name string, spawn Vec2, facing float64) *Participant {
	return &Participant{
		SessionID:     id,
		DisplayName:   name,
		Position:      spawn,
		Facing:        facing,
		Health:        MaxHealth,
		Alive:         true,
		Connected:     true,
		lastFiredTick: make(map[string]uint64),
		ammoLeft:      make(map[string]int),
	}
}

// Grant はアイテムを所持品に加えます。上限を超える場合は最古のものを捨てます。
func (p *Participant) Grant(item generation.Item) {
	if len(p.Items) >= MaxHeldItems {
		evicted := p.Items[0]
		p.Items = append(p.Items[:0], p.Items[1:]...)
		delete(p.lastFiredTick, evicted.ID)
		delete(p.ammoLeft, evicted.ID)
		if p.SelectedItem > 0 {
			p.SelectedItem--
		}
	}
	p.Items = append(p.Items, item)
	p.ammoLeft[item.ID] = item.Props.Ammo
}

// Selected は現在選択中のアイテムを返します。何も持っていなければnilです。
func (p *Participant) Selected() *generation.Item {
	if p.SelectedItem < 0 || p.SelectedItem >= len(p.Items) {
		return nil
	}
	return &p.Items[p.SelectedItem]
}

// CanFire は選択中アイテムの発射可否を判定します。クールダウンは発射時点の
// 有効パラメータで評価されるため、Rapid Fire中は短く、解除後は元に戻ります。
// 近接武器は弾数を持たずクールダウンのみで律速されます。
func (p *Participant) CanFire(tick uint64, params ParameterSet) bool {
	item := p.Selected()
	if item == nil || !p.Alive {
		return false
	}
	if item.Category != generation.CategoryMelee && p.ammoLeft[item.ID] <= 0 {
		return false
	}
	last, fired := p.lastFiredTick[item.ID]
	if !fired {
		return true
	}
	cooldownTicks := uint64(float64(item.Props.CooldownMs) * params.CooldownMultiplier / 1000.0 * TickRate)
	return tick >= last+cooldownTicks
}

func (p *Participant) recordFire(tick uint64, item *generation.Item) {
	p.lastFiredTick[item.ID] = tick
	if item.Category == generation.CategoryMelee {
		return
	}
	if left, ok := p.ammoLeft[item.ID]; ok && left > 0 {
		p.ammoLeft[item.ID] = left - 1
	}
}

// AmmoLeft は指定アイテムの残弾数を返します。
func (p *Participant) AmmoLeft(itemID string) int {
	return p.ammoLeft[itemID]
}

// ApplyDamage はダメージを適用し、死亡した場合にtrueを返します。
func (p *Participant) ApplyDamage(amount int) bool {
	if !p.Alive || amount <= 0 {
		return false
	}
	p.Health -= amount
	if p.Health <= 0 {
		p.Health = 0
		p.Alive = false
		p.Deaths++
		return true
	}
	return false
}

// Heal は体力を回復します。上限を超えることはありません。
func (p *Participant) Heal(amount int) {
	if !p.Alive || amount <= 0 {
		return
	}
	p.Health += amount
	if p.Health > MaxHealth {
		p.Health = MaxHealth
	}
}

package application

// History はスナップショットの有界リングです。リプレイ照会に答えるための
// 直近ウィンドウだけを保持し、それより古いtickはErrSnapshotAgedになります。
type History struct {
	window  int
	entries []*Snapshot
}

func NewHistory(window int) *History {
	return &History{window: window}
}

// Record はスナップショットを追記し、ウィンドウを超えた分を捨てます。
func (h *History) Record(snap *Snapshot) {
	h.entries = append(h.entries, snap)
	if len(h.entries) > h.window {
		h.entries = h.entries[len(h.entries)-h.window:]
	}
}

// At は指定tickのスナップショットを返します。
func (h *History) At(tick uint64) (*Snapshot, error) {
	for i := len(h.entries) - 1; i >= 0; i-- {
		if h.entries[i].Tick == tick {
			return h.entries[i], nil
		}
	}
	return nil, ErrSnapshotAged
}

// Latest は最新のスナップショットを返します。空ならnilです。
func (h *History) Latest() *Snapshot {
	if len(h.entries) == 0 {
		return nil
	}
	return h.entries[len(h.entries)-1]
}

// Len は保持中のスナップショット数です。
func (h *History) Len() int {
	return len(h.entries)
}

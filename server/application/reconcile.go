package application

// 予測とのずれがこの距離以内なら補正不要とみなします。
const reconcileTolerance = 1.0

// Reconciler はクライアント予測と権威状態の突き合わせです。サーバ側の責務は
// 「tick Nの状態」に答えられる履歴の維持と、権威ベースラインからの決定的な
// リプレイの提供で、どの入力を巻き戻すかはLastInputSeqが決めます。
type Reconciler struct {
	history *History
}

func NewReconciler(history *History) *Reconciler {
	return &Reconciler{history: history}
}

// SnapshotFor は指定tickの権威スナップショットを返します。ウィンドウ外なら
// ErrSnapshotAgedで、呼び出し側は全量再同期に切り替えます。
func (r *Reconciler) SnapshotFor(tick uint64) (*Snapshot, error) {
	return r.history.At(tick)
}

// PendingInputs は権威スナップショットにまだ反映されていない入力を返します。
// ackSeqはスナップショットのLastInputSeqです。
func PendingInputs(inputs []PlayerInputPayload, ackSeq uint32) []PlayerInputPayload {
	for i, in := range inputs {
		if in.Seq > ackSeq {
			return inputs[i:]
		}
	}
	return nil
}

// ReplayMovement は権威ベースラインの上に未反映入力を順に適用し直します。
// 権威シミュレーションと同じ積分を使うため、同じ入力列なら同じ位置に収束します。
func ReplayMovement(baseline BodyState, inputs []PlayerInputPayload, params ParameterSet) BodyState {
	body := baseline
	for _, in := range inputs {
		body = StepBody(body, in.MoveX, in.Jump, params)
	}
	return body
}

// Diverged は予測位置と権威位置の差が補正を要するかを判定します。
func Diverged(predicted, authoritative Vec2) bool {
	return predicted.DistanceTo(authoritative) > reconcileTolerance
}

package application

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrMatchNotForming    = errors.New("application: match is not forming")
	ErrMatchNotActive     = errors.New("application: match is not active")
	ErrMatchFull          = errors.New("application: match is full")
	ErrNotEnoughPlayers   = errors.New("application: not enough participants to start")
	ErrUnknownParticipant = errors.New("application: unknown participant")
	// ErrSnapshotAged は要求されたtickが保持ウィンドウから外れている場合に返されます。
	// クライアントはリプレイを諦めてフル再同期を受け入れます。
	ErrSnapshotAged = errors.New("application: snapshot aged out of history window")
)

// ValidationError は不正・物理的に不可能な入力に対するエラーです。
// 入力は適用されず、送信者に通知され、マッチは継続します。
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return "application: invalid input: " + e.Reason
}

func NewValidationError(format string, args ...any) *ValidationError {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// CooldownError は生成クールダウン中の要求に対するエラーです。残り時間を運びます。
type CooldownError struct {
	Remaining time.Duration
}

func (e *CooldownError) Error() string {
	return fmt.Sprintf("application: generation cooldown active, %s remaining", e.Remaining)
}

// IntegrityError は内部不変条件の破壊を表します。該当マッチのみが終了し、
// 他のマッチには影響しません。
type IntegrityError struct {
	Detail string
}

func (e *IntegrityError) Error() string {
	return "application: match integrity violated: " + e.Detail
}

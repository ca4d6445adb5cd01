package domain

type endpointEventKind uint8

const (
	// unknown
	unknown endpointEventKind = iota

	// I/O
	evPong // pong を受信した

	// ctrl
	evClose      // セッション終了
	evReadError  // 読み込み失敗
	evWriteError // 書き込み失敗
)

type endpointEvent struct {
	kind endpointEventKind
	err  error
}

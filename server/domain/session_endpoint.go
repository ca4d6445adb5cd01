package domain

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"
)

var (
	// ErrBackpressure は書き込みチャネルが満杯の場合に返されるエラーです。
	ErrBackpressure = errors.New("write channel is full, apply backpressure")
	// ErrInitializationFailed はセッションエンドポイントの初期化に失敗した場合に返されるエラーです。
	ErrInitializationFailed = errors.New("failed to initialize session endpoint")
)

// EndpointConfig はSessionEndpointの動作パラメータです。
type EndpointConfig struct {
	IdleTimeout  time.Duration // この時間入力がなければstale扱いで切断
	PingInterval time.Duration
}

func DefaultEndpointConfig() EndpointConfig {
	return EndpointConfig{
		IdleTimeout:  30 * time.Second,
		PingInterval: 5 * time.Second,
	}
}

// SessionEndpoint は1接続の読み書きループを所有し、受信メッセージを
// 所属マッチのtopicへ、マッチからの配送を接続へ中継します。
type SessionEndpoint struct {
	ctx    context.Context
	cancel context.CancelFunc

	session    atomic.Pointer[Session]
	connection *Connection
	pubsub     PubSub
	registry   *SessionRegistry
	lobby      Lobby
	config     EndpointConfig

	ctrlCh  chan endpointEvent // 制御用チャネル
	writeCh chan []byte        // 書き込み用チャネル

	// lifecycle
	closed atomic.Bool
}

func NewSessionEndpoint(ctx context.Context, session *Session, connection *Connection, pubsub PubSub, registry *SessionRegistry, lobby Lobby, config EndpointConfig) (*SessionEndpoint, error) {
	if session == nil || connection == nil || pubsub == nil || registry == nil || lobby == nil {
		return nil, ErrInitializationFailed
	}
	ctx, cancel := context.WithCancel(ctx)
	se := &SessionEndpoint{
		ctx:        ctx,
		cancel:     cancel,
		connection: connection,
		pubsub:     pubsub,
		registry:   registry,
		lobby:      lobby,
		config:     config,
		ctrlCh:     make(chan endpointEvent, 16),
		writeCh:    make(chan []byte, 1024),
	}
	se.session.Store(session)
	return se, nil
}

func (se *SessionEndpoint) Session() *Session { return se.session.Load() }

func (se *SessionEndpoint) Run() error {
	// 自分宛のメッセージを購読
	sessionTopic := SessionTopic(se.Session().ID())
	msgCh := se.pubsub.Subscribe(sessionTopic)
	defer se.pubsub.Unsubscribe(sessionTopic, msgCh)

	heartbeat := NewHeartbeatService(se.config.PingInterval, se.Session, se.writeCh)

	eg, ctx := errgroup.WithContext(se.ctx)
	eg.Go(func() error {
		se.ownerLoop(ctx)
		return nil
	})
	eg.Go(func() error {
		se.readLoop(ctx)
		return nil
	})
	eg.Go(func() error {
		se.writeLoop(ctx)
		return nil
	})
	eg.Go(func() error {
		se.subscribeLoop(ctx, msgCh)
		return nil
	})
	eg.Go(func() error {
		heartbeat.Run(ctx)
		return nil
	})

	// セッションID通知を送信
	if err := se.Send(EncodeSessionAssign(se.Session(), false)); err != nil {
		return err
	}

	return eg.Wait()
}

func (se *SessionEndpoint) Send(data []byte) error {
	select {
	case se.writeCh <- data:
		return nil
	default:
		return ErrBackpressure
	}
}

func (se *SessionEndpoint) Close(ctx context.Context) {
	se.sendCtrlEvent(ctx, endpointEvent{kind: evClose, err: nil})
}

func (se *SessionEndpoint) ForceClose() {
	se.close("forced")
}

// ownerLoop は論理セッションの状態を監視し、必要に応じて接続の管理を行います。
func (se *SessionEndpoint) ownerLoop(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-se.ctrlCh:
			se.handleControlEvent(ctx, ev)
		case <-ticker.C:
			session := se.Session()
			if session.IsClosed() {
				se.close("session closed")
				return
			}
			ok, reason := session.IsIdle(se.config.IdleTimeout)
			if ok {
				slog.WarnContext(ctx, "session stale", "sessionID", session.ID(), "reason", reason)
				se.close("stale: " + reason.String())
				return
			}
		}
	}
}

func (se *SessionEndpoint) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			data, err := se.connection.Read(ctx)
			if err != nil {
				se.sendCtrlEvent(ctx, endpointEvent{kind: evReadError, err: err})
				return
			}
			// 到着時刻の刻印は全ての経路より先に行う
			receivedAt := time.Now().UnixNano()
			se.Session().TouchRead()
			se.handleData(ctx, data, receivedAt)
		}
	}
}

func (se *SessionEndpoint) writeLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case data := <-se.writeCh:
			err := se.connection.Write(ctx, data)
			if err != nil {
				se.sendCtrlEvent(ctx, endpointEvent{kind: evWriteError, err: err})
				continue
			}
			se.Session().TouchWrite()
		}
	}
}

// subscribeLoop はpubsubからのメッセージをwriteChに転送します。
func (se *SessionEndpoint) subscribeLoop(ctx context.Context, msgCh <-chan Message) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-msgCh:
			if !ok {
				return
			}
			select {
			case se.writeCh <- msg.Data:
				// 送信成功
			default:
				slog.Warn("subscribeLoop: writeCh full, message dropped", "sessionID", se.Session().ID())
			}
		}
	}
}

func (se *SessionEndpoint) handleData(ctx context.Context, data []byte, receivedAt int64) {
	env, err := DecodeEnvelope(data)
	if err != nil {
		slog.WarnContext(ctx, "failed to decode envelope", "err", err)
		return
	}

	switch env.Type {
	case MessagePong:
		se.sendCtrlEvent(ctx, endpointEvent{kind: evPong})
	case MessagePing:
		if err := se.Send(EncodePong()); err != nil {
			slog.WarnContext(ctx, "failed to reply pong", "err", err)
		}
	case MessageJoinRequest:
		se.handleJoinRequest(ctx, env)
	case MessagePlayerInput, MessageGenerateItem, MessageGlobalRule, MessageResyncRequest:
		session := se.Session()
		matchID, ok := se.registry.MatchOf(session.ID())
		if !ok {
			slog.WarnContext(ctx, "received game message before match assignment", "sessionID", session.ID(), "type", env.Type)
			return
		}
		se.pubsub.Publish(ctx, MatchTopic(matchID), Message{
			SessionID:  session.ID(),
			ReceivedAt: receivedAt,
			Data:       data,
		})
	default:
		slog.WarnContext(ctx, "unknown message type", "type", env.Type)
	}
}

func (se *SessionEndpoint) handleJoinRequest(ctx context.Context, env *Envelope) {
	var payload JoinRequestPayload
	if err := env.DecodeData(&payload); err != nil {
		slog.WarnContext(ctx, "failed to parse join request", "err", err)
		return
	}

	if payload.RejoinToken != "" {
		se.resume(ctx, payload.RejoinToken)
		return
	}

	session := se.Session()
	if err := se.lobby.Enqueue(ctx, session, payload.DisplayName); err != nil {
		slog.ErrorContext(ctx, "failed to enqueue session", "sessionID", session.ID(), "err", err)
	}
}

// resume は再接続要求を処理します。成立すると現在の仮セッションを破棄し、
// 切断中のセッションをこのエンドポイントが引き継ぎます。
func (se *SessionEndpoint) resume(ctx context.Context, token RejoinToken) {
	resumed, err := se.registry.Resume(token)
	if err != nil {
		slog.WarnContext(ctx, "resume rejected", "err", err)
		return
	}

	stale := se.Session()
	se.session.Store(resumed)
	se.registry.Remove(stale.ID())
	stale.Close()

	if err := se.Send(EncodeSessionAssign(resumed, true)); err != nil {
		slog.WarnContext(ctx, "failed to send resumed assign", "err", err)
	}
	if matchID, ok := se.registry.MatchOf(resumed.ID()); ok {
		se.pubsub.Publish(ctx, MatchTopic(matchID), Message{
			SessionID:  resumed.ID(),
			ReceivedAt: time.Now().UnixNano(),
			Data:       MustEncodeMessage(MessageRejoined, nil),
		})
	}
	slog.InfoContext(ctx, "session resumed", "sessionID", resumed.ID())
}

func (se *SessionEndpoint) close(reason string) {
	if !se.closed.CompareAndSwap(false, true) {
		return
	}
	se.cancel()

	session := se.Session()
	session.Detach()
	se.connection.Close()

	ctx := context.Background()
	if matchID, ok := se.registry.MatchOf(session.ID()); ok {
		// マッチ側が再接続ウィンドウを開始する
		se.pubsub.Publish(ctx, MatchTopic(matchID), Message{
			SessionID:  session.ID(),
			ReceivedAt: time.Now().UnixNano(),
			Data:       EncodeChannelLost(reason),
		})
		return
	}

	// マッチ未所属のセッションは復帰先がないため即座に破棄する
	se.lobby.Leave(ctx, session.ID())
	se.registry.Remove(session.ID())
	session.Close()
}

// handleControlEvent は制御チャネルからのイベントを処理し論理セッションの状態を更新する唯一の関数です。
func (se *SessionEndpoint) handleControlEvent(ctx context.Context, ev endpointEvent) {
	switch ev.kind {
	case evClose:
		se.close("requested")
	case evPong:
		se.Session().TouchPong()
	case evReadError:
		se.close("read error")
	case evWriteError:
		return
	default:
		slog.WarnContext(ctx, "unknown endpoint event kind", "kind", ev.kind)
	}
}

func (se *SessionEndpoint) sendCtrlEvent(ctx context.Context, ev endpointEvent) {
	select {
	case se.ctrlCh <- ev:
	case <-ctx.Done():
	}
}

package handler

import (
	"log/slog"
	"net/http"

	"github.com/coder/websocket"

	adapterwebsocket "forgeduel/server/adapter/websocket"
	"forgeduel/server/domain"
)

// AcceptHandler はwebsocket接続を受理してSessionEndpointを立ち上げます。
type AcceptHandler struct {
	pubsub   domain.PubSub
	registry *domain.SessionRegistry
	lobby    domain.Lobby
	config   domain.EndpointConfig
}

func NewAcceptHandler(pubsub domain.PubSub, registry *domain.SessionRegistry, lobby domain.Lobby, config domain.EndpointConfig) *AcceptHandler {
	return &AcceptHandler{pubsub: pubsub, registry: registry, lobby: lobby, config: config}
}

func (h *AcceptHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // 開発用: Origin チェックをスキップ
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to accept", "err", err)
		return
	}

	session := domain.NewSession()
	h.registry.Add(session)
	transport := adapterwebsocket.NewTransportFrom(conn)
	connection := domain.NewConnection(domain.ConnectionID(session.ID()), transport)
	endpoint, err := domain.NewSessionEndpoint(ctx, session, connection, h.pubsub, h.registry, h.lobby, h.config)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create session endpoint", "err", err)
		return
	}
	slog.DebugContext(ctx, "accepted new connection", "session_id", session.ID())
	if err := endpoint.Run(); err != nil {
		slog.ErrorContext(ctx, "session endpoint closed with error", "session_id", session.ID(), "err", err)
	}
}

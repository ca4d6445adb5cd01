package server

import (
	"net/http"

	"forgeduel/generation"
	"forgeduel/server/application"
	"forgeduel/server/domain"
	"forgeduel/server/handler"
	"forgeduel/server/repository/memory"
)

func Route(pubsub domain.PubSub, registry *domain.SessionRegistry, lobby *application.Lobby, orch *generation.Orchestrator, results *memory.ResultStore, config domain.EndpointConfig) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("/ws", handler.NewAcceptHandler(pubsub, registry, lobby, config))
	mux.Handle("/healthz", handler.NewHealthHandler())
	mux.Handle("/statsz", handler.NewStatsHandler(registry, lobby, orch, results))
	return mux
}

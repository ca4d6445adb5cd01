package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"forgeduel/generation"
	"forgeduel/server/application"
	"forgeduel/server/domain"
	"forgeduel/server/repository/memory"
)

func NewHealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}
}

// StatsHandler は稼働状況の簡易スナップショットを返します。
type StatsHandler struct {
	registry *domain.SessionRegistry
	lobby    *application.Lobby
	orch     *generation.Orchestrator
	results  *memory.ResultStore
}

func NewStatsHandler(registry *domain.SessionRegistry, lobby *application.Lobby, orch *generation.Orchestrator, results *memory.ResultStore) *StatsHandler {
	return &StatsHandler{registry: registry, lobby: lobby, orch: orch, results: results}
}

type statsResponse struct {
	Sessions       int                  `json:"sessions"`
	ActiveMatches  int                  `json:"active_matches"`
	MatchesStarted int                  `json:"matches_started"`
	Generation     generation.Stats     `json:"generation"`
	RecentResults  []memory.MatchResult `json:"recent_results"`
}

func (h *StatsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := statsResponse{
		Sessions:       h.registry.Len(),
		ActiveMatches:  h.lobby.ActiveMatches(),
		MatchesStarted: h.lobby.MatchesStarted(),
		Generation:     h.orch.Stats(),
		RecentResults:  h.results.Recent(10),
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		slog.ErrorContext(r.Context(), "failed to encode stats", "err", err)
	}
}

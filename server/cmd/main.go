package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"forgeduel/generation"
	"forgeduel/server"
	"forgeduel/server/application"
	"forgeduel/server/domain"
	"forgeduel/server/repository/memory"
	"forgeduel/utils"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := utils.GetEnvDefault("ADDR", "localhost")
	port := utils.GetEnvDefault("PORT", "9090")

	pubsub := domain.NewSimplePubSub()
	registry := domain.NewSessionRegistry()

	genConfig := generation.DefaultConfig()
	genConfig.HardDeadline = utils.GetEnvDuration("GEN_HARD_DEADLINE", genConfig.HardDeadline)
	genConfig.RemoteBudget = utils.GetEnvDuration("GEN_REMOTE_BUDGET", genConfig.RemoteBudget)
	moderator := generation.NewWordListModerator(strings.Split(utils.GetEnvDefault("BANNED_WORDS", ""), ","))
	orch := generation.NewOrchestrator(generation.StubContentService{}, moderator, genConfig)

	coordConfig := application.DefaultCoordinatorConfig()
	coordConfig.ReconnectWindow = utils.GetEnvDuration("RECONNECT_WINDOW", coordConfig.ReconnectWindow)
	lobby := application.NewLobby(ctx, pubsub, registry, orch, coordConfig)
	results := memory.NewResultStore(utils.GetEnvInt("RESULT_CAPACITY", 1024))
	lobby.Results = results

	endpointConfig := domain.DefaultEndpointConfig()
	endpointConfig.IdleTimeout = utils.GetEnvDuration("IDLE_TIMEOUT", endpointConfig.IdleTimeout)
	endpointConfig.PingInterval = utils.GetEnvDuration("PING_INTERVAL", endpointConfig.PingInterval)

	mux := server.Route(pubsub, registry, lobby, orch, results, endpointConfig)
	s := server.NewServer(fmt.Sprintf("%s:%s", addr, port), mux)

	go func() {
		if err := s.Serve(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("http server error: %v", err)
		}
	}()
	slog.InfoContext(ctx, "server listening", "addr", addr+":"+port)

	<-ctx.Done()
	slog.InfoContext(ctx, "shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := s.Shutdown(shutdownCtx); err != nil {
		slog.ErrorContext(ctx, "graceful shutdown failed", "error", err)
		if err := s.Close(); err != nil {
			slog.ErrorContext(ctx, "forced close failed", "error", err)
		}
	}
	lobby.Shutdown()
	pubsub.Close()
	slog.InfoContext(ctx, "server shutdown complete")
}

package main

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/coder/websocket"

	"forgeduel/server/application"
	"forgeduel/server/domain"
	"forgeduel/utils"
)

var generationPrompts = []string{
	"fire sword",
	"ice spear",
	"lightning hammer",
	"poison dagger",
	"magic shield",
	"explosive bomb",
	"rainbow banana launcher",
}

var rulePrompts = []string{
	"low gravity",
	"super bouncy",
	"ice floor",
	"slow motion",
	"double damage",
	"make everything weird",
}

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	addr := utils.GetEnvDefault("ADDR", "localhost")
	port := utils.GetEnvDefault("PORT", "9090")
	botCount := utils.GetEnvInt("BOT_COUNT", 2)

	serverURL := fmt.Sprintf("ws://%s:%s/ws", addr, port)
	slog.Info("starting bots", "count", botCount, "server", serverURL)

	var wg sync.WaitGroup
	for i := 0; i < botCount; i++ {
		wg.Add(1)
		go func(id int) {
			defer wg.Done()
			runBot(ctx, serverURL, id)
		}(i)
	}

	wg.Wait()
	slog.Info("all bots stopped")
}

func runBot(ctx context.Context, serverURL string, id int) {
	logger := slog.With("botID", id)

	for {
		if ctx.Err() != nil {
			return
		}
		err := botSession(ctx, serverURL, id, logger)
		if err != nil && ctx.Err() == nil {
			logger.Warn("bot session ended, reconnecting", "err", err)
			time.Sleep(2 * time.Second)
		}
	}
}

func botSession(ctx context.Context, serverURL string, id int, logger *slog.Logger) error {
	conn, _, err := websocket.Dial(ctx, serverURL, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.CloseNow()

	logger.Info("connected")

	rng := rand.New(rand.NewSource(time.Now().UnixNano() + int64(id)))
	inMatch := make(chan struct{}, 1)
	done := make(chan error, 1)

	// 受信ループ
	go func() {
		for {
			_, data, err := conn.Read(ctx)
			if err != nil {
				done <- err
				return
			}
			env, err := domain.DecodeEnvelope(data)
			if err != nil {
				logger.Warn("drop malformed message", "err", err)
				continue
			}
			switch env.Type {
			case domain.MessageSessionAssign:
				var p domain.SessionAssignPayload
				if err := env.DecodeData(&p); err == nil {
					logger.Info("session assigned", "sessionID", p.SessionID)
				}
				join := domain.MustEncodeMessage(domain.MessageJoinRequest, domain.JoinRequestPayload{
					DisplayName: fmt.Sprintf("bot-%d", id),
				})
				if err := conn.Write(ctx, websocket.MessageText, join); err != nil {
					done <- err
					return
				}
			case domain.MessagePing:
				if err := conn.Write(ctx, websocket.MessageText, domain.EncodePong()); err != nil {
					done <- err
					return
				}
			case domain.MessageMatchFound:
				select {
				case inMatch <- struct{}{}:
				default:
				}
				logger.Info("match found")
			case domain.MessageMatchEnded:
				var p application.MatchEndedPayload
				if err := env.DecodeData(&p); err == nil {
					logger.Info("match ended", "winner", p.WinnerID, "draw", p.Draw, "reason", p.Reason)
				}
				done <- nil
				return
			case domain.MessageItemGenerated:
				var p application.ItemGeneratedPayload
				if err := env.DecodeData(&p); err == nil && p.Success {
					logger.Info("item generated", "name", p.Item.Name, "score", p.Item.BalanceScore)
				}
			case domain.MessageInputRejected:
				var p application.InputRejectedPayload
				if err := env.DecodeData(&p); err == nil {
					logger.Warn("input rejected", "seq", p.Seq, "reason", p.Reason)
				}
			}
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-done:
		return err
	case <-inMatch:
	}

	// 入力ループ: 20Hzでふらふら歩き、たまに跳び、撃ち、生成とルール変更を投げる
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()

	var seq uint32
	moveX := 1.0
	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-done:
			return err
		case <-ticker.C:
			seq++
			if rng.Float64() < 0.05 {
				moveX = -moveX
			}
			input := application.PlayerInputPayload{
				Seq:    seq,
				MoveX:  moveX,
				Jump:   rng.Float64() < 0.03,
				Fire:   rng.Float64() < 0.10,
				AimX:   moveX,
				Select: -1,
			}
			if err := conn.Write(ctx, websocket.MessageText, domain.MustEncodeMessage(domain.MessagePlayerInput, input)); err != nil {
				return err
			}

			if rng.Float64() < 0.002 {
				prompt := generationPrompts[rng.Intn(len(generationPrompts))]
				msg := domain.MustEncodeMessage(domain.MessageGenerateItem, application.GenerateItemPayload{Prompt: prompt})
				if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
					return err
				}
			}
			if rng.Float64() < 0.001 {
				prompt := rulePrompts[rng.Intn(len(rulePrompts))]
				msg := domain.MustEncodeMessage(domain.MessageGlobalRule, application.GlobalRulePayload{Prompt: prompt})
				if err := conn.Write(ctx, websocket.MessageText, msg); err != nil {
					return err
				}
			}
		}
	}
}

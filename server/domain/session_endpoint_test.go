package domain_test

import (
	"context"
	"testing"

	"go.uber.org/mock/gomock"

	"forgeduel/server/domain"
	"forgeduel/server/domain/mocks"
)

// 初期化時にリソースが正しくセットアップされることを確認
func TestNewSessionEndpoint_InitializesDefaults(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s := domain.NewSession()
	tr := mocks.NewMockTransport(ctrl)
	c := domain.NewConnection(domain.ConnectionID(s.ID()), tr)
	ps := mocks.NewMockPubSub(ctrl)
	registry := domain.NewSessionRegistry()
	lobby := mocks.NewMockLobby(ctrl)

	se, err := domain.NewSessionEndpoint(context.Background(), s, c, ps, registry, lobby, domain.DefaultEndpointConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if se == nil {
		t.Fatalf("endpoint is nil")
	}
	if se.Session() != s {
		t.Fatalf("endpoint must hold the given session")
	}
}

// 必須依存が欠けた場合に初期化が失敗することを確認
func TestNewSessionEndpoint_RejectsNilDependencies(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s := domain.NewSession()
	tr := mocks.NewMockTransport(ctrl)
	c := domain.NewConnection(domain.ConnectionID(s.ID()), tr)
	ps := mocks.NewMockPubSub(ctrl)
	registry := domain.NewSessionRegistry()
	lobby := mocks.NewMockLobby(ctrl)
	config := domain.DefaultEndpointConfig()

	if _, err := domain.NewSessionEndpoint(context.Background(), nil, c, ps, registry, lobby, config); err != domain.ErrInitializationFailed {
		t.Errorf("nil session: got %v", err)
	}
	if _, err := domain.NewSessionEndpoint(context.Background(), s, nil, ps, registry, lobby, config); err != domain.ErrInitializationFailed {
		t.Errorf("nil connection: got %v", err)
	}
	if _, err := domain.NewSessionEndpoint(context.Background(), s, c, nil, registry, lobby, config); err != domain.ErrInitializationFailed {
		t.Errorf("nil pubsub: got %v", err)
	}
	if _, err := domain.NewSessionEndpoint(context.Background(), s, c, ps, nil, lobby, config); err != domain.ErrInitializationFailed {
		t.Errorf("nil registry: got %v", err)
	}
	if _, err := domain.NewSessionEndpoint(context.Background(), s, c, ps, registry, nil, config); err != domain.ErrInitializationFailed {
		t.Errorf("nil lobby: got %v", err)
	}
}

// writeChが満杯のときSendがバックプレッシャーを返すことを確認
func TestSessionEndpoint_SendBackpressure(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	s := domain.NewSession()
	tr := mocks.NewMockTransport(ctrl)
	c := domain.NewConnection(domain.ConnectionID(s.ID()), tr)
	ps := mocks.NewMockPubSub(ctrl)
	registry := domain.NewSessionRegistry()
	lobby := mocks.NewMockLobby(ctrl)

	se, err := domain.NewSessionEndpoint(context.Background(), s, c, ps, registry, lobby, domain.DefaultEndpointConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Runしていないのでチャネルは消費されない。満杯まで詰める。
	for i := 0; ; i++ {
		if err := se.Send(domain.EncodePing()); err != nil {
			if err != domain.ErrBackpressure {
				t.Fatalf("got %v, want ErrBackpressure", err)
			}
			return
		}
		if i > 10000 {
			t.Fatalf("writeCh never filled up")
		}
	}
}

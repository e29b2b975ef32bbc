package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/pkordes/pueblos-core/internal/domain"
	"github.com/pkordes/pueblos-core/internal/repo"
)

// pushTokenKey caches the last registered token, inside the push namespace.
const pushTokenKey = "token"

// PushRegistrar is the remote push-token registration endpoint.
type PushRegistrar interface {
	RegisterPushToken(ctx context.Context, reg domain.PushRegistration) error
}

// PushService registers the device push token with the remote once at startup.
// It is independent of notification read state.
type PushService struct {
	api    PushRegistrar
	kv     repo.KVStore
	userID string
	device string
	log    *slog.Logger
}

// NewPushService constructs a PushService. kv is typically
// repo.Namespace(store, "push"); device names the platform (e.g. "android").
func NewPushService(api PushRegistrar, kv repo.KVStore, userID, device string, log *slog.Logger) *PushService {
	if log == nil {
		log = slog.Default()
	}
	return &PushService{api: api, kv: kv, userID: userID, device: device, log: log}
}

// Register caches token locally and sends it to the remote. An empty token
// is skipped. A failed cache write is logged and does not stop the POST.
func (s *PushService) Register(ctx context.Context, token string) error {
	if token == "" {
		s.log.InfoContext(ctx, "no push token available, skipping registration")
		return nil
	}

	if err := s.kv.Set(ctx, pushTokenKey, token); err != nil {
		s.log.WarnContext(ctx, "push token cache write failed", "error", err)
	}

	reg := domain.PushRegistration{Token: token, Device: s.device, User: s.userID}
	if err := s.api.RegisterPushToken(ctx, reg); err != nil {
		return fmt.Errorf("service.PushService.Register: %w", err)
	}
	s.log.InfoContext(ctx, "push token registered", "device", s.device)
	return nil
}

// CachedToken returns the last token passed to Register.
// Returns domain.ErrNotFound when no token has been cached.
func (s *PushService) CachedToken(ctx context.Context) (string, error) {
	tok, err := s.kv.Get(ctx, pushTokenKey)
	if err != nil {
		return "", fmt.Errorf("service.PushService.CachedToken: %w", err)
	}
	return tok, nil
}

// RegisterInBackground runs Register on its own goroutine and only logs the
// outcome, so startup never waits on the remote.
func (s *PushService) RegisterInBackground(ctx context.Context, token string) {
	go func() {
		if err := s.Register(ctx, token); err != nil {
			s.log.WarnContext(ctx, "push registration failed", "error", err)
		}
	}()
}

package service_test

import (
	"context"
	"io"
	"log/slog"

	"github.com/pkordes/pueblos-core/internal/domain"
	"github.com/pkordes/pueblos-core/internal/repo"
	"github.com/pkordes/pueblos-core/internal/service"
)

// Hand-written test doubles. Each method is a function field; set only the
// ones a test needs.

type mockPlaces struct {
	listPlaces func(ctx context.Context) ([]domain.Place, error)
	getPlace   func(ctx context.Context, id string) (domain.PlaceDetail, error)
}

func (m *mockPlaces) ListPlaces(ctx context.Context) ([]domain.Place, error) {
	return m.listPlaces(ctx)
}
func (m *mockPlaces) GetPlace(ctx context.Context, id string) (domain.PlaceDetail, error) {
	return m.getPlace(ctx, id)
}

type mockVisits struct {
	listVisits  func(ctx context.Context, userID string) ([]domain.VisitRecord, error)
	updateVisit func(ctx context.Context, u domain.VisitUpdate) error
}

func (m *mockVisits) ListVisits(ctx context.Context, userID string) ([]domain.VisitRecord, error) {
	return m.listVisits(ctx, userID)
}
func (m *mockVisits) UpdateVisit(ctx context.Context, u domain.VisitUpdate) error {
	return m.updateVisit(ctx, u)
}

type mockFeed struct {
	list func(ctx context.Context) ([]domain.Notification, error)
}

func (m *mockFeed) ListNotifications(ctx context.Context) ([]domain.Notification, error) {
	return m.list(ctx)
}

type mockPush struct {
	register func(ctx context.Context, reg domain.PushRegistration) error
}

func (m *mockPush) RegisterPushToken(ctx context.Context, reg domain.PushRegistration) error {
	return m.register(ctx, reg)
}

// failingKV wraps a KVStore and lets a test inject errors per operation.
type failingKV struct {
	repo.KVStore
	getErr error
	setErr error
}

func (f *failingKV) Get(ctx context.Context, key string) (string, error) {
	if f.getErr != nil {
		return "", f.getErr
	}
	return f.KVStore.Get(ctx, key)
}

func (f *failingKV) Set(ctx context.Context, key, value string) error {
	if f.setErr != nil {
		return f.setErr
	}
	return f.KVStore.Set(ctx, key, value)
}

// compile-time checks: the doubles must satisfy the service interfaces.
var (
	_ service.PlaceSource      = (*mockPlaces)(nil)
	_ service.VisitSource      = (*mockVisits)(nil)
	_ service.NotificationFeed = (*mockFeed)(nil)
	_ service.PushRegistrar    = (*mockPush)(nil)
	_ repo.KVStore             = (*failingKV)(nil)
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

package handler_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"

	"github.com/pkordes/pueblos-core/internal/domain"
	"github.com/pkordes/pueblos-core/internal/handler"
	"github.com/pkordes/pueblos-core/internal/service"
)

// mockPlaceServicer is a test double for handler.PlaceServicer.
// Set only the method fields your test needs.
type mockPlaceServicer struct {
	load          func(ctx context.Context) (service.VisitedSnapshot, error)
	snapshot      func() service.VisitedSnapshot
	toggleVisited func(ctx context.Context, placeID string) (domain.PlaceVisit, error)
	changeStars   func(ctx context.Context, placeID string, stars int) (domain.PlaceVisit, error)
	placeDetail   func(ctx context.Context, placeID string) (domain.PlaceDetail, error)
}

func (m *mockPlaceServicer) Load(ctx context.Context) (service.VisitedSnapshot, error) {
	return m.load(ctx)
}
func (m *mockPlaceServicer) Snapshot() service.VisitedSnapshot {
	return m.snapshot()
}
func (m *mockPlaceServicer) ToggleVisited(ctx context.Context, placeID string) (domain.PlaceVisit, error) {
	return m.toggleVisited(ctx, placeID)
}
func (m *mockPlaceServicer) ChangeStars(ctx context.Context, placeID string, stars int) (domain.PlaceVisit, error) {
	return m.changeStars(ctx, placeID, stars)
}
func (m *mockPlaceServicer) PlaceDetail(ctx context.Context, placeID string) (domain.PlaceDetail, error) {
	return m.placeDetail(ctx, placeID)
}

// mockCartServicer is a test double for handler.CartServicer.
type mockCartServicer struct {
	snapshot       func() service.CartSnapshot
	addItem        func(item domain.CartItem) (service.CartSnapshot, error)
	updateQuantity func(productID, quantity int) (service.CartSnapshot, error)
	removeItem     func(productID int) service.CartSnapshot
	clearCart      func() service.CartSnapshot
}

func (m *mockCartServicer) Snapshot() service.CartSnapshot { return m.snapshot() }
func (m *mockCartServicer) AddItem(item domain.CartItem) (service.CartSnapshot, error) {
	return m.addItem(item)
}
func (m *mockCartServicer) UpdateQuantity(productID, quantity int) (service.CartSnapshot, error) {
	return m.updateQuantity(productID, quantity)
}
func (m *mockCartServicer) RemoveItem(productID int) service.CartSnapshot {
	return m.removeItem(productID)
}
func (m *mockCartServicer) ClearCart() service.CartSnapshot { return m.clearCart() }

// mockNotificationServicer is a test double for handler.NotificationServicer.
type mockNotificationServicer struct {
	notifications func(ctx context.Context) service.NotificationSnapshot
	refresh       func(ctx context.Context) service.NotificationSnapshot
	markAllAsRead func(ctx context.Context) (service.NotificationSnapshot, error)
}

func (m *mockNotificationServicer) Notifications(ctx context.Context) service.NotificationSnapshot {
	return m.notifications(ctx)
}
func (m *mockNotificationServicer) Refresh(ctx context.Context) service.NotificationSnapshot {
	return m.refresh(ctx)
}
func (m *mockNotificationServicer) MarkAllAsRead(ctx context.Context) (service.NotificationSnapshot, error) {
	return m.markAllAsRead(ctx)
}

// compile-time checks: the mocks and the real services must satisfy the
// handler interfaces.
var (
	_ handler.PlaceServicer        = (*mockPlaceServicer)(nil)
	_ handler.CartServicer         = (*mockCartServicer)(nil)
	_ handler.NotificationServicer = (*mockNotificationServicer)(nil)
	_ handler.PlaceServicer        = (*service.VisitedService)(nil)
	_ handler.CartServicer         = (*service.CartService)(nil)
	_ handler.NotificationServicer = (*service.NotificationService)(nil)
)

// newHTTPHandler wires a Server with the given mocks into its chi router.
// This mirrors how main.go mounts it in production.
func newHTTPHandler(places handler.PlaceServicer, cart handler.CartServicer, notifications handler.NotificationServicer) http.Handler {
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	return handler.NewServer(places, cart, notifications, []byte("openapi: 3.0.3\n"), log).Routes()
}

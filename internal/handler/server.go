// Package handler implements the local HTTP API over the three state
// managers. All handlers are methods on Server; routes are registered by
// Routes. Methods are split into per-manager files (places.go, cart.go,
// notifications.go) but share the same Server struct.
package handler

import (
	"context"
	"log/slog"

	"github.com/go-chi/chi/v5"

	"github.com/pkordes/pueblos-core/internal/domain"
	"github.com/pkordes/pueblos-core/internal/service"
)

// PlaceServicer defines the visited-places operations the handlers depend on.
// Defining the interface here (in the consumer package) lets handler tests
// inject a mock without a remote API.
type PlaceServicer interface {
	Load(ctx context.Context) (service.VisitedSnapshot, error)
	Snapshot() service.VisitedSnapshot
	ToggleVisited(ctx context.Context, placeID string) (domain.PlaceVisit, error)
	ChangeStars(ctx context.Context, placeID string, stars int) (domain.PlaceVisit, error)
	PlaceDetail(ctx context.Context, placeID string) (domain.PlaceDetail, error)
}

// CartServicer defines the cart operations the handlers depend on.
type CartServicer interface {
	Snapshot() service.CartSnapshot
	AddItem(item domain.CartItem) (service.CartSnapshot, error)
	UpdateQuantity(productID, quantity int) (service.CartSnapshot, error)
	RemoveItem(productID int) service.CartSnapshot
	ClearCart() service.CartSnapshot
}

// NotificationServicer defines the notification operations the handlers depend on.
type NotificationServicer interface {
	Notifications(ctx context.Context) service.NotificationSnapshot
	Refresh(ctx context.Context) service.NotificationSnapshot
	MarkAllAsRead(ctx context.Context) (service.NotificationSnapshot, error)
}

// Server serves every local endpoint. Mount the result of Routes in main.go.
type Server struct {
	places        PlaceServicer
	cart          CartServicer
	notifications NotificationServicer
	openAPI       []byte
	log           *slog.Logger
}

// NewServer constructs the Server with all its dependencies. Any servicer may
// be nil when only part of the API is exercised (e.g. in tests); its routes
// are then not registered.
func NewServer(places PlaceServicer, cart CartServicer, notifications NotificationServicer, openAPI []byte, log *slog.Logger) *Server {
	if log == nil {
		log = slog.Default()
	}
	return &Server{places: places, cart: cart, notifications: notifications, openAPI: openAPI, log: log}
}

// NewHealthHandler returns a Server for health-check-only use.
func NewHealthHandler() *Server {
	return NewServer(nil, nil, nil, nil, nil)
}

// Routes returns a chi router with every endpoint registered.
func (s *Server) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/healthz", s.GetHealth)
	if s.openAPI != nil {
		r.Get("/openapi.yaml", s.GetOpenAPI)
	}

	if s.places != nil {
		r.Route("/places", func(r chi.Router) {
			r.Get("/", s.ListPlaces)
			r.Get("/{placeID}", s.GetPlace)
			r.Post("/{placeID}/toggle", s.TogglePlace)
			r.Put("/{placeID}/stars", s.ChangeStars)
		})
	}

	if s.cart != nil {
		r.Route("/cart", func(r chi.Router) {
			r.Get("/", s.GetCart)
			r.Delete("/", s.ClearCart)
			r.Post("/items", s.AddCartItem)
			r.Put("/items/{productID}", s.UpdateCartItem)
			r.Delete("/items/{productID}", s.RemoveCartItem)
		})
	}

	if s.notifications != nil {
		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", s.ListNotifications)
			r.Post("/refresh", s.RefreshNotifications)
			r.Post("/read-all", s.MarkAllNotificationsRead)
		})
	}
	return r
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/pkordes/pueblos-core/internal/domain"
	"github.com/pkordes/pueblos-core/internal/repo"
)

// cartItemsKey is the storage key of the serialized cart, inside the cart namespace.
const cartItemsKey = "items"

// saveTimeout bounds one background write of the cart.
const saveTimeout = 5 * time.Second

// CartSnapshot is a read-only copy of the cart with its derived totals.
type CartSnapshot struct {
	Items      []domain.CartItem `json:"items"`
	TotalItems int               `json:"total_items"`
	TotalPrice decimal.Decimal   `json:"total_price"`
	// Loading is true until the stored cart has been restored.
	Loading bool `json:"loading"`
}

// CartService is the shopping cart: product-keyed lines kept in memory and
// written in full to durable storage after every mutation.
//
// Mutations change memory synchronously and then schedule a background save,
// so a read right after a mutation always sees it; a crash before the save
// completes loses it. Mutations block until Load has finished.
type CartService struct {
	kv  repo.KVStore
	log *slog.Logger

	mu      sync.Mutex
	items   []domain.CartItem
	loading bool
	closed  bool

	ready     chan struct{}
	loadOnce  sync.Once
	saveReq   chan struct{}
	saverDone chan struct{}
	closeOnce sync.Once

	obs observers[CartSnapshot]
}

// NewCartService constructs a CartService over kv (typically
// repo.Namespace(store, "cart")) and starts its background saver.
// Call Load before serving mutations and Close on shutdown.
func NewCartService(kv repo.KVStore, log *slog.Logger) *CartService {
	if log == nil {
		log = slog.Default()
	}
	s := &CartService{
		kv:        kv,
		log:       log,
		loading:   true,
		ready:     make(chan struct{}),
		saveReq:   make(chan struct{}, 1),
		saverDone: make(chan struct{}),
	}
	go s.saveLoop()
	return s
}

// Load restores the cart from storage. A missing or unreadable cart is logged
// and treated as empty; Load never fails. Only the first call has any effect.
func (s *CartService) Load(ctx context.Context) {
	s.loadOnce.Do(func() {
		items := s.read(ctx)

		s.mu.Lock()
		s.items = items
		s.loading = false
		snap := s.snapshotLocked()
		s.mu.Unlock()

		close(s.ready)
		s.obs.publish(snap)
	})
}

// IsLoading reports whether Load is still restoring the stored cart.
func (s *CartService) IsLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.loading
}

// Snapshot returns the current cart.
func (s *CartService) Snapshot() CartSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Subscribe registers fn to receive every new snapshot.
func (s *CartService) Subscribe(fn func(CartSnapshot)) (cancel func()) {
	return s.obs.subscribe(fn)
}

// AddItem adds one unit of item.ProductID. An existing line keeps its name,
// price and image and has its quantity incremented; a new line starts at 1
// whatever item.Quantity says.
// Returns domain.ErrValidation when ProductID is not positive.
func (s *CartService) AddItem(item domain.CartItem) (CartSnapshot, error) {
	if item.ProductID <= 0 {
		return CartSnapshot{}, fmt.Errorf("%w: product_id must be positive", domain.ErrValidation)
	}
	return s.change(func() error {
		if i := s.indexLocked(item.ProductID); i >= 0 {
			s.items[i].Quantity++
			return nil
		}
		item.Quantity = 1
		s.items = append(s.items, item)
		return nil
	})
}

// RemoveItem drops the line for productID. Removing an absent product is a no-op.
func (s *CartService) RemoveItem(productID int) CartSnapshot {
	snap, _ := s.change(func() error {
		s.items = slices.DeleteFunc(s.items, func(it domain.CartItem) bool { return it.ProductID == productID })
		return nil
	})
	return snap
}

// UpdateQuantity sets the quantity of productID. A quantity of zero or less
// removes the line. Returns domain.ErrNotFound when quantity is positive and
// the product is not in the cart.
func (s *CartService) UpdateQuantity(productID, quantity int) (CartSnapshot, error) {
	if quantity <= 0 {
		return s.RemoveItem(productID), nil
	}
	return s.change(func() error {
		i := s.indexLocked(productID)
		if i < 0 {
			return fmt.Errorf("product %d: %w", productID, domain.ErrNotFound)
		}
		s.items[i].Quantity = quantity
		return nil
	})
}

// ClearCart empties the cart, typically after a confirmed checkout.
func (s *CartService) ClearCart() CartSnapshot {
	snap, _ := s.change(func() error {
		s.items = nil
		return nil
	})
	return snap
}

// TotalItems is the sum of quantities.
func (s *CartService) TotalItems() int {
	return s.Snapshot().TotalItems
}

// TotalPrice is the sum of price × quantity; unparsable prices count as zero.
func (s *CartService) TotalPrice() decimal.Decimal {
	return s.Snapshot().TotalPrice
}

// Close flushes any scheduled save and stops the background saver.
// Mutations after Close still change memory but are no longer persisted.
func (s *CartService) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
		close(s.saveReq)
	})
	select {
	case <-s.saverDone:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("service.CartService.Close: %w", ctx.Err())
	}
}

// change waits for Load, applies fn under the lock, schedules a save and
// publishes the new snapshot. fn returning an error leaves state untouched.
func (s *CartService) change(fn func() error) (CartSnapshot, error) {
	<-s.ready

	s.mu.Lock()
	if err := fn(); err != nil {
		s.mu.Unlock()
		return CartSnapshot{}, err
	}
	snap := s.snapshotLocked()
	if !s.closed {
		// Coalesce: one queued request is enough because the saver always
		// writes the latest state.
		select {
		case s.saveReq <- struct{}{}:
		default:
		}
	}
	s.mu.Unlock()

	s.obs.publish(snap)
	return snap, nil
}

func (s *CartService) saveLoop() {
	defer close(s.saverDone)
	for range s.saveReq {
		s.save()
	}
}

// save writes the current cart. Failures are logged only.
func (s *CartService) save() {
	s.mu.Lock()
	items := slices.Clone(s.items)
	s.mu.Unlock()
	if items == nil {
		items = []domain.CartItem{}
	}

	b, err := json.Marshal(items)
	if err != nil {
		s.log.Error("cart serialization failed", "error", err)
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), saveTimeout)
	defer cancel()
	if err := s.kv.Set(ctx, cartItemsKey, string(b)); err != nil {
		s.log.Error("cart save failed", "items", len(items), "error", err)
	}
}

// read loads the stored cart, returning an empty cart on any failure.
func (s *CartService) read(ctx context.Context) []domain.CartItem {
	raw, err := s.kv.Get(ctx, cartItemsKey)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.log.WarnContext(ctx, "cart load failed, starting empty", "error", err)
		}
		return nil
	}

	var items []domain.CartItem
	if err := json.Unmarshal([]byte(raw), &items); err != nil {
		s.log.WarnContext(ctx, "stored cart unreadable, starting empty", "error", err)
		return nil
	}

	// Drop lines that violate the cart invariants rather than the whole cart.
	seen := make(map[int]struct{}, len(items))
	valid := items[:0]
	for _, it := range items {
		if _, dup := seen[it.ProductID]; dup || it.ProductID <= 0 || it.Quantity < 1 {
			continue
		}
		seen[it.ProductID] = struct{}{}
		valid = append(valid, it)
	}
	return valid
}

func (s *CartService) indexLocked(productID int) int {
	return slices.IndexFunc(s.items, func(it domain.CartItem) bool { return it.ProductID == productID })
}

func (s *CartService) snapshotLocked() CartSnapshot {
	items := slices.Clone(s.items)
	if items == nil {
		items = []domain.CartItem{}
	}
	snap := CartSnapshot{Items: items, TotalPrice: decimal.Zero, Loading: s.loading}
	for _, it := range items {
		snap.TotalItems += it.Quantity
		snap.TotalPrice = snap.TotalPrice.Add(it.Subtotal())
	}
	return snap
}

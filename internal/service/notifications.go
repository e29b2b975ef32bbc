package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"time"

	"github.com/pkordes/pueblos-core/internal/cache"
	"github.com/pkordes/pueblos-core/internal/domain"
	"github.com/pkordes/pueblos-core/internal/repo"
)

// lastSeenKey stores the id of the newest notification the user has seen,
// inside the notifications namespace.
const lastSeenKey = "last_seen"

const feedCacheKey = "feed"

// placeholderFeed is served when the feed cannot be fetched and no earlier
// result exists, so the list is never empty.
var placeholderFeed = []domain.Notification{{
	ID:      0,
	Type:    "info",
	Title:   "Bienvenido",
	Message: "Aquí verás las novedades de tus pueblos. Vuelve a intentarlo en unos minutos.",
}}

// NotificationFeed is the remote notification list.
type NotificationFeed interface {
	ListNotifications(ctx context.Context) ([]domain.Notification, error)
}

// NotificationOptions tunes the fetch policy. Zero values take the defaults.
type NotificationOptions struct {
	// StaleAfter is how long a successful fetch is served without refetching.
	// Defaults to 2 minutes.
	StaleAfter time.Duration
	// RefreshInterval is the period of the background refetch started by Run.
	// Defaults to 5 minutes.
	RefreshInterval time.Duration
	// FetchTimeout bounds one feed fetch. Zero leaves it to the feed.
	FetchTimeout time.Duration
}

// NotificationSnapshot is a read-only copy of the feed and its read state.
type NotificationSnapshot struct {
	Notifications []domain.Notification `json:"notifications"`
	UnreadCount   int                   `json:"unread_count"`
	// LastSeenID is nil until the user has marked the feed read once.
	LastSeenID *int64 `json:"last_seen_id,omitempty"`
	// Placeholder is true when Notifications is the built-in fallback feed.
	Placeholder bool      `json:"placeholder"`
	FetchedAt   time.Time `json:"fetched_at"`
}

// NotificationService tracks the remote feed and which entries the user has
// seen. Fetch failures never surface: the last good feed, or else a
// placeholder, is served instead.
type NotificationService struct {
	feed     NotificationFeed
	kv       repo.KVStore
	cache    *cache.Cache[[]domain.Notification]
	interval time.Duration
	log      *slog.Logger
	now      func() time.Time

	mu          sync.RWMutex
	items       []domain.Notification
	lastSeen    *int64
	placeholder bool
	haveGood    bool
	fetchedAt   time.Time

	obs observers[NotificationSnapshot]
}

// NewNotificationService constructs a NotificationService. kv is typically
// repo.Namespace(store, "notifications").
func NewNotificationService(feed NotificationFeed, kv repo.KVStore, opts NotificationOptions, log *slog.Logger) *NotificationService {
	if opts.StaleAfter <= 0 {
		opts.StaleAfter = 2 * time.Minute
	}
	if opts.RefreshInterval <= 0 {
		opts.RefreshInterval = 5 * time.Minute
	}
	if log == nil {
		log = slog.Default()
	}
	return &NotificationService{
		feed:     feed,
		kv:       kv,
		cache:    cache.New[[]domain.Notification](1, opts.StaleAfter, cache.WithFetchTimeout(opts.FetchTimeout)),
		interval: opts.RefreshInterval,
		log:      log,
		now:      time.Now,
	}
}

// LoadMarker restores the last-seen marker from storage. A missing marker is
// normal; a storage or parse failure is logged and treated as missing, which
// makes every entry unread.
func (s *NotificationService) LoadMarker(ctx context.Context) {
	raw, err := s.kv.Get(ctx, lastSeenKey)
	if err != nil {
		if !errors.Is(err, domain.ErrNotFound) {
			s.log.WarnContext(ctx, "notification marker load failed", "error", err)
		}
		return
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		s.log.WarnContext(ctx, "notification marker unreadable", "value", raw, "error", err)
		return
	}

	s.mu.Lock()
	s.lastSeen = &id
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.obs.publish(snap)
}

// Notifications returns the feed, fetching only when the previous successful
// fetch is older than the staleness window.
func (s *NotificationService) Notifications(ctx context.Context) NotificationSnapshot {
	return s.fetch(ctx)
}

// Refresh refetches the feed regardless of staleness.
func (s *NotificationService) Refresh(ctx context.Context) NotificationSnapshot {
	s.cache.Invalidate(feedCacheKey)
	return s.fetch(ctx)
}

// Snapshot returns the current state without touching the network.
func (s *NotificationService) Snapshot() NotificationSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// UnreadCount returns the number of entries newer than the last-seen marker.
func (s *NotificationService) UnreadCount() int {
	return s.Snapshot().UnreadCount
}

// Subscribe registers fn to receive every new snapshot.
func (s *NotificationService) Subscribe(fn func(NotificationSnapshot)) (cancel func()) {
	return s.obs.subscribe(fn)
}

// MarkAllAsRead moves the marker to the newest entry and persists it.
// It does nothing when the feed is empty or is the placeholder. The in-memory
// marker only moves once the write succeeds.
func (s *NotificationService) MarkAllAsRead(ctx context.Context) (NotificationSnapshot, error) {
	s.mu.RLock()
	if len(s.items) == 0 || s.placeholder {
		snap := s.snapshotLocked()
		s.mu.RUnlock()
		return snap, nil
	}
	newest := s.items[0].ID
	s.mu.RUnlock()

	if err := s.kv.Set(ctx, lastSeenKey, strconv.FormatInt(newest, 10)); err != nil {
		return s.Snapshot(), fmt.Errorf("service.NotificationService.MarkAllAsRead: %w", err)
	}

	s.mu.Lock()
	s.lastSeen = &newest
	snap := s.snapshotLocked()
	s.mu.Unlock()
	s.obs.publish(snap)
	return snap, nil
}

// Run refetches the feed every RefreshInterval until ctx is cancelled.
func (s *NotificationService) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.log.InfoContext(ctx, "notification refresher started", "interval", s.interval)
	for {
		select {
		case <-ctx.Done():
			s.log.Info("notification refresher stopped")
			return
		case <-ticker.C:
			s.Refresh(ctx)
		}
	}
}

func (s *NotificationService) fetch(ctx context.Context) NotificationSnapshot {
	items, err := s.cache.GetOrFetch(ctx, feedCacheKey, func(ctx context.Context) ([]domain.Notification, error) {
		feed, err := s.feed.ListNotifications(ctx)
		if err != nil {
			return nil, err
		}
		feed = slices.Clone(feed)
		slices.SortStableFunc(feed, func(a, b domain.Notification) int { return cmp.Compare(b.ID, a.ID) })
		return feed, nil
	})

	s.mu.Lock()
	if err != nil && ctx.Err() != nil {
		// The caller went away; the shared fetch may still land for others.
		snap := s.snapshotLocked()
		s.mu.Unlock()
		return snap
	}
	if err != nil {
		s.log.WarnContext(ctx, "notification feed unavailable", "error", err, "have_previous", s.haveGood)
		if !s.haveGood {
			s.items = slices.Clone(placeholderFeed)
			s.placeholder = true
		}
	} else {
		s.items = items
		s.placeholder = false
		s.haveGood = true
		s.fetchedAt = s.now()
	}
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.obs.publish(snap)
	return snap
}

func (s *NotificationService) snapshotLocked() NotificationSnapshot {
	items := slices.Clone(s.items)
	if items == nil {
		items = []domain.Notification{}
	}
	var lastSeen *int64
	if s.lastSeen != nil {
		v := *s.lastSeen
		lastSeen = &v
	}
	return NotificationSnapshot{
		Notifications: items,
		UnreadCount:   domain.UnreadCount(items, lastSeen),
		LastSeenID:    lastSeen,
		Placeholder:   s.placeholder,
		FetchedAt:     s.fetchedAt,
	}
}

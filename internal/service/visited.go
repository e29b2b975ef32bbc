// Package service contains the three state managers of the companion core:
// visited places, shopping cart and notifications. Each owns one in-memory
// collection, wraps a remote source and/or durable storage with its own
// consistency policy, and publishes snapshots to subscribers.
// No HTTP or SQL lives here; services depend on interfaces.
package service

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/pkordes/pueblos-core/internal/cache"
	"github.com/pkordes/pueblos-core/internal/domain"
	"github.com/pkordes/pueblos-core/internal/reconcile"
)

// PlaceSource is the part of the remote API that serves reference place data.
type PlaceSource interface {
	ListPlaces(ctx context.Context) ([]domain.Place, error)
	GetPlace(ctx context.Context, id string) (domain.PlaceDetail, error)
}

// VisitSource is the part of the remote API that stores a user's visits.
type VisitSource interface {
	ListVisits(ctx context.Context, userID string) ([]domain.VisitRecord, error)
	UpdateVisit(ctx context.Context, u domain.VisitUpdate) error
}

// VisitedSnapshot is a read-only copy of the reconciled view.
type VisitedSnapshot struct {
	Places []domain.PlaceVisit `json:"places"`
	Stats  domain.VisitStats   `json:"stats"`
	// Mutations holds the latest mutation per place id.
	Mutations map[string]domain.Mutation `json:"mutations"`
	// LoadedAt is zero until the first successful Load.
	LoadedAt time.Time `json:"loaded_at"`
}

// VisitedService reconciles a user's visit records with the master place list
// and applies visit mutations once the remote confirms them.
// The merged view is never written to durable storage; Load rebuilds it from
// the network every time.
type VisitedService struct {
	places  PlaceSource
	visits  VisitSource
	userID  string
	details *cache.Cache[domain.PlaceDetail]
	log     *slog.Logger
	now     func() time.Time

	mu        sync.RWMutex
	views     []domain.PlaceVisit
	mutations map[string]domain.Mutation
	loadedAt  time.Time

	obs observers[VisitedSnapshot]
}

// NewVisitedService constructs a VisitedService for userID. details caches
// place detail lookups; pass nil to fetch every time.
func NewVisitedService(places PlaceSource, visits VisitSource, userID string, details *cache.Cache[domain.PlaceDetail], log *slog.Logger) *VisitedService {
	if log == nil {
		log = slog.Default()
	}
	return &VisitedService{
		places:    places,
		visits:    visits,
		userID:    userID,
		details:   details,
		log:       log,
		now:       time.Now,
		mutations: map[string]domain.Mutation{},
	}
}

// Load fetches visit records and places concurrently and replaces the view
// with their reconciliation once both succeed. On any failure the previous
// view is kept and the error is returned.
func (s *VisitedService) Load(ctx context.Context) (VisitedSnapshot, error) {
	var (
		records []domain.VisitRecord
		places  []domain.Place
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		records, err = s.visits.ListVisits(gctx, s.userID)
		return err
	})
	g.Go(func() error {
		var err error
		places, err = s.places.ListPlaces(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return VisitedSnapshot{}, fmt.Errorf("service.VisitedService.Load: %w", err)
	}

	merged := reconcile.Merge(records, places)

	s.mu.Lock()
	s.views = merged
	s.loadedAt = s.now()
	snap := s.snapshotLocked()
	s.mu.Unlock()

	s.log.DebugContext(ctx, "visited places reconciled",
		"places", len(places), "records", len(records), "visited", snap.Stats.Visited)
	s.obs.publish(snap)
	return snap, nil
}

// Snapshot returns the current view without touching the network.
func (s *VisitedService) Snapshot() VisitedSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshotLocked()
}

// Subscribe registers fn to receive every new snapshot.
func (s *VisitedService) Subscribe(fn func(VisitedSnapshot)) (cancel func()) {
	return s.obs.subscribe(fn)
}

// ToggleVisited flips the visited flag of placeID. The flipped value is sent
// to the remote with the current stars and a manual type; local state changes
// only after the remote confirms.
// Returns domain.ErrNotFound for an unknown place and domain.ErrBusy when a
// mutation for the place is still pending.
func (s *VisitedService) ToggleVisited(ctx context.Context, placeID string) (domain.PlaceVisit, error) {
	var checked bool
	v, err := s.mutate(ctx, placeID, domain.MutationToggle,
		func(cur domain.PlaceVisit) domain.VisitUpdate {
			checked = !cur.Checked
			return domain.VisitUpdate{
				UserID:  s.userID,
				PlaceID: cur.ID,
				Checked: checked,
				Type:    domain.VisitManual,
				Stars:   cur.Stars,
			}
		},
		func(v *domain.PlaceVisit) {
			v.Checked = checked
			v.Type = domain.VisitManual
		},
	)
	if err != nil {
		return domain.PlaceVisit{}, fmt.Errorf("service.VisitedService.ToggleVisited: %w", err)
	}
	return v, nil
}

// ChangeStars sets the star rating of placeID, keeping its checked flag and
// type. Same confirm-then-apply policy as ToggleVisited.
// Returns domain.ErrValidation when stars is outside 0..5.
func (s *VisitedService) ChangeStars(ctx context.Context, placeID string, stars int) (domain.PlaceVisit, error) {
	if err := domain.ValidateStars(stars); err != nil {
		return domain.PlaceVisit{}, err
	}
	v, err := s.mutate(ctx, placeID, domain.MutationStars,
		func(cur domain.PlaceVisit) domain.VisitUpdate {
			return domain.VisitUpdate{
				UserID:  s.userID,
				PlaceID: cur.ID,
				Checked: cur.Checked,
				Type:    cur.Type,
				Stars:   stars,
			}
		},
		func(v *domain.PlaceVisit) { v.Stars = stars },
	)
	if err != nil {
		return domain.PlaceVisit{}, fmt.Errorf("service.VisitedService.ChangeStars: %w", err)
	}
	return v, nil
}

// PlaceDetail returns the detail record of a place through the detail cache.
func (s *VisitedService) PlaceDetail(ctx context.Context, placeID string) (domain.PlaceDetail, error) {
	fetch := func(ctx context.Context) (domain.PlaceDetail, error) {
		return s.places.GetPlace(ctx, placeID)
	}

	var (
		d   domain.PlaceDetail
		err error
	)
	if s.details == nil {
		d, err = fetch(ctx)
	} else {
		d, err = s.details.GetOrFetch(ctx, placeID, fetch)
	}
	if err != nil {
		return domain.PlaceDetail{}, fmt.Errorf("service.VisitedService.PlaceDetail: %w", err)
	}
	return d, nil
}

// mutate runs one remote-backed change on placeID. At most one mutation per
// place is in flight; the entry is modified by apply only after the remote
// call succeeds, and the view is re-sorted so ordering holds.
func (s *VisitedService) mutate(
	ctx context.Context,
	placeID string,
	kind domain.MutationKind,
	build func(cur domain.PlaceVisit) domain.VisitUpdate,
	apply func(v *domain.PlaceVisit),
) (domain.PlaceVisit, error) {
	s.mu.Lock()
	idx := s.indexLocked(placeID)
	if idx < 0 {
		s.mu.Unlock()
		return domain.PlaceVisit{}, fmt.Errorf("place %q: %w", placeID, domain.ErrNotFound)
	}
	if m, ok := s.mutations[placeID]; ok && !m.Settled() {
		s.mu.Unlock()
		return domain.PlaceVisit{}, fmt.Errorf("place %q: %w", placeID, domain.ErrBusy)
	}
	update := build(s.views[idx])
	m := domain.Mutation{
		ID:        uuid.New(),
		PlaceID:   placeID,
		Kind:      kind,
		State:     domain.MutationPending,
		StartedAt: s.now(),
	}
	s.mutations[placeID] = m
	pending := s.snapshotLocked()
	s.mu.Unlock()
	s.obs.publish(pending)

	remoteErr := s.visits.UpdateVisit(ctx, update)

	s.mu.Lock()
	settledAt := s.now()
	m.SettledAt = &settledAt
	var result domain.PlaceVisit
	if remoteErr != nil {
		m.State = domain.MutationFailed
		m.Error = remoteErr.Error()
	} else {
		m.State = domain.MutationApplied
		// A Load may have replaced the view while the call was in flight.
		if i := s.indexLocked(placeID); i >= 0 {
			apply(&s.views[i])
			reconcile.Sort(s.views)
			result = s.views[s.indexLocked(placeID)]
		}
	}
	s.mutations[placeID] = m
	settled := s.snapshotLocked()
	s.mu.Unlock()
	s.obs.publish(settled)

	if remoteErr != nil {
		s.log.WarnContext(ctx, "visit mutation failed",
			"place_id", placeID, "kind", kind, "mutation_id", m.ID, "error", remoteErr)
		return domain.PlaceVisit{}, remoteErr
	}
	return result, nil
}

func (s *VisitedService) indexLocked(placeID string) int {
	return slices.IndexFunc(s.views, func(v domain.PlaceVisit) bool { return v.ID == placeID })
}

func (s *VisitedService) snapshotLocked() VisitedSnapshot {
	views := slices.Clone(s.views)
	if views == nil {
		views = []domain.PlaceVisit{}
	}
	return VisitedSnapshot{
		Places:    views,
		Stats:     reconcile.Summarize(views),
		Mutations: maps.Clone(s.mutations),
		LoadedAt:  s.loadedAt,
	}
}

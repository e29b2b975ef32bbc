package service_test

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/pueblos-core/internal/domain"
	"github.com/pkordes/pueblos-core/internal/repo"
	"github.com/pkordes/pueblos-core/internal/service"
)

// ---- helpers ---------------------------------------------------------------

func feedOf(ids ...int64) []domain.Notification {
	out := make([]domain.Notification, len(ids))
	for i, id := range ids {
		out[i] = domain.Notification{ID: id, Title: "n"}
	}
	return out
}

// countingFeed serves feed and counts fetches. Setting fail makes it error.
type countingFeed struct {
	feed  []domain.Notification
	fail  atomic.Bool
	calls atomic.Int32
}

func (c *countingFeed) ListNotifications(context.Context) ([]domain.Notification, error) {
	c.calls.Add(1)
	if c.fail.Load() {
		return nil, domain.ErrRemote
	}
	return c.feed, nil
}

func newNotifications(feed service.NotificationFeed, kv repo.KVStore) *service.NotificationService {
	return service.NewNotificationService(feed, kv, service.NotificationOptions{StaleAfter: time.Minute}, discardLogger())
}

// ---- Unread / MarkAllAsRead ------------------------------------------------

// TestNotificationService_MarkAllAsReadScenario: a 5,4,3 feed with no marker
// is fully unread; after mark-all-read the marker is 5 and a refetch shows 0.
func TestNotificationService_MarkAllAsReadScenario(t *testing.T) {
	ctx := context.Background()
	kv := repo.NewMemoryKV()
	svc := newNotifications(&countingFeed{feed: feedOf(5, 4, 3)}, kv)
	svc.LoadMarker(ctx)

	snap := svc.Notifications(ctx)
	assert.Equal(t, 3, snap.UnreadCount)
	assert.Nil(t, snap.LastSeenID)

	snap, err := svc.MarkAllAsRead(ctx)
	require.NoError(t, err)
	require.NotNil(t, snap.LastSeenID)
	assert.Equal(t, int64(5), *snap.LastSeenID)

	raw, err := kv.Get(ctx, "last_seen")
	require.NoError(t, err)
	assert.Equal(t, "5", raw)

	snap = svc.Refresh(ctx)
	assert.Equal(t, 0, snap.UnreadCount)
}

func TestNotificationService_MarkerSurvivesRestart(t *testing.T) {
	ctx := context.Background()
	kv := repo.NewMemoryKV()
	require.NoError(t, kv.Set(ctx, "last_seen", "4"))

	svc := newNotifications(&countingFeed{feed: feedOf(6, 5, 4, 3)}, kv)
	svc.LoadMarker(ctx)

	assert.Equal(t, 2, svc.Notifications(ctx).UnreadCount)
}

func TestNotificationService_MarkerMissingFromFeed_AllUnread(t *testing.T) {
	ctx := context.Background()
	kv := repo.NewMemoryKV()
	require.NoError(t, kv.Set(ctx, "last_seen", "1"))

	svc := newNotifications(&countingFeed{feed: feedOf(9, 8)}, kv)
	svc.LoadMarker(ctx)

	assert.Equal(t, 2, svc.Notifications(ctx).UnreadCount)
}

func TestNotificationService_UnreadableMarker_AllUnread(t *testing.T) {
	ctx := context.Background()
	kv := repo.NewMemoryKV()
	require.NoError(t, kv.Set(ctx, "last_seen", "abc"))

	svc := newNotifications(&countingFeed{feed: feedOf(2, 1)}, kv)
	svc.LoadMarker(ctx)

	snap := svc.Notifications(ctx)
	assert.Equal(t, 2, snap.UnreadCount)
	assert.Nil(t, snap.LastSeenID)
}

func TestNotificationService_MarkAllAsRead_EmptyFeedIsNoop(t *testing.T) {
	ctx := context.Background()
	kv := repo.NewMemoryKV()
	svc := newNotifications(&countingFeed{feed: []domain.Notification{}}, kv)
	svc.Notifications(ctx)

	snap, err := svc.MarkAllAsRead(ctx)

	require.NoError(t, err)
	assert.Nil(t, snap.LastSeenID)
	_, err = kv.Get(ctx, "last_seen")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestNotificationService_MarkAllAsRead_PersistFailureKeepsMarker(t *testing.T) {
	ctx := context.Background()
	kv := &failingKV{KVStore: repo.NewMemoryKV(), setErr: errors.New("disk full")}
	svc := newNotifications(&countingFeed{feed: feedOf(3, 2)}, kv)
	svc.Notifications(ctx)

	snap, err := svc.MarkAllAsRead(ctx)

	require.Error(t, err)
	assert.Nil(t, snap.LastSeenID)
	assert.Equal(t, 2, svc.UnreadCount())
}

// ---- Fetch policy ----------------------------------------------------------

func TestNotificationService_ServesWithinStalenessWindow(t *testing.T) {
	ctx := context.Background()
	feed := &countingFeed{feed: feedOf(1)}
	svc := newNotifications(feed, repo.NewMemoryKV())

	svc.Notifications(ctx)
	svc.Notifications(ctx)
	svc.Notifications(ctx)
	assert.Equal(t, int32(1), feed.calls.Load())

	svc.Refresh(ctx)
	assert.Equal(t, int32(2), feed.calls.Load(), "refresh bypasses the window")
}

func TestNotificationService_RefetchesAfterStaleness(t *testing.T) {
	ctx := context.Background()
	feed := &countingFeed{feed: feedOf(1)}
	svc := service.NewNotificationService(feed, repo.NewMemoryKV(),
		service.NotificationOptions{StaleAfter: 20 * time.Millisecond}, discardLogger())

	svc.Notifications(ctx)
	time.Sleep(60 * time.Millisecond)
	svc.Notifications(ctx)

	assert.Equal(t, int32(2), feed.calls.Load())
}

func TestNotificationService_SortsNewestFirst(t *testing.T) {
	svc := newNotifications(&countingFeed{feed: feedOf(3, 7, 5)}, repo.NewMemoryKV())

	snap := svc.Notifications(context.Background())

	require.Len(t, snap.Notifications, 3)
	assert.Equal(t, []int64{7, 5, 3}, []int64{snap.Notifications[0].ID, snap.Notifications[1].ID, snap.Notifications[2].ID})
}

func TestNotificationService_FailureWithoutHistory_ServesPlaceholder(t *testing.T) {
	feed := &countingFeed{}
	feed.fail.Store(true)
	svc := newNotifications(feed, repo.NewMemoryKV())

	snap := svc.Notifications(context.Background())

	assert.True(t, snap.Placeholder)
	assert.NotEmpty(t, snap.Notifications)
}

func TestNotificationService_FailureAfterSuccess_KeepsLastGood(t *testing.T) {
	ctx := context.Background()
	feed := &countingFeed{feed: feedOf(2, 1)}
	svc := newNotifications(feed, repo.NewMemoryKV())
	svc.Notifications(ctx)

	feed.fail.Store(true)
	snap := svc.Refresh(ctx)

	assert.False(t, snap.Placeholder)
	assert.Len(t, snap.Notifications, 2)
}

func TestNotificationService_FailureIsNotCached(t *testing.T) {
	ctx := context.Background()
	feed := &countingFeed{feed: feedOf(1)}
	feed.fail.Store(true)
	svc := newNotifications(feed, repo.NewMemoryKV())
	svc.Notifications(ctx)

	feed.fail.Store(false)
	snap := svc.Notifications(ctx)

	assert.False(t, snap.Placeholder)
	assert.Equal(t, int32(2), feed.calls.Load())
}

func TestNotificationService_CancelledCallerDoesNotInstallPlaceholder(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	feed := &mockFeed{list: func(ctx context.Context) ([]domain.Notification, error) {
		close(started)
		<-release
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		return feedOf(2, 1), nil
	}}
	svc := newNotifications(feed, repo.NewMemoryKV())

	firstCtx, cancelFirst := context.WithCancel(context.Background())
	firstDone := make(chan service.NotificationSnapshot, 1)
	go func() { firstDone <- svc.Notifications(firstCtx) }()
	<-started

	secondDone := make(chan service.NotificationSnapshot, 1)
	go func() { secondDone <- svc.Notifications(context.Background()) }()
	time.Sleep(20 * time.Millisecond)

	cancelFirst()
	first := <-firstDone
	assert.False(t, first.Placeholder)
	assert.False(t, svc.Snapshot().Placeholder)

	close(release)
	second := <-secondDone
	assert.False(t, second.Placeholder)
	require.Len(t, second.Notifications, 2)
	assert.Equal(t, int64(2), second.Notifications[0].ID)
	assert.Equal(t, 2, second.UnreadCount)
}

func TestNotificationService_MarkAllAsRead_PlaceholderIsNoop(t *testing.T) {
	ctx := context.Background()
	feed := &countingFeed{}
	feed.fail.Store(true)
	kv := repo.NewMemoryKV()
	svc := newNotifications(feed, kv)
	svc.Notifications(ctx)

	snap, err := svc.MarkAllAsRead(ctx)

	require.NoError(t, err)
	assert.Nil(t, snap.LastSeenID)
}

// ---- Run -------------------------------------------------------------------

func TestNotificationService_Run_RefetchesPeriodically(t *testing.T) {
	feed := &countingFeed{feed: feedOf(1)}
	svc := service.NewNotificationService(feed, repo.NewMemoryKV(),
		service.NotificationOptions{StaleAfter: time.Hour, RefreshInterval: 10 * time.Millisecond}, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		svc.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return feed.calls.Load() >= 2 }, time.Second, 5*time.Millisecond)
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}

func TestNotificationService_Subscribe(t *testing.T) {
	svc := newNotifications(&countingFeed{feed: feedOf(2, 1)}, repo.NewMemoryKV())
	var unread []int
	cancel := svc.Subscribe(func(s service.NotificationSnapshot) { unread = append(unread, s.UnreadCount) })
	defer cancel()

	svc.Notifications(context.Background())
	_, err := svc.MarkAllAsRead(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []int{2, 0}, unread)
}

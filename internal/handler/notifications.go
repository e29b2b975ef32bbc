package handler

import (
	"net/http"
	"time"

	"github.com/pkordes/pueblos-core/internal/domain"
	"github.com/pkordes/pueblos-core/internal/service"
)

// NotificationListResponse is the body of every notification endpoint.
// These endpoints never fail on a remote outage; the service serves the last
// good feed or a placeholder instead.
type NotificationListResponse struct {
	Data        []domain.Notification `json:"data"`
	UnreadCount int                   `json:"unread_count"`
	LastSeenID  *int64                `json:"last_seen_id"`
	Placeholder bool                  `json:"placeholder"`
	FetchedAt   *time.Time            `json:"fetched_at,omitempty"`
}

// ListNotifications handles GET /notifications.
func (s *Server) ListNotifications(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, notificationsToResponse(s.notifications.Notifications(r.Context())))
}

// RefreshNotifications handles POST /notifications/refresh.
func (s *Server) RefreshNotifications(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, notificationsToResponse(s.notifications.Refresh(r.Context())))
}

// MarkAllNotificationsRead handles POST /notifications/read-all.
// Only a storage failure is reported; an empty feed is a no-op.
func (s *Server) MarkAllNotificationsRead(w http.ResponseWriter, r *http.Request) {
	snap, err := s.notifications.MarkAllAsRead(r.Context())
	if err != nil {
		s.writeServiceError(w, r, err, "notification marker not found")
		return
	}
	writeJSON(w, http.StatusOK, notificationsToResponse(snap))
}

func notificationsToResponse(snap service.NotificationSnapshot) NotificationListResponse {
	resp := NotificationListResponse{
		Data:        snap.Notifications,
		UnreadCount: snap.UnreadCount,
		LastSeenID:  snap.LastSeenID,
		Placeholder: snap.Placeholder,
	}
	if !snap.FetchedAt.IsZero() {
		t := snap.FetchedAt
		resp.FetchedAt = &t
	}
	return resp
}

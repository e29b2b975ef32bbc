package remote

import (
	"context"
	"fmt"
	"net/http"

	"github.com/pkordes/pueblos-core/internal/domain"
)

type notificationWire struct {
	ID      looseInt `json:"id"`
	Type    string   `json:"tipo"`
	Title   string   `json:"titulo"`
	Message string   `json:"mensaje"`
	Date    string   `json:"fecha"`
}

// ListNotifications returns the notification feed in the order the remote sent it.
func (c *Client) ListNotifications(ctx context.Context) ([]domain.Notification, error) {
	var raw []notificationWire
	if err := c.do(ctx, http.MethodGet, notificationsPath, nil, nil, &raw); err != nil {
		return nil, fmt.Errorf("remote.Client.ListNotifications: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("remote.Client.ListNotifications: %w: null notification list", domain.ErrMalformed)
	}

	feed := make([]domain.Notification, 0, len(raw))
	for _, w := range raw {
		feed = append(feed, domain.Notification{
			ID:      int64(w.ID),
			Type:    w.Type,
			Title:   w.Title,
			Message: w.Message,
			Date:    w.Date,
		})
	}
	return feed, nil
}

// RegisterPushToken records the device push token for a user.
func (c *Client) RegisterPushToken(ctx context.Context, reg domain.PushRegistration) error {
	if err := c.do(ctx, http.MethodPost, pushTokenPath, nil, reg, nil); err != nil {
		return fmt.Errorf("remote.Client.RegisterPushToken: %w", err)
	}
	return nil
}

package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pkordes/pueblos-core/internal/domain"
)

// visitWire mirrors one element of the visit-records endpoint.
// Older plugin versions name the foreign key id_lugar instead of pueblo_id.
type visitWire struct {
	PuebloID  looseString `json:"pueblo_id"`
	IDLugar   looseString `json:"id_lugar"`
	Checked   looseBool   `json:"checked"`
	Stars     looseInt    `json:"estrellas"`
	Type      string      `json:"tipo"`
	VisitedAt string      `json:"fecha_visita"`
}

func (w visitWire) toDomain() domain.VisitRecord {
	id := string(w.PuebloID)
	if id == "" {
		id = string(w.IDLugar)
	}
	t := domain.VisitType(w.Type)
	if t != domain.VisitAuto {
		t = domain.VisitManual
	}
	return domain.VisitRecord{
		PlaceID:   id,
		Checked:   bool(w.Checked),
		Stars:     int(w.Stars),
		Type:      t,
		VisitedAt: w.VisitedAt,
	}
}

// visitUpdateWire is the body of the visit-update endpoint.
type visitUpdateWire struct {
	UserID  string `json:"user_id"`
	PlaceID string `json:"pueblo_id"`
	Checked int    `json:"checked"`
	Type    string `json:"tipo"`
	Stars   int    `json:"estrellas"`
}

// updateResultWire is the response of the visit-update endpoint.
type updateResultWire struct {
	Success looseBool `json:"success"`
	Message string    `json:"message"`
}

// ListVisits returns every visit record stored for userID.
// Duplicates are returned as-is; collapsing them is the caller's concern.
func (c *Client) ListVisits(ctx context.Context, userID string) ([]domain.VisitRecord, error) {
	var raw []visitWire
	q := url.Values{"user_id": {userID}}
	if err := c.do(ctx, http.MethodGet, visitsPath, q, nil, &raw); err != nil {
		return nil, fmt.Errorf("remote.Client.ListVisits: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("remote.Client.ListVisits: %w: null visit list", domain.ErrMalformed)
	}

	records := make([]domain.VisitRecord, 0, len(raw))
	for _, w := range raw {
		records = append(records, w.toDomain())
	}
	return records, nil
}

// UpdateVisit stores the visited flag, star rating and visit type of one place.
// Returns domain.ErrRejected when the remote answers {"success": false}.
func (c *Client) UpdateVisit(ctx context.Context, u domain.VisitUpdate) error {
	body := visitUpdateWire{
		UserID:  u.UserID,
		PlaceID: u.PlaceID,
		Type:    string(u.Type),
		Stars:   u.Stars,
	}
	if u.Checked {
		body.Checked = 1
	}

	var res updateResultWire
	if err := c.do(ctx, http.MethodPost, visitsPath, nil, body, &res); err != nil {
		return fmt.Errorf("remote.Client.UpdateVisit: %w", err)
	}
	if !res.Success {
		msg := res.Message
		if msg == "" {
			msg = "no message"
		}
		return fmt.Errorf("remote.Client.UpdateVisit: %w: %s", domain.ErrRejected, msg)
	}
	return nil
}

package remote

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"github.com/pkordes/pueblos-core/internal/domain"
)

// placeWire mirrors one element of the place list endpoint.
type placeWire struct {
	ID        looseString `json:"id"`
	Name      string      `json:"nombre"`
	Province  string      `json:"provincia"`
	Region    string      `json:"comunidad_autonoma"`
	Latitude  looseFloat  `json:"latitud"`
	Longitude looseFloat  `json:"longitud"`
	Image     string      `json:"imagen"`
	Slug      string      `json:"slug"`
	Modified  string      `json:"modified"`
	Created   string      `json:"created"`
}

func (w placeWire) toDomain() domain.Place {
	return domain.Place{
		ID:        string(w.ID),
		Name:      w.Name,
		Province:  w.Province,
		Region:    w.Region,
		Latitude:  float64(w.Latitude),
		Longitude: float64(w.Longitude),
		ImageURL:  w.Image,
		Slug:      w.Slug,
		Modified:  w.Modified,
		Created:   w.Created,
	}
}

// placeDetailWire adds the fields only the detail endpoint returns.
type placeDetailWire struct {
	placeWire
	Description string   `json:"descripcion"`
	Gallery     []string `json:"galeria"`
	Link        string   `json:"link"`
}

// ListPlaces returns the master place list.
// Entries without an id are skipped. A null body is malformed; an empty array is not.
func (c *Client) ListPlaces(ctx context.Context) ([]domain.Place, error) {
	var raw []placeWire
	if err := c.do(ctx, http.MethodGet, placesPath, nil, nil, &raw); err != nil {
		return nil, fmt.Errorf("remote.Client.ListPlaces: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("remote.Client.ListPlaces: %w: null place list", domain.ErrMalformed)
	}

	places := make([]domain.Place, 0, len(raw))
	for _, w := range raw {
		if w.ID == "" {
			continue
		}
		places = append(places, w.toDomain())
	}
	return places, nil
}

// GetPlace returns the detail record of one place.
// Returns domain.ErrNotFound when the remote answers 404.
func (c *Client) GetPlace(ctx context.Context, id string) (domain.PlaceDetail, error) {
	var raw placeDetailWire
	path := placesPath + "/" + url.PathEscape(id)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &raw); err != nil {
		return domain.PlaceDetail{}, fmt.Errorf("remote.Client.GetPlace: %w", err)
	}
	if raw.ID == "" {
		return domain.PlaceDetail{}, fmt.Errorf("remote.Client.GetPlace: %w: missing id", domain.ErrMalformed)
	}
	return domain.PlaceDetail{
		Place:       raw.toDomain(),
		Description: raw.Description,
		Gallery:     raw.Gallery,
		Link:        raw.Link,
	}, nil
}

package domain

import "fmt"

// VisitType records how a visit was registered.
type VisitType string

const (
	// VisitAuto is a visit detected by geolocation or QR scan.
	VisitAuto VisitType = "auto"
	// VisitManual is a visit toggled by the user.
	VisitManual VisitType = "manual"
)

// MaxStars is the highest star rating a user can give a place.
const MaxStars = 5

// VisitRecord is a user's recorded relationship to a Place.
// VisitedAt is the raw fecha_visita string as sent by the remote; empty when absent.
type VisitRecord struct {
	PlaceID   string
	Checked   bool
	Stars     int
	Type      VisitType
	VisitedAt string
}

// PlaceVisit is one entry of the reconciled view: a Place plus the resolved
// visit fields. Places without a VisitRecord carry the unvisited defaults
// (Checked=false, Stars=0, Type=manual, VisitedAt="").
type PlaceVisit struct {
	Place
	Checked   bool      `json:"checked"`
	Stars     int       `json:"estrellas"`
	Type      VisitType `json:"tipo"`
	VisitedAt string    `json:"fecha_visita,omitempty"`
}

// VisitUpdate is the payload sent to the remote visit-update endpoint.
type VisitUpdate struct {
	UserID  string
	PlaceID string
	Checked bool
	Type    VisitType
	Stars   int
}

// VisitStats holds the aggregates derived from the full reconciled view.
type VisitStats struct {
	TotalPlaces int `json:"total_places"`
	Visited     int `json:"visited"`
	// TotalPoints is the sum of stars across every entry.
	TotalPoints int `json:"total_points"`
	// AverageStars is the mean star rating over visited entries, 0 when none.
	AverageStars float64 `json:"average_stars"`
	// CompletionPct is Visited / TotalPlaces * 100, 0 when there are no places.
	CompletionPct   float64        `json:"completion_pct"`
	VisitedByRegion map[string]int `json:"visited_by_region"`
}

// ValidateStars rejects ratings outside 0..MaxStars.
func ValidateStars(stars int) error {
	if stars < 0 || stars > MaxStars {
		return fmt.Errorf("%w: estrellas must be between 0 and %d", ErrValidation, MaxStars)
	}
	return nil
}

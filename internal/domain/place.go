// Package domain contains the core data types for the Pueblos companion core.
// It is imported by every other internal package (reconcile, remote, repo,
// service, handler) and holds no I/O.
package domain

// Place is a tourist destination from the remote master list.
// Places are read-only reference data. ID is the merge key that matches
// VisitRecord.PlaceID.
type Place struct {
	ID       string `json:"id"`
	Name     string `json:"nombre"`
	Province string `json:"provincia,omitempty"`
	Region   string `json:"comunidad_autonoma,omitempty"`
	// Latitude and Longitude are zero when the remote has no coordinates.
	Latitude  float64 `json:"latitud,omitempty"`
	Longitude float64 `json:"longitud,omitempty"`
	ImageURL  string  `json:"imagen,omitempty"`
	Slug      string  `json:"slug,omitempty"`
	Modified  string  `json:"modified,omitempty"`
	Created   string  `json:"created,omitempty"`
}

// HasCoordinates reports whether both coordinates are known.
func (p Place) HasCoordinates() bool {
	return p.Latitude != 0 && p.Longitude != 0
}

// PlaceDetail is the full record returned by the place detail endpoint.
type PlaceDetail struct {
	Place
	Description string   `json:"descripcion,omitempty"`
	Gallery     []string `json:"galeria,omitempty"`
	Link        string   `json:"link,omitempty"`
}

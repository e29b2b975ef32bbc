package handler

import (
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"

	"github.com/pkordes/pueblos-core/internal/domain"
	"github.com/pkordes/pueblos-core/internal/reconcile"
	"github.com/pkordes/pueblos-core/internal/service"
)

// Pagination is the paging envelope of list responses.
type Pagination struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
	Total int `json:"total"`
}

// PlaceListResponse is the body of GET /places. Stats always cover the whole
// view, not just the filtered page.
type PlaceListResponse struct {
	Data       []domain.PlaceVisit        `json:"data"`
	Stats      domain.VisitStats          `json:"stats"`
	Mutations  map[string]domain.Mutation `json:"mutations"`
	Pagination Pagination                 `json:"pagination"`
}

// PlaceDetailResponse is the body of GET /places/{placeID}.
type PlaceDetailResponse struct {
	Place domain.PlaceDetail `json:"place"`
	// Visit is the user's reconciled state for the place, when it is in the view.
	Visit *domain.PlaceVisit `json:"visit,omitempty"`
}

// StarsRequest is the body of PUT /places/{placeID}/stars.
type StarsRequest struct {
	Stars *int `json:"estrellas"`
}

// ListPlaces handles GET /places.
// Every call reconciles the view from the remote. ?cached=true serves the
// in-memory view instead once one has been loaded. Supports ?page=, ?limit=,
// ?visited= and ?region=.
func (s *Server) ListPlaces(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var (
		page, limit *int
		visited     *bool
		cached      *bool
		region      *string
	)
	for name, dest := range map[string]any{
		"page": &page, "limit": &limit, "visited": &visited, "cached": &cached, "region": &region,
	} {
		if err := runtime.BindQueryParameter("form", true, false, name, q, dest); err != nil {
			writeJSON(w, http.StatusUnprocessableEntity, requestBody("invalid query parameter "+name))
			return
		}
	}

	snap := s.places.Snapshot()
	if snap.LoadedAt.IsZero() || cached == nil || !*cached {
		loaded, err := s.places.Load(r.Context())
		if err != nil {
			s.writeServiceError(w, r, err, "places not found")
			return
		}
		snap = loaded
	}

	filter := reconcile.Filter{Visited: visited}
	if region != nil {
		filter.Region = *region
	}
	views := filter.Apply(snap.Places)

	params := domain.NewPaginationParams(page, limit)
	start, end := params.Bounds(len(views))
	writeJSON(w, http.StatusOK, PlaceListResponse{
		Data:      slices.Clip(views[start:end]),
		Stats:     snap.Stats,
		Mutations: snap.Mutations,
		Pagination: Pagination{
			Page:  params.Page,
			Limit: params.Limit,
			Total: len(views),
		},
	})
}

// GetPlace handles GET /places/{placeID}.
func (s *Server) GetPlace(w http.ResponseWriter, r *http.Request) {
	placeID, ok := bindPlaceID(w, r)
	if !ok {
		return
	}

	detail, err := s.places.PlaceDetail(r.Context(), placeID)
	if err != nil {
		s.writeServiceError(w, r, err, "place not found")
		return
	}

	resp := PlaceDetailResponse{Place: detail}
	if v, found := findVisit(s.places.Snapshot(), placeID); found {
		resp.Visit = &v
	}
	writeJSON(w, http.StatusOK, resp)
}

// TogglePlace handles POST /places/{placeID}/toggle.
func (s *Server) TogglePlace(w http.ResponseWriter, r *http.Request) {
	placeID, ok := bindPlaceID(w, r)
	if !ok {
		return
	}

	v, err := s.places.ToggleVisited(r.Context(), placeID)
	if err != nil {
		s.writeServiceError(w, r, err, "place not found")
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// ChangeStars handles PUT /places/{placeID}/stars.
func (s *Server) ChangeStars(w http.ResponseWriter, r *http.Request) {
	placeID, ok := bindPlaceID(w, r)
	if !ok {
		return
	}

	var body StarsRequest
	if !decodeBody(w, r, &body) {
		return
	}
	if body.Stars == nil {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("estrellas is required"))
		return
	}

	v, err := s.places.ChangeStars(r.Context(), placeID, *body.Stars)
	if err != nil {
		s.writeServiceError(w, r, err, "place not found")
		return
	}
	writeJSON(w, http.StatusOK, v)
}

func bindPlaceID(w http.ResponseWriter, r *http.Request) (string, bool) {
	var placeID string
	err := runtime.BindStyledParameterWithOptions("simple", "placeID", chi.URLParam(r, "placeID"), &placeID,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil || placeID == "" {
		writeJSON(w, http.StatusUnprocessableEntity, requestBody("invalid place id"))
		return "", false
	}
	return placeID, true
}

func findVisit(snap service.VisitedSnapshot, placeID string) (domain.PlaceVisit, bool) {
	i := slices.IndexFunc(snap.Places, func(v domain.PlaceVisit) bool { return v.ID == placeID })
	if i < 0 {
		return domain.PlaceVisit{}, false
	}
	return snap.Places[i], true
}

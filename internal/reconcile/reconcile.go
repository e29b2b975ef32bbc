// Package reconcile merges a user's visit records with the master place list
// into a single deduplicated, ordered view and derives its statistics.
// Everything here is pure: no I/O, no shared state.
package reconcile

import (
	"cmp"
	"slices"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/pkordes/pueblos-core/internal/domain"
)

// timestampLayouts are the fecha_visita formats the remote is known to emit,
// tried in order. WordPress stores MySQL DATETIME, newer endpoints send RFC 3339.
var timestampLayouts = []string{
	"2006-01-02 15:04:05",
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// ParseVisitTime parses a fecha_visita value. ok is false for empty or
// unrecognised strings. Zone-less layouts are read as UTC.
func ParseVisitTime(s string) (t time.Time, ok bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Later reports whether candidate should replace current when both records
// target the same place. It is true only when both timestamps parse and
// candidate is strictly after current; every other case keeps current.
func Later(candidate, current string) bool {
	c, okC := ParseVisitTime(candidate)
	k, okK := ParseVisitTime(current)
	if !okC || !okK {
		return false
	}
	return c.After(k)
}

// Dedup collapses records to one per place id, keyed by PlaceID.
// Records without a place id are ignored.
func Dedup(records []domain.VisitRecord) map[string]domain.VisitRecord {
	byID := make(map[string]domain.VisitRecord, len(records))
	for _, r := range records {
		if r.PlaceID == "" {
			continue
		}
		cur, seen := byID[r.PlaceID]
		if !seen || Later(r.VisitedAt, cur.VisitedAt) {
			byID[r.PlaceID] = r
		}
	}
	return byID
}

// Merge returns one PlaceVisit per distinct id in places, filled from the
// winning VisitRecord when one exists and from the unvisited defaults
// otherwise. Records whose place is missing from places carry no display
// data and are dropped. The result is ordered by Sort.
func Merge(records []domain.VisitRecord, places []domain.Place) []domain.PlaceVisit {
	byID := Dedup(records)

	out := make([]domain.PlaceVisit, 0, len(places))
	seen := make(map[string]struct{}, len(places))
	for _, p := range places {
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}

		v := domain.PlaceVisit{Place: p, Type: domain.VisitManual}
		if r, ok := byID[p.ID]; ok {
			v.Checked = r.Checked
			v.Stars = r.Stars
			v.VisitedAt = r.VisitedAt
			if r.Type != "" {
				v.Type = r.Type
			}
		}
		out = append(out, v)
	}

	Sort(out)
	return out
}

// Sort orders views visited-first, then by name using Spanish collation
// (case-insensitive, so "Ávila" sorts next to "Avila"), then by id so the
// order is total and independent of input order.
func Sort(views []domain.PlaceVisit) {
	// Collators are not safe for concurrent use; build one per call.
	c := collate.New(language.Spanish, collate.IgnoreCase)
	slices.SortStableFunc(views, func(a, b domain.PlaceVisit) int {
		if a.Checked != b.Checked {
			if a.Checked {
				return -1
			}
			return 1
		}
		if n := c.CompareString(a.Name, b.Name); n != 0 {
			return n
		}
		return cmp.Compare(a.ID, b.ID)
	})
}

// Summarize derives the aggregates over the full view.
func Summarize(views []domain.PlaceVisit) domain.VisitStats {
	stats := domain.VisitStats{
		TotalPlaces:     len(views),
		VisitedByRegion: map[string]int{},
	}

	visitedStars := 0
	for _, v := range views {
		stats.TotalPoints += v.Stars
		if !v.Checked {
			continue
		}
		stats.Visited++
		visitedStars += v.Stars
		if v.Region != "" {
			stats.VisitedByRegion[v.Region]++
		}
	}

	if stats.Visited > 0 {
		stats.AverageStars = float64(visitedStars) / float64(stats.Visited)
	}
	if stats.TotalPlaces > 0 {
		stats.CompletionPct = float64(stats.Visited) / float64(stats.TotalPlaces) * 100
	}
	return stats
}

// Filter holds the optional criteria applied to a view before pagination.
type Filter struct {
	// Visited, when non-nil, keeps only entries whose Checked equals *Visited.
	Visited *bool
	// Region, when non-empty, keeps only entries in that comunidad autónoma
	// (case-insensitive).
	Region string
}

// Apply returns the entries of views matching f, preserving order.
func (f Filter) Apply(views []domain.PlaceVisit) []domain.PlaceVisit {
	out := make([]domain.PlaceVisit, 0, len(views))
	for _, v := range views {
		if f.Visited != nil && v.Checked != *f.Visited {
			continue
		}
		if f.Region != "" && !strings.EqualFold(v.Region, f.Region) {
			continue
		}
		out = append(out, v)
	}
	return out
}

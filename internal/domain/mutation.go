package domain

import (
	"time"

	"github.com/google/uuid"
)

// MutationKind names the remote-backed change applied to a place.
type MutationKind string

const (
	MutationToggle MutationKind = "toggle"
	MutationStars  MutationKind = "stars"
)

// MutationState is the lifecycle of a mutation: pending, then applied or failed.
type MutationState string

const (
	MutationPending MutationState = "pending"
	MutationApplied MutationState = "applied"
	MutationFailed  MutationState = "failed"
)

// Mutation tracks the latest remote-backed change for a single place so the
// presentation layer can tell "in flight" from "settled".
type Mutation struct {
	ID        uuid.UUID     `json:"id"`
	PlaceID   string        `json:"place_id"`
	Kind      MutationKind  `json:"kind"`
	State     MutationState `json:"state"`
	Error     string        `json:"error,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	SettledAt *time.Time    `json:"settled_at,omitempty"` // nil while pending
}

// Settled reports whether the mutation is no longer in flight.
func (m Mutation) Settled() bool {
	return m.State != MutationPending
}

package types

import (
	"strings"
	"time"
)

// RelationState is a time-bounded snapshot of a relationship between two
// entities. States are never deleted; a relationship change ends the old
// state and opens a new one. For a fixed unordered entity pair and
// relation type, state intervals must not overlap.
type RelationState struct {
	RelationID string    `json:"relation_id"`
	UniverseID string    `json:"universe_id"`
	OriginID   string    `json:"origin_id,omitempty"`
	Type       string    `json:"type"`
	EntityA    string    `json:"entity_a"`
	EntityB    string    `json:"entity_b"`
	StartedAt  time.Time `json:"started_at"`
	// EndedAt is nil while the state is still in effect; the interval is
	// half-open [StartedAt, EndedAt).
	EndedAt *time.Time `json:"ended_at,omitempty"`
	// Provenance scenes: where the state was established, where it was
	// modified (repeatable, in order), and where it ended. Their story
	// sequence indexes must be non-decreasing.
	SetInScene      string    `json:"set_in_scene,omitempty"`
	ChangedInScenes []string  `json:"changed_in_scenes,omitempty"`
	EndedInScene    string    `json:"ended_in_scene,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// StableID returns the cross-universe comparison identity of the state.
func (r *RelationState) StableID() string {
	if r.OriginID != "" {
		return r.OriginID
	}
	return r.RelationID
}

// PairKey returns the unordered (entity pair, type) key under which the
// non-overlap invariant is enforced.
func (r *RelationState) PairKey() string {
	a, b := r.EntityA, r.EntityB
	if strings.Compare(a, b) > 0 {
		a, b = b, a
	}
	return a + "\x00" + b + "\x00" + r.Type
}

// IntervalValid reports whether the state's interval is well-formed:
// open-ended or with start strictly before end.
func (r *RelationState) IntervalValid() bool {
	if r.EndedAt == nil {
		return true
	}
	return r.StartedAt.Before(*r.EndedAt)
}

// Overlaps reports whether two half-open intervals [StartedAt, EndedAt)
// intersect. A nil end is treated as +infinity.
func (r *RelationState) Overlaps(o *RelationState) bool {
	// r starts at or after o ends: no overlap.
	if o.EndedAt != nil && !r.StartedAt.Before(*o.EndedAt) {
		return false
	}
	// o starts at or after r ends: no overlap.
	if r.EndedAt != nil && !o.StartedAt.Before(*r.EndedAt) {
		return false
	}
	return true
}

// EffectiveAt reports whether the state covers the given instant.
func (r *RelationState) EffectiveAt(at time.Time) bool {
	if at.Before(r.StartedAt) {
		return false
	}
	return r.EndedAt == nil || at.Before(*r.EndedAt)
}

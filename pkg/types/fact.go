package types

import "time"

// FactParticipant binds an entity to a fact in a named role. Participant
// order is significant and preserved.
type FactParticipant struct {
	EntityID string `json:"entity_id"`
	Role     string `json:"role,omitempty"`
}

// Fact is a time-anchored statement recorded in a scene. The temporal
// anchor is either a single instant (At) or an interval (SpanStart /
// SpanEnd); a nil SpanEnd leaves the interval open.
type Fact struct {
	FactID     string `json:"fact_id"`
	UniverseID string `json:"universe_id"`
	OriginID   string `json:"origin_id,omitempty"`
	// SceneID is the provenance scene the fact was recorded in.
	SceneID      string            `json:"scene_id"`
	Description  string            `json:"description"`
	At           *time.Time        `json:"at,omitempty"`
	SpanStart    *time.Time        `json:"span_start,omitempty"`
	SpanEnd      *time.Time        `json:"span_end,omitempty"`
	Participants []FactParticipant `json:"participants,omitempty"`
	Confidence   float64           `json:"confidence,omitempty"`
	// DerivedFrom points at the fact(s) this one was inferred from.
	// Derivation chains must stay acyclic.
	DerivedFrom []string  `json:"derived_from,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// StableID returns the cross-universe comparison identity of the fact.
func (f *Fact) StableID() string {
	if f.OriginID != "" {
		return f.OriginID
	}
	return f.FactID
}

// SpanValid reports whether the fact's interval anchor is well-formed:
// either absent, open-ended, or with start strictly before end.
func (f *Fact) SpanValid() bool {
	if f.SpanStart == nil || f.SpanEnd == nil {
		return true
	}
	return f.SpanStart.Before(*f.SpanEnd)
}

package types

import "time"

// Axiom semantics tags. Existence and min_count axioms are checked as
// coverage; constraint axioms are declarative only.
const (
	AxiomExistence  = "existence"
	AxiomMinCount   = "min_count"
	AxiomConstraint = "constraint"
)

// validAxiomSemantics is the set of recognized axiom semantics tags.
var validAxiomSemantics = map[string]bool{
	AxiomExistence:  true,
	AxiomMinCount:   true,
	AxiomConstraint: true,
}

// ValidAxiomSemantics reports whether s is a recognized semantics tag.
func ValidAxiomSemantics(s string) bool { return validAxiomSemantics[s] }

// Axiom declares a rule about entity instantiation within a universe.
// A story-scoped axiom overrides a universe-wide one for the same
// (semantics, archetype) pair — nearest scope wins.
type Axiom struct {
	AxiomID    string `json:"axiom_id"`
	UniverseID string `json:"universe_id"`
	OriginID   string `json:"origin_id,omitempty"`
	// StoryID narrows the axiom to one story; empty means universe-wide.
	StoryID     string    `json:"story_id,omitempty"`
	Semantics   string    `json:"semantics"`
	Archetype   string    `json:"archetype"`
	MinCount    int       `json:"min_count,omitempty"`
	Description string    `json:"description,omitempty"`
	Enabled     bool      `json:"enabled"`
	CreatedAt   time.Time `json:"created_at"`
}

// StableID returns the cross-universe comparison identity of the axiom.
func (a *Axiom) StableID() string {
	if a.OriginID != "" {
		return a.OriginID
	}
	return a.AxiomID
}

// Threshold returns the entity count the axiom demands: 1 for existence,
// MinCount for min_count, 0 otherwise.
func (a *Axiom) Threshold() int {
	switch a.Semantics {
	case AxiomExistence:
		return 1
	case AxiomMinCount:
		return a.MinCount
	}
	return 0
}

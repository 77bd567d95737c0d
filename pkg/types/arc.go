package types

import "time"

// Arc is a sequenced container of stories within a universe. Within one
// universe, arc sequence indexes are contiguous starting at 1.
type Arc struct {
	ArcID         string `json:"arc_id"`
	UniverseID    string `json:"universe_id"`
	OriginID      string `json:"origin_id,omitempty"`
	Title         string `json:"title"`
	SequenceIndex int    `json:"sequence_index"`
	// NextArcID is the forward link to the next sibling arc, empty when
	// the arc is last. The link graph per universe must stay acyclic.
	NextArcID string    `json:"next_arc_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// StableID returns the cross-universe comparison identity of the arc.
func (a *Arc) StableID() string {
	if a.OriginID != "" {
		return a.OriginID
	}
	return a.ArcID
}

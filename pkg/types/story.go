package types

import "time"

// Story is a sequenced container of scenes. Stories sit either directly
// under their universe or under an arc; sequence indexes are contiguous
// starting at 1 within one parent scope.
type Story struct {
	StoryID    string `json:"story_id"`
	UniverseID string `json:"universe_id"`
	OriginID   string `json:"origin_id,omitempty"`
	// ArcID is the owning arc, empty when the story hangs directly off
	// the universe.
	ArcID         string    `json:"arc_id,omitempty"`
	Title         string    `json:"title"`
	Summary       string    `json:"summary,omitempty"`
	SequenceIndex int       `json:"sequence_index"`
	NextStoryID   string    `json:"next_story_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// StableID returns the cross-universe comparison identity of the story.
func (s *Story) StableID() string {
	if s.OriginID != "" {
		return s.OriginID
	}
	return s.StoryID
}

// ParentScope returns the container the story's sequence index is scoped
// to: the arc when set, the universe otherwise.
func (s *Story) ParentScope() string {
	if s.ArcID != "" {
		return s.ArcID
	}
	return s.UniverseID
}

package types

import "time"

// Scene is a sequenced container of narrative moments within a story.
// Scene sequence indexes are contiguous starting at 1 within one story.
type Scene struct {
	SceneID       string     `json:"scene_id"`
	UniverseID    string     `json:"universe_id"`
	OriginID      string     `json:"origin_id,omitempty"`
	StoryID       string     `json:"story_id"`
	Title         string     `json:"title"`
	SequenceIndex int        `json:"sequence_index"`
	NextSceneID   string     `json:"next_scene_id,omitempty"`
	When          *time.Time `json:"when,omitempty"`
	Location      string     `json:"location,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// StableID returns the cross-universe comparison identity of the scene.
func (s *Scene) StableID() string {
	if s.OriginID != "" {
		return s.OriginID
	}
	return s.SceneID
}

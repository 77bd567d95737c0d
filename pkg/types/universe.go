package types

import "time"

// Universe is an isolated, branchable partition of the narrative graph.
// Universes form a tree under DerivesFrom; root universes have no parent.
type Universe struct {
	UniverseID  string `json:"universe_id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	DerivesFrom string `json:"derives_from,omitempty"`
	// OriginSceneID marks the scene a branch was forked at, when the
	// universe was created by branching rather than a wholesale clone.
	OriginSceneID string    `json:"origin_scene_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// IsRoot reports whether the universe has no parent.
func (u *Universe) IsRoot() bool { return u.DerivesFrom == "" }

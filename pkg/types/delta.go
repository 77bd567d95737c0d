package types

import "time"

// DeltaBatch is the single write primitive: a structured, atomic batch of
// proposed creates and updates. A batch is validated as a whole and either
// fully applied or fully rejected.
type DeltaBatch struct {
	UniverseID string `json:"universe_id"`
	// SceneID is the optional context scene the batch was recorded
	// against, used for participant checks and provenance defaults.
	SceneID string `json:"scene_id,omitempty"`

	NewArcs      []*Arc           `json:"new_arcs,omitempty"`
	NewStories   []*Story         `json:"new_stories,omitempty"`
	NewScenes    []*Scene         `json:"new_scenes,omitempty"`
	NewEntities  []*Entity        `json:"new_entities,omitempty"`
	NewFacts     []*Fact          `json:"new_facts,omitempty"`
	NewRelations []*RelationState `json:"new_relations,omitempty"`
	NewAxioms    []*Axiom         `json:"new_axioms,omitempty"`

	EntityUpdates   []EntityUpdate   `json:"entity_updates,omitempty"`
	StoryUpdates    []StoryUpdate    `json:"story_updates,omitempty"`
	SceneUpdates    []SceneUpdate    `json:"scene_updates,omitempty"`
	FactUpdates     []FactUpdate     `json:"fact_updates,omitempty"`
	RelationUpdates []RelationUpdate `json:"relation_updates,omitempty"`
}

// EntityUpdate mutates an entity's attribute map. Keys present in Attrs
// replace the stored values; when Replace is set the whole map is swapped
// for Attrs instead of merged. Name, when non-empty, renames the entity.
type EntityUpdate struct {
	EntityID string `json:"entity_id"`
	Name     string `json:"name,omitempty"`
	Attrs    Attrs  `json:"attrs,omitempty"`
	Replace  bool   `json:"replace,omitempty"`
}

// StoryUpdate mutates story fields; nil pointers leave fields untouched.
type StoryUpdate struct {
	StoryID       string  `json:"story_id"`
	Title         *string `json:"title,omitempty"`
	Summary       *string `json:"summary,omitempty"`
	SequenceIndex *int    `json:"sequence_index,omitempty"`
	NextStoryID   *string `json:"next_story_id,omitempty"`
}

// SceneUpdate mutates scene fields; nil pointers leave fields untouched.
type SceneUpdate struct {
	SceneID       string  `json:"scene_id"`
	Title         *string `json:"title,omitempty"`
	SequenceIndex *int    `json:"sequence_index,omitempty"`
	NextSceneID   *string `json:"next_scene_id,omitempty"`
	Location      *string `json:"location,omitempty"`
}

// FactUpdate mutates fact fields; nil pointers leave fields untouched.
type FactUpdate struct {
	FactID      string   `json:"fact_id"`
	Description *string  `json:"description,omitempty"`
	Confidence  *float64 `json:"confidence,omitempty"`
}

// RelationUpdate mutates a relation state, typically to end it.
// ChangedInScenes entries are appended to the stored provenance list.
// Reopen clears the ending entirely (EndedAt and EndedInScene) and takes
// precedence over the two pointer fields; a nil EndedAt alone leaves the
// stored ending untouched.
type RelationUpdate struct {
	RelationID      string     `json:"relation_id"`
	StartedAt       *time.Time `json:"started_at,omitempty"`
	EndedAt         *time.Time `json:"ended_at,omitempty"`
	EndedInScene    *string    `json:"ended_in_scene,omitempty"`
	Reopen          bool       `json:"reopen,omitempty"`
	ChangedInScenes []string   `json:"changed_in_scenes,omitempty"`
}

// Empty reports whether the batch proposes no changes at all.
func (d *DeltaBatch) Empty() bool {
	return len(d.NewArcs) == 0 && len(d.NewStories) == 0 && len(d.NewScenes) == 0 &&
		len(d.NewEntities) == 0 && len(d.NewFacts) == 0 && len(d.NewRelations) == 0 &&
		len(d.NewAxioms) == 0 && len(d.EntityUpdates) == 0 && len(d.StoryUpdates) == 0 &&
		len(d.SceneUpdates) == 0 && len(d.FactUpdates) == 0 && len(d.RelationUpdates) == 0
}

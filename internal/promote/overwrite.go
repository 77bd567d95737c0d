package promote

import "github.com/storymesh/weft/pkg/types"

// overwriteChanged appends update entries for rows present in both
// universes but diverged, pushing the source's version onto the target row.
// Last writer wins: the source snapshot is taken as authoritative.
func overwriteChanged(d *types.TypedDiff, source, target *types.UniverseSnapshot, delta *types.DeltaBatch, remap func(string) string) []string {
	var applied []string

	for _, change := range d.Kind(types.KindEntity).Changed {
		src := source.Entities[change.StableID]
		tgt := target.Entities[change.StableID]
		delta.EntityUpdates = append(delta.EntityUpdates, types.EntityUpdate{
			EntityID: tgt.EntityID,
			Name:     src.Name,
			Attrs:    src.Attrs.Clone(),
			Replace:  true,
		})
		applied = append(applied, change.StableID)
	}

	for _, change := range d.Kind(types.KindStory).Changed {
		src := source.Stories[change.StableID]
		tgt := target.Stories[change.StableID]
		next := remap(src.NextStoryID)
		delta.StoryUpdates = append(delta.StoryUpdates, types.StoryUpdate{
			StoryID:       tgt.StoryID,
			Title:         &src.Title,
			Summary:       &src.Summary,
			SequenceIndex: &src.SequenceIndex,
			NextStoryID:   &next,
		})
		applied = append(applied, change.StableID)
	}

	for _, change := range d.Kind(types.KindScene).Changed {
		src := source.Scenes[change.StableID]
		tgt := target.Scenes[change.StableID]
		next := remap(src.NextSceneID)
		delta.SceneUpdates = append(delta.SceneUpdates, types.SceneUpdate{
			SceneID:       tgt.SceneID,
			Title:         &src.Title,
			SequenceIndex: &src.SequenceIndex,
			NextSceneID:   &next,
			Location:      &src.Location,
		})
		applied = append(applied, change.StableID)
	}

	for _, change := range d.Kind(types.KindFact).Changed {
		src := source.Facts[change.StableID]
		tgt := target.Facts[change.StableID]
		delta.FactUpdates = append(delta.FactUpdates, types.FactUpdate{
			FactID:      tgt.FactID,
			Description: &src.Description,
			Confidence:  &src.Confidence,
		})
		applied = append(applied, change.StableID)
	}

	for _, change := range d.Kind(types.KindRelation).Changed {
		src := source.Relations[change.StableID]
		tgt := target.Relations[change.StableID]
		u := types.RelationUpdate{
			RelationID: tgt.RelationID,
			StartedAt:  &src.StartedAt,
		}
		if src.EndedAt == nil {
			// The state is open again in the source (a branch taken
			// before the ending): clear the target's ending outright.
			u.Reopen = true
		} else {
			endedIn := remap(src.EndedInScene)
			u.EndedAt = src.EndedAt
			u.EndedInScene = &endedIn
		}
		delta.RelationUpdates = append(delta.RelationUpdates, u)
		applied = append(applied, change.StableID)
	}

	return applied
}

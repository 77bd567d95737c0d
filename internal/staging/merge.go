package staging

import "github.com/storymesh/weft/pkg/types"

// Merge folds staged batches into one, in staging order. Creates with the
// same explicit id collapse to the latest version; updates to the same row
// merge field-wise with later batches winning, entity attribute maps
// merging per key.
func Merge(universeID string, batches []*types.DeltaBatch) *types.DeltaBatch {
	out := &types.DeltaBatch{UniverseID: universeID}
	for _, b := range batches {
		if b.SceneID != "" {
			out.SceneID = b.SceneID
		}
		out.NewArcs = mergeByID(out.NewArcs, b.NewArcs, func(a *types.Arc) string { return a.ArcID })
		out.NewStories = mergeByID(out.NewStories, b.NewStories, func(s *types.Story) string { return s.StoryID })
		out.NewScenes = mergeByID(out.NewScenes, b.NewScenes, func(s *types.Scene) string { return s.SceneID })
		out.NewEntities = mergeByID(out.NewEntities, b.NewEntities, func(e *types.Entity) string { return e.EntityID })
		out.NewFacts = mergeByID(out.NewFacts, b.NewFacts, func(f *types.Fact) string { return f.FactID })
		out.NewRelations = mergeByID(out.NewRelations, b.NewRelations, func(r *types.RelationState) string { return r.RelationID })
		out.NewAxioms = mergeByID(out.NewAxioms, b.NewAxioms, func(a *types.Axiom) string { return a.AxiomID })

		for _, u := range b.EntityUpdates {
			out.EntityUpdates = mergeEntityUpdate(out.EntityUpdates, u)
		}
		for _, u := range b.StoryUpdates {
			out.StoryUpdates = mergeStoryUpdate(out.StoryUpdates, u)
		}
		for _, u := range b.SceneUpdates {
			out.SceneUpdates = mergeSceneUpdate(out.SceneUpdates, u)
		}
		for _, u := range b.FactUpdates {
			out.FactUpdates = mergeFactUpdate(out.FactUpdates, u)
		}
		for _, u := range b.RelationUpdates {
			out.RelationUpdates = mergeRelationUpdate(out.RelationUpdates, u)
		}
	}
	return out
}

// mergeByID appends items, replacing an earlier item with the same
// non-empty id in place. Items without ids always append.
func mergeByID[T any](existing, incoming []T, id func(T) string) []T {
	for _, item := range incoming {
		key := id(item)
		replaced := false
		if key != "" {
			for i, prev := range existing {
				if id(prev) == key {
					existing[i] = item
					replaced = true
					break
				}
			}
		}
		if !replaced {
			existing = append(existing, item)
		}
	}
	return existing
}

func mergeEntityUpdate(existing []types.EntityUpdate, u types.EntityUpdate) []types.EntityUpdate {
	for i, prev := range existing {
		if prev.EntityID != u.EntityID {
			continue
		}
		if u.Replace {
			existing[i] = u
			return existing
		}
		merged := prev
		if u.Name != "" {
			merged.Name = u.Name
		}
		if len(u.Attrs) > 0 {
			if merged.Attrs == nil {
				merged.Attrs = types.Attrs{}
			} else {
				merged.Attrs = merged.Attrs.Clone()
			}
			for k, v := range u.Attrs {
				merged.Attrs[k] = v
			}
		}
		existing[i] = merged
		return existing
	}
	return append(existing, u)
}

func mergeStoryUpdate(existing []types.StoryUpdate, u types.StoryUpdate) []types.StoryUpdate {
	for i, prev := range existing {
		if prev.StoryID != u.StoryID {
			continue
		}
		if u.Title != nil {
			prev.Title = u.Title
		}
		if u.Summary != nil {
			prev.Summary = u.Summary
		}
		if u.SequenceIndex != nil {
			prev.SequenceIndex = u.SequenceIndex
		}
		if u.NextStoryID != nil {
			prev.NextStoryID = u.NextStoryID
		}
		existing[i] = prev
		return existing
	}
	return append(existing, u)
}

func mergeSceneUpdate(existing []types.SceneUpdate, u types.SceneUpdate) []types.SceneUpdate {
	for i, prev := range existing {
		if prev.SceneID != u.SceneID {
			continue
		}
		if u.Title != nil {
			prev.Title = u.Title
		}
		if u.SequenceIndex != nil {
			prev.SequenceIndex = u.SequenceIndex
		}
		if u.NextSceneID != nil {
			prev.NextSceneID = u.NextSceneID
		}
		if u.Location != nil {
			prev.Location = u.Location
		}
		existing[i] = prev
		return existing
	}
	return append(existing, u)
}

func mergeFactUpdate(existing []types.FactUpdate, u types.FactUpdate) []types.FactUpdate {
	for i, prev := range existing {
		if prev.FactID != u.FactID {
			continue
		}
		if u.Description != nil {
			prev.Description = u.Description
		}
		if u.Confidence != nil {
			prev.Confidence = u.Confidence
		}
		existing[i] = prev
		return existing
	}
	return append(existing, u)
}

func mergeRelationUpdate(existing []types.RelationUpdate, u types.RelationUpdate) []types.RelationUpdate {
	for i, prev := range existing {
		if prev.RelationID != u.RelationID {
			continue
		}
		if u.StartedAt != nil {
			prev.StartedAt = u.StartedAt
		}
		if u.Reopen {
			prev.Reopen = true
			prev.EndedAt = nil
			prev.EndedInScene = nil
		}
		if u.EndedAt != nil {
			prev.EndedAt = u.EndedAt
			prev.Reopen = false
		}
		if u.EndedInScene != nil {
			prev.EndedInScene = u.EndedInScene
		}
		prev.ChangedInScenes = append(prev.ChangedInScenes, u.ChangedInScenes...)
		existing[i] = prev
		return existing
	}
	return append(existing, u)
}

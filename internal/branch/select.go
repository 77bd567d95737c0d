package branch

import (
	"fmt"

	"github.com/storymesh/weft/pkg/types"
)

// applySelector filters a source snapshot down to what the selector admits.
// Exclusions cascade: dropping a story drops its scenes, dropping a scene
// drops the facts recorded in it and trims relation provenance that falls
// beyond it. The returned snapshot still holds source rows.
func applySelector(snap *types.UniverseSnapshot, sel *types.BranchSelector) (*types.UniverseSnapshot, error) {
	if sel.Full() {
		return snap, nil
	}

	keepStory := func(rawID string) bool { return true }
	if len(sel.StoryIDs) > 0 {
		wanted := make(map[string]bool, len(sel.StoryIDs))
		for _, id := range sel.StoryIDs {
			wanted[id] = true
		}
		keepStory = func(rawID string) bool { return wanted[rawID] }
	}

	// Branch-at-scene: scenes of the branch scene's story beyond its
	// index are cut; other stories are untouched.
	cutStory, cutIndex := "", 0
	if sel.SceneID != "" {
		branchScene := snap.SceneByRawID(sel.SceneID)
		if branchScene == nil {
			return nil, fmt.Errorf("branch scene %s: %w", sel.SceneID, types.ErrNotFound)
		}
		cutStory, cutIndex = branchScene.StoryID, branchScene.SequenceIndex
	}

	keepScene := func(sc *types.Scene) bool {
		if !keepStory(sc.StoryID) {
			return false
		}
		if cutStory != "" && sc.StoryID == cutStory && sc.SequenceIndex > cutIndex {
			return false
		}
		if sel.MaxSceneIndex > 0 && sc.SequenceIndex > sel.MaxSceneIndex {
			return false
		}
		return true
	}

	keepEntity := func(rawID string) bool { return true }
	if len(sel.EntityIDs) > 0 {
		wanted := make(map[string]bool, len(sel.EntityIDs))
		for _, id := range sel.EntityIDs {
			wanted[id] = true
		}
		keepEntity = func(rawID string) bool { return wanted[rawID] }
	}

	out := types.NewUniverseSnapshot(snap.Universe)

	keptStories := make(map[string]bool)
	for stableID, st := range snap.Stories {
		if keepStory(st.StoryID) {
			out.Stories[stableID] = st
			keptStories[st.StoryID] = true
		}
	}
	// Arcs survive when any of their stories do; arcs with no stories at
	// all ride along on a full-story selection only.
	for stableID, a := range snap.Arcs {
		if len(sel.StoryIDs) == 0 {
			out.Arcs[stableID] = a
			continue
		}
		for _, st := range out.Stories {
			if st.ArcID == a.ArcID {
				out.Arcs[stableID] = a
				break
			}
		}
	}

	keptScenes := make(map[string]bool)
	for stableID, sc := range snap.Scenes {
		if keepScene(sc) {
			out.Scenes[stableID] = sc
			keptScenes[sc.SceneID] = true
		}
	}

	knownEntities := make(map[string]bool, len(snap.Entities))
	keptEntities := make(map[string]bool)
	for stableID, e := range snap.Entities {
		knownEntities[e.EntityID] = true
		if keepEntity(e.EntityID) {
			out.Entities[stableID] = e
			keptEntities[e.EntityID] = true
		}
	}

	for stableID, f := range snap.Facts {
		if f.SceneID != "" && !keptScenes[f.SceneID] {
			continue
		}
		if sel.FactsSince != nil && f.CreatedAt.Before(*sel.FactsSince) {
			continue
		}
		// A fact follows its participants out only when they are real
		// entities the selector dropped. Participants that never resolved
		// to an entity row are legal (they only warn at commit) and must
		// not take the fact with them.
		excluded := false
		for _, p := range f.Participants {
			if knownEntities[p.EntityID] && !keptEntities[p.EntityID] {
				excluded = true
				break
			}
		}
		if excluded {
			continue
		}
		out.Facts[stableID] = f
	}
	// Derivation sources may have been cut; the link is dropped with them.
	for _, f := range snap.Facts {
		if _, ok := out.Facts[f.StableID()]; !ok {
			continue
		}
		kept := f.DerivedFrom[:0:0]
		for _, src := range f.DerivedFrom {
			if factKeptByRawID(out, src) {
				kept = append(kept, src)
			}
		}
		if len(kept) != len(f.DerivedFrom) {
			trimmed := *f
			trimmed.DerivedFrom = kept
			out.Facts[f.StableID()] = &trimmed
		}
	}

	for stableID, r := range snap.Relations {
		if !keptEntities[r.EntityA] || !keptEntities[r.EntityB] {
			continue
		}
		if r.SetInScene != "" && !keptScenes[r.SetInScene] {
			continue
		}
		trimmed := *r
		changed := trimmed.ChangedInScenes[:0:0]
		for _, sceneID := range trimmed.ChangedInScenes {
			if keptScenes[sceneID] {
				changed = append(changed, sceneID)
			}
		}
		trimmed.ChangedInScenes = changed
		// An ending recorded beyond the cut has not happened on this
		// timeline: the state is open again.
		if trimmed.EndedInScene != "" && !keptScenes[trimmed.EndedInScene] {
			trimmed.EndedInScene = ""
			trimmed.EndedAt = nil
		}
		out.Relations[stableID] = &trimmed
	}

	for stableID, a := range snap.Axioms {
		if a.StoryID != "" && len(sel.StoryIDs) > 0 && !keptStories[a.StoryID] {
			continue
		}
		out.Axioms[stableID] = a
	}
	return out, nil
}

func factKeptByRawID(snap *types.UniverseSnapshot, rawID string) bool {
	for _, f := range snap.Facts {
		if f.FactID == rawID {
			return true
		}
	}
	return false
}

// rewrite deep-copies a selected snapshot into the branch universe: fresh
// row ids, lineage set to the source row's stable id, and every internal
// reference remapped through the old-to-new id table.
func rewrite(src *types.UniverseSnapshot, branch *types.Universe) *types.UniverseSnapshot {
	now := nowUTC()
	ids := make(map[string]string)
	// References to rows the selector excluded are cleared rather than
	// left dangling in the clone.
	remap := func(oldID string) string {
		return ids[oldID]
	}
	for _, a := range src.Arcs {
		ids[a.ArcID] = newID()
	}
	for _, st := range src.Stories {
		ids[st.StoryID] = newID()
	}
	for _, sc := range src.Scenes {
		ids[sc.SceneID] = newID()
	}
	for _, e := range src.Entities {
		ids[e.EntityID] = newID()
	}
	for _, f := range src.Facts {
		ids[f.FactID] = newID()
	}
	for _, r := range src.Relations {
		ids[r.RelationID] = newID()
	}
	for _, a := range src.Axioms {
		ids[a.AxiomID] = newID()
	}

	out := types.NewUniverseSnapshot(branch)
	for stableID, a := range src.Arcs {
		copied := *a
		copied.ArcID = ids[a.ArcID]
		copied.UniverseID = branch.UniverseID
		copied.OriginID = stableID
		copied.NextArcID = remap(a.NextArcID)
		copied.CreatedAt = now
		out.Arcs[stableID] = &copied
	}
	for stableID, st := range src.Stories {
		copied := *st
		copied.StoryID = ids[st.StoryID]
		copied.UniverseID = branch.UniverseID
		copied.OriginID = stableID
		copied.ArcID = remap(st.ArcID)
		copied.NextStoryID = remap(st.NextStoryID)
		copied.CreatedAt = now
		out.Stories[stableID] = &copied
	}
	for stableID, sc := range src.Scenes {
		copied := *sc
		copied.SceneID = ids[sc.SceneID]
		copied.UniverseID = branch.UniverseID
		copied.OriginID = stableID
		copied.StoryID = remap(sc.StoryID)
		copied.NextSceneID = remap(sc.NextSceneID)
		copied.CreatedAt = now
		out.Scenes[stableID] = &copied
	}
	for stableID, e := range src.Entities {
		copied := *e
		copied.EntityID = ids[e.EntityID]
		copied.UniverseID = branch.UniverseID
		copied.OriginID = stableID
		copied.Attrs = e.Attrs.Clone()
		copied.CreatedAt = now
		copied.UpdatedAt = now
		out.Entities[stableID] = &copied
	}
	for stableID, f := range src.Facts {
		copied := *f
		copied.FactID = ids[f.FactID]
		copied.UniverseID = branch.UniverseID
		copied.OriginID = stableID
		copied.SceneID = remap(f.SceneID)
		copied.Participants = make([]types.FactParticipant, 0, len(f.Participants))
		for _, p := range f.Participants {
			mapped := remap(p.EntityID)
			if mapped == "" {
				continue
			}
			copied.Participants = append(copied.Participants, types.FactParticipant{EntityID: mapped, Role: p.Role})
		}
		copied.DerivedFrom = nil
		for _, srcID := range f.DerivedFrom {
			copied.DerivedFrom = append(copied.DerivedFrom, remap(srcID))
		}
		copied.CreatedAt = now
		out.Facts[stableID] = &copied
	}
	for stableID, r := range src.Relations {
		copied := *r
		copied.RelationID = ids[r.RelationID]
		copied.UniverseID = branch.UniverseID
		copied.OriginID = stableID
		copied.EntityA = remap(r.EntityA)
		copied.EntityB = remap(r.EntityB)
		copied.SetInScene = remap(r.SetInScene)
		copied.EndedInScene = remap(r.EndedInScene)
		copied.ChangedInScenes = nil
		for _, sceneID := range r.ChangedInScenes {
			copied.ChangedInScenes = append(copied.ChangedInScenes, remap(sceneID))
		}
		copied.CreatedAt = now
		out.Relations[stableID] = &copied
	}
	for stableID, a := range src.Axioms {
		copied := *a
		copied.AxiomID = ids[a.AxiomID]
		copied.UniverseID = branch.UniverseID
		copied.OriginID = stableID
		copied.StoryID = remap(a.StoryID)
		copied.CreatedAt = now
		out.Axioms[stableID] = &copied
	}
	return out
}

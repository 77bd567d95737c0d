package diff

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storymesh/weft/pkg/types"
)

// sourceSnapshot builds a small universe: one story, two scenes, one
// entity, one fact, one relation state.
func sourceSnapshot() *types.UniverseSnapshot {
	snap := types.NewUniverseSnapshot(&types.Universe{UniverseID: "uni-a", Name: "prime"})
	snap.Stories["story-1"] = &types.Story{StoryID: "story-1", UniverseID: "uni-a", Title: "Opening", SequenceIndex: 1}
	snap.Scenes["scene-1"] = &types.Scene{SceneID: "scene-1", UniverseID: "uni-a", StoryID: "story-1", Title: "Harbor", SequenceIndex: 1}
	snap.Scenes["scene-2"] = &types.Scene{SceneID: "scene-2", UniverseID: "uni-a", StoryID: "story-1", Title: "Market", SequenceIndex: 2}
	snap.Entities["ent-mira"] = &types.Entity{EntityID: "ent-mira", UniverseID: "uni-a", Kind: "character", Name: "Mira",
		Attrs: types.Attrs{"rank": types.TextValue("captain")}}
	snap.Facts["fact-1"] = &types.Fact{FactID: "fact-1", UniverseID: "uni-a", SceneID: "scene-1",
		Description:  "Mira arrives",
		Participants: []types.FactParticipant{{EntityID: "ent-mira", Role: "subject"}}}
	snap.Relations["rel-1"] = &types.RelationState{RelationID: "rel-1", UniverseID: "uni-a", Type: "ally",
		EntityA: "ent-mira", EntityB: "ent-oren", StartedAt: mustTime("1200-01-01T00:00:00Z")}
	return snap
}

// branchSnapshot clones sourceSnapshot the way the branch manager would:
// fresh raw ids, origin ids pointing back, references rewritten.
func branchSnapshot() *types.UniverseSnapshot {
	snap := types.NewUniverseSnapshot(&types.Universe{UniverseID: "uni-b", Name: "what-if", DerivesFrom: "uni-a"})
	snap.Stories["story-1"] = &types.Story{StoryID: "b-story-1", UniverseID: "uni-b", OriginID: "story-1", Title: "Opening", SequenceIndex: 1}
	snap.Scenes["scene-1"] = &types.Scene{SceneID: "b-scene-1", UniverseID: "uni-b", OriginID: "scene-1", StoryID: "b-story-1", Title: "Harbor", SequenceIndex: 1}
	snap.Scenes["scene-2"] = &types.Scene{SceneID: "b-scene-2", UniverseID: "uni-b", OriginID: "scene-2", StoryID: "b-story-1", Title: "Market", SequenceIndex: 2}
	snap.Entities["ent-mira"] = &types.Entity{EntityID: "b-ent-mira", UniverseID: "uni-b", OriginID: "ent-mira", Kind: "character", Name: "Mira",
		Attrs: types.Attrs{"rank": types.TextValue("captain")}}
	snap.Facts["fact-1"] = &types.Fact{FactID: "b-fact-1", UniverseID: "uni-b", OriginID: "fact-1", SceneID: "b-scene-1",
		Description:  "Mira arrives",
		Participants: []types.FactParticipant{{EntityID: "b-ent-mira", Role: "subject"}}}
	snap.Relations["rel-1"] = &types.RelationState{RelationID: "b-rel-1", UniverseID: "uni-b", OriginID: "rel-1", Type: "ally",
		EntityA: "b-ent-mira", EntityB: "ent-oren", StartedAt: mustTime("1200-01-01T00:00:00Z")}
	return snap
}

func mustTime(value string) time.Time {
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		panic(err)
	}
	return parsed
}

func TestFreshCloneDiffIsEmpty(t *testing.T) {
	d := Compute(sourceSnapshot(), branchSnapshot())
	assert.True(t, d.Empty(), "a clone aligned by stable ids shows no differences")
}

func TestAddedItems(t *testing.T) {
	b := branchSnapshot()
	b.Facts["fact-new"] = &types.Fact{FactID: "b-fact-new", UniverseID: "uni-b", SceneID: "b-scene-2",
		Description: "a divergence"}

	d := Compute(sourceSnapshot(), b)
	assert.Equal(t, []string{"fact-new"}, d.Kind(types.KindFact).Added)
	assert.Empty(t, d.Kind(types.KindFact).Removed)

	// The new fact was recorded in scene-2; provenance tallies use the
	// scene's stable id.
	assert.Equal(t, map[string]int{"scene-2": 1}, d.ProvenanceCounts)
}

func TestRemovedItems(t *testing.T) {
	b := branchSnapshot()
	delete(b.Entities, "ent-mira")

	d := Compute(sourceSnapshot(), b)
	assert.Equal(t, []string{"ent-mira"}, d.Kind(types.KindEntity).Removed)
}

func TestChangedFields(t *testing.T) {
	b := branchSnapshot()
	b.Entities["ent-mira"].Attrs = types.Attrs{"rank": types.TextValue("admiral")}
	b.Scenes["scene-2"].Title = "Night Market"

	d := Compute(sourceSnapshot(), b)

	entityChanges := d.Kind(types.KindEntity).Changed
	require.Len(t, entityChanges, 1)
	assert.Equal(t, "ent-mira", entityChanges[0].StableID)
	require.Len(t, entityChanges[0].Fields, 1)
	assert.Equal(t, "attrs", entityChanges[0].Fields[0].Field)

	sceneChanges := d.Kind(types.KindScene).Changed
	require.Len(t, sceneChanges, 1)
	require.Len(t, sceneChanges[0].Fields, 1)
	assert.Equal(t, "title", sceneChanges[0].Fields[0].Field)
	assert.Equal(t, "Market", sceneChanges[0].Fields[0].From)
	assert.Equal(t, "Night Market", sceneChanges[0].Fields[0].To)
}

func TestRelationEndChange(t *testing.T) {
	b := branchSnapshot()
	ended := mustTime("1200-06-01T00:00:00Z")
	b.Relations["rel-1"].EndedAt = &ended

	d := Compute(sourceSnapshot(), b)
	changes := d.Kind(types.KindRelation).Changed
	require.Len(t, changes, 1)
	require.Len(t, changes[0].Fields, 1)
	assert.Equal(t, "ended_at", changes[0].Fields[0].Field)
	assert.Empty(t, changes[0].Fields[0].From)
}

func TestUnrelatedUniversesDegradeToPresence(t *testing.T) {
	a := types.NewUniverseSnapshot(&types.Universe{UniverseID: "uni-a", Name: "one"})
	a.Entities["ent-1"] = &types.Entity{EntityID: "ent-1", UniverseID: "uni-a", Kind: "character", Name: "Mira"}

	b := types.NewUniverseSnapshot(&types.Universe{UniverseID: "uni-b", Name: "two"})
	b.Entities["ent-2"] = &types.Entity{EntityID: "ent-2", UniverseID: "uni-b", Kind: "character", Name: "Oren"}

	d := Compute(a, b)
	assert.Equal(t, []string{"ent-2"}, d.Kind(types.KindEntity).Added)
	assert.Equal(t, []string{"ent-1"}, d.Kind(types.KindEntity).Removed)
	assert.Empty(t, d.Kind(types.KindEntity).Changed)
}

func TestParticipantRewriteIsNotAChange(t *testing.T) {
	// The branch fact references the branch entity's raw id; both map to
	// the same stable id, so participants must compare equal.
	d := Compute(sourceSnapshot(), branchSnapshot())
	assert.Empty(t, d.Kind(types.KindFact).Changed)
}

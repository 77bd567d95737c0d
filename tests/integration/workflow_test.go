package integration

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storymesh/weft/pkg/types"
	"github.com/storymesh/weft/pkg/weft"
)

// seedCanon builds a small canon universe: one story with three linked
// scenes, two characters, facts in the first and last scene, and an
// alliance that ends in the final scene.
func seedCanon(t *testing.T, eng *weft.Engine) *types.Universe {
	t.Helper()
	ctx := context.Background()

	u, err := eng.CreateUniverse(ctx, "canon", "the agreed timeline")
	require.NoError(t, err)

	mustCommit(t, eng, u.UniverseID, &types.DeltaBatch{
		NewStories: []*types.Story{
			{StoryID: "story-1", Title: "The Siege", SequenceIndex: 1},
		},
		NewScenes: []*types.Scene{
			{SceneID: "scene-1", StoryID: "story-1", Title: "Parley", SequenceIndex: 1, NextSceneID: "scene-2"},
			{SceneID: "scene-2", StoryID: "story-1", Title: "The Wall", SequenceIndex: 2, NextSceneID: "scene-3"},
			{SceneID: "scene-3", StoryID: "story-1", Title: "Betrayal", SequenceIndex: 3},
		},
		NewEntities: []*types.Entity{
			{EntityID: "ent-mira", Name: "Mira", Kind: "character"},
			{EntityID: "ent-oren", Name: "Oren", Kind: "character"},
		},
		NewFacts: []*types.Fact{
			{FactID: "fact-1", SceneID: "scene-1", Description: "Mira offers terms",
				At:           ts(t, "1021-03-01T09:00:00Z"),
				Participants: []types.FactParticipant{{EntityID: "ent-mira", Role: "subject"}}},
			{FactID: "fact-2", SceneID: "scene-3", Description: "Oren opens the gate",
				At:           ts(t, "1021-03-04T22:00:00Z"),
				Participants: []types.FactParticipant{{EntityID: "ent-oren", Role: "subject"}}},
		},
		NewRelations: []*types.RelationState{
			{RelationID: "rel-1", Type: "ally", EntityA: "ent-mira", EntityB: "ent-oren",
				StartedAt: *ts(t, "1021-03-01T09:00:00Z"), EndedAt: ts(t, "1021-03-04T22:00:00Z"),
				SetInScene: "scene-1", EndedInScene: "scene-3"},
		},
		NewAxioms: []*types.Axiom{
			{AxiomID: "ax-1", Semantics: types.AxiomExistence, Archetype: "character", Enabled: true},
		},
	})
	return u
}

// Inserting a scene in the middle requires renumbering the tail in the
// same delta; without it the batch is rejected.
func TestSceneInsertionRequiresRenumbering(t *testing.T) {
	eng := openEngine(t)
	u := seedCanon(t, eng)
	ctx := context.Background()

	// Bare insert at index 2 collides with the stored scene 2.
	result, err := eng.Commit(ctx, u.UniverseID, &types.DeltaBatch{
		NewScenes: []*types.Scene{
			{StoryID: "story-1", Title: "Council", SequenceIndex: 2},
		},
	})
	require.NoError(t, err)
	assert.False(t, result.Committed)

	// Shifting scenes 2 and 3 up in the same batch makes room.
	idx3, idx4 := 3, 4
	result, err = eng.Commit(ctx, u.UniverseID, &types.DeltaBatch{
		NewScenes: []*types.Scene{
			{StoryID: "story-1", Title: "Council", SequenceIndex: 2},
		},
		SceneUpdates: []types.SceneUpdate{
			{SceneID: "scene-2", SequenceIndex: &idx3},
			{SceneID: "scene-3", SequenceIndex: &idx4},
		},
	})
	require.NoError(t, err)
	require.True(t, result.Committed)

	scenes, err := eng.Scenes(ctx, "story-1")
	require.NoError(t, err)
	require.Len(t, scenes, 4)
	for i, sc := range scenes {
		assert.Equal(t, i+1, sc.SequenceIndex)
	}
}

// A relation state overlapping an existing one for the same pair and type
// rejects the whole batch, including unrelated changes riding along.
func TestOverlappingRelationRejectsWholeBatch(t *testing.T) {
	eng := openEngine(t)
	u := seedCanon(t, eng)
	ctx := context.Background()

	result, err := eng.Commit(ctx, u.UniverseID, &types.DeltaBatch{
		NewEntities: []*types.Entity{
			{Name: "Talia", Kind: "character"},
		},
		NewRelations: []*types.RelationState{
			{Type: "ally", EntityA: "ent-oren", EntityB: "ent-mira",
				StartedAt: *ts(t, "1021-03-02T00:00:00Z"), SetInScene: "scene-2"},
		},
	})
	require.NoError(t, err)
	assert.False(t, result.Committed)
	require.NotEmpty(t, result.Validation.Violations)
	assert.Equal(t, types.ViolationOverlappingInterval, result.Validation.Violations[0].Kind)

	snap, err := eng.Snapshot(ctx, u.UniverseID)
	require.NoError(t, err)
	assert.Len(t, snap.Entities, 2, "the rider entity must not land either")
}

// Branching at scene 2 leaves the betrayal behind: the late fact is gone
// and the alliance is open again on the new timeline.
func TestBranchAtSceneRewritesHistory(t *testing.T) {
	eng := openEngine(t)
	u := seedCanon(t, eng)
	ctx := context.Background()

	b, err := eng.BranchAtScene(ctx, u.UniverseID, "scene-2", "loyal-oren")
	require.NoError(t, err)
	assert.Equal(t, u.UniverseID, b.DerivesFrom)
	assert.Equal(t, "scene-2", b.OriginSceneID)

	snap, err := eng.Snapshot(ctx, b.UniverseID)
	require.NoError(t, err)
	assert.Len(t, snap.Scenes, 2)
	require.Len(t, snap.Facts, 1)
	assert.Equal(t, "fact-1", snap.Facts["fact-1"].StableID())

	rel := snap.Relations["rel-1"]
	require.NotNil(t, rel)
	assert.Nil(t, rel.EndedAt, "the ending happened beyond the cut")
	assert.Empty(t, rel.EndedInScene)
}

// Diverge a branch, diff it, promote it, and verify promotion is
// idempotent: a second promote finds nothing to do.
func TestDivergeDiffPromote(t *testing.T) {
	eng := openEngine(t)
	u := seedCanon(t, eng)
	ctx := context.Background()

	b, err := eng.Branch(ctx, u.UniverseID, "what-if", nil)
	require.NoError(t, err)

	snap, err := eng.Snapshot(ctx, b.UniverseID)
	require.NoError(t, err)
	scene2 := snap.Scenes["scene-2"]
	require.NotNil(t, scene2)

	mustCommit(t, eng, b.UniverseID, &types.DeltaBatch{
		SceneID: scene2.SceneID,
		NewFacts: []*types.Fact{
			{SceneID: scene2.SceneID, Description: "A secret tunnel is found",
				At: ts(t, "1021-03-03T02:00:00Z")},
		},
	})

	d, err := eng.Diff(ctx, u.UniverseID, b.UniverseID)
	require.NoError(t, err)
	require.Len(t, d.Kind(types.KindFact).Added, 1)
	assert.Equal(t, 1, d.ProvenanceCounts["scene-2"])

	promo, err := eng.Promote(ctx, b.UniverseID, u.UniverseID, types.StrategyAppendMissing)
	require.NoError(t, err)
	require.Nil(t, promo.Rejected)
	assert.Len(t, promo.AppliedIDs, 1)

	// Second run: the diff is empty, nothing is applied.
	promo, err = eng.Promote(ctx, b.UniverseID, u.UniverseID, types.StrategyAppendMissing)
	require.NoError(t, err)
	assert.Empty(t, promo.AppliedIDs)

	d, err = eng.Diff(ctx, u.UniverseID, b.UniverseID)
	require.NoError(t, err)
	assert.True(t, d.Empty())
}

// Staged deltas stay invisible until flushed, then land as one commit.
func TestStagedWorkIsInvisibleUntilFlush(t *testing.T) {
	eng := openEngine(t)
	u := seedCanon(t, eng)
	ctx := context.Background()

	require.NoError(t, eng.Stage("draft", u.UniverseID, &types.DeltaBatch{
		NewEntities: []*types.Entity{{Name: "Talia", Kind: "character"}},
	}))
	require.NoError(t, eng.Stage("draft", u.UniverseID, &types.DeltaBatch{
		NewEntities: []*types.Entity{{Name: "Brann", Kind: "character"}},
	}))

	snap, err := eng.Snapshot(ctx, u.UniverseID)
	require.NoError(t, err)
	assert.Len(t, snap.Entities, 2)

	result, err := eng.Flush(ctx, "draft")
	require.NoError(t, err)
	require.True(t, result.Committed)

	snap, err = eng.Snapshot(ctx, u.UniverseID)
	require.NoError(t, err)
	assert.Len(t, snap.Entities, 4)
}

// Strict coverage turns an axiom shortfall from a warning into a
// rejection.
func TestStrictCoverageRejectsShortfall(t *testing.T) {
	eng := openEngine(t, weft.WithStrictCoverage(true))
	ctx := context.Background()

	u, err := eng.CreateUniverse(ctx, "sparse", "")
	require.NoError(t, err)

	result, err := eng.Commit(ctx, u.UniverseID, &types.DeltaBatch{
		NewAxioms: []*types.Axiom{
			{Semantics: types.AxiomExistence, Archetype: "dragon", Enabled: true},
		},
	})
	require.NoError(t, err)
	assert.False(t, result.Committed)
	require.NotEmpty(t, result.Validation.Violations)
	assert.Equal(t, types.ViolationCoverageShortfall, result.Validation.Violations[0].Kind)
}

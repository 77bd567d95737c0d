package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storymesh/weft/pkg/types"
)

// setupStore creates an attached Store backed by a throwaway database,
// detached automatically at test end.
func setupStore(t *testing.T) *Store {
	t.Helper()
	s := New()
	config := types.Config{
		Backend: types.BackendSQLite,
		DataDir: t.TempDir(),
	}
	require.NoError(t, s.Attach(config))
	t.Cleanup(func() { s.Detach() })
	return s
}

// makeUniverse persists a fresh universe and returns it.
func makeUniverse(t *testing.T, s *Store, name string) *types.Universe {
	t.Helper()
	u := &types.Universe{Name: name}
	require.NoError(t, s.CreateUniverse(context.Background(), u))
	require.NotEmpty(t, u.UniverseID)
	return u
}

func ts(t *testing.T, value string) time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return parsed
}

func tsp(t *testing.T, value string) *time.Time {
	parsed := ts(t, value)
	return &parsed
}

func TestAttachDetachLifecycle(t *testing.T) {
	s := New()
	config := types.Config{Backend: types.BackendSQLite, DataDir: t.TempDir()}

	require.NoError(t, s.Attach(config))
	assert.ErrorIs(t, s.Attach(config), types.ErrAlreadyAttached)

	require.NoError(t, s.Detach())
	require.NoError(t, s.Detach(), "detach is idempotent")

	_, err := s.ListUniverses(context.Background())
	assert.ErrorIs(t, err, types.ErrStoreDetached)
}

func TestAttachRejectsInvalidConfig(t *testing.T) {
	s := New()
	err := s.Attach(types.Config{Backend: "postgres", DataDir: t.TempDir()})
	assert.ErrorIs(t, err, types.ErrBackendUnknown)
}

func TestCreateAndGetUniverse(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	u := makeUniverse(t, s, "prime")
	got, err := s.GetUniverse(ctx, u.UniverseID)
	require.NoError(t, err)
	assert.Equal(t, "prime", got.Name)
	assert.True(t, got.IsRoot())
	assert.False(t, got.CreatedAt.IsZero())

	_, err = s.GetUniverse(ctx, "no-such-id")
	assert.ErrorIs(t, err, types.ErrUniverseNotFound)
}

func TestCreateUniverseRequiresName(t *testing.T) {
	s := setupStore(t)
	err := s.CreateUniverse(context.Background(), &types.Universe{})
	assert.ErrorIs(t, err, types.ErrInvalidData)
}

func TestListUniversesOrdered(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()

	makeUniverse(t, s, "first")
	makeUniverse(t, s, "second")

	all, err := s.ListUniverses(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "first", all[0].Name)
	assert.Equal(t, "second", all[1].Name)
}

func TestApplyDeltaUnknownUniverse(t *testing.T) {
	s := setupStore(t)
	err := s.ApplyDelta(context.Background(), "ghost", &types.DeltaBatch{
		NewEntities: []*types.Entity{{Kind: "character", Name: "Mira"}},
	})
	assert.ErrorIs(t, err, types.ErrUniverseNotFound)
}

func TestApplyDeltaCreatesGraph(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	u := makeUniverse(t, s, "prime")

	arc := &types.Arc{Title: "Rise", SequenceIndex: 1}
	story := &types.Story{StoryID: "story-1", Title: "Opening", SequenceIndex: 1}
	sceneA := &types.Scene{SceneID: "scene-1", StoryID: "story-1", Title: "Harbor", SequenceIndex: 1, NextSceneID: "scene-2"}
	sceneB := &types.Scene{SceneID: "scene-2", StoryID: "story-1", Title: "Market", SequenceIndex: 2}
	mira := &types.Entity{EntityID: "ent-mira", Kind: "character", Name: "Mira",
		Attrs: types.Attrs{"height": types.NumberValue(1.7)}}
	oren := &types.Entity{EntityID: "ent-oren", Kind: "character", Name: "Oren"}
	fact := &types.Fact{
		FactID:      "fact-1",
		SceneID:     "scene-1",
		Description: "Mira meets Oren at the harbor",
		At:          tsp(t, "1200-05-01T10:00:00Z"),
		Participants: []types.FactParticipant{
			{EntityID: "ent-mira", Role: "subject"},
			{EntityID: "ent-oren", Role: "object"},
		},
		Confidence: 0.9,
	}
	rel := &types.RelationState{
		RelationID: "rel-1",
		Type:       "ally",
		EntityA:    "ent-mira",
		EntityB:    "ent-oren",
		StartedAt:  ts(t, "1200-05-01T10:00:00Z"),
		SetInScene: "scene-1",
	}
	axiom := &types.Axiom{Semantics: types.AxiomExistence, Archetype: "character", Enabled: true}

	err := s.ApplyDelta(ctx, u.UniverseID, &types.DeltaBatch{
		NewArcs:      []*types.Arc{arc},
		NewStories:   []*types.Story{story},
		NewScenes:    []*types.Scene{sceneA, sceneB},
		NewEntities:  []*types.Entity{mira, oren},
		NewFacts:     []*types.Fact{fact},
		NewRelations: []*types.RelationState{rel},
		NewAxioms:    []*types.Axiom{axiom},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, arc.ArcID, "id filled on insert")
	assert.NotEmpty(t, axiom.AxiomID)

	stories, err := s.StoriesInUniverse(ctx, u.UniverseID)
	require.NoError(t, err)
	require.Len(t, stories, 1)
	assert.Equal(t, u.UniverseID, stories[0].UniverseID)

	scenes, err := s.ScenesInStory(ctx, "story-1")
	require.NoError(t, err)
	require.Len(t, scenes, 2)
	assert.Equal(t, "Harbor", scenes[0].Title)
	assert.Equal(t, "scene-2", scenes[0].NextSceneID)

	facts, err := s.FactsInUniverse(ctx, u.UniverseID)
	require.NoError(t, err)
	require.Len(t, facts, 1)
	require.Len(t, facts[0].Participants, 2)
	assert.Equal(t, "subject", facts[0].Participants[0].Role)
	require.NotNil(t, facts[0].At)
	assert.True(t, facts[0].At.Equal(ts(t, "1200-05-01T10:00:00Z")))

	n, err := s.CountEntitiesByKind(ctx, u.UniverseID, "character")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	axioms, err := s.AxiomsInUniverse(ctx, u.UniverseID)
	require.NoError(t, err)
	require.Len(t, axioms, 1)
	assert.True(t, axioms[0].Enabled)
	assert.Equal(t, 1, axioms[0].Threshold())
}

func TestApplyDeltaIsAtomic(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	u := makeUniverse(t, s, "prime")

	// The entity update targets a row that does not exist, so the new
	// entity must not land either.
	err := s.ApplyDelta(ctx, u.UniverseID, &types.DeltaBatch{
		NewEntities:   []*types.Entity{{Kind: "character", Name: "Mira"}},
		EntityUpdates: []types.EntityUpdate{{EntityID: "ghost", Name: "renamed"}},
	})
	require.ErrorIs(t, err, types.ErrNotFound)

	entities, err := s.EntitiesInUniverse(ctx, u.UniverseID)
	require.NoError(t, err)
	assert.Empty(t, entities)
}

func TestEntityUpdateMergeAndReplace(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	u := makeUniverse(t, s, "prime")

	e := &types.Entity{EntityID: "ent-1", Kind: "character", Name: "Mira",
		Attrs: types.Attrs{
			"height": types.NumberValue(1.7),
			"title":  types.TextValue("captain"),
		}}
	require.NoError(t, s.ApplyDelta(ctx, u.UniverseID, &types.DeltaBatch{
		NewEntities: []*types.Entity{e},
	}))

	// Merge keeps untouched keys.
	require.NoError(t, s.ApplyDelta(ctx, u.UniverseID, &types.DeltaBatch{
		EntityUpdates: []types.EntityUpdate{{
			EntityID: "ent-1",
			Attrs:    types.Attrs{"title": types.TextValue("admiral")},
		}},
	}))
	entities, err := s.EntitiesInUniverse(ctx, u.UniverseID)
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.True(t, entities[0].Attrs["title"].Equal(types.TextValue("admiral")))
	assert.True(t, entities[0].Attrs["height"].Equal(types.NumberValue(1.7)))

	// Replace swaps the whole map.
	require.NoError(t, s.ApplyDelta(ctx, u.UniverseID, &types.DeltaBatch{
		EntityUpdates: []types.EntityUpdate{{
			EntityID: "ent-1",
			Name:     "Mira the Elder",
			Attrs:    types.Attrs{"rank": types.TextValue("retired")},
			Replace:  true,
		}},
	}))
	entities, err = s.EntitiesInUniverse(ctx, u.UniverseID)
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "Mira the Elder", entities[0].Name)
	assert.Len(t, entities[0].Attrs, 1)
	assert.True(t, entities[0].Attrs["rank"].Equal(types.TextValue("retired")))
}

func TestStoryAndSceneUpdates(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	u := makeUniverse(t, s, "prime")

	require.NoError(t, s.ApplyDelta(ctx, u.UniverseID, &types.DeltaBatch{
		NewStories: []*types.Story{
			{StoryID: "story-1", Title: "Opening", SequenceIndex: 1, NextStoryID: "story-2"},
			{StoryID: "story-2", Title: "Middle", SequenceIndex: 2},
		},
		NewScenes: []*types.Scene{
			{SceneID: "scene-1", StoryID: "story-1", Title: "Harbor", SequenceIndex: 1},
		},
	}))

	title := "Opening, revised"
	clear := ""
	location := "the docks"
	require.NoError(t, s.ApplyDelta(ctx, u.UniverseID, &types.DeltaBatch{
		StoryUpdates: []types.StoryUpdate{{StoryID: "story-1", Title: &title, NextStoryID: &clear}},
		SceneUpdates: []types.SceneUpdate{{SceneID: "scene-1", Location: &location}},
	}))

	stories, err := s.StoriesInUniverse(ctx, u.UniverseID)
	require.NoError(t, err)
	require.Len(t, stories, 2)
	assert.Equal(t, "Opening, revised", stories[0].Title)
	assert.Empty(t, stories[0].NextStoryID, "empty string clears the forward link")

	scenes, err := s.ScenesInStory(ctx, "story-1")
	require.NoError(t, err)
	require.Len(t, scenes, 1)
	assert.Equal(t, "the docks", scenes[0].Location)
}

func TestRelationUpdateAppendsProvenance(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	u := makeUniverse(t, s, "prime")

	require.NoError(t, s.ApplyDelta(ctx, u.UniverseID, &types.DeltaBatch{
		NewRelations: []*types.RelationState{{
			RelationID: "rel-1",
			Type:       "ally",
			EntityA:    "ent-a",
			EntityB:    "ent-b",
			StartedAt:  ts(t, "1200-01-01T00:00:00Z"),
			SetInScene: "scene-1",
		}},
	}))

	endedAt := ts(t, "1200-06-01T00:00:00Z")
	endedIn := "scene-3"
	require.NoError(t, s.ApplyDelta(ctx, u.UniverseID, &types.DeltaBatch{
		RelationUpdates: []types.RelationUpdate{{
			RelationID:      "rel-1",
			EndedAt:         &endedAt,
			EndedInScene:    &endedIn,
			ChangedInScenes: []string{"scene-2"},
		}},
	}))
	require.NoError(t, s.ApplyDelta(ctx, u.UniverseID, &types.DeltaBatch{
		RelationUpdates: []types.RelationUpdate{{
			RelationID:      "rel-1",
			ChangedInScenes: []string{"scene-2b"},
		}},
	}))

	r, err := s.RelationStateByID(ctx, "rel-1")
	require.NoError(t, err)
	require.NotNil(t, r.EndedAt)
	assert.True(t, r.EndedAt.Equal(endedAt))
	assert.Equal(t, "scene-3", r.EndedInScene)
	assert.Equal(t, []string{"scene-2", "scene-2b"}, r.ChangedInScenes)
}

func TestRelationUpdateReopenClearsEnding(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	u := makeUniverse(t, s, "prime")

	require.NoError(t, s.ApplyDelta(ctx, u.UniverseID, &types.DeltaBatch{
		NewRelations: []*types.RelationState{{
			RelationID:   "rel-1",
			Type:         "ally",
			EntityA:      "ent-a",
			EntityB:      "ent-b",
			StartedAt:    ts(t, "1200-01-01T00:00:00Z"),
			EndedAt:      tsp(t, "1200-06-01T00:00:00Z"),
			SetInScene:   "scene-1",
			EndedInScene: "scene-3",
		}},
	}))

	// Reopen wins even when the update carries ending fields of its own.
	endedIn := "scene-4"
	require.NoError(t, s.ApplyDelta(ctx, u.UniverseID, &types.DeltaBatch{
		RelationUpdates: []types.RelationUpdate{{
			RelationID:   "rel-1",
			Reopen:       true,
			EndedAt:      tsp(t, "1200-07-01T00:00:00Z"),
			EndedInScene: &endedIn,
		}},
	}))

	r, err := s.RelationStateByID(ctx, "rel-1")
	require.NoError(t, err)
	assert.Nil(t, r.EndedAt)
	assert.Empty(t, r.EndedInScene)
}

func TestRelationStatesForPairUnordered(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	u := makeUniverse(t, s, "prime")

	require.NoError(t, s.ApplyDelta(ctx, u.UniverseID, &types.DeltaBatch{
		NewRelations: []*types.RelationState{
			{RelationID: "rel-1", Type: "ally", EntityA: "ent-a", EntityB: "ent-b",
				StartedAt: ts(t, "1200-01-01T00:00:00Z"), EndedAt: tsp(t, "1200-06-01T00:00:00Z")},
			{RelationID: "rel-2", Type: "ally", EntityA: "ent-b", EntityB: "ent-a",
				StartedAt: ts(t, "1200-06-01T00:00:00Z")},
			{RelationID: "rel-3", Type: "rival", EntityA: "ent-a", EntityB: "ent-b",
				StartedAt: ts(t, "1200-01-01T00:00:00Z")},
		},
	}))

	states, err := s.RelationStatesForPair(ctx, u.UniverseID, "ent-b", "ent-a", "ally")
	require.NoError(t, err)
	require.Len(t, states, 2, "pair lookup ignores argument order and other types")
	assert.Equal(t, "rel-1", states[0].RelationID)
	assert.Equal(t, "rel-2", states[1].RelationID)
}

func TestRelationStatesAt(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	u := makeUniverse(t, s, "prime")

	require.NoError(t, s.ApplyDelta(ctx, u.UniverseID, &types.DeltaBatch{
		NewRelations: []*types.RelationState{
			{RelationID: "rel-1", Type: "ally", EntityA: "ent-a", EntityB: "ent-b",
				StartedAt: ts(t, "1200-01-01T00:00:00Z"), EndedAt: tsp(t, "1200-06-01T00:00:00Z")},
			{RelationID: "rel-2", Type: "rival", EntityA: "ent-a", EntityB: "ent-b",
				StartedAt: ts(t, "1200-06-01T00:00:00Z")},
		},
	}))

	at := func(value string) []*types.RelationState {
		states, err := s.RelationStatesAt(ctx, u.UniverseID, "ent-a", "ent-b", ts(t, value))
		require.NoError(t, err)
		return states
	}

	inside := at("1200-03-01T00:00:00Z")
	require.Len(t, inside, 1)
	assert.Equal(t, "rel-1", inside[0].RelationID)

	// The boundary instant belongs to the successor: intervals are
	// half-open.
	boundary := at("1200-06-01T00:00:00Z")
	require.Len(t, boundary, 1)
	assert.Equal(t, "rel-2", boundary[0].RelationID)

	assert.Empty(t, at("1199-01-01T00:00:00Z"))
}

func TestFactsForStoryInSceneOrder(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	u := makeUniverse(t, s, "prime")

	require.NoError(t, s.ApplyDelta(ctx, u.UniverseID, &types.DeltaBatch{
		NewStories: []*types.Story{{StoryID: "story-1", Title: "Opening", SequenceIndex: 1}},
		NewScenes: []*types.Scene{
			{SceneID: "scene-1", StoryID: "story-1", Title: "Harbor", SequenceIndex: 1},
			{SceneID: "scene-2", StoryID: "story-1", Title: "Market", SequenceIndex: 2},
		},
		NewFacts: []*types.Fact{
			{FactID: "fact-late", SceneID: "scene-2", Description: "later"},
			{FactID: "fact-early", SceneID: "scene-1", Description: "earlier"},
		},
	}))

	facts, err := s.FactsForStory(ctx, "story-1")
	require.NoError(t, err)
	require.Len(t, facts, 2)
	assert.Equal(t, "fact-early", facts[0].FactID)
	assert.Equal(t, "fact-late", facts[1].FactID)
}

func TestScenesByIDSkipsMissing(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	u := makeUniverse(t, s, "prime")

	require.NoError(t, s.ApplyDelta(ctx, u.UniverseID, &types.DeltaBatch{
		NewStories: []*types.Story{{StoryID: "story-1", Title: "Opening", SequenceIndex: 1}},
		NewScenes: []*types.Scene{
			{SceneID: "scene-1", StoryID: "story-1", Title: "Harbor", SequenceIndex: 1},
		},
	}))

	scenes, err := s.ScenesByID(ctx, u.UniverseID, []string{"scene-1", "ghost"})
	require.NoError(t, err)
	require.Len(t, scenes, 1)
	assert.Contains(t, scenes, "scene-1")
}

func TestSnapshotKeyedByStableID(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	u := makeUniverse(t, s, "prime")

	require.NoError(t, s.ApplyDelta(ctx, u.UniverseID, &types.DeltaBatch{
		NewStories: []*types.Story{{StoryID: "story-1", Title: "Opening", SequenceIndex: 1}},
		NewScenes: []*types.Scene{
			{SceneID: "scene-1", StoryID: "story-1", Title: "Harbor", SequenceIndex: 1},
		},
		NewEntities: []*types.Entity{
			{EntityID: "ent-1", OriginID: "lineage-1", Kind: "character", Name: "Mira"},
		},
	}))

	snap, err := s.Snapshot(ctx, u.UniverseID)
	require.NoError(t, err)
	assert.Equal(t, u.UniverseID, snap.Universe.UniverseID)
	assert.Contains(t, snap.Entities, "lineage-1", "origin id wins as map key")
	assert.Contains(t, snap.Stories, "story-1", "raw id when no lineage")
	require.NotNil(t, snap.SceneByRawID("scene-1"))
	assert.Nil(t, snap.SceneByRawID("ghost"))
}

func TestImportUniverse(t *testing.T) {
	s := setupStore(t)
	ctx := context.Background()
	src := makeUniverse(t, s, "prime")

	require.NoError(t, s.ApplyDelta(ctx, src.UniverseID, &types.DeltaBatch{
		NewStories: []*types.Story{{StoryID: "story-1", Title: "Opening", SequenceIndex: 1}},
		NewEntities: []*types.Entity{
			{EntityID: "ent-1", Kind: "character", Name: "Mira"},
		},
	}))

	branch := &types.Universe{UniverseID: "uni-branch", Name: "what-if", DerivesFrom: src.UniverseID}
	now := nowUTC()
	snap := types.NewUniverseSnapshot(branch)
	snap.Stories["story-1"] = &types.Story{
		StoryID: "story-1b", UniverseID: branch.UniverseID, OriginID: "story-1",
		Title: "Opening", SequenceIndex: 1, CreatedAt: now,
	}
	snap.Entities["ent-1"] = &types.Entity{
		EntityID: "ent-1b", UniverseID: branch.UniverseID, OriginID: "ent-1",
		Kind: "character", Name: "Mira", CreatedAt: now, UpdatedAt: now,
	}
	require.NoError(t, s.ImportUniverse(ctx, branch, snap))

	got, err := s.GetUniverse(ctx, branch.UniverseID)
	require.NoError(t, err)
	assert.Equal(t, src.UniverseID, got.DerivesFrom)

	entities, err := s.EntitiesInUniverse(ctx, branch.UniverseID)
	require.NoError(t, err)
	require.Len(t, entities, 1)
	assert.Equal(t, "ent-1", entities[0].OriginID)

	// Source rows are untouched.
	srcEntities, err := s.EntitiesInUniverse(ctx, src.UniverseID)
	require.NoError(t, err)
	require.Len(t, srcEntities, 1)
	assert.Empty(t, srcEntities[0].OriginID)
}

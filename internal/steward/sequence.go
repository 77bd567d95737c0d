package steward

import (
	"context"
	"fmt"
	"sort"

	"github.com/storymesh/weft/pkg/types"
)

// seqItem is one sequenced row inside a parent scope.
type seqItem struct {
	id    string
	index int
}

// checkSequences recomputes the full ordered child list for every parent
// scope the delta touches and asserts it is exactly 1..N.
func (s *Steward) checkSequences(ctx context.Context, universeID string, delta *types.DeltaBatch, result *types.ValidationResult) error {
	if err := s.checkParentReferences(ctx, universeID, delta, result); err != nil {
		return err
	}
	if err := s.checkSceneSequences(ctx, universeID, delta, result); err != nil {
		return err
	}
	if err := s.checkStorySequences(ctx, universeID, delta, result); err != nil {
		return err
	}
	return s.checkArcSequences(ctx, universeID, delta, result)
}

// checkParentReferences flags proposed scenes and stories whose parent row
// neither exists in the universe nor arrives in the same batch. A story's
// arc link is optional; a scene's story is not.
func (s *Steward) checkParentReferences(ctx context.Context, universeID string, delta *types.DeltaBatch, result *types.ValidationResult) error {
	if len(delta.NewScenes) > 0 {
		stored, err := s.reader.StoriesInUniverse(ctx, universeID)
		if err != nil {
			return err
		}
		known := make(map[string]bool, len(stored)+len(delta.NewStories))
		for _, st := range stored {
			known[st.StoryID] = true
		}
		for _, st := range delta.NewStories {
			known[st.StoryID] = true
		}
		for _, sc := range delta.NewScenes {
			if known[sc.StoryID] {
				continue
			}
			msg := fmt.Sprintf("scene %s references unknown story %s", sc.SceneID, sc.StoryID)
			if sc.StoryID == "" {
				msg = fmt.Sprintf("scene %s has no story", sc.SceneID)
			}
			result.AddViolation(types.Violation{
				Kind:       types.ViolationUnknownReference,
				Message:    msg,
				SubjectID:  sc.SceneID,
				ConflictID: sc.StoryID,
			})
		}
	}

	linked := false
	for _, st := range delta.NewStories {
		if st.ArcID != "" {
			linked = true
			break
		}
	}
	if linked {
		stored, err := s.reader.ArcsInUniverse(ctx, universeID)
		if err != nil {
			return err
		}
		known := make(map[string]bool, len(stored)+len(delta.NewArcs))
		for _, a := range stored {
			known[a.ArcID] = true
		}
		for _, a := range delta.NewArcs {
			known[a.ArcID] = true
		}
		for _, st := range delta.NewStories {
			if st.ArcID == "" || known[st.ArcID] {
				continue
			}
			result.AddViolation(types.Violation{
				Kind:       types.ViolationUnknownReference,
				Message:    fmt.Sprintf("story %s references unknown arc %s", st.StoryID, st.ArcID),
				SubjectID:  st.StoryID,
				ConflictID: st.ArcID,
			})
		}
	}
	return nil
}

func (s *Steward) checkSceneSequences(ctx context.Context, universeID string, delta *types.DeltaBatch, result *types.ValidationResult) error {
	affected := make(map[string]bool)
	for _, sc := range delta.NewScenes {
		affected[sc.StoryID] = true
	}

	var lookup []string
	for _, u := range delta.SceneUpdates {
		if u.SequenceIndex == nil {
			continue
		}
		lookup = append(lookup, u.SceneID)
	}
	if len(lookup) > 0 {
		scenes, err := s.reader.ScenesByID(ctx, universeID, lookup)
		if err != nil {
			return err
		}
		for _, id := range lookup {
			sc, ok := scenes[id]
			if !ok {
				result.AddViolation(types.Violation{
					Kind:      types.ViolationUnknownReference,
					Message:   fmt.Sprintf("scene update targets unknown scene %s", id),
					SubjectID: id,
				})
				continue
			}
			affected[sc.StoryID] = true
		}
	}

	for _, storyID := range sortedKeySlice(affected) {
		scenes, err := s.overlaidScenes(ctx, storyID, delta)
		if err != nil {
			return err
		}
		items := make([]seqItem, 0, len(scenes))
		for _, sc := range scenes {
			items = append(items, seqItem{id: sc.SceneID, index: sc.SequenceIndex})
		}
		assertContiguous(result, types.KindScene, storyID, items)
	}
	return nil
}

// overlaidScenes returns the scenes of a story as the delta would leave
// them: stored rows with index updates applied, plus proposed rows.
func (s *Steward) overlaidScenes(ctx context.Context, storyID string, delta *types.DeltaBatch) ([]*types.Scene, error) {
	stored, err := s.reader.ScenesInStory(ctx, storyID)
	if err != nil {
		return nil, err
	}
	out := make([]*types.Scene, 0, len(stored)+len(delta.NewScenes))
	for _, sc := range stored {
		copied := *sc
		for _, u := range delta.SceneUpdates {
			if u.SceneID == copied.SceneID {
				if u.SequenceIndex != nil {
					copied.SequenceIndex = *u.SequenceIndex
				}
				if u.NextSceneID != nil {
					copied.NextSceneID = *u.NextSceneID
				}
			}
		}
		out = append(out, &copied)
	}
	for _, sc := range delta.NewScenes {
		if sc.StoryID == storyID {
			out = append(out, sc)
		}
	}
	return out, nil
}

func (s *Steward) checkStorySequences(ctx context.Context, universeID string, delta *types.DeltaBatch, result *types.ValidationResult) error {
	touched := len(delta.NewStories) > 0
	reindexed := make(map[string]types.StoryUpdate)
	for _, u := range delta.StoryUpdates {
		if u.SequenceIndex != nil {
			reindexed[u.StoryID] = u
			touched = true
		}
	}
	if !touched {
		return nil
	}

	stories, err := s.overlaidStories(ctx, universeID, delta)
	if err != nil {
		return err
	}

	proposed := make(map[string]bool, len(delta.NewStories))
	for _, st := range delta.NewStories {
		proposed[st.StoryID] = true
	}
	affected := make(map[string]bool)
	for _, st := range stories {
		_, updated := reindexed[st.StoryID]
		if updated || proposed[st.StoryID] {
			affected[st.ParentScope()] = true
		}
	}

	byScope := make(map[string][]seqItem)
	for _, st := range stories {
		scope := st.ParentScope()
		if affected[scope] {
			byScope[scope] = append(byScope[scope], seqItem{id: st.StoryID, index: st.SequenceIndex})
		}
	}
	for _, scope := range sortedKeySliceItems(byScope) {
		assertContiguous(result, types.KindStory, scope, byScope[scope])
	}
	return nil
}

// overlaidStories returns every story of the universe as the delta would
// leave it.
func (s *Steward) overlaidStories(ctx context.Context, universeID string, delta *types.DeltaBatch) ([]*types.Story, error) {
	stored, err := s.reader.StoriesInUniverse(ctx, universeID)
	if err != nil {
		return nil, err
	}
	out := make([]*types.Story, 0, len(stored)+len(delta.NewStories))
	for _, st := range stored {
		copied := *st
		for _, u := range delta.StoryUpdates {
			if u.StoryID == copied.StoryID {
				if u.SequenceIndex != nil {
					copied.SequenceIndex = *u.SequenceIndex
				}
				if u.NextStoryID != nil {
					copied.NextStoryID = *u.NextStoryID
				}
			}
		}
		out = append(out, &copied)
	}
	for _, st := range delta.NewStories {
		copied := *st
		if copied.UniverseID == "" {
			copied.UniverseID = universeID
		}
		out = append(out, &copied)
	}
	return out, nil
}

func (s *Steward) checkArcSequences(ctx context.Context, universeID string, delta *types.DeltaBatch, result *types.ValidationResult) error {
	if len(delta.NewArcs) == 0 {
		return nil
	}
	stored, err := s.reader.ArcsInUniverse(ctx, universeID)
	if err != nil {
		return err
	}
	items := make([]seqItem, 0, len(stored)+len(delta.NewArcs))
	for _, a := range stored {
		items = append(items, seqItem{id: a.ArcID, index: a.SequenceIndex})
	}
	for _, a := range delta.NewArcs {
		items = append(items, seqItem{id: a.ArcID, index: a.SequenceIndex})
	}
	assertContiguous(result, types.KindArc, universeID, items)
	return nil
}

// assertContiguous verifies the scope's indexes are exactly 1..N with no
// duplicates, recording one violation per offending item.
func assertContiguous(result *types.ValidationResult, kind, scopeID string, items []seqItem) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].index != items[j].index {
			return items[i].index < items[j].index
		}
		return items[i].id < items[j].id
	})
	for i, item := range items {
		want := i + 1
		if item.index == want {
			continue
		}
		kindWord := "gap"
		if i > 0 && items[i-1].index == item.index {
			kindWord = "duplicate"
		}
		result.AddViolation(types.Violation{
			Kind: types.ViolationSequenceGap,
			Message: fmt.Sprintf("%s sequence %s in scope %s: %s %s has index %d, expected %d",
				kind, kindWord, scopeID, kind, item.id, item.index, want),
			SubjectID:  item.id,
			ConflictID: scopeID,
		})
	}
}

func sortedKeySlice(m map[string]bool) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func sortedKeySliceItems(m map[string][]seqItem) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

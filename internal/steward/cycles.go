package steward

import (
	"context"
	"fmt"
	"sort"

	"github.com/storymesh/weft/pkg/types"
)

// checkCycles walks forward links within every scope the delta touches and
// fact derivation chains, rejecting any walk that revisits a node.
func (s *Steward) checkCycles(ctx context.Context, universeID string, delta *types.DeltaBatch, result *types.ValidationResult) error {
	if err := s.checkSceneLinks(ctx, universeID, delta, result); err != nil {
		return err
	}
	if err := s.checkStoryLinks(ctx, universeID, delta, result); err != nil {
		return err
	}
	if err := s.checkArcLinks(ctx, universeID, delta, result); err != nil {
		return err
	}
	return s.checkDerivations(ctx, universeID, delta, result)
}

func (s *Steward) checkSceneLinks(ctx context.Context, universeID string, delta *types.DeltaBatch, result *types.ValidationResult) error {
	affected := make(map[string]bool)
	for _, sc := range delta.NewScenes {
		affected[sc.StoryID] = true
	}
	var lookup []string
	for _, u := range delta.SceneUpdates {
		if u.NextSceneID != nil {
			lookup = append(lookup, u.SceneID)
		}
	}
	if len(lookup) > 0 {
		scenes, err := s.reader.ScenesByID(ctx, universeID, lookup)
		if err != nil {
			return err
		}
		for _, sc := range scenes {
			affected[sc.StoryID] = true
		}
	}
	for _, storyID := range sortedKeySlice(affected) {
		scenes, err := s.overlaidScenes(ctx, storyID, delta)
		if err != nil {
			return err
		}
		edges := make(map[string][]string, len(scenes))
		for _, sc := range scenes {
			edges[sc.SceneID] = nil
		}
		for _, sc := range scenes {
			if sc.NextSceneID == "" {
				continue
			}
			if _, ok := edges[sc.NextSceneID]; !ok {
				result.AddViolation(types.Violation{
					Kind: types.ViolationUnknownReference,
					Message: fmt.Sprintf("scene %s links to %s, which is not a scene of story %s",
						sc.SceneID, sc.NextSceneID, storyID),
					SubjectID:  sc.SceneID,
					ConflictID: sc.NextSceneID,
				})
				continue
			}
			edges[sc.SceneID] = append(edges[sc.SceneID], sc.NextSceneID)
		}
		reportCycle(result, types.KindScene, edges)
	}
	return nil
}

func (s *Steward) checkStoryLinks(ctx context.Context, universeID string, delta *types.DeltaBatch, result *types.ValidationResult) error {
	touched := len(delta.NewStories) > 0
	for _, u := range delta.StoryUpdates {
		if u.NextStoryID != nil {
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
	// Forward links stay within one parent scope.
	scopes := make(map[string]map[string][]string)
	byID := make(map[string]*types.Story, len(stories))
	for _, st := range stories {
		byID[st.StoryID] = st
		scope := st.ParentScope()
		if scopes[scope] == nil {
			scopes[scope] = make(map[string][]string)
		}
		scopes[scope][st.StoryID] = nil
	}
	for _, st := range stories {
		if st.NextStoryID == "" {
			continue
		}
		next, ok := byID[st.NextStoryID]
		if !ok || next.ParentScope() != st.ParentScope() {
			result.AddViolation(types.Violation{
				Kind: types.ViolationUnknownReference,
				Message: fmt.Sprintf("story %s links to %s, which is not a sibling story",
					st.StoryID, st.NextStoryID),
				SubjectID:  st.StoryID,
				ConflictID: st.NextStoryID,
			})
			continue
		}
		scope := st.ParentScope()
		scopes[scope][st.StoryID] = append(scopes[scope][st.StoryID], st.NextStoryID)
	}
	scopeIDs := make([]string, 0, len(scopes))
	for scope := range scopes {
		scopeIDs = append(scopeIDs, scope)
	}
	sort.Strings(scopeIDs)
	for _, scope := range scopeIDs {
		reportCycle(result, types.KindStory, scopes[scope])
	}
	return nil
}

func (s *Steward) checkArcLinks(ctx context.Context, universeID string, delta *types.DeltaBatch, result *types.ValidationResult) error {
	if len(delta.NewArcs) == 0 {
		return nil
	}
	stored, err := s.reader.ArcsInUniverse(ctx, universeID)
	if err != nil {
		return err
	}
	all := append(append([]*types.Arc{}, stored...), delta.NewArcs...)
	edges := make(map[string][]string, len(all))
	for _, a := range all {
		edges[a.ArcID] = nil
	}
	for _, a := range all {
		if a.NextArcID == "" {
			continue
		}
		if _, ok := edges[a.NextArcID]; !ok {
			result.AddViolation(types.Violation{
				Kind: types.ViolationUnknownReference,
				Message: fmt.Sprintf("arc %s links to %s, which is not an arc of this universe",
					a.ArcID, a.NextArcID),
				SubjectID:  a.ArcID,
				ConflictID: a.NextArcID,
			})
			continue
		}
		edges[a.ArcID] = append(edges[a.ArcID], a.NextArcID)
	}
	reportCycle(result, types.KindArc, edges)
	return nil
}

// checkDerivations verifies fact derived_from chains resolve and stay
// acyclic once the proposed facts are added.
func (s *Steward) checkDerivations(ctx context.Context, universeID string, delta *types.DeltaBatch, result *types.ValidationResult) error {
	derives := false
	for _, f := range delta.NewFacts {
		if len(f.DerivedFrom) > 0 {
			derives = true
			break
		}
	}
	if !derives {
		return nil
	}
	stored, err := s.reader.FactsInUniverse(ctx, universeID)
	if err != nil {
		return err
	}
	edges := make(map[string][]string, len(stored)+len(delta.NewFacts))
	for _, f := range stored {
		edges[f.FactID] = f.DerivedFrom
	}
	for _, f := range delta.NewFacts {
		edges[f.FactID] = nil
	}
	for _, f := range delta.NewFacts {
		for _, src := range f.DerivedFrom {
			if _, ok := edges[src]; !ok {
				result.AddViolation(types.Violation{
					Kind: types.ViolationUnknownReference,
					Message: fmt.Sprintf("fact %s derives from %s, which does not exist in this universe",
						f.FactID, src),
					SubjectID:  f.FactID,
					ConflictID: src,
				})
				continue
			}
			edges[f.FactID] = append(edges[f.FactID], src)
		}
	}
	reportCycle(result, types.KindFact, edges)
	return nil
}

// reportCycle runs depth-first search over the adjacency map and records a
// violation for the first cycle found per scope.
func reportCycle(result *types.ValidationResult, kind string, edges map[string][]string) {
	if path := detectCycle(edges); path != nil {
		result.AddViolation(types.Violation{
			Kind: types.ViolationCycleDetected,
			Message: fmt.Sprintf("%s links form a cycle through %s",
				kind, path[0]),
			SubjectID:  path[0],
			ConflictID: path[len(path)-1],
		})
	}
}

// detectCycle returns the node path of the first cycle found, or nil when
// the graph is acyclic. Dedicated visiting/visited sets keep the walk
// linear in nodes plus edges.
func detectCycle(edges map[string][]string) []string {
	visited := make(map[string]bool, len(edges))
	visiting := make(map[string]bool)

	nodes := make([]string, 0, len(edges))
	for n := range edges {
		nodes = append(nodes, n)
	}
	sort.Strings(nodes)

	var walk func(node string, path []string) []string
	walk = func(node string, path []string) []string {
		if visiting[node] {
			return append(path, node)
		}
		if visited[node] {
			return nil
		}
		visiting[node] = true
		for _, next := range edges[node] {
			if cycle := walk(next, append(path, node)); cycle != nil {
				return cycle
			}
		}
		visiting[node] = false
		visited[node] = true
		return nil
	}
	for _, n := range nodes {
		if cycle := walk(n, nil); cycle != nil {
			return cycle
		}
	}
	return nil
}

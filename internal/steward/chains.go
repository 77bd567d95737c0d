package steward

import (
	"context"
	"fmt"

	"github.com/storymesh/weft/pkg/types"
)

// checkChains verifies relation provenance ordering: the scenes where a
// state was set, changed, and ended must carry non-decreasing sequence
// indexes within their story.
func (s *Steward) checkChains(ctx context.Context, universeID string, delta *types.DeltaBatch, proposed []*types.RelationState, result *types.ValidationResult) error {
	var lookup []string
	for _, r := range proposed {
		lookup = append(lookup, provenanceScenes(r)...)
	}
	if len(lookup) == 0 {
		return nil
	}

	scenes, err := s.reader.ScenesByID(ctx, universeID, lookup)
	if err != nil {
		return err
	}
	// Scenes proposed in the same batch count as known.
	for _, sc := range delta.NewScenes {
		scenes[sc.SceneID] = sc
	}

	for _, r := range proposed {
		chain := provenanceScenes(r)
		lastIndex := 0
		lastScene := ""
		broken := false
		for _, sceneID := range chain {
			sc, ok := scenes[sceneID]
			if !ok {
				result.AddViolation(types.Violation{
					Kind: types.ViolationUnknownReference,
					Message: fmt.Sprintf("relation state %s references unknown scene %s",
						r.RelationID, sceneID),
					SubjectID:  r.RelationID,
					ConflictID: sceneID,
				})
				broken = true
				continue
			}
			if broken {
				continue
			}
			if sc.SequenceIndex < lastIndex {
				result.AddViolation(types.Violation{
					Kind: types.ViolationIncoherentChain,
					Message: fmt.Sprintf("relation state %s: scene %s (index %d) precedes earlier provenance scene %s (index %d)",
						r.RelationID, sceneID, sc.SequenceIndex, lastScene, lastIndex),
					SubjectID:  r.RelationID,
					ConflictID: sceneID,
				})
				break
			}
			lastIndex = sc.SequenceIndex
			lastScene = sceneID
		}
	}
	return nil
}

// provenanceScenes returns the state's provenance chain in set, changed,
// ended order, skipping empty entries.
func provenanceScenes(r *types.RelationState) []string {
	var out []string
	if r.SetInScene != "" {
		out = append(out, r.SetInScene)
	}
	out = append(out, r.ChangedInScenes...)
	if r.EndedInScene != "" {
		out = append(out, r.EndedInScene)
	}
	return out
}

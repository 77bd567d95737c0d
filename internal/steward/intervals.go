package steward

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/storymesh/weft/pkg/types"
)

// proposedRelations resolves the relation states the delta would leave
// behind: new states as proposed, updated states with the update applied.
// Unresolvable update targets are recorded as violations.
func (s *Steward) proposedRelations(ctx context.Context, delta *types.DeltaBatch, result *types.ValidationResult) ([]*types.RelationState, error) {
	out := make([]*types.RelationState, 0, len(delta.NewRelations)+len(delta.RelationUpdates))
	out = append(out, delta.NewRelations...)

	for _, u := range delta.RelationUpdates {
		stored, err := s.reader.RelationStateByID(ctx, u.RelationID)
		if err != nil {
			if errors.Is(err, types.ErrNotFound) {
				result.AddViolation(types.Violation{
					Kind:      types.ViolationUnknownReference,
					Message:   fmt.Sprintf("relation update targets unknown state %s", u.RelationID),
					SubjectID: u.RelationID,
				})
				continue
			}
			return nil, err
		}
		updated := *stored
		if u.StartedAt != nil {
			updated.StartedAt = *u.StartedAt
		}
		if u.Reopen {
			updated.EndedAt = nil
			updated.EndedInScene = ""
		} else {
			if u.EndedAt != nil {
				updated.EndedAt = u.EndedAt
			}
			if u.EndedInScene != nil {
				updated.EndedInScene = *u.EndedInScene
			}
		}
		updated.ChangedInScenes = append(append([]string{}, stored.ChangedInScenes...), u.ChangedInScenes...)
		out = append(out, &updated)
	}
	return out, nil
}

// checkFactSpans flags proposed facts whose interval anchor starts at or
// after it ends.
func checkFactSpans(delta *types.DeltaBatch, result *types.ValidationResult) {
	for _, f := range delta.NewFacts {
		if !f.SpanValid() {
			result.AddViolation(types.Violation{
				Kind:      types.ViolationInvalidInterval,
				Message:   fmt.Sprintf("fact %s has a span that starts at or after it ends", f.FactID),
				SubjectID: f.FactID,
			})
		}
	}
}

// checkIntervals enforces interval exclusivity: for one unordered entity
// pair and relation type, the half-open state intervals must not intersect.
// Malformed intervals and self-referencing endpoints are flagged as well.
func (s *Steward) checkIntervals(ctx context.Context, universeID string, proposed []*types.RelationState, result *types.ValidationResult) error {
	byPair := make(map[string][]*types.RelationState)
	for _, r := range proposed {
		if !r.IntervalValid() {
			result.AddViolation(types.Violation{
				Kind: types.ViolationInvalidInterval,
				Message: fmt.Sprintf("relation state %s starts at or after it ends (%s)",
					r.RelationID, r.StartedAt.Format("2006-01-02T15:04:05Z07:00")),
				SubjectID: r.RelationID,
			})
			continue
		}
		if r.EntityA == r.EntityB {
			result.AddWarning(types.Violation{
				Kind:      types.ViolationIdenticalEndpoints,
				Message:   fmt.Sprintf("relation state %s relates entity %s to itself", r.RelationID, r.EntityA),
				SubjectID: r.RelationID,
			})
		}
		byPair[r.PairKey()] = append(byPair[r.PairKey()], r)
	}

	pairs := make([]string, 0, len(byPair))
	for key := range byPair {
		pairs = append(pairs, key)
	}
	sort.Strings(pairs)

	for _, key := range pairs {
		states := byPair[key]
		replaced := make(map[string]bool, len(states))
		for _, r := range states {
			replaced[r.RelationID] = true
		}

		first := states[0]
		stored, err := s.reader.RelationStatesForPair(ctx, universeID, first.EntityA, first.EntityB, first.Type)
		if err != nil {
			return err
		}
		candidates := make([]*types.RelationState, 0, len(stored)+len(states))
		for _, r := range stored {
			// A state being updated in this batch is superseded by its
			// proposed version.
			if !replaced[r.RelationID] {
				candidates = append(candidates, r)
			}
		}
		candidates = append(candidates, states...)

		for _, r := range states {
			for _, other := range candidates {
				if other.RelationID == r.RelationID {
					continue
				}
				if r.Overlaps(other) {
					result.AddViolation(types.Violation{
						Kind: types.ViolationOverlappingInterval,
						Message: fmt.Sprintf("relation state %s overlaps %s for the same pair and type %q",
							r.RelationID, other.RelationID, r.Type),
						SubjectID:  r.RelationID,
						ConflictID: other.RelationID,
					})
					break
				}
			}
		}
	}
	return nil
}

package steward

import (
	"context"
	"fmt"
	"sort"

	"github.com/storymesh/weft/pkg/types"
)

// checkCoverage evaluates existence and min_count axioms against the entity
// population the delta would produce. Shortfalls are warnings unless strict
// coverage is enabled. A story-scoped axiom shadows the universe-wide one
// for the same (semantics, archetype) pair.
func (s *Steward) checkCoverage(ctx context.Context, universeID string, delta *types.DeltaBatch, result *types.ValidationResult) error {
	stored, err := s.reader.AxiomsInUniverse(ctx, universeID)
	if err != nil {
		return err
	}
	axioms := make([]*types.Axiom, 0, len(stored)+len(delta.NewAxioms))
	axioms = append(axioms, stored...)
	axioms = append(axioms, delta.NewAxioms...)

	scoped := make(map[string]bool)
	for _, a := range axioms {
		if a.Enabled && a.StoryID != "" {
			scoped[a.Semantics+"\x00"+a.Archetype] = true
		}
	}

	newByKind := make(map[string]int)
	for _, e := range delta.NewEntities {
		newByKind[e.Kind]++
	}

	sort.Slice(axioms, func(i, j int) bool { return axioms[i].AxiomID < axioms[j].AxiomID })
	for _, a := range axioms {
		if !a.Enabled || a.Threshold() == 0 {
			continue
		}
		if a.StoryID == "" && scoped[a.Semantics+"\x00"+a.Archetype] {
			continue
		}
		count, err := s.reader.CountEntitiesByKind(ctx, universeID, a.Archetype)
		if err != nil {
			return err
		}
		count += newByKind[a.Archetype]
		if count >= a.Threshold() {
			continue
		}
		v := types.Violation{
			Kind: types.ViolationCoverageShortfall,
			Message: fmt.Sprintf("axiom %s demands %d %q entities, universe has %d",
				a.AxiomID, a.Threshold(), a.Archetype, count),
			SubjectID: a.AxiomID,
		}
		if s.strictCoverage {
			result.AddViolation(v)
		} else {
			result.AddWarning(v)
		}
	}
	return nil
}

// checkParticipants warns about fact participants that resolve to no entity
// once the delta lands.
func (s *Steward) checkParticipants(ctx context.Context, universeID string, delta *types.DeltaBatch, result *types.ValidationResult) error {
	needed := false
	for _, f := range delta.NewFacts {
		if len(f.Participants) > 0 {
			needed = true
			break
		}
	}
	if !needed {
		return nil
	}

	entities, err := s.reader.EntitiesInUniverse(ctx, universeID)
	if err != nil {
		return err
	}
	known := make(map[string]bool, len(entities)+len(delta.NewEntities))
	for _, e := range entities {
		known[e.EntityID] = true
	}
	for _, e := range delta.NewEntities {
		known[e.EntityID] = true
	}

	for _, f := range delta.NewFacts {
		for _, p := range f.Participants {
			if !known[p.EntityID] {
				result.AddWarning(types.Violation{
					Kind: types.ViolationUnknownParticipant,
					Message: fmt.Sprintf("fact %s names participant %s, which is not an entity of this universe",
						f.FactID, p.EntityID),
					SubjectID:  f.FactID,
					ConflictID: p.EntityID,
				})
			}
		}
	}
	return nil
}

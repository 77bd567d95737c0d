package sqlite

import (
	"context"
	"fmt"

	"github.com/storymesh/weft/pkg/types"
)

// ApplyDelta writes a validated batch in a single transaction: creates
// first, then field updates. Missing ids and timestamps are filled in
// before insertion; the batch is mutated in place so callers see the
// assigned ids.
func (s *Store) ApplyDelta(ctx context.Context, universeID string, delta *types.DeltaBatch) error {
	db, err := s.handle()
	if err != nil {
		return err
	}
	if universeID == "" {
		return types.ErrInvalidID
	}
	delta.UniverseID = universeID
	exists, err := universeExists(ctx, db, delta.UniverseID)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("universe %s: %w", delta.UniverseID, types.ErrUniverseNotFound)
	}
	if delta.Empty() {
		return nil
	}
	prepareDelta(delta)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return infraErr("begin delta", err)
	}
	if err := applyDeltaTx(ctx, tx, delta); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return infraErr("commit delta", err)
	}
	return nil
}

// prepareDelta fills ids, universe scope, provenance defaults, and
// timestamps on every proposed row.
func prepareDelta(delta *types.DeltaBatch) {
	now := nowUTC()
	for _, a := range delta.NewArcs {
		if a.ArcID == "" {
			a.ArcID = generateUUID()
		}
		a.UniverseID = delta.UniverseID
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
	}
	for _, st := range delta.NewStories {
		if st.StoryID == "" {
			st.StoryID = generateUUID()
		}
		st.UniverseID = delta.UniverseID
		if st.CreatedAt.IsZero() {
			st.CreatedAt = now
		}
	}
	for _, sc := range delta.NewScenes {
		if sc.SceneID == "" {
			sc.SceneID = generateUUID()
		}
		sc.UniverseID = delta.UniverseID
		if sc.CreatedAt.IsZero() {
			sc.CreatedAt = now
		}
	}
	for _, e := range delta.NewEntities {
		if e.EntityID == "" {
			e.EntityID = generateUUID()
		}
		e.UniverseID = delta.UniverseID
		if e.CreatedAt.IsZero() {
			e.CreatedAt = now
		}
		if e.UpdatedAt.IsZero() {
			e.UpdatedAt = e.CreatedAt
		}
	}
	for _, f := range delta.NewFacts {
		if f.FactID == "" {
			f.FactID = generateUUID()
		}
		f.UniverseID = delta.UniverseID
		if f.SceneID == "" {
			f.SceneID = delta.SceneID
		}
		if f.CreatedAt.IsZero() {
			f.CreatedAt = now
		}
	}
	for _, r := range delta.NewRelations {
		if r.RelationID == "" {
			r.RelationID = generateUUID()
		}
		r.UniverseID = delta.UniverseID
		if r.SetInScene == "" {
			r.SetInScene = delta.SceneID
		}
		if r.CreatedAt.IsZero() {
			r.CreatedAt = now
		}
	}
	for _, a := range delta.NewAxioms {
		if a.AxiomID == "" {
			a.AxiomID = generateUUID()
		}
		a.UniverseID = delta.UniverseID
		if a.CreatedAt.IsZero() {
			a.CreatedAt = now
		}
	}
}

func applyDeltaTx(ctx context.Context, tx dbtx, delta *types.DeltaBatch) error {
	for _, a := range delta.NewArcs {
		if err := insertArc(ctx, tx, a); err != nil {
			return err
		}
	}
	for _, st := range delta.NewStories {
		if err := insertStory(ctx, tx, st); err != nil {
			return err
		}
	}
	for _, sc := range delta.NewScenes {
		if err := insertScene(ctx, tx, sc); err != nil {
			return err
		}
	}
	for _, e := range delta.NewEntities {
		if err := insertEntity(ctx, tx, e); err != nil {
			return err
		}
	}
	for _, f := range delta.NewFacts {
		if err := insertFact(ctx, tx, f); err != nil {
			return err
		}
	}
	for _, r := range delta.NewRelations {
		if err := insertRelation(ctx, tx, r); err != nil {
			return err
		}
	}
	for _, a := range delta.NewAxioms {
		if err := insertAxiom(ctx, tx, a); err != nil {
			return err
		}
	}
	for _, u := range delta.EntityUpdates {
		if err := applyEntityUpdate(ctx, tx, u); err != nil {
			return err
		}
	}
	for _, u := range delta.StoryUpdates {
		if err := updateStory(ctx, tx, u); err != nil {
			return err
		}
	}
	for _, u := range delta.SceneUpdates {
		if err := updateScene(ctx, tx, u); err != nil {
			return err
		}
	}
	for _, u := range delta.FactUpdates {
		if err := updateFact(ctx, tx, u); err != nil {
			return err
		}
	}
	for _, u := range delta.RelationUpdates {
		if err := applyRelationUpdate(ctx, tx, u); err != nil {
			return err
		}
	}
	return nil
}

package sqlite

import (
	"context"
	"fmt"

	"github.com/storymesh/weft/pkg/types"
)

// Snapshot reads everything in a universe, keyed by stable id per kind.
func (s *Store) Snapshot(ctx context.Context, universeID string) (*types.UniverseSnapshot, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	u, err := s.GetUniverse(ctx, universeID)
	if err != nil {
		return nil, err
	}
	snap := types.NewUniverseSnapshot(u)

	arcs, err := queryArcs(ctx, db,
		`SELECT `+arcColumns+` FROM arcs WHERE universe_id = ? ORDER BY sequence_index, arc_id`, universeID)
	if err != nil {
		return nil, err
	}
	for _, a := range arcs {
		snap.Arcs[a.StableID()] = a
	}

	stories, err := queryStories(ctx, db,
		`SELECT `+storyColumns+` FROM stories WHERE universe_id = ? ORDER BY sequence_index, story_id`, universeID)
	if err != nil {
		return nil, err
	}
	for _, st := range stories {
		snap.Stories[st.StableID()] = st
	}

	scenes, err := queryScenes(ctx, db,
		`SELECT `+sceneColumns+` FROM scenes WHERE universe_id = ? ORDER BY story_id, sequence_index`, universeID)
	if err != nil {
		return nil, err
	}
	for _, sc := range scenes {
		snap.Scenes[sc.StableID()] = sc
	}

	entities, err := s.EntitiesInUniverse(ctx, universeID)
	if err != nil {
		return nil, err
	}
	for _, e := range entities {
		snap.Entities[e.StableID()] = e
	}

	facts, err := s.FactsInUniverse(ctx, universeID)
	if err != nil {
		return nil, err
	}
	for _, f := range facts {
		snap.Facts[f.StableID()] = f
	}

	relations, err := relationsInUniverse(ctx, db, universeID)
	if err != nil {
		return nil, err
	}
	for _, r := range relations {
		snap.Relations[r.StableID()] = r
	}

	axioms, err := s.AxiomsInUniverse(ctx, universeID)
	if err != nil {
		return nil, err
	}
	for _, a := range axioms {
		snap.Axioms[a.StableID()] = a
	}
	return snap, nil
}

// ImportUniverse persists a new universe record together with pre-built
// snapshot contents in one transaction. Rows must already carry their
// final ids, universe scope, and lineage; used by branch cloning.
func (s *Store) ImportUniverse(ctx context.Context, u *types.Universe, snap *types.UniverseSnapshot) error {
	db, err := s.handle()
	if err != nil {
		return err
	}
	if u.Name == "" {
		return fmt.Errorf("universe name is required: %w", types.ErrInvalidData)
	}
	prepareUniverse(u)

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return infraErr("begin import", err)
	}
	if err := importTx(ctx, tx, u, snap); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return infraErr("commit import", err)
	}
	return nil
}

func importTx(ctx context.Context, tx dbtx, u *types.Universe, snap *types.UniverseSnapshot) error {
	if err := insertUniverse(ctx, tx, u); err != nil {
		return err
	}
	for _, a := range snap.Arcs {
		if err := insertArc(ctx, tx, a); err != nil {
			return err
		}
	}
	for _, st := range snap.Stories {
		if err := insertStory(ctx, tx, st); err != nil {
			return err
		}
	}
	for _, sc := range snap.Scenes {
		if err := insertScene(ctx, tx, sc); err != nil {
			return err
		}
	}
	for _, e := range snap.Entities {
		if err := insertEntity(ctx, tx, e); err != nil {
			return err
		}
	}
	for _, f := range snap.Facts {
		if err := insertFact(ctx, tx, f); err != nil {
			return err
		}
	}
	for _, r := range snap.Relations {
		if err := insertRelation(ctx, tx, r); err != nil {
			return err
		}
	}
	for _, a := range snap.Axioms {
		if err := insertAxiom(ctx, tx, a); err != nil {
			return err
		}
	}
	return nil
}

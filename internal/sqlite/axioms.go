package sqlite

import (
	"context"
	"database/sql"

	"github.com/storymesh/weft/pkg/types"
)

func insertAxiom(ctx context.Context, q dbtx, a *types.Axiom) error {
	enabled := 0
	if a.Enabled {
		enabled = 1
	}
	_, err := q.ExecContext(ctx,
		`INSERT INTO axioms (axiom_id, universe_id, origin_id, story_id, semantics, archetype, min_count, description, enabled, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		a.AxiomID, a.UniverseID, nullable(a.OriginID), nullable(a.StoryID),
		a.Semantics, a.Archetype, a.MinCount, nullable(a.Description), enabled,
		encodeTime(a.CreatedAt),
	)
	if err != nil {
		return infraErr("insert axiom", err)
	}
	return nil
}

const axiomColumns = `axiom_id, universe_id, origin_id, story_id, semantics, archetype, min_count, description, enabled, created_at`

func hydrateAxiom(sc scanner) (*types.Axiom, error) {
	var (
		a         types.Axiom
		origin    sql.NullString
		storyID   sql.NullString
		desc      sql.NullString
		enabled   int
		createdAt string
	)
	if err := sc.Scan(&a.AxiomID, &a.UniverseID, &origin, &storyID, &a.Semantics,
		&a.Archetype, &a.MinCount, &desc, &enabled, &createdAt); err != nil {
		return nil, err
	}
	a.OriginID = origin.String
	a.StoryID = storyID.String
	a.Description = desc.String
	a.Enabled = enabled != 0
	var err error
	if a.CreatedAt, err = decodeTime(createdAt); err != nil {
		return nil, err
	}
	return &a, nil
}

// AxiomsInUniverse returns all axioms of a universe, universe-wide ones
// first, then story-scoped, in creation order within each group.
func (s *Store) AxiomsInUniverse(ctx context.Context, universeID string) ([]*types.Axiom, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx,
		`SELECT `+axiomColumns+` FROM axioms
          WHERE universe_id = ?
          ORDER BY story_id IS NOT NULL, created_at, axiom_id`,
		universeID)
	if err != nil {
		return nil, infraErr("query axioms", err)
	}
	defer rows.Close()

	var out []*types.Axiom
	for rows.Next() {
		a, err := hydrateAxiom(rows)
		if err != nil {
			return nil, infraErr("scan axiom", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, infraErr("query axioms", err)
	}
	return out, nil
}

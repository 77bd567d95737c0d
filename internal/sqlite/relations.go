package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/storymesh/weft/pkg/types"
)

func insertRelation(ctx context.Context, q dbtx, r *types.RelationState) error {
	changed, err := encodeStrings(r.ChangedInScenes)
	if err != nil {
		return fmt.Errorf("encode changed_in_scenes: %w", types.ErrInvalidData)
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO relation_states (relation_id, universe_id, origin_id, relation_type, entity_a, entity_b,
            started_at, ended_at, set_in_scene, changed_in_scenes, ended_in_scene, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RelationID, r.UniverseID, nullable(r.OriginID), r.Type, r.EntityA, r.EntityB,
		encodeTime(r.StartedAt), encodeTimePtr(r.EndedAt),
		nullable(r.SetInScene), changed, nullable(r.EndedInScene), encodeTime(r.CreatedAt),
	)
	if err != nil {
		return infraErr("insert relation state", err)
	}
	return nil
}

// applyRelationUpdate mutates interval bounds and provenance of a stored
// state. ChangedInScenes entries are appended, never replaced. Reopen wins
// over the ending pointer fields.
func applyRelationUpdate(ctx context.Context, q dbtx, u types.RelationUpdate) error {
	if u.RelationID == "" {
		return types.ErrInvalidID
	}
	r, err := getRelation(ctx, q, u.RelationID)
	if err != nil {
		return err
	}
	if u.StartedAt != nil {
		r.StartedAt = *u.StartedAt
	}
	if u.Reopen {
		r.EndedAt = nil
		r.EndedInScene = ""
	} else {
		if u.EndedAt != nil {
			r.EndedAt = u.EndedAt
		}
		if u.EndedInScene != nil {
			r.EndedInScene = *u.EndedInScene
		}
	}
	r.ChangedInScenes = append(r.ChangedInScenes, u.ChangedInScenes...)

	changed, err := encodeStrings(r.ChangedInScenes)
	if err != nil {
		return fmt.Errorf("encode changed_in_scenes: %w", types.ErrInvalidData)
	}
	_, err = q.ExecContext(ctx,
		`UPDATE relation_states SET started_at = ?, ended_at = ?, ended_in_scene = ?, changed_in_scenes = ?
          WHERE relation_id = ?`,
		encodeTime(r.StartedAt), encodeTimePtr(r.EndedAt), nullable(r.EndedInScene), changed,
		u.RelationID,
	)
	if err != nil {
		return infraErr("update relation state", err)
	}
	return nil
}

const relationColumns = `relation_id, universe_id, origin_id, relation_type, entity_a, entity_b,
    started_at, ended_at, set_in_scene, changed_in_scenes, ended_in_scene, created_at`

func hydrateRelation(sc scanner) (*types.RelationState, error) {
	var (
		r         types.RelationState
		origin    sql.NullString
		endedAt   sql.NullString
		setIn     sql.NullString
		changed   string
		endedIn   sql.NullString
		startedAt string
		createdAt string
	)
	if err := sc.Scan(&r.RelationID, &r.UniverseID, &origin, &r.Type, &r.EntityA, &r.EntityB,
		&startedAt, &endedAt, &setIn, &changed, &endedIn, &createdAt); err != nil {
		return nil, err
	}
	r.OriginID = origin.String
	r.SetInScene = setIn.String
	r.EndedInScene = endedIn.String
	var err error
	if r.StartedAt, err = decodeTime(startedAt); err != nil {
		return nil, err
	}
	if r.EndedAt, err = decodeTimePtr(endedAt); err != nil {
		return nil, err
	}
	if r.ChangedInScenes, err = decodeStrings(changed); err != nil {
		return nil, err
	}
	if r.CreatedAt, err = decodeTime(createdAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func getRelation(ctx context.Context, q dbtx, id string) (*types.RelationState, error) {
	row := q.QueryRowContext(ctx, `SELECT `+relationColumns+` FROM relation_states WHERE relation_id = ?`, id)
	r, err := hydrateRelation(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("relation state %s: %w", id, types.ErrNotFound)
		}
		return nil, infraErr("get relation state", err)
	}
	return r, nil
}

func queryRelations(ctx context.Context, q dbtx, query string, args ...any) ([]*types.RelationState, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, infraErr("query relation states", err)
	}
	defer rows.Close()

	var out []*types.RelationState
	for rows.Next() {
		r, err := hydrateRelation(rows)
		if err != nil {
			return nil, infraErr("scan relation state", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, infraErr("query relation states", err)
	}
	return out, nil
}

// RelationStateByID returns one relation state by its raw id.
func (s *Store) RelationStateByID(ctx context.Context, relationID string) (*types.RelationState, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	return getRelation(ctx, db, relationID)
}

// RelationStatesForPair returns all states for an unordered entity pair and
// relation type, ordered by interval start. Entity order in the arguments
// does not matter.
func (s *Store) RelationStatesForPair(ctx context.Context, universeID, entityA, entityB, relType string) ([]*types.RelationState, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	return queryRelations(ctx, db,
		`SELECT `+relationColumns+` FROM relation_states
          WHERE universe_id = ? AND relation_type = ?
            AND ((entity_a = ? AND entity_b = ?) OR (entity_a = ? AND entity_b = ?))
          ORDER BY started_at, relation_id`,
		universeID, relType, entityA, entityB, entityB, entityA)
}

// RelationStatesAt returns the states of an unordered entity pair in effect
// at the given instant, half-open interval semantics. Timestamps are stored
// as RFC3339 text with variable fraction width, so the instant comparison
// happens in Go rather than in SQL.
func (s *Store) RelationStatesAt(ctx context.Context, universeID, entityA, entityB string, at time.Time) ([]*types.RelationState, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	all, err := queryRelations(ctx, db,
		`SELECT `+relationColumns+` FROM relation_states
          WHERE universe_id = ?
            AND ((entity_a = ? AND entity_b = ?) OR (entity_a = ? AND entity_b = ?))
          ORDER BY started_at, relation_id`,
		universeID, entityA, entityB, entityB, entityA)
	if err != nil {
		return nil, err
	}
	var out []*types.RelationState
	for _, r := range all {
		if r.EffectiveAt(at) {
			out = append(out, r)
		}
	}
	return out, nil
}

// relationsInUniverse returns every state of a universe, used by snapshots.
func relationsInUniverse(ctx context.Context, q dbtx, universeID string) ([]*types.RelationState, error) {
	return queryRelations(ctx, q,
		`SELECT `+relationColumns+` FROM relation_states WHERE universe_id = ? ORDER BY started_at, relation_id`,
		universeID)
}

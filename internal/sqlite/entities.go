package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/storymesh/weft/pkg/types"
)

func insertEntity(ctx context.Context, q dbtx, e *types.Entity) error {
	attrs, err := encodeAttrs(e.Attrs)
	if err != nil {
		return fmt.Errorf("encode attrs: %w", types.ErrInvalidData)
	}
	_, err = q.ExecContext(ctx,
		`INSERT INTO entities (entity_id, universe_id, origin_id, kind, name, attrs, created_at, updated_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.EntityID, e.UniverseID, nullable(e.OriginID), e.Kind, e.Name, attrs,
		encodeTime(e.CreatedAt), encodeTime(e.UpdatedAt),
	)
	if err != nil {
		return infraErr("insert entity", err)
	}
	return nil
}

// applyEntityUpdate merges (or swaps, when Replace is set) the update's
// attribute map into the stored one and bumps updated_at.
func applyEntityUpdate(ctx context.Context, q dbtx, u types.EntityUpdate) error {
	if u.EntityID == "" {
		return types.ErrInvalidID
	}
	e, err := getEntity(ctx, q, u.EntityID)
	if err != nil {
		return err
	}
	if u.Name != "" {
		e.Name = u.Name
	}
	if u.Replace {
		e.Attrs = u.Attrs.Clone()
	} else if len(u.Attrs) > 0 {
		if e.Attrs == nil {
			e.Attrs = types.Attrs{}
		}
		for k, v := range u.Attrs {
			e.Attrs[k] = v
		}
	}
	attrs, err := encodeAttrs(e.Attrs)
	if err != nil {
		return fmt.Errorf("encode attrs: %w", types.ErrInvalidData)
	}
	_, err = q.ExecContext(ctx,
		`UPDATE entities SET name = ?, attrs = ?, updated_at = ? WHERE entity_id = ?`,
		e.Name, attrs, encodeTime(nowUTC()), u.EntityID,
	)
	if err != nil {
		return infraErr("update entity", err)
	}
	return nil
}

const entityColumns = `entity_id, universe_id, origin_id, kind, name, attrs, created_at, updated_at`

func getEntity(ctx context.Context, q dbtx, id string) (*types.Entity, error) {
	row := q.QueryRowContext(ctx, `SELECT `+entityColumns+` FROM entities WHERE entity_id = ?`, id)
	e, err := hydrateEntity(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("entity %s: %w", id, types.ErrNotFound)
		}
		return nil, infraErr("get entity", err)
	}
	return e, nil
}

func hydrateEntity(sc scanner) (*types.Entity, error) {
	var (
		e         types.Entity
		origin    sql.NullString
		attrs     string
		createdAt string
		updatedAt string
	)
	if err := sc.Scan(&e.EntityID, &e.UniverseID, &origin, &e.Kind, &e.Name, &attrs, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	e.OriginID = origin.String
	decoded, err := decodeAttrs(attrs)
	if err != nil {
		return nil, err
	}
	e.Attrs = decoded
	if e.CreatedAt, err = decodeTime(createdAt); err != nil {
		return nil, err
	}
	if e.UpdatedAt, err = decodeTime(updatedAt); err != nil {
		return nil, err
	}
	return &e, nil
}

// EntitiesInUniverse returns all entities of a universe ordered by name.
func (s *Store) EntitiesInUniverse(ctx context.Context, universeID string) ([]*types.Entity, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx,
		`SELECT `+entityColumns+` FROM entities WHERE universe_id = ? ORDER BY name, entity_id`,
		universeID)
	if err != nil {
		return nil, infraErr("query entities", err)
	}
	defer rows.Close()

	var out []*types.Entity
	for rows.Next() {
		e, err := hydrateEntity(rows)
		if err != nil {
			return nil, infraErr("scan entity", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, infraErr("query entities", err)
	}
	return out, nil
}

// CountEntitiesByKind counts the entities of one kind inside a universe.
// Used for axiom coverage checks.
func (s *Store) CountEntitiesByKind(ctx context.Context, universeID, kind string) (int, error) {
	db, err := s.handle()
	if err != nil {
		return 0, err
	}
	var n int
	err = db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM entities WHERE universe_id = ? AND kind = ?`,
		universeID, kind).Scan(&n)
	if err != nil {
		return 0, infraErr("count entities", err)
	}
	return n, nil
}

package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/storymesh/weft/pkg/types"
)

// dbtx abstracts over *sql.DB and *sql.Tx so row helpers work in and out of
// transactions.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// CreateUniverse persists a new universe record. An empty id is filled with
// a generated UUID; CreatedAt defaults to now.
func (s *Store) CreateUniverse(ctx context.Context, u *types.Universe) error {
	db, err := s.handle()
	if err != nil {
		return err
	}
	if u.Name == "" {
		return fmt.Errorf("universe name: %w", types.ErrInvalidData)
	}
	prepareUniverse(u)
	return insertUniverse(ctx, db, u)
}

func insertUniverse(ctx context.Context, q dbtx, u *types.Universe) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO universes (universe_id, name, description, derives_from, origin_scene_id, created_at)
         VALUES (?, ?, ?, ?, ?, ?)`,
		u.UniverseID, u.Name, nullable(u.Description), nullable(u.DerivesFrom),
		nullable(u.OriginSceneID), encodeTime(u.CreatedAt),
	)
	if err != nil {
		return infraErr("insert universe", err)
	}
	return nil
}

// prepareUniverse fills generated fields on a new universe.
func prepareUniverse(u *types.Universe) {
	if u.UniverseID == "" {
		u.UniverseID = generateUUID()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = nowUTC()
	}
}

// GetUniverse returns the universe with the given id.
// Returns ErrUniverseNotFound when no such universe exists.
func (s *Store) GetUniverse(ctx context.Context, id string) (*types.Universe, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, types.ErrInvalidID
	}
	row := db.QueryRowContext(ctx,
		`SELECT universe_id, name, description, derives_from, origin_scene_id, created_at
         FROM universes WHERE universe_id = ?`, id)
	u, err := hydrateUniverse(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("universe %s: %w", id, types.ErrUniverseNotFound)
		}
		return nil, infraErr("get universe", err)
	}
	return u, nil
}

// ListUniverses returns all universes ordered by creation time.
func (s *Store) ListUniverses(ctx context.Context) ([]*types.Universe, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	rows, err := db.QueryContext(ctx,
		`SELECT universe_id, name, description, derives_from, origin_scene_id, created_at
         FROM universes ORDER BY created_at, universe_id`)
	if err != nil {
		return nil, infraErr("list universes", err)
	}
	defer rows.Close()

	var out []*types.Universe
	for rows.Next() {
		u, err := hydrateUniverse(rows)
		if err != nil {
			return nil, infraErr("scan universe", err)
		}
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, infraErr("list universes", err)
	}
	return out, nil
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func hydrateUniverse(sc scanner) (*types.Universe, error) {
	var (
		u           types.Universe
		description sql.NullString
		derivesFrom sql.NullString
		originScene sql.NullString
		createdAt   string
	)
	if err := sc.Scan(&u.UniverseID, &u.Name, &description, &derivesFrom, &originScene, &createdAt); err != nil {
		return nil, err
	}
	u.Description = description.String
	u.DerivesFrom = derivesFrom.String
	u.OriginSceneID = originScene.String
	created, err := decodeTime(createdAt)
	if err != nil {
		return nil, err
	}
	u.CreatedAt = created
	return &u, nil
}

// universeExists reports whether the universe row is present.
func universeExists(ctx context.Context, q dbtx, id string) (bool, error) {
	var found string
	err := q.QueryRowContext(ctx, `SELECT universe_id FROM universes WHERE universe_id = ?`, id).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, infraErr("check universe", err)
	}
	return true, nil
}

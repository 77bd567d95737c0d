package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/storymesh/weft/pkg/types"
)

func insertFact(ctx context.Context, q dbtx, f *types.Fact) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO facts (fact_id, universe_id, origin_id, scene_id, description, at_time, span_start, span_end, confidence, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		f.FactID, f.UniverseID, nullable(f.OriginID), f.SceneID, f.Description,
		encodeTimePtr(f.At), encodeTimePtr(f.SpanStart), encodeTimePtr(f.SpanEnd),
		f.Confidence, encodeTime(f.CreatedAt),
	)
	if err != nil {
		return infraErr("insert fact", err)
	}
	for i, p := range f.Participants {
		_, err = q.ExecContext(ctx,
			`INSERT INTO fact_participants (fact_id, position, entity_id, role) VALUES (?, ?, ?, ?)`,
			f.FactID, i, p.EntityID, nullable(p.Role),
		)
		if err != nil {
			return infraErr("insert fact participant", err)
		}
	}
	for _, src := range f.DerivedFrom {
		_, err = q.ExecContext(ctx,
			`INSERT INTO fact_derivations (fact_id, derived_from_id) VALUES (?, ?)`,
			f.FactID, src,
		)
		if err != nil {
			return infraErr("insert fact derivation", err)
		}
	}
	return nil
}

func updateFact(ctx context.Context, q dbtx, u types.FactUpdate) error {
	if u.FactID == "" {
		return types.ErrInvalidID
	}
	var (
		sets []string
		args []any
	)
	if u.Description != nil {
		sets = append(sets, "description = ?")
		args = append(args, *u.Description)
	}
	if u.Confidence != nil {
		sets = append(sets, "confidence = ?")
		args = append(args, *u.Confidence)
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, u.FactID)
	res, err := q.ExecContext(ctx,
		`UPDATE facts SET `+strings.Join(sets, ", ")+` WHERE fact_id = ?`, args...)
	if err != nil {
		return infraErr("update fact", err)
	}
	return requireRow(res, "fact", u.FactID)
}

const factColumns = `fact_id, universe_id, origin_id, scene_id, description, at_time, span_start, span_end, confidence, created_at`

func hydrateFact(sc scanner) (*types.Fact, error) {
	var (
		f         types.Fact
		origin    sql.NullString
		at        sql.NullString
		spanStart sql.NullString
		spanEnd   sql.NullString
		createdAt string
	)
	if err := sc.Scan(&f.FactID, &f.UniverseID, &origin, &f.SceneID, &f.Description,
		&at, &spanStart, &spanEnd, &f.Confidence, &createdAt); err != nil {
		return nil, err
	}
	f.OriginID = origin.String
	var err error
	if f.At, err = decodeTimePtr(at); err != nil {
		return nil, err
	}
	if f.SpanStart, err = decodeTimePtr(spanStart); err != nil {
		return nil, err
	}
	if f.SpanEnd, err = decodeTimePtr(spanEnd); err != nil {
		return nil, err
	}
	if f.CreatedAt, err = decodeTime(createdAt); err != nil {
		return nil, err
	}
	return &f, nil
}

// loadFactRefs fills participant lists and derivation links for a set of
// hydrated facts.
func loadFactRefs(ctx context.Context, q dbtx, facts []*types.Fact) error {
	for _, f := range facts {
		rows, err := q.QueryContext(ctx,
			`SELECT entity_id, role FROM fact_participants WHERE fact_id = ? ORDER BY position`,
			f.FactID)
		if err != nil {
			return infraErr("query fact participants", err)
		}
		for rows.Next() {
			var (
				p    types.FactParticipant
				role sql.NullString
			)
			if err := rows.Scan(&p.EntityID, &role); err != nil {
				rows.Close()
				return infraErr("scan fact participant", err)
			}
			p.Role = role.String
			f.Participants = append(f.Participants, p)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return infraErr("query fact participants", err)
		}
		rows.Close()

		rows, err = q.QueryContext(ctx,
			`SELECT derived_from_id FROM fact_derivations WHERE fact_id = ? ORDER BY derived_from_id`,
			f.FactID)
		if err != nil {
			return infraErr("query fact derivations", err)
		}
		for rows.Next() {
			var src string
			if err := rows.Scan(&src); err != nil {
				rows.Close()
				return infraErr("scan fact derivation", err)
			}
			f.DerivedFrom = append(f.DerivedFrom, src)
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return infraErr("query fact derivations", err)
		}
		rows.Close()
	}
	return nil
}

func queryFacts(ctx context.Context, q dbtx, query string, args ...any) ([]*types.Fact, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, infraErr("query facts", err)
	}
	defer rows.Close()

	var out []*types.Fact
	for rows.Next() {
		f, err := hydrateFact(rows)
		if err != nil {
			return nil, infraErr("scan fact", err)
		}
		out = append(out, f)
	}
	if err := rows.Err(); err != nil {
		return nil, infraErr("query facts", err)
	}
	if err := loadFactRefs(ctx, q, out); err != nil {
		return nil, err
	}
	return out, nil
}

// FactsInUniverse returns all facts of a universe ordered by creation time.
func (s *Store) FactsInUniverse(ctx context.Context, universeID string) ([]*types.Fact, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	return queryFacts(ctx, db,
		`SELECT `+factColumns+` FROM facts WHERE universe_id = ? ORDER BY created_at, fact_id`,
		universeID)
}

// FactsForStory returns the facts recorded in any scene of the story, in
// scene order.
func (s *Store) FactsForStory(ctx context.Context, storyID string) ([]*types.Fact, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	return queryFacts(ctx, db,
		`SELECT `+factColumnsPrefixed+`
           FROM facts f
           JOIN scenes s ON s.scene_id = f.scene_id
          WHERE s.story_id = ?
          ORDER BY s.sequence_index, f.created_at, f.fact_id`,
		storyID)
}

const factColumnsPrefixed = `f.fact_id, f.universe_id, f.origin_id, f.scene_id, f.description, f.at_time, f.span_start, f.span_end, f.confidence, f.created_at`

func getFact(ctx context.Context, q dbtx, id string) (*types.Fact, error) {
	row := q.QueryRowContext(ctx, `SELECT `+factColumns+` FROM facts WHERE fact_id = ?`, id)
	f, err := hydrateFact(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("fact %s: %w", id, types.ErrNotFound)
		}
		return nil, infraErr("get fact", err)
	}
	if err := loadFactRefs(ctx, q, []*types.Fact{f}); err != nil {
		return nil, err
	}
	return f, nil
}

// Row accessors for the sequenced containers: arcs, stories, and scenes.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/storymesh/weft/pkg/types"
)

// --- arcs ---

func insertArc(ctx context.Context, q dbtx, a *types.Arc) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO arcs (arc_id, universe_id, origin_id, title, sequence_index, next_arc_id, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		a.ArcID, a.UniverseID, nullable(a.OriginID), a.Title, a.SequenceIndex,
		nullable(a.NextArcID), encodeTime(a.CreatedAt),
	)
	if err != nil {
		return infraErr("insert arc", err)
	}
	return nil
}

func hydrateArc(sc scanner) (*types.Arc, error) {
	var (
		a         types.Arc
		origin    sql.NullString
		next      sql.NullString
		createdAt string
	)
	if err := sc.Scan(&a.ArcID, &a.UniverseID, &origin, &a.Title, &a.SequenceIndex, &next, &createdAt); err != nil {
		return nil, err
	}
	a.OriginID = origin.String
	a.NextArcID = next.String
	created, err := decodeTime(createdAt)
	if err != nil {
		return nil, err
	}
	a.CreatedAt = created
	return &a, nil
}

const arcColumns = `arc_id, universe_id, origin_id, title, sequence_index, next_arc_id, created_at`

// ArcsInUniverse returns all arcs of a universe ordered by sequence index.
func (s *Store) ArcsInUniverse(ctx context.Context, universeID string) ([]*types.Arc, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	return queryArcs(ctx, db, `SELECT `+arcColumns+` FROM arcs WHERE universe_id = ? ORDER BY sequence_index, arc_id`, universeID)
}

func queryArcs(ctx context.Context, q dbtx, query string, args ...any) ([]*types.Arc, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, infraErr("query arcs", err)
	}
	defer rows.Close()

	var out []*types.Arc
	for rows.Next() {
		a, err := hydrateArc(rows)
		if err != nil {
			return nil, infraErr("scan arc", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, infraErr("query arcs", err)
	}
	return out, nil
}

// --- stories ---

func insertStory(ctx context.Context, q dbtx, st *types.Story) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO stories (story_id, universe_id, origin_id, arc_id, title, summary, sequence_index, next_story_id, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		st.StoryID, st.UniverseID, nullable(st.OriginID), nullable(st.ArcID), st.Title,
		nullable(st.Summary), st.SequenceIndex, nullable(st.NextStoryID), encodeTime(st.CreatedAt),
	)
	if err != nil {
		return infraErr("insert story", err)
	}
	return nil
}

func updateStory(ctx context.Context, q dbtx, u types.StoryUpdate) error {
	if u.StoryID == "" {
		return types.ErrInvalidID
	}
	var (
		sets []string
		args []any
	)
	if u.Title != nil {
		sets, args = append(sets, "title = ?"), append(args, *u.Title)
	}
	if u.Summary != nil {
		sets, args = append(sets, "summary = ?"), append(args, nullable(*u.Summary))
	}
	if u.SequenceIndex != nil {
		sets, args = append(sets, "sequence_index = ?"), append(args, *u.SequenceIndex)
	}
	if u.NextStoryID != nil {
		// An explicit empty string clears the forward link.
		sets, args = append(sets, "next_story_id = ?"), append(args, nullable(*u.NextStoryID))
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, u.StoryID)
	res, err := q.ExecContext(ctx,
		`UPDATE stories SET `+strings.Join(sets, ", ")+` WHERE story_id = ?`, args...)
	if err != nil {
		return infraErr("update story", err)
	}
	return requireRow(res, "story", u.StoryID)
}

func hydrateStory(sc scanner) (*types.Story, error) {
	var (
		st        types.Story
		origin    sql.NullString
		arcID     sql.NullString
		summary   sql.NullString
		next      sql.NullString
		createdAt string
	)
	if err := sc.Scan(&st.StoryID, &st.UniverseID, &origin, &arcID, &st.Title, &summary,
		&st.SequenceIndex, &next, &createdAt); err != nil {
		return nil, err
	}
	st.OriginID = origin.String
	st.ArcID = arcID.String
	st.Summary = summary.String
	st.NextStoryID = next.String
	created, err := decodeTime(createdAt)
	if err != nil {
		return nil, err
	}
	st.CreatedAt = created
	return &st, nil
}

const storyColumns = `story_id, universe_id, origin_id, arc_id, title, summary, sequence_index, next_story_id, created_at`

// StoriesInUniverse returns all stories of a universe ordered by sequence
// index within their parent scope.
func (s *Store) StoriesInUniverse(ctx context.Context, universeID string) ([]*types.Story, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	return queryStories(ctx, db,
		`SELECT `+storyColumns+` FROM stories WHERE universe_id = ? ORDER BY arc_id, sequence_index, story_id`,
		universeID)
}

func queryStories(ctx context.Context, q dbtx, query string, args ...any) ([]*types.Story, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, infraErr("query stories", err)
	}
	defer rows.Close()

	var out []*types.Story
	for rows.Next() {
		st, err := hydrateStory(rows)
		if err != nil {
			return nil, infraErr("scan story", err)
		}
		out = append(out, st)
	}
	if err := rows.Err(); err != nil {
		return nil, infraErr("query stories", err)
	}
	return out, nil
}

// --- scenes ---

func insertScene(ctx context.Context, q dbtx, sc *types.Scene) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO scenes (scene_id, universe_id, origin_id, story_id, title, sequence_index, next_scene_id, when_at, location, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sc.SceneID, sc.UniverseID, nullable(sc.OriginID), sc.StoryID, sc.Title,
		sc.SequenceIndex, nullable(sc.NextSceneID), encodeTimePtr(sc.When),
		nullable(sc.Location), encodeTime(sc.CreatedAt),
	)
	if err != nil {
		return infraErr("insert scene", err)
	}
	return nil
}

func updateScene(ctx context.Context, q dbtx, u types.SceneUpdate) error {
	if u.SceneID == "" {
		return types.ErrInvalidID
	}
	var (
		sets []string
		args []any
	)
	if u.Title != nil {
		sets, args = append(sets, "title = ?"), append(args, *u.Title)
	}
	if u.SequenceIndex != nil {
		sets, args = append(sets, "sequence_index = ?"), append(args, *u.SequenceIndex)
	}
	if u.NextSceneID != nil {
		// An explicit empty string clears the forward link.
		sets, args = append(sets, "next_scene_id = ?"), append(args, nullable(*u.NextSceneID))
	}
	if u.Location != nil {
		sets, args = append(sets, "location = ?"), append(args, nullable(*u.Location))
	}
	if len(sets) == 0 {
		return nil
	}
	args = append(args, u.SceneID)
	res, err := q.ExecContext(ctx,
		`UPDATE scenes SET `+strings.Join(sets, ", ")+` WHERE scene_id = ?`, args...)
	if err != nil {
		return infraErr("update scene", err)
	}
	return requireRow(res, "scene", u.SceneID)
}

func hydrateScene(sc scanner) (*types.Scene, error) {
	var (
		out       types.Scene
		origin    sql.NullString
		next      sql.NullString
		when      sql.NullString
		location  sql.NullString
		createdAt string
	)
	if err := sc.Scan(&out.SceneID, &out.UniverseID, &origin, &out.StoryID, &out.Title,
		&out.SequenceIndex, &next, &when, &location, &createdAt); err != nil {
		return nil, err
	}
	out.OriginID = origin.String
	out.NextSceneID = next.String
	out.Location = location.String
	whenAt, err := decodeTimePtr(when)
	if err != nil {
		return nil, err
	}
	out.When = whenAt
	created, err := decodeTime(createdAt)
	if err != nil {
		return nil, err
	}
	out.CreatedAt = created
	return &out, nil
}

const sceneColumns = `scene_id, universe_id, origin_id, story_id, title, sequence_index, next_scene_id, when_at, location, created_at`

// ScenesInStory returns the scenes of a story ordered by sequence index.
func (s *Store) ScenesInStory(ctx context.Context, storyID string) ([]*types.Scene, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	return queryScenes(ctx, db,
		`SELECT `+sceneColumns+` FROM scenes WHERE story_id = ? ORDER BY sequence_index, scene_id`,
		storyID)
}

// ScenesByID returns the requested scenes of a universe keyed by scene id.
// Missing ids are simply absent from the result.
func (s *Store) ScenesByID(ctx context.Context, universeID string, ids []string) (map[string]*types.Scene, error) {
	db, err := s.handle()
	if err != nil {
		return nil, err
	}
	out := make(map[string]*types.Scene, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := out[id]; ok {
			continue
		}
		row := db.QueryRowContext(ctx,
			`SELECT `+sceneColumns+` FROM scenes WHERE universe_id = ? AND scene_id = ?`,
			universeID, id)
		sc, err := hydrateScene(row)
		if err != nil {
			if err == sql.ErrNoRows {
				continue
			}
			return nil, infraErr("get scene", err)
		}
		out[id] = sc
	}
	return out, nil
}

func queryScenes(ctx context.Context, q dbtx, query string, args ...any) ([]*types.Scene, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, infraErr("query scenes", err)
	}
	defer rows.Close()

	var out []*types.Scene
	for rows.Next() {
		sc, err := hydrateScene(rows)
		if err != nil {
			return nil, infraErr("scan scene", err)
		}
		out = append(out, sc)
	}
	if err := rows.Err(); err != nil {
		return nil, infraErr("query scenes", err)
	}
	return out, nil
}

// requireRow converts a zero-rows-affected update into ErrNotFound.
func requireRow(res sql.Result, kind, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return infraErr("rows affected", err)
	}
	if n == 0 {
		return fmt.Errorf("%s %s: %w", kind, id, types.ErrNotFound)
	}
	return nil
}

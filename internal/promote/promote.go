// Package promote merges changes from one universe into another along the
// stable id lineage: what exists in the source but not the target is
// inserted, and under the overwrite strategy diverged rows are updated to
// the source's version. The merged batch runs through continuity validation
// against the target and lands atomically or not at all, which also makes
// promotion idempotent: a second run finds an empty diff.
package promote

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storymesh/weft/internal/diff"
	"github.com/storymesh/weft/internal/steward"
	"github.com/storymesh/weft/pkg/types"
)

// Promoter builds and applies promotion batches.
type Promoter struct {
	store   types.Store
	steward *steward.Steward
	logger  *zap.Logger
}

// New returns a Promoter writing through the store and validating through
// the steward.
func New(store types.Store, st *steward.Steward, logger *zap.Logger) *Promoter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Promoter{store: store, steward: st, logger: logger}
}

// Promote merges source into target under the given strategy. The target is
// untouched when validation rejects the merged batch; the violations come
// back in the result's Rejected field.
func (p *Promoter) Promote(ctx context.Context, sourceID, targetID, strategy string) (*types.PromotionResult, error) {
	if !types.ValidStrategy(strategy) {
		return nil, fmt.Errorf("%q: %w", strategy, types.ErrInvalidStrategy)
	}
	if sourceID == targetID {
		return nil, fmt.Errorf("source and target are the same universe: %w", types.ErrInvalidData)
	}

	source, err := p.store.Snapshot(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	target, err := p.store.Snapshot(ctx, targetID)
	if err != nil {
		return nil, err
	}

	d := diff.Compute(target, source)
	delta, applied := buildBatch(d, source, target, strategy)

	result := &types.PromotionResult{
		SourceUniverseID: sourceID,
		TargetUniverseID: targetID,
		Strategy:         strategy,
		AppliedIDs:       applied,
	}
	if delta.Empty() {
		return result, nil
	}

	validation, err := p.steward.Validate(ctx, targetID, delta)
	if err != nil {
		return nil, err
	}
	if !validation.OK {
		result.AppliedIDs = nil
		result.Rejected = validation
		p.logger.Warn("promotion rejected",
			zap.String("source_id", sourceID),
			zap.String("target_id", targetID),
			zap.Int("violations", len(validation.Violations)),
		)
		return result, nil
	}

	if err := p.store.ApplyDelta(ctx, targetID, delta); err != nil {
		return nil, err
	}
	p.logger.Info("promoted universe",
		zap.String("source_id", sourceID),
		zap.String("target_id", targetID),
		zap.String("strategy", strategy),
		zap.Int("applied", len(applied)),
	)
	return result, nil
}

// buildBatch turns a target-vs-source diff into one delta against the
// target. Added rows are cloned with fresh raw ids and lineage pointing at
// their stable id; references are remapped to the target's rows, or to the
// id a referenced row will receive in this same batch.
func buildBatch(d *types.TypedDiff, source, target *types.UniverseSnapshot, strategy string) (*types.DeltaBatch, []string) {
	delta := &types.DeltaBatch{UniverseID: target.Universe.UniverseID}
	var applied []string

	// Stable id -> raw id in the target, for rows that already exist
	// there or are being inserted now.
	raw := make(map[string]string)
	for stableID, a := range target.Arcs {
		raw[stableID] = a.ArcID
	}
	for stableID, st := range target.Stories {
		raw[stableID] = st.StoryID
	}
	for stableID, sc := range target.Scenes {
		raw[stableID] = sc.SceneID
	}
	for stableID, e := range target.Entities {
		raw[stableID] = e.EntityID
	}
	for stableID, f := range target.Facts {
		raw[stableID] = f.FactID
	}
	for stableID, r := range target.Relations {
		raw[stableID] = r.RelationID
	}
	for stableID, a := range target.Axioms {
		raw[stableID] = a.AxiomID
	}
	for _, kind := range types.DiffKinds {
		for _, stableID := range d.Kind(kind).Added {
			raw[stableID] = newID()
		}
	}
	for _, stableID := range addedAxioms(source, target) {
		if _, ok := raw[stableID]; !ok {
			raw[stableID] = newID()
		}
	}

	// Source raw id -> stable id, to push references through the mapping.
	sourceStable := make(map[string]string)
	for stableID, a := range source.Arcs {
		sourceStable[a.ArcID] = stableID
	}
	for stableID, st := range source.Stories {
		sourceStable[st.StoryID] = stableID
	}
	for stableID, sc := range source.Scenes {
		sourceStable[sc.SceneID] = stableID
	}
	for stableID, e := range source.Entities {
		sourceStable[e.EntityID] = stableID
	}
	for stableID, f := range source.Facts {
		sourceStable[f.FactID] = stableID
	}
	remap := func(sourceRaw string) string {
		if sourceRaw == "" {
			return ""
		}
		if stableID, ok := sourceStable[sourceRaw]; ok {
			if targetRaw, ok := raw[stableID]; ok {
				return targetRaw
			}
		}
		return ""
	}

	for _, stableID := range d.Kind(types.KindArc).Added {
		src := source.Arcs[stableID]
		copied := *src
		copied.ArcID = raw[stableID]
		copied.UniverseID = target.Universe.UniverseID
		copied.OriginID = stableID
		copied.NextArcID = remap(src.NextArcID)
		delta.NewArcs = append(delta.NewArcs, &copied)
		applied = append(applied, stableID)
	}
	for _, stableID := range d.Kind(types.KindStory).Added {
		src := source.Stories[stableID]
		copied := *src
		copied.StoryID = raw[stableID]
		copied.UniverseID = target.Universe.UniverseID
		copied.OriginID = stableID
		copied.ArcID = remap(src.ArcID)
		copied.NextStoryID = remap(src.NextStoryID)
		delta.NewStories = append(delta.NewStories, &copied)
		applied = append(applied, stableID)
	}
	for _, stableID := range d.Kind(types.KindScene).Added {
		src := source.Scenes[stableID]
		copied := *src
		copied.SceneID = raw[stableID]
		copied.UniverseID = target.Universe.UniverseID
		copied.OriginID = stableID
		copied.StoryID = remap(src.StoryID)
		copied.NextSceneID = remap(src.NextSceneID)
		delta.NewScenes = append(delta.NewScenes, &copied)
		applied = append(applied, stableID)
	}
	for _, stableID := range d.Kind(types.KindEntity).Added {
		src := source.Entities[stableID]
		copied := *src
		copied.EntityID = raw[stableID]
		copied.UniverseID = target.Universe.UniverseID
		copied.OriginID = stableID
		copied.Attrs = src.Attrs.Clone()
		delta.NewEntities = append(delta.NewEntities, &copied)
		applied = append(applied, stableID)
	}
	for _, stableID := range d.Kind(types.KindFact).Added {
		src := source.Facts[stableID]
		copied := *src
		copied.FactID = raw[stableID]
		copied.UniverseID = target.Universe.UniverseID
		copied.OriginID = stableID
		copied.SceneID = remap(src.SceneID)
		copied.Participants = make([]types.FactParticipant, len(src.Participants))
		for i, p := range src.Participants {
			copied.Participants[i] = types.FactParticipant{EntityID: remap(p.EntityID), Role: p.Role}
		}
		copied.DerivedFrom = nil
		for _, srcID := range src.DerivedFrom {
			if mapped := remap(srcID); mapped != "" {
				copied.DerivedFrom = append(copied.DerivedFrom, mapped)
			}
		}
		delta.NewFacts = append(delta.NewFacts, &copied)
		applied = append(applied, stableID)
	}
	for _, stableID := range d.Kind(types.KindRelation).Added {
		src := source.Relations[stableID]
		copied := *src
		copied.RelationID = raw[stableID]
		copied.UniverseID = target.Universe.UniverseID
		copied.OriginID = stableID
		copied.EntityA = remap(src.EntityA)
		copied.EntityB = remap(src.EntityB)
		copied.SetInScene = remap(src.SetInScene)
		copied.EndedInScene = remap(src.EndedInScene)
		copied.ChangedInScenes = nil
		for _, sceneID := range src.ChangedInScenes {
			if mapped := remap(sceneID); mapped != "" {
				copied.ChangedInScenes = append(copied.ChangedInScenes, mapped)
			}
		}
		delta.NewRelations = append(delta.NewRelations, &copied)
		applied = append(applied, stableID)
	}
	for _, stableID := range addedAxioms(source, target) {
		src := source.Axioms[stableID]
		copied := *src
		copied.AxiomID = raw[stableID]
		copied.UniverseID = target.Universe.UniverseID
		copied.OriginID = stableID
		copied.StoryID = remap(src.StoryID)
		delta.NewAxioms = append(delta.NewAxioms, &copied)
		applied = append(applied, stableID)
	}

	if strategy == types.StrategyOverwrite {
		applied = append(applied, overwriteChanged(d, source, target, delta, remap)...)
	}
	sort.Strings(applied)
	return delta, applied
}

// addedAxioms lists source axioms absent from the target. Axioms are not a
// diffed kind, so the comparison happens here.
func addedAxioms(source, target *types.UniverseSnapshot) []string {
	var out []string
	for stableID := range source.Axioms {
		if _, ok := target.Axioms[stableID]; !ok {
			out = append(out, stableID)
		}
	}
	sort.Strings(out)
	return out
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

// Package branch clones universes: full copies, selector-restricted
// subsets, and branch-at-scene timelines. Clones copy by value with fresh
// row ids; every cloned row records the source row's stable id as its
// lineage, which is what lets diff and promote line branches up later.
package branch

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storymesh/weft/pkg/types"
)

// Cloner copies universes through the store.
type Cloner struct {
	store  types.Store
	logger *zap.Logger
}

// New returns a Cloner writing through the store.
func New(store types.Store, logger *zap.Logger) *Cloner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Cloner{store: store, logger: logger}
}

// CloneFull copies the whole universe into a new one named name.
func (c *Cloner) CloneFull(ctx context.Context, sourceID, name string) (*types.Universe, error) {
	return c.CloneSubset(ctx, sourceID, name, nil)
}

// BranchAtScene clones the universe as of the given scene: later scenes of
// that scene's story are omitted, along with facts and relation provenance
// recorded in them.
func (c *Cloner) BranchAtScene(ctx context.Context, sourceID, sceneID, name string) (*types.Universe, error) {
	if sceneID == "" {
		return nil, types.ErrInvalidID
	}
	return c.CloneSubset(ctx, sourceID, name, &types.BranchSelector{SceneID: sceneID})
}

// CloneSubset clones the part of the universe the selector admits. A nil or
// unrestricted selector clones everything.
func (c *Cloner) CloneSubset(ctx context.Context, sourceID, name string, sel *types.BranchSelector) (*types.Universe, error) {
	if name == "" {
		return nil, fmt.Errorf("branch name is required: %w", types.ErrInvalidData)
	}
	snap, err := c.store.Snapshot(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	selected, err := applySelector(snap, sel)
	if err != nil {
		return nil, err
	}

	branch := &types.Universe{
		UniverseID:  newID(),
		Name:        name,
		Description: snap.Universe.Description,
		DerivesFrom: sourceID,
		CreatedAt:   nowUTC(),
	}
	if sel != nil {
		branch.OriginSceneID = sel.SceneID
	}

	cloned := rewrite(selected, branch)
	if err := c.store.ImportUniverse(ctx, branch, cloned); err != nil {
		return nil, err
	}
	counts := cloned.Counts()
	c.logger.Info("cloned universe",
		zap.String("source_id", sourceID),
		zap.String("branch_id", branch.UniverseID),
		zap.String("name", name),
		zap.Int("scenes", counts[types.KindScene]),
		zap.Int("facts", counts[types.KindFact]),
	)
	return branch, nil
}

// PreviewClone reports what a clone with this selector would copy, per
// kind, without writing anything.
func (c *Cloner) PreviewClone(ctx context.Context, sourceID string, sel *types.BranchSelector) (map[string]int, error) {
	snap, err := c.store.Snapshot(ctx, sourceID)
	if err != nil {
		return nil, err
	}
	selected, err := applySelector(snap, sel)
	if err != nil {
		return nil, err
	}
	return selected.Counts(), nil
}

func newID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.New().String()
	}
	return id.String()
}

func nowUTC() time.Time {
	return time.Now().UTC()
}

// Package engine ties the store, the continuity validator, staging, branch
// cloning, diffing, and promotion together behind one facade and enforces
// the per-universe locking discipline across them.
package engine

import (
	"context"

	"go.uber.org/zap"

	"github.com/storymesh/weft/internal/branch"
	"github.com/storymesh/weft/internal/diff"
	"github.com/storymesh/weft/internal/promote"
	"github.com/storymesh/weft/internal/staging"
	"github.com/storymesh/weft/internal/steward"
	"github.com/storymesh/weft/pkg/types"
)

// Engine is the narrative graph engine facade.
type Engine struct {
	store    types.Store
	steward  *steward.Steward
	staging  *staging.Coordinator
	cloner   *branch.Cloner
	promoter *promote.Promoter
	locks    *lockTable
	logger   *zap.Logger
}

// Option configures an Engine.
type Option func(*options)

type options struct {
	logger         *zap.Logger
	strictCoverage bool
}

// WithLogger routes engine logging to the given logger.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithStrictCoverage makes axiom coverage shortfalls reject deltas instead
// of warning.
func WithStrictCoverage(strict bool) Option {
	return func(o *options) { o.strictCoverage = strict }
}

// New assembles an Engine over an attached store.
func New(store types.Store, opts ...Option) *Engine {
	o := options{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}
	e := &Engine{
		store:   store,
		steward: steward.New(store, o.logger, o.strictCoverage),
		locks:   newLockTable(),
		logger:  o.logger,
	}
	e.staging = staging.New(e.commit, o.logger)
	e.cloner = branch.New(store, o.logger)
	e.promoter = promote.New(store, e.steward, o.logger)
	return e
}

// Close detaches the underlying store.
func (e *Engine) Close() error {
	return e.store.Detach()
}

// CreateUniverse persists a new root universe.
func (e *Engine) CreateUniverse(ctx context.Context, name, description string) (*types.Universe, error) {
	u := &types.Universe{Name: name, Description: description}
	if err := e.store.CreateUniverse(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Universe returns one universe by id.
func (e *Engine) Universe(ctx context.Context, id string) (*types.Universe, error) {
	return e.store.GetUniverse(ctx, id)
}

// Universes lists all universes in creation order.
func (e *Engine) Universes(ctx context.Context) ([]*types.Universe, error) {
	return e.store.ListUniverses(ctx)
}

// Snapshot reads the full contents of a universe under a shared lock.
func (e *Engine) Snapshot(ctx context.Context, universeID string) (*types.UniverseSnapshot, error) {
	defer e.locks.rlock(universeID)()
	return e.store.Snapshot(ctx, universeID)
}

// Scenes returns the scenes of one story in sequence order.
func (e *Engine) Scenes(ctx context.Context, storyID string) ([]*types.Scene, error) {
	return e.store.ScenesInStory(ctx, storyID)
}

// Facts returns one story's facts in scene order.
func (e *Engine) Facts(ctx context.Context, storyID string) ([]*types.Fact, error) {
	return e.store.FactsForStory(ctx, storyID)
}

// Stage buffers a delta in the session without touching storage.
func (e *Engine) Stage(sessionID, universeID string, delta *types.DeltaBatch) error {
	return e.staging.Stage(sessionID, universeID, delta)
}

// Flush merges and commits everything staged in the session. Exactly one
// flush runs per session at a time; the merged batch commits under the
// universe's exclusive lock.
func (e *Engine) Flush(ctx context.Context, sessionID string) (*types.CommitResult, error) {
	return e.staging.Flush(ctx, sessionID)
}

// Discard drops a staging session and its buffered deltas.
func (e *Engine) Discard(sessionID string) error {
	return e.staging.Discard(sessionID)
}

// Commit validates and applies one delta synchronously, bypassing staging.
func (e *Engine) Commit(ctx context.Context, universeID string, delta *types.DeltaBatch) (*types.CommitResult, error) {
	return e.commit(ctx, universeID, delta)
}

// Validate dry-runs a delta through continuity validation under a shared
// lock. Nothing is written.
func (e *Engine) Validate(ctx context.Context, universeID string, delta *types.DeltaBatch) (*types.ValidationResult, error) {
	defer e.locks.rlock(universeID)()
	return e.steward.Validate(ctx, universeID, delta)
}

// commit is the staging coordinator's commit function: validate against
// current state, then apply, all under the universe's exclusive lock.
func (e *Engine) commit(ctx context.Context, universeID string, delta *types.DeltaBatch) (*types.CommitResult, error) {
	defer e.locks.lock(universeID)()

	validation, err := e.steward.Validate(ctx, universeID, delta)
	if err != nil {
		return nil, err
	}
	if !validation.OK {
		return &types.CommitResult{Committed: false, Validation: validation}, nil
	}
	if err := e.store.ApplyDelta(ctx, universeID, delta); err != nil {
		return nil, err
	}
	return &types.CommitResult{Committed: true, Validation: validation}, nil
}

// Branch clones a universe under its exclusive lock. A nil selector clones
// everything; a selector with a SceneID branches at that scene.
func (e *Engine) Branch(ctx context.Context, sourceID, name string, sel *types.BranchSelector) (*types.Universe, error) {
	defer e.locks.lock(sourceID)()
	return e.cloner.CloneSubset(ctx, sourceID, name, sel)
}

// BranchAtScene clones the universe as of the given scene.
func (e *Engine) BranchAtScene(ctx context.Context, sourceID, sceneID, name string) (*types.Universe, error) {
	defer e.locks.lock(sourceID)()
	return e.cloner.BranchAtScene(ctx, sourceID, sceneID, name)
}

// PreviewBranch reports per-kind counts of what a branch would copy.
func (e *Engine) PreviewBranch(ctx context.Context, sourceID string, sel *types.BranchSelector) (map[string]int, error) {
	defer e.locks.rlock(sourceID)()
	return e.cloner.PreviewClone(ctx, sourceID, sel)
}

// Diff compares two universes under shared locks on both.
func (e *Engine) Diff(ctx context.Context, universeA, universeB string) (*types.TypedDiff, error) {
	defer e.locks.rlockPair(universeA, universeB)()
	a, err := e.store.Snapshot(ctx, universeA)
	if err != nil {
		return nil, err
	}
	b, err := e.store.Snapshot(ctx, universeB)
	if err != nil {
		return nil, err
	}
	return diff.Compute(a, b), nil
}

// Promote merges source into target under exclusive locks on both, taken
// in lexicographic order.
func (e *Engine) Promote(ctx context.Context, sourceID, targetID, strategy string) (*types.PromotionResult, error) {
	defer e.locks.lockPair(sourceID, targetID)()
	return e.promoter.Promote(ctx, sourceID, targetID, strategy)
}

// Package steward validates delta batches against the continuity rules of a
// universe before anything is written: sequence contiguity, forward-link
// acyclicity, relation interval exclusivity, provenance chain coherence, and
// axiom coverage. Checks are independent; a batch is rejected atomically
// when any hard violation is found.
package steward

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/storymesh/weft/pkg/types"
)

// Reader is the read-only store surface the checks consume.
type Reader interface {
	ArcsInUniverse(ctx context.Context, universeID string) ([]*types.Arc, error)
	StoriesInUniverse(ctx context.Context, universeID string) ([]*types.Story, error)
	ScenesInStory(ctx context.Context, storyID string) ([]*types.Scene, error)
	ScenesByID(ctx context.Context, universeID string, ids []string) (map[string]*types.Scene, error)
	EntitiesInUniverse(ctx context.Context, universeID string) ([]*types.Entity, error)
	CountEntitiesByKind(ctx context.Context, universeID, kind string) (int, error)
	FactsInUniverse(ctx context.Context, universeID string) ([]*types.Fact, error)
	RelationStatesForPair(ctx context.Context, universeID, entityA, entityB, relType string) ([]*types.RelationState, error)
	RelationStateByID(ctx context.Context, id string) (*types.RelationState, error)
	AxiomsInUniverse(ctx context.Context, universeID string) ([]*types.Axiom, error)
}

// Steward runs continuity validation over the state a delta would produce.
type Steward struct {
	reader Reader
	logger *zap.Logger

	// strictCoverage promotes axiom coverage shortfalls from warnings to
	// hard violations.
	strictCoverage bool
}

// New returns a Steward reading through r.
func New(r Reader, logger *zap.Logger, strictCoverage bool) *Steward {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Steward{reader: r, logger: logger, strictCoverage: strictCoverage}
}

// Validate runs every check against the overlay of the delta on the current
// universe state. The returned result carries all violations found, not just
// the first; an error is returned only for storage failures.
func (s *Steward) Validate(ctx context.Context, universeID string, delta *types.DeltaBatch) (*types.ValidationResult, error) {
	result := &types.ValidationResult{OK: true}
	if delta == nil || delta.Empty() {
		return result, nil
	}
	start := time.Now()

	if err := s.checkSequences(ctx, universeID, delta, result); err != nil {
		return nil, err
	}
	if err := s.checkCycles(ctx, universeID, delta, result); err != nil {
		return nil, err
	}
	checkFactSpans(delta, result)
	proposed, err := s.proposedRelations(ctx, delta, result)
	if err != nil {
		return nil, err
	}
	if err := s.checkIntervals(ctx, universeID, proposed, result); err != nil {
		return nil, err
	}
	if err := s.checkChains(ctx, universeID, delta, proposed, result); err != nil {
		return nil, err
	}
	if err := s.checkCoverage(ctx, universeID, delta, result); err != nil {
		return nil, err
	}
	if err := s.checkParticipants(ctx, universeID, delta, result); err != nil {
		return nil, err
	}

	s.logger.Debug("validated delta",
		zap.String("universe_id", universeID),
		zap.Bool("ok", result.OK),
		zap.Int("violations", len(result.Violations)),
		zap.Int("warnings", len(result.Warnings)),
		zap.Duration("took", time.Since(start)),
	)
	return result, nil
}

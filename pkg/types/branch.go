package types

import (
	"errors"
	"time"
)

// BranchSelector restricts a subset clone. A nil selector (or all zero
// fields except SceneID) clones the whole universe. SceneID requests a
// branch "at a scene": scenes of that scene's story beyond it are omitted,
// along with facts and relation provenance recorded after it.
type BranchSelector struct {
	SceneID       string     `json:"scene_id,omitempty"`
	StoryIDs      []string   `json:"story_ids,omitempty"`
	EntityIDs     []string   `json:"entity_ids,omitempty"`
	MaxSceneIndex int        `json:"max_scene_index,omitempty"`
	FactsSince    *time.Time `json:"facts_since,omitempty"`
}

// Full reports whether the selector imposes no restriction.
func (s *BranchSelector) Full() bool {
	return s == nil || (s.SceneID == "" && len(s.StoryIDs) == 0 &&
		len(s.EntityIDs) == 0 && s.MaxSceneIndex == 0 && s.FactsSince == nil)
}

// Promotion strategies.
const (
	StrategyAppendMissing = "append_missing"
	StrategyOverwrite     = "overwrite"
)

// ErrInvalidStrategy is returned for unrecognized promotion strategies.
var ErrInvalidStrategy = errors.New("invalid promotion strategy")

// ValidStrategy reports whether s is a recognized promotion strategy.
func ValidStrategy(s string) bool {
	return s == StrategyAppendMissing || s == StrategyOverwrite
}

// PromotionResult reports a promotion outcome. AppliedIDs lists the stable
// ids inserted or overwritten in the target; Rejected carries the
// validation result when the merged delta failed continuity checks, in
// which case the target was left untouched.
type PromotionResult struct {
	SourceUniverseID string            `json:"source_universe_id"`
	TargetUniverseID string            `json:"target_universe_id"`
	Strategy         string            `json:"strategy"`
	AppliedIDs       []string          `json:"applied_ids"`
	Rejected         *ValidationResult `json:"rejected,omitempty"`
}

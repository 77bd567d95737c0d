package types

import (
	"context"
	"errors"
	"time"
)

// Store is the graph store adapter contract: a persistent, universe-scoped
// property graph with a single atomic write entry point. Callers attach to
// a backend, operate, and detach when done.
type Store interface {
	// Attach connects the store to the backend described by config.
	// Creates the DataDir if it does not exist. Returns
	// ErrAlreadyAttached if called while already attached.
	Attach(config Config) error

	// Detach releases backend resources. Idempotent: multiple calls
	// succeed. After Detach, operations return ErrStoreDetached.
	Detach() error

	// CreateUniverse persists a new universe record.
	CreateUniverse(ctx context.Context, u *Universe) error

	// GetUniverse returns the universe with the given id, or ErrNotFound.
	GetUniverse(ctx context.Context, id string) (*Universe, error)

	// ListUniverses returns all universes ordered by creation time.
	ListUniverses(ctx context.Context) ([]*Universe, error)

	// ApplyDelta applies a validated batch in one transaction. Empty ids
	// on new items are filled with generated UUIDs. Either every change
	// in the batch lands or none do.
	ApplyDelta(ctx context.Context, universeID string, delta *DeltaBatch) error

	// Snapshot reads the full contents of a universe, keyed by stable id.
	Snapshot(ctx context.Context, universeID string) (*UniverseSnapshot, error)

	// ImportUniverse persists a new universe together with snapshot
	// contents in one transaction. Used by branch cloning.
	ImportUniverse(ctx context.Context, u *Universe, snap *UniverseSnapshot) error

	// Read queries consumed by validation and the CLI.
	ArcsInUniverse(ctx context.Context, universeID string) ([]*Arc, error)
	StoriesInUniverse(ctx context.Context, universeID string) ([]*Story, error)
	ScenesInStory(ctx context.Context, storyID string) ([]*Scene, error)
	ScenesByID(ctx context.Context, universeID string, ids []string) (map[string]*Scene, error)
	EntitiesInUniverse(ctx context.Context, universeID string) ([]*Entity, error)
	CountEntitiesByKind(ctx context.Context, universeID, kind string) (int, error)
	FactsInUniverse(ctx context.Context, universeID string) ([]*Fact, error)
	FactsForStory(ctx context.Context, storyID string) ([]*Fact, error)
	RelationStatesForPair(ctx context.Context, universeID, entityA, entityB, relType string) ([]*RelationState, error)
	RelationStatesAt(ctx context.Context, universeID, entityA, entityB string, at time.Time) ([]*RelationState, error)
	RelationStateByID(ctx context.Context, id string) (*RelationState, error)
	AxiomsInUniverse(ctx context.Context, universeID string) ([]*Axiom, error)
}

// Store lifecycle errors.
var (
	ErrStoreDetached   = errors.New("store is detached")
	ErrAlreadyAttached = errors.New("store is already attached")
)

// Operation errors.
var (
	ErrNotFound         = errors.New("not found")
	ErrUniverseNotFound = errors.New("universe not found")
	ErrInvalidID        = errors.New("invalid id")
	ErrInvalidData      = errors.New("invalid data")

	// ErrStoreUnavailable wraps transient backend failures. The engine
	// guarantees no partial writes occurred before such a failure;
	// callers retry with backoff.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Staging errors.
var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrFlushInFlight    = errors.New("flush already in flight for session")
	ErrUniverseMismatch = errors.New("delta universe does not match session universe")
)

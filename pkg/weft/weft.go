// Package weft provides the public API for the narrative graph engine.
// It exposes the factory for opening an engine over the SQLite store while
// keeping the implementation internal.
package weft

import (
	"github.com/storymesh/weft/internal/engine"
	"github.com/storymesh/weft/internal/sqlite"
	"github.com/storymesh/weft/pkg/types"
)

// Version is the module version reported by the CLI.
const Version = "0.1.0"

// Engine is the narrative graph engine handle returned by Open.
type Engine = engine.Engine

// Option configures the engine returned by Open.
type Option = engine.Option

// Re-exported engine options.
var (
	WithLogger         = engine.WithLogger
	WithStrictCoverage = engine.WithStrictCoverage
)

// Open attaches a store for the configured backend and wraps it in an
// engine. The caller must Close the engine when done.
//
// Example:
//
//	eng, err := weft.Open(types.Config{
//	    Backend: types.BackendSQLite,
//	    DataDir: ".weft-db",
//	})
//	defer eng.Close()
func Open(cfg types.Config, opts ...Option) (*Engine, error) {
	store := sqlite.New()
	if err := store.Attach(cfg); err != nil {
		return nil, err
	}
	if cfg.StrictCoverage {
		opts = append([]Option{WithStrictCoverage(true)}, opts...)
	}
	return engine.New(store, opts...), nil
}

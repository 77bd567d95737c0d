// Shared helpers for weft CLI commands.
package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/storymesh/weft/pkg/types"
	"github.com/storymesh/weft/pkg/weft"
)

// openEngine resolves the data directory and opens an engine over the
// SQLite store. The caller must defer eng.Close().
func openEngine() (*weft.Engine, error) {
	dataDir, err := resolveDataDir()
	if err != nil {
		return nil, fmt.Errorf("resolve data dir: %w", err)
	}

	cfg := types.Config{
		Backend:        defaultBackend,
		DataDir:        dataDir,
		LogLevel:       configLogLevel,
		StrictCoverage: configStrict,
	}

	eng, err := weft.Open(cfg, weft.WithLogger(newLogger(configLogLevel)))
	if err != nil {
		return nil, fmt.Errorf("open engine: %w", err)
	}
	return eng, nil
}

// newLogger builds a console logger at the given level. Unparseable levels
// fall back to warn so a typo in config.yaml never breaks the CLI.
func newLogger(level string) *zap.Logger {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		lvl = zapcore.WarnLevel
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(lvl)
	cfg.OutputPaths = []string{"stderr"}
	logger, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return logger
}

// printJSON writes v to stdout as indented JSON.
func printJSON(v any) error {
	out, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}
	fmt.Println(string(out))
	return nil
}

// printValidation writes validation violations and warnings to stderr in
// human-readable form.
func printValidation(result *types.ValidationResult) {
	for _, v := range result.Violations {
		fmt.Fprintf(os.Stderr, "violation [%s] %s\n", v.Kind, v.Message)
	}
	for _, w := range result.Warnings {
		fmt.Fprintf(os.Stderr, "warning   [%s] %s\n", w.Kind, w.Message)
	}
}

// readDeltaFile reads a DeltaBatch from a JSON file, or from stdin when
// path is "-".
func readDeltaFile(path string) (*types.DeltaBatch, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("read delta: %w", err)
	}

	var delta types.DeltaBatch
	if err := json.Unmarshal(data, &delta); err != nil {
		return nil, fmt.Errorf("parse delta: %w", err)
	}
	return &delta, nil
}

// Package integration exercises the full engine through the public API,
// the way an application embedding weft would.
package integration

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/storymesh/weft/pkg/types"
	"github.com/storymesh/weft/pkg/weft"
)

// openEngine opens an engine over an isolated temp directory, closed
// automatically at test end.
func openEngine(t *testing.T, opts ...weft.Option) *weft.Engine {
	t.Helper()
	eng, err := weft.Open(types.Config{
		Backend: types.BackendSQLite,
		DataDir: t.TempDir(),
	}, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { eng.Close() })
	return eng
}

// mustCommit applies a delta and fails the test on rejection.
func mustCommit(t *testing.T, eng *weft.Engine, universeID string, delta *types.DeltaBatch) {
	t.Helper()
	result, err := eng.Commit(context.Background(), universeID, delta)
	require.NoError(t, err)
	require.True(t, result.Committed, "violations: %+v", result.Validation.Violations)
}

func ts(t *testing.T, value string) *time.Time {
	t.Helper()
	parsed, err := time.Parse(time.RFC3339, value)
	require.NoError(t, err)
	return &parsed
}

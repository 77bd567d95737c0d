// Package staging buffers delta batches per session and hands the merged
// result to a commit function on flush. Sessions are cheap: nothing
// contends or touches storage until Flush.
package staging

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"github.com/storymesh/weft/pkg/types"
)

// CommitFunc validates and applies one merged batch. A rejected batch
// returns a CommitResult with Committed false and no error.
type CommitFunc func(ctx context.Context, universeID string, delta *types.DeltaBatch) (*types.CommitResult, error)

// Coordinator owns the staging sessions.
type Coordinator struct {
	mu       sync.Mutex
	sessions map[string]*session
	commit   CommitFunc
	logger   *zap.Logger
}

// session accumulates staged batches for one universe. flushing guards the
// one-in-flight-flush rule; batches staged mid-flush land in the next cycle.
type session struct {
	universeID string
	buffer     []*types.DeltaBatch
	flushing   bool
}

// New returns a Coordinator committing through fn.
func New(fn CommitFunc, logger *zap.Logger) *Coordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Coordinator{
		sessions: make(map[string]*session),
		commit:   fn,
		logger:   logger,
	}
}

// Stage appends a batch to the session's buffer, creating the session on
// first use. All batches of one session must target the same universe.
func (c *Coordinator) Stage(sessionID, universeID string, delta *types.DeltaBatch) error {
	if sessionID == "" || universeID == "" {
		return types.ErrInvalidID
	}
	if delta == nil {
		return fmt.Errorf("nil delta: %w", types.ErrInvalidData)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	sess, ok := c.sessions[sessionID]
	if !ok {
		sess = &session{universeID: universeID}
		c.sessions[sessionID] = sess
	}
	if sess.universeID != universeID {
		return fmt.Errorf("session %s targets universe %s: %w",
			sessionID, sess.universeID, types.ErrUniverseMismatch)
	}
	sess.buffer = append(sess.buffer, delta)
	c.logger.Debug("staged delta",
		zap.String("session_id", sessionID),
		zap.String("universe_id", universeID),
		zap.Int("buffered", len(sess.buffer)),
	)
	return nil
}

// Flush merges the session's buffered batches and commits them as one.
// Only one flush may be in flight per session. On a rejected or failed
// commit the taken batches are restored ahead of anything staged since, so
// the session can be corrected and flushed again.
func (c *Coordinator) Flush(ctx context.Context, sessionID string) (*types.CommitResult, error) {
	c.mu.Lock()
	sess, ok := c.sessions[sessionID]
	if !ok {
		c.mu.Unlock()
		return nil, fmt.Errorf("session %s: %w", sessionID, types.ErrSessionNotFound)
	}
	if sess.flushing {
		c.mu.Unlock()
		return nil, fmt.Errorf("session %s: %w", sessionID, types.ErrFlushInFlight)
	}
	sess.flushing = true
	taken := sess.buffer
	sess.buffer = nil
	universeID := sess.universeID
	c.mu.Unlock()

	merged := Merge(universeID, taken)
	result, err := c.commit(ctx, universeID, merged)

	c.mu.Lock()
	sess.flushing = false
	if err != nil || (result != nil && !result.Committed) {
		sess.buffer = append(taken, sess.buffer...)
	}
	c.mu.Unlock()

	if err != nil {
		return nil, err
	}
	c.logger.Info("flushed session",
		zap.String("session_id", sessionID),
		zap.String("universe_id", universeID),
		zap.Int("batches", len(taken)),
		zap.Bool("committed", result.Committed),
	)
	return result, nil
}

// Discard drops the session and everything staged in it.
func (c *Coordinator) Discard(sessionID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.sessions[sessionID]; !ok {
		return fmt.Errorf("session %s: %w", sessionID, types.ErrSessionNotFound)
	}
	delete(c.sessions, sessionID)
	return nil
}

// Buffered reports how many batches a session currently holds.
func (c *Coordinator) Buffered(sessionID string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if sess, ok := c.sessions[sessionID]; ok {
		return len(sess.buffer)
	}
	return 0
}

// Package retention periodically prunes old rows from the invocation
// audit log so the database does not grow without bound.
package retention

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
)

// Pruner represents the cleanup behavior needed by the worker.
type Pruner interface {
	Prune(ctx context.Context, before time.Time) (int64, error)
}

// Start launches a periodic audit-log pruning worker. Rows older than
// maxAge are removed on every tick. Blocks until ctx is done.
func Start(ctx context.Context, logger *log.Logger, interval, maxAge time.Duration, pruner Pruner) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			cutoff := time.Now().UTC().Add(-maxAge)
			n, err := pruner.Prune(ctx, cutoff)
			if err != nil {
				logger.Warn("audit log pruning failed", "error", err)
				continue
			}
			if n > 0 {
				logger.Info("pruned old audit log rows", "count", n)
			}
		}
	}
}

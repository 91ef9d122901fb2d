package fleet

import (
	"context"
	"time"
)

// Sweep resolves the whole roster once and returns how many expired missions
// it found. Reads already do this on their own; sweeping only keeps stored
// state fresh for consumers that read the tables directly.
func (e *Engine) Sweep(ctx context.Context) (int, error) {
	_, _, expired, err := e.resolveRoster(ctx)
	return expired, err
}

// RunSweeper calls Sweep every interval until ctx is done.
func (e *Engine) RunSweeper(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		<-ctx.Done()
		return nil
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			n, err := e.Sweep(ctx)
			if err != nil {
				e.log(ctx).Warn("sweep failed", "err", err)
				continue
			}
			if n > 0 {
				e.log(ctx).Debug("sweep expired missions", "count", n)
			}
		}
	}
}

// Package trigger collects the external "device locked" signals that drive
// a swap. Sources are intentionally dumb: they fire a callback and carry no
// payload; bursts and duplicates are the swap gate's problem.
package trigger

import "context"

// Handler is invoked once per received lock signal.
type Handler func()

// Source delivers lock signals until ctx is canceled. Run blocks; a nil
// return means clean shutdown.
type Source interface {
	Run(ctx context.Context, fire Handler) error
}

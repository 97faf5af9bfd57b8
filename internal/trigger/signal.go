package trigger

import (
	"context"
	"os"
	"os/signal"
	"syscall"
)

// SignalSource fires on a process signal, SIGUSR1 by default. It is the
// zero-dependency integration point: lock hooks do `pkill -USR1 nwc`.
type SignalSource struct {
	Signal os.Signal
}

func (s SignalSource) Run(ctx context.Context, fire Handler) error {
	sig := s.Signal
	if sig == nil {
		sig = syscall.SIGUSR1
	}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sig)
	defer signal.Stop(ch)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ch:
			fire()
		}
	}
}

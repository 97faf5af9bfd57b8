package swap

import "golang.org/x/sync/semaphore"

// Gate is the at-most-one-in-flight guard around a swap cycle. A trigger
// that finds the gate busy is dropped, not queued: a queued stale trigger
// would produce a visibly delayed wallpaper change after the burst.
type Gate struct {
	sem *semaphore.Weighted
}

func NewGate() *Gate {
	return &Gate{sem: semaphore.NewWeighted(1)}
}

// TryAcquire claims the gate without blocking and reports whether it won.
func (g *Gate) TryAcquire() bool {
	return g.sem.TryAcquire(1)
}

// Release opens the gate again. Callers pair it with TryAcquire via defer,
// so the gate is released on every exit path of a cycle.
func (g *Gate) Release() {
	g.sem.Release(1)
}

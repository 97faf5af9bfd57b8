// Package swap drives the trigger-to-commit state machine: settle, select
// the next image, resolve its buffer, validate the session is still locked,
// commit, and preload the image after that.
package swap

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/NineCSdev/nothing-wallpaper-changer/internal/catalog"
	"github.com/NineCSdev/nothing-wallpaper-changer/internal/commit"
	"github.com/NineCSdev/nothing-wallpaper-changer/internal/logging"
	"github.com/NineCSdev/nothing-wallpaper-changer/internal/notify"
	"github.com/NineCSdev/nothing-wallpaper-changer/internal/preload"
	"github.com/NineCSdev/nothing-wallpaper-changer/internal/rotation"
	"github.com/NineCSdev/nothing-wallpaper-changer/internal/session"
)

// DefaultSettle outlasts the lock-transition animation on the targets we
// care about, so the rotation is never seen mid-effect.
const DefaultSettle = 750 * time.Millisecond

// Config carries the tunables and the initial source folder.
type Config struct {
	Folder string
	// Settle is the delay between winning the gate and touching any
	// visible state. Zero means DefaultSettle; negative means none.
	Settle time.Duration
	// DefaultImage is committed on Stop when RevertOnStop is set.
	DefaultImage string
	RevertOnStop bool
}

// Engine composes the rotation state, preload pipeline and swap gate into
// the trigger-driven orchestrator. All failures are contained within the
// current cycle; nothing propagates past the engine boundary.
type Engine struct {
	cfg     Config
	state   *rotation.State
	builder catalog.Builder
	pipe    *preload.Pipeline
	comm    commit.Committer
	sess    session.Query
	gate    *Gate
	bus     *notify.Bus
	logger  *slog.Logger

	running atomic.Bool
	wg      sync.WaitGroup

	mu     sync.Mutex
	folder string
}

func NewEngine(cfg Config, state *rotation.State, builder catalog.Builder, pipe *preload.Pipeline,
	comm commit.Committer, sess session.Query, bus *notify.Bus, logger *slog.Logger) *Engine {
	if cfg.Settle == 0 {
		cfg.Settle = DefaultSettle
	}
	if cfg.Settle < 0 {
		cfg.Settle = 0
	}
	if sess == nil {
		sess = session.Static(false)
	}
	if bus == nil {
		bus = notify.NewBus()
	}
	return &Engine{
		cfg:     cfg,
		state:   state,
		builder: builder,
		pipe:    pipe,
		comm:    comm,
		sess:    sess,
		gate:    NewGate(),
		bus:     bus,
		logger:  logging.Default(logger).With("component", "swap"),
		folder:  cfg.Folder,
	}
}

// Events exposes the lifecycle event bus.
func (e *Engine) Events() *notify.Bus {
	return e.bus
}

// Start builds the catalog for the configured folder and marks the engine
// running. A failing first build is reported but does not prevent start;
// the folder may appear later and a refresh will pick it up.
func (e *Engine) Start(ctx context.Context) error {
	e.running.Store(true)
	err := e.Refresh(ctx, "", false)
	e.bus.Publish(notify.Event{Kind: notify.RotationStarted})
	e.logger.Info("rotation started", "folder", e.currentFolder())
	return err
}

// HandleTrigger reacts to one "device locked" signal. It only dispatches:
// the gate is tried synchronously, the cycle itself runs in its own
// goroutine. The return value reports whether a cycle was started.
func (e *Engine) HandleTrigger(ctx context.Context) bool {
	if !e.running.Load() {
		e.logger.Debug("trigger ignored, engine not running")
		return false
	}
	if !e.gate.TryAcquire() {
		e.logger.Debug("trigger dropped, swap already in flight")
		e.bus.Publish(notify.Event{Kind: notify.TriggerDropped})
		return false
	}
	if !e.begin() {
		// Stop won the race; the gate must not stay held.
		e.gate.Release()
		return false
	}

	go func() {
		defer e.wg.Done()
		defer e.gate.Release()
		e.runCycle(ctx)
	}()
	return true
}

// begin registers one background task with the engine. It refuses once
// the engine stopped, and shares a lock with Stop so the WaitGroup never
// sees an Add concurrent with a Wait from zero.
func (e *Engine) begin() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if !e.running.Load() {
		return false
	}
	e.wg.Add(1)
	return true
}

// runCycle walks one swap through settling, selecting, resolving,
// validating and committing. Every abort path still ends with the deferred
// gate release in HandleTrigger.
func (e *Engine) runCycle(ctx context.Context) {
	logger := e.logger.With("cycle", uuid.NewString())

	// Settling: wait out the lock-transition animation before any visible
	// state changes.
	if e.cfg.Settle > 0 {
		select {
		case <-time.After(e.cfg.Settle):
		case <-ctx.Done():
			logger.Debug("cycle canceled during settling")
			return
		}
	}

	// Selecting.
	id, ok := e.state.Advance()
	if !ok {
		logger.Info("no catalog, nothing to show")
		return
	}
	logger = logger.With("image", string(id))

	// Resolving: preload hit or synchronous decode fallback.
	buf, err := e.pipe.Resolve(ctx, id)
	if err != nil {
		logger.Warn("resolve failed, aborting cycle", "error", err)
		return
	}

	// Validating: late veto, not a cancellation. The decode already ran;
	// we only discard its result if the user unlocked meanwhile.
	veto := false
	if interactive, err := e.sess.Interactive(ctx); err != nil {
		logger.Debug("interactivity probe failed, committing anyway", "error", err)
	} else if interactive {
		logger.Info("device interactive again, skipping commit")
		veto = true
	}

	// Committing. Success or failure, the cycle proceeds to preload-ahead.
	if !veto {
		if err := e.comm.Commit(ctx, buf); err != nil {
			logger.Warn("commit failed", "error", err)
		} else {
			logger.Info("wallpaper committed")
			e.bus.Publish(notify.Event{Kind: notify.Committed, Image: string(id)})
		}
	}

	e.preloadAhead(ctx, logger)
}

// preloadAhead schedules the decode of the image expected next, in its own
// goroutine so the gate is not held for it.
func (e *Engine) preloadAhead(ctx context.Context, logger *slog.Logger) {
	next, ok := e.state.PeekNext()
	if !ok {
		return
	}
	if !e.begin() {
		return
	}
	go func() {
		defer e.wg.Done()
		if err := e.pipe.Preload(ctx, next); err != nil {
			logger.Debug("preload ahead failed", "next", string(next), "error", err)
		}
	}()
}

// Refresh rebuilds the rotation cache. folder == "" means the currently
// configured folder. The rebuild is skipped when nothing changed and the
// refresh was not forced, so repeated startup calls cost no I/O. On
// failure the cache keeps its prior contents.
func (e *Engine) Refresh(ctx context.Context, folder string, forced bool) error {
	if folder == "" {
		folder = e.currentFolder()
	}
	if folder == "" {
		e.logger.Debug("refresh skipped, no folder configured")
		return nil
	}
	if !e.state.NeedsRebuild(folder, forced) {
		e.logger.Debug("refresh skipped, catalog current", "folder", folder)
		return nil
	}

	ids, err := e.builder.List(ctx, folder)
	if err != nil {
		e.logger.Warn("catalog listing failed, keeping previous sequence", "folder", folder, "error", err)
		return err
	}

	e.state.Rebuild(folder, ids)
	e.setFolder(folder)
	e.logger.Info("catalog rebuilt", "folder", folder, "images", len(ids))
	e.bus.Publish(notify.Event{Kind: notify.CatalogRebuilt, Detail: folder})

	e.preloadAhead(ctx, e.logger)
	return nil
}

// Stop halts rotation: waits out the in-flight cycle (the gate is released
// by its own defer), clears the sequence, drops the preload buffer, and
// optionally restores the default image.
func (e *Engine) Stop(ctx context.Context) {
	e.mu.Lock()
	e.running.Store(false)
	e.mu.Unlock()
	e.wg.Wait()

	e.state.Clear()

	if e.cfg.RevertOnStop && e.cfg.DefaultImage != "" {
		buf, err := e.pipe.Resolve(ctx, rotation.ID(e.cfg.DefaultImage))
		if err != nil {
			e.logger.Warn("default image decode failed", "error", err)
		} else if err := e.comm.Commit(ctx, buf); err != nil {
			e.logger.Warn("default image commit failed", "error", err)
		} else {
			e.logger.Info("default image restored")
		}
	}

	e.bus.Publish(notify.Event{Kind: notify.RotationStopped})
	e.logger.Info("rotation stopped")
}

// Wait blocks until all in-flight cycles and preloads have finished.
func (e *Engine) Wait() {
	e.wg.Wait()
}

// Running reports whether the engine accepts triggers.
func (e *Engine) Running() bool {
	return e.running.Load()
}

// CatalogSize returns the current sequence length, for the status surface.
func (e *Engine) CatalogSize() int {
	return e.state.Len()
}

func (e *Engine) currentFolder() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.folder
}

func (e *Engine) setFolder(folder string) {
	e.mu.Lock()
	e.folder = folder
	e.mu.Unlock()
}

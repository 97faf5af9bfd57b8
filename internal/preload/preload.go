// Package preload speculatively decodes the image expected next into the
// single-slot cache, so the swap path sees a ready buffer instead of disk
// latency.
package preload

import (
	"context"
	"log/slog"

	"golang.org/x/sync/singleflight"

	"github.com/NineCSdev/nothing-wallpaper-changer/internal/decode"
	"github.com/NineCSdev/nothing-wallpaper-changer/internal/logging"
	"github.com/NineCSdev/nothing-wallpaper-changer/internal/rotation"
)

// Pipeline fills and serves the preload slot owned by rotation.State.
//
// Preloading is strictly speculative and single-slot: exactly one "next"
// position exists at a time, so there is no eviction policy to speak of.
type Pipeline struct {
	state  *rotation.State
	dec    decode.Decoder
	g      singleflight.Group
	logger *slog.Logger
}

func New(state *rotation.State, dec decode.Decoder, logger *slog.Logger) *Pipeline {
	logger = logging.Default(logger)
	return &Pipeline{
		state:  state,
		dec:    dec,
		logger: logger.With("component", "preload"),
	}
}

// Get returns the held buffer only when it was decoded for id. A miss means
// the caller has to decode synchronously.
func (p *Pipeline) Get(id rotation.ID) (*rotation.Buffer, bool) {
	return p.state.Buffer(id)
}

// Preload decodes id ahead of time and stores the result in the slot. It is
// idempotent: a slot already valid for id short-circuits, and concurrent
// calls for the same id collapse into a single decode. A failed decode
// leaves the slot empty; the next swap's preload retries naturally.
func (p *Pipeline) Preload(ctx context.Context, id rotation.ID) error {
	if p.state.HasBuffer(id) {
		return nil
	}

	// A preload for a new id supersedes the held buffer right away, so at
	// most one decoded image is live and a failed decode ends with an
	// empty slot, not a stale image.
	p.state.InvalidateSlot()

	buf, err := p.decodeOnce(ctx, id)
	if err != nil {
		p.logger.Warn("preload decode failed", "id", string(id), "error", err)
		return err
	}

	p.state.PutBuffer(buf)
	p.logger.Debug("preloaded", "id", string(id), "format", buf.Format, "bytes", len(buf.Data))
	return nil
}

// Resolve returns a buffer for id, from the slot when possible and by
// synchronous decode otherwise. The fallback shares the singleflight key
// with Preload, so a decode already in flight for id is joined rather than
// repeated.
func (p *Pipeline) Resolve(ctx context.Context, id rotation.ID) (*rotation.Buffer, error) {
	if buf, ok := p.state.Buffer(id); ok {
		p.logger.Debug("slot hit", "id", string(id))
		return buf, nil
	}
	p.logger.Debug("slot miss, decoding synchronously", "id", string(id))
	return p.decodeOnce(ctx, id)
}

// Invalidate releases the held buffer unconditionally. Called whenever the
// rotation cache rebuilds, since a stale-sequence buffer no longer maps to
// a meaningful "next" position.
func (p *Pipeline) Invalidate() {
	p.state.InvalidateSlot()
}

func (p *Pipeline) decodeOnce(ctx context.Context, id rotation.ID) (*rotation.Buffer, error) {
	v, err, _ := p.g.Do(string(id), func() (any, error) {
		// Double check under the flight: another caller may have filled
		// the slot while we queued.
		if buf, ok := p.state.Buffer(id); ok {
			return buf, nil
		}
		return p.dec.Decode(ctx, id)
	})
	if err != nil {
		return nil, err
	}
	return v.(*rotation.Buffer), nil
}

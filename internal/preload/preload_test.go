package preload

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/NineCSdev/nothing-wallpaper-changer/internal/rotation"
)

// countingDecoder counts decode calls and can be told to fail or block.
type countingDecoder struct {
	calls   atomic.Int64
	fail    bool
	release chan struct{} // when non-nil, Decode blocks until closed
}

func (d *countingDecoder) Decode(ctx context.Context, id rotation.ID) (*rotation.Buffer, error) {
	d.calls.Add(1)
	if d.release != nil {
		<-d.release
	}
	if d.fail {
		return nil, errors.New("boom")
	}
	return &rotation.Buffer{ID: id, Data: []byte(id)}, nil
}

func newState(t *testing.T, ids ...rotation.ID) *rotation.State {
	t.Helper()
	s := rotation.New(nil)
	s.Rebuild("/wp", ids)
	return s
}

func TestGetOnlyAfterMatchingPreload(t *testing.T) {
	state := newState(t, "a", "b")
	dec := &countingDecoder{}
	p := New(state, dec, nil)

	if _, ok := p.Get("a"); ok {
		t.Fatal("get before any preload must miss")
	}

	if err := p.Preload(t.Context(), "a"); err != nil {
		t.Fatalf("preload: %v", err)
	}
	if _, ok := p.Get("b"); ok {
		t.Fatal("get for a different id must miss")
	}
	buf, ok := p.Get("a")
	if !ok || buf.ID != "a" {
		t.Fatalf("get(a) = (%v, %v), want hit", buf, ok)
	}

	p.Invalidate()
	if _, ok := p.Get("a"); ok {
		t.Fatal("get after invalidate must miss")
	}
}

func TestPreloadIdempotent(t *testing.T) {
	state := newState(t, "a")
	dec := &countingDecoder{}
	p := New(state, dec, nil)

	for i := 0; i < 3; i++ {
		if err := p.Preload(t.Context(), "a"); err != nil {
			t.Fatalf("preload %d: %v", i, err)
		}
	}
	if got := dec.calls.Load(); got != 1 {
		t.Fatalf("decoder ran %d times, want 1", got)
	}
}

func TestConcurrentPreloadsDecodeOnce(t *testing.T) {
	state := newState(t, "a")
	dec := &countingDecoder{release: make(chan struct{})}
	p := New(state, dec, nil)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = p.Preload(context.Background(), "a")
		}()
	}
	close(dec.release)
	wg.Wait()

	if got := dec.calls.Load(); got != 1 {
		t.Fatalf("decoder ran %d times, want 1", got)
	}
	if _, ok := p.Get("a"); !ok {
		t.Fatal("slot should hold a after the shared decode")
	}
}

func TestPreloadFailureLeavesSlotEmpty(t *testing.T) {
	state := newState(t, "a")
	dec := &countingDecoder{fail: true}
	p := New(state, dec, nil)

	if err := p.Preload(t.Context(), "a"); err == nil {
		t.Fatal("preload should surface the decode error")
	}
	if _, ok := p.Get("a"); ok {
		t.Fatal("failed preload must leave the slot empty")
	}

	// No automatic retry happened, but a later preload tries again.
	dec.fail = false
	if err := p.Preload(t.Context(), "a"); err != nil {
		t.Fatalf("retry preload: %v", err)
	}
	if _, ok := p.Get("a"); !ok {
		t.Fatal("retry should have filled the slot")
	}
}

func TestPreloadSupersedesHeldBuffer(t *testing.T) {
	state := newState(t, "a", "b")
	dec := &countingDecoder{}
	p := New(state, dec, nil)

	if err := p.Preload(t.Context(), "a"); err != nil {
		t.Fatalf("preload: %v", err)
	}

	// Preloading a new id drops the old buffer before decoding, so a
	// failed decode ends with an empty slot, never a stale image.
	dec.fail = true
	if err := p.Preload(t.Context(), "b"); err == nil {
		t.Fatal("preload should surface the decode error")
	}
	if _, ok := p.Get("a"); ok {
		t.Fatal("old buffer must be released when a new preload starts")
	}
	if _, ok := p.Get("b"); ok {
		t.Fatal("failed preload must leave the slot empty")
	}
}

func TestResolveFallsBackToSynchronousDecode(t *testing.T) {
	state := newState(t, "a", "b")
	dec := &countingDecoder{}
	p := New(state, dec, nil)

	buf, err := p.Resolve(t.Context(), "a")
	if err != nil || buf.ID != "a" {
		t.Fatalf("resolve miss path = (%v, %v)", buf, err)
	}
	if got := dec.calls.Load(); got != 1 {
		t.Fatalf("decoder ran %d times, want 1", got)
	}

	// A hit does not decode again.
	if err := p.Preload(t.Context(), "b"); err != nil {
		t.Fatalf("preload: %v", err)
	}
	calls := dec.calls.Load()
	buf, err = p.Resolve(t.Context(), "b")
	if err != nil || buf.ID != "b" {
		t.Fatalf("resolve hit path = (%v, %v)", buf, err)
	}
	if got := dec.calls.Load(); got != calls {
		t.Fatalf("resolve hit decoded anyway (%d -> %d)", calls, got)
	}
}

func TestRebuildInvalidatesBetweenPreloadAndGet(t *testing.T) {
	state := newState(t, "a")
	p := New(state, &countingDecoder{}, nil)

	if err := p.Preload(t.Context(), "a"); err != nil {
		t.Fatalf("preload: %v", err)
	}
	state.Rebuild("/other", []rotation.ID{"a"})
	if _, ok := p.Get("a"); ok {
		t.Fatal("rebuild must invalidate the slot")
	}
}

// Package rotation owns the shuffled wallpaper sequence, its cursor and the
// single-slot preload buffer.
//
// The cache and the slot live behind one mutex on purpose: "read the next
// identifier" and "check/replace the buffer" must be observable as a single
// atomic step, otherwise a rebuild could hand out identifiers from a new
// sequence while the slot still reflects the old one.
package rotation

import (
	"image"
	"math/rand/v2"
	"sync"
	"time"
)

// ID is an opaque, stable handle to one image resource. In practice it is
// the absolute file path, but nothing outside the catalog should care.
type ID string

// Buffer is a decoded image ready to be committed. A Buffer is only
// meaningful while its ID matches the identifier currently expected next;
// consumers must go through State.Buffer, which enforces that check.
type Buffer struct {
	ID     ID
	Img    image.Image
	Data   []byte
	Format string
}

// State is the process-wide rotation state: the shuffled sequence, the
// cursor into it, the folder the sequence was derived from, and the preload
// slot. It is safe for concurrent use.
type State struct {
	mu     sync.Mutex
	rnd    *rand.Rand
	seq    []ID
	cursor int
	source string
	slot   *Buffer
}

// New creates an empty State. rnd may be nil, in which case a time-seeded
// generator is used; tests inject a fixed seed for deterministic shuffles.
func New(rnd *rand.Rand) *State {
	if rnd == nil {
		now := time.Now()
		rnd = rand.New(rand.NewPCG(uint64(now.UnixNano()), uint64(now.Unix())))
	}
	return &State{rnd: rnd, cursor: -1}
}

// NeedsRebuild reports whether Rebuild should run for the given folder.
// A rebuild is skipped when the folder is unchanged, the sequence is
// non-empty and no explicit refresh was requested, so repeated startup
// calls don't hit the filesystem again.
func (s *State) NeedsRebuild(folder string, forced bool) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if forced {
		return true
	}
	return folder != s.source || len(s.seq) == 0
}

// Rebuild replaces the sequence with a fresh random permutation of ids,
// resets the cursor and invalidates the preload slot. The slot is dropped
// unconditionally, even when the new catalog is empty: a buffer from a
// previous sequence no longer corresponds to a meaningful "next" position.
func (s *State) Rebuild(folder string, ids []ID) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq = make([]ID, len(ids))
	copy(s.seq, ids)
	s.shuffleLocked()
	s.source = folder
	s.cursor = -1
	s.slot = nil
}

// Advance moves the cursor to the next identifier and returns it. When the
// cursor runs past the end, the sequence is reshuffled (a fresh permutation,
// not a rotation) and the cursor restarts at 0; both happen under the lock,
// so no intermediate state is visible. ok is false only when the sequence
// is empty, which is a "nothing to show" condition rather than an error.
func (s *State) Advance() (id ID, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.seq) == 0 {
		return "", false
	}
	s.cursor++
	if s.cursor >= len(s.seq) {
		s.shuffleLocked()
		s.cursor = 0
	}
	return s.seq[s.cursor], true
}

// PeekNext returns what Advance would return, without moving the cursor.
// When the next Advance will wrap, the coming reshuffle is not predictable,
// so the current head of the sequence is reported instead; a wrong guess
// only costs a preload-slot miss on the next cycle.
func (s *State) PeekNext() (id ID, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.seq) == 0 {
		return "", false
	}
	next := s.cursor + 1
	if next >= len(s.seq) {
		next = 0
	}
	return s.seq[next], true
}

// Clear empties the sequence and releases the slot. Used when the rotation
// service stops or the source folder becomes unavailable.
func (s *State) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq = nil
	s.cursor = -1
	s.source = ""
	s.slot = nil
}

// Source returns the folder the current sequence was built from.
func (s *State) Source() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.source
}

// Len returns the catalog size of the current sequence.
func (s *State) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.seq)
}

// Buffer returns the held preload buffer only when it was decoded for id.
// Anything else is a miss and the caller must decode synchronously.
func (s *State) Buffer(id ID) (*Buffer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.slot == nil || s.slot.ID != id {
		return nil, false
	}
	return s.slot, true
}

// HasBuffer reports whether the slot currently holds a buffer for id,
// without handing the buffer out.
func (s *State) HasBuffer(id ID) bool {
	_, ok := s.Buffer(id)
	return ok
}

// PutBuffer stores b in the slot, releasing whatever was held before. The
// slot holds at most one buffer at a time.
func (s *State) PutBuffer(b *Buffer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slot = b
}

// InvalidateSlot releases the held buffer unconditionally.
func (s *State) InvalidateSlot() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.slot = nil
}

func (s *State) shuffleLocked() {
	s.rnd.Shuffle(len(s.seq), func(i, j int) {
		s.seq[i], s.seq[j] = s.seq[j], s.seq[i]
	})
}

// Package store holds the live database snapshot shared by request handlers
// and the reload loop.
package store

import (
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/TomasB/ipcountry/internal/data"
)

// ErrHandleClosed is returned by Read and Replace after Close.
var ErrHandleClosed = errors.New("database handle is closed")

// snapshot is one installed database. The handle owns one reference while
// the snapshot is current; every Ref owns another. The database is closed
// when the count drops to zero.
type snapshot struct {
	db         data.Database
	generation uint64
	loadedAt   time.Time
	refs       atomic.Int64
}

func (s *snapshot) release() {
	if s.refs.Add(-1) != 0 {
		return
	}
	if err := s.db.Close(); err != nil {
		slog.Warn("failed to close superseded database", "generation", s.generation, "error", err)
	}
}

// Ref is a borrowed reference to one snapshot. Call Release when done.
type Ref struct {
	s    *snapshot
	once sync.Once
}

// Database returns the snapshot's database. It stays valid until Release.
func (r *Ref) Database() data.Database {
	return r.s.db
}

// Generation returns the snapshot's sequence number, starting at 1.
func (r *Ref) Generation() uint64 {
	return r.s.generation
}

// LoadedAt returns when the snapshot was installed.
func (r *Ref) LoadedAt() time.Time {
	return r.s.loadedAt
}

// Release gives the reference back. Extra calls are no-ops.
func (r *Ref) Release() {
	r.once.Do(r.s.release)
}

// Handle is a concurrency-safe container for exactly one live database.
// The lock is held only to load or swap the current pointer, never while
// a database is being opened or queried.
type Handle struct {
	mu     sync.RWMutex
	cur    *snapshot
	next   uint64
	closed bool
}

// New creates a Handle with db installed as the first snapshot.
func New(db data.Database) *Handle {
	h := &Handle{}
	h.cur = h.newSnapshot(db)
	return h
}

func (h *Handle) newSnapshot(db data.Database) *snapshot {
	h.next++
	s := &snapshot{db: db, generation: h.next, loadedAt: time.Now()}
	s.refs.Store(1)
	return s
}

// Read returns a reference to the current snapshot.
func (h *Handle) Read() (*Ref, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if h.closed {
		return nil, ErrHandleClosed
	}
	h.cur.refs.Add(1)
	return &Ref{s: h.cur}, nil
}

// Replace installs db as the current snapshot. Readers holding the previous
// snapshot keep using it until they release it. On a closed handle db is
// closed and ErrHandleClosed returned.
func (h *Handle) Replace(db data.Database) error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		db.Close()
		return ErrHandleClosed
	}
	old := h.cur
	h.cur = h.newSnapshot(db)
	h.mu.Unlock()

	old.release()
	return nil
}

// Ready reports whether Read would succeed.
func (h *Handle) Ready() error {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.closed {
		return ErrHandleClosed
	}
	return nil
}

// Close drops the handle's reference to the current snapshot. The database
// is closed once outstanding readers release it.
func (h *Handle) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	cur := h.cur
	h.mu.Unlock()

	cur.release()
	return nil
}

// Package library holds the authoritative in-memory set of worlds and
// mirrors every change to durable storage.
package library

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jwebster45206/saga-engine/pkg/storage"
	"github.com/jwebster45206/saga-engine/pkg/world"
)

var (
	ErrWorldNotFound = errors.New("world not found")
	// ErrPersistenceWrite is matched by every *PersistenceError
	ErrPersistenceWrite = errors.New("persistence write failed")
)

// PersistenceError reports a failed durable write. The in-memory change it
// accompanies has already been applied and stays in effect.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("%s: %s: %v", ErrPersistenceWrite, e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

func (e *PersistenceError) Is(target error) bool { return target == ErrPersistenceWrite }

// Library is safe for concurrent use. Worlds are handed out as deep copies.
type Library struct {
	mu     sync.RWMutex
	worlds []world.World
	saveMu sync.Mutex // serializes writes so the newest set always lands last
	store  storage.Storage
	logger *slog.Logger
}

// New creates an empty library backed by store
func New(store storage.Storage, logger *slog.Logger) *Library {
	if logger == nil {
		logger = slog.Default()
	}
	return &Library{store: store, logger: logger}
}

// Load replaces the in-memory set with what storage holds
func (l *Library) Load(ctx context.Context) error {
	worlds, err := l.store.LoadAllWorlds(ctx)
	if err != nil {
		return fmt.Errorf("failed to load worlds: %w", err)
	}
	l.mu.Lock()
	l.worlds = worlds
	l.mu.Unlock()
	l.logger.Info("Worlds loaded", "count", len(worlds))
	return nil
}

// Ping checks the backing store
func (l *Library) Ping(ctx context.Context) error {
	return l.store.Ping(ctx)
}

// World returns a deep copy of the world with the given id
func (l *Library) World(id string) (*world.World, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	i := l.index(id)
	if i < 0 {
		return nil, fmt.Errorf("%w: %s", ErrWorldNotFound, id)
	}
	return l.worlds[i].DeepCopy()
}

// Worlds returns deep copies of every world in insertion order
func (l *Library) Worlds() ([]world.World, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]world.World, 0, len(l.worlds))
	for i := range l.worlds {
		w, err := l.worlds[i].DeepCopy()
		if err != nil {
			return nil, err
		}
		out = append(out, *w)
	}
	return out, nil
}

// Commit stores a copy of w, replacing the world with the same id or
// appending a new one, then saves the full set. A save failure is returned
// as a *PersistenceError; the in-memory commit stands regardless.
func (l *Library) Commit(ctx context.Context, w *world.World) error {
	cp, err := w.DeepCopy()
	if err != nil {
		return err
	}
	cp.UpdatedAt = time.Now().UTC()
	if cp.CreatedAt.IsZero() {
		cp.CreatedAt = cp.UpdatedAt
	}

	l.mu.Lock()
	if i := l.index(cp.ID); i >= 0 {
		l.worlds[i] = *cp
	} else {
		l.worlds = append(l.worlds, *cp)
	}
	l.mu.Unlock()

	return l.save(ctx, "commit "+cp.ID)
}

// Update applies fn to a copy of the latest version of a world under the
// write lock and commits the result. When fn fails nothing changes and its
// error is returned as is. fn must not call back into the library.
//
// The committed world is returned even when the durable save fails; the
// error is then a *PersistenceError.
func (l *Library) Update(ctx context.Context, id string, fn func(w *world.World) error) (*world.World, error) {
	l.mu.Lock()
	i := l.index(id)
	if i < 0 {
		l.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrWorldNotFound, id)
	}
	w, err := l.worlds[i].DeepCopy()
	if err != nil {
		l.mu.Unlock()
		return nil, err
	}
	if err := fn(w); err != nil {
		l.mu.Unlock()
		return nil, err
	}
	w.ID = id
	w.UpdatedAt = time.Now().UTC()
	out, err := w.DeepCopy()
	if err != nil {
		l.mu.Unlock()
		return nil, err
	}
	l.worlds[i] = *w
	l.mu.Unlock()

	return out, l.save(ctx, "update "+id)
}

// DeleteWorld removes a world and saves
func (l *Library) DeleteWorld(ctx context.Context, id string) error {
	l.mu.Lock()
	i := l.index(id)
	if i < 0 {
		l.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrWorldNotFound, id)
	}
	l.worlds = append(l.worlds[:i:i], l.worlds[i+1:]...)
	l.mu.Unlock()

	return l.save(ctx, "delete world "+id)
}

// DeleteCharacter removes a saved character from a world and saves. It
// reports whether the character existed.
func (l *Library) DeleteCharacter(ctx context.Context, worldID, characterID string) (bool, error) {
	l.mu.Lock()
	i := l.index(worldID)
	if i < 0 {
		l.mu.Unlock()
		return false, fmt.Errorf("%w: %s", ErrWorldNotFound, worldID)
	}
	w, err := l.worlds[i].DeepCopy()
	if err != nil {
		l.mu.Unlock()
		return false, err
	}
	if !w.RemoveCharacter(characterID) {
		l.mu.Unlock()
		return false, nil
	}
	w.UpdatedAt = time.Now().UTC()
	l.worlds[i] = *w
	l.mu.Unlock()

	return true, l.save(ctx, "delete character "+characterID)
}

func (l *Library) save(ctx context.Context, op string) error {
	l.saveMu.Lock()
	defer l.saveMu.Unlock()

	// elements are only ever replaced wholesale, so a shallow copy is a
	// consistent snapshot
	l.mu.RLock()
	snapshot := make([]world.World, len(l.worlds))
	copy(snapshot, l.worlds)
	l.mu.RUnlock()

	if err := l.store.SaveAllWorlds(ctx, snapshot); err != nil {
		l.logger.Warn("Failed to persist worlds", "op", op, "error", err)
		return &PersistenceError{Op: op, Err: err}
	}
	return nil
}

func (l *Library) index(id string) int {
	for i := range l.worlds {
		if l.worlds[i].ID == id {
			return i
		}
	}
	return -1
}

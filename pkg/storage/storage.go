package storage

import (
	"context"

	"github.com/jwebster45206/saga-engine/pkg/world"
)

// Storage persists the full set of worlds as one document. Each save is a
// whole-document replacement: readers never observe a partially written set.
type Storage interface {
	// Health and lifecycle
	Ping(ctx context.Context) error
	Close() error

	// LoadAllWorlds returns every stored world, or an empty slice when
	// nothing has been saved yet.
	LoadAllWorlds(ctx context.Context) ([]world.World, error)
	// SaveAllWorlds replaces the stored set atomically.
	SaveAllWorlds(ctx context.Context, worlds []world.World) error
}

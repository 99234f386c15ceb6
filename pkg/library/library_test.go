package library

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/saga-engine/pkg/actor"
	"github.com/jwebster45206/saga-engine/pkg/storage"
	"github.com/jwebster45206/saga-engine/pkg/world"
)

func newWorld(id, name string, charIDs ...string) *world.World {
	w := &world.World{ID: id, Name: name}
	for _, cid := range charIDs {
		w.Characters = append(w.Characters, world.SavedCharacter{
			Character: actor.Character{ID: cid, Name: "char " + cid, Health: 5, MaxHealth: 5},
		})
	}
	return w
}

func TestLibrary_CommitAndLoad(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMockStorage()
	lib := New(store, nil)

	require.NoError(t, lib.Commit(ctx, newWorld("w1", "First", "c1")))
	require.NoError(t, lib.Commit(ctx, newWorld("w2", "Second")))
	require.NoError(t, lib.Commit(ctx, newWorld("w1", "First, renamed", "c1", "c2")))
	assert.Equal(t, 3, store.SaveCount())

	worlds, err := lib.Worlds()
	require.NoError(t, err)
	require.Len(t, worlds, 2)
	assert.Equal(t, "First, renamed", worlds[0].Name, "replaced in place")
	assert.Len(t, worlds[0].Characters, 2)
	assert.False(t, worlds[0].CreatedAt.IsZero())

	reloaded := New(store, nil)
	require.NoError(t, reloaded.Load(ctx))
	w, err := reloaded.World("w1")
	require.NoError(t, err)
	assert.Equal(t, "First, renamed", w.Name)
}

func TestLibrary_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	lib := New(storage.NewMockStorage(), nil)
	orig := newWorld("w1", "First", "c1")
	require.NoError(t, lib.Commit(ctx, orig))

	orig.Name = "mutated after commit"
	got, err := lib.World("w1")
	require.NoError(t, err)
	assert.Equal(t, "First", got.Name)

	got.Characters[0].Character.Gold = 999
	again, err := lib.World("w1")
	require.NoError(t, err)
	assert.Equal(t, 0, again.Characters[0].Character.Gold)
}

func TestLibrary_PersistenceFailureKeepsMemory(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMockStorage()
	lib := New(store, nil)
	store.SetSaveError(errors.New("quota exceeded"))

	err := lib.Commit(ctx, newWorld("w1", "First"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrPersistenceWrite)
	var pe *PersistenceError
	require.ErrorAs(t, err, &pe)
	assert.Contains(t, pe.Error(), "quota exceeded")

	w, err := lib.World("w1")
	require.NoError(t, err, "in-memory state stays usable")
	assert.Equal(t, "First", w.Name)

	store.SetSaveError(nil)
	require.NoError(t, lib.Commit(ctx, w))
	loaded, err := store.LoadAllWorlds(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded, 1)
}

func TestLibrary_Delete(t *testing.T) {
	ctx := context.Background()
	lib := New(storage.NewMockStorage(), nil)
	require.NoError(t, lib.Commit(ctx, newWorld("w1", "First", "c1", "c2")))
	require.NoError(t, lib.Commit(ctx, newWorld("w2", "Second")))

	removed, err := lib.DeleteCharacter(ctx, "w1", "c1")
	require.NoError(t, err)
	assert.True(t, removed)

	removed, err = lib.DeleteCharacter(ctx, "w1", "c1")
	require.NoError(t, err)
	assert.False(t, removed)

	_, err = lib.DeleteCharacter(ctx, "nope", "c1")
	assert.ErrorIs(t, err, ErrWorldNotFound)

	w, err := lib.World("w1")
	require.NoError(t, err)
	require.Len(t, w.Characters, 1)
	assert.Equal(t, "c2", w.Characters[0].ID())

	require.NoError(t, lib.DeleteWorld(ctx, "w1"))
	assert.ErrorIs(t, lib.DeleteWorld(ctx, "w1"), ErrWorldNotFound)
	_, err = lib.World("w1")
	assert.ErrorIs(t, err, ErrWorldNotFound)

	worlds, err := lib.Worlds()
	require.NoError(t, err)
	require.Len(t, worlds, 1)
	assert.Equal(t, "w2", worlds[0].ID)
}

func TestLibrary_LoadError(t *testing.T) {
	store := storage.NewMockStorage()
	store.SetLoadError(assert.AnError)
	assert.ErrorIs(t, New(store, nil).Load(context.Background()), assert.AnError)
}

func TestLibrary_ConcurrentCommits(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMockStorage()
	lib := New(store, nil)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := string(rune('a' + i))
			_ = lib.Commit(ctx, newWorld(id, id))
		}(i)
	}
	wg.Wait()

	// the last save always carries the full set
	loaded, err := store.LoadAllWorlds(ctx)
	require.NoError(t, err)
	assert.Len(t, loaded, 20)
}

func TestLibrary_Update(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMockStorage()
	lib := New(store, nil)
	require.NoError(t, lib.Commit(ctx, newWorld("w1", "First", "c1")))

	got, err := lib.Update(ctx, "w1", func(w *world.World) error {
		w.LongTermMemory = append(w.LongTermMemory, "a storm passed")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"a storm passed"}, got.LongTermMemory)

	// the returned world is a copy
	got.LongTermMemory[0] = "mutated"
	w, err := lib.World("w1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a storm passed"}, w.LongTermMemory)

	saves := store.SaveCount()
	_, err = lib.Update(ctx, "w1", func(w *world.World) error {
		w.Name = "never stored"
		return assert.AnError
	})
	assert.ErrorIs(t, err, assert.AnError)
	w, err = lib.World("w1")
	require.NoError(t, err)
	assert.Equal(t, "First", w.Name)
	assert.Equal(t, saves, store.SaveCount())

	_, err = lib.Update(ctx, "nope", func(*world.World) error { return nil })
	assert.ErrorIs(t, err, ErrWorldNotFound)

	store.SetSaveError(assert.AnError)
	got, err = lib.Update(ctx, "w1", func(w *world.World) error {
		w.Name = "Renamed"
		return nil
	})
	assert.ErrorIs(t, err, ErrPersistenceWrite)
	require.NotNil(t, got)
	assert.Equal(t, "Renamed", got.Name)
}

func TestLibrary_ConcurrentUpdatesAllLand(t *testing.T) {
	ctx := context.Background()
	lib := New(storage.NewMockStorage(), nil)
	require.NoError(t, lib.Commit(ctx, newWorld("w1", "First")))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = lib.Update(ctx, "w1", func(w *world.World) error {
				w.LongTermMemory = append(w.LongTermMemory, "x")
				return nil
			})
		}()
	}
	wg.Wait()

	w, err := lib.World("w1")
	require.NoError(t, err)
	assert.Len(t, w.LongTermMemory, 20)
}

func TestExportYAML(t *testing.T) {
	w := newWorld("w1", "Nusantara", "c1")
	w.Quests = []world.Quest{{ID: "q1", Title: "Find the Relic", Status: world.QuestActive}}

	var buf bytes.Buffer
	require.NoError(t, ExportYAML(&buf, []world.World{*w}))
	out := buf.String()
	assert.True(t, strings.HasPrefix(out, "- "), "top level is a sequence")
	assert.Contains(t, out, "name: Nusantara")
	assert.Contains(t, out, "title: Find the Relic")
	assert.Contains(t, out, "status: Aktif")
}

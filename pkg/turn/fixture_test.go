package turn

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/saga-engine/pkg/actor"
	"github.com/jwebster45206/saga-engine/pkg/ids"
	"github.com/jwebster45206/saga-engine/pkg/library"
	"github.com/jwebster45206/saga-engine/pkg/narrator"
	"github.com/jwebster45206/saga-engine/pkg/storage"
	"github.com/jwebster45206/saga-engine/pkg/world"
)

// fakeNarrator answers with the funcs set; unset scene and question funcs
// echo the request back unchanged
type fakeNarrator struct {
	mu        sync.Mutex
	scene     func(ctx context.Context, req narrator.SceneRequest) (*narrator.SceneResponse, error)
	ask       func(ctx context.Context, req narrator.OOCRequest) (string, error)
	world     func(ctx context.Context, req narrator.WorldRequest) (*narrator.WorldResponse, error)
	character func(ctx context.Context, req narrator.CharacterRequest) (*narrator.CharacterResponse, error)

	sceneReqs    []narrator.SceneRequest
	askReqs      []narrator.OOCRequest
	characterReq narrator.CharacterRequest
}

func (f *fakeNarrator) GenerateWorld(ctx context.Context, req narrator.WorldRequest) (*narrator.WorldResponse, error) {
	return f.world(ctx, req)
}

func (f *fakeNarrator) GenerateCharacter(ctx context.Context, req narrator.CharacterRequest) (*narrator.CharacterResponse, error) {
	f.characterReq = req
	return f.character(ctx, req)
}

func (f *fakeNarrator) GenerateNextScene(ctx context.Context, req narrator.SceneRequest) (*narrator.SceneResponse, error) {
	f.mu.Lock()
	f.sceneReqs = append(f.sceneReqs, req)
	fn := f.scene
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, req)
	}
	return echo(req, "Nothing happens."), nil
}

func (f *fakeNarrator) AskOOCQuestion(ctx context.Context, req narrator.OOCRequest) (string, error) {
	f.mu.Lock()
	f.askReqs = append(f.askReqs, req)
	fn := f.ask
	f.mu.Unlock()
	if fn != nil {
		return fn(ctx, req)
	}
	return "An answer.", nil
}

func (f *fakeNarrator) lastScene() narrator.SceneRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sceneReqs[len(f.sceneReqs)-1]
}

// echo builds a minimal valid response that changes nothing. Ids are blanked
// the way a real backend would drop them.
func echo(req narrator.SceneRequest, narrative string) *narrator.SceneResponse {
	c := req.Character.Clone()
	c.ID = ""
	for i := range c.Inventory {
		c.Inventory[i].ID = ""
	}
	scene := req.Scene
	var party []actor.Character
	for _, p := range req.Party {
		p = p.Clone()
		p.ID = ""
		party = append(party, p)
	}
	return &narrator.SceneResponse{
		Narrative:        narrative,
		UpdatedCharacter: &c,
		UpdatedParty:     party,
		UpdatedScene:     &scene,
	}
}

// recorder collects notifications
type recorder struct {
	mu    sync.Mutex
	notes []Notification
}

func (r *recorder) Notify(_ context.Context, n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notes = append(r.notes, n)
}

func (r *recorder) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, n := range r.notes {
		out = append(out, n.Kind)
	}
	return out
}

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError}))
}

func aria() actor.Character {
	c := actor.Character{
		ID:        "c-1",
		Name:      "Aria",
		Race:      "Elf",
		Class:     "Ranger",
		Backstory: "Raised by wolves.",
		Level:     1,
		BaseStats: actor.Stats{Strength: 10, Dexterity: 14, Constitution: 12, Intelligence: 10, Wisdom: 12, Charisma: 8, ArmorClass: 12},
		Health:    10,
		MaxHealth: 10,
		Gold:      30,
		Inventory: []actor.InventoryItem{
			{Item: actor.Item{ID: "item-rope", Name: "Rope", Kind: actor.KindMisc, Value: 2}, Quantity: 1},
		},
	}
	c.Recompute()
	return c
}

func testWorld() *world.World {
	bram := actor.Character{ID: "c-2", Name: "Bram", Health: 8, MaxHealth: 8}
	return &world.World{
		ID:   "w-1",
		Name: "Saltmarch",
		Characters: []world.SavedCharacter{
			{Character: aria(), Scene: world.Scene{Location: "Harbor"}},
			{Character: bram, Scene: world.Scene{Location: "Mill"}},
		},
		Marketplace: world.Marketplace{Shops: []world.Shop{{
			ID:   "shop-1",
			Name: "General Store",
			Inventory: []actor.InventoryItem{
				{Item: actor.Item{ID: "item-sword", Name: "Short Sword", Kind: actor.KindWeapon, Slot: actor.SlotWeapon, Value: 20}, Quantity: 1},
				{Item: actor.Item{ID: "item-torch", Name: "Torch", Kind: actor.KindMisc, Value: 1}, Quantity: 3},
			},
		}}},
	}
}

type fixture struct {
	narr  *fakeNarrator
	store *storage.MockStorage
	lib   *library.Library
	notes *recorder
	opts  Options
	sess  *Session
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		narr:  &fakeNarrator{},
		store: storage.NewMockStorage(),
		notes: &recorder{},
	}
	f.lib = library.New(f.store, testLogger())
	require.NoError(t, f.lib.Commit(context.Background(), testWorld()))

	f.opts = Options{
		Narrator: f.narr,
		IDs:      ids.NewSequence("gen"),
		Library:  f.lib,
		Notifier: f.notes,
		Logger:   testLogger(),
		Timeout:  time.Second,
		Clock:    func() time.Time { return fixedNow },
	}
	f.sess = f.open(t, "c-1")
	return f
}

func (f *fixture) open(t *testing.T, characterID string) *Session {
	t.Helper()
	w, err := f.lib.World("w-1")
	require.NoError(t, err)
	s, err := NewSession(w, characterID, f.opts)
	require.NoError(t, err)
	return s
}

func (f *fixture) saved(t *testing.T, characterID string) *world.SavedCharacter {
	t.Helper()
	w, err := f.lib.World("w-1")
	require.NoError(t, err)
	return w.Character(characterID)
}

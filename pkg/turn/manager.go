package turn

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/jwebster45206/saga-engine/pkg/ledger"
	"github.com/jwebster45206/saga-engine/pkg/library"
	"github.com/jwebster45206/saga-engine/pkg/narrator"
	"github.com/jwebster45206/saga-engine/pkg/world"
)

// Manager owns world and character creation and caches one Session per
// saved character.
type Manager struct {
	opts Options

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewManager creates a manager. Narrator and Library are required.
func NewManager(opts Options) (*Manager, error) {
	if opts.Narrator == nil {
		return nil, fmt.Errorf("narrator is required")
	}
	if opts.Library == nil {
		return nil, fmt.Errorf("library is required")
	}
	return &Manager{
		opts:     opts.withDefaults(),
		sessions: make(map[string]*Session),
	}, nil
}

func sessionKey(worldID, characterID string) string {
	return worldID + "/" + characterID
}

// Library returns the backing world library
func (m *Manager) Library() *library.Library {
	return m.opts.Library
}

// Session returns the cached session for a character, opening one if needed
func (m *Manager) Session(worldID, characterID string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	key := sessionKey(worldID, characterID)
	if s, ok := m.sessions[key]; ok {
		return s, nil
	}
	w, err := m.opts.Library.World(worldID)
	if err != nil {
		return nil, err
	}
	s, err := NewSession(w, characterID, m.opts)
	if err != nil {
		return nil, err
	}
	m.sessions[key] = s
	return s, nil
}

// Forget drops the cached session for a character
func (m *Manager) Forget(worldID, characterID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionKey(worldID, characterID))
}

// CreateWorld asks the narrator for a new world, assigns every id and
// commits it.
func (m *Manager) CreateWorld(ctx context.Context, req narrator.WorldRequest) (*world.World, error) {
	if strings.TrimSpace(req.Concept) == "" {
		return nil, fmt.Errorf("concept cannot be empty")
	}
	cctx, cancel := context.WithTimeout(ctx, m.opts.Timeout)
	resp, err := m.opts.Narrator.GenerateWorld(cctx, req)
	cancel()
	if err != nil {
		return nil, narratorFailure(err)
	}
	if err := resp.Validate(); err != nil {
		return nil, err
	}
	resp.Normalize()

	now := m.opts.Clock()
	w := &world.World{
		ID:          m.opts.IDs.NewID(),
		Name:        strings.TrimSpace(resp.Name),
		Description: resp.Description,
		Places:      resp.WorldMap,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if resp.Marketplace != nil {
		for _, shop := range resp.Marketplace.Shops {
			shop.ID = m.opts.IDs.NewID()
			for i := range shop.Inventory {
				shop.Inventory[i].ID = m.opts.IDs.NewID()
			}
			w.Marketplace.Shops = append(w.Marketplace.Shops, shop)
		}
	}

	m.commit(ctx, w)
	m.opts.Logger.Info("World created", "world_id", w.ID, "name", w.Name, "shops", len(w.Marketplace.Shops))
	return w, nil
}

// CreateCharacter asks the narrator for a character in an existing world,
// assigns ids, derives stats and records the intro story.
func (m *Manager) CreateCharacter(ctx context.Context, worldID string, req narrator.CharacterRequest) (*world.SavedCharacter, error) {
	if strings.TrimSpace(req.Concept) == "" {
		return nil, fmt.Errorf("concept cannot be empty")
	}
	w, err := m.opts.Library.World(worldID)
	if err != nil {
		return nil, err
	}
	if req.WorldContext == "" {
		req.WorldContext = strings.TrimSpace(w.Name + "\n\n" + w.Description)
	}

	cctx, cancel := context.WithTimeout(ctx, m.opts.Timeout)
	resp, err := m.opts.Narrator.GenerateCharacter(cctx, req)
	cancel()
	if err != nil {
		return nil, narratorFailure(err)
	}
	if err := resp.Validate(); err != nil {
		return nil, err
	}
	resp.Normalize()

	c := resp.Character.Clone()
	c.ID = m.opts.IDs.NewID()
	for i := range c.Inventory {
		c.Inventory[i].ID = m.opts.IDs.NewID()
	}
	for _, it := range c.Equipment {
		it.ID = m.opts.IDs.NewID()
	}
	for i := range c.Residences {
		c.Residences[i].ID = m.opts.IDs.NewID()
	}
	c.Recompute()

	now := m.opts.Clock()
	sc := world.SavedCharacter{
		Character:  c,
		Scene:      resp.InitialScene,
		LastPlayed: now,
	}
	if intro := strings.TrimSpace(resp.IntroStory); intro != "" {
		sc.StoryHistory = append(sc.StoryHistory, world.StoryEntry{
			ID:        m.opts.IDs.NewID(),
			Type:      world.EntryNarrative,
			Content:   intro,
			Timestamp: now,
		})
	}

	committed, err := m.opts.Library.Update(ctx, worldID, func(w *world.World) error {
		w.PutCharacter(sc)
		return nil
	})
	if err != nil {
		if !errors.Is(err, library.ErrPersistenceWrite) {
			return nil, err
		}
		m.warn(ctx, worldID, c.ID, err)
	}
	m.opts.Logger.Info("Character created", "world_id", worldID, "character_id", c.ID, "name", c.Name)
	return committed.Character(c.ID), nil
}

// DeleteWorld removes a world and every cached session in it
func (m *Manager) DeleteWorld(ctx context.Context, worldID string) error {
	err := m.opts.Library.DeleteWorld(ctx, worldID)
	if err != nil && !errors.Is(err, library.ErrPersistenceWrite) {
		return err
	}
	m.mu.Lock()
	for key := range m.sessions {
		if strings.HasPrefix(key, worldID+"/") {
			delete(m.sessions, key)
		}
	}
	m.mu.Unlock()
	if err != nil {
		m.warn(ctx, worldID, "", err)
	}
	return nil
}

// DeleteCharacter removes a saved character and its cached session
func (m *Manager) DeleteCharacter(ctx context.Context, worldID, characterID string) error {
	removed, err := m.opts.Library.DeleteCharacter(ctx, worldID, characterID)
	if err != nil && !errors.Is(err, library.ErrPersistenceWrite) {
		return err
	}
	if !removed {
		return fmt.Errorf("%w: %s", ledger.ErrCharacterNotFound, characterID)
	}
	m.Forget(worldID, characterID)
	if err != nil {
		m.warn(ctx, worldID, characterID, err)
	}
	return nil
}

// commit stores a new world; a persistence failure is reported as a warning only
func (m *Manager) commit(ctx context.Context, w *world.World) {
	if err := m.opts.Library.Commit(ctx, w); err != nil {
		m.warn(ctx, w.ID, "", err)
	}
}

func (m *Manager) warn(ctx context.Context, worldID, characterID string, err error) {
	m.opts.Logger.Error("Failed to persist world", "world_id", worldID, "error", err)
	m.opts.Notifier.Notify(ctx, Notification{
		Kind:        KindPersistenceWarning,
		WorldID:     worldID,
		CharacterID: characterID,
		Message:     "progress may not be saved: " + err.Error(),
	})
}

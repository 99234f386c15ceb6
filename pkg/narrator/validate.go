package narrator

import (
	"fmt"
	"strings"

	"github.com/jwebster45206/saga-engine/pkg/actor"
	"github.com/jwebster45206/saga-engine/pkg/world"
)

// Validate checks that a scene response carries everything a turn needs
func (r *SceneResponse) Validate() error {
	if r == nil {
		return fmt.Errorf("%w: nil scene response", ErrMalformedResponse)
	}
	if strings.TrimSpace(r.Narrative) == "" {
		return fmt.Errorf("%w: narrative is required", ErrMalformedResponse)
	}
	if r.UpdatedCharacter == nil || strings.TrimSpace(r.UpdatedCharacter.Name) == "" {
		return fmt.Errorf("%w: updated_character is required", ErrMalformedResponse)
	}
	if r.UpdatedScene == nil {
		return fmt.Errorf("%w: updated_scene is required", ErrMalformedResponse)
	}
	for i, q := range r.QuestUpdates {
		if strings.TrimSpace(q.Title) == "" {
			return fmt.Errorf("%w: quest_updates[%d] has no title", ErrMalformedResponse, i)
		}
	}
	for i, p := range r.UpdatedParty {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("%w: updated_party[%d] has no name", ErrMalformedResponse, i)
		}
	}
	return nil
}

// Normalize repairs values a backend commonly gets slightly wrong. It assumes
// Validate has passed.
func (r *SceneResponse) Normalize() {
	normalizeCharacter(r.UpdatedCharacter)
	for i := range r.UpdatedParty {
		normalizeCharacter(&r.UpdatedParty[i])
	}
	for i := range r.QuestUpdates {
		r.QuestUpdates[i].Title = strings.TrimSpace(r.QuestUpdates[i].Title)
		r.QuestUpdates[i].Status = NormalizeQuestStatus(r.QuestUpdates[i].Status)
	}
	events := r.WorldEventUpdates[:0]
	for _, e := range r.WorldEventUpdates {
		if strings.TrimSpace(e.Title) == "" {
			continue
		}
		e.Type = NormalizeEventType(e.Type)
		events = append(events, e)
	}
	r.WorldEventUpdates = events
	if r.MarketplaceUpdate != nil {
		normalizeMarketplace(r.MarketplaceUpdate)
	}
	r.MemorySummary = strings.TrimSpace(r.MemorySummary)
}

// Validate checks a generated world
func (r *WorldResponse) Validate() error {
	if r == nil || strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("%w: world name is required", ErrMalformedResponse)
	}
	return nil
}

// Normalize clamps marketplace stock
func (r *WorldResponse) Normalize() {
	if r.Marketplace != nil {
		normalizeMarketplace(r.Marketplace)
	}
}

// Validate checks a generated character
func (r *CharacterResponse) Validate() error {
	if r == nil || strings.TrimSpace(r.Character.Name) == "" {
		return fmt.Errorf("%w: character name is required", ErrMalformedResponse)
	}
	if strings.TrimSpace(r.InitialScene.Location) == "" && strings.TrimSpace(r.InitialScene.Description) == "" {
		return fmt.Errorf("%w: initial_scene is required", ErrMalformedResponse)
	}
	return nil
}

// Normalize clamps the generated character's numbers
func (r *CharacterResponse) Normalize() {
	normalizeCharacter(&r.Character)
	if r.Character.Health <= 0 {
		r.Character.Health = r.Character.MaxHealth
	}
}

// NormalizeQuestStatus maps a status onto the known set, defaulting to active
func NormalizeQuestStatus(s world.QuestStatus) world.QuestStatus {
	switch strings.ToLower(strings.TrimSpace(string(s))) {
	case "selesai", "completed", "complete", "done":
		return world.QuestCompleted
	default:
		return world.QuestActive
	}
}

// NormalizeEventType maps an event type onto the known set, defaulting to news
func NormalizeEventType(t world.EventType) world.EventType {
	switch strings.ToLower(strings.TrimSpace(string(t))) {
	case "sejarah", "history":
		return world.EventHistory
	case "ramalan", "prophecy":
		return world.EventProphecy
	default:
		return world.EventNews
	}
}

func normalizeCharacter(c *actor.Character) {
	if c == nil {
		return
	}
	c.Name = strings.TrimSpace(c.Name)
	c.Gold = max(c.Gold, 0)
	if c.MaxHealth <= 0 {
		c.MaxHealth = max(c.Health, 1)
	}
	c.Health = min(c.Health, c.MaxHealth)
	c.Inventory = normalizeStacks(c.Inventory)
	for slot, it := range c.Equipment {
		if it == nil || !slot.IsValid() {
			delete(c.Equipment, slot)
		}
	}
}

func normalizeMarketplace(m *world.Marketplace) {
	shops := m.Shops[:0]
	for _, s := range m.Shops {
		if strings.TrimSpace(s.Name) == "" {
			continue
		}
		s.Inventory = normalizeStacks(s.Inventory)
		shops = append(shops, s)
	}
	m.Shops = shops
}

// normalizeStacks drops nameless stacks and clamps quantities and prices.
// A missing quantity means a single item.
func normalizeStacks(stacks []actor.InventoryItem) []actor.InventoryItem {
	out := stacks[:0]
	for _, st := range stacks {
		if strings.TrimSpace(st.Name) == "" {
			continue
		}
		st.Quantity = max(st.Quantity, 1)
		st.Value = max(st.Value, 0)
		out = append(out, st)
	}
	return out
}

package actor

import (
	"fmt"
	"slices"
	"strings"

	"github.com/jwebster45206/d20"
)

// Relative is a family member of a character
type Relative struct {
	Name     string `json:"name"`
	Relation string `json:"relation"`
	Status   string `json:"status,omitempty"` // e.g. "alive", "missing"
}

// Residence is a property a character owns or rents
type Residence struct {
	ID          string `json:"id,omitempty"`
	Name        string `json:"name"`
	Location    string `json:"location,omitempty"`
	Description string `json:"description,omitempty"`
}

// Character is the player character or a party companion.
//
// ID is allocator-issued and never reassigned. Race, Class and Backstory are
// narrative flavor fixed at creation. Stats is derived from BaseStats and
// Equipment; call Recompute after any equipment change.
type Character struct {
	ID        string `json:"id,omitempty"`
	Name      string `json:"name"`
	Race      string `json:"race,omitempty"`
	Class     string `json:"class,omitempty"`
	Backstory string `json:"backstory,omitempty"`
	Pronouns  string `json:"pronouns,omitempty"`
	Level     int    `json:"level,omitempty"`

	BaseStats Stats `json:"base_stats"`
	Stats     Stats `json:"stats"`
	Health    int   `json:"health"`
	MaxHealth int   `json:"max_health"`
	Gold      int   `json:"gold"`

	Inventory  []InventoryItem `json:"inventory,omitempty"`
	Equipment  Equipment       `json:"equipment,omitempty"`
	Family     []Relative      `json:"family,omitempty"`
	Residences []Residence     `json:"residences,omitempty"`
}

// Recompute replaces the derived stats with a fresh ComputeStats result
func (c *Character) Recompute() {
	c.Stats = ComputeStats(c.BaseStats, c.Equipment)
}

// IsDead reports whether the character's health has dropped to zero or below
func (c *Character) IsDead() bool {
	return c.Health <= 0
}

// Clone returns a deep copy of the character
func (c Character) Clone() Character {
	inv := make([]InventoryItem, len(c.Inventory))
	for i, stack := range c.Inventory {
		inv[i] = InventoryItem{Item: stack.Item.Clone(), Quantity: stack.Quantity}
	}
	if c.Inventory == nil {
		inv = nil
	}
	c.Inventory = inv
	c.Equipment = c.Equipment.Clone()
	c.Family = slices.Clone(c.Family)
	c.Residences = slices.Clone(c.Residences)
	return c
}

// StackIndex returns the index of the inventory stack holding itemID, or -1
func (c *Character) StackIndex(itemID string) int {
	if itemID == "" {
		return -1
	}
	return slices.IndexFunc(c.Inventory, func(s InventoryItem) bool {
		return s.ID == itemID
	})
}

// AddItem merges qty units of item into the stack with the same ID,
// or appends a new stack if none exists
func (c *Character) AddItem(item Item, qty int) {
	if qty <= 0 {
		return
	}
	if i := c.StackIndex(item.ID); i >= 0 {
		c.Inventory[i].Quantity += qty
		return
	}
	c.Inventory = append(c.Inventory, InventoryItem{Item: item.Clone(), Quantity: qty})
}

// MergeStacks folds stacks sharing an item ID into the first of them,
// summing quantities. Stacks without an ID are left alone.
func MergeStacks(stacks []InventoryItem) []InventoryItem {
	if len(stacks) == 0 {
		return stacks
	}
	out := make([]InventoryItem, 0, len(stacks))
	seen := make(map[string]int, len(stacks))
	for _, st := range stacks {
		if i, ok := seen[st.ID]; ok && st.ID != "" {
			out[i].Quantity += st.Quantity
			continue
		}
		seen[st.ID] = len(out)
		out = append(out, st)
	}
	return out
}

// RemoveOne takes a single unit of itemID out of inventory, dropping the
// stack when it reaches zero. Returns the removed item and whether one was found.
func (c *Character) RemoveOne(itemID string) (Item, bool) {
	i := c.StackIndex(itemID)
	if i < 0 {
		return Item{}, false
	}
	item := c.Inventory[i].Item.Clone()
	c.Inventory[i].Quantity--
	if c.Inventory[i].Quantity <= 0 {
		c.Inventory = slices.Delete(c.Inventory, i, i+1)
	}
	return item, true
}

// D20 builds a d20.Actor from the character's derived stats.
// The actor is a throwaway view used for rules checks; the Character remains
// the source of truth.
func (c *Character) D20() (*d20.Actor, error) {
	id := c.ID
	if id == "" {
		id = c.Name
	}
	maxHP := c.MaxHealth
	if maxHP < 1 {
		maxHP = 1
	}

	a, err := d20.NewActor(id).
		WithHP(maxHP).
		WithAC(c.Stats.ArmorClass).
		WithAttributes(c.Stats.ToAttributes()).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build actor: %w", err)
	}

	// Set current HP if different from max
	if c.Health > 0 && c.Health < maxHP {
		if err := a.SetHP(c.Health); err != nil {
			return nil, fmt.Errorf("failed to set HP: %w", err)
		}
	}
	return a, nil
}

// BuildPrompt summarizes the character for a narrator prompt.
//
// Example output:
// Aria (she/her), Level 3 Elf Ranger. HP 18/22, AC 14, gold 40.
func BuildPrompt(c *Character) string {
	if c == nil {
		return ""
	}
	sb := strings.Builder{}
	sb.WriteString(c.Name)
	if c.Pronouns != "" {
		sb.WriteString(fmt.Sprintf(" (%s)", c.Pronouns))
	}
	summaryParts := []string{}
	if c.Level > 0 {
		summaryParts = append(summaryParts, fmt.Sprintf("Level %d", c.Level))
	}
	if c.Race != "" {
		summaryParts = append(summaryParts, c.Race)
	}
	if c.Class != "" {
		summaryParts = append(summaryParts, c.Class)
	}
	if len(summaryParts) > 0 {
		sb.WriteString(", " + strings.Join(summaryParts, " "))
	}
	sb.WriteString(fmt.Sprintf(". HP %d/%d, AC %d, gold %d.", c.Health, c.MaxHealth, c.Stats.ArmorClass, c.Gold))
	return sb.String()
}

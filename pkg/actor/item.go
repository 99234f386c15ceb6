package actor

import "maps"

// ItemKind classifies items. Only Armor and Accessory items affect derived stats.
type ItemKind string

const (
	KindWeapon     ItemKind = "Weapon"
	KindArmor      ItemKind = "Armor"
	KindAccessory  ItemKind = "Accessory"
	KindConsumable ItemKind = "Consumable"
	KindMisc       ItemKind = "Misc"
)

// ItemSlot names an equipment slot. A character holds at most one item per slot.
type ItemSlot string

const (
	SlotWeapon    ItemSlot = "weapon"
	SlotArmor     ItemSlot = "armor"
	SlotAccessory ItemSlot = "accessory"
)

// Slots lists every known equipment slot in display order
var Slots = []ItemSlot{SlotWeapon, SlotArmor, SlotAccessory}

// IsValid reports whether s is a known slot
func (s ItemSlot) IsValid() bool {
	switch s {
	case SlotWeapon, SlotArmor, SlotAccessory:
		return true
	}
	return false
}

// Item is a single item definition. Identity is the allocator-issued ID.
type Item struct {
	ID          string         `json:"id,omitempty"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Kind        ItemKind       `json:"kind,omitempty"`
	Slot        ItemSlot       `json:"slot,omitempty"` // empty when the item cannot be equipped
	Value       int            `json:"value"`          // price in gold
	ArmorClass  int            `json:"armor_class,omitempty"`
	StatBonuses map[string]int `json:"stat_bonuses,omitempty"` // e.g. {"strength": 2}
}

// Equippable reports whether the item has an equipment slot
func (it *Item) Equippable() bool {
	return it != nil && it.Slot.IsValid()
}

// Clone returns a deep copy of the item
func (it Item) Clone() Item {
	it.StatBonuses = maps.Clone(it.StatBonuses)
	return it
}

// InventoryItem is a stack: one item definition and how many are carried.
// Stored stacks always have Quantity >= 1.
type InventoryItem struct {
	Item
	Quantity int `json:"quantity"`
}

// Equipment maps slots to the item occupying them
type Equipment map[ItemSlot]*Item

// Clone returns a deep copy of the equipment map
func (e Equipment) Clone() Equipment {
	if e == nil {
		return nil
	}
	out := make(Equipment, len(e))
	for slot, item := range e {
		if item == nil {
			continue
		}
		c := item.Clone()
		out[slot] = &c
	}
	return out
}

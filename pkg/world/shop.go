package world

import (
	"slices"

	"github.com/jwebster45206/saga-engine/pkg/actor"
)

// StockIndex returns the index of the stack holding itemID, or -1
func (s *Shop) StockIndex(itemID string) int {
	if itemID == "" {
		return -1
	}
	return slices.IndexFunc(s.Inventory, func(st actor.InventoryItem) bool {
		return st.ID == itemID
	})
}

// StockIndexByName returns the index of the stack whose item name matches
// under case folding, or -1
func (s *Shop) StockIndexByName(name string) int {
	return slices.IndexFunc(s.Inventory, func(st actor.InventoryItem) bool {
		return SameName(st.Name, name)
	})
}

// TakeOne removes a single unit of itemID from stock, dropping the stack when
// it reaches zero
func (s *Shop) TakeOne(itemID string) (actor.Item, bool) {
	i := s.StockIndex(itemID)
	if i < 0 || s.Inventory[i].Quantity <= 0 {
		return actor.Item{}, false
	}
	item := s.Inventory[i].Item.Clone()
	s.Inventory[i].Quantity--
	if s.Inventory[i].Quantity <= 0 {
		s.Inventory = slices.Delete(s.Inventory, i, i+1)
	}
	return item, true
}

// PutOne adds a single unit of item to stock, merging into an existing stack
// with the same name. A new stack keeps the item's id; newID is only used when
// the item has none.
func (s *Shop) PutOne(item actor.Item, newID func() string) {
	if i := s.StockIndexByName(item.Name); i >= 0 {
		s.Inventory[i].Quantity++
		return
	}
	stock := item.Clone()
	if stock.ID == "" && newID != nil {
		stock.ID = newID()
	}
	s.Inventory = append(s.Inventory, actor.InventoryItem{Item: stock, Quantity: 1})
}

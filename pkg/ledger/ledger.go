// Package ledger applies local economy and equipment changes to a world.
//
// All operations are synchronous and never call the narrator. Each one works
// on copies of the entities it touches and writes them back only when it
// succeeds, so callers never observe a half-applied trade.
package ledger

import (
	"errors"
	"fmt"

	"github.com/jwebster45206/saga-engine/pkg/actor"
	"github.com/jwebster45206/saga-engine/pkg/world"
)

var (
	ErrCharacterNotFound = errors.New("character not found")
	ErrShopNotFound      = errors.New("shop not found")
	ErrOutOfStock        = errors.New("item not in stock")
	ErrInsufficientGold  = errors.New("insufficient gold")
)

// Result describes what an operation did. A zero Result means the operation
// was a no-op.
type Result struct {
	Changed bool
	Message string
	Entry   *world.TransactionLogEntry // set for buy and sell
}

// IDSource allocates ids for stacks created in shops
type IDSource interface {
	NewID() string
}

// Equip moves one unit of itemID from inventory into its slot. Whatever
// occupied the slot goes back to inventory first. Unknown items and items
// without a slot are no-ops.
func Equip(w *world.World, characterID, itemID string) (Result, error) {
	sc := w.Character(characterID)
	if sc == nil {
		return Result{}, fmt.Errorf("%w: %s", ErrCharacterNotFound, characterID)
	}

	c := sc.Character.Clone()
	i := c.StackIndex(itemID)
	if i < 0 || !c.Inventory[i].Equippable() {
		return Result{}, nil
	}
	slot := c.Inventory[i].Slot

	if c.Equipment == nil {
		c.Equipment = make(actor.Equipment)
	}
	if prev := c.Equipment[slot]; prev != nil {
		c.AddItem(*prev, 1)
		delete(c.Equipment, slot)
	}

	item, _ := c.RemoveOne(itemID)
	c.Equipment[slot] = &item
	c.Recompute()

	sc.Character = c
	return Result{Changed: true, Message: fmt.Sprintf("%s equipped", item.Name)}, nil
}

// Unequip moves the item in slot back to inventory. An empty slot is a no-op.
func Unequip(w *world.World, characterID string, slot actor.ItemSlot) (Result, error) {
	sc := w.Character(characterID)
	if sc == nil {
		return Result{}, fmt.Errorf("%w: %s", ErrCharacterNotFound, characterID)
	}

	prev := sc.Character.Equipment[slot]
	if prev == nil {
		return Result{}, nil
	}

	c := sc.Character.Clone()
	c.AddItem(*prev, 1)
	delete(c.Equipment, slot)
	c.Recompute()

	sc.Character = c
	return Result{Changed: true, Message: fmt.Sprintf("%s unequipped", prev.Name)}, nil
}

// Buy purchases one unit of itemID from a shop. Gold is checked before any
// change is made; on ErrInsufficientGold the world is untouched.
func Buy(w *world.World, characterID, shopID, itemID string) (Result, error) {
	sc := w.Character(characterID)
	if sc == nil {
		return Result{}, fmt.Errorf("%w: %s", ErrCharacterNotFound, characterID)
	}
	shopRef := w.Shop(shopID)
	if shopRef == nil {
		return Result{}, fmt.Errorf("%w: %s", ErrShopNotFound, shopID)
	}
	si := shopRef.StockIndex(itemID)
	if si < 0 {
		return Result{}, fmt.Errorf("%w: %s", ErrOutOfStock, itemID)
	}

	price := shopRef.Inventory[si].Value
	if sc.Character.Gold < price {
		return Result{}, fmt.Errorf("%w: need %d, have %d", ErrInsufficientGold, price, sc.Character.Gold)
	}

	c := sc.Character.Clone()
	shop := cloneShop(*shopRef)

	item, _ := shop.TakeOne(itemID)
	c.Gold -= price
	c.AddItem(item, 1)

	entry := world.TransactionLogEntry{
		Turn:       sc.TurnCount,
		Type:       world.TransactionBuy,
		ItemName:   item.Name,
		Quantity:   1,
		GoldAmount: -price,
	}

	sc.Character = c
	sc.TransactionLog = append(sc.TransactionLog, entry)
	*shopRef = shop
	return Result{
		Changed: true,
		Message: fmt.Sprintf("Bought %s for %d gold", item.Name, price),
		Entry:   &entry,
	}, nil
}

// Sell sells one unit of itemID to a shop for half its value, rounded down.
// Selling an item the character does not hold is a no-op.
func Sell(w *world.World, ids IDSource, characterID, shopID, itemID string) (Result, error) {
	sc := w.Character(characterID)
	if sc == nil {
		return Result{}, fmt.Errorf("%w: %s", ErrCharacterNotFound, characterID)
	}
	shopRef := w.Shop(shopID)
	if shopRef == nil {
		return Result{}, fmt.Errorf("%w: %s", ErrShopNotFound, shopID)
	}
	if sc.Character.StackIndex(itemID) < 0 {
		return Result{}, nil
	}

	c := sc.Character.Clone()
	shop := cloneShop(*shopRef)

	item, _ := c.RemoveOne(itemID)
	proceeds := SellPrice(item.Value)
	c.Gold += proceeds

	var newID func() string
	if ids != nil {
		newID = ids.NewID
	}
	shop.PutOne(item, newID)

	entry := world.TransactionLogEntry{
		Turn:       sc.TurnCount,
		Type:       world.TransactionSell,
		ItemName:   item.Name,
		Quantity:   1,
		GoldAmount: proceeds,
	}

	sc.Character = c
	sc.TransactionLog = append(sc.TransactionLog, entry)
	*shopRef = shop
	return Result{
		Changed: true,
		Message: fmt.Sprintf("Sold %s for %d gold", item.Name, proceeds),
		Entry:   &entry,
	}, nil
}

// SellPrice is what a shop pays for an item: half its value, rounded down
func SellPrice(value int) int {
	if value <= 0 {
		return 0
	}
	return value / 2
}

func cloneShop(s world.Shop) world.Shop {
	inv := make([]actor.InventoryItem, len(s.Inventory))
	for i, st := range s.Inventory {
		inv[i] = actor.InventoryItem{Item: st.Item.Clone(), Quantity: st.Quantity}
	}
	s.Inventory = inv
	return s
}

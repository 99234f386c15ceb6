package main

import (
	"errors"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/saga-engine/internal/handlers"
	"github.com/jwebster45206/saga-engine/pkg/actor"
	"github.com/jwebster45206/saga-engine/pkg/turn"
	"github.com/jwebster45206/saga-engine/pkg/world"
)

func testView() *turn.View {
	return &turn.View{
		WorldID: "w-1",
		Character: world.SavedCharacter{
			Character: actor.Character{
				ID: "c-1", Name: "Aria", Race: "Elf", Class: "Ranger", Level: 2,
				Health: 7, MaxHealth: 10, Gold: 12,
				Inventory: []actor.InventoryItem{{Item: actor.Item{ID: "rope", Name: "Rope"}, Quantity: 2}},
			},
			Scene:     world.Scene{Location: "Harbor"},
			TurnCount: 3,
			StoryHistory: []world.StoryEntry{
				{Type: world.EntryNarrative, Content: "Fog rolls in."},
				{Type: world.EntryAction, Content: "look around"},
				{Type: world.EntryNarrative, Content: "Bram: Who goes there?"},
			},
		},
		Quests: []world.Quest{
			{Title: "Find the bell", Status: world.QuestActive},
			{Title: "Old news", Status: world.QuestCompleted},
		},
		Shops: []world.Shop{{ID: "s-1", Name: "Chandlery", Inventory: []actor.InventoryItem{
			{Item: actor.Item{ID: "lamp", Name: "Oil Lamp", Value: 4}, Quantity: 1},
		}}},
	}
}

func TestWriteMetadata(t *testing.T) {
	meta := writeMetadata(testView(), []string{"Bought Rope for 2 gold"})

	assert.Contains(t, meta, "ARIA")
	assert.Contains(t, meta, "HP:   7/10")
	assert.Contains(t, meta, "Gold: 12")
	assert.Contains(t, meta, "Harbor")
	assert.Contains(t, meta, "Rope x2")
	assert.Contains(t, meta, "Find the bell")
	assert.NotContains(t, meta, "Old news", "completed quests are hidden")
	assert.Contains(t, meta, "Bought Rope for 2 gold")
}

func TestLastNarrative(t *testing.T) {
	assert.Equal(t, "Bram: Who goes there?", lastNarrative(testView()))
	assert.Empty(t, lastNarrative(nil))
}

func TestFinders(t *testing.T) {
	v := testView()

	shop, item, ok := findInShops(v.Shops, "oil lamp")
	require.True(t, ok)
	assert.Equal(t, "s-1", shop.ID)
	assert.Equal(t, "lamp", item.ID)

	_, _, ok = findInShops(v.Shops, "cannon")
	assert.False(t, ok)

	stack, ok := findStack(v.Character.Character.Inventory, "ROPE")
	require.True(t, ok)
	assert.Equal(t, "rope", stack.ID)

	assert.Nil(t, firstShop(nil))
	assert.Equal(t, "Chandlery", firstShop(v.Shops).Name)
}

func TestRenderEntry(t *testing.T) {
	action := renderEntry(world.StoryEntry{Type: world.EntryAction, Content: "open the door"}, 40)
	assert.Contains(t, action, "You: ")
	assert.Contains(t, action, "open the door")

	dice := renderEntry(world.StoryEntry{Type: world.EntryDiceRoll, Content: "Stealth check: success"}, 40)
	assert.Contains(t, dice, "Stealth check: success")

	narrative := renderEntry(world.StoryEntry{Type: world.EntryNarrative, Content: "Rain falls."}, 40)
	assert.Contains(t, narrative, AgentName+": ")
	assert.Contains(t, narrative, "Rain falls.")
}

func TestConsoleUI_Updates(t *testing.T) {
	m := NewConsoleUI(&apiClient{}, testView())

	model, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m = model.(ConsoleUI)
	require.True(t, m.ready)

	model, _ = m.Update(ledgerResultMsg{resp: &handlers.LedgerResponse{
		LedgerOutcome: turn.LedgerOutcome{Changed: true, Message: "Bought Oil Lamp for 4 gold"},
		View:          *testView(),
	}})
	m = model.(ConsoleUI)
	assert.Equal(t, []string{"Bought Oil Lamp for 4 gold"}, m.notices)

	model, _ = m.Update(turnResultMsg{err: errors.New("narrator unavailable")})
	m = model.(ConsoleUI)
	assert.False(t, m.loading)
	assert.EqualError(t, m.err, "narrator unavailable")

	for i := 0; i < maxNotices+2; i++ {
		m.notice("n")
	}
	assert.Len(t, m.notices, maxNotices)
}

func TestHandleCommand_Validation(t *testing.T) {
	m := NewConsoleUI(&apiClient{}, testView())

	model, cmd := m.handleCommand("/buy cannon")
	assert.Nil(t, cmd)
	assert.ErrorContains(t, model.(ConsoleUI).err, "no shop sells")

	model, _ = m.handleCommand("/unequip tail")
	assert.ErrorContains(t, model.(ConsoleUI).err, "unknown slot")

	model, _ = m.handleCommand("/dance")
	assert.ErrorContains(t, model.(ConsoleUI).err, "unknown command")

	model, cmd = m.handleCommand("/equip rope")
	assert.NotNil(t, cmd, "a ledger call is queued")
	assert.True(t, model.(ConsoleUI).loading)
}

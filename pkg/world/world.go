package world

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/jwebster45206/saga-engine/pkg/actor"
)

// QuestStatus is the lifecycle state of a quest
type QuestStatus string

const (
	QuestActive    QuestStatus = "Aktif"
	QuestCompleted QuestStatus = "Selesai"
)

// Quest is tracked per world. Incoming narrator updates are matched to
// existing quests by case-folded title, so titles are unique under folding.
type Quest struct {
	ID          string      `json:"id"`
	Title       string      `json:"title"`
	Description string      `json:"description,omitempty"`
	Status      QuestStatus `json:"status"`
}

// EventType classifies world events
type EventType string

const (
	EventHistory  EventType = "Sejarah"
	EventNews     EventType = "Berita"
	EventProphecy EventType = "Ramalan"
)

// WorldEvent is an append-only ledger entry. Turn records when it was
// observed and is never altered afterwards.
type WorldEvent struct {
	ID          string    `json:"id"`
	Turn        int       `json:"turn"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Type        EventType `json:"type"`
}

// Shop sells and buys items. Inventory stacks follow the same rules as
// character inventories.
type Shop struct {
	ID          string                `json:"id"`
	Name        string                `json:"name"`
	Description string                `json:"description,omitempty"`
	Inventory   []actor.InventoryItem `json:"inventory,omitempty"`
}

// Marketplace groups the shops of a world
type Marketplace struct {
	Shops []Shop `json:"shops,omitempty"`
}

// Scene is the player's current surroundings. It has no identity and is
// replaced wholesale every turn.
type Scene struct {
	Location    string   `json:"location"`
	Description string   `json:"description,omitempty"`
	NPCs        []string `json:"npcs,omitempty"`
	Exits       []string `json:"exits,omitempty"`
	Mood        string   `json:"mood,omitempty"`
}

// StoryEntryType distinguishes entries in a character's story history
type StoryEntryType string

const (
	EntryAction      StoryEntryType = "action"
	EntryNarrative   StoryEntryType = "narrative"
	EntryDiceRoll    StoryEntryType = "dice_roll"
	EntryOOCQuery    StoryEntryType = "ooc_query"
	EntryOOCResponse StoryEntryType = "ooc_response"
	EntrySystem      StoryEntryType = "system"
)

// StoryEntry is one line of story history. Entries are immutable once appended.
type StoryEntry struct {
	ID        string         `json:"id"`
	Type      StoryEntryType `json:"type"`
	Content   string         `json:"content"`
	Turn      int            `json:"turn"`
	Timestamp time.Time      `json:"timestamp"`
}

// TransactionType is buy or sell
type TransactionType string

const (
	TransactionBuy  TransactionType = "buy"
	TransactionSell TransactionType = "sell"
)

// TransactionLogEntry records a marketplace trade. GoldAmount is signed:
// negative when gold left the character, positive when it came in.
type TransactionLogEntry struct {
	Turn       int             `json:"turn"`
	Type       TransactionType `json:"type"`
	ItemName   string          `json:"item_name"`
	Quantity   int             `json:"quantity"`
	GoldAmount int             `json:"gold_amount"`
}

// SavedCharacter is one play-through of a character inside a world
type SavedCharacter struct {
	Character      actor.Character       `json:"character"`
	Party          []actor.Character     `json:"party,omitempty"`
	Scene          Scene                 `json:"scene"`
	StoryHistory   []StoryEntry          `json:"story_history,omitempty"`
	Notes          string                `json:"notes,omitempty"`
	TurnCount      int                   `json:"turn_count"`
	LastPlayed     time.Time             `json:"last_played"`
	TransactionLog []TransactionLogEntry `json:"transaction_log,omitempty"`
}

// ID returns the id of the wrapped character
func (sc *SavedCharacter) ID() string {
	return sc.Character.ID
}

// World is the unit of persistence. Every change is committed as a full
// replacement snapshot.
type World struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	Description    string           `json:"description,omitempty"`
	Places         []string         `json:"places,omitempty"` // notable places from world generation
	LongTermMemory []string         `json:"long_term_memory,omitempty"`
	Quests         []Quest          `json:"quests,omitempty"`
	WorldEvents    []WorldEvent     `json:"world_events,omitempty"`
	Characters     []SavedCharacter `json:"characters,omitempty"`
	Marketplace    Marketplace      `json:"marketplace"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// DeepCopy creates a fully independent copy of the world
func (w *World) DeepCopy() (*World, error) {
	if w == nil {
		return nil, fmt.Errorf("world is nil")
	}
	data, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal world: %w", err)
	}
	var out World
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("failed to unmarshal world: %w", err)
	}
	return &out, nil
}

// Character returns the saved character with the given id, or nil
func (w *World) Character(id string) *SavedCharacter {
	for i := range w.Characters {
		if w.Characters[i].Character.ID == id {
			return &w.Characters[i]
		}
	}
	return nil
}

// PutCharacter replaces the saved character with the same id, or appends it
func (w *World) PutCharacter(sc SavedCharacter) {
	for i := range w.Characters {
		if w.Characters[i].Character.ID == sc.Character.ID {
			w.Characters[i] = sc
			return
		}
	}
	w.Characters = append(w.Characters, sc)
}

// RemoveCharacter drops the saved character with the given id.
// Returns false if it was not present.
func (w *World) RemoveCharacter(id string) bool {
	i := slices.IndexFunc(w.Characters, func(sc SavedCharacter) bool {
		return sc.Character.ID == id
	})
	if i < 0 {
		return false
	}
	w.Characters = slices.Delete(w.Characters, i, i+1)
	return true
}

// Shop returns the shop with the given id, or nil
func (w *World) Shop(id string) *Shop {
	for i := range w.Marketplace.Shops {
		if w.Marketplace.Shops[i].ID == id {
			return &w.Marketplace.Shops[i]
		}
	}
	return nil
}

// QuestIndex returns the index of the quest whose title matches under case
// folding, or -1
func (w *World) QuestIndex(title string) int {
	return slices.IndexFunc(w.Quests, func(q Quest) bool {
		return SameName(q.Title, title)
	})
}

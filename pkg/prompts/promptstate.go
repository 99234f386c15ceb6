package prompts

import (
	"github.com/jwebster45206/saga-engine/pkg/actor"
	"github.com/jwebster45206/saga-engine/pkg/narrator"
	"github.com/jwebster45206/saga-engine/pkg/world"
)

// PromptState is the game state as shown to the narrator for a scene turn.
// Story history and the action itself travel as chat messages instead.
type PromptState struct {
	Character           actor.Character             `json:"character"`
	Party               []actor.Character           `json:"party,omitempty"`
	Scene               world.Scene                 `json:"scene"`
	Notes               string                      `json:"notes,omitempty"`
	Quests              []PromptQuest               `json:"quests,omitempty"`
	WorldEvents         []PromptEvent               `json:"world_events,omitempty"`
	TurnCount           int                         `json:"turn_count"`
	PendingTransactions []world.TransactionLogEntry `json:"pending_transactions,omitempty"`
}

// PromptQuest omits the id, which the narrator is not asked to echo
type PromptQuest struct {
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Status      world.QuestStatus `json:"status"`
}

type PromptEvent struct {
	Turn        int             `json:"turn"`
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Type        world.EventType `json:"type"`
}

// ToPromptState strips ids from the request so the narrator never sees them
func ToPromptState(req narrator.SceneRequest) *PromptState {
	ps := &PromptState{
		Character:           stripIDs(req.Character),
		Scene:               req.Scene,
		Notes:               req.Notes,
		TurnCount:           req.TurnCount,
		PendingTransactions: req.PendingTransactions,
	}
	for _, p := range req.Party {
		ps.Party = append(ps.Party, stripIDs(p))
	}
	for _, q := range req.Quests {
		ps.Quests = append(ps.Quests, PromptQuest{Title: q.Title, Description: q.Description, Status: q.Status})
	}
	for _, e := range req.WorldEvents {
		ps.WorldEvents = append(ps.WorldEvents, PromptEvent{Turn: e.Turn, Title: e.Title, Description: e.Description, Type: e.Type})
	}
	return ps
}

func stripIDs(c actor.Character) actor.Character {
	c = c.Clone()
	c.ID = ""
	for i := range c.Inventory {
		c.Inventory[i].ID = ""
	}
	for _, it := range c.Equipment {
		it.ID = ""
	}
	for i := range c.Residences {
		c.Residences[i].ID = ""
	}
	return c
}

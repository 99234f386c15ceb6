// Package narrator defines the contract between the game engine and the
// language-model backend that narrates it.
//
// Responses never carry ids for existing entities: backends are not trusted to
// echo them back, so the caller re-attaches or re-derives identity.
package narrator

import (
	"context"
	"errors"

	"github.com/jwebster45206/saga-engine/pkg/actor"
	"github.com/jwebster45206/saga-engine/pkg/world"
)

var (
	// ErrUnavailable covers transport failures, timeouts and exhausted credentials
	ErrUnavailable = errors.New("narrator unavailable")
	// ErrMalformedResponse means the payload could not be decoded or failed validation
	ErrMalformedResponse = errors.New("narrator returned a malformed response")
	// ErrQuotaExhausted is returned by a backend when the current credential
	// hit a quota or rate limit. Callers rotate credentials before giving up.
	ErrQuotaExhausted = errors.New("narrator quota exhausted")
)

// Narrator is implemented by every backend binding
type Narrator interface {
	GenerateWorld(ctx context.Context, req WorldRequest) (*WorldResponse, error)
	GenerateCharacter(ctx context.Context, req CharacterRequest) (*CharacterResponse, error)
	GenerateNextScene(ctx context.Context, req SceneRequest) (*SceneResponse, error)
	AskOOCQuestion(ctx context.Context, req OOCRequest) (string, error)
}

type WorldRequest struct {
	Concept  string `json:"concept"`
	Factions string `json:"factions,omitempty"`
	Conflict string `json:"conflict,omitempty"`
}

type WorldResponse struct {
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Marketplace *world.Marketplace `json:"marketplace,omitempty"`
	WorldMap    []string           `json:"world_map,omitempty"` // notable places, layout is a presentation concern
}

type CharacterRequest struct {
	Concept      string `json:"concept"`
	Background   string `json:"background,omitempty"`
	WorldContext string `json:"world_context,omitempty"`
}

type CharacterResponse struct {
	Character    actor.Character `json:"character"`
	InitialScene world.Scene     `json:"initial_scene"`
	IntroStory   string          `json:"intro_story"`
}

// SceneRequest carries everything the narrator needs to resolve one turn
type SceneRequest struct {
	Character           actor.Character             `json:"character"`
	Party               []actor.Character           `json:"party,omitempty"`
	Scene               world.Scene                 `json:"scene"`
	History             []world.StoryEntry          `json:"history,omitempty"`
	LongTermMemory      []string                    `json:"long_term_memory,omitempty"`
	Notes               string                      `json:"notes,omitempty"`
	Quests              []world.Quest               `json:"quests,omitempty"`
	WorldEvents         []world.WorldEvent          `json:"world_events,omitempty"`
	TurnCount           int                         `json:"turn_count"`
	Action              string                      `json:"action"`
	PendingTransactions []world.TransactionLogEntry `json:"pending_transactions,omitempty"`
}

// SkillCheck is the result of a roll the narrator decided the action needed
type SkillCheck struct {
	Skill      string `json:"skill"`
	Attribute  string `json:"attribute,omitempty"`
	Roll       int    `json:"roll"`
	Difficulty int    `json:"difficulty,omitempty"`
	Success    bool   `json:"success"`
}

type QuestUpdate struct {
	Title       string            `json:"title"`
	Description string            `json:"description,omitempty"`
	Status      world.QuestStatus `json:"status"`
}

type WorldEventUpdate struct {
	Title       string          `json:"title"`
	Description string          `json:"description,omitempty"`
	Type        world.EventType `json:"type"`
}

// SceneResponse is the structured result of one narrated turn
type SceneResponse struct {
	Narrative         string             `json:"narrative"`
	UpdatedCharacter  *actor.Character   `json:"updated_character"`
	UpdatedParty      []actor.Character  `json:"updated_party,omitempty"`
	UpdatedScene      *world.Scene       `json:"updated_scene"`
	SkillCheck        *SkillCheck        `json:"skill_check,omitempty"`
	MemorySummary     string             `json:"memory_summary,omitempty"`
	QuestUpdates      []QuestUpdate      `json:"quest_updates,omitempty"`
	WorldEventUpdates []WorldEventUpdate `json:"world_event_updates,omitempty"`
	MarketplaceUpdate *world.Marketplace `json:"marketplace_update,omitempty"`
}

type OOCRequest struct {
	History        []world.StoryEntry `json:"history,omitempty"`
	LongTermMemory []string           `json:"long_term_memory,omitempty"`
	Question       string             `json:"question"`
}

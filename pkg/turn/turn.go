// Package turn resolves player actions against the narrator and reconciles
// its responses into authoritative world state.
package turn

import (
	"context"
	"errors"
	"strings"

	"github.com/jwebster45206/saga-engine/pkg/narrator"
	"github.com/jwebster45206/saga-engine/pkg/world"
)

var (
	// ErrBusy is returned while a narrator request is in flight for the session
	ErrBusy = errors.New("a turn is already in progress")
	// ErrCharacterDead is returned for any action on a character that died
	ErrCharacterDead = errors.New("character is dead")
)

// OOCPrefix marks an action as an out-of-character question
const OOCPrefix = "ooc:"

// State is the turn state machine position of a session
type State int

const (
	StateIdle State = iota
	StateAwaitingNarrator
	StateReconciling
	StateFailed
	StateDead
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingNarrator:
		return "awaiting_narrator"
	case StateReconciling:
		return "reconciling"
	case StateFailed:
		return "failed"
	case StateDead:
		return "dead"
	default:
		return "unknown"
	}
}

// MarshalText renders the state name in JSON
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Notification kinds
const (
	KindQuestNew           = "quest_new"
	KindQuestUpdated       = "quest_updated"
	KindQuestCompleted     = "quest_completed"
	KindPersistenceWarning = "persistence_warning"
	KindCharacterDied      = "character_died"
	KindError              = "error"
	KindEquip              = "equip"
	KindUnequip            = "unequip"
	KindBuy                = "buy"
	KindSell               = "sell"
)

// Notification is a user-facing message produced by the engine
type Notification struct {
	Kind        string         `json:"kind"`
	WorldID     string         `json:"world_id"`
	CharacterID string         `json:"character_id,omitempty"`
	Message     string         `json:"message"`
	Data        map[string]any `json:"data,omitempty"`
}

// Notifier delivers notifications. Implementations must not block for long;
// delivery failures are theirs to log.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

// NopNotifier discards notifications
type NopNotifier struct{}

func (NopNotifier) Notify(context.Context, Notification) {}

// Outcome describes a completed turn or question
type Outcome struct {
	// OOC is set for out-of-character questions; only Answer is filled then
	OOC    bool   `json:"ooc,omitempty"`
	Answer string `json:"answer,omitempty"`

	Narrative     string               `json:"narrative,omitempty"`
	SkillCheck    *narrator.SkillCheck `json:"skill_check,omitempty"`
	Entries       []world.StoryEntry   `json:"entries"`
	Notifications []Notification       `json:"notifications,omitempty"`
	TurnCount     int                  `json:"turn_count"`
	Died          bool                 `json:"died,omitempty"`
	// Warning is set when the turn succeeded but could not be persisted
	Warning string `json:"warning,omitempty"`
}

// LedgerOutcome is the result of a local inventory or marketplace operation
type LedgerOutcome struct {
	Changed bool   `json:"changed"`
	Message string `json:"message,omitempty"`
	Warning string `json:"warning,omitempty"`
}

// View is a read-only snapshot of a session. While a turn is in flight it
// shows the staged state, including the optimistic action entry.
type View struct {
	WorldID   string               `json:"world_id"`
	State     State                `json:"state"`
	Busy      bool                 `json:"busy"`
	Character world.SavedCharacter `json:"character"`
	Quests    []world.Quest        `json:"quests,omitempty"`
	Events    []world.WorldEvent   `json:"world_events,omitempty"`
	Memory    []string             `json:"long_term_memory,omitempty"`
	Shops     []world.Shop         `json:"shops,omitempty"`
}

// OOCQuestion reports whether action is an out-of-character question and
// returns the question text without the prefix.
func OOCQuestion(action string) (string, bool) {
	s := strings.TrimSpace(action)
	if len(s) < len(OOCPrefix) || !strings.EqualFold(s[:len(OOCPrefix)], OOCPrefix) {
		return "", false
	}
	return strings.TrimSpace(s[len(OOCPrefix):]), true
}

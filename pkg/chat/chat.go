package chat

import (
	"fmt"
	"strings"
)

// MaxMessageLength caps player actions and out-of-character questions
const MaxMessageLength = 2000

// maxSpeakerLength is the longest text before a colon treated as a speaker name
const maxSpeakerLength = 50

const (
	ChatRoleUser   = "user"      // Player
	ChatRoleAgent  = "assistant" // Narrator
	ChatRoleSystem = "system"    // Instructions and game state
)

// ChatMessage is a single message in a conversation with a language model
type ChatMessage struct {
	Role    string `json:"role"` // "user", "assistant", "system"
	Content string `json:"content"`
}

// ActionRequest is a player action submitted to the api.
// Actions prefixed with "ooc:" are out-of-character questions.
type ActionRequest struct {
	Action string `json:"action"`
}

func (ar *ActionRequest) Validate() error {
	if strings.TrimSpace(ar.Action) == "" {
		return fmt.Errorf("action cannot be empty")
	}
	if len(ar.Action) > MaxMessageLength {
		return fmt.Errorf("action exceeds maximum length of %d characters", MaxMessageLength)
	}
	return nil
}

// FormatWithPCName prefixes a message with the player character's name
// unless it already starts with a speaker label.
func FormatWithPCName(message, pcName string) string {
	if i := strings.Index(message, ":"); i > 0 && i <= maxSpeakerLength {
		return message
	}
	return pcName + ": " + message
}

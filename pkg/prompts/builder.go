package prompts

import (
	"encoding/json"
	"fmt"

	"github.com/jwebster45206/saga-engine/pkg/chat"
	"github.com/jwebster45206/saga-engine/pkg/narrator"
	"github.com/jwebster45206/saga-engine/pkg/world"
)

// DefaultHistoryLimit is the number of story entries sent with each request
const DefaultHistoryLimit = 20

// Builder constructs chat messages for LLM interaction using a fluent interface.
type Builder struct {
	system       string
	state        any
	memory       []string
	history      []world.StoryEntry
	includeOOC   bool
	pcName       string
	userMessage  string
	trailer      string
	historyLimit int
	messages     []chat.ChatMessage
}

// New creates a new prompt builder with default settings.
func New() *Builder {
	return &Builder{
		historyLimit: DefaultHistoryLimit,
		messages:     make([]chat.ChatMessage, 0),
	}
}

// WithSystemPrompt sets the leading system message.
func (b *Builder) WithSystemPrompt(s string) *Builder {
	b.system = s
	return b
}

// WithState sets a value rendered as a JSON game state block.
func (b *Builder) WithState(v any) *Builder {
	b.state = v
	return b
}

// WithMemory sets the long-term memory summaries.
func (b *Builder) WithMemory(memory []string) *Builder {
	b.memory = memory
	return b
}

// WithHistory sets the story history. Out-of-character entries are only
// included when includeOOC is set.
func (b *Builder) WithHistory(history []world.StoryEntry, pcName string, includeOOC bool) *Builder {
	b.history = history
	b.pcName = pcName
	b.includeOOC = includeOOC
	return b
}

// WithUserMessage sets the final player message.
func (b *Builder) WithUserMessage(message string) *Builder {
	b.userMessage = message
	return b
}

// WithTrailer sets a closing system message, typically the response schema.
func (b *Builder) WithTrailer(s string) *Builder {
	b.trailer = s
	return b
}

// WithHistoryLimit sets the history window size.
func (b *Builder) WithHistoryLimit(limit int) *Builder {
	b.historyLimit = limit
	return b
}

// Build constructs and returns the final message array for LLM consumption.
func (b *Builder) Build() ([]chat.ChatMessage, error) {
	if b.system == "" {
		return nil, fmt.Errorf("system prompt is required")
	}
	b.messages = make([]chat.ChatMessage, 0)

	// 1. System prompt with memory and state
	sys := b.system
	if mem := BuildMemoryPrompt(b.memory); mem != "" {
		sys += "\n\n" + mem
	}
	if b.state != nil {
		data, err := json.MarshalIndent(b.state, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("error marshalling prompt state: %w", err)
		}
		sys += "\n\n" + fmt.Sprintf(StatePromptTemplate, data)
	}
	b.add(chat.ChatRoleSystem, sys)

	// 2. Windowed history
	b.addHistory()

	// 3. User message
	if b.userMessage != "" {
		b.add(chat.ChatRoleUser, b.userMessage)
	}

	// 4. Response format reminder
	if b.trailer != "" {
		b.add(chat.ChatRoleSystem, b.trailer)
	}
	return b.messages, nil
}

func (b *Builder) add(role, content string) {
	b.messages = append(b.messages, chat.ChatMessage{Role: role, Content: content})
}

func (b *Builder) addHistory() {
	entries := make([]world.StoryEntry, 0, len(b.history))
	for _, e := range b.history {
		if !b.includeOOC && (e.Type == world.EntryOOCQuery || e.Type == world.EntryOOCResponse) {
			continue
		}
		entries = append(entries, e)
	}
	if b.historyLimit > 0 && len(entries) > b.historyLimit {
		entries = entries[len(entries)-b.historyLimit:]
	}
	for _, e := range entries {
		switch e.Type {
		case world.EntryAction:
			content := e.Content
			if b.pcName != "" {
				content = chat.FormatWithPCName(content, b.pcName)
			}
			b.add(chat.ChatRoleUser, content)
		case world.EntryOOCQuery:
			b.add(chat.ChatRoleUser, "(out of character) "+e.Content)
		case world.EntryNarrative, world.EntryOOCResponse:
			b.add(chat.ChatRoleAgent, e.Content)
		default:
			b.add(chat.ChatRoleSystem, e.Content)
		}
	}
}

// ForScene builds the messages for one story turn.
func ForScene(req narrator.SceneRequest, historyLimit int) ([]chat.ChatMessage, error) {
	action := req.Action
	if req.Character.Name != "" {
		action = chat.FormatWithPCName(action, req.Character.Name)
	}
	return New().
		WithSystemPrompt(BuildSystemPrompt(&req.Character)).
		WithMemory(req.LongTermMemory).
		WithState(ToPromptState(req)).
		WithHistory(req.History, req.Character.Name, false).
		WithHistoryLimit(historyLimit).
		WithUserMessage(action).
		WithTrailer(SceneResponseSchema).
		Build()
}

// ForWorld builds the messages for world generation.
func ForWorld(req narrator.WorldRequest) ([]chat.ChatMessage, error) {
	msg := "Concept: " + req.Concept
	if req.Factions != "" {
		msg += "\nFactions: " + req.Factions
	}
	if req.Conflict != "" {
		msg += "\nCentral conflict: " + req.Conflict
	}
	return New().
		WithSystemPrompt(WorldSystemPrompt).
		WithUserMessage(msg).
		Build()
}

// ForCharacter builds the messages for character generation.
func ForCharacter(req narrator.CharacterRequest) ([]chat.ChatMessage, error) {
	msg := "Concept: " + req.Concept
	if req.Background != "" {
		msg += "\nBackground: " + req.Background
	}
	worldContext := req.WorldContext
	if worldContext == "" {
		worldContext = "An original fantasy setting."
	}
	return New().
		WithSystemPrompt(fmt.Sprintf(CharacterSystemPrompt, worldContext)).
		WithUserMessage(msg).
		Build()
}

// ForQuestion builds the messages for an out-of-character question.
func ForQuestion(req narrator.OOCRequest, historyLimit int) ([]chat.ChatMessage, error) {
	return New().
		WithSystemPrompt(OOCSystemPrompt).
		WithMemory(req.LongTermMemory).
		WithHistory(req.History, "", true).
		WithHistoryLimit(historyLimit).
		WithUserMessage(req.Question).
		Build()
}

package prompts

import (
	"strings"
	"testing"

	"github.com/jwebster45206/saga-engine/pkg/actor"
	"github.com/jwebster45206/saga-engine/pkg/chat"
	"github.com/jwebster45206/saga-engine/pkg/narrator"
	"github.com/jwebster45206/saga-engine/pkg/world"
)

func TestNew(t *testing.T) {
	builder := New()
	if builder == nil {
		t.Fatal("Expected builder to be created, got nil")
	}
	if builder.historyLimit != DefaultHistoryLimit {
		t.Errorf("Expected default history limit of %d, got %d", DefaultHistoryLimit, builder.historyLimit)
	}
	if builder.messages == nil {
		t.Error("Expected messages slice to be initialized")
	}
}

func TestBuilder_Build_RequiresSystemPrompt(t *testing.T) {
	_, err := New().WithUserMessage("hello").Build()
	if err == nil {
		t.Fatal("Expected error when system prompt is missing")
	}
}

func TestBuilder_Build_Order(t *testing.T) {
	history := []world.StoryEntry{
		{Type: world.EntryAction, Content: "I open the door"},
		{Type: world.EntryDiceRoll, Content: "Strength check: 14 (success)"},
		{Type: world.EntryNarrative, Content: "The door swings open."},
		{Type: world.EntryOOCQuery, Content: "what is my AC?"},
		{Type: world.EntryOOCResponse, Content: "Your AC is 12."},
	}
	msgs, err := New().
		WithSystemPrompt("SYSTEM").
		WithMemory([]string{"Met the ferryman."}).
		WithState(map[string]int{"turn_count": 3}).
		WithHistory(history, "Aria", false).
		WithUserMessage("Aria: I step inside").
		WithTrailer("SCHEMA").
		Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}

	wantRoles := []string{
		chat.ChatRoleSystem, // system + memory + state
		chat.ChatRoleUser,   // action
		chat.ChatRoleSystem, // dice roll
		chat.ChatRoleAgent,  // narrative
		chat.ChatRoleUser,   // new action
		chat.ChatRoleSystem, // trailer
	}
	if len(msgs) != len(wantRoles) {
		t.Fatalf("Expected %d messages, got %d: %+v", len(wantRoles), len(msgs), msgs)
	}
	for i, role := range wantRoles {
		if msgs[i].Role != role {
			t.Errorf("message %d: expected role %q, got %q", i, role, msgs[i].Role)
		}
	}
	sys := msgs[0].Content
	if !strings.HasPrefix(sys, "SYSTEM") {
		t.Errorf("system prompt should lead, got %q", sys)
	}
	if !strings.Contains(sys, "- Met the ferryman.") {
		t.Error("system prompt should include long-term memory")
	}
	if !strings.Contains(sys, `"turn_count": 3`) {
		t.Error("system prompt should include the JSON state")
	}
	if msgs[1].Content != "Aria: I open the door" {
		t.Errorf("action should be prefixed with the PC name, got %q", msgs[1].Content)
	}
	if msgs[5].Content != "SCHEMA" {
		t.Errorf("trailer should be last, got %q", msgs[5].Content)
	}
}

func TestBuilder_HistoryWindow(t *testing.T) {
	var history []world.StoryEntry
	for i := 0; i < 30; i++ {
		history = append(history, world.StoryEntry{Type: world.EntryNarrative, Content: strings.Repeat("x", i+1)})
	}
	msgs, err := New().WithSystemPrompt("S").WithHistory(history, "", false).WithHistoryLimit(5).Build()
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	if len(msgs) != 6 {
		t.Fatalf("Expected system + 5 history messages, got %d", len(msgs))
	}
	if got := len(msgs[5].Content); got != 30 {
		t.Errorf("Expected newest entry last, got length %d", got)
	}
}

func TestForScene_StripsIDs(t *testing.T) {
	sword := actor.Item{ID: "item-1", Name: "Sword", Slot: actor.SlotWeapon, Kind: actor.KindWeapon}
	req := narrator.SceneRequest{
		Character: actor.Character{
			ID:        "char-1",
			Name:      "Aria",
			Inventory: []actor.InventoryItem{{Item: actor.Item{ID: "item-2", Name: "Rope"}, Quantity: 1}},
			Equipment: actor.Equipment{actor.SlotWeapon: &sword},
		},
		Quests:      []world.Quest{{ID: "quest-1", Title: "Find the Relic", Status: world.QuestActive}},
		WorldEvents: []world.WorldEvent{{ID: "event-1", Turn: 2, Title: "Eclipse", Type: world.EventProphecy}},
		Action:      "I climb the rope",
		TurnCount:   3,
	}
	msgs, err := ForScene(req, DefaultHistoryLimit)
	if err != nil {
		t.Fatalf("ForScene() error = %v", err)
	}
	sys := msgs[0].Content
	for _, id := range []string{"char-1", "item-1", "item-2", "quest-1", "event-1"} {
		if strings.Contains(sys, id) {
			t.Errorf("prompt leaked id %q", id)
		}
	}
	if !strings.Contains(sys, "Find the Relic") || !strings.Contains(sys, "Eclipse") {
		t.Error("prompt should include quests and world events")
	}
	if msgs[len(msgs)-2].Content != "Aria: I climb the rope" {
		t.Errorf("unexpected action message %q", msgs[len(msgs)-2].Content)
	}
	if msgs[len(msgs)-1].Content != SceneResponseSchema {
		t.Error("scene prompt should end with the response schema")
	}
	// the request itself is left untouched
	if req.Character.ID != "char-1" || sword.ID != "item-1" {
		t.Error("ForScene must not mutate its input")
	}
}

func TestForQuestion_IncludesOOC(t *testing.T) {
	req := narrator.OOCRequest{
		History: []world.StoryEntry{
			{Type: world.EntryOOCQuery, Content: "who is the ferryman?"},
			{Type: world.EntryOOCResponse, Content: "An NPC you met."},
		},
		Question: "where am I?",
	}
	msgs, err := ForQuestion(req, DefaultHistoryLimit)
	if err != nil {
		t.Fatalf("ForQuestion() error = %v", err)
	}
	if len(msgs) != 4 {
		t.Fatalf("Expected 4 messages, got %d", len(msgs))
	}
	if msgs[0].Content != OOCSystemPrompt {
		t.Error("expected OOC system prompt without memory")
	}
	if msgs[3].Content != "where am I?" {
		t.Errorf("unexpected question message %q", msgs[3].Content)
	}
}

func TestForWorldAndCharacter(t *testing.T) {
	msgs, err := ForWorld(narrator.WorldRequest{Concept: "archipelago", Factions: "guilds", Conflict: "drought"})
	if err != nil {
		t.Fatalf("ForWorld() error = %v", err)
	}
	if !strings.Contains(msgs[1].Content, "Factions: guilds") || !strings.Contains(msgs[1].Content, "Central conflict: drought") {
		t.Errorf("unexpected world request %q", msgs[1].Content)
	}

	msgs, err = ForCharacter(narrator.CharacterRequest{Concept: "smuggler", WorldContext: "Nusantara"})
	if err != nil {
		t.Fatalf("ForCharacter() error = %v", err)
	}
	if !strings.Contains(msgs[0].Content, "Nusantara") {
		t.Error("character prompt should include world context")
	}
}

func TestBuildMemoryPrompt(t *testing.T) {
	if got := BuildMemoryPrompt(nil); got != "" {
		t.Errorf("expected empty prompt, got %q", got)
	}
	got := BuildMemoryPrompt([]string{"a", "b"})
	if got != "What has happened so far:\n- a\n- b" {
		t.Errorf("unexpected memory prompt %q", got)
	}
}

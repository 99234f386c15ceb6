package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/jwebster45206/saga-engine/pkg/actor"
	"github.com/jwebster45206/saga-engine/pkg/narrator"
	"github.com/jwebster45206/saga-engine/pkg/world"
)

// MockNarrator is a scripted narrator for tests and offline play.
// Without a func set, each method returns a small deterministic response
// built from the request.
type MockNarrator struct {
	GenerateWorldFunc     func(ctx context.Context, req narrator.WorldRequest) (*narrator.WorldResponse, error)
	GenerateCharacterFunc func(ctx context.Context, req narrator.CharacterRequest) (*narrator.CharacterResponse, error)
	GenerateNextSceneFunc func(ctx context.Context, req narrator.SceneRequest) (*narrator.SceneResponse, error)
	AskOOCQuestionFunc    func(ctx context.Context, req narrator.OOCRequest) (string, error)

	// Track calls for testing
	WorldCalls     []narrator.WorldRequest
	CharacterCalls []narrator.CharacterRequest
	SceneCalls     []narrator.SceneRequest
	QuestionCalls  []narrator.OOCRequest

	mu sync.Mutex // protects all fields above
}

var _ narrator.Narrator = (*MockNarrator)(nil)

func NewMockNarrator() *MockNarrator {
	return &MockNarrator{}
}

func (m *MockNarrator) GenerateWorld(ctx context.Context, req narrator.WorldRequest) (*narrator.WorldResponse, error) {
	m.mu.Lock()
	m.WorldCalls = append(m.WorldCalls, req)
	fn := m.GenerateWorldFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	return &narrator.WorldResponse{
		Name:        "Mock World",
		Description: "A world built from: " + req.Concept,
		WorldMap:    []string{"Harbor", "Old Town"},
		Marketplace: &world.Marketplace{Shops: []world.Shop{{
			Name: "General Store",
			Inventory: []actor.InventoryItem{
				{Item: actor.Item{Name: "Rope", Kind: actor.KindMisc, Value: 2}, Quantity: 5},
				{Item: actor.Item{Name: "Short Sword", Kind: actor.KindWeapon, Slot: actor.SlotWeapon, Value: 20}, Quantity: 1},
			},
		}}},
	}, nil
}

func (m *MockNarrator) GenerateCharacter(ctx context.Context, req narrator.CharacterRequest) (*narrator.CharacterResponse, error) {
	m.mu.Lock()
	m.CharacterCalls = append(m.CharacterCalls, req)
	fn := m.GenerateCharacterFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	return &narrator.CharacterResponse{
		Character: actor.Character{
			Name:      "Mock Hero",
			Class:     req.Concept,
			Level:     1,
			BaseStats: actor.Stats{Strength: 12, Dexterity: 14, Constitution: 12, Intelligence: 10, Wisdom: 10, Charisma: 10, ArmorClass: 10},
			Health:    10,
			MaxHealth: 10,
			Gold:      25,
		},
		InitialScene: world.Scene{Location: "Harbor", Description: "Gulls circle the masts."},
		IntroStory:   "Your story begins at the harbor.",
	}, nil
}

func (m *MockNarrator) GenerateNextScene(ctx context.Context, req narrator.SceneRequest) (*narrator.SceneResponse, error) {
	m.mu.Lock()
	m.SceneCalls = append(m.SceneCalls, req)
	fn := m.GenerateNextSceneFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	c := req.Character.Clone()
	scene := req.Scene
	return &narrator.SceneResponse{
		Narrative:        fmt.Sprintf("You try to %s. Nothing much happens.", req.Action),
		UpdatedCharacter: &c,
		UpdatedScene:     &scene,
	}, nil
}

func (m *MockNarrator) AskOOCQuestion(ctx context.Context, req narrator.OOCRequest) (string, error) {
	m.mu.Lock()
	m.QuestionCalls = append(m.QuestionCalls, req)
	fn := m.AskOOCQuestionFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(ctx, req)
	}
	return "The narrator has no answer to: " + req.Question, nil
}

// SceneCallCount returns how many scenes were requested
func (m *MockNarrator) SceneCallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.SceneCalls)
}

// Reset clears recorded calls and scripted funcs
func (m *MockNarrator) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GenerateWorldFunc = nil
	m.GenerateCharacterFunc = nil
	m.GenerateNextSceneFunc = nil
	m.AskOOCQuestionFunc = nil
	m.WorldCalls = nil
	m.CharacterCalls = nil
	m.SceneCalls = nil
	m.QuestionCalls = nil
}

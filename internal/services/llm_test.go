package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/saga-engine/internal/config"
	"github.com/jwebster45206/saga-engine/pkg/actor"
	"github.com/jwebster45206/saga-engine/pkg/chat"
	"github.com/jwebster45206/saga-engine/pkg/narrator"
	"github.com/jwebster45206/saga-engine/pkg/world"
)

// fakeCompleter answers per credential
type fakeCompleter struct {
	mu      sync.Mutex
	replies map[string]string
	errs    map[string]error
	keys    []string
	opts    []CompletionOptions
	closed  bool
}

func (f *fakeCompleter) Name() string { return "fake" }

func (f *fakeCompleter) Complete(ctx context.Context, credential string, messages []chat.ChatMessage, opts CompletionOptions) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.keys = append(f.keys, credential)
	f.opts = append(f.opts, opts)
	if err := f.errs[credential]; err != nil {
		return "", err
	}
	return f.replies[credential], nil
}

func (f *fakeCompleter) Close() error {
	f.closed = true
	return nil
}

var quotaErr = errors.Join(narrator.ErrQuotaExhausted, errors.New("429"))

func sceneRequest() narrator.SceneRequest {
	return narrator.SceneRequest{
		Character: actor.Character{ID: "pc-1", Name: "Aria", Health: 10, MaxHealth: 10},
		Scene:     world.Scene{Location: "Harbor"},
		TurnCount: 1,
		Action:    "look around",
	}
}

func TestLLMNarrator_GenerateNextScene(t *testing.T) {
	fc := &fakeCompleter{replies: map[string]string{
		"k1": "```json\n{\"narrative\": \"Gulls cry.\", \"updated_character\": {\"name\": \"Aria\", \"health\": 10, \"max_health\": 10}, \"updated_scene\": {\"location\": \"Harbor\"}}\n```",
	}}
	n := NewLLMNarrator(fc, narrator.NewCredentialPool("k1"), 10, testLogger())

	resp, err := n.GenerateNextScene(context.Background(), sceneRequest())
	require.NoError(t, err)

	assert.Equal(t, "Gulls cry.", resp.Narrative)
	require.NotNil(t, resp.UpdatedCharacter)
	assert.Equal(t, "Aria", resp.UpdatedCharacter.Name)
	require.Len(t, fc.opts, 1)
	assert.True(t, fc.opts[0].JSON)
}

func TestLLMNarrator_RotatesOnQuota(t *testing.T) {
	fc := &fakeCompleter{
		errs:    map[string]error{"k1": quotaErr},
		replies: map[string]string{"k2": `{"name": "Ashfall", "world_map": ["Ember Gate"]}`},
	}
	n := NewLLMNarrator(fc, narrator.NewCredentialPool("k1", "k2"), 0, testLogger())

	resp, err := n.GenerateWorld(context.Background(), narrator.WorldRequest{Concept: "volcanic archipelago"})
	require.NoError(t, err)

	assert.Equal(t, "Ashfall", resp.Name)
	assert.Equal(t, []string{"Ember Gate"}, resp.WorldMap)
	assert.Equal(t, []string{"k1", "k2"}, fc.keys)
}

func TestLLMNarrator_AllCredentialsExhausted(t *testing.T) {
	fc := &fakeCompleter{errs: map[string]error{"k1": quotaErr, "k2": quotaErr}}
	n := NewLLMNarrator(fc, narrator.NewCredentialPool("k1", "k2"), 0, testLogger())

	_, err := n.GenerateNextScene(context.Background(), sceneRequest())
	assert.ErrorIs(t, err, narrator.ErrUnavailable)
	assert.Equal(t, []string{"k1", "k2"}, fc.keys)
}

func TestLLMNarrator_ErrorMapping(t *testing.T) {
	t.Run("transport error is unavailable", func(t *testing.T) {
		fc := &fakeCompleter{errs: map[string]error{"k1": errors.New("connection reset")}}
		n := NewLLMNarrator(fc, narrator.NewCredentialPool("k1", "k2"), 0, testLogger())

		_, err := n.AskOOCQuestion(context.Background(), narrator.OOCRequest{Question: "where am I?"})
		assert.ErrorIs(t, err, narrator.ErrUnavailable)
		assert.Equal(t, []string{"k1"}, fc.keys, "non-quota errors do not rotate")
	})

	t.Run("prose is malformed", func(t *testing.T) {
		fc := &fakeCompleter{replies: map[string]string{"k1": "Once upon a time..."}}
		n := NewLLMNarrator(fc, narrator.NewCredentialPool("k1"), 0, testLogger())

		_, err := n.GenerateCharacter(context.Background(), narrator.CharacterRequest{Concept: "bard"})
		assert.ErrorIs(t, err, narrator.ErrMalformedResponse)
	})

	t.Run("no credentials", func(t *testing.T) {
		n := NewLLMNarrator(&fakeCompleter{}, narrator.NewCredentialPool(), 0, testLogger())

		_, err := n.GenerateWorld(context.Background(), narrator.WorldRequest{Concept: "x"})
		assert.ErrorIs(t, err, narrator.ErrUnavailable)
	})
}

func TestLLMNarrator_AskOOCQuestion(t *testing.T) {
	fc := &fakeCompleter{replies: map[string]string{"k1": "  You are at the harbor.\n"}}
	n := NewLLMNarrator(fc, narrator.NewCredentialPool("k1"), 0, testLogger())

	answer, err := n.AskOOCQuestion(context.Background(), narrator.OOCRequest{Question: "where am I?"})
	require.NoError(t, err)
	assert.Equal(t, "You are at the harbor.", answer)
	assert.False(t, fc.opts[0].JSON)
}

func TestLLMNarrator_RotationOverHTTP(t *testing.T) {
	service := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("x-api-key") == "spent" {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = io.WriteString(w, `{"content":[{"type":"text","text":"The tide is out."}]}`)
	})
	n := NewLLMNarrator(service, narrator.NewCredentialPool("spent", "fresh"), 0, testLogger())

	answer, err := n.AskOOCQuestion(context.Background(), narrator.OOCRequest{Question: "tide?"})
	require.NoError(t, err)
	assert.Equal(t, "The tide is out.", answer)
}

func TestLLMNarrator_Close(t *testing.T) {
	fc := &fakeCompleter{}
	n := NewLLMNarrator(fc, narrator.NewCredentialPool("k1"), 0, testLogger())

	require.NoError(t, n.Close())
	assert.True(t, fc.closed)
}

func TestNewNarrator(t *testing.T) {
	tests := []struct {
		name    string
		cfg     config.Config
		wantErr bool
		wantLLM bool
	}{
		{name: "mock", cfg: config.Config{LLMProvider: config.ProviderMock}},
		{name: "anthropic", cfg: config.Config{LLMProvider: config.ProviderAnthropic, AnthropicAPIKeys: []string{"a"}}, wantLLM: true},
		{name: "venice", cfg: config.Config{LLMProvider: config.ProviderVenice, VeniceAPIKeys: []string{"v"}}, wantLLM: true},
		{name: "gemini", cfg: config.Config{LLMProvider: config.ProviderGemini, GeminiAPIKeys: []string{"g1", "g2"}}, wantLLM: true},
		{name: "missing keys", cfg: config.Config{LLMProvider: config.ProviderAnthropic, AnthropicAPIKeys: []string{" "}}, wantErr: true},
		{name: "unknown provider", cfg: config.Config{LLMProvider: "ollama"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			n, err := NewNarrator(&tt.cfg, testLogger())
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			if tt.wantLLM {
				assert.IsType(t, &LLMNarrator{}, n)
			} else {
				assert.IsType(t, &MockNarrator{}, n)
			}
		})
	}
}

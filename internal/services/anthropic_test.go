package services

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/saga-engine/pkg/chat"
	"github.com/jwebster45206/saga-engine/pkg/narrator"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAnthropic(t *testing.T, handler http.HandlerFunc) *AnthropicService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	service := NewAnthropicService("claude-test", testLogger())
	service.baseURL = srv.URL
	return service
}

func TestNewAnthropicService(t *testing.T) {
	service := NewAnthropicService("claude-test", testLogger())

	if service.modelName != "claude-test" {
		t.Errorf("Expected model name claude-test, got %s", service.modelName)
	}
	if service.httpClient == nil {
		t.Error("Expected HTTP client to be initialized")
	}
	if service.Name() != "anthropic" {
		t.Errorf("Expected name anthropic, got %s", service.Name())
	}
}

func TestAnthropicService_SplitChatMessages(t *testing.T) {
	service := NewAnthropicService("claude-test", testLogger())

	tests := []struct {
		name           string
		messages       []chat.ChatMessage
		expectedSystem string
		expectedRoles  []string
	}{
		{
			name: "single system message",
			messages: []chat.ChatMessage{
				{Role: chat.ChatRoleSystem, Content: "You are a narrator."},
				{Role: chat.ChatRoleUser, Content: "Hello"},
				{Role: chat.ChatRoleAgent, Content: "Hi there!"},
			},
			expectedSystem: "You are a narrator.",
			expectedRoles:  []string{chat.ChatRoleUser, chat.ChatRoleAgent},
		},
		{
			name: "multiple system messages",
			messages: []chat.ChatMessage{
				{Role: chat.ChatRoleSystem, Content: "You are a narrator."},
				{Role: chat.ChatRoleUser, Content: "Hello"},
				{Role: chat.ChatRoleSystem, Content: "Be concise."},
				{Role: chat.ChatRoleAgent, Content: "Hi there!"},
			},
			expectedSystem: "You are a narrator.\n\nBe concise.",
			expectedRoles:  []string{chat.ChatRoleUser, chat.ChatRoleAgent},
		},
		{
			name: "consecutive user messages are merged",
			messages: []chat.ChatMessage{
				{Role: chat.ChatRoleUser, Content: "Aria: I look around"},
				{Role: chat.ChatRoleUser, Content: "Respond with JSON"},
			},
			expectedRoles: []string{chat.ChatRoleUser},
		},
		{
			name: "leading assistant message gets a user opener",
			messages: []chat.ChatMessage{
				{Role: chat.ChatRoleAgent, Content: "The story begins."},
				{Role: chat.ChatRoleUser, Content: "I wake up"},
			},
			expectedRoles: []string{chat.ChatRoleUser, chat.ChatRoleAgent, chat.ChatRoleUser},
		},
		{
			name: "only system messages",
			messages: []chat.ChatMessage{
				{Role: chat.ChatRoleSystem, Content: "Build a world."},
			},
			expectedSystem: "Build a world.",
			expectedRoles:  []string{chat.ChatRoleUser},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			systemPrompt, turns := service.splitChatMessages(tt.messages)
			assert.Equal(t, tt.expectedSystem, systemPrompt)

			roles := make([]string, len(turns))
			for i, msg := range turns {
				roles[i] = msg.Role
			}
			assert.Equal(t, tt.expectedRoles, roles)
		})
	}
}

func TestAnthropicService_Complete(t *testing.T) {
	var got AnthropicChatRequest
	service := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/messages", r.URL.Path)
		assert.Equal(t, "key-1", r.Header.Get("x-api-key"))
		assert.Equal(t, anthropicVersion, r.Header.Get("anthropic-version"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))

		_, _ = io.WriteString(w, `{
			"id": "msg_01",
			"type": "message",
			"role": "assistant",
			"content": [{"type": "text", "text": "{\"narrative\":"}, {"type": "text", "text": " \"ok\"}"}],
			"model": "claude-test",
			"stop_reason": "end_turn",
			"usage": {"input_tokens": 10, "output_tokens": 20}
		}`)
	})

	text, err := service.Complete(context.Background(), "key-1", []chat.ChatMessage{
		{Role: chat.ChatRoleSystem, Content: "Narrate."},
		{Role: chat.ChatRoleUser, Content: "Aria: I open the door"},
	}, CompletionOptions{JSON: true, MaxTokens: 100, Temperature: 0.2})
	require.NoError(t, err)

	assert.Equal(t, `{"narrative": "ok"}`, text)
	assert.Equal(t, "claude-test", got.Model)
	assert.Equal(t, "Narrate.", got.System)
	assert.Equal(t, 100, got.MaxTokens)
	require.NotNil(t, got.Temperature)
	assert.InDelta(t, 0.2, *got.Temperature, 0.0001)
	require.Len(t, got.Messages, 1)
}

func TestAnthropicService_StatusErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		wantQuota bool
	}{
		{name: "rate limited", status: http.StatusTooManyRequests, wantQuota: true},
		{name: "out of credit", status: http.StatusPaymentRequired, wantQuota: true},
		{name: "server error", status: http.StatusInternalServerError, wantQuota: false},
		{name: "bad request", status: http.StatusBadRequest, wantQuota: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
				http.Error(w, `{"error":{"message":"nope"}}`, tt.status)
			})

			_, err := service.Complete(context.Background(), "key", []chat.ChatMessage{{Role: chat.ChatRoleUser, Content: "hi"}}, CompletionOptions{})
			require.Error(t, err)
			assert.Equal(t, tt.wantQuota, errorIsQuota(err))
		})
	}
}

func TestAnthropicService_MalformedBody(t *testing.T) {
	service := newTestAnthropic(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "not json")
	})

	_, err := service.Complete(context.Background(), "key", []chat.ChatMessage{{Role: chat.ChatRoleUser, Content: "hi"}}, CompletionOptions{})
	assert.ErrorIs(t, err, narrator.ErrMalformedResponse)
}

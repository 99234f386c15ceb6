package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwebster45206/saga-engine/pkg/chat"
	"github.com/jwebster45206/saga-engine/pkg/narrator"
)

func errorIsQuota(err error) bool {
	return errors.Is(err, narrator.ErrQuotaExhausted)
}

func newTestVenice(t *testing.T, handler http.HandlerFunc) *VeniceService {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	service := NewVeniceService("venice-test", testLogger())
	service.baseURL = srv.URL
	return service
}

func TestNewVeniceService(t *testing.T) {
	service := NewVeniceService("test-model", testLogger())

	if service.modelName != "test-model" {
		t.Errorf("Expected modelName test-model, got %s", service.modelName)
	}
	if service.httpClient == nil {
		t.Error("Expected httpClient to be initialized")
	}
}

func TestVeniceService_Complete(t *testing.T) {
	tests := []struct {
		name       string
		opts       CompletionOptions
		wantFormat bool
	}{
		{name: "json requested", opts: CompletionOptions{JSON: true}, wantFormat: true},
		{name: "plain text", opts: CompletionOptions{}, wantFormat: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got VeniceChatRequest
			service := newTestVenice(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/chat/completions", r.URL.Path)
				assert.Equal(t, "Bearer key-1", r.Header.Get("Authorization"))
				require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
				_, _ = io.WriteString(w, `{"id":"1","model":"venice-test","choices":[{"index":0,"message":{"role":"assistant","content":"The door creaks."},"finish_reason":"stop"}]}`)
			})

			messages := []chat.ChatMessage{
				{Role: chat.ChatRoleSystem, Content: "Narrate."},
				{Role: chat.ChatRoleUser, Content: "I open the door"},
			}
			text, err := service.Complete(context.Background(), "key-1", messages, tt.opts)
			require.NoError(t, err)

			assert.Equal(t, "The door creaks.", text)
			assert.Equal(t, "venice-test", got.Model)
			assert.Equal(t, messages, got.Messages)
			assert.False(t, got.VeniceParameters.IncludeVeniceSystemPrompt)
			if tt.wantFormat {
				require.NotNil(t, got.ResponseFormat)
				assert.Equal(t, "json_object", got.ResponseFormat.Type)
			} else {
				assert.Nil(t, got.ResponseFormat)
			}
		})
	}
}

func TestVeniceService_Errors(t *testing.T) {
	t.Run("rate limited", func(t *testing.T) {
		service := newTestVenice(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusTooManyRequests)
		})
		_, err := service.Complete(context.Background(), "key", nil, CompletionOptions{})
		assert.ErrorIs(t, err, narrator.ErrQuotaExhausted)
	})

	t.Run("no choices", func(t *testing.T) {
		service := newTestVenice(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"id":"1","choices":[]}`)
		})
		_, err := service.Complete(context.Background(), "key", nil, CompletionOptions{})
		assert.ErrorIs(t, err, narrator.ErrMalformedResponse)
	})

	t.Run("api error body", func(t *testing.T) {
		service := newTestVenice(t, func(w http.ResponseWriter, r *http.Request) {
			_, _ = io.WriteString(w, `{"error":{"message":"model not found"}}`)
		})
		_, err := service.Complete(context.Background(), "key", nil, CompletionOptions{})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "model not found")
		assert.False(t, errorIsQuota(err))
	})

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		service := NewVeniceService("venice-test", testLogger())
		service.baseURL = srv.URL
		srv.Close()

		_, err := service.Complete(context.Background(), "key", nil, CompletionOptions{})
		assert.ErrorIs(t, err, narrator.ErrUnavailable)
	})
}

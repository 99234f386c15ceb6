package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"

	"github.com/google/generative-ai-go/genai"
	"github.com/jwebster45206/saga-engine/pkg/chat"
	"github.com/jwebster45206/saga-engine/pkg/narrator"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

const (
	DefaultGeminiTemperature = 0.7
	DefaultGeminiMaxTokens   = 4096

	geminiModelRole = "model"
)

// GeminiService is a Completer for Google Gemini. One client is kept per API key.
type GeminiService struct {
	modelName string
	logger    *slog.Logger

	mu      sync.Mutex
	clients map[string]*genai.Client
}

var _ Completer = (*GeminiService)(nil)

func NewGeminiService(modelName string, logger *slog.Logger) *GeminiService {
	return &GeminiService{
		modelName: modelName,
		logger:    logger,
		clients:   make(map[string]*genai.Client),
	}
}

func (g *GeminiService) Name() string { return "gemini" }

func (g *GeminiService) client(ctx context.Context, credential string) (*genai.Client, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if c, ok := g.clients[credential]; ok {
		return c, nil
	}
	c, err := genai.NewClient(ctx, option.WithAPIKey(credential))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create gemini client: %v", narrator.ErrUnavailable, err)
	}
	g.clients[credential] = c
	return c, nil
}

// Complete sends the conversation as chat history and the final user message
func (g *GeminiService) Complete(ctx context.Context, credential string, messages []chat.ChatMessage, opts CompletionOptions) (string, error) {
	client, err := g.client(ctx, credential)
	if err != nil {
		return "", err
	}

	system, history, last := toGeminiContents(messages)

	model := client.GenerativeModel(g.modelName)
	if system != "" {
		model.SystemInstruction = &genai.Content{Parts: []genai.Part{genai.Text(system)}}
	}
	temperature := DefaultGeminiTemperature
	if opts.Temperature > 0 {
		temperature = opts.Temperature
	}
	model.SetTemperature(float32(temperature))
	maxTokens := DefaultGeminiMaxTokens
	if opts.MaxTokens > 0 {
		maxTokens = opts.MaxTokens
	}
	model.SetMaxOutputTokens(int32(maxTokens))
	if opts.JSON {
		model.ResponseMIMEType = "application/json"
	}

	cs := model.StartChat()
	cs.History = history

	resp, err := cs.SendMessage(ctx, genai.Text(last))
	if err != nil {
		if isQuotaError(err) {
			return "", fmt.Errorf("%w: %v", narrator.ErrQuotaExhausted, err)
		}
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	return responseText(resp)
}

// Close releases every cached client
func (g *GeminiService) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	var errs []error
	for key, c := range g.clients {
		errs = append(errs, c.Close())
		delete(g.clients, key)
	}
	return errors.Join(errs...)
}

// toGeminiContents folds system messages into one instruction and turns the
// rest into alternating user/model history. The trailing user message is
// returned separately to be sent.
func toGeminiContents(messages []chat.ChatMessage) (string, []*genai.Content, string) {
	var system []string
	type turn struct {
		role string
		text string
	}
	var turns []turn
	for _, m := range messages {
		if m.Role == chat.ChatRoleSystem {
			system = append(system, m.Content)
			continue
		}
		role := chat.ChatRoleUser
		if m.Role == chat.ChatRoleAgent {
			role = geminiModelRole
		}
		if n := len(turns); n > 0 && turns[n-1].role == role {
			turns[n-1].text += "\n\n" + m.Content
			continue
		}
		turns = append(turns, turn{role: role, text: m.Content})
	}

	last := "Continue."
	if n := len(turns); n > 0 && turns[n-1].role == chat.ChatRoleUser {
		last = turns[n-1].text
		turns = turns[:n-1]
	}

	history := make([]*genai.Content, 0, len(turns))
	for _, t := range turns {
		history = append(history, &genai.Content{Role: t.role, Parts: []genai.Part{genai.Text(t.text)}})
	}
	return strings.Join(system, "\n\n"), history, last
}

func responseText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return "", fmt.Errorf("%w: no candidates in gemini response", narrator.ErrMalformedResponse)
	}
	var sb strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if text, ok := part.(genai.Text); ok {
			sb.WriteString(string(text))
		}
	}
	if sb.Len() == 0 {
		return "", fmt.Errorf("%w: gemini response has no text", narrator.ErrMalformedResponse)
	}
	return sb.String(), nil
}

// isQuotaError reports whether err is a rate limit or exhausted quota
func isQuotaError(err error) bool {
	if err == nil {
		return false
	}
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) && apiErr.Code == http.StatusTooManyRequests {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "429") ||
		strings.Contains(msg, "RESOURCE_EXHAUSTED") ||
		strings.Contains(strings.ToLower(msg), "quota")
}

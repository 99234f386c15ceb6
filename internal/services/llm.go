package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/jwebster45206/saga-engine/pkg/chat"
	"github.com/jwebster45206/saga-engine/pkg/narrator"
	"github.com/jwebster45206/saga-engine/pkg/prompts"
)

// CompletionOptions tune a single completion request
type CompletionOptions struct {
	// JSON asks the backend for a JSON object when it supports a response format
	JSON        bool
	Temperature float64
	MaxTokens   int
}

// Completer is a chat completion backend. Implementations return an error
// wrapping narrator.ErrQuotaExhausted when the credential hit a quota or
// rate limit, so the caller can rotate to the next one.
type Completer interface {
	Name() string
	Complete(ctx context.Context, credential string, messages []chat.ChatMessage, opts CompletionOptions) (string, error)
}

// LLMNarrator implements narrator.Narrator on top of any Completer
type LLMNarrator struct {
	completer    Completer
	pool         *narrator.CredentialPool
	historyLimit int
	logger       *slog.Logger
}

var _ narrator.Narrator = (*LLMNarrator)(nil)

// NewLLMNarrator binds a completer to a credential pool
func NewLLMNarrator(completer Completer, pool *narrator.CredentialPool, historyLimit int, logger *slog.Logger) *LLMNarrator {
	if historyLimit <= 0 {
		historyLimit = prompts.DefaultHistoryLimit
	}
	return &LLMNarrator{
		completer:    completer,
		pool:         pool,
		historyLimit: historyLimit,
		logger:       logger.With("provider", completer.Name()),
	}
}

// Close releases backend resources, if the completer holds any
func (n *LLMNarrator) Close() error {
	if c, ok := n.completer.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

func (n *LLMNarrator) GenerateWorld(ctx context.Context, req narrator.WorldRequest) (*narrator.WorldResponse, error) {
	msgs, err := prompts.ForWorld(req)
	if err != nil {
		return nil, err
	}
	return complete[narrator.WorldResponse](ctx, n, "generate_world", msgs, CompletionOptions{JSON: true, Temperature: 0.9, MaxTokens: 4096})
}

func (n *LLMNarrator) GenerateCharacter(ctx context.Context, req narrator.CharacterRequest) (*narrator.CharacterResponse, error) {
	msgs, err := prompts.ForCharacter(req)
	if err != nil {
		return nil, err
	}
	return complete[narrator.CharacterResponse](ctx, n, "generate_character", msgs, CompletionOptions{JSON: true, Temperature: 0.9, MaxTokens: 4096})
}

func (n *LLMNarrator) GenerateNextScene(ctx context.Context, req narrator.SceneRequest) (*narrator.SceneResponse, error) {
	msgs, err := prompts.ForScene(req, n.historyLimit)
	if err != nil {
		return nil, err
	}
	return complete[narrator.SceneResponse](ctx, n, "next_scene", msgs, CompletionOptions{JSON: true, Temperature: 0.7, MaxTokens: 4096})
}

func (n *LLMNarrator) AskOOCQuestion(ctx context.Context, req narrator.OOCRequest) (string, error) {
	msgs, err := prompts.ForQuestion(req, n.historyLimit)
	if err != nil {
		return "", err
	}
	text, err := n.call(ctx, "ooc_question", msgs, CompletionOptions{Temperature: 0.3, MaxTokens: 1024})
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// call runs one completion with credential rotation
func (n *LLMNarrator) call(ctx context.Context, op string, msgs []chat.ChatMessage, opts CompletionOptions) (string, error) {
	attempt := 0
	text, err := narrator.WithRotation(ctx, n.pool, func(ctx context.Context, key string) (string, error) {
		attempt++
		out, err := n.completer.Complete(ctx, key, msgs, opts)
		if errors.Is(err, narrator.ErrQuotaExhausted) {
			n.logger.Warn("Credential exhausted, rotating", "op", op, "attempt", attempt)
		}
		return out, err
	})
	if err != nil {
		n.logger.Error("Narrator call failed", "op", op, "attempts", attempt, "error", err)
		if errors.Is(err, narrator.ErrUnavailable) || errors.Is(err, narrator.ErrMalformedResponse) {
			return "", err
		}
		return "", fmt.Errorf("%w: %v", narrator.ErrUnavailable, err)
	}
	n.logger.Debug("Narrator call succeeded", "op", op, "attempts", attempt, "bytes", len(text))
	return text, nil
}

func complete[T any](ctx context.Context, n *LLMNarrator, op string, msgs []chat.ChatMessage, opts CompletionOptions) (*T, error) {
	text, err := n.call(ctx, op, msgs, opts)
	if err != nil {
		return nil, err
	}
	out, err := narrator.Decode[T](text)
	if err != nil {
		n.logger.Warn("Malformed narrator payload", "op", op, "error", err)
		return nil, err
	}
	return out, nil
}

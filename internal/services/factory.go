package services

import (
	"fmt"
	"log/slog"

	"github.com/jwebster45206/saga-engine/internal/config"
	"github.com/jwebster45206/saga-engine/pkg/narrator"
)

// NewNarrator builds the narrator selected by LLM_PROVIDER
func NewNarrator(cfg *config.Config, logger *slog.Logger) (narrator.Narrator, error) {
	var completer Completer
	switch cfg.LLMProvider {
	case config.ProviderMock:
		logger.Warn("Using mock narrator")
		return NewMockNarrator(), nil
	case config.ProviderGemini:
		completer = NewGeminiService(cfg.Model(), logger)
	case config.ProviderAnthropic:
		completer = NewAnthropicService(cfg.Model(), logger)
	case config.ProviderVenice:
		completer = NewVeniceService(cfg.Model(), logger)
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLMProvider)
	}

	pool := narrator.NewCredentialPool(cfg.APIKeys()...)
	if pool.Len() == 0 {
		return nil, fmt.Errorf("no API keys configured for provider %s", cfg.LLMProvider)
	}
	logger.Info("Narrator configured",
		"provider", completer.Name(),
		"model", cfg.Model(),
		"credentials", pool.Len())
	return NewLLMNarrator(completer, pool, cfg.HistoryLimit, logger), nil
}

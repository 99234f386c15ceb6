package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Providers accepted by LLM_PROVIDER
const (
	ProviderGemini    = "gemini"
	ProviderAnthropic = "anthropic"
	ProviderVenice    = "venice"
	ProviderMock      = "mock"
)

// Storage backends accepted by STORAGE_BACKEND
const (
	BackendRedis  = "redis"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

type Config struct {
	Port        string     `env:"PORT" envDefault:"8080"`
	Environment string     `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    slog.Level `env:"LOG_LEVEL" envDefault:"info"`

	LLMProvider      string        `env:"LLM_PROVIDER" envDefault:"gemini"`
	ModelName        string        `env:"MODEL_NAME"`
	GeminiAPIKeys    []string      `env:"GEMINI_API_KEYS" envSeparator:","`
	AnthropicAPIKeys []string      `env:"ANTHROPIC_API_KEYS" envSeparator:","`
	VeniceAPIKeys    []string      `env:"VENICE_API_KEYS" envSeparator:","`
	NarratorTimeout  time.Duration `env:"NARRATOR_TIMEOUT" envDefault:"90s"`
	HistoryLimit     int           `env:"HISTORY_LIMIT" envDefault:"20"`

	StorageBackend string `env:"STORAGE_BACKEND" envDefault:"redis"`
	RedisURL       string `env:"REDIS_URL" envDefault:"redis://localhost:6379"`
	SQLitePath     string `env:"SQLITE_PATH" envDefault:"saga.db"`
	StoreID        string `env:"STORE_ID" envDefault:"default"`

	APIBaseURL string `env:"API_BASE_URL" envDefault:"http://localhost:8080"`
}

// Load parses the environment and validates the result
func Load() (*Config, error) {
	cfg, err := Parse()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse reads the environment without validating it. Tools that only touch
// storage use it with ValidateStorage.
func Parse() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.LLMProvider = strings.ToLower(strings.TrimSpace(cfg.LLMProvider))
	cfg.StorageBackend = strings.ToLower(strings.TrimSpace(cfg.StorageBackend))
	return cfg, nil
}

// Validate checks provider and backend specific requirements
func (c *Config) Validate() error {
	if err := c.ValidateStorage(); err != nil {
		return err
	}
	switch c.LLMProvider {
	case ProviderGemini:
		if len(c.GeminiAPIKeys) == 0 {
			return fmt.Errorf("GEMINI_API_KEYS is required for provider %q", c.LLMProvider)
		}
	case ProviderAnthropic:
		if len(c.AnthropicAPIKeys) == 0 {
			return fmt.Errorf("ANTHROPIC_API_KEYS is required for provider %q", c.LLMProvider)
		}
	case ProviderVenice:
		if len(c.VeniceAPIKeys) == 0 {
			return fmt.Errorf("VENICE_API_KEYS is required for provider %q", c.LLMProvider)
		}
	case ProviderMock:
	default:
		return fmt.Errorf("unsupported LLM_PROVIDER %q", c.LLMProvider)
	}

	if c.NarratorTimeout <= 0 {
		return fmt.Errorf("NARRATOR_TIMEOUT must be positive")
	}
	return nil
}

// ValidateStorage checks the storage backend settings only
func (c *Config) ValidateStorage() error {
	switch c.StorageBackend {
	case BackendRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required for storage backend %q", c.StorageBackend)
		}
	case BackendSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required for storage backend %q", c.StorageBackend)
		}
	case BackendMemory:
	default:
		return fmt.Errorf("unsupported STORAGE_BACKEND %q", c.StorageBackend)
	}
	return nil
}

// APIKeys returns the credentials configured for the selected provider
func (c *Config) APIKeys() []string {
	switch c.LLMProvider {
	case ProviderGemini:
		return c.GeminiAPIKeys
	case ProviderAnthropic:
		return c.AnthropicAPIKeys
	case ProviderVenice:
		return c.VeniceAPIKeys
	default:
		return nil
	}
}

// Model returns MODEL_NAME or the default model of the provider
func (c *Config) Model() string {
	if c.ModelName != "" {
		return c.ModelName
	}
	switch c.LLMProvider {
	case ProviderGemini:
		return "gemini-2.5-flash"
	case ProviderAnthropic:
		return "claude-sonnet-4-5"
	case ProviderVenice:
		return "venice-uncensored"
	default:
		return "mock"
	}
}

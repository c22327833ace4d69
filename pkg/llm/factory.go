package llm

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"
)

// Provider names accepted by NewInvoker.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
	ProviderOllama    = "ollama"
)

// ProviderConfig holds configuration for creating an Invoker.
type ProviderConfig struct {
	Provider string        // "openai", "anthropic", or "ollama"
	Model    string        // e.g. "gpt-4o-mini", "llama3.2"
	APIKey   string        // explicit API key (highest priority)
	BaseURL  string        // override base URL
	Timeout  time.Duration // per-request timeout
}

// ResolveAPIKey resolves the API key for a provider: explicit config first,
// then environment variables. Ollama needs no key.
func ResolveAPIKey(cfg ProviderConfig) string {
	if cfg.APIKey != "" {
		return cfg.APIKey
	}
	switch strings.ToLower(cfg.Provider) {
	case ProviderAnthropic:
		return os.Getenv("ANTHROPIC_API_KEY")
	case ProviderOpenAI, "":
		return os.Getenv("OPENAI_API_KEY")
	case ProviderOllama:
		return ""
	default:
		if key := os.Getenv("OPENAI_API_KEY"); key != "" {
			return key
		}
		return os.Getenv("ANTHROPIC_API_KEY")
	}
}

// NormalizeProvider resolves the effective provider name. When a keyed
// provider is configured but no API key can be resolved, it falls back to
// ollama so the system keeps working offline.
func NormalizeProvider(cfg ProviderConfig, log *slog.Logger) (string, error) {
	provider := strings.ToLower(cfg.Provider)
	if provider == "" {
		provider = ProviderOllama
	}

	switch provider {
	case ProviderOpenAI, ProviderAnthropic:
		if ResolveAPIKey(cfg) == "" {
			if log != nil {
				log.Warn("no API key found, falling back to ollama", "provider", provider)
			}
			return ProviderOllama, nil
		}
		return provider, nil
	case ProviderOllama:
		return provider, nil
	default:
		return "", fmt.Errorf("unsupported provider: %s", cfg.Provider)
	}
}

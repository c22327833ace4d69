// Package provider constructs llm.Invoker implementations from configuration.
package provider

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/quillhealthco/keepsake/pkg/llm"
	"github.com/quillhealthco/keepsake/pkg/llm/provider/anthropic"
	"github.com/quillhealthco/keepsake/pkg/llm/provider/ollama"
	"github.com/quillhealthco/keepsake/pkg/llm/provider/openai"
)

// New creates an Invoker for the configured provider. Keyed providers with no
// resolvable API key fall back to a local Ollama server so generation and
// summarization stay offline-capable.
func New(cfg llm.ProviderConfig, log *slog.Logger) (llm.Invoker, error) {
	name, err := llm.NormalizeProvider(cfg, log)
	if err != nil {
		return nil, err
	}

	switch name {
	case llm.ProviderOpenAI:
		return openai.New(openai.Config{
			APIKey:  llm.ResolveAPIKey(cfg),
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		}), nil

	case llm.ProviderAnthropic:
		return anthropic.New(anthropic.Config{
			APIKey:  llm.ResolveAPIKey(cfg),
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		}), nil

	case llm.ProviderOllama:
		// When a keyed provider fell back to ollama, its base URL and model
		// don't apply; let the ollama defaults take over.
		if !strings.EqualFold(cfg.Provider, llm.ProviderOllama) && cfg.Provider != "" {
			cfg.BaseURL = ""
			cfg.Model = ""
		}
		return ollama.New(ollama.Config{
			BaseURL: cfg.BaseURL,
			Model:   cfg.Model,
			Timeout: cfg.Timeout,
		}), nil

	default:
		return nil, fmt.Errorf("unsupported provider: %s", name)
	}
}

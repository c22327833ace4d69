package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/quillhealthco/keepsake/pkg/dotdir"
)

// InitViper creates and returns a configured *viper.Viper.
// It sets defaults from NewDefaultConfig(), reads the config.toml file
// (if found via dotdir resolution), and binds environment variables
// with the KEEPSAKE_ prefix.
//
// Config precedence (highest to lowest):
//  1. CLI flags (once bound via BindRegisteredFlags)
//  2. Environment variables (KEEPSAKE_STORAGE_DRIVER, KEEPSAKE_MODEL_PROVIDER, etc.)
//  3. config.toml file values
//  4. Defaults from NewDefaultConfig()
func InitViper(configDir string) (*viper.Viper, error) {
	v := viper.New()

	// 1. Register all defaults from NewDefaultConfig().
	setViperDefaults(v)

	// 2. Config file discovery via dotdir resolution.
	v.SetConfigName("config")
	v.SetConfigType("toml")

	ddm := dotdir.NewManager()
	target, err := ddm.Target(configDir)
	if err != nil {
		return nil, fmt.Errorf("resolving config dir: %w", err)
	}

	if target != "" {
		v.AddConfigPath(target)
	}

	if err := v.ReadInConfig(); err != nil {
		// Config file not found errors are fine, defaults will apply.
		if !errors.As(err, &viper.ConfigFileNotFoundError{}) {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}

	// 3. Environment variables: KEEPSAKE_STORAGE_SQLITE_PATH, KEEPSAKE_MEMORY_TOKEN_BUDGET, etc.
	v.SetEnvPrefix("KEEPSAKE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	return v, nil
}

// setViperDefaults registers defaults from NewDefaultConfig() into viper
// using dotted-key notation. This keeps defaults.go as the single source of truth.
func setViperDefaults(v *viper.Viper) {
	d := NewDefaultConfig()

	v.SetDefault("version", d.Version)

	// Storage
	v.SetDefault("storage.driver", d.Storage.Driver)
	v.SetDefault("storage.sqlite_path", d.Storage.SQLitePath)
	v.SetDefault("storage.postgres_dsn", d.Storage.PostgresDSN)

	// Model
	v.SetDefault("model.provider", d.Model.Provider)
	v.SetDefault("model.model", d.Model.Model)
	v.SetDefault("model.base_url", d.Model.BaseURL)
	v.SetDefault("model.timeout_seconds", d.Model.TimeoutSeconds)

	// Memory
	v.SetDefault("memory.recent_turns", d.Memory.RecentTurns)
	v.SetDefault("memory.summary_count", d.Memory.SummaryCount)
	v.SetDefault("memory.pin_limit", d.Memory.PinLimit)
	v.SetDefault("memory.truncate_floor", d.Memory.TruncateFloor)
	v.SetDefault("memory.token_budget", d.Memory.TokenBudget)
	v.SetDefault("memory.cache_ttl_seconds", d.Memory.CacheTTLSeconds)

	// Summarizer
	v.SetDefault("summarizer.threshold", d.Summarizer.Threshold)
	v.SetDefault("summarizer.max_chars", d.Summarizer.MaxChars)
	v.SetDefault("summarizer.max_ratio", d.Summarizer.MaxRatio)
	v.SetDefault("summarizer.min_overlap", d.Summarizer.MinOverlap)
}

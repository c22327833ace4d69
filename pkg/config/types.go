package config

import (
	"fmt"
	"strconv"
)

// Config represents the persistent keepsake configuration stored as
// config.toml in the .keepsake/ directory. The TOML layout uses sections for
// logical grouping.
type Config struct {
	Version    int              `toml:"version"`
	Storage    StorageConfig    `toml:"storage"`
	Model      ModelConfig      `toml:"model"`
	Memory     MemoryConfig     `toml:"memory"`
	Summarizer SummarizerConfig `toml:"summarizer"`
}

// StorageConfig selects and configures the record store driver.
type StorageConfig struct {
	// Driver is one of "memory", "sqlite", "postgres".
	Driver string `toml:"driver,omitempty"`

	// SQLitePath is the database file path for the sqlite driver. Empty
	// means keepsake.db inside the resolved .keepsake/ directory.
	SQLitePath string `toml:"sqlite_path,omitempty"`

	// PostgresDSN is the connection string for the postgres driver.
	PostgresDSN string `toml:"postgres_dsn,omitempty"`
}

// ModelConfig holds model provider settings for primary generation.
type ModelConfig struct {
	Provider       string `toml:"provider,omitempty"`
	Model          string `toml:"model,omitempty"`
	BaseURL        string `toml:"base_url,omitempty"`
	TimeoutSeconds uint   `toml:"timeout_seconds,omitempty"`
}

// MemoryConfig holds context assembly settings.
type MemoryConfig struct {
	RecentTurns     uint `toml:"recent_turns,omitempty"`
	SummaryCount    uint `toml:"summary_count,omitempty"`
	PinLimit        uint `toml:"pin_limit,omitempty"`
	TruncateFloor   uint `toml:"truncate_floor,omitempty"`
	TokenBudget     uint `toml:"token_budget,omitempty"`
	CacheTTLSeconds uint `toml:"cache_ttl_seconds,omitempty"`
}

// SummarizerConfig holds compression trigger and validation thresholds.
// The defaults are tuned for short care conversations.
type SummarizerConfig struct {
	Threshold  uint    `toml:"threshold,omitempty"`
	MaxChars   uint    `toml:"max_chars,omitempty"`
	MaxRatio   float64 `toml:"max_ratio,omitempty"`
	MinOverlap float64 `toml:"min_overlap,omitempty"`
}

// configKeyInfo maps a user-facing dotted key name to a getter and setter on *Config.
type configKeyInfo struct {
	get func(c *Config) string
	set func(c *Config, v string) error
}

// configKeys is the authoritative map of all supported config keys.
// Keys use dotted notation matching the TOML section structure.
var configKeys = map[string]configKeyInfo{
	"storage.driver": {
		get: func(c *Config) string { return c.Storage.Driver },
		set: func(c *Config, v string) error { c.Storage.Driver = v; return nil },
	},
	"storage.sqlite_path": {
		get: func(c *Config) string { return c.Storage.SQLitePath },
		set: func(c *Config, v string) error { c.Storage.SQLitePath = v; return nil },
	},
	"storage.postgres_dsn": {
		get: func(c *Config) string { return c.Storage.PostgresDSN },
		set: func(c *Config, v string) error { c.Storage.PostgresDSN = v; return nil },
	},
	"model.provider": {
		get: func(c *Config) string { return c.Model.Provider },
		set: func(c *Config, v string) error { c.Model.Provider = v; return nil },
	},
	"model.model": {
		get: func(c *Config) string { return c.Model.Model },
		set: func(c *Config, v string) error { c.Model.Model = v; return nil },
	},
	"model.base_url": {
		get: func(c *Config) string { return c.Model.BaseURL },
		set: func(c *Config, v string) error { c.Model.BaseURL = v; return nil },
	},
	"model.timeout_seconds": {
		get: func(c *Config) string { return strconv.FormatUint(uint64(c.Model.TimeoutSeconds), 10) },
		set: func(c *Config, v string) error {
			return setUintKey(&c.Model.TimeoutSeconds, "model.timeout_seconds", v)
		},
	},
	"memory.recent_turns": {
		get: func(c *Config) string { return strconv.FormatUint(uint64(c.Memory.RecentTurns), 10) },
		set: func(c *Config, v string) error {
			return setUintKey(&c.Memory.RecentTurns, "memory.recent_turns", v)
		},
	},
	"memory.summary_count": {
		get: func(c *Config) string { return strconv.FormatUint(uint64(c.Memory.SummaryCount), 10) },
		set: func(c *Config, v string) error {
			return setUintKey(&c.Memory.SummaryCount, "memory.summary_count", v)
		},
	},
	"memory.pin_limit": {
		get: func(c *Config) string { return strconv.FormatUint(uint64(c.Memory.PinLimit), 10) },
		set: func(c *Config, v string) error {
			return setUintKey(&c.Memory.PinLimit, "memory.pin_limit", v)
		},
	},
	"memory.truncate_floor": {
		get: func(c *Config) string { return strconv.FormatUint(uint64(c.Memory.TruncateFloor), 10) },
		set: func(c *Config, v string) error {
			return setUintKey(&c.Memory.TruncateFloor, "memory.truncate_floor", v)
		},
	},
	"memory.token_budget": {
		get: func(c *Config) string { return strconv.FormatUint(uint64(c.Memory.TokenBudget), 10) },
		set: func(c *Config, v string) error {
			return setUintKey(&c.Memory.TokenBudget, "memory.token_budget", v)
		},
	},
	"memory.cache_ttl_seconds": {
		get: func(c *Config) string { return strconv.FormatUint(uint64(c.Memory.CacheTTLSeconds), 10) },
		set: func(c *Config, v string) error {
			return setUintKey(&c.Memory.CacheTTLSeconds, "memory.cache_ttl_seconds", v)
		},
	},
	"summarizer.threshold": {
		get: func(c *Config) string { return strconv.FormatUint(uint64(c.Summarizer.Threshold), 10) },
		set: func(c *Config, v string) error {
			return setUintKey(&c.Summarizer.Threshold, "summarizer.threshold", v)
		},
	},
	"summarizer.max_chars": {
		get: func(c *Config) string { return strconv.FormatUint(uint64(c.Summarizer.MaxChars), 10) },
		set: func(c *Config, v string) error {
			return setUintKey(&c.Summarizer.MaxChars, "summarizer.max_chars", v)
		},
	},
	"summarizer.max_ratio": {
		get: func(c *Config) string { return strconv.FormatFloat(c.Summarizer.MaxRatio, 'g', -1, 64) },
		set: func(c *Config, v string) error {
			return setFloatKey(&c.Summarizer.MaxRatio, "summarizer.max_ratio", v)
		},
	},
	"summarizer.min_overlap": {
		get: func(c *Config) string { return strconv.FormatFloat(c.Summarizer.MinOverlap, 'g', -1, 64) },
		set: func(c *Config, v string) error {
			return setFloatKey(&c.Summarizer.MinOverlap, "summarizer.min_overlap", v)
		},
	},
}

func setUintKey(target *uint, key, v string) error {
	n, err := strconv.ParseUint(v, 10, 32)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*target = uint(n)
	return nil
}

func setFloatKey(target *float64, key, v string) error {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fmt.Errorf("invalid value for %s: %w", key, err)
	}
	*target = f
	return nil
}

package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"

	"github.com/quillhealthco/keepsake/pkg/dotdir"
)

const (
	configFile = "config.toml"

	// v0 is the alpha version of the config
	v0 = 0

	// CurrentV is the currently supported version, points to v0
	CurrentV = v0
)

type Configer struct {
	ddm        *dotdir.Manager
	targetPath string
}

func NewConfiger(override string) (*Configer, error) {
	cfger := &Configer{}

	cfger.ddm = dotdir.NewManager()
	target, err := cfger.ddm.Target(override)
	if err != nil {
		return nil, err
	}

	// If no .keepsake/ directory was resolved, targetPath stays empty;
	// LoadConfig will return defaults and SaveConfig will error clearly.
	if target == "" {
		return cfger, nil
	}

	path := filepath.Join(target, configFile)
	_, err = os.Stat(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	// Always set targetPath when the directory exists so SaveConfig
	// can create or overwrite the file.
	cfger.targetPath = path

	return cfger, nil
}

// ValidConfigKeys returns the list of all supported configuration key names
// in a stable, logical order matching the TOML section layout.
func ValidConfigKeys() []string {
	ordered := []string{
		"storage.driver",
		"storage.sqlite_path",
		"storage.postgres_dsn",
		"model.provider",
		"model.model",
		"model.base_url",
		"model.timeout_seconds",
		"memory.recent_turns",
		"memory.summary_count",
		"memory.pin_limit",
		"memory.truncate_floor",
		"memory.token_budget",
		"memory.cache_ttl_seconds",
		"summarizer.threshold",
		"summarizer.max_chars",
		"summarizer.max_ratio",
		"summarizer.min_overlap",
	}

	// Sanity: only return keys that actually exist in the map, then append
	// any map keys the ordered list missed.
	result := make([]string, 0, len(configKeys))
	seen := make(map[string]bool, len(configKeys))
	for _, k := range ordered {
		if _, ok := configKeys[k]; ok {
			result = append(result, k)
			seen[k] = true
		}
	}
	for k := range configKeys {
		if !seen[k] {
			result = append(result, k)
		}
	}

	return result
}

// IsValidConfigKey returns true if the given key is a supported configuration key.
func IsValidConfigKey(key string) bool {
	_, ok := configKeys[key]
	return ok
}

func (c *Configer) GetTarget() string {
	return c.targetPath
}

// LoadConfig loads the configuration from config.toml in the target
// .keepsake/ directory. If the file does not exist, returns
// NewDefaultConfig() so callers always receive a fully-populated Config with
// sane defaults. Fields explicitly set in the file override the defaults.
func (c *Configer) LoadConfig() (*Config, error) {
	if c.targetPath == "" {
		return NewDefaultConfig(), nil
	}

	data, err := os.ReadFile(c.targetPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewDefaultConfig(), nil
		}
		return nil, fmt.Errorf("reading config: %w", err)
	}

	cfg, err := ParseConfigTOML(data)
	if err != nil {
		return nil, err
	}

	// Merge in defaults: fill in any zero-value fields from the loaded config
	applyDefaults(cfg)

	return cfg, nil
}

// applyDefaults fills zero-value fields in cfg with values from NewDefaultConfig().
func applyDefaults(cfg *Config) {
	defaults := NewDefaultConfig()

	if cfg.Version == 0 {
		cfg.Version = defaults.Version
	}

	if cfg.Storage.Driver == "" {
		cfg.Storage.Driver = defaults.Storage.Driver
	}

	if cfg.Model.Provider == "" {
		cfg.Model.Provider = defaults.Model.Provider
	}
	if cfg.Model.TimeoutSeconds == 0 {
		cfg.Model.TimeoutSeconds = defaults.Model.TimeoutSeconds
	}

	if cfg.Memory.RecentTurns == 0 {
		cfg.Memory.RecentTurns = defaults.Memory.RecentTurns
	}
	if cfg.Memory.SummaryCount == 0 {
		cfg.Memory.SummaryCount = defaults.Memory.SummaryCount
	}
	if cfg.Memory.PinLimit == 0 {
		cfg.Memory.PinLimit = defaults.Memory.PinLimit
	}
	if cfg.Memory.TruncateFloor == 0 {
		cfg.Memory.TruncateFloor = defaults.Memory.TruncateFloor
	}
	if cfg.Memory.TokenBudget == 0 {
		cfg.Memory.TokenBudget = defaults.Memory.TokenBudget
	}
	if cfg.Memory.CacheTTLSeconds == 0 {
		cfg.Memory.CacheTTLSeconds = defaults.Memory.CacheTTLSeconds
	}

	if cfg.Summarizer.Threshold == 0 {
		cfg.Summarizer.Threshold = defaults.Summarizer.Threshold
	}
	if cfg.Summarizer.MaxChars == 0 {
		cfg.Summarizer.MaxChars = defaults.Summarizer.MaxChars
	}
	if cfg.Summarizer.MaxRatio == 0 {
		cfg.Summarizer.MaxRatio = defaults.Summarizer.MaxRatio
	}
	if cfg.Summarizer.MinOverlap == 0 {
		cfg.Summarizer.MinOverlap = defaults.Summarizer.MinOverlap
	}
}

// SaveConfig persists the configuration to config.toml in the target
// .keepsake/ directory.
func (c *Configer) SaveConfig(cfg *Config) error {
	if cfg == nil {
		return errors.New("cannot save nil config")
	}

	if c.targetPath == "" {
		return errors.New("cannot save empty target path")
	}

	var buf bytes.Buffer
	encoder := toml.NewEncoder(&buf)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("encoding config: %w", err)
	}

	if err := os.WriteFile(c.targetPath, buf.Bytes(), 0o600); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}

	return nil
}

// SetConfigValue loads the config, sets the given key to the given value, and saves it.
// Returns an error if the key is not a valid config key.
func (c *Configer) SetConfigValue(key string, value string) error {
	info, ok := configKeys[key]
	if !ok {
		return fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return err
	}

	if err := info.set(cfg, value); err != nil {
		return err
	}

	return c.SaveConfig(cfg)
}

// GetConfigValue loads the config and returns the string representation of the given key.
// Returns an error if the key is not a valid config key.
func (c *Configer) GetConfigValue(key string) (string, error) {
	info, ok := configKeys[key]
	if !ok {
		return "", fmt.Errorf("unknown config key: %q", key)
	}

	cfg, err := c.LoadConfig()
	if err != nil {
		return "", err
	}

	return info.get(cfg), nil
}

// PresetConfig returns a Config with sane defaults for the named provider preset.
// Supported presets: "openai", "anthropic", "ollama".
// Returns an error if the preset name is not recognized.
func PresetConfig(name string) (*Config, error) {
	base := NewDefaultConfig()

	switch strings.ToLower(name) {
	case "openai":
		base.Model = ModelConfig{
			Provider:       "openai",
			Model:          "gpt-4o-mini",
			BaseURL:        "https://api.openai.com",
			TimeoutSeconds: defaultTimeoutSeconds,
		}
		return base, nil

	case "anthropic":
		base.Model = ModelConfig{
			Provider:       "anthropic",
			Model:          "claude-haiku-4-5-20251001",
			BaseURL:        "https://api.anthropic.com",
			TimeoutSeconds: defaultTimeoutSeconds,
		}
		return base, nil

	case "ollama":
		base.Model = ModelConfig{
			Provider:       "ollama",
			Model:          "llama3.2",
			BaseURL:        "http://localhost:11434",
			TimeoutSeconds: defaultTimeoutSeconds,
		}
		return base, nil

	default:
		return nil, fmt.Errorf("unknown preset: %q (available: openai, anthropic, ollama)", name)
	}
}

// ValidPresetNames returns the list of recognized preset names.
func ValidPresetNames() []string {
	return []string{"openai", "anthropic", "ollama"}
}

// ParseConfigTOML parses raw TOML bytes into a Config.
// Returns an error if the version field is present and not equal to CurrentV.
func ParseConfigTOML(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config TOML: %w", err)
	}

	if cfg.Version != 0 && cfg.Version != CurrentV {
		return nil, fmt.Errorf("unsupported config version %d (expected %d)", cfg.Version, CurrentV)
	}

	return cfg, nil
}

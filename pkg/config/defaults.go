package config

const (
	defaultStorageDriver = "sqlite"

	defaultProvider       = "ollama"
	defaultTimeoutSeconds = 30

	defaultRecentTurns     = 10
	defaultSummaryCount    = 3
	defaultPinLimit        = 20
	defaultTruncateFloor   = 3
	defaultTokenBudget     = 2048
	defaultCacheTTLSeconds = 30

	defaultSummarizeThreshold = 8
	defaultSummaryMaxChars    = 1200
	defaultSummaryMaxRatio    = 0.5
	defaultSummaryMinOverlap  = 0.3
)

// NewDefaultConfig returns a Config with sane defaults for all fields.
// This is the single source of truth for default values.
func NewDefaultConfig() *Config {
	return &Config{
		Version: CurrentV,
		Storage: StorageConfig{
			Driver: defaultStorageDriver,
		},
		Model: ModelConfig{
			Provider:       defaultProvider,
			TimeoutSeconds: defaultTimeoutSeconds,
		},
		Memory: MemoryConfig{
			RecentTurns:     defaultRecentTurns,
			SummaryCount:    defaultSummaryCount,
			PinLimit:        defaultPinLimit,
			TruncateFloor:   defaultTruncateFloor,
			TokenBudget:     defaultTokenBudget,
			CacheTTLSeconds: defaultCacheTTLSeconds,
		},
		Summarizer: SummarizerConfig{
			Threshold:  defaultSummarizeThreshold,
			MaxChars:   defaultSummaryMaxChars,
			MaxRatio:   defaultSummaryMaxRatio,
			MinOverlap: defaultSummaryMinOverlap,
		},
	}
}

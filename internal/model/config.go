package model

import "time"

// Config is the full runtime configuration, assembled from defaults, the
// config file, BOARDWATCH_* environment variables, and CLI flags.
type Config struct {
	LLM     LLMConfig     `yaml:"llm"`
	Cache   CacheConfig   `yaml:"cache"`
	Rate    RateConfig    `yaml:"rate"`
	Store   StoreConfig   `yaml:"store"`
	Data    DataConfig    `yaml:"data"`
	Publish PublishConfig `yaml:"publish"`
}

// LLMConfig selects and configures the model backend.
type LLMConfig struct {
	Provider  string `yaml:"provider"`
	Model     string `yaml:"model"`
	APIKey    string `yaml:"api_key,omitempty"`
	BaseURL   string `yaml:"base_url,omitempty"`
	Timeout   int    `yaml:"timeout_seconds"`
	MaxTokens int    `yaml:"max_tokens"`
}

// CacheConfig controls the extraction cache.
type CacheConfig struct {
	Dir string `yaml:"dir"`
}

// RateConfig controls minimum spacing between model calls. Zero values fall
// back to per-provider defaults.
type RateConfig struct {
	ExtractInterval     time.Duration `yaml:"extract_interval"`
	ConsolidateInterval time.Duration `yaml:"consolidate_interval"`
}

// StoreConfig configures the SQLite persistence collaborator. An empty Path
// selects file-only mode.
type StoreConfig struct {
	Path string `yaml:"path"`
}

// DataConfig locates the input and output directories.
type DataConfig struct {
	Dir         string `yaml:"dir"`
	ContextFile string `yaml:"context_file"`
}

// PublishConfig configures the Ghost Admin API collaborator.
type PublishConfig struct {
	GhostURL      string `yaml:"ghost_url,omitempty"`
	GhostAdminKey string `yaml:"ghost_admin_key,omitempty"`
	Footer        bool   `yaml:"footer"`
}

// Per-provider minimum spacing between model calls. The upstream APIs
// enforce requests-per-minute ceilings; consolidation waits longer because
// the Phase 2 prompt is large and the token bucket needs to refill.
var (
	extractIntervals = map[string]time.Duration{
		"anthropic": 30 * time.Second,
		"openai":    60 * time.Second,
	}
	consolidateIntervals = map[string]time.Duration{
		"anthropic": 120 * time.Second,
		"openai":    90 * time.Second,
	}
)

// ExtractIntervalFor returns the configured or default Phase 1 spacing for
// a provider.
func (c RateConfig) ExtractIntervalFor(provider string) time.Duration {
	if c.ExtractInterval > 0 {
		return c.ExtractInterval
	}
	if d, ok := extractIntervals[provider]; ok {
		return d
	}
	return 60 * time.Second
}

// ConsolidateIntervalFor returns the configured or default Phase 2 spacing.
func (c RateConfig) ConsolidateIntervalFor(provider string) time.Duration {
	if c.ConsolidateInterval > 0 {
		return c.ConsolidateInterval
	}
	if d, ok := consolidateIntervals[provider]; ok {
		return d
	}
	return 90 * time.Second
}

// DefaultConfig returns sensible defaults for a checkout-local data layout.
func DefaultConfig() *Config {
	return &Config{
		LLM: LLMConfig{
			Provider:  "anthropic",
			Timeout:   300,
			MaxTokens: 4000,
		},
		Cache: CacheConfig{Dir: "data/extracts"},
		Data: DataConfig{
			Dir:         "data",
			ContextFile: "project_context.md",
		},
		Publish: PublishConfig{Footer: true},
	}
}

// DefaultModelFor returns the default model identifier for a provider.
func DefaultModelFor(provider string) string {
	switch provider {
	case "openai":
		return "gpt-4o"
	default:
		return "claude-sonnet-4-5-20250514"
	}
}

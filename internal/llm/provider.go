package llm

import "context"

// Provider defines the interface for LLM backends. Extraction and
// consolidation share the one generate contract; backend-specific auth and
// transport live behind it.
type Provider interface {
	// Name returns the provider name
	Name() string

	// Generate sends one prompt to the model and returns its raw text
	Generate(ctx context.Context, req GenerateRequest) (*GenerateResponse, error)

	// IsAvailable checks if the provider is properly configured and accessible
	IsAvailable(ctx context.Context) bool
}

// GenerateRequest contains the input for one model call.
type GenerateRequest struct {
	// System carries the fixed instructions (domain context + phase prompt)
	System string

	// Prompt is the per-call user content (documents, extracts, history)
	Prompt string

	// Model overrides the provider's configured model when set
	Model string

	// MaxTokens limits the response length
	MaxTokens int
}

// GenerateResponse contains the model's output.
type GenerateResponse struct {
	// Text is the raw generated text
	Text string

	// Model is the model that generated the response
	Model string

	// TokensUsed tracks token consumption
	TokensUsed int
}

// Config holds LLM provider configuration.
type Config struct {
	// Provider name: "openai", "anthropic", "ollama"
	Provider string

	// Model name (provider-specific)
	Model string

	// APIKey for OpenAI/Anthropic
	APIKey string

	// BaseURL for custom endpoints (e.g., Ollama)
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// MaxTokens for response generation
	MaxTokens int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Provider:  "anthropic",
		Timeout:   300,
		MaxTokens: 4000,
	}
}

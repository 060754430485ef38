package llm

import "time"

// Provider drivers
const (
	DriverOpenAI    = "openai"
	DriverAnthropic = "anthropic"
)

const defaultTimeout = 30 * time.Second

// ProviderConfig configures the single-provider default path.
type ProviderConfig struct {
	Driver  string        // "openai" or "anthropic"
	APIKey  string        // empty means the upstream decides (usually 401)
	BaseURL string        // empty for the vendor default
	Model   string        // e.g. "gpt-3.5-turbo"
	Timeout time.Duration // per-call timeout, 30s when zero
}

func (c ProviderConfig) timeout() time.Duration {
	if c.Timeout <= 0 {
		return defaultTimeout
	}
	return c.Timeout
}

// ChatRequest is one single-turn chat completion: a system instruction and
// the user's message.
type ChatRequest struct {
	Model        string
	SystemPrompt string
	UserMessage  string
	MaxTokens    int
	Temperature  float64
}

// Package llm - Provider factory
package llm

import "fmt"

// NewProvider creates the default-path provider from config.
// Dispatches to the appropriate constructor based on cfg.Driver.
func NewProvider(cfg ProviderConfig) (Provider, error) {
	switch cfg.Driver {
	case DriverOpenAI, "":
		return NewOpenAIProvider(cfg)
	case DriverAnthropic:
		return NewAnthropicProvider(cfg)
	default:
		return nil, fmt.Errorf("unknown provider driver: %s", cfg.Driver)
	}
}

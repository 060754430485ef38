// Package config loads the relay configuration: built-in defaults, an
// optional TOML file, a .env file and finally environment variables.
// The loaded Config is treated as read-only for the life of the process.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/roelfdiedericks/nexusrelay/internal/logging"
)

// Default provider drivers
const (
	DriverOpenAI    = "openai"
	DriverAnthropic = "anthropic"
)

// Config is the root of nexusrelay.toml
type Config struct {
	Server     ServerConfig     `toml:"server"`
	Relay      RelayConfig      `toml:"relay"`
	Cascade    CascadeConfig    `toml:"cascade"`
	Default    DefaultConfig    `toml:"default"`
	Completion CompletionConfig `toml:"completion"`
	Logging    LoggingConfig    `toml:"logging"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Listen       string   `toml:"listen"`
	CORSOrigins  []string `toml:"cors_origins"`
	RateLimit    float64  `toml:"rate_limit"` // requests/second per client IP, 0 = unlimited
	RateBurst    int      `toml:"rate_burst"`
	MaxBodyBytes int64    `toml:"max_body_bytes"`
}

// RelayConfig holds the mode flags
type RelayConfig struct {
	MockMode     bool   `toml:"mock_mode"`
	UseAlternate bool   `toml:"use_alternate"` // route through the model cascade
	Language     string `toml:"language"`      // language of degraded replies
}

// CascadeConfig describes the multi-model path
type CascadeConfig struct {
	Endpoint          string   `toml:"endpoint"`
	Token             string   `toml:"token"`
	PreferredModel    string   `toml:"preferred_model"`
	PreferredPosition int      `toml:"preferred_position"` // 1-based slot for PreferredModel, 0 keeps the default
	Models            []string `toml:"models"`
	MaxAttempts       int      `toml:"max_attempts"` // per model
	RetryDelayMs      int      `toml:"retry_delay_ms"`
	TimeoutSeconds    int      `toml:"timeout_seconds"`
}

// DefaultConfig describes the single-provider path
type DefaultConfig struct {
	Driver         string `toml:"driver"` // "openai" or "anthropic"
	APIKey         string `toml:"api_key"`
	BaseURL        string `toml:"base_url"`
	Model          string `toml:"model"` // empty picks the driver's default
	TimeoutSeconds int    `toml:"timeout_seconds"`
}

// CompletionConfig is shared by every upstream call
type CompletionConfig struct {
	SystemPrompt string  `toml:"system_prompt"`
	MaxTokens    int     `toml:"max_tokens"`
	Temperature  float64 `toml:"temperature"`
}

// LoggingConfig maps onto logging.Config
type LoggingConfig struct {
	Level      string `toml:"level"`
	Format     string `toml:"format"`
	TimeFormat string `toml:"time_format"`
	ShowCaller bool   `toml:"show_caller"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Listen:       ":3000",
			CORSOrigins:  []string{"*"},
			RateBurst:    10,
			MaxBodyBytes: 1 << 20,
		},
		Relay: RelayConfig{
			Language: "fr",
		},
		Cascade: CascadeConfig{
			Endpoint:          "https://router.huggingface.co/v1/chat/completions",
			PreferredModel:    "Qwen/Qwen2.5-1.5B-Instruct",
			PreferredPosition: 4,
			Models: []string{
				"mistralai/Mistral-7B-Instruct-v0.2",
				"Qwen/Qwen2.5-1.5B-Instruct",
				"google/gemma-2-2b-it",
				"TinyLlama/TinyLlama-1.1B-Chat-v1.0",
				"google/flan-t5-small",
				"google/flan-t5-base",
			},
			MaxAttempts:    2,
			RetryDelayMs:   1200,
			TimeoutSeconds: 30,
		},
		Default: DefaultConfig{
			Driver:         DriverOpenAI,
			TimeoutSeconds: 30,
		},
		Completion: CompletionConfig{
			SystemPrompt: "You are a helpful assistant.",
			MaxTokens:    256,
			Temperature:  0,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     logging.FormatText,
			TimeFormat: "15:04:05",
		},
	}
}

// Candidates returns the cascade's model list in attempt order with the
// preferred model inserted at its configured slot. Blank entries are dropped
// and duplicates are kept. A fresh slice is returned on every call.
func (c CascadeConfig) Candidates() []string {
	out := make([]string, 0, len(c.Models)+1)
	for _, m := range c.Models {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	preferred := strings.TrimSpace(c.PreferredModel)
	if preferred == "" {
		return out
	}
	idx := c.PreferredPosition - 1
	if idx < 0 {
		idx = 0
	}
	if idx > len(out) {
		idx = len(out)
	}
	out = append(out, "")
	copy(out[idx+1:], out[idx:])
	out[idx] = preferred
	return out
}

// RetryDelay returns the back-off between attempts on one model.
func (c CascadeConfig) RetryDelay() time.Duration {
	return time.Duration(c.RetryDelayMs) * time.Millisecond
}

// Timeout returns the per-call timeout of the cascade.
func (c CascadeConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// Timeout returns the per-call timeout of the default provider.
func (c DefaultConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// MaxRelayDuration is the longest one relayed message can take when every
// upstream call runs into its timeout: each candidate gets MaxAttempts calls
// with RetryDelay between them. A cascade without candidates falls back to
// one default call.
func (c *Config) MaxRelayDuration() time.Duration {
	switch c.Mode() {
	case "mock":
		return 0
	case "cascade":
		candidates := len(c.Cascade.Candidates())
		if candidates == 0 {
			return c.Default.Timeout()
		}
		attempts := c.Cascade.MaxAttempts
		if attempts < 1 {
			attempts = 1
		}
		perModel := time.Duration(attempts)*c.Cascade.Timeout() + time.Duration(attempts-1)*c.Cascade.RetryDelay()
		return time.Duration(candidates) * perModel
	default:
		return c.Default.Timeout()
	}
}

// Mode names the path the relay takes for every request.
func (c *Config) Mode() string {
	switch {
	case c.Relay.MockMode:
		return "mock"
	case c.Relay.UseAlternate:
		return "cascade"
	default:
		return "default"
	}
}

// LoggingConfig converts the logging section for logging.Init.
func (c *Config) LoggingConfig() *logging.Config {
	level, err := logging.ParseLevel(c.Logging.Level)
	if err != nil {
		level = logging.LevelInfo
	}
	return &logging.Config{
		Level:      level,
		TimeFormat: c.Logging.TimeFormat,
		ShowCaller: c.Logging.ShowCaller,
		Format:     c.Logging.Format,
	}
}

// Validate rejects configurations the relay cannot run with.
func (c *Config) Validate() error {
	if c.Cascade.MaxAttempts < 1 {
		return fmt.Errorf("cascade.max_attempts must be >= 1, got %d", c.Cascade.MaxAttempts)
	}
	if c.Cascade.RetryDelayMs < 0 {
		return fmt.Errorf("cascade.retry_delay_ms must not be negative, got %d", c.Cascade.RetryDelayMs)
	}
	if c.Cascade.TimeoutSeconds < 1 {
		return fmt.Errorf("cascade.timeout_seconds must be >= 1, got %d", c.Cascade.TimeoutSeconds)
	}
	if c.Default.TimeoutSeconds < 1 {
		return fmt.Errorf("default.timeout_seconds must be >= 1, got %d", c.Default.TimeoutSeconds)
	}
	switch c.Default.Driver {
	case DriverOpenAI, DriverAnthropic:
	default:
		return fmt.Errorf("unknown default.driver: %s", c.Default.Driver)
	}
	if c.Completion.MaxTokens < 1 {
		return fmt.Errorf("completion.max_tokens must be >= 1, got %d", c.Completion.MaxTokens)
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return err
	}
	if !logging.ValidFormat(c.Logging.Format) {
		return fmt.Errorf("unknown logging.format: %s", c.Logging.Format)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rate_limit must not be negative")
	}
	return nil
}

// Package relay turns one user message into exactly one Result, choosing
// between mock mode, the model cascade and the single default provider.
package relay

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/roelfdiedericks/nexusrelay/internal/config"
	"github.com/roelfdiedericks/nexusrelay/internal/llm"
	. "github.com/roelfdiedericks/nexusrelay/internal/logging"
	. "github.com/roelfdiedericks/nexusrelay/internal/metrics"
)

// MockPrefix is prepended to the echoed message in mock mode.
const MockPrefix = "MOCK: "

// Relay is safe for concurrent use. Everything that drives a decision
// (candidate list, attempt counters, back-off timers) is local to a call.
type Relay struct {
	cfg      *config.Config
	cascade  llm.Provider
	fallback llm.Provider
	messages *Messages
	timer    backoff.Timer // nil uses real time
}

// Option customizes a Relay.
type Option func(*Relay)

// WithCascadeProvider replaces the chat-completion client used by the cascade.
func WithCascadeProvider(p llm.Provider) Option {
	return func(r *Relay) {
		r.cascade = p
	}
}

// WithDefaultProvider replaces the single-provider default path.
func WithDefaultProvider(p llm.Provider) Option {
	return func(r *Relay) {
		r.fallback = p
	}
}

// WithTimer overrides how back-off waits are performed (useful for tests).
func WithTimer(t backoff.Timer) Option {
	return func(r *Relay) {
		r.timer = t
	}
}

// New builds a relay from configuration. Providers not injected through
// options are constructed from cfg.
func New(cfg *config.Config, opts ...Option) (*Relay, error) {
	if cfg == nil {
		cfg = config.Defaults()
	}
	r := &Relay{cfg: cfg}
	for _, opt := range opts {
		opt(r)
	}

	if r.cascade == nil {
		r.cascade = llm.NewCompletionClient(cfg.Cascade.Endpoint, cfg.Cascade.Token, cfg.Cascade.Timeout())
	}
	if r.fallback == nil {
		p, err := llm.NewProvider(llm.ProviderConfig{
			Driver:  cfg.Default.Driver,
			APIKey:  cfg.Default.APIKey,
			BaseURL: cfg.Default.BaseURL,
			Model:   cfg.Default.Model,
			Timeout: cfg.Default.Timeout(),
		})
		if err != nil {
			return nil, fmt.Errorf("default provider: %w", err)
		}
		r.fallback = p
	}
	r.messages = NewMessages(cfg.Relay.Language)

	L_debug("relay: created", "mode", cfg.Mode(), "language", r.messages.Language(), "default", r.fallback.Name())
	return r, nil
}

// Mode names the path every request takes: mock, cascade or default.
func (r *Relay) Mode() string {
	return r.cfg.Mode()
}

// MaxDuration bounds how long Handle can run before it returns.
func (r *Relay) MaxDuration() time.Duration {
	return r.cfg.MaxRelayDuration()
}

// Candidates returns the cascade's models in attempt order.
func (r *Relay) Candidates() []string {
	return r.cfg.Cascade.Candidates()
}

// Handle relays one message. It always returns exactly one Result; an empty
// message is forwarded as is.
func (r *Relay) Handle(ctx context.Context, message string) Result {
	start := time.Now()
	res := r.handle(ctx, message)

	MetricOutcome("relay", "result", res.Kind.String())
	MetricAdd("upstream", "calls", int64(res.Attempts))
	MetricDuration("relay", r.Mode(), time.Since(start))
	L_info("relay: done",
		"request_id", RequestID(ctx),
		"mode", r.Mode(),
		"result", res.Kind.String(),
		"status", res.HTTPStatus(),
		"model", res.Model,
		"attempts", res.Attempts,
		"elapsed", time.Since(start).Round(time.Millisecond))
	return res
}

func (r *Relay) handle(ctx context.Context, message string) Result {
	switch {
	case r.cfg.Relay.MockMode:
		return Reply(MockPrefix + message)
	case r.cfg.Relay.UseAlternate:
		if res, ok := r.runCascade(ctx, message); ok {
			return res
		}
		L_warn("relay: no cascade candidates configured, using default provider", "request_id", RequestID(ctx))
	}
	return r.runDefault(ctx, message)
}

// chatRequest builds the single-turn request shared by both paths.
func (r *Relay) chatRequest(model, message string) llm.ChatRequest {
	return llm.ChatRequest{
		Model:        model,
		SystemPrompt: r.cfg.Completion.SystemPrompt,
		UserMessage:  message,
		MaxTokens:    r.cfg.Completion.MaxTokens,
		Temperature:  r.cfg.Completion.Temperature,
	}
}

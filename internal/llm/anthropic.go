package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	. "github.com/roelfdiedericks/nexusrelay/internal/logging"
)

const defaultAnthropicModel = "claude-3-5-haiku-latest"

// AnthropicProvider implements Provider for Anthropic's Messages API.
// Also works with Anthropic-compatible APIs via BaseURL.
type AnthropicProvider struct {
	client  *anthropic.Client
	model   string
	timeout time.Duration
}

// NewAnthropicProvider creates an Anthropic provider from ProviderConfig.
// SDK retries are disabled: the default path makes exactly one call.
func NewAnthropicProvider(cfg ProviderConfig) (*AnthropicProvider, error) {
	if cfg.APIKey == "" {
		L_warn("anthropic: no API key configured, upstream will likely answer 401")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithHTTPClient(&http.Client{Transport: &CapturingTransport{}}),
		option.WithMaxRetries(0),
	}
	baseURL := strings.TrimSpace(cfg.BaseURL)
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	client := anthropic.NewClient(opts...)

	model := cfg.Model
	if model == "" {
		model = defaultAnthropicModel
	}

	if baseURL == "" {
		baseURL = "(default)"
	}
	L_debug("anthropic provider created", "baseURL", baseURL, "model", model, "timeout", cfg.timeout())

	return &AnthropicProvider{
		client:  &client,
		model:   model,
		timeout: cfg.timeout(),
	}, nil
}

// Name implements Provider
func (p *AnthropicProvider) Name() string {
	return DriverAnthropic
}

// Model returns the model used when the request names none.
func (p *AnthropicProvider) Model() string {
	return p.model
}

// Complete implements Provider
func (p *AnthropicProvider) Complete(ctx context.Context, req ChatRequest) ([]byte, error) {
	model := req.Model
	if model == "" {
		model = p.model
	}

	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(model),
		MaxTokens:   int64(req.MaxTokens),
		Messages:    []anthropic.MessageParam{anthropic.NewUserMessage(anthropic.NewTextBlock(req.UserMessage))},
		Temperature: anthropic.Float(req.Temperature),
	}
	if req.SystemPrompt != "" {
		params.System = []anthropic.TextBlockParam{{Text: req.SystemPrompt}}
	}

	capture := NewRequestCapture()
	ctx = WithRequestCapture(ctx, capture)
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	msg, err := p.client.Messages.New(ctx, params)
	if err != nil {
		var status int
		var body []byte
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			status = apiErr.StatusCode
			body = []byte(apiErr.RawJSON())
		}
		if capStatus, capBody := capture.Failure(); capStatus != 0 {
			status = capStatus
			if len(capBody) > 0 {
				body = capBody
			}
		}
		return nil, newUpstreamError(p.Name(), model, status, body, err)
	}

	if status, body := capture.Response(); status >= 200 && status < 300 && len(body) > 0 {
		return body, nil
	}
	return []byte(msg.RawJSON()), nil
}

package relay

import (
	"context"
	"time"

	"github.com/roelfdiedericks/nexusrelay/internal/llm"
	. "github.com/roelfdiedericks/nexusrelay/internal/logging"
	. "github.com/roelfdiedericks/nexusrelay/internal/metrics"
)

// runDefault makes exactly one call to the default provider.
func (r *Relay) runDefault(ctx context.Context, message string) Result {
	reqID := RequestID(ctx)
	start := time.Now()
	body, err := r.fallback.Complete(ctx, r.chatRequest(r.cfg.Default.Model, message))
	MetricDuration("upstream", "default", time.Since(start))

	if err == nil {
		res := Reply(llm.NormalizeReply(body))
		res.Model = r.defaultModel()
		res.Attempts = 1
		return res
	}

	upErr := llm.AsUpstreamError(r.fallback.Name(), r.defaultModel(), err)
	MetricError("upstream", "default", string(upErr.Type()))

	if llm.ClassifyDefault(upErr.StatusCode, upErr.Payload) == llm.ActionDegrade {
		L_warn("default: quota or rate limit, answering degraded",
			"request_id", reqID,
			"provider", r.fallback.Name(),
			"status", upErr.StatusCode,
			"payload", Snippet(upErr.Payload, 300))
		res := Degraded(r.messages.Quota(r.fallback.Name()))
		res.Model = upErr.Model
		res.Attempts = 1
		return res
	}

	L_error("default: upstream error",
		"request_id", reqID,
		"provider", r.fallback.Name(),
		"status", upErr.StatusCode,
		"payload", Snippet(upErr.Payload, 300),
		"error", upErr.Err)
	res := FromUpstream(upErr)
	res.Attempts = 1
	return res
}

// defaultModel is the configured model, or the provider's own default.
func (r *Relay) defaultModel() string {
	if r.cfg.Default.Model != "" {
		return r.cfg.Default.Model
	}
	if m, ok := r.fallback.(interface{ Model() string }); ok {
		return m.Model()
	}
	return ""
}

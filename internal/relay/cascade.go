package relay

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/roelfdiedericks/nexusrelay/internal/llm"
	. "github.com/roelfdiedericks/nexusrelay/internal/logging"
	. "github.com/roelfdiedericks/nexusrelay/internal/metrics"
)

// runCascade tries each candidate model in order. The second return is false
// when there are no candidates at all, so the caller can fall through.
func (r *Relay) runCascade(ctx context.Context, message string) (Result, bool) {
	candidates := r.Candidates()
	if len(candidates) == 0 {
		return Result{}, false
	}

	reqID := RequestID(ctx)
	primary := candidates[0]
	total := 0
	var lastErr *llm.UpstreamError

	for i, model := range candidates {
		body, attempts, err := r.tryModel(ctx, r.chatRequest(model, message))
		total += attempts

		if err == nil {
			if i > 0 {
				L_info("cascade: using fallback model", "request_id", reqID, "model", model, "primary", primary, "position", i+1)
			}
			MetricOutcome("cascade", "model", model)
			res := Reply(llm.NormalizeReply(body))
			res.Model = model
			res.Attempts = total
			return res, true
		}

		upErr := llm.AsUpstreamError(r.cascade.Name(), model, err)
		MetricError("upstream", "cascade", string(upErr.Type()))

		if ctx.Err() != nil {
			L_warn("cascade: request cancelled, stopping", "request_id", reqID, "model", model, "error", ctx.Err())
			res := FromUpstream(upErr)
			res.Attempts = total
			return res, true
		}

		if llm.ExhaustedAction(upErr.StatusCode) == llm.ActionSkip {
			L_warn("cascade: trying next model",
				"request_id", reqID,
				"failed", model,
				"status", upErr.StatusCode,
				"reason", upErr.Type(),
				"attempts", attempts,
				"payload", Snippet(upErr.Payload, 300))
			lastErr = upErr
			continue
		}

		if llm.ClassifyDefault(upErr.StatusCode, upErr.Payload) == llm.ActionDegrade {
			L_warn("cascade: quota or rate limit, answering degraded",
				"request_id", reqID,
				"model", model,
				"status", upErr.StatusCode,
				"payload", Snippet(upErr.Payload, 300))
			res := Degraded(r.messages.Quota(r.cascade.Name()))
			res.Model = model
			res.Attempts = total
			return res, true
		}

		L_error("cascade: fatal upstream error, stopping",
			"request_id", reqID,
			"model", model,
			"status", upErr.StatusCode,
			"payload", Snippet(upErr.Payload, 300))
		res := FromUpstream(upErr)
		res.Attempts = total
		return res, true
	}

	L_warn("cascade: all models failed, answering degraded",
		"request_id", reqID,
		"candidates", len(candidates),
		"attempts", total,
		"last_model", lastErr.Model,
		"last_status", lastErr.StatusCode)
	res := Degraded(r.messages.Unavailable(message))
	res.Attempts = total
	return res, true
}

// tryModel calls one model, retrying transient statuses with a constant
// back-off up to the configured attempt count. It returns the raw body on
// success, the number of calls made, and the last upstream error otherwise.
func (r *Relay) tryModel(ctx context.Context, req llm.ChatRequest) ([]byte, int, error) {
	var body []byte
	var lastErr error
	attempts := 0

	op := func() error {
		attempts++
		start := time.Now()
		b, err := r.cascade.Complete(ctx, req)
		MetricDuration("upstream", "cascade", time.Since(start))
		if err == nil {
			body = b
			return nil
		}
		lastErr = err

		upErr := llm.AsUpstreamError(r.cascade.Name(), req.Model, err)
		if llm.ClassifyCascade(upErr.StatusCode) != llm.ActionRetry || ctx.Err() != nil {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		L_warn("cascade: transient error, retrying same model",
			"request_id", RequestID(ctx),
			"model", req.Model,
			"attempt", attempts,
			"wait", wait,
			"error", err)
	}

	maxAttempts := r.cfg.Cascade.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	bo := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(r.cfg.Cascade.RetryDelay()), uint64(maxAttempts-1)),
		ctx,
	)

	if err := backoff.RetryNotifyWithTimer(op, bo, notify, r.timer); err != nil {
		if lastErr == nil {
			lastErr = err
		}
		return nil, attempts, lastErr
	}
	return body, attempts, nil
}

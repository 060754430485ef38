// Package llm provides the upstream chat-completion providers and the
// pure helpers that classify and normalize what they return.
package llm

import (
	"strings"

	"github.com/tidwall/gjson"
)

// ErrorType labels an upstream failure for logs and user messaging.
type ErrorType string

const (
	ErrorTypeUnknown    ErrorType = "unknown"
	ErrorTypeTimeout    ErrorType = "timeout"
	ErrorTypeOverloaded ErrorType = "overloaded"
	ErrorTypeModel      ErrorType = "model_unavailable" // bad request, unknown or retired model
	ErrorTypeRateLimit  ErrorType = "rate_limit"
	ErrorTypeQuota      ErrorType = "quota"
	ErrorTypeAuth       ErrorType = "auth"
	ErrorTypeServer     ErrorType = "server"
)

// Action is what the relay does with a failed upstream call.
type Action int

const (
	ActionFatal   Action = iota // propagate the upstream status and payload
	ActionRetry                 // retry the same model after a back-off
	ActionSkip                  // move on to the next candidate model
	ActionDegrade               // answer 200 with a degraded reply
)

func (a Action) String() string {
	switch a {
	case ActionRetry:
		return "retry"
	case ActionSkip:
		return "skip"
	case ActionDegrade:
		return "degrade"
	default:
		return "fatal"
	}
}

// IsTransientStatus reports whether a status is worth retrying on the same model.
// 524 is the Cloudflare origin timeout some inference routers return.
func IsTransientStatus(status int) bool {
	switch status {
	case 408, 503, 504, 524:
		return true
	}
	return false
}

// IsModelStatus reports whether a status means this model cannot serve the
// request but another one might.
func IsModelStatus(status int) bool {
	switch status {
	case 400, 404, 410:
		return true
	}
	return false
}

// ClassifyCascade maps a status seen in the cascade to an action.
// Transient statuses retry; once the retries run out the caller treats them as
// a skip via ExhaustedAction.
func ClassifyCascade(status int) Action {
	switch {
	case IsTransientStatus(status):
		return ActionRetry
	case IsModelStatus(status):
		return ActionSkip
	default:
		return ActionFatal
	}
}

// ExhaustedAction is the action for a status once the per-model attempts are used up.
func ExhaustedAction(status int) Action {
	if a := ClassifyCascade(status); a != ActionRetry {
		return a
	}
	return ActionSkip
}

// ClassifyDefault maps a failure of the single-provider path to an action.
// Rate limiting and quota exhaustion degrade, everything else propagates.
func ClassifyDefault(status int, payload []byte) Action {
	if status == 429 || IsQuotaPayload(payload) {
		return ActionDegrade
	}
	return ActionFatal
}

// IsQuotaPayload reports whether an error payload signals an exhausted quota,
// as OpenAI-style APIs report it in error.code or error.type.
func IsQuotaPayload(payload []byte) bool {
	if len(payload) == 0 || !gjson.ValidBytes(payload) {
		return false
	}
	for _, path := range []string{"error.code", "error.type"} {
		if gjson.GetBytes(payload, path).String() == "insufficient_quota" {
			return true
		}
	}
	return false
}

// ClassifyStatus labels a failure for logging.
func ClassifyStatus(status int, payload []byte) ErrorType {
	switch {
	case IsQuotaPayload(payload):
		return ErrorTypeQuota
	case status == 408 || status == 504 || status == 524:
		return ErrorTypeTimeout
	case status == 503:
		return ErrorTypeOverloaded
	case IsModelStatus(status):
		return ErrorTypeModel
	case status == 429:
		return ErrorTypeRateLimit
	case status == 401 || status == 403:
		return ErrorTypeAuth
	case status >= 500:
		return ErrorTypeServer
	default:
		return ErrorTypeUnknown
	}
}

// IsTimeoutMessage checks if a transport error message indicates a timeout.
func IsTimeoutMessage(msg string) bool {
	if msg == "" {
		return false
	}
	lower := strings.ToLower(msg)
	return strings.Contains(lower, "timeout") ||
		strings.Contains(lower, "timed out") ||
		strings.Contains(lower, "deadline exceeded")
}

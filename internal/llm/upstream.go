package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/tidwall/sjson"
)

// UpstreamError is a failed upstream call: the status the upstream answered
// with and its body, kept verbatim so callers can pass it through.
type UpstreamError struct {
	Provider   string
	Model      string
	StatusCode int
	Payload    []byte
	Err        error // transport or SDK error, nil for plain HTTP failures
}

func (e *UpstreamError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s %s: http %d: %v", e.Provider, e.Model, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s %s: http %d", e.Provider, e.Model, e.StatusCode)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Type labels the failure for logs.
func (e *UpstreamError) Type() ErrorType {
	return ClassifyStatus(e.StatusCode, e.Payload)
}

// newUpstreamError fills in what the upstream did not tell us: a call that
// timed out on our side counts as 408, any other call without a status as 500,
// and a missing payload becomes {"error": "<message>"}.
func newUpstreamError(provider, model string, status int, payload []byte, err error) *UpstreamError {
	if status == 0 {
		status = http.StatusInternalServerError
		if isTimeout(err) {
			status = http.StatusRequestTimeout
		}
	}
	if len(payload) == 0 {
		msg := http.StatusText(status)
		if err != nil {
			msg = err.Error()
		}
		payload = ErrorPayload(msg)
	}
	return &UpstreamError{
		Provider:   provider,
		Model:      model,
		StatusCode: status,
		Payload:    payload,
		Err:        err,
	}
}

// ErrorPayload renders {"error": msg}.
func ErrorPayload(msg string) []byte {
	out, err := sjson.SetBytes([]byte(`{}`), "error", msg)
	if err != nil {
		return []byte(`{"error":"unknown error"}`)
	}
	return out
}

// AsUpstreamError converts any provider error into an UpstreamError.
func AsUpstreamError(provider, model string, err error) *UpstreamError {
	var upErr *UpstreamError
	if errors.As(err, &upErr) {
		return upErr
	}
	return newUpstreamError(provider, model, 0, nil, err)
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return IsTimeoutMessage(err.Error())
}

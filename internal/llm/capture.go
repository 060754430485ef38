package llm

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"sync"

	. "github.com/roelfdiedericks/nexusrelay/internal/logging"
)

// maxCaptureBytes bounds how much of a response body is buffered.
const maxCaptureBytes = 8 << 20

// RequestCapture holds the raw exchange of one upstream call.
// SDK clients hide the response body behind their own types; the capture
// keeps it so it can be passed through verbatim.
type RequestCapture struct {
	mu       sync.Mutex
	url      string
	request  []byte
	response []byte
	status   int
}

// NewRequestCapture returns an empty capture.
func NewRequestCapture() *RequestCapture {
	return &RequestCapture{}
}

// Response returns the captured status and response body.
func (c *RequestCapture) Response() (int, []byte) {
	if c == nil {
		return 0, nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status, c.response
}

// Failure returns the captured status and body when the upstream answered
// with a non-2xx status, and 0 otherwise. The captured status is what went
// over the wire, so it wins over whatever an SDK error reports.
func (c *RequestCapture) Failure() (int, []byte) {
	status, body := c.Response()
	if status == 0 || (status >= 200 && status < 300) {
		return 0, nil
	}
	return status, body
}

// Request returns the captured URL and request body.
func (c *RequestCapture) Request() (string, []byte) {
	if c == nil {
		return "", nil
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.url, c.request
}

type captureKey struct{}

// WithRequestCapture attaches a capture to ctx for CapturingTransport to fill.
func WithRequestCapture(ctx context.Context, c *RequestCapture) context.Context {
	return context.WithValue(ctx, captureKey{}, c)
}

// RequestCaptureFrom returns the capture attached to ctx, or nil.
func RequestCaptureFrom(ctx context.Context) *RequestCapture {
	c, _ := ctx.Value(captureKey{}).(*RequestCapture)
	return c
}

// CapturingTransport is an http.RoundTripper that records request and
// response bodies into the RequestCapture carried by the request context.
// Requests without a capture pass straight through.
type CapturingTransport struct {
	Base http.RoundTripper
}

// RoundTrip implements http.RoundTripper
func (t *CapturingTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	capture := RequestCaptureFrom(req.Context())
	if capture == nil {
		return base.RoundTrip(req)
	}

	var reqBody []byte
	if req.Body != nil {
		reqBody, _ = io.ReadAll(req.Body)
		req.Body.Close()
		req.Body = io.NopCloser(bytes.NewReader(reqBody))
	}

	capture.mu.Lock()
	capture.url = req.URL.String()
	capture.request = reqBody
	capture.mu.Unlock()

	resp, err := base.RoundTrip(req)
	if err != nil {
		return resp, err
	}

	// Re-wrap so the SDK can still read it
	respBody, readErr := io.ReadAll(io.LimitReader(resp.Body, maxCaptureBytes))
	resp.Body.Close()
	resp.Body = io.NopCloser(bytes.NewReader(respBody))
	if readErr != nil {
		L_debug("capture: response body truncated", "url", req.URL.String(), "error", readErr)
	}

	capture.mu.Lock()
	capture.response = respBody
	capture.status = resp.StatusCode
	capture.mu.Unlock()

	L_trace("capture: upstream exchange", "url", req.URL.String(), "status", resp.StatusCode, "body", Snippet(respBody, 200))
	return resp, nil
}

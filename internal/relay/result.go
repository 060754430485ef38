package relay

import (
	"encoding/json"
	"net/http"

	"github.com/roelfdiedericks/nexusrelay/internal/llm"
)

// Kind says which of the three outcomes a Result is.
type Kind int

const (
	KindReply         Kind = iota // the model answered
	KindDegraded                  // a canned notice stands in for the model
	KindUpstreamError             // the upstream failure is passed through
)

func (k Kind) String() string {
	switch k {
	case KindReply:
		return "reply"
	case KindDegraded:
		return "degraded"
	default:
		return "upstream_error"
	}
}

// Result is the single outcome of relaying one message.
type Result struct {
	Kind       Kind
	Text       string // reply or degraded text
	StatusCode int    // upstream status, KindUpstreamError only
	Payload    []byte // upstream body verbatim, KindUpstreamError only
	Model      string // model that produced the outcome, when known
	Attempts   int    // upstream calls made
}

// Reply wraps model text.
func Reply(text string) Result {
	return Result{Kind: KindReply, Text: text}
}

// Degraded wraps a notice that stands in for a reply.
func Degraded(text string) Result {
	return Result{Kind: KindDegraded, Text: text}
}

// FromUpstream passes an upstream failure through.
func FromUpstream(err *llm.UpstreamError) Result {
	status := err.StatusCode
	if status == 0 {
		status = http.StatusInternalServerError
	}
	return Result{
		Kind:       KindUpstreamError,
		StatusCode: status,
		Payload:    err.Payload,
		Model:      err.Model,
	}
}

// HTTPStatus is the status the caller should answer with.
func (r Result) HTTPStatus() int {
	if r.Kind != KindUpstreamError {
		return http.StatusOK
	}
	if r.StatusCode == 0 {
		return http.StatusInternalServerError
	}
	return r.StatusCode
}

type messageBody struct {
	Message string `json:"message"`
}

// Body is the response body: {"message": text}, or the upstream payload as is.
func (r Result) Body() []byte {
	if r.Kind == KindUpstreamError {
		if len(r.Payload) == 0 {
			return llm.ErrorPayload(http.StatusText(r.HTTPStatus()))
		}
		return r.Payload
	}
	out, err := json.Marshal(messageBody{Message: r.Text})
	if err != nil {
		return llm.ErrorPayload(err.Error())
	}
	return out
}

package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/tidwall/gjson"

	. "github.com/roelfdiedericks/nexusrelay/internal/logging"
	"github.com/roelfdiedericks/nexusrelay/internal/metrics"
	"github.com/roelfdiedericks/nexusrelay/internal/relay"
)

const banner = "Welcome to the nexusrelay API\n"

// resultHeader reports which outcome produced a /message response
const resultHeader = "X-Relay-Result"

type errorBody struct {
	Error string `json:"error"`
}

// handleIndex serves the banner
func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	// Only serve root path, not any other path
	if r.URL.Path != "/" {
		writeJSON(w, http.StatusNotFound, errorBody{Error: "not found"})
		return
	}
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w, "GET, OPTIONS")
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, banner)
}

// handleMessage relays {"message": "..."} and writes the relay result
func (s *Server) handleMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, "POST, OPTIONS")
		return
	}

	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorBody{Error: "request body too large"})
			return
		}
		L_warn("http: read body failed", "error", err, "request_id", relay.RequestID(r.Context()))
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON"})
		return
	}

	message, ok := parseMessage(body)
	if !ok {
		writeJSON(w, http.StatusBadRequest, errorBody{Error: "invalid JSON"})
		return
	}

	res := s.relay.Handle(r.Context(), message)

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set(resultHeader, res.Kind.String())
	w.WriteHeader(res.HTTPStatus())
	_, _ = w.Write(res.Body())
}

// parseMessage extracts the message field. An empty body or a missing or
// null field yields "". Non-string values are relayed as their JSON text.
func parseMessage(body []byte) (string, bool) {
	if len(body) == 0 {
		return "", true
	}
	if !gjson.ValidBytes(body) {
		return "", false
	}
	doc := gjson.ParseBytes(body)
	if !doc.IsObject() {
		return "", false
	}
	field := doc.Get("message")
	switch field.Type {
	case gjson.Null:
		return "", true
	case gjson.String:
		return field.Str, true
	default:
		return field.Raw, true
	}
}

// handleHealth reports liveness and the active mode
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		methodNotAllowed(w, "GET, OPTIONS")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"status": "ok",
		"mode":   s.relay.Mode(),
	})
}

// handleMetrics dumps the in-process metrics
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, "GET, OPTIONS")
		return
	}
	m := metrics.GetInstance()
	writeJSON(w, http.StatusOK, struct {
		UptimeSeconds int64                              `json:"uptime_seconds"`
		Metrics       map[string]*metrics.MetricSnapshot `json:"metrics"`
	}{
		UptimeSeconds: int64(m.Uptime().Seconds()),
		Metrics:       m.GetSnapshot(),
	})
}

func methodNotAllowed(w http.ResponseWriter, allow string) {
	w.Header().Set("Allow", allow)
	writeJSON(w, http.StatusMethodNotAllowed, errorBody{Error: "method not allowed"})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		L_error("http: encode response failed", "error", err)
		status = http.StatusInternalServerError
		data = []byte(`{"error":"internal server error"}`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

package relay

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roelfdiedericks/nexusrelay/internal/config"
)

func newUpstream(t *testing.T, status int, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

// driverRelay builds a relay on the default path with a real SDK driver
// pointed at srv.
func driverRelay(t *testing.T, driver string, srv *httptest.Server) *Relay {
	t.Helper()
	cfg := config.Defaults()
	cfg.Default.Driver = driver
	cfg.Default.APIKey = "sk-test"
	cfg.Default.BaseURL = srv.URL
	cfg.Default.TimeoutSeconds = 5
	r, err := New(cfg)
	require.NoError(t, err)
	return r
}

func TestDefaultDriversEndToEnd(t *testing.T) {
	tests := []struct {
		name   string
		driver string
		status int
		body   string
		kind   Kind
	}{
		{"openai rate limited string error", config.DriverOpenAI, http.StatusTooManyRequests, `{"error":"rate limited"}`, KindDegraded},
		{"openai quota", config.DriverOpenAI, http.StatusTooManyRequests, `{"error":{"message":"quota","type":"insufficient_quota","code":"insufficient_quota"}}`, KindDegraded},
		{"openai internal", config.DriverOpenAI, http.StatusInternalServerError, `{"error":"internal"}`, KindUpstreamError},
		{"openai bad gateway", config.DriverOpenAI, http.StatusBadGateway, `{"error":"bad gateway"}`, KindUpstreamError},
		{"openai unauthorized", config.DriverOpenAI, http.StatusUnauthorized, `{"error":{"message":"bad key","type":"invalid_request_error","code":"invalid_api_key"}}`, KindUpstreamError},
		{"anthropic rate limited", config.DriverAnthropic, http.StatusTooManyRequests, `{"type":"error","error":{"type":"rate_limit_error","message":"slow down"}}`, KindDegraded},
		{"anthropic internal", config.DriverAnthropic, http.StatusInternalServerError, `{"error":"internal"}`, KindUpstreamError},
		{"anthropic bad gateway", config.DriverAnthropic, http.StatusBadGateway, `{"error":"bad gateway"}`, KindUpstreamError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := driverRelay(t, tt.driver, newUpstream(t, tt.status, tt.body))

			res := r.Handle(context.Background(), "hello")

			assert.Equal(t, tt.kind, res.Kind)
			if tt.kind == KindDegraded {
				assert.Equal(t, http.StatusOK, res.HTTPStatus())
				assert.Equal(t, r.messages.Quota(tt.driver), res.Text)
				return
			}
			assert.Equal(t, tt.status, res.HTTPStatus())
			assert.Equal(t, tt.body, string(res.Body()))
		})
	}
}

func TestDefaultDriversReply(t *testing.T) {
	openaiBody := `{"id":"c1","object":"chat.completion","created":1,"model":"gpt-3.5-turbo","choices":[{"index":0,"message":{"role":"assistant","content":"salut"},"finish_reason":"stop"}]}`
	anthropicBody := `{"id":"msg_1","type":"message","role":"assistant","model":"claude-3-5-haiku-latest","content":[{"type":"text","text":"salut"}],"stop_reason":"end_turn","stop_sequence":null,"usage":{"input_tokens":1,"output_tokens":1}}`

	for driver, body := range map[string]string{config.DriverOpenAI: openaiBody, config.DriverAnthropic: anthropicBody} {
		t.Run(driver, func(t *testing.T) {
			r := driverRelay(t, driver, newUpstream(t, http.StatusOK, body))

			res := r.Handle(context.Background(), "hello")

			assert.Equal(t, KindReply, res.Kind)
			assert.Equal(t, "salut", res.Text)
		})
	}
}

func TestCascadeCompletionClientEndToEnd(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		kind   Kind
	}{
		{"rate limited", http.StatusTooManyRequests, `{"error":"rate limited"}`, KindDegraded},
		{"internal", http.StatusInternalServerError, `{"error":"internal"}`, KindUpstreamError},
		{"html bad gateway", http.StatusBadGateway, `<html>bad gateway</html>`, KindUpstreamError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := newUpstream(t, tt.status, tt.body)
			cfg := cascadeConfig("m1", "m2")
			cfg.Cascade.Endpoint = srv.URL + "/v1/chat/completions"
			r, err := New(cfg, WithTimer(newInstantTimer()))
			require.NoError(t, err)

			res := r.Handle(context.Background(), "hello")

			assert.Equal(t, tt.kind, res.Kind)
			if tt.kind == KindUpstreamError {
				assert.Equal(t, tt.status, res.HTTPStatus())
				assert.Equal(t, tt.body, string(res.Body()))
			} else {
				assert.Equal(t, http.StatusOK, res.HTTPStatus())
			}
		})
	}
}

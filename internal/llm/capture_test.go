package llm

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCapturingTransportRecordsExchange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		io.WriteString(w, `{"error":"teapot"}`)
	}))
	defer srv.Close()

	client := &http.Client{Transport: &CapturingTransport{}}
	capture := NewRequestCapture()
	ctx := WithRequestCapture(context.Background(), capture)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, srv.URL+"/x", strings.NewReader(`{"q":1}`))
	require.NoError(t, err)
	resp, err := client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	// The caller still sees the full body
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, `{"error":"teapot"}`, string(body))

	status, captured := capture.Response()
	assert.Equal(t, http.StatusTeapot, status)
	assert.Equal(t, `{"error":"teapot"}`, string(captured))

	url, reqBody := capture.Request()
	assert.Equal(t, srv.URL+"/x", url)
	assert.Equal(t, `{"q":1}`, string(reqBody))
}

func TestCapturingTransportWithoutCapture(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "ok")
	}))
	defer srv.Close()

	client := &http.Client{Transport: &CapturingTransport{}}
	resp, err := client.Get(srv.URL)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, "ok", string(body))
}

func TestRequestCaptureNil(t *testing.T) {
	var c *RequestCapture
	status, body := c.Response()
	assert.Zero(t, status)
	assert.Nil(t, body)
	assert.Nil(t, RequestCaptureFrom(context.Background()))
}

func TestRequestCaptureFailure(t *testing.T) {
	tests := []struct {
		name       string
		capture    *RequestCapture
		wantStatus int
		wantBody   string
	}{
		{"nil", nil, 0, ""},
		{"nothing captured", NewRequestCapture(), 0, ""},
		{"success", &RequestCapture{status: http.StatusOK, response: []byte(`{"ok":1}`)}, 0, ""},
		{"rate limited", &RequestCapture{status: http.StatusTooManyRequests, response: []byte(`{"error":"rate limited"}`)}, http.StatusTooManyRequests, `{"error":"rate limited"}`},
		{"empty body", &RequestCapture{status: http.StatusBadGateway}, http.StatusBadGateway, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, body := tt.capture.Failure()
			assert.Equal(t, tt.wantStatus, status)
			assert.Equal(t, tt.wantBody, string(body))
		})
	}
}

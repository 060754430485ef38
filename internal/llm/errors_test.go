package llm

import (
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyCascade(t *testing.T) {
	tests := []struct {
		status int
		want   Action
	}{
		{408, ActionRetry},
		{503, ActionRetry},
		{504, ActionRetry},
		{524, ActionRetry},
		{400, ActionSkip},
		{404, ActionSkip},
		{410, ActionSkip},
		{401, ActionFatal},
		{429, ActionFatal},
		{500, ActionFatal},
		{502, ActionFatal},
	}
	for _, tt := range tests {
		t.Run(strconv.Itoa(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyCascade(tt.status))
		})
	}
}

func TestExhaustedAction(t *testing.T) {
	for _, status := range []int{408, 503, 504, 524, 404} {
		assert.Equal(t, ActionSkip, ExhaustedAction(status), "status %d", status)
	}
	assert.Equal(t, ActionFatal, ExhaustedAction(500))
}

func TestClassifyDefault(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		payload string
		want    Action
	}{
		{"rate limited", 429, `{}`, ActionDegrade},
		{"quota code", 403, `{"error":{"code":"insufficient_quota"}}`, ActionDegrade},
		{"quota type", 400, `{"error":{"type":"insufficient_quota"}}`, ActionDegrade},
		{"server error", 500, `{"error":"internal"}`, ActionFatal},
		{"auth", 401, `{"error":{"code":"invalid_api_key"}}`, ActionFatal},
		{"not json", 502, `<html>bad gateway</html>`, ActionFatal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ClassifyDefault(tt.status, []byte(tt.payload)))
		})
	}
}

func TestIsQuotaPayload(t *testing.T) {
	assert.True(t, IsQuotaPayload([]byte(`{"error":{"message":"You exceeded your current quota","type":"insufficient_quota","code":"insufficient_quota"}}`)))
	assert.False(t, IsQuotaPayload(nil))
	assert.False(t, IsQuotaPayload([]byte(`{"error":"insufficient_quota"}`)))
	assert.False(t, IsQuotaPayload([]byte(`not json`)))
}

func TestClassifyStatus(t *testing.T) {
	assert.Equal(t, ErrorTypeTimeout, ClassifyStatus(504, nil))
	assert.Equal(t, ErrorTypeOverloaded, ClassifyStatus(503, nil))
	assert.Equal(t, ErrorTypeModel, ClassifyStatus(410, nil))
	assert.Equal(t, ErrorTypeRateLimit, ClassifyStatus(429, nil))
	assert.Equal(t, ErrorTypeQuota, ClassifyStatus(429, []byte(`{"error":{"code":"insufficient_quota"}}`)))
	assert.Equal(t, ErrorTypeAuth, ClassifyStatus(401, nil))
	assert.Equal(t, ErrorTypeServer, ClassifyStatus(500, nil))
	assert.Equal(t, ErrorTypeUnknown, ClassifyStatus(418, nil))
}

package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    int
		wantErr bool
	}{
		{"", LevelInfo, false},
		{"trace", LevelTrace, false},
		{"DEBUG", LevelDebug, false},
		{" warning ", LevelWarn, false},
		{"error", LevelError, false},
		{"loud", LevelInfo, true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		assert.Equal(t, tt.want, got, tt.in)
		assert.Equal(t, tt.wantErr, err != nil, tt.in)
	}
}

func TestJSONOutputAndLevels(t *testing.T) {
	var buf bytes.Buffer
	Init(&Config{Level: LevelWarn, Format: FormatJSON, Output: &buf})
	t.Cleanup(func() { Init(nil) })

	L_info("relay: hidden")
	L_warn("cascade: trying next model", "model", "m1", "status", 503)

	lines := bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n"))
	require.Len(t, lines, 1)
	assert.Equal(t, "cascade: trying next model", gjson.GetBytes(lines[0], "msg").String())
	assert.Equal(t, "m1", gjson.GetBytes(lines[0], "model").String())
	assert.Equal(t, int64(503), gjson.GetBytes(lines[0], "status").Int())
}

func TestPrintfStyle(t *testing.T) {
	var buf bytes.Buffer
	Init(&Config{Level: LevelInfo, Format: FormatLogfmt, Output: &buf})
	t.Cleanup(func() { Init(nil) })

	L_info("listening on %s", ":3000")

	assert.Contains(t, buf.String(), "listening on :3000")
}

func TestSnippet(t *testing.T) {
	assert.Equal(t, "<empty>", Snippet(nil, 10))
	assert.Equal(t, "a b c", Snippet([]byte(" a\n b\t c "), 0))
	assert.Equal(t, "abcde...", Snippet([]byte("abcdefgh"), 5))
	assert.Equal(t, "éé...", Snippet([]byte("ééé"), 2))
}

func TestValidFormat(t *testing.T) {
	assert.True(t, ValidFormat(""))
	assert.True(t, ValidFormat(FormatLogfmt))
	assert.False(t, ValidFormat("xml"))
}

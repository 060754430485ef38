package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeReply(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"chat completion", `{"choices":[{"message":{"role":"assistant","content":"hi"}}]}`, "hi"},
		{"legacy text", `{"choices":[{"text":"legacy"}]}`, "legacy"},
		{"message wins over text", `{"choices":[{"message":{"content":"a"},"text":"b"}]}`, "a"},
		{"empty content falls back to text", `{"choices":[{"message":{"content":""},"text":"b"}]}`, "b"},
		{"anthropic blocks", `{"type":"message","content":[{"type":"thinking","thinking":"..."},{"type":"text","text":"bonjour"}]}`, "bonjour"},
		{"empty choices", `{"choices":[]}`, NoResponseText},
		{"null content", `{"choices":[{"message":{"content":null}}]}`, NoResponseText},
		{"non-string content", `{"choices":[{"message":{"content":42}}]}`, NoResponseText},
		{"no choices", `{"id":"x"}`, NoResponseText},
		{"malformed", `{"choices":[`, NoResponseText},
		{"empty body", ``, NoResponseText},
		{"array body", `[1,2,3]`, NoResponseText},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeReply([]byte(tt.body)))
		})
	}
}

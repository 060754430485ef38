package relay

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewMessagesLanguage(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"", "fr"},
		{"fr", "fr"},
		{"fr-CA", "fr"},
		{"en", "en"},
		{"en-GB", "en"},
		{"EN", "en"},
		{"de", "fr"},
		{"not a tag!", "fr"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NewMessages(tt.in).Language())
		})
	}
}

func TestUnavailableQuotesMessage(t *testing.T) {
	fr := NewMessages("fr").Unavailable("100% sûr ?")
	assert.Contains(t, fr, "> 100% sûr ?")
	assert.Contains(t, fr, "Pouvez-vous préciser votre question")

	en := NewMessages("en").Unavailable("")
	assert.Contains(t, en, "Could you clarify")
}

func TestQuotaNamesProvider(t *testing.T) {
	assert.Contains(t, NewMessages("fr").Quota("openai"), "Votre quota OpenAI est dépassé")
	assert.Contains(t, NewMessages("en").Quota("anthropic"), "Your Anthropic quota is exhausted")
	assert.Contains(t, NewMessages("en").Quota(""), "API quota")
}

package llm

import "github.com/tidwall/gjson"

// NoResponseText is the reply when an upstream answered but said nothing usable.
const NoResponseText = "No response from model."

// replyPaths are tried in order; the first non-empty string wins.
var replyPaths = []string{
	"choices.0.message.content", // chat completions
	"choices.0.text",            // legacy completions
}

// NormalizeReply extracts the assistant text from a raw upstream body.
// It understands the OpenAI chat and completion shapes and Anthropic's
// messages shape, and never fails: anything else yields NoResponseText.
func NormalizeReply(body []byte) string {
	if len(body) == 0 || !gjson.ValidBytes(body) {
		return NoResponseText
	}
	for _, path := range replyPaths {
		if r := gjson.GetBytes(body, path); r.Type == gjson.String && r.Str != "" {
			return r.Str
		}
	}

	// Anthropic: content is a list of typed blocks
	var text string
	gjson.GetBytes(body, "content").ForEach(func(_, block gjson.Result) bool {
		if t := block.Get("text"); t.Type == gjson.String && t.Str != "" {
			text = t.Str
			return false
		}
		return true
	})
	if text != "" {
		return text
	}
	return NoResponseText
}

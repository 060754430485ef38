package relay

import (
	"fmt"
	"strings"

	"golang.org/x/text/language"

	. "github.com/roelfdiedericks/nexusrelay/internal/logging"
)

// templateSet holds the degraded notices for one language.
type templateSet struct {
	unavailable string // %s is the user's message
	quota       string // %s is the provider name
}

// First entry is the fallback for unknown tags.
var supportedLanguages = []language.Tag{language.French, language.English}

var templates = map[language.Tag]templateSet{
	language.French: {
		unavailable: "Je suis opérationnel mais le modèle distant est momentanément indisponible. " +
			"Voici une réponse locale basée sur votre message:\n\n> %s\n\n" +
			"Réponse: Merci pour votre message. Pouvez-vous préciser votre question ou le résultat attendu ?",
		quota: "Votre quota %s est dépassé. Configurez une clé valide avec du crédit (API_TOKEN) " +
			"ou activez MOCK_MODE=1 pour tester sans fournisseur.",
	},
	language.English: {
		unavailable: "I am up and running but the remote model is temporarily unavailable. " +
			"Here is a local answer based on your message:\n\n> %s\n\n" +
			"Answer: Thank you for your message. Could you clarify your question or the result you expect?",
		quota: "Your %s quota is exhausted. Configure a valid key with credit (API_TOKEN) " +
			"or enable MOCK_MODE=1 to test without a provider.",
	},
}

var languageMatcher = language.NewMatcher(supportedLanguages)

// Messages renders degraded notices in one language.
type Messages struct {
	tag language.Tag
	set templateSet
}

// NewMessages picks the closest supported language to lang ("fr", "en-GB", ...).
// Unknown or malformed tags fall back to French.
func NewMessages(lang string) *Messages {
	tag := supportedLanguages[0]
	if lang = strings.TrimSpace(lang); lang != "" {
		parsed, err := language.Parse(lang)
		if err != nil {
			L_warn("relay: unknown language, using default", "language", lang, "default", tag.String())
		} else {
			_, idx, conf := languageMatcher.Match(parsed)
			if conf != language.No {
				tag = supportedLanguages[idx]
			}
		}
	}
	return &Messages{tag: tag, set: templates[tag]}
}

// Language returns the resolved language tag.
func (m *Messages) Language() string {
	return m.tag.String()
}

// Unavailable is the notice for an exhausted cascade. It quotes message.
func (m *Messages) Unavailable(message string) string {
	return fmt.Sprintf(m.set.unavailable, message)
}

// Quota is the notice for a rate limited or out-of-quota provider.
func (m *Messages) Quota(provider string) string {
	return fmt.Sprintf(m.set.quota, providerLabel(provider))
}

func providerLabel(name string) string {
	switch name {
	case "openai":
		return "OpenAI"
	case "anthropic":
		return "Anthropic"
	case "", "completion":
		return "API"
	default:
		return name
	}
}

package pages

import (
	"strings"

	"golang.org/x/text/language"
)

// CanonicalLanguageCode normalises well-formed BCP 47 tags ("de-de" becomes "de-DE").
// Anything the parser rejects is returned trimmed but otherwise untouched.
func CanonicalLanguageCode(code string) string {
	trimmed := strings.TrimSpace(code)
	if trimmed == "" {
		return ""
	}

	tag, err := language.Parse(trimmed)
	if err != nil {
		return trimmed
	}

	return tag.String()
}

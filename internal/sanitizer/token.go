package sanitizer

import "regexp"

type TokenSanitizer struct{}

var tokenPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(bearer\s+)([a-zA-Z0-9._-]{20,})`),
	regexp.MustCompile(`(?i)(authorization\s*[:=]\s*["']?bearer\s+)([a-zA-Z0-9._-]{20,})["']?`),
	regexp.MustCompile(`()sk-[a-zA-Z0-9_-]{32,}`),
	regexp.MustCompile(`()AIza[0-9A-Za-z_-]{35}`),
	regexp.MustCompile(`()ya29\.[0-9A-Za-z_-]{20,}`),
}

func (s *TokenSanitizer) Sanitize(text string) string {
	for _, pattern := range tokenPatterns {
		text = pattern.ReplaceAllString(text, `${1}[FILTERED]`)
	}

	return text
}

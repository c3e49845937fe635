package sanitizer

import (
	"net/url"
	"regexp"
	"strings"
)

var urlPattern = regexp.MustCompile(`https?://[^\s"'<>]+`)

// signedParams - параметры подписанных ссылок CDN; сама ссылка без них
// бесполезна, но и не опасна.
var signedParams = []string{
	"sig", "signature", "token", "expires", "key",
	"x-goog-signature", "x-goog-credential", "x-amz-signature", "x-amz-credential", "x-amz-security-token",
}

// SignedURLSanitizer заменяет значения подписей в ссылках на [FILTERED].
type SignedURLSanitizer struct{}

func (s *SignedURLSanitizer) Sanitize(text string) string {
	return urlPattern.ReplaceAllStringFunc(text, sanitizeURL)
}

func sanitizeURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.RawQuery == "" {
		return raw
	}
	q := u.Query()
	changed := false
	for name := range q {
		if isSignedParam(name) {
			q.Set(name, "[FILTERED]")
			changed = true
		}
	}
	if !changed {
		return raw
	}
	u.RawQuery = q.Encode()
	return u.String()
}

func isSignedParam(name string) bool {
	lower := strings.ToLower(name)
	for _, p := range signedParams {
		if lower == p {
			return true
		}
	}
	return false
}

// Package sanitizer вычищает секреты из текста, который уходит в логи, базу
// и внешние LLM: ключи API, bearer-токены, почту и подписи в ссылках на медиа.
package sanitizer

import "strings"

type DataSanitizer struct {
	rules []SanitizerRule
}

type SanitizerRule interface {
	Sanitize(text string) string
}

func New() *DataSanitizer {
	return &DataSanitizer{
		rules: []SanitizerRule{
			&SignedURLSanitizer{},
			&TokenSanitizer{},
			&APIKeySanitizer{},
			&EmailSanitizer{},
		},
	}
}

func (s *DataSanitizer) Sanitize(text string) string {
	if text == "" {
		return text
	}

	result := text
	for _, rule := range s.rules {
		result = rule.Sanitize(result)
	}

	return result
}

// SanitizePrompt дополнительно схлопывает пробелы: промпт уходит во внешнюю модель.
func (s *DataSanitizer) SanitizePrompt(prompt string) string {
	return strings.Join(strings.Fields(s.Sanitize(prompt)), " ")
}

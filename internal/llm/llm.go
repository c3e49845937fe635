// Package llm уточняет промпты стадий через внешние модели (OpenAI или Gemini).
package llm

import (
	"fmt"
	"strings"

	"flowAgent/internal/prompt"
)

const systemPrompt = `You rewrite prompts for a video generation studio. Keep every fact from the draft: the product, the person, the emotion and the references to the uploaded images. Make it concrete and visual, one paragraph, at most 80 words. Reply with the prompt only, no quotes and no commentary.`

func userPrompt(kind prompt.Kind, draft string) string {
	stage := "still image"
	if kind == prompt.KindVideo {
		stage = "8 second video clip"
	}
	return fmt.Sprintf("Stage: %s.\nDraft:\n%s", stage, draft)
}

// cleanReply убирает кавычки и markdown, которые модели любят добавлять.
func cleanReply(s string) (string, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	s = strings.Trim(strings.TrimSpace(s), `"'`)
	if s == "" {
		return "", fmt.Errorf("модель вернула пустой ответ")
	}
	return s, nil
}

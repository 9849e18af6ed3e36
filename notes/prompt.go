package notes

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/lectern/core"
)

// notesSystemPrompt frames the generation task.
const notesSystemPrompt = "You are a study assistant. " +
	"Create detailed study notes in markdown format from the provided slides text."

const notesPromptFormat = `Slides content:
%s

Instructions:
- Aim for about %d characters (minimum %d); make the notes comprehensive, detailed, and easy to understand while staying academically professional.
- Use clear Markdown headings and bullets.
- Include definitions, intuition, stepwise derivations, worked examples, pitfalls, and recap questions where relevant and grounded.
- Include key formulas only when present in the slides, in LaTeX math delimiters ($...$ inline, $$...$$ block).
- Include an "Exam Tips" section grounded in the content.
- Stay strictly grounded in the provided content. Do not invent facts.

Return only Markdown.`

func buildNotesPrompt(slideText string, targetChars, minChars int) string {
	return fmt.Sprintf(notesPromptFormat, slideText, targetChars, minChars)
}

// slideContext renders the asset's chunks page-labeled for the prompt,
// clipped to maxChars runes.
func slideContext(chunks []*core.Chunk, maxChars int) string {
	parts := make([]string, 0, len(chunks))
	for _, c := range chunks {
		parts = append(parts, fmt.Sprintf("[page %d] %s", c.PageNum, c.Text))
	}
	return clipRunes(strings.Join(parts, "\n\n"), maxChars)
}

func clipRunes(text string, n int) string {
	if n <= 0 || utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	return string(runes[:n])
}

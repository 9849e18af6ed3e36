package notes

import (
	"strings"
	"unicode/utf8"

	"github.com/poiesic/lectern/core"
)

// section is one heading-delimited run of markdown body lines.
type section struct {
	title string
	text  string
}

// splitSections walks the markdown line by line. A heading line starts a new
// section titled by its text; body lines accumulate until the next heading,
// or until the section reaches maxChars, which also starts a new section
// under the same title. Text before the first heading is titled "Overview".
func splitSections(markdown string, maxChars int) []section {
	var sections []section
	title := "Overview"
	var buf []string
	bufChars := 0

	flush := func() {
		if len(buf) == 0 {
			return
		}
		sections = append(sections, section{title: title, text: strings.Join(buf, "\n")})
		buf = nil
		bufChars = 0
	}

	for _, line := range strings.Split(markdown, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "#") {
			flush()
			title = strings.TrimSpace(strings.TrimLeft(trimmed, "#"))
			if title == "" {
				title = "Section"
			}
			continue
		}
		buf = append(buf, line)
		bufChars += utf8.RuneCountInString(line)
		if bufChars >= maxChars {
			flush()
		}
	}
	flush()
	return sections
}

// sectionChunk is one embeddable slice of a section.
type sectionChunk struct {
	ID    string
	Title string
	Idx   int
	Start int
	Text  string
}

// chunkMarkdown splits the markdown into sections and windows each section's
// text to maxChars runes. Chunk ids are deterministic over
// (notes id, section title, section index, window start), so re-chunking
// unchanged markdown reproduces identical ids.
func chunkMarkdown(markdown, notesID string, maxChars int) []sectionChunk {
	if maxChars <= 0 {
		maxChars = defaultMaxChunkChars
	}
	var chunks []sectionChunk
	for idx, s := range splitSections(markdown, maxChars) {
		text := strings.TrimSpace(s.text)
		if text == "" {
			continue
		}
		runes := []rune(text)
		for start := 0; start < len(runes); start += maxChars {
			end := min(start+maxChars, len(runes))
			chunks = append(chunks, sectionChunk{
				ID:    core.NotesChunkID(notesID, s.title, idx, start),
				Title: s.title,
				Idx:   idx,
				Start: start,
				Text:  strings.TrimSpace(string(runes[start:end])),
			})
		}
	}
	return chunks
}

package web

import (
	"regexp"
	"strings"
)

// maxQueryWords clips queries so a long question does not become a useless
// search string.
const maxQueryWords = 12

var (
	markdownChars = regexp.MustCompile("[`*_#>\\\\$]+")
	whitespace    = regexp.MustCompile(`\s+`)
)

// filenameExts are stripped from queries; uploaded filenames leak into
// questions and never help a web search.
var filenameExts = []string{".pdf", ".pptx", ".ppt", ".doc", ".docx"}

// queryStopWords are editorial words that describe content rather than name
// it. Dropping them keeps queries about the topic.
var queryStopWords = map[string]bool{
	"weak":        true,
	"lacking":     true,
	"suggestions": true,
	"abrupt":      true,
	"critique":    true,
	"issue":       true,
	"missing":     true,
	"expand":      true,
	"section":     true,
}

// Sanitize strips markdown, filename extensions, and stop words from text
// destined for a search query.
func Sanitize(text string) string {
	if text == "" {
		return ""
	}
	cleaned := markdownChars.ReplaceAllString(text, " ")
	cleaned = whitespace.ReplaceAllString(cleaned, " ")
	cleaned = strings.TrimSpace(cleaned)
	for _, ext := range filenameExts {
		cleaned = strings.ReplaceAll(cleaned, ext, " ")
	}
	words := make([]string, 0, len(cleaned))
	for _, w := range strings.Fields(cleaned) {
		if queryStopWords[strings.ToLower(w)] {
			continue
		}
		words = append(words, w)
	}
	return strings.Join(words, " ")
}

// BuildQueries turns a question into at most maxQueries search queries: the
// sanitized question first, then a subject-qualified variant. Queries are
// clipped to a handful of words and deduplicated.
func BuildQueries(question, subject string, maxQueries int) []string {
	if maxQueries <= 0 {
		return nil
	}

	candidates := make([]string, 0, 2)
	if q := Sanitize(question); q != "" {
		candidates = append(candidates, q)
	}
	if subject != "" {
		if q := Sanitize(subject + " " + question); q != "" {
			candidates = append(candidates, q)
		}
	}

	queries := make([]string, 0, maxQueries)
	seen := make(map[string]bool, len(candidates))
	for _, c := range candidates {
		q := clipWords(c, maxQueryWords)
		if q == "" || seen[q] {
			continue
		}
		seen[q] = true
		queries = append(queries, q)
		if len(queries) >= maxQueries {
			break
		}
	}
	return queries
}

func clipWords(text string, max int) string {
	words := strings.Fields(text)
	if len(words) <= max {
		return text
	}
	return strings.Join(words[:max], " ")
}

// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package answer

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/poiesic/lectern/retrieval"
	"github.com/poiesic/lectern/web"
)

// systemPrompt keeps the model inside the provided context.
const systemPrompt = "You are a study assistant. Answer using only the provided context. " +
	"Cite the chunk ids you rely on. If the context does not contain the answer, say so plainly."

// buildPrompt renders the user prompt: labeled context blocks, an optional
// web section, then the question.
func buildPrompt(question string, hits []retrieval.Hit, webResults []web.Result, snippetBudget int) string {
	var b strings.Builder
	b.WriteString("Context:\n")
	b.WriteString(formatContext(hits))
	if section := formatWebContext(webResults, snippetBudget); section != "" {
		b.WriteString("\n")
		b.WriteString(section)
	}
	fmt.Fprintf(&b, "\nQuestion: %s\n", question)
	return b.String()
}

// formatContext renders one block per chunk. The chunk id appears in the
// header so the model can cite it.
func formatContext(hits []retrieval.Hit) string {
	blocks := make([]string, 0, len(hits))
	for _, h := range hits {
		source := h.Source
		if source == "" {
			source = h.AssetID
		}
		blocks = append(blocks,
			fmt.Sprintf("[chunk:%s] (asset=%s, page=%d)\n%s\n", h.ChunkID, source, h.PageNum, h.Text))
	}
	return strings.Join(blocks, "\n")
}

// formatWebContext renders web results under their own heading. Snippets
// share one character budget; once it is spent the remaining results are
// dropped. A budget of zero means no cap.
func formatWebContext(results []web.Result, budget int) string {
	if len(results) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString("Web results:\n")
	used := 0
	for _, r := range results {
		snippet := r.Snippet
		if budget > 0 {
			remaining := budget - used
			if remaining <= 0 {
				break
			}
			snippet = clipChars(snippet, remaining)
		}
		fmt.Fprintf(&b, "- %s (%s): %s\n", r.Title, r.URL, snippet)
		used += utf8.RuneCountInString(snippet)
	}
	return b.String()
}

func clipChars(text string, n int) string {
	if utf8.RuneCountInString(text) <= n {
		return text
	}
	runes := []rune(text)
	return string(runes[:n])
}

package chunker

import (
	"regexp"
	"strings"
)

var (
	whitespaceRegex = regexp.MustCompile(`\s+`)

	// a sentence ends with a run of terminal punctuation; trailing text without one is kept
	sentenceRegex = regexp.MustCompile(`[^.!?]+[.!?]+|[^.!?]+$`)

	// postgres TEXT refuses NUL bytes, which some PDFs emit between glyphs
	nulReplacer = strings.NewReplacer("\x00", " ")
)

// drops invalid UTF-8 and NUL bytes, then collapses whitespace runs
func normalizeWhitespace(text string) string {
	text = nulReplacer.Replace(strings.ToValidUTF8(text, ""))

	return strings.TrimSpace(whitespaceRegex.ReplaceAllString(text, " "))
}

func splitSentences(text string) []string {
	matches := sentenceRegex.FindAllString(text, -1)
	sentences := make([]string, 0, len(matches))

	for _, m := range matches {
		m = strings.TrimSpace(m)
		if m != "" {
			sentences = append(sentences, m)
		}
	}

	return sentences
}

package chunker

import (
	"strings"
	"unicode/utf8"
)

const (
	// upper bound on chunk length, in characters
	DefaultMaxChars = 500

	// chunks shorter than this carry too little meaning to embed
	DefaultMinChars = 20
)

func DefaultOptions() ChunkOptions {
	return ChunkOptions{
		MaxChars: DefaultMaxChars,
		MinChars: DefaultMinChars,
	}
}

// Split normalizes whitespace, cuts text into sentences and greedily packs them
// into chunks of at most opts.MaxChars characters, in source order.
// A single sentence longer than the bound becomes its own chunk.
// The result depends only on its inputs.
func Split(text string, opts ChunkOptions) []string {
	opts = opts.withDefaults()

	normalized := normalizeWhitespace(text)
	if normalized == "" {
		return nil
	}

	var chunks []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if currentLen >= opts.MinChars {
			chunks = append(chunks, current.String())
		}

		current.Reset()
		currentLen = 0
	}

	for _, sentence := range splitSentences(normalized) {
		sentenceLen := utf8.RuneCountInString(sentence)

		if currentLen > 0 && currentLen+1+sentenceLen > opts.MaxChars {
			flush()
		}

		if currentLen > 0 {
			current.WriteByte(' ')
			currentLen++
		}

		current.WriteString(sentence)
		currentLen += sentenceLen
	}

	flush()

	return chunks
}

// Pieces splits text into ordered Chunks carrying their zero-based position
func Pieces(text string, opts ChunkOptions) []Chunk {
	parts := Split(text, opts)
	pieces := make([]Chunk, len(parts))

	for i, p := range parts {
		pieces[i] = Chunk{Index: i, Content: p, Length: utf8.RuneCountInString(p)}
	}

	return pieces
}

package rag

import (
	"errors"
	"strings"
	"unicode/utf8"

	"document-assistant/internal/models"
)

var (
	// ErrInsufficientContext means no chunk fit in the character budget, so there is
	// nothing to ground a prompt on.
	ErrInsufficientContext = errors.New("insufficient context: no document text fits the context budget")
	ErrNoDocuments         = errors.New("no documents uploaded")
	ErrEmptyQuestion       = errors.New("question must not be empty")
)

var separatorLen = utf8.RuneCountInString(models.ContextSeparator)

// AssembleContext joins chunks in order, separated by a blank line, for as long as
// the result stays within budget characters. It stops at the first chunk that does not
// fit; later chunks are never considered and no chunk is truncated.
func AssembleContext(chunks []string, budget int) string {
	var (
		b    strings.Builder
		used int
	)
	for _, c := range chunks {
		if c == "" {
			continue
		}
		add := utf8.RuneCountInString(c)
		if used > 0 {
			add += separatorLen
		}
		if used+add > budget {
			break
		}
		if used > 0 {
			b.WriteString(models.ContextSeparator)
		}
		b.WriteString(c)
		used += add
	}
	return b.String()
}

func chunkContents(chunks []models.Chunk) []string {
	out := make([]string, len(chunks))
	for i, c := range chunks {
		out[i] = c.Content
	}
	return out
}

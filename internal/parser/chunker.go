package parser

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"

	"document-assistant/internal/models"
)

var ErrInvalidChunkSize = errors.New("chunk size must be positive")

// paragraphBreak matches a run of blank lines. The trailing \n anchors the match on a
// line end, so indentation of the next paragraph is kept.
var paragraphBreak = regexp.MustCompile(`\n\s*\n`)

var separatorLen = utf8.RuneCountInString(models.ContextSeparator)

// SplitParagraphs splits text into paragraph-aligned chunks of at most size
// characters (runes). Consecutive paragraphs are packed greedily; a paragraph longer
// than size is cut at fixed offsets instead.
func SplitParagraphs(text string, size int) ([]string, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidChunkSize, size)
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")

	var (
		chunks     []string
		current    strings.Builder
		currentLen int
	)
	flush := func() {
		if currentLen > 0 {
			chunks = append(chunks, current.String())
			current.Reset()
			currentLen = 0
		}
	}

	for _, para := range paragraphBreak.Split(text, -1) {
		para = strings.Trim(para, "\n")
		if strings.TrimSpace(para) == "" {
			continue
		}
		n := utf8.RuneCountInString(para)

		if currentLen > 0 && currentLen+separatorLen+n <= size {
			current.WriteString(models.ContextSeparator)
			current.WriteString(para)
			currentLen += separatorLen + n
			continue
		}

		flush()
		if n <= size {
			current.WriteString(para)
			currentLen = n
			continue
		}
		chunks = append(chunks, splitFixed(para, size)...)
	}
	flush()

	return chunks, nil
}

// splitFixed cuts s every size runes with no regard for words or sentences.
func splitFixed(s string, size int) []string {
	runes := []rune(s)
	out := make([]string, 0, (len(runes)+size-1)/size)
	for start := 0; start < len(runes); start += size {
		end := min(start+size, len(runes))
		out = append(out, string(runes[start:end]))
	}
	return out
}

// ChunkDocument splits a document's text and tags every chunk with its source and
// position.
func ChunkDocument(doc models.Document, size int) ([]models.Chunk, error) {
	parts, err := SplitParagraphs(doc.Text, size)
	if err != nil {
		return nil, err
	}
	chunks := make([]models.Chunk, len(parts))
	for i, p := range parts {
		chunks[i] = models.Chunk{
			Content:  p,
			Source:   doc.Filename,
			Position: i,
		}
	}
	return chunks, nil
}

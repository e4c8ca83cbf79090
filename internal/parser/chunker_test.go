package parser

import (
	"math/rand"
	"strings"
	"testing"
	"unicode/utf8"

	"document-assistant/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitParagraphs(t *testing.T) {
	tests := []struct {
		name string
		text string
		size int
		want []string
	}{
		{
			name: "empty input",
			text: "",
			size: 10,
			want: nil,
		},
		{
			name: "only blank lines",
			text: "\n\n  \n\t\n",
			size: 10,
			want: nil,
		},
		{
			name: "two paragraphs at the boundary",
			text: "abcdefghij\n\nklmno",
			size: 10,
			want: []string{"abcdefghij", "klmno"},
		},
		{
			name: "paragraphs packed into one chunk",
			text: "abcdefghij\n\nklmno",
			size: 17,
			want: []string{"abcdefghij\n\nklmno"},
		},
		{
			name: "separator counts toward the size",
			text: "abcdefghij\n\nklmno",
			size: 16,
			want: []string{"abcdefghij", "klmno"},
		},
		{
			name: "run of blank lines collapses",
			text: "ab\n\n\n\n  \ncd",
			size: 100,
			want: []string{"ab\n\ncd"},
		},
		{
			name: "single newlines stay inside a paragraph",
			text: "line one\nline two\n\nnext",
			size: 100,
			want: []string{"line one\nline two\n\nnext"},
		},
		{
			name: "crlf normalized",
			text: "ab\r\n\r\ncd",
			size: 100,
			want: []string{"ab\n\ncd"},
		},
		{
			name: "oversized paragraph force split",
			text: "abcdefghijklmnopqrstuvwxy",
			size: 10,
			want: []string{"abcdefghij", "klmnopqrst", "uvwxy"},
		},
		{
			name: "force split between normal paragraphs",
			text: "ab\n\ncdefghijklmnop\n\nqr",
			size: 5,
			want: []string{"ab", "cdefg", "hijkl", "mnop", "qr"},
		},
		{
			name: "multibyte characters counted as runes",
			text: "日本語のテキスト",
			size: 3,
			want: []string{"日本語", "のテキ", "スト"},
		},
		{
			name: "leading and trailing blank lines dropped",
			text: "\n\nhello\n\n",
			size: 10,
			want: []string{"hello"},
		},
		{
			name: "indentation of next paragraph kept",
			text: "a\n\n   b",
			size: 100,
			want: []string{"a\n\n   b"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := SplitParagraphs(tt.text, tt.size)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitParagraphs_InvalidSize(t *testing.T) {
	for _, size := range []int{0, -1, -1000} {
		_, err := SplitParagraphs("some text", size)
		assert.ErrorIs(t, err, ErrInvalidChunkSize)
	}
}

func randomDocument(r *rand.Rand) string {
	words := []string{"alpha", "beta", "gamma", "delta", "épsilon", "ζeta", "x", "lorem-ipsum-dolor-sit-amet-consectetur"}
	paragraphs := make([]string, 1+r.Intn(12))
	for i := range paragraphs {
		lines := make([]string, 1+r.Intn(3))
		for j := range lines {
			n := 1 + r.Intn(15)
			ws := make([]string, n)
			for k := range ws {
				ws[k] = words[r.Intn(len(words))]
			}
			lines[j] = strings.Join(ws, " ")
		}
		paragraphs[i] = strings.Join(lines, "\n")
	}
	var b strings.Builder
	for i, p := range paragraphs {
		if i > 0 {
			b.WriteString(strings.Repeat("\n", 2+r.Intn(3)))
		}
		b.WriteString(p)
	}
	return b.String()
}

func TestSplitParagraphs_Properties(t *testing.T) {
	r := rand.New(rand.NewSource(42))
	dropNewlines := func(s string) string { return strings.ReplaceAll(s, "\n", "") }

	for i := 0; i < 200; i++ {
		text := randomDocument(r)
		size := 1 + r.Intn(300)

		chunks, err := SplitParagraphs(text, size)
		require.NoError(t, err)
		require.NotEmpty(t, chunks)

		for _, c := range chunks {
			assert.NotEmpty(t, c)
			assert.LessOrEqual(t, utf8.RuneCountInString(c), size, "chunk exceeds size %d: %q", size, c)
		}
		assert.Equal(t, dropNewlines(text), dropNewlines(strings.Join(chunks, "")))
	}
}

func TestSplitParagraphs_RoundTripWithoutForceSplit(t *testing.T) {
	text := "First paragraph.\n\nSecond paragraph\nwith two lines.\n\nThird."
	chunks, err := SplitParagraphs(text, 32)
	require.NoError(t, err)
	assert.Len(t, chunks, 3)
	assert.Equal(t, text, strings.Join(chunks, models.ContextSeparator))
}

func TestChunkDocument(t *testing.T) {
	doc := models.Document{Filename: "notes.txt", Text: "abcdefghij\n\nklmno"}

	chunks, err := ChunkDocument(doc, 10)
	require.NoError(t, err)
	require.Len(t, chunks, 2)
	assert.Equal(t, models.Chunk{Content: "abcdefghij", Source: "notes.txt", Position: 0}, chunks[0])
	assert.Equal(t, models.Chunk{Content: "klmno", Source: "notes.txt", Position: 1}, chunks[1])

	_, err = ChunkDocument(doc, 0)
	assert.ErrorIs(t, err, ErrInvalidChunkSize)
}

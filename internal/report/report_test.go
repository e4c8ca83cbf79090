package report

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"document-assistant/internal/models"
	"document-assistant/internal/session"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSnapshot() session.Snapshot {
	ts := time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)
	return session.Snapshot{
		ID:        "0123456789abcdef",
		Mode:      models.ModeClientAsks,
		CreatedAt: ts,
		Documents: []models.Document{{Filename: "plan.pdf", Size: 2048, UploadedAt: ts}},
		Summaries: map[string]models.Summary{
			"plan.pdf": {Text: "A three-year plan.", Questions: []string{"What is the budget?", "Who owns it?"}},
		},
		Turns: []models.Turn{
			{Role: models.RoleUser, Content: "What is the budget?", Timestamp: ts},
			{Role: models.RoleAssistant, Content: "Two million.", Timestamp: ts},
		},
		Feedback: []models.Feedback{{TurnIndex: 1, Helpful: true, Comment: "clear", Timestamp: ts}},
	}
}

func TestRender_Text(t *testing.T) {
	rep, err := Render(testSnapshot(), "")
	require.NoError(t, err)
	assert.Equal(t, "text/plain; charset=utf-8", rep.ContentType)
	assert.Equal(t, "session-report-01234567.txt", rep.Filename)

	body := string(rep.Body)
	assert.Contains(t, body, "Mode: client-asks")
	assert.Contains(t, body, "- plan.pdf (2048 bytes)")
	assert.Contains(t, body, "  2. Who owns it?")
	assert.Contains(t, body, "[2024-03-04 09:30:00] User: What is the budget?")
	assert.Contains(t, body, "[2024-03-04 09:30:00] Assistant: Two million.")
	assert.Contains(t, body, "  Feedback: helpful: clear")
}

func TestRender_Markdown(t *testing.T) {
	rep, err := Render(testSnapshot(), FormatMarkdown)
	require.NoError(t, err)
	assert.Equal(t, "session-report-01234567.md", rep.Filename)

	body := string(rep.Body)
	assert.True(t, strings.HasPrefix(body, "# Session report"))
	assert.Contains(t, body, "### plan.pdf")
	assert.Contains(t, body, "1. What is the budget?")
	assert.Contains(t, body, "> Feedback: helpful: clear")
}

func TestRender_HTML(t *testing.T) {
	snap := testSnapshot()
	snap.Turns = append(snap.Turns, models.Turn{Role: models.RoleUser, Content: "<script>alert(1)</script>", Timestamp: snap.CreatedAt})

	rep, err := Render(snap, FormatHTML)
	require.NoError(t, err)
	assert.Equal(t, "text/html; charset=utf-8", rep.ContentType)

	body := string(rep.Body)
	assert.Contains(t, body, "<h1>Session report</h1>")
	assert.Contains(t, body, "<table>")
	assert.Contains(t, body, "<ol>")
	assert.Contains(t, body, "<blockquote>")
	assert.NotContains(t, body, "<script>")
}

func TestRender_JSON(t *testing.T) {
	rep, err := Render(testSnapshot(), FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "application/json", rep.ContentType)
	assert.Equal(t, "chat_history.json", rep.Filename)

	var history []models.Message
	require.NoError(t, json.Unmarshal(rep.Body, &history))
	assert.Equal(t, []models.Message{
		{Role: models.RoleUser, Content: "What is the budget?"},
		{Role: models.RoleAssistant, Content: "Two million."},
	}, history)
}

func TestRender_EmptySession(t *testing.T) {
	rep, err := Render(session.Snapshot{ID: "x", Mode: models.ModeAdvisorAsks}, FormatText)
	require.NoError(t, err)
	assert.Contains(t, string(rep.Body), "(no questions asked)")
	assert.Equal(t, "session-report-x.txt", rep.Filename)
}

func TestRender_UnknownFormat(t *testing.T) {
	_, err := Render(testSnapshot(), "pdf")
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

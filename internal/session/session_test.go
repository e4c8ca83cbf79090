package session

import (
	"testing"

	"document-assistant/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestSession(t *testing.T) *Session {
	t.Helper()
	sess, err := New("s-1", models.ModeClientAsks)
	require.NoError(t, err)
	return sess
}

func TestSession_Documents(t *testing.T) {
	sess := newTestSession(t)

	require.NoError(t, sess.AddDocument(models.Document{Filename: "b.txt", Text: "bee"}))
	require.NoError(t, sess.AddDocument(models.Document{Filename: "a.txt", Text: "ay"}))

	err := sess.AddDocument(models.Document{Filename: "b.txt", Text: "other"})
	assert.ErrorIs(t, err, ErrDuplicateDocument)

	docs := sess.Documents()
	require.Len(t, docs, 2)
	assert.Equal(t, "b.txt", docs[0].Filename)
	assert.Equal(t, "bee", docs[0].Text)
	assert.Equal(t, "a.txt", docs[1].Filename)
	assert.False(t, docs[0].UploadedAt.IsZero())

	assert.True(t, sess.HasDocument("a.txt"))
	assert.False(t, sess.HasDocument("c.txt"))

	// returned slice is a copy
	docs[0].Filename = "mutated"
	assert.Equal(t, "b.txt", sess.Documents()[0].Filename)
}

func TestSession_Summaries(t *testing.T) {
	sess := newTestSession(t)
	_, ok := sess.Summary("a.txt")
	assert.False(t, ok)

	sess.SetSummary("a.txt", models.Summary{Text: "short", Questions: []string{"why?"}})
	sum, ok := sess.Summary("a.txt")
	require.True(t, ok)
	assert.Equal(t, "short", sum.Text)
}

func TestSession_ExchangeAndFeedback(t *testing.T) {
	sess := newTestSession(t)

	idx := sess.AppendExchange("what is it?", "a report")
	assert.Equal(t, 1, idx)
	idx = sess.AppendExchange("who wrote it?", "finance")
	assert.Equal(t, 3, idx)

	turns := sess.Turns()
	require.Len(t, turns, 4)
	assert.Equal(t, models.RoleUser, turns[0].Role)
	assert.Equal(t, models.RoleAssistant, turns[1].Role)
	assert.Equal(t, "finance", turns[3].Content)

	fb, err := sess.AddFeedback(1, true, "")
	require.NoError(t, err)
	assert.Equal(t, 1, fb.TurnIndex)
	assert.True(t, fb.Helpful)

	_, err = sess.AddFeedback(3, false, "too vague")
	require.NoError(t, err)

	for _, bad := range []int{-1, 0, 2, 4} {
		_, err = sess.AddFeedback(bad, true, "")
		assert.ErrorIs(t, err, ErrInvalidTurn, "index %d", bad)
	}

	feedback := sess.Feedback()
	require.Len(t, feedback, 2)
	assert.Equal(t, "too vague", feedback[1].Comment)

	sess.ResetHistory()
	assert.Empty(t, sess.Turns())
	assert.Empty(t, sess.Feedback())
}

func TestSession_Mode(t *testing.T) {
	sess := newTestSession(t)
	require.NoError(t, sess.SetMode(models.ModeAdvisorAsks))
	assert.Equal(t, models.ModeAdvisorAsks, sess.Mode())

	assert.ErrorIs(t, sess.SetMode("whatever"), ErrInvalidMode)
	assert.Equal(t, models.ModeAdvisorAsks, sess.Mode())

	_, err := New("x", "bogus")
	assert.ErrorIs(t, err, ErrInvalidMode)
}

func TestSession_Snapshot(t *testing.T) {
	sess := newTestSession(t)
	require.NoError(t, sess.AddDocument(models.Document{Filename: "a.txt", Text: "ay"}))
	sess.SetSummary("a.txt", models.Summary{Text: "sum"})
	sess.AppendExchange("q", "a")

	snap := sess.Snapshot()
	assert.Equal(t, "s-1", snap.ID)
	assert.Equal(t, models.ModeClientAsks, snap.Mode)
	assert.Len(t, snap.Documents, 1)
	assert.Len(t, snap.Turns, 2)
	assert.Equal(t, "sum", snap.Summaries["a.txt"].Text)

	snap.Summaries["a.txt"] = models.Summary{Text: "changed"}
	sum, _ := sess.Summary("a.txt")
	assert.Equal(t, "sum", sum.Text)
}

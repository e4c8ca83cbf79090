package report

import (
	"bytes"
	"errors"
	"fmt"
	"html"
	"strings"

	"document-assistant/internal/helper"
	"document-assistant/internal/models"
	"document-assistant/internal/session"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
	FormatJSON     = "json"
)

var ErrUnknownFormat = errors.New("unknown report format")

const timeLayout = "2006-01-02 15:04:05"

var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

// Report is a rendered session download.
type Report struct {
	Body        []byte
	ContentType string
	Filename    string
}

// Render formats a session snapshot. An empty format means text.
func Render(snap session.Snapshot, format string) (Report, error) {
	switch strings.ToLower(format) {
	case FormatText, "":
		return Report{
			Body:        []byte(renderText(snap)),
			ContentType: "text/plain; charset=utf-8",
			Filename:    filename(snap, "txt"),
		}, nil
	case FormatMarkdown, "md":
		return Report{
			Body:        []byte(renderMarkdown(snap)),
			ContentType: "text/markdown; charset=utf-8",
			Filename:    filename(snap, "md"),
		}, nil
	case FormatHTML:
		body, err := renderHTML(snap)
		if err != nil {
			return Report{}, err
		}
		return Report{Body: body, ContentType: "text/html; charset=utf-8", Filename: filename(snap, "html")}, nil
	case FormatJSON:
		body, err := renderJSON(snap)
		if err != nil {
			return Report{}, err
		}
		return Report{Body: body, ContentType: "application/json", Filename: "chat_history.json"}, nil
	default:
		return Report{}, fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

func filename(snap session.Snapshot, ext string) string {
	id := snap.ID
	if len(id) > 8 {
		id = id[:8]
	}
	return fmt.Sprintf("session-report-%s.%s", id, ext)
}

func speaker(role string) string {
	if role == models.RoleAssistant {
		return "Assistant"
	}
	return "User"
}

func feedbackByTurn(snap session.Snapshot) map[int]models.Feedback {
	out := make(map[int]models.Feedback, len(snap.Feedback))
	for _, fb := range snap.Feedback {
		// latest rating wins
		out[fb.TurnIndex] = fb
	}
	return out
}

func rating(fb models.Feedback) string {
	s := "not helpful"
	if fb.Helpful {
		s = "helpful"
	}
	if fb.Comment != "" {
		s += ": " + fb.Comment
	}
	return s
}

func renderText(snap session.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Session %s\nMode: %s\nCreated: %s\n", snap.ID, snap.Mode, snap.CreatedAt.Format(timeLayout))

	if len(snap.Documents) > 0 {
		b.WriteString("\nDocuments\n")
		for _, d := range snap.Documents {
			fmt.Fprintf(&b, "- %s (%d bytes)\n", d.Filename, d.Size)
			if sum, ok := snap.Summaries[d.Filename]; ok {
				fmt.Fprintf(&b, "  Summary: %s\n", strings.ReplaceAll(sum.Text, "\n", "\n  "))
				for i, q := range sum.Questions {
					fmt.Fprintf(&b, "  %d. %s\n", i+1, q)
				}
			}
		}
	}

	b.WriteString("\nConversation\n")
	if len(snap.Turns) == 0 {
		b.WriteString("(no questions asked)\n")
	}
	ratings := feedbackByTurn(snap)
	for i, t := range snap.Turns {
		fmt.Fprintf(&b, "[%s] %s: %s\n", t.Timestamp.Format(timeLayout), speaker(t.Role), t.Content)
		if fb, ok := ratings[i]; ok {
			fmt.Fprintf(&b, "  Feedback: %s\n", rating(fb))
		}
	}
	return b.String()
}

func renderMarkdown(snap session.Snapshot) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Session report\n\n| Session | Mode | Created |\n|---|---|---|\n| %s | %s | %s |\n",
		snap.ID, snap.Mode, snap.CreatedAt.Format(timeLayout))

	if len(snap.Documents) > 0 {
		b.WriteString("\n## Documents\n")
		for _, d := range snap.Documents {
			fmt.Fprintf(&b, "\n### %s\n", d.Filename)
			sum, ok := snap.Summaries[d.Filename]
			if !ok {
				b.WriteString("\n_No summary._\n")
				continue
			}
			fmt.Fprintf(&b, "\n%s\n", sum.Text)
			if len(sum.Questions) > 0 {
				b.WriteString("\n**Smart questions**\n\n")
				for i, q := range sum.Questions {
					fmt.Fprintf(&b, "%d. %s\n", i+1, q)
				}
			}
		}
	}

	b.WriteString("\n## Conversation\n")
	if len(snap.Turns) == 0 {
		b.WriteString("\n_No questions asked._\n")
	}
	ratings := feedbackByTurn(snap)
	for i, t := range snap.Turns {
		fmt.Fprintf(&b, "\n**%s** (%s)\n\n%s\n", speaker(t.Role), t.Timestamp.Format(timeLayout), t.Content)
		if fb, ok := ratings[i]; ok {
			fmt.Fprintf(&b, "\n> Feedback: %s\n", rating(fb))
		}
	}
	return b.String()
}

func renderHTML(snap session.Snapshot) ([]byte, error) {
	var body bytes.Buffer
	if err := markdown.Convert([]byte(renderMarkdown(snap)), &body); err != nil {
		return nil, fmt.Errorf("failed to render html report: %w", err)
	}
	var out bytes.Buffer
	fmt.Fprintf(&out, "<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n<title>Session %s</title>\n</head>\n<body>\n",
		html.EscapeString(snap.ID))
	out.Write(body.Bytes())
	out.WriteString("</body>\n</html>\n")
	return out.Bytes(), nil
}

// renderJSON writes the chat history as a role/content array.
func renderJSON(snap session.Snapshot) ([]byte, error) {
	history := make([]models.Message, len(snap.Turns))
	for i, t := range snap.Turns {
		history[i] = models.Message{Role: t.Role, Content: t.Content}
	}
	var buf bytes.Buffer
	if err := helper.PrettyPrint(&buf, history); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

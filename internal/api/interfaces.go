// interfaces.go - Dependencies the handlers need, kept small for testing
package api

import (
	"context"

	"document-assistant/internal/models"
	"document-assistant/internal/session"
)

// Assistant is the LLM-backed document service.
type Assistant interface {
	HasLLM() bool
	Summarize(ctx context.Context, doc models.Document) (models.Summary, error)
	Ask(ctx context.Context, sess *session.Session, question string) (models.PromptResponse, error)
	ExtractImageText(ctx context.Context, image []byte, mimeType string) (string, error)
}

// SessionStore resolves sessions by ID.
type SessionStore interface {
	Create(mode models.Mode) (*session.Session, error)
	Get(id string) (*session.Session, bool)
	Delete(id string) bool
	Count() int
}

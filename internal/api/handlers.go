package api

import (
	"net/http"

	"document-assistant/internal/db"
	"document-assistant/internal/session"

	"github.com/labstack/echo/v4"
)

// Handler handles API requests.
type Handler struct {
	sessions  SessionStore
	assistant Assistant
	recorder  db.Recorder
	version   string
}

// NewHandler creates a new API handler. A nil recorder disables persistence.
func NewHandler(sessions SessionStore, assistant Assistant, recorder db.Recorder, version string) *Handler {
	if recorder == nil {
		recorder = db.NopRecorder{}
	}
	return &Handler{
		sessions:  sessions,
		assistant: assistant,
		recorder:  recorder,
		version:   version,
	}
}

// HandleHealth returns server health status.
func (h *Handler) HandleHealth(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":        "ok",
		"version":       h.version,
		"llmConfigured": h.assistant.HasLLM(),
		"sessions":      h.sessions.Count(),
	})
}

// lookupSession resolves the :id path parameter.
func (h *Handler) lookupSession(c echo.Context) (*session.Session, error) {
	id := c.Param("id")
	sess, ok := h.sessions.Get(id)
	if !ok {
		return nil, NewNotFoundError("session", id)
	}
	return sess, nil
}

// handlers_session.go - Session lifecycle handlers
package api

import (
	"net/http"
	"time"

	"document-assistant/internal/models"
	"document-assistant/internal/session"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

type modeRequest struct {
	Mode models.Mode `json:"mode"`
}

type documentInfo struct {
	Filename   string          `json:"filename"`
	Size       int             `json:"size"`
	UploadedAt time.Time       `json:"uploadedAt"`
	Summary    *models.Summary `json:"summary,omitempty"`
}

type sessionResponse struct {
	ID            string         `json:"id"`
	Mode          models.Mode    `json:"mode"`
	CreatedAt     time.Time      `json:"createdAt"`
	Documents     []documentInfo `json:"documents"`
	TurnCount     int            `json:"turnCount"`
	FeedbackCount int            `json:"feedbackCount"`
}

// HandleCreateSession starts a session. The body is optional.
func (h *Handler) HandleCreateSession(c echo.Context) error {
	var req modeRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}

	sess, err := h.sessions.Create(req.Mode)
	if err != nil {
		if apiErr := domainError(err); apiErr != nil {
			return apiErr
		}
		return NewInternalError("failed to create session", err)
	}
	log.Info().Str("session", sess.ID).Str("mode", string(sess.Mode())).Msg("Session started")
	return c.JSON(http.StatusCreated, describe(sess))
}

func (h *Handler) HandleGetSession(c echo.Context) error {
	sess, err := h.lookupSession(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, describe(sess))
}

func (h *Handler) HandleDeleteSession(c echo.Context) error {
	id := c.Param("id")
	if !h.sessions.Delete(id) {
		return NewNotFoundError("session", id)
	}
	log.Info().Str("session", id).Msg("Session discarded")
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) HandleSetMode(c echo.Context) error {
	sess, err := h.lookupSession(c)
	if err != nil {
		return err
	}
	var req modeRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if req.Mode == "" {
		return NewValidationError("mode")
	}
	if err := sess.SetMode(req.Mode); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, describe(sess))
}

func describe(sess *session.Session) sessionResponse {
	snap := sess.Snapshot()
	return sessionResponse{
		ID:            snap.ID,
		Mode:          snap.Mode,
		CreatedAt:     snap.CreatedAt,
		Documents:     documentInfos(snap.Documents, snap.Summaries),
		TurnCount:     len(snap.Turns),
		FeedbackCount: len(snap.Feedback),
	}
}

func documentInfos(docs []models.Document, summaries map[string]models.Summary) []documentInfo {
	out := make([]documentInfo, 0, len(docs))
	for _, d := range docs {
		info := documentInfo{Filename: d.Filename, Size: d.Size, UploadedAt: d.UploadedAt}
		if sum, ok := summaries[d.Filename]; ok {
			info.Summary = &sum
		}
		out = append(out, info)
	}
	return out
}

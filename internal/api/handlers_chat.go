// handlers_chat.go - Question answering, history, feedback and report handlers
package api

import (
	"fmt"
	"net/http"
	"strings"

	"document-assistant/internal/helper"
	"document-assistant/internal/models"
	"document-assistant/internal/report"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

type askRequest struct {
	Question string `json:"question"`
}

type askResponse struct {
	models.PromptResponse
	Mode models.Mode `json:"mode"`
}

type feedbackRequest struct {
	TurnIndex *int   `json:"turnIndex"`
	Helpful   *bool  `json:"helpful"`
	Comment   string `json:"comment"`
}

func (h *Handler) HandleAsk(c echo.Context) error {
	sess, err := h.lookupSession(c)
	if err != nil {
		return err
	}
	var req askRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if strings.TrimSpace(req.Question) == "" {
		return NewValidationError("question")
	}

	log.Debug().Str("session", sess.ID).Str("question", helper.Truncate(req.Question, 80)).Msg("Question received")
	resp, err := h.assistant.Ask(c.Request().Context(), sess, req.Question)
	if err != nil {
		return llmCallError(err)
	}

	mode := sess.Mode()
	if err := h.recorder.RecordTurn(c.Request().Context(), sess.ID, mode, resp); err != nil {
		log.Warn().Err(err).Str("session", sess.ID).Msg("Failed to record turn")
	}
	return c.JSON(http.StatusOK, askResponse{PromptResponse: resp, Mode: mode})
}

func (h *Handler) HandleGetHistory(c echo.Context) error {
	sess, err := h.lookupSession(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"turns": sess.Turns(),
	})
}

// HandleResetHistory clears the conversation. Documents and summaries are kept.
func (h *Handler) HandleResetHistory(c echo.Context) error {
	sess, err := h.lookupSession(c)
	if err != nil {
		return err
	}
	sess.ResetHistory()
	log.Info().Str("session", sess.ID).Msg("Chat history cleared")
	return c.NoContent(http.StatusNoContent)
}

func (h *Handler) HandleAddFeedback(c echo.Context) error {
	sess, err := h.lookupSession(c)
	if err != nil {
		return err
	}
	var req feedbackRequest
	if err := c.Bind(&req); err != nil {
		return NewBadRequestError("invalid request body", err)
	}
	if req.TurnIndex == nil {
		return NewValidationError("turnIndex")
	}
	if req.Helpful == nil {
		return NewValidationError("helpful")
	}

	fb, err := sess.AddFeedback(*req.TurnIndex, *req.Helpful, strings.TrimSpace(req.Comment))
	if err != nil {
		return err
	}
	if err := h.recorder.RecordFeedback(c.Request().Context(), sess.ID, fb); err != nil {
		log.Warn().Err(err).Str("session", sess.ID).Msg("Failed to record feedback")
	}
	return c.JSON(http.StatusCreated, fb)
}

func (h *Handler) HandleListFeedback(c echo.Context) error {
	sess, err := h.lookupSession(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"feedback": sess.Feedback(),
	})
}

// HandleReport downloads the session as text, markdown, html or json.
func (h *Handler) HandleReport(c echo.Context) error {
	sess, err := h.lookupSession(c)
	if err != nil {
		return err
	}
	rep, err := report.Render(sess.Snapshot(), c.QueryParam("format"))
	if err != nil {
		return err
	}
	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", rep.Filename))
	return c.Blob(http.StatusOK, rep.ContentType, rep.Body)
}

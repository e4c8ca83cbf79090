// errors.go - Structured error responses and domain error mapping
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"document-assistant/internal/llmservice"
	"document-assistant/internal/parser"
	"document-assistant/internal/rag"
	"document-assistant/internal/report"
	"document-assistant/internal/session"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

// APIError represents a structured API error response
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewBadRequestError creates a 400 Bad Request error
func NewBadRequestError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusBadRequest,
		Code:    "BAD_REQUEST",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewValidationError creates a 400 validation error for a specific field
func NewValidationError(field string) *APIError {
	return &APIError{
		Status:  http.StatusBadRequest,
		Code:    "VALIDATION_ERROR",
		Message: fmt.Sprintf("validation failed for field: %s", field),
	}
}

func NewNotFoundError(resource string, id string) *APIError {
	return &APIError{
		Status:  http.StatusNotFound,
		Code:    "NOT_FOUND",
		Message: fmt.Sprintf("%s not found: %s", resource, id),
	}
}

func NewConflictError(message string) *APIError {
	return &APIError{
		Status:  http.StatusConflict,
		Code:    "CONFLICT",
		Message: message,
	}
}

func NewInternalError(message string, cause error) *APIError {
	err := &APIError{
		Status:  http.StatusInternalServerError,
		Code:    "INTERNAL_ERROR",
		Message: message,
	}
	if cause != nil {
		err.Details = cause.Error()
	}
	return err
}

// NewMissingKeyError is returned when an operation needs the LLM but no credential
// is configured.
func NewMissingKeyError() *APIError {
	return &APIError{
		Status:  http.StatusServiceUnavailable,
		Code:    "MISSING_API_KEY",
		Message: "LLM API key is not configured",
	}
}

// NewLLMError wraps a failed or timed out LLM call. Calls are not retried.
func NewLLMError(cause error) *APIError {
	return &APIError{
		Status:  http.StatusBadGateway,
		Code:    "LLM_ERROR",
		Message: "the language model request failed",
		Details: cause.Error(),
	}
}

func NewInsufficientContextError() *APIError {
	return &APIError{
		Status:  http.StatusUnprocessableEntity,
		Code:    "INSUFFICIENT_CONTEXT",
		Message: "no document text fits the context budget; upload smaller documents or raise rag.context_budget",
	}
}

// domainError maps service sentinels onto API errors. Unknown errors return nil.
func domainError(err error) *APIError {
	switch {
	case errors.Is(err, session.ErrNotFound):
		return &APIError{Status: http.StatusNotFound, Code: "NOT_FOUND", Message: err.Error()}
	case errors.Is(err, session.ErrDuplicateDocument):
		return NewConflictError(err.Error())
	case errors.Is(err, session.ErrInvalidTurn),
		errors.Is(err, session.ErrInvalidMode),
		errors.Is(err, rag.ErrEmptyQuestion),
		errors.Is(err, rag.ErrEmptyImage),
		errors.Is(err, report.ErrUnknownFormat),
		errors.Is(err, parser.ErrUnsupportedFormat):
		return &APIError{Status: http.StatusBadRequest, Code: "VALIDATION_ERROR", Message: err.Error()}
	case errors.Is(err, rag.ErrNoDocuments):
		return &APIError{Status: http.StatusBadRequest, Code: "NO_DOCUMENTS", Message: "please upload documents before asking questions"}
	case errors.Is(err, llmservice.ErrMissingAPIKey):
		return NewMissingKeyError()
	case errors.Is(err, rag.ErrInsufficientContext):
		return NewInsufficientContextError()
	}
	return nil
}

// llmCallError maps the result of an LLM-backed operation. Anything that is not a
// known sentinel came from the model call itself.
func llmCallError(err error) *APIError {
	if apiErr := domainError(err); apiErr != nil {
		return apiErr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return NewLLMError(fmt.Errorf("request timed out: %w", err))
	}
	return NewLLMError(err)
}

// ErrorHandler writes every error as an APIError envelope.
// Usage: e.HTTPErrorHandler = api.ErrorHandler
func ErrorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}

	var (
		apiErr  *APIError
		httpErr *echo.HTTPError
	)
	switch {
	case errors.As(err, &apiErr):
	case errors.As(err, &httpErr):
		apiErr = &APIError{
			Status:  httpErr.Code,
			Code:    "HTTP_ERROR",
			Message: fmt.Sprintf("%v", httpErr.Message),
		}
	default:
		if apiErr = domainError(err); apiErr == nil {
			apiErr = &APIError{
				Status:  http.StatusInternalServerError,
				Code:    "UNKNOWN_ERROR",
				Message: "An unexpected error occurred",
				Details: err.Error(),
			}
		}
	}

	if apiErr.Status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request().URL.Path).Int("status", apiErr.Status).Msg("Request failed")
	}

	if c.Request().Method == http.MethodHead {
		_ = c.NoContent(apiErr.Status)
		return
	}
	_ = c.JSON(apiErr.Status, apiErr)
}

// handlers_documents.go - Document upload and image OCR handlers
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"sync"

	"document-assistant/internal/models"
	"document-assistant/internal/parser"
	"document-assistant/internal/session"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog/log"
)

const (
	statusAdded   = "added"
	statusSkipped = "skipped"
	statusError   = "error"
)

type uploadResult struct {
	Filename     string          `json:"filename"`
	Status       string          `json:"status"`
	Error        string          `json:"error,omitempty"`
	Size         int             `json:"size,omitempty"`
	Summary      *models.Summary `json:"summary,omitempty"`
	SummaryError string          `json:"summaryError,omitempty"`
}

type imageResponse struct {
	Text     string        `json:"text"`
	Document *documentInfo `json:"document,omitempty"`
}

// HandleUploadDocuments accepts one or more files in the multipart field "files".
// Each file is handled on its own: a failing file is reported and the rest continue.
func (h *Handler) HandleUploadDocuments(c echo.Context) error {
	sess, err := h.lookupSession(c)
	if err != nil {
		return err
	}
	form, err := c.MultipartForm()
	if err != nil {
		return NewBadRequestError("expected a multipart form", err)
	}
	files := form.File["files"]
	if len(files) == 0 {
		return NewValidationError("files")
	}

	results := make([]uploadResult, len(files))
	docs := make([]*models.Document, len(files))
	for i, fh := range files {
		results[i], docs[i] = addUpload(sess, fh)
	}
	if h.assistant.HasLLM() {
		h.summarizeAll(c.Request().Context(), sess, docs, results)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"results": results,
	})
}

// addUpload extracts and stores one file. The returned document is nil unless the
// file was newly added.
func addUpload(sess *session.Session, fh *multipart.FileHeader) (uploadResult, *models.Document) {
	res := uploadResult{Filename: fh.Filename}
	if sess.HasDocument(fh.Filename) {
		res.Status = statusSkipped
		return res, nil
	}

	data, err := readFormFile(fh)
	if err != nil {
		res.Status, res.Error = statusError, err.Error()
		return res, nil
	}
	text, err := parser.ExtractText(fh.Filename, data)
	if err != nil {
		log.Warn().Err(err).Str("file", fh.Filename).Msg("Failed to read document")
		res.Status, res.Error = statusError, fmt.Sprintf("failed to read %s: %v", fh.Filename, err)
		return res, nil
	}

	doc := models.Document{Filename: fh.Filename, Text: text, Size: len(data)}
	if err := sess.AddDocument(doc); err != nil {
		if errors.Is(err, session.ErrDuplicateDocument) {
			res.Status = statusSkipped
			return res, nil
		}
		res.Status, res.Error = statusError, err.Error()
		return res, nil
	}
	res.Status, res.Size = statusAdded, doc.Size
	log.Info().Str("session", sess.ID).Str("file", doc.Filename).Int("chars", len([]rune(text))).Msg("Document added")
	return res, &doc
}

// summarizeAll summarizes the newly added documents concurrently so a multi-file
// upload waits for roughly one LLM call rather than one per file.
func (h *Handler) summarizeAll(ctx context.Context, sess *session.Session, docs []*models.Document, results []uploadResult) {
	var wg sync.WaitGroup
	for i, doc := range docs {
		if doc == nil {
			continue
		}
		wg.Add(1)
		go func(res *uploadResult, doc models.Document) {
			defer wg.Done()
			summary, err := h.assistant.Summarize(ctx, doc)
			if err != nil {
				log.Error().Err(err).Str("file", doc.Filename).Msg("Error summarizing document")
				res.SummaryError = llmCallError(err).Message
				return
			}
			sess.SetSummary(doc.Filename, summary)
			res.Summary = &summary
		}(&results[i], *doc)
	}
	wg.Wait()
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open upload: %w", err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read upload: %w", err)
	}
	return data, nil
}

func (h *Handler) HandleListDocuments(c echo.Context) error {
	sess, err := h.lookupSession(c)
	if err != nil {
		return err
	}
	snap := sess.Snapshot()
	return c.JSON(http.StatusOK, map[string]interface{}{
		"documents": documentInfos(snap.Documents, snap.Summaries),
	})
}

// HandleExtractImage runs OCR on the multipart field "image". With ?add=true the text
// is stored as a session document, named by ?name= or capture-<n>.txt.
func (h *Handler) HandleExtractImage(c echo.Context) error {
	sess, err := h.lookupSession(c)
	if err != nil {
		return err
	}
	fh, err := c.FormFile("image")
	if err != nil {
		return NewValidationError("image")
	}
	data, err := readFormFile(fh)
	if err != nil {
		return NewBadRequestError("failed to read image", err)
	}
	mimeType := imageMIMEType(fh, data)
	if !strings.HasPrefix(mimeType, "image/") {
		return NewBadRequestError("upload is not an image", fmt.Errorf("content type %s", mimeType))
	}

	text, err := h.assistant.ExtractImageText(c.Request().Context(), data, mimeType)
	if err != nil {
		return llmCallError(err)
	}
	resp := imageResponse{Text: text}

	add, _ := strconv.ParseBool(c.QueryParam("add"))
	if add {
		name := c.QueryParam("name")
		if name == "" {
			name = nextCaptureName(sess)
		}
		doc := models.Document{Filename: name, Text: text, Size: len(text)}
		if err := sess.AddDocument(doc); err != nil {
			return err
		}
		resp.Document = &documentInfo{Filename: doc.Filename, Size: doc.Size}
		log.Info().Str("session", sess.ID).Str("file", name).Msg("Captured image text added as document")
	}
	return c.JSON(http.StatusOK, resp)
}

func imageMIMEType(fh *multipart.FileHeader, data []byte) string {
	if ct := fh.Header.Get(echo.HeaderContentType); strings.HasPrefix(ct, "image/") {
		return ct
	}
	return http.DetectContentType(data)
}

func nextCaptureName(sess *session.Session) string {
	for n := 1; ; n++ {
		name := fmt.Sprintf("capture-%d.txt", n)
		if !sess.HasDocument(name) {
			return name
		}
	}
}

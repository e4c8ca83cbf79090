package parser

import (
	"archive/zip"
	"bytes"
	"errors"
	"fmt"
	"html"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"document-assistant/internal/models"

	"github.com/ledongthuc/pdf"
	"github.com/nguyenthenguyen/docx"
	"github.com/rs/zerolog/log"
	"github.com/tealeg/xlsx"
	"github.com/xuri/excelize/v2"
)

var ErrUnsupportedFormat = errors.New("unsupported file format")

var supportedExtensions = []string{".pdf", ".txt", ".md", ".docx", ".pptx", ".xlsx", ".xlsm", ".xltx", ".xltm"}

// SupportedExtensions lists the file extensions ExtractText understands.
func SupportedExtensions() []string {
	return append([]string(nil), supportedExtensions...)
}

// ExtractText returns the plain text of an uploaded file. The format is chosen by
// the filename's extension. Pages, slides, sheets and paragraphs are separated by
// blank lines so the chunker sees them as paragraph boundaries.
func ExtractText(filename string, data []byte) (text string, err error) {
	ext := strings.ToLower(filepath.Ext(filename))

	// the PDF and office readers panic on some malformed input
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("failed to read %s: malformed %s file: %v", filename, ext, r)
		}
	}()

	switch ext {
	case ".pdf":
		text, err = parsePDF(data)
	case ".txt", ".md":
		text = parseText(data)
	case ".docx":
		text, err = parseDOCX(data)
	case ".pptx":
		text, err = parsePPTX(data)
	case ".xlsx":
		text, err = parseXLSX(data)
	case ".xlsm", ".xltx", ".xltm":
		text, err = parseWorkbook(data)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", filename, err)
	}
	return strings.ToValidUTF8(text, "\uFFFD"), nil
}

// ParseFile reads a file from disk, extracts its text and splits it into chunks.
func ParseFile(filePath string, chunkSize int) (models.Document, []models.Chunk, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return models.Document{}, nil, err
	}
	text, err := ExtractText(filePath, data)
	if err != nil {
		return models.Document{}, nil, err
	}
	doc := models.Document{
		Filename: filepath.Base(filePath),
		Text:     text,
		Size:     len(data),
	}
	chunks, err := ChunkDocument(doc, chunkSize)
	if err != nil {
		return models.Document{}, nil, err
	}
	log.Debug().Str("file", doc.Filename).Int("chunks", len(chunks)).Msg("Parsed file")
	return doc, chunks, nil
}

func parsePDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	var pages []string
	numPages := reader.NumPage()
	for i := 1; i <= numPages; i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		pageText, err := page.GetPlainText(nil)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		if strings.TrimSpace(pageText) != "" {
			pages = append(pages, pageText)
		}
	}
	return strings.Join(pages, models.ContextSeparator), nil
}

func parseText(data []byte) string {
	return string(bytes.TrimPrefix(data, []byte("\xef\xbb\xbf")))
}

func parseDOCX(data []byte) (string, error) {
	r, err := docx.ReadDocxFromMemory(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}
	defer r.Close()

	paragraphs := xmlParagraphs(r.Editable().GetContent(), "</w:p>", "w:t")
	return strings.Join(paragraphs, models.ContextSeparator), nil
}

func parsePPTX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", err
	}

	type slide struct {
		num  int
		text string
	}
	var slides []slide
	for _, file := range zr.File {
		name := strings.TrimPrefix(file.Name, "ppt/slides/slide")
		if name == file.Name || !strings.HasSuffix(name, ".xml") {
			continue
		}
		num, err := strconv.Atoi(strings.TrimSuffix(name, ".xml"))
		if err != nil {
			continue
		}
		rc, err := file.Open()
		if err != nil {
			return "", err
		}
		raw, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return "", err
		}
		text := strings.Join(xmlParagraphs(string(raw), "</a:p>", "a:t"), "\n")
		if text != "" {
			slides = append(slides, slide{num: num, text: text})
		}
	}

	sort.Slice(slides, func(i, j int) bool { return slides[i].num < slides[j].num })
	parts := make([]string, len(slides))
	for i, s := range slides {
		parts[i] = s.text
	}
	return strings.Join(parts, models.ContextSeparator), nil
}

func parseXLSX(data []byte) (string, error) {
	f, err := xlsx.OpenBinary(data)
	if err != nil {
		return "", err
	}

	var sheets []string
	for _, sheet := range f.Sheets {
		rows := make([][]string, 0, len(sheet.Rows))
		for _, row := range sheet.Rows {
			cells := make([]string, 0, len(row.Cells))
			for _, cell := range row.Cells {
				cells = append(cells, cell.String())
			}
			rows = append(rows, cells)
		}
		if s := formatSheet(sheet.Name, rows); s != "" {
			sheets = append(sheets, s)
		}
	}
	return strings.Join(sheets, models.ContextSeparator), nil
}

// parseWorkbook handles the macro-enabled and template workbook variants.
func parseWorkbook(data []byte) (string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}
	defer f.Close()

	var sheets []string
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name)
		if err != nil {
			log.Warn().Err(err).Str("sheet", name).Msg("Skipping unreadable sheet")
			continue
		}
		if s := formatSheet(name, rows); s != "" {
			sheets = append(sheets, s)
		}
	}
	return strings.Join(sheets, models.ContextSeparator), nil
}

// formatSheet renders a sheet as a heading line followed by tab-separated rows. Empty
// rows are dropped so a sheet never contains a blank line.
func formatSheet(name string, rows [][]string) string {
	var text strings.Builder
	for _, row := range rows {
		line := strings.TrimRight(strings.Join(row, "\t"), "\t ")
		if line == "" {
			continue
		}
		text.WriteString("\n")
		text.WriteString(line)
	}
	if text.Len() == 0 {
		return ""
	}
	return fmt.Sprintf("## Sheet: %s%s", name, text.String())
}

// xmlParagraphs splits office XML on paragraph close tags and returns the non-empty
// text of each paragraph.
func xmlParagraphs(content, paraClose, textTag string) []string {
	var paragraphs []string
	for _, p := range strings.Split(content, paraClose) {
		text := strings.TrimSpace(extractTextFromXML(p, textTag))
		if text != "" {
			paragraphs = append(paragraphs, text)
		}
	}
	return paragraphs
}

// extractTextFromXML concatenates the character data of every <tag> element.
// Attributes on the opening tag are allowed; self-closing elements are skipped.
func extractTextFromXML(content, tag string) string {
	var text strings.Builder
	open := "<" + tag
	closeTag := "</" + tag + ">"
	for {
		i := strings.Index(content, open)
		if i < 0 {
			break
		}
		rest := content[i+len(open):]
		if rest == "" {
			break
		}
		// <w:tab/>, <w:tbl> and friends share the prefix
		if rest[0] != '>' && rest[0] != ' ' {
			content = rest
			continue
		}
		gt := strings.IndexByte(rest, '>')
		if gt < 0 {
			break
		}
		if gt > 0 && rest[gt-1] == '/' {
			content = rest[gt+1:]
			continue
		}
		body := rest[gt+1:]
		end := strings.Index(body, closeTag)
		if end < 0 {
			break
		}
		text.WriteString(html.UnescapeString(body[:end]))
		content = body[end+len(closeTag):]
	}
	return text.String()
}

package rag

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"document-assistant/internal/config"
	"document-assistant/internal/llmservice"
	"document-assistant/internal/models"
	"document-assistant/internal/parser"
	"document-assistant/internal/session"

	"github.com/rs/zerolog/log"
)

var ErrEmptyImage = errors.New("image is empty")

// Ranker reorders or filters chunks for a question before greedy assembly. It must
// return chunks in document order.
type Ranker interface {
	Rank(ctx context.Context, query string, chunks []models.Chunk, topK int) ([]models.Chunk, error)
}

// Service answers questions and summarizes documents against the session's
// uploaded text. A nil llm means no credential is configured.
type Service struct {
	llm    llmservice.Client
	ranker Ranker
	cfg    config.RAGConfig
}

func NewService(llm llmservice.Client, ranker Ranker, cfg config.RAGConfig) *Service {
	return &Service{llm: llm, ranker: ranker, cfg: cfg}
}

// HasLLM reports whether LLM-backed operations can run.
func (s *Service) HasLLM() bool {
	return s.llm != nil
}

// BuildContext chunks docs in upload order and greedily packs the chunks into
// budget characters. With a ranker and a non-empty query, only the top-ranked
// chunks are considered. An empty result is ErrInsufficientContext.
func (s *Service) BuildContext(ctx context.Context, query string, docs []models.Document, budget int) (string, error) {
	var chunks []models.Chunk
	for _, doc := range docs {
		c, err := parser.ChunkDocument(doc, s.cfg.ChunkSize)
		if err != nil {
			return "", fmt.Errorf("failed to chunk %s: %w", doc.Filename, err)
		}
		chunks = append(chunks, c...)
	}

	if s.ranker != nil && query != "" && len(chunks) > 0 {
		ranked, err := s.ranker.Rank(ctx, query, chunks, s.cfg.TopK)
		if err != nil {
			log.Warn().Err(err).Msg("Similarity ranking failed, using document order")
		} else {
			chunks = ranked
		}
	}

	blob := AssembleContext(chunkContents(chunks), budget)
	if blob == "" {
		return "", ErrInsufficientContext
	}
	log.Debug().Int("chunks", len(chunks)).Int("chars", len([]rune(blob))).Int("budget", budget).Msg("Assembled context")
	return blob, nil
}

// Summarize produces a summary and smart questions for one document.
func (s *Service) Summarize(ctx context.Context, doc models.Document) (models.Summary, error) {
	if s.llm == nil {
		return models.Summary{}, llmservice.ErrMissingAPIKey
	}
	blob, err := s.BuildContext(ctx, "", []models.Document{doc}, s.cfg.SummaryBudget)
	if err != nil {
		return models.Summary{}, err
	}

	prompt := fmt.Sprintf(models.SummaryPromptTemplate, models.SmartQuestionCount, doc.Filename, blob)
	reply, err := s.llm.Chat(ctx, []models.Message{
		{Role: models.RoleSystem, Content: models.SummarySystemPrompt},
		{Role: models.RoleUser, Content: prompt},
	})
	if err != nil {
		return models.Summary{}, err
	}
	return ParseSummary(reply), nil
}

// Ask answers question from the session's documents. The exchange is appended to the
// session history only when the LLM call succeeds.
func (s *Service) Ask(ctx context.Context, sess *session.Session, question string) (models.PromptResponse, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return models.PromptResponse{}, ErrEmptyQuestion
	}
	docs := sess.Documents()
	if len(docs) == 0 {
		return models.PromptResponse{}, ErrNoDocuments
	}
	if s.llm == nil {
		return models.PromptResponse{}, llmservice.ErrMissingAPIKey
	}

	blob, err := s.BuildContext(ctx, question, docs, s.cfg.ContextBudget)
	if err != nil {
		return models.PromptResponse{}, err
	}

	mode := sess.Mode()
	reply, err := s.llm.Chat(ctx, promptFor(mode, blob, question))
	if err != nil {
		log.Error().Err(err).Str("session", sess.ID).Msg("Error generating answer")
		return models.PromptResponse{}, err
	}

	idx := sess.AppendExchange(question, reply)
	log.Info().Str("session", sess.ID).Str("mode", string(mode)).Int("turn", idx).Msg("Answered question")
	return models.PromptResponse{
		Query:     question,
		Answer:    reply,
		Context:   blob,
		TurnIndex: idx,
	}, nil
}

// ExtractImageText runs OCR on an image through the vision model.
func (s *Service) ExtractImageText(ctx context.Context, image []byte, mimeType string) (string, error) {
	if len(image) == 0 {
		return "", ErrEmptyImage
	}
	if s.llm == nil {
		return "", llmservice.ErrMissingAPIKey
	}
	return s.llm.ExtractImageText(ctx, models.ImageTextPrompt, image, mimeType)
}

func promptFor(mode models.Mode, blob, question string) []models.Message {
	if mode == models.ModeAdvisorAsks {
		return []models.Message{
			{Role: models.RoleSystem, Content: models.AdvisorSystemPrompt},
			{Role: models.RoleUser, Content: fmt.Sprintf(models.AdvisorPromptTemplate, blob, question)},
		}
	}
	return []models.Message{
		{Role: models.RoleSystem, Content: models.AnswerSystemPrompt},
		{Role: models.RoleUser, Content: fmt.Sprintf(models.AnswerPromptTemplate, blob, question)},
	}
}

var (
	questionsHeadingRe = regexp.MustCompile(`(?im)^[ \t]*(?:#+[ \t]*)?(?:\*\*)?(?:smart[ \t]+)?questions[ \t]*:?[ \t]*(?:\*\*)?[ \t]*:?[ \t]*$`)
	summaryHeadingRe   = regexp.MustCompile(`(?i)^[ \t]*(?:#+[ \t]*)?(?:\*\*)?summary[ \t]*:?[ \t]*(?:\*\*)?[ \t]*:?[ \t]*`)
	listItemRe         = regexp.MustCompile(`^\s*(?:\d+[.)]|[-*•])\s+(.+?)\s*$`)
)

// ParseSummary splits a summary reply into its text and up to five questions. A
// reply without a questions heading is kept whole as the summary text.
func ParseSummary(reply string) models.Summary {
	reply = strings.TrimSpace(reply)
	loc := questionsHeadingRe.FindStringIndex(reply)
	if loc == nil {
		return models.Summary{Text: reply}
	}

	text := strings.TrimSpace(summaryHeadingRe.ReplaceAllString(reply[:loc[0]], ""))
	var questions []string
	for _, line := range strings.Split(reply[loc[1]:], "\n") {
		m := listItemRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		questions = append(questions, m[1])
		if len(questions) == models.SmartQuestionCount {
			break
		}
	}
	if text == "" && len(questions) == 0 {
		return models.Summary{Text: reply}
	}
	return models.Summary{Text: text, Questions: questions}
}

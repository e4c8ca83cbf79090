package llmservice

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"document-assistant/internal/config"
	"document-assistant/internal/models"

	"github.com/rs/zerolog/log"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

var (
	ErrMissingAPIKey = errors.New("missing API key for the configured LLM provider")
	ErrEmptyResponse = errors.New("LLM returned an empty response")
)

var thinkRe = regexp.MustCompile(models.ThinkTag)

// Client is the chat and vision surface the rest of the service needs from an LLM.
type Client interface {
	Chat(ctx context.Context, messages []models.Message) (string, error)
	ExtractImageText(ctx context.Context, prompt string, image []byte, mimeType string) (string, error)
}

// New builds the client for cfg.Provider. Calls are never retried.
func New(ctx context.Context, cfg config.LLMConfig) (Client, error) {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second

	switch strings.ToLower(cfg.Provider) {
	case config.ProviderOpenAI, "":
		if cfg.Key == "" {
			return nil, ErrMissingAPIKey
		}
		llm, err := openai.New(
			openai.WithBaseURL(cfg.BaseURL),
			openai.WithToken(strings.TrimPrefix(cfg.Key, "Bearer ")),
			openai.WithModel(cfg.Model),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create openai client: %w", err)
		}
		return &LangChainClient{llm: llm, model: cfg.Model, visionModel: cfg.VisionModel, timeout: timeout}, nil

	case config.ProviderOllama:
		opts := []ollama.Option{ollama.WithModel(cfg.Model)}
		if cfg.BaseURL != "" {
			opts = append(opts, ollama.WithServerURL(cfg.BaseURL))
		}
		llm, err := ollama.New(opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to create ollama client: %w", err)
		}
		return &LangChainClient{llm: llm, model: cfg.Model, visionModel: cfg.VisionModel, timeout: timeout}, nil

	case config.ProviderGemini:
		if cfg.Key == "" {
			return nil, ErrMissingAPIKey
		}
		return NewGeminiClient(ctx, cfg)

	default:
		return nil, fmt.Errorf("unknown llm provider: %q", cfg.Provider)
	}
}

// LangChainClient talks to any langchaingo model: OpenAI-compatible endpoints and Ollama.
type LangChainClient struct {
	llm         llms.Model
	model       string
	visionModel string
	timeout     time.Duration
}

func (c *LangChainClient) Chat(ctx context.Context, messages []models.Message) (string, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	log.Debug().Str("model", c.model).Int("messages", len(messages)).Msg("Generating content")
	resp, err := c.llm.GenerateContent(ctx, toMessageContent(messages))
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	return firstChoice(resp)
}

func (c *LangChainClient) ExtractImageText(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	ctx, cancel := withTimeout(ctx, c.timeout)
	defer cancel()

	content := []llms.MessageContent{{
		Role: llms.ChatMessageTypeHuman,
		Parts: []llms.ContentPart{
			llms.TextContent{Text: prompt},
			llms.BinaryPart(mimeType, image),
		},
	}}

	log.Debug().Str("model", c.visionModel).Int("bytes", len(image)).Msg("Extracting image text")
	resp, err := c.llm.GenerateContent(ctx, content, llms.WithModel(c.visionModel))
	if err != nil {
		return "", fmt.Errorf("failed to extract image text: %w", err)
	}
	return firstChoice(resp)
}

func toMessageContent(messages []models.Message) []llms.MessageContent {
	out := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		out = append(out, llms.TextParts(chatMessageType(m.Role), m.Content))
	}
	return out
}

func chatMessageType(role string) llms.ChatMessageType {
	switch role {
	case models.RoleSystem:
		return llms.ChatMessageTypeSystem
	case models.RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}

func firstChoice(resp *llms.ContentResponse) (string, error) {
	if resp == nil || len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	return CleanResponse(resp.Choices[0].Content)
}

// CleanResponse drops <think> blocks emitted by reasoning models and rejects
// replies that are empty afterwards.
func CleanResponse(text string) (string, error) {
	text = strings.TrimSpace(thinkRe.ReplaceAllString(text, ""))
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}

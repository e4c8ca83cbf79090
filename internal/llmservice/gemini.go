package llmservice

import (
	"context"
	"fmt"
	"strings"
	"time"

	"document-assistant/internal/config"
	"document-assistant/internal/models"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"
)

// GeminiClient calls the Gemini API directly through the genai SDK.
type GeminiClient struct {
	client      *genai.Client
	model       string
	visionModel string
	timeout     time.Duration
}

func NewGeminiClient(ctx context.Context, cfg config.LLMConfig) (*GeminiClient, error) {
	cc := &genai.ClientConfig{
		APIKey:  cfg.Key,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		cc.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, cc)
	if err != nil {
		return nil, fmt.Errorf("failed to create gemini client: %w", err)
	}
	return &GeminiClient{
		client:      client,
		model:       cfg.Model,
		visionModel: cfg.VisionModel,
		timeout:     time.Duration(cfg.TimeoutSeconds) * time.Second,
	}, nil
}

func (g *GeminiClient) Chat(ctx context.Context, messages []models.Message) (string, error) {
	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	system, contents := toGeminiContents(messages)
	var genCfg *genai.GenerateContentConfig
	if system != "" {
		genCfg = &genai.GenerateContentConfig{
			SystemInstruction: genai.NewContentFromText(system, genai.RoleUser),
		}
	}

	log.Debug().Str("model", g.model).Int("messages", len(contents)).Msg("Generating content with gemini")
	resp, err := g.client.Models.GenerateContent(ctx, g.model, contents, genCfg)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	return CleanResponse(resp.Text())
}

func (g *GeminiClient) ExtractImageText(ctx context.Context, prompt string, image []byte, mimeType string) (string, error) {
	ctx, cancel := withTimeout(ctx, g.timeout)
	defer cancel()

	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{
			genai.NewPartFromText(prompt),
			genai.NewPartFromBytes(image, mimeType),
		}, genai.RoleUser),
	}
	resp, err := g.client.Models.GenerateContent(ctx, g.visionModel, contents, nil)
	if err != nil {
		return "", fmt.Errorf("failed to extract image text: %w", err)
	}
	return CleanResponse(resp.Text())
}

// toGeminiContents folds system messages into one system instruction and maps the
// remaining turns onto Gemini's user/model roles.
func toGeminiContents(messages []models.Message) (string, []*genai.Content) {
	var (
		system   []string
		contents []*genai.Content
	)
	for _, m := range messages {
		switch m.Role {
		case models.RoleSystem:
			system = append(system, m.Content)
		case models.RoleAssistant:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleModel))
		default:
			contents = append(contents, genai.NewContentFromText(m.Content, genai.RoleUser))
		}
	}
	return strings.Join(system, "\n\n"), contents
}

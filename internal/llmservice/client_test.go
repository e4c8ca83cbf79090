package llmservice

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"document-assistant/internal/config"
	"document-assistant/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func completionServer(t *testing.T, content string, captured *[]byte) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if captured != nil {
			body, _ := io.ReadAll(r.Body)
			*captured = body
		}
		resp := map[string]any{
			"id":      "chatcmpl-1",
			"object":  "chat.completion",
			"created": 1700000000,
			"model":   "test-model",
			"choices": []map[string]any{{
				"index":         0,
				"message":       map[string]any{"role": "assistant", "content": content},
				"finish_reason": "stop",
			}},
			"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 3, "total_tokens": 13},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)
	return server
}

func testConfig(baseURL string) config.LLMConfig {
	return config.LLMConfig{
		Provider:       config.ProviderOpenAI,
		BaseURL:        baseURL,
		Key:            "test-key",
		Model:          "test-model",
		VisionModel:    "test-vision",
		TimeoutSeconds: 5,
	}
}

func TestOpenAIChat(t *testing.T) {
	var body []byte
	server := completionServer(t, "The report covers Q3 revenue.", &body)

	client, err := New(context.Background(), testConfig(server.URL))
	require.NoError(t, err)

	answer, err := client.Chat(context.Background(), []models.Message{
		{Role: models.RoleSystem, Content: "be brief"},
		{Role: models.RoleUser, Content: "what is in the report?"},
	})
	require.NoError(t, err)
	assert.Equal(t, "The report covers Q3 revenue.", answer)

	var req struct {
		Model    string `json:"model"`
		Messages []struct {
			Role string `json:"role"`
		} `json:"messages"`
	}
	require.NoError(t, json.Unmarshal(body, &req))
	assert.Equal(t, "test-model", req.Model)
	require.Len(t, req.Messages, 2)
	assert.Equal(t, "system", req.Messages[0].Role)
	assert.Equal(t, "user", req.Messages[1].Role)
	assert.Contains(t, string(body), "what is in the report?")
}

func TestOpenAIChat_EmptyReply(t *testing.T) {
	server := completionServer(t, "   ", nil)

	client, err := New(context.Background(), testConfig(server.URL))
	require.NoError(t, err)

	_, err = client.Chat(context.Background(), []models.Message{{Role: models.RoleUser, Content: "hi"}})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestOpenAIChat_ServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":{"message":"boom","type":"server_error"}}`, http.StatusInternalServerError)
	}))
	defer server.Close()

	cfg := testConfig(server.URL)
	client, err := New(context.Background(), cfg)
	require.NoError(t, err)

	_, err = client.Chat(context.Background(), []models.Message{{Role: models.RoleUser, Content: "hi"}})
	assert.Error(t, err)
}

func TestOpenAIExtractImageText_UsesVisionModel(t *testing.T) {
	var body []byte
	server := completionServer(t, "INVOICE 42", &body)

	client, err := New(context.Background(), testConfig(server.URL))
	require.NoError(t, err)

	text, err := client.ExtractImageText(context.Background(), models.ImageTextPrompt, []byte{0x89, 'P', 'N', 'G'}, "image/png")
	require.NoError(t, err)
	assert.Equal(t, "INVOICE 42", text)

	var req struct {
		Model string `json:"model"`
	}
	require.NoError(t, json.Unmarshal(body, &req))
	assert.Equal(t, "test-vision", req.Model)
}

func TestNew_MissingKey(t *testing.T) {
	for _, provider := range []string{config.ProviderOpenAI, config.ProviderGemini} {
		cfg := testConfig("http://localhost")
		cfg.Provider = provider
		cfg.Key = ""
		_, err := New(context.Background(), cfg)
		assert.ErrorIs(t, err, ErrMissingAPIKey, provider)
	}
}

func TestNew_UnknownProvider(t *testing.T) {
	cfg := testConfig("http://localhost")
	cfg.Provider = "watson"
	_, err := New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestNew_OllamaNeedsNoKey(t *testing.T) {
	cfg := testConfig("http://localhost:11434")
	cfg.Provider = config.ProviderOllama
	cfg.Key = ""
	client, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &LangChainClient{}, client)
}

func TestCleanResponse(t *testing.T) {
	got, err := CleanResponse("<think>\nweighing options\n</think>\n\nFinal answer.")
	require.NoError(t, err)
	assert.Equal(t, "Final answer.", got)

	_, err = CleanResponse("<think>only thoughts</think>")
	assert.ErrorIs(t, err, ErrEmptyResponse)
}

func TestToGeminiContents(t *testing.T) {
	system, contents := toGeminiContents([]models.Message{
		{Role: models.RoleSystem, Content: "rule one"},
		{Role: models.RoleUser, Content: "question"},
		{Role: models.RoleAssistant, Content: "answer"},
		{Role: models.RoleSystem, Content: "rule two"},
	})

	assert.Equal(t, "rule one\n\nrule two", system)
	require.Len(t, contents, 2)
	assert.Equal(t, string(genai.RoleUser), contents[0].Role)
	assert.Equal(t, string(genai.RoleModel), contents[1].Role)
	assert.Equal(t, "answer", contents[1].Parts[0].Text)
}

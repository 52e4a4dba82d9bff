package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"google.golang.org/genai"

	"github.com/Duff-Y11/Symbiosis-Memory/internal/config"
)

// Provider sends an instruction and user text to a text-generation service
// and returns its raw reply.
type Provider interface {
	Complete(ctx context.Context, instruction, text string) (string, error)
}

// ErrNotConfigured is returned when no API key is available.
var ErrNotConfigured = errors.New("external extraction not configured")

// NewProvider builds the provider named by cfg. A missing API key yields a
// provider that always fails with ErrNotConfigured, which External treats as
// "no candidates".
func NewProvider(cfg config.LLMConfig) Provider {
	apiKey := ""
	if cfg.APIKeyEnv != "" {
		apiKey = os.Getenv(cfg.APIKeyEnv)
	}
	if apiKey == "" {
		return unconfigured{}
	}

	switch cfg.Provider {
	case "openai":
		return NewOpenAIProvider(cfg.Endpoint, apiKey, cfg.Model)
	case "anthropic":
		return NewAnthropicProvider(cfg.Endpoint, apiKey, cfg.Model)
	case "gemini":
		return NewGeminiProvider(apiKey, cfg.Model)
	default:
		return unconfigured{}
	}
}

type unconfigured struct{}

func (unconfigured) Complete(context.Context, string, string) (string, error) {
	return "", ErrNotConfigured
}

// --- OpenAI-compatible Provider ---

// OpenAIProvider calls any OpenAI-compatible chat completions endpoint.
type OpenAIProvider struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiChatRequest struct {
	Model       string          `json:"model"`
	Temperature float64         `json:"temperature"`
	Messages    []openaiMessage `json:"messages"`
}

type openaiChatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// NewOpenAIProvider creates a provider for the given chat completions URL.
// Timeouts come from the request context.
func NewOpenAIProvider(endpoint, apiKey, model string) *OpenAIProvider {
	if endpoint == "" {
		endpoint = "https://api.openai.com/v1/chat/completions"
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &OpenAIProvider{
		endpoint: endpoint,
		apiKey:   apiKey,
		model:    model,
		client:   &http.Client{},
	}
}

func (p *OpenAIProvider) Complete(ctx context.Context, instruction, text string) (string, error) {
	body, _ := json.Marshal(openaiChatRequest{
		Model:       p.model,
		Temperature: 0.2,
		Messages: []openaiMessage{
			{Role: "system", Content: instruction},
			{Role: "user", Content: text},
		},
	})
	req, err := http.NewRequestWithContext(ctx, "POST", p.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("openai error %d: %s", resp.StatusCode, string(b))
	}

	var result openaiChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}
	return result.Choices[0].Message.Content, nil
}

// --- Anthropic Provider ---

// AnthropicProvider uses the Anthropic Messages API.
type AnthropicProvider struct {
	client anthropic.Client
	model  string
}

// NewAnthropicProvider creates a provider; baseURL may be empty.
func NewAnthropicProvider(baseURL, apiKey, model string) *AnthropicProvider {
	if model == "" || strings.HasPrefix(model, "gpt-") {
		model = "claude-3-5-haiku-latest"
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	return &AnthropicProvider{
		client: anthropic.NewClient(opts...),
		model:  model,
	}
}

func (p *AnthropicProvider) Complete(ctx context.Context, instruction, text string) (string, error) {
	resp, err := p.client.Messages.New(ctx, anthropic.MessageNewParams{
		Model:     anthropic.Model(p.model),
		MaxTokens: 1024,
		System: []anthropic.TextBlockParam{
			{Text: instruction},
		},
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(text)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("anthropic request failed: %w", err)
	}

	var sb strings.Builder
	for _, block := range resp.Content {
		if block.Type == "text" {
			sb.WriteString(block.Text)
		}
	}
	return sb.String(), nil
}

// --- Gemini Provider ---

// GeminiProvider uses the Gemini API through the genai SDK.
type GeminiProvider struct {
	apiKey string
	model  string
}

// NewGeminiProvider creates a provider; the client is built per request so
// it inherits the request context.
func NewGeminiProvider(apiKey, model string) *GeminiProvider {
	if model == "" || strings.HasPrefix(model, "gpt-") {
		model = "gemini-2.0-flash"
	}
	return &GeminiProvider{apiKey: apiKey, model: model}
}

func (p *GeminiProvider) Complete(ctx context.Context, instruction, text string) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  p.apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return "", fmt.Errorf("gemini client: %w", err)
	}

	resp, err := client.Models.GenerateContent(ctx, p.model, genai.Text(text), &genai.GenerateContentConfig{
		SystemInstruction: genai.NewContentFromText(instruction, genai.RoleUser),
		Temperature:       genai.Ptr[float32](0.2),
	})
	if err != nil {
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	return resp.Text(), nil
}

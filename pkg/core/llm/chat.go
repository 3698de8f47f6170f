package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ChatProvider talks to any OpenAI-compatible chat completions endpoint.
type ChatProvider struct {
	Name         string
	Endpoint     string
	DefaultModel string
	KeyEnv       []string
	HTTPClient   *http.Client
}

var _ Provider = (*ChatProvider)(nil)

// NewOpenAI returns the OpenAI provider.
func NewOpenAI() *ChatProvider {
	return &ChatProvider{
		Name:         "openai",
		Endpoint:     "https://api.openai.com/v1/chat/completions",
		DefaultModel: "gpt-5-mini",
		KeyEnv:       []string{"OPENAI_API_KEY"},
	}
}

// NewDeepSeek returns the DeepSeek provider.
func NewDeepSeek() *ChatProvider {
	return &ChatProvider{
		Name:         "deepseek",
		Endpoint:     "https://api.deepseek.com/chat/completions",
		DefaultModel: "deepseek-chat",
		KeyEnv:       []string{"DEEPSEEK_API_KEY"},
	}
}

// NewQwen returns the Qwen provider through DashScope's compatible mode.
func NewQwen() *ChatProvider {
	return &ChatProvider{
		Name:         "qwen",
		Endpoint:     "https://dashscope-intl.aliyuncs.com/compatible-mode/v1/chat/completions",
		DefaultModel: "qwen-max",
		KeyEnv:       []string{"DASHSCOPE_API_KEY", "QWEN_API_KEY"},
	}
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ResponseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string          `json:"model"`
	Messages       []Message       `json:"messages"`
	MaxTokens      int             `json:"max_tokens,omitempty"`
	Temperature    *float64        `json:"temperature,omitempty"`
	ResponseFormat *ResponseFormat `json:"response_format,omitempty"`
	Stream         bool            `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// GenerateResponse sends one system + user exchange and returns the first
// choice's content.
func (p *ChatProvider) GenerateResponse(ctx context.Context, prompt string, systemPrompt string, options map[string]interface{}) (string, error) {
	key := apiKey(options, p.KeyEnv...)
	if key == "" {
		return "", fmt.Errorf("%s: %w", p.Name, ErrMissingAPIKey)
	}

	model := stringOption(options, OptionModel)
	if model == "" {
		model = p.DefaultModel
	}

	reqBody := chatRequest{
		Model:     model,
		MaxTokens: intOption(options, OptionMaxTokens, 0),
	}
	if systemPrompt != "" {
		reqBody.Messages = append(reqBody.Messages, Message{Role: "system", Content: systemPrompt})
	}
	reqBody.Messages = append(reqBody.Messages, Message{Role: "user", Content: prompt})
	if t, ok := floatOption(options, OptionTemperature); ok {
		reqBody.Temperature = &t
	}
	if boolOption(options, OptionJSON) {
		reqBody.ResponseFormat = &ResponseFormat{Type: "json_object"}
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("%s: failed to marshal request: %w", p.Name, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("%s: failed to create request: %w", p.Name, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+key)

	res, err := p.client().Do(req)
	if err != nil {
		return "", fmt.Errorf("%s: request failed: %w", p.Name, err)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("%s: failed to read response: %w", p.Name, err)
	}
	if res.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%s: API error: status=%d body=%s", p.Name, res.StatusCode, truncate(string(body), 512))
	}

	var out chatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("%s: failed to decode response: %w", p.Name, err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("%s: API error: %s", p.Name, out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return "", fmt.Errorf("%s: response has no choices", p.Name)
	}
	return out.Choices[0].Message.Content, nil
}

func (p *ChatProvider) AdaptInstructions(raw string) string {
	return raw
}

func (p *ChatProvider) client() *http.Client {
	if p.HTTPClient != nil {
		return p.HTTPClient
	}
	return &http.Client{Timeout: 5 * time.Minute}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

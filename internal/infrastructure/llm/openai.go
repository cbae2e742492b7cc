package llm

import (
	"context"
	"fmt"
	"strings"

	"ArticleRelay/internal/config"
	"ArticleRelay/internal/domain"
	"ArticleRelay/internal/infrastructure/httpjson"
	"ArticleRelay/internal/ports"
)

// OpenAIClient implements ports.TextGenerator backed by the chat completions API.
type OpenAIClient struct {
	api *httpjson.Client
}

var _ ports.TextGenerator = (*OpenAIClient)(nil)

// NewOpenAIClient builds a client from configuration.
func NewOpenAIClient(cfg config.OpenAIConfig) *OpenAIClient {
	return &OpenAIClient{api: httpjson.NewClient(cfg.BaseURL, cfg.APIKey, cfg.Timeout)}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature,omitempty"`
	TopP           float64        `json:"top_p,omitempty"`
	MaxTokens      int            `json:"max_tokens,omitempty"`
	ResponseFormat map[string]any `json:"response_format,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message      chatMessage `json:"message"`
		FinishReason string      `json:"finish_reason"`
	} `json:"choices"`
}

// Complete sends instructions as the system message and returns the first choice.
func (c *OpenAIClient) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	if c == nil || c.api == nil {
		return "", fmt.Errorf("openai client is nil")
	}
	if req.Model == "" {
		return "", fmt.Errorf("openai client misconfigured: model is empty")
	}

	body := chatRequest{
		Model: req.Model,
		Messages: []chatMessage{
			{Role: "system", Content: safePrompt(req.Instructions)},
			{Role: "user", Content: req.Prompt},
		},
		Temperature: req.Temperature,
		TopP:        req.TopP,
		MaxTokens:   req.MaxTokens,
	}
	if req.Format == domain.FormatJSON {
		body.ResponseFormat = map[string]any{"type": "json_object"}
	}

	var resp chatResponse
	if err := c.api.Post(ctx, "/chat/completions", body, &resp); err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func safePrompt(prompt string) string {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return "You are a helpful assistant."
	}
	return prompt
}

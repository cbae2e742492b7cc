package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/aktagon/llmkit/anthropic"
	"github.com/aktagon/llmkit/anthropic/types"

	"ArticleRelay/internal/domain"
	"ArticleRelay/internal/ports"
)

type anthropicPrompt func(systemPrompt, userPrompt, schema, apiKey string, settings types.RequestSettings) (string, error)

// AnthropicClient implements ports.TextGenerator with llmkit. JSON requests
// pass the schema so the response is structured output.
type AnthropicClient struct {
	apiKey string
	prompt anthropicPrompt
}

var _ ports.TextGenerator = (*AnthropicClient)(nil)

// NewAnthropicClient builds a client for the given API key.
func NewAnthropicClient(apiKey string) *AnthropicClient {
	return &AnthropicClient{apiKey: apiKey, prompt: promptAnthropic}
}

func promptAnthropic(systemPrompt, userPrompt, schema, apiKey string, settings types.RequestSettings) (string, error) {
	response, err := anthropic.PromptWithSettings(systemPrompt, userPrompt, schema, apiKey, settings)
	if err != nil {
		return "", err
	}
	if len(response.Content) == 0 {
		return "", fmt.Errorf("no content in response")
	}
	return response.Content[0].Text, nil
}

type promptResult struct {
	text string
	err  error
}

// Complete runs one prompt. llmkit has no context support, so the call runs
// in its own goroutine and ctx only bounds how long we wait for it.
func (c *AnthropicClient) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("anthropic client misconfigured: api key is empty")
	}

	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	settings := types.RequestSettings{
		Model:       req.Model,
		MaxTokens:   maxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
	}

	schema := ""
	if req.Format == domain.FormatJSON {
		schema = req.Schema
	}

	done := make(chan promptResult, 1)
	go func() {
		text, err := c.prompt(safePrompt(req.Instructions), req.Prompt, schema, c.apiKey, settings)
		done <- promptResult{text: text, err: err}
	}()

	select {
	case <-ctx.Done():
		return "", fmt.Errorf("anthropic prompt: %w", ctx.Err())
	case res := <-done:
		if res.err != nil {
			return "", fmt.Errorf("anthropic prompt: %w", res.err)
		}
		return strings.TrimSpace(res.text), nil
	}
}

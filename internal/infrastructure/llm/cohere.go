package llm

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"strings"
	"time"

	cohere "github.com/cohere-ai/cohere-go/v2"
	cohereclient "github.com/cohere-ai/cohere-go/v2/client"

	"ArticleRelay/internal/domain"
	"ArticleRelay/internal/ports"
)

type cohereChat func(ctx context.Context, req *cohere.ChatRequest) (*cohere.NonStreamedChatResponse, error)

// CohereClient implements ports.TextGenerator with the Cohere chat endpoint.
// Instructions travel as the preamble; JSON shape is enforced by the caller's
// validation, not by the API.
type CohereClient struct {
	chat cohereChat
}

var _ ports.TextGenerator = (*CohereClient)(nil)

// NewCohereClient builds a client for the given API key.
func NewCohereClient(apiKey string, timeout time.Duration) *CohereClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	// HTTP/1.1 only; the API has been seen resetting HTTP/2 streams.
	httpClient := &http.Client{
		Timeout: timeout,
		Transport: &http.Transport{
			TLSNextProto:      make(map[string]func(authority string, c *tls.Conn) http.RoundTripper),
			ForceAttemptHTTP2: false,
		},
	}
	client := cohereclient.NewClient(
		cohereclient.WithToken(apiKey),
		cohereclient.WithHTTPClient(httpClient),
	)
	return &CohereClient{
		chat: func(ctx context.Context, req *cohere.ChatRequest) (*cohere.NonStreamedChatResponse, error) {
			return client.Chat(ctx, req)
		},
	}
}

// Complete sends one chat turn and returns the generated text.
func (c *CohereClient) Complete(ctx context.Context, req domain.CompletionRequest) (string, error) {
	prompt := req.Prompt
	if req.Format == domain.FormatJSON {
		prompt += "\n\nRespond with a single JSON object only."
		if req.Schema != "" {
			prompt += " It must match this JSON schema:\n" + req.Schema
		}
	}

	preamble := safePrompt(req.Instructions)
	chatReq := &cohere.ChatRequest{
		Message:  prompt,
		Preamble: &preamble,
	}
	if req.Model != "" {
		model := req.Model
		chatReq.Model = &model
	}
	if req.Temperature > 0 {
		temperature := req.Temperature
		chatReq.Temperature = &temperature
	}
	if req.TopP > 0 {
		p := req.TopP
		chatReq.P = &p
	}
	if req.MaxTokens > 0 {
		maxTokens := req.MaxTokens
		chatReq.MaxTokens = &maxTokens
	}

	resp, err := c.chat(ctx, chatReq)
	if err != nil {
		return "", fmt.Errorf("cohere chat: %w", err)
	}
	if resp == nil {
		return "", fmt.Errorf("cohere chat returned empty response")
	}

	return stripCodeFence(resp.Text), nil
}

// stripCodeFence removes a ```json fence some models wrap around JSON answers.
func stripCodeFence(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl >= 0 {
		text = text[nl+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}

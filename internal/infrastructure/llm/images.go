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

// OpenAIImages implements ports.ImageGenerator with the images API.
type OpenAIImages struct {
	api *httpjson.Client
}

var _ ports.ImageGenerator = (*OpenAIImages)(nil)

// NewOpenAIImages builds an image client from configuration.
func NewOpenAIImages(cfg config.OpenAIConfig) *OpenAIImages {
	return &OpenAIImages{api: httpjson.NewClient(cfg.BaseURL, cfg.APIKey, cfg.Timeout)}
}

// Generate requests exactly one image and returns its hosted URL.
func (c *OpenAIImages) Generate(ctx context.Context, req domain.ImageRequest) (string, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return "", fmt.Errorf("image prompt is empty")
	}

	body := map[string]any{
		"model":  req.Model,
		"prompt": req.Prompt,
		"n":      1,
	}
	if req.Size != "" {
		body["size"] = req.Size
	}
	if req.Quality != "" {
		body["quality"] = req.Quality
	}

	var resp struct {
		Data []struct {
			URL           string `json:"url"`
			RevisedPrompt string `json:"revised_prompt"`
		} `json:"data"`
	}
	if err := c.api.Post(ctx, "/images/generations", body, &resp); err != nil {
		return "", fmt.Errorf("generate image: %w", err)
	}
	if len(resp.Data) == 0 || resp.Data[0].URL == "" {
		return "", fmt.Errorf("image response contained no url")
	}

	return resp.Data[0].URL, nil
}

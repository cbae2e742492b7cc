package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"ArticleRelay/internal/domain"
	"ArticleRelay/internal/ports"
)

const structurePrompt = "Please extract the requested information from the following article text:\n\n"

// StructurerOptions tunes the structuring call.
type StructurerOptions struct {
	Model        string
	Instructions string
	Schema       string
	Temperature  float64
	MaxTokens    int
	// ContentMaxTokens caps the article text sent to the model, at ~4 chars per token.
	ContentMaxTokens int
}

// Structurer turns extracted page text into an Article through a language model.
type Structurer struct {
	gen  ports.TextGenerator
	opts StructurerOptions
}

func NewStructurer(gen ports.TextGenerator, opts StructurerOptions) *Structurer {
	return &Structurer{gen: gen, opts: opts}
}

type structuredArticle struct {
	Title   string `json:"title"`
	Source  string `json:"source"`
	Summary string `json:"summary"`
	Body    string `json:"body"`
	Text    string `json:"text"`
}

// Structure returns an Article without a record id. The URL always comes from raw.
func (s *Structurer) Structure(ctx context.Context, raw domain.RawArticle) (domain.Article, error) {
	const op = "structure article"

	text := truncateRunes(raw.Text, s.opts.ContentMaxTokens*4)
	resp, err := s.gen.Complete(ctx, domain.CompletionRequest{
		Model:        s.opts.Model,
		Instructions: s.opts.Instructions,
		Prompt:       structurePrompt + text,
		Format:       domain.FormatJSON,
		Schema:       s.opts.Schema,
		Temperature:  s.opts.Temperature,
		MaxTokens:    s.opts.MaxTokens,
	})
	if err != nil {
		return domain.Article{}, domain.E(domain.KindStructuringFailed, op, err)
	}

	parsed, err := decodeStructured(resp)
	if err != nil {
		return domain.Article{}, domain.E(domain.KindStructuringFailed, op, err)
	}

	article := domain.Article{
		URL:     raw.URL,
		Title:   strings.TrimSpace(parsed.Title),
		Source:  strings.TrimSpace(parsed.Source),
		Summary: strings.TrimSpace(parsed.Summary),
		Body:    strings.TrimSpace(parsed.Body),
	}
	if article.Body == "" {
		article.Body = strings.TrimSpace(parsed.Text)
	}
	if article.Body == "" {
		article.Body = strings.TrimSpace(raw.Text)
	}
	if article.Source == "" {
		article.Source = fallbackSource(raw)
	}
	return article, nil
}

func decodeStructured(resp string) (structuredArticle, error) {
	start := strings.Index(resp, "{")
	end := strings.LastIndex(resp, "}")
	if start < 0 || end < start {
		return structuredArticle{}, errors.New("response is not a JSON object")
	}

	var parsed structuredArticle
	if err := json.Unmarshal([]byte(resp[start:end+1]), &parsed); err != nil {
		return structuredArticle{}, fmt.Errorf("decode response: %w", err)
	}

	var missing []string
	if strings.TrimSpace(parsed.Title) == "" {
		missing = append(missing, "title")
	}
	if strings.TrimSpace(parsed.Summary) == "" {
		missing = append(missing, "summary")
	}
	if len(missing) > 0 {
		return structuredArticle{}, fmt.Errorf("response is missing %s", strings.Join(missing, ", "))
	}
	return parsed, nil
}

func fallbackSource(raw domain.RawArticle) string {
	if site := strings.TrimSpace(raw.SiteName); site != "" {
		return site
	}
	if u, err := url.Parse(raw.URL); err == nil {
		return strings.TrimPrefix(u.Hostname(), "www.")
	}
	return ""
}

func truncateRunes(text string, limit int) string {
	if limit <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit])
}

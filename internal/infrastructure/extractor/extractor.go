package extractor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"ArticleRelay/internal/domain"
	"ArticleRelay/internal/ports"
)

const maxPageBytes = 10 << 20

// Page is a fetched HTML document handed to strategies.
type Page struct {
	URL  *url.URL
	HTML []byte
}

// Strategy turns a page into article text. An empty Text means "no result".
type Strategy interface {
	Name() string
	Extract(page Page) (domain.RawArticle, error)
}

// Extractor fetches a URL once and runs strategies until one yields text.
type Extractor struct {
	client     *http.Client
	userAgent  string
	strategies []Strategy
	logger     *slog.Logger
}

var _ ports.ArticleExtractor = (*Extractor)(nil)

// New wires an HTTP client and an ordered strategy list.
func New(client *http.Client, userAgent string, strategies []Strategy, logger *slog.Logger) *Extractor {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	if userAgent == "" {
		userAgent = "ArticleRelay/1.0"
	}
	return &Extractor{
		client:     client,
		userAgent:  userAgent,
		strategies: strategies,
		logger:     logger,
	}
}

// Extract downloads rawURL and returns the first non-empty strategy result.
func (e *Extractor) Extract(ctx context.Context, rawURL string) (domain.RawArticle, error) {
	const op = "extract article"

	pageURL, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || (pageURL.Scheme != "http" && pageURL.Scheme != "https") || pageURL.Host == "" {
		return domain.RawArticle{}, domain.Errorf(domain.KindExtractionFailed, op, "invalid url %q", rawURL)
	}
	if len(e.strategies) == 0 {
		return domain.RawArticle{}, domain.Errorf(domain.KindExtractionFailed, op, "no extraction strategies configured")
	}

	html, err := e.fetch(ctx, pageURL.String())
	if err != nil {
		return domain.RawArticle{}, domain.E(domain.KindExtractionFailed, op, err)
	}

	page := Page{URL: pageURL, HTML: html}
	var lastErr error
	for _, strategy := range e.strategies {
		article, sErr := strategy.Extract(page)
		if sErr != nil {
			e.debug("strategy failed", "strategy", strategy.Name(), "url", rawURL, "error", sErr)
			lastErr = fmt.Errorf("%s: %w", strategy.Name(), sErr)
			continue
		}
		if strings.TrimSpace(article.Text) == "" {
			e.debug("strategy produced no text", "strategy", strategy.Name(), "url", rawURL)
			continue
		}
		article.URL = pageURL.String()
		e.debug("article extracted", "strategy", strategy.Name(), "url", rawURL, "chars", len(article.Text))
		return article, nil
	}

	if lastErr != nil {
		return domain.RawArticle{}, domain.E(domain.KindExtractionFailed, op, lastErr)
	}
	return domain.RawArticle{}, domain.Errorf(domain.KindExtractionFailed, op, "no readable text found at %s", rawURL)
}

func (e *Extractor) fetch(ctx context.Context, pageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", e.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%s returned %s", req.URL.Host, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageBytes))
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	return body, nil
}

func (e *Extractor) debug(msg string, args ...any) {
	if e.logger != nil {
		e.logger.Debug(msg, args...)
	}
}

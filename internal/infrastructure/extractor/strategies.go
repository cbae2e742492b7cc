package extractor

import (
	"bytes"
	"fmt"
	"strings"

	md "github.com/JohannesKaufmann/html-to-markdown"
	"github.com/PuerkitoBio/goquery"
	readability "github.com/go-shiori/go-readability"

	"ArticleRelay/internal/domain"
)

// Readability runs Mozilla's readability algorithm and renders the main
// content as Markdown, keeping headings and lists for the model.
type Readability struct {
	converter *md.Converter
}

// NewReadability builds the readability strategy.
func NewReadability() *Readability {
	return &Readability{converter: md.NewConverter("", true, nil)}
}

// Name identifies the strategy inside the registry.
func (r *Readability) Name() string {
	return "readability"
}

// Extract parses the page and prefers Markdown over plain text content.
func (r *Readability) Extract(page Page) (domain.RawArticle, error) {
	parsed, err := readability.FromReader(bytes.NewReader(page.HTML), page.URL)
	if err != nil {
		return domain.RawArticle{}, fmt.Errorf("parse document: %w", err)
	}

	text := strings.TrimSpace(parsed.TextContent)
	if parsed.Content != "" && r.converter != nil {
		if markdown, mErr := r.converter.ConvertString(parsed.Content); mErr == nil && strings.TrimSpace(markdown) != "" {
			text = strings.TrimSpace(markdown)
		}
	}

	return domain.RawArticle{
		Text:     text,
		Title:    strings.TrimSpace(parsed.Title),
		Byline:   strings.TrimSpace(parsed.Byline),
		SiteName: strings.TrimSpace(parsed.SiteName),
	}, nil
}

// Paragraphs joins the text of every <p> element.
type Paragraphs struct{}

// Name identifies the strategy inside the registry.
func (Paragraphs) Name() string {
	return "paragraphs"
}

// Extract collects paragraph text in document order.
func (Paragraphs) Extract(page Page) (domain.RawArticle, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.HTML))
	if err != nil {
		return domain.RawArticle{}, fmt.Errorf("parse document: %w", err)
	}

	var parts []string
	doc.Find("p").Each(func(_ int, s *goquery.Selection) {
		if text := strings.TrimSpace(s.Text()); text != "" {
			parts = append(parts, text)
		}
	})

	siteName, _ := doc.Find(`meta[property="og:site_name"]`).First().Attr("content")

	return domain.RawArticle{
		Text:     strings.Join(parts, "\n\n"),
		Title:    strings.TrimSpace(doc.Find("title").First().Text()),
		SiteName: strings.TrimSpace(siteName),
	}, nil
}

// Strategies resolves configured names into strategies, keeping their order.
func Strategies(names []string) ([]Strategy, error) {
	available := map[string]func() Strategy{
		"readability": func() Strategy { return NewReadability() },
		"paragraphs":  func() Strategy { return Paragraphs{} },
	}

	if len(names) == 0 {
		names = []string{"readability", "paragraphs"}
	}

	strategies := make([]Strategy, 0, len(names))
	for _, name := range names {
		build, ok := available[strings.ToLower(strings.TrimSpace(name))]
		if !ok {
			return nil, fmt.Errorf("extraction strategy %s is not registered", name)
		}
		strategies = append(strategies, build())
	}
	return strategies, nil
}

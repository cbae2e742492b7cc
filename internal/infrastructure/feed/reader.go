package feed

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"

	"ArticleRelay/internal/domain"
	"ArticleRelay/internal/ports"
)

// Reader fetches RSS/Atom feeds.
type Reader struct {
	parser *gofeed.Parser
}

var _ ports.FeedReader = (*Reader)(nil)

func NewReader(timeout time.Duration, userAgent string) *Reader {
	parser := gofeed.NewParser()
	parser.Client = &http.Client{Timeout: timeout}
	parser.UserAgent = userAgent
	return &Reader{parser: parser}
}

// Items returns up to count entries with a link, in feed order, skipping
// duplicate links.
func (r *Reader) Items(ctx context.Context, feedURL string, count int) ([]domain.FeedItem, error) {
	parsed, err := r.parser.ParseURLWithContext(feedURL, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", feedURL, err)
	}

	seen := map[string]bool{}
	items := make([]domain.FeedItem, 0, len(parsed.Items))
	for _, entry := range parsed.Items {
		if count > 0 && len(items) >= count {
			break
		}
		link := strings.TrimSpace(entry.Link)
		if link == "" || seen[link] {
			continue
		}
		seen[link] = true

		item := domain.FeedItem{Title: entry.Title, Link: link}
		if entry.PublishedParsed != nil {
			item.PublishedAt = *entry.PublishedParsed
		} else if entry.UpdatedParsed != nil {
			item.PublishedAt = *entry.UpdatedParsed
		}
		items = append(items, item)
	}
	return items, nil
}

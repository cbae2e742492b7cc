package ports

import (
	"context"
	"time"

	"ArticleRelay/internal/domain"
)

// ArticleExtractor fetches a URL and returns its readable text.
type ArticleExtractor interface {
	Extract(ctx context.Context, url string) (domain.RawArticle, error)
}

// TextGenerator completes prompts against a language model.
type TextGenerator interface {
	Complete(ctx context.Context, req domain.CompletionRequest) (string, error)
}

// ImageGenerator turns a prompt into a hosted image URL.
type ImageGenerator interface {
	Generate(ctx context.Context, req domain.ImageRequest) (string, error)
}

// ImageMirror copies a remote image into durable storage and returns the new URL.
type ImageMirror interface {
	Mirror(ctx context.Context, sourceURL string) (string, error)
}

// ArticleRepository persists Article records.
type ArticleRepository interface {
	SaveArticle(ctx context.Context, article domain.Article) (string, error)
	GetArticle(ctx context.Context, id string) (domain.Article, error)
	LatestArticle(ctx context.Context) (domain.Article, bool, error)
}

// ContentRepository persists Content records.
type ContentRepository interface {
	SaveContent(ctx context.Context, content domain.Content) (string, error)
	GetContent(ctx context.Context, id string) (domain.Content, error)
	LatestContent(ctx context.Context) (domain.Content, bool, error)
	UpdateContentStatus(ctx context.Context, id string, status domain.ContentStatus) error
}

// RecordStore is the table store holding both entity kinds.
type RecordStore interface {
	ArticleRepository
	ContentRepository
}

// PlatformClient posts copy to one social network and returns the post id.
type PlatformClient interface {
	Post(ctx context.Context, text, imageURL string) (string, error)
}

// Notifier sends progress messages back to the channel a run came from.
type Notifier interface {
	Notify(ctx context.Context, channel, message string) error
}

// SessionCache remembers remote session identifiers (e.g. assistant ids).
type SessionCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string) error
}

// Locker guards a resource across concurrent runs.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

// FeedReader lists the newest entries of an RSS or Atom feed.
type FeedReader interface {
	Items(ctx context.Context, feedURL string, count int) ([]domain.FeedItem, error)
}

// Scheduler triggers recurring jobs.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}

package domain

import "time"

// RawArticle is the plain text pulled from a web page before any model touches it.
type RawArticle struct {
	URL      string
	Text     string
	Title    string
	Byline   string
	SiteName string
}

// Article is the structured, persisted form of an ingested page.
// RecordID is assigned by the store on creation and never changes.
type Article struct {
	RecordID  string
	URL       string
	Title     string
	Source    string
	Body      string
	Summary   string
	CreatedAt time.Time
}

// FeedItem is a feed entry pointing at an article.
type FeedItem struct {
	Title       string
	Link        string
	PublishedAt time.Time
}

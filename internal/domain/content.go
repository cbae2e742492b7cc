package domain

import (
	"fmt"
	"strings"
	"time"
)

// ContentStatus tracks whether a piece of copy reached its platform.
type ContentStatus string

const (
	StatusUnposted ContentStatus = "unposted"
	StatusPosted   ContentStatus = "posted"
)

// ParseContentStatus accepts the canonical names plus the Y/N flags used by spreadsheet stores.
func ParseContentStatus(value string) (ContentStatus, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "unposted", "n", "":
		return StatusUnposted, nil
	case "posted", "y":
		return StatusPosted, nil
	default:
		return "", fmt.Errorf("unknown content status %q", value)
	}
}

// Content is platform-specific copy derived from one Article.
// ImageURL is empty when no image could be produced.
type Content struct {
	RecordID        string
	ArticleRecordID string
	Platform        string
	Text            string
	ImageURL        string
	Status          ContentStatus
	CreatedAt       time.Time
}

// HasImage reports whether an illustration is attached.
func (c Content) HasImage() bool {
	return strings.TrimSpace(c.ImageURL) != ""
}

// Posted reports whether the record already reached its platform.
func (c Content) Posted() bool {
	return c.Status == StatusPosted
}

// Draft is one platform's generation attempt inside an ingest run.
type Draft struct {
	Platform string
	Text     string
	Err      error
}

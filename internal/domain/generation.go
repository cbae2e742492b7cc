package domain

import "fmt"

// ResponseFormat selects how a text generator should shape its answer.
type ResponseFormat string

const (
	FormatText ResponseFormat = "text"
	FormatJSON ResponseFormat = "json"
)

// CompletionRequest is one call to a text generation service.
// SessionKey, when set, lets providers with server-side sessions reuse a
// configured assistant; it already encodes the instruction version.
type CompletionRequest struct {
	SessionKey   string
	Model        string
	Instructions string
	Prompt       string
	Format       ResponseFormat
	Schema       string
	Temperature  float64
	TopP         float64
	MaxTokens    int
}

// ImageRequest is one call to an image generation service.
type ImageRequest struct {
	Model   string
	Prompt  string
	Size    string
	Quality string
}

// Platform is a configured publishing target with its generation settings.
type Platform struct {
	Name          string
	Version       string
	Provider      string
	Model         string
	Instructions  string
	Temperature   float64
	TopP          float64
	MaxTokens     int
	RequiresImage bool
}

// SessionKey identifies the instruction set of a platform; bumping Version
// yields a new key so cached sessions are never reused across versions.
func (p Platform) SessionKey() string {
	return fmt.Sprintf("%s-%s", p.Name, p.Version)
}

package usecase

import (
	"context"
	"strings"
	"sync"

	"ArticleRelay/internal/domain"
	"ArticleRelay/internal/platform"
)

const contentPrompt = "Please generate social media content from the following article.\n\n"

// ContentGenerator writes per-platform copy with each platform's own generator and settings.
type ContentGenerator struct {
	registry *platform.Registry
	parallel bool
}

// NewContentGenerator builds a generator; parallel fans platforms out concurrently.
func NewContentGenerator(registry *platform.Registry, parallel bool) *ContentGenerator {
	return &ContentGenerator{registry: registry, parallel: parallel}
}

// Platforms lists the configured platforms in configuration order.
func (g *ContentGenerator) Platforms() []string {
	return g.registry.Names()
}

// Generate writes copy for one platform.
func (g *ContentGenerator) Generate(ctx context.Context, body, platformName string) (string, error) {
	return g.generate(ctx, body, platformName, "")
}

// Regenerate writes a fresh variant, optionally guided by an editor's note.
func (g *ContentGenerator) Regenerate(ctx context.Context, body, platformName, note string) (string, error) {
	return g.generate(ctx, body, platformName, note)
}

// GenerateAll produces one draft per platform. A failing platform never
// affects the others; drafts keep the order of platforms.
func (g *ContentGenerator) GenerateAll(ctx context.Context, body string, platforms []string) []domain.Draft {
	drafts := make([]domain.Draft, len(platforms))
	run := func(i int) {
		text, err := g.Generate(ctx, body, platforms[i])
		drafts[i] = domain.Draft{Platform: platforms[i], Text: text, Err: err}
	}

	if !g.parallel {
		for i := range platforms {
			run(i)
		}
		return drafts
	}

	var wg sync.WaitGroup
	for i := range platforms {
		wg.Add(1)
		go func() {
			defer wg.Done()
			run(i)
		}()
	}
	wg.Wait()
	return drafts
}

func (g *ContentGenerator) generate(ctx context.Context, body, platformName, note string) (string, error) {
	const op = "generate content"

	entry, err := g.registry.Resolve(platformName)
	if err != nil {
		return "", err
	}
	profile := entry.Profile

	prompt := contentPrompt + body
	if note = strings.TrimSpace(note); note != "" {
		prompt += "\n\nRevise the post following this note from the editor:\n" + note
	}

	text, err := entry.Generator.Complete(ctx, domain.CompletionRequest{
		SessionKey:   profile.SessionKey(),
		Model:        profile.Model,
		Instructions: profile.Instructions,
		Prompt:       prompt,
		Format:       domain.FormatText,
		Temperature:  profile.Temperature,
		TopP:         profile.TopP,
		MaxTokens:    profile.MaxTokens,
	})
	if err != nil {
		return "", domain.E(domain.KindGenerationFailed, op, err).ForPlatform(profile.Name)
	}

	text = strings.TrimSpace(text)
	if text == "" {
		return "", domain.Errorf(domain.KindGenerationFailed, op, "empty completion").ForPlatform(profile.Name)
	}
	return text, nil
}

package usecase

import (
	"context"
	"errors"
	"strings"

	"ArticleRelay/internal/domain"
	"ArticleRelay/internal/ports"
)

// IllustratorOptions configures image generation.
type IllustratorOptions struct {
	Instructions string
	Model        string
	Size         string
	Quality      string
}

// Illustrator produces one image per ingest from the article summary.
type Illustrator struct {
	images ports.ImageGenerator
	mirror ports.ImageMirror
	opts   IllustratorOptions
}

// NewIllustrator builds an illustrator; mirror may be nil to keep provider URLs.
func NewIllustrator(images ports.ImageGenerator, mirror ports.ImageMirror, opts IllustratorOptions) *Illustrator {
	return &Illustrator{images: images, mirror: mirror, opts: opts}
}

// Illustrate returns a URL for an image matching summary.
func (i *Illustrator) Illustrate(ctx context.Context, summary string) (string, error) {
	const op = "generate image"

	prompt := strings.TrimSpace(i.opts.Instructions + "\n\n" + summary)
	imageURL, err := i.images.Generate(ctx, domain.ImageRequest{
		Model:   i.opts.Model,
		Prompt:  prompt,
		Size:    i.opts.Size,
		Quality: i.opts.Quality,
	})
	if err != nil {
		return "", domain.E(domain.KindImageGenerationFailed, op, err)
	}
	if strings.TrimSpace(imageURL) == "" {
		return "", domain.E(domain.KindImageGenerationFailed, op, errors.New("provider returned no image"))
	}

	if i.mirror == nil {
		return imageURL, nil
	}
	durable, err := i.mirror.Mirror(ctx, imageURL)
	if err != nil {
		return "", domain.E(domain.KindImageGenerationFailed, "mirror image", err)
	}
	return durable, nil
}

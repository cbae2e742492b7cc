package usecase

import (
	"context"
	"errors"
	"strings"

	"ArticleRelay/internal/domain"
	"ArticleRelay/internal/platform"
)

// Publisher posts copy to the platform named on a content record.
type Publisher struct {
	registry *platform.Registry
}

func NewPublisher(registry *platform.Registry) *Publisher {
	return &Publisher{registry: registry}
}

// Publish makes exactly one client call and never retries.
func (p *Publisher) Publish(ctx context.Context, platformName, text, imageRef string) (string, error) {
	const op = "publish"

	entry, err := p.registry.Resolve(platformName)
	if err != nil {
		return "", err
	}
	if entry.Client == nil {
		return "", domain.Errorf(domain.KindUnsupportedPlatform, op, "no publisher configured").ForPlatform(entry.Profile.Name)
	}
	if entry.Profile.RequiresImage && strings.TrimSpace(imageRef) == "" {
		return "", domain.Errorf(domain.KindImageRequired, op, "platform only accepts posts with an image").ForPlatform(entry.Profile.Name)
	}

	postID, err := entry.Client.Post(ctx, text, imageRef)
	if err != nil {
		return "", domain.E(domain.KindPublishFailed, op, err).ForPlatform(entry.Profile.Name)
	}
	if strings.TrimSpace(postID) == "" {
		return "", domain.E(domain.KindPublishFailed, op, errors.New("platform returned no post id")).ForPlatform(entry.Profile.Name)
	}
	return postID, nil
}

package llm

import (
	"fmt"
	"log/slog"
	"sync"

	"ArticleRelay/internal/config"
	"ArticleRelay/internal/ports"
)

// Factory builds text generators by provider name and reuses them.
type Factory struct {
	cfg    config.ProviderConfig
	cache  ports.SessionCache
	logger *slog.Logger

	mu        sync.Mutex
	providers map[string]ports.TextGenerator
}

// NewFactory wires provider credentials and the assistant session cache.
func NewFactory(cfg config.ProviderConfig, cache ports.SessionCache, logger *slog.Logger) *Factory {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Factory{
		cfg:       cfg,
		cache:     cache,
		logger:    logger,
		providers: map[string]ports.TextGenerator{},
	}
}

// Text returns the generator for provider, building it on first use.
func (f *Factory) Text(provider string) (ports.TextGenerator, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if gen, ok := f.providers[provider]; ok {
		return gen, nil
	}

	var gen ports.TextGenerator
	switch provider {
	case config.ProviderOpenAI:
		gen = NewOpenAIClient(f.cfg.OpenAI)
	case config.ProviderOpenAIAssistants:
		gen = NewAssistants(f.cfg.OpenAI, f.cache, f.logger.With("component", "llm.assistants"))
	case config.ProviderAnthropic:
		gen = NewAnthropicClient(f.cfg.Anthropic.APIKey)
	case config.ProviderCohere:
		gen = NewCohereClient(f.cfg.Cohere.APIKey, f.cfg.OpenAI.Timeout)
	default:
		return nil, fmt.Errorf("text provider %s is not registered", provider)
	}

	f.providers[provider] = gen
	return gen, nil
}

// Images returns the image generator.
func (f *Factory) Images() ports.ImageGenerator {
	return NewOpenAIImages(f.cfg.OpenAI)
}

package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"ArticleRelay/internal/domain"
	"ArticleRelay/internal/ports"
)

const seenKeyPrefix = "feed:seen:"

// FeedWatcher ingests new links from RSS/Atom feeds.
type FeedWatcher struct {
	reader   ports.FeedReader
	pipeline *Pipeline
	seen     ports.SessionCache
	feeds    []string
	count    int
	channel  string
	logger   *slog.Logger
}

// FeedWatcherOptions lists the feeds to poll and where to report.
type FeedWatcherOptions struct {
	Feeds   []string
	Count   int
	Channel string
}

// NewFeedWatcher builds a watcher; seen remembers links that were already ingested.
func NewFeedWatcher(reader ports.FeedReader, pipeline *Pipeline, seen ports.SessionCache, opts FeedWatcherOptions, logger *slog.Logger) *FeedWatcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &FeedWatcher{
		reader:   reader,
		pipeline: pipeline,
		seen:     seen,
		feeds:    opts.Feeds,
		count:    opts.Count,
		channel:  opts.Channel,
		logger:   logger,
	}
}

// IngestFeed runs one ingest per entry of feedURL, sequentially, without
// consulting the seen set.
func (w *FeedWatcher) IngestFeed(ctx context.Context, channel, feedURL string, count int) ([]domain.IngestReport, error) {
	items, err := w.reader.Items(ctx, feedURL, count)
	if err != nil {
		return nil, err
	}

	var (
		reports []domain.IngestReport
		errs    []error
	)
	for _, item := range items {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		report, err := w.pipeline.Ingest(ctx, channel, item.Link)
		reports = append(reports, report)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", item.Link, err))
		}
	}
	return reports, errors.Join(errs...)
}

// Poll ingests links not seen before from every configured feed and returns
// how many ingests ran. A link is remembered after one attempt.
func (w *FeedWatcher) Poll(ctx context.Context) (int, error) {
	var (
		ran  int
		errs []error
	)
	for _, feedURL := range w.feeds {
		items, err := w.reader.Items(ctx, feedURL, w.count)
		if err != nil {
			errs = append(errs, err)
			continue
		}

		for _, item := range items {
			if ctx.Err() != nil {
				return ran, errors.Join(append(errs, ctx.Err())...)
			}

			key := seenKeyPrefix + item.Link
			if _, seen, err := w.seen.Get(ctx, key); err != nil {
				errs = append(errs, err)
				continue
			} else if seen {
				continue
			}

			report, err := w.pipeline.Ingest(ctx, w.channel, item.Link)
			ran++
			if err != nil {
				w.logger.Warn("feed item ingest failed", "feed", feedURL, "link", item.Link, "error", err)
			} else {
				w.logger.Info("feed item ingested", "feed", feedURL, "link", item.Link, "article_id", report.ArticleID)
			}
			if err := w.seen.Set(ctx, key, report.RunID); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return ran, errors.Join(errs...)
}

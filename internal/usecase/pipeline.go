package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"ArticleRelay/internal/domain"
	"ArticleRelay/internal/ports"
)

// PipelineDeps wires all driven adapters into the orchestration pipeline.
// Illustrator may be nil when images are disabled; Notifier may be nil.
type PipelineDeps struct {
	Extractor   ports.ArticleExtractor
	Structurer  *Structurer
	Store       ports.RecordStore
	Content     *ContentGenerator
	Illustrator *Illustrator
	Publisher   *Publisher
	Notifier    ports.Notifier
	Locker      ports.Locker
	LockTTL     time.Duration
	Logger      *slog.Logger
}

// Pipeline implements the ingest and publish workflows.
type Pipeline struct {
	extractor   ports.ArticleExtractor
	structurer  *Structurer
	store       ports.RecordStore
	content     *ContentGenerator
	illustrator *Illustrator
	publisher   *Publisher
	notifier    ports.Notifier
	locker      ports.Locker
	lockTTL     time.Duration
	logger      *slog.Logger
	newRunID    func() string
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	logger := deps.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	lockTTL := deps.LockTTL
	if lockTTL <= 0 {
		lockTTL = 2 * time.Minute
	}
	return &Pipeline{
		extractor:   deps.Extractor,
		structurer:  deps.Structurer,
		store:       deps.Store,
		content:     deps.Content,
		illustrator: deps.Illustrator,
		publisher:   deps.Publisher,
		notifier:    deps.Notifier,
		locker:      deps.Locker,
		lockTTL:     lockTTL,
		logger:      logger,
		newRunID:    uuid.NewString,
	}
}

// Ingest extracts, structures and stores an article, then writes and stores
// copy for every configured platform. The error is non-nil only when the run
// aborted before the article was saved.
func (p *Pipeline) Ingest(ctx context.Context, channel, articleURL string) (domain.IngestReport, error) {
	report := domain.IngestReport{
		RunID: p.newRunID(),
		URL:   articleURL,
		State: domain.IngestIdle,
		Trace: []domain.IngestState{domain.IngestIdle},
	}
	log := p.logger.With("run_id", report.RunID, "url", articleURL)
	advance := func(state domain.IngestState) {
		report.State = state
		report.Trace = append(report.Trace, state)
		log.Debug("ingest state", "state", state)
	}
	abort := func(err error) (domain.IngestReport, error) {
		advance(domain.IngestAborted)
		log.Warn("ingest aborted", "error", err)
		p.notify(ctx, channel, fmt.Sprintf("Failed to process the article: %v", err))
		return report, err
	}

	p.notify(ctx, channel, "Processing article from above URL.")

	advance(domain.IngestExtracting)
	raw, err := p.extractor.Extract(ctx, articleURL)
	if err != nil {
		return abort(err)
	}

	advance(domain.IngestStructuring)
	article, err := p.structurer.Structure(ctx, raw)
	if err != nil {
		return abort(err)
	}
	p.notify(ctx, channel, "Article processed.")

	articleID, err := p.store.SaveArticle(ctx, article)
	if err != nil {
		return abort(asStoreError("save article", err))
	}
	article.RecordID = articleID
	report.ArticleID = articleID
	report.Article = article
	advance(domain.IngestArticleSaved)
	log.Info("article saved", "article_id", articleID, "title", article.Title)
	p.notify(ctx, channel, "Article data saved. Article Record ID: "+articleID)

	advance(domain.IngestGeneratingContent)
	drafts := p.content.GenerateAll(ctx, article.Body, p.content.Platforms())
	succeeded := 0
	for _, draft := range drafts {
		report.Outcomes = append(report.Outcomes, domain.PlatformOutcome{Platform: draft.Platform, Text: draft.Text, Err: draft.Err})
		if draft.Err != nil {
			log.Warn("content generation failed", "platform", draft.Platform, "error", draft.Err)
			p.notify(ctx, channel, fmt.Sprintf("Failed to generate content for %s: %v", draft.Platform, draft.Err))
			continue
		}
		succeeded++
		p.notify(ctx, channel, fmt.Sprintf("Generated content for %s:\n%s", draft.Platform, draft.Text))
	}

	if succeeded > 0 && p.illustrator != nil {
		advance(domain.IngestGeneratingImage)
		imageURL, err := p.illustrator.Illustrate(ctx, article.Summary)
		if err != nil {
			report.ImageErr = err
			log.Warn("image generation failed", "error", err)
			p.notify(ctx, channel, fmt.Sprintf("Image generation failed, content will be saved without an image: %v", err))
		} else {
			report.ImageURL = imageURL
			p.notify(ctx, channel, "Generated image: "+imageURL)
		}
	}

	for i := range report.Outcomes {
		outcome := &report.Outcomes[i]
		if outcome.Err != nil {
			continue
		}
		contentID, err := p.store.SaveContent(ctx, domain.Content{
			ArticleRecordID: articleID,
			Platform:        outcome.Platform,
			Text:            outcome.Text,
			ImageURL:        report.ImageURL,
			Status:          domain.StatusUnposted,
		})
		if err != nil {
			outcome.Err = asStoreError("save content", err)
			log.Warn("content save failed", "platform", outcome.Platform, "error", err)
			p.notify(ctx, channel, fmt.Sprintf("Failed to save content for %s: %v", outcome.Platform, err))
			continue
		}
		outcome.ContentID = contentID
		p.notify(ctx, channel, fmt.Sprintf("Content saved for %s. Content Record ID: %s", outcome.Platform, contentID))
		p.notify(ctx, channel, fmt.Sprintf("Content generated and ready to post. Publish it with: publish %s", contentID))
	}
	advance(domain.IngestContentSaved)

	advance(domain.IngestDone)
	log.Info("ingest finished", "article_id", articleID, "contents", len(report.ContentIDs()))
	return report, nil
}

// Publish posts one stored content record to its platform and marks it posted.
// A record already posted is refused without contacting the platform.
func (p *Pipeline) Publish(ctx context.Context, channel, contentID string) (domain.PublishReport, error) {
	report := domain.PublishReport{
		RunID:     p.newRunID(),
		ContentID: contentID,
		State:     domain.PublishIdle,
		Trace:     []domain.PublishState{domain.PublishIdle},
	}
	log := p.logger.With("run_id", report.RunID, "content_id", contentID)
	advance := func(state domain.PublishState) {
		report.State = state
		report.Trace = append(report.Trace, state)
		log.Debug("publish state", "state", state)
	}
	abort := func(err error) (domain.PublishReport, error) {
		advance(domain.PublishAborted)
		log.Warn("publish aborted", "error", err)
		p.notify(ctx, channel, fmt.Sprintf("Publishing content %s failed: %v", contentID, err))
		return report, err
	}

	if p.locker != nil {
		release, ok, err := p.locker.Acquire(ctx, "publish:"+contentID, p.lockTTL)
		if err != nil {
			return abort(domain.E(domain.KindStoreFailed, "acquire publish lock", err))
		}
		if !ok {
			return abort(domain.Errorf(domain.KindPublishInProgress, "publish", "content %s is being published by another run", contentID))
		}
		defer release()
	}

	advance(domain.PublishFetching)
	content, err := p.store.GetContent(ctx, contentID)
	if err != nil {
		return abort(asStoreError("get content", err))
	}
	report.Platform = content.Platform
	if content.Posted() {
		return abort(domain.Errorf(domain.KindAlreadyPosted, "publish", "content %s was already posted", contentID).ForPlatform(content.Platform))
	}
	article, err := p.store.GetArticle(ctx, content.ArticleRecordID)
	if err != nil {
		return abort(asStoreError("get article", err))
	}

	advance(domain.PublishPublishing)
	postID, err := p.publisher.Publish(ctx, content.Platform, content.Text+"\n"+article.URL, content.ImageURL)
	if err != nil {
		return abort(err)
	}
	report.PostID = postID
	log.Info("content posted", "platform", content.Platform, "post_id", postID)
	p.notify(ctx, channel, fmt.Sprintf("Posted to %s. Post ID: %s", content.Platform, postID))

	advance(domain.PublishUpdating)
	if err := p.store.UpdateContentStatus(ctx, contentID, domain.StatusPosted); err != nil {
		return abort(domain.E(domain.KindStoreFailed, "mark posted",
			fmt.Errorf("post %s is live on %s but record %s could not be marked posted, do not publish it again: %w",
				postID, content.Platform, contentID, err)))
	}
	p.notify(ctx, channel, fmt.Sprintf("Record %s updated as posted.", contentID))

	advance(domain.PublishDone)
	return report, nil
}

// Regenerate writes new copy for the platform of an existing content record
// and saves it as a new unposted record reusing the same image. The original
// record is left untouched.
func (p *Pipeline) Regenerate(ctx context.Context, channel, contentID, note string) (domain.Content, error) {
	log := p.logger.With("content_id", contentID)

	original, err := p.store.GetContent(ctx, contentID)
	if err != nil {
		return domain.Content{}, p.fail(ctx, channel, "Regeneration failed", asStoreError("get content", err))
	}
	article, err := p.store.GetArticle(ctx, original.ArticleRecordID)
	if err != nil {
		return domain.Content{}, p.fail(ctx, channel, "Regeneration failed", asStoreError("get article", err))
	}

	text, err := p.content.Regenerate(ctx, article.Body, original.Platform, note)
	if err != nil {
		return domain.Content{}, p.fail(ctx, channel, "Regeneration failed", err)
	}
	p.notify(ctx, channel, fmt.Sprintf("Generated content for %s:\n%s", original.Platform, text))

	fresh := domain.Content{
		ArticleRecordID: original.ArticleRecordID,
		Platform:        original.Platform,
		Text:            text,
		ImageURL:        original.ImageURL,
		Status:          domain.StatusUnposted,
	}
	fresh.RecordID, err = p.store.SaveContent(ctx, fresh)
	if err != nil {
		return domain.Content{}, p.fail(ctx, channel, "Regeneration failed", asStoreError("save content", err))
	}

	log.Info("content regenerated", "new_content_id", fresh.RecordID)
	p.notify(ctx, channel, fmt.Sprintf("Content saved for %s. Content Record ID: %s", fresh.Platform, fresh.RecordID))
	p.notify(ctx, channel, fmt.Sprintf("Content generated and ready to post. Publish it with: publish %s", fresh.RecordID))
	return fresh, nil
}

// LatestArticle returns the most recently stored article.
func (p *Pipeline) LatestArticle(ctx context.Context) (domain.Article, bool, error) {
	return p.store.LatestArticle(ctx)
}

// LatestContent returns the most recently stored content record.
func (p *Pipeline) LatestContent(ctx context.Context) (domain.Content, bool, error) {
	return p.store.LatestContent(ctx)
}

// Article loads one article record.
func (p *Pipeline) Article(ctx context.Context, id string) (domain.Article, error) {
	return p.store.GetArticle(ctx, id)
}

// Content loads one content record.
func (p *Pipeline) Content(ctx context.Context, id string) (domain.Content, error) {
	return p.store.GetContent(ctx, id)
}

func (p *Pipeline) fail(ctx context.Context, channel, prefix string, err error) error {
	p.logger.Warn(prefix, "error", err)
	p.notify(ctx, channel, fmt.Sprintf("%s: %v", prefix, err))
	return err
}

// notify never fails a run.
func (p *Pipeline) notify(ctx context.Context, channel, message string) {
	if p.notifier == nil {
		return
	}
	if err := p.notifier.Notify(ctx, channel, message); err != nil {
		p.logger.Warn("notify channel", "channel", channel, "error", err)
	}
}

// asStoreError tags untagged store errors so callers can classify them.
func asStoreError(op string, err error) error {
	var tagged *domain.Error
	if errors.As(err, &tagged) {
		return err
	}
	return domain.E(domain.KindStoreFailed, op, err)
}

package usecase

import (
	"context"
	"errors"
	"slices"
	"strings"
	"testing"
	"time"

	"ArticleRelay/internal/domain"
)

func TestIngestStoresArticleAndContentPerPlatform(t *testing.T) {
	t.Parallel()

	h := newHarness(t, harnessOptions{})
	report, err := h.pipeline.Ingest(context.Background(), "chan-1", "https://example.org/rover")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}

	wantTrace := []domain.IngestState{
		domain.IngestIdle, domain.IngestExtracting, domain.IngestStructuring, domain.IngestArticleSaved,
		domain.IngestGeneratingContent, domain.IngestGeneratingImage, domain.IngestContentSaved, domain.IngestDone,
	}
	if !slices.Equal(report.Trace, wantTrace) {
		t.Fatalf("unexpected trace %v", report.Trace)
	}
	if report.RunID != "run-1" || report.ArticleID == "" {
		t.Fatalf("unexpected report ids: %+v", report)
	}

	article, err := h.store.GetArticle(context.Background(), report.ArticleID)
	if err != nil {
		t.Fatalf("get article: %v", err)
	}
	if article.URL != "https://example.org/rover" || article.Title != "Rover finds organics" || article.Source != "Space Daily" {
		t.Fatalf("unexpected article %+v", article)
	}

	ids := report.ContentIDs()
	if len(ids) != 2 {
		t.Fatalf("expected 2 contents, got %v", ids)
	}
	for _, id := range ids {
		c, _ := h.store.GetContent(context.Background(), id)
		if c.ArticleRecordID != report.ArticleID || c.Status != domain.StatusUnposted || c.ImageURL != "https://images.example/1.png" || c.Text == "" {
			t.Fatalf("unexpected content %+v", c)
		}
	}
	x, _ := h.store.GetContent(context.Background(), ids[0])
	if x.Platform != "X" || x.Text != "Post for X-2" {
		t.Fatalf("unexpected X content %+v", x)
	}

	if h.images.calls != 1 || !strings.HasPrefix(h.images.last.Prompt, "Draw a clean editorial illustration.\n\nOrganic molecules") {
		t.Fatalf("unexpected image request %+v (calls=%d)", h.images.last, h.images.calls)
	}
	for _, fragment := range []string{"Processing article from above URL.", "Article processed.", "Article Record ID: " + report.ArticleID, "Generated content for X:", "Generated image:", "publish " + ids[0]} {
		if !h.notifier.contains(fragment) {
			t.Fatalf("missing notification %q in %v", fragment, h.notifier.messages)
		}
	}
}

func TestIngestUsesVersionedSessionKey(t *testing.T) {
	t.Parallel()

	h := newHarness(t, harnessOptions{platforms: []string{"X"}})
	h.ingestOne(t)

	req := h.xGen.lastRequest()
	if req.SessionKey != "X-2" || req.Instructions != "Write a tweet." || req.Format != domain.FormatText {
		t.Fatalf("unexpected content request %+v", req)
	}
	if !strings.HasPrefix(req.Prompt, "Please generate social media content from the following article.\n\nThe rover found organic molecules in Jezero crater.") {
		t.Fatalf("unexpected prompt %q", req.Prompt)
	}
}

func TestIngestExtractionFailureSavesNothing(t *testing.T) {
	t.Parallel()

	h := newHarness(t, harnessOptions{})
	h.extractor.err = domain.E(domain.KindExtractionFailed, "extract", errBoom)

	report, err := h.pipeline.Ingest(context.Background(), "chan-1", "https://example.org/404")
	if !errors.Is(err, domain.ErrExtractionFailed) {
		t.Fatalf("expected extraction failure, got %v", err)
	}
	if report.State != domain.IngestAborted {
		t.Fatalf("expected aborted, got %s", report.State)
	}
	if h.store.articleSaves != 0 || h.store.contentSaves != 0 {
		t.Fatalf("no store writes expected, got %d/%d", h.store.articleSaves, h.store.contentSaves)
	}
	if !h.notifier.contains("Failed to process the article") {
		t.Fatalf("failure not reported to channel")
	}
}

func TestIngestStructuringFailureAborts(t *testing.T) {
	t.Parallel()

	h := newHarness(t, harnessOptions{})
	h.structGen.respond = func(domain.CompletionRequest) (string, error) {
		return `{"title":"Only a title"}`, nil
	}

	report, err := h.pipeline.Ingest(context.Background(), "chan-1", "https://example.org/rover")
	if !errors.Is(err, domain.ErrStructuringFailed) {
		t.Fatalf("expected structuring failure, got %v", err)
	}
	if report.State != domain.IngestAborted || h.store.articleSaves != 0 {
		t.Fatalf("unexpected state %s saves=%d", report.State, h.store.articleSaves)
	}
}

func TestIngestArticleSaveFailureAborts(t *testing.T) {
	t.Parallel()

	h := newHarness(t, harnessOptions{})
	h.store.saveArticleErr = errBoom

	report, err := h.pipeline.Ingest(context.Background(), "chan-1", "https://example.org/rover")
	if !errors.Is(err, domain.ErrStoreFailed) {
		t.Fatalf("expected store failure, got %v", err)
	}
	if report.State != domain.IngestAborted || slices.Contains(report.Trace, domain.IngestArticleSaved) {
		t.Fatalf("unexpected trace %v", report.Trace)
	}
	if len(h.xGen.requests) != 0 {
		t.Fatalf("no generation expected after failed save")
	}
}

func TestIngestImageFailureKeepsContent(t *testing.T) {
	t.Parallel()

	h := newHarness(t, harnessOptions{})
	h.images.err = errBoom

	report, err := h.pipeline.Ingest(context.Background(), "chan-1", "https://example.org/rover")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if !errors.Is(report.ImageErr, domain.ErrImageGenerationFailed) {
		t.Fatalf("expected image error, got %v", report.ImageErr)
	}
	if report.State != domain.IngestDone || len(report.ContentIDs()) != 2 {
		t.Fatalf("unexpected report %+v", report)
	}
	for _, id := range report.ContentIDs() {
		c, _ := h.store.GetContent(context.Background(), id)
		if c.HasImage() || c.Status != domain.StatusUnposted {
			t.Fatalf("content must be saved without image: %+v", c)
		}
	}
}

func TestIngestPlatformFailureIsIsolated(t *testing.T) {
	t.Parallel()

	h := newHarness(t, harnessOptions{parallel: true})
	h.liGen.respond = func(domain.CompletionRequest) (string, error) { return "", errBoom }

	report, err := h.pipeline.Ingest(context.Background(), "chan-1", "https://example.org/rover")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if len(report.Outcomes) != 2 || len(report.ContentIDs()) != 1 {
		t.Fatalf("unexpected outcomes %+v", report.Outcomes)
	}
	failed := report.Outcomes[1]
	if failed.Platform != "LinkedIn" || !errors.Is(failed.Err, domain.ErrGenerationFailed) || failed.ContentID != "" {
		t.Fatalf("unexpected failed outcome %+v", failed)
	}
	var tagged *domain.Error
	if !errors.As(failed.Err, &tagged) || tagged.Platform != "LinkedIn" {
		t.Fatalf("error should name the platform: %v", failed.Err)
	}
	if h.store.contentSaves != 1 {
		t.Fatalf("expected one content save, got %d", h.store.contentSaves)
	}
}

func TestIngestSkipsImageWhenNoDraftSucceeded(t *testing.T) {
	t.Parallel()

	h := newHarness(t, harnessOptions{platforms: []string{"X"}})
	h.xGen.respond = func(domain.CompletionRequest) (string, error) { return "   ", nil }

	report, err := h.pipeline.Ingest(context.Background(), "chan-1", "https://example.org/rover")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	if h.images.calls != 0 || slices.Contains(report.Trace, domain.IngestGeneratingImage) {
		t.Fatalf("image should be skipped, trace %v", report.Trace)
	}
	if report.State != domain.IngestDone || len(report.ContentIDs()) != 0 {
		t.Fatalf("unexpected report %+v", report)
	}
	if !errors.Is(report.Outcomes[0].Err, domain.ErrGenerationFailed) {
		t.Fatalf("empty completion must be a generation failure: %v", report.Outcomes[0].Err)
	}
}

func TestIngestIgnoresNotifierFailures(t *testing.T) {
	t.Parallel()

	h := newHarness(t, harnessOptions{})
	h.notifier.err = errBoom

	report, err := h.pipeline.Ingest(context.Background(), "chan-1", "https://example.org/rover")
	if err != nil || report.State != domain.IngestDone {
		t.Fatalf("notifier failure changed the run: state=%s err=%v", report.State, err)
	}
}

func TestPublishPostsOnce(t *testing.T) {
	t.Parallel()

	h := newHarness(t, harnessOptions{platforms: []string{"X"}})
	_, contentID := h.ingestOne(t)

	report, err := h.pipeline.Publish(context.Background(), "chan-1", contentID)
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	if report.PostID != "tweet-1" || report.Platform != "X" || report.State != domain.PublishDone {
		t.Fatalf("unexpected report %+v", report)
	}
	wantTrace := []domain.PublishState{domain.PublishIdle, domain.PublishFetching, domain.PublishPublishing, domain.PublishUpdating, domain.PublishDone}
	if !slices.Equal(report.Trace, wantTrace) {
		t.Fatalf("unexpected trace %v", report.Trace)
	}
	if h.xClient.lastText != "Post for X-2\nhttps://example.org/rover" || h.xClient.lastImage != "https://images.example/1.png" {
		t.Fatalf("unexpected post %q %q", h.xClient.lastText, h.xClient.lastImage)
	}
	c, _ := h.store.GetContent(context.Background(), contentID)
	if !c.Posted() {
		t.Fatalf("content should be posted")
	}

	again, err := h.pipeline.Publish(context.Background(), "chan-1", contentID)
	if !errors.Is(err, domain.ErrAlreadyPosted) || again.State != domain.PublishAborted {
		t.Fatalf("expected already posted, got %v (%s)", err, again.State)
	}
	if h.xClient.calls != 1 {
		t.Fatalf("expected exactly one post call, got %d", h.xClient.calls)
	}
	if !h.notifier.contains("updated as posted") {
		t.Fatalf("missing posted notification")
	}
}

func TestPublishStatusUpdateFailureKeepsPostID(t *testing.T) {
	t.Parallel()

	h := newHarness(t, harnessOptions{platforms: []string{"X"}})
	_, contentID := h.ingestOne(t)
	h.store.updateErr = errBoom

	report, err := h.pipeline.Publish(context.Background(), "chan-1", contentID)
	if !errors.Is(err, domain.ErrStoreFailed) || !strings.Contains(err.Error(), "do not publish it again") {
		t.Fatalf("expected store failure with warning, got %v", err)
	}
	if report.PostID != "tweet-1" {
		t.Fatalf("post id must survive, got %+v", report)
	}
}

func TestPublishFailures(t *testing.T) {
	t.Parallel()

	t.Run("not found", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, harnessOptions{})
		if _, err := h.pipeline.Publish(context.Background(), "c", "missing"); !errors.Is(err, domain.ErrNotFound) {
			t.Fatalf("expected not found, got %v", err)
		}
	})

	t.Run("platform failure", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, harnessOptions{platforms: []string{"X"}})
		_, contentID := h.ingestOne(t)
		h.xClient.err = errBoom
		if _, err := h.pipeline.Publish(context.Background(), "c", contentID); !errors.Is(err, domain.ErrPublishFailed) {
			t.Fatalf("expected publish failure, got %v", err)
		}
		c, _ := h.store.GetContent(context.Background(), contentID)
		if c.Posted() {
			t.Fatalf("failed publish must not mark posted")
		}
	})

	t.Run("generate-only platform", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, harnessOptions{platforms: []string{"LinkedIn"}})
		_, contentID := h.ingestOne(t)
		if _, err := h.pipeline.Publish(context.Background(), "c", contentID); !errors.Is(err, domain.ErrUnsupportedPlatform) {
			t.Fatalf("expected unsupported platform, got %v", err)
		}
	})

	t.Run("image required", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, harnessOptions{platforms: []string{"Instagram"}, noImages: true})
		_, contentID := h.ingestOne(t)
		if _, err := h.pipeline.Publish(context.Background(), "c", contentID); !errors.Is(err, domain.ErrImageRequired) {
			t.Fatalf("expected image required, got %v", err)
		}
		if h.igClient.calls != 0 {
			t.Fatalf("platform must not be called")
		}
	})

	t.Run("lock held", func(t *testing.T) {
		t.Parallel()
		h := newHarness(t, harnessOptions{platforms: []string{"X"}})
		_, contentID := h.ingestOne(t)
		release, ok, _ := h.locks.Acquire(context.Background(), "publish:"+contentID, time.Minute)
		if !ok {
			t.Fatalf("could not take lock")
		}
		defer release()
		if _, err := h.pipeline.Publish(context.Background(), "c", contentID); !errors.Is(err, domain.ErrPublishInProgress) {
			t.Fatalf("expected in progress, got %v", err)
		}
		if h.xClient.calls != 0 {
			t.Fatalf("platform must not be called while locked")
		}
	})
}

func TestRegenerateCreatesNewRecord(t *testing.T) {
	t.Parallel()

	h := newHarness(t, harnessOptions{platforms: []string{"X"}})
	report, contentID := h.ingestOne(t)
	h.xGen.respond = func(req domain.CompletionRequest) (string, error) {
		return "Shorter post", nil
	}

	fresh, err := h.pipeline.Regenerate(context.Background(), "chan-1", contentID, "make it shorter")
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if fresh.RecordID == "" || fresh.RecordID == contentID {
		t.Fatalf("expected a new record, got %q", fresh.RecordID)
	}
	if fresh.Text != "Shorter post" || fresh.Platform != "X" || fresh.ImageURL != report.ImageURL || fresh.Status != domain.StatusUnposted {
		t.Fatalf("unexpected regenerated content %+v", fresh)
	}
	if !strings.Contains(h.xGen.lastRequest().Prompt, "make it shorter") {
		t.Fatalf("note not passed to generator")
	}

	original, _ := h.store.GetContent(context.Background(), contentID)
	if original.Text != "Post for X-2" {
		t.Fatalf("original must be untouched: %+v", original)
	}

	if _, err := h.pipeline.Regenerate(context.Background(), "chan-1", "missing", ""); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestLatestPassThrough(t *testing.T) {
	t.Parallel()

	h := newHarness(t, harnessOptions{platforms: []string{"X"}})
	if _, found, err := h.pipeline.LatestContent(context.Background()); err != nil || found {
		t.Fatalf("expected empty store, found=%v err=%v", found, err)
	}
	_, contentID := h.ingestOne(t)

	latest, found, err := h.pipeline.LatestContent(context.Background())
	if err != nil || !found || latest.RecordID != contentID {
		t.Fatalf("unexpected latest content %+v", latest)
	}
	article, found, err := h.pipeline.LatestArticle(context.Background())
	if err != nil || !found || article.RecordID != latest.ArticleRecordID {
		t.Fatalf("unexpected latest article %+v", article)
	}
}

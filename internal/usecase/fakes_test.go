package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"

	"ArticleRelay/internal/domain"
	"ArticleRelay/internal/infrastructure/cache"
	"ArticleRelay/internal/platform"
)

const structuredJSON = `{"title":"Rover finds organics","source":"Space Daily","summary":"Organic molecules were found.","body":"The rover found organic molecules in Jezero crater."}`

type fakeExtractor struct {
	raw   domain.RawArticle
	err   error
	calls int
}

func (f *fakeExtractor) Extract(_ context.Context, url string) (domain.RawArticle, error) {
	f.calls++
	if f.err != nil {
		return domain.RawArticle{}, f.err
	}
	raw := f.raw
	raw.URL = url
	return raw, nil
}

type fakeGenerator struct {
	mu       sync.Mutex
	requests []domain.CompletionRequest
	respond  func(req domain.CompletionRequest) (string, error)
}

func (f *fakeGenerator) Complete(_ context.Context, req domain.CompletionRequest) (string, error) {
	f.mu.Lock()
	f.requests = append(f.requests, req)
	f.mu.Unlock()
	if f.respond != nil {
		return f.respond(req)
	}
	if req.Format == domain.FormatJSON {
		return structuredJSON, nil
	}
	return "Post for " + req.SessionKey, nil
}

func (f *fakeGenerator) lastRequest() domain.CompletionRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

type fakeImages struct {
	url   string
	err   error
	calls int
	last  domain.ImageRequest
}

func (f *fakeImages) Generate(_ context.Context, req domain.ImageRequest) (string, error) {
	f.calls++
	f.last = req
	return f.url, f.err
}

type fakeClient struct {
	mu        sync.Mutex
	id        string
	err       error
	calls     int
	lastText  string
	lastImage string
}

func (f *fakeClient) Post(_ context.Context, text, imageURL string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.lastText = text
	f.lastImage = imageURL
	return f.id, f.err
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
	err      error
}

func (n *recordingNotifier) Notify(_ context.Context, channel, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, channel+"|"+message)
	return n.err
}

func (n *recordingNotifier) contains(fragment string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, m := range n.messages {
		if strings.Contains(m, fragment) {
			return true
		}
	}
	return false
}

// memStore is an in-memory RecordStore with failure switches.
type memStore struct {
	mu             sync.Mutex
	articles       map[string]domain.Article
	contents       map[string]domain.Content
	order          []string
	seq            int
	articleSaves   int
	contentSaves   int
	saveArticleErr error
	updateErr      error
}

func newMemStore() *memStore {
	return &memStore{articles: map[string]domain.Article{}, contents: map[string]domain.Content{}}
}

func (s *memStore) SaveArticle(_ context.Context, a domain.Article) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.articleSaves++
	if s.saveArticleErr != nil {
		return "", s.saveArticleErr
	}
	s.seq++
	a.RecordID = fmt.Sprintf("art%d", s.seq)
	s.articles[a.RecordID] = a
	return a.RecordID, nil
}

func (s *memStore) SaveContent(_ context.Context, c domain.Content) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.contentSaves++
	if _, ok := s.articles[c.ArticleRecordID]; !ok {
		return "", domain.Errorf(domain.KindNotFound, "save content", "article %s does not exist", c.ArticleRecordID)
	}
	s.seq++
	c.RecordID = fmt.Sprintf("con%d", s.seq)
	s.contents[c.RecordID] = c
	s.order = append(s.order, c.RecordID)
	return c.RecordID, nil
}

func (s *memStore) GetArticle(_ context.Context, id string) (domain.Article, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.articles[id]
	if !ok {
		return domain.Article{}, domain.Errorf(domain.KindNotFound, "get article", "article %s does not exist", id)
	}
	return a, nil
}

func (s *memStore) GetContent(_ context.Context, id string) (domain.Content, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.contents[id]
	if !ok {
		return domain.Content{}, domain.Errorf(domain.KindNotFound, "get content", "content %s does not exist", id)
	}
	return c, nil
}

func (s *memStore) LatestArticle(context.Context) (domain.Article, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest domain.Article
	for _, a := range s.articles {
		if latest.RecordID == "" || a.RecordID > latest.RecordID {
			latest = a
		}
	}
	return latest, latest.RecordID != "", nil
}

func (s *memStore) LatestContent(context.Context) (domain.Content, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if len(s.order) == 0 {
		return domain.Content{}, false, nil
	}
	return s.contents[s.order[len(s.order)-1]], true, nil
}

func (s *memStore) UpdateContentStatus(_ context.Context, id string, status domain.ContentStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.updateErr != nil {
		return s.updateErr
	}
	c, ok := s.contents[id]
	if !ok {
		return domain.Errorf(domain.KindNotFound, "update content status", "content %s does not exist", id)
	}
	c.Status = status
	s.contents[id] = c
	return nil
}

type harness struct {
	pipeline  *Pipeline
	extractor *fakeExtractor
	structGen *fakeGenerator
	xGen      *fakeGenerator
	liGen     *fakeGenerator
	images    *fakeImages
	xClient   *fakeClient
	igClient  *fakeClient
	store     *memStore
	notifier  *recordingNotifier
	locks     *cache.Memory
}

type harnessOptions struct {
	platforms []string
	noImages  bool
	parallel  bool
}

func newHarness(t *testing.T, opts harnessOptions) *harness {
	t.Helper()
	if opts.platforms == nil {
		opts.platforms = []string{"X", "LinkedIn"}
	}

	h := &harness{
		extractor: &fakeExtractor{raw: domain.RawArticle{Text: "The rover found organic molecules.", SiteName: "Space Daily"}},
		structGen: &fakeGenerator{},
		xGen:      &fakeGenerator{},
		liGen:     &fakeGenerator{},
		images:    &fakeImages{url: "https://images.example/1.png"},
		xClient:   &fakeClient{id: "tweet-1"},
		igClient:  &fakeClient{id: "ig-1"},
		store:     newMemStore(),
		notifier:  &recordingNotifier{},
		locks:     cache.NewMemory(),
	}

	registry := platform.NewRegistry()
	for _, name := range opts.platforms {
		switch name {
		case "X":
			registry.Register(platform.Entry{
				Profile:   domain.Platform{Name: "X", Version: "2", Model: "gpt-4o", Instructions: "Write a tweet.", Temperature: 1, TopP: 1},
				Generator: h.xGen,
				Client:    h.xClient,
			})
		case "LinkedIn":
			registry.Register(platform.Entry{
				Profile:   domain.Platform{Name: "LinkedIn", Version: "1", Model: "gpt-4o"},
				Generator: h.liGen,
			})
		case "Instagram":
			registry.Register(platform.Entry{
				Profile:   domain.Platform{Name: "Instagram", Version: "1", RequiresImage: true},
				Generator: h.liGen,
				Client:    h.igClient,
			})
		}
	}

	var illustrator *Illustrator
	if !opts.noImages {
		illustrator = NewIllustrator(h.images, nil, IllustratorOptions{Instructions: "Draw a clean editorial illustration.", Model: "dall-e-3", Size: "1024x1024", Quality: "standard"})
	}

	h.pipeline = NewPipeline(PipelineDeps{
		Extractor:   h.extractor,
		Structurer:  NewStructurer(h.structGen, StructurerOptions{Model: "gpt-4o-mini", ContentMaxTokens: 1000}),
		Store:       h.store,
		Content:     NewContentGenerator(registry, opts.parallel),
		Illustrator: illustrator,
		Publisher:   NewPublisher(registry),
		Notifier:    h.notifier,
		Locker:      h.locks,
	})
	var seq int
	h.pipeline.newRunID = func() string {
		seq++
		return fmt.Sprintf("run-%d", seq)
	}
	return h
}

// ingestOne runs an ingest that is expected to succeed and returns the first content id.
func (h *harness) ingestOne(t *testing.T) (domain.IngestReport, string) {
	t.Helper()
	report, err := h.pipeline.Ingest(context.Background(), "chan-1", "https://example.org/rover")
	if err != nil {
		t.Fatalf("ingest: %v", err)
	}
	ids := report.ContentIDs()
	if len(ids) == 0 {
		t.Fatalf("ingest saved no content: %+v", report.Outcomes)
	}
	return report, ids[0]
}

var errBoom = errors.New("boom")

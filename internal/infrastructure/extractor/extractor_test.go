package extractor

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"ArticleRelay/internal/domain"
)

const samplePage = `<!DOCTYPE html>
<html>
<head>
  <title>Rover finds organics | Space Daily</title>
  <meta property="og:site_name" content="Space Daily">
</head>
<body>
  <nav><a href="/">Home</a></nav>
  <article>
    <h1>Rover finds organics</h1>
    <p>NASA's Perseverance rover has discovered organic molecules in Jezero crater, a finding that scientists say could point to ancient microbial life.</p>
    <p>The samples were collected over several months and analysed with the rover's onboard instruments, which detected a range of carbon-based compounds.</p>
    <p>Researchers cautioned that organic molecules can also form through geological processes, and that samples must be returned to Earth for confirmation.</p>
  </article>
  <footer><p>Copyright Space Daily</p></footer>
</body>
</html>`

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	if err != nil {
		t.Fatalf("parse url: %v", err)
	}
	return u
}

func TestParagraphsExtract(t *testing.T) {
	t.Parallel()

	article, err := Paragraphs{}.Extract(Page{URL: mustURL(t, "https://example.org/a"), HTML: []byte(samplePage)})
	if err != nil {
		t.Fatalf("extract: %v", err)
	}

	if !strings.Contains(article.Text, "Perseverance rover") {
		t.Fatalf("missing paragraph text: %q", article.Text)
	}
	if strings.Count(article.Text, "\n\n") != 3 {
		t.Fatalf("expected four joined paragraphs, got %q", article.Text)
	}
	if article.SiteName != "Space Daily" {
		t.Fatalf("unexpected site name: %q", article.SiteName)
	}
	if article.Title != "Rover finds organics | Space Daily" {
		t.Fatalf("unexpected title: %q", article.Title)
	}
}

func TestExtractorFetchesAndFallsBack(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("User-Agent") != "relay-test" {
			t.Errorf("unexpected user agent: %s", r.Header.Get("User-Agent"))
		}
		_, _ = w.Write([]byte(samplePage))
	}))
	defer server.Close()

	empty := strategyFunc{name: "empty", fn: func(Page) (domain.RawArticle, error) { return domain.RawArticle{}, nil }}
	broken := strategyFunc{name: "broken", fn: func(Page) (domain.RawArticle, error) { return domain.RawArticle{}, errors.New("boom") }}

	ex := New(server.Client(), "relay-test", []Strategy{empty, broken, Paragraphs{}}, nil)
	article, err := ex.Extract(context.Background(), server.URL+"/story")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if article.URL != server.URL+"/story" {
		t.Fatalf("unexpected url: %s", article.URL)
	}
	if !strings.Contains(article.Text, "Jezero crater") {
		t.Fatalf("unexpected text: %q", article.Text)
	}
}

func TestExtractorFailures(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/gone":
			http.NotFound(w, r)
		default:
			_, _ = w.Write([]byte("<html><body><div>no paragraphs here</div></body></html>"))
		}
	}))
	defer server.Close()

	ex := New(server.Client(), "", []Strategy{Paragraphs{}}, nil)

	cases := []string{
		"not a url",
		"ftp://example.org/file",
		server.URL + "/gone",
		server.URL + "/empty",
	}
	for _, raw := range cases {
		_, err := ex.Extract(context.Background(), raw)
		if !errors.Is(err, domain.ErrExtractionFailed) {
			t.Fatalf("%s: expected extraction failure, got %v", raw, err)
		}
	}
}

func TestStrategiesResolve(t *testing.T) {
	t.Parallel()

	strategies, err := Strategies([]string{"paragraphs", "Readability"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if strategies[0].Name() != "paragraphs" || strategies[1].Name() != "readability" {
		t.Fatalf("unexpected order: %s, %s", strategies[0].Name(), strategies[1].Name())
	}

	if _, err := Strategies([]string{"boilerpipe"}); err == nil {
		t.Fatalf("expected error for unknown strategy")
	}
}

type strategyFunc struct {
	name string
	fn   func(Page) (domain.RawArticle, error)
}

func (s strategyFunc) Name() string { return s.name }

func (s strategyFunc) Extract(p Page) (domain.RawArticle, error) { return s.fn(p) }

package fetcher

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"artivox/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

const articleHTML = `<!DOCTYPE html>
<html>
<head><title>Go Concurrency Patterns</title></head>
<body>
<nav><a href="/">Home</a><a href="/about">About</a></nav>
<article>
<h1>Go Concurrency Patterns</h1>
<p>Concurrency is the composition of independently executing computations,
and Go provides primitives that make concurrent programming practical for
everyday services rather than a specialist discipline reserved for experts.</p>
<p>Goroutines are lightweight threads managed by the runtime scheduler. They
start with small stacks that grow on demand, which makes it reasonable to
create thousands of them in a single process without exhausting memory.</p>
<p>Channels connect goroutines so that data flows between them safely. By
communicating instead of sharing memory, programs avoid most of the locking
bugs that plague traditional multithreaded designs in other languages.</p>
<p>The select statement waits on multiple channel operations at once and
picks whichever is ready first, which is the backbone of timeout handling,
cancellation, and fan-in patterns found in production network servers.</p>
</article>
<footer>Copyright notice and unrelated boilerplate text lives here.</footer>
</body>
</html>`

func TestFetch_ExtractsArticle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		io.WriteString(w, articleHTML)
	}))
	defer srv.Close()

	f := New(Options{Logger: testLogger()})
	record, err := f.Fetch(context.Background(), srv.URL+"/articles/go-concurrency")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}

	if record.Title != "Go Concurrency Patterns" {
		t.Fatalf("unexpected title: %q", record.Title)
	}
	if !strings.Contains(record.Text, "Goroutines are lightweight threads") {
		t.Fatalf("body text missing, got: %q", record.Text[:min(len(record.Text), 200)])
	}
	if strings.Contains(record.Text, "Copyright notice") {
		t.Fatal("footer boilerplate should not leak into article text")
	}
	if record.WordCount == 0 {
		t.Fatal("word count should be > 0")
	}
	if record.WordCount != len(strings.Fields(record.Text)) {
		t.Fatalf("word count %d does not match text", record.WordCount)
	}
	if record.URL != srv.URL+"/articles/go-concurrency" {
		t.Fatalf("unexpected URL: %q", record.URL)
	}
	if record.Domain != "127.0.0.1" {
		t.Fatalf("unexpected domain: %q", record.Domain)
	}
}

func TestFetch_HTTPError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := New(Options{Logger: testLogger()})
	_, err := f.Fetch(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected error for 500 response")
	}

	var fe *domain.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %T", err)
	}
	if fe.URL != srv.URL {
		t.Fatalf("FetchError should carry the URL, got %q", fe.URL)
	}
}

func TestFetch_UnsupportedScheme(t *testing.T) {
	f := New(Options{Logger: testLogger()})
	_, err := f.Fetch(context.Background(), "ftp://example.com/file")
	if err == nil {
		t.Fatal("expected error for ftp scheme")
	}
	var fe *domain.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected FetchError, got %T", err)
	}
}

func TestFetch_NoExtractableText(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<html><body><script>var x=1;</script></body></html>")
	}))
	defer srv.Close()

	f := New(Options{Logger: testLogger()})
	_, err := f.Fetch(context.Background(), srv.URL)
	if err == nil {
		t.Fatal("expected error for page with no text")
	}
}

func TestFetch_RespectsRobots(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/robots.txt", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "User-agent: *\nDisallow: /private/\n")
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, articleHTML)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := New(Options{RespectRobots: true, Logger: testLogger()})

	if _, err := f.Fetch(context.Background(), srv.URL+"/private/secret"); err == nil {
		t.Fatal("expected robots.txt to block /private/")
	}

	if _, err := f.Fetch(context.Background(), srv.URL+"/public/article"); err != nil {
		t.Fatalf("allowed path should fetch: %v", err)
	}
}

func TestFetchMany_SkipsFailuresKeepsOrder(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/bad", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, articleHTML)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	f := New(Options{Concurrency: 3, Logger: testLogger()})
	urls := []string{srv.URL + "/first", srv.URL + "/bad", srv.URL + "/second"}

	records := f.FetchMany(context.Background(), urls)
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].URL != urls[0] || records[1].URL != urls[2] {
		t.Fatalf("input order not preserved: %q, %q", records[0].URL, records[1].URL)
	}
}

func TestFetchMany_AllFail(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := New(Options{Logger: testLogger()})
	records := f.FetchMany(context.Background(), []string{srv.URL + "/a", srv.URL + "/b"})
	if len(records) != 0 {
		t.Fatalf("expected no records, got %d", len(records))
	}
}

// --- extraction helpers ---

func TestExtractTitle_Priority(t *testing.T) {
	withTitle := `<html><head><title>From Title Tag</title><meta property="og:title" content="From OG"/></head><body><h1>From H1</h1></body></html>`
	if got := extractTitle([]byte(withTitle)); got != "From Title Tag" {
		t.Fatalf("expected title tag to win, got %q", got)
	}

	withOG := `<html><head><meta property="og:title" content="From OG"/></head><body><h1>From H1</h1></body></html>`
	if got := extractTitle([]byte(withOG)); got != "From OG" {
		t.Fatalf("expected og:title, got %q", got)
	}

	withH1 := `<html><body><h1>From H1</h1></body></html>`
	if got := extractTitle([]byte(withH1)); got != "From H1" {
		t.Fatalf("expected h1, got %q", got)
	}
}

func TestExtractParagraphs_Fallback(t *testing.T) {
	html := `<div><h2>Heading</h2><p>First paragraph here.</p><p>Second one.</p><li>An item</li></div>`
	got := extractParagraphs(html)
	for _, want := range []string{"Heading", "First paragraph here.", "Second one.", "An item"} {
		if !strings.Contains(got, want) {
			t.Fatalf("missing %q in %q", want, got)
		}
	}
}

func TestExtractParagraphs_DropsConsecutiveDuplicates(t *testing.T) {
	// A <p> nested in a <li> matches both selectors and would otherwise
	// appear twice in a row.
	html := `<ul><li><p>Repeated line.</p></li></ul><p>Repeated line.</p><p>Fresh line.</p>`
	got := extractParagraphs(html)
	if want := "Repeated line.\n\nFresh line."; got != want {
		t.Fatalf("expected %q, got %q", want, got)
	}
}

func TestNormalizeWhitespace(t *testing.T) {
	got := normalizeWhitespace("  a\n\n b\t\tc  ")
	if got != "a b c" {
		t.Fatalf("expected 'a b c', got %q", got)
	}
}

// --- manifest ---

func TestLoadManifest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "articles.yaml")
	content := `urls:
  - https://example.com/one
  - https://example.com/two
feeds:
  - https://example.com/feed.xml
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	m, err := LoadManifest(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(m.URLs) != 2 || len(m.Feeds) != 1 {
		t.Fatalf("unexpected manifest: %+v", m)
	}
}

func TestLoadManifest_Missing(t *testing.T) {
	if _, err := LoadManifest("/nonexistent/articles.yaml"); err == nil {
		t.Fatal("expected error for missing manifest")
	}
}

const feedXML = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
  <channel>
    <title>Test Feed</title>
    <link>http://example.com</link>
    <description>test</description>
    <item><title>One</title><link>http://example.com/one</link></item>
    <item><title>Two</title><link>http://example.com/two</link></item>
    <item><title>Three</title><link>http://example.com/three</link></item>
  </channel>
</rss>`

func TestExpandURLs_FeedCapAndDedupe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		io.WriteString(w, feedXML)
	}))
	defer srv.Close()

	m := &Manifest{
		URLs:  []string{"http://example.com/one"},
		Feeds: []string{srv.URL + "/feed.xml"},
	}

	urls := ExpandURLs(context.Background(), m, 2, testLogger())
	want := []string{"http://example.com/one", "http://example.com/two"}
	if len(urls) != len(want) {
		t.Fatalf("expected %d urls, got %v", len(want), urls)
	}
	for i := range want {
		if urls[i] != want[i] {
			t.Fatalf("url %d: expected %q, got %q", i, want[i], urls[i])
		}
	}
}

func TestExpandURLs_BadFeedSkipped(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "not a feed")
	}))
	defer srv.Close()

	m := &Manifest{
		URLs:  []string{"http://example.com/direct"},
		Feeds: []string{srv.URL},
	}

	urls := ExpandURLs(context.Background(), m, 5, testLogger())
	if len(urls) != 1 || urls[0] != "http://example.com/direct" {
		t.Fatalf("expected direct URL only, got %v", urls)
	}
}

package fetcher

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-shiori/go-readability"
	"github.com/microcosm-cc/bluemonday"
	"golang.org/x/sync/errgroup"

	"artivox/internal/domain"
)

// minTextLength is the shortest extraction considered a real article body.
// Below this the readability output is usually just the title or boilerplate.
const minTextLength = 200

// Fetcher downloads article pages and extracts their readable text.
// It implements domain.ArticleFetcher.
type Fetcher struct {
	client       *http.Client
	userAgent    string
	maxBodyBytes int64
	concurrency  int
	robots       *robotsGate
	renderer     *Renderer
	logger       *slog.Logger
}

// Options configures a Fetcher. Zero values fall back to sane defaults.
type Options struct {
	Timeout       time.Duration
	UserAgent     string
	MaxBodyBytes  int64
	Concurrency   int
	RespectRobots bool
	Renderer      *Renderer // optional headless-Chrome fallback
	Logger        *slog.Logger
}

func New(opts Options) *Fetcher {
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "artivox/1.0 (article assistant)"
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = 10 << 20
	}
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	client := &http.Client{Timeout: opts.Timeout}

	f := &Fetcher{
		client:       client,
		userAgent:    opts.UserAgent,
		maxBodyBytes: opts.MaxBodyBytes,
		concurrency:  opts.Concurrency,
		renderer:     opts.Renderer,
		logger:       opts.Logger,
	}
	if opts.RespectRobots {
		f.robots = newRobotsGate(client, opts.UserAgent, opts.Logger)
	}
	return f
}

// Fetch downloads one URL and returns its extracted article. All failures
// come back as *domain.FetchError so callers can treat them as skippable.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*domain.ArticleRecord, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return nil, &domain.FetchError{URL: rawURL, Err: err}
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, &domain.FetchError{URL: rawURL, Err: fmt.Errorf("unsupported scheme %q", parsed.Scheme)}
	}

	if f.robots != nil && !f.robots.Allowed(ctx, parsed) {
		return nil, &domain.FetchError{URL: rawURL, Err: fmt.Errorf("disallowed by robots.txt")}
	}

	raw, err := f.download(ctx, parsed)
	if err != nil {
		return nil, &domain.FetchError{URL: rawURL, Err: err}
	}

	record, err := f.extract(raw, parsed)
	if err == nil {
		return record, nil
	}

	// Script-heavy pages often ship an empty shell; render them if we can.
	if f.renderer != nil {
		f.logger.Debug("static extraction failed, rendering page", "url", rawURL, "err", err)
		html, rerr := f.renderer.RenderHTML(ctx, rawURL)
		if rerr == nil {
			if record, eerr := f.extract([]byte(html), parsed); eerr == nil {
				return record, nil
			}
		} else {
			f.logger.Debug("browser render failed", "url", rawURL, "err", rerr)
		}
	}

	return nil, &domain.FetchError{URL: rawURL, Err: err}
}

// FetchMany fetches all URLs, skipping failures. The returned slice keeps
// the input order of the URLs that succeeded.
func (f *Fetcher) FetchMany(ctx context.Context, urls []string) []*domain.ArticleRecord {
	results := make([]*domain.ArticleRecord, len(urls))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.concurrency)

	for i, u := range urls {
		g.Go(func() error {
			record, err := f.Fetch(gctx, u)
			if err != nil {
				f.logger.Warn("skipping article", "url", u, "err", err)
				return nil
			}
			results[i] = record
			return nil
		})
	}
	g.Wait()

	fetched := make([]*domain.ArticleRecord, 0, len(urls))
	for _, r := range results {
		if r != nil {
			fetched = append(fetched, r)
		}
	}
	f.logger.Info("fetch complete", "requested", len(urls), "fetched", len(fetched))
	return fetched
}

func (f *Fetcher) download(ctx context.Context, u *url.URL) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBodyBytes))
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty response body")
	}
	return raw, nil
}

// extract turns raw HTML into an ArticleRecord. It runs readability first
// and falls back to paragraph scraping when the result is implausibly short.
func (f *Fetcher) extract(raw []byte, u *url.URL) (*domain.ArticleRecord, error) {
	title := extractTitle(raw)

	var (
		text      string
		author    string
		published string
	)

	article, err := readability.FromReader(bytes.NewReader(raw), u)
	if err == nil {
		text = normalizeWhitespace(article.TextContent)
		if article.Title != "" {
			title = article.Title
		}
		author = strings.TrimSpace(article.Byline)
		if article.PublishedTime != nil {
			published = article.PublishedTime.Format("2006-01-02")
		}
	}

	if len(text) < minTextLength {
		// Sometimes readability extracts only the title or metadata while
		// the actual content is much larger.
		if fallback := extractParagraphs(preClean(raw)); len(fallback) > len(text) {
			text = fallback
		}
	}

	if strings.TrimSpace(text) == "" {
		return nil, fmt.Errorf("no extractable text")
	}

	return &domain.ArticleRecord{
		Text:          text,
		URL:           u.String(),
		Domain:        u.Hostname(),
		Title:         title,
		Author:        author,
		PublishedDate: published,
		WordCount:     len(strings.Fields(text)),
	}, nil
}

// preClean strips non-content elements before fallback extraction so that
// navigation and scripts do not leak into the article text.
func preClean(raw []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return string(raw)
	}

	doc.Find("head, script, style, noscript, title, aside, nav, header, footer").Remove()
	doc.Find("iframe, embed, object, video, audio, canvas").Remove()
	doc.Find("[class*='social'], [class*='share'], [class*='comment'], [id*='comment']").Remove()

	html, err := doc.Html()
	if err != nil || html == "" {
		return string(raw)
	}
	return html
}

// extractParagraphs pulls text from block elements, joined by double
// newlines. Used when readability cannot find the article body.
func extractParagraphs(html string) string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return stripTags(html)
	}

	var paragraphs []string
	doc.Find("h1, h2, h3, h4, h5, h6, p, pre, li").Each(func(_ int, s *goquery.Selection) {
		text := strings.TrimSpace(s.Text())
		if text == "" {
			return
		}
		text = normalizeWhitespace(text)
		// Nested matches (a <p> inside a <li>) repeat their text verbatim.
		if n := len(paragraphs); n > 0 && paragraphs[n-1] == text {
			return
		}
		paragraphs = append(paragraphs, text)
	})

	if len(paragraphs) == 0 {
		return stripTags(html)
	}
	return strings.Join(paragraphs, "\n\n")
}

// stripTags removes all HTML tags via bluemonday's strict policy.
func stripTags(raw string) string {
	return normalizeWhitespace(bluemonday.StrictPolicy().Sanitize(raw))
}

func normalizeWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// extractTitle reads the page title: <title>, then og:title, then first <h1>.
func extractTitle(raw []byte) string {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(raw))
	if err != nil {
		return ""
	}

	if title := strings.TrimSpace(doc.Find("title").First().Text()); title != "" {
		return title
	}
	if og, ok := doc.Find("meta[property='og:title']").First().Attr("content"); ok && strings.TrimSpace(og) != "" {
		return strings.TrimSpace(og)
	}
	return strings.TrimSpace(doc.Find("h1").First().Text())
}

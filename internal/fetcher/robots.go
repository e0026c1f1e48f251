package fetcher

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sync"

	"github.com/temoto/robotstxt"
)

// robotsGate checks robots.txt before fetching, caching one ruleset per
// host for the lifetime of the Fetcher.
type robotsGate struct {
	client    *http.Client
	userAgent string
	logger    *slog.Logger

	mu    sync.Mutex
	cache map[string]*robotstxt.RobotsData
}

func newRobotsGate(client *http.Client, userAgent string, logger *slog.Logger) *robotsGate {
	return &robotsGate{
		client:    client,
		userAgent: userAgent,
		logger:    logger,
		cache:     make(map[string]*robotstxt.RobotsData),
	}
}

// Allowed reports whether the user agent may fetch u. Hosts whose
// robots.txt cannot be retrieved or parsed are treated as open.
func (g *robotsGate) Allowed(ctx context.Context, u *url.URL) bool {
	data := g.rulesFor(ctx, u)
	if data == nil {
		return true
	}
	path := u.Path
	if path == "" {
		path = "/"
	}
	return data.TestAgent(path, g.userAgent)
}

func (g *robotsGate) rulesFor(ctx context.Context, u *url.URL) *robotstxt.RobotsData {
	host := u.Scheme + "://" + u.Host

	g.mu.Lock()
	if data, ok := g.cache[host]; ok {
		g.mu.Unlock()
		return data
	}
	g.mu.Unlock()

	data := g.fetch(ctx, host)

	g.mu.Lock()
	g.cache[host] = data
	g.mu.Unlock()
	return data
}

func (g *robotsGate) fetch(ctx context.Context, host string) *robotstxt.RobotsData {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, host+"/robots.txt", nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", g.userAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		g.logger.Debug("robots.txt unavailable", "host", host, "err", err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil
	}

	data, err := robotstxt.FromBytes(body)
	if err != nil {
		g.logger.Debug("robots.txt unparsable", "host", host, "err", err)
		return nil
	}
	return data
}

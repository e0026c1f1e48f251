package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/mmcdole/gofeed"
	"gopkg.in/yaml.v3"
)

// Manifest lists the articles to load at startup: direct URLs plus RSS or
// Atom feeds whose recent items are pulled in.
type Manifest struct {
	URLs  []string `yaml:"urls"`
	Feeds []string `yaml:"feeds"`
}

func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read manifest %s: %w", path, err)
	}

	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("cannot parse manifest %s: %w", path, err)
	}
	return &m, nil
}

// ExpandURLs resolves a manifest into a flat, deduplicated URL list.
// Direct URLs come first, then up to maxPerFeed items from each feed.
// Feeds that cannot be parsed are skipped with a warning.
func ExpandURLs(ctx context.Context, m *Manifest, maxPerFeed int, logger *slog.Logger) []string {
	if maxPerFeed <= 0 {
		maxPerFeed = 5
	}

	seen := make(map[string]bool)
	var urls []string
	add := func(u string) {
		if u != "" && !seen[u] {
			seen[u] = true
			urls = append(urls, u)
		}
	}

	for _, u := range m.URLs {
		add(u)
	}

	parser := gofeed.NewParser()
	for _, feedURL := range m.Feeds {
		feed, err := parser.ParseURLWithContext(feedURL, ctx)
		if err != nil {
			logger.Warn("skipping feed", "url", feedURL, "err", err)
			continue
		}
		count := 0
		for _, item := range feed.Items {
			if count >= maxPerFeed {
				break
			}
			if item.Link == "" {
				continue
			}
			add(item.Link)
			count++
		}
		logger.Info("feed expanded", "url", feedURL, "items", count)
	}

	return urls
}

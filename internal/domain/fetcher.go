package domain

import "context"

// ArticleFetcher retrieves and cleans article content from the web.
// Fetch returns (*FetchError wrapped) on any failure; it never panics and
// never returns a partially filled record.
type ArticleFetcher interface {
	Fetch(ctx context.Context, url string) (*ArticleRecord, error)
	FetchMany(ctx context.Context, urls []string) []*ArticleRecord
}

// ExtractOptions controls how raw HTML is reduced to article text.
type ExtractOptions struct {
	IncludeComments bool // keep comment sections (default false)
	IncludeTables   bool // keep table contents (default false)
	IncludeLinks    bool // keep hyperlink anchors (default false)
	Deduplicate     bool // drop repeated paragraphs (default true)
}

// DefaultExtractOptions matches the extraction profile used for knowledge
// ingestion: content only, no boilerplate, repeated paragraphs removed.
func DefaultExtractOptions() ExtractOptions {
	return ExtractOptions{Deduplicate: true}
}

package tool

import (
	"context"
	"fmt"
	"log/slog"

	"artivox/internal/domain"
)

// Fetcher is the article-download surface the ingest tool drives.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*domain.ArticleRecord, error)
}

// Ingestor is the write surface of the knowledge store.
type Ingestor interface {
	ProcessArticle(ctx context.Context, article *domain.ArticleRecord) (*domain.KnowledgeEntry, error)
}

// AddArticleTool pulls a new article into the knowledge base mid-conversation.
// Failures come back as sayable text rather than errors so the assistant can
// relay them to the user.
type AddArticleTool struct {
	fetcher Fetcher
	store   Ingestor
	logger  *slog.Logger
}

func NewAddArticleTool(fetcher Fetcher, store Ingestor, logger *slog.Logger) *AddArticleTool {
	return &AddArticleTool{fetcher: fetcher, store: store, logger: logger}
}

func (t *AddArticleTool) Name() string { return "add_article" }
func (t *AddArticleTool) Description() string {
	return "Fetch an article from a URL and add it to the knowledge base so it can be discussed."
}
func (t *AddArticleTool) Parameters() map[string]any {
	return ToolParameters(
		map[string]Param{
			"url": {Type: "string", Description: "Full URL of the article to fetch (http or https)"},
		},
		[]string{"url"},
	)
}

func (t *AddArticleTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	rawURL := ArgsString(args, "url")
	if rawURL == "" {
		return "", fmt.Errorf("missing argument: url")
	}
	t.logger.Info("ingesting article from conversation", "url", rawURL)

	record, err := t.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		t.logger.Warn("mid-conversation fetch failed", "url", rawURL, "err", err)
		return fmt.Sprintf("I couldn't fetch the article at %s. The site may be unavailable or blocking access.", rawURL), nil
	}

	entry, err := t.store.ProcessArticle(ctx, record)
	if err != nil {
		t.logger.Warn("mid-conversation extraction failed", "url", rawURL, "err", err)
		return "I fetched the article but couldn't process it into my knowledge base. Please try again later.", nil
	}

	title := entry.Metadata.Title
	if title == "" {
		title = "the article"
	}
	return fmt.Sprintf("I've added '%s' to my knowledge base. Feel free to ask me about it.", title), nil
}

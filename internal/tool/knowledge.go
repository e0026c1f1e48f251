package tool

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"artivox/internal/domain"
)

// Knowledge is the read surface the conversation tools query. Implemented
// by knowledge.Store.
type Knowledge interface {
	Search(query string, topK int) []*domain.KnowledgeEntry
	DetailedInfo(topic string) (string, bool)
	Entries() []*domain.KnowledgeEntry
}

// searchTopK bounds how many entries a voice reply quotes from. Two keeps
// spoken answers short.
const searchTopK = 2

// SearchKnowledgeTool looks up loaded articles by topic.
type SearchKnowledgeTool struct {
	store  Knowledge
	logger *slog.Logger
}

func NewSearchKnowledgeTool(store Knowledge, logger *slog.Logger) *SearchKnowledgeTool {
	return &SearchKnowledgeTool{store: store, logger: logger}
}

func (t *SearchKnowledgeTool) Name() string { return "search_knowledge" }
func (t *SearchKnowledgeTool) Description() string {
	return "Search the knowledge base for information about a specific topic."
}
func (t *SearchKnowledgeTool) Parameters() map[string]any {
	return ToolParameters(
		map[string]Param{
			"query": {Type: "string", Description: "Topic or keywords to look up in the loaded articles"},
		},
		[]string{"query"},
	)
}

func (t *SearchKnowledgeTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	query := ArgsString(args, "query")
	if query == "" {
		return "", fmt.Errorf("missing argument: query")
	}
	t.logger.Info("searching knowledge base", "query", query)

	results := t.store.Search(query, searchTopK)
	if len(results) == 0 {
		return "I couldn't find specific information about that topic in my knowledge base.", nil
	}

	parts := make([]string, 0, len(results))
	for _, entry := range results {
		title := entry.Metadata.Title
		if title == "" {
			title = "Untitled"
		}
		parts = append(parts, fmt.Sprintf("From '%s': %s", title, entry.Summary))
	}
	return strings.Join(parts, "\n\n"), nil
}

// DetailedInfoTool returns the summary and key points of the best-matching
// article for a topic.
type DetailedInfoTool struct {
	store  Knowledge
	logger *slog.Logger
}

func NewDetailedInfoTool(store Knowledge, logger *slog.Logger) *DetailedInfoTool {
	return &DetailedInfoTool{store: store, logger: logger}
}

func (t *DetailedInfoTool) Name() string { return "get_detailed_info" }
func (t *DetailedInfoTool) Description() string {
	return "Get detailed information about a specific topic from the knowledge base."
}
func (t *DetailedInfoTool) Parameters() map[string]any {
	return ToolParameters(
		map[string]Param{
			"topic": {Type: "string", Description: "The topic to expand on"},
		},
		[]string{"topic"},
	)
}

func (t *DetailedInfoTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	topic := ArgsString(args, "topic")
	if topic == "" {
		return "", fmt.Errorf("missing argument: topic")
	}
	t.logger.Info("getting detailed info", "topic", topic)

	details, ok := t.store.DetailedInfo(topic)
	if !ok {
		return fmt.Sprintf("I don't have detailed information about '%s' in my current knowledge base.", topic), nil
	}
	return details, nil
}

// ListArticlesTool enumerates everything currently loaded.
type ListArticlesTool struct {
	store Knowledge
}

func NewListArticlesTool(store Knowledge) *ListArticlesTool {
	return &ListArticlesTool{store: store}
}

func (t *ListArticlesTool) Name() string { return "list_articles" }
func (t *ListArticlesTool) Description() string {
	return "List all articles currently in the knowledge base."
}
func (t *ListArticlesTool) Parameters() map[string]any {
	return ToolParameters(map[string]Param{}, nil)
}

func (t *ListArticlesTool) Execute(ctx context.Context, args map[string]any) (string, error) {
	entries := t.store.Entries()
	if len(entries) == 0 {
		return "No articles are currently loaded in the knowledge base.", nil
	}

	lines := make([]string, 0, len(entries))
	for _, entry := range entries {
		title := entry.Metadata.Title
		if title == "" {
			title = "Untitled"
		}
		topics := entry.Topics
		if len(topics) > 3 {
			topics = topics[:3]
		}
		lines = append(lines, fmt.Sprintf("• %s - Topics: %s", title, strings.Join(topics, ", ")))
	}
	return "Articles in my knowledge base:\n" + strings.Join(lines, "\n"), nil
}

package tool

import (
	"context"
	"errors"
	"strings"
	"testing"

	"artivox/internal/domain"
)

type fakeFetcher struct {
	record *domain.ArticleRecord
	err    error
}

func (f *fakeFetcher) Fetch(ctx context.Context, rawURL string) (*domain.ArticleRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.record, nil
}

type fakeIngestor struct {
	entry *domain.KnowledgeEntry
	err   error
	got   *domain.ArticleRecord
}

func (f *fakeIngestor) ProcessArticle(ctx context.Context, article *domain.ArticleRecord) (*domain.KnowledgeEntry, error) {
	f.got = article
	if f.err != nil {
		return nil, f.err
	}
	return f.entry, nil
}

func TestAddArticle_Success(t *testing.T) {
	record := &domain.ArticleRecord{URL: "https://example.com/post", Title: "A Post", Text: "body"}
	ingestor := &fakeIngestor{entry: &domain.KnowledgeEntry{
		Metadata: domain.EntryMetadata{Title: "A Post"},
	}}
	tool := NewAddArticleTool(&fakeFetcher{record: record}, ingestor, testLogger())

	got, err := tool.Execute(context.Background(), map[string]any{"url": "https://example.com/post"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "I've added 'A Post' to my knowledge base. Feel free to ask me about it." {
		t.Fatalf("unexpected result: %q", got)
	}
	if ingestor.got != record {
		t.Error("fetched record was not passed to the store")
	}
}

func TestAddArticle_FetchFailureIsSayable(t *testing.T) {
	fetchErr := &domain.FetchError{URL: "https://example.com/gone", Err: errors.New("404")}
	tool := NewAddArticleTool(&fakeFetcher{err: fetchErr}, &fakeIngestor{}, testLogger())

	got, err := tool.Execute(context.Background(), map[string]any{"url": "https://example.com/gone"})
	if err != nil {
		t.Fatalf("fetch failures must not surface as tool errors: %v", err)
	}
	if !strings.Contains(got, "couldn't fetch the article at https://example.com/gone") {
		t.Fatalf("unexpected result: %q", got)
	}
}

func TestAddArticle_ExtractionFailureIsSayable(t *testing.T) {
	record := &domain.ArticleRecord{URL: "https://example.com/post", Text: "body"}
	ingestor := &fakeIngestor{err: &domain.ExtractionError{URL: record.URL, Err: errors.New("llm down")}}
	tool := NewAddArticleTool(&fakeFetcher{record: record}, ingestor, testLogger())

	got, err := tool.Execute(context.Background(), map[string]any{"url": record.URL})
	if err != nil {
		t.Fatalf("extraction failures must not surface as tool errors: %v", err)
	}
	if !strings.Contains(got, "couldn't process it into my knowledge base") {
		t.Fatalf("unexpected result: %q", got)
	}
}

func TestAddArticle_UntitledFallback(t *testing.T) {
	record := &domain.ArticleRecord{URL: "https://example.com/post", Text: "body"}
	ingestor := &fakeIngestor{entry: &domain.KnowledgeEntry{}}
	tool := NewAddArticleTool(&fakeFetcher{record: record}, ingestor, testLogger())

	got, _ := tool.Execute(context.Background(), map[string]any{"url": record.URL})
	if !strings.Contains(got, "I've added 'the article' to my knowledge base") {
		t.Fatalf("unexpected result: %q", got)
	}
}

func TestAddArticle_MissingURL(t *testing.T) {
	tool := NewAddArticleTool(&fakeFetcher{}, &fakeIngestor{}, testLogger())
	if _, err := tool.Execute(context.Background(), nil); err == nil {
		t.Fatal("expected error for missing url")
	}
}

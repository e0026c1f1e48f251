package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"artivox/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type stubFetcher struct {
	records map[string]*domain.ArticleRecord
	err     error
}

func (f *stubFetcher) Fetch(_ context.Context, rawURL string) (*domain.ArticleRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	if rec, ok := f.records[rawURL]; ok {
		return rec, nil
	}
	return nil, &domain.FetchError{URL: rawURL, Err: errors.New("not found")}
}

type stubIngestor struct {
	err     error
	entries int
}

func (s *stubIngestor) ProcessArticle(_ context.Context, article *domain.ArticleRecord) (*domain.KnowledgeEntry, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.entries++
	return &domain.KnowledgeEntry{
		ID:       "article_1",
		Summary:  "summary of " + article.Title,
		Metadata: domain.EntryMetadata{Title: article.Title, URL: article.URL},
	}, nil
}

type recordingAudit struct {
	records []domain.IngestRecord
	err     error
}

func (a *recordingAudit) LogIngest(_ context.Context, rec domain.IngestRecord) error {
	a.records = append(a.records, rec)
	return a.err
}

func article(url, title string) *domain.ArticleRecord {
	return &domain.ArticleRecord{URL: url, Title: title, Text: "body", WordCount: 1}
}

func TestService_FetchAuditsFailure(t *testing.T) {
	audit := &recordingAudit{}
	svc := NewService(&stubFetcher{err: errors.New("connection refused")}, &stubIngestor{}, audit, testLogger())

	_, err := svc.Fetch(context.Background(), "https://example.com/a")
	if err == nil {
		t.Fatal("expected fetch error")
	}

	if len(audit.records) != 1 {
		t.Fatalf("expected 1 audit record, got %d", len(audit.records))
	}
	rec := audit.records[0]
	if rec.Status != domain.IngestStatusFetchFailed {
		t.Fatalf("status = %q", rec.Status)
	}
	if rec.URL != "https://example.com/a" || rec.Error == "" {
		t.Fatalf("audit record incomplete: %+v", rec)
	}
	if rec.CreatedAt.IsZero() {
		t.Fatal("audit record missing timestamp")
	}
}

func TestService_FetchSuccessNotAuditedAlone(t *testing.T) {
	audit := &recordingAudit{}
	fetcher := &stubFetcher{records: map[string]*domain.ArticleRecord{
		"https://example.com/a": article("https://example.com/a", "A"),
	}}
	svc := NewService(fetcher, &stubIngestor{}, audit, testLogger())

	rec, err := svc.Fetch(context.Background(), "https://example.com/a")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if rec.Title != "A" {
		t.Fatalf("wrong record %+v", rec)
	}

	// Only the full pipeline outcome is audited, not the intermediate fetch.
	if len(audit.records) != 0 {
		t.Fatalf("fetch success should not be audited, got %+v", audit.records)
	}
}

func TestService_ProcessAuditsSuccess(t *testing.T) {
	audit := &recordingAudit{}
	svc := NewService(&stubFetcher{}, &stubIngestor{}, audit, testLogger())

	entry, err := svc.ProcessArticle(context.Background(), article("https://example.com/a", "A"))
	if err != nil {
		t.Fatalf("process: %v", err)
	}

	if len(audit.records) != 1 {
		t.Fatalf("expected 1 audit record, got %d", len(audit.records))
	}
	rec := audit.records[0]
	if rec.Status != domain.IngestStatusOK {
		t.Fatalf("status = %q", rec.Status)
	}
	if rec.EntryID != entry.ID {
		t.Fatalf("entry id %q != %q", rec.EntryID, entry.ID)
	}
	if rec.Error != "" {
		t.Fatalf("ok record should carry no error, got %q", rec.Error)
	}
}

func TestService_ProcessAuditsExtractionFailure(t *testing.T) {
	audit := &recordingAudit{}
	extractErr := &domain.ExtractionError{URL: "https://example.com/a", Err: errors.New("not json")}
	svc := NewService(&stubFetcher{}, &stubIngestor{err: extractErr}, audit, testLogger())

	_, err := svc.ProcessArticle(context.Background(), article("https://example.com/a", "A"))
	if err == nil {
		t.Fatal("expected extraction error")
	}
	var ee *domain.ExtractionError
	if !errors.As(err, &ee) {
		t.Fatalf("error type lost: %v", err)
	}

	if len(audit.records) != 1 || audit.records[0].Status != domain.IngestStatusExtractFailed {
		t.Fatalf("unexpected audit records %+v", audit.records)
	}
}

func TestService_NilAuditIsFine(t *testing.T) {
	svc := NewService(&stubFetcher{err: errors.New("down")}, &stubIngestor{}, nil, testLogger())

	if _, err := svc.Fetch(context.Background(), "https://example.com/a"); err == nil {
		t.Fatal("expected fetch error")
	}
	if _, err := svc.ProcessArticle(context.Background(), article("https://example.com/a", "A")); err != nil {
		t.Fatalf("process: %v", err)
	}
}

func TestService_IngestAllSkipsFailures(t *testing.T) {
	audit := &recordingAudit{}
	fetcher := &stubFetcher{records: map[string]*domain.ArticleRecord{
		"https://example.com/a": article("https://example.com/a", "A"),
		"https://example.com/c": article("https://example.com/c", "C"),
	}}
	ing := &stubIngestor{}
	svc := NewService(fetcher, ing, audit, testLogger())

	entries := svc.IngestAll(context.Background(), []string{
		"https://example.com/a",
		"https://example.com/b", // fetch fails
		"https://example.com/c",
	})

	if len(entries) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(entries))
	}
	if entries[0].Metadata.Title != "A" || entries[1].Metadata.Title != "C" {
		t.Fatalf("input order not preserved: %+v", entries)
	}
	if ing.entries != 2 {
		t.Fatalf("ingestor ran %d times", ing.entries)
	}

	// Two successes and one fetch failure in the audit trail.
	var ok, failed int
	for _, rec := range audit.records {
		switch rec.Status {
		case domain.IngestStatusOK:
			ok++
		case domain.IngestStatusFetchFailed:
			failed++
		}
	}
	if ok != 2 || failed != 1 {
		t.Fatalf("audit trail ok=%d failed=%d: %+v", ok, failed, audit.records)
	}
}

func TestService_IngestAllStopsOnCancel(t *testing.T) {
	fetcher := &stubFetcher{records: map[string]*domain.ArticleRecord{
		"https://example.com/a": article("https://example.com/a", "A"),
	}}
	svc := NewService(fetcher, &stubIngestor{}, nil, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	entries := svc.IngestAll(ctx, []string{"https://example.com/a"})
	if len(entries) != 0 {
		t.Fatalf("cancelled ingest should load nothing, got %d", len(entries))
	}
}

// Package ingest runs the article pipeline: fetch a URL, extract knowledge
// from it, and record the attempt in the audit log and metrics. The service
// wraps the raw fetcher and knowledge store so every path into the store,
// whether startup URLs, the /add command, or a mid-conversation add_article
// call, leaves the same trail.
package ingest

import (
	"context"
	"log/slog"
	"time"

	"artivox/internal/domain"
	"artivox/internal/metrics"
)

// AuditLog is the slice of the conversation store the service writes
// ingest attempts to. Nil when persistent memory is disabled.
type AuditLog interface {
	LogIngest(ctx context.Context, rec domain.IngestRecord) error
}

// Fetcher downloads and extracts one article.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) (*domain.ArticleRecord, error)
}

// Ingestor turns a fetched article into a knowledge entry.
type Ingestor interface {
	ProcessArticle(ctx context.Context, article *domain.ArticleRecord) (*domain.KnowledgeEntry, error)
}

// Service decorates a Fetcher and an Ingestor with auditing. It satisfies
// both interfaces itself, so tools built against them pick up the audit
// trail for free.
type Service struct {
	fetcher Fetcher
	store   Ingestor
	audit   AuditLog
	logger  *slog.Logger
}

func NewService(fetcher Fetcher, store Ingestor, audit AuditLog, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{fetcher: fetcher, store: store, audit: audit, logger: logger}
}

// Fetch downloads one article. A failure is counted and audited before the
// error propagates.
func (s *Service) Fetch(ctx context.Context, rawURL string) (*domain.ArticleRecord, error) {
	record, err := s.fetcher.Fetch(ctx, rawURL)
	if err != nil {
		metrics.IngestFailures.Inc()
		s.logAttempt(ctx, domain.IngestRecord{
			URL:    rawURL,
			Status: domain.IngestStatusFetchFailed,
			Error:  err.Error(),
		})
		return nil, err
	}
	return record, nil
}

// ProcessArticle extracts knowledge from a fetched article. Success and
// failure are both audited; only success increments the ingested counter.
func (s *Service) ProcessArticle(ctx context.Context, article *domain.ArticleRecord) (*domain.KnowledgeEntry, error) {
	entry, err := s.store.ProcessArticle(ctx, article)
	if err != nil {
		metrics.IngestFailures.Inc()
		s.logAttempt(ctx, domain.IngestRecord{
			URL:    article.URL,
			Status: domain.IngestStatusExtractFailed,
			Error:  err.Error(),
		})
		return nil, err
	}

	metrics.ArticlesIngested.Inc()
	s.logAttempt(ctx, domain.IngestRecord{
		URL:     article.URL,
		Status:  domain.IngestStatusOK,
		EntryID: entry.ID,
	})
	return entry, nil
}

// IngestAll runs the pipeline for each URL in order. Failed URLs are logged
// and skipped; the returned entries are the successes in input order.
// Extraction is deliberately sequential so each attempt is audited and the
// LLM is called one article at a time.
func (s *Service) IngestAll(ctx context.Context, urls []string) []*domain.KnowledgeEntry {
	entries := make([]*domain.KnowledgeEntry, 0, len(urls))

	for _, u := range urls {
		if ctx.Err() != nil {
			s.logger.Warn("ingest interrupted", "remaining", len(urls)-len(entries))
			break
		}

		record, err := s.Fetch(ctx, u)
		if err != nil {
			s.logger.Warn("fetch failed", "url", u, "err", err)
			continue
		}

		entry, err := s.ProcessArticle(ctx, record)
		if err != nil {
			s.logger.Error("failed to process article", "url", u, "err", err)
			continue
		}
		entries = append(entries, entry)
	}

	s.logger.Info("ingest complete", "requested", len(urls), "loaded", len(entries))
	return entries
}

func (s *Service) logAttempt(ctx context.Context, rec domain.IngestRecord) {
	if s.audit == nil {
		return
	}
	rec.CreatedAt = time.Now()
	if err := s.audit.LogIngest(ctx, rec); err != nil {
		s.logger.Warn("failed to record ingest attempt", "url", rec.URL, "err", err)
	}
}

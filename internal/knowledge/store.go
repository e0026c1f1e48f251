// Package knowledge turns raw article text into structured, searchable
// entries via one LLM extraction round-trip per article.
package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
	"unicode"

	"artivox/internal/domain"
)

// Store holds the processed knowledge entries in insertion order. Entries
// are immutable once appended; the only destructive operation is a whole
// store replace via LoadFile.
type Store struct {
	provider    domain.Provider
	model       string
	temperature float64
	maxTokens   int
	weights     ScoreWeights
	logger      *slog.Logger

	mu      sync.RWMutex
	entries []*domain.KnowledgeEntry
	lastID  int64
	gen     int64 // bumped on every mutation, read by the autosaver
}

type StoreConfig struct {
	Provider    domain.Provider
	Model       string
	Temperature float64
	MaxTokens   int
	Weights     ScoreWeights
	Logger      *slog.Logger
}

func NewStore(cfg StoreConfig) *Store {
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini"
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = 0.3
	}
	if cfg.Weights.isZero() {
		cfg.Weights = DefaultScoreWeights()
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Store{
		provider:    cfg.Provider,
		model:       cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		weights:     cfg.Weights,
		logger:      cfg.Logger,
	}
}

// ProcessArticle runs one extraction round-trip and appends the resulting
// entry. Capability failures and unparseable responses come back as
// *domain.ExtractionError; they are fatal to this article only.
func (s *Store) ProcessArticle(ctx context.Context, article *domain.ArticleRecord) (*domain.KnowledgeEntry, error) {
	s.logger.Info("processing article", "title", article.Title, "url", article.URL, "words", article.WordCount)

	resp, err := s.provider.Chat(ctx, domain.ChatRequest{
		Model: s.model,
		Messages: []domain.Message{
			{Role: "system", Content: extractionSystemPrompt},
			{Role: "user", Content: formatArticle(article)},
		},
		Temperature:    s.temperature,
		MaxTokens:      s.maxTokens,
		ResponseFormat: "json_object",
	})
	if err != nil {
		return nil, &domain.ExtractionError{URL: article.URL, Err: err}
	}

	ext, err := parseExtraction(resp.Content)
	if err != nil {
		return nil, &domain.ExtractionError{URL: article.URL, Err: err}
	}

	s.mu.Lock()
	entry := &domain.KnowledgeEntry{
		ID:          s.nextID(),
		ProcessedAt: time.Now(),
		Summary:     ext.Summary,
		KeyPoints:   ext.KeyPoints,
		Topics:      ext.Topics,
		Context:     ext.Context,
		Metadata: domain.EntryMetadata{
			Title:     article.Title,
			Author:    article.Author,
			Date:      article.PublishedDate,
			URL:       article.URL,
			WordCount: article.WordCount,
		},
		FullText: article.Text,
	}
	s.entries = append(s.entries, entry)
	s.gen++
	s.mu.Unlock()

	s.logger.Info("article processed", "id", entry.ID, "topics", len(entry.Topics), "key_points", len(entry.KeyPoints))
	return entry, nil
}

// AddArticles processes each article independently. A failed article is
// logged and skipped; the returned entries are the successes, in input
// order.
func (s *Store) AddArticles(ctx context.Context, articles []*domain.ArticleRecord) []*domain.KnowledgeEntry {
	processed := make([]*domain.KnowledgeEntry, 0, len(articles))

	for _, article := range articles {
		entry, err := s.ProcessArticle(ctx, article)
		if err != nil {
			s.logger.Error("failed to process article", "url", article.URL, "err", err)
			continue
		}
		processed = append(processed, entry)
	}

	s.logger.Info("articles added to knowledge base", "count", len(processed))
	return processed
}

// Search ranks entries by weighted case-insensitive substring hits and
// returns up to topK (default 3). Zero-score entries are excluded; ties
// keep insertion order. An empty result is the designed answer to "no
// match," never an error.
func (s *Store) Search(query string, topK int) []*domain.KnowledgeEntry {
	if topK <= 0 {
		topK = 3
	}
	q := strings.ToLower(query)

	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		entry *domain.KnowledgeEntry
		score int
	}
	var matches []scored
	for _, e := range s.entries {
		if sc := relevanceScore(e, q, s.weights); sc > 0 {
			matches = append(matches, scored{entry: e, score: sc})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].score > matches[j].score
	})
	if len(matches) > topK {
		matches = matches[:topK]
	}

	results := make([]*domain.KnowledgeEntry, len(matches))
	for i, m := range matches {
		results[i] = m.entry
	}
	return results
}

// ConversationContext renders the most recently added entries (up to
// maxArticles, default 3) as a briefing the assistant can speak from.
func (s *Store) ConversationContext(maxArticles int) string {
	if maxArticles <= 0 {
		maxArticles = 3
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.entries) == 0 {
		return "No articles have been loaded into the knowledge base yet."
	}

	recent := s.entries
	if len(recent) > maxArticles {
		recent = recent[len(recent)-maxArticles:]
	}

	parts := []string{"I have knowledge about the following articles:", ""}
	for i, e := range recent {
		title := e.Metadata.Title
		if title == "" {
			title = "Untitled Article"
		}
		parts = append(parts,
			fmt.Sprintf("%d. %s", i+1, title),
			"   Summary: "+e.Summary,
			"   Topics: "+strings.Join(e.Topics, ", "),
			"")
	}
	parts = append(parts, "I can discuss any of these topics in detail based on the articles I've processed.")

	return strings.Join(parts, "\n")
}

// DetailedInfo renders the best-matching entry for a topic: intro line,
// summary, bulleted key points. The second return is false when nothing
// matches.
func (s *Store) DetailedInfo(topic string) (string, bool) {
	results := s.Search(topic, 1)
	if len(results) == 0 {
		return "", false
	}

	e := results[0]
	title := e.Metadata.Title
	if title == "" {
		title = "the article"
	}

	parts := []string{
		fmt.Sprintf("Based on '%s', here's what I know about %s:", title, topic),
		"",
		e.Summary,
		"",
		"Key points:",
	}
	for _, point := range e.KeyPoints {
		parts = append(parts, "• "+point)
	}

	return strings.Join(parts, "\n"), true
}

// Entries returns a snapshot of the store in insertion order.
func (s *Store) Entries() []*domain.KnowledgeEntry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*domain.KnowledgeEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Generation returns a counter that changes whenever the store is mutated.
// The autosaver compares it against the last saved generation to skip
// no-op writes.
func (s *Store) Generation() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// storeFile is the persisted document. Version 0 is the legacy bare entry
// array.
type storeFile struct {
	Version int                      `json:"version"`
	SavedAt time.Time                `json:"saved_at"`
	Entries []*domain.KnowledgeEntry `json:"entries"`
}

// SaveFile writes the whole store to path as one JSON document.
func (s *Store) SaveFile(path string) error {
	s.mu.RLock()
	doc := storeFile{Version: 1, SavedAt: time.Now(), Entries: s.entries}
	data, err := json.MarshalIndent(doc, "", "  ")
	s.mu.RUnlock()
	if err != nil {
		return &domain.PersistenceError{Path: path, Op: "save", Err: err}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return &domain.PersistenceError{Path: path, Op: "save", Err: err}
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return &domain.PersistenceError{Path: path, Op: "save", Err: err}
	}

	s.logger.Info("knowledge base saved", "path", path, "entries", len(doc.Entries))
	return nil
}

// LoadFile replaces the in-memory entries with the file's contents. This
// is a wholesale replace, not a merge.
func (s *Store) LoadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return &domain.PersistenceError{Path: path, Op: "load", Err: err}
	}

	entries, err := decodeStoreFile(data)
	if err != nil {
		return &domain.PersistenceError{Path: path, Op: "load", Err: err}
	}

	var maxID int64
	for _, e := range entries {
		if e.KeyPoints == nil {
			e.KeyPoints = []string{}
		}
		if e.Topics == nil {
			e.Topics = []string{}
		}
		if n, ok := parseEntryID(e.ID); ok && n > maxID {
			maxID = n
		}
	}

	s.mu.Lock()
	s.entries = entries
	s.gen++
	// keep future IDs past everything we just loaded
	if maxID > s.lastID {
		s.lastID = maxID
	}
	s.mu.Unlock()

	s.logger.Info("knowledge base loaded", "path", path, "entries", len(entries))
	return nil
}

func decodeStoreFile(data []byte) ([]*domain.KnowledgeEntry, error) {
	trimmed := bytes.TrimLeftFunc(data, unicode.IsSpace)
	if len(trimmed) > 0 && trimmed[0] == '[' {
		// legacy format: bare entry array, no envelope
		var entries []*domain.KnowledgeEntry
		if err := json.Unmarshal(data, &entries); err != nil {
			return nil, err
		}
		return entries, nil
	}

	var doc storeFile
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if doc.Version > 1 {
		return nil, fmt.Errorf("unsupported store version %d", doc.Version)
	}
	return doc.Entries, nil
}

// nextID returns a fresh timestamp-derived entry ID. Caller holds s.mu.
func (s *Store) nextID() string {
	n := time.Now().Unix()
	if n <= s.lastID {
		n = s.lastID + 1
	}
	s.lastID = n
	return fmt.Sprintf("article_%d", n)
}

// parseEntryID recovers the numeric part of an entry ID. Legacy stores
// used fractional timestamps like article_1724450000.123456.
func parseEntryID(id string) (int64, bool) {
	rest, ok := strings.CutPrefix(id, "article_")
	if !ok {
		return 0, false
	}
	if i := strings.IndexByte(rest, '.'); i >= 0 {
		rest = rest[:i]
	}
	n, err := strconv.ParseInt(rest, 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

package domain

import "time"

// ArticleRecord is the output of the content fetcher: cleaned body text plus
// whatever metadata the page exposed. Immutable once created; consumed
// exactly once by the knowledge store.
type ArticleRecord struct {
	Text          string `json:"text"`
	URL           string `json:"url"`
	Domain        string `json:"domain"`
	Title         string `json:"title,omitempty"`
	Author        string `json:"author,omitempty"`
	PublishedDate string `json:"published_date,omitempty"`
	WordCount     int    `json:"word_count"`
}

// EntryMetadata carries the source-article metadata into a knowledge entry.
type EntryMetadata struct {
	Title     string `json:"title"`
	Author    string `json:"author"`
	Date      string `json:"date"`
	URL       string `json:"url"`
	WordCount int    `json:"word_count"`
}

// KnowledgeEntry is one article's LLM-derived structured summary plus the
// original text and metadata. Entries are never mutated after creation.
type KnowledgeEntry struct {
	ID          string        `json:"id"`
	ProcessedAt time.Time     `json:"processed_at"`
	Summary     string        `json:"summary"`
	KeyPoints   []string      `json:"key_points"`
	Topics      []string      `json:"topics"`
	Context     string        `json:"context"`
	Metadata    EntryMetadata `json:"metadata"`
	FullText    string        `json:"full_text"`
}

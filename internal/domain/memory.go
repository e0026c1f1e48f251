package domain

import (
	"context"
	"time"
)

// ConversationStore handles persistent storage of conversations, their
// messages, and the article-ingestion audit log.
type ConversationStore interface {
	CreateConversation(ctx context.Context, conv Conversation) error
	GetConversation(ctx context.Context, id string) (*Conversation, error)
	UpdateConversation(ctx context.Context, conv Conversation) error
	ListConversations(ctx context.Context, limit int) ([]Conversation, error)
	DeleteConversation(ctx context.Context, id string) error

	AddMessage(ctx context.Context, convID string, msg MessageRecord) error
	GetMessages(ctx context.Context, convID string, limit int) ([]MessageRecord, error)

	LogIngest(ctx context.Context, rec IngestRecord) error
	RecentIngests(ctx context.Context, limit int) ([]IngestRecord, error)

	Close() error
}

type Conversation struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Channel   string    `json:"channel"` // cli | telegram | voice
	Provider  string    `json:"provider"`
	Model     string    `json:"model"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type MessageRecord struct {
	ID             int64     `json:"id"`
	ConversationID string    `json:"conversation_id"`
	Role           string    `json:"role"`
	Content        string    `json:"content"`
	ToolCalls      string    `json:"tool_calls,omitempty"` // JSON-encoded []ToolCall
	ToolCallID     string    `json:"tool_call_id,omitempty"`
	ToolName       string    `json:"tool_name,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

// Ingest status values recorded in the audit log.
const (
	IngestStatusOK            = "ok"
	IngestStatusFetchFailed   = "fetch_failed"
	IngestStatusExtractFailed = "extract_failed"
)

// IngestRecord audits one fetch+process attempt, successful or not.
type IngestRecord struct {
	ID        int64     `json:"id"`
	URL       string    `json:"url"`
	Status    string    `json:"status"` // ok | fetch_failed | extract_failed
	EntryID   string    `json:"entry_id,omitempty"`
	Error     string    `json:"error,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

package agent

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"

	"artivox/internal/domain"
)

// SessionManager maps bus sessions onto stored conversations and tracks
// per-conversation token spend for the /usage command.
type SessionManager struct {
	store  domain.ConversationStore
	logger *slog.Logger
	mu     sync.RWMutex

	usageMu sync.RWMutex
	usage   map[string]int64 // convID -> tokens spent since process start
}

func NewSessionManager(store domain.ConversationStore, logger *slog.Logger) *SessionManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionManager{
		store:  store,
		logger: logger,
		usage:  make(map[string]int64),
	}
}

// AddTokenUsage accumulates tokens spent on a conversation. In-memory only;
// resets on restart.
func (sm *SessionManager) AddTokenUsage(convID string, tokens int) {
	if tokens <= 0 {
		return
	}
	sm.usageMu.Lock()
	sm.usage[convID] += int64(tokens)
	sm.usageMu.Unlock()
}

// GetTokenUsage returns the tokens spent on a conversation so far.
func (sm *SessionManager) GetTokenUsage(convID string) int64 {
	sm.usageMu.RLock()
	defer sm.usageMu.RUnlock()
	return sm.usage[convID]
}

// GetOrCreateConversation returns the conversation ID for a session key,
// creating the conversation on first contact.
func (sm *SessionManager) GetOrCreateConversation(ctx context.Context, sessionKey, channel, provider, model string) (string, error) {
	// Fast path: read lock (most calls hit here)
	sm.mu.RLock()
	conv, err := sm.store.GetConversation(ctx, sessionKey)
	sm.mu.RUnlock()
	if err != nil {
		return "", err
	}
	if conv != nil {
		return conv.ID, nil
	}

	// Slow path: write lock, double-check
	sm.mu.Lock()
	defer sm.mu.Unlock()

	conv, err = sm.store.GetConversation(ctx, sessionKey)
	if err != nil {
		return "", err
	}
	if conv != nil {
		return conv.ID, nil
	}

	newConv := domain.Conversation{
		ID:       sessionKey,
		Title:    "New conversation",
		Channel:  channel,
		Provider: provider,
		Model:    model,
	}
	if err := sm.store.CreateConversation(ctx, newConv); err != nil {
		return "", err
	}

	sm.logger.Info("created new conversation",
		"session", sessionKey,
		"channel", channel,
		"provider", provider,
	)

	return sessionKey, nil
}

// GetHistory loads recent messages for a conversation, decoding persisted
// tool calls back into their structured form.
func (sm *SessionManager) GetHistory(ctx context.Context, convID string, limit int) ([]domain.Message, error) {
	records, err := sm.store.GetMessages(ctx, convID, limit)
	if err != nil {
		return nil, err
	}

	messages := make([]domain.Message, 0, len(records))
	for _, r := range records {
		msg := domain.Message{
			Role:       r.Role,
			Content:    r.Content,
			ToolCallID: r.ToolCallID,
			ToolName:   r.ToolName,
		}

		if r.ToolCalls != "" {
			var toolCalls []domain.ToolCall
			if err := json.Unmarshal([]byte(r.ToolCalls), &toolCalls); err == nil {
				msg.ToolCalls = toolCalls
			}
		}

		messages = append(messages, msg)
	}

	return messages, nil
}

// UpdateTitle sets the conversation title from the first user message,
// unless a title was already assigned.
func (sm *SessionManager) UpdateTitle(ctx context.Context, convID string, firstUserMsg string) {
	conv, err := sm.store.GetConversation(ctx, convID)
	if err != nil || conv == nil {
		return
	}
	if conv.Title != "" && conv.Title != "New conversation" {
		return
	}
	conv.Title = generateTitle(firstUserMsg)
	if err := sm.store.UpdateConversation(ctx, *conv); err != nil {
		sm.logger.Warn("failed to update conversation title", "convID", convID, "err", err)
	}
}

func generateTitle(msg string) string {
	msg = strings.TrimSpace(msg)
	if msg == "" {
		return "New conversation"
	}
	if idx := strings.IndexAny(msg, "\n\r"); idx > 0 {
		msg = msg[:idx]
	}
	if len(msg) > 60 {
		cut := strings.LastIndex(msg[:60], " ")
		if cut < 20 {
			cut = 60
		}
		msg = msg[:cut] + "..."
	}
	return msg
}

// ClearSession deletes a conversation and its messages, starting fresh.
func (sm *SessionManager) ClearSession(sessionKey string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ctx := context.Background()
	if err := sm.store.DeleteConversation(ctx, sessionKey); err != nil {
		sm.logger.Warn("failed to clear session", "session", sessionKey, "err", err)
	} else {
		sm.logger.Info("session cleared", "session", sessionKey)
	}

	sm.usageMu.Lock()
	delete(sm.usage, sessionKey)
	sm.usageMu.Unlock()
}

// SaveMessage persists one message, encoding any tool calls as JSON.
func (sm *SessionManager) SaveMessage(ctx context.Context, convID string, msg domain.Message) error {
	record := domain.MessageRecord{
		ConversationID: convID,
		Role:           msg.Role,
		Content:        msg.Content,
		ToolCallID:     msg.ToolCallID,
		ToolName:       msg.ToolName,
	}

	if len(msg.ToolCalls) > 0 {
		data, err := json.Marshal(msg.ToolCalls)
		if err == nil {
			record.ToolCalls = string(data)
		}
	}

	return sm.store.AddMessage(ctx, convID, record)
}

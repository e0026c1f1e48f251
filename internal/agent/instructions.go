package agent

import (
	"sync"
	"time"

	"artivox/internal/domain"
)

const instructionsCacheTTL = 60 * time.Second

// contextArticles is how many recent articles the instructions brief on.
const contextArticles = 3

// Greeting opens every session. The CLI prints it on start, Telegram sends
// it on /start, and voice sessions speak it right after the WebSocket
// handshake.
const Greeting = "Hello! I'm your AI assistant with knowledge about the articles you've provided. " +
	"Feel free to ask me questions about them or request specific information. " +
	"What would you like to know?"

const baseInstructions = "You are a helpful voice assistant with knowledge about specific articles. " +
	"You can discuss the content of these articles, answer questions about them, and provide " +
	"insights based on the information you have. Be conversational, friendly, and informative."

// ContextSource is the slice of the knowledge store the instruction builder
// reads: a spoken briefing of recent articles plus the entry count, which
// drives cache invalidation after a mid-conversation add_article.
type ContextSource interface {
	ConversationContext(maxArticles int) string
	Len() int
}

type cachedInstructions struct {
	content   string
	entries   int
	expiresAt time.Time
}

// InstructionBuilder renders the system instructions for each session.
// Rendering walks the knowledge store, so results are cached for a minute
// per session and dropped early when the entry count changes.
type InstructionBuilder struct {
	source ContextSource
	extra  string // custom text appended to the instructions

	cache sync.Map // sessionKey -> *cachedInstructions
}

func NewInstructionBuilder(source ContextSource, extra string) *InstructionBuilder {
	b := &InstructionBuilder{source: source, extra: extra}
	// Periodic cleanup of expired cache entries to prevent unbounded growth.
	go b.cleanupLoop()
	return b
}

// cleanupLoop evicts expired cache entries every 2 minutes.
func (b *InstructionBuilder) cleanupLoop() {
	ticker := time.NewTicker(2 * time.Minute)
	defer ticker.Stop()
	for range ticker.C {
		now := time.Now()
		b.cache.Range(func(key, value any) bool {
			if c, ok := value.(*cachedInstructions); ok && now.After(c.expiresAt) {
				b.cache.Delete(key)
			}
			return true
		})
	}
}

// Build returns the system instructions for a session: the assistant
// identity followed by the current knowledge-base briefing.
func (b *InstructionBuilder) Build(sessionKey string) string {
	entries := b.source.Len()
	if v, ok := b.cache.Load(sessionKey); ok {
		if c, ok := v.(*cachedInstructions); ok && c.entries == entries && time.Now().Before(c.expiresAt) {
			return c.content
		}
	}

	content := baseInstructions + "\n\n" + b.source.ConversationContext(contextArticles)
	if b.extra != "" {
		content += "\n\n" + b.extra
	}

	b.cache.Store(sessionKey, &cachedInstructions{
		content:   content,
		entries:   entries,
		expiresAt: time.Now().Add(instructionsCacheTTL),
	})
	return content
}

// BuildMessages assembles [instructions + history + user message] for one
// LLM call.
func (b *InstructionBuilder) BuildMessages(history []domain.Message, currentMessage, sessionKey string) []domain.Message {
	messages := make([]domain.Message, 0, len(history)+2)
	messages = append(messages, domain.Message{Role: "system", Content: b.Build(sessionKey)})

	for _, m := range history {
		msg := domain.Message{
			Role:    m.Role,
			Content: m.Content,
		}
		if m.ToolCallID != "" {
			msg.ToolCallID = m.ToolCallID
			msg.ToolName = m.ToolName
		}
		if len(m.ToolCalls) > 0 {
			msg.ToolCalls = m.ToolCalls
		}
		messages = append(messages, msg)
	}

	return append(messages, domain.Message{Role: "user", Content: currentMessage})
}

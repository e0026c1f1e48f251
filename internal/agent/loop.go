package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"artivox/internal/domain"
	"artivox/internal/metrics"
	"artivox/internal/tool"
)

const (
	defaultMaxIterations = 10
	defaultHistoryLimit  = 50
	defaultLLMMaxTokens  = 4096
	defaultTemperature   = 0.7
	defaultConcurrency   = 3
	defaultRateBurst     = 5
	defaultRatePerMinute = 30.0
)

// KnowledgeAdmin is the slice of the knowledge store the slash commands
// need: persistence plus a size readout.
type KnowledgeAdmin interface {
	SaveFile(path string) error
	LoadFile(path string) error
	Len() int
}

// Loop is the conversation engine: receive message, call the LLM, execute
// requested tools, repeat until the model answers in plain text.
type Loop struct {
	provider      domain.Provider
	sessions      *SessionManager
	instructions  *InstructionBuilder
	tools         *tool.Registry
	knowledge     KnowledgeAdmin
	bus           domain.MessageBus
	compactor     *Compactor
	rateLimiter   *RateLimiter
	logger        *slog.Logger
	maxIterations int
	concurrency   int
	historyLimit  int
	knowledgeFile string
}

// LoopConfig holds all dependencies and tuning parameters for the loop.
type LoopConfig struct {
	Provider      domain.Provider
	Sessions      *SessionManager
	Instructions  *InstructionBuilder
	Tools         *tool.Registry
	Knowledge     KnowledgeAdmin // optional: backs /save, /load, /status
	Bus           domain.MessageBus
	Compactor     *Compactor   // optional: context compaction
	RateLimiter   *RateLimiter // optional: defaults to 5 burst, 30/min
	Logger        *slog.Logger
	MaxIterations int
	Concurrency   int    // max concurrently processed messages
	HistoryLimit  int    // messages of history loaded per turn
	KnowledgeFile string // default path for /save and /load
}

// NewLoop creates a new conversation loop with the given configuration.
func NewLoop(cfg LoopConfig) *Loop {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = defaultMaxIterations
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.RateLimiter == nil {
		cfg.RateLimiter = NewRateLimiter(defaultRateBurst, defaultRatePerMinute)
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = defaultHistoryLimit
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Loop{
		provider:      cfg.Provider,
		sessions:      cfg.Sessions,
		instructions:  cfg.Instructions,
		tools:         cfg.Tools,
		knowledge:     cfg.Knowledge,
		bus:           cfg.Bus,
		compactor:     cfg.Compactor,
		rateLimiter:   cfg.RateLimiter,
		logger:        cfg.Logger,
		maxIterations: cfg.MaxIterations,
		concurrency:   cfg.Concurrency,
		historyLimit:  cfg.HistoryLimit,
		knowledgeFile: cfg.KnowledgeFile,
	}
}

// Run consumes inbound messages and processes them with bounded concurrency.
func (l *Loop) Run(ctx context.Context) {
	l.logger.Info("agent loop started", "concurrency", l.concurrency)

	sem := make(chan struct{}, l.concurrency)
	inbound := l.bus.Subscribe()

	for {
		select {
		case <-ctx.Done():
			l.logger.Info("agent loop stopping")
			return
		case msg, ok := <-inbound:
			if !ok {
				l.logger.Info("inbound channel closed, agent loop stopping")
				return
			}
			sem <- struct{}{}
			go func(m domain.InboundMessage) {
				defer func() { <-sem }()
				l.processMessage(ctx, m)
			}(msg)
		}
	}
}

// ProcessDirect processes a message synchronously and returns the response.
// Used by the CLI and the ask command, which need a blocking reply.
func (l *Loop) ProcessDirect(ctx context.Context, content, channel, chatID string) (string, error) {
	return l.handleMessage(ctx, domain.InboundMessage{
		Channel:   channel,
		ChatID:    chatID,
		SenderID:  "user",
		Content:   content,
		Timestamp: time.Now(),
	})
}

// processMessage handles one inbound message and sends the reply back
// through the message bus. Failures become a spoken apology, not a crash.
func (l *Loop) processMessage(ctx context.Context, msg domain.InboundMessage) {
	l.logger.Info("processing message",
		"channel", msg.Channel,
		"sender", msg.SenderID,
		"content_len", len(msg.Content),
	)

	response, err := l.handleMessage(ctx, msg)
	if err != nil {
		l.logger.Error("message processing failed", "error", err)
		response = fmt.Sprintf("Sorry, I encountered an error: %s", err.Error())
	}

	l.bus.SendOutbound(domain.OutboundMessage{
		Channel: msg.Channel,
		ChatID:  msg.ChatID,
		Content: response,
		Format:  "markdown",
		Final:   true,
	})
}

// handleMessage is the main agent logic: build prompt, call the LLM, loop
// on tool calls, return the final text.
func (l *Loop) handleMessage(ctx context.Context, msg domain.InboundMessage) (string, error) {
	sessionKey := fmt.Sprintf("%s:%s", msg.Channel, msg.ChatID)

	// Slash commands short-circuit the LLM entirely.
	if cmd := ParseCommand(msg.Content); cmd != nil {
		if res := l.HandleCommand(ctx, cmd, msg); res.Handled {
			return res.Response, nil
		}
	}

	convID, err := l.sessions.GetOrCreateConversation(ctx, sessionKey, msg.Channel, l.provider.Name(), "")
	if err != nil {
		return "", fmt.Errorf("session error: %w", err)
	}

	history, err := l.sessions.GetHistory(ctx, convID, l.historyLimit)
	if err != nil {
		l.logger.Warn("failed to load history, continuing without it", "error", err)
		history = nil
	}

	messages := l.instructions.BuildMessages(history, msg.Content, sessionKey)
	if l.compactor != nil {
		messages = l.compactor.Compact(ctx, messages)
	}

	var toolDefs []domain.ToolDefinition
	if l.tools != nil {
		toolDefs = l.tools.GetDefinitions()
	}

	metrics.QuestionsTotal.Inc()

	// Main agent loop: call LLM, execute tools if requested, repeat.
	var finalContent string
	for iteration := 0; iteration < l.maxIterations; iteration++ {
		l.logger.Debug("agent iteration", "iteration", iteration+1, "messages", len(messages))

		if err := l.rateLimiter.Wait(ctx); err != nil {
			return "", fmt.Errorf("rate limit: %w", err)
		}

		startTime := time.Now()
		resp, chatErr := l.provider.Chat(ctx, domain.ChatRequest{
			Messages:    messages,
			Tools:       toolDefs,
			MaxTokens:   defaultLLMMaxTokens,
			Temperature: defaultTemperature,
		})
		if chatErr != nil {
			return "", fmt.Errorf("LLM error: %w", chatErr)
		}
		metrics.LLMLatency.Observe(time.Since(startTime).Seconds())
		l.sessions.AddTokenUsage(convID, resp.Usage.TotalTokens)

		// Fallback: some smaller models embed tool calls as JSON in the content field.
		if !resp.HasToolCalls() && resp.Content != "" {
			if extracted := extractToolCallsFromContent(resp.Content); len(extracted) > 0 {
				resp.ToolCalls = extracted
				resp.Content = ""
				l.logger.Info("extracted tool calls from content text", "count", len(extracted))
			}
		}

		// No tool calls — we have our final answer.
		if !resp.HasToolCalls() {
			finalContent = stripRolePrefix(resp.Content)
			break
		}

		// Append assistant message with tool calls to the conversation.
		messages = append(messages, domain.Message{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		// Execute tool calls in order. add_article mutates the knowledge
		// store, so later calls in the same round must see its effect.
		for _, tc := range resp.ToolCalls {
			result, toolErr := l.executeTool(ctx, tc)
			if toolErr != nil {
				result = fmt.Sprintf("Error executing tool %s: %s", tc.Name, toolErr.Error())
			}
			messages = append(messages, domain.Message{
				Role:       "tool",
				Content:    result,
				ToolCallID: tc.ID,
				ToolName:   tc.Name,
			})
		}
	}

	if finalContent == "" {
		finalContent = "I've completed processing but have no additional response."
	}

	// Persist conversation history.
	if err := l.sessions.SaveMessage(ctx, convID, domain.Message{Role: "user", Content: msg.Content}); err != nil {
		l.logger.Warn("failed to save user message", "error", err, "convID", convID)
	}
	if err := l.sessions.SaveMessage(ctx, convID, domain.Message{Role: "assistant", Content: finalContent}); err != nil {
		l.logger.Warn("failed to save assistant message", "error", err, "convID", convID)
	}

	// Auto-generate title from the first user message.
	if len(history) == 0 {
		l.sessions.UpdateTitle(ctx, convID, msg.Content)
	}

	return finalContent, nil
}

// executeTool runs a single tool call through the registry.
func (l *Loop) executeTool(ctx context.Context, tc domain.ToolCall) (string, error) {
	l.logger.Info("executing tool", "tool", tc.Name)
	metrics.ToolCalls(tc.Name).Inc()

	if l.tools == nil {
		return "", fmt.Errorf("tool registry not initialized")
	}

	if l.logger.Enabled(ctx, slog.LevelDebug) {
		if argsJSON, err := json.Marshal(tc.Arguments); err == nil {
			l.logger.Debug("tool arguments", "tool", tc.Name, "args", string(argsJSON))
		}
	}

	result, err := l.tools.Execute(ctx, tc.Name, tc.Arguments)
	if err != nil {
		return "", err
	}

	l.logger.Debug("tool completed", "tool", tc.Name, "result_len", len(result))
	return result, nil
}

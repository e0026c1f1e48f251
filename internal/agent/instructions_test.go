package agent

import (
	"strings"
	"testing"

	"artivox/internal/domain"
)

func TestInstructionBuilder_Build(t *testing.T) {
	src := &staticContext{context: "Articles in the knowledge base:\n1. 'Go 1.22' (https://example.com)", entries: 1}
	b := NewInstructionBuilder(src, "")

	got := b.Build("cli:local")
	if !strings.HasPrefix(got, baseInstructions) {
		t.Fatalf("instructions should start with the assistant identity, got %q", got)
	}
	if !strings.Contains(got, "Go 1.22") {
		t.Fatalf("instructions missing knowledge context: %q", got)
	}
}

func TestInstructionBuilder_CachesPerSession(t *testing.T) {
	src := &staticContext{context: "first briefing", entries: 2}
	b := NewInstructionBuilder(src, "")

	first := b.Build("cli:local")

	// Same entry count within the TTL: the cached briefing is reused even
	// though the underlying text changed.
	src.context = "second briefing"
	second := b.Build("cli:local")
	if second != first {
		t.Fatalf("expected cached instructions, got rebuild:\n%q\n%q", second, first)
	}

	// A different session is built fresh.
	other := b.Build("telegram:42")
	if !strings.Contains(other, "second briefing") {
		t.Fatalf("new session should rebuild, got %q", other)
	}
}

func TestInstructionBuilder_RebuildsWhenArticlesChange(t *testing.T) {
	src := &staticContext{context: "one article", entries: 1}
	b := NewInstructionBuilder(src, "")

	first := b.Build("cli:local")
	if !strings.Contains(first, "one article") {
		t.Fatalf("unexpected first build %q", first)
	}

	// An article was added mid-conversation: entry count changes, cache
	// must not serve the stale briefing.
	src.context = "two articles"
	src.entries = 2
	second := b.Build("cli:local")
	if !strings.Contains(second, "two articles") {
		t.Fatalf("expected rebuild after entry count change, got %q", second)
	}
}

func TestInstructionBuilder_ExtraAppended(t *testing.T) {
	src := &staticContext{context: "briefing"}
	b := NewInstructionBuilder(src, "Always answer in one short paragraph.")

	got := b.Build("cli:local")
	if !strings.HasSuffix(got, "Always answer in one short paragraph.") {
		t.Fatalf("extra instructions not appended: %q", got)
	}
}

func TestBuildMessages_Shape(t *testing.T) {
	src := &staticContext{context: "briefing", entries: 1}
	b := NewInstructionBuilder(src, "")

	history := []domain.Message{
		{Role: "user", Content: "earlier question"},
		{Role: "assistant", ToolCalls: []domain.ToolCall{{ID: "c1", Name: "search_knowledge"}}},
		{Role: "tool", Content: "result", ToolCallID: "c1", ToolName: "search_knowledge"},
		{Role: "assistant", Content: "earlier answer"},
	}

	msgs := b.BuildMessages(history, "new question", "cli:local")
	if len(msgs) != len(history)+2 {
		t.Fatalf("expected %d messages, got %d", len(history)+2, len(msgs))
	}
	if msgs[0].Role != "system" || msgs[0].Content != b.Build("cli:local") {
		t.Fatalf("first message should be the system instructions: %+v", msgs[0])
	}
	if len(msgs[2].ToolCalls) != 1 || msgs[2].ToolCalls[0].ID != "c1" {
		t.Fatalf("history tool calls dropped: %+v", msgs[2])
	}
	if msgs[3].ToolCallID != "c1" || msgs[3].ToolName != "search_knowledge" {
		t.Fatalf("tool result fields dropped: %+v", msgs[3])
	}
	last := msgs[len(msgs)-1]
	if last.Role != "user" || last.Content != "new question" {
		t.Fatalf("last message should be the current user turn: %+v", last)
	}
}

func TestGreeting_SpokenOpening(t *testing.T) {
	if !strings.HasPrefix(Greeting, "Hello!") {
		t.Fatalf("greeting should open with a hello: %q", Greeting)
	}
	if !strings.Contains(Greeting, "articles") {
		t.Fatalf("greeting should mention articles: %q", Greeting)
	}
	if !strings.HasSuffix(Greeting, "What would you like to know?") {
		t.Fatalf("greeting should end with the invitation: %q", Greeting)
	}
}

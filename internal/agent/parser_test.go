package agent

import "testing"

// --- extractToolCallsFromContent ---

func TestExtractToolCalls_SingleObject(t *testing.T) {
	input := `{"name": "search_knowledge", "arguments": {"query": "rate limits"}}`
	calls := extractToolCallsFromContent(input)
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	if calls[0].Name != "search_knowledge" {
		t.Fatalf("expected 'search_knowledge', got %q", calls[0].Name)
	}
	if calls[0].Arguments["query"] != "rate limits" {
		t.Fatalf("expected 'rate limits', got %v", calls[0].Arguments["query"])
	}
}

func TestExtractToolCalls_ParametersField(t *testing.T) {
	input := `{"name": "get_detailed_info", "parameters": {"topic": "deployment"}}`
	calls := extractToolCallsFromContent(input)
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	if calls[0].Arguments["topic"] != "deployment" {
		t.Fatalf("expected topic, got %v", calls[0].Arguments)
	}
}

func TestExtractToolCalls_Array(t *testing.T) {
	input := `[{"name": "search_knowledge", "arguments": {"query": "a"}}, {"name": "search_knowledge", "arguments": {"query": "b"}}]`
	calls := extractToolCallsFromContent(input)
	if len(calls) != 2 {
		t.Fatalf("expected 2 calls, got %d", len(calls))
	}
}

func TestExtractToolCalls_CodeFenceWrapped(t *testing.T) {
	input := "```json\n{\"name\": \"list_articles\", \"arguments\": {}}\n```"
	calls := extractToolCallsFromContent(input)
	if len(calls) != 1 {
		t.Fatalf("expected 1 call from code fence, got %d", len(calls))
	}
	if calls[0].Name != "list_articles" {
		t.Fatalf("expected 'list_articles', got %q", calls[0].Name)
	}
}

func TestExtractToolCalls_PrefixedText(t *testing.T) {
	input := "assistant\n{\"name\": \"list_articles\", \"arguments\": {}}"
	calls := extractToolCallsFromContent(input)
	if len(calls) != 1 {
		t.Fatalf("expected 1 call after prefix text, got %d", len(calls))
	}
	if calls[0].Name != "list_articles" {
		t.Fatalf("expected 'list_articles', got %q", calls[0].Name)
	}
}

func TestExtractToolCalls_SuffixedText(t *testing.T) {
	input := "{\"name\": \"add_article\", \"arguments\": {\"url\": \"https://example.com/post\"}}\n\nLet me fetch that for you."
	calls := extractToolCallsFromContent(input)
	if len(calls) != 1 {
		t.Fatalf("expected 1 call before suffix text, got %d", len(calls))
	}
	if calls[0].Arguments["url"] != "https://example.com/post" {
		t.Fatalf("expected url argument, got %v", calls[0].Arguments)
	}
}

func TestExtractToolCalls_PlainText(t *testing.T) {
	input := "Sure, let me help you with that!"
	calls := extractToolCallsFromContent(input)
	if len(calls) != 0 {
		t.Fatalf("expected 0 calls for plain text, got %d", len(calls))
	}
}

func TestExtractToolCalls_EmptyName(t *testing.T) {
	input := `{"name": "", "arguments": {}}`
	calls := extractToolCallsFromContent(input)
	if len(calls) != 0 {
		t.Fatalf("expected 0 calls for empty name, got %d", len(calls))
	}
}

func TestExtractToolCalls_EmptyString(t *testing.T) {
	calls := extractToolCallsFromContent("")
	if len(calls) != 0 {
		t.Fatalf("expected 0 calls for empty input, got %d", len(calls))
	}
}

func TestExtractToolCalls_NilArguments(t *testing.T) {
	input := `{"name": "list_articles"}`
	calls := extractToolCallsFromContent(input)
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	if calls[0].Arguments == nil {
		t.Fatal("arguments should be initialized to empty map")
	}
}

func TestExtractToolCalls_AliasNormalized(t *testing.T) {
	input := `{"name": "fetch_article", "arguments": {"url": "https://example.com"}}`
	calls := extractToolCallsFromContent(input)
	if len(calls) != 1 {
		t.Fatalf("expected 1 call, got %d", len(calls))
	}
	if calls[0].Name != "add_article" {
		t.Fatalf("alias not normalized, got %q", calls[0].Name)
	}
}

func TestExtractToolCalls_WithInvalidEscapes(t *testing.T) {
	// Simulates an LLM returning JSON with \% inside
	input := `{"name": "search_knowledge", "arguments": {"query": "growth of 100\%"}}`
	calls := extractToolCallsFromContent(input)
	if len(calls) != 1 {
		t.Fatalf("expected 1 call after sanitization, got %d", len(calls))
	}
	if calls[0].Name != "search_knowledge" {
		t.Fatalf("expected 'search_knowledge', got %q", calls[0].Name)
	}
}

// --- normalizeToolName ---

func TestNormalizeToolName(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"searchknowledge", "search_knowledge"},
		{"search-knowledge", "search_knowledge"},
		{"search_knowledge_base", "search_knowledge"},
		{"SearchKnowledge", "search_knowledge"},
		{"getdetailedinfo", "get_detailed_info"},
		{"get_detailed_information", "get_detailed_info"},
		{"listarticles", "list_articles"},
		{"list-articles", "list_articles"},
		{"addarticle", "add_article"},
		{"fetch_article", "add_article"},
		{"search_knowledge", "search_knowledge"},
		{"something_else", "something_else"},
	}
	for _, tt := range tests {
		if got := normalizeToolName(tt.in); got != tt.want {
			t.Errorf("normalizeToolName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// --- stripRolePrefix ---

func TestStripRolePrefix(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"assistant\nHello there", "Hello there"},
		{"Assistant\nHello", "Hello"},
		{"assistant:\nHi", "Hi"},
		{"Assistant: Hi there", "Hi there"},
		{"Hello, no prefix here", "Hello, no prefix here"},
		{"The assistant: a role in dialogue", "The assistant: a role in dialogue"},
	}
	for _, tt := range tests {
		if got := stripRolePrefix(tt.in); got != tt.want {
			t.Errorf("stripRolePrefix(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

// --- sanitizeJSONEscapes ---

func TestSanitizeJSONEscapes_ValidJSON(t *testing.T) {
	input := `{"key": "value with \"quotes\" and \\backslash"}`
	result := sanitizeJSONEscapes(input)
	if result != input {
		t.Fatalf("valid JSON should not change:\n  got:  %q\n  want: %q", result, input)
	}
}

func TestSanitizeJSONEscapes_InvalidEscape(t *testing.T) {
	// \% is not a valid JSON escape, so the backslash is dropped
	input := `{"key": "100\% done"}`
	result := sanitizeJSONEscapes(input)
	expected := `{"key": "100% done"}`
	if result != expected {
		t.Fatalf("expected %q, got %q", expected, result)
	}
}

func TestSanitizeJSONEscapes_MultipleInvalid(t *testing.T) {
	input := `{"msg": "Hello \World \! \?"}`
	result := sanitizeJSONEscapes(input)
	expected := `{"msg": "Hello World ! ?"}`
	if result != expected {
		t.Fatalf("expected %q, got %q", expected, result)
	}
}

func TestSanitizeJSONEscapes_PreservesValidEscapes(t *testing.T) {
	input := `{"text": "line1\nline2\ttab"}`
	result := sanitizeJSONEscapes(input)
	if result != input {
		t.Fatalf("valid escapes should be preserved: got %q", result)
	}
}

func TestSanitizeJSONEscapes_EmptyString(t *testing.T) {
	result := sanitizeJSONEscapes("")
	if result != "" {
		t.Fatalf("expected empty, got %q", result)
	}
}

func TestSanitizeJSONEscapes_NoStrings(t *testing.T) {
	input := `{}`
	result := sanitizeJSONEscapes(input)
	if result != input {
		t.Fatalf("expected unchanged, got %q", result)
	}
}

// --- coalesce ---

func TestCoalesce_FirstNonNil(t *testing.T) {
	a := map[string]any{"key": "a"}
	b := map[string]any{"key": "b"}
	result := coalesce(a, b)
	if result["key"] != "a" {
		t.Fatalf("expected 'a', got %v", result["key"])
	}
}

func TestCoalesce_SecondWhenFirstNil(t *testing.T) {
	b := map[string]any{"key": "b"}
	result := coalesce(nil, b)
	if result["key"] != "b" {
		t.Fatalf("expected 'b', got %v", result["key"])
	}
}

func TestCoalesce_BothNil(t *testing.T) {
	result := coalesce(nil, nil)
	if result == nil {
		t.Fatal("expected empty map, got nil")
	}
	if len(result) != 0 {
		t.Fatalf("expected empty map, got %v", result)
	}
}

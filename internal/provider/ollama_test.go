package provider

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"artivox/internal/domain"
)

const ollamaReply = `{
	"message": {"role": "assistant", "content": "hi from ollama"},
	"done": true,
	"done_reason": "stop",
	"prompt_eval_count": 12,
	"eval_count": 4
}`

func TestOllama_Chat_RequestShape(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		json.NewDecoder(r.Body).Decode(&captured)
		w.Write([]byte(ollamaReply))
	}))
	defer srv.Close()

	p := NewOllama(OllamaConfig{APIBase: srv.URL, Model: "llama3.1:8b", Logger: testLogger()})
	resp, err := p.Chat(context.Background(), domain.ChatRequest{
		Temperature:    0.3,
		MaxTokens:      256,
		ResponseFormat: "json_object",
		Messages:       []domain.Message{{Role: "user", Content: "hello"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if captured["model"] != "llama3.1:8b" {
		t.Errorf("model = %v", captured["model"])
	}
	if captured["stream"] != false {
		t.Errorf("stream = %v", captured["stream"])
	}
	if captured["format"] != "json" {
		t.Errorf("format = %v", captured["format"])
	}
	opts, _ := captured["options"].(map[string]any)
	if opts["temperature"] != 0.3 {
		t.Errorf("options.temperature = %v", opts["temperature"])
	}
	if opts["num_predict"] != float64(256) {
		t.Errorf("options.num_predict = %v", opts["num_predict"])
	}
	if resp.Content != "hi from ollama" {
		t.Errorf("content = %q", resp.Content)
	}
	if resp.Usage.TotalTokens != 16 {
		t.Errorf("total tokens = %d", resp.Usage.TotalTokens)
	}
}

func TestOllama_Chat_OmitsOptionsWhenUnset(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&captured)
		w.Write([]byte(ollamaReply))
	}))
	defer srv.Close()

	p := NewOllama(OllamaConfig{APIBase: srv.URL, Logger: testLogger()})
	_, err := p.Chat(context.Background(), domain.ChatRequest{
		Messages: []domain.Message{{Role: "user", Content: "hello"}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, present := captured["options"]; present {
		t.Error("options should be omitted when no knobs are set")
	}
	if _, present := captured["format"]; present {
		t.Error("format should be omitted without a response format")
	}
}

// Ollama models return tool arguments either as a JSON object or as a
// string-encoded JSON object. Both must decode to the same map.
func TestOllama_Chat_ToolArgumentsObjectOrString(t *testing.T) {
	cases := []struct {
		name string
		body string
	}{
		{
			name: "object",
			body: `{"message": {"role": "assistant", "tool_calls": [
				{"id": "c1", "type": "function", "function": {"name": "search_knowledge", "arguments": {"query": "go"}}}
			]}, "done": true}`,
		},
		{
			name: "string",
			body: `{"message": {"role": "assistant", "tool_calls": [
				{"id": "c1", "type": "function", "function": {"name": "search_knowledge", "arguments": "{\"query\": \"go\"}"}}
			]}, "done": true}`,
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			p := NewOllama(OllamaConfig{APIBase: srv.URL, Logger: testLogger()})
			resp, err := p.Chat(context.Background(), domain.ChatRequest{
				Messages: []domain.Message{{Role: "user", Content: "x"}},
			})
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(resp.ToolCalls) != 1 {
				t.Fatalf("expected 1 tool call, got %d", len(resp.ToolCalls))
			}
			if resp.ToolCalls[0].Arguments["query"] != "go" {
				t.Errorf("arguments = %v", resp.ToolCalls[0].Arguments)
			}
			if resp.FinishReason != "tool_calls" {
				t.Errorf("finish reason = %q", resp.FinishReason)
			}
		})
	}
}

func TestOllama_Healthy(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		w.Write([]byte(`{"models": []}`))
	}))
	defer srv.Close()

	p := NewOllama(OllamaConfig{APIBase: srv.URL, Logger: testLogger()})
	if err := p.Healthy(context.Background()); err != nil {
		t.Fatalf("expected healthy, got: %v", err)
	}
}

func TestOllama_Healthy_Unreachable(t *testing.T) {
	p := NewOllama(OllamaConfig{APIBase: "http://127.0.0.1:1", Logger: testLogger()})
	if err := p.Healthy(context.Background()); err == nil {
		t.Fatal("expected error for unreachable server")
	}
}

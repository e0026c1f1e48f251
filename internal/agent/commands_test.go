package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"artivox/internal/domain"
	"artivox/internal/tool"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantNil  bool
		wantName string
		wantArgs []string
	}{
		{name: "plain text", input: "hello there", wantNil: true},
		{name: "empty", input: "", wantNil: true},
		{name: "bare command", input: "/help", wantName: "help"},
		{name: "uppercase normalized", input: "/HELP", wantName: "help"},
		{name: "with argument", input: "/add https://example.com/post", wantName: "add", wantArgs: []string{"https://example.com/post"}},
		{name: "leading whitespace", input: "  /new  ", wantName: "new"},
		{name: "multiple args", input: "/load /tmp/kb.json extra", wantName: "load", wantArgs: []string{"/tmp/kb.json", "extra"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd := ParseCommand(tt.input)
			if tt.wantNil {
				if cmd != nil {
					t.Fatalf("expected nil, got %+v", cmd)
				}
				return
			}
			if cmd == nil {
				t.Fatal("expected command, got nil")
			}
			if cmd.Name != tt.wantName {
				t.Errorf("name = %q, want %q", cmd.Name, tt.wantName)
			}
			if len(cmd.Args) != len(tt.wantArgs) {
				t.Fatalf("args = %v, want %v", cmd.Args, tt.wantArgs)
			}
			for i := range tt.wantArgs {
				if cmd.Args[i] != tt.wantArgs[i] {
					t.Errorf("args[%d] = %q, want %q", i, cmd.Args[i], tt.wantArgs[i])
				}
			}
		})
	}
}

// fakeKnowledgeAdmin implements KnowledgeAdmin for command tests.
type fakeKnowledgeAdmin struct {
	entries    int
	saveErr    error
	loadErr    error
	savedPath  string
	loadedPath string
}

func (f *fakeKnowledgeAdmin) SaveFile(path string) error {
	f.savedPath = path
	return f.saveErr
}

func (f *fakeKnowledgeAdmin) LoadFile(path string) error {
	f.loadedPath = path
	return f.loadErr
}

func (f *fakeKnowledgeAdmin) Len() int { return f.entries }

func testMsg() domain.InboundMessage {
	return domain.InboundMessage{Channel: "cli", ChatID: "local", SenderID: "user"}
}

func TestHandleCommand_Help(t *testing.T) {
	loop, _ := newTestLoop(t, &scriptedProvider{}, tool.NewRegistry(testLogger()))

	res := loop.HandleCommand(context.Background(), ParseCommand("/help"), testMsg())
	if !res.Handled {
		t.Fatal("help should be handled")
	}
	for _, want := range []string{"/articles", "/add", "/save", "/usage"} {
		if !strings.Contains(res.Response, want) {
			t.Errorf("help text missing %q", want)
		}
	}
}

func TestHandleCommand_Unknown(t *testing.T) {
	loop, _ := newTestLoop(t, &scriptedProvider{}, tool.NewRegistry(testLogger()))

	res := loop.HandleCommand(context.Background(), ParseCommand("/frobnicate"), testMsg())
	if res.Handled {
		t.Fatal("unknown command should fall through to the LLM")
	}
}

func TestHandleCommand_NewClearsConversation(t *testing.T) {
	loop, store := newTestLoop(t, &scriptedProvider{}, tool.NewRegistry(testLogger()))
	ctx := context.Background()

	loop.sessions.GetOrCreateConversation(ctx, "cli:local", "cli", "openai", "gpt-4o")
	loop.sessions.AddTokenUsage("cli:local", 99)

	res := loop.HandleCommand(ctx, ParseCommand("/new"), testMsg())
	if !res.Handled || res.Response != "Conversation cleared. Starting fresh." {
		t.Fatalf("unexpected result %+v", res)
	}

	conv, _ := store.GetConversation(ctx, "cli:local")
	if conv != nil {
		t.Fatal("conversation should be deleted")
	}
	if loop.sessions.GetTokenUsage("cli:local") != 0 {
		t.Fatal("token usage should be reset")
	}
}

func TestHandleCommand_Articles(t *testing.T) {
	list := &echoTool{name: "list_articles", reply: "1. 'Go 1.22 Released' (https://example.com)"}
	reg := tool.NewRegistry(testLogger())
	reg.Register(list)
	loop, _ := newTestLoop(t, &scriptedProvider{}, reg)

	res := loop.HandleCommand(context.Background(), ParseCommand("/articles"), testMsg())
	if !res.Handled {
		t.Fatal("articles should be handled")
	}
	if res.Response != "1. 'Go 1.22 Released' (https://example.com)" {
		t.Fatalf("unexpected response %q", res.Response)
	}
	if len(list.gotArgs) != 1 {
		t.Fatalf("list_articles not executed")
	}
}

func TestHandleCommand_AddRequiresURL(t *testing.T) {
	add := &echoTool{name: "add_article", reply: "Added 'Some Post'."}
	reg := tool.NewRegistry(testLogger())
	reg.Register(add)
	loop, _ := newTestLoop(t, &scriptedProvider{}, reg)
	ctx := context.Background()

	res := loop.HandleCommand(ctx, ParseCommand("/add"), testMsg())
	if res.Response != "Usage: /add <url>" {
		t.Fatalf("expected usage hint, got %q", res.Response)
	}
	if len(add.gotArgs) != 0 {
		t.Fatal("tool should not run without a URL")
	}

	res = loop.HandleCommand(ctx, ParseCommand("/add https://example.com/post"), testMsg())
	if res.Response != "Added 'Some Post'." {
		t.Fatalf("unexpected response %q", res.Response)
	}
	if len(add.gotArgs) != 1 || add.gotArgs[0]["url"] != "https://example.com/post" {
		t.Fatalf("tool saw wrong args %+v", add.gotArgs)
	}
}

func TestHandleCommand_ToolFailure(t *testing.T) {
	broken := &echoTool{name: "list_articles", err: errors.New("store offline")}
	reg := tool.NewRegistry(testLogger())
	reg.Register(broken)
	loop, _ := newTestLoop(t, &scriptedProvider{}, reg)

	res := loop.HandleCommand(context.Background(), ParseCommand("/articles"), testMsg())
	if !res.Handled {
		t.Fatal("failed command should still be handled")
	}
	if !strings.Contains(res.Response, "Command failed:") {
		t.Fatalf("expected failure message, got %q", res.Response)
	}
}

func newKnowledgeLoop(t *testing.T, admin KnowledgeAdmin, file string) *Loop {
	t.Helper()
	return NewLoop(LoopConfig{
		Provider:      &scriptedProvider{},
		Sessions:      NewSessionManager(newMemConvStore(), testLogger()),
		Instructions:  NewInstructionBuilder(&staticContext{context: "ctx"}, ""),
		Tools:         tool.NewRegistry(testLogger()),
		Knowledge:     admin,
		KnowledgeFile: file,
		RateLimiter:   NewRateLimiter(1000, 60000),
		Logger:        testLogger(),
	})
}

func TestHandleCommand_SaveDefaultPath(t *testing.T) {
	admin := &fakeKnowledgeAdmin{entries: 3}
	loop := newKnowledgeLoop(t, admin, "/tmp/kb.json")

	res := loop.HandleCommand(context.Background(), ParseCommand("/save"), testMsg())
	if res.Response != "Knowledge base saved to /tmp/kb.json (3 articles)." {
		t.Fatalf("unexpected response %q", res.Response)
	}
	if admin.savedPath != "/tmp/kb.json" {
		t.Fatalf("saved to %q", admin.savedPath)
	}
}

func TestHandleCommand_SaveExplicitPath(t *testing.T) {
	admin := &fakeKnowledgeAdmin{entries: 1}
	loop := newKnowledgeLoop(t, admin, "/tmp/kb.json")

	loop.HandleCommand(context.Background(), ParseCommand("/save /tmp/other.json"), testMsg())
	if admin.savedPath != "/tmp/other.json" {
		t.Fatalf("saved to %q", admin.savedPath)
	}
}

func TestHandleCommand_SaveFailure(t *testing.T) {
	admin := &fakeKnowledgeAdmin{saveErr: errors.New("disk full")}
	loop := newKnowledgeLoop(t, admin, "/tmp/kb.json")

	res := loop.HandleCommand(context.Background(), ParseCommand("/save"), testMsg())
	if !strings.Contains(res.Response, "Save failed:") {
		t.Fatalf("expected save failure, got %q", res.Response)
	}
}

func TestHandleCommand_SaveUnconfigured(t *testing.T) {
	loop := newKnowledgeLoop(t, nil, "")

	res := loop.HandleCommand(context.Background(), ParseCommand("/save"), testMsg())
	if res.Response != "Knowledge persistence is not configured." {
		t.Fatalf("unexpected response %q", res.Response)
	}
}

func TestHandleCommand_Load(t *testing.T) {
	admin := &fakeKnowledgeAdmin{entries: 5}
	loop := newKnowledgeLoop(t, admin, "/tmp/kb.json")

	res := loop.HandleCommand(context.Background(), ParseCommand("/load"), testMsg())
	if res.Response != "Knowledge base loaded from /tmp/kb.json (5 articles)." {
		t.Fatalf("unexpected response %q", res.Response)
	}
	if admin.loadedPath != "/tmp/kb.json" {
		t.Fatalf("loaded from %q", admin.loadedPath)
	}
}

func TestHandleCommand_Usage(t *testing.T) {
	loop, _ := newTestLoop(t, &scriptedProvider{}, tool.NewRegistry(testLogger()))
	loop.sessions.AddTokenUsage("cli:local", 512)

	res := loop.HandleCommand(context.Background(), ParseCommand("/usage"), testMsg())
	if res.Response != "Tokens used this conversation: 512" {
		t.Fatalf("unexpected response %q", res.Response)
	}
}

func TestHandleCommand_Status(t *testing.T) {
	admin := &fakeKnowledgeAdmin{entries: 3}
	loop := newKnowledgeLoop(t, admin, "/tmp/kb.json")

	res := loop.HandleCommand(context.Background(), ParseCommand("/status"), testMsg())
	if !res.Handled {
		t.Fatal("status should be handled")
	}
	for _, want := range []string{"Provider: scripted", "Articles: 3 loaded", "Tools: 0 registered"} {
		if !strings.Contains(res.Response, want) {
			t.Errorf("status missing %q in %q", want, res.Response)
		}
	}
}

func TestHandleCommand_Version(t *testing.T) {
	loop, _ := newTestLoop(t, &scriptedProvider{}, tool.NewRegistry(testLogger()))

	res := loop.HandleCommand(context.Background(), ParseCommand("/version"), testMsg())
	if !strings.Contains(res.Response, "artivox v") {
		t.Fatalf("unexpected version response %q", res.Response)
	}
}

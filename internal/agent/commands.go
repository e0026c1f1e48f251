package agent

import (
	"context"
	"fmt"
	"runtime"
	"strings"
	"time"

	"artivox/internal/domain"
)

// ChatCommand represents a parsed chat command.
type ChatCommand struct {
	Name string   // command name without "/"
	Args []string // arguments after the command
	Raw  string   // original full text
}

// CommandResult holds the response for a handled command.
type CommandResult struct {
	Response string // text response to send back
	Handled  bool   // true if the command was handled (don't send to LLM)
}

// startTime records when the process started for /uptime.
var startTime = time.Now()

// ParseCommand checks if a message starts with "/" and parses it into a
// ChatCommand. Returns nil if the message is not a command.
func ParseCommand(text string) *ChatCommand {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return nil
	}

	parts := strings.Fields(text)
	if len(parts) == 0 {
		return nil
	}

	name := strings.TrimPrefix(parts[0], "/")
	name = strings.ToLower(name)

	var args []string
	if len(parts) > 1 {
		args = parts[1:]
	}

	return &ChatCommand{
		Name: name,
		Args: args,
		Raw:  text,
	}
}

// HandleCommand processes a chat command and returns a result. If the
// command is not recognized, Handled is false and the message is forwarded
// to the LLM as a normal message.
func (l *Loop) HandleCommand(ctx context.Context, cmd *ChatCommand, msg domain.InboundMessage) CommandResult {
	sessionKey := fmt.Sprintf("%s:%s", msg.Channel, msg.ChatID)

	switch cmd.Name {
	case "help":
		return CommandResult{Response: helpText(), Handled: true}

	case "new", "clear":
		l.sessions.ClearSession(sessionKey)
		return CommandResult{Response: "Conversation cleared. Starting fresh.", Handled: true}

	case "articles":
		return l.runTool(ctx, "list_articles", nil)

	case "add":
		if len(cmd.Args) == 0 {
			return CommandResult{Response: "Usage: /add <url>", Handled: true}
		}
		return l.runTool(ctx, "add_article", map[string]any{"url": cmd.Args[0]})

	case "save":
		path := l.knowledgeFile
		if len(cmd.Args) > 0 {
			path = cmd.Args[0]
		}
		if l.knowledge == nil || path == "" {
			return CommandResult{Response: "Knowledge persistence is not configured.", Handled: true}
		}
		if err := l.knowledge.SaveFile(path); err != nil {
			return CommandResult{Response: fmt.Sprintf("Save failed: %s", err), Handled: true}
		}
		return CommandResult{Response: fmt.Sprintf("Knowledge base saved to %s (%d articles).", path, l.knowledge.Len()), Handled: true}

	case "load":
		path := l.knowledgeFile
		if len(cmd.Args) > 0 {
			path = cmd.Args[0]
		}
		if l.knowledge == nil || path == "" {
			return CommandResult{Response: "Knowledge persistence is not configured.", Handled: true}
		}
		if err := l.knowledge.LoadFile(path); err != nil {
			return CommandResult{Response: fmt.Sprintf("Load failed: %s", err), Handled: true}
		}
		return CommandResult{Response: fmt.Sprintf("Knowledge base loaded from %s (%d articles).", path, l.knowledge.Len()), Handled: true}

	case "status":
		return CommandResult{Response: l.statusText(), Handled: true}

	case "tools":
		return CommandResult{Response: l.toolsText(), Handled: true}

	case "usage":
		tokens := l.sessions.GetTokenUsage(sessionKey)
		return CommandResult{Response: fmt.Sprintf("Tokens used this conversation: %d", tokens), Handled: true}

	case "uptime":
		uptime := time.Since(startTime).Round(time.Second)
		return CommandResult{Response: fmt.Sprintf("Uptime: %s", uptime), Handled: true}

	case "version":
		return CommandResult{Response: fmt.Sprintf("artivox v%s (%s/%s, Go %s)", version, runtime.GOOS, runtime.GOARCH, runtime.Version()), Handled: true}

	default:
		// Unknown command, pass through to the LLM as a normal message
		return CommandResult{Handled: false}
	}
}

// runTool executes a registered tool on behalf of a slash command.
func (l *Loop) runTool(ctx context.Context, name string, args map[string]any) CommandResult {
	if l.tools == nil {
		return CommandResult{Response: "Tools are not available.", Handled: true}
	}
	if args == nil {
		args = map[string]any{}
	}
	out, err := l.tools.Execute(ctx, name, args)
	if err != nil {
		return CommandResult{Response: fmt.Sprintf("Command failed: %s", err), Handled: true}
	}
	return CommandResult{Response: out, Handled: true}
}

// version is set by the build system. Default fallback.
var version = "0.1.0"

// SetVersion sets the version string used by commands.
func SetVersion(v string) {
	version = v
}

func helpText() string {
	return `**Artivox Commands**

/help — Show this help message
/new — Start a new conversation (clear history)
/clear — Same as /new
/articles — List articles in the knowledge base
/add <url> — Fetch an article and add it to the knowledge base
/save [path] — Save the knowledge base to disk
/load [path] — Load a knowledge base from disk
/status — Show assistant status
/tools — List available tools
/usage — Show token usage for this conversation
/uptime — Show process uptime
/version — Show version info`
}

func (l *Loop) statusText() string {
	uptime := time.Since(startTime).Round(time.Second)
	articles := 0
	if l.knowledge != nil {
		articles = l.knowledge.Len()
	}
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("**artivox v%s**\n\n", version))
	sb.WriteString(fmt.Sprintf("Provider: %s\n", l.provider.Name()))
	sb.WriteString(fmt.Sprintf("Articles: %d loaded\n", articles))
	sb.WriteString(fmt.Sprintf("Tools: %d registered\n", len(l.tools.Names())))
	sb.WriteString(fmt.Sprintf("Uptime: %s\n", uptime))
	sb.WriteString(fmt.Sprintf("Runtime: %s/%s, Go %s\n", runtime.GOOS, runtime.GOARCH, runtime.Version()))
	return sb.String()
}

func (l *Loop) toolsText() string {
	names := l.tools.Names()
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("**Available Tools** (%d)\n\n", len(names)))
	for _, name := range names {
		t := l.tools.Get(name)
		if t != nil {
			sb.WriteString(fmt.Sprintf("• **%s** — %s\n", name, t.Description()))
		}
	}
	return sb.String()
}

package domain

import "context"

// Channel is the interface for user-facing conversation surfaces
// (CLI REPL, Telegram, voice WebSocket).
type Channel interface {
	Name() string
	Start(ctx context.Context, bus MessageBus) error
	Stop() error
}

package domain

import "context"

// Tool is the interface for assistant capabilities exposed to the LLM
// (knowledge search, article listing, URL ingestion).
type Tool interface {
	Name() string
	Description() string
	Parameters() map[string]any
	Execute(ctx context.Context, args map[string]any) (string, error)
}

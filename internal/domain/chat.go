package domain

import "context"

// Chat message roles.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// ChatMessage is one turn of a chat completion request.
type ChatMessage struct {
	Role    string
	Content string
}

// ChatResult carries the completion text and token usage.
type ChatResult struct {
	Content          string
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Completer is the chat completion contract between layers.
type Completer interface {
	Complete(ctx context.Context, messages []ChatMessage, jsonMode bool) (ChatResult, error)
}

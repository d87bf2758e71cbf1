package llm

import "context"

// Role identifies the author of a chat message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is a single role-tagged message in a model request.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Client is the interface for a conversational model backend. Chat sends the
// ordered message list and returns the raw text of the model's reply.
type Client interface {
	Chat(ctx context.Context, messages []Message) (string, error)
}

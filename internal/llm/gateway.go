// Package llm adapts language model providers to one narrow Gateway.
//
// Callers hand a Gateway role-tagged messages plus optional tool schemas
// and get back a single completion. Anthropic (direct or through AWS
// Bedrock) and Ollama are supported.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/ShayCichocki/rdteam/pkg/models"
)

// ErrEmptyConversation is returned when a request has no messages.
var ErrEmptyConversation = errors.New("conversation has no messages")

// Role is the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one role-tagged turn sent to the model.
type Message struct {
	Role    Role
	Content string
}

// Tool describes a function the model may call. Properties is a JSON
// schema properties object.
type Tool struct {
	Name        string
	Description string
	Properties  map[string]any
	Required    []string
}

// ToolCall is a function call requested by the model.
type ToolCall struct {
	ID    string
	Name  string
	Input json.RawMessage
}

// Request is one completion request.
type Request struct {
	System    string
	Messages  []Message
	Tools     []Tool
	MaxTokens int
}

// Response is the model's completion.
type Response struct {
	Text         string
	ToolCalls    []ToolCall
	StopReason   string
	InputTokens  int64
	OutputTokens int64
}

// Gateway completes conversations.
type Gateway interface {
	Complete(ctx context.Context, req Request) (*Response, error)
	// Name identifies the provider and model for logs.
	Name() string
}

// UsageReporter is implemented by gateways that count tokens.
type UsageReporter interface {
	Tracker() *TokenTracker
}

var (
	_ UsageReporter = (*AnthropicGateway)(nil)
	_ UsageReporter = (*OllamaGateway)(nil)
)

// FromHistory converts session events into model messages. User events
// become user messages and agent events assistant messages. Leading agent
// events are dropped and consecutive events of one role are merged, since
// providers expect a user-first alternating conversation.
func FromHistory(history []models.Event) []Message {
	var msgs []Message
	for _, e := range history {
		role := RoleAssistant
		if e.Source == models.SourceUser {
			role = RoleUser
		}
		if len(msgs) == 0 && role != RoleUser {
			continue
		}
		if strings.TrimSpace(e.Content) == "" {
			continue
		}
		if n := len(msgs); n > 0 && msgs[n-1].Role == role {
			msgs[n-1].Content += "\n\n" + e.Content
			continue
		}
		msgs = append(msgs, Message{Role: role, Content: e.Content})
	}
	return msgs
}

package llm

import "context"

// Role represents the role of the message sender.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a single chat message.
type Message struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// CallOptions tunes a single completion request.
type CallOptions struct {
	// Temperature is nil when the provider default should be used.
	Temperature *float64
	MaxTokens   int
}

// CallOption configures CallOptions.
type CallOption func(*CallOptions)

// WithTemperature sets the sampling temperature.
func WithTemperature(t float64) CallOption {
	return func(o *CallOptions) {
		o.Temperature = &t
	}
}

// WithMaxTokens caps the completion length.
func WithMaxTokens(n int) CallOption {
	return func(o *CallOptions) {
		o.MaxTokens = n
	}
}

// ApplyOptions folds opts into a CallOptions value.
func ApplyOptions(opts ...CallOption) CallOptions {
	var o CallOptions
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// Provider defines the interface for a text-generation service.
type Provider interface {
	// Chat sends a list of messages to the LLM and returns the response.
	Chat(ctx context.Context, messages []Message, opts ...CallOption) (*Message, error)
}

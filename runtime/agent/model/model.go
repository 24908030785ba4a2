// Package model defines the provider-agnostic message and model-client types
// used by the agent core. A Client is the single external-collaborator
// interface the runtime depends on for language-model calls: it takes an
// ordered list of messages and a model name and returns generated text plus
// usage accounting. Concrete adapters (features/model/anthropic, openai,
// bedrock) implement Client on top of real provider SDKs; the runtime never
// imports those adapters directly.
package model

import "context"

// Role identifies the speaker of a Message in a conversation.
type Role string

const (
	// RoleUser marks a message originating from the end user or caller.
	RoleUser Role = "user"
	// RoleAssistant marks a message produced by the model.
	RoleAssistant Role = "assistant"
	// RoleSystem marks a message carrying instructions/context for the model.
	RoleSystem Role = "system"
)

// Message is one turn in the ordered list passed to a Client call.
type Message struct {
	Role    Role
	Content string
}

// Usage reports token accounting for a single model call. Fields are best
// effort: adapters populate whatever their provider reports.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// Client is the single call every model-backed component in the runtime
// depends on (agent core iterations, the response parser's LLM-repair stage,
// the tool memory manager's analysis pass, the playbook generator). The
// client's own retry/backoff for transport errors is its responsibility;
// callers impose timeouts via ctx.
type Client interface {
	// Call issues one model request and returns the generated text and usage.
	// Implementations should respect ctx cancellation/deadline and return a
	// context error promptly rather than blocking past it.
	Call(ctx context.Context, messages []Message, modelName string) (text string, usage Usage, err error)
}

// ClientFunc adapts a plain function to the Client interface, convenient for
// stubs in tests (the end-to-end scenarios in spec §8 drive the loop with
// scripted model responses).
type ClientFunc func(ctx context.Context, messages []Message, modelName string) (string, Usage, error)

// Call implements Client.
func (f ClientFunc) Call(ctx context.Context, messages []Message, modelName string) (string, Usage, error) {
	return f(ctx, messages, modelName)
}

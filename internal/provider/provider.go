// Package provider defines the text generation contract consumed by the
// assistant, plus the canned offline implementation.
package provider

import "context"

// Provider generates a reply for a conversation. Concrete remote
// implementations live in separate packages (e.g., modules/provider/openai).
type Provider interface {
	// Complete sends a completion request and returns the full response.
	Complete(ctx context.Context, req CompletionRequest) (CompletionResponse, error)

	// ModelName returns the identifier of the underlying model.
	ModelName() string
}

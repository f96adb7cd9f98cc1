// Package assistant generates the conversational reply text for the chat
// timeline. Scheduling behavior never depends on this text beyond the
// classifier's suppression rule; providers are interchangeable and the
// canned fallback keeps the service functional without any API key.
package assistant

import (
	"context"
)

// systemPrompt frames the providers as a scheduling assistant.
const systemPrompt = "You are a concise AI meeting-scheduling assistant. " +
	"Help the user coordinate meetings, availability, and time zones. " +
	"Do not invent concrete meeting times; the application computes those."

// Client produces an assistant reply for one user prompt.
type Client interface {
	Reply(ctx context.Context, prompt string) (string, error)
	Name() string
}

// Provider is the type of assistant provider.
type Provider string

const (
	ProviderAnthropic Provider = "anthropic"
	ProviderOpenAI    Provider = "openai"
	ProviderCanned    Provider = "canned"
)

// NewClient creates an assistant client for the given provider.
func NewClient(provider Provider, apiKey string) (Client, error) {
	switch provider {
	case ProviderAnthropic:
		return NewAnthropicClient(apiKey)
	case ProviderOpenAI:
		return NewOpenAIClient(apiKey)
	default:
		return NewCannedClient(), nil
	}
}

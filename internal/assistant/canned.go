package assistant

import (
	"context"
	"strings"
)

// CannedClient answers with fixed scheduling-assistant responses keyed on
// the prompt, so the service works without any LLM provider configured.
// The replies deliberately avoid the word "slot": the classifier treats it
// as "the assistant already answered with concrete times".
type CannedClient struct{}

// NewCannedClient creates the fallback reply client.
func NewCannedClient() *CannedClient {
	return &CannedClient{}
}

// Name returns the provider name.
func (c *CannedClient) Name() string {
	return "canned"
}

// Reply picks a canned response for the prompt.
func (c *CannedClient) Reply(_ context.Context, prompt string) (string, error) {
	p := strings.ToLower(prompt)

	switch {
	case strings.Contains(p, "schedule") || strings.Contains(p, "meeting"):
		return "I'd be happy to help you schedule a meeting! Use the form below to pick " +
			"participants, a date range, and a duration, and I'll find the optimal time for everyone.", nil
	case strings.Contains(p, "availability") || strings.Contains(p, "free"):
		return "I can check availability across calendars and time zones. Tell me who should " +
			"attend and your preferred date range, and I'll show you the times that work for everyone.", nil
	case strings.Contains(p, "timezone") || strings.Contains(p, "time zone"):
		return "Time zone coordination is one of my specialties! I can find overlap between " +
			"multiple time zones and convert meeting times automatically. What time zones are you working with?", nil
	default:
		return "I can help with finding optimal meeting times, checking participant availability, " +
			"and managing time zone differences. Could you tell me more about what you need?", nil
	}
}

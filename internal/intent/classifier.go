// Package intent classifies free-text user input into scheduling intents.
package intent

import (
	"strings"
)

// Intent is the classified purpose of a user message.
type Intent string

const (
	None                Intent = "none"
	ScheduleRequest     Intent = "schedule-request"
	AvailabilityRequest Intent = "availability-request"
)

// schedulePairs is the keyword-pair rule table for schedule requests: a
// message matches when both words of any pair occur in it.
var schedulePairs = [][2]string{
	{"schedule", "meeting"},
	{"schedule", "call"},
	{"book", "meeting"},
	{"set up", "meeting"},
	{"arrange", "meeting"},
	{"create", "meeting"},
}

var availabilityPhrases = []string{
	"check availability",
	"find time",
	"available slot",
	"free time",
}

// Classify maps a user message to an intent. Matching is case-insensitive
// substring matching on the raw text, first rule wins. Whatever matched, the
// intent is suppressed when the assistant's reply already mentions "slot":
// the assistant has answered with concrete slots and a fresh widget would
// only get in the way.
func Classify(userText, assistantReply string) Intent {
	if strings.Contains(strings.ToLower(assistantReply), "slot") {
		return None
	}

	text := strings.ToLower(userText)

	for _, pair := range schedulePairs {
		if strings.Contains(text, pair[0]) && strings.Contains(text, pair[1]) {
			return ScheduleRequest
		}
	}

	for _, phrase := range availabilityPhrases {
		if strings.Contains(text, phrase) {
			return AvailabilityRequest
		}
	}

	return None
}

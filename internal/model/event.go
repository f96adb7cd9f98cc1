package model

import (
	"time"
)

// ScheduledMeeting is published once per successful slot confirmation, for
// the upcoming-meeting surface.
type ScheduledMeeting struct {
	ID           string    `json:"id"`
	Subject      string    `json:"subject"`
	Start        time.Time `json:"start"`
	End          time.Time `json:"end"`
	Participants []string  `json:"participants"`
	IsOnline     bool      `json:"isOnline"`
	OnlineURL    string    `json:"onlineUrl,omitempty"`
}

// WidgetDismissed is published when a widget is closed without submission.
type WidgetDismissed struct {
	ConversationID string    `json:"conversation_id"`
	EntryID        string    `json:"entry_id"`
	DismissedAt    time.Time `json:"dismissed_at"`
}

// Identity is the authenticated caller, as carried by the session token.
type Identity struct {
	UserID      string `json:"user_id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

// Resolvable reports whether the identity can be used for calendar lookups.
func (i Identity) Resolvable() bool {
	return i.DisplayName != "" && i.Email != ""
}

// Conversation is the summary record for one chat session.
type Conversation struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Title      string    `json:"title"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
	EntryCount int       `json:"entry_count,omitempty"`
}

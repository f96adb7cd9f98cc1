package model

import (
	"time"
)

// Attendee is one attendee passed to the availability gateway, with an
// optional IANA timezone hint.
type Attendee struct {
	Email    string `json:"email"`
	Timezone string `json:"timezone,omitempty"`
}

// FindTimesRequest asks the availability gateway for ranked meeting times.
type FindTimesRequest struct {
	Attendees         []Attendee `json:"attendees"`
	PriorityAttendees []string   `json:"priorityAttendees,omitempty"`
	DurationMinutes   int        `json:"duration"`
	StartTime         time.Time  `json:"startTime"`
	EndTime           time.Time  `json:"endTime"`
	MaxSuggestions    int        `json:"maxSuggestions,omitempty"`
}

// Suggestion is one ranked meeting time from the availability gateway.
// Confidence is optional on the wire; absent means the gateway did not rank.
type Suggestion struct {
	Start      time.Time `json:"start"`
	End        time.Time `json:"end"`
	Confidence *float64  `json:"confidence,omitempty"`
}

// FindTimesResult is the availability gateway's find-times response.
type FindTimesResult struct {
	Suggestions []Suggestion `json:"suggestions"`
	Message     string       `json:"message,omitempty"`
}

// TimeSlot is a start/end pair in a free/busy response.
type TimeSlot struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Availability is the free/busy breakdown for one user over a window.
type Availability struct {
	FreeSlots        []TimeSlot `json:"freeSlots"`
	BusySlots        []TimeSlot `json:"busySlots"`
	TotalFreeMinutes int        `json:"totalFreeTimeMinutes"`
	TotalBusyMinutes int        `json:"totalBusyTimeMinutes"`
}

// CreateMeetingRequest is the payload for the meeting-creation gateway.
type CreateMeetingRequest struct {
	Subject     string    `json:"subject"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	Attendees   []string  `json:"attendees"`
	Description string    `json:"description,omitempty"`
	IsOnline    bool      `json:"isOnline"`
}

// Event is the canonical calendar event returned after meeting creation.
type Event struct {
	ID        string    `json:"id"`
	Subject   string    `json:"subject"`
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	IsOnline  bool      `json:"isOnline"`
	OnlineURL string    `json:"onlineUrl,omitempty"`
}

// DirectoryUser is one entry of the bulk directory listing.
type DirectoryUser struct {
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

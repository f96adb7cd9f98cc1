// Package model defines data structures for the scheduling assistant.
package model

import (
	"time"
)

// Author identifies who produced a timeline entry.
type Author string

const (
	AuthorUser      Author = "user"
	AuthorAssistant Author = "assistant"
)

// DateRangeChoice is a canned date range the user picks on the widget.
type DateRangeChoice string

const (
	RangeToday    DateRangeChoice = "today"
	RangeTomorrow DateRangeChoice = "tomorrow"
	RangeThisWeek DateRangeChoice = "this-week"
	RangeNextWeek DateRangeChoice = "next-week"
)

// MeetingDurations maps the widget's duration labels to minutes.
var MeetingDurations = map[string]int{
	"30m":  30,
	"1h":   60,
	"1.5h": 90,
	"2h":   120,
}

// TimelineEntry is one unit in a conversation.
//
// Text may be empty while a widget or slate carries the real payload, or
// while a searching placeholder is being animated. Widget and Slate are
// independent: both, either, or neither may be present.
type TimelineEntry struct {
	ID             string            `json:"id"`
	ConversationID string            `json:"conversation_id"`
	Author         Author            `json:"author"`
	Text           string            `json:"text"`
	CreatedAt      time.Time         `json:"created_at"`
	Widget         *SchedulingWidget `json:"widget,omitempty"`
	Slate          []SlotCandidate   `json:"slate,omitempty"`
}

// SchedulingWidget holds the parameters being collected for one scheduling
// attempt. At most one widget across a conversation is active at a time;
// deactivated widgets remain visible but inert.
type SchedulingWidget struct {
	ID                string            `json:"id"`
	Active            bool              `json:"active"`
	Participants      []string          `json:"participants"`
	PriorityAttendees []string          `json:"priority_attendees,omitempty"`
	Headline          string            `json:"meeting_headline"`
	Agenda            string            `json:"agenda,omitempty"`
	DateRange         DateRangeChoice   `json:"date_range"`
	DurationMinutes   int               `json:"duration_minutes"`
	TimezoneHints     map[string]string `json:"timezone_hints,omitempty"`
}

// AddParticipant inserts a display name keeping unique, first-seen order.
func (w *SchedulingWidget) AddParticipant(name string) {
	for _, p := range w.Participants {
		if p == name {
			return
		}
	}
	w.Participants = append(w.Participants, name)
}

// RemoveParticipant drops a display name and any priority marking for it.
func (w *SchedulingWidget) RemoveParticipant(name string) {
	w.Participants = remove(w.Participants, name)
	w.PriorityAttendees = remove(w.PriorityAttendees, name)
}

// MarkPriority flags an existing participant as a ranking hint.
func (w *SchedulingWidget) MarkPriority(name string) {
	for _, p := range w.Participants {
		if p != name {
			continue
		}
		for _, pr := range w.PriorityAttendees {
			if pr == name {
				return
			}
		}
		w.PriorityAttendees = append(w.PriorityAttendees, name)
		return
	}
}

// CanSubmit reports whether the widget has everything a search needs.
func (w *SchedulingWidget) CanSubmit() bool {
	return len(w.Participants) > 0 && w.Headline != ""
}

func remove(names []string, name string) []string {
	out := names[:0]
	for _, n := range names {
		if n != name {
			out = append(out, n)
		}
	}
	return out
}

// SlotCandidate is one proposed meeting time. Participants, Headline, and
// Agenda are snapshots taken from the widget at query time; they do not
// follow later widget edits.
type SlotCandidate struct {
	ID           string    `json:"id"`
	StartAt      time.Time `json:"start_at"`
	EndAt        time.Time `json:"end_at"`
	Participants []string  `json:"participants"`
	Confidence   float64   `json:"confidence"`
	Headline     string    `json:"meeting_headline"`
	Agenda       string    `json:"agenda,omitempty"`
}

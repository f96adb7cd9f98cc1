// Package orchestrator drives the scheduling conversation: it turns user
// messages and widget input into gateway calls and keeps the timeline, the
// active widget, and the proposed slot candidates consistent with the
// outcome, including the failure and cancellation paths.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/gruve-ai/scheduling-assistant/internal/assistant"
	"github.com/gruve-ai/scheduling-assistant/internal/gateway"
	"github.com/gruve-ai/scheduling-assistant/internal/intent"
	"github.com/gruve-ai/scheduling-assistant/internal/model"
	"github.com/gruve-ai/scheduling-assistant/internal/store"
	"github.com/gruve-ai/scheduling-assistant/pkg/logger"
	"github.com/gruve-ai/scheduling-assistant/pkg/metrics"
)

var (
	// ErrWidgetInactive is returned when a deactivated widget is edited or
	// submitted. A new attempt always starts from a fresh widget.
	ErrWidgetInactive = errors.New("widget is no longer active")

	// ErrNotSubmittable is returned when a widget is submitted without
	// participants or a meeting headline.
	ErrNotSubmittable = errors.New("participants and a meeting headline are required")
)

const greeting = "Hello! I'm your AI meeting assistant. I can help you schedule meetings, " +
	"check participant availability, and coordinate across time zones. How can I assist you today?"

const defaultConfidence = 90

// EventPublisher receives the orchestrator's outbound events.
type EventPublisher interface {
	MeetingScheduled(ctx context.Context, userID, conversationID string, meeting model.ScheduledMeeting) error
	WidgetDismissed(ctx context.Context, userID, conversationID, entryID string) error
}

// Options tunes orchestrator behavior. The zero value picks the defaults.
type Options struct {
	StatusFrameInterval time.Duration
	ConfirmClearDelay   time.Duration
	MaxSuggestions      int
	Now                 func() time.Time
}

// Orchestrator owns the scheduling state machine for every conversation.
type Orchestrator struct {
	store        *store.ConversationStore
	availability gateway.Availability
	meetings     gateway.Meetings
	directory    gateway.Directory
	assistant    assistant.Client
	events       EventPublisher
	logger       *logger.Logger

	now           func() time.Time
	frameInterval time.Duration
	clearDelay    time.Duration
	maxSugg       int
}

// New creates a scheduling orchestrator.
func New(
	s *store.ConversationStore,
	availability gateway.Availability,
	meetings gateway.Meetings,
	directory gateway.Directory,
	replies assistant.Client,
	events EventPublisher,
	log *logger.Logger,
	opts Options,
) *Orchestrator {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.StatusFrameInterval <= 0 {
		opts.StatusFrameInterval = 60 * time.Millisecond
	}
	if opts.ConfirmClearDelay < 0 {
		opts.ConfirmClearDelay = 0
	}
	if opts.MaxSuggestions <= 0 {
		opts.MaxSuggestions = 5
	}

	return &Orchestrator{
		store:         s,
		availability:  availability,
		meetings:      meetings,
		directory:     directory,
		assistant:     replies,
		events:        events,
		logger:        log,
		now:           opts.Now,
		frameInterval: opts.StatusFrameInterval,
		clearDelay:    opts.ConfirmClearDelay,
		maxSugg:       opts.MaxSuggestions,
	}
}

// StartConversation creates a conversation seeded with the greeting entry.
func (o *Orchestrator) StartConversation(userID, title string) (model.Conversation, error) {
	conv := o.store.CreateConversation(userID, title)
	entry := o.newEntry(conv.ID, model.AuthorAssistant, greeting)
	if err := o.store.Append(&entry); err != nil {
		return model.Conversation{}, err
	}
	return conv, nil
}

// HandleMessage processes one free-text user message: the message lands on
// the timeline, the assistant replies, and when the reply together with the
// classifier calls for it, the reply entry carries a fresh active widget.
func (o *Orchestrator) HandleMessage(ctx context.Context, conversationID, text string) ([]model.TimelineEntry, error) {
	userEntry := o.newEntry(conversationID, model.AuthorUser, text)
	if err := o.store.Append(&userEntry); err != nil {
		return nil, err
	}

	reply, err := o.assistant.Reply(ctx, text)
	if err != nil {
		o.logger.Warn("assistant reply failed", zap.String("provider", o.assistant.Name()), zap.Error(err))
		reply = "Sorry, I encountered an error processing your request. Please try again."
	}

	replyEntry := o.newEntry(conversationID, model.AuthorAssistant, reply)
	if intent.Classify(text, reply) != intent.None {
		replyEntry.Widget = o.newWidget()
	}
	if err := o.store.Append(&replyEntry); err != nil {
		return nil, err
	}

	return []model.TimelineEntry{userEntry, replyEntry}, nil
}

// OpenWidget handles the explicit schedule-meeting trigger: an assistant
// entry with a fresh active widget, bypassing the classifier.
func (o *Orchestrator) OpenWidget(ctx context.Context, conversationID string) (model.TimelineEntry, error) {
	entry := o.newEntry(conversationID, model.AuthorAssistant,
		"Let's set up your meeting. Pick participants, a date range, and a duration below.")
	entry.Widget = o.newWidget()
	if err := o.store.Append(&entry); err != nil {
		return model.TimelineEntry{}, err
	}
	return entry, nil
}

// WidgetUpdate describes one round of edits while the widget is collecting.
type WidgetUpdate struct {
	AddParticipants    []string          `json:"add_participants,omitempty"`
	RemoveParticipants []string          `json:"remove_participants,omitempty"`
	PriorityAttendees  []string          `json:"priority_attendees,omitempty"`
	Headline           *string           `json:"meeting_headline,omitempty"`
	Agenda             *string           `json:"agenda,omitempty"`
	DateRange          *string           `json:"date_range,omitempty"`
	Duration           *string           `json:"duration,omitempty"`
	TimezoneHints      map[string]string `json:"timezone_hints,omitempty"`
}

// UpdateWidget applies edits to an active widget.
func (o *Orchestrator) UpdateWidget(ctx context.Context, conversationID, entryID string, upd WidgetUpdate) (model.TimelineEntry, error) {
	err := o.store.UpdateWidget(conversationID, entryID, func(w *model.SchedulingWidget) error {
		if !w.Active {
			return ErrWidgetInactive
		}

		if upd.DateRange != nil {
			choice := model.DateRangeChoice(*upd.DateRange)
			switch choice {
			case model.RangeToday, model.RangeThisWeek, model.RangeNextWeek:
				w.DateRange = choice
			default:
				return fmt.Errorf("invalid date range %q", *upd.DateRange)
			}
		}
		if upd.Duration != nil {
			minutes, ok := model.MeetingDurations[*upd.Duration]
			if !ok {
				return fmt.Errorf("invalid duration %q", *upd.Duration)
			}
			w.DurationMinutes = minutes
		}
		for _, name := range upd.AddParticipants {
			w.AddParticipant(name)
		}
		for _, name := range upd.RemoveParticipants {
			w.RemoveParticipant(name)
		}
		for _, name := range upd.PriorityAttendees {
			w.MarkPriority(name)
		}
		if upd.Headline != nil {
			w.Headline = *upd.Headline
		}
		if upd.Agenda != nil {
			w.Agenda = *upd.Agenda
		}
		for name, tz := range upd.TimezoneHints {
			if w.TimezoneHints == nil {
				w.TimezoneHints = make(map[string]string)
			}
			w.TimezoneHints[name] = tz
		}
		return nil
	})
	if err != nil {
		return model.TimelineEntry{}, err
	}
	return o.store.Entry(conversationID, entryID)
}

// SubmitWidget runs the Collecting to Searching to Presenting/Settled arc:
// deactivate the widget, animate a placeholder while the availability
// gateway works, then land either a slate or an explanatory message.
func (o *Orchestrator) SubmitWidget(ctx context.Context, conversationID, entryID string) ([]model.TimelineEntry, error) {
	entry, err := o.store.Entry(conversationID, entryID)
	if err != nil {
		return nil, err
	}
	if entry.Widget == nil {
		return nil, store.ErrNoWidget
	}
	w := entry.Widget
	if !w.Active {
		return nil, ErrWidgetInactive
	}
	if !w.CanSubmit() {
		metrics.SchedulingAttemptsTotal.WithLabelValues("rejected").Inc()
		return nil, ErrNotSubmittable
	}

	// The widget must not stay interactive while the query is in flight.
	if err := o.store.DeactivateWidgets(conversationID); err != nil {
		return nil, err
	}

	start, end, err := ResolveDateRange(o.now(), w.DateRange)
	if err != nil {
		return nil, err
	}

	placeholder := o.newEntry(conversationID, model.AuthorAssistant, "")
	if err := o.store.Append(&placeholder); err != nil {
		return nil, err
	}
	anim := startAnimator(o.store, conversationID, placeholder.ID, o.frameInterval)

	attendees := make([]model.Attendee, len(w.Participants))
	for i, name := range w.Participants {
		attendees[i] = model.Attendee{Email: name, Timezone: w.TimezoneHints[name]}
	}

	result, searchErr := o.availability.FindTimes(ctx, model.FindTimesRequest{
		Attendees:         attendees,
		PriorityAttendees: w.PriorityAttendees,
		DurationMinutes:   w.DurationMinutes,
		StartTime:         start,
		EndTime:           end,
		MaxSuggestions:    o.maxSugg,
	})

	anim.Stop()
	if err := o.store.RemoveEntry(conversationID, placeholder.ID); err != nil {
		o.logger.Warn("failed to remove search placeholder", zap.Error(err))
	}

	var outcome model.TimelineEntry
	switch {
	case searchErr != nil:
		o.logger.Warn("find-times failed", zap.String("conversation_id", conversationID), zap.Error(searchErr))
		metrics.SchedulingAttemptsTotal.WithLabelValues("error").Inc()
		outcome = o.newEntry(conversationID, model.AuthorAssistant, gatewayMessage(searchErr,
			"I ran into an error while searching for meeting times. Please try again."))

	case len(result.Suggestions) == 0:
		metrics.SchedulingAttemptsTotal.WithLabelValues("no_results").Inc()
		msg := result.Message
		if msg == "" {
			msg = "I couldn't find a slot that works for everyone in that window. " +
				"Try a different date range, a shorter duration, or fewer participants."
		}
		outcome = o.newEntry(conversationID, model.AuthorAssistant, msg)

	default:
		metrics.SchedulingAttemptsTotal.WithLabelValues("presented").Inc()
		outcome = o.newEntry(conversationID, model.AuthorAssistant, fmt.Sprintf(
			"I found %d available time%s for %d participant%s. Here are my top recommendations:",
			len(result.Suggestions), plural(len(result.Suggestions)),
			len(w.Participants), plural(len(w.Participants))))
		outcome.Slate = o.buildSlate(w, result.Suggestions)
	}

	if err := o.store.Append(&outcome); err != nil {
		return nil, err
	}
	return []model.TimelineEntry{outcome}, nil
}

// buildSlate maps gateway suggestions into slot candidates, snapshotting
// headline, agenda, and participants from the widget at this instant.
func (o *Orchestrator) buildSlate(w *model.SchedulingWidget, suggestions []model.Suggestion) []model.SlotCandidate {
	slate := make([]model.SlotCandidate, len(suggestions))
	for i, s := range suggestions {
		confidence := float64(defaultConfidence)
		if s.Confidence != nil {
			confidence = *s.Confidence
		}
		slate[i] = model.SlotCandidate{
			ID:           uuid.Must(uuid.NewV7()).String(),
			StartAt:      s.Start,
			EndAt:        s.End,
			Participants: append([]string(nil), w.Participants...),
			Confidence:   confidence,
			Headline:     w.Headline,
			Agenda:       w.Agenda,
		}
	}
	return slate
}

// ConfirmSlot runs the confirmation protocol for one candidate. The slate
// collapses to the chosen candidate before the meeting-creation call; on
// failure the collapse is kept, the siblings are gone for good, and the
// user starts a fresh attempt for new options.
func (o *Orchestrator) ConfirmSlot(ctx context.Context, userID, conversationID, entryID, candidateID string) ([]model.TimelineEntry, error) {
	if err := o.store.CollapseSlate(conversationID, entryID, candidateID); err != nil {
		return nil, err
	}

	entry, err := o.store.Entry(conversationID, entryID)
	if err != nil {
		return nil, err
	}
	candidate := entry.Slate[0]

	attendees := o.resolveAttendees(ctx, candidate.Participants)

	event, err := o.meetings.CreateMeeting(ctx, model.CreateMeetingRequest{
		Subject:     candidate.Headline,
		Start:       candidate.StartAt,
		End:         candidate.EndAt,
		Attendees:   attendees,
		Description: candidate.Agenda,
		IsOnline:    true,
	})
	if err != nil {
		o.logger.Warn("meeting creation failed", zap.String("conversation_id", conversationID), zap.Error(err))
		metrics.SlotConfirmationsTotal.WithLabelValues("error").Inc()
		failure := o.newEntry(conversationID, model.AuthorAssistant, gatewayMessage(err,
			"I couldn't create the meeting. The time is still selected; please try confirming again."))
		if err := o.store.Append(&failure); err != nil {
			return nil, err
		}
		return []model.TimelineEntry{failure}, nil
	}

	// Leave the confirmed candidate visible briefly before it vanishes.
	time.AfterFunc(o.clearDelay, func() {
		if err := o.store.ClearSlate(conversationID, entryID); err != nil {
			o.logger.Warn("failed to clear confirmed slate", zap.Error(err))
		}
	})

	confirmation := o.newEntry(conversationID, model.AuthorAssistant,
		confirmationText(event, len(candidate.Participants)))
	if err := o.store.Append(&confirmation); err != nil {
		return nil, err
	}

	if err := o.events.MeetingScheduled(ctx, userID, conversationID, model.ScheduledMeeting{
		ID:           event.ID,
		Subject:      event.Subject,
		Start:        event.Start,
		End:          event.End,
		Participants: candidate.Participants,
		IsOnline:     event.IsOnline,
		OnlineURL:    event.OnlineURL,
	}); err != nil {
		o.logger.Warn("failed to publish scheduled meeting", zap.Error(err))
	}

	metrics.SlotConfirmationsTotal.WithLabelValues("success").Inc()
	return []model.TimelineEntry{confirmation}, nil
}

// DismissWidget closes a widget without submitting it.
func (o *Orchestrator) DismissWidget(ctx context.Context, userID, conversationID, entryID string) error {
	entry, err := o.store.Entry(conversationID, entryID)
	if err != nil {
		return err
	}
	if entry.Widget == nil {
		return store.ErrNoWidget
	}

	if err := o.store.DeactivateWidgets(conversationID); err != nil {
		return err
	}

	if err := o.events.WidgetDismissed(ctx, userID, conversationID, entryID); err != nil {
		o.logger.Warn("failed to publish widget dismissal", zap.Error(err))
	}
	return nil
}

// resolveAttendees maps display names to directory emails. Directory
// failure or an empty directory falls back to the raw display names, and a
// name the directory doesn't know passes through unchanged; confirmation
// never blocks on the directory.
func (o *Orchestrator) resolveAttendees(ctx context.Context, participants []string) []string {
	users, err := o.directory.Users(ctx)
	if err != nil || len(users) == 0 {
		if err != nil {
			o.logger.Warn("directory lookup failed, using display names", zap.Error(err))
		}
		return append([]string(nil), participants...)
	}

	byName := make(map[string]string, len(users))
	for _, u := range users {
		byName[normalizeName(u.DisplayName)] = u.Email
	}

	out := make([]string, len(participants))
	for i, name := range participants {
		if email, ok := byName[normalizeName(name)]; ok {
			out[i] = email
		} else {
			out[i] = name
		}
	}
	return out
}

func (o *Orchestrator) newEntry(conversationID string, author model.Author, text string) model.TimelineEntry {
	return model.TimelineEntry{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: conversationID,
		Author:         author,
		Text:           text,
		CreatedAt:      o.now(),
	}
}

func (o *Orchestrator) newWidget() *model.SchedulingWidget {
	return &model.SchedulingWidget{
		ID:              uuid.Must(uuid.NewV7()).String(),
		Active:          true,
		DateRange:       model.RangeThisWeek,
		DurationMinutes: 60,
	}
}

func confirmationText(event *model.Event, participantCount int) string {
	text := fmt.Sprintf("Your meeting %q is booked for %s to %s with %d participant%s. Invitations are on their way.",
		event.Subject,
		event.Start.Format("Monday, Jan 2 at 3:04 PM"),
		event.End.Format("3:04 PM"),
		participantCount, plural(participantCount))
	if event.OnlineURL != "" {
		text += " Join link: " + event.OnlineURL
	}
	return text
}

// gatewayMessage prefers the gateway's own error text over the fallback.
func gatewayMessage(err error, fallback string) string {
	var gerr *gateway.Error
	if errors.As(err, &gerr) && gerr.Message != "" {
		return gerr.Message
	}
	return fallback
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func normalizeName(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

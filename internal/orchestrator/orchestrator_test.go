package orchestrator

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gruve-ai/scheduling-assistant/internal/gateway"
	"github.com/gruve-ai/scheduling-assistant/internal/model"
	"github.com/gruve-ai/scheduling-assistant/internal/store"
	"github.com/gruve-ai/scheduling-assistant/pkg/logger"
)

func newEntryForTest(conversationID string) model.TimelineEntry {
	return model.TimelineEntry{
		ID:             uuid.Must(uuid.NewV7()).String(),
		ConversationID: conversationID,
		Author:         model.AuthorAssistant,
		CreatedAt:      time.Now(),
	}
}

type fakeAvailability struct {
	findTimesResult   *model.FindTimesResult
	findTimesErr      error
	findTimesCalls    int
	lastFindTimes     model.FindTimesRequest
	availability      *model.Availability
	availabilityErr   error
	availabilityCalls int
}

func (f *fakeAvailability) FindTimes(ctx context.Context, req model.FindTimesRequest) (*model.FindTimesResult, error) {
	f.findTimesCalls++
	f.lastFindTimes = req
	return f.findTimesResult, f.findTimesErr
}

func (f *fakeAvailability) CheckAvailability(ctx context.Context, email string, start, end time.Time) (*model.Availability, error) {
	f.availabilityCalls++
	return f.availability, f.availabilityErr
}

type fakeMeetings struct {
	event *model.Event
	err   error
	calls int
	last  model.CreateMeetingRequest
}

func (f *fakeMeetings) CreateMeeting(ctx context.Context, req model.CreateMeetingRequest) (*model.Event, error) {
	f.calls++
	f.last = req
	return f.event, f.err
}

type fakeDirectory struct {
	users []model.DirectoryUser
	err   error
}

func (f *fakeDirectory) Users(ctx context.Context) ([]model.DirectoryUser, error) {
	return f.users, f.err
}

type fakeAssistant struct {
	reply string
	err   error
}

func (f *fakeAssistant) Reply(ctx context.Context, prompt string) (string, error) {
	return f.reply, f.err
}

func (f *fakeAssistant) Name() string { return "fake" }

type fakeEvents struct {
	scheduled []model.ScheduledMeeting
	dismissed []string
	err       error
}

func (f *fakeEvents) MeetingScheduled(ctx context.Context, userID, conversationID string, meeting model.ScheduledMeeting) error {
	f.scheduled = append(f.scheduled, meeting)
	return f.err
}

func (f *fakeEvents) WidgetDismissed(ctx context.Context, userID, conversationID, entryID string) error {
	f.dismissed = append(f.dismissed, entryID)
	return f.err
}

type fixture struct {
	orch         *Orchestrator
	store        *store.ConversationStore
	availability *fakeAvailability
	meetings     *fakeMeetings
	directory    *fakeDirectory
	assistant    *fakeAssistant
	events       *fakeEvents
	convID       string
}

func newFixture(t *testing.T, opts Options) *fixture {
	t.Helper()

	f := &fixture{
		store:        store.New(),
		availability: &fakeAvailability{},
		meetings:     &fakeMeetings{},
		directory:    &fakeDirectory{},
		assistant:    &fakeAssistant{reply: "Happy to help."},
		events:       &fakeEvents{},
	}
	if opts.StatusFrameInterval == 0 {
		opts.StatusFrameInterval = time.Millisecond
	}
	f.orch = New(f.store, f.availability, f.meetings, f.directory,
		f.assistant, f.events, logger.NewNop(), opts)

	conv, err := f.orch.StartConversation("alice", "Planning")
	require.NoError(t, err)
	f.convID = conv.ID
	return f
}

// readyWidget opens a widget and fills in enough to submit.
func (f *fixture) readyWidget(t *testing.T, participants ...string) model.TimelineEntry {
	t.Helper()

	entry, err := f.orch.OpenWidget(context.Background(), f.convID)
	require.NoError(t, err)

	headline := "Standup"
	upd := WidgetUpdate{AddParticipants: participants, Headline: &headline}
	entry, err = f.orch.UpdateWidget(context.Background(), f.convID, entry.ID, upd)
	require.NoError(t, err)
	return entry
}

func ptr[T any](v T) *T { return &v }

func TestStartConversation_SeedsGreeting(t *testing.T) {
	f := newFixture(t, Options{})

	timeline, err := f.store.Timeline(f.convID)
	require.NoError(t, err)
	require.Len(t, timeline, 1)
	assert.Equal(t, model.AuthorAssistant, timeline[0].Author)
	assert.Contains(t, timeline[0].Text, "meeting assistant")
}

func TestHandleMessage_AttachesWidgetOnScheduleIntent(t *testing.T) {
	f := newFixture(t, Options{})

	entries, err := f.orch.HandleMessage(context.Background(), f.convID, "schedule a meeting with Dana")
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, model.AuthorUser, entries[0].Author)
	assert.Equal(t, "schedule a meeting with Dana", entries[0].Text)

	assert.Equal(t, model.AuthorAssistant, entries[1].Author)
	require.NotNil(t, entries[1].Widget)
	assert.True(t, entries[1].Widget.Active)
	assert.Equal(t, model.RangeThisWeek, entries[1].Widget.DateRange)
	assert.Equal(t, 60, entries[1].Widget.DurationMinutes)
}

func TestHandleMessage_NoWidgetOnPlainChat(t *testing.T) {
	f := newFixture(t, Options{})

	entries, err := f.orch.HandleMessage(context.Background(), f.convID, "how are you?")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Nil(t, entries[1].Widget)
}

func TestHandleMessage_SlotReplySuppressesWidget(t *testing.T) {
	f := newFixture(t, Options{})
	f.assistant.reply = "Here are some slots that might work."

	entries, err := f.orch.HandleMessage(context.Background(), f.convID, "schedule a meeting with Dana")
	require.NoError(t, err)
	assert.Nil(t, entries[1].Widget)
}

func TestHandleMessage_AssistantFailureFallsBack(t *testing.T) {
	f := newFixture(t, Options{})
	f.assistant.err = errors.New("provider down")

	entries, err := f.orch.HandleMessage(context.Background(), f.convID, "hello")
	require.NoError(t, err)
	assert.Contains(t, entries[1].Text, "encountered an error")
}

func TestOpenWidget_DeactivatesPrevious(t *testing.T) {
	f := newFixture(t, Options{})

	first, err := f.orch.OpenWidget(context.Background(), f.convID)
	require.NoError(t, err)
	second, err := f.orch.OpenWidget(context.Background(), f.convID)
	require.NoError(t, err)

	got, err := f.store.Entry(f.convID, first.ID)
	require.NoError(t, err)
	assert.False(t, got.Widget.Active)

	got, err = f.store.Entry(f.convID, second.ID)
	require.NoError(t, err)
	assert.True(t, got.Widget.Active)
}

func TestUpdateWidget_Validation(t *testing.T) {
	f := newFixture(t, Options{})
	entry, err := f.orch.OpenWidget(context.Background(), f.convID)
	require.NoError(t, err)

	t.Run("valid edits apply", func(t *testing.T) {
		got, err := f.orch.UpdateWidget(context.Background(), f.convID, entry.ID, WidgetUpdate{
			AddParticipants: []string{"Dana", "Lee", "Dana"},
			Headline:        ptr("Sprint review"),
			DateRange:       ptr("today"),
			Duration:        ptr("30m"),
		})
		require.NoError(t, err)
		assert.Equal(t, []string{"Dana", "Lee"}, got.Widget.Participants)
		assert.Equal(t, model.RangeToday, got.Widget.DateRange)
		assert.Equal(t, 30, got.Widget.DurationMinutes)
	})

	t.Run("tomorrow is not a widget range", func(t *testing.T) {
		_, err := f.orch.UpdateWidget(context.Background(), f.convID, entry.ID, WidgetUpdate{
			DateRange: ptr("tomorrow"),
		})
		assert.Error(t, err)
	})

	t.Run("unknown duration label", func(t *testing.T) {
		_, err := f.orch.UpdateWidget(context.Background(), f.convID, entry.ID, WidgetUpdate{
			Duration: ptr("45m"),
		})
		assert.Error(t, err)
	})

	t.Run("inactive widget rejects edits", func(t *testing.T) {
		require.NoError(t, f.store.DeactivateWidgets(f.convID))
		_, err := f.orch.UpdateWidget(context.Background(), f.convID, entry.ID, WidgetUpdate{
			Headline: ptr("x"),
		})
		assert.ErrorIs(t, err, ErrWidgetInactive)
	})
}

func TestSubmitWidget_PresentsSlate(t *testing.T) {
	f := newFixture(t, Options{})
	f.availability.findTimesResult = &model.FindTimesResult{
		Suggestions: []model.Suggestion{
			{Start: wednesday, End: wednesday.Add(time.Hour), Confidence: ptr(92.0)},
			{Start: wednesday.Add(2 * time.Hour), End: wednesday.Add(3 * time.Hour)},
		},
	}

	entry := f.readyWidget(t, "Dana", "Lee")
	before, err := f.store.Timeline(f.convID)
	require.NoError(t, err)

	entries, err := f.orch.SubmitWidget(context.Background(), f.convID, entry.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	outcome := entries[0]
	assert.Contains(t, outcome.Text, "2 available times")
	require.Len(t, outcome.Slate, 2)

	// Explicit confidence is carried; a missing one defaults.
	assert.Equal(t, 92.0, outcome.Slate[0].Confidence)
	assert.Equal(t, 90.0, outcome.Slate[1].Confidence)

	// Candidates snapshot the widget at query time.
	assert.Equal(t, []string{"Dana", "Lee"}, outcome.Slate[0].Participants)
	assert.Equal(t, "Standup", outcome.Slate[0].Headline)

	// The widget is deactivated by the submit.
	got, err := f.store.Entry(f.convID, entry.ID)
	require.NoError(t, err)
	assert.False(t, got.Widget.Active)

	// The searching placeholder is gone: exactly one entry was added.
	after, err := f.store.Timeline(f.convID)
	require.NoError(t, err)
	assert.Len(t, after, len(before)+1)
}

func TestSubmitWidget_RequestShape(t *testing.T) {
	f := newFixture(t, Options{MaxSuggestions: 4})
	f.availability.findTimesResult = &model.FindTimesResult{}

	entry := f.readyWidget(t, "Dana")
	_, err := f.orch.UpdateWidget(context.Background(), f.convID, entry.ID, WidgetUpdate{
		PriorityAttendees: []string{"Dana"},
		TimezoneHints:     map[string]string{"Dana": "Europe/Berlin"},
	})
	require.NoError(t, err)

	_, err = f.orch.SubmitWidget(context.Background(), f.convID, entry.ID)
	require.NoError(t, err)

	req := f.availability.lastFindTimes
	require.Len(t, req.Attendees, 1)
	assert.Equal(t, "Dana", req.Attendees[0].Email)
	assert.Equal(t, "Europe/Berlin", req.Attendees[0].Timezone)
	assert.Equal(t, []string{"Dana"}, req.PriorityAttendees)
	assert.Equal(t, 60, req.DurationMinutes)
	assert.Equal(t, 4, req.MaxSuggestions)
	assert.True(t, req.StartTime.Before(req.EndTime))
}

func TestSubmitWidget_Rejections(t *testing.T) {
	f := newFixture(t, Options{})

	t.Run("missing participants or headline", func(t *testing.T) {
		entry, err := f.orch.OpenWidget(context.Background(), f.convID)
		require.NoError(t, err)

		_, err = f.orch.SubmitWidget(context.Background(), f.convID, entry.ID)
		assert.ErrorIs(t, err, ErrNotSubmittable)

		// Rejection leaves the widget active for another try.
		got, err := f.store.Entry(f.convID, entry.ID)
		require.NoError(t, err)
		assert.True(t, got.Widget.Active)
	})

	t.Run("inactive widget", func(t *testing.T) {
		entry := f.readyWidget(t, "Dana")
		require.NoError(t, f.store.DeactivateWidgets(f.convID))

		_, err := f.orch.SubmitWidget(context.Background(), f.convID, entry.ID)
		assert.ErrorIs(t, err, ErrWidgetInactive)
		assert.Zero(t, f.availability.findTimesCalls)
	})

	t.Run("no widget on entry", func(t *testing.T) {
		plain := newEntryForTest(f.convID)
		require.NoError(t, f.store.Append(&plain))

		_, err := f.orch.SubmitWidget(context.Background(), f.convID, plain.ID)
		assert.ErrorIs(t, err, store.ErrNoWidget)
	})
}

func TestSubmitWidget_NoResults(t *testing.T) {
	t.Run("gateway message preferred", func(t *testing.T) {
		f := newFixture(t, Options{})
		f.availability.findTimesResult = &model.FindTimesResult{
			Message: "Everyone is out of office that week.",
		}

		entry := f.readyWidget(t, "Dana")
		entries, err := f.orch.SubmitWidget(context.Background(), f.convID, entry.ID)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "Everyone is out of office that week.", entries[0].Text)
		assert.Empty(t, entries[0].Slate)
	})

	t.Run("default explanation", func(t *testing.T) {
		f := newFixture(t, Options{})
		f.availability.findTimesResult = &model.FindTimesResult{}

		entry := f.readyWidget(t, "Dana")
		entries, err := f.orch.SubmitWidget(context.Background(), f.convID, entry.ID)
		require.NoError(t, err)
		assert.Contains(t, entries[0].Text, "couldn't find a slot")
	})
}

func TestSubmitWidget_GatewayFailure(t *testing.T) {
	f := newFixture(t, Options{})
	f.availability.findTimesErr = &gateway.Error{
		Gateway: "calendar",
		Status:  502,
		Message: "calendar backend unavailable",
	}

	entry := f.readyWidget(t, "Dana")
	entries, err := f.orch.SubmitWidget(context.Background(), f.convID, entry.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	// The failure lands as a timeline entry, not an API error.
	assert.Equal(t, "calendar backend unavailable", entries[0].Text)
	assert.Empty(t, entries[0].Slate)

	// The widget stays deactivated; retrying means a fresh widget.
	got, err := f.store.Entry(f.convID, entry.ID)
	require.NoError(t, err)
	assert.False(t, got.Widget.Active)
}

func submitSlate(t *testing.T, f *fixture) model.TimelineEntry {
	t.Helper()

	f.availability.findTimesResult = &model.FindTimesResult{
		Suggestions: []model.Suggestion{
			{Start: wednesday, End: wednesday.Add(time.Hour), Confidence: ptr(92.0)},
			{Start: wednesday.Add(2 * time.Hour), End: wednesday.Add(3 * time.Hour), Confidence: ptr(75.0)},
		},
	}
	widget := f.readyWidget(t, "Dana", "Lee")
	entries, err := f.orch.SubmitWidget(context.Background(), f.convID, widget.ID)
	require.NoError(t, err)
	require.Len(t, entries[0].Slate, 2)
	return entries[0]
}

func TestConfirmSlot_Success(t *testing.T) {
	f := newFixture(t, Options{ConfirmClearDelay: 10 * time.Millisecond})
	f.directory.users = []model.DirectoryUser{
		{DisplayName: "Dana", Email: "dana@example.com"},
		{DisplayName: "Lee", Email: "lee@example.com"},
	}
	f.meetings.event = &model.Event{
		ID:        "evt1",
		Subject:   "Standup",
		Start:     wednesday,
		End:       wednesday.Add(time.Hour),
		IsOnline:  true,
		OnlineURL: "https://meet.example.com/evt1",
	}

	slateEntry := submitSlate(t, f)
	chosen := slateEntry.Slate[0]

	entries, err := f.orch.ConfirmSlot(context.Background(), "alice", f.convID, slateEntry.ID, chosen.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	assert.Contains(t, entries[0].Text, `"Standup" is booked`)
	assert.Contains(t, entries[0].Text, "https://meet.example.com/evt1")

	// Display names were resolved through the directory.
	require.Equal(t, 1, f.meetings.calls)
	assert.Equal(t, []string{"dana@example.com", "lee@example.com"}, f.meetings.last.Attendees)
	assert.Equal(t, "Standup", f.meetings.last.Subject)
	assert.True(t, f.meetings.last.IsOnline)

	// The scheduled event was published.
	require.Len(t, f.events.scheduled, 1)
	assert.Equal(t, "evt1", f.events.scheduled[0].ID)

	// The collapsed slate clears shortly after confirmation.
	require.Eventually(t, func() bool {
		e, err := f.store.Entry(f.convID, slateEntry.ID)
		return err == nil && len(e.Slate) == 0
	}, time.Second, 5*time.Millisecond)
}

func TestConfirmSlot_CollapsesBeforeCreation(t *testing.T) {
	f := newFixture(t, Options{ConfirmClearDelay: time.Hour})
	f.meetings.event = &model.Event{ID: "evt1", Subject: "Standup", Start: wednesday, End: wednesday.Add(time.Hour)}

	slateEntry := submitSlate(t, f)
	chosen := slateEntry.Slate[1]

	_, err := f.orch.ConfirmSlot(context.Background(), "alice", f.convID, slateEntry.ID, chosen.ID)
	require.NoError(t, err)

	// With a long clear delay the collapsed slate is still observable.
	e, err := f.store.Entry(f.convID, slateEntry.ID)
	require.NoError(t, err)
	require.Len(t, e.Slate, 1)
	assert.Equal(t, chosen.ID, e.Slate[0].ID)
}

// Meeting creation failing after the collapse does not restore the
// siblings; the user is told and starts a fresh attempt for new options.
func TestConfirmSlot_NoRollbackOnFailure(t *testing.T) {
	f := newFixture(t, Options{ConfirmClearDelay: time.Hour})
	f.meetings.err = &gateway.Error{Gateway: "calendar", Status: 500, Message: "could not write the event"}

	slateEntry := submitSlate(t, f)
	chosen := slateEntry.Slate[0]

	entries, err := f.orch.ConfirmSlot(context.Background(), "alice", f.convID, slateEntry.ID, chosen.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "could not write the event", entries[0].Text)

	// The slate stays collapsed to the chosen candidate.
	e, err := f.store.Entry(f.convID, slateEntry.ID)
	require.NoError(t, err)
	require.Len(t, e.Slate, 1)
	assert.Equal(t, chosen.ID, e.Slate[0].ID)

	assert.Empty(t, f.events.scheduled)
}

func TestConfirmSlot_UnknownCandidate(t *testing.T) {
	f := newFixture(t, Options{})

	slateEntry := submitSlate(t, f)
	_, err := f.orch.ConfirmSlot(context.Background(), "alice", f.convID, slateEntry.ID, "nope")
	assert.ErrorIs(t, err, store.ErrCandidateNotFound)
	assert.Zero(t, f.meetings.calls)
}

func TestConfirmSlot_DirectoryFallback(t *testing.T) {
	testCases := []struct {
		name      string
		directory *fakeDirectory
		want      []string
	}{
		{
			name:      "directory error falls back to display names",
			directory: &fakeDirectory{err: errors.New("directory down")},
			want:      []string{"Dana", "Lee"},
		},
		{
			name:      "empty directory falls back to display names",
			directory: &fakeDirectory{},
			want:      []string{"Dana", "Lee"},
		},
		{
			name: "unknown names pass through",
			directory: &fakeDirectory{users: []model.DirectoryUser{
				{DisplayName: "Dana", Email: "dana@example.com"},
			}},
			want: []string{"dana@example.com", "Lee"},
		},
		{
			name: "matching is case-insensitive",
			directory: &fakeDirectory{users: []model.DirectoryUser{
				{DisplayName: "DANA", Email: "dana@example.com"},
				{DisplayName: "lee ", Email: "lee@example.com"},
			}},
			want: []string{"dana@example.com", "lee@example.com"},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t, Options{ConfirmClearDelay: time.Hour})
			f.directory = tc.directory
			f.orch.directory = tc.directory
			f.meetings.event = &model.Event{ID: "evt1", Subject: "Standup", Start: wednesday, End: wednesday.Add(time.Hour)}

			slateEntry := submitSlate(t, f)
			_, err := f.orch.ConfirmSlot(context.Background(), "alice", f.convID, slateEntry.ID, slateEntry.Slate[0].ID)
			require.NoError(t, err)
			assert.Equal(t, tc.want, f.meetings.last.Attendees)
		})
	}
}

func TestConfirmSlot_EventPublishFailureIsNotFatal(t *testing.T) {
	f := newFixture(t, Options{ConfirmClearDelay: time.Hour})
	f.meetings.event = &model.Event{ID: "evt1", Subject: "Standup", Start: wednesday, End: wednesday.Add(time.Hour)}
	f.events.err = errors.New("stream unavailable")

	slateEntry := submitSlate(t, f)
	entries, err := f.orch.ConfirmSlot(context.Background(), "alice", f.convID, slateEntry.ID, slateEntry.Slate[0].ID)
	require.NoError(t, err)
	assert.Contains(t, entries[0].Text, "booked")
}

func TestDismissWidget(t *testing.T) {
	f := newFixture(t, Options{})

	entry, err := f.orch.OpenWidget(context.Background(), f.convID)
	require.NoError(t, err)

	require.NoError(t, f.orch.DismissWidget(context.Background(), "alice", f.convID, entry.ID))

	got, err := f.store.Entry(f.convID, entry.ID)
	require.NoError(t, err)
	assert.False(t, got.Widget.Active)
	assert.Equal(t, []string{entry.ID}, f.events.dismissed)

	t.Run("entry without widget", func(t *testing.T) {
		plain := newEntryForTest(f.convID)
		require.NoError(t, f.store.Append(&plain))
		err := f.orch.DismissWidget(context.Background(), "alice", f.convID, plain.ID)
		assert.ErrorIs(t, err, store.ErrNoWidget)
	})
}

func TestConfirmationText(t *testing.T) {
	event := &model.Event{
		Subject: "Standup",
		Start:   time.Date(2024, 6, 17, 15, 0, 0, 0, time.UTC),
		End:     time.Date(2024, 6, 17, 16, 0, 0, 0, time.UTC),
	}

	text := confirmationText(event, 2)
	assert.Contains(t, text, `"Standup"`)
	assert.Contains(t, text, "Monday, Jun 17 at 3:00 PM")
	assert.Contains(t, text, "2 participants")
	assert.NotContains(t, text, "Join link")

	event.OnlineURL = "https://meet.example.com/x"
	assert.True(t, strings.HasSuffix(confirmationText(event, 1), "Join link: https://meet.example.com/x"))
	assert.Contains(t, confirmationText(event, 1), "1 participant.")
}

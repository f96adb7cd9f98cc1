package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go/jetstream"

	"github.com/gruve-ai/scheduling-assistant/internal/model"
)

const (
	// StreamName is the name of the scheduling events stream.
	StreamName = "SCHEDULING"

	// SubjectPrefix is the prefix for all scheduling subjects.
	SubjectPrefix = "sched"
)

// Publisher emits scheduling lifecycle events onto JetStream. Downstream
// consumers drive the upcoming-meeting surface from it.
type Publisher struct {
	client *Client
}

// NewPublisher creates a new event publisher.
func NewPublisher(client *Client) *Publisher {
	return &Publisher{client: client}
}

// EnsureStream ensures the scheduling stream exists with proper configuration.
func (p *Publisher) EnsureStream(ctx context.Context) error {
	js := p.client.JetStream()

	// Check if stream exists
	_, err := js.Stream(ctx, StreamName)
	if err == nil {
		return nil
	}

	_, err = js.CreateStream(ctx, jetstream.StreamConfig{
		Name:        StreamName,
		Subjects:    []string{fmt.Sprintf("%s.>", SubjectPrefix)},
		Retention:   jetstream.LimitsPolicy,
		MaxAge:      90 * 24 * time.Hour,
		Storage:     jetstream.FileStorage,
		Replicas:    1,
		Compression: jetstream.S2Compression,
		Description: "Scheduling lifecycle events",
	})
	if err != nil {
		return fmt.Errorf("failed to create stream: %w", err)
	}

	return nil
}

// MeetingSubject returns the subject for a scheduled-meeting event.
func MeetingSubject(userID, conversationID string) string {
	return fmt.Sprintf("%s.%s.%s.meeting.scheduled", SubjectPrefix, userID, conversationID)
}

// WidgetSubject returns the subject for a widget-dismissed event.
func WidgetSubject(userID, conversationID string) string {
	return fmt.Sprintf("%s.%s.%s.widget.dismissed", SubjectPrefix, userID, conversationID)
}

// MeetingScheduled publishes the created meeting, once per confirmation.
func (p *Publisher) MeetingScheduled(ctx context.Context, userID, conversationID string, meeting model.ScheduledMeeting) error {
	return p.publish(ctx, MeetingSubject(userID, conversationID), meeting)
}

// WidgetDismissed publishes an explicit widget close without submission.
func (p *Publisher) WidgetDismissed(ctx context.Context, userID, conversationID, entryID string) error {
	return p.publish(ctx, WidgetSubject(userID, conversationID), model.WidgetDismissed{
		ConversationID: conversationID,
		EntryID:        entryID,
		DismissedAt:    time.Now(),
	})
}

func (p *Publisher) publish(ctx context.Context, subject string, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if _, err := p.client.JetStream().Publish(ctx, subject, data); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}

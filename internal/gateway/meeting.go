package gateway

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gruve-ai/scheduling-assistant/internal/model"
)

// MeetingClient talks to the calendar service's meeting-creation endpoint.
type MeetingClient struct {
	client
}

// NewMeetingClient creates a meeting gateway client.
func NewMeetingClient(baseURL string, timeout time.Duration) *MeetingClient {
	return &MeetingClient{client: newClient("meeting", baseURL, timeout)}
}

// CreateMeeting creates a calendar meeting and returns the canonical event.
func (c *MeetingClient) CreateMeeting(ctx context.Context, req model.CreateMeetingRequest) (*model.Event, error) {
	var result struct {
		Message string       `json:"message"`
		Event   *model.Event `json:"event"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/calendar/meetings", req, &result); err != nil {
		return nil, err
	}
	if result.Event == nil {
		return nil, fmt.Errorf("meeting gateway returned no event")
	}
	return result.Event, nil
}

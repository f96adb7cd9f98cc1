package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/gruve-ai/scheduling-assistant/internal/model"
)

// AvailabilityClient talks to the calendar service's find-times and
// free/busy endpoints.
type AvailabilityClient struct {
	client
}

// NewAvailabilityClient creates an availability gateway client.
func NewAvailabilityClient(baseURL string, timeout time.Duration) *AvailabilityClient {
	return &AvailabilityClient{client: newClient("availability", baseURL, timeout)}
}

// FindTimes requests ranked meeting-time suggestions for a set of attendees.
func (c *AvailabilityClient) FindTimes(ctx context.Context, req model.FindTimesRequest) (*model.FindTimesResult, error) {
	var result model.FindTimesResult
	if err := c.do(ctx, http.MethodPost, "/api/calendar/findTimes", req, &result); err != nil {
		return nil, err
	}
	if result.Suggestions == nil {
		result.Suggestions = []model.Suggestion{}
	}
	return &result, nil
}

// CheckAvailability fetches the free/busy breakdown for one user.
func (c *AvailabilityClient) CheckAvailability(ctx context.Context, email string, start, end time.Time) (*model.Availability, error) {
	body := struct {
		Email     string    `json:"email"`
		StartTime time.Time `json:"startTime"`
		EndTime   time.Time `json:"endTime"`
	}{Email: email, StartTime: start, EndTime: end}

	var result model.Availability
	if err := c.do(ctx, http.MethodPost, "/api/calendar/availability", body, &result); err != nil {
		return nil, err
	}
	if result.FreeSlots == nil {
		result.FreeSlots = []model.TimeSlot{}
	}
	if result.BusySlots == nil {
		result.BusySlots = []model.TimeSlot{}
	}
	return &result, nil
}

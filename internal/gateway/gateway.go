// Package gateway provides typed HTTP clients for the external calendar,
// meeting-creation, and directory services. Response shapes are explicit
// structs; arrays missing on the wire decode to empty, never to an error.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gruve-ai/scheduling-assistant/internal/model"
	"github.com/gruve-ai/scheduling-assistant/pkg/metrics"
)

// Availability is the availability-service surface the orchestrator consumes.
type Availability interface {
	FindTimes(ctx context.Context, req model.FindTimesRequest) (*model.FindTimesResult, error)
	CheckAvailability(ctx context.Context, email string, start, end time.Time) (*model.Availability, error)
}

// Meetings creates calendar meetings.
type Meetings interface {
	CreateMeeting(ctx context.Context, req model.CreateMeetingRequest) (*model.Event, error)
}

// Directory resolves display names to email addresses, in bulk.
type Directory interface {
	Users(ctx context.Context) ([]model.DirectoryUser, error)
}

// Error is a non-success response from a gateway. Message carries the
// gateway's own error text when the body provided one.
type Error struct {
	Gateway string
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s gateway returned %d: %s", e.Gateway, e.Status, e.Message)
	}
	return fmt.Sprintf("%s gateway returned %d", e.Gateway, e.Status)
}

type client struct {
	name    string
	baseURL string
	http    *http.Client
}

func newClient(name, baseURL string, timeout time.Duration) client {
	return client{
		name:    name,
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// do issues one JSON request and decodes the response into out. Non-2xx
// responses become *Error with the body's error text when present.
func (c client) do(ctx context.Context, method, path string, body, out any) error {
	start := time.Now()

	var reader *bytes.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal %s request: %w", c.name, err)
		}
		reader = bytes.NewReader(data)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to build %s request: %w", c.name, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		metrics.RecordGatewayCall(c.name, "transport_error", time.Since(start).Seconds())
		return fmt.Errorf("%s gateway unreachable: %w", c.name, err)
	}
	defer resp.Body.Close()

	metrics.RecordGatewayCall(c.name, fmt.Sprintf("%d", resp.StatusCode), time.Since(start).Seconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errBody struct {
			Error   string `json:"error"`
			Details string `json:"details"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&errBody)
		msg := errBody.Error
		if msg == "" {
			msg = errBody.Details
		}
		return &Error{Gateway: c.name, Status: resp.StatusCode, Message: msg}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", c.name, err)
	}
	return nil
}

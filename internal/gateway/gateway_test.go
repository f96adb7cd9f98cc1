package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gruve-ai/scheduling-assistant/internal/model"
)

func TestAvailabilityClient_FindTimes(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/calendar/findTimes", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req model.FindTimesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 30, req.DurationMinutes)

		json.NewEncoder(w).Encode(map[string]any{
			"suggestions": []map[string]any{
				{"start": "2024-06-12T15:00:00Z", "end": "2024-06-12T15:30:00Z", "confidence": 88},
			},
		})
	}))
	defer srv.Close()

	c := NewAvailabilityClient(srv.URL, time.Second)
	result, err := c.FindTimes(context.Background(), model.FindTimesRequest{
		Attendees:       []model.Attendee{{Email: "dana@example.com"}},
		DurationMinutes: 30,
	})
	require.NoError(t, err)
	require.Len(t, result.Suggestions, 1)
	require.NotNil(t, result.Suggestions[0].Confidence)
	assert.Equal(t, 88.0, *result.Suggestions[0].Confidence)
}

// A response without a suggestions array decodes to an empty slice, never nil.
func TestAvailabilityClient_FindTimes_MissingArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"message": "nothing fits"})
	}))
	defer srv.Close()

	c := NewAvailabilityClient(srv.URL, time.Second)
	result, err := c.FindTimes(context.Background(), model.FindTimesRequest{})
	require.NoError(t, err)
	assert.NotNil(t, result.Suggestions)
	assert.Empty(t, result.Suggestions)
	assert.Equal(t, "nothing fits", result.Message)
}

func TestAvailabilityClient_CheckAvailability_Defaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/calendar/availability", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{"totalFreeTimeMinutes": 120})
	}))
	defer srv.Close()

	c := NewAvailabilityClient(srv.URL, time.Second)
	avail, err := c.CheckAvailability(context.Background(), "alice@example.com",
		time.Now(), time.Now().Add(time.Hour))
	require.NoError(t, err)
	assert.NotNil(t, avail.FreeSlots)
	assert.NotNil(t, avail.BusySlots)
	assert.Equal(t, 120, avail.TotalFreeMinutes)
}

func TestClient_ErrorBody(t *testing.T) {
	testCases := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"error field", http.StatusBadGateway, `{"error":"backend down"}`, "backend down"},
		{"details fallback", http.StatusInternalServerError, `{"details":"boom"}`, "boom"},
		{"no body", http.StatusServiceUnavailable, ``, ""},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tc.status)
				w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c := NewAvailabilityClient(srv.URL, time.Second)
			_, err := c.FindTimes(context.Background(), model.FindTimesRequest{})
			require.Error(t, err)

			var gerr *Error
			require.True(t, errors.As(err, &gerr))
			assert.Equal(t, "availability", gerr.Gateway)
			assert.Equal(t, tc.status, gerr.Status)
			assert.Equal(t, tc.wantMsg, gerr.Message)
		})
	}
}

func TestMeetingClient_CreateMeeting(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/calendar/meetings", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"message": "created",
			"event": map[string]any{
				"id":        "evt1",
				"subject":   "Standup",
				"isOnline":  true,
				"onlineUrl": "https://meet.example.com/evt1",
			},
		})
	}))
	defer srv.Close()

	c := NewMeetingClient(srv.URL, time.Second)
	event, err := c.CreateMeeting(context.Background(), model.CreateMeetingRequest{Subject: "Standup"})
	require.NoError(t, err)
	assert.Equal(t, "evt1", event.ID)
	assert.Equal(t, "https://meet.example.com/evt1", event.OnlineURL)
}

func TestMeetingClient_CreateMeeting_NoEvent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"message": "accepted"})
	}))
	defer srv.Close()

	c := NewMeetingClient(srv.URL, time.Second)
	_, err := c.CreateMeeting(context.Background(), model.CreateMeetingRequest{})
	assert.Error(t, err)
}

func TestDirectoryClient_Users(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/graph/users", r.URL.Path)
		json.NewEncoder(w).Encode([]map[string]any{
			{"displayName": "Dana", "mail": "dana@example.com"},
			{"displayName": "Lee", "email": "lee@example.com"},
			{"displayName": "Kim", "userPrincipalName": "kim@example.com"},
			{"displayName": "NoEmail"},
			{"mail": "orphan@example.com"},
		})
	}))
	defer srv.Close()

	c := NewDirectoryClient(srv.URL, time.Second)
	users, err := c.Users(context.Background())
	require.NoError(t, err)

	// Incomplete entries are dropped; mail wins over the other email fields.
	assert.Equal(t, []model.DirectoryUser{
		{DisplayName: "Dana", Email: "dana@example.com"},
		{DisplayName: "Lee", Email: "lee@example.com"},
		{DisplayName: "Kim", Email: "kim@example.com"},
	}, users)
}

func TestClient_Unreachable(t *testing.T) {
	c := NewAvailabilityClient("http://127.0.0.1:1", 100*time.Millisecond)
	_, err := c.FindTimes(context.Background(), model.FindTimesRequest{})
	require.Error(t, err)

	var gerr *Error
	assert.False(t, errors.As(err, &gerr), "transport failures are not gateway errors")
}

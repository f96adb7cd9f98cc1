package orchestrator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gruve-ai/scheduling-assistant/internal/model"
)

// Wednesday, 2024-06-12 14:30 UTC.
var wednesday = time.Date(2024, 6, 12, 14, 30, 0, 0, time.UTC)

func TestResolveDateRange_Today(t *testing.T) {
	start, end, err := ResolveDateRange(wednesday, model.RangeToday)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 6, 12, 23, 59, 59, 999_000_000, time.UTC), end)
}

func TestResolveDateRange_Tomorrow(t *testing.T) {
	start, end, err := ResolveDateRange(wednesday, model.RangeTomorrow)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 6, 13, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2024, 6, 13, 23, 59, 59, 999_000_000, time.UTC), end)
}

// "This week" is a rolling window anchored at the current instant, not a
// calendar week.
func TestResolveDateRange_ThisWeek(t *testing.T) {
	start, end, err := ResolveDateRange(wednesday, model.RangeThisWeek)
	require.NoError(t, err)

	assert.Equal(t, wednesday, start)
	assert.Equal(t, wednesday.Add(7*24*time.Hour), end)
}

func TestResolveDateRange_NextWeek(t *testing.T) {
	testCases := []struct {
		name      string
		now       time.Time
		wantStart time.Time
	}{
		{
			name:      "from a Wednesday",
			now:       wednesday,
			wantStart: time.Date(2024, 6, 17, 0, 0, 0, 0, time.UTC),
		},
		{
			// Sunday resolves to tomorrow, not eight days out.
			name:      "from a Sunday",
			now:       time.Date(2024, 6, 16, 10, 0, 0, 0, time.UTC),
			wantStart: time.Date(2024, 6, 17, 0, 0, 0, 0, time.UTC),
		},
		{
			// A Monday resolves to the following Monday, never today.
			name:      "from a Monday",
			now:       time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC),
			wantStart: time.Date(2024, 6, 17, 0, 0, 0, 0, time.UTC),
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			start, end, err := ResolveDateRange(tc.now, model.RangeNextWeek)
			require.NoError(t, err)

			assert.Equal(t, time.Monday, start.Weekday())
			assert.Equal(t, tc.wantStart, start)

			// The window always closes the following Sunday at end of day.
			assert.Equal(t, time.Sunday, end.Weekday())
			assert.Equal(t, tc.wantStart.AddDate(0, 0, 6).Add(24*time.Hour-time.Millisecond), end)
		})
	}
}

func TestResolveDateRange_Unknown(t *testing.T) {
	_, _, err := ResolveDateRange(wednesday, model.DateRangeChoice("fortnight"))
	assert.Error(t, err)
}

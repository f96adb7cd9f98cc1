package orchestrator

import (
	"fmt"
	"time"

	"github.com/gruve-ai/scheduling-assistant/internal/model"
)

// ResolveDateRange turns a canned range choice into concrete instants.
// Resolution happens at submit time, so "today" means today relative to the
// submission, not relative to when the choice was first made.
//
//   - today:     midnight through 23:59:59.999 of the current day
//   - tomorrow:  the same window one calendar day later
//   - this-week: a rolling window, now through now+7d
//   - next-week: next Monday 00:00:00 through the following Sunday
//     23:59:59.999, where next Monday is tomorrow if today is Sunday, else
//     the next occurrence of Monday strictly after today
func ResolveDateRange(now time.Time, choice model.DateRangeChoice) (time.Time, time.Time, error) {
	switch choice {
	case model.RangeToday:
		return startOfDay(now), endOfDay(now), nil
	case model.RangeTomorrow:
		tomorrow := now.AddDate(0, 0, 1)
		return startOfDay(tomorrow), endOfDay(tomorrow), nil
	case model.RangeThisWeek:
		return now, now.Add(7 * 24 * time.Hour), nil
	case model.RangeNextWeek:
		monday := nextMonday(now)
		return startOfDay(monday), endOfDay(monday.AddDate(0, 0, 6)), nil
	default:
		return time.Time{}, time.Time{}, fmt.Errorf("unknown date range %q", choice)
	}
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

func endOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 23, 59, 59, 999_000_000, t.Location())
}

func nextMonday(now time.Time) time.Time {
	days := (int(time.Monday) - int(now.Weekday()) + 7) % 7
	if days == 0 {
		days = 7
	}
	return now.AddDate(0, 0, days)
}

package orchestrator

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/gruve-ai/scheduling-assistant/internal/model"
	"github.com/gruve-ai/scheduling-assistant/pkg/metrics"
)

const (
	maxFreeListed       = 5
	maxBusyListed       = 3
	maxSuggestionsShown = 3
	quickActionDuration = 60
)

// RunQuickAction answers a canned availability check. It never touches any
// widget or slate; whatever happens, exactly one assistant entry lands on
// the timeline.
func (o *Orchestrator) RunQuickAction(ctx context.Context, conversationID string, id model.Identity, rng model.DateRangeChoice, attendees []string) (model.TimelineEntry, error) {
	if !id.Resolvable() {
		metrics.QuickActionsTotal.WithLabelValues(string(rng), "auth_gap").Inc()
		return o.appendQuickEntry(conversationID,
			"I can't check your calendar because your session doesn't identify you. "+
				"Please sign in again and retry.")
	}

	start, end, err := ResolveDateRange(o.now(), rng)
	if err != nil {
		return model.TimelineEntry{}, err
	}

	avail, err := o.availability.CheckAvailability(ctx, id.Email, start, end)
	if err != nil {
		o.logger.Warn("quick availability check failed",
			zap.String("conversation_id", conversationID), zap.Error(err))
		metrics.QuickActionsTotal.WithLabelValues(string(rng), "error").Inc()
		return o.appendQuickEntry(conversationID, gatewayMessage(err,
			"I couldn't check your availability right now. Please try again."))
	}

	var suggestions []model.Suggestion
	if len(attendees) > 0 {
		combined := make([]model.Attendee, 0, len(attendees)+1)
		combined = append(combined, model.Attendee{Email: id.Email})
		for _, a := range attendees {
			combined = append(combined, model.Attendee{Email: a})
		}
		result, ferr := o.availability.FindTimes(ctx, model.FindTimesRequest{
			Attendees:       combined,
			DurationMinutes: quickActionDuration,
			StartTime:       start,
			EndTime:         end,
			MaxSuggestions:  maxSuggestionsShown,
		})
		if ferr != nil {
			// The personal free/busy answer stands on its own.
			o.logger.Warn("group suggestions unavailable", zap.Error(ferr))
		} else {
			suggestions = result.Suggestions
		}
	}

	metrics.QuickActionsTotal.WithLabelValues(string(rng), "ok").Inc()
	return o.appendQuickEntry(conversationID, quickSummary(rng, avail, suggestions))
}

func (o *Orchestrator) appendQuickEntry(conversationID, text string) (model.TimelineEntry, error) {
	entry := o.newEntry(conversationID, model.AuthorAssistant, text)
	if err := o.store.Append(&entry); err != nil {
		return model.TimelineEntry{}, err
	}
	return entry, nil
}

func quickSummary(rng model.DateRangeChoice, avail *model.Availability, suggestions []model.Suggestion) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Here's your availability for %s:\n\n", rangeLabel(rng))

	fmt.Fprintf(&b, "Free: %d block%s", len(avail.FreeSlots), plural(len(avail.FreeSlots)))
	for i, slot := range avail.FreeSlots {
		if i == maxFreeListed {
			break
		}
		fmt.Fprintf(&b, "\n  - %s to %s", slot.Start.Format("Mon 3:04 PM"), slot.End.Format("3:04 PM"))
	}

	fmt.Fprintf(&b, "\n\nBusy: %d block%s", len(avail.BusySlots), plural(len(avail.BusySlots)))
	for i, slot := range avail.BusySlots {
		if i == maxBusyListed {
			break
		}
		fmt.Fprintf(&b, "\n  - %s to %s", slot.Start.Format("Mon 3:04 PM"), slot.End.Format("3:04 PM"))
	}

	if len(suggestions) > 0 {
		b.WriteString("\n\nBest times for the whole group:")
		for i, s := range suggestions {
			if i == maxSuggestionsShown {
				break
			}
			fmt.Fprintf(&b, "\n  - %s to %s", s.Start.Format("Mon 3:04 PM"), s.End.Format("3:04 PM"))
		}
	}

	fmt.Fprintf(&b, "\n\nTotal free: %s. Total busy: %s.",
		formatMinutes(avail.TotalFreeMinutes), formatMinutes(avail.TotalBusyMinutes))

	return b.String()
}

func rangeLabel(rng model.DateRangeChoice) string {
	switch rng {
	case model.RangeToday:
		return "today"
	case model.RangeTomorrow:
		return "tomorrow"
	case model.RangeThisWeek:
		return "this week"
	case model.RangeNextWeek:
		return "next week"
	default:
		return string(rng)
	}
}

func formatMinutes(minutes int) string {
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	if minutes%60 == 0 {
		return fmt.Sprintf("%dh", minutes/60)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

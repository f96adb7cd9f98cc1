package orchestrator

import (
	"time"

	"github.com/gruve-ai/scheduling-assistant/internal/store"
)

// searchFrames are the status strings cycled through while an availability
// query is in flight.
var searchFrames = []string{
	"Checking calendars...",
	"Comparing time zones...",
	"Scoring candidate times...",
	"Picking the best options...",
}

const holdTicks = 10

type twPhase int

const (
	phaseTyping twPhase = iota
	phaseHolding
	phaseErasing
)

// typewriter produces the character-by-character reveal/hold/erase cycle
// over a fixed list of frames, wrapping around indefinitely. It is purely
// cosmetic and carries no state that outlives the search.
type typewriter struct {
	frames []string
	frame  int
	pos    int
	phase  twPhase
	hold   int
}

func newTypewriter(frames []string) *typewriter {
	return &typewriter{frames: frames}
}

// next advances the animation one tick and returns the text to display.
func (t *typewriter) next() string {
	current := t.frames[t.frame]

	switch t.phase {
	case phaseTyping:
		t.pos++
		if t.pos >= len(current) {
			t.pos = len(current)
			t.phase = phaseHolding
			t.hold = holdTicks
		}
	case phaseHolding:
		t.hold--
		if t.hold <= 0 {
			t.phase = phaseErasing
		}
	case phaseErasing:
		t.pos--
		if t.pos <= 0 {
			t.pos = 0
			t.phase = phaseTyping
			t.frame = (t.frame + 1) % len(t.frames)
		}
	}

	return t.frames[t.frame][:t.pos]
}

// animator drives a typewriter against a placeholder entry on a ticker.
// It is owned by the Searching state: Stop must be called when the gateway
// call settles, before the placeholder is removed, so no tick mutates an
// entry that is already gone.
type animator struct {
	stop chan struct{}
	done chan struct{}
}

func startAnimator(s *store.ConversationStore, conversationID, entryID string, interval time.Duration) *animator {
	a := &animator{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	tw := newTypewriter(searchFrames)

	go func() {
		defer close(a.done)
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-a.stop:
				return
			case <-ticker.C:
				if err := s.SetEntryText(conversationID, entryID, tw.next()); err != nil {
					return
				}
			}
		}
	}()

	return a
}

// Stop cancels the animation and waits for the last tick to finish.
func (a *animator) Stop() {
	close(a.stop)
	<-a.done
}

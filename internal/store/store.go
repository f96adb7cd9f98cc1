// Package store holds the in-memory conversation state. The timeline is an
// append-only sequence with a small set of targeted mutations; the single
// active widget and all-or-nothing slate guarantees are enforced here, not
// left to callers.
package store

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/gruve-ai/scheduling-assistant/internal/model"
	"github.com/gruve-ai/scheduling-assistant/pkg/metrics"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrEntryNotFound        = errors.New("entry not found")
	ErrNoWidget             = errors.New("entry has no widget")
	ErrNoSlate              = errors.New("entry has no slate")
	ErrCandidateNotFound    = errors.New("slot candidate not found")
)

type conversation struct {
	summary model.Conversation
	entries []*model.TimelineEntry
}

// ConversationStore is the in-memory conversation state. Every mutation and
// read holds the store lock, so no intermediate state is observable.
type ConversationStore struct {
	mu            sync.RWMutex
	conversations map[string]*conversation
	activeWidgets int
}

// New creates an empty conversation store.
func New() *ConversationStore {
	return &ConversationStore{
		conversations: make(map[string]*conversation),
	}
}

// CreateConversation creates a new conversation owned by userID.
func (s *ConversationStore) CreateConversation(userID, title string) model.Conversation {
	now := time.Now()
	conv := &conversation{
		summary: model.Conversation{
			ID:        uuid.Must(uuid.NewV7()).String(),
			UserID:    userID,
			Title:     title,
			CreatedAt: now,
			UpdatedAt: now,
		},
	}

	s.mu.Lock()
	s.conversations[conv.summary.ID] = conv
	s.mu.Unlock()

	return conv.summary
}

// GetConversation retrieves a conversation summary, scoped to its owner.
func (s *ConversationStore) GetConversation(userID, conversationID string) (model.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[conversationID]
	if !ok || conv.summary.UserID != userID {
		return model.Conversation{}, ErrConversationNotFound
	}

	summary := conv.summary
	summary.EntryCount = len(conv.entries)
	return summary, nil
}

// ListConversations retrieves all conversations owned by userID.
func (s *ConversationStore) ListConversations(userID string) []model.Conversation {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []model.Conversation
	for _, conv := range s.conversations {
		if conv.summary.UserID != userID {
			continue
		}
		summary := conv.summary
		summary.EntryCount = len(conv.entries)
		out = append(out, summary)
	}
	return out
}

// Timeline returns a copy of the ordered timeline for a conversation.
func (s *ConversationStore) Timeline(conversationID string) ([]model.TimelineEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return nil, ErrConversationNotFound
	}

	out := make([]model.TimelineEntry, len(conv.entries))
	for i, e := range conv.entries {
		out[i] = copyEntry(e)
	}
	return out, nil
}

// Entry returns a copy of one timeline entry.
func (s *ConversationStore) Entry(conversationID, entryID string) (model.TimelineEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, err := s.findEntry(conversationID, entryID)
	if err != nil {
		return model.TimelineEntry{}, err
	}
	return copyEntry(e), nil
}

// Append adds an entry to the end of the timeline. If the entry carries an
// active widget, every other widget in the conversation is deactivated in
// the same critical section, so a reader never observes two active widgets.
// A slate is stored whole: the entry either has all its candidates or none.
func (s *ConversationStore) Append(entry *model.TimelineEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[entry.ConversationID]
	if !ok {
		return ErrConversationNotFound
	}

	stored := copyEntry(entry)
	if stored.Widget != nil && stored.Widget.Active {
		s.deactivateLocked(conv)
		s.activeWidgets++
		metrics.ActiveWidgets.Set(float64(s.activeWidgets))
	}

	conv.entries = append(conv.entries, &stored)
	conv.summary.UpdatedAt = time.Now()
	metrics.MessagesTotal.WithLabelValues(string(stored.Author)).Inc()
	return nil
}

// SetEntryText overwrites an entry's display text. Used by the searching
// placeholder animator; content of settled entries is never rewritten.
func (s *ConversationStore) SetEntryText(conversationID, entryID, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.findEntry(conversationID, entryID)
	if err != nil {
		return err
	}
	e.Text = text
	return nil
}

// RemoveEntry deletes an entry. Only searching placeholders are removed.
func (s *ConversationStore) RemoveEntry(conversationID, entryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return ErrConversationNotFound
	}

	for i, e := range conv.entries {
		if e.ID == entryID {
			conv.entries = append(conv.entries[:i], conv.entries[i+1:]...)
			return nil
		}
	}
	return ErrEntryNotFound
}

// UpdateWidget applies fn to an entry's widget under the store lock.
func (s *ConversationStore) UpdateWidget(conversationID, entryID string, fn func(*model.SchedulingWidget) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.findEntry(conversationID, entryID)
	if err != nil {
		return err
	}
	if e.Widget == nil {
		return ErrNoWidget
	}
	return fn(e.Widget)
}

// DeactivateWidgets marks every widget in the conversation inactive.
func (s *ConversationStore) DeactivateWidgets(conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.conversations[conversationID]
	if !ok {
		return ErrConversationNotFound
	}
	s.deactivateLocked(conv)
	return nil
}

// CollapseSlate shrinks an entry's slate to the single kept candidate. This
// is the optimistic step of the confirmation protocol: siblings disappear
// before the meeting-creation call resolves and are not restored if it fails.
func (s *ConversationStore) CollapseSlate(conversationID, entryID, keepCandidateID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.findEntry(conversationID, entryID)
	if err != nil {
		return err
	}
	if len(e.Slate) == 0 {
		return ErrNoSlate
	}

	for _, c := range e.Slate {
		if c.ID == keepCandidateID {
			e.Slate = []model.SlotCandidate{c}
			return nil
		}
	}
	return ErrCandidateNotFound
}

// ClearSlate removes an entry's slate entirely. The entry itself stays.
func (s *ConversationStore) ClearSlate(conversationID, entryID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, err := s.findEntry(conversationID, entryID)
	if err != nil {
		return err
	}
	e.Slate = nil
	return nil
}

func (s *ConversationStore) deactivateLocked(conv *conversation) {
	for _, e := range conv.entries {
		if e.Widget != nil && e.Widget.Active {
			e.Widget.Active = false
			s.activeWidgets--
		}
	}
	metrics.ActiveWidgets.Set(float64(s.activeWidgets))
}

func (s *ConversationStore) findEntry(conversationID, entryID string) (*model.TimelineEntry, error) {
	conv, ok := s.conversations[conversationID]
	if !ok {
		return nil, ErrConversationNotFound
	}
	for _, e := range conv.entries {
		if e.ID == entryID {
			return e, nil
		}
	}
	return nil, ErrEntryNotFound
}

func copyEntry(e *model.TimelineEntry) model.TimelineEntry {
	out := *e
	if e.Widget != nil {
		w := *e.Widget
		w.Participants = append([]string(nil), e.Widget.Participants...)
		w.PriorityAttendees = append([]string(nil), e.Widget.PriorityAttendees...)
		if e.Widget.TimezoneHints != nil {
			w.TimezoneHints = make(map[string]string, len(e.Widget.TimezoneHints))
			for k, v := range e.Widget.TimezoneHints {
				w.TimezoneHints[k] = v
			}
		}
		out.Widget = &w
	}
	if e.Slate != nil {
		out.Slate = make([]model.SlotCandidate, len(e.Slate))
		for i, c := range e.Slate {
			c.Participants = append([]string(nil), c.Participants...)
			out.Slate[i] = c
		}
	}
	return out
}

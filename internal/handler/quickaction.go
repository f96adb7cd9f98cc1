package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gruve-ai/scheduling-assistant/internal/middleware"
	"github.com/gruve-ai/scheduling-assistant/internal/model"
	"github.com/gruve-ai/scheduling-assistant/internal/orchestrator"
	"github.com/gruve-ai/scheduling-assistant/internal/store"
	"github.com/gruve-ai/scheduling-assistant/pkg/logger"
)

// QuickActionHandler handles the canned availability checks.
type QuickActionHandler struct {
	store        *store.ConversationStore
	orchestrator *orchestrator.Orchestrator
	logger       *logger.Logger
}

// NewQuickActionHandler creates a new quick action handler.
func NewQuickActionHandler(s *store.ConversationStore, o *orchestrator.Orchestrator, log *logger.Logger) *QuickActionHandler {
	return &QuickActionHandler{
		store:        s,
		orchestrator: o,
		logger:       log,
	}
}

// Run handles POST /api/v1/conversations/:id/quick-actions
func (h *QuickActionHandler) Run(w http.ResponseWriter, r *http.Request) {
	identity := middleware.GetIdentity(r.Context())
	conversationID := chi.URLParam(r, "id")

	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		Range     string   `json:"range"`
		Attendees []string `json:"attendees,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rng := model.DateRangeChoice(req.Range)
	switch rng {
	case model.RangeToday, model.RangeTomorrow, model.RangeThisWeek, model.RangeNextWeek:
	default:
		writeError(w, http.StatusBadRequest, "invalid range")
		return
	}

	if _, err := h.store.GetConversation(identity.UserID, conversationID); err != nil {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}

	entry, err := h.orchestrator.RunQuickAction(r.Context(), conversationID, identity, rng, req.Attendees)
	if err != nil {
		if errors.Is(err, store.ErrConversationNotFound) {
			writeError(w, http.StatusNotFound, "conversation not found")
			return
		}
		h.logger.Error("failed to run quick action")
		writeError(w, http.StatusInternalServerError, "failed to run quick action")
		return
	}

	writeJSON(w, http.StatusCreated, entry)
}

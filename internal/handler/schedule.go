package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/gruve-ai/scheduling-assistant/internal/middleware"
	"github.com/gruve-ai/scheduling-assistant/internal/orchestrator"
	"github.com/gruve-ai/scheduling-assistant/internal/store"
	"github.com/gruve-ai/scheduling-assistant/pkg/logger"
)

// ScheduleHandler handles the scheduling widget and slot slate endpoints.
type ScheduleHandler struct {
	store        *store.ConversationStore
	orchestrator *orchestrator.Orchestrator
	logger       *logger.Logger
}

// NewScheduleHandler creates a new schedule handler.
func NewScheduleHandler(s *store.ConversationStore, o *orchestrator.Orchestrator, log *logger.Logger) *ScheduleHandler {
	return &ScheduleHandler{
		store:        s,
		orchestrator: o,
		logger:       log,
	}
}

// OpenWidget handles POST /api/v1/conversations/:id/widget
func (h *ScheduleHandler) OpenWidget(w http.ResponseWriter, r *http.Request) {
	conversationID, ok := h.checkConversation(w, r)
	if !ok {
		return
	}

	entry, err := h.orchestrator.OpenWidget(r.Context(), conversationID)
	if err != nil {
		h.writeScheduleError(w, err, "failed to open widget")
		return
	}

	writeJSON(w, http.StatusCreated, entry)
}

// UpdateWidget handles PATCH /api/v1/conversations/:id/widget/:entryID
func (h *ScheduleHandler) UpdateWidget(w http.ResponseWriter, r *http.Request) {
	conversationID, ok := h.checkConversation(w, r)
	if !ok {
		return
	}

	entryID := chi.URLParam(r, "entryID")
	if err := middleware.ValidateEntryID(entryID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var upd orchestrator.WidgetUpdate
	if err := json.NewDecoder(r.Body).Decode(&upd); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	entry, err := h.orchestrator.UpdateWidget(r.Context(), conversationID, entryID, upd)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrConversationNotFound),
			errors.Is(err, store.ErrEntryNotFound),
			errors.Is(err, store.ErrNoWidget):
			writeError(w, http.StatusNotFound, err.Error())
		case errors.Is(err, orchestrator.ErrWidgetInactive):
			writeError(w, http.StatusConflict, err.Error())
		default:
			// Anything else out of the update callback is a field error.
			writeError(w, http.StatusBadRequest, err.Error())
		}
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

// SubmitWidget handles POST /api/v1/conversations/:id/widget/:entryID/submit
func (h *ScheduleHandler) SubmitWidget(w http.ResponseWriter, r *http.Request) {
	conversationID, ok := h.checkConversation(w, r)
	if !ok {
		return
	}

	entryID := chi.URLParam(r, "entryID")
	if err := middleware.ValidateEntryID(entryID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := h.orchestrator.SubmitWidget(r.Context(), conversationID, entryID)
	if err != nil {
		h.writeScheduleError(w, err, "failed to submit widget")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
	})
}

// DismissWidget handles DELETE /api/v1/conversations/:id/widget/:entryID
func (h *ScheduleHandler) DismissWidget(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	conversationID, ok := h.checkConversation(w, r)
	if !ok {
		return
	}

	entryID := chi.URLParam(r, "entryID")
	if err := middleware.ValidateEntryID(entryID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.orchestrator.DismissWidget(r.Context(), userID, conversationID, entryID); err != nil {
		h.writeScheduleError(w, err, "failed to dismiss widget")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "dismissed"})
}

// ConfirmSlot handles POST /api/v1/conversations/:id/slates/:entryID/confirm
func (h *ScheduleHandler) ConfirmSlot(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	conversationID, ok := h.checkConversation(w, r)
	if !ok {
		return
	}

	entryID := chi.URLParam(r, "entryID")
	if err := middleware.ValidateEntryID(entryID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		CandidateID string `json:"candidate_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.CandidateID == "" {
		writeError(w, http.StatusBadRequest, "candidate_id is required")
		return
	}

	entries, err := h.orchestrator.ConfirmSlot(r.Context(), userID, conversationID, entryID, req.CandidateID)
	if err != nil {
		h.writeScheduleError(w, err, "failed to confirm slot")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
	})
}

// checkConversation validates the conversation path param and ownership.
func (h *ScheduleHandler) checkConversation(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := middleware.GetUserID(r.Context())
	conversationID := chi.URLParam(r, "id")

	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return "", false
	}
	if _, err := h.store.GetConversation(userID, conversationID); err != nil {
		writeError(w, http.StatusNotFound, "conversation not found")
		return "", false
	}
	return conversationID, true
}

func (h *ScheduleHandler) writeScheduleError(w http.ResponseWriter, err error, fallback string) {
	switch {
	case errors.Is(err, store.ErrConversationNotFound),
		errors.Is(err, store.ErrEntryNotFound),
		errors.Is(err, store.ErrNoWidget),
		errors.Is(err, store.ErrNoSlate),
		errors.Is(err, store.ErrCandidateNotFound):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, orchestrator.ErrWidgetInactive):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, orchestrator.ErrNotSubmittable):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		h.logger.Error(fallback)
		writeError(w, http.StatusInternalServerError, fallback)
	}
}

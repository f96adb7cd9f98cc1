// Package handler provides HTTP handlers for the API.
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

// ConversationHandler handles conversation endpoints.
type ConversationHandler struct {
	store        *store.ConversationStore
	orchestrator *orchestrator.Orchestrator
	logger       *logger.Logger
}

// NewConversationHandler creates a new conversation handler.
func NewConversationHandler(s *store.ConversationStore, o *orchestrator.Orchestrator, log *logger.Logger) *ConversationHandler {
	return &ConversationHandler{
		store:        s,
		orchestrator: o,
		logger:       log,
	}
}

// Create handles POST /api/v1/conversations
func (h *ConversationHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	var req struct {
		Title string `json:"title"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := middleware.ValidateTitle(req.Title); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Title == "" {
		req.Title = "New conversation"
	}

	conv, err := h.orchestrator.StartConversation(userID, req.Title)
	if err != nil {
		h.logger.Error("failed to create conversation")
		writeError(w, http.StatusInternalServerError, "failed to create conversation")
		return
	}

	writeJSON(w, http.StatusCreated, conv)
}

// List handles GET /api/v1/conversations
func (h *ConversationHandler) List(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())

	conversations := h.store.ListConversations(userID)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"conversations": conversations,
		"total":         len(conversations),
	})
}

// Timeline handles GET /api/v1/conversations/:id/timeline
func (h *ConversationHandler) Timeline(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	conversationID := chi.URLParam(r, "id")

	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.store.GetConversation(userID, conversationID); err != nil {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}

	entries, err := h.store.Timeline(conversationID)
	if err != nil {
		if errors.Is(err, store.ErrConversationNotFound) {
			writeError(w, http.StatusNotFound, "conversation not found")
			return
		}
		h.logger.Error("failed to load timeline")
		writeError(w, http.StatusInternalServerError, "failed to load timeline")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"total":   len(entries),
	})
}

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

// MessageHandler handles free-text messages in a conversation.
type MessageHandler struct {
	store        *store.ConversationStore
	orchestrator *orchestrator.Orchestrator
	logger       *logger.Logger
}

// NewMessageHandler creates a new message handler.
func NewMessageHandler(s *store.ConversationStore, o *orchestrator.Orchestrator, log *logger.Logger) *MessageHandler {
	return &MessageHandler{
		store:        s,
		orchestrator: o,
		logger:       log,
	}
}

// Send handles POST /api/v1/conversations/:id/messages
func (h *MessageHandler) Send(w http.ResponseWriter, r *http.Request) {
	userID := middleware.GetUserID(r.Context())
	conversationID := chi.URLParam(r, "id")

	if err := middleware.ValidateConversationID(conversationID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := middleware.ValidateMessageContent(req.Text); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if _, err := h.store.GetConversation(userID, conversationID); err != nil {
		writeError(w, http.StatusNotFound, "conversation not found")
		return
	}

	entries, err := h.orchestrator.HandleMessage(r.Context(), conversationID, req.Text)
	if err != nil {
		if errors.Is(err, store.ErrConversationNotFound) {
			writeError(w, http.StatusNotFound, "conversation not found")
			return
		}
		h.logger.Error("failed to handle message")
		writeError(w, http.StatusInternalServerError, "failed to handle message")
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"entries": entries,
	})
}

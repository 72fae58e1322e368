package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/tanveerk/finhub/internal/api/middleware"
	"github.com/tanveerk/finhub/internal/chat"
	"github.com/tanveerk/finhub/internal/domain"
	"github.com/tanveerk/finhub/internal/store"
)

const conversationListLimit = 50

// AIHandler exposes the finance copilot.
type AIHandler struct {
	orchestrator *chat.Orchestrator
	store        *store.Store
	log          zerolog.Logger
}

// NewAIHandler creates a new chat handler.
func NewAIHandler(orchestrator *chat.Orchestrator, st *store.Store, log zerolog.Logger) *AIHandler {
	return &AIHandler{orchestrator: orchestrator, store: st, log: log}
}

func writeChatError(w http.ResponseWriter, status int, message string) {
	middleware.WriteJSON(w, status, map[string]interface{}{"ok": false, "error": message})
}

// Chat handles POST /api/ai/chat
func (h *AIHandler) Chat(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	var req struct {
		Message        string           `json:"message"`
		ConversationID int64            `json:"conversationId"`
		PageContext    chat.PageContext `json:"pageContext"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeChatError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	resp, err := h.orchestrator.HandleChat(r.Context(), chat.Request{
		UserID:         userID,
		ConversationID: req.ConversationID,
		Message:        req.Message,
		Page:           req.PageContext,
	})
	switch {
	case errors.Is(err, chat.ErrEmptyMessage), errors.Is(err, chat.ErrMessageTooLong):
		writeChatError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, store.ErrNotFound):
		writeChatError(w, http.StatusBadRequest, "Conversation not found")
		return
	case err != nil:
		h.log.Error().Err(err).Int64("user_id", userID).Msg("Chat turn failed")
		writeChatError(w, http.StatusInternalServerError, "Chat failed")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"ok":             true,
		"conversationId": resp.ConversationID,
		"message":        resp.Message,
	})
}

// ListConversations handles GET /api/ai/conversations
func (h *AIHandler) ListConversations(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	conversations, err := h.store.ListConversations(r.Context(), userID, conversationListLimit)
	if err != nil {
		h.log.Error().Err(err).Msg("Listing conversations failed")
		writeChatError(w, http.StatusInternalServerError, "Failed to list conversations")
		return
	}
	if conversations == nil {
		conversations = []domain.Conversation{}
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"ok":            true,
		"conversations": conversations,
	})
}

// GetMessages handles GET /api/ai/conversations/{id}/messages
func (h *AIHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.UserID(r.Context())

	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeChatError(w, http.StatusBadRequest, "Invalid conversation id")
		return
	}

	conversation, err := h.store.GetConversation(r.Context(), userID, id)
	if errors.Is(err, store.ErrNotFound) {
		writeChatError(w, http.StatusNotFound, "Conversation not found")
		return
	}
	if err != nil {
		h.log.Error().Err(err).Msg("Loading conversation failed")
		writeChatError(w, http.StatusInternalServerError, "Failed to load conversation")
		return
	}

	messages, err := h.store.GetMessages(r.Context(), id)
	if err != nil {
		h.log.Error().Err(err).Msg("Loading messages failed")
		writeChatError(w, http.StatusInternalServerError, "Failed to load messages")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"ok":           true,
		"conversation": conversation,
		"messages":     messages,
	})
}

package routes

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"storefront-agent/internal/logging"
	"storefront-agent/internal/memory"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// conversationPrefix keeps HTTP conversations apart from chat-platform ones in shared memory.
const conversationPrefix = "http:"

// Conversations is the agent surface the HTTP handlers drive.
type Conversations interface {
	Converse(ctx context.Context, conversationID, text string) string
	History(ctx context.Context, conversationID string) ([]memory.Turn, error)
	Reset(ctx context.Context, conversationID string) error
}

type AskRequest struct {
	ConversationID string `json:"conversation_id"`
	Message        string `json:"message"`
}

type AskResponse struct {
	ConversationID string `json:"conversation_id"`
	Reply          string `json:"reply"`
}

type ConversationResponse struct {
	ConversationID string        `json:"conversation_id"`
	Turns          []memory.Turn `json:"turns"`
}

// AskHandler runs one agent turn. A request without conversation_id starts a new conversation.
func AskHandler(a Conversations) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req AskRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		req.Message = strings.TrimSpace(req.Message)
		if req.Message == "" {
			writeError(w, http.StatusBadRequest, "message is required")
			return
		}
		if req.ConversationID == "" {
			req.ConversationID = uuid.NewString()
		}

		reply := a.Converse(r.Context(), conversationPrefix+req.ConversationID, req.Message)
		writeJSON(w, http.StatusOK, AskResponse{ConversationID: req.ConversationID, Reply: reply})
	}
}

func ConversationHandler(a Conversations) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		turns, err := a.History(r.Context(), conversationPrefix+id)
		if err != nil {
			logging.Error(r.Context()).Err(err).Str("conversation", id).Msg("failed to load conversation")
			writeError(w, http.StatusInternalServerError, "conversation memory unavailable")
			return
		}
		if turns == nil {
			turns = []memory.Turn{}
		}
		writeJSON(w, http.StatusOK, ConversationResponse{ConversationID: id, Turns: turns})
	}
}

func ResetConversationHandler(a Conversations) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if err := a.Reset(r.Context(), conversationPrefix+id); err != nil {
			logging.Error(r.Context()).Err(err).Str("conversation", id).Msg("failed to reset conversation")
			writeError(w, http.StatusInternalServerError, "conversation memory unavailable")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, message string) {
	writeJSON(w, code, map[string]string{"error": message})
}

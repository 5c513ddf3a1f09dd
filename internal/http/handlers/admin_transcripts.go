package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/aquashine/carwash-ai-platform/internal/conversation"
	"github.com/aquashine/carwash-ai-platform/pkg/logging"
)

const defaultTranscriptPageSize = 200

// TranscriptLister reads the durable message history of a conversation.
type TranscriptLister interface {
	List(ctx context.Context, conversationID string, roles []string, limit int) ([]conversation.TranscriptEntry, error)
}

// AdminTranscriptsHandler exposes conversation transcripts to operators.
type AdminTranscriptsHandler struct {
	store  TranscriptLister
	logger *logging.Logger
}

// NewAdminTranscriptsHandler creates the handler.
func NewAdminTranscriptsHandler(store TranscriptLister, logger *logging.Logger) *AdminTranscriptsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminTranscriptsHandler{
		store:  store,
		logger: logger,
	}
}

// TranscriptResponse is the admin transcript payload.
type TranscriptResponse struct {
	ConversationID string                         `json:"conversation_id"`
	Messages       []conversation.TranscriptEntry `json:"messages"`
	Count          int                            `json:"count"`
}

// List handles GET /admin/conversations/{conversationID}/transcript.
// Repeated role query parameters filter by sender; limit caps the page.
func (h *AdminTranscriptsHandler) List(w http.ResponseWriter, r *http.Request) {
	conversationID := chi.URLParam(r, "conversationID")
	if conversationID == "" {
		http.Error(w, "conversationID is required", http.StatusBadRequest)
		return
	}

	limit := defaultTranscriptPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}
	roles := r.URL.Query()["role"]

	messages, err := h.store.List(r.Context(), conversationID, roles, limit)
	if err != nil {
		h.logger.Error("failed to list transcript", "conversation_id", conversationID, "error", err)
		http.Error(w, "Failed to list transcript", http.StatusInternalServerError)
		return
	}
	if messages == nil {
		messages = []conversation.TranscriptEntry{}
	}

	w.Header().Set("Content-Type", "application/json")
	resp := TranscriptResponse{ConversationID: conversationID, Messages: messages, Count: len(messages)}
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}

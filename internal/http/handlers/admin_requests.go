// Package handlers holds HTTP handlers outside the conversation flow.
package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/aquashine/carwash-ai-platform/internal/booking"
	"github.com/aquashine/carwash-ai-platform/internal/requests"
	"github.com/aquashine/carwash-ai-platform/pkg/logging"
)

const defaultRequestsPageSize = 50

// AdminRequestsHandler exposes confirmed service requests to operators.
type AdminRequestsHandler struct {
	repo   requests.Repository
	logger *logging.Logger
}

// NewAdminRequestsHandler creates the handler.
func NewAdminRequestsHandler(repo requests.Repository, logger *logging.Logger) *AdminRequestsHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminRequestsHandler{
		repo:   repo,
		logger: logger,
	}
}

// RequestsListResponse is the admin listing payload.
type RequestsListResponse struct {
	Requests []*booking.ServiceRequest `json:"requests"`
	Count    int                       `json:"count"`
}

// List handles GET /admin/requests?limit=N.
func (h *AdminRequestsHandler) List(w http.ResponseWriter, r *http.Request) {
	limit := defaultRequestsPageSize
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "limit must be a positive integer", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	list, err := h.repo.ListRecent(r.Context(), limit)
	if err != nil {
		h.logger.Error("failed to list service requests", "error", err)
		http.Error(w, "Failed to list service requests", http.StatusInternalServerError)
		return
	}
	if list == nil {
		list = []*booking.ServiceRequest{}
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(RequestsListResponse{Requests: list, Count: len(list)}); err != nil {
		h.logger.Error("failed to write JSON response", "error", err)
	}
}

package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/sevigo/autoreviewbot/internal/storage"
)

// RunsHandler serves the review run history persisted by the optional store.
type RunsHandler struct {
	store  storage.Store
	logger *slog.Logger
}

// NewRunsHandler creates a run history handler. The store may be nil when no
// database is configured; requests then report the feature as unavailable.
func NewRunsHandler(store storage.Store, logger *slog.Logger) *RunsHandler {
	return &RunsHandler{store: store, logger: logger}
}

// Latest returns the most recent run for a pull request as JSON.
func (h *RunsHandler) Latest(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		http.Error(w, "Run history is not configured", http.StatusServiceUnavailable)
		return
	}

	owner := chi.URLParam(r, "owner")
	repo := chi.URLParam(r, "repo")
	number, err := strconv.Atoi(chi.URLParam(r, "number"))
	if err != nil || number <= 0 {
		http.Error(w, "Invalid pull request number", http.StatusBadRequest)
		return
	}

	record, err := h.store.LatestRunForPR(r.Context(), owner+"/"+repo, number)
	if err != nil {
		h.logger.Debug("no run history for pull request", "owner", owner, "repo", repo, "pr", number, "error", err)
		http.Error(w, "No run found for this pull request", http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(record); err != nil {
		h.logger.Error("failed to encode run record", "error", err)
	}
}

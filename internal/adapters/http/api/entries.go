// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	service "github.com/pubtrivia/tally/internal/app"
	"github.com/pubtrivia/tally/internal/domain/model"
)

// EntryDependencies defines the interface for daily submissions and the
// daily board.
type EntryDependencies interface {
	SubmitEntry(ctx context.Context, req service.SubmitRequest) error
	Today(ctx context.Context) ([]model.DailyEntry, error)
}

// EntriesHandler handles daily entry requests.
type EntriesHandler struct {
	deps EntryDependencies
}

// NewEntriesHandler creates a new entries handler.
func NewEntriesHandler(deps EntryDependencies) *EntriesHandler {
	return &EntriesHandler{deps: deps}
}

// entryRequest mirrors the wire schema for POST /entries.
type entryRequest struct {
	Alias       string `json:"alias"`
	DisplayName string `json:"displayName"`
	Score       string `json:"score"`
}

func (e entryRequest) validate() error {
	switch {
	case strings.TrimSpace(e.Alias) == "":
		return ErrMissingAlias
	case strings.TrimSpace(e.DisplayName) == "":
		return ErrMissingDisplayName
	case strings.TrimSpace(e.Score) == "":
		return ErrMissingScore
	}
	return nil
}

// HandlePostEntry handles POST /entries requests. Open to anyone; a
// resubmission under the same alias overwrites the prior entry.
func (h *EntriesHandler) HandlePostEntry(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return
	}
	var req entryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	err := h.deps.SubmitEntry(r.Context(), service.SubmitRequest{
		Alias:       req.Alias,
		DisplayName: req.DisplayName,
		Score:       req.Score,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "recorded"})
}

// HandleGetToday handles GET /today requests, returning the current daily
// board in display order.
func (h *EntriesHandler) HandleGetToday(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	entries, err := h.deps.Today(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if entries == nil {
		entries = []model.DailyEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/pubtrivia/tally/internal/domain/bracket"
	"github.com/pubtrivia/tally/internal/domain/model"
)

// StandingsDependencies defines the interface for season read projections.
type StandingsDependencies interface {
	Standings(ctx context.Context) ([]model.StandingRecord, error)
	HallOfFame(ctx context.Context) ([]model.StandingRecord, error)
	HallOfShame(ctx context.Context) ([]model.StandingRecord, error)
	Bracket(ctx context.Context) (bracket.Bracket, error)
}

// StandingsHandler handles season standings requests.
type StandingsHandler struct {
	deps     StandingsDependencies
	maxLimit int
}

// NewStandingsHandler creates a new standings handler.
func NewStandingsHandler(deps StandingsDependencies, maxLimit int) *StandingsHandler {
	return &StandingsHandler{deps: deps, maxLimit: maxLimit}
}

// HandleGetStandings handles GET /standings?limit=N requests. The limit is
// optional; without it the full table is returned.
func (h *StandingsHandler) HandleGetStandings(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
			return
		}
		if n > h.maxLimit {
			writeError(w, http.StatusBadRequest, "limit_exceeded", ErrBadRequest)
			return
		}
		limit = n
	}

	records, err := h.deps.Standings(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if limit > 0 && len(records) > limit {
		records = records[:limit]
	}
	if records == nil {
		records = []model.StandingRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// HandleGetHallOfFame handles GET /hall/fame requests.
func (h *StandingsHandler) HandleGetHallOfFame(w http.ResponseWriter, r *http.Request) {
	h.hall(w, r, h.deps.HallOfFame)
}

// HandleGetHallOfShame handles GET /hall/shame requests.
func (h *StandingsHandler) HandleGetHallOfShame(w http.ResponseWriter, r *http.Request) {
	h.hall(w, r, h.deps.HallOfShame)
}

func (h *StandingsHandler) hall(w http.ResponseWriter, r *http.Request, read func(context.Context) ([]model.StandingRecord, error)) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	records, err := read(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if records == nil {
		records = []model.StandingRecord{}
	}
	writeJSON(w, http.StatusOK, records)
}

// HandleGetBracket handles GET /bracket requests.
func (h *StandingsHandler) HandleGetBracket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	b, err := h.deps.Bracket(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, b)
}

// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/pubtrivia/tally/internal/adapters/auth"
	"github.com/pubtrivia/tally/internal/adapters/repository"
	service "github.com/pubtrivia/tally/internal/app"
)

// Server wires the HTTP routes of the scoreboard API.
type Server struct {
	healthHandler    *HealthHandler
	statsHandler     *StatsHandler
	entriesHandler   *EntriesHandler
	standingsHandler *StandingsHandler
	adminHandler     *AdminHandler
	watchHandler     *WatchHandler
}

// NewServer creates an API server with all handlers. The verifier
// authenticates bearer tokens; authorization itself stays in the service
// layer.
func NewServer(svc *service.Service, verifier *auth.Verifier, maxLimit int) *Server {
	ident := newIdentityReader(verifier)
	return &Server{
		healthHandler:    NewHealthHandler(),
		statsHandler:     NewStatsHandler(svc),
		entriesHandler:   NewEntriesHandler(svc),
		standingsHandler: NewStandingsHandler(svc, maxLimit),
		adminHandler:     NewAdminHandler(svc, ident),
		watchHandler:     NewWatchHandler(svc),
	}
}

// Register attaches all HTTP routes to mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz"))
	mux.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats"))
	mux.HandleFunc("/entries", MetricsMiddleware(s.entriesHandler.HandlePostEntry, "entries"))
	mux.HandleFunc("/today", MetricsMiddleware(s.entriesHandler.HandleGetToday, "today"))
	mux.HandleFunc("/standings", MetricsMiddleware(s.standingsHandler.HandleGetStandings, "standings"))
	mux.HandleFunc("/hall/fame", MetricsMiddleware(s.standingsHandler.HandleGetHallOfFame, "hall_fame"))
	mux.HandleFunc("/hall/shame", MetricsMiddleware(s.standingsHandler.HandleGetHallOfShame, "hall_shame"))
	mux.HandleFunc("/bracket", MetricsMiddleware(s.standingsHandler.HandleGetBracket, "bracket"))
	mux.HandleFunc("/watch", s.watchHandler.HandleWatch)
	s.adminHandler.Register(mux)
}

type statusResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string, err error) {
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// writeServiceError maps service error kinds onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "unauthenticated", err)
	case errors.Is(err, service.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, "permission_denied", err)
	case errors.Is(err, service.ErrInvalidArgument):
		writeError(w, http.StatusBadRequest, "bad_request", err)
	case errors.Is(err, repository.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal_error", err)
	}
}

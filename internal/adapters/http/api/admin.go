// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strings"

	"github.com/pubtrivia/tally/internal/adapters/auth"
	service "github.com/pubtrivia/tally/internal/app"
)

// AdminDependencies defines the interface for privileged maintenance
// operations. Authorization lives behind this interface; the handler only
// resolves the caller identity.
type AdminDependencies interface {
	FinishDay(ctx context.Context, caller auth.Identity) (service.FinishDayResult, error)
	ResetAllPoints(ctx context.Context, caller auth.Identity) (service.ResetResult, error)
	AdjustPoints(ctx context.Context, caller auth.Identity, req service.AdjustPointsRequest) error
	AdjustFinishes(ctx context.Context, caller auth.Identity, req service.AdjustFinishesRequest) error
	SetAliasFields(ctx context.Context, caller auth.Identity, docID, alias, displayName string) error
	DeleteRecord(ctx context.Context, caller auth.Identity, docID string) (service.DeleteResult, error)
	MergeAlias(ctx context.Context, caller auth.Identity, oldID, newAlias, newDisplayName string) (service.MergeResult, error)
	GrantAdmin(ctx context.Context, caller auth.Identity) error
}

// AdminHandler handles privileged maintenance requests.
type AdminHandler struct {
	deps  AdminDependencies
	ident *identityReader
}

// NewAdminHandler creates a new admin handler.
func NewAdminHandler(deps AdminDependencies, ident *identityReader) *AdminHandler {
	return &AdminHandler{deps: deps, ident: ident}
}

// Register attaches the admin routes to mux.
func (h *AdminHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("/admin/finish-day", MetricsMiddleware(h.HandleFinishDay, "admin_finish_day"))
	mux.HandleFunc("/admin/reset-points", MetricsMiddleware(h.HandleResetPoints, "admin_reset_points"))
	mux.HandleFunc("/admin/adjust-points", MetricsMiddleware(h.HandleAdjustPoints, "admin_adjust_points"))
	mux.HandleFunc("/admin/adjust-finishes", MetricsMiddleware(h.HandleAdjustFinishes, "admin_adjust_finishes"))
	mux.HandleFunc("/admin/set-alias", MetricsMiddleware(h.HandleSetAlias, "admin_set_alias"))
	mux.HandleFunc("/admin/delete-record", MetricsMiddleware(h.HandleDeleteRecord, "admin_delete_record"))
	mux.HandleFunc("/admin/merge-alias", MetricsMiddleware(h.HandleMergeAlias, "admin_merge_alias"))
	mux.HandleFunc("/admin/grant", MetricsMiddleware(h.HandleGrant, "admin_grant"))
}

// caller authenticates the request, rejecting malformed tokens outright.
// A missing token passes through as the anonymous identity so the service
// layer can report unauthenticated with its own error kind.
func (h *AdminHandler) caller(w http.ResponseWriter, r *http.Request) (auth.Identity, bool) {
	if r.Method != http.MethodPost {
		http.NotFound(w, r)
		return auth.Identity{}, false
	}
	id, err := h.ident.identify(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "invalid_token", err)
		return auth.Identity{}, false
	}
	return id, true
}

// HandleFinishDay handles POST /admin/finish-day requests.
func (h *AdminHandler) HandleFinishDay(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caller(w, r)
	if !ok {
		return
	}
	res, err := h.deps.FinishDay(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleResetPoints handles POST /admin/reset-points requests.
func (h *AdminHandler) HandleResetPoints(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caller(w, r)
	if !ok {
		return
	}
	res, err := h.deps.ResetAllPoints(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// adjustPointsRequest mirrors the wire schema for POST /admin/adjust-points.
// The value arrives as a JSON number and is floored to an integer.
type adjustPointsRequest struct {
	DocID       string   `json:"docId"`
	Mode        string   `json:"mode"`
	Value       *float64 `json:"value"`
	DisplayName string   `json:"displayName"`
	Alias       string   `json:"alias"`
}

func (req adjustPointsRequest) validate() error {
	switch {
	case strings.TrimSpace(req.DocID) == "":
		return ErrMissingDocID
	case req.Value == nil:
		return ErrMissingValue
	case math.IsNaN(*req.Value) || math.IsInf(*req.Value, 0):
		return ErrValueNotFinite
	}
	return nil
}

// HandleAdjustPoints handles POST /admin/adjust-points requests.
func (h *AdminHandler) HandleAdjustPoints(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req adjustPointsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	err := h.deps.AdjustPoints(r.Context(), id, service.AdjustPointsRequest{
		DocID:       req.DocID,
		Mode:        req.Mode,
		Value:       int(math.Floor(*req.Value)),
		DisplayName: req.DisplayName,
		Alias:       req.Alias,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

// adjustFinishesRequest mirrors the wire schema for
// POST /admin/adjust-finishes. Each counter is optional and floored.
type adjustFinishesRequest struct {
	DocID       string   `json:"docId"`
	Mode        string   `json:"mode"`
	Firsts      *float64 `json:"firsts"`
	Lasts       *float64 `json:"lasts"`
	DisplayName string   `json:"displayName"`
}

func (req adjustFinishesRequest) validate() error {
	if strings.TrimSpace(req.DocID) == "" {
		return ErrMissingDocID
	}
	for _, v := range []*float64{req.Firsts, req.Lasts} {
		if v != nil && (math.IsNaN(*v) || math.IsInf(*v, 0)) {
			return ErrValueNotFinite
		}
	}
	return nil
}

// HandleAdjustFinishes handles POST /admin/adjust-finishes requests.
func (h *AdminHandler) HandleAdjustFinishes(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req adjustFinishesRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", err)
		return
	}

	svcReq := service.AdjustFinishesRequest{
		DocID:       req.DocID,
		Mode:        req.Mode,
		DisplayName: req.DisplayName,
	}
	if req.Firsts != nil {
		v := int(math.Floor(*req.Firsts))
		svcReq.Firsts = &v
	}
	if req.Lasts != nil {
		v := int(math.Floor(*req.Lasts))
		svcReq.Lasts = &v
	}

	if err := h.deps.AdjustFinishes(r.Context(), id, svcReq); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

// setAliasRequest mirrors the wire schema for POST /admin/set-alias.
type setAliasRequest struct {
	DocID       string `json:"docId"`
	Alias       string `json:"alias"`
	DisplayName string `json:"displayName"`
}

// HandleSetAlias handles POST /admin/set-alias requests.
func (h *AdminHandler) HandleSetAlias(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req setAliasRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	if err := h.deps.SetAliasFields(r.Context(), id, req.DocID, req.Alias, req.DisplayName); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "ok"})
}

// deleteRequest mirrors the wire schema for POST /admin/delete-record.
type deleteRequest struct {
	DocID string `json:"docId"`
}

// HandleDeleteRecord handles POST /admin/delete-record requests.
func (h *AdminHandler) HandleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req deleteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	res, err := h.deps.DeleteRecord(r.Context(), id, req.DocID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// mergeRequest mirrors the wire schema for POST /admin/merge-alias.
type mergeRequest struct {
	OldID          string `json:"oldId"`
	NewAlias       string `json:"newAlias"`
	NewDisplayName string `json:"newDisplayName"`
}

// HandleMergeAlias handles POST /admin/merge-alias requests.
func (h *AdminHandler) HandleMergeAlias(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caller(w, r)
	if !ok {
		return
	}
	var req mergeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_request", ErrBadRequest)
		return
	}
	res, err := h.deps.MergeAlias(r.Context(), id, req.OldID, req.NewAlias, req.NewDisplayName)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// HandleGrant handles POST /admin/grant requests: the one-time admin grant
// for an authenticated, allow-listed caller.
func (h *AdminHandler) HandleGrant(w http.ResponseWriter, r *http.Request) {
	id, ok := h.caller(w, r)
	if !ok {
		return
	}
	if err := h.deps.GrantAdmin(r.Context(), id); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{Status: "granted"})
}

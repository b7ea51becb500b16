package handler

import (
	"net/http"

	"github.com/freeeve/techsim/internal/auth"
	"github.com/freeeve/techsim/internal/service"
)

// RunHandler handles simulation run endpoints.
type RunHandler struct {
	svc *service.SimulationService
}

// NewRunHandler creates a RunHandler.
func NewRunHandler(svc *service.SimulationService) *RunHandler {
	return &RunHandler{svc: svc}
}

// CreateRun handles POST /api/v1/runs
func (h *RunHandler) CreateRun(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name         string `json:"name,omitempty"`
		Cast         string `json:"cast"`
		CastFormat   string `json:"cast_format,omitempty"`
		Events       string `json:"events"`
		EventsFormat string `json:"events_format,omitempty"`
	}
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Cast == "" || req.Events == "" {
		writeError(w, http.StatusBadRequest, "cast and events are required")
		return
	}

	run, err := h.svc.CreateRun(r.Context(), auth.OperatorIDFromContext(r.Context()), service.CreateRunInput{
		Name:         req.Name,
		CastDoc:      req.Cast,
		CastFormat:   req.CastFormat,
		EventsDoc:    req.Events,
		EventsFormat: req.EventsFormat,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, run)
}

// ListRuns handles GET /api/v1/runs
func (h *RunHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	runs, err := h.svc.ListRuns(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if runs == nil {
		writeJSON(w, http.StatusOK, []struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// GetRun handles GET /api/v1/runs/{id}
func (h *RunHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	run, err := h.svc.GetRun(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// DeleteRun handles DELETE /api/v1/runs/{id}
func (h *RunHandler) DeleteRun(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteRun(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ReadyRun handles POST /api/v1/runs/{id}/ready
func (h *RunHandler) ReadyRun(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Seed         string `json:"seed,omitempty"`
		Shuffle      bool   `json:"shuffle,omitempty"`
		Recolor      bool   `json:"recolor,omitempty"`
		AutoInterval string `json:"auto_interval,omitempty"`
	}
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}

	run, err := h.svc.ReadyRun(r.Context(), r.PathValue("id"), service.ReadyInput{
		Seed:         req.Seed,
		Shuffle:      req.Shuffle,
		Recolor:      req.Recolor,
		AutoInterval: req.AutoInterval,
	})
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, run)
}

// AdvanceRun handles POST /api/v1/runs/{id}/cycles
func (h *RunHandler) AdvanceRun(w http.ResponseWriter, r *http.Request) {
	n, err := h.svc.AdvanceRun(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, n)
}

// ListCycles handles GET /api/v1/runs/{id}/cycles
func (h *RunHandler) ListCycles(w http.ResponseWriter, r *http.Request) {
	recs, err := h.svc.Cycles(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if recs == nil {
		writeJSON(w, http.StatusOK, []struct{}{})
		return
	}
	writeJSON(w, http.StatusOK, recs)
}

// Status handles GET /api/v1/runs/{id}/status
func (h *RunHandler) Status(w http.ResponseWriter, r *http.Request) {
	data, err := h.svc.Status(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

// Tribute handles GET /api/v1/runs/{id}/tributes/{name}
func (h *RunHandler) Tribute(w http.ResponseWriter, r *http.Request) {
	d, err := h.svc.Tribute(r.Context(), r.PathValue("id"), r.PathValue("name"))
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

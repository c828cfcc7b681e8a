// Package httpx provides the HTTP API of the content pipeline dashboard.
package httpx

import (
	"log/slog"
	"net/http"

	"github.com/target/mmk-content-dashboard/internal/domain/model"
	"github.com/target/mmk-content-dashboard/internal/service"
)

const maxJobListLimit = 500

// JobHandlers provides HTTP handlers for job, result, and step operations.
type JobHandlers struct {
	Svc    *service.JobService
	Logger *slog.Logger
}

// List handles GET /api/jobs?status=&cached=&limit=.
func (h *JobHandlers) List(w http.ResponseWriter, r *http.Request) {
	filter := model.JobListFilter{
		Cached: parseBoolQuery(r, "cached", false),
		Limit:  parseLimit(r, maxJobListLimit),
	}
	if raw := r.URL.Query().Get("status"); raw != "" {
		status, err := model.ParseJobStatus(raw)
		if err != nil {
			WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "validation", Err: err})
			return
		}
		filter.Status = &status
	}

	jobs, err := h.Svc.List(r.Context(), filter)
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"jobs": jobs, "count": len(jobs)})
}

// Get handles GET /api/jobs/{id}.
func (h *JobHandlers) Get(w http.ResponseWriter, r *http.Request) {
	job, err := h.Svc.Status(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, job)
}

// Result handles GET /api/jobs/{id}/result. A job without content still
// answers 200 with found=false.
func (h *JobHandlers) Result(w http.ResponseWriter, r *http.Request) {
	view, err := h.Svc.FinalResult(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, view)
}

// Subjobs handles GET /api/jobs/{id}/subjobs.
func (h *JobHandlers) Subjobs(w http.ResponseWriter, r *http.Request) {
	views, err := h.Svc.SubjobResults(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"job_id": r.PathValue("id"), "subjobs": views})
}

// Step handles GET /api/jobs/{id}/steps/{n}.
func (h *JobHandlers) Step(w http.ResponseWriter, r *http.Request) {
	n, err := pathInt(r, "n")
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	out, err := h.Svc.StepOutput(r.Context(), r.PathValue("id"), n)
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"job_id": r.PathValue("id"), "step": n, "output": out})
}

// StepMarkdown handles GET /api/jobs/{id}/steps/{n}/markdown?step_type=.
func (h *JobHandlers) StepMarkdown(w http.ResponseWriter, r *http.Request) {
	n, err := pathInt(r, "n")
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	md, err := h.Svc.StepMarkdown(r.Context(), r.PathValue("id"), n, r.URL.Query().Get("step_type"))
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	writeMarkdown(w, r, md)
}

// StepKeys handles GET /api/jobs/{id}/steps.
func (h *JobHandlers) StepKeys(w http.ResponseWriter, r *http.Request) {
	keys, err := h.Svc.StepKeys(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"job_id": r.PathValue("id"), "step_keys": keys})
}

// ClearSteps handles DELETE /api/jobs/{id}/steps.
func (h *JobHandlers) ClearSteps(w http.ResponseWriter, r *http.Request) {
	if err := h.Svc.ClearStepCache(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

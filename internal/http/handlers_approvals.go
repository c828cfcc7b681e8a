package httpx

import (
	"log/slog"
	"net/http"

	"github.com/target/mmk-content-dashboard/internal/domain/model"
	"github.com/target/mmk-content-dashboard/internal/service"
)

// ApprovalHandlers provides HTTP handlers for the review workflow.
type ApprovalHandlers struct {
	Svc    *service.ApprovalService
	Logger *slog.Logger
}

// List handles GET /api/jobs/{id}/approvals.
func (h *ApprovalHandlers) List(w http.ResponseWriter, r *http.Request) {
	jobID := r.PathValue("id")
	approvals, err := h.Svc.List(r.Context(), jobID)
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"job_id": jobID, "approvals": approvals})
}

// Preview handles GET /api/jobs/{id}/approvals/{step}/preview.
func (h *ApprovalHandlers) Preview(w http.ResponseWriter, r *http.Request) {
	preview, err := h.Svc.Preview(r.Context(), r.PathValue("id"), r.PathValue("step"))
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, preview)
}

// Decide handles POST /api/jobs/{id}/approvals/{step}.
func (h *ApprovalHandlers) Decide(w http.ResponseWriter, r *http.Request) {
	var decision model.ApprovalDecision
	if !DecodeJSON(w, r, &decision) {
		return
	}
	jobID, step := r.PathValue("id"), r.PathValue("step")
	if err := h.Svc.Decide(r.Context(), jobID, step, decision); err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{
		"job_id":   jobID,
		"step":     step,
		"decision": decision.Decision,
	})
}

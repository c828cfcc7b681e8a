package httpx

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/target/mmk-content-dashboard/internal/domain/model"
	"github.com/target/mmk-content-dashboard/internal/service"
)

// SettingsHandlers provides HTTP handlers for versioned pipeline settings.
type SettingsHandlers struct {
	Svc    *service.SettingsService
	Logger *slog.Logger
}

type saveSettingsRequest struct {
	Settings model.PipelineSettings `json:"settings"`
	Comment  string                 `json:"comment"`
	Author   string                 `json:"author"`
}

type restoreSettingsRequest struct {
	Author string `json:"author"`
}

// Current handles GET /api/settings.
func (h *SettingsHandlers) Current(w http.ResponseWriter, r *http.Request) {
	current, err := h.Svc.Current(r.Context())
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, current)
}

// Save handles PUT /api/settings.
func (h *SettingsHandlers) Save(w http.ResponseWriter, r *http.Request) {
	var req saveSettingsRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	saved, err := h.Svc.Save(r.Context(), req.Settings, req.Comment, req.Author)
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, saved)
}

// History handles GET /api/settings/history?limit=.
func (h *SettingsHandlers) History(w http.ResponseWriter, r *http.Request) {
	versions, err := h.Svc.History(r.Context(), parseIntQuery(r, "limit", 0))
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]any{"versions": versions})
}

// Version handles GET /api/settings/history/{version}.
func (h *SettingsHandlers) Version(w http.ResponseWriter, r *http.Request) {
	version, err := pathInt(r, "version")
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	v, err := h.Svc.Get(r.Context(), version)
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, v)
}

// Restore handles POST /api/settings/history/{version}/restore. The body is optional.
func (h *SettingsHandlers) Restore(w http.ResponseWriter, r *http.Request) {
	version, err := pathInt(r, "version")
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	var req restoreSettingsRequest
	if !decodeOptionalJSON(w, r, &req) {
		return
	}
	saved, err := h.Svc.Restore(r.Context(), version, req.Author)
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, saved)
}

// Export handles GET /api/settings/export as a YAML attachment.
func (h *SettingsHandlers) Export(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Svc.Export(r.Context())
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	w.Header().Set("Content-Type", "application/yaml")
	w.Header().Set("Content-Disposition", `attachment; filename="pipeline-settings.yaml"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(doc)
}

// Import handles POST /api/settings/import?author= with a YAML body.
func (h *SettingsHandlers) Import(w http.ResponseWriter, r *http.Request) {
	author := strings.TrimSpace(r.URL.Query().Get("author"))
	saved, err := h.Svc.Import(r.Context(), r.Body, author)
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusOK, saved)
}

package httpx

import (
	"log/slog"
	"net/http"

	"github.com/target/mmk-content-dashboard/internal/service"
)

// RouterServices holds all the services needed by the HTTP router.
type RouterServices struct {
	Jobs      *service.JobService
	Approvals *service.ApprovalService
	Content   *service.ContentService
	Settings  *service.SettingsService
	// Readiness checks served on /readyz, keyed by dependency name.
	Readiness      map[string]ReadinessCheck
	MaxUploadBytes int64
	Logger         *slog.Logger
}

// NewRouter creates and configures the dashboard API router.
func NewRouter(services RouterServices) http.Handler {
	mux := http.NewServeMux()
	logger := services.Logger
	if logger == nil {
		logger = slog.Default()
	}

	mux.Handle("GET /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("HEAD /healthz", http.HandlerFunc(healthHandler))
	mux.Handle("GET /readyz", readinessHandler(services.Readiness))

	if services.Jobs != nil {
		registerJobRoutes(mux, &JobHandlers{Svc: services.Jobs, Logger: logger})
	}
	if services.Approvals != nil {
		registerApprovalRoutes(mux, &ApprovalHandlers{Svc: services.Approvals, Logger: logger})
	}
	content := &ContentHandlers{Svc: services.Content, Logger: logger, MaxUploadBytes: services.MaxUploadBytes}
	registerContentRoutes(mux, content, services.Content != nil)
	if services.Settings != nil {
		registerSettingsRoutes(mux, &SettingsHandlers{Svc: services.Settings, Logger: logger})
	}

	mux.Handle("/", http.HandlerFunc(notFoundHandler))
	return mux
}

func registerJobRoutes(mux *http.ServeMux, h *JobHandlers) {
	mux.HandleFunc("GET /api/jobs", h.List)
	mux.HandleFunc("GET /api/jobs/{id}", h.Get)
	mux.HandleFunc("GET /api/jobs/{id}/result", h.Result)
	mux.HandleFunc("GET /api/jobs/{id}/subjobs", h.Subjobs)
	mux.HandleFunc("GET /api/jobs/{id}/steps", h.StepKeys)
	mux.HandleFunc("DELETE /api/jobs/{id}/steps", h.ClearSteps)
	mux.HandleFunc("GET /api/jobs/{id}/steps/{n}", h.Step)
	mux.HandleFunc("GET /api/jobs/{id}/steps/{n}/markdown", h.StepMarkdown)
}

func registerApprovalRoutes(mux *http.ServeMux, h *ApprovalHandlers) {
	mux.HandleFunc("GET /api/jobs/{id}/approvals", h.List)
	mux.HandleFunc("GET /api/jobs/{id}/approvals/{step}/preview", h.Preview)
	mux.HandleFunc("POST /api/jobs/{id}/approvals/{step}", h.Decide)
}

// registerContentRoutes always serves /api/format, which needs no backend.
func registerContentRoutes(mux *http.ServeMux, h *ContentHandlers, withBackend bool) {
	mux.HandleFunc("POST /api/format", h.Format)
	if !withBackend {
		return
	}
	mux.HandleFunc("POST /api/content", h.Upload)
	mux.HandleFunc("POST /api/pipeline/run", h.RunPipeline)
}

func registerSettingsRoutes(mux *http.ServeMux, h *SettingsHandlers) {
	mux.HandleFunc("GET /api/settings", h.Current)
	mux.HandleFunc("PUT /api/settings", h.Save)
	mux.HandleFunc("GET /api/settings/history", h.History)
	mux.HandleFunc("GET /api/settings/history/{version}", h.Version)
	mux.HandleFunc("POST /api/settings/history/{version}/restore", h.Restore)
	mux.HandleFunc("GET /api/settings/export", h.Export)
	mux.HandleFunc("POST /api/settings/import", h.Import)
}

func notFoundHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusNotFound, map[string]string{
		"error":   "not_found",
		"message": "no route for " + r.Method + " " + r.URL.Path,
	})
}

package httpx

import (
	"errors"
	"io"
	"log/slog"
	"mime"
	"net/http"

	"github.com/target/mmk-content-dashboard/internal/domain/approval"
	"github.com/target/mmk-content-dashboard/internal/domain/jsonv"
	"github.com/target/mmk-content-dashboard/internal/domain/model"
	apperrors "github.com/target/mmk-content-dashboard/internal/errors"
	"github.com/target/mmk-content-dashboard/internal/service"
)

// multipartOverhead covers part headers and boundaries around the upload.
const multipartOverhead = 64 << 10

// ContentHandlers provides HTTP handlers for uploads, pipeline runs, and
// ad-hoc formatting.
type ContentHandlers struct {
	Svc    *service.ContentService
	Logger *slog.Logger
	// MaxUploadBytes caps the multipart request body; 0 leaves it to the service.
	MaxUploadBytes int64
}

// Upload handles POST /api/content with a multipart "file" part. The part is
// streamed to the service without spooling to disk.
func (h *ContentHandlers) Upload(w http.ResponseWriter, r *http.Request) {
	if h.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, h.MaxUploadBytes+multipartOverhead)
	}
	mr, err := r.MultipartReader()
	if err != nil {
		writeServiceError(w, h.Logger, apperrors.ValidationField("file", "request must be multipart/form-data"))
		return
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			writeServiceError(w, h.Logger, apperrors.ValidationField("file", "file part is required"))
			return
		}
		if err != nil {
			writeServiceError(w, h.Logger, uploadReadError(err))
			return
		}
		if part.FormName() != "file" {
			_ = part.Close()
			continue
		}

		upload, err := h.Svc.Upload(r.Context(), part.FileName(), part)
		_ = part.Close()
		if err != nil {
			writeServiceError(w, h.Logger, uploadReadError(err))
			return
		}
		WriteJSON(w, http.StatusCreated, upload)
		return
	}
}

func uploadReadError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return apperrors.TooLarge("upload exceeds the size limit")
	}
	if apperrors.GetCode(err) != "" {
		return err
	}
	return apperrors.Wrap(err, apperrors.ErrCodeValidation, "malformed multipart body")
}

// RunPipeline handles POST /api/pipeline/run.
func (h *ContentHandlers) RunPipeline(w http.ResponseWriter, r *http.Request) {
	var req model.RunPipelineRequest
	if !DecodeJSON(w, r, &req) {
		return
	}
	resp, err := h.Svc.RunPipeline(r.Context(), req)
	if err != nil {
		writeServiceError(w, h.Logger, err)
		return
	}
	WriteJSON(w, http.StatusAccepted, resp)
}

// Format handles POST /api/format {output, step_type}. The body is decoded
// with key order preserved so the markdown follows the submitted layout.
// Clients asking for text/markdown get the raw document.
func (h *ContentHandlers) Format(w http.ResponseWriter, r *http.Request) {
	body, err := jsonv.DecodeReader(http.MaxBytesReader(w, r.Body, maxJSONBodyBytes))
	if err != nil {
		WriteError(w, ErrorParams{Code: http.StatusBadRequest, ErrCode: "invalid_json", Err: err})
		return
	}
	obj, ok := jsonv.AsObject(body)
	if !ok {
		writeServiceError(w, h.Logger, apperrors.Validation("body must be an object with output and step_type"))
		return
	}
	output, _ := obj.Get("output")
	stepType := ""
	if v, ok := obj.Get("step_type"); ok {
		if stepType, ok = jsonv.AsString(v); !ok {
			writeServiceError(w, h.Logger, apperrors.ValidationField("step_type", "step_type must be a string"))
			return
		}
	}

	md := approval.Format(output, stepType)
	if wantsMarkdown(r) {
		writeMarkdown(w, r, md)
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"markdown": md, "step_type": stepType})
}

func wantsMarkdown(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Accept"))
	return err == nil && mediaType == "text/markdown"
}

package service

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/h2non/filetype"
	"github.com/target/mmk-content-dashboard/internal/core"
	"github.com/target/mmk-content-dashboard/internal/domain/model"
	apperrors "github.com/target/mmk-content-dashboard/internal/errors"
)

const defaultUploadMaxBytes int64 = 10 << 20

// Binary formats accepted by magic-number detection.
var allowedBinaryTypes = map[string]bool{
	"pdf":  true,
	"docx": true,
}

// Text formats have no magic number; they are accepted by extension when the
// body is valid UTF-8.
var textTypes = map[string]string{
	".txt":      "text/plain; charset=utf-8",
	".md":       "text/markdown; charset=utf-8",
	".markdown": "text/markdown; charset=utf-8",
	".html":     "text/html; charset=utf-8",
	".htm":      "text/html; charset=utf-8",
}

// SettingsSource supplies the settings applied to runs that carry none.
type SettingsSource interface {
	Current(ctx context.Context) (*model.SettingsVersion, error)
}

// ContentServiceOptions groups dependencies for ContentService.
type ContentServiceOptions struct {
	Client   core.PipelineClient
	Settings SettingsSource
	Config   ContentServiceConfig
}

// ContentServiceConfig tunes uploads.
type ContentServiceConfig struct {
	MaxBytes int64
	Logger   *slog.Logger
}

// ContentService accepts uploads and starts pipeline runs.
type ContentService struct {
	client   core.PipelineClient
	settings SettingsSource
	maxBytes int64
	logger   *slog.Logger
}

// NewContentService constructs a new ContentService.
func NewContentService(opts ContentServiceOptions) *ContentService {
	if opts.Client == nil {
		panic("PipelineClient is required")
	}
	maxBytes := opts.Config.MaxBytes
	if maxBytes <= 0 {
		maxBytes = defaultUploadMaxBytes
	}
	logger := opts.Config.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &ContentService{
		client:   opts.Client,
		settings: opts.Settings,
		maxBytes: maxBytes,
		logger:   logger.With("component", "content_service"),
	}
}

// Upload checks size and type of r and forwards it to the backend.
func (s *ContentService) Upload(ctx context.Context, filename string, r io.Reader) (*model.ContentUpload, error) {
	name := filepath.Base(strings.TrimSpace(filename))
	if name == "" || name == "." || name == string(filepath.Separator) {
		return nil, apperrors.ValidationField("filename", "filename is required")
	}

	body, err := io.ReadAll(io.LimitReader(r, s.maxBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	if int64(len(body)) > s.maxBytes {
		return nil, apperrors.TooLarge(fmt.Sprintf("upload exceeds %d bytes", s.maxBytes))
	}
	if len(body) == 0 {
		return nil, apperrors.ValidationField("file", "file is empty")
	}

	mime, err := detectContentType(name, body)
	if err != nil {
		return nil, err
	}

	raw, err := s.client.UploadContent(ctx, name, mime, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("upload %s: %w", name, err)
	}
	id := stringField(unwrapEnvelope(raw, "content"), "content_id", "id")
	if id == "" {
		return nil, apperrors.Upstreamf("upload response for %s has no content id", name)
	}

	s.logger.InfoContext(ctx, "content uploaded", "content_id", id, "filename", name, "mime_type", mime, "size", len(body))
	return &model.ContentUpload{ContentID: id, Filename: name, MIMEType: mime, Size: int64(len(body))}, nil
}

func detectContentType(name string, body []byte) (string, error) {
	kind, err := filetype.Match(body)
	if err == nil && kind != filetype.Unknown {
		if allowedBinaryTypes[kind.Extension] {
			return kind.MIME.Value, nil
		}
		return "", apperrors.ValidationField("file", fmt.Sprintf("unsupported file type %q", kind.Extension))
	}

	ext := strings.ToLower(filepath.Ext(name))
	mime, ok := textTypes[ext]
	if !ok {
		return "", apperrors.ValidationField("file", fmt.Sprintf("unsupported file extension %q", ext))
	}
	if !utf8.Valid(body) {
		return "", apperrors.ValidationField("file", "text uploads must be UTF-8")
	}
	return mime, nil
}

// RunPipeline starts a pipeline over uploaded content. Runs without settings
// use the current saved settings when a source is configured.
func (s *ContentService) RunPipeline(ctx context.Context, req model.RunPipelineRequest) (*model.RunPipelineResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, apperrors.Validation(err.Error())
	}
	if req.Settings == nil && s.settings != nil {
		current, err := s.settings.Current(ctx)
		if err != nil {
			return nil, fmt.Errorf("load current settings: %w", err)
		}
		settings := current.Settings
		req.Settings = &settings
	}

	raw, err := s.client.RunPipeline(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("run pipeline for %s: %w", req.ContentID, err)
	}
	body := unwrapEnvelope(raw, "job")
	jobID := stringField(body, "job_id", "id")
	if jobID == "" {
		return nil, apperrors.Upstreamf("pipeline run response has no job id")
	}
	status, err := model.ParseJobStatus(stringField(body, "status"))
	if err != nil {
		status = model.JobStatusPending
	}

	s.logger.InfoContext(ctx, "pipeline started", "job_id", jobID, "content_id", req.ContentID, "steps", len(req.Steps))
	return &model.RunPipelineResponse{JobID: jobID, Status: status}, nil
}

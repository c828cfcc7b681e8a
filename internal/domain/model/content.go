package model

import (
	"errors"
	"strings"
)

// ContentUpload describes a file accepted for a pipeline run.
type ContentUpload struct {
	ContentID string `json:"content_id"`
	Filename  string `json:"filename"`
	MIMEType  string `json:"mime_type"`
	Size      int64  `json:"size"`
}

// RunPipelineRequest asks the backend to start a pipeline over uploaded content.
type RunPipelineRequest struct {
	ContentID string            `json:"content_id"`
	Steps     []string          `json:"steps,omitempty"`
	Settings  *PipelineSettings `json:"settings,omitempty"`
}

// Validate validates the RunPipelineRequest fields.
func (r *RunPipelineRequest) Validate() error {
	if strings.TrimSpace(r.ContentID) == "" {
		return errors.New("content_id is required")
	}
	for _, s := range r.Steps {
		if strings.TrimSpace(s) == "" {
			return errors.New("steps must not contain empty names")
		}
	}
	if r.Settings != nil {
		if err := r.Settings.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// RunPipelineResponse is the backend acknowledgement of a started run.
type RunPipelineResponse struct {
	JobID  string    `json:"job_id"`
	Status JobStatus `json:"status,omitempty"`
}
